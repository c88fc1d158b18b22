// Command analyze scores an access-log CSV or a URL list offline and prints
// the batch as JSON.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nshruti113/url-risk-dashboard/internal/config"
	"github.com/nshruti113/url-risk-dashboard/internal/detection"
	"github.com/nshruti113/url-risk-dashboard/internal/ingest"
	"github.com/nshruti113/url-risk-dashboard/internal/logging"
	"github.com/nshruti113/url-risk-dashboard/internal/ml"
	"github.com/nshruti113/url-risk-dashboard/internal/rules"
)

const (
	modeCSV  = "csv"
	modeURLs = "urls"
)

type options struct {
	mode   string
	pretty bool
}

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	mode := flag.String("mode", modeCSV, "input format: csv (access log) or urls (one URL per line)")
	input := flag.String("in", "-", "input file, - for stdin")
	pretty := flag.Bool("pretty", false, "indent JSON output")
	flag.Parse()

	logger := logging.InitWriter(os.Stderr, "urlrisk-analyze", os.Getenv("URLRISK_JSON_LOG"), os.Getenv("URLRISK_LOG_LEVEL"))

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	in := io.Reader(os.Stdin)
	if *input != "-" {
		f, err := os.Open(*input)
		if err != nil {
			logger.Error("Failed to open input", "error", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	provider := ml.NewFileProvider(cfg.Model.ClassifierPath, cfg.Model.VectorizerPath, logger)
	if err := run(context.Background(), cfg, provider, options{mode: *mode, pretty: *pretty}, in, os.Stdout, logger); err != nil {
		logger.Error("Analysis failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, provider ml.Provider, opts options, in io.Reader, out io.Writer, logger *slog.Logger) error {
	engine, err := rules.NewEngine(cfg.Rules.CacheSize, logger)
	if err != nil {
		return err
	}
	detector := detection.NewDetector(engine, ml.NewAdapter(provider, cfg.Model.FallbackProbability, logger), detection.Options{
		FallbackProbability: cfg.Model.FallbackProbability,
		Workers:             cfg.Detection.Workers,
		Logger:              logger,
	})

	var result any
	switch opts.mode {
	case modeCSV:
		events, err := ingest.Mapper{}.ReadCSV(in)
		if err != nil {
			return err
		}
		batch := detector.AnalyzeEvents(ctx, events)
		logger.Info("Events analyzed", "events", len(events), "findings", len(batch.Findings), "degraded", batch.Degraded)
		result = batch
	case modeURLs:
		urls, err := readLines(in)
		if err != nil {
			return err
		}
		batch := detector.AnalyzeURLs(ctx, urls)
		logger.Info("URLs analyzed", "urls", len(urls), "degraded", batch.Degraded)
		result = batch
	default:
		return fmt.Errorf("unknown mode %q", opts.mode)
	}

	enc := json.NewEncoder(out)
	if opts.pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(result)
}

// readLines returns the non-blank lines of r.
func readLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, sc.Err()
}
