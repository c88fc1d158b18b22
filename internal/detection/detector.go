package detection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nshruti113/url-risk-dashboard/internal/correlation"
	"github.com/nshruti113/url-risk-dashboard/internal/explain"
	"github.com/nshruti113/url-risk-dashboard/internal/ml"
	"github.com/nshruti113/url-risk-dashboard/internal/models"
	"github.com/nshruti113/url-risk-dashboard/internal/rules"
	"github.com/nshruti113/url-risk-dashboard/internal/scoring"
)

// WarnModelUnavailable marks a batch scored without the classifier.
const WarnModelUnavailable = "classifier unavailable, scores are conservative"

// Observer is notified after every finished batch.
type Observer interface {
	ObserveURLBatch(ctx context.Context, batch *URLBatch)
	ObserveEventBatch(ctx context.Context, batch *EventBatch)
}

// Options tunes a Detector.
type Options struct {
	// FallbackProbability replaces the classifier output in degraded mode.
	FallbackProbability float64
	// Workers bounds parallel rule evaluation. Zero means GOMAXPROCS.
	Workers  int
	Observer Observer
	Logger   *slog.Logger
}

// Detector runs the analysis pipeline: features and classifier, rules,
// correlation, scoring and explanation.
type Detector struct {
	rules    *rules.Engine
	adapter  *ml.Adapter
	fallback float64
	workers  int
	observer Observer
	logger   *slog.Logger
}

func NewDetector(engine *rules.Engine, adapter *ml.Adapter, opts Options) *Detector {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	return &Detector{
		rules:    engine,
		adapter:  adapter,
		fallback: opts.FallbackProbability,
		workers:  opts.Workers,
		observer: opts.Observer,
		logger:   opts.Logger,
	}
}

// URLBatch is the result of AnalyzeURLs. Assessments line up one-to-one with
// the input URLs.
type URLBatch struct {
	ID          string                  `json:"batch_id"`
	AnalyzedAt  time.Time               `json:"analyzed_at"`
	Degraded    bool                    `json:"degraded"`
	Warnings    []string                `json:"warnings,omitempty"`
	Assessments []models.RiskAssessment `json:"results"`
}

// EventBatch is the result of AnalyzeEvents.
type EventBatch struct {
	ID          string                   `json:"batch_id"`
	AnalyzedAt  time.Time                `json:"analyzed_at"`
	Degraded    bool                     `json:"degraded"`
	Warnings    []string                 `json:"warnings,omitempty"`
	Assessments []models.EventAssessment `json:"results"`
	Findings    []models.Finding         `json:"findings"`
	Correlation correlation.Report       `json:"correlation"`
	Summary     explain.Summary          `json:"summary"`
}

// AnalyzeURLs scores each URL independently. It never fails: a missing
// model degrades the batch and a faulty URL only affects itself.
func (d *Detector) AnalyzeURLs(ctx context.Context, urls []string) URLBatch {
	start := time.Now()
	cleaned := make([]string, len(urls))
	for i, u := range urls {
		cleaned[i] = strings.TrimSpace(u)
	}

	batch := URLBatch{
		ID:          uuid.New().String(),
		AnalyzedAt:  start.UTC(),
		Assessments: make([]models.RiskAssessment, len(cleaned)),
	}

	preds, warnings, degraded := d.predict(cleaned)
	batch.Degraded = degraded
	batch.Warnings = warnings

	results := d.evaluate(cleaned)
	for i, url := range cleaned {
		batch.Assessments[i] = assess(url, preds[i], results[i].Hits)
	}

	d.logger.Info("URL batch analyzed",
		"batch_id", batch.ID,
		"urls", len(cleaned),
		"degraded", batch.Degraded,
		"duration", time.Since(start))

	if d.observer != nil {
		d.observer.ObserveURLBatch(ctx, &batch)
	}
	return batch
}

// AnalyzeEvents normalises and scores a batch of access-log events,
// correlating them per source identity. Correlation state lives only for
// this call.
func (d *Detector) AnalyzeEvents(ctx context.Context, events []models.Event) EventBatch {
	start := time.Now()
	normalized := make([]models.Event, len(events))
	urls := make([]string, len(events))
	for i, ev := range events {
		normalized[i] = ev.Normalize()
		urls[i] = normalized[i].AnalysisURL()
	}

	batch := EventBatch{
		ID:          uuid.New().String(),
		AnalyzedAt:  start.UTC(),
		Assessments: make([]models.EventAssessment, len(events)),
	}

	preds, warnings, degraded := d.predict(urls)
	batch.Degraded = degraded
	batch.Warnings = warnings

	perEvent := d.findings(normalized)
	observations := make([]correlation.Observation, len(normalized))
	labels := make([]string, len(normalized))
	hits := make([][]models.RuleID, len(normalized))
	for i, ev := range normalized {
		info := mlInfo(preds[i])
		labels[i] = correlation.ResolveLabel(perEvent[i], &info)
		hits[i] = correlation.RuleHits(perEvent[i])
		observations[i] = correlation.Observation{
			Event:    ev,
			Label:    labels[i],
			RuleHits: hits[i],
			ML:       info,
			Sequence: i,
		}
	}
	batch.Correlation = correlation.Correlate(observations)

	var findings []models.Finding
	for i, ev := range normalized {
		boost := batch.Correlation.Boost(ev.Identity())
		stage := correlation.StageFor(labels[i])
		// Benign requests from a flagged identity keep their own score.
		applied := 0.0
		var reasons []string
		if stage != models.StageBenign {
			applied = boost
			if rec, ok := batch.Correlation.Record(ev.Identity()); ok {
				reasons = scoring.BoostReasons(rec)
			}
		}
		ra := assessBoosted(urls[i], preds[i], hits[i], scoring.BoostPoints(applied), reasons)
		ra.URL = ev.URL
		batch.Assessments[i] = models.EventAssessment{
			RiskAssessment: ra,
			SourceIdentity: ev.Identity(),
			RequestID:      ev.RequestID,
			Label:          labels[i],
			Stage:          stage,
			IdentityBoost:  applied,
		}

		findings = append(findings, perEvent[i]...)
		if f, ok := scoring.MLFinding(ev, mlInfo(preds[i]), boost); ok {
			findings = append(findings, f)
		}
	}
	batch.Findings = scoring.Rank(findings)
	if batch.Findings == nil {
		batch.Findings = []models.Finding{}
	}
	batch.Summary = explain.Summarize(batch.Findings, batch.Correlation)

	d.logger.Info("Event batch analyzed",
		"batch_id", batch.ID,
		"events", len(events),
		"findings", len(batch.Findings),
		"identities", len(batch.Correlation.Records),
		"degraded", batch.Degraded,
		"duration", time.Since(start))

	if d.observer != nil {
		d.observer.ObserveEventBatch(ctx, &batch)
	}
	return batch
}

// predict runs the classifier, substituting the fallback for the whole
// batch when the model is unavailable.
func (d *Detector) predict(urls []string) ([]ml.Prediction, []string, bool) {
	var warnings []string

	preds, err := d.adapter.Predict(urls)
	if err != nil {
		if !errors.Is(err, ml.ErrModelUnavailable) {
			d.logger.Error("Classifier failed", "error", err)
		} else {
			d.logger.Warn("Classifier unavailable, using fallback", "error", err, "fallback_probability", d.fallback)
		}
		preds = make([]ml.Prediction, len(urls))
		for i := range preds {
			preds[i] = ml.FallbackPrediction(d.fallback)
		}
		return d.blankEmpty(urls, preds), []string{WarnModelUnavailable}, true
	}

	faults := 0
	for _, p := range preds {
		if p.Fallback {
			faults++
		}
	}
	if faults > 0 {
		warnings = append(warnings, fmt.Sprintf("%d URL(s) scored with the fallback probability after inference faults", faults))
	}
	return d.blankEmpty(urls, preds), warnings, false
}

// blankEmpty gives empty URLs a benign zero-probability verdict.
func (d *Detector) blankEmpty(urls []string, preds []ml.Prediction) []ml.Prediction {
	for i, u := range urls {
		if u == "" {
			preds[i] = ml.Prediction{Label: models.LabelBenign}
		}
	}
	return preds
}

// evaluate runs the rule engine over urls in parallel, keeping order.
func (d *Detector) evaluate(urls []string) []rules.Result {
	out := make([]rules.Result, len(urls))
	var g errgroup.Group
	g.SetLimit(d.workers)
	for i, url := range urls {
		g.Go(func() error {
			out[i] = d.rules.Evaluate(url)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// findings collects signature and rule findings per event in parallel.
func (d *Detector) findings(events []models.Event) [][]models.Finding {
	out := make([][]models.Finding, len(events))
	var g errgroup.Group
	g.SetLimit(d.workers)
	for i, ev := range events {
		g.Go(func() error {
			out[i] = d.rules.Findings(ev)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func assess(url string, pred ml.Prediction, hits []models.RuleID) models.RiskAssessment {
	return assessBoosted(url, pred, hits, 0, nil)
}

func assessBoosted(url string, pred ml.Prediction, hits []models.RuleID, boostPoints float64, reasons []string) models.RiskAssessment {
	if hits == nil {
		hits = []models.RuleID{}
	}
	risk := scoring.Score(pred.MaliciousProbability, hits, boostPoints)
	return models.RiskAssessment{
		URL:            url,
		MLLabel:        pred.Label,
		MLProbability:  pred.MaliciousProbability,
		RulesTriggered: hits,
		RiskScore:      risk.Score,
		RiskLevel:      risk.Level,
		WhySummary: explain.WhySummary(explain.Input{
			MLLabel:       pred.Label,
			MLProbability: pred.MaliciousProbability,
			Rules:         hits,
			RiskScore:     risk.Score,
			RiskLevel:     risk.Level,
			BoostPoints:   boostPoints,
			BoostReasons:  reasons,
		}),
	}
}

func mlInfo(p ml.Prediction) models.MLInfo {
	return models.MLInfo{Label: p.Label, Probability: p.MaliciousProbability}
}
