package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/nshruti113/url-risk-dashboard/internal/logging"
)

// Campaign names a staged attack the simulator can replay.
type Campaign string

const (
	CampaignSQLInjection Campaign = "SQLI_CAMPAIGN"
	CampaignXSS          Campaign = "XSS_CAMPAIGN"
	CampaignTakeover     Campaign = "SERVER_TAKEOVER"
	CampaignPhishing     Campaign = "PHISHING_LINKS"
)

var campaignSequence = []Campaign{CampaignSQLInjection, CampaignXSS, CampaignTakeover, CampaignPhishing}

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 14_6 like Mac OS X)",
}

var normalPaths = []string{
	"/", "/products", "/products/42", "/search?q=running+shoes", "/cart",
	"/checkout", "/help", "/blog/2024/spring-sale", "/account/orders", "/static/app.js",
}

// Row is one access-log entry in the shape /api/analyze/events accepts.
type Row map[string]any

type Simulator struct {
	serverURL string
	client    *http.Client
	rng       *rand.Rand
	logger    *slog.Logger
	now       func() time.Time
}

func NewSimulator(serverURL string, seed uint64, logger *slog.Logger) *Simulator {
	return &Simulator{
		serverURL: serverURL,
		client:    &http.Client{Timeout: 10 * time.Second},
		rng:       rand.New(rand.NewPCG(seed, seed^0x5eed)),
		logger:    logger,
		now:       time.Now,
	}
}

func (s *Simulator) row(ip, method, path string, status int) Row {
	return Row{
		"timestamp":   s.now().UTC().Format(time.RFC3339),
		"ip":          ip,
		"method":      method,
		"url":         path,
		"status_code": status,
		"user_agent":  userAgents[s.rng.IntN(len(userAgents))],
		"request_id":  uuid.New().String(),
	}
}

func (s *Simulator) randomIP() string {
	return fmt.Sprintf("%d.%d.%d.%d", s.rng.IntN(223)+1, s.rng.IntN(256), s.rng.IntN(256), s.rng.IntN(254)+1)
}

// GenerateNormalTraffic creates ordinary browsing from random visitors.
func (s *Simulator) GenerateNormalTraffic(n int) []Row {
	rows := make([]Row, 0, n)
	for range n {
		rows = append(rows, s.row(s.randomIP(), http.MethodGet, normalPaths[s.rng.IntN(len(normalPaths))], http.StatusOK))
	}
	return rows
}

// GenerateCampaign replays one attacker walking through reconnaissance,
// exploitation and, for some campaigns, follow-up requests.
func (s *Simulator) GenerateCampaign(c Campaign, attacker string) []Row {
	var rows []Row
	add := func(method, path string, status int) {
		rows = append(rows, s.row(attacker, method, path, status))
	}

	switch c {
	case CampaignSQLInjection:
		add(http.MethodGet, "/download?file=../../etc/passwd", http.StatusForbidden)
		add(http.MethodGet, "/products?id=1' OR 1=1--", http.StatusInternalServerError)
		add(http.MethodGet, "/products?id=1 UNION SELECT username, password FROM users", http.StatusOK)
	case CampaignXSS:
		add(http.MethodGet, "/admin", http.StatusForbidden)
		add(http.MethodGet, "/search?q="+url.QueryEscape("<script>alert(document.cookie)</script>"), http.StatusOK)
		add(http.MethodPost, "/comments?body="+url.QueryEscape(`<img src=x onerror="fetch('//evil.tk')">`), http.StatusCreated)
	case CampaignTakeover:
		add(http.MethodGet, "/static/../../../../etc/shadow", http.StatusNotFound)
		add(http.MethodGet, "/fetch?url=http://169.254.169.254/latest/meta-data/", http.StatusOK)
		add(http.MethodGet, "/ping?host=127.0.0.1;cat%20/etc/passwd", http.StatusOK)
	case CampaignPhishing:
		add(http.MethodGet, "http://secure-login.paypa1-verify.tk/account/verify?session=expired", http.StatusOK)
		add(http.MethodGet, "http://203.0.113.50/login.php?redirect=bank", http.StatusOK)
	}
	return rows
}

// Batch mixes normal traffic with one campaign, keeping the attacker's
// requests in order.
func (s *Simulator) Batch(normal int, c Campaign, attacker string) []Row {
	rows := s.GenerateNormalTraffic(normal)
	for _, r := range s.GenerateCampaign(c, attacker) {
		i := s.rng.IntN(len(rows) + 1)
		if last := lastIndexOf(rows, attacker); i <= last {
			i = last + 1
		}
		rows = slices.Insert(rows, i, r)
	}
	return rows
}

func lastIndexOf(rows []Row, ip string) int {
	for i := len(rows) - 1; i >= 0; i-- {
		if rows[i]["ip"] == ip {
			return i
		}
	}
	return -1
}

// SendBatch posts rows to the server.
func (s *Simulator) SendBatch(ctx context.Context, rows []Row) error {
	data, err := json.Marshal(map[string]any{"events": rows})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.serverURL+"/api/analyze/events", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %s", resp.Status)
	}
	return nil
}

// Run sends one batch per interval, cycling through the campaigns.
func (s *Simulator) Run(ctx context.Context, interval time.Duration, normal int) {
	s.logger.Info("Starting traffic simulator", "server", s.serverURL, "interval", interval, "normal_per_batch", normal)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for i := 0; ; i++ {
		campaign := campaignSequence[i%len(campaignSequence)]
		attacker := s.randomIP()
		rows := s.Batch(normal, campaign, attacker)
		if err := s.SendBatch(ctx, rows); err != nil {
			s.logger.Warn("Failed to send batch", "error", err)
		} else {
			s.logger.Info("Batch sent", "campaign", campaign, "attacker", attacker, "rows", len(rows))
		}

		select {
		case <-ctx.Done():
			s.logger.Info("Simulator stopped")
			return
		case <-ticker.C:
		}
	}
}

func main() {
	serverURL := flag.String("server", "http://localhost:8888", "dashboard server base URL")
	interval := flag.Duration("interval", 5*time.Second, "time between batches")
	normal := flag.Int("normal", 50, "benign requests per batch")
	seed := flag.Uint64("seed", uint64(time.Now().UnixNano()), "random seed")
	flag.Parse()

	logger := logging.Init("urlrisk-simulator")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	NewSimulator(*serverURL, *seed, logger).Run(ctx, *interval, *normal)
}
