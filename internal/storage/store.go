package storage

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/nshruti113/url-risk-dashboard/internal/models"
)

// DefaultMaxAlerts bounds the alert history when no cap is configured.
const DefaultMaxAlerts = 500

// ErrNoStats is returned when a minute window has no recorded batches.
var ErrNoStats = errors.New("no stats recorded")

// Store is where the server reports alerts and batch counters.
type Store interface {
	PublishAlert(ctx context.Context, alert models.Alert) error
	RecentAlerts(ctx context.Context, limit int) ([]models.Alert, error)
	RecordBatch(ctx context.Context, stats models.BatchStats) error
	Stats(ctx context.Context, at time.Time) (*models.WindowStats, error)
	Close() error
}

var (
	_ Store = (*RedisClient)(nil)
	_ Store = (*MemoryStore)(nil)
)

// MemoryStore is an in-process Store used when Redis is disabled.
type MemoryStore struct {
	mu        sync.Mutex
	maxAlerts int
	alerts    []models.Alert
	windows   map[int64]*memoryWindow
	now       func() time.Time
}

type memoryWindow struct {
	batches, urls, degraded int
	levels                  map[string]int
	rules                   map[string]int
	identities              map[string]int
}

func NewMemoryStore(maxAlerts int) *MemoryStore {
	if maxAlerts <= 0 {
		maxAlerts = DefaultMaxAlerts
	}
	return &MemoryStore{
		maxAlerts: maxAlerts,
		windows:   make(map[int64]*memoryWindow),
		now:       time.Now,
	}
}

func (m *MemoryStore) PublishAlert(_ context.Context, alert models.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = append(m.alerts, alert)
	if over := len(m.alerts) - m.maxAlerts; over > 0 {
		m.alerts = append([]models.Alert(nil), m.alerts[over:]...)
	}
	return nil
}

// RecentAlerts returns up to limit alerts, newest first.
func (m *MemoryStore) RecentAlerts(_ context.Context, limit int) ([]models.Alert, error) {
	if limit <= 0 {
		return []models.Alert{}, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Alert, 0, min(limit, len(m.alerts)))
	for i := len(m.alerts) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.alerts[i])
	}
	return out, nil
}

func (m *MemoryStore) RecordBatch(_ context.Context, stats models.BatchStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	minute := stats.At.Truncate(time.Minute).Unix()
	w, ok := m.windows[minute]
	if !ok {
		w = &memoryWindow{
			levels:     make(map[string]int),
			rules:      make(map[string]int),
			identities: make(map[string]int),
		}
		m.windows[minute] = w
	}
	w.batches++
	w.urls += stats.URLs
	if stats.Degraded {
		w.degraded++
	}
	for level, n := range stats.Levels {
		w.levels[string(level)] += n
	}
	for rule, n := range stats.RuleHits {
		w.rules[string(rule)] += n
	}
	for id, density := range stats.Identities {
		w.identities[id] += density
	}

	cutoff := m.now().Add(-statsTTL).Unix()
	for start := range m.windows {
		if start < cutoff {
			delete(m.windows, start)
		}
	}
	return nil
}

func (m *MemoryStore) Stats(_ context.Context, at time.Time) (*models.WindowStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.windows[at.Truncate(time.Minute).Unix()]
	if !ok {
		return nil, ErrNoStats
	}
	stats := newWindowStats(at)
	stats.Batches = w.batches
	stats.URLsAnalyzed = w.urls
	stats.DegradedBatches = w.degraded
	for level, n := range w.levels {
		stats.Levels[level] = n
	}
	stats.UniqueIdentities = len(w.identities)

	attackers := make(map[string]int)
	for id, density := range w.identities {
		if density > 0 {
			attackers[id] = density
		}
	}
	stats.TopIdentities = topN(attackers, 10)
	stats.TopRules = topN(w.rules, 10)
	return stats, nil
}

func (m *MemoryStore) Close() error { return nil }

func newWindowStats(at time.Time) *models.WindowStats {
	return &models.WindowStats{
		Timestamp:     at.Truncate(time.Minute).UTC(),
		WindowSeconds: 60,
		Levels:        make(map[string]int),
		TopIdentities: []models.Count{},
		TopRules:      []models.Count{},
	}
}

// topN sorts counts descending, keys ascending on ties.
func topN(counts map[string]int, n int) []models.Count {
	out := make([]models.Count, 0, len(counts))
	for k, c := range counts {
		out = append(out, models.Count{Key: k, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	if len(out) > n {
		out = out[:n]
	}
	return withPercentages(out)
}

// withPercentages fills each entry's share of the listed total.
func withPercentages(counts []models.Count) []models.Count {
	total := 0
	for _, c := range counts {
		total += c.Count
	}
	if total == 0 {
		return counts
	}
	for i := range counts {
		counts[i].Percentage = float64(counts[i].Count) / float64(total) * 100
	}
	return counts
}
