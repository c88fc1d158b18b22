package models

import "time"

// BatchStats are the per-batch counters reported to the dashboard store.
type BatchStats struct {
	BatchID    string
	Kind       string
	At         time.Time
	URLs       int
	Degraded   bool
	Levels     map[RiskLevel]int
	RuleHits   map[RuleID]int
	Identities map[string]int // identity -> attack density
}

// Count is one entry of a top-N list.
type Count struct {
	Key        string  `json:"key"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// WindowStats aggregates every batch recorded within one minute.
type WindowStats struct {
	Timestamp        time.Time      `json:"timestamp"`
	WindowSeconds    int            `json:"window_seconds"`
	Batches          int            `json:"batches"`
	URLsAnalyzed     int            `json:"urls_analyzed"`
	DegradedBatches  int            `json:"degraded_batches"`
	Levels           map[string]int `json:"levels"`
	UniqueIdentities int            `json:"unique_identities"`
	TopIdentities    []Count        `json:"top_identities"`
	TopRules         []Count        `json:"top_rules"`
}
