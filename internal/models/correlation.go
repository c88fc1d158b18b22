package models

import "time"

// Stage is a coarse attack-chain phase.
type Stage string

const (
	StageBenign          Stage = "benign"
	StageReconnaissance  Stage = "reconnaissance"
	StageExploitation    Stage = "exploitation"
	StageLateralMovement Stage = "lateral movement"
	StageSuspicious      Stage = "suspicious"
)

// MLInfo is the classifier output attached to a chain entry.
type MLInfo struct {
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
}

// ChainEntry is one event in an identity's ordered attack chain.
type ChainEntry struct {
	SequenceIndex int       `json:"sequence_index"`
	Timestamp     time.Time `json:"timestamp"`
	Label         string    `json:"label"`
	Stage         Stage     `json:"stage"`
	RuleHits      []RuleID  `json:"rule_hits"`
	ML            MLInfo    `json:"ml"`
}

// CorrelationRecord aggregates one source identity within a batch.
type CorrelationRecord struct {
	SourceIdentity string         `json:"source_identity"`
	SessionEvents  int            `json:"session_events"`
	AttackDensity  int            `json:"attack_density"`
	Chain          []ChainEntry   `json:"chain"`
	MultiStage     bool           `json:"multi_stage"`
	Repeated       map[string]int `json:"repeated"`
}
