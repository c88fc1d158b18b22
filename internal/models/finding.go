package models

import (
	"strings"

	"github.com/google/uuid"
)

// Severity buckets a finding.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Weight is the ranking weight: critical=3, high=2, medium=1, low=0.
func (s Severity) Weight() int {
	switch Severity(strings.ToLower(string(s))) {
	case SeverityCritical:
		return 3
	case SeverityHigh:
		return 2
	case SeverityMedium:
		return 1
	default:
		return 0
	}
}

// FindingSource records which detector produced a finding.
type FindingSource string

const (
	SourceRule      FindingSource = "rule"
	SourceSignature FindingSource = "signature"
	SourceML        FindingSource = "ml"
)

// FindingDetails carries the evidence behind a finding.
type FindingDetails struct {
	Rule         RuleID   `json:"rule,omitempty"`
	Explanations []string `json:"explanations,omitempty"`
	Hits         []RuleID `json:"hits,omitempty"`
}

// Finding is a detection outcome attached to an event. Confidence is not
// clamped above 1.0; ML findings may carry a correlation boost on top.
type Finding struct {
	ID         string         `json:"id"`
	AttackType string         `json:"attack_type"`
	Severity   Severity       `json:"severity"`
	Confidence float64        `json:"confidence"`
	Source     FindingSource  `json:"source"`
	Event      Event          `json:"event"`
	Details    FindingDetails `json:"details"`
}

// NewFinding builds a finding with a fresh id.
func NewFinding(attackType string, severity Severity, confidence float64, source FindingSource, event Event, details FindingDetails) Finding {
	return Finding{
		ID:         uuid.New().String(),
		AttackType: attackType,
		Severity:   severity,
		Confidence: confidence,
		Source:     source,
		Event:      event,
		Details:    details,
	}
}
