package models

import "time"

// Alert is raised for assessments at or above the configured risk level.
type Alert struct {
	ID             string    `json:"id"`
	BatchID        string    `json:"batch_id"`
	Level          RiskLevel `json:"level"`
	Title          string    `json:"title"`
	Message        string    `json:"message"`
	URL            string    `json:"url"`
	AttackType     string    `json:"attack_type,omitempty"`
	SourceIdentity string    `json:"source_identity,omitempty"`
	RiskScore      int       `json:"risk_score"`
	Timestamp      time.Time `json:"timestamp"`
	Acknowledged   bool      `json:"acknowledged"`
}
