package models

// RiskLevel is the three-tier bucket derived from a risk score.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// Score thresholds for LevelForScore.
const (
	HighRiskThreshold   = 70
	MediumRiskThreshold = 40
)

// LevelForScore maps a 0-100 score onto a RiskLevel.
func LevelForScore(score int) RiskLevel {
	switch {
	case score >= HighRiskThreshold:
		return RiskHigh
	case score >= MediumRiskThreshold:
		return RiskMedium
	default:
		return RiskLow
	}
}

// Rank orders levels Low < Medium < High.
func (l RiskLevel) Rank() int {
	switch l {
	case RiskHigh:
		return 2
	case RiskMedium:
		return 1
	default:
		return 0
	}
}

// RiskAssessment is the terminal verdict for one URL.
type RiskAssessment struct {
	URL            string    `json:"url"`
	MLLabel        string    `json:"ml_label"`
	MLProbability  float64   `json:"ml_probability"`
	RulesTriggered []RuleID  `json:"rules_triggered"`
	RiskScore      int       `json:"risk_score"`
	RiskLevel      RiskLevel `json:"risk_level"`
	WhySummary     string    `json:"why_summary"`
}

// EventAssessment is a RiskAssessment enriched with correlation context.
type EventAssessment struct {
	RiskAssessment
	SourceIdentity string  `json:"source_identity"`
	RequestID      string  `json:"request_id,omitempty"`
	Label          string  `json:"label"`
	Stage          Stage   `json:"stage"`
	IdentityBoost  float64 `json:"identity_boost"`
}
