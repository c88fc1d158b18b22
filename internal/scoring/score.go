package scoring

import (
	"math"
	"sort"

	"github.com/nshruti113/url-risk-dashboard/internal/models"
)

// Score weights.
const (
	ProbabilityWeight = 60.0
	PointsPerRule     = 5.0
	HighSeverityBonus = 15.0

	MultiStageBoost    = 0.3
	RepeatedBoostStep  = 0.1
	MaxRepeatedBoost   = 0.4
	BoostPointsPerUnit = 100.0
)

// Result is a fused risk score and its level.
type Result struct {
	Score int              `json:"risk_score"`
	Level models.RiskLevel `json:"risk_level"`
}

// Score fuses the classifier probability, the rule hits and optional
// identity boost points into a 0-100 score. Duplicate rule ids count once
// and the high-severity bonus applies at most once.
func Score(probability float64, rules []models.RuleID, boostPoints float64) Result {
	if math.IsNaN(probability) {
		probability = 0
	}
	if math.IsNaN(boostPoints) {
		boostPoints = 0
	}

	distinct := make(map[models.RuleID]struct{}, len(rules))
	bonus := 0.0
	for _, r := range rules {
		distinct[r] = struct{}{}
		if r.HighSeverity() {
			bonus = HighSeverityBonus
		}
	}

	raw := probability*ProbabilityWeight + float64(len(distinct))*PointsPerRule + bonus + boostPoints
	score := int(math.RoundToEven(math.Min(100, math.Max(0, raw))))
	return Result{Score: score, Level: models.LevelForScore(score)}
}

// IdentityBoost is 0.3 for a multi-stage identity plus 0.1 per repeated
// non-benign occurrence, the repeated part capped at 0.4.
func IdentityBoost(rec models.CorrelationRecord) float64 {
	boost := 0.0
	if rec.MultiStage {
		boost += MultiStageBoost
	}
	repeats := 0
	for label, n := range rec.Repeated {
		if models.IsBenignLabel(label) {
			continue
		}
		repeats += n
	}
	if repeats > 0 {
		boost += math.Min(MaxRepeatedBoost, RepeatedBoostStep*float64(repeats))
	}
	return boost
}

// BoostReasons names what raised an identity's boost, in the order
// IdentityBoost adds them.
func BoostReasons(rec models.CorrelationRecord) []string {
	var reasons []string
	if rec.MultiStage {
		reasons = append(reasons, "multi-stage activity")
	}
	for label, n := range rec.Repeated {
		if n > 0 && !models.IsBenignLabel(label) {
			reasons = append(reasons, "repeated attempts")
			break
		}
	}
	return reasons
}

// BoostPoints converts an identity boost into score points.
func BoostPoints(boost float64) float64 {
	return boost * BoostPointsPerUnit
}

// Rank orders findings by severity weight then confidence, both descending.
// Equal findings keep their input order. The input is not modified.
func Rank(findings []models.Finding) []models.Finding {
	out := append([]models.Finding(nil), findings...)
	sort.SliceStable(out, func(i, j int) bool {
		wi, wj := out[i].Severity.Weight(), out[j].Severity.Weight()
		if wi != wj {
			return wi > wj
		}
		return out[i].Confidence > out[j].Confidence
	})
	return out
}

// MLFinding builds a medium-severity finding for a non-benign classifier
// verdict. Its confidence is the probability plus boost and is not clamped.
func MLFinding(event models.Event, ml models.MLInfo, boost float64) (models.Finding, bool) {
	if models.IsBenignLabel(ml.Label) {
		return models.Finding{}, false
	}
	return models.NewFinding(ml.Label, models.SeverityMedium, ml.Probability+boost, models.SourceML, event, models.FindingDetails{}), true
}
