// Package explain renders advisory, human-readable text for analysis
// results. Nothing downstream parses this text.
package explain

import (
	"fmt"
	"math"
	"strings"

	"github.com/nshruti113/url-risk-dashboard/internal/correlation"
	"github.com/nshruti113/url-risk-dashboard/internal/models"
)

// maxNamedRules caps how many rules the summary names.
const maxNamedRules = 3

// Input is everything WhySummary needs for one URL.
type Input struct {
	MLLabel       string
	MLProbability float64
	Rules         []models.RuleID
	RiskScore     int
	RiskLevel     models.RiskLevel
	// BoostPoints are the points added for the source identity's behaviour
	// across the batch; BoostReasons names them.
	BoostPoints  float64
	BoostReasons []string
}

// WhySummary explains one verdict: the classifier view, the matched rules,
// any correlation boost and the resulting score.
func WhySummary(in Input) string {
	label := in.MLLabel
	if label == "" {
		label = models.LabelBenign
	}

	sentences := []string{
		fmt.Sprintf("The ML model predicts this URL as %s with %d%% confidence.", label, confidencePercent(label, in.MLProbability)),
		rulesSentence(in.Rules),
	}
	if s := boostSentence(in.BoostPoints, in.BoostReasons); s != "" {
		sentences = append(sentences, s)
	}
	sentences = append(sentences, closingSentence(in.RiskScore, in.RiskLevel))
	return strings.Join(sentences, " ")
}

func boostSentence(points float64, reasons []string) string {
	n := int(math.RoundToEven(points))
	if n <= 0 {
		return ""
	}
	why := "correlated activity"
	if len(reasons) > 0 {
		why = strings.Join(reasons, " and ")
	}
	return fmt.Sprintf("The same source adds %d points for %s.", n, why)
}

// confidencePercent is the probability of the predicted label.
func confidencePercent(label string, maliciousProbability float64) int {
	p := maliciousProbability
	if models.IsBenignLabel(label) {
		p = 1 - p
	}
	p = math.Max(0, math.Min(1, p))
	return int(math.RoundToEven(p * 100))
}

func rulesSentence(rules []models.RuleID) string {
	if len(rules) == 0 {
		return "No explicit attack signatures were detected."
	}
	if len(rules) > maxNamedRules {
		rules = rules[:maxNamedRules]
	}
	names := make([]string, len(rules))
	for i, r := range rules {
		names[i] = r.Phrase()
	}
	if len(names) == 1 {
		return fmt.Sprintf("It also matches known %s.", names[0])
	}
	return fmt.Sprintf("It also matches known %s and %s.", strings.Join(names[:len(names)-1], ", "), names[len(names)-1])
}

func closingSentence(score int, level models.RiskLevel) string {
	if level == "" {
		level = models.LevelForScore(score)
	}
	if level == models.RiskLow {
		return fmt.Sprintf("This results in a %s risk score of %d, with little indication of abuse.", level, score)
	}
	return fmt.Sprintf("This results in a %s risk score of %d, indicating a strong likelihood of abuse.", level, score)
}

// Summary is the one-line overview of an event batch.
type Summary struct {
	Text        string `json:"summary"`
	TopIdentity string `json:"top_identity"`
}

// Summarize describes a batch from its findings and correlation report.
func Summarize(findings []models.Finding, report correlation.Report) Summary {
	if len(findings) == 0 {
		return Summary{Text: "No attacks detected in this upload."}
	}

	noun := "issues"
	if len(findings) == 1 {
		noun = "issue"
	}
	s := Summary{
		Text:        fmt.Sprintf("%d potential %s detected.", len(findings), noun),
		TopIdentity: report.TopIdentity(),
	}
	if s.TopIdentity != "" {
		s.Text += fmt.Sprintf(" Most activity observed from %s.", s.TopIdentity)
	}
	return s
}
