package rules

import (
	"regexp"
	"strings"

	"github.com/nshruti113/url-risk-dashboard/internal/models"
)

type signature struct {
	attackType string
	re         *regexp.Regexp
}

// signatures are tried in order; the first match names the attack family.
var signatures = []signature{
	{models.AttackSQLInjection, regexp.MustCompile(`(?i)(union|select|sleep|drop|--|'\s*or)`)},
	{models.AttackXSS, regexp.MustCompile(`(?i)(<script|javascript:|onerror=|onload=)`)},
	{models.AttackDirectoryTraversal, regexp.MustCompile(`(?i)(\.\./|%2e%2e%2f)`)},
	{models.AttackCommandInjection, regexp.MustCompile(`(?i)(;|&&|\|).*(ls|cat|pwd|whoami)`)},
	{models.AttackSSRF, regexp.MustCompile(`(?i)(169\.254\.169\.254|metadata)`)},
}

// Classify names the attack family a URL's payload belongs to, or
// models.AttackNormal when no family signature matches.
func Classify(url string) string {
	if url == "" {
		return models.AttackNormal
	}
	lower := strings.ToLower(url)
	for _, s := range signatures {
		if s.re.MatchString(lower) {
			return s.attackType
		}
	}
	return models.AttackNormal
}

// Findings turns an event's signature classification and rule hits into
// findings. The family finding, when present, comes first.
func (e *Engine) Findings(event models.Event) []models.Finding {
	url := event.AnalysisURL()
	res := e.Evaluate(url)

	var out []models.Finding
	if family := Classify(url); family != models.AttackNormal {
		out = append(out, models.NewFinding(family, models.SeverityHigh, 0.9, models.SourceSignature, event,
			models.FindingDetails{Hits: res.Hits, Explanations: res.Explanations}))
	}
	if len(res.Hits) == 0 {
		return out
	}

	confidence := min(0.6+0.05*float64(len(res.Hits)-1), 0.95)
	for _, hit := range res.Hits {
		out = append(out, models.NewFinding(hit.AttackType(), hit.Severity(), confidence, models.SourceRule, event,
			models.FindingDetails{Rule: hit, Hits: res.Hits, Explanations: res.Explanations}))
	}
	return out
}
