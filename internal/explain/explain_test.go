package explain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nshruti113/url-risk-dashboard/internal/correlation"
	"github.com/nshruti113/url-risk-dashboard/internal/models"
)

func TestWhySummary(t *testing.T) {
	tests := []struct {
		name string
		in   Input
		want string
	}{
		{
			name: "no rules",
			in:   Input{MLLabel: "benign", MLProbability: 0.05, RiskScore: 3, RiskLevel: models.RiskLow},
			want: "The ML model predicts this URL as benign with 95% confidence. " +
				"No explicit attack signatures were detected. " +
				"This results in a Low risk score of 3, with little indication of abuse.",
		},
		{
			name: "single rule",
			in:   Input{MLLabel: "malicious", MLProbability: 0.72, Rules: []models.RuleID{models.RuleIPBasedURL}, RiskScore: 48, RiskLevel: models.RiskMedium},
			want: "The ML model predicts this URL as malicious with 72% confidence. " +
				"It also matches known direct IP-based access. " +
				"This results in a Medium risk score of 48, indicating a strong likelihood of abuse.",
		},
		{
			name: "two rules",
			in:   Input{MLLabel: "benign", MLProbability: 0.05, Rules: []models.RuleID{models.RuleSQLInjection, models.RuleSuspiciousKeyword}, RiskScore: 28, RiskLevel: models.RiskLow},
			want: "The ML model predicts this URL as benign with 95% confidence. " +
				"It also matches known SQL injection style payloads and suspicious keywords. " +
				"This results in a Low risk score of 28, with little indication of abuse.",
		},
		{
			name: "more than three rules",
			in: Input{
				MLLabel:       "malicious",
				MLProbability: 0.99,
				Rules:         []models.RuleID{models.RuleSQLInjection, models.RuleXSS, models.RuleSuspiciousKeyword, models.RuleIPBasedURL},
				RiskScore:     100,
				RiskLevel:     models.RiskHigh,
			},
			want: "The ML model predicts this URL as malicious with 99% confidence. " +
				"It also matches known SQL injection style payloads, cross-site scripting indicators and suspicious keywords. " +
				"This results in a High risk score of 100, indicating a strong likelihood of abuse.",
		},
		{
			name: "identity boost",
			in: Input{
				MLLabel:       "benign",
				MLProbability: 0.05,
				Rules:         []models.RuleID{models.RuleSQLInjection},
				RiskScore:     73,
				RiskLevel:     models.RiskHigh,
				BoostPoints:   50,
				BoostReasons:  []string{"multi-stage activity", "repeated attempts"},
			},
			want: "The ML model predicts this URL as benign with 95% confidence. " +
				"It also matches known SQL injection style payloads. " +
				"The same source adds 50 points for multi-stage activity and repeated attempts. " +
				"This results in a High risk score of 73, indicating a strong likelihood of abuse.",
		},
		{
			name: "boost without reasons",
			in:   Input{MLLabel: "benign", MLProbability: 0.05, RiskScore: 23, BoostPoints: 20},
			want: "The ML model predicts this URL as benign with 95% confidence. " +
				"No explicit attack signatures were detected. " +
				"The same source adds 20 points for correlated activity. " +
				"This results in a Low risk score of 23, with little indication of abuse.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WhySummary(tt.in))
		})
	}
}

func TestWhySummaryUnknownRuleIsTitleCased(t *testing.T) {
	got := WhySummary(Input{MLLabel: "benign", Rules: []models.RuleID{"OPEN_REDIRECT"}, RiskScore: 5})
	assert.Contains(t, got, "It also matches known Open Redirect.")
	assert.True(t, strings.HasSuffix(got, "with little indication of abuse."))
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, Summary{Text: "No attacks detected in this upload."}, Summarize(nil, correlation.Report{}))

	ev := models.NewEvent("/etc").WithIdentity("10.1.1.1")
	report := correlation.Correlate([]correlation.Observation{
		{Event: ev, Label: models.AttackDirectoryTraversal},
	})
	findings := []models.Finding{
		models.NewFinding(models.AttackDirectoryTraversal, models.SeverityHigh, 0.9, models.SourceSignature, ev, models.FindingDetails{}),
		models.NewFinding(models.AttackSuspicious, models.SeverityLow, 0.6, models.SourceRule, ev, models.FindingDetails{}),
	}

	got := Summarize(findings, report)
	assert.Equal(t, "2 potential issues detected. Most activity observed from 10.1.1.1.", got.Text)
	assert.Equal(t, "10.1.1.1", got.TopIdentity)

	got = Summarize(findings[:1], correlation.Report{})
	assert.Equal(t, "1 potential issue detected.", got.Text)
}
