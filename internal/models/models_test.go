package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRiskAssessmentRoundTrip(t *testing.T) {
	in := RiskAssessment{
		URL:            "/login?id=1' OR 1=1--",
		MLLabel:        LabelBenign,
		MLProbability:  0.05,
		RulesTriggered: []RuleID{RuleSQLInjection, RuleSuspiciousKeyword, RuleAbusedTLD},
		RiskScore:      33,
		RiskLevel:      RiskLow,
		WhySummary:     "summary",
	}

	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out RiskAssessment
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)
	assert.Contains(t, string(data), `"rules_triggered":["SQL_INJECTION_PATTERN","SUSPICIOUS_KEYWORD","ABUSED_TLD"]`)
}

func TestLevelForScore(t *testing.T) {
	tests := []struct {
		score int
		want  RiskLevel
	}{
		{0, RiskLow},
		{39, RiskLow},
		{40, RiskMedium},
		{69, RiskMedium},
		{70, RiskHigh},
		{100, RiskHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LevelForScore(tt.score), "score %d", tt.score)
	}

	prev := LevelForScore(0).Rank()
	for s := 1; s <= 100; s++ {
		cur := LevelForScore(s).Rank()
		assert.GreaterOrEqual(t, cur, prev, "level must not drop at %d", s)
		prev = cur
	}
}

func TestSeverityWeight(t *testing.T) {
	assert.Equal(t, 3, SeverityCritical.Weight())
	assert.Equal(t, 2, SeverityHigh.Weight())
	assert.Equal(t, 1, SeverityMedium.Weight())
	assert.Equal(t, 0, SeverityLow.Weight())
	assert.Equal(t, 2, Severity("HIGH").Weight())
	assert.Equal(t, 0, Severity("bogus").Weight())
}

func TestNormalizeReturnsCopy(t *testing.T) {
	code := 200
	in := Event{
		URL:        " /search?q=%3Cscript%3E ",
		Method:     " post ",
		StatusCode: &code,
		Metadata:   map[string]string{"host": "web-1"},
	}

	out := in.Normalize()

	assert.Equal(t, "/search?q=<script>", out.Metadata[MetaDecodedURL])
	assert.Equal(t, "/search?q=<script>", out.Metadata[MetaCleanURL])
	assert.Equal(t, "/search?q=%3Cscript%3E", out.URL)
	assert.Equal(t, "POST", out.Method)
	assert.Equal(t, UnknownIdentity, out.SourceIdentity)
	assert.Equal(t, "web-1", out.Metadata["host"])

	// the input is left untouched
	assert.Len(t, in.Metadata, 1)
	assert.Equal(t, " post ", in.Method)
	*out.StatusCode = 500
	assert.Equal(t, 200, *in.StatusCode)
}

func TestNormalizeRootsRelativePaths(t *testing.T) {
	out := NewEvent("admin/panel").Normalize()
	assert.Equal(t, "/admin/panel", out.AnalysisURL())

	abs := NewEvent("https://example.com/a").Normalize()
	assert.Equal(t, "https://example.com/a", abs.AnalysisURL())

	bad := NewEvent("/x?%zz").Normalize()
	assert.Equal(t, "/x?%zz", bad.Metadata[MetaDecodedURL])
}

func TestRulePhrase(t *testing.T) {
	assert.Equal(t, "SQL injection style payloads", RuleSQLInjection.Phrase())
	assert.Equal(t, "Custom Rule", RuleID("CUSTOM_RULE").Phrase())
	assert.True(t, RuleXSS.HighSeverity())
	assert.False(t, RuleAbusedTLD.HighSeverity())
}
