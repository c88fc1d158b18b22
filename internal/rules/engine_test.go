package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nshruti113/url-risk-dashboard/internal/models"
)

func newTestEngine(t *testing.T, cacheSize int) *Engine {
	t.Helper()
	e, err := NewEngine(cacheSize, nil)
	require.NoError(t, err)
	return e
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want []models.RuleID
	}{
		{
			name: "sqli_with_login_keyword",
			url:  "/login?id=1' OR 1=1--",
			want: []models.RuleID{models.RuleSQLInjection, models.RuleSuspiciousKeyword},
		},
		{
			name: "benign_absolute",
			url:  "https://www.google.com",
			want: nil,
		},
		{
			name: "abused_tld_with_keywords",
			url:  "http://evil.tk/admin/panel?cmd=cat%20/etc/passwd",
			want: []models.RuleID{models.RuleSuspiciousKeyword, models.RuleAbusedTLD},
		},
		{
			name: "xss_encoded",
			url:  "/search?q=%3Cscript%3Ealert(1)",
			want: []models.RuleID{models.RuleXSS},
		},
		{
			name: "union_select",
			url:  "/items?id=1 UNION   SELECT password FROM users",
			want: []models.RuleID{models.RuleSQLInjection},
		},
		{
			name: "ip_host_with_port",
			url:  "http://203.0.113.7:8080/index.html",
			want: []models.RuleID{models.RuleIPBasedURL},
		},
		{
			name: "medium_risk_tld",
			url:  "http://shop.example.xyz/",
			want: []models.RuleID{models.RuleAbusedTLD},
		},
		{
			name: "everything",
			url:  "http://10.0.0.1/wp-login.php?q=<script>&id=%27--",
			want: []models.RuleID{models.RuleSQLInjection, models.RuleXSS, models.RuleSuspiciousKeyword, models.RuleIPBasedURL},
		},
		{
			name: "empty",
			url:  "",
			want: nil,
		},
	}

	e := newTestEngine(t, 0)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := e.Evaluate(tt.url)
			assert.Equal(t, tt.want, res.Hits)
			assert.Len(t, res.Explanations, len(res.Hits))
		})
	}
}

func TestEvaluateAbusedTLDReportedOnce(t *testing.T) {
	res := newTestEngine(t, 0).Evaluate("http://evil.tk/admin/panel?cmd=cat%20/etc/passwd")

	count := 0
	for _, h := range res.Hits {
		if h == models.RuleAbusedTLD {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.Contains(t, res.Explanations, "High-risk TLD detected: .tk")
	assert.False(t, res.Has(models.RuleIPBasedURL))
}

func TestEvaluateIsPure(t *testing.T) {
	for _, size := range []int{0, 16} {
		e := newTestEngine(t, size)
		url := "http://10.0.0.1/wp-login.php?q=<script>"

		first := e.Evaluate(url)
		// mutating a returned result must not leak into later calls
		first.Hits[0] = "MUTATED"
		second := e.Evaluate(url)
		third := e.Evaluate(url)

		assert.Equal(t, second, third)
		assert.Equal(t, models.RuleXSS, second.Hits[0])
	}
}

func TestClassify(t *testing.T) {
	tests := map[string]string{
		"/login?id=1' OR '1'='1":               models.AttackSQLInjection,
		"/search?q=<script>alert(1)</script>":  models.AttackXSS,
		"/download?file=../../etc/passwd":      models.AttackDirectoryTraversal,
		"/ping?host=8.8.8.8;cat /etc/shadow":   models.AttackCommandInjection,
		"/fetch?url=http://169.254.169.254/":   models.AttackSSRF,
		"/home":                                models.AttackNormal,
		"":                                     models.AttackNormal,
	}
	for url, want := range tests {
		assert.Equal(t, want, Classify(url), url)
	}
}

func TestFindings(t *testing.T) {
	e := newTestEngine(t, 0)
	ev := models.NewEvent("/login?id=1' OR 1=1--").Normalize()

	findings := e.Findings(ev)
	require.Len(t, findings, 3)

	assert.Equal(t, models.AttackSQLInjection, findings[0].AttackType)
	assert.Equal(t, models.SourceSignature, findings[0].Source)
	assert.Equal(t, models.SeverityHigh, findings[0].Severity)

	assert.Equal(t, models.RuleSQLInjection, findings[1].Details.Rule)
	assert.Equal(t, models.SeverityHigh, findings[1].Severity)
	assert.InDelta(t, 0.65, findings[1].Confidence, 1e-12)
	assert.Equal(t, models.RuleSuspiciousKeyword, findings[2].Details.Rule)
	assert.Equal(t, models.AttackSuspicious, findings[2].AttackType)
	assert.NotEqual(t, findings[1].ID, findings[2].ID)

	assert.Empty(t, e.Findings(models.NewEvent("/home").Normalize()))
}
