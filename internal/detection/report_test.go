package detection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nshruti113/url-risk-dashboard/internal/models"
)

func TestURLBatchStatsAndAlerts(t *testing.T) {
	d := newDetector(t, keywordModel(t), nil)
	batch := d.AnalyzeURLs(context.Background(), []string{
		"http://10.0.0.1/admin?q=<script>",
		"/home",
	})

	stats := batch.Stats()
	assert.Equal(t, KindURLs, stats.Kind)
	assert.Equal(t, batch.ID, stats.BatchID)
	assert.Equal(t, 2, stats.URLs)
	assert.False(t, stats.Degraded)
	assert.Equal(t, 1, stats.RuleHits[models.RuleXSS])
	assert.Equal(t, 1, stats.RuleHits[models.RuleIPBasedURL])
	assert.Equal(t, 1, stats.Levels[models.RiskHigh])
	assert.Equal(t, 1, stats.Levels[models.RiskLow])

	alerts := batch.Alerts(models.RiskHigh)
	require.Len(t, alerts, 1)
	a := alerts[0]
	assert.Equal(t, batch.ID, a.BatchID)
	assert.Equal(t, models.RiskHigh, a.Level)
	assert.Equal(t, "http://10.0.0.1/admin?q=<script>", a.URL)
	assert.Equal(t, models.AttackXSS, a.AttackType)
	assert.Equal(t, batch.Assessments[0].WhySummary, a.Message)
	assert.NotEmpty(t, a.ID)

	assert.Len(t, batch.Alerts(models.RiskLow), 2)
}

func TestEventBatchStatsAndAlerts(t *testing.T) {
	d := newDetector(t, unavailable(), nil)
	batch := d.AnalyzeEvents(context.Background(), []models.Event{
		{URL: "/download?file=../../etc/passwd", SourceIdentity: "10.0.0.5"},
		{URL: "/search?q=<script>alert(1)</script>", SourceIdentity: "10.0.0.5"},
		{URL: "/home", SourceIdentity: "10.0.0.9"},
	})

	stats := batch.Stats()
	assert.Equal(t, KindEvents, stats.Kind)
	assert.True(t, stats.Degraded)
	assert.Equal(t, map[string]int{"10.0.0.5": 2, "10.0.0.9": 0}, stats.Identities)

	alerts := batch.Alerts(models.RiskMedium)
	require.Len(t, alerts, 1)
	assert.Equal(t, models.AttackXSS, alerts[0].AttackType)
	assert.Equal(t, "10.0.0.5", alerts[0].SourceIdentity)
	assert.Equal(t, "Medium risk URL detected: XSS (exploitation) from 10.0.0.5", alerts[0].Title)
}

func TestAttackType(t *testing.T) {
	assert.Equal(t, "", attackType(nil))
	assert.Equal(t, models.AttackSQLInjection, attackType([]models.RuleID{models.RuleSuspiciousKeyword, models.RuleSQLInjection, models.RuleXSS}))
	assert.Equal(t, models.AttackSuspicious, attackType([]models.RuleID{models.RuleAbusedTLD}))
}
