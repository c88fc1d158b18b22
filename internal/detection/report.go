package detection

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nshruti113/url-risk-dashboard/internal/models"
)

// Batch kinds used in stats and metrics.
const (
	KindURLs   = "urls"
	KindEvents = "events"
)

// Stats summarises the batch for the dashboard store.
func (b *URLBatch) Stats() models.BatchStats {
	stats := newStats(b.ID, KindURLs)
	stats.At = b.AnalyzedAt
	stats.URLs = len(b.Assessments)
	stats.Degraded = b.Degraded
	for _, a := range b.Assessments {
		countAssessment(&stats, a)
	}
	return stats
}

// Stats summarises the batch for the dashboard store.
func (b *EventBatch) Stats() models.BatchStats {
	stats := newStats(b.ID, KindEvents)
	stats.At = b.AnalyzedAt
	stats.URLs = len(b.Assessments)
	stats.Degraded = b.Degraded
	for _, a := range b.Assessments {
		countAssessment(&stats, a.RiskAssessment)
	}
	for id, rec := range b.Correlation.Records {
		stats.Identities[id] = rec.AttackDensity
	}
	return stats
}

func newStats(id, kind string) models.BatchStats {
	return models.BatchStats{
		BatchID:    id,
		Kind:       kind,
		Levels:     make(map[models.RiskLevel]int),
		RuleHits:   make(map[models.RuleID]int),
		Identities: make(map[string]int),
	}
}

func countAssessment(stats *models.BatchStats, a models.RiskAssessment) {
	stats.Levels[a.RiskLevel]++
	for _, r := range a.RulesTriggered {
		stats.RuleHits[r]++
	}
}

// Alerts raises one alert per assessment at or above minLevel.
func (b *URLBatch) Alerts(minLevel models.RiskLevel) []models.Alert {
	var out []models.Alert
	for _, a := range b.Assessments {
		if a.RiskLevel.Rank() < minLevel.Rank() {
			continue
		}
		out = append(out, newAlert(b.ID, a, attackType(a.RulesTriggered), ""))
	}
	return out
}

// Alerts raises one alert per assessment at or above minLevel, naming the
// correlated label and source identity.
func (b *EventBatch) Alerts(minLevel models.RiskLevel) []models.Alert {
	var out []models.Alert
	for _, a := range b.Assessments {
		if a.RiskLevel.Rank() < minLevel.Rank() {
			continue
		}
		label := a.Label
		if models.IsBenignLabel(label) {
			label = attackType(a.RulesTriggered)
		}
		alert := newAlert(b.ID, a.RiskAssessment, label, a.SourceIdentity)
		if a.Stage != models.StageBenign {
			alert.Title = fmt.Sprintf("%s (%s) from %s", alert.Title, a.Stage, a.SourceIdentity)
		}
		out = append(out, alert)
	}
	return out
}

func newAlert(batchID string, a models.RiskAssessment, attack, identity string) models.Alert {
	title := fmt.Sprintf("%s risk URL detected", a.RiskLevel)
	if attack != "" {
		title = fmt.Sprintf("%s: %s", title, attack)
	}
	return models.Alert{
		ID:             uuid.New().String(),
		BatchID:        batchID,
		Level:          a.RiskLevel,
		Title:          title,
		Message:        a.WhySummary,
		URL:            a.URL,
		AttackType:     attack,
		SourceIdentity: identity,
		RiskScore:      a.RiskScore,
		Timestamp:      time.Now().UTC(),
	}
}

// attackType names the most severe rule family among hits.
func attackType(hits []models.RuleID) string {
	best := ""
	weight := -1
	for _, h := range hits {
		if w := h.Severity().Weight(); w > weight {
			best, weight = h.AttackType(), w
		}
	}
	return best
}
