package correlation

import (
	"encoding/json"
	"strings"

	"github.com/nshruti113/url-risk-dashboard/internal/models"
	"github.com/nshruti113/url-risk-dashboard/internal/scoring"
)

// StageFor maps a resolved label onto the attack-chain taxonomy.
func StageFor(label string) models.Stage {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "", "normal", "benign":
		return models.StageBenign
	case "directory traversal":
		return models.StageReconnaissance
	case "sql injection", "command injection", "xss":
		return models.StageExploitation
	case "ssrf":
		return models.StageLateralMovement
	default:
		return models.StageSuspicious
	}
}

// ResolveLabel picks an event's label: the first finding's attack type, else
// the classifier label, else Normal.
func ResolveLabel(findings []models.Finding, ml *models.MLInfo) string {
	if len(findings) > 0 {
		return findings[0].AttackType
	}
	if ml != nil && ml.Label != "" {
		return ml.Label
	}
	return models.AttackNormal
}

// RuleHits collects the distinct rule ids cited by findings, in order.
func RuleHits(findings []models.Finding) []models.RuleID {
	var out []models.RuleID
	seen := make(map[models.RuleID]struct{})
	for _, f := range findings {
		for _, h := range f.Details.Hits {
			if _, ok := seen[h]; ok {
				continue
			}
			seen[h] = struct{}{}
			out = append(out, h)
		}
	}
	return out
}

// Report is the per-identity correlation of one batch.
type Report struct {
	Records map[string]models.CorrelationRecord
	order   []string
}

// MarshalJSON encodes the report as identity -> record.
func (r Report) MarshalJSON() ([]byte, error) {
	if r.Records == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(r.Records)
}

// Identities lists correlated identities in first-seen order.
func (r Report) Identities() []string {
	return append([]string(nil), r.order...)
}

// Record returns identity's record.
func (r Report) Record(identity string) (models.CorrelationRecord, bool) {
	rec, ok := r.Records[identity]
	return rec, ok
}

// Boost is the identity boost (0.0-0.7) for identity; zero when unknown to
// the report.
func (r Report) Boost(identity string) float64 {
	rec, ok := r.Records[identity]
	if !ok {
		return 0
	}
	return scoring.IdentityBoost(rec)
}

// TopIdentity is the identity with the highest attack density, ties going
// to the first seen. It is empty when no identity has any attack.
func (r Report) TopIdentity() string {
	top, best := "", 0
	for _, id := range r.order {
		if d := r.Records[id].AttackDensity; d > best {
			top, best = id, d
		}
	}
	return top
}

// Report computes every identity's record from the observations held.
func (s *SessionStore) Report() Report {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rep := Report{
		Records: make(map[string]models.CorrelationRecord, len(s.order)),
		order:   append([]string(nil), s.order...),
	}
	for _, id := range s.order {
		rep.Records[id] = buildRecord(id, s.sessions[id])
	}
	return rep
}

// Correlate runs a fresh session store over observations.
func Correlate(observations []Observation) Report {
	store := NewSessionStore()
	for _, obs := range observations {
		store.Add(obs)
	}
	return store.Report()
}

func buildRecord(identity string, session []Observation) models.CorrelationRecord {
	rec := models.CorrelationRecord{
		SourceIdentity: identity,
		SessionEvents:  len(session),
		Chain:          make([]models.ChainEntry, 0, len(session)),
		Repeated:       make(map[string]int),
	}

	counts := make(map[string]int)
	stages := make(map[models.Stage]struct{})
	for _, obs := range session {
		stage := StageFor(obs.Label)
		if stage != models.StageBenign {
			rec.AttackDensity++
			stages[stage] = struct{}{}
		}
		counts[obs.Label]++

		rec.Chain = append(rec.Chain, models.ChainEntry{
			SequenceIndex: obs.Sequence,
			Timestamp:     obs.Event.Timestamp,
			Label:         obs.Label,
			Stage:         stage,
			RuleHits:      append([]models.RuleID{}, obs.RuleHits...),
			ML:            obs.ML,
		})
	}

	rec.MultiStage = len(stages) >= 2
	for label, n := range counts {
		if n > 1 {
			rec.Repeated[label] = n
		}
	}
	return rec
}
