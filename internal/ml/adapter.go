package ml

import (
	"fmt"
	"log/slog"

	"github.com/nshruti113/url-risk-dashboard/internal/features"
	"github.com/nshruti113/url-risk-dashboard/internal/models"
)

// DefaultFallbackProbability is the conservative malicious probability used
// when no classifier output is available.
const DefaultFallbackProbability = 0.05

// Threshold is the probability at or above which a URL is labelled malicious.
const Threshold = 0.5

// Prediction is the classifier verdict for one URL.
type Prediction struct {
	Label                string  `json:"label"`
	MaliciousProbability float64 `json:"malicious_probability"`
	Fallback             bool    `json:"fallback,omitempty"`
}

// FallbackPrediction is the benign stand-in used in degraded mode.
func FallbackPrediction(probability float64) Prediction {
	return Prediction{Label: models.LabelBenign, MaliciousProbability: probability, Fallback: true}
}

// Adapter turns URLs into predictions using the provider's model.
type Adapter struct {
	provider Provider
	fallback float64
	logger   *slog.Logger
}

func NewAdapter(provider Provider, fallbackProbability float64, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{provider: provider, fallback: fallbackProbability, logger: logger}
}

// Provider returns the model provider backing the adapter.
func (a *Adapter) Provider() Provider { return a.provider }

// Predict returns one prediction per url, in order. It returns an error
// wrapping ErrModelUnavailable when the model cannot be loaded. A fault
// while scoring one URL only replaces that URL's prediction with the
// fallback.
func (a *Adapter) Predict(urls []string) ([]Prediction, error) {
	m, err := a.provider.Model()
	if err != nil {
		return nil, err
	}

	numeric := features.ExtractBatch(urls)
	out := make([]Prediction, len(urls))
	for i, url := range urls {
		p, err := a.predictOne(m, url, numeric[i])
		if err != nil {
			a.logger.Warn("Inference failed", "url", url, "error", err)
			out[i] = FallbackPrediction(a.fallback)
			continue
		}
		out[i] = p
	}
	return out, nil
}

func (a *Adapter) predictOne(m *Model, url string, numeric features.Vector) (p Prediction, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("inference panic: %v", r)
		}
	}()
	prob := MaliciousProbability(m.Classifier, m.Row(url, numeric))
	return NewPrediction(prob), nil
}

// NewPrediction labels prob against Threshold.
func NewPrediction(prob float64) Prediction {
	label := models.LabelBenign
	if prob >= Threshold {
		label = models.LabelMalicious
	}
	return Prediction{Label: label, MaliciousProbability: prob}
}

// MaliciousProbability picks the richest output clf offers: probabilities,
// then margins, then the hard label.
func MaliciousProbability(clf Classifier, row Row) float64 {
	classes := clf.Classes()
	idx := classIndex(classes, models.LabelMalicious)

	switch c := clf.(type) {
	case ProbabilityModel:
		probs := c.PredictProba(row)
		if len(probs) == 0 {
			return 0
		}
		if idx >= 0 && idx < len(probs) {
			return probs[idx]
		}
		return probs[len(probs)-1]
	case MarginModel:
		margins := c.DecisionFunction(row)
		switch {
		case len(margins) == 0:
			return 0
		case len(margins) == 1:
			// A binary margin scores classes[1].
			if idx == 0 {
				return sigmoid(-margins[0])
			}
			return sigmoid(margins[0])
		case idx >= 0 && idx < len(margins):
			return sigmoid(margins[idx])
		default:
			return sigmoid(margins[argmax(margins)])
		}
	default:
		if clf.Predict(row) == models.LabelMalicious {
			return 1
		}
		return 0
	}
}
