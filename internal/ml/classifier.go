package ml

import (
	"math"

	"github.com/nshruti113/url-risk-dashboard/internal/features"
)

// Row is one combined feature row: the numeric columns followed by the
// lexical n-gram columns, offset by features.NumColumns.
type Row struct {
	Numeric features.Vector
	Lexical features.SparseVector
}

// Classifier is the minimal capability: a hard label per row.
type Classifier interface {
	Classes() []string
	Predict(row Row) string
}

// ProbabilityModel exposes per-class probabilities in Classes order.
type ProbabilityModel interface {
	Classifier
	PredictProba(row Row) []float64
}

// MarginModel exposes decision margins. A binary model returns a single
// margin for Classes()[1].
type MarginModel interface {
	Classifier
	DecisionFunction(row Row) []float64
}

// linear is the weight layout shared by the linear classifiers.
type linear struct {
	classes   []string
	coef      [][]float64
	intercept []float64
}

func (l *linear) Classes() []string { return l.classes }

// NumFeatures is the row width the weights were trained on.
func (l *linear) NumFeatures() int {
	if len(l.coef) == 0 {
		return 0
	}
	return len(l.coef[0])
}

func (l *linear) margins(row Row) []float64 {
	out := make([]float64, len(l.coef))
	for k, w := range l.coef {
		d := l.intercept[k]
		for j, x := range row.Numeric {
			d += w[j] * x
		}
		for i, idx := range row.Lexical.Indices {
			d += w[features.NumColumns+idx] * row.Lexical.Values[i]
		}
		out[k] = d
	}
	return out
}

func (l *linear) predict(row Row) string {
	m := l.margins(row)
	if len(m) == 1 {
		if m[0] > 0 {
			return l.classes[1]
		}
		return l.classes[0]
	}
	return l.classes[argmax(m)]
}

// LogisticRegression is a fitted binary or one-vs-rest logistic model.
type LogisticRegression struct{ linear }

func (m *LogisticRegression) Predict(row Row) string { return m.predict(row) }

// PredictProba returns class probabilities; one-vs-rest scores are
// normalised to sum to one.
func (m *LogisticRegression) PredictProba(row Row) []float64 {
	margins := m.margins(row)
	if len(margins) == 1 {
		p := sigmoid(margins[0])
		return []float64{1 - p, p}
	}
	probs := make([]float64, len(margins))
	var sum float64
	for i, d := range margins {
		probs[i] = sigmoid(d)
		sum += probs[i]
	}
	if sum > 0 {
		for i := range probs {
			probs[i] /= sum
		}
	}
	return probs
}

// LinearSVC is a fitted linear support vector classifier; it only exposes
// margins.
type LinearSVC struct{ linear }

func (m *LinearSVC) Predict(row Row) string { return m.predict(row) }

func (m *LinearSVC) DecisionFunction(row Row) []float64 { return m.margins(row) }

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func argmax(xs []float64) int {
	best := 0
	for i, x := range xs {
		if x > xs[best] {
			best = i
		}
	}
	return best
}

func classIndex(classes []string, name string) int {
	for i, c := range classes {
		if c == name {
			return i
		}
	}
	return -1
}
