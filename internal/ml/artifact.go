package ml

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/nshruti113/url-risk-dashboard/internal/features"
)

// Classifier kinds understood by LoadClassifier.
const (
	KindLogisticRegression = "logistic_regression"
	KindLinearSVC          = "linear_svc"
)

// Artifact is the serialised form of a trained linear classifier.
type Artifact struct {
	Kind      string      `json:"kind"`
	Classes   []string    `json:"classes"`
	Coef      [][]float64 `json:"coef"`
	Intercept []float64   `json:"intercept"`
}

// Validate checks the weight shapes against the class list.
func (a Artifact) Validate() error {
	if len(a.Classes) < 2 {
		return fmt.Errorf("need at least 2 classes, got %d", len(a.Classes))
	}
	rows := len(a.Classes)
	if rows == 2 {
		rows = 1
	}
	if len(a.Coef) != rows {
		return fmt.Errorf("expected %d coefficient rows for %d classes, got %d", rows, len(a.Classes), len(a.Coef))
	}
	if len(a.Intercept) != rows {
		return fmt.Errorf("expected %d intercepts, got %d", rows, len(a.Intercept))
	}
	width := len(a.Coef[0])
	if width < features.NumColumns {
		return fmt.Errorf("coefficient width %d is narrower than the %d numeric columns", width, features.NumColumns)
	}
	for i, row := range a.Coef {
		if len(row) != width {
			return fmt.Errorf("coefficient row %d has width %d, want %d", i, len(row), width)
		}
	}
	return nil
}

// Build turns the artifact into a Classifier of its declared kind.
func (a Artifact) Build() (Classifier, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	l := linear{
		classes:   append([]string(nil), a.Classes...),
		coef:      a.Coef,
		intercept: append([]float64(nil), a.Intercept...),
	}
	switch a.Kind {
	case KindLogisticRegression:
		return &LogisticRegression{l}, nil
	case KindLinearSVC:
		return &LinearSVC{l}, nil
	default:
		return nil, fmt.Errorf("unsupported classifier kind %q", a.Kind)
	}
}

// Save writes the artifact as JSON.
func (a Artifact) Save(path string) error {
	b, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal classifier: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write classifier: %w", err)
	}
	return nil
}

// LoadClassifier reads a classifier artifact from path.
func LoadClassifier(path string) (Classifier, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read classifier: %w", err)
	}
	var a Artifact
	if err := json.Unmarshal(b, &a); err != nil {
		return nil, fmt.Errorf("parse classifier json: %w", err)
	}
	clf, err := a.Build()
	if err != nil {
		return nil, fmt.Errorf("invalid classifier: %w", err)
	}
	return clf, nil
}

// Model pairs a classifier with the vectorizer it was trained against.
// It is immutable once built.
type Model struct {
	Classifier Classifier
	Vectorizer *features.Vectorizer
}

// NewModel checks that the classifier width matches
// [numeric columns | vectorizer vocabulary].
func NewModel(clf Classifier, vec *features.Vectorizer) (*Model, error) {
	if clf == nil || vec == nil {
		return nil, fmt.Errorf("classifier and vectorizer are both required")
	}
	want := features.NumColumns + vec.Dimension()
	if w, ok := clf.(interface{ NumFeatures() int }); ok && w.NumFeatures() != want {
		return nil, fmt.Errorf("classifier expects %d features, vectorizer yields %d", w.NumFeatures(), want)
	}
	return &Model{Classifier: clf, Vectorizer: vec}, nil
}

// LoadModel loads both artifacts and checks they fit together.
func LoadModel(classifierPath, vectorizerPath string) (*Model, error) {
	vec, err := features.LoadVectorizer(vectorizerPath)
	if err != nil {
		return nil, err
	}
	clf, err := LoadClassifier(classifierPath)
	if err != nil {
		return nil, err
	}
	return NewModel(clf, vec)
}

// Row builds the combined feature row for url.
func (m *Model) Row(url string, numeric features.Vector) Row {
	return Row{Numeric: numeric, Lexical: m.Vectorizer.Transform(url)}
}
