package ml

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// ErrModelUnavailable reports that the classifier or vectorizer could not be
// loaded. Callers fall back to a conservative prediction.
var ErrModelUnavailable = errors.New("classifier unavailable")

// Provider hands out the loaded model.
type Provider interface {
	Model() (*Model, error)
}

// Status describes a provider's load state.
type Status struct {
	Loaded         bool      `json:"loaded"`
	ClassifierPath string    `json:"classifier_path,omitempty"`
	VectorizerPath string    `json:"vectorizer_path,omitempty"`
	Attempts       int64     `json:"load_attempts"`
	LastError      string    `json:"last_error,omitempty"`
	LoadedAt       time.Time `json:"loaded_at,omitempty"`
}

// FileProvider loads the artifacts from disk on first use. Concurrent first
// calls are serialised; reads after a successful load take no lock. A failed
// load is retried on the next call.
type FileProvider struct {
	classifierPath string
	vectorizerPath string
	logger         *slog.Logger

	mu       sync.Mutex
	model    atomic.Pointer[Model]
	attempts atomic.Int64
	lastErr  error
	loadedAt time.Time
}

func NewFileProvider(classifierPath, vectorizerPath string, logger *slog.Logger) *FileProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileProvider{
		classifierPath: classifierPath,
		vectorizerPath: vectorizerPath,
		logger:         logger,
	}
}

func (p *FileProvider) Model() (*Model, error) {
	if m := p.model.Load(); m != nil {
		return m, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if m := p.model.Load(); m != nil {
		return m, nil
	}

	p.attempts.Add(1)
	m, err := LoadModel(p.classifierPath, p.vectorizerPath)
	if err != nil {
		p.lastErr = err
		p.logger.Warn("Model load failed", "classifier", p.classifierPath, "vectorizer", p.vectorizerPath, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}
	p.lastErr = nil
	p.loadedAt = time.Now().UTC()
	p.model.Store(m)
	p.logger.Info("Model loaded",
		"classifier", p.classifierPath,
		"vectorizer", p.vectorizerPath,
		"vocabulary", m.Vectorizer.Dimension(),
		"classes", m.Classifier.Classes())
	return m, nil
}

// Status reports the current load state.
func (p *FileProvider) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := Status{
		Loaded:         p.model.Load() != nil,
		ClassifierPath: p.classifierPath,
		VectorizerPath: p.vectorizerPath,
		Attempts:       p.attempts.Load(),
		LoadedAt:       p.loadedAt,
	}
	if p.lastErr != nil {
		st.LastError = p.lastErr.Error()
	}
	return st
}

// StaticProvider returns a fixed model or error.
type StaticProvider struct {
	M   *Model
	Err error
}

func (p StaticProvider) Model() (*Model, error) {
	if p.Err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModelUnavailable, p.Err)
	}
	if p.M == nil {
		return nil, ErrModelUnavailable
	}
	return p.M, nil
}

func (p StaticProvider) Status() Status {
	st := Status{Loaded: p.M != nil && p.Err == nil}
	if p.Err != nil {
		st.LastError = p.Err.Error()
	}
	return st
}
