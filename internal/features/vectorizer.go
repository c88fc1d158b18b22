package features

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"regexp"
	"sort"
	"strings"
)

// SparseVector is a sparse row with ascending indices.
type SparseVector struct {
	Indices []int
	Values  []float64
}

// Len returns the number of stored entries.
func (s SparseVector) Len() int { return len(s.Indices) }

// VectorizerOptions configures FitVectorizer.
type VectorizerOptions struct {
	MinN        int
	MaxN        int
	MaxFeatures int
	Lowercase   bool
}

// DefaultVectorizerOptions are the character 3-5 gram settings the model is
// trained with.
func DefaultVectorizerOptions() VectorizerOptions {
	return VectorizerOptions{MinN: 3, MaxN: 5, MaxFeatures: 5000, Lowercase: true}
}

// Vectorizer is a fitted character n-gram TF-IDF transform. Once fitted or
// loaded it is read-only and safe for concurrent use.
type Vectorizer struct {
	Analyzer   string         `json:"analyzer"`
	NgramRange [2]int         `json:"ngram_range"`
	Lowercase  bool           `json:"lowercase"`
	Norm       string         `json:"norm"`
	Vocabulary map[string]int `json:"vocabulary"`
	IDF        []float64      `json:"idf"`
}

var whiteSpaces = regexp.MustCompile(`\s\s+`)

// FitVectorizer learns vocabulary and idf weights from corpus.
func FitVectorizer(corpus []string, opts VectorizerOptions) (*Vectorizer, error) {
	if opts.MinN < 1 || opts.MaxN < opts.MinN {
		return nil, fmt.Errorf("invalid ngram range (%d, %d)", opts.MinN, opts.MaxN)
	}
	if len(corpus) == 0 {
		return nil, errors.New("empty corpus")
	}

	v := &Vectorizer{
		Analyzer:   "char",
		NgramRange: [2]int{opts.MinN, opts.MaxN},
		Lowercase:  opts.Lowercase,
		Norm:       "l2",
	}

	termFreq := make(map[string]int)
	docFreq := make(map[string]int)
	for _, doc := range corpus {
		seen := make(map[string]struct{})
		for _, g := range v.ngrams(doc) {
			termFreq[g]++
			if _, ok := seen[g]; !ok {
				seen[g] = struct{}{}
				docFreq[g]++
			}
		}
	}
	if len(termFreq) == 0 {
		return nil, errors.New("corpus produced no n-grams")
	}

	terms := make([]string, 0, len(termFreq))
	for t := range termFreq {
		terms = append(terms, t)
	}
	if opts.MaxFeatures > 0 && len(terms) > opts.MaxFeatures {
		sort.Slice(terms, func(i, j int) bool {
			if termFreq[terms[i]] != termFreq[terms[j]] {
				return termFreq[terms[i]] > termFreq[terms[j]]
			}
			return terms[i] < terms[j]
		})
		terms = terms[:opts.MaxFeatures]
	}
	sort.Strings(terms)

	n := float64(len(corpus))
	v.Vocabulary = make(map[string]int, len(terms))
	v.IDF = make([]float64, len(terms))
	for i, t := range terms {
		v.Vocabulary[t] = i
		v.IDF[i] = math.Log((1+n)/(1+float64(docFreq[t]))) + 1
	}
	return v, nil
}

// Dimension is the number of lexical columns Transform produces.
func (v *Vectorizer) Dimension() int { return len(v.IDF) }

// Transform maps doc onto the fitted vocabulary as an L2-normalised row.
func (v *Vectorizer) Transform(doc string) SparseVector {
	counts := make(map[int]int)
	for _, g := range v.ngrams(doc) {
		if idx, ok := v.Vocabulary[g]; ok {
			counts[idx]++
		}
	}
	if len(counts) == 0 {
		return SparseVector{}
	}

	row := SparseVector{
		Indices: make([]int, 0, len(counts)),
		Values:  make([]float64, 0, len(counts)),
	}
	for idx := range counts {
		row.Indices = append(row.Indices, idx)
	}
	sort.Ints(row.Indices)

	var sumSq float64
	for _, idx := range row.Indices {
		w := float64(counts[idx]) * v.IDF[idx]
		row.Values = append(row.Values, w)
		sumSq += w * w
	}
	if v.Norm == "l2" && sumSq > 0 {
		norm := math.Sqrt(sumSq)
		for i := range row.Values {
			row.Values[i] /= norm
		}
	}
	return row
}

// ngrams splits doc into character n-grams over runes.
func (v *Vectorizer) ngrams(doc string) []string {
	if v.Lowercase {
		doc = strings.ToLower(doc)
	}
	text := []rune(whiteSpaces.ReplaceAllString(doc, " "))

	minN, maxN := v.NgramRange[0], v.NgramRange[1]
	var out []string
	for n := minN; n <= maxN && n <= len(text); n++ {
		for i := 0; i+n <= len(text); i++ {
			out = append(out, string(text[i:i+n]))
		}
	}
	return out
}

// Validate checks that a loaded vectorizer is internally consistent.
func (v *Vectorizer) Validate() error {
	if v.Analyzer != "char" {
		return fmt.Errorf("unsupported analyzer %q", v.Analyzer)
	}
	if v.NgramRange[0] < 1 || v.NgramRange[1] < v.NgramRange[0] {
		return fmt.Errorf("invalid ngram range %v", v.NgramRange)
	}
	if len(v.Vocabulary) != len(v.IDF) {
		return fmt.Errorf("vocabulary has %d terms but idf has %d weights", len(v.Vocabulary), len(v.IDF))
	}
	seen := make([]bool, len(v.IDF))
	for term, idx := range v.Vocabulary {
		if idx < 0 || idx >= len(seen) || seen[idx] {
			return fmt.Errorf("bad vocabulary index %d for %q", idx, term)
		}
		seen[idx] = true
	}
	return nil
}

// Save writes the vectorizer as JSON.
func (v *Vectorizer) Save(path string) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal vectorizer: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write vectorizer: %w", err)
	}
	return nil
}

// LoadVectorizer reads and validates a vectorizer artifact.
func LoadVectorizer(path string) (*Vectorizer, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vectorizer: %w", err)
	}
	var v Vectorizer
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, fmt.Errorf("parse vectorizer json: %w", err)
	}
	if v.Norm == "" {
		v.Norm = "l2"
	}
	if err := v.Validate(); err != nil {
		return nil, fmt.Errorf("invalid vectorizer: %w", err)
	}
	return &v, nil
}
