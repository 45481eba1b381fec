// Package vectorizer maps normalized comment text to fixed-width TF-IDF
// feature vectors over a vocabulary of n-grams frozen at training time.
package vectorizer

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/DeafMist/comment-sentiment/internal/processing"
)

// MaxNGram is the longest n-gram a vocabulary may contain.
const MaxNGram = 3

// ErrInvalidArtifact is wrapped by every Decode validation failure.
var ErrInvalidArtifact = errors.New("invalid vectorizer artifact")

var validate = validator.New()

// Vector is a dense feature vector; its length equals the vocabulary size.
type Vector []float64

// artifact is the serialized form shared with the training pipeline.
type artifact struct {
	ID          string              `json:"id" validate:"required"`
	Normalizer  processing.Contract `json:"normalizer"`
	NGramRange  [2]int              `json:"ngram_range"`
	Vocabulary  map[string]int      `json:"vocabulary" validate:"required,min=1"`
	IDF         []float64           `json:"idf,omitempty"`
	SublinearTF bool                `json:"sublinear_tf,omitempty"`
	Binary      bool                `json:"binary,omitempty"`
	Norm        string              `json:"norm" validate:"omitempty,oneof=l2"`
}

// Vectorizer is immutable once decoded and safe for concurrent use.
type Vectorizer struct {
	id        string
	contract  processing.Contract
	minN      int
	maxN      int
	vocab     map[string]int
	idf       []float64
	sublinear bool
	binary    bool
	l2        bool
}

// Decode parses and validates a vectorizer artifact.
func Decode(data []byte) (*Vectorizer, error) {
	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrInvalidArtifact, err)
	}
	if err := validate.Struct(a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
	}

	minN, maxN := a.NGramRange[0], a.NGramRange[1]
	if minN < 1 || maxN < minN || maxN > MaxNGram {
		return nil, fmt.Errorf("%w: ngram_range %v must satisfy 1 <= min <= max <= %d", ErrInvalidArtifact, a.NGramRange, MaxNGram)
	}

	size := len(a.Vocabulary)
	seen := make([]bool, size)
	for term, idx := range a.Vocabulary {
		if idx < 0 || idx >= size {
			return nil, fmt.Errorf("%w: term %q has column %d outside [0,%d)", ErrInvalidArtifact, term, idx, size)
		}
		if seen[idx] {
			return nil, fmt.Errorf("%w: column %d assigned twice", ErrInvalidArtifact, idx)
		}
		seen[idx] = true
		words := strings.Fields(term)
		// Vectorize joins n-grams with single spaces; any other spelling never matches.
		if strings.Join(words, " ") != term {
			return nil, fmt.Errorf("%w: term %q is not single-space separated", ErrInvalidArtifact, term)
		}
		if n := len(words); n < minN || n > maxN {
			return nil, fmt.Errorf("%w: term %q is a %d-gram outside ngram_range %v", ErrInvalidArtifact, term, n, a.NGramRange)
		}
	}

	if len(a.IDF) != 0 && len(a.IDF) != size {
		return nil, fmt.Errorf("%w: idf has %d weights for %d terms", ErrInvalidArtifact, len(a.IDF), size)
	}
	for i, w := range a.IDF {
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return nil, fmt.Errorf("%w: idf[%d] = %v", ErrInvalidArtifact, i, w)
		}
	}

	return &Vectorizer{
		id:        a.ID,
		contract:  a.Normalizer,
		minN:      minN,
		maxN:      maxN,
		vocab:     a.Vocabulary,
		idf:       a.IDF,
		sublinear: a.SublinearTF,
		binary:    a.Binary,
		l2:        a.Norm == "l2",
	}, nil
}

// Encode serializes the vectorizer in the artifact format Decode reads.
func (v *Vectorizer) Encode() ([]byte, error) {
	a := artifact{
		ID:          v.id,
		Normalizer:  v.contract,
		NGramRange:  [2]int{v.minN, v.maxN},
		Vocabulary:  v.vocab,
		IDF:         v.idf,
		SublinearTF: v.sublinear,
		Binary:      v.binary,
	}
	if v.l2 {
		a.Norm = "l2"
	}
	return json.MarshalIndent(a, "", "  ")
}

// ID returns the artifact identifier.
func (v *Vectorizer) ID() string { return v.id }

// Size is the output width of Vectorize.
func (v *Vectorizer) Size() int { return len(v.vocab) }

// Contract returns the normalizer contract the vocabulary was fitted with.
func (v *Vectorizer) Contract() processing.Contract { return v.contract }

// NGramRange returns the inclusive n-gram bounds.
func (v *Vectorizer) NGramRange() (int, int) { return v.minN, v.maxN }

// Index returns the column of a vocabulary term.
func (v *Vectorizer) Index(term string) (int, bool) {
	idx, ok := v.vocab[term]
	return idx, ok
}

// Vectorize maps normalized text to a vector of width Size. Unknown n-grams
// are dropped; text with no known n-gram yields the zero vector.
func (v *Vectorizer) Vectorize(normalized string) Vector {
	vec := make(Vector, len(v.vocab))
	tokens := strings.Fields(normalized)
	for n := v.minN; n <= v.maxN; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			if idx, ok := v.vocab[strings.Join(tokens[i:i+n], " ")]; ok {
				vec[idx]++
			}
		}
	}

	var sumSq float64
	for i, tf := range vec {
		if tf == 0 {
			continue
		}
		switch {
		case v.binary:
			tf = 1
		case v.sublinear:
			tf = 1 + math.Log(tf)
		}
		if len(v.idf) > 0 {
			tf *= v.idf[i]
		}
		vec[i] = tf
		sumSq += tf * tf
	}

	if v.l2 && sumSq > 0 {
		norm := math.Sqrt(sumSq)
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec
}
