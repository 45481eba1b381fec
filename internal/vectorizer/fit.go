package vectorizer

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/DeafMist/comment-sentiment/internal/processing"
)

// Options control vocabulary fitting.
type Options struct {
	NGramMin    int
	NGramMax    int
	MaxFeatures int // 0 keeps every n-gram
	MinDF       int // documents an n-gram must appear in; values < 1 mean 1
	SublinearTF bool
	Binary      bool
	UseIDF      bool
	L2Norm      bool
}

// DefaultOptions mirror the training pipeline: 1-3 grams, TF-IDF, l2.
func DefaultOptions() Options {
	return Options{NGramMin: 1, NGramMax: 3, MaxFeatures: 10000, MinDF: 1, UseIDF: true, L2Norm: true}
}

// Fit builds a vectorizer from raw training texts. Texts go through
// processing.Normalize, the same path used when serving.
func Fit(id string, docs []string, opts Options) (*Vectorizer, error) {
	if id == "" {
		return nil, errors.New("vectorizer id is required")
	}
	if opts.NGramMin < 1 || opts.NGramMax < opts.NGramMin || opts.NGramMax > MaxNGram {
		return nil, fmt.Errorf("ngram range [%d,%d] must satisfy 1 <= min <= max <= %d", opts.NGramMin, opts.NGramMax, MaxNGram)
	}
	minDF := max(opts.MinDF, 1)

	df := make(map[string]int)
	tf := make(map[string]int)
	for _, doc := range docs {
		tokens := strings.Fields(processing.Normalize(doc))
		inDoc := make(map[string]struct{})
		for n := opts.NGramMin; n <= opts.NGramMax; n++ {
			for i := 0; i+n <= len(tokens); i++ {
				gram := strings.Join(tokens[i:i+n], " ")
				tf[gram]++
				inDoc[gram] = struct{}{}
			}
		}
		for gram := range inDoc {
			df[gram]++
		}
	}

	terms := make([]string, 0, len(df))
	for gram, count := range df {
		if count >= minDF {
			terms = append(terms, gram)
		}
	}
	if len(terms) == 0 {
		return nil, errors.New("no n-grams survived fitting")
	}

	if opts.MaxFeatures > 0 && len(terms) > opts.MaxFeatures {
		sort.Slice(terms, func(i, j int) bool {
			if tf[terms[i]] == tf[terms[j]] {
				return terms[i] < terms[j]
			}
			return tf[terms[i]] > tf[terms[j]]
		})
		terms = terms[:opts.MaxFeatures]
	}
	sort.Strings(terms)

	vocab := make(map[string]int, len(terms))
	var idf []float64
	if opts.UseIDF {
		idf = make([]float64, len(terms))
	}
	n := float64(len(docs))
	for i, term := range terms {
		vocab[term] = i
		if idf != nil {
			idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
		}
	}

	return &Vectorizer{
		id:        id,
		contract:  processing.CurrentContract(),
		minN:      opts.NGramMin,
		maxN:      opts.NGramMax,
		vocab:     vocab,
		idf:       idf,
		sublinear: opts.SublinearTF,
		binary:    opts.Binary,
		l2:        opts.L2Norm,
	}, nil
}
