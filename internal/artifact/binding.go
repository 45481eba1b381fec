package artifact

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/DeafMist/comment-sentiment/internal/classifier"
	"github.com/DeafMist/comment-sentiment/internal/models"
	"github.com/DeafMist/comment-sentiment/internal/processing"
	"github.com/DeafMist/comment-sentiment/internal/vectorizer"
)

// Binding stages reported by BindingError.
const (
	StageLoadVectorizer   = "load_vectorizer"
	StageLoadClassifier   = "load_classifier"
	StageDecodeVectorizer = "decode_vectorizer"
	StageDecodeClassifier = "decode_classifier"
	StageNormalizer       = "normalizer_contract"
	StageWidth            = "dimension_check"
	StageLabels           = "label_check"
)

// Refs names the two artifacts of a pair.
type Refs struct {
	Vectorizer string `json:"vectorizer" validate:"required"`
	Classifier string `json:"classifier" validate:"required"`
}

// BindingError is fatal: the pair cannot serve traffic.
type BindingError struct {
	Stage string
	Refs  Refs
	Err   error
}

func (e *BindingError) Error() string {
	return fmt.Sprintf("bind %s + %s: %s: %v", e.Refs.Vectorizer, e.Refs.Classifier, e.Stage, e.Err)
}

func (e *BindingError) Unwrap() error { return e.Err }

// Version describes a bound pair.
type Version struct {
	ID                string         `json:"id"`
	VectorizerRef     string         `json:"vectorizer_ref"`
	ClassifierRef     string         `json:"classifier_ref"`
	VectorizerID      string         `json:"vectorizer_id"`
	ClassifierID      string         `json:"classifier_id"`
	VocabularySize    int            `json:"vocabulary_size"`
	Labels            []models.Label `json:"labels"`
	NormalizerVersion string         `json:"normalizer_version"`
	BoundAt           time.Time      `json:"bound_at"`
}

// Bundle is an immutable vectorizer/classifier pair. Requests hold one
// Bundle for their whole lifetime.
type Bundle struct {
	Version    Version
	Vectorizer *vectorizer.Vectorizer
	Classifier classifier.Classifier
}

// Bind loads both artifacts and validates them together. It returns either a
// complete Bundle or a *BindingError, never a partial pair.
func Bind(ctx context.Context, store Store, refs Refs) (*Bundle, error) {
	fail := func(stage string, err error) (*Bundle, error) {
		return nil, &BindingError{Stage: stage, Refs: refs, Err: err}
	}

	vecData, err := store.LoadVectorizer(ctx, refs.Vectorizer)
	if err != nil {
		return fail(StageLoadVectorizer, err)
	}
	clfData, err := store.LoadClassifier(ctx, refs.Classifier)
	if err != nil {
		return fail(StageLoadClassifier, err)
	}

	vec, err := vectorizer.Decode(vecData)
	if err != nil {
		return fail(StageDecodeVectorizer, err)
	}
	clf, err := classifier.Decode(clfData)
	if err != nil {
		return fail(StageDecodeClassifier, err)
	}

	return Pair(refs, vec, clf)
}

// Pair validates already decoded artifacts and wraps them in a Bundle.
func Pair(refs Refs, vec *vectorizer.Vectorizer, clf classifier.Classifier) (*Bundle, error) {
	fail := func(stage string, err error) (*Bundle, error) {
		return nil, &BindingError{Stage: stage, Refs: refs, Err: err}
	}

	if want := processing.CurrentContract(); !vec.Contract().Equal(want) {
		return fail(StageNormalizer, fmt.Errorf("vectorizer %s was fitted with normalizer %q, serving implements %q",
			vec.ID(), vec.Contract().Version, want.Version))
	}
	if vec.Size() != clf.InputWidth() {
		return fail(StageWidth, fmt.Errorf("vectorizer %s emits %d features, classifier %s expects %d",
			vec.ID(), vec.Size(), clf.ID(), clf.InputWidth()))
	}

	labels := clf.Labels()
	if err := checkLabels(labels); err != nil {
		return fail(StageLabels, err)
	}

	return &Bundle{
		Version: Version{
			ID:                uuid.NewString(),
			VectorizerRef:     refs.Vectorizer,
			ClassifierRef:     refs.Classifier,
			VectorizerID:      vec.ID(),
			ClassifierID:      clf.ID(),
			VocabularySize:    vec.Size(),
			Labels:            labels,
			NormalizerVersion: vec.Contract().Version,
			BoundAt:           time.Now().UTC(),
		},
		Vectorizer: vec,
		Classifier: clf,
	}, nil
}

func checkLabels(labels []models.Label) error {
	if len(labels) == 0 {
		return errors.New("classifier declares no labels")
	}
	seen := make(map[models.Label]struct{}, len(labels))
	for _, l := range labels {
		if !slices.Contains(models.AllLabels, l) {
			return fmt.Errorf("label %q is not one of %v", l, models.AllLabels)
		}
		if _, dup := seen[l]; dup {
			return fmt.Errorf("label %q declared twice", l)
		}
		seen[l] = struct{}{}
	}
	return nil
}
