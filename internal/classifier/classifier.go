// Package classifier turns feature vectors into sentiment predictions.
// Concrete models are chosen from the artifact's "type" field at decode time.
package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"

	"github.com/DeafMist/comment-sentiment/internal/models"
	"github.com/DeafMist/comment-sentiment/internal/vectorizer"
)

const (
	TypeTreeEnsemble = "tree_ensemble"
	TypeLogistic     = "logistic"
)

var (
	ErrInvalidArtifact = errors.New("invalid classifier artifact")
	ErrInputWidth      = errors.New("feature vector width mismatch")
	ErrNonFinite       = errors.New("classifier produced a non-finite score")
)

var validate = validator.New()

// Classifier predicts a label for a feature vector. Implementations are
// immutable, deterministic and safe for concurrent use.
type Classifier interface {
	ID() string
	InputWidth() int
	Labels() []models.Label
	Predict(vec vectorizer.Vector) (models.Prediction, error)
}

// InputError reports a vector whose width differs from the model's.
type InputError struct {
	Want int
	Got  int
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%v: model expects %d features, got %d", ErrInputWidth, e.Want, e.Got)
}

func (e *InputError) Unwrap() error { return ErrInputWidth }

type header struct {
	ID          string   `json:"id" validate:"required"`
	Type        string   `json:"type" validate:"required,oneof=tree_ensemble logistic"`
	NumFeatures int      `json:"num_features" validate:"gt=0"`
	Labels      []string `json:"labels" validate:"required,min=2,dive,required"`
}

// Decode parses a classifier artifact and returns the variant it names.
// Labels are mapped through models.ParseLabel; unrecognized labels are kept
// verbatim so that binding can reject the label set explicitly.
func Decode(data []byte) (Classifier, error) {
	var h header
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrInvalidArtifact, err)
	}
	if err := validate.Struct(h); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
	}

	labels := make([]models.Label, len(h.Labels))
	for i, raw := range h.Labels {
		label, err := models.ParseLabel(raw)
		if err != nil {
			label = models.Label(raw)
		}
		labels[i] = label
	}

	b := base{id: h.ID, width: h.NumFeatures, labels: labels}
	switch h.Type {
	case TypeTreeEnsemble:
		m, err := decodeTreeEnsemble(b, data)
		if err != nil {
			return nil, err
		}
		return m, nil
	case TypeLogistic:
		m, err := decodeLogistic(b, data)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
	return nil, fmt.Errorf("%w: unsupported type %q", ErrInvalidArtifact, h.Type)
}

type base struct {
	id     string
	width  int
	labels []models.Label
}

func (b base) ID() string      { return b.id }
func (b base) InputWidth() int { return b.width }

func (b base) Labels() []models.Label {
	out := make([]models.Label, len(b.labels))
	copy(out, b.labels)
	return out
}

func (b base) checkWidth(vec vectorizer.Vector) error {
	if len(vec) != b.width {
		return &InputError{Want: b.width, Got: len(vec)}
	}
	return nil
}

// decide turns raw class scores into the most probable label. Ties resolve
// to the lowest class index.
func (b base) decide(scores []float64) (models.Prediction, error) {
	probs, err := softmax(scores)
	if err != nil {
		return models.Prediction{}, err
	}
	best := 0
	for i := 1; i < len(probs); i++ {
		if probs[i] > probs[best] {
			best = i
		}
	}
	return models.Prediction{Label: b.labels[best], Confidence: probs[best]}, nil
}

// decideBinary maps a logit to the second label's probability. Ties
// resolve to the first label.
func (b base) decideBinary(margin float64) (models.Prediction, error) {
	if math.IsNaN(margin) || math.IsInf(margin, 0) {
		return models.Prediction{}, ErrNonFinite
	}
	p := 1 / (1 + math.Exp(-margin))
	if p > 0.5 {
		return models.Prediction{Label: b.labels[1], Confidence: p}, nil
	}
	return models.Prediction{Label: b.labels[0], Confidence: 1 - p}, nil
}

func softmax(scores []float64) ([]float64, error) {
	maxScore := math.Inf(-1)
	for _, s := range scores {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return nil, ErrNonFinite
		}
		maxScore = math.Max(maxScore, s)
	}

	probs := make([]float64, len(scores))
	var sum float64
	for i, s := range scores {
		probs[i] = math.Exp(s - maxScore)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs, nil
}
