package classifier

import (
	"encoding/json"
	"fmt"

	"github.com/DeafMist/comment-sentiment/internal/models"
	"github.com/DeafMist/comment-sentiment/internal/vectorizer"
)

// Logistic is a multinomial logistic regression: softmax(Wx + b).
type Logistic struct {
	base
	coef      [][]float64
	intercept []float64
}

type logisticBody struct {
	Coef      [][]float64 `json:"coef"`
	Intercept []float64   `json:"intercept"`
}

// NewLogistic builds a logistic model from one weight row per label.
func NewLogistic(id string, labels []models.Label, coef [][]float64, intercept []float64) (*Logistic, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: id is required", ErrInvalidArtifact)
	}
	if len(labels) < 2 {
		return nil, fmt.Errorf("%w: need at least two labels", ErrInvalidArtifact)
	}
	width := 0
	if len(coef) > 0 {
		width = len(coef[0])
	}
	b := base{id: id, width: width, labels: labels}
	return newLogistic(b, logisticBody{Coef: coef, Intercept: intercept})
}

func decodeLogistic(b base, data []byte) (*Logistic, error) {
	var body logisticBody
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("%w: decode logistic: %v", ErrInvalidArtifact, err)
	}
	return newLogistic(b, body)
}

func newLogistic(b base, body logisticBody) (*Logistic, error) {
	classes := len(b.labels)
	if b.width <= 0 {
		return nil, fmt.Errorf("%w: model has no features", ErrInvalidArtifact)
	}
	if len(body.Coef) != classes {
		return nil, fmt.Errorf("%w: coef has %d rows for %d labels", ErrInvalidArtifact, len(body.Coef), classes)
	}
	for i, row := range body.Coef {
		if len(row) != b.width {
			return nil, fmt.Errorf("%w: coef row %d has %d weights, want %d", ErrInvalidArtifact, i, len(row), b.width)
		}
	}
	if body.Intercept == nil {
		body.Intercept = make([]float64, classes)
	}
	if len(body.Intercept) != classes {
		return nil, fmt.Errorf("%w: intercept has %d entries for %d labels", ErrInvalidArtifact, len(body.Intercept), classes)
	}
	return &Logistic{base: b, coef: body.Coef, intercept: body.Intercept}, nil
}

// Predict implements Classifier.
func (m *Logistic) Predict(vec vectorizer.Vector) (models.Prediction, error) {
	if err := m.checkWidth(vec); err != nil {
		return models.Prediction{}, err
	}
	scores := make([]float64, len(m.coef))
	for c, row := range m.coef {
		s := m.intercept[c]
		for i, w := range row {
			if x := vec[i]; x != 0 {
				s += w * x
			}
		}
		scores[c] = s
	}
	return m.decide(scores)
}

// Encode serializes the model in the artifact format Decode reads.
func (m *Logistic) Encode() ([]byte, error) {
	labels := make([]string, len(m.labels))
	for i, l := range m.labels {
		labels[i] = string(l)
	}
	return json.MarshalIndent(struct {
		header
		logisticBody
	}{
		header:       header{ID: m.id, Type: TypeLogistic, NumFeatures: m.width, Labels: labels},
		logisticBody: logisticBody{Coef: m.coef, Intercept: m.intercept},
	}, "", "  ")
}
