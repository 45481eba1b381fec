package classifier

import (
	"encoding/json"
	"fmt"

	"github.com/DeafMist/comment-sentiment/internal/models"
	"github.com/DeafMist/comment-sentiment/internal/vectorizer"
)

// Ensemble objectives.
const (
	ObjectiveMulticlass = "multiclass"
	ObjectiveBinary     = "binary"
)

// TreeEnsemble is a gradient-boosted tree model. With the multiclass
// objective each class score is its base score plus the leaf values of the
// trees assigned to it, and scores become probabilities with softmax. With
// the binary objective there is a single margin (all trees target class 0)
// and sigmoid(margin) is the probability of the second label.
type TreeEnsemble struct {
	base
	binary    bool
	baseScore []float64
	trees     []tree
}

type tree struct {
	Class int    `json:"class"`
	Nodes []node `json:"nodes"`
}

// node is a split when Leaf is nil: feature <= threshold goes left.
type node struct {
	Feature   int      `json:"feature"`
	Threshold float64  `json:"threshold"`
	Left      int      `json:"left"`
	Right     int      `json:"right"`
	Leaf      *float64 `json:"leaf,omitempty"`
}

func decodeTreeEnsemble(b base, data []byte) (*TreeEnsemble, error) {
	var body struct {
		Objective string    `json:"objective" validate:"omitempty,oneof=multiclass binary"`
		BaseScore []float64 `json:"base_score"`
		Trees     []tree    `json:"trees"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("%w: decode trees: %v", ErrInvalidArtifact, err)
	}

	if err := validate.Struct(body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
	}

	binary := body.Objective == ObjectiveBinary
	classes := len(b.labels)
	if binary {
		if classes != 2 {
			return nil, fmt.Errorf("%w: binary objective needs 2 labels, got %d", ErrInvalidArtifact, classes)
		}
		// One margin row.
		classes = 1
	}
	if body.BaseScore == nil {
		body.BaseScore = make([]float64, classes)
	}
	if len(body.BaseScore) != classes {
		return nil, fmt.Errorf("%w: base_score has %d entries, want %d", ErrInvalidArtifact, len(body.BaseScore), classes)
	}
	if len(body.Trees) == 0 {
		return nil, fmt.Errorf("%w: ensemble has no trees", ErrInvalidArtifact)
	}

	for ti, t := range body.Trees {
		if t.Class < 0 || t.Class >= classes {
			return nil, fmt.Errorf("%w: tree %d targets class %d of %d", ErrInvalidArtifact, ti, t.Class, classes)
		}
		if len(t.Nodes) == 0 {
			return nil, fmt.Errorf("%w: tree %d is empty", ErrInvalidArtifact, ti)
		}
		for ni, n := range t.Nodes {
			if n.Leaf != nil {
				continue
			}
			if n.Feature < 0 || n.Feature >= b.width {
				return nil, fmt.Errorf("%w: tree %d node %d splits on feature %d of %d", ErrInvalidArtifact, ti, ni, n.Feature, b.width)
			}
			// Children must point forward so evaluation always terminates.
			if n.Left <= ni || n.Right <= ni || n.Left >= len(t.Nodes) || n.Right >= len(t.Nodes) {
				return nil, fmt.Errorf("%w: tree %d node %d has invalid children %d/%d", ErrInvalidArtifact, ti, ni, n.Left, n.Right)
			}
		}
	}

	return &TreeEnsemble{base: b, binary: binary, baseScore: body.BaseScore, trees: body.Trees}, nil
}

// Predict implements Classifier.
func (m *TreeEnsemble) Predict(vec vectorizer.Vector) (models.Prediction, error) {
	if err := m.checkWidth(vec); err != nil {
		return models.Prediction{}, err
	}
	scores := make([]float64, len(m.baseScore))
	copy(scores, m.baseScore)
	for _, t := range m.trees {
		scores[t.Class] += t.eval(vec)
	}
	if m.binary {
		return m.decideBinary(scores[0])
	}
	return m.decide(scores)
}

func (t tree) eval(vec vectorizer.Vector) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Leaf != nil {
			return *n.Leaf
		}
		if vec[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}
