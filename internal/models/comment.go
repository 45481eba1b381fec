package models

import (
	"fmt"
	"strings"
	"time"
)

// Label is one of the three sentiment classes the service emits.
type Label string

const (
	Positive Label = "Positive"
	Neutral  Label = "Neutral"
	Negative Label = "Negative"
)

// AllLabels lists the closed label set in a stable order.
var AllLabels = []Label{Negative, Neutral, Positive}

// ParseLabel accepts canonical names (any case) and the -1/0/1 encoding used
// by the training corpus.
func ParseLabel(raw string) (Label, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "positive", "1", "+1":
		return Positive, nil
	case "neutral", "0":
		return Neutral, nil
	case "negative", "-1":
		return Negative, nil
	}
	return "", fmt.Errorf("unknown sentiment label %q", raw)
}

// RawComment is a comment as received from the comment source.
// PublishedAt is kept verbatim so that parsing failures stay per-record.
type RawComment struct {
	ID          string `json:"id,omitempty"`
	Text        string `json:"text"`
	PublishedAt string `json:"published_at,omitempty"`
	AuthorID    string `json:"author_id,omitempty"`
}

// Prediction is the classifier output for one comment.
type Prediction struct {
	Label      Label   `json:"label"`
	Confidence float64 `json:"confidence"`
}

// TokenCount is one entry of a word-cloud profile.
type TokenCount struct {
	Token string `json:"token"`
	Count int    `json:"count"`
}

// CommentDocument is the scored comment stored in Elasticsearch.
type CommentDocument struct {
	ID           string     `json:"id"`
	VideoID      string     `json:"video_id"`
	AuthorID     string     `json:"author_id,omitempty"`
	Text         string     `json:"text"`
	PublishedAt  *time.Time `json:"published_at,omitempty"`
	Label        Label      `json:"label,omitempty"`
	Confidence   float64    `json:"confidence"`
	Error        string     `json:"error,omitempty"`
	ModelVersion string     `json:"model_version"`
	IndexedAt    time.Time  `json:"indexed_at"`
}
