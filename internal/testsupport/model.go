// Package testsupport builds small but real sentiment artifacts for tests.
package testsupport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/DeafMist/comment-sentiment/internal/artifact"
	"github.com/DeafMist/comment-sentiment/internal/classifier"
	"github.com/DeafMist/comment-sentiment/internal/models"
	"github.com/DeafMist/comment-sentiment/internal/processing"
	"github.com/DeafMist/comment-sentiment/internal/vectorizer"
)

// Corpus is the training text of the fixture vocabulary.
var Corpus = []string{
	"I love this video!",
	"great editing, love the music",
	"amazing work, really good",
	"not good at all",
	"terrible, never again",
	"this is bad, I hate it",
	"the video is ten minutes long",
	"posted on monday",
}

type weight struct {
	phrase string
	label  models.Label
	value  float64
}

var weights = []weight{
	{"love", models.Positive, 4},
	{"great", models.Positive, 4},
	{"amazing", models.Positive, 4},
	{"good", models.Positive, 3},
	{"not good", models.Negative, 8},
	{"not", models.Negative, 2},
	{"terrible", models.Negative, 4},
	{"never", models.Negative, 2},
	{"bad", models.Negative, 4},
	{"hate", models.Negative, 4},
}

var labels = []models.Label{models.Negative, models.Neutral, models.Positive}

// Model fits the fixture vectorizer and a logistic classifier over it that
// labels love/great/good as Positive, terrible/bad/hate/"not good" as
// Negative and anything else as Neutral.
func Model(t testing.TB, id string) (*vectorizer.Vectorizer, *classifier.Logistic) {
	t.Helper()

	vec, err := vectorizer.Fit("tfidf-"+id, Corpus, vectorizer.DefaultOptions())
	if err != nil {
		t.Fatalf("fit vectorizer: %v", err)
	}

	coef := make([][]float64, len(labels))
	for i := range coef {
		coef[i] = make([]float64, vec.Size())
	}
	for _, w := range weights {
		col, ok := vec.Index(processing.Normalize(w.phrase))
		if !ok {
			continue
		}
		for i, l := range labels {
			if l == w.label {
				coef[i][col] = w.value
			}
		}
	}

	clf, err := classifier.NewLogistic("logreg-"+id, labels, coef, []float64{0, 0.5, 0})
	if err != nil {
		t.Fatalf("build classifier: %v", err)
	}
	return vec, clf
}

// Bundle returns a bound fixture pair.
func Bundle(t testing.TB, id string) *artifact.Bundle {
	t.Helper()
	vec, clf := Model(t, id)
	bundle, err := artifact.Pair(artifact.Refs{Vectorizer: "vectorizer-" + id, Classifier: "classifier-" + id}, vec, clf)
	if err != nil {
		t.Fatalf("pair fixture: %v", err)
	}
	return bundle
}

// WriteArtifacts writes the fixture pair under dir as <id>/vectorizer.json
// and <id>/classifier.json and returns refs for an artifact.FileStore on dir.
func WriteArtifacts(t testing.TB, dir, id string) artifact.Refs {
	t.Helper()
	vec, clf := Model(t, id)

	vecData, err := vec.Encode()
	if err != nil {
		t.Fatalf("encode vectorizer: %v", err)
	}
	clfData, err := clf.Encode()
	if err != nil {
		t.Fatalf("encode classifier: %v", err)
	}

	refs := artifact.Refs{
		Vectorizer: id + "/vectorizer.json",
		Classifier: id + "/classifier.json",
	}
	WriteFile(t, filepath.Join(dir, refs.Vectorizer), vecData)
	WriteFile(t, filepath.Join(dir, refs.Classifier), clfData)
	return refs
}

// WriteFile creates parent directories and writes data to path.
func WriteFile(t testing.TB, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// FlippedBundle pairs the fixture vectorizer with the fixture weights but
// Positive and Negative swapped, so every polar prediction differs from
// Bundle's. The classifier ID is "flipped-<id>".
func FlippedBundle(t testing.TB, id string) *artifact.Bundle {
	t.Helper()
	vec, _ := Model(t, id)

	other, err := classifier.Decode(flippedClassifier(t, id))
	if err != nil {
		t.Fatalf("decode flipped classifier: %v", err)
	}
	bundle, err := artifact.Pair(artifact.Refs{Vectorizer: "vectorizer-" + id, Classifier: "flipped-" + id}, vec, other)
	if err != nil {
		t.Fatalf("pair flipped fixture: %v", err)
	}
	return bundle
}

// WriteFlippedArtifacts writes the fixture pair under dir like
// WriteArtifacts, but with FlippedBundle's classifier stored at
// <id>/flipped.json. Both returned Refs share one vectorizer file.
func WriteFlippedArtifacts(t testing.TB, dir, id string) (normal, flipped artifact.Refs) {
	t.Helper()
	normal = WriteArtifacts(t, dir, id)
	flipped = artifact.Refs{
		Vectorizer: normal.Vectorizer,
		Classifier: id + "/flipped.json",
	}
	WriteFile(t, filepath.Join(dir, flipped.Classifier), flippedClassifier(t, id))
	return normal, flipped
}

func flippedClassifier(t testing.TB, id string) []byte {
	t.Helper()
	_, clf := Model(t, id)

	data, err := clf.Encode()
	if err != nil {
		t.Fatalf("encode classifier: %v", err)
	}
	flipped := strings.Replace(string(data), `"Negative"`, `"__tmp__"`, 1)
	flipped = strings.Replace(flipped, `"Positive"`, `"Negative"`, 1)
	flipped = strings.Replace(flipped, `"__tmp__"`, `"Positive"`, 1)
	flipped = strings.Replace(flipped, `"logreg-`+id+`"`, `"flipped-`+id+`"`, 1)
	return []byte(flipped)
}
