package artifact_test

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/comment-sentiment/internal/artifact"
	"github.com/DeafMist/comment-sentiment/internal/classifier"
	"github.com/DeafMist/comment-sentiment/internal/models"
	"github.com/DeafMist/comment-sentiment/internal/processing"
	"github.com/DeafMist/comment-sentiment/internal/testsupport"
)

func TestBindLoadsCompatiblePair(t *testing.T) {
	dir := t.TempDir()
	refs := testsupport.WriteArtifacts(t, dir, "v1")

	bundle, err := artifact.Bind(context.Background(), artifact.NewFileStore(dir), refs)
	require.NoError(t, err)
	require.NotNil(t, bundle.Vectorizer)
	require.NotNil(t, bundle.Classifier)

	v := bundle.Version
	require.NotEmpty(t, v.ID)
	require.Equal(t, "tfidf-v1", v.VectorizerID)
	require.Equal(t, "logreg-v1", v.ClassifierID)
	require.Equal(t, bundle.Vectorizer.Size(), v.VocabularySize)
	require.Equal(t, bundle.Classifier.InputWidth(), v.VocabularySize)
	require.Equal(t, processing.ContractVersion, v.NormalizerVersion)
	require.ElementsMatch(t, models.AllLabels, v.Labels)
}

func TestBindFailures(t *testing.T) {
	dir := t.TempDir()
	refs := testsupport.WriteArtifacts(t, dir, "v1")
	store := artifact.NewFileStore(dir)

	vecData, err := os.ReadFile(filepath.Join(dir, refs.Vectorizer))
	require.NoError(t, err)

	narrow, err := classifier.NewLogistic("narrow", []models.Label{models.Negative, models.Positive}, [][]float64{{1}, {1}}, nil)
	require.NoError(t, err)
	narrowData, err := narrow.Encode()
	require.NoError(t, err)
	testsupport.WriteFile(t, filepath.Join(dir, "narrow.json"), narrowData)

	_, fixtureClf := testsupport.Model(t, "v1")
	wide := fixtureClf.InputWidth()
	labelsBody := `{"id":"odd","type":"logistic","num_features":` + strconv.Itoa(wide) + `,"labels":["Positive","Sarcastic"],"coef":[` + zeros(wide) + `,` + zeros(wide) + `]}`
	testsupport.WriteFile(t, filepath.Join(dir, "labels.json"), []byte(labelsBody))
	dupBody := `{"id":"dup","type":"logistic","num_features":` + strconv.Itoa(wide) + `,"labels":["1","Positive"],"coef":[` + zeros(wide) + `,` + zeros(wide) + `]}`
	testsupport.WriteFile(t, filepath.Join(dir, "dup.json"), []byte(dupBody))

	oldContract := strings.Replace(string(vecData), `"version": "v1"`, `"version": "v0"`, 1)
	require.NotEqual(t, string(vecData), oldContract)
	testsupport.WriteFile(t, filepath.Join(dir, "old-vectorizer.json"), []byte(oldContract))
	testsupport.WriteFile(t, filepath.Join(dir, "broken.json"), []byte("{"))

	tests := []struct {
		name  string
		refs  artifact.Refs
		stage string
	}{
		{name: "missing vectorizer", refs: artifact.Refs{Vectorizer: "nope.json", Classifier: refs.Classifier}, stage: artifact.StageLoadVectorizer},
		{name: "missing classifier", refs: artifact.Refs{Vectorizer: refs.Vectorizer, Classifier: "nope.json"}, stage: artifact.StageLoadClassifier},
		{name: "ref escapes store", refs: artifact.Refs{Vectorizer: "../outside.json", Classifier: refs.Classifier}, stage: artifact.StageLoadVectorizer},
		{name: "broken vectorizer", refs: artifact.Refs{Vectorizer: "broken.json", Classifier: refs.Classifier}, stage: artifact.StageDecodeVectorizer},
		{name: "broken classifier", refs: artifact.Refs{Vectorizer: refs.Vectorizer, Classifier: "broken.json"}, stage: artifact.StageDecodeClassifier},
		{name: "width mismatch", refs: artifact.Refs{Vectorizer: refs.Vectorizer, Classifier: "narrow.json"}, stage: artifact.StageWidth},
		{name: "unknown label", refs: artifact.Refs{Vectorizer: refs.Vectorizer, Classifier: "labels.json"}, stage: artifact.StageLabels},
		{name: "duplicate label", refs: artifact.Refs{Vectorizer: refs.Vectorizer, Classifier: "dup.json"}, stage: artifact.StageLabels},
		{name: "normalizer contract", refs: artifact.Refs{Vectorizer: "old-vectorizer.json", Classifier: refs.Classifier}, stage: artifact.StageNormalizer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bundle, err := artifact.Bind(context.Background(), store, tt.refs)
			require.Nil(t, bundle, "no partial pair")

			var bindErr *artifact.BindingError
			require.ErrorAs(t, err, &bindErr)
			require.Equal(t, tt.stage, bindErr.Stage)
			require.Equal(t, tt.refs, bindErr.Refs)
		})
	}
}

func TestBindMissingArtifactIsNotFound(t *testing.T) {
	_, err := artifact.Bind(context.Background(), artifact.NewFileStore(t.TempDir()), artifact.Refs{Vectorizer: "v.json", Classifier: "c.json"})
	require.ErrorIs(t, err, artifact.ErrNotFound)
}

func TestBindHonoursCanceledContext(t *testing.T) {
	dir := t.TempDir()
	refs := testsupport.WriteArtifacts(t, dir, "v1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := artifact.Bind(ctx, artifact.NewFileStore(dir), refs)
	require.ErrorIs(t, err, context.Canceled)
}

func zeros(n int) string {
	return "[" + strings.TrimSuffix(strings.Repeat("0,", n), ",") + "]"
}
