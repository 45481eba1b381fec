package artifact_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/comment-sentiment/internal/artifact"
	"github.com/DeafMist/comment-sentiment/internal/testsupport"
)

func TestBadgerStoreRoundTrip(t *testing.T) {
	store, err := artifact.OpenBadgerStore(filepath.Join(t.TempDir(), "artifacts"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	_, err = store.LoadVectorizer(ctx, "v1")
	require.ErrorIs(t, err, artifact.ErrNotFound)

	require.NoError(t, store.PutVectorizer("v1", []byte(`{"id":"x"}`)))
	require.NoError(t, store.PutClassifier("c1", []byte(`{"id":"y"}`)))
	require.Error(t, store.PutClassifier("", []byte(`{}`)))

	data, err := store.LoadVectorizer(ctx, "v1")
	require.NoError(t, err)
	require.JSONEq(t, `{"id":"x"}`, string(data))

	_, err = store.LoadClassifier(ctx, "v1")
	require.ErrorIs(t, err, artifact.ErrNotFound, "kinds live in separate namespaces")

	vecs, clfs, err := store.Refs()
	require.NoError(t, err)
	require.Equal(t, []string{"v1"}, vecs)
	require.Equal(t, []string{"c1"}, clfs)
}

func TestBindFromBadgerStore(t *testing.T) {
	dir := t.TempDir()
	refs := testsupport.WriteArtifacts(t, dir, "v1")

	store, err := artifact.OpenBadgerStore(filepath.Join(t.TempDir(), "artifacts"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	vecData, err := os.ReadFile(filepath.Join(dir, refs.Vectorizer))
	require.NoError(t, err)
	clfData, err := os.ReadFile(filepath.Join(dir, refs.Classifier))
	require.NoError(t, err)
	require.NoError(t, store.PutVectorizer("prod", vecData))
	require.NoError(t, store.PutClassifier("prod", clfData))

	bundle, err := artifact.Bind(context.Background(), store, artifact.Refs{Vectorizer: "prod", Classifier: "prod"})
	require.NoError(t, err)
	require.Equal(t, "tfidf-v1", bundle.Version.VectorizerID)
}
