package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/comment-sentiment/internal/artifact"
	"github.com/DeafMist/comment-sentiment/internal/models"
	"github.com/DeafMist/comment-sentiment/internal/testsupport"
	"github.com/DeafMist/comment-sentiment/internal/vectorizer"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func fsArgs(dir string, refs artifact.Refs) []string {
	return []string{"--store", "fs", "--dir", dir, "--vectorizer", refs.Vectorizer, "--classifier", refs.Classifier}
}

func TestInspect(t *testing.T) {
	dir := t.TempDir()
	refs := testsupport.WriteArtifacts(t, dir, "c1")

	out, err := runCLI(t, append([]string{"inspect"}, fsArgs(dir, refs)...)...)
	require.NoError(t, err)
	require.Contains(t, out, "logreg-c1")
	require.Contains(t, out, "tfidf-c1")
	require.Contains(t, out, "Negative, Neutral, Positive")

	out, err = runCLI(t, append([]string{"inspect", "--json"}, fsArgs(dir, refs)...)...)
	require.NoError(t, err)
	var v artifact.Version
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	require.Equal(t, refs.Classifier, v.ClassifierRef)
}

func TestInspectMissingArtifacts(t *testing.T) {
	_, err := runCLI(t, append([]string{"inspect"}, fsArgs(t.TempDir(), artifact.Refs{Vectorizer: "v.json", Classifier: "c.json"})...)...)
	require.ErrorIs(t, err, artifact.ErrNotFound)
}

func TestPredict(t *testing.T) {
	dir := t.TempDir()
	refs := testsupport.WriteArtifacts(t, dir, "c1")
	input := filepath.Join(dir, "comments.json")
	testsupport.WriteFile(t, input, []byte(`{"comments":[{"text":"terrible, never again"}]}`))

	args := append([]string{"predict", "--json", "-t", "I love this!", "-t", "", "-i", input}, fsArgs(dir, refs)...)
	out, err := runCLI(t, args...)
	require.NoError(t, err)

	var rows []predictionRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 3)
	require.Equal(t, models.Positive, rows[0].Label)
	require.Equal(t, models.Neutral, rows[1].Label)
	require.Equal(t, models.Negative, rows[2].Label)

	out, err = runCLI(t, append([]string{"predict", "-t", "I love this!"}, fsArgs(dir, refs)...)...)
	require.NoError(t, err)
	require.Contains(t, out, "Positive")
	require.Contains(t, out, "100.0%")
}

func TestPredictNeedsInput(t *testing.T) {
	_, err := runCLI(t, "predict")
	require.ErrorContains(t, err, "--input")
}

func TestImportAndRefs(t *testing.T) {
	dir := t.TempDir()
	refs := testsupport.WriteArtifacts(t, dir, "c1")
	db := filepath.Join(dir, "db")

	out, err := runCLI(t, "import", "--badger", db,
		"--vectorizer", "tfidf-v1", "--vectorizer-file", filepath.Join(dir, refs.Vectorizer),
		"--classifier", "logreg-v1", "--classifier-file", filepath.Join(dir, refs.Classifier),
	)
	require.NoError(t, err)
	require.Contains(t, out, "Imported vectorizer tfidf-c1 as tfidf-v1")
	require.Contains(t, out, "Imported classifier logreg-c1 as logreg-v1")

	out, err = runCLI(t, "refs", "--badger", db)
	require.NoError(t, err)
	require.Contains(t, out, "tfidf-v1")
	require.Contains(t, out, "logreg-v1")

	out, err = runCLI(t, "inspect", "--store", "badger", "--badger", db, "--vectorizer", "tfidf-v1", "--classifier", "logreg-v1")
	require.NoError(t, err)
	require.Contains(t, out, "logreg-c1")
}

func TestImportRejectsInvalidArtifact(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	testsupport.WriteFile(t, bad, []byte(`{"id":"x","type":"svm"}`))

	_, err := runCLI(t, "import", "--badger", filepath.Join(dir, "db"), "--classifier", "x", "--classifier-file", bad)
	require.Error(t, err)
}

func TestFitVectorizer(t *testing.T) {
	dir := t.TempDir()
	corpus := filepath.Join(dir, "corpus.txt")
	testsupport.WriteFile(t, corpus, []byte(strings.Join(testsupport.Corpus, "\n")+"\n\n"))
	output := filepath.Join(dir, "vectorizer.json")

	out, err := runCLI(t, "fit-vectorizer", "--corpus", corpus, "-o", output, "--id", "tfidf-cli", "--ngram-max", "2")
	require.NoError(t, err)
	require.Contains(t, out, "tfidf-cli")

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	vec, err := vectorizer.Decode(data)
	require.NoError(t, err)
	minN, maxN := vec.NGramRange()
	require.Equal(t, 1, minN)
	require.Equal(t, 2, maxN)
	_, ok := vec.Index("not good")
	require.True(t, ok)
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "short text", truncate("short \n text", 20))
	require.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
