package processing_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/comment-sentiment/internal/models"
	"github.com/DeafMist/comment-sentiment/internal/processing"
)

func comments(texts ...string) []models.RawComment {
	out := make([]models.RawComment, 0, len(texts))
	for _, text := range texts {
		out = append(out, models.RawComment{Text: text})
	}
	return out
}

func TestTopTokens(t *testing.T) {
	batch := comments(
		"great video, great editing",
		"not great",
		"the editing is bad!!!",
	)

	got := processing.TopTokens(batch, 3)
	require.Equal(t, []models.TokenCount{
		{Token: "great", Count: 3},
		{Token: processing.Lemmatize("editing"), Count: 2},
		{Token: "video", Count: 1},
	}, got)
}

func TestTopTokensTiesKeepFirstSeenOrder(t *testing.T) {
	batch := comments("zebra apple", "mango zebra apple")

	got := processing.TopTokens(batch, 10)
	require.Equal(t, []models.TokenCount{
		{Token: processing.Lemmatize("zebra"), Count: 2},
		{Token: processing.Lemmatize("apple"), Count: 2},
		{Token: processing.Lemmatize("mango"), Count: 1},
	}, got)
}

func TestTopTokensLimits(t *testing.T) {
	batch := comments("good good bad", "ugly", "")

	require.Empty(t, processing.TopTokens(batch, 0))
	require.Empty(t, processing.TopTokens(batch, -3))
	require.Empty(t, processing.TopTokens(nil, 5))

	all := processing.TopTokens(batch, 100)
	require.Len(t, all, 3)
	require.Equal(t, "good", all[0].Token)
	require.Equal(t, 2, all[0].Count)
}

func TestTopTokensSharesNormalization(t *testing.T) {
	batch := comments("The movie was NOT good https://spam.example.com", "It's not!!!")

	got := processing.TopTokens(batch, 10)
	tokens := make([]string, 0, len(got))
	for _, tc := range got {
		tokens = append(tokens, tc.Token)
		require.False(t, processing.IsStopword(tc.Token))
	}
	require.Contains(t, tokens, "not")
	require.NotContains(t, tokens, "!!!")
	require.NotContains(t, tokens, "the")
	require.NotContains(t, tokens, "spam")
	require.Equal(t, 2, got[0].Count)
	require.Equal(t, "not", got[0].Token)
}
