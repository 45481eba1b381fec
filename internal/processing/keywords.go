package processing

import (
	"sort"
	"unicode/utf8"

	"github.com/samber/lo"

	"github.com/DeafMist/comment-sentiment/internal/models"
)

// TopTokens returns the most frequent normalized tokens across comments,
// the input of the word cloud. Counts are descending; ties keep the order in
// which tokens were first seen. Emphasis tokens ("!!!") are not words and are
// left out. A non-positive limit yields an empty profile.
func TopTokens(comments []models.RawComment, limit int) []models.TokenCount {
	if limit <= 0 || len(comments) == 0 {
		return []models.TokenCount{}
	}

	freq := make(map[string]int)
	var order []string
	for _, c := range comments {
		if !utf8.ValidString(c.Text) {
			continue
		}
		for _, tok := range Tokens(c.Text) {
			if isEmphasis(tok) {
				continue
			}
			if _, seen := freq[tok]; !seen {
				order = append(order, tok)
			}
			freq[tok]++
		}
	}

	pairs := lo.Map(order, func(tok string, _ int) models.TokenCount {
		return models.TokenCount{Token: tok, Count: freq[tok]}
	})

	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].Count > pairs[j].Count
	})

	if limit < len(pairs) {
		pairs = pairs[:limit]
	}
	return pairs
}
