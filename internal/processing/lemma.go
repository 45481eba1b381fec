package processing

import (
	"unicode/utf8"

	"github.com/blevesearch/snowballstem"
	"github.com/blevesearch/snowballstem/english"
)

// maxReductions bounds the fixed-point loop; the stemmer never grows a word
// so this is only reached on pathological input.
const maxReductions = 8

var irregular = map[string]string{
	"children": "child",
	"men":      "man",
	"women":    "woman",
	"people":   "person",
	"mice":     "mouse",
	"feet":     "foot",
	"teeth":    "tooth",
	"geese":    "goose",
	"lives":    "life",
	"knives":   "knife",
	"wives":    "wife",
	"leaves":   "leaf",
}

// Lemmatize reduces tok to its base form. Negations are returned unchanged.
// The result is a fixed point: Lemmatize(Lemmatize(x)) == Lemmatize(x).
func Lemmatize(tok string) string {
	current := tok
	for range maxReductions {
		if IsNegation(current) {
			return current
		}
		next := reduce(current)
		if next == current || next == "" {
			return current
		}
		current = next
	}
	return current
}

func reduce(tok string) string {
	if base, ok := irregular[tok]; ok {
		return base
	}
	if utf8.RuneCountInString(tok) < 3 {
		return tok
	}
	env := snowballstem.NewEnv(tok)
	english.Stem(env)
	return env.Current()
}
