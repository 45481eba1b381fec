package processing

import (
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// ContractVersion identifies the normalization steps below. Vectorizer
// artifacts record the contract they were fitted with and binding refuses a
// vectorizer fitted under a different one.
const ContractVersion = "v2"

// maxEmphasis caps runs of '!' and '?' so "!!!!!!!" and "!!!" share a feature.
const maxEmphasis = 3

var contractSteps = []string{
	"nfkc_lowercase",
	"expand_negations",
	"strip_urls",
	"strip_symbols",
	"collapse_whitespace",
	"remove_stopwords",
	"lemmatize",
}

// Contract describes the normalization applied to text before vectorizing.
type Contract struct {
	Version string   `json:"version"`
	Steps   []string `json:"steps"`
}

// CurrentContract returns the contract implemented by Normalize.
func CurrentContract() Contract {
	return Contract{Version: ContractVersion, Steps: slices.Clone(contractSteps)}
}

// Equal reports whether two contracts name the same version and steps.
func (c Contract) Equal(other Contract) bool {
	return c.Version == other.Version && slices.Equal(c.Steps, other.Steps)
}

var apostropheReplacer = strings.NewReplacer("’", "'", "‘", "'", "`", "'")

var contractionReplacer = strings.NewReplacer(
	"can't", "can not",
	"won't", "will not",
	"shan't", "shall not",
	"ain't", "is not",
)

// Normalize maps comment text to the space-separated token string the
// vectorizer consumes. It never fails: text with nothing left after
// stopword removal yields "".
func Normalize(text string) string {
	return strings.Join(Tokens(text), " ")
}

// Tokens returns the normalized tokens of text in order.
func Tokens(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	folded := strings.ToLower(norm.NFKC.String(text))
	folded = expandNegations(folded)
	folded = RemoveURLs(folded)
	folded = stripSymbols(folded)

	fields := strings.Fields(folded)
	out := make([]string, 0, len(fields))
	for _, tok := range fields {
		if isEmphasis(tok) {
			out = append(out, capEmphasis(tok))
			continue
		}
		// "dont" and friends lost their apostrophe before we saw them.
		if aux, ok := negatedAux[tok]; ok {
			out = appendWord(out, aux)
			out = append(out, "not")
			continue
		}
		out = appendWord(out, tok)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func appendWord(out []string, tok string) []string {
	if IsStopword(tok) {
		return out
	}
	base := Lemmatize(tok)
	if base == "" || IsStopword(base) {
		return out
	}
	return append(out, base)
}

// expandNegations rewrites "n't" contractions so the negation becomes its
// own token before apostrophes are stripped.
func expandNegations(s string) string {
	s = contractionReplacer.Replace(apostropheReplacer.Replace(s))
	if !strings.Contains(s, "n't") {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 8)
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		if runes[i] == 'n' && i+2 < len(runes) && runes[i+1] == '\'' && runes[i+2] == 't' &&
			i > 0 && unicode.IsLetter(runes[i-1]) &&
			(i+3 == len(runes) || !unicode.IsLetter(runes[i+3])) {
			b.WriteString(" not")
			i += 2
			continue
		}
		b.WriteRune(runes[i])
	}
	return b.String()
}

// stripSymbols keeps letters, digits and '!'/'?' runs. Apostrophes inside
// words are dropped ("it's" -> "its"); everything else becomes a space.
func stripSymbols(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevEmphasis := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r):
			if prevEmphasis {
				b.WriteByte(' ')
			}
			b.WriteRune(r)
			prevEmphasis = false
		case r == '!' || r == '?':
			if !prevEmphasis {
				b.WriteByte(' ')
			}
			b.WriteRune(r)
			prevEmphasis = true
		case isApostrophe(r):
			// joined
		default:
			b.WriteByte(' ')
			prevEmphasis = false
		}
	}
	return b.String()
}

func isApostrophe(r rune) bool {
	return r == '\'' || r == '’' || r == '‘' || r == '`'
}

func isEmphasis(tok string) bool {
	if tok == "" {
		return false
	}
	for _, r := range tok {
		if r != '!' && r != '?' {
			return false
		}
	}
	return true
}

func capEmphasis(tok string) string {
	if len(tok) > maxEmphasis {
		return tok[:maxEmphasis]
	}
	return tok
}
