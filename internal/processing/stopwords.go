package processing

// negations are never removed or reduced: dropping them inverts meaning.
var negations = map[string]struct{}{
	"not": {}, "no": {}, "nor": {}, "never": {}, "neither": {}, "nobody": {},
	"nothing": {}, "nowhere": {}, "none": {}, "cannot": {},
	"but": {}, "however": {}, "yet": {},
}

// negatedAux maps apostrophe-less negated auxiliaries to the auxiliary;
// normalization emits the auxiliary followed by "not", matching "don't".
var negatedAux = map[string]string{
	"dont": "do", "doesnt": "does", "didnt": "did",
	"isnt": "is", "arent": "are", "wasnt": "was", "werent": "were",
	"hasnt": "has", "havent": "have", "hadnt": "had",
	"couldnt": "could", "wouldnt": "would", "shouldnt": "should",
	"mustnt": "must", "mightnt": "might", "neednt": "need",
	"cant": "can", "wont": "will", "shant": "shall", "aint": "is",
}

// stopwords is the English list the training corpus was cleaned with,
// in apostrophe-free form to match stripSymbols output.
var stopwords = map[string]struct{}{
	"i": {}, "me": {}, "my": {}, "myself": {}, "we": {}, "our": {}, "ours": {}, "ourselves": {},
	"you": {}, "youre": {}, "youve": {}, "youll": {}, "youd": {}, "your": {}, "yours": {},
	"yourself": {}, "yourselves": {}, "he": {}, "him": {}, "his": {}, "himself": {},
	"she": {}, "shes": {}, "her": {}, "hers": {}, "herself": {}, "it": {}, "its": {},
	"itself": {}, "they": {}, "them": {}, "their": {}, "theirs": {}, "themselves": {},
	"what": {}, "which": {}, "who": {}, "whom": {}, "this": {}, "that": {}, "thatll": {},
	"these": {}, "those": {}, "am": {}, "is": {}, "are": {}, "was": {}, "were": {}, "be": {},
	"been": {}, "being": {}, "have": {}, "has": {}, "had": {}, "having": {}, "do": {},
	"does": {}, "did": {}, "doing": {}, "a": {}, "an": {}, "the": {}, "and": {}, "if": {},
	"or": {}, "because": {}, "as": {}, "until": {}, "while": {}, "of": {}, "at": {}, "by": {},
	"for": {}, "with": {}, "about": {}, "against": {}, "between": {}, "into": {},
	"through": {}, "during": {}, "before": {}, "after": {}, "above": {}, "below": {},
	"to": {}, "from": {}, "up": {}, "down": {}, "in": {}, "out": {}, "on": {}, "off": {},
	"over": {}, "under": {}, "again": {}, "further": {}, "then": {}, "once": {}, "here": {},
	"there": {}, "when": {}, "where": {}, "why": {}, "how": {}, "all": {}, "any": {},
	"both": {}, "each": {}, "few": {}, "more": {}, "most": {}, "other": {}, "some": {},
	"such": {}, "only": {}, "own": {}, "same": {}, "so": {}, "than": {}, "too": {},
	"very": {}, "s": {}, "t": {}, "can": {}, "will": {}, "just": {}, "don": {},
	"should": {}, "shouldve": {}, "now": {}, "d": {}, "ll": {}, "m": {}, "o": {}, "re": {},
	"ve": {}, "y": {}, "ain": {}, "aren": {}, "couldn": {}, "didn": {}, "doesn": {},
	"hadn": {}, "hasn": {}, "haven": {}, "isn": {}, "ma": {}, "mightn": {}, "mustn": {},
	"needn": {}, "shan": {}, "shouldn": {}, "wasn": {}, "weren": {}, "won": {}, "wouldn": {},
	"im": {}, "ive": {}, "id": {}, "ill": {}, "hes": {}, "theyre": {}, "weve": {},
}

// IsStopword reports whether tok is dropped by normalization.
// Negation words are never stopwords.
func IsStopword(tok string) bool {
	if _, keep := negations[tok]; keep {
		return false
	}
	_, ok := stopwords[tok]
	return ok
}

// IsNegation reports whether tok is on the negation allow-list.
func IsNegation(tok string) bool {
	_, ok := negations[tok]
	return ok
}
