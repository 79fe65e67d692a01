package nlu

import "strings"

// contractions are expanded after lowercasing, keyed by whole token.
var contractions = map[string]string{
	"what's":  "what is",
	"where's": "where is",
	"when's":  "when is",
	"how's":   "how is",
	"it's":    "it is",
	"that's":  "that is",
	"there's": "there is",
	"i'm":     "i am",
	"i'll":    "i will",
	"i've":    "i have",
	"won't":   "will not",
	"can't":   "cannot",
	"don't":   "do not",
	"doesn't": "does not",
	"isn't":   "is not",
	"let's":   "let us",
}

const punctuationCutset = ".,!?;:\"'"

// Normalize lowercases the utterance, expands contractions, strips leading
// and trailing punctuation from each token, and collapses whitespace.
// It is total (never fails) and idempotent: Normalize(Normalize(s)) ==
// Normalize(s). Empty input yields an empty string.
func Normalize(text string) string {
	return strings.Join(Tokenize(text), " ")
}

// Tokenize returns the normalized token sequence for an utterance. Empty
// input yields an empty (nil) sequence.
func Tokenize(text string) []string {
	fields := strings.Fields(strings.ToLower(text))

	var tokens []string
	for _, f := range fields {
		if exp, ok := contractions[f]; ok {
			tokens = append(tokens, strings.Fields(exp)...)
			continue
		}
		f = strings.Trim(f, punctuationCutset)
		if exp, ok := contractions[f]; ok {
			// "what's?" trims to "what's" before expansion
			tokens = append(tokens, strings.Fields(exp)...)
			continue
		}
		if f != "" {
			tokens = append(tokens, f)
		}
	}
	return tokens
}
