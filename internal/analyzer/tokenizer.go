package analyzer

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var lowerCaser = cases.Lower(language.Und)

// Tokenize implements the tokenizer contract: lowercase, replace
// characters outside [a-z0-9_\-\s] with a space, split on whitespace runs,
// drop empties, drop stopwords, drop tokens of length <= 1, then stem.
//
// Lowercasing folds through golang.org/x/text/cases so multi-byte input
// degrades gracefully instead of being mangled byte-wise; the tables that
// follow are ASCII-only, matching the closed stopword/stemmer contract.
func Tokenize(text string) []string {
	lowered := lowerCaser.String(text)

	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		if isAllowed(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}

	fields := strings.Fields(b.String())
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if f == "" || IsStopword(f) || len(f) <= 1 {
			continue
		}
		tokens = append(tokens, Stem(f))
	}
	return tokens
}

func isAllowed(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '_' || r == '-':
		return true
	case r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f':
		return true
	default:
		return false
	}
}

// suffixRule is one row of the order-sensitive stemmer table. First match
// wins; the table must stay in this exact order per the stable-contract
// note in the component design.
type suffixRule struct {
	suffix    string
	minLen    int // token must be longer than this to qualify
	transform func(token string) string
}

var suffixRules = []suffixRule{
	{"ies", 4, func(t string) string { return t[:len(t)-3] + "y" }},
	{"ing", 5, dropSuffix(3)},
	{"tion", 5, dropSuffix(4)},
	{"ment", 5, dropSuffix(4)},
	{"ness", 5, dropSuffix(4)},
	{"less", 5, dropSuffix(4)},
	{"able", 5, dropSuffix(4)},
	{"ible", 5, dropSuffix(4)},
	{"ful", 4, dropSuffix(3)},
	{"ed", 4, dropSuffix(2)},
	{"ly", 4, dropSuffix(2)},
	{"er", 4, dropSuffix(2)},
	{"est", 4, dropSuffix(3)},
}

func dropSuffix(n int) func(string) string {
	return func(t string) string { return t[:len(t)-n] }
}

// Stem applies the crude, order-sensitive suffix stripper. It is
// deliberately simple: no lexicon, stable across languages, and the same
// table used on every call is what makes the persisted index reproducible.
func Stem(token string) string {
	for _, rule := range suffixRules {
		if len(token) > rule.minLen && strings.HasSuffix(token, rule.suffix) {
			return rule.transform(token)
		}
	}
	// "s" but not "ss", handled last and separately since its minLen (3)
	// and negative lookahead don't fit the table shape above.
	if len(token) > 3 && strings.HasSuffix(token, "s") && !strings.HasSuffix(token, "ss") {
		return token[:len(token)-1]
	}
	return token
}
