package match

import (
	"sort"
	"strings"
)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"by": {}, "did": {}, "do": {}, "does": {}, "for": {}, "from": {},
	"has": {}, "have": {}, "how": {}, "in": {}, "is": {}, "it": {},
	"its": {}, "name": {}, "of": {}, "on": {}, "or": {}, "that": {},
	"the": {}, "this": {}, "to": {}, "was": {}, "were": {}, "what": {},
	"when": {}, "where": {}, "which": {}, "who": {}, "whom": {},
	"why": {}, "with": {},
}

// Signature builds an order-independent token fingerprint of a question.
// Two paraphrases of the same question collapse onto the same signature:
// lower-cased, punctuation stripped, stop words dropped, trailing plural
// endings trimmed, tokens sorted and joined.
func Signature(question string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(question) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == ' ' {
			sb.WriteRune(r)
		} else {
			sb.WriteRune(' ')
		}
	}

	tokens := make([]string, 0, 8)
	for _, tok := range strings.Fields(sb.String()) {
		if _, skip := stopWords[tok]; skip {
			continue
		}
		tokens = append(tokens, singular(tok))
	}
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// singular trims the common English plural endings. Good enough for
// fingerprinting, not a stemmer.
func singular(tok string) string {
	switch {
	case len(tok) > 4 && strings.HasSuffix(tok, "ies"):
		return tok[:len(tok)-3] + "y"
	case len(tok) > 4 && strings.HasSuffix(tok, "es"):
		return tok[:len(tok)-2]
	case len(tok) > 3 && strings.HasSuffix(tok, "s") && !strings.HasSuffix(tok, "ss"):
		return tok[:len(tok)-1]
	}
	return tok
}
