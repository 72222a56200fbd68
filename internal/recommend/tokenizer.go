package recommend

import (
	"strings"
	"unicode"
)

var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "of": {}, "to": {}, "in": {}, "on": {}, "for": {},
	"with": {}, "by": {}, "from": {}, "is": {}, "are": {}, "was": {}, "were": {}, "be": {}, "as": {},
	"at": {}, "that": {}, "this": {}, "it": {}, "its": {}, "into": {}, "about": {}, "over": {},
	"after": {}, "before": {}, "than": {}, "then": {}, "but": {}, "so": {}, "not": {}, "no": {},
	"up": {}, "down": {},
}

// IsStopWord reports whether term is dropped by Tokenize
func IsStopWord(term string) bool {
	_, ok := stopWords[term]
	return ok
}

// Tokenize splits text into normalized terms: lowercase ASCII letters and
// digits, stop words removed. Order follows the input.
func Tokenize(text string) []string {
	normalized := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, strings.ToLower(text))

	fields := strings.Fields(normalized)
	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		if IsStopWord(field) {
			continue
		}
		tokens = append(tokens, field)
	}
	return tokens
}
