package model

import (
	"strings"
	"unicode"
)

// Claim represents a single factual assertion submitted for verification.
// Claims are values: build them with NewClaim and never mutate them.
type Claim struct {
	Text       string `json:"text"`       // Original claim text as submitted
	Normalized string `json:"normalized"` // Search form used for queries and cache keys
}

// leadingQuestionWords are stripped from the start of the search form so
// that "Does X cause Y?" and "X causes Y" hit the same cache entries.
var leadingQuestionWords = map[string]bool{
	"does": true, "do": true, "is": true, "are": true, "can": true,
	"could": true, "will": true, "was": true, "were": true, "did": true,
}

// NewClaim builds a claim and its normalized search form
func NewClaim(text string) Claim {
	return Claim{
		Text:       text,
		Normalized: normalizeClaimText(text),
	}
}

// IsEmpty reports whether the claim has no searchable content
func (c Claim) IsEmpty() bool {
	return c.Normalized == ""
}

// normalizeClaimText lowercases, strips punctuation except hyphens and
// decimal points, drops leading question words and collapses whitespace.
func normalizeClaimText(text string) string {
	var b strings.Builder
	runes := []rune(strings.ToLower(text))
	for i, r := range runes {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '-' || r == '%' || r == '>' || r == '<' || r == '=':
			b.WriteRune(r)
		case r == '.' && i > 0 && i+1 < len(runes) && unicode.IsDigit(runes[i-1]) && unicode.IsDigit(runes[i+1]):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}

	words := strings.Fields(b.String())
	for len(words) > 1 && leadingQuestionWords[words[0]] {
		words = words[1:]
	}
	return strings.Join(words, " ")
}
