package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

// StripMarkup removes HTML and JATS tags and decodes entities
func StripMarkup(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return CollapseSpace(s)
	}

	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return CollapseSpace(s)
	}

	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "jats:title":
				return
			}
		}
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
			buf.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return CollapseSpace(buf.String())
}

// CollapseSpace trims and collapses runs of whitespace
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Tokenize lowercases text and splits it into words. Hyphenated compounds
// stay whole; other punctuation separates words.
func Tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-')
	})
}

// stopwords are ignored when scoring excerpt windows
var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "of": true,
	"in": true, "on": true, "to": true, "for": true, "with": true, "by": true,
	"is": true, "are": true, "was": true, "were": true, "be": true, "been": true,
	"that": true, "this": true, "these": true, "those": true, "it": true,
	"as": true, "at": true, "from": true, "can": true, "not": true, "no": true,
}

// IsStopword reports whether w carries no topical meaning
func IsStopword(w string) bool {
	return stopwords[w]
}

const (
	minExcerptWords = 10
	maxExcerptWords = 25
)

// Excerpt picks the 10-25 word window of text that shares the most words
// with query. Texts shorter than 10 words yield no excerpt.
func Excerpt(text, query string) string {
	words := strings.Fields(text)
	if len(words) < minExcerptWords {
		return ""
	}
	if len(words) <= maxExcerptWords {
		return strings.Join(words, " ")
	}

	queryWords := make(map[string]bool)
	for _, w := range Tokenize(query) {
		if !IsStopword(w) {
			queryWords[w] = true
		}
	}

	matches := make([]int, len(words))
	for i, w := range words {
		for _, tok := range Tokenize(w) {
			if queryWords[tok] {
				matches[i] = 1
				break
			}
		}
	}

	score := 0
	for i := 0; i < maxExcerptWords; i++ {
		score += matches[i]
	}
	best, bestStart := score, 0
	for start := 1; start+maxExcerptWords <= len(words); start++ {
		score += matches[start+maxExcerptWords-1] - matches[start-1]
		if score > best {
			best, bestStart = score, start
		}
	}

	return strings.Join(words[bestStart:bestStart+maxExcerptWords], " ")
}
