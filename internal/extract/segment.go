// Package extract turns an answer text into the claims worth verifying.
package extract

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

const (
	minClaimWords = 6
	maxClaimRunes = 500
)

// abbreviations that end in a period without ending the sentence
var abbreviations = map[string]bool{
	"e.g.": true, "i.e.": true, "et al.": true, "vs.": true, "dr.": true,
	"fig.": true, "approx.": true, "ca.": true, "no.": true,
}

// Segment splits an answer into claim sentences. HTML input is reduced to
// its visible text first. Questions and fragments of five words or fewer
// are skipped; duplicates keep their first position.
func Segment(answer string) []string {
	return segment(answer, looksLikeHTML(answer))
}

// SegmentPage splits a fetched answer page, parsing it as HTML when the
// server says so
func SegmentPage(page *FetchResult) []string {
	return segment(page.Body, page.IsHTML())
}

func segment(answer string, isHTML bool) []string {
	text := answer
	if isHTML {
		if doc, err := html.Parse(strings.NewReader(answer)); err == nil {
			text = visibleText(doc)
		}
	}

	var claims []string
	seen := make(map[string]bool)
	for _, sentence := range splitSentences(text) {
		if !isClaim(sentence) {
			continue
		}
		key := strings.ToLower(sentence)
		if seen[key] {
			continue
		}
		seen[key] = true
		claims = append(claims, sentence)
	}
	return claims
}

func isClaim(sentence string) bool {
	if strings.HasSuffix(sentence, "?") {
		return false
	}
	if len([]rune(sentence)) > maxClaimRunes {
		return false
	}
	return len(strings.Fields(sentence)) >= minClaimWords
}

func looksLikeHTML(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "<") && strings.Contains(s, ">")
}

// visibleText extracts text nodes, skipping scripts and styles. Block
// elements end a sentence.
func visibleText(n *html.Node) string {
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe", "nav", "footer":
				return
			}
		}

		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}

		if n.Type == html.ElementNode && isBlock(n.Data) {
			buf.WriteString("\n\n")
		}
	}

	walk(n)
	return buf.String()
}

func isBlock(tag string) bool {
	switch tag {
	case "p", "li", "div", "h1", "h2", "h3", "h4", "h5", "h6", "td", "blockquote", "br", "section", "article":
		return true
	}
	return false
}

// splitSentences breaks text on terminators followed by whitespace and
// on blank lines
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	emit := func() {
		s := strings.Join(strings.Fields(current.String()), " ")
		s = strings.TrimLeftFunc(s, func(r rune) bool { return r == '-' || r == '*' || r == '•' || unicode.IsSpace(r) })
		if s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if r == '\n' && i+1 < len(runes) && runes[i+1] == '\n' {
			emit()
			continue
		}
		current.WriteRune(r)

		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if r == '.' && endsWithAbbreviation(current.String()) {
			continue
		}
		emit()
	}
	emit()
	return sentences
}

func endsWithAbbreviation(s string) bool {
	lower := strings.ToLower(s)
	for abbr := range abbreviations {
		if strings.HasSuffix(lower, " "+abbr) || lower == abbr {
			return true
		}
	}
	return false
}
