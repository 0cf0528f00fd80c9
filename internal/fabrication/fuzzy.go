package fabrication

import (
	"strings"
	"unicode/utf8"

	"github.com/Surjit27/Clairvox/internal/normalize"
	"github.com/Surjit27/Clairvox/internal/source"
)

// levenshtein returns the edit distance between a and b in runes
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}
	if len(ra) > len(rb) {
		ra, rb = rb, ra
	}

	prev := make([]int, len(ra)+1)
	curr := make([]int, len(ra)+1)
	for i := range prev {
		prev[i] = i
	}

	for j := 1; j <= len(rb); j++ {
		curr[0] = j
		for i := 1; i <= len(ra); i++ {
			if ra[i-1] == rb[j-1] {
				curr[i] = prev[i-1]
			} else {
				curr[i] = 1 + min(prev[i-1], prev[i], curr[i-1])
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(ra)]
}

// words splits text into lowercase words, treating hyphens as separators
// so "gravito-electroencephalography" matches "gravito electroencephalography"
func words(s string) []string {
	var out []string
	for _, tok := range normalize.Tokenize(s) {
		for _, w := range strings.Split(tok, "-") {
			if w != "" {
				out = append(out, w)
			}
		}
	}
	return out
}

// matcher finds near-miss occurrences of one term
type matcher struct {
	term    string
	runes   int
	size    int
	maxDist int
	ratio   float64
}

func newMatcher(term string, maxEditRatio float64) matcher {
	w := words(term)
	joined := strings.Join(w, " ")
	n := utf8.RuneCountInString(joined)
	return matcher{
		term:    joined,
		runes:   n,
		size:    len(w),
		maxDist: max(1, int(float64(n)*maxEditRatio)),
		ratio:   maxEditRatio,
	}
}

// matches reports whether any word window of text is within edit distance
func (m matcher) matches(text string) bool {
	if m.size == 0 {
		return false
	}
	w := words(text)
	for i := 0; i+m.size <= len(w); i++ {
		window := strings.Join(w[i:i+m.size], " ")
		if abs(utf8.RuneCountInString(window)-m.runes) > m.maxDist {
			continue
		}
		if levenshtein(window, m.term) <= m.maxDist {
			return true
		}
	}
	return false
}

// hasComponents reports whether every word of a multi-word term shows up,
// within edit distance, somewhere in text. Real phrases are often reworded
// ("memory consolidation in the hippocampus"), so a term whose parts all
// occur is not fabricated even when the exact phrase is absent.
func (m matcher) hasComponents(text string) bool {
	if m.size < 2 {
		return false
	}
	have := words(text)
	for _, want := range strings.Fields(m.term) {
		if !containsNear(have, want, m.ratio) {
			return false
		}
	}
	return true
}

func containsNear(have []string, want string, ratio float64) bool {
	n := utf8.RuneCountInString(want)
	maxDist := max(1, int(float64(n)*ratio))
	for _, w := range have {
		if abs(utf8.RuneCountInString(w)-n) > maxDist {
			continue
		}
		if levenshtein(w, want) <= maxDist {
			return true
		}
	}
	return false
}

// hits counts the records whose title or abstract mention the term or,
// for multi-word terms, all of its words
func (m matcher) hits(records []source.RawRecord) int {
	n := 0
	for _, r := range records {
		title := normalize.StripMarkup(r.Title)
		abstract := normalize.StripMarkup(r.Abstract)
		if m.matches(title) || m.matches(abstract) || m.hasComponents(title+" "+abstract) {
			n++
		}
	}
	return n
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
