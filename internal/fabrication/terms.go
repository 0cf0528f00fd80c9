package fabrication

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Surjit27/Clairvox/internal/normalize"
)

// TermExtractor picks the technical terms of a claim worth looking up.
// Implementations must be deterministic for identical input.
type TermExtractor interface {
	ExtractCandidateTerms(text string) []string
}

const (
	minRunWords     = 2
	maxRunWords     = 4
	defaultMaxTerms = 6
	longWordRunes   = 9
)

// breakWords end a noun-phrase run without being part of one
var breakWords = map[string]bool{
	// modal
	"may": true, "might": true, "must": true, "could": true, "would": true,
	"should": true, "will": true, "shall": true, "cannot": true,
	// causal and linking verbs
	"cause": true, "causes": true, "caused": true, "causing": true,
	"induce": true, "induces": true, "induced": true,
	"lead": true, "leads": true, "led": true,
	"increase": true, "increases": true, "increased": true,
	"decrease": true, "decreases": true, "decreased": true,
	"reduce": true, "reduces": true, "reduced": true,
	"lower": true, "lowers": true, "raise": true, "raises": true,
	"improve": true, "improves": true, "improved": true,
	"prevent": true, "prevents": true, "prevented": true,
	"enable": true, "enables": true, "enabled": true,
	"allow": true, "allows": true, "allowed": true,
	"use": true, "uses": true, "used": true, "using": true,
	"show": true, "shows": true, "showed": true, "shown": true,
	"make": true, "makes": true, "made": true,
	"help": true, "helps": true, "has": true, "have": true, "had": true,
	"does": true, "do": true, "did": true, "being": true,
	// quantifiers and pronouns
	"all": true, "any": true, "every": true, "some": true, "many": true,
	"most": true, "more": true, "less": true, "than": true, "very": true,
	"also": true, "only": true, "its": true, "their": true, "they": true,
	"which": true, "who": true, "when": true, "where": true, "into": true,
	"across": true, "between": true, "through": true, "about": true,
}

// technicalSuffixes mark coined or domain vocabulary
var technicalSuffixes = []string{
	"ology", "ological", "genic", "genetic", "graphy", "gram", "scopy",
	"itis", "osis", "emia", "omics", "ase", "cyte", "tron",
}

// HeuristicExtractor picks technical-looking terms only: hyphenated
// compounds, acronyms, capitalized names away from a sentence start, and
// noun runs of 2-4 words that contain a long or domain-suffixed word.
// Verb forms (-ing, -ed, -ly and -s verbs) break runs. Everyday phrases
// such as "blood pressure" are left alone: a miss on them says nothing.
type HeuristicExtractor struct {
	MaxTerms int
}

// ExtractCandidateTerms implements TermExtractor
func (e HeuristicExtractor) ExtractCandidateTerms(text string) []string {
	var terms termSet
	for _, clause := range scanClauses(text) {
		var run []token
		flush := func() {
			for len(run) > 0 {
				n := min(len(run), maxRunWords)
				chunk := run[:n]
				run = run[n:]
				switch {
				case n >= minRunWords && anyTechnical(chunk):
					terms.add(joinTokens(chunk))
				case n == 1 && chunk[0].capital:
					terms.add(chunk[0].lower)
				}
			}
		}

		for _, tok := range clause {
			switch {
			case tok.filler():
				flush()
			case tok.hyphenated() || tok.acronym:
				flush()
				terms.add(tok.lower)
			case isVerbForm(tok.lower):
				flush()
			case isSForm(tok.lower) && !tok.capital:
				// A plural head after one modifier ("engram cells"),
				// otherwise the verb of the clause ("consolidation depends").
				if len(run) == 1 {
					run = append(run, tok)
				}
				flush()
			default:
				run = append(run, tok)
			}
		}
		flush()
	}
	return terms.first(e.MaxTerms)
}

// ConceptExtractor keeps every run of 2-4 content words. It is broader
// than HeuristicExtractor and feeds search queries, not fabrication checks.
type ConceptExtractor struct {
	MaxTerms int
}

// ExtractCandidateTerms implements TermExtractor
func (e ConceptExtractor) ExtractCandidateTerms(text string) []string {
	var terms termSet
	var run []string
	flush := func() {
		for len(run) >= minRunWords {
			n := min(len(run), maxRunWords)
			terms.add(strings.Join(run[:n], " "))
			run = run[n:]
		}
		run = nil
	}

	for _, clause := range strings.FieldsFunc(text, isClauseBreak) {
		for _, tok := range normalize.Tokenize(clause) {
			tok = strings.Trim(tok, "-")
			switch {
			case tok == "":
				flush()
			case strings.Contains(tok, "-"):
				flush()
				terms.add(tok)
			case isFiller(tok):
				flush()
			default:
				run = append(run, tok)
			}
		}
		flush()
	}
	return terms.first(e.MaxTerms)
}

type termSet struct {
	list []string
	seen map[string]bool
}

func (s *termSet) add(term string) {
	if s.seen == nil {
		s.seen = make(map[string]bool)
	}
	if !s.seen[term] {
		s.seen[term] = true
		s.list = append(s.list, term)
	}
}

func (s *termSet) first(limit int) []string {
	if limit <= 0 {
		limit = defaultMaxTerms
	}
	if len(s.list) > limit {
		return s.list[:limit]
	}
	return s.list
}

// token is one word of a clause
type token struct {
	lower   string
	capital bool // Capitalized away from a sentence start
	acronym bool
}

func (t token) filler() bool { return isFiller(t.lower) }

func (t token) hyphenated() bool { return strings.Contains(t.lower, "-") }

func (t token) technical() bool { return t.capital || looksTechnical(t.lower) }

// scanClauses splits text into clauses of tokens, remembering which words
// start a sentence so ordinary sentence-initial capitals are not names.
func scanClauses(text string) [][]token {
	var out [][]token
	var cur []token
	cut := func() {
		if len(cur) > 0 {
			out = append(out, cur)
		}
		cur = nil
	}

	initial := true
	for _, field := range strings.Fields(text) {
		start := strings.IndexFunc(field, isWordRune)
		if start < 0 {
			if strings.IndexFunc(field, isClauseBreak) >= 0 {
				cut()
			}
			initial = initial || strings.ContainsAny(field, ".!?")
			continue
		}
		if strings.IndexFunc(field[:start], isClauseBreak) >= 0 {
			cut()
		}
		last := strings.LastIndexFunc(field, isWordRune)
		_, size := utf8.DecodeRuneInString(field[last:])
		core, trail := field[start:last+size], field[last+size:]
		core = strings.TrimSuffix(strings.TrimSuffix(core, "'s"), "’s")

		cur = append(cur, newToken(core, initial))
		initial = false
		if strings.IndexFunc(trail, isClauseBreak) >= 0 {
			cut()
		}
		if strings.ContainsAny(trail, ".!?") {
			initial = true
		}
	}
	cut()
	return out
}

func newToken(word string, initial bool) token {
	var upper, lower int
	for _, r := range word {
		switch {
		case unicode.IsUpper(r):
			upper++
		case unicode.IsLower(r):
			lower++
		}
	}
	first, _ := utf8.DecodeRuneInString(word)
	return token{
		lower:   strings.ToLower(word),
		acronym: upper >= 2 && upper > lower && !strings.Contains(word, "-"),
		capital: !initial && unicode.IsUpper(first) && lower > 0,
	}
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isClauseBreak(r rune) bool {
	return strings.ContainsRune(",;:.!?()[]\"", r)
}

func isFiller(tok string) bool {
	if utf8.RuneCountInString(tok) < 3 || normalize.IsStopword(tok) || breakWords[tok] {
		return true
	}
	for _, r := range tok {
		if unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// isVerbForm catches participles, past tenses and adverbs
func isVerbForm(w string) bool {
	n := utf8.RuneCountInString(w)
	return (n >= 6 && strings.HasSuffix(w, "ing")) ||
		(n >= 5 && strings.HasSuffix(w, "ed")) ||
		(n >= 5 && strings.HasSuffix(w, "ly"))
}

// isSForm reports a word that may be a plural noun or a third-person verb
func isSForm(w string) bool {
	if utf8.RuneCountInString(w) < 4 || !strings.HasSuffix(w, "s") {
		return false
	}
	for _, s := range []string{"ss", "us", "is", "ics"} {
		if strings.HasSuffix(w, s) {
			return false
		}
	}
	return true
}

func looksTechnical(w string) bool {
	if utf8.RuneCountInString(w) >= longWordRunes {
		return true
	}
	for _, r := range w {
		if unicode.IsDigit(r) {
			return true
		}
	}
	for _, s := range technicalSuffixes {
		if len(w) > len(s)+1 && strings.HasSuffix(w, s) {
			return true
		}
	}
	return false
}

func anyTechnical(run []token) bool {
	for _, t := range run {
		if t.technical() {
			return true
		}
	}
	return false
}

func joinTokens(run []token) string {
	parts := make([]string, len(run))
	for i, t := range run {
		parts[i] = t.lower
	}
	return strings.Join(parts, " ")
}
