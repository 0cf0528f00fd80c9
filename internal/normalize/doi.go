package normalize

import (
	"regexp"
	"strings"
)

var (
	doiScanPattern  = regexp.MustCompile(`(?i)10\.\d{4,9}/[-._;()/:A-Z0-9]+`)
	doiExactPattern = regexp.MustCompile(`(?i)^10\.\d{4,9}/\S+$`)
)

var doiPrefixes = []string{
	"https://doi.org/",
	"http://doi.org/",
	"https://dx.doi.org/",
	"http://dx.doi.org/",
	"doi.org/",
	"doi:",
}

// CleanDOI strips resolver prefixes and trailing punctuation
func CleanDOI(s string) string {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)
	for _, p := range doiPrefixes {
		if strings.HasPrefix(lower, p) {
			s = strings.TrimSpace(s[len(p):])
			break
		}
	}
	for {
		trimmed := strings.TrimRight(s, ".,;:")
		// A closing parenthesis is only part of the DOI when it is balanced
		if strings.HasSuffix(trimmed, ")") && strings.Count(trimmed, ")") > strings.Count(trimmed, "(") {
			trimmed = strings.TrimSuffix(trimmed, ")")
		}
		if trimmed == s {
			return s
		}
		s = trimmed
	}
}

// ValidDOI reports whether s is a syntactically valid bare DOI
func ValidDOI(s string) bool {
	return doiExactPattern.MatchString(s)
}

// FindDOI scans free text for the first DOI-shaped token
func FindDOI(text string) string {
	match := doiScanPattern.FindString(text)
	if match == "" {
		return ""
	}
	match = CleanDOI(match)
	if !ValidDOI(match) {
		return ""
	}
	return match
}

// ResolveDOI prefers the structured field and falls back to scanning
func ResolveDOI(field string, fallbacks ...string) string {
	if doi := CleanDOI(field); ValidDOI(doi) {
		return doi
	}
	for _, text := range fallbacks {
		if doi := FindDOI(text); doi != "" {
			return doi
		}
	}
	return ""
}
