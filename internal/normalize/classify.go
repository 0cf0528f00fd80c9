package normalize

import (
	"strings"

	"github.com/Surjit27/Clairvox/internal/model"
	"github.com/Surjit27/Clairvox/internal/source"
)

var humanMarkers = []string{
	"human", "humans", "patient", "patients", "participant", "participants",
	"volunteer", "volunteers", "adults", "children", "clinical trial",
	"randomized", "randomised", "cohort", "men", "women", "mesh:humans",
}

var animalMarkers = []string{
	"mice", "mouse", "rat", "rats", "murine", "rodent", "rodents", "zebrafish",
	"macaque", "macaques", "monkey", "monkeys", "drosophila", "c elegans",
	"animal model", "mesh:animals", "mesh:mice", "mesh:rats",
}

// Classify assigns an evidence type from the record's database, declared
// types and content. It never guesses: undecidable records are unknown.
func Classify(raw source.RawRecord, content string) model.EvidenceType {
	types := make([]string, 0, len(raw.Types))
	for _, t := range raw.Types {
		types = append(types, strings.ToLower(strings.TrimSpace(t)))
	}

	switch {
	case hasType(types, "news", "newspaper-article", "news-item"):
		return model.EvidenceNews
	case hasType(types, "proceedings-article", "proceedings", "conference paper", "conference-paper"):
		return model.EvidenceConference
	}

	preprint := raw.Source == model.SourceArXiv && raw.JournalRef == "" ||
		strings.EqualFold(raw.Origin, "PPR") ||
		hasType(types, "posted-content", "preprint")

	subject := subjectOf(types, content)
	switch {
	case preprint:
		return model.EvidencePreprint
	case raw.Source == model.SourceArXiv:
		// Published version of a preprint; keep preprint weight unless the
		// subject shows a primary study.
		if subject != model.EvidenceUnknown {
			return subject
		}
		return model.EvidencePreprint
	case isPeerReviewed(raw, types):
		return subject
	default:
		return model.EvidenceUnknown
	}
}

func isPeerReviewed(raw source.RawRecord, types []string) bool {
	switch raw.Source {
	case model.SourceCrossRef:
		return hasType(types, "journal-article")
	case model.SourceEuropePMC:
		return strings.EqualFold(raw.Origin, "MED") || strings.EqualFold(raw.Origin, "PMC") ||
			hasType(types, "journal article", "research-article")
	default:
		return false
	}
}

// subjectOf decides human versus animal; human wins when both appear
func subjectOf(types []string, content string) model.EvidenceType {
	words := " " + strings.Join(Tokenize(content), " ") + " "
	tags := " " + strings.Join(types, " ") + " "

	found := func(markers []string) bool {
		for _, m := range markers {
			if strings.HasPrefix(m, "mesh:") {
				if strings.Contains(tags, " "+m+" ") {
					return true
				}
				continue
			}
			if strings.Contains(words, " "+m+" ") {
				return true
			}
		}
		return false
	}

	switch {
	case found(humanMarkers):
		return model.EvidencePeerReviewedHuman
	case found(animalMarkers):
		return model.EvidencePeerReviewedAnimal
	default:
		return model.EvidenceUnknown
	}
}

func hasType(types []string, wanted ...string) bool {
	for _, t := range types {
		for _, w := range wanted {
			if t == w {
				return true
			}
		}
	}
	return false
}
