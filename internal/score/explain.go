package score

import (
	"fmt"
	"strings"

	"github.com/Surjit27/Clairvox/internal/model"
)

const maxSentences = 4

// explain writes a 2-4 sentence plain-language summary
func explain(out Outcome, in Input) string {
	var sentences []string
	peer, other := countByKind(in.Eligible)

	switch out.Classification {
	case model.ClassSupported:
		sentences = append(sentences, fmt.Sprintf("Strong evidence with confidence score %d.", out.Score))
		sentences = append(sentences, supportSentence(peer, other))
	case model.ClassWeaklySupported:
		sentences = append(sentences, fmt.Sprintf("Limited evidence with confidence score %d.", out.Score))
		sentences = append(sentences, supportSentence(peer, other))
	default:
		if len(in.Eligible) == 0 {
			sentences = append(sentences, "No credible evidence found for this claim.")
			sentences = append(sentences, "The claim may be unsupported or require additional research.")
		} else {
			sentences = append(sentences, fmt.Sprintf("Very weak evidence with confidence score %d.", out.Score))
			sentences = append(sentences, supportSentence(peer, other))
		}
	}

	if len(out.TopEvidence) > 0 {
		sentences = append(sentences, "Key evidence: "+describe(out.TopEvidence[0])+".")
	}
	if n := len(in.Contradictions); n > 0 {
		sentences = append(sentences, fmt.Sprintf("%d source(s) in the literature contradict the claim.", n))
	}
	if len(in.Eligible) == 0 && len(in.Unscored) > 0 {
		sentences = append(sentences, fmt.Sprintf("Relevance could not be scored for %d retrieved source(s).", len(in.Unscored)))
	}
	if out.Classification == model.ClassWeaklySupported {
		sentences = append(sentences, "Additional research is needed for definitive conclusions.")
	}

	if len(sentences) > maxSentences {
		sentences = sentences[:maxSentences]
	}
	return strings.Join(sentences, " ")
}

func supportSentence(peer, other int) string {
	switch {
	case peer > 0 && other > 0:
		return fmt.Sprintf("%d peer-reviewed source(s) and %d other source(s) are relevant to this claim.", peer, other)
	case peer > 0:
		return fmt.Sprintf("%d peer-reviewed source(s) are relevant to this claim.", peer)
	case other > 0:
		return fmt.Sprintf("Only %d non-peer-reviewed source(s) are relevant to this claim.", other)
	default:
		return "No relevant sources were found."
	}
}

func countByKind(items []model.EvidenceCandidate) (peer, other int) {
	for _, c := range items {
		if c.EvidenceType.IsPeerReviewedPrimary() {
			peer++
		} else {
			other++
		}
	}
	return peer, other
}

func describe(c model.EvidenceCandidate) string {
	if c.Venue == "" {
		return c.Title
	}
	return fmt.Sprintf("%s (%s)", c.Title, c.Venue)
}

// corrections suggests how the claim could be fixed or qualified
func corrections(out Outcome, in Input) []string {
	var fixes []string

	switch out.Classification {
	case model.ClassPhysicallyImplausible:
		fixes = append(fixes,
			"Revise the claim to align with established scientific principles.",
			"Consult domain experts before repeating this claim.")
		return fixes
	case model.ClassFabricated:
		fixes = append(fixes,
			"Remove fabricated terms: "+strings.Join(in.FabricatedTerms, ", ")+".",
			"Restate the claim using terminology that appears in the published literature.")
		return fixes
	}

	for _, c := range in.Contradictions {
		fixes = append(fixes, "Address the contradicting literature: "+c.Detail+".")
	}
	for _, v := range in.Violations {
		fixes = append(fixes, "Check: "+v.Message+".")
	}

	switch out.Classification {
	case model.ClassUnsupported:
		fixes = append(fixes,
			"Provide specific citations and evidence sources.",
			"Consider revising the claim to be more conservative and evidence-based.")
	case model.ClassWeaklySupported:
		if onlyAnimal(in.Eligible) {
			fixes = append(fixes, "Note that the supporting studies were done in animals; the finding may not generalize to humans.")
		} else {
			fixes = append(fixes, "Qualify the claim to reflect the limited evidence.")
		}
	case model.ClassSupported:
		if len(fixes) == 0 {
			fixes = append(fixes, "Claim appears to be well-supported by available evidence.")
		}
	}
	return fixes
}

func onlyAnimal(items []model.EvidenceCandidate) bool {
	animal := false
	for _, c := range items {
		switch c.EvidenceType {
		case model.EvidencePeerReviewedAnimal:
			animal = true
		case model.EvidencePeerReviewedHuman:
			return false
		}
	}
	return animal
}
