package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Surjit27/Clairvox/internal/model"
)

// RenderJSON writes v as indented JSON
func RenderJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return nil
}

// RenderSummary writes a short human-readable verdict
func RenderSummary(w io.Writer, r *model.ConfidenceResult) error {
	var b strings.Builder

	fmt.Fprintf(&b, "Claim: %s\n", r.OriginalClaim)
	fmt.Fprintf(&b, "Verdict: %s (%d/100, %s)\n", r.Classification, r.ConfidenceScore, r.ConfidenceColor)
	if r.DataQuality == model.DataQualityPartial {
		b.WriteString("⚠️  Some literature sources were unavailable; the result may be incomplete\n")
	}
	if r.RankingConfidence == model.RankingLow {
		b.WriteString("⚠️  Relevance ranking was approximate or unavailable\n")
	}

	if len(r.Drivers) > 0 {
		b.WriteString("\nDrivers:\n")
		for _, d := range r.Drivers {
			fmt.Fprintf(&b, "  • %s\n", d)
		}
	}

	if len(r.FabricatedTerms) > 0 {
		fmt.Fprintf(&b, "\nFabricated terms: %s\n", strings.Join(r.FabricatedTerms, ", "))
	}

	if len(r.TopEvidence) > 0 {
		b.WriteString("\nTop evidence:\n")
		for i, e := range r.TopEvidence {
			fmt.Fprintf(&b, "  %d. %s [%s, %s]", i+1, e.Title, e.EvidenceType.Label(), e.SourceDatabase)
			if e.RelevanceScore != nil {
				fmt.Fprintf(&b, " relevance %.2f", *e.RelevanceScore)
			}
			b.WriteString("\n")
			if ref := e.Reference(); ref != e.Title {
				fmt.Fprintf(&b, "     %s\n", ref)
			}
		}
	}

	if len(r.Contradictions) > 0 {
		b.WriteString("\nContradictions:\n")
		for _, c := range r.Contradictions {
			fmt.Fprintf(&b, "  ✗ %s (%s)\n", c.Detail, c.Source)
		}
	}

	fmt.Fprintf(&b, "\n%s\n", r.ExplanationPlain)

	if len(r.SuggestedCorrections) > 0 {
		b.WriteString("\nSuggestions:\n")
		for _, s := range r.SuggestedCorrections {
			fmt.Fprintf(&b, "  → %s\n", s)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
