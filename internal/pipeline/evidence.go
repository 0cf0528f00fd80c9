package pipeline

import (
	"strings"

	"github.com/Surjit27/Clairvox/internal/model"
	"github.com/Surjit27/Clairvox/internal/rerank"
)

// refutationMarkers flag a title that argues against a finding. Hedged
// statistics ("no significant", "no effect") are left out: supporting
// trials report them for secondary outcomes.
var refutationMarkers = []string{
	"no evidence", "debunked", "failed to replicate", "failure to replicate",
	"did not replicate", "not replicated", "refute", "retracted", "retraction",
	"no association", "disproven", "null result",
}

// replicationMarkers flag items reporting an independent reproduction
var replicationMarkers = []string{
	"replicat", "reproducib", "independent study", "independent cohort",
	"meta-analysis", "systematic review",
}

// Dedupe merges items that share an identity key. The first occurrence
// wins; its missing fields are filled from later duplicates.
func Dedupe(items []model.EvidenceCandidate) []model.EvidenceCandidate {
	out := make([]model.EvidenceCandidate, 0, len(items))
	index := make(map[string]int, len(items))
	for _, c := range items {
		key := c.IdentityKey()
		i, ok := index[key]
		if !ok {
			index[key] = len(out)
			out = append(out, c)
			continue
		}
		kept := &out[i]
		if kept.Excerpt == "" {
			kept.Excerpt = c.Excerpt
		}
		if kept.Venue == "" {
			kept.Venue = c.Venue
		}
		if kept.PublicationDate == nil {
			kept.PublicationDate = c.PublicationDate
		}
		if kept.DOI == "" {
			kept.DOI = c.DOI
		}
		if kept.URL == "" {
			kept.URL = c.URL
		}
		if len(kept.Authors) == 0 {
			kept.Authors = c.Authors
		}
	}
	return out
}

// ReplicationStatus grades how often the eligible evidence reports an
// independent reproduction
func ReplicationStatus(eligible []model.EvidenceCandidate) model.ReplicationStatus {
	if len(eligible) == 0 {
		return model.ReplicationNone
	}
	n := 0
	for _, c := range eligible {
		if containsAny(text(c), replicationMarkers) {
			n++
		}
	}
	switch {
	case n >= 2:
		return model.ReplicationReplicated
	case n == 1:
		return model.ReplicationPartial
	default:
		return model.ReplicationOriginalOnly
	}
}

// contradictionFinder separates refuting items from supporting ones
type contradictionFinder struct {
	markers []string
}

func newContradictionFinder(extra []string) contradictionFinder {
	markers := append([]string(nil), refutationMarkers...)
	for _, m := range extra {
		if m = strings.ToLower(strings.TrimSpace(m)); m != "" {
			markers = append(markers, m)
		}
	}
	return contradictionFinder{markers: markers}
}

// refutes looks at the title only. Abstracts routinely negate side
// findings, which says nothing about the headline result.
func (f contradictionFinder) refutes(c model.EvidenceCandidate) bool {
	return containsAny(strings.ToLower(c.Title), f.markers)
}

// split partitions eligible items, preserving order
func (f contradictionFinder) split(eligible []model.EvidenceCandidate) (support, against []model.EvidenceCandidate) {
	for _, c := range eligible {
		if f.refutes(c) {
			against = append(against, c)
		} else {
			support = append(support, c)
		}
	}
	return support, against
}

// mergeContradictions appends items not already present
func mergeContradictions(a, b []model.EvidenceCandidate) []model.EvidenceCandidate {
	seen := make(map[string]bool, len(a)+len(b))
	for _, c := range a {
		seen[c.IdentityKey()] = true
	}
	for _, c := range b {
		if !seen[c.IdentityKey()] {
			seen[c.IdentityKey()] = true
			a = append(a, c)
		}
	}
	rerank.Sort(a)
	return a
}

// withoutKeys drops support items that also appear as contradictions
func withoutKeys(items, drop []model.EvidenceCandidate) []model.EvidenceCandidate {
	if len(drop) == 0 {
		return items
	}
	skip := make(map[string]bool, len(drop))
	for _, c := range drop {
		skip[c.IdentityKey()] = true
	}
	var out []model.EvidenceCandidate
	for _, c := range items {
		if !skip[c.IdentityKey()] {
			out = append(out, c)
		}
	}
	return out
}

func toContradictions(items []model.EvidenceCandidate) []model.Contradiction {
	out := make([]model.Contradiction, 0, len(items))
	for _, c := range items {
		out = append(out, model.Contradiction{
			Source: string(c.SourceDatabase),
			Detail: c.Title,
			DOI:    c.DOI,
		})
	}
	return out
}

func text(c model.EvidenceCandidate) string {
	return strings.ToLower(c.Title + " " + c.Excerpt)
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
