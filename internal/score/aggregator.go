// Package score turns reranked evidence and pipeline findings into a
// confidence score, classification and explanation. Everything here is a
// pure function of its input.
package score

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Surjit27/Clairvox/internal/model"
)

const (
	supportBonus       = 5
	supportCap         = 15
	diversityBonus     = 5
	diversityCap       = 10
	replicatedBonus    = 30
	partialBonus       = 15
	contradictionCost  = 70
	warningCost        = 10
	maxTopEvidence     = 3
	maxDrivers         = 3
	supportedScore     = 75
	weaklySupportScore = 50
)

// Input is everything the aggregator considers for one claim
type Input struct {
	Claim           model.Claim
	Eligible        []model.EvidenceCandidate // Reranked at or above threshold
	Unscored        []model.EvidenceCandidate // Ranking degraded
	Replication     model.ReplicationStatus
	Contradictions  []model.Contradiction // Strong contradictions only
	Violations      []model.DomainViolation
	FabricatedTerms []string
}

// Outcome is the verdict for one claim
type Outcome struct {
	Score          int
	Classification model.Classification
	Color          model.ColorBand
	Drivers        []string
	TopEvidence    []model.EvidenceCandidate
	Signals        []model.Signal
	Explanation    string
	Corrections    []string
}

// Aggregator computes confidence outcomes
type Aggregator struct{}

// NewAggregator creates a new aggregator
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Aggregate scores the claim and derives classification, drivers and text
func (a *Aggregator) Aggregate(in Input) Outcome {
	if critical := criticalViolations(in.Violations); len(critical) > 0 {
		return a.implausible(in, critical)
	}
	if len(in.FabricatedTerms) > 0 {
		return a.fabricated(in)
	}

	var signals []model.Signal

	// 1. Base evidence (single strongest item)
	base, baseSignal := a.calculateBase(in.Eligible, in.Unscored)
	if baseSignal.Type != "" {
		signals = append(signals, baseSignal)
	}

	// 2. Support count
	support, supportSignal := a.calculateSupport(in.Eligible)
	if support > 0 {
		signals = append(signals, supportSignal)
	}

	// 3. Source diversity
	diversity, diversitySignal := a.calculateDiversity(in.Eligible)
	if diversity > 0 {
		signals = append(signals, diversitySignal)
	}

	total := min(base+support+diversity, 100)

	// 4. Replication bonus
	if len(in.Eligible) > 0 {
		if bonus, sig := a.calculateReplication(in.Replication); bonus > 0 {
			total += bonus
			signals = append(signals, sig)
		}
	}

	// 5. Contradiction penalty
	for _, c := range in.Contradictions {
		total -= contradictionCost
		signals = append(signals, model.Signal{
			Type:         model.SignalContradiction,
			Contribution: -contradictionCost,
			Description:  "strong contradiction (" + contradictionRef(c) + ")",
			Data: map[string]interface{}{
				"source":  c.Source,
				"detail":  c.Detail,
				"penalty": contradictionCost,
			},
		})
	}

	// 6. Domain warnings
	for _, v := range in.Violations {
		total -= warningCost
		signals = append(signals, model.Signal{
			Type:         model.SignalDomainWarning,
			Contribution: -warningCost,
			Description:  "domain warning: " + v.Message,
			Data: map[string]interface{}{
				"rule_id": v.RuleID,
				"domain":  v.Domain,
				"penalty": warningCost,
			},
		})
	}

	if len(in.Eligible) == 0 {
		signals = append(signals, model.Signal{
			Type:        model.SignalNoEvidence,
			Description: "no credible evidence found",
			Data: map[string]interface{}{
				"unscored": len(in.Unscored),
			},
		})
	}

	score := clamp(total)
	class := classify(score, in)

	out := Outcome{
		Score:          score,
		Classification: class,
		Color:          model.ColorForScore(score),
		Signals:        signals,
		TopEvidence:    topEvidence(in.Eligible),
	}
	out.Drivers = drivers(signals)
	out.Explanation = explain(out, in)
	out.Corrections = corrections(out, in)
	return out
}

func (a *Aggregator) implausible(in Input, critical []model.DomainViolation) Outcome {
	var messages []string
	for _, v := range critical {
		messages = append(messages, v.Message)
	}
	signals := []model.Signal{{
		Type:        model.SignalImplausible,
		Description: "violates " + critical[0].Domain + " constraint: " + critical[0].Message,
		Data: map[string]interface{}{
			"rules":   ruleIDs(critical),
			"formula": "score = 0 on any critical violation",
		},
	}}
	out := Outcome{
		Score:          0,
		Classification: model.ClassPhysicallyImplausible,
		Color:          model.ColorRed,
		Signals:        signals,
		Drivers:        drivers(signals),
		TopEvidence:    []model.EvidenceCandidate{},
	}
	out.Explanation = fmt.Sprintf("The claim conflicts with established domain knowledge: %s. "+
		"No literature search was performed because claims that break physical or statistical constraints cannot be supported by evidence.",
		strings.Join(messages, "; "))
	out.Corrections = corrections(out, in)
	return out
}

func (a *Aggregator) fabricated(in Input) Outcome {
	terms := strings.Join(in.FabricatedTerms, ", ")
	signals := []model.Signal{{
		Type:        model.SignalFabrication,
		Description: "no literature mentions: " + terms,
		Data: map[string]interface{}{
			"terms":   in.FabricatedTerms,
			"formula": "score = 0 when any term has zero hits across all sources",
		},
	}}
	out := Outcome{
		Score:          0,
		Classification: model.ClassFabricated,
		Color:          model.ColorRed,
		Signals:        signals,
		Drivers:        drivers(signals),
		TopEvidence:    []model.EvidenceCandidate{},
	}
	out.Explanation = fmt.Sprintf("No peer-reviewed or indexed literature mentions the terms: %s. "+
		"The claim appears to rely on fabricated terminology, so no evidence search was performed.", terms)
	out.Corrections = corrections(out, in)
	return out
}

// calculateBase returns the weight of the single strongest item. Unscored
// items count at half weight and only when they beat the scored base.
func (a *Aggregator) calculateBase(eligible, unscored []model.EvidenceCandidate) (int, model.Signal) {
	best, bestWeight := strongest(eligible)
	weak, weakWeight := strongest(unscored)
	weakWeight /= 2

	if weak != nil && weakWeight > bestWeight {
		return weakWeight, model.Signal{
			Type:         model.SignalUnscoredBase,
			Contribution: weakWeight,
			Description:  "unranked " + weak.EvidenceType.Label() + " (" + weak.Reference() + ")",
			Data: map[string]interface{}{
				"evidence_type": weak.EvidenceType,
				"weight":        weak.EvidenceType.Weight(),
				"score":         weakWeight,
				"formula":       "type_weight / 2 when relevance could not be scored",
			},
		}
	}
	if best == nil {
		return 0, model.Signal{}
	}
	return bestWeight, model.Signal{
		Type:         model.SignalBaseEvidence,
		Contribution: bestWeight,
		Description:  best.EvidenceType.Label() + " (" + best.Reference() + ")",
		Data: map[string]interface{}{
			"evidence_type": best.EvidenceType,
			"relevance":     best.Relevance(),
			"score":         bestWeight,
			"formula":       "max(type_weight) over eligible evidence",
		},
	}
}

func (a *Aggregator) calculateSupport(eligible []model.EvidenceCandidate) (int, model.Signal) {
	extra := len(eligible) - 1
	if extra <= 0 {
		return 0, model.Signal{}
	}
	score := min(extra*supportBonus, supportCap)
	return score, model.Signal{
		Type:         model.SignalSupportCount,
		Contribution: score,
		Description:  fmt.Sprintf("%d additional supporting source(s)", extra),
		Data: map[string]interface{}{
			"eligible": len(eligible),
			"score":    score,
			"formula":  "min((eligible - 1) * 5, 15)",
		},
	}
}

func (a *Aggregator) calculateDiversity(eligible []model.EvidenceCandidate) (int, model.Signal) {
	dbs := make(map[model.SourceDatabase]bool)
	for _, c := range eligible {
		dbs[c.SourceDatabase] = true
	}
	extra := len(dbs) - 1
	if extra <= 0 {
		return 0, model.Signal{}
	}
	score := min(extra*diversityBonus, diversityCap)
	return score, model.Signal{
		Type:         model.SignalDiversity,
		Contribution: score,
		Description:  fmt.Sprintf("found in %d independent databases", len(dbs)),
		Data: map[string]interface{}{
			"databases": len(dbs),
			"score":     score,
			"formula":   "min((distinct_databases - 1) * 5, 10)",
		},
	}
}

func (a *Aggregator) calculateReplication(status model.ReplicationStatus) (int, model.Signal) {
	var bonus int
	var desc string
	switch status {
	case model.ReplicationReplicated:
		bonus, desc = replicatedBonus, "independently replicated"
	case model.ReplicationPartial:
		bonus, desc = partialBonus, "partially replicated"
	default:
		return 0, model.Signal{}
	}
	return bonus, model.Signal{
		Type:         model.SignalReplication,
		Contribution: bonus,
		Description:  desc,
		Data: map[string]interface{}{
			"status": status,
			"score":  bonus,
		},
	}
}

// strongest returns the highest-weight item; earlier items win ties
func strongest(items []model.EvidenceCandidate) (*model.EvidenceCandidate, int) {
	var best *model.EvidenceCandidate
	weight := 0
	for i := range items {
		if w := items[i].EvidenceType.Weight(); best == nil || w > weight {
			best, weight = &items[i], w
		}
	}
	return best, weight
}

func classify(score int, in Input) model.Classification {
	switch {
	case score >= supportedScore:
		return model.ClassSupported
	case score >= weaklySupportScore:
		return model.ClassWeaklySupported
	}
	if len(in.Contradictions) == 0 {
		for _, c := range in.Eligible {
			if c.EvidenceType.IsPeerReviewedPrimary() {
				return model.ClassWeaklySupported
			}
		}
	}
	return model.ClassUnsupported
}

// topEvidence keeps the best eligible items by relevance then type weight
func topEvidence(eligible []model.EvidenceCandidate) []model.EvidenceCandidate {
	items := make([]model.EvidenceCandidate, len(eligible))
	copy(items, eligible)
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Relevance() != items[j].Relevance() {
			return items[i].Relevance() > items[j].Relevance()
		}
		return items[i].EvidenceType.Weight() > items[j].EvidenceType.Weight()
	})
	if len(items) > maxTopEvidence {
		items = items[:maxTopEvidence]
	}
	return items
}

// drivers phrases the verdict signals first, then the largest contributions
func drivers(signals []model.Signal) []string {
	var ranked []model.Signal
	for _, s := range signals {
		if s.Contribution != 0 || isVerdict(s.Type) {
			ranked = append(ranked, s)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		vi, vj := isVerdict(ranked[i].Type), isVerdict(ranked[j].Type)
		if vi != vj {
			return vi
		}
		return abs(ranked[i].Contribution) > abs(ranked[j].Contribution)
	})
	if len(ranked) > maxDrivers {
		ranked = ranked[:maxDrivers]
	}

	out := make([]string, 0, len(ranked))
	for _, s := range ranked {
		if s.Contribution == 0 {
			out = append(out, s.Description)
			continue
		}
		out = append(out, fmt.Sprintf("%+d %s", s.Contribution, s.Description))
	}
	return out
}

func isVerdict(t model.SignalType) bool {
	return t == model.SignalImplausible || t == model.SignalFabrication || t == model.SignalNoEvidence
}

func criticalViolations(vs []model.DomainViolation) []model.DomainViolation {
	var out []model.DomainViolation
	for _, v := range vs {
		if v.IsCritical() {
			out = append(out, v)
		}
	}
	return out
}

func ruleIDs(vs []model.DomainViolation) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.RuleID)
	}
	return out
}

func contradictionRef(c model.Contradiction) string {
	if c.DOI != "" {
		return "doi: " + c.DOI
	}
	return c.Source
}

func clamp(score int) int {
	return max(0, min(100, score))
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
