package model

import "time"

// ConfidenceResult is the terminal artifact of a verification
type ConfidenceResult struct {
	OriginalClaim        string               `json:"original_claim"`
	NormalizedClaim      string               `json:"normalized_claim"`
	Classification       Classification       `json:"classification"`
	ConfidenceScore      int                  `json:"confidence_score"` // 0-100
	ConfidenceColor      ColorBand            `json:"confidence_color"`
	Drivers              []string             `json:"drivers"`      // At most 3, strongest first
	TopEvidence          []EvidenceCandidate  `json:"top_evidence"` // At most 3, all above threshold
	FabricatedTerms      []string             `json:"fabricated_terms"`
	ReplicationStatus    ReplicationStatus    `json:"replication_status"`
	Contradictions       []Contradiction      `json:"contradictions"`
	ExplanationPlain     string               `json:"explanation_plain"`
	SuggestedCorrections []string             `json:"suggested_corrections"`
	SearchActions        []SearchAction       `json:"search_actions"`

	VerificationID      string               `json:"verification_id"`
	VerifiedAt          time.Time            `json:"verified_at"`
	DomainViolations    []DomainViolation    `json:"domain_violations,omitempty"`
	FabricationFindings []FabricationFinding `json:"fabrication_findings,omitempty"`
	DataQuality         DataQuality          `json:"data_quality"`
	RankingConfidence   RankingConfidence    `json:"ranking_confidence"`
	Signals             []Signal             `json:"signals,omitempty"` // Transparent scoring breakdown
	EvidenceConsidered  int                  `json:"evidence_considered"`
}

// Classification is the verdict category
type Classification string

const (
	ClassSupported             Classification = "Supported"
	ClassWeaklySupported       Classification = "Weakly Supported"
	ClassUnsupported           Classification = "Unsupported"
	ClassFabricated            Classification = "Fabricated"
	ClassPhysicallyImplausible Classification = "Physically Implausible"
)

// ColorBand is a coarse visual grade derived from the score
type ColorBand string

const (
	ColorGreen  ColorBand = "green"
	ColorYellow ColorBand = "yellow"
	ColorOrange ColorBand = "orange"
	ColorRed    ColorBand = "red"
)

// ColorForScore maps a score to its band: >=75 green, 50-74 yellow,
// 25-49 orange, below 25 red.
func ColorForScore(score int) ColorBand {
	switch {
	case score >= 75:
		return ColorGreen
	case score >= 50:
		return ColorYellow
	case score >= 25:
		return ColorOrange
	default:
		return ColorRed
	}
}

// ReplicationStatus summarizes whether findings were independently reproduced
type ReplicationStatus string

const (
	ReplicationNone         ReplicationStatus = "none"
	ReplicationOriginalOnly ReplicationStatus = "original_only"
	ReplicationPartial      ReplicationStatus = "partial"
	ReplicationReplicated   ReplicationStatus = "replicated"
)

// DataQuality flags whether every consulted source answered
type DataQuality string

const (
	DataQualityComplete DataQuality = "complete"
	DataQualityPartial  DataQuality = "partial"
)

// RankingConfidence drops to low when relevance scoring was unavailable
type RankingConfidence string

const (
	RankingNormal RankingConfidence = "normal"
	RankingLow    RankingConfidence = "low"
)

// Severity of a domain rule violation
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// DomainViolation is a rule hit against established domain knowledge
type DomainViolation struct {
	RuleID   string   `json:"rule_id"`
	Domain   string   `json:"domain"` // physics, neuroscience, statistics, custom
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// IsCritical reports whether the violation forces an implausible verdict
func (v DomainViolation) IsCritical() bool {
	return v.Severity == SeverityCritical
}

// FabricationFinding records the literature lookup for one extracted term
type FabricationFinding struct {
	Term           string       `json:"term"`
	HitCount       int          `json:"hit_count"`
	Fabricated     bool         `json:"fabricated"`
	SearchEvidence []TermSearch `json:"search_evidence"`
}

// TermSearch is a single database lookup for a term
type TermSearch struct {
	Source      SourceDatabase `json:"source"`
	Query       string         `json:"query"`
	ResultCount int            `json:"result_count"`
	FuzzyHits   int            `json:"fuzzy_hits"`
	Status      ActionStatus   `json:"status"`
	Error       string         `json:"error,omitempty"`
}

// SearchStage names the pipeline stage that issued a query
type SearchStage string

const (
	StageFabrication   SearchStage = "fabrication"
	StageEvidence      SearchStage = "evidence"
	StageContradiction SearchStage = "contradiction"
)

// ActionStatus is the outcome of an issued query
type ActionStatus string

const (
	ActionOK        ActionStatus = "ok"
	ActionFailed    ActionStatus = "failed"
	ActionAbandoned ActionStatus = "abandoned"
)

// SearchAction is an audit log entry for one issued query
type SearchAction struct {
	Stage   SearchStage    `json:"stage"`
	Source  SourceDatabase `json:"source"`
	Query   string         `json:"query"`
	Results int            `json:"results"`
	Cached  bool           `json:"cached"`
	Status  ActionStatus   `json:"status"`
	Error   string         `json:"error,omitempty"`
}

// Signal represents a scoring contribution with transparent data
type Signal struct {
	Type         SignalType             `json:"type"`
	Contribution int                    `json:"contribution"` // Signed points added to the score
	Description  string                 `json:"description"`
	Data         map[string]interface{} `json:"data,omitempty"` // Inputs and formula
}

// SignalType classifies a scoring contribution
type SignalType string

const (
	SignalBaseEvidence    SignalType = "base_evidence"    // Strongest eligible item
	SignalUnscoredBase    SignalType = "unscored_evidence" // Strongest item when ranking degraded
	SignalSupportCount    SignalType = "support_count"    // Additional eligible items
	SignalDiversity       SignalType = "source_diversity" // Distinct databases
	SignalReplication     SignalType = "replication"      // Independent reproduction
	SignalContradiction   SignalType = "contradiction"    // Strong refuting evidence
	SignalDomainWarning   SignalType = "domain_warning"   // Non-critical rule hits
	SignalNoEvidence      SignalType = "no_evidence"      // Nothing above threshold
	SignalFabrication     SignalType = "fabrication"      // Fabricated terms detected
	SignalImplausible     SignalType = "implausible"      // Critical domain violation
)
