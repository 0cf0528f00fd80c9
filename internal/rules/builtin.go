package rules

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Surjit27/Clairvox/internal/model"
)

var (
	reFasterThanLight = regexp.MustCompile(`faster[\s-]+than[\s-]+(the\s+speed\s+of\s+)?light|superluminal\s+(signal|signaling|signalling|communication|travel|information|messages?)`)

	reInstantTransfer = []*regexp.Regexp{
		regexp.MustCompile(`instant(aneous)?(ly)?\s+(\w+\s+){0,2}(information|knowledge|signal|signals|message|messages|data|thought|thoughts)\s+(transfer|transmission|transport|exchange|travel|communication|sharing)`),
		regexp.MustCompile(`(information|knowledge|signals?|messages?|data)\s+(\w+\s+){0,3}(transferred|transmitted|sent|travels?|moves?|propagates?)\s+(\w+\s+){0,3}instant(aneous)?ly`),
		regexp.MustCompile(`instant(aneous)?(ly)?\s+(communication|teleportation\s+of\s+information)\s+(across|over|at)\s+(any|all|arbitrary|infinite|unlimited)\s+distances?`),
	}

	reNoCommunication = []*regexp.Regexp{
		regexp.MustCompile(`entangle\w*\s+(\w+\s+){0,6}(to\s+)?(send|sends|sending|transmit\w*|communicat\w*|signal\w*)\s+(\w+\s+){0,3}(messages?|information|data|signals?|bits?)`),
		regexp.MustCompile(`(send|sends|sending|transmit\w*)\s+(\w+\s+){0,5}(via|using|through|with)\s+(quantum\s+)?entangle\w*`),
	}

	rePerpetualMotion = regexp.MustCompile(`perpetual[\s-]+motion|over[\s-]?unity\s+(device|engine|generator|machine)`)

	reEnergyViolation = []*regexp.Regexp{
		regexp.MustCompile(`(energy|power|electricity)\s+(\w+\s+){0,2}from\s+nothing`),
		regexp.MustCompile(`(violat\w*|break\w*|defy|defies|defying|overcom\w*)\s+(\w+\s+){0,3}(conservation\s+of\s+energy|(first|second)\s+law\s+of\s+thermodynamics|laws?\s+of\s+thermodynamics|thermodynamics)`),
		regexp.MustCompile(`(produces?|generates?|outputs?)\s+more\s+energy\s+than\s+(it\s+)?(consumes|uses|receives|takes\s+in)`),
	}

	reMemoryTransfer = []*regexp.Regexp{
		regexp.MustCompile(`(instant\w*|direct\w*)\s+(\w+\s+){0,2}memor(y|ies)\s+(\w+\s+)?(transfer|transfers|upload|uploads|download|downloads|sharing|implant\w*)`),
		regexp.MustCompile(`memor(y|ies)\s+(\w+\s+){0,2}(can\s+be\s+)?(transferred|uploaded|downloaded|copied|shared)\s+(\w+\s+){0,2}(directly|instantly|instantaneously)?\s*(between|from|into)\s+(\w+\s+){0,2}(people|humans|persons|individuals|minds|human\s+brains)`),
		regexp.MustCompile(`consciousness\s+(\w+\s+){0,3}upload\w*\s+(\w+\s+){0,3}without\s+(any\s+)?(technology|hardware|devices?)`),
	}

	reTelepathy = regexp.MustCompile(`telepath\w*|mind[\s-]to[\s-]mind\s+communication\s+without`)

	reMindReading = []*regexp.Regexp{
		regexp.MustCompile(`read(s|ing)?\s+(\w+\s+){0,2}(minds?|thoughts)\s+directly`),
		regexp.MustCompile(`directly\s+read\w*\s+(\w+\s+){0,2}(minds?|thoughts)`),
	}

	reCorrelationWords = regexp.MustCompile(`correlation(\s+coefficient)?\s+(\w+\s+){0,2}(greater|larger|higher|more)\s+than\s+(1|one)\b`)
	reCorrelationValue = regexp.MustCompile(`correlation(?:\s+coefficient)?\s*(of|was|is|=|:|equals?|reached|reaching)?\s*([+-]?\d+(?:\.\d+)?)`)
	reRValue           = regexp.MustCompile(`\br\s*(=|:)\s*([+-]?\d+(?:\.\d+)?)`)

	reProbabilityWords   = regexp.MustCompile(`(probability|likelihood)\s+(\w+\s+){0,3}(greater|larger|higher|more)\s+than\s+(1|one|100\s*%|100\s+percent)\b`)
	reProbabilityValue   = regexp.MustCompile(`(?:probability|likelihood)(?:\s+of(?:\s+\w+){1,3})?\s*(is|was|=|:|equals?|of)\s*(\d+(?:\.\d+)?)\s*(%|percent)?`)
	rePercentProbability = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:%|percent)\s+(?:probability|chance|likelihood)`)

	// Negations around a match turn an impossible claim into a true one
	reNegationBefore = regexp.MustCompile(`\b(no|not|nothing|never|cannot|can't|impossible|neither|nor|no one)\b`)
	reNegationAfter  = regexp.MustCompile(`\b(impossible|not possible|cannot|can't|is not|isn't|are not|aren't|does not|doesn't|do not|don't|forbidden|debunked|myth|pseudoscience)\b`)

	reNegativeSpread = []*regexp.Regexp{
		regexp.MustCompile(`negative\s+(variance|standard\s+deviation)`),
		regexp.MustCompile(`(variance|standard\s+deviation|\bsd)\s*(of|was|is|=|:)?\s*-\s*\d`),
		regexp.MustCompile(`(variance|standard\s+deviation)\s+(\w+\s+){0,2}(below|less\s+than)\s+zero`),
	}

	rePrecisePercent  = regexp.MustCompile(`\b\d+\.\d{3,}\s*(%|percent)`)
	reUncertainty     = regexp.MustCompile(`\bci\b|confidence\s+interval|±|\+/-|\binterval\b|\brange\b|\bse\b|standard\s+error`)
	reAbsoluteCertain = regexp.MustCompile(`100\s*(%|percent)\s+(effective|accurate|safe|successful|cure|guaranteed)`)
)

// BuiltinRules returns the physics, neuroscience and statistics rules
func BuiltinRules() []Rule {
	return []Rule{
		{
			ID:       "physics.faster-than-light",
			Domain:   "physics",
			Severity: model.SeverityCritical,
			Message:  "Claims faster-than-light travel or signaling, which special relativity forbids",
			Match:    affirmed(reFasterThanLight),
		},
		{
			ID:       "physics.instantaneous-transfer",
			Domain:   "physics",
			Severity: model.SeverityCritical,
			Message:  "Claims instantaneous transfer of information, which would exceed the speed of light",
			Match:    affirmed(reInstantTransfer...),
		},
		{
			ID:       "physics.no-communication",
			Domain:   "physics",
			Severity: model.SeverityCritical,
			Message:  "Claims entanglement can carry messages, contradicting the no-communication theorem",
			Match:    affirmed(reNoCommunication...),
		},
		{
			ID:       "physics.perpetual-motion",
			Domain:   "physics",
			Severity: model.SeverityCritical,
			Message:  "Claims a perpetual motion machine, which thermodynamics rules out",
			Match:    affirmed(rePerpetualMotion),
		},
		{
			ID:       "physics.energy-conservation",
			Domain:   "physics",
			Severity: model.SeverityCritical,
			Message:  "Claims energy from nothing or a violation of conservation of energy",
			Match:    affirmed(reEnergyViolation...),
		},
		{
			ID:       "neuroscience.memory-transfer",
			Domain:   "neuroscience",
			Severity: model.SeverityCritical,
			Message:  "Claims direct memory transfer between people through an unestablished mechanism",
			Match:    affirmed(reMemoryTransfer...),
		},
		{
			ID:       "neuroscience.telepathy",
			Domain:   "neuroscience",
			Severity: model.SeverityCritical,
			Message:  "Claims telepathic communication, for which no physical mechanism exists",
			Match:    affirmed(reTelepathy),
		},
		{
			ID:       "neuroscience.mind-reading",
			Domain:   "neuroscience",
			Severity: model.SeverityCritical,
			Message:  "Claims minds can be read directly without measurement",
			Match:    affirmed(reMindReading...),
		},
		{
			ID:       "statistics.correlation-bound",
			Domain:   "statistics",
			Severity: model.SeverityCritical,
			Message:  "Reports a correlation coefficient outside [-1, 1]",
			Match:    correlationOutOfBounds,
		},
		{
			ID:       "statistics.probability-bound",
			Domain:   "statistics",
			Severity: model.SeverityCritical,
			Message:  "Reports a probability above 1 (100%)",
			Match:    probabilityOutOfBounds,
		},
		{
			ID:       "statistics.negative-spread",
			Domain:   "statistics",
			Severity: model.SeverityCritical,
			Message:  "Reports a negative variance or standard deviation",
			Match:    patterns(reNegativeSpread...),
		},
		{
			ID:       "statistics.implausible-precision",
			Domain:   "statistics",
			Severity: model.SeverityWarning,
			Message:  "Quotes a percentage to three or more decimals with no uncertainty",
			Match:    implausiblePrecision,
		},
		{
			ID:       "statistics.absolute-certainty",
			Domain:   "statistics",
			Severity: model.SeverityWarning,
			Message:  "Claims 100% efficacy, which empirical studies rarely support",
			Match:    patterns(reAbsoluteCertain),
		},
	}
}

func correlationOutOfBounds(text string) (bool, error) {
	if reCorrelationWords.MatchString(text) {
		return true, nil
	}
	matches := reCorrelationValue.FindAllStringSubmatch(text, -1)
	matches = append(matches, reRValue.FindAllStringSubmatch(text, -1)...)
	for _, m := range matches {
		connector, number := m[1], m[2]
		// "correlation of 2 variables" counts things, it is not a coefficient
		if (connector == "" || connector == "of") && !strings.Contains(number, ".") {
			continue
		}
		v, err := strconv.ParseFloat(number, 64)
		if err != nil {
			return false, err
		}
		if v > 1 || v < -1 {
			return true, nil
		}
	}
	return false, nil
}

func probabilityOutOfBounds(text string) (bool, error) {
	if reProbabilityWords.MatchString(text) {
		return true, nil
	}
	for _, m := range reProbabilityValue.FindAllStringSubmatch(text, -1) {
		connector, number, percent := m[1], m[2], m[3] != ""
		if connector == "of" && !percent && !strings.Contains(number, ".") {
			continue
		}
		v, err := strconv.ParseFloat(number, 64)
		if err != nil {
			return false, err
		}
		if (percent && v > 100) || (!percent && v > 1) {
			return true, nil
		}
	}
	for _, m := range rePercentProbability.FindAllStringSubmatch(text, -1) {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return false, err
		}
		if v > 100 {
			return true, nil
		}
	}
	return false, nil
}

// affirmed matches like patterns but ignores matches that the surrounding
// words negate, e.g. "nothing travels faster than light".
func affirmed(res ...*regexp.Regexp) MatchFunc {
	return func(text string) (bool, error) {
		for _, re := range res {
			for _, loc := range re.FindAllStringIndex(text, -1) {
				before := text[max(0, loc[0]-50):loc[0]]
				after := text[loc[1]:min(len(text), loc[1]+40)]
				if reNegationBefore.MatchString(before) || reNegationAfter.MatchString(after) {
					continue
				}
				return true, nil
			}
		}
		return false, nil
	}
}

func implausiblePrecision(text string) (bool, error) {
	return rePrecisePercent.MatchString(text) && !reUncertainty.MatchString(text), nil
}
