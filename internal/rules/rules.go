// Package rules checks claims against established domain knowledge before
// any literature search is spent on them. Rules are conservative: they flag
// only claims that contradict fundamental laws.
package rules

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/Surjit27/Clairvox/internal/model"
)

// ErrRuleEvaluation marks a rule that failed while evaluating a claim
var ErrRuleEvaluation = errors.New("rule evaluation failed")

// MatchFunc reports whether a lowercased, whitespace-collapsed claim
// violates a rule
type MatchFunc func(text string) (bool, error)

// Rule is a single plausibility check
type Rule struct {
	ID       string
	Domain   string
	Severity model.Severity
	Message  string
	Match    MatchFunc
}

// Engine evaluates claims against a rule table
type Engine struct {
	rules  []Rule
	logger *zap.Logger
}

// NewEngine builds an engine from the built-in table plus custom rules.
// Custom rules whose pattern does not compile are skipped with a warning.
func NewEngine(custom []model.CustomRule, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{rules: BuiltinRules(), logger: logger}
	for _, c := range custom {
		r, err := CompileCustom(c)
		if err != nil {
			logger.Warn("skipping custom rule", zap.String("rule", c.ID), zap.Error(err))
			continue
		}
		e.rules = append(e.rules, r)
	}
	return e
}

// NewEngineWithRules builds an engine over an explicit rule table
func NewEngineWithRules(rules []Rule, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{rules: rules, logger: logger}
}

// Rules returns the active rule table
func (e *Engine) Rules() []Rule {
	return append([]Rule(nil), e.rules...)
}

// Evaluate returns every violation in rule-table order. A rule that errors
// or panics is skipped and logged.
func (e *Engine) Evaluate(claim model.Claim) []model.DomainViolation {
	text := strings.Join(strings.Fields(strings.ToLower(claim.Text)), " ")

	var violations []model.DomainViolation
	for _, r := range e.rules {
		matched, err := evaluate(r, text)
		if err != nil {
			e.logger.Warn("skipping rule", zap.String("rule", r.ID), zap.Error(err))
			continue
		}
		if matched {
			violations = append(violations, model.DomainViolation{
				RuleID:   r.ID,
				Domain:   r.Domain,
				Severity: r.Severity,
				Message:  r.Message,
			})
		}
	}
	return violations
}

// HasCritical reports whether any violation is critical
func HasCritical(violations []model.DomainViolation) bool {
	for _, v := range violations {
		if v.IsCritical() {
			return true
		}
	}
	return false
}

func evaluate(r Rule, text string) (matched bool, err error) {
	defer func() {
		if p := recover(); p != nil {
			matched = false
			err = fmt.Errorf("%w: %s: panic: %v", ErrRuleEvaluation, r.ID, p)
		}
	}()
	if r.Match == nil {
		return false, fmt.Errorf("%w: %s: no matcher", ErrRuleEvaluation, r.ID)
	}
	matched, err = r.Match(text)
	if err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrRuleEvaluation, r.ID, err)
	}
	return matched, nil
}

// CompileCustom turns a configured pattern rule into a Rule
func CompileCustom(c model.CustomRule) (Rule, error) {
	re, err := regexp.Compile("(?i)" + c.Pattern)
	if err != nil {
		return Rule{}, fmt.Errorf("compile pattern: %w", err)
	}
	severity := model.Severity(strings.ToLower(c.Severity))
	if severity != model.SeverityCritical {
		severity = model.SeverityWarning
	}
	domain := c.Domain
	if domain == "" {
		domain = "custom"
	}
	message := c.Message
	if message == "" {
		message = "Claim matches configured rule " + c.ID
	}
	return Rule{
		ID:       c.ID,
		Domain:   domain,
		Severity: severity,
		Message:  message,
		Match:    patterns(re),
	}, nil
}

// patterns matches when any expression is found
func patterns(res ...*regexp.Regexp) MatchFunc {
	return func(text string) (bool, error) {
		for _, re := range res {
			if re.MatchString(text) {
				return true, nil
			}
		}
		return false, nil
	}
}
