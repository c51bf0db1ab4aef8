// Package classify turns a rubric base score into a classification label,
// amplifies it with the destination risk multiplier, and reclassifies on the
// adjusted score. The multiplier is keyed by the BASE-score classification so
// the same content always picks the same table row regardless of destination.
package classify

import (
	"fmt"
	"math"

	"github.com/datamoat/moat/pkg/destination"
	"github.com/datamoat/moat/pkg/patterns"
	"github.com/datamoat/moat/pkg/policy"
	"github.com/datamoat/moat/pkg/scoring"
)

// Level is a content classification label.
type Level string

const (
	Public             Level = "PUBLIC"
	Internal           Level = "INTERNAL"
	Confidential       Level = "CONFIDENTIAL"
	HighlyConfidential Level = "HIGHLY_CONFIDENTIAL"
)

// Severity maps a classification level to finding severity.
func (l Level) Severity() patterns.Severity {
	switch l {
	case HighlyConfidential:
		return patterns.SeverityCritical
	case Confidential:
		return patterns.SeverityHigh
	case Internal:
		return patterns.SeverityMedium
	default:
		return patterns.SeverityLow
	}
}

// Result is the complete classification of one piece of content against one
// destination.
type Result struct {
	Classification Level              `json:"classification"`
	Severity       patterns.Severity  `json:"severity"`
	BaseScore      int                `json:"base_score"`
	AdjustedScore  int                `json:"adjusted_score"`
	RiskMultiplier float64            `json:"risk_multiplier"`
	Breakdown      scoring.Breakdown  `json:"score_breakdown"`
	Destination    destination.Risk   `json:"destination"`
	Findings       []patterns.Finding `json:"findings,omitempty"`
	Recommendation string             `json:"recommendation"`
}

// Engine scores content and applies destination-aware classification.
type Engine struct {
	cfg    *policy.PolicyConfig
	scorer *scoring.Scorer
	dest   *destination.Classifier
}

// NewEngine builds an Engine for one policy snapshot.
func NewEngine(cfg *policy.PolicyConfig) *Engine {
	return &Engine{
		cfg:    cfg,
		scorer: scoring.NewScorer(cfg),
		dest:   destination.New(cfg),
	}
}

// Analyze classifies content headed for rawURL. Classification is
// deterministic: same content, same destination, same policy, same result.
func (e *Engine) Analyze(content, rawURL string) Result {
	breakdown := e.scorer.Score(content)
	dest := e.dest.Classify(rawURL)

	base := breakdown.Total()
	baseLevel := e.Classify(base)
	multiplier := e.cfg.Multiplier(string(dest.Risk), string(baseLevel))

	adjusted := int(math.Round(float64(base) * multiplier))
	if adjusted > 100 {
		adjusted = 100
	}
	level := e.Classify(adjusted)

	return Result{
		Classification: level,
		Severity:       level.Severity(),
		BaseScore:      base,
		AdjustedScore:  adjusted,
		RiskMultiplier: multiplier,
		Breakdown:      breakdown,
		Destination:    dest,
		Findings:       breakdown.Findings(),
		Recommendation: e.recommendation(level, dest),
	}
}

// Classify maps a score to a level using the policy thresholds.
func (e *Engine) Classify(score int) Level {
	t := e.cfg.Content
	switch {
	case score >= t.HighlyConfidential:
		return HighlyConfidential
	case score >= t.Confidential:
		return Confidential
	case score >= t.Internal:
		return Internal
	default:
		return Public
	}
}

// recommendation builds the user-facing guidance string for a level and
// destination pair.
func (e *Engine) recommendation(level Level, dest destination.Risk) string {
	company := e.cfg.Company.Name

	var base string
	switch level {
	case HighlyConfidential:
		base = fmt.Sprintf("Restricted access - explicit approval required before sharing (Company: %s)", company)
	case Confidential:
		base = fmt.Sprintf("Limited distribution - need-to-know basis only (Company: %s)", company)
	case Internal:
		base = fmt.Sprintf("%s internal only - no external sharing", company)
	default:
		base = "Safe to share externally"
	}

	switch dest.Risk {
	case destination.RiskHigh:
		return fmt.Sprintf("%s. HIGH RISK DESTINATION: Sharing to %s significantly increases data exposure risk. %s", base, dest.Category, dest.Reason)
	case destination.RiskMedium:
		return fmt.Sprintf("%s. MEDIUM RISK DESTINATION: %s - verify enterprise controls are enabled. %s", base, dest.Category, dest.Reason)
	case destination.RiskLow:
		return fmt.Sprintf("%s. LOW RISK DESTINATION: %s has appropriate enterprise security controls.", base, dest.Category)
	}
	return fmt.Sprintf("%s. Destination risk: %s", base, dest.Risk)
}
