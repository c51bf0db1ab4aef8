// Package scoring implements the five-dimension content rubric. Each
// dimension has a hard cap and its own combination rule: sensitivity,
// temporal, and competitive take the max matching tier; identifiers and
// legal sum their hits up to the cap. The total feeds the classification
// engine.
package scoring

import (
	"fmt"
	"regexp"
	"time"

	"github.com/datamoat/moat/pkg/patterns"
	"github.com/datamoat/moat/pkg/policy"
)

// Dimension caps. The base score is the sum of the five, so 100 max.
const (
	MaxContentSensitivity  = 30
	MaxIdentifierPresence  = 25
	MaxTemporalSensitivity = 20
	MaxCompetitiveImpact   = 15
	MaxLegalRisk           = 10
)

// SourceScoring tags findings produced by the rubric.
const SourceScoring = "content_classification"

// DimensionScore is one dimension's result with the findings behind it.
type DimensionScore struct {
	Score    int                `json:"score"`
	MaxScore int                `json:"max_score"`
	Findings []patterns.Finding `json:"findings,omitempty"`
}

// Breakdown holds all five dimension scores.
type Breakdown struct {
	ContentSensitivity  DimensionScore `json:"content_sensitivity"`
	IdentifierPresence  DimensionScore `json:"identifier_presence"`
	TemporalSensitivity DimensionScore `json:"temporal_sensitivity"`
	CompetitiveImpact   DimensionScore `json:"competitive_impact"`
	LegalRisk           DimensionScore `json:"legal_risk"`
}

// Total returns the base score, the sum of the five dimensions.
func (b Breakdown) Total() int {
	return b.ContentSensitivity.Score +
		b.IdentifierPresence.Score +
		b.TemporalSensitivity.Score +
		b.CompetitiveImpact.Score +
		b.LegalRisk.Score
}

// Findings returns all dimension findings in rubric order.
func (b Breakdown) Findings() []patterns.Finding {
	var out []patterns.Finding
	for _, d := range []DimensionScore{
		b.ContentSensitivity, b.IdentifierPresence, b.TemporalSensitivity,
		b.CompetitiveImpact, b.LegalRisk,
	} {
		out = append(out, d.Findings...)
	}
	return out
}

// ruleGroup is one scored pattern family within a dimension.
type ruleGroup struct {
	name  string
	label string
	score int
	res   []*regexp.Regexp
}

func (g *ruleGroup) matches(content string) []string {
	var all []string
	for _, re := range g.res {
		all = append(all, re.FindAllString(content, -1)...)
	}
	return unique(all)
}

// Scorer holds the compiled rubric. Build once per policy snapshot.
type Scorer struct {
	sensHigh   []ruleGroup
	sensMedium []ruleGroup
	sensLow    []ruleGroup
	identifier []ruleGroup
	temporal   []ruleGroup
	compete    []ruleGroup
	legal      []ruleGroup
}

// NewScorer compiles the rubric from cfg. Keyword tables become
// case-insensitive literal matches; pattern tables are compiled verbatim.
// The policy has already validated every configured pattern.
func NewScorer(cfg *policy.PolicyConfig) *Scorer {
	s := &Scorer{}
	det := cfg.Detection

	s.sensHigh = []ruleGroup{
		{
			name: "financial", score: det.Financial.Score,
			res: append(compileGroup(det.Financial), compileAll(
				`(?i)revenue.*\$[\d,]+`, `(?i)profit margin.*\d+%`, `(?i)cost.*\$[\d,]+`,
				`(?i)forecast.*\$[\d,]+`, `(?i)earnings.*\$[\d,]+`, `(?i)budget.*\$[\d,]+`,
				`(?i)valuation.*\$[\d,]+`, `(?i)burn rate`, `(?i)runway`, `(?i)ebitda`,
				`(?i)financial statements`, `(?i)cash flow`,
			)...),
		},
		{
			name: "customerData", score: det.Customer.Score,
			res: append(compileGroup(det.Customer), compileAll(
				`(?i)customer list`, `(?i)client database`, `(?i)customer usage data`,
				`(?i)user analytics`, `(?i)customer contact`, `(?i)lead list`,
				`(?i)prospect data`, `(?i)churn analysis`, `(?i)customer retention`,
			)...),
		},
		{
			name: "unreleased", score: det.Product.Score,
			res: append(compileGroup(det.Product), compileAll(
				`(?i)unreleased`, `(?i)upcoming product`, `(?i)product roadmap`,
				`(?i)feature spec`, `(?i)alpha version`, `(?i)beta release`,
				`(?i)pre-launch`, `(?i)not yet announced`, `(?i)under development`,
				`(?i)stealth mode`, `(?i)product requirements`, `(?i)technical specification`,
			)...),
		},
		{
			name: "tradeSecrets", score: MaxContentSensitivity,
			res: compileAll(
				`(?i)proprietary algorithm`, `(?i)trade secret`, `(?i)proprietary method`,
				`(?i)secret sauce`, `(?i)competitive advantage`, `(?i)intellectual property`,
				`(?i)patent pending`, `(?i)know-how`, `(?i)proprietary technology`,
			),
		},
		{
			name: "strategy", score: det.Strategic.Score,
			res: append(compileGroup(det.Strategic), compileAll(
				`(?i)m&a`, `(?i)merger`, `(?i)acquisition`, `(?i)competitive strategy`,
				`(?i)strategic plan`, `(?i)go-to-market`, `(?i)market entry`,
				`(?i)business strategy`, `(?i)strategic initiative`, `(?i)competitive analysis`,
			)...),
		},
	}

	s.sensMedium = []ruleGroup{
		{
			name: "processes", score: 20,
			res: compileAll(
				`(?i)internal process`, `(?i)workflow`, `(?i)standard operating procedure`,
				`(?i)business process`, `(?i)operational procedure`, `(?i)internal tool`,
				`(?i)proprietary process`,
			),
		},
		{
			name: "analytics", score: 15,
			res: compileAll(
				`(?i)customer analytics`, `(?i)user behavior`, `(?i)usage patterns`,
				`(?i)conversion metrics`, `(?i)engagement data`, `(?i)performance metrics`,
			),
		},
		{
			name: "compensation", score: det.Employee.Score,
			res: append(compileGroup(det.Employee), compileAll(
				`(?i)compensation`, `(?i)salary`, `(?i)pay scale`, `(?i)bonus structure`,
				`(?i)equity`, `(?i)stock options`, `(?i)benefits package`,
			)...),
		},
		{
			name: "contracts", score: det.Legal.Score,
			res: append(compileGroup(det.Legal), compileAll(
				`(?i)vendor contract`, `(?i)supplier agreement`, `(?i)pricing terms`,
				`(?i)contract pricing`, `(?i)negotiated rate`,
			)...),
		},
	}

	s.sensLow = []ruleGroup{
		{
			name: "policies", score: 5,
			res: compileAll(
				`(?i)company policy`, `(?i)employee handbook`, `(?i)code of conduct`,
				`(?i)compliance policy`,
			),
		},
		{
			name: "marketing", score: 0,
			res: compileAll(
				`(?i)marketing material`, `(?i)press release`, `(?i)public announcement`,
				`(?i)blog post`,
			),
		},
	}

	s.identifier = []ruleGroup{
		{
			name: "customerNames", label: "Customer/Account Names", score: 10,
			res: compileAll(
				`(?i)customer:\s*[A-Z][a-zA-Z\s]+`, `(?i)client:\s*[A-Z][a-zA-Z\s]+`,
				`(?i)account:\s*[A-Z][a-zA-Z\s]+`,
			),
		},
		{
			name: "employeePII", label: "Employee PII", score: 15,
			res: compileAll(
				`\b\d{3}-\d{2}-\d{4}\b`,
				`(?i)\d+\s+[A-Za-z\s]+(?:street|st|avenue|ave|road|rd|drive|dr|lane|ln|blvd)`,
				`(?i)health insurance`, `(?i)medical information`,
			),
		},
		{
			name: "projectCodes", label: "Internal Project Codes", score: 5,
			res: compileAll(
				`(?i)project\s+[A-Z][A-Za-z0-9]+`, `(?i)codename:\s*[A-Za-z]+`,
				`(?i)operation\s+[A-Za-z]+`,
			),
		},
		{
			name: "confidentialMarkings", label: "Confidential Markings", score: 10,
			res: append(markerPatterns(cfg), compileAll(
				`(?i)confidential`, `(?i)internal only`, `(?i)restricted`,
				`(?i)do not distribute`, `(?i)proprietary`, `(?i)classified`,
			)...),
		},
		{
			name: "credentials", label: "API Keys/Credentials", score: 15,
			res: compileAll(
				`(?i)api[_-]?key`, `(?i)password`, `(?i)access[_-]?token`,
				`(?i)private[_-]?key`, `(?i)credential`, `(?i)secret`,
				`(?i)\b[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}\b.*password`,
			),
		},
	}

	year := time.Now().Year()
	s.temporal = []ruleGroup{
		{
			name: "futureReleases", label: "Future-dated content", score: 20,
			res: append(futureYearPatterns(year), compileAll(
				`(?i)next year`, `(?i)upcoming`, `(?i)planned for`, `(?i)scheduled for`,
				`(?i)launch date`, `(?i)release date`, `(?i)coming soon`,
			)...),
		},
		{
			name: "currentQuarter", label: "Current quarter timeline", score: 15,
			res: compileAll(
				fmt.Sprintf(`(?i)q[1-4]\s+%d`, year),
				`(?i)this quarter`, `(?i)current quarter`, `(?i)by end of quarter`,
			),
		},
		{
			name: "currentYear", label: "Current year timeline", score: 10,
			res: compileAll(
				fmt.Sprintf(`\b%d\b`, year),
				`(?i)this year`, `(?i)by year end`, `(?i)annual`,
			),
		},
	}

	s.compete = []ruleGroup{
		{
			name: "directAdvantage", label: "Direct competitive advantage", score: 15,
			res: compileAll(
				`(?i)competitive advantage`, `(?i)secret sauce`, `(?i)proprietary`,
				`(?i)unique approach`, `(?i)differentiator`, `(?i)market positioning`,
			),
		},
		{
			name: "strategicPositioning", label: "Strategic positioning", score: 10,
			res: compileAll(
				`(?i)market strategy`, `(?i)positioning`, `(?i)competitive positioning`,
				`(?i)market approach`,
			),
		},
		{
			name: "operationalDetails", label: "Operational details", score: 7,
			res: compileAll(
				`(?i)operational details`, `(?i)process`, `(?i)methodology`, `(?i)approach`,
			),
		},
	}

	s.legal = []ruleGroup{
		{
			name: "gdpr", label: "GDPR/Privacy risk", score: 10,
			res: compileAll(
				`(?i)personal data`, `(?i)gdpr`, `(?i)data protection`,
				`(?i)privacy violation`, `(?i)personal information`,
			),
		},
		{
			name: "financial", label: "Financial compliance risk", score: 10,
			res: compileAll(
				`(?i)sox compliance`, `(?i)financial reporting`, `(?i)earnings`,
				`(?i)financial disclosure`,
			),
		},
		{
			name: "contractual", label: "NDA/Contract risk", score: 8,
			res: compileAll(
				`(?i)nda`, `(?i)non-disclosure`, `(?i)confidentiality agreement`,
				`(?i)contract breach`,
			),
		},
		{
			name: "export", label: "Export control risk", score: 10,
			res: compileAll(
				`(?i)itar`, `(?i)export control`, `(?i)ear`, `(?i)restricted technology`,
			),
		},
	}

	return s
}

// Score runs all five dimensions against content.
func (s *Scorer) Score(content string) Breakdown {
	return Breakdown{
		ContentSensitivity:  s.scoreContentSensitivity(content),
		IdentifierPresence:  s.scoreSummed(content, s.identifier, "identifier_presence", MaxIdentifierPresence),
		TemporalSensitivity: s.scoreMaxed(content, s.temporal, "temporal_sensitivity", MaxTemporalSensitivity),
		CompetitiveImpact:   s.scoreMaxed(content, s.compete, "competitive_impact", MaxCompetitiveImpact),
		LegalRisk:           s.scoreSummed(content, s.legal, "legal_risk", MaxLegalRisk),
	}
}

// scoreContentSensitivity works through the tiers: high always, medium only
// while the score is below 25, low only below 10. Within a tier the highest
// matching group wins.
func (s *Scorer) scoreContentSensitivity(content string) DimensionScore {
	d := DimensionScore{MaxScore: MaxContentSensitivity}

	scan := func(groups []ruleGroup, category string) {
		for i := range groups {
			g := &groups[i]
			m := g.matches(content)
			if len(m) == 0 {
				continue
			}
			if g.score > d.Score {
				d.Score = g.score
			}
			d.Findings = append(d.Findings, makeFinding(g, category, m))
		}
	}

	scan(s.sensHigh, "high_risk_content")
	if d.Score < 25 {
		scan(s.sensMedium, "medium_risk_content")
	}
	if d.Score < 10 {
		scan(s.sensLow, "low_risk_content")
	}
	if d.Score > d.MaxScore {
		d.Score = d.MaxScore
	}
	return d
}

func (s *Scorer) scoreMaxed(content string, groups []ruleGroup, category string, max int) DimensionScore {
	d := DimensionScore{MaxScore: max}
	for i := range groups {
		g := &groups[i]
		m := g.matches(content)
		if len(m) == 0 {
			continue
		}
		if g.score > d.Score {
			d.Score = g.score
		}
		d.Findings = append(d.Findings, makeFinding(g, category, m))
	}
	if d.Score > max {
		d.Score = max
	}
	return d
}

func (s *Scorer) scoreSummed(content string, groups []ruleGroup, category string, max int) DimensionScore {
	d := DimensionScore{MaxScore: max}
	for i := range groups {
		g := &groups[i]
		m := g.matches(content)
		if len(m) == 0 {
			continue
		}
		d.Score += g.score
		d.Findings = append(d.Findings, makeFinding(g, category, m))
	}
	if d.Score > max {
		d.Score = max
	}
	return d
}

// makeFinding converts one matched rule group into the shared finding shape.
func makeFinding(g *ruleGroup, category string, matches []string) patterns.Finding {
	n := len(matches)
	if n > 2 {
		matches = matches[:2]
	}
	return patterns.Finding{
		Type:      g.name,
		Category:  category,
		Label:     g.label,
		Count:     n,
		Sample:    matches,
		Score:     g.score,
		Dimension: category,
		Source:    SourceScoring,
	}
}

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, regexp.MustCompile(e))
	}
	return out
}

// compileGroup turns a policy pattern group into regexes: keywords become
// quoted case-insensitive matches, patterns compile as written.
func compileGroup(g policy.PatternGroup) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(g.Keywords)+len(g.Patterns))
	for _, k := range g.Keywords {
		out = append(out, regexp.MustCompile(`(?i)`+regexp.QuoteMeta(k)))
	}
	for _, p := range g.Patterns {
		out = append(out, regexp.MustCompile(p))
	}
	return out
}

// markerPatterns compiles the company's confidentiality markers plus the
// "<alias> confidential" forms.
func markerPatterns(cfg *policy.PolicyConfig) []*regexp.Regexp {
	var out []*regexp.Regexp
	for _, m := range cfg.Company.ConfidentialityMarkers {
		out = append(out, regexp.MustCompile(`(?i)`+regexp.QuoteMeta(m)))
	}
	for _, t := range cfg.CompanyTerms() {
		out = append(out, regexp.MustCompile(`(?i)`+regexp.QuoteMeta(t)+`[_\s]confidential`))
	}
	return out
}

// futureYearPatterns matches four-digit years strictly after the current one.
func futureYearPatterns(year int) []*regexp.Regexp {
	var exprs []string
	for y := year + 1; y <= year+9; y++ {
		exprs = append(exprs, fmt.Sprintf(`\b%d\b`, y))
	}
	return compileAll(exprs...)
}

func unique(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
