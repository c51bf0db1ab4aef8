// Package patterns provides the compiled sensitive-data pattern registry and
// the Finding type shared by every detector in the pipeline.
//
// Design principles:
// - COMPILE ONCE: all regexes compiled per policy snapshot, not per-request
// - DRY: the policy's rule table is the single source of truth
// - ORDERED: scan order follows the table so findings are deterministic
package patterns

import (
	"regexp"

	"github.com/datamoat/moat/pkg/policy"
)

// Category labels what kind of data a pattern detects.
type Category string

const (
	CategoryFinancial   Category = "financial"
	CategoryPII         Category = "pii"
	CategoryCredentials Category = "credentials"
	CategoryTechnical   Category = "technical"
	CategoryBulkPII     Category = "bulk_pii"
)

// SourcePattern tags findings produced by this registry.
const SourcePattern = "pattern_detection"

// Rule holds a compiled regex with detection metadata.
type Rule struct {
	Name     string         // stable finding type, e.g. "awsKey"
	Regex    *regexp.Regexp // compiled regex (never nil after New)
	Category Category
	Severity Severity
	Label    string // human-readable name for messages
}

// Registry holds the compiled rules in table order.
type Registry struct {
	rules []*Rule
}

// New compiles the policy's content rule table. The policy has already
// validated every pattern, so compilation cannot fail here. Build one
// Registry per policy snapshot; a hot reload gets a fresh one.
func New(cfg *policy.PolicyConfig) *Registry {
	r := &Registry{rules: make([]*Rule, 0, len(cfg.Rules))}
	for _, cr := range cfg.Rules {
		r.rules = append(r.rules, &Rule{
			Name:     cr.Name,
			Regex:    regexp.MustCompile(cr.Pattern),
			Category: Category(cr.Category),
			Severity: Severity(cr.Severity),
			Label:    cr.Label,
		})
	}
	return r
}

// Rules returns all rules in scan order.
func (r *Registry) Rules() []*Rule {
	return r.rules
}

// Scan runs every rule against text and returns one Finding per rule that
// matched, carrying the unique match count and up to three samples.
func (r *Registry) Scan(text string) []Finding {
	var findings []Finding
	for _, rule := range r.rules {
		matches := rule.Regex.FindAllString(text, -1)
		if len(matches) == 0 {
			continue
		}
		unique := uniqueStrings(matches)
		findings = append(findings, Finding{
			Type:     rule.Name,
			Category: string(rule.Category),
			Severity: rule.Severity,
			Label:    rule.Label,
			Count:    len(unique),
			Sample:   sample(unique, 3),
			Source:   SourcePattern,
		})
	}
	return findings
}

// FindEmails returns the unique email addresses in text. Shared with the
// bulk detector so both count addresses the same way.
func (r *Registry) FindEmails(text string) []string {
	for _, rule := range r.rules {
		if rule.Name == "email" {
			return uniqueStrings(rule.Regex.FindAllString(text, -1))
		}
	}
	return nil
}

func uniqueStrings(in []string) []string {
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

func sample(in []string, n int) []string {
	if len(in) <= n {
		return in
	}
	return in[:n]
}
