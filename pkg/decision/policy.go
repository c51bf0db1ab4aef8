// Package decision evaluates findings and a classification against a fixed
// priority order and produces the allow/block verdict. The order is data, not
// control flow: rules live in an ordered table and the first match wins.
package decision

import (
	"fmt"
	"strings"

	"github.com/datamoat/moat/pkg/classify"
	"github.com/datamoat/moat/pkg/destination"
	"github.com/datamoat/moat/pkg/patterns"
	"github.com/datamoat/moat/pkg/policy"
)

// Verdict is the outcome of policy evaluation.
type Verdict struct {
	Allowed bool   `json:"allowed"`
	Message string `json:"message"`
	Rule    string `json:"rule,omitempty"`
}

// Input is everything a rule may inspect.
type Input struct {
	Findings       []patterns.Finding
	Classification *classify.Result
	Bulk           policy.BulkSettings
}

// rule is one priority slot: if match returns a verdict, evaluation stops.
type rule struct {
	name  string
	match func(in Input) (Verdict, bool)
}

// Policy is the ordered rule table.
type Policy struct {
	rules []rule
}

// New builds the standard priority order:
// classification blocks first, then bulk signals, critical patterns,
// email/phone counts, medium-severity warnings, and finally allow.
func New() *Policy {
	return &Policy{rules: []rule{
		{"confidential_content", matchConfidential},
		{"internal_to_high_risk", matchInternalHighRisk},
		{"internal_content", matchInternal},
		{"bulk_data", matchBulk},
		{"critical_finding", matchCritical},
		{"email_count", matchEmailCount},
		{"phone_count", matchPhoneCount},
		{"medium_severity", matchMedium},
	}}
}

// Evaluate walks the rule table in order. When no rule fires the transfer is
// allowed.
func (p *Policy) Evaluate(in Input) Verdict {
	for _, r := range p.rules {
		if v, ok := r.match(in); ok {
			v.Rule = r.name
			return v
		}
	}
	if len(in.Findings) == 0 {
		return Verdict{Allowed: true, Message: "No sensitive content detected"}
	}
	return Verdict{Allowed: true, Message: "Content allowed"}
}

func matchConfidential(in Input) (Verdict, bool) {
	cls := in.Classification
	if cls == nil {
		return Verdict{}, false
	}
	if cls.Classification != classify.HighlyConfidential && cls.Classification != classify.Confidential {
		return Verdict{}, false
	}
	return Verdict{
		Allowed: false,
		Message: fmt.Sprintf("%s content detected (score %d). %s", cls.Classification, cls.AdjustedScore, cls.Recommendation),
	}, true
}

func matchInternalHighRisk(in Input) (Verdict, bool) {
	cls := in.Classification
	if cls == nil || cls.Classification != classify.Internal || cls.Destination.Risk != destination.RiskHigh {
		return Verdict{}, false
	}
	return Verdict{
		Allowed: false,
		Message: fmt.Sprintf("INTERNAL content blocked: %s is a high risk destination. %s", cls.Destination.Category, cls.Destination.Reason),
	}, true
}

func matchInternal(in Input) (Verdict, bool) {
	cls := in.Classification
	if cls == nil || cls.Classification != classify.Internal {
		return Verdict{}, false
	}
	return Verdict{
		Allowed: false,
		Message: fmt.Sprintf("INTERNAL content - external sharing not permitted. %s", cls.Recommendation),
	}, true
}

func matchBulk(in Input) (Verdict, bool) {
	for _, f := range in.Findings {
		if f.Category != string(patterns.CategoryBulkPII) {
			continue
		}
		return Verdict{
			Allowed: false,
			Message: fmt.Sprintf("Bulk data export detected: %s (%d items)", f.Type, f.Items()),
		}, true
	}
	return Verdict{}, false
}

func matchCritical(in Input) (Verdict, bool) {
	for _, f := range in.Findings {
		if f.Severity != patterns.SeverityCritical {
			continue
		}
		label := f.Label
		if label == "" {
			label = f.Type
		}
		return Verdict{
			Allowed: false,
			Message: fmt.Sprintf("%s detected", label),
		}, true
	}
	return Verdict{}, false
}

func matchEmailCount(in Input) (Verdict, bool) {
	for _, f := range in.Findings {
		if f.Type == "email" && f.Count >= in.Bulk.EmailThreshold {
			return Verdict{
				Allowed: false,
				Message: fmt.Sprintf("Multiple email addresses detected (%d addresses)", f.Count),
			}, true
		}
	}
	return Verdict{}, false
}

func matchPhoneCount(in Input) (Verdict, bool) {
	for _, f := range in.Findings {
		if f.Type == "phone" && f.Count >= in.Bulk.PhoneThreshold {
			return Verdict{
				Allowed: false,
				Message: fmt.Sprintf("Multiple phone numbers detected (%d numbers)", f.Count),
			}, true
		}
	}
	return Verdict{}, false
}

func matchMedium(in Input) (Verdict, bool) {
	var types []string
	for _, f := range in.Findings {
		if f.Severity == patterns.SeverityMedium {
			types = append(types, f.Type)
		}
	}
	if len(types) == 0 {
		return Verdict{}, false
	}
	return Verdict{
		Allowed: false,
		Message: fmt.Sprintf("Potentially sensitive data: %s", strings.Join(types, ", ")),
	}, true
}
