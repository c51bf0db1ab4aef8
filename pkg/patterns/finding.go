package patterns

// Severity ranks how dangerous a finding is. The decision layer treats
// critical as block-on-sight.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// rank orders severities for comparisons and max() folds.
var rank = map[Severity]int{
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// AtLeast reports whether s is at least as severe as other.
func (s Severity) AtLeast(other Severity) bool {
	return rank[s] >= rank[other]
}

// Max returns the more severe of s and other.
func (s Severity) Max(other Severity) Severity {
	if rank[other] > rank[s] {
		return other
	}
	return s
}

// Finding is one detected signal in analyzed content. All detectors emit
// Findings; the decision layer and the API only ever see this shape.
type Finding struct {
	Type     string   `json:"type"`
	Category string   `json:"category"`
	Severity Severity `json:"severity"`
	Label    string   `json:"label,omitempty"`
	Count    int      `json:"count,omitempty"`
	Sample   []string `json:"sample,omitempty"`
	Source   string   `json:"source"`

	// Scoring detail, set by the content scorer.
	Score     int    `json:"score,omitempty"`
	Dimension string `json:"dimension,omitempty"`
	Reason    string `json:"reason,omitempty"`

	// Bulk-detector detail.
	IsCustomerList bool    `json:"is_customer_list,omitempty"`
	UniqueDomains  int     `json:"unique_domains,omitempty"`
	Rows           int     `json:"rows,omitempty"`
	Columns        int     `json:"columns,omitempty"`
	Density        float64 `json:"density,omitempty"`

	// Semantic-stage detail.
	Confidence float32 `json:"confidence,omitempty"`
}

// Items returns the count used in user-facing messages: rows for tabular
// findings, otherwise the match count.
func (f Finding) Items() int {
	if f.Count > 0 {
		return f.Count
	}
	return f.Rows
}
