// Package filemeta scores file uploads from metadata alone: filename,
// MIME type, size, and last-modified time. No content is read, so the
// analysis is safe to run on arbitrarily large files before any transfer.
package filemeta

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/datamoat/moat/pkg/patterns"
	"github.com/datamoat/moat/pkg/policy"
)

// RiskLevel is the metadata risk rating.
type RiskLevel string

const (
	RiskCritical RiskLevel = "CRITICAL"
	RiskHigh     RiskLevel = "HIGH"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskLow      RiskLevel = "LOW"
)

// SourceFileMeta tags findings produced by this analyzer.
const SourceFileMeta = "file_metadata_analysis"

// Metadata is the upload metadata supplied by callers.
type Metadata struct {
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	MIMEType     string    `json:"mime_type"`
	LastModified time.Time `json:"last_modified"`
}

// Extension returns the lowercase dotted extension, or "" when none.
func (m Metadata) Extension() string {
	if i := strings.LastIndex(m.Name, "."); i >= 0 {
		return strings.ToLower(m.Name[i:])
	}
	return ""
}

// Result is a complete metadata analysis.
type Result struct {
	RiskLevel      RiskLevel          `json:"risk_level"`
	Severity       patterns.Severity  `json:"severity"`
	TotalScore     int                `json:"total_score"`
	Findings       []patterns.Finding `json:"findings,omitempty"`
	Metadata       Metadata           `json:"metadata"`
	Recommendation string             `json:"recommendation"`
}

// filenameRule is one scored filename pattern family.
type filenameRule struct {
	name     string
	category string
	score    int
	reason   string
	res      []*regexp.Regexp
}

// Analyzer holds the compiled filename rules and policy tables.
type Analyzer struct {
	cfg   *policy.PolicyConfig
	rules []filenameRule
	now   func() time.Time
}

// New compiles the filename rules from cfg.
func New(cfg *policy.PolicyConfig) *Analyzer {
	company := cfg.Company.Name
	det := cfg.Detection

	rules := []filenameRule{
		{
			name: "confidentialMarkers", category: "Confidential Markers", score: 25,
			reason: fmt.Sprintf("Filename contains confidentiality markers for %s", company),
			res:    append(compileLiterals(cfg.Company.ConfidentialityMarkers), compileLiterals(cfg.CompanyTerms())...),
		},
		{
			name: "financialIndicators", category: "Financial Data", score: det.Financial.Score,
			reason: "Filename suggests financial or business-critical data",
			res:    compileFromGroup(det.Financial),
		},
		{
			name: "strategicContent", category: "Strategic Content", score: det.Strategic.Score,
			reason: "Filename indicates strategic or high-level business content",
			res:    compileFromGroup(det.Strategic),
		},
		{
			name: "customerData", category: "Customer Data", score: det.Customer.Score,
			reason: "Filename suggests customer or user data",
			res:    append(compileFromGroup(det.Customer), compileLiterals([]string{"export", "list", "directory", "cohort", "segment"})...),
		},
		{
			name: "employeeData", category: "Employee Data", score: det.Employee.Score,
			reason: "Filename indicates employee or HR-related data",
			res:    append(compileFromGroup(det.Employee), compileLiterals([]string{"directory", "headcount"})...),
		},
		{
			name: "productDevelopment", category: "Product Development", score: det.Product.Score,
			reason: "Filename indicates product or development content",
			res:    append(compileFromGroup(det.Product), compileLiterals([]string{"prd", "wireframe", "changelog", "unreleased"})...),
		},
		{
			name: "legalCompliance", category: "Legal/Compliance", score: det.Legal.Score,
			reason: "Filename indicates legal or compliance-related content",
			res:    compileFromGroup(det.Legal),
		},
		{
			name: "draftVersions", category: "Draft/Work in Progress", score: det.Drafts.Score,
			reason: "Filename indicates draft or work-in-progress content",
			res:    compileFromGroup(det.Drafts),
		},
		{
			name: "companyNames", category: "Company References", score: 12,
			reason: fmt.Sprintf("Filename contains references to %s or related entities", company),
			res:    companyNamePatterns(cfg),
		},
	}

	return &Analyzer{cfg: cfg, rules: rules, now: time.Now}
}

// Analyze scores meta and returns the findings, total, and risk level.
func (a *Analyzer) Analyze(meta Metadata) Result {
	var findings []patterns.Finding
	findings = append(findings, a.analyzeFilename(meta.Name)...)
	findings = append(findings, a.analyzeFileType(meta)...)
	findings = append(findings, a.analyzeRecency(meta.LastModified)...)
	findings = append(findings, a.analyzeSize(meta)...)

	total := 0
	for _, f := range findings {
		total += f.Score
	}
	level := a.riskLevel(total)

	return Result{
		RiskLevel:      level,
		Severity:       level.severity(),
		TotalScore:     total,
		Findings:       findings,
		Metadata:       meta,
		Recommendation: a.recommendation(level, findings),
	}
}

func (a *Analyzer) analyzeFilename(name string) []patterns.Finding {
	lower := strings.ToLower(name)
	var findings []patterns.Finding
	for i := range a.rules {
		r := &a.rules[i]
		matched := false
		for _, re := range r.res {
			if re.MatchString(lower) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		findings = append(findings, patterns.Finding{
			Type:     "filename_pattern",
			Category: r.category,
			Score:    r.score,
			Reason:   r.reason,
			Sample:   []string{name},
			Source:   SourceFileMeta,
		})
	}
	return findings
}

func (a *Analyzer) analyzeFileType(meta Metadata) []patterns.Finding {
	ext := meta.Extension()
	var findings []patterns.Finding
	for _, cfg := range a.cfg.FileTypes {
		if !contains(cfg.Extensions, ext) && !contains(cfg.MIMETypes, meta.MIMEType) {
			continue
		}
		findings = append(findings, patterns.Finding{
			Type:     "file_type_risk",
			Category: cfg.Category,
			Score:    cfg.Score,
			Sample:   []string{ext},
			Source:   SourceFileMeta,
		})
	}
	return findings
}

// analyzeRecency scores freshly modified files higher: an active document is
// more likely to hold current data than an archived one.
func (a *Analyzer) analyzeRecency(lastModified time.Time) []patterns.Finding {
	if lastModified.IsZero() {
		return nil
	}
	age := a.now().Sub(lastModified)
	days := age.Hours() / 24

	var score int
	var reason string
	switch {
	case days <= 1:
		score, reason = 15, "File modified within 24 hours - likely contains current/active data"
	case days <= 7:
		score, reason = 10, "File modified within 1 week - likely contains recent data"
	case days <= 30:
		score, reason = 5, "File modified within 1 month - may contain current data"
	default:
		return nil
	}
	return []patterns.Finding{{
		Type:     "file_recency",
		Category: "Recently Modified",
		Score:    score,
		Reason:   reason,
		Source:   SourceFileMeta,
	}}
}

func (a *Analyzer) analyzeSize(meta Metadata) []patterns.Finding {
	sizes := a.cfg.FileSizes
	mb := float64(meta.Size) / (1024 * 1024)
	var findings []patterns.Finding

	switch {
	case meta.Size >= sizes.MassiveBytes:
		findings = append(findings, sizeFinding("Massive File", 20, mb,
			"Extremely large file (>100MB) - likely contains bulk data or media"))
	case meta.Size >= sizes.LargeBytes:
		findings = append(findings, sizeFinding("Large File", 15, mb,
			"Large file (>50MB) - may contain significant amounts of data"))
	case meta.Size >= sizes.BulkBytes:
		findings = append(findings, sizeFinding("Bulk Data File", 10, mb,
			"Medium-large file (>10MB) - may contain bulk data export"))
	}

	// Large spreadsheets are almost always data exports.
	mime := strings.ToLower(meta.MIMEType)
	if meta.Size >= sizes.BulkBytes &&
		(strings.Contains(mime, "csv") || strings.Contains(mime, "spreadsheet") || strings.Contains(mime, "excel")) {
		findings = append(findings, patterns.Finding{
			Type:     "bulk_data_export",
			Category: "Likely Data Export",
			Score:    25,
			Reason:   "Large spreadsheet file - very likely to be bulk data export",
			Sample:   []string{fmt.Sprintf("%.1fMB", mb)},
			Source:   SourceFileMeta,
		})
	}
	return findings
}

func sizeFinding(category string, score int, mb float64, reason string) patterns.Finding {
	return patterns.Finding{
		Type:     "file_size",
		Category: category,
		Score:    score,
		Reason:   reason,
		Sample:   []string{fmt.Sprintf("%.1fMB", mb)},
		Source:   SourceFileMeta,
	}
}

func (a *Analyzer) riskLevel(score int) RiskLevel {
	t := a.cfg.FileRisk
	switch {
	case score >= t.Critical:
		return RiskCritical
	case score >= t.High:
		return RiskHigh
	case score >= t.Medium:
		return RiskMedium
	default:
		return RiskLow
	}
}

func (l RiskLevel) severity() patterns.Severity {
	switch l {
	case RiskCritical:
		return patterns.SeverityCritical
	case RiskHigh:
		return patterns.SeverityHigh
	case RiskMedium:
		return patterns.SeverityMedium
	default:
		return patterns.SeverityLow
	}
}

func (a *Analyzer) recommendation(level RiskLevel, findings []patterns.Finding) string {
	company := a.cfg.Company.Name

	hasMarkers := hasCategory(findings, "Confidential Markers")
	hasFinancial := hasCategory(findings, "Financial Data")
	isBulk := hasType(findings, "bulk_data_export")
	isRecent := hasType(findings, "file_recency")

	switch level {
	case RiskCritical:
		return fmt.Sprintf("CRITICAL RISK: File metadata indicates highly sensitive %s content. Review required before upload.", company)
	case RiskHigh:
		switch {
		case hasMarkers:
			return fmt.Sprintf("HIGH RISK: File contains explicit %s confidentiality markers. Verify authorization before sharing.", company)
		case hasFinancial && isRecent:
			return fmt.Sprintf("HIGH RISK: Recent %s financial document detected. Ensure proper approval for external sharing.", company)
		case isBulk:
			return fmt.Sprintf("HIGH RISK: Large %s data export detected. Verify this bulk data is approved for sharing.", company)
		default:
			return fmt.Sprintf("HIGH RISK: File metadata indicates potentially sensitive %s content.", company)
		}
	case RiskMedium:
		return fmt.Sprintf("MEDIUM RISK: File may contain %s business-sensitive information. Review recommended.", company)
	}
	return "LOW RISK: File metadata analysis shows no significant risk indicators."
}

func hasCategory(findings []patterns.Finding, category string) bool {
	for _, f := range findings {
		if f.Category == category {
			return true
		}
	}
	return false
}

func hasType(findings []patterns.Finding, typ string) bool {
	for _, f := range findings {
		if f.Type == typ {
			return true
		}
	}
	return false
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

func compileLiterals(terms []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(terms))
	for _, t := range terms {
		out = append(out, regexp.MustCompile(`(?i)`+regexp.QuoteMeta(t)))
	}
	return out
}

func compileFromGroup(g policy.PatternGroup) []*regexp.Regexp {
	out := compileLiterals(g.Keywords)
	for _, p := range g.Patterns {
		out = append(out, regexp.MustCompile(p))
	}
	return out
}

// companyNamePatterns matches the company name with flexible separators and
// the domains with separator-tolerant dots.
func companyNamePatterns(cfg *policy.PolicyConfig) []*regexp.Regexp {
	out := compileLiterals(cfg.CompanyTerms())
	name := regexp.QuoteMeta(cfg.Company.Name)
	name = strings.ReplaceAll(name, " ", `[_\s-]`)
	out = append(out, regexp.MustCompile(`(?i)`+name))
	for _, d := range cfg.Company.Domains {
		out = append(out, regexp.MustCompile(`(?i)`+strings.ReplaceAll(regexp.QuoteMeta(d), `\.`, `[._-]`)))
	}
	return out
}
