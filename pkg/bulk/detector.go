// Package bulk detects mass-export signals: email lists, name lists,
// CSV/TSV-shaped blocks, formatted contact lists, database dumps, and
// abnormally high PII density. These signals outrank individual pattern hits
// in the decision order because a bulk export is the worst-case leak.
package bulk

import (
	"regexp"
	"strings"

	"github.com/datamoat/moat/pkg/patterns"
	"github.com/datamoat/moat/pkg/policy"
)

// SourceBulk tags findings produced by this detector.
const SourceBulk = "bulk_data_detection"

var (
	nameRe  = regexp.MustCompile(`\b[A-Z][a-z]+\s+[A-Z][a-z]+\b`)
	phoneRe = regexp.MustCompile(`\b\d{3}[-.]?\d{3}[-.]?\d{4}\b`)
	listRe  = regexp.MustCompile(`^[\s]*[\d\-\*•]+[\.\):\s]+(.+)$`)
	atRe    = regexp.MustCompile(`@`)
)

// Place names that match the First-Last shape but are never personal names.
var nameStoplist = map[string]struct{}{
	"New York":      {},
	"Los Angeles":   {},
	"San Francisco": {},
	"United States": {},
}

// Database-export signatures. Any single hit is treated as critical.
var dumpSignatures = []struct {
	re     *regexp.Regexp
	format string
}{
	{regexp.MustCompile(`(?i)INSERT\s+INTO`), "SQL INSERT"},
	{regexp.MustCompile(`(?i)SELECT\s+\*\s+FROM`), "SQL SELECT"},
	{regexp.MustCompile(`(?i)CREATE\s+TABLE`), "SQL CREATE"},
	{regexp.MustCompile(`(?i)\bID\b.*\bName\b.*\bEmail\b`), "Database Schema"},
	{regexp.MustCompile(`(?i)"id":\s*\d+,\s*"name":`), "JSON Export"},
	{regexp.MustCompile(`(?i)<customer>.*<email>`), "XML Export"},
}

// Header keywords that mark a structured block as customer data.
var customerHeaders = []string{
	"name", "email", "phone", "address", "customer",
	"contact", "user", "client", "firstname", "lastname",
}

// Detector runs the bulk-signal checks with policy-configured thresholds.
type Detector struct {
	cfg      policy.BulkSettings
	registry *patterns.Registry
}

// New returns a Detector using the thresholds from cfg.
func New(cfg *policy.PolicyConfig) *Detector {
	return &Detector{cfg: cfg.Bulk, registry: patterns.New(cfg)}
}

// Analyze runs every bulk check against content and returns the findings.
// Density is included; callers get the complete bulk picture in one call.
func (d *Detector) Analyze(content string) []patterns.Finding {
	var findings []patterns.Finding
	if f, ok := d.detectBulkEmails(content); ok {
		findings = append(findings, f)
	}
	if f, ok := d.detectBulkNames(content); ok {
		findings = append(findings, f)
	}
	if f, ok := d.detectStructuredData(content); ok {
		findings = append(findings, f)
	}
	if f, ok := d.detectListPatterns(content); ok {
		findings = append(findings, f)
	}
	if f, ok := d.detectDatabaseDump(content); ok {
		findings = append(findings, f)
	}
	if f, ok := d.analyzeDensity(content); ok {
		findings = append(findings, f)
	}
	return findings
}

// detectBulkEmails flags threshold-or-more unique addresses. Addresses
// spanning more than one domain look like a customer list and escalate to
// critical.
func (d *Detector) detectBulkEmails(content string) (patterns.Finding, bool) {
	emails := d.registry.FindEmails(content)
	if len(emails) < d.cfg.EmailThreshold {
		return patterns.Finding{}, false
	}

	domains := make(map[string]struct{})
	for _, e := range emails {
		if i := strings.LastIndex(e, "@"); i >= 0 {
			domains[strings.ToLower(e[i+1:])] = struct{}{}
		}
	}
	isCustomerList := len(domains) > 1

	severity := patterns.SeverityHigh
	if isCustomerList {
		severity = patterns.SeverityCritical
	}

	return patterns.Finding{
		Type:           "bulk_email_addresses",
		Category:       string(patterns.CategoryBulkPII),
		Severity:       severity,
		Count:          len(emails),
		UniqueDomains:  len(domains),
		IsCustomerList: isCustomerList,
		Sample:         emails[:min(3, len(emails))],
		Source:         SourceBulk,
	}, true
}

func (d *Detector) detectBulkNames(content string) (patterns.Finding, bool) {
	potential := nameRe.FindAllString(content, -1)
	seen := make(map[string]struct{})
	var names []string
	for _, n := range potential {
		if _, stop := nameStoplist[n]; stop {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		names = append(names, n)
	}
	if len(names) < d.cfg.NameThreshold {
		return patterns.Finding{}, false
	}
	return patterns.Finding{
		Type:     "bulk_personal_names",
		Category: string(patterns.CategoryBulkPII),
		Severity: patterns.SeverityHigh,
		Count:    len(names),
		Sample:   names[:min(3, len(names))],
		Source:   SourceBulk,
	}, true
}

// detectStructuredData flags CSV/TSV-shaped blocks: threshold-or-more lines
// with at least two delimiters each. A header row naming customer fields
// escalates to critical.
func (d *Detector) detectStructuredData(content string) (patterns.Finding, bool) {
	var csvLike []string
	for _, line := range strings.Split(content, "\n") {
		if strings.Count(line, ",") >= 2 || strings.Count(line, "\t") >= 2 {
			csvLike = append(csvLike, line)
		}
	}
	if len(csvLike) < d.cfg.StructuredRowThreshold {
		return patterns.Finding{}, false
	}

	first := csvLike[0]
	delimiter := ","
	if strings.Contains(first, "\t") {
		delimiter = "\t"
	}
	columns := len(strings.Split(first, delimiter))

	header := strings.ToLower(first)
	hasCustomerHeaders := false
	for _, h := range customerHeaders {
		if strings.Contains(header, h) {
			hasCustomerHeaders = true
			break
		}
	}

	severity := patterns.SeverityHigh
	if hasCustomerHeaders {
		severity = patterns.SeverityCritical
	}

	return patterns.Finding{
		Type:           "structured_data_export",
		Category:       string(patterns.CategoryBulkPII),
		Severity:       severity,
		Rows:           len(csvLike),
		Columns:        columns,
		IsCustomerList: hasCustomerHeaders,
		Source:         SourceBulk,
	}, true
}

// detectListPatterns flags numbered or bulleted lists whose items carry
// emails or personal names.
func (d *Detector) detectListPatterns(content string) (patterns.Finding, bool) {
	var listItems, itemsWithEmails, itemsWithNames int
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		m := listRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		listItems++
		item := m[1]
		if atRe.MatchString(item) {
			itemsWithEmails++
		}
		if nameRe.MatchString(item) {
			itemsWithNames++
		}
	}
	if listItems < 5 || (itemsWithEmails < 3 && itemsWithNames < 5) {
		return patterns.Finding{}, false
	}
	return patterns.Finding{
		Type:     "formatted_contact_list",
		Category: string(patterns.CategoryBulkPII),
		Severity: patterns.SeverityHigh,
		Count:    listItems,
		Source:   SourceBulk,
	}, true
}

func (d *Detector) detectDatabaseDump(content string) (patterns.Finding, bool) {
	var formats []string
	for _, sig := range dumpSignatures {
		if sig.re.MatchString(content) {
			formats = append(formats, sig.format)
		}
	}
	if len(formats) == 0 {
		return patterns.Finding{}, false
	}
	return patterns.Finding{
		Type:     "database_dump",
		Category: string(patterns.CategoryBulkPII),
		Severity: patterns.SeverityCritical,
		Count:    len(formats),
		Sample:   formats[:min(3, len(formats))],
		Source:   SourceBulk,
	}, true
}

// analyzeDensity flags content where personal-data tokens dominate the text.
func (d *Detector) analyzeDensity(content string) (patterns.Finding, bool) {
	words := len(strings.Fields(content))
	dataPoints := len(atRe.FindAllString(content, -1)) +
		len(nameRe.FindAllString(content, -1)) +
		len(phoneRe.FindAllString(content, -1))

	var density float64
	if words > 0 {
		density = float64(dataPoints) / float64(words)
	}
	if density <= d.cfg.DensityThreshold || dataPoints <= 10 {
		return patterns.Finding{}, false
	}
	return patterns.Finding{
		Type:     "high_pii_density",
		Category: string(patterns.CategoryBulkPII),
		Severity: patterns.SeverityHigh,
		Count:    dataPoints,
		Density:  density,
		Source:   SourceBulk,
	}, true
}
