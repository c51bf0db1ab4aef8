package bulk

import (
	"fmt"
	"strings"
	"testing"

	"github.com/datamoat/moat/pkg/patterns"
	"github.com/datamoat/moat/pkg/policy"
)

func newDetector() *Detector {
	return New(policy.Default())
}

func findByType(findings []patterns.Finding, typ string) (patterns.Finding, bool) {
	for _, f := range findings {
		if f.Type == typ {
			return f, true
		}
	}
	return patterns.Finding{}, false
}

func TestBulkEmailsMultiDomain(t *testing.T) {
	d := newDetector()

	content := "reach out to alice@acme.com, bob@globex.com and carol@acme.com about renewals"
	f, ok := findByType(d.Analyze(content), "bulk_email_addresses")
	if !ok {
		t.Fatal("three addresses should trigger bulk email detection")
	}
	if f.Severity != patterns.SeverityCritical {
		t.Errorf("severity = %q, want critical for multi-domain list", f.Severity)
	}
	if !f.IsCustomerList {
		t.Error("addresses across two domains should look like a customer list")
	}
	if f.Count != 3 || f.UniqueDomains != 2 {
		t.Errorf("count = %d domains = %d, want 3/2", f.Count, f.UniqueDomains)
	}
}

func TestBulkEmailsSingleDomain(t *testing.T) {
	d := newDetector()

	content := "cc alice@acme.com, bob@acme.com, carol@acme.com on the thread"
	f, ok := findByType(d.Analyze(content), "bulk_email_addresses")
	if !ok {
		t.Fatal("three addresses should trigger bulk email detection")
	}
	if f.Severity != patterns.SeverityHigh {
		t.Errorf("severity = %q, want high for single-domain list", f.Severity)
	}
	if f.IsCustomerList {
		t.Error("one domain should not look like a customer list")
	}
}

func TestBulkEmailsBelowThreshold(t *testing.T) {
	d := newDetector()

	content := "ping alice@acme.com and bob@globex.com"
	if _, ok := findByType(d.Analyze(content), "bulk_email_addresses"); ok {
		t.Error("two addresses are below the threshold")
	}
}

func TestBulkNames(t *testing.T) {
	d := newDetector()

	content := "attendees: Alice Johnson, Bob Smith, Carol Davis, Dan Brown, Eve Wilson"
	f, ok := findByType(d.Analyze(content), "bulk_personal_names")
	if !ok {
		t.Fatal("five names should trigger bulk name detection")
	}
	if f.Count != 5 {
		t.Errorf("count = %d, want 5", f.Count)
	}
	if f.Severity != patterns.SeverityHigh {
		t.Errorf("severity = %q", f.Severity)
	}
}

func TestBulkNamesStoplistAndDuplicates(t *testing.T) {
	d := newDetector()

	// Four real names plus a place name and a duplicate stay under five.
	content := "Alice Johnson, Bob Smith, Carol Davis, Dan Brown, New York, Alice Johnson"
	if _, ok := findByType(d.Analyze(content), "bulk_personal_names"); ok {
		t.Error("stoplist entries and duplicates must not count toward the threshold")
	}
}

func TestStructuredDataWithCustomerHeaders(t *testing.T) {
	d := newDetector()

	var b strings.Builder
	b.WriteString("name,email,phone\n")
	for i := 0; i < 10; i++ {
		fmt.Fprintf(&b, "user%d,user%d@acme.com,555-010%d\n", i, i, i)
	}

	f, ok := findByType(d.Analyze(b.String()), "structured_data_export")
	if !ok {
		t.Fatal("ten csv rows should trigger structured data detection")
	}
	if f.Severity != patterns.SeverityCritical {
		t.Errorf("severity = %q, want critical with customer headers", f.Severity)
	}
	if !f.IsCustomerList {
		t.Error("customer headers should mark the export as a customer list")
	}
	if f.Rows != 11 || f.Columns != 3 {
		t.Errorf("rows = %d columns = %d, want 11/3", f.Rows, f.Columns)
	}
}

func TestStructuredDataWithoutCustomerHeaders(t *testing.T) {
	d := newDetector()

	var b strings.Builder
	b.WriteString("sku,qty,price\n")
	for i := 0; i < 10; i++ {
		fmt.Fprintf(&b, "A%d,5,9.99\n", i)
	}

	f, ok := findByType(d.Analyze(b.String()), "structured_data_export")
	if !ok {
		t.Fatal("csv block should still be detected")
	}
	if f.Severity != patterns.SeverityHigh {
		t.Errorf("severity = %q, want high without customer headers", f.Severity)
	}
}

func TestDatabaseDump(t *testing.T) {
	d := newDetector()

	tests := []struct {
		name    string
		content string
		format  string
	}{
		{"sql insert", "INSERT INTO users (id, email) VALUES (1, 'a@b.com');", "SQL INSERT"},
		{"sql select", "select * from customers where active = 1", "SQL SELECT"},
		{"sql create", "CREATE TABLE accounts (id INT);", "SQL CREATE"},
		{"json export", `[{"id": 1, "name": "Alice"}]`, "JSON Export"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, ok := findByType(d.Analyze(tt.content), "database_dump")
			if !ok {
				t.Fatal("dump signature not detected")
			}
			if f.Severity != patterns.SeverityCritical {
				t.Errorf("severity = %q", f.Severity)
			}
			if len(f.Sample) == 0 || f.Sample[0] != tt.format {
				t.Errorf("sample = %v, want %q first", f.Sample, tt.format)
			}
		})
	}
}

func TestFormattedContactList(t *testing.T) {
	d := newDetector()

	var b strings.Builder
	for i := 1; i <= 5; i++ {
		fmt.Fprintf(&b, "%d. contact user%d@acme.com for access\n", i, i)
	}

	f, ok := findByType(d.Analyze(b.String()), "formatted_contact_list")
	if !ok {
		t.Fatal("numbered list of addresses should be detected")
	}
	if f.Count != 5 {
		t.Errorf("count = %d, want 5", f.Count)
	}
}

func TestFormattedListWithoutContacts(t *testing.T) {
	d := newDetector()

	content := "1. buy milk\n2. water plants\n3. fix the gate\n4. call the vet\n5. sweep porch\n"
	if _, ok := findByType(d.Analyze(content), "formatted_contact_list"); ok {
		t.Error("a plain todo list is not a contact list")
	}
}

func TestHighPIIDensity(t *testing.T) {
	d := newDetector()

	// Twelve addresses in very few words pushes density over the threshold.
	var b strings.Builder
	for i := 0; i < 12; i++ {
		fmt.Fprintf(&b, "u%d@a.com ", i)
	}

	f, ok := findByType(d.Analyze(b.String()), "high_pii_density")
	if !ok {
		t.Fatal("dense address block should be detected")
	}
	if f.Density <= 0.3 {
		t.Errorf("density = %f", f.Density)
	}
}

func TestDensityRequiresVolume(t *testing.T) {
	d := newDetector()

	// Density 1.0 but only two data points; volume guard must hold.
	if _, ok := findByType(d.Analyze("a@b.com c@d.com"), "high_pii_density"); ok {
		t.Error("a handful of tokens is not a bulk export")
	}
}

func TestBenignProse(t *testing.T) {
	d := newDetector()

	content := "The quarterly planning meeting moved to the large conference room. " +
		"Bring your laptop and the printed agenda."
	if findings := d.Analyze(content); len(findings) != 0 {
		t.Errorf("benign prose produced findings: %+v", findings)
	}
}
