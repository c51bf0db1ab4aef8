package semantic

import (
	"context"
	"strings"
	"testing"

	"github.com/datamoat/moat/pkg/patterns"
	"github.com/datamoat/moat/pkg/policy"
)

// testEmbeddingFunc maps text onto orthogonal axes by keyword so similarity
// scores are deterministic without a live embedding service.
func testEmbeddingFunc(_ context.Context, text string) ([]float32, error) {
	lower := strings.ToLower(text)
	axes := []struct {
		dim      int
		keywords []string
	}{
		{0, []string{"credit card", "bank account", "social security", "salary"}},
		{1, []string{"password", "api key", "private key", "login"}},
		{2, []string{"confidential", "internal only", "classified"}},
		{3, []string{"home address", "phone number", "email address", "date of birth"}},
	}
	vec := make([]float32, 5)
	for _, axis := range axes {
		for _, kw := range axis.keywords {
			if strings.Contains(lower, kw) {
				vec[axis.dim] = 1
				return vec, nil
			}
		}
	}
	vec[4] = 1
	return vec, nil
}

func newTestDetector(t *testing.T) *Detector {
	t.Helper()
	det, err := NewDetectorWithEmbedder(policy.Default(), testEmbeddingFunc)
	if err != nil {
		t.Fatalf("NewDetectorWithEmbedder: %v", err)
	}
	if err := det.LoadExemplars(context.Background()); err != nil {
		t.Fatalf("LoadExemplars: %v", err)
	}
	return det
}

func TestAnalyzeNotReady(t *testing.T) {
	det, err := NewDetectorWithEmbedder(policy.Default(), testEmbeddingFunc)
	if err != nil {
		t.Fatalf("NewDetectorWithEmbedder: %v", err)
	}
	if _, err := det.Analyze(context.Background(), "anything"); err == nil {
		t.Fatal("Analyze before LoadExemplars should fail")
	}
}

func TestNewDetectorWithNilEmbedder(t *testing.T) {
	if _, err := NewDetectorWithEmbedder(policy.Default(), nil); err == nil {
		t.Fatal("nil embedding function should be rejected")
	}
}

func TestAnalyzeCredentials(t *testing.T) {
	det := newTestDetector(t)

	res, err := det.Analyze(context.Background(), "here is the admin password for staging")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(res.Findings) != 1 {
		t.Fatalf("findings = %d, want 1", len(res.Findings))
	}
	f := res.Findings[0]
	if f.Type != "semantic_similarity" {
		t.Errorf("type = %q", f.Type)
	}
	if f.Category != "credentials" {
		t.Errorf("category = %q, want credentials", f.Category)
	}
	if f.Severity != patterns.SeverityCritical {
		t.Errorf("severity = %q, want critical for similarity 1.0", f.Severity)
	}
	if f.Source != SourceSemantic {
		t.Errorf("source = %q", f.Source)
	}
}

func TestAnalyzeBenign(t *testing.T) {
	det := newTestDetector(t)

	res, err := det.Analyze(context.Background(), "lunch menu for tuesday team offsite")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(res.Findings) != 0 {
		t.Errorf("benign content produced findings: %+v", res.Findings)
	}
}

func TestSeverityFromScore(t *testing.T) {
	tests := []struct {
		score float32
		want  patterns.Severity
	}{
		{0.90, patterns.SeverityCritical},
		{0.85, patterns.SeverityHigh},
		{0.80, patterns.SeverityHigh},
		{0.75, patterns.SeverityMedium},
		{0.70, patterns.SeverityMedium},
		{0.65, patterns.SeverityLow},
		{0.50, patterns.SeverityLow},
	}
	for _, tt := range tests {
		if got := severityFromScore(tt.score); got != tt.want {
			t.Errorf("severityFromScore(%.2f) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestIsExternal(t *testing.T) {
	det := newTestDetector(t)

	tests := []struct {
		url  string
		want bool
	}{
		{"https://chat.example-ai.com/conversation", true},
		{"https://intranet.techcorp.com/wiki", false},
		{"http://localhost:3000/upload", false},
		{"https://mail.google.com/mail", true},
		{"not a url", true},
		{"", true},
	}
	for _, tt := range tests {
		if got := det.IsExternal(tt.url); got != tt.want {
			t.Errorf("IsExternal(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestEvaluateOrder(t *testing.T) {
	det := newTestDetector(t)
	external := "https://pastebin.com/raw"

	tests := []struct {
		name     string
		findings []patterns.Finding
		url      string
		allowed  bool
		reason   string
	}{
		{
			name:    "no findings",
			url:     external,
			allowed: true,
			reason:  "No sensitive content detected",
		},
		{
			name: "bulk beats everything",
			findings: []patterns.Finding{
				{Type: "semantic_similarity", Severity: patterns.SeverityCritical},
				{Type: "bulk_email_addresses", Category: string(patterns.CategoryBulkPII), Severity: patterns.SeverityHigh},
			},
			url:     "https://intranet.techcorp.com",
			allowed: false,
			reason:  "Bulk data export detected: bulk_email_addresses",
		},
		{
			name: "critical blocks even internally",
			findings: []patterns.Finding{
				{Type: "aws_access_key", Severity: patterns.SeverityCritical},
			},
			url:     "https://intranet.techcorp.com",
			allowed: false,
			reason:  "Critical content: aws_access_key",
		},
		{
			name: "high blocks only externally",
			findings: []patterns.Finding{
				{Type: "semantic_similarity", Severity: patterns.SeverityHigh},
			},
			url:     external,
			allowed: false,
			reason:  "Sensitive content on external domain",
		},
		{
			name: "high allowed internally",
			findings: []patterns.Finding{
				{Type: "semantic_similarity", Severity: patterns.SeverityHigh},
			},
			url:     "https://intranet.techcorp.com",
			allowed: true,
			reason:  "Content allowed",
		},
		{
			name: "two medium findings external",
			findings: []patterns.Finding{
				{Type: "email_address", Severity: patterns.SeverityMedium},
				{Type: "phone_number", Severity: patterns.SeverityMedium},
			},
			url:     external,
			allowed: false,
			reason:  "Multiple sensitive patterns detected",
		},
		{
			name: "single medium external allowed",
			findings: []patterns.Finding{
				{Type: "email_address", Severity: patterns.SeverityMedium},
			},
			url:     external,
			allowed: true,
			reason:  "Content allowed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := det.Evaluate(tt.findings, tt.url)
			if v.Allowed != tt.allowed {
				t.Errorf("allowed = %v, want %v", v.Allowed, tt.allowed)
			}
			if v.Reason != tt.reason {
				t.Errorf("reason = %q, want %q", v.Reason, tt.reason)
			}
		})
	}
}

func TestExemplarCount(t *testing.T) {
	det := newTestDetector(t)
	if got := det.ExemplarCount(); got != 16 {
		t.Errorf("ExemplarCount = %d, want 16", got)
	}
	if got := len(Categories()); got != 4 {
		t.Errorf("Categories = %d, want 4", got)
	}
}
