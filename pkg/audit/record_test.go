package audit

import (
	"strings"
	"testing"

	"github.com/datamoat/moat/pkg/classify"
	"github.com/datamoat/moat/pkg/destination"
	"github.com/datamoat/moat/pkg/patterns"
	"github.com/datamoat/moat/pkg/pipeline"
)

func TestNewRecord(t *testing.T) {
	d := pipeline.Decision{
		Allowed: false,
		Message: "AWS Access Key detected",
		Stage:   pipeline.StageFast,
		Findings: []patterns.Finding{
			{Type: "awsKey", Severity: patterns.SeverityCritical},
		},
		Classification: &classify.Result{
			Classification: classify.Public,
			Destination:    destination.Risk{Category: "Paste/Sharing Services"},
		},
		TookMS: 7,
	}

	r := NewRecord(d)
	if r.ID == "" {
		t.Error("record should have an ID")
	}
	if r.Timestamp.IsZero() {
		t.Error("record should have a timestamp")
	}
	if r.Allowed {
		t.Error("allowed should mirror the decision")
	}
	if r.Stage != pipeline.StageFast {
		t.Errorf("stage = %q", r.Stage)
	}
	if r.Classification != "PUBLIC" {
		t.Errorf("classification = %q", r.Classification)
	}
	if r.DestinationCategory != "Paste/Sharing Services" {
		t.Errorf("destination = %q", r.DestinationCategory)
	}
	if r.FindingsCount != 1 {
		t.Errorf("findings = %d", r.FindingsCount)
	}
	if r.LatencyMS != 7 {
		t.Errorf("latency = %d", r.LatencyMS)
	}
}

func TestNewRecordWithoutClassification(t *testing.T) {
	r := NewRecord(pipeline.Decision{Allowed: true, Stage: pipeline.StageTrivial})
	if r.Classification != "" || r.DestinationCategory != "" {
		t.Errorf("trivial decision should leave classification empty, got %q/%q",
			r.Classification, r.DestinationCategory)
	}
	if !strings.Contains(r.String(), "class=-") {
		t.Errorf("String() = %q", r.String())
	}
}

func TestRecordString(t *testing.T) {
	r := NewRecord(pipeline.Decision{Allowed: false, Stage: pipeline.StageFast})
	s := r.String()
	if !strings.Contains(s, "action=BLOCK") || !strings.Contains(s, "stage=fast") {
		t.Errorf("String() = %q", s)
	}

	r = NewRecord(pipeline.Decision{Allowed: true, Stage: pipeline.StageSemantic})
	if !strings.Contains(r.String(), "action=ALLOW") {
		t.Errorf("String() = %q", r.String())
	}
}
