// Package audit builds per-decision audit records. Records are values: the
// caller decides where they go (the gateway logs them), nothing here writes
// storage.
package audit

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/datamoat/moat/pkg/pipeline"
)

// Record summarizes one analysis decision for audit trails.
type Record struct {
	ID                  string    `json:"id"`
	Timestamp           time.Time `json:"timestamp"`
	Allowed             bool      `json:"allowed"`
	Stage               string    `json:"stage"`
	Classification      string    `json:"classification,omitempty"`
	DestinationCategory string    `json:"destination_category,omitempty"`
	FindingsCount       int       `json:"findings_count"`
	LatencyMS           int64     `json:"latency_ms"`
}

// NewRecord captures a Decision into an audit record.
func NewRecord(d pipeline.Decision) Record {
	r := Record{
		ID:            uuid.NewString(),
		Timestamp:     time.Now().UTC(),
		Allowed:       d.Allowed,
		Stage:         d.Stage,
		FindingsCount: len(d.Findings),
		LatencyMS:     d.TookMS,
	}
	if d.Classification != nil {
		r.Classification = string(d.Classification.Classification)
		r.DestinationCategory = d.Classification.Destination.Category
	}
	return r
}

// String renders the record as a single log line.
func (r Record) String() string {
	action := "ALLOW"
	if !r.Allowed {
		action = "BLOCK"
	}
	return fmt.Sprintf("id=%s action=%s stage=%s class=%s dest=%q findings=%d took=%dms",
		r.ID, action, r.Stage, orDash(r.Classification), r.DestinationCategory, r.FindingsCount, r.LatencyMS)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
