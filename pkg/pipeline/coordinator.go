// Package pipeline coordinates the staged analysis of outbound content. The
// fast stage (patterns, bulk detection, classification, decision policy) runs
// synchronously; the semantic stage is raced against a timeout and its late
// results are discarded. Every failure path resolves to an allowed Decision:
// availability wins over strict enforcement.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/datamoat/moat/pkg/bulk"
	"github.com/datamoat/moat/pkg/classify"
	"github.com/datamoat/moat/pkg/decision"
	"github.com/datamoat/moat/pkg/destination"
	"github.com/datamoat/moat/pkg/filemeta"
	"github.com/datamoat/moat/pkg/httputil"
	"github.com/datamoat/moat/pkg/patterns"
	"github.com/datamoat/moat/pkg/policy"
	"github.com/datamoat/moat/pkg/semantic"
)

// Stages a Decision can originate from.
const (
	StageTrivial          = "trivial"
	StageFast             = "fast"
	StageSemantic         = "semantic"
	StageSemanticTimeout  = "semantic_timeout"
	StageSemanticNotReady = "semantic_not_ready"
	StageError            = "error"
)

// maxConcurrentSemantic caps in-flight embedding calls.
const maxConcurrentSemantic = 4

// Decision is the terminal outcome of one analysis. It is never retried.
type Decision struct {
	Allowed        bool               `json:"allowed"`
	Message        string             `json:"message"`
	Findings       []patterns.Finding `json:"findings,omitempty"`
	Stage          string             `json:"stage"`
	Classification *classify.Result   `json:"classification,omitempty"`
	FileRisk       *filemeta.Result   `json:"file_risk,omitempty"`
	TookMS         int64              `json:"analysis_took_ms"`
}

// SemanticStage is the optional slow analysis layer.
type SemanticStage interface {
	IsReady() bool
	Analyze(ctx context.Context, content string) (*semantic.Result, error)
	Evaluate(findings []patterns.Finding, rawURL string) semantic.Verdict
}

// analyzers bundles everything built from one policy snapshot so an in-flight
// analysis never mixes two policy revisions.
type analyzers struct {
	rev      uint64
	cfg      *policy.PolicyConfig
	registry *patterns.Registry
	bulk     *bulk.Detector
	engine   *classify.Engine
	files    *filemeta.Analyzer
	dests    *destination.Classifier
	rules    *decision.Policy
}

// Coordinator runs the staged pipeline against the current policy snapshot.
type Coordinator struct {
	store   *policy.Store
	sem     SemanticStage
	limiter *httputil.Semaphore

	mu  sync.Mutex
	cur atomic.Pointer[analyzers]
}

// New builds a Coordinator. sem may be nil when the semantic stage is
// disabled; the pipeline then stops after the fast stage.
func New(store *policy.Store, sem SemanticStage) *Coordinator {
	c := &Coordinator{
		store:   store,
		sem:     sem,
		limiter: httputil.NewSemaphore(maxConcurrentSemantic),
	}
	c.cur.Store(c.build())
	return c
}

func (c *Coordinator) build() *analyzers {
	rev := c.store.Revision()
	cfg := c.store.Snapshot()
	return &analyzers{
		rev:      rev,
		cfg:      cfg,
		registry: patterns.New(cfg),
		bulk:     bulk.New(cfg),
		engine:   classify.NewEngine(cfg),
		files:    filemeta.New(cfg),
		dests:    destination.New(cfg),
		rules:    decision.New(),
	}
}

// snapshot returns the analyzers for the current policy revision, rebuilding
// them once after a hot reload.
func (c *Coordinator) snapshot() *analyzers {
	a := c.cur.Load()
	if a.rev == c.store.Revision() {
		return a
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	a = c.cur.Load()
	if a.rev != c.store.Revision() {
		a = c.build()
		c.cur.Store(a)
	}
	return a
}

// AnalyzeText classifies outbound text and decides whether the transfer may
// proceed. It never returns an error: analysis faults yield an allowed
// Decision with stage "error".
func (c *Coordinator) AnalyzeText(ctx context.Context, text, rawURL string) (d Decision) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[PIPELINE] analysis panic recovered: %v", r)
			d = Decision{Allowed: true, Message: "Analysis error - transfer allowed", Stage: StageError}
		}
		d.TookMS = time.Since(start).Milliseconds()
	}()

	a := c.snapshot()

	text = norm.NFKC.String(text)
	text = truncate(text, a.cfg.MaxContentLength)

	if len(text) < a.cfg.MinAnalyzeLength {
		return Decision{Allowed: true, Message: "Content too short to analyze", Stage: StageTrivial}
	}

	findings := a.registry.Scan(text)
	findings = append(findings, a.bulk.Analyze(text)...)
	cls := a.engine.Analyze(text, rawURL)

	verdict := a.rules.Evaluate(decision.Input{
		Findings:       findings,
		Classification: &cls,
		Bulk:           a.cfg.Bulk,
	})
	if !verdict.Allowed {
		return Decision{
			Allowed:        false,
			Message:        verdict.Message,
			Findings:       findings,
			Stage:          StageFast,
			Classification: &cls,
		}
	}

	if c.sem == nil || !a.cfg.Semantic.Enabled {
		return Decision{
			Allowed:        true,
			Message:        verdict.Message,
			Findings:       findings,
			Stage:          StageFast,
			Classification: &cls,
		}
	}

	if !c.sem.IsReady() {
		return Decision{
			Allowed:        true,
			Message:        "Semantic analysis still loading - transfer allowed",
			Findings:       findings,
			Stage:          StageSemanticNotReady,
			Classification: &cls,
		}
	}

	if !c.limiter.TryAcquire() {
		return Decision{
			Allowed:        true,
			Message:        "Semantic analysis at capacity - transfer allowed",
			Findings:       findings,
			Stage:          StageSemanticNotReady,
			Classification: &cls,
		}
	}

	type semOutcome struct {
		res *semantic.Result
		err error
	}

	sctx, cancel := context.WithTimeout(ctx, a.cfg.Semantic.Timeout)
	defer cancel()

	// Buffered so a result arriving after the timeout is dropped here and
	// cannot alter the already returned Decision.
	ch := make(chan semOutcome, 1)
	go func() {
		defer c.limiter.Release()
		res, err := c.sem.Analyze(sctx, text)
		ch <- semOutcome{res: res, err: err}
	}()

	select {
	case out := <-ch:
		if out.err != nil {
			log.Printf("[PIPELINE] semantic analysis failed: %v", out.err)
			return Decision{
				Allowed:        true,
				Message:        "Analysis error - transfer allowed",
				Findings:       findings,
				Stage:          StageError,
				Classification: &cls,
			}
		}
		all := append(findings, out.res.Findings...)
		v := c.sem.Evaluate(all, rawURL)
		return Decision{
			Allowed:        v.Allowed,
			Message:        v.Reason,
			Findings:       all,
			Stage:          StageSemantic,
			Classification: &cls,
		}
	case <-sctx.Done():
		return Decision{
			Allowed:        true,
			Message:        "Analysis timeout - transfer allowed",
			Findings:       findings,
			Stage:          StageSemanticTimeout,
			Classification: &cls,
		}
	}
}

// AnalyzeFile evaluates upload metadata and, when an extracted body is
// provided, runs it through the text pipeline as well.
func (c *Coordinator) AnalyzeFile(ctx context.Context, meta filemeta.Metadata, rawURL, body string) (d Decision) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[PIPELINE] file analysis panic recovered: %v", r)
			d = Decision{Allowed: true, Message: "Analysis error - transfer allowed", Stage: StageError}
		}
		d.TookMS = time.Since(start).Milliseconds()
	}()

	a := c.snapshot()

	res := a.files.Analyze(meta)
	dest := a.dests.Classify(rawURL)

	if res.RiskLevel == filemeta.RiskCritical {
		return Decision{
			Allowed:  false,
			Message:  res.Recommendation,
			Findings: res.Findings,
			Stage:    StageFast,
			FileRisk: &res,
		}
	}
	if res.RiskLevel == filemeta.RiskHigh && dest.Risk == destination.RiskHigh {
		return Decision{
			Allowed:  false,
			Message:  fmt.Sprintf("High risk file blocked: %s is a high risk destination", dest.Category),
			Findings: res.Findings,
			Stage:    StageFast,
			FileRisk: &res,
		}
	}

	if body != "" {
		td := c.AnalyzeText(ctx, body, rawURL)
		td.FileRisk = &res
		td.Findings = append(res.Findings, td.Findings...)
		return td
	}

	return Decision{
		Allowed:  true,
		Message:  res.Recommendation,
		Findings: res.Findings,
		Stage:    StageFast,
		FileRisk: &res,
	}
}

// truncate cuts s at max bytes without splitting a rune.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
