// Package semantic provides embedding-based detection of sensitive content.
// It complements the regex analyzers by catching paraphrased or reworded
// sensitive material that exact patterns miss.
package semantic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/datamoat/moat/pkg/httputil"
	"github.com/datamoat/moat/pkg/patterns"
	"github.com/datamoat/moat/pkg/policy"
)

// SourceSemantic identifies findings produced by embedding similarity.
const SourceSemantic = "semantic_analysis"

// Exemplar is a reference sentence describing one kind of sensitive content.
type Exemplar struct {
	Text     string
	Category string
}

// CategoryScore is the best similarity observed for one exemplar category.
type CategoryScore struct {
	Category string  `json:"category"`
	MaxScore float32 `json:"max_score"`
}

// Result contains the semantic similarity findings for a piece of content.
type Result struct {
	Findings []patterns.Finding `json:"findings"`
	Scores   []CategoryScore    `json:"scores"`
}

// Verdict is the outcome of evaluating combined findings against a destination.
type Verdict struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
}

// Detector scores content against sensitive-content exemplars using an
// embedded vector store. Not useful until LoadExemplars has run.
type Detector struct {
	db              *chromem.DB
	collection      *chromem.Collection
	threshold       float32
	internalDomains []string
	mu              sync.RWMutex
	ready           bool
}

// newOllamaEmbeddingFunc creates an embedding function backed by the Ollama
// /api/embeddings endpoint.
func newOllamaEmbeddingFunc(model, baseURL string) chromem.EmbeddingFunc {
	client := httputil.MediumClient()

	return func(ctx context.Context, text string) ([]float32, error) {
		reqBody := map[string]string{
			"model":  model,
			"prompt": text,
		}
		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, "POST", baseURL+"/api/embeddings", bytes.NewBuffer(jsonData))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}
		defer httputil.DrainAndClose(resp.Body)

		if err := httputil.CheckResponse(resp, "ollama embedding"); err != nil {
			return nil, err
		}

		var result struct {
			Embedding []float32 `json:"embedding"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}

		return result.Embedding, nil
	}
}

// NewDetector creates a detector with an embedded vector store using the
// configured embedding endpoint and model.
func NewDetector(cfg *policy.PolicyConfig) (*Detector, error) {
	db := chromem.NewDB()

	embeddingFunc := newOllamaEmbeddingFunc(cfg.Semantic.Model, cfg.Semantic.EmbedURL)

	collection, err := db.CreateCollection("sensitive_exemplars", nil, embeddingFunc)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	internal := make([]string, 0, len(cfg.Company.Domains)+1)
	internal = append(internal, cfg.Company.Domains...)
	internal = append(internal, "localhost")

	return &Detector{
		db:              db,
		collection:      collection,
		threshold:       cfg.Semantic.Threshold,
		internalDomains: internal,
	}, nil
}

// NewDetectorWithEmbedder creates a detector with an explicit embedding
// function. Tests use this to avoid a live embedding service.
func NewDetectorWithEmbedder(cfg *policy.PolicyConfig, embeddingFunc chromem.EmbeddingFunc) (*Detector, error) {
	if embeddingFunc == nil {
		return nil, fmt.Errorf("embedding function is nil")
	}

	db := chromem.NewDB()

	collection, err := db.CreateCollection("sensitive_exemplars", nil, embeddingFunc)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	internal := make([]string, 0, len(cfg.Company.Domains)+1)
	internal = append(internal, cfg.Company.Domains...)
	internal = append(internal, "localhost")

	return &Detector{
		db:              db,
		collection:      collection,
		threshold:       cfg.Semantic.Threshold,
		internalDomains: internal,
	}, nil
}

// LoadExemplars embeds the sensitive-content exemplars into the vector store.
// Documents are added sequentially to avoid overwhelming the embedding API.
func (d *Detector) LoadExemplars(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	exemplars := sensitiveExemplars()
	docs := make([]chromem.Document, len(exemplars))
	for i, e := range exemplars {
		docs[i] = chromem.Document{
			ID:      fmt.Sprintf("exemplar_%d", i),
			Content: e.Text,
			Metadata: map[string]string{
				"category": e.Category,
			},
		}
	}

	if err := d.collection.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("failed to add exemplars: %w", err)
	}

	d.ready = true
	return nil
}

// IsReady returns whether the exemplars have been loaded.
func (d *Detector) IsReady() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.ready
}

// SetThreshold updates the similarity threshold.
func (d *Detector) SetThreshold(t float32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.threshold = t
}

// Analyze scores content against the exemplar categories and returns a
// finding for every category whose best similarity exceeds the threshold.
func (d *Detector) Analyze(ctx context.Context, content string) (*Result, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.ready {
		return nil, fmt.Errorf("semantic detector not initialized - call LoadExemplars first")
	}

	// Lowercase for better embedding similarity matching
	queryText := strings.ToLower(content)

	results, err := d.collection.Query(ctx, queryText, len(sensitiveExemplars()), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	best := map[string]float32{}
	for _, r := range results {
		cat := r.Metadata["category"]
		if r.Similarity > best[cat] {
			best[cat] = r.Similarity
		}
	}

	scores := make([]CategoryScore, 0, len(best))
	for cat, s := range best {
		scores = append(scores, CategoryScore{Category: cat, MaxScore: s})
	}
	sort.Slice(scores, func(i, j int) bool { return scores[i].MaxScore > scores[j].MaxScore })

	var findings []patterns.Finding
	for _, s := range scores {
		if s.MaxScore > d.threshold {
			findings = append(findings, patterns.Finding{
				Type:       "semantic_similarity",
				Category:   s.Category,
				Severity:   severityFromScore(s.MaxScore),
				Confidence: s.MaxScore,
				Source:     SourceSemantic,
			})
		}
	}

	return &Result{Findings: findings, Scores: scores}, nil
}

// Evaluate decides whether content with the combined findings may leave for
// the given destination. Bulk exports and critical findings always block;
// weaker findings block only when the destination is external.
func (d *Detector) Evaluate(findings []patterns.Finding, rawURL string) Verdict {
	if len(findings) == 0 {
		return Verdict{Allowed: true, Reason: "No sensitive content detected"}
	}

	for _, f := range findings {
		if f.Category == string(patterns.CategoryBulkPII) {
			return Verdict{Allowed: false, Reason: fmt.Sprintf("Bulk data export detected: %s", f.Type)}
		}
	}

	for _, f := range findings {
		if f.Severity == patterns.SeverityCritical {
			return Verdict{Allowed: false, Reason: fmt.Sprintf("Critical content: %s", f.Type)}
		}
	}

	external := d.IsExternal(rawURL)
	if external {
		for _, f := range findings {
			if f.Severity == patterns.SeverityHigh {
				return Verdict{Allowed: false, Reason: "Sensitive content on external domain"}
			}
		}
		if len(findings) >= 2 {
			return Verdict{Allowed: false, Reason: "Multiple sensitive patterns detected"}
		}
	}

	return Verdict{Allowed: true, Reason: "Content allowed"}
}

// IsExternal reports whether the URL points outside the company's domains.
// Unparseable URLs count as external.
func (d *Detector) IsExternal(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return true
	}
	host := strings.ToLower(u.Hostname())
	for _, dom := range d.internalDomains {
		if strings.Contains(host, strings.ToLower(dom)) {
			return false
		}
	}
	return true
}

func severityFromScore(score float32) patterns.Severity {
	switch {
	case score > 0.85:
		return patterns.SeverityCritical
	case score > 0.75:
		return patterns.SeverityHigh
	case score > 0.65:
		return patterns.SeverityMedium
	default:
		return patterns.SeverityLow
	}
}

var (
	cachedExemplars     []Exemplar
	cachedExemplarsOnce sync.Once
)

// sensitiveExemplars returns the reference sentences describing each
// sensitive-content category.
func sensitiveExemplars() []Exemplar {
	cachedExemplarsOnce.Do(func() {
		cachedExemplars = []Exemplar{
			{"credit card number payment method", "financial"},
			{"bank account routing number", "financial"},
			{"social security number SSN tax ID", "financial"},
			{"financial information salary compensation", "financial"},

			{"password secret key authentication", "credentials"},
			{"API key access token bearer token", "credentials"},
			{"private key certificate RSA key", "credentials"},
			{"credentials username password login", "credentials"},

			{"confidential proprietary trade secret", "confidential"},
			{"internal only company private", "confidential"},
			{"classified restricted sensitive", "confidential"},
			{"do not share confidential information", "confidential"},

			{"personal information home address", "pii"},
			{"phone number contact information", "pii"},
			{"email address personal data", "pii"},
			{"date of birth identification", "pii"},
		}
	})
	return cachedExemplars
}

// ExemplarCount returns the number of reference sentences.
func (d *Detector) ExemplarCount() int {
	return len(sensitiveExemplars())
}

// Categories returns the exemplar categories.
func Categories() []string {
	return []string{"financial", "credentials", "confidential", "pii"}
}
