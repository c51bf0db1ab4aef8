// Package policy holds the organization-scoped configuration that drives every
// detector in the pipeline: pattern tables, destination risk tables, scoring
// thresholds, and the risk-multiplier matrix.
//
// A PolicyConfig is immutable once handed to the analyzers. Runtime updates go
// through a Store, which swaps the whole snapshot atomically so in-flight
// analyses never observe a half-applied policy.
package policy

import (
	"fmt"
	"time"
)

// Company identifies the organization the policy protects. Aliases and domains
// feed the confidentiality-marker and company-reference rules.
type Company struct {
	Name                   string   `yaml:"name"`
	Aliases                []string `yaml:"aliases"`
	Domains                []string `yaml:"domains"`
	ConfidentialityMarkers []string `yaml:"confidentiality_markers"`
}

// ContentRule is one sensitive-data pattern in the base rule table. The
// registry compiles the table in declared order, so scan output stays
// deterministic across runs.
type ContentRule struct {
	Name     string `yaml:"name"`
	Pattern  string `yaml:"pattern"`
	Category string `yaml:"category"`
	Severity string `yaml:"severity"`
	Label    string `yaml:"label"`
}

// PatternGroup is one detection category: plain keywords (matched
// case-insensitively as regexes), raw regex patterns, and the score the
// category contributes when any of them match.
type PatternGroup struct {
	Keywords []string `yaml:"keywords"`
	Patterns []string `yaml:"patterns"`
	Score    int      `yaml:"score"`
}

// DetectionPatterns groups the per-category keyword/pattern/score tables.
type DetectionPatterns struct {
	Financial PatternGroup `yaml:"financial"`
	Strategic PatternGroup `yaml:"strategic"`
	Customer  PatternGroup `yaml:"customer"`
	Employee  PatternGroup `yaml:"employee"`
	Product   PatternGroup `yaml:"product"`
	Legal     PatternGroup `yaml:"legal"`
	Drafts    PatternGroup `yaml:"drafts"`
}

// DestinationGroup is one entry in an ordered destination risk table.
// Patterns are matched as substrings of the sanitized host+path.
type DestinationGroup struct {
	Patterns []string `yaml:"patterns"`
	Category string   `yaml:"category"`
	Reason   string   `yaml:"reason"`
}

// DestinationRisks holds the three ordered tables. HIGH is checked first so
// an ambiguous destination resolves to the more conservative rating.
type DestinationRisks struct {
	High   []DestinationGroup `yaml:"high"`
	Medium []DestinationGroup `yaml:"medium"`
	Low    []DestinationGroup `yaml:"low"`
}

// ClassificationThresholds are the minimum adjusted scores for each label.
// They must be strictly decreasing and partition [0,100].
type ClassificationThresholds struct {
	HighlyConfidential int `yaml:"highly_confidential"`
	Confidential       int `yaml:"confidential"`
	Internal           int `yaml:"internal"`
}

// FileRiskThresholds are the minimum metadata scores for each file risk level.
type FileRiskThresholds struct {
	Critical int `yaml:"critical"`
	High     int `yaml:"high"`
	Medium   int `yaml:"medium"`
}

// FileTypeRisk scores a family of file formats by extension or MIME type.
type FileTypeRisk struct {
	Extensions []string `yaml:"extensions"`
	MIMETypes  []string `yaml:"mime_types"`
	Score      int      `yaml:"score"`
	Category   string   `yaml:"category"`
}

// FileSizeThresholds are the byte cutoffs for the size-based findings.
type FileSizeThresholds struct {
	BulkBytes    int64 `yaml:"bulk_bytes"`
	LargeBytes   int64 `yaml:"large_bytes"`
	MassiveBytes int64 `yaml:"massive_bytes"`
}

// BulkSettings tunes the bulk-signal detector and the count-based decision
// rules. The email threshold is shared by both.
type BulkSettings struct {
	EmailThreshold         int     `yaml:"email_threshold"`
	NameThreshold          int     `yaml:"name_threshold"`
	PhoneThreshold         int     `yaml:"phone_threshold"`
	StructuredRowThreshold int     `yaml:"structured_row_threshold"`
	DensityThreshold       float64 `yaml:"density_threshold"`
}

// SemanticSettings configures the optional slow stage.
type SemanticSettings struct {
	Enabled   bool          `yaml:"enabled"`
	EmbedURL  string        `yaml:"embed_url"`
	Model     string        `yaml:"model"`
	Threshold float32       `yaml:"threshold"`
	Timeout   time.Duration `yaml:"timeout"`
}

// CacheSettings configures the optional Redis-backed decision cache used by
// the gateway. The core pipeline never touches it.
type CacheSettings struct {
	Enabled   bool          `yaml:"enabled"`
	RedisAddr string        `yaml:"redis_addr"`
	TTL       time.Duration `yaml:"ttl"`
}

// PolicyConfig is the complete organization policy. It is loaded once at
// startup (defaults, then an optional YAML file, then environment overrides)
// and validated eagerly so malformed patterns fail fast.
type PolicyConfig struct {
	Company Company `yaml:"company"`

	Rules        []ContentRule            `yaml:"content_rules"`
	Detection    DetectionPatterns        `yaml:"detection"`
	Destinations DestinationRisks         `yaml:"destinations"`
	Multipliers  map[string]float64       `yaml:"risk_multipliers"`
	Content      ClassificationThresholds `yaml:"content_classification"`
	FileRisk     FileRiskThresholds       `yaml:"file_risk"`
	FileTypes    map[string]FileTypeRisk  `yaml:"file_types"`
	FileSizes    FileSizeThresholds       `yaml:"file_sizes"`
	Bulk         BulkSettings             `yaml:"bulk"`

	// MaxContentLength truncates analyzed text; extracted document bodies can
	// be arbitrarily large.
	MaxContentLength int `yaml:"max_content_length"`
	// MinAnalyzeLength short-circuits trivially small payloads.
	MinAnalyzeLength int `yaml:"min_analyze_length"`

	Semantic SemanticSettings `yaml:"semantic"`
	Cache    CacheSettings    `yaml:"cache"`
}

// Multiplier returns the risk multiplier for a destination risk rating and a
// content classification label. The lookup is total: unmapped pairs are 1.0.
func (c *PolicyConfig) Multiplier(destRisk, classification string) float64 {
	if m, ok := c.Multipliers[destRisk+"_"+classification]; ok {
		return m
	}
	return 1.0
}

// CompanyTerms returns the lowercase alias/domain terms used for
// company-reference matching in filenames and confidentiality markers.
func (c *PolicyConfig) CompanyTerms() []string {
	terms := make([]string, 0, len(c.Company.Aliases)+len(c.Company.Domains))
	terms = append(terms, c.Company.Aliases...)
	terms = append(terms, c.Company.Domains...)
	return terms
}

// ConfigError reports an invalid policy at load time. It is fatal: the
// process must not start with a policy it cannot fully compile.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("policy config: %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }
