package policy

import (
	"fmt"
	"log"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load builds the effective policy: defaults, then the YAML file at path (if
// non-empty), then MOAT_* environment overrides. The result is validated;
// a nil error means every pattern compiled and every threshold is sane.
func Load(path string) (*PolicyConfig, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &ConfigError{Field: "file", Err: err}
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, &ConfigError{Field: "file", Err: err}
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MustLoad calls Load and fatally exits on failure. Call at startup.
func MustLoad(path string) *PolicyConfig {
	cfg, err := Load(path)
	if err != nil {
		log.Fatalf("[STARTUP] FATAL: policy validation failed: %v", err)
	}
	log.Println("[STARTUP] Policy validated successfully")
	return cfg
}

// applyEnv overlays MOAT_* environment variables on the current values.
// Only operational knobs are env-tunable; pattern tables come from YAML.
func (c *PolicyConfig) applyEnv() {
	c.Company.Name = GetEnv("MOAT_COMPANY_NAME", c.Company.Name)
	c.Company.Aliases = GetEnvSlice("MOAT_COMPANY_ALIASES", c.Company.Aliases)
	c.Company.Domains = GetEnvSlice("MOAT_COMPANY_DOMAINS", c.Company.Domains)

	c.MaxContentLength = GetEnvInt("MOAT_MAX_CONTENT_LENGTH", c.MaxContentLength)
	c.MinAnalyzeLength = GetEnvInt("MOAT_MIN_ANALYZE_LENGTH", c.MinAnalyzeLength)

	c.Semantic.Enabled = GetEnvBool("MOAT_ENABLE_SEMANTIC", c.Semantic.Enabled)
	c.Semantic.EmbedURL = GetEnv("MOAT_EMBED_URL", c.Semantic.EmbedURL)
	c.Semantic.Model = GetEnv("MOAT_EMBED_MODEL", c.Semantic.Model)
	c.Semantic.Threshold = float32(GetEnvFloat("MOAT_SEMANTIC_THRESHOLD", float64(c.Semantic.Threshold)))
	if ms := GetEnvInt("MOAT_SEMANTIC_TIMEOUT_MS", 0); ms > 0 {
		c.Semantic.Timeout = time.Duration(ms) * time.Millisecond
	}

	c.Cache.Enabled = GetEnvBool("MOAT_ENABLE_CACHE", c.Cache.Enabled)
	c.Cache.RedisAddr = GetEnv("MOAT_REDIS_ADDR", c.Cache.RedisAddr)
	if s := GetEnvInt("MOAT_CACHE_TTL_SECONDS", 0); s > 0 {
		c.Cache.TTL = time.Duration(s) * time.Second
	}
}

// Validate compiles every configured regex and checks the numeric tables.
// It is called once at load time so a bad policy can never reach the
// analyzers half-working.
func (c *PolicyConfig) Validate() error {
	if len(c.Rules) == 0 {
		return &ConfigError{Field: "content_rules", Err: fmt.Errorf("rule table is empty")}
	}
	for i, r := range c.Rules {
		if r.Name == "" {
			return &ConfigError{Field: "content_rules", Err: fmt.Errorf("rule %d has no name", i)}
		}
		if _, err := regexp.Compile(r.Pattern); err != nil {
			return &ConfigError{Field: "content_rules", Err: fmt.Errorf("rule %q: pattern: %w", r.Name, err)}
		}
		switch r.Severity {
		case "low", "medium", "high", "critical":
		default:
			return &ConfigError{Field: "content_rules", Err: fmt.Errorf("rule %q: unknown severity %q", r.Name, r.Severity)}
		}
	}

	groups := map[string]PatternGroup{
		"detection.financial": c.Detection.Financial,
		"detection.strategic": c.Detection.Strategic,
		"detection.customer":  c.Detection.Customer,
		"detection.employee":  c.Detection.Employee,
		"detection.product":   c.Detection.Product,
		"detection.legal":     c.Detection.Legal,
		"detection.drafts":    c.Detection.Drafts,
	}
	for field, g := range groups {
		for _, p := range g.Patterns {
			if _, err := regexp.Compile(p); err != nil {
				return &ConfigError{Field: field, Err: fmt.Errorf("pattern %q: %w", p, err)}
			}
		}
		if g.Score < 0 || g.Score > 100 {
			return &ConfigError{Field: field, Err: fmt.Errorf("score %d out of range", g.Score)}
		}
	}

	t := c.Content
	if !(t.HighlyConfidential > t.Confidential && t.Confidential > t.Internal && t.Internal > 0) {
		return &ConfigError{
			Field: "content_classification",
			Err:   fmt.Errorf("thresholds must be strictly decreasing and positive, got %d/%d/%d", t.HighlyConfidential, t.Confidential, t.Internal),
		}
	}
	if t.HighlyConfidential > 100 {
		return &ConfigError{Field: "content_classification", Err: fmt.Errorf("highly_confidential %d exceeds 100", t.HighlyConfidential)}
	}

	f := c.FileRisk
	if !(f.Critical > f.High && f.High > f.Medium && f.Medium > 0) {
		return &ConfigError{
			Field: "file_risk",
			Err:   fmt.Errorf("thresholds must be strictly decreasing and positive, got %d/%d/%d", f.Critical, f.High, f.Medium),
		}
	}

	for key, m := range c.Multipliers {
		if m < 1.0 || m > 2.0 {
			return &ConfigError{Field: "risk_multipliers", Err: fmt.Errorf("%s: multiplier %v outside [1.0, 2.0]", key, m)}
		}
		parts := strings.SplitN(key, "_", 2)
		if len(parts) != 2 {
			return &ConfigError{Field: "risk_multipliers", Err: fmt.Errorf("malformed key %q", key)}
		}
	}

	if c.MaxContentLength <= 0 {
		return &ConfigError{Field: "max_content_length", Err: fmt.Errorf("must be positive, got %d", c.MaxContentLength)}
	}
	if c.Bulk.EmailThreshold <= 0 || c.Bulk.PhoneThreshold <= 0 || c.Bulk.NameThreshold <= 0 {
		return &ConfigError{Field: "bulk", Err: fmt.Errorf("thresholds must be positive")}
	}
	if c.Semantic.Timeout <= 0 {
		return &ConfigError{Field: "semantic.timeout", Err: fmt.Errorf("must be positive, got %v", c.Semantic.Timeout)}
	}

	return nil
}

// Environment helpers, shared by the gateway and analyzers.

// GetEnv returns the value of an environment variable or a default value.
func GetEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// GetEnvBool returns the boolean value of an environment variable or a default value.
func GetEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

// GetEnvFloat returns the float64 value of an environment variable or a default value.
func GetEnvFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return defaultValue
}

// GetEnvInt returns the integer value of an environment variable or a default value.
func GetEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return defaultValue
}

// GetEnvSlice returns a comma-separated list from an environment variable or a default value.
func GetEnvSlice(key string, defaultValue []string) []string {
	if v := os.Getenv(key); v != "" {
		var parts []string
		for _, p := range strings.Split(v, ",") {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				parts = append(parts, trimmed)
			}
		}
		if len(parts) > 0 {
			return parts
		}
	}
	return defaultValue
}
