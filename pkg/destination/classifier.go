// Package destination classifies upload targets into HIGH, MEDIUM, or LOW
// risk using the ordered pattern tables from the active policy. HIGH is
// checked first so ambiguous hosts resolve conservatively; an unrecognized
// destination defaults to MEDIUM.
package destination

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/datamoat/moat/pkg/policy"
)

// RiskLevel is the destination risk rating.
type RiskLevel string

const (
	RiskHigh    RiskLevel = "HIGH"
	RiskMedium  RiskLevel = "MEDIUM"
	RiskLow     RiskLevel = "LOW"
	RiskUnknown RiskLevel = "UNKNOWN"
)

// SourceDestination tags destination analysis results.
const SourceDestination = "destination_risk_analysis"

// Risk is the classification of one destination URL.
type Risk struct {
	Risk     RiskLevel `json:"risk"`
	Category string    `json:"category"`
	Score    int       `json:"score"`
	Reason   string    `json:"reason"`
	URL      string    `json:"url"`
	Source   string    `json:"source"`
}

var hostRe = regexp.MustCompile(`(?i)https?://([^/\?#]+)`)

// Classifier matches sanitized destinations against policy tables.
type Classifier struct {
	cfg *policy.PolicyConfig
}

// New returns a Classifier for the given policy.
func New(cfg *policy.PolicyConfig) *Classifier {
	return &Classifier{cfg: cfg}
}

// Classify rates rawURL. Tables are matched against the parsed hostname
// only, so a path segment can never reclassify an unknown host. An empty URL
// is UNKNOWN with score 0; a non-empty URL whose host matches no table is
// MEDIUM "Unknown External Service" with the reduced unknown score.
func (c *Classifier) Classify(rawURL string) Risk {
	if rawURL == "" {
		return Risk{
			Risk:     RiskUnknown,
			Category: "Unknown Destination",
			Score:    0,
			URL:      "unknown",
			Source:   SourceDestination,
		}
	}

	sanitized := SanitizeURL(rawURL)
	target := Hostname(rawURL)

	if g, ok := match(c.cfg.Destinations.High, target); ok {
		return c.risk(RiskHigh, g, policy.ScoreHigh, sanitized)
	}
	if g, ok := match(c.cfg.Destinations.Medium, target); ok {
		return c.risk(RiskMedium, g, policy.ScoreMedium, sanitized)
	}
	if g, ok := match(c.cfg.Destinations.Low, target); ok {
		return c.risk(RiskLow, g, policy.ScoreLow, sanitized)
	}

	return Risk{
		Risk:     RiskMedium,
		Category: "Unknown External Service",
		Score:    policy.ScoreUnknown,
		Reason:   "Unknown destination - default to medium risk for safety",
		URL:      sanitized,
		Source:   SourceDestination,
	}
}

func (c *Classifier) risk(level RiskLevel, g policy.DestinationGroup, score int, sanitized string) Risk {
	return Risk{
		Risk:     level,
		Category: g.Category,
		Score:    score,
		Reason:   g.Reason,
		URL:      sanitized,
		Source:   SourceDestination,
	}
}

func match(groups []policy.DestinationGroup, target string) (policy.DestinationGroup, bool) {
	for _, g := range groups {
		for _, p := range g.Patterns {
			if strings.Contains(target, strings.ToLower(p)) {
				return g, true
			}
		}
	}
	return policy.DestinationGroup{}, false
}

// Hostname extracts the lowercase hostname of rawURL without the port. It
// falls back to regex extraction for URLs the parser rejects and returns ""
// when no host can be found.
func Hostname(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err == nil && u.Host != "" {
		return strings.ToLower(u.Hostname())
	}
	if m := hostRe.FindStringSubmatch(rawURL); m != nil {
		host := m[1]
		if i := strings.IndexByte(host, ':'); i >= 0 {
			host = host[:i]
		}
		return strings.ToLower(host)
	}
	return ""
}

// SanitizeURL strips query strings and fragments, keeping scheme, host, and
// path. If parsing fails it falls back to the host captured by regex, and
// "unknown" when even that fails. Sanitized URLs are safe to log.
func SanitizeURL(rawURL string) string {
	if rawURL == "" {
		return "unknown"
	}
	u, err := url.Parse(rawURL)
	if err == nil && u.Host != "" {
		return u.Scheme + "://" + u.Host + u.Path
	}
	if m := hostRe.FindStringSubmatch(rawURL); m != nil {
		return m[1]
	}
	return "unknown"
}
