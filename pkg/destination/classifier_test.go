package destination

import (
	"testing"

	"github.com/datamoat/moat/pkg/policy"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name         string
		url          string
		wantRisk     RiskLevel
		wantCategory string
		wantScore    int
	}{
		{"ai platform", "https://chat.openai.com/c/abc123", RiskHigh, "AI/LLM Platforms", policy.ScoreHigh},
		{"paste service", "https://pastebin.com/", RiskHigh, "Paste/Sharing Services", policy.ScoreHigh},
		{"consumer email", "https://mail.google.com/mail/u/0/", RiskHigh, "Consumer Email", policy.ScoreHigh},
		{"consumer storage", "https://drive.google.com/drive/my-drive", RiskHigh, "Consumer Cloud Storage", policy.ScoreHigh},
		{"public repo", "https://github.com/acme/secrets", RiskHigh, "Public Code Repositories", policy.ScoreHigh},
		{"business chat", "https://slack.com/app", RiskMedium, "Business Productivity", policy.ScoreMedium},
		{"dev sandbox", "https://replit.com/@me/scratch", RiskMedium, "Development Platforms", policy.ScoreMedium},
		{"intranet", "https://intranet.techcorp.com/wiki", RiskLow, "Corporate Intranets", policy.ScoreLow},
		{"enterprise email", "https://outlook.office365.com/mail", RiskLow, "Enterprise Email", policy.ScoreLow},
		{"enterprise ai api", "https://api.openai.com/v1/embeddings", RiskLow, "Enterprise AI Services", policy.ScoreLow},
		{"unknown host", "https://some-random-site.example/upload", RiskMedium, "Unknown External Service", policy.ScoreUnknown},
		{"low pattern in path only", "https://evil.example.com/intranet.html", RiskMedium, "Unknown External Service", policy.ScoreUnknown},
		{"high pattern in path only", "https://evil.example.com/docs/claude.ai-notes", RiskMedium, "Unknown External Service", policy.ScoreUnknown},
		{"host with port", "https://pastebin.com:8443/raw", RiskHigh, "Paste/Sharing Services", policy.ScoreHigh},
	}
	c := New(policy.Default())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := c.Classify(tt.url)
			if r.Risk != tt.wantRisk {
				t.Errorf("risk = %s, want %s", r.Risk, tt.wantRisk)
			}
			if r.Category != tt.wantCategory {
				t.Errorf("category = %q, want %q", r.Category, tt.wantCategory)
			}
			if r.Score != tt.wantScore {
				t.Errorf("score = %d, want %d", r.Score, tt.wantScore)
			}
			if r.Source != SourceDestination {
				t.Errorf("source = %q, want %q", r.Source, SourceDestination)
			}
		})
	}
}

func TestClassifyEmptyURL(t *testing.T) {
	r := New(policy.Default()).Classify("")
	if r.Risk != RiskUnknown {
		t.Errorf("risk = %s, want %s", r.Risk, RiskUnknown)
	}
	if r.Score != 0 {
		t.Errorf("score = %d, want 0", r.Score)
	}
	if r.URL != "unknown" {
		t.Errorf("url = %q, want %q", r.URL, "unknown")
	}
}

func TestOverlappingPatterns(t *testing.T) {
	// gist.github.com matches both the paste-service and the repo
	// patterns; either way the result is HIGH.
	r := New(policy.Default()).Classify("https://gist.github.com/me/abc")
	if r.Risk != RiskHigh {
		t.Errorf("risk = %s, want HIGH", r.Risk)
	}
}

func TestHostname(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain host", "https://pastebin.com/paste", "pastebin.com"},
		{"strips port", "https://intranet.techcorp.com:8080/wiki", "intranet.techcorp.com"},
		{"lowercases", "https://Chat.OpenAI.com/c/abc", "chat.openai.com"},
		{"no host", "not a url at all", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Hostname(tt.in); got != tt.want {
				t.Errorf("Hostname(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSanitizeURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"strips query", "https://pastebin.com/paste?api_key=sekret", "https://pastebin.com/paste"},
		{"strips fragment", "https://docs.example.com/page#token=abc", "https://docs.example.com/page"},
		{"keeps path", "https://drive.google.com/drive/folders/1A2B", "https://drive.google.com/drive/folders/1A2B"},
		{"empty", "", "unknown"},
		{"garbage", "not a url at all", "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeURL(tt.in); got != tt.want {
				t.Errorf("SanitizeURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
