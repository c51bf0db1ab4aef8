package policy

import "time"

// Destination risk scores. Unmatched non-empty URLs get ScoreUnknown.
const (
	ScoreHigh    = 20
	ScoreMedium  = 10
	ScoreLow     = 0
	ScoreUnknown = 5
)

// Default returns the built-in policy. Deployments overlay a YAML file and
// MOAT_* environment variables on top of this.
func Default() *PolicyConfig {
	return &PolicyConfig{
		Company: Company{
			Name:    "TechCorp Inc",
			Aliases: []string{"techcorp", "tech_corp", "tc_inc"},
			Domains: []string{"techcorp.com", "company.com"},
			ConfidentialityMarkers: []string{
				"confidential", "internal", "private", "restricted",
				"proprietary", "classified", "sensitive", "secret", "nda",
				"do_not_share", "dni", "techcorp_confidential", "tc_internal",
				"company_private",
			},
		},

		Rules: []ContentRule{
			{Name: "creditCard", Pattern: `\b(?:\d{4}[-\s]?){3}\d{4}\b`, Category: "financial", Severity: "critical", Label: "Credit Card Number"},
			{Name: "ssn", Pattern: `\b\d{3}-\d{2}-\d{4}\b`, Category: "pii", Severity: "critical", Label: "Social Security Number"},
			{Name: "awsKey", Pattern: `\b(AKIA[0-9A-Z]{16})\b`, Category: "credentials", Severity: "critical", Label: "AWS Access Key"},
			{Name: "apiKey", Pattern: `(?i)(?:api[_-]?key|apikey)[_-]?[:=]\s*['"]?([a-zA-Z0-9_\-]{20,})['"]?`, Category: "credentials", Severity: "critical", Label: "API Key"},
			{Name: "privateKey", Pattern: `(?i)-----BEGIN\s+(RSA\s+)?PRIVATE\s+KEY-----`, Category: "credentials", Severity: "critical", Label: "Private Key"},
			{Name: "password", Pattern: `(?i)(?:password|pwd|passwd)[_-]?[:=]\s*['"]?([^\s'"]{6,})['"]?`, Category: "credentials", Severity: "critical", Label: "Password"},
			{Name: "email", Pattern: `\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`, Category: "pii", Severity: "medium", Label: "Email Address"},
			{Name: "phone", Pattern: `\b(?:\+?1[-.\s]?)?\(?([0-9]{3})\)?[-.\s]?([0-9]{3})[-.\s]?([0-9]{4})\b`, Category: "pii", Severity: "medium", Label: "Phone Number"},
			{Name: "ipAddress", Pattern: `\b(?:\d{1,3}\.){3}\d{1,3}\b`, Category: "technical", Severity: "low", Label: "IP Address"},
		},

		Detection: DetectionPatterns{
			Financial: PatternGroup{
				Keywords: []string{
					"financial", "finance", "budget", "revenue", "profit", "earnings",
					"pnl", "p&l", "income", "balance_sheet", "cash_flow", "forecast",
					"projection", "cost_analysis", "pricing", "valuation", "ebitda",
					"operating_margin", "gross_margin", "net_income", "quarterly_results",
				},
				Patterns: []string{
					`(?i)fy\d{2,4}`,
					`(?i)q[1-4][\s_-]?\d{2,4}`,
					`(?i)\d{4}[\s_-]budget`,
					`(?i)\$\d{1,3}(?:,\d{3})*(?:\.\d{2})?[kmb]?`,
				},
				Score: 20,
			},
			Strategic: PatternGroup{
				Keywords: []string{
					"strategy", "roadmap", "planning", "strategic", "business_plan",
					"market_analysis", "competitive", "acquisition", "merger", "m&a",
					"due_diligence", "board_deck", "executive", "leadership", "vision",
					"goals", "objectives", "kpi", "metrics", "performance", "targets",
				},
				Patterns: []string{
					`(?i)goals_\d{4}`,
					`(?i)strategy_\d{4}`,
					`(?i)roadmap_\d{4}`,
				},
				Score: 20,
			},
			Customer: PatternGroup{
				Keywords: []string{
					"customer", "client", "contact", "lead", "prospect", "user_data",
					"account", "crm", "database", "export", "list", "directory",
					"analytics", "metrics", "cohort", "segment", "persona", "demographics",
				},
				Patterns: []string{
					`(?i)customer_id`,
					`(?i)client_list`,
					`(?i)user_analytics`,
				},
				Score: 18,
			},
			Employee: PatternGroup{
				Keywords: []string{
					"employee", "staff", "personnel", "hr", "payroll", "compensation",
					"salary", "performance", "review", "evaluation", "org_chart",
					"headcount", "hiring", "recruitment", "onboarding", "benefits",
					"termination", "promotion", "raise",
				},
				Patterns: []string{
					`(?i)employee_id`,
					`(?i)staff_directory`,
					`(?i)payroll_\d{4}`,
				},
				Score: 18,
			},
			Product: PatternGroup{
				Keywords: []string{
					"product", "development", "feature", "spec", "specification",
					"requirement", "prd", "design", "prototype", "mockup", "wireframe",
					"architecture", "technical", "api", "release", "version", "changelog",
					"alpha", "beta", "preview", "unreleased", "pipeline", "backlog",
				},
				Patterns: []string{
					`(?i)v\d+\.\d+`,
					`(?i)release_\d{4}`,
					`(?i)feature_\w+`,
				},
				Score: 15,
			},
			Legal: PatternGroup{
				Keywords: []string{
					"legal", "compliance", "audit", "contract", "agreement", "policy",
					"procedure", "gdpr", "sox", "hipaa", "regulation", "patent",
					"trademark", "copyright", "license", "terms", "privacy", "lawsuit",
					"litigation", "settlement",
				},
				Patterns: []string{
					`(?i)contract_\d{4}`,
					`(?i)agreement_\w+`,
					`(?i)policy_v\d+`,
				},
				Score: 15,
			},
			Drafts: PatternGroup{
				Keywords: []string{
					"draft", "rough", "temp", "temporary", "work_in_progress", "wip",
					"version", "revision", "copy", "backup", "preliminary", "sketch",
					"outline", "notes",
				},
				Patterns: []string{
					`(?i)v\d+`,
					`(?i)rev\d+`,
					`(?i)_v\d`,
					`\(\d+\)`,
					`(?i)draft_\d{4}`,
				},
				Score: 10,
			},
		},

		Destinations: DestinationRisks{
			High: []DestinationGroup{
				{
					Patterns: []string{"mail.google.com", "outlook.live.com", "mail.yahoo.com", "icloud.com"},
					Category: "Consumer Email",
					Reason:   "Consumer email services lack enterprise security controls",
				},
				{
					Patterns: []string{"chat.openai.com", "claude.ai", "bard.google.com", "character.ai", "huggingface.co"},
					Category: "AI/LLM Platforms",
					Reason:   "AI platforms may train on user inputs and retain sensitive data",
				},
				{
					Patterns: []string{"facebook.com", "twitter.com", "linkedin.com", "discord.com", "reddit.com", "instagram.com"},
					Category: "Social Media",
					Reason:   "Social media platforms are public and lack privacy controls",
				},
				{
					Patterns: []string{"drive.google.com", "dropbox.com", "onedrive.live.com", "mega.nz", "box.com"},
					Category: "Consumer Cloud Storage",
					Reason:   "Consumer cloud storage may not meet enterprise security standards",
				},
				{
					Patterns: []string{"github.com", "gitlab.com", "bitbucket.org", "sourceforge.net"},
					Category: "Public Code Repositories",
					Reason:   "Public repositories expose code and data to the internet",
				},
				{
					Patterns: []string{"pastebin.com", "paste.ee", "gist.github.com", "hastebin.com"},
					Category: "Paste/Sharing Services",
					Reason:   "Paste services create publicly searchable content",
				},
			},
			Medium: []DestinationGroup{
				{
					Patterns: []string{"workspace.google.com", "teams.microsoft.com", "slack.com", "zoom.us", "asana.com"},
					Category: "Business Productivity",
					Reason:   "Business tools generally secure but may have broader access",
				},
				{
					Patterns: []string{"replit.com", "codesandbox.io", "codepen.io", "stackblitz.com"},
					Category: "Development Platforms",
					Reason:   "Development platforms may expose code publicly by default",
				},
				{
					Patterns: []string{"figma.com", "canva.com", "miro.com", "lucidchart.com"},
					Category: "Design/Collaboration Tools",
					Reason:   "Design tools may have sharing features with external visibility",
				},
			},
			Low: []DestinationGroup{
				{
					Patterns: []string{"outlook.office365.com", "outlook.office.com"},
					Category: "Enterprise Email",
					Reason:   "Enterprise email with proper security controls",
				},
				{
					Patterns: []string{".sharepoint.com", "team.notion.so"},
					Category: "Enterprise Productivity",
					Reason:   "Enterprise productivity tools with security controls",
				},
				{
					Patterns: []string{"intranet.", "internal.", "confluence.", "jira."},
					Category: "Corporate Intranets",
					Reason:   "Internal corporate systems with access controls",
				},
				{
					Patterns: []string{"console.aws.amazon.com", "portal.azure.com", "console.cloud.google.com", ".salesforce.com"},
					Category: "Enterprise Cloud Services",
					Reason:   "Enterprise cloud services with security controls",
				},
				{
					Patterns: []string{"api.openai.com", "api.anthropic.com"},
					Category: "Enterprise AI Services",
					Reason:   "Enterprise AI services with data protection agreements",
				},
			},
		},

		Multipliers: map[string]float64{
			"HIGH_HIGHLY_CONFIDENTIAL":   2.0,
			"HIGH_CONFIDENTIAL":          1.8,
			"HIGH_INTERNAL":              1.5,
			"HIGH_PUBLIC":                1.2,
			"MEDIUM_HIGHLY_CONFIDENTIAL": 1.4,
			"MEDIUM_CONFIDENTIAL":        1.2,
			"MEDIUM_INTERNAL":            1.1,
			"MEDIUM_PUBLIC":              1.0,
			"LOW_HIGHLY_CONFIDENTIAL":    1.1,
			"LOW_CONFIDENTIAL":           1.0,
			"LOW_INTERNAL":               1.0,
			"LOW_PUBLIC":                 1.0,
		},

		Content: ClassificationThresholds{
			HighlyConfidential: 71,
			Confidential:       51,
			Internal:           31,
		},

		FileRisk: FileRiskThresholds{
			Critical: 40,
			High:     25,
			Medium:   15,
		},

		FileTypes: map[string]FileTypeRisk{
			"financial": {
				Extensions: []string{".xlsx", ".xls", ".xlsm", ".csv", ".ods"},
				MIMETypes: []string{
					"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
					"application/vnd.ms-excel",
					"text/csv",
				},
				Score:    15,
				Category: "Financial Documents",
			},
			"presentations": {
				Extensions: []string{".pptx", ".ppt", ".pptm", ".odp", ".key"},
				MIMETypes: []string{
					"application/vnd.openxmlformats-officedocument.presentationml.presentation",
					"application/vnd.ms-powerpoint",
				},
				Score:    12,
				Category: "Presentation Files",
			},
			"documents": {
				Extensions: []string{".docx", ".doc", ".docm", ".odt", ".rtf", ".pages"},
				MIMETypes: []string{
					"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
					"application/msword",
				},
				Score:    8,
				Category: "Text Documents",
			},
			"databases": {
				Extensions: []string{".db", ".sqlite", ".mdb", ".accdb", ".sql", ".dump"},
				MIMETypes: []string{
					"application/x-sqlite3",
					"application/vnd.ms-access",
					"application/sql",
				},
				Score:    20,
				Category: "Database Files",
			},
			"code": {
				Extensions: []string{".js", ".py", ".java", ".cpp", ".cs", ".rb", ".php", ".go", ".rs"},
				MIMETypes: []string{
					"text/javascript",
					"text/x-python",
					"text/x-java-source",
				},
				Score:    12,
				Category: "Source Code",
			},
		},

		FileSizes: FileSizeThresholds{
			BulkBytes:    10 * 1024 * 1024,
			LargeBytes:   50 * 1024 * 1024,
			MassiveBytes: 100 * 1024 * 1024,
		},

		Bulk: BulkSettings{
			EmailThreshold:         3,
			NameThreshold:          5,
			PhoneThreshold:         3,
			StructuredRowThreshold: 10,
			DensityThreshold:       0.3,
		},

		MaxContentLength: 50000,
		MinAnalyzeLength: 20,

		Semantic: SemanticSettings{
			Enabled:   false,
			EmbedURL:  "http://localhost:11434",
			Model:     "nomic-embed-text",
			Threshold: 0.65,
			Timeout:   3 * time.Second,
		},

		Cache: CacheSettings{
			Enabled:   false,
			RedisAddr: "localhost:6379",
			TTL:       5 * time.Minute,
		},
	}
}
