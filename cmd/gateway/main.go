package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/datamoat/moat/pkg/audit"
	"github.com/datamoat/moat/pkg/cache"
	"github.com/datamoat/moat/pkg/filemeta"
	"github.com/datamoat/moat/pkg/pipeline"
	"github.com/datamoat/moat/pkg/policy"
	"github.com/datamoat/moat/pkg/semantic"
	"github.com/datamoat/moat/pkg/telemetry"
)

const Version = "0.1.0"

// Guard bundles the analysis components. The semantic stage and the decision
// cache are optional and degrade gracefully when unavailable.
type Guard struct {
	store       *policy.Store
	coordinator *pipeline.Coordinator
	cache       *cache.Cache
	counters    *telemetry.Counters
}

// NewGuard wires the pipeline from the loaded policy. The semantic stage
// loads its exemplars in the background; until it is ready analyses resolve
// with stage "semantic_not_ready".
func NewGuard(store *policy.Store) *Guard {
	cfg := store.Snapshot()

	var sem pipeline.SemanticStage
	if cfg.Semantic.Enabled {
		det, err := semantic.NewDetector(cfg)
		if err != nil {
			log.Printf("○ Semantic stage disabled (init failed: %v)", err)
		} else {
			sem = det
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
				defer cancel()
				if err := det.LoadExemplars(ctx); err != nil {
					log.Printf("○ Semantic stage unavailable (exemplar load failed: %v)", err)
					return
				}
				log.Println("✓ Semantic stage ready (chromem-go + embedding service)")
			}()
			log.Println("✓ Semantic stage enabled (loading exemplars in background)")
		}
	} else {
		log.Println("○ Semantic stage disabled")
	}

	g := &Guard{
		store:       store,
		coordinator: pipeline.New(store, sem),
		counters:    telemetry.New(),
	}

	if cfg.Cache.Enabled {
		c := cache.New(cfg.Cache)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := c.Ping(ctx); err != nil {
			log.Printf("○ Decision cache disabled (redis unreachable: %v)", err)
		} else {
			g.cache = c
			log.Printf("✓ Decision cache enabled (redis at %s)", cfg.Cache.RedisAddr)
		}
	} else {
		log.Println("○ Decision cache disabled")
	}

	return g
}

// AnalyzeText runs the text pipeline with a cache wrapped around it.
func (g *Guard) AnalyzeText(ctx context.Context, text, url string) pipeline.Decision {
	if g.cache == nil {
		d := g.coordinator.AnalyzeText(ctx, text, url)
		g.counters.Observe(d.Stage, d.Allowed)
		return d
	}
	key := cache.Key(text, url, g.store.Revision())
	if d, ok := g.cache.Get(ctx, key); ok {
		g.counters.Observe(d.Stage, d.Allowed)
		return *d
	}
	d := g.coordinator.AnalyzeText(ctx, text, url)
	g.counters.Observe(d.Stage, d.Allowed)
	// Timeout and not-ready outcomes are transient; caching them would pin
	// a weaker verdict for the TTL.
	if d.Stage != pipeline.StageSemanticTimeout && d.Stage != pipeline.StageSemanticNotReady && d.Stage != pipeline.StageError {
		g.cache.Put(ctx, key, d)
	}
	return d
}

// AnalyzeFile runs the file metadata pipeline. File decisions are not cached:
// last-modified recency makes them time-dependent.
func (g *Guard) AnalyzeFile(ctx context.Context, meta filemeta.Metadata, url, body string) pipeline.Decision {
	d := g.coordinator.AnalyzeFile(ctx, meta, url, body)
	g.counters.Observe(d.Stage, d.Allowed)
	return d
}

func main() {
	log.SetFlags(log.LstdFlags)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		port := policy.GetEnv("MOAT_PORT", "3000")
		if len(os.Args) > 2 {
			port = os.Args[2]
		}
		runHTTPServer(port)
	case "scan":
		if len(os.Args) < 3 {
			fmt.Println("Usage: moat scan <text> [url]")
			os.Exit(1)
		}
		url := ""
		if len(os.Args) > 3 {
			url = os.Args[len(os.Args)-1]
			runCLIScan(strings.Join(os.Args[2:len(os.Args)-1], " "), url)
			return
		}
		runCLIScan(strings.Join(os.Args[2:], " "), url)
	case "scan-file":
		if len(os.Args) < 3 {
			fmt.Println("Usage: moat scan-file <filename> [url]")
			os.Exit(1)
		}
		url := ""
		if len(os.Args) > 3 {
			url = os.Args[3]
		}
		runCLIScanFile(os.Args[2], url)
	case "version":
		fmt.Printf("Moat v%s\n", Version)
		fmt.Println("Outbound data transfer guard")
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf("Moat v%s - outbound data transfer guard\n\n", Version)
	fmt.Println("Usage:")
	fmt.Println("  moat serve [port]              Start HTTP gateway (default: 3000)")
	fmt.Println("  moat scan <text> [url]         Analyze text headed for a destination")
	fmt.Println("  moat scan-file <name> [url]    Analyze upload metadata by filename")
	fmt.Println("  moat version                   Show version")
	fmt.Println("")
	fmt.Println("Examples:")
	fmt.Println("  moat serve 8080")
	fmt.Println("  moat scan \"quarterly revenue forecast\" https://chat.openai.com")
	fmt.Println("  moat scan-file CONFIDENTIAL_board_deck.pptx https://drive.google.com")
	fmt.Println("")
	fmt.Println("Environment Variables:")
	fmt.Println("  MOAT_POLICY_FILE       Path to a YAML policy overlay (hot-reloaded)")
	fmt.Println("  MOAT_PORT              HTTP port for serve mode (default: 3000)")
	fmt.Println("  MOAT_ENABLE_SEMANTIC   Enable the embedding-based semantic stage")
	fmt.Println("  MOAT_EMBED_URL         Embedding service URL (default: http://localhost:11434)")
	fmt.Println("  MOAT_ENABLE_CACHE      Enable the Redis decision cache")
	fmt.Println("  MOAT_REDIS_ADDR        Redis address (default: localhost:6379)")
}

func loadStore() *policy.Store {
	path := policy.GetEnv("MOAT_POLICY_FILE", "")
	cfg := policy.MustLoad(path)
	store := policy.NewStore(cfg)

	if path != "" {
		r, err := policy.NewReloader(store, path)
		if err != nil {
			log.Printf("○ Policy hot reload disabled (%v)", err)
			return store
		}
		go func() {
			if err := r.Run(context.Background()); err != nil {
				log.Printf("[POLICY] watcher stopped: %v", err)
			}
		}()
		log.Printf("✓ Policy hot reload enabled (watching %s)", path)
	}
	return store
}

type analyzeRequest struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

type analyzeFileRequest struct {
	Name           string `json:"name"`
	Size           int64  `json:"size"`
	MIMEType       string `json:"mime_type"`
	LastModifiedMS int64  `json:"last_modified_ms"`
	URL            string `json:"url"`
	Body           string `json:"body"`
}

func (r analyzeFileRequest) metadata() filemeta.Metadata {
	meta := filemeta.Metadata{
		Name:     r.Name,
		Size:     r.Size,
		MIMEType: r.MIMEType,
	}
	if r.LastModifiedMS > 0 {
		meta.LastModified = time.UnixMilli(r.LastModifiedMS)
	}
	return meta
}

func runHTTPServer(port string) {
	store := loadStore()
	guard := NewGuard(store)

	app := fiber.New(fiber.Config{
		AppName: "Moat",
	})

	app.Get("/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":          "ok",
			"version":         Version,
			"policy_revision": store.Revision(),
			"stats":           guard.counters.Snapshot(),
		})
	})

	app.Post("/v1/analyze", func(c fiber.Ctx) error {
		var req analyzeRequest
		if err := c.Bind().Body(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
		}
		if req.Text == "" {
			return c.Status(400).JSON(fiber.Map{"error": "text field is required"})
		}

		d := guard.AnalyzeText(c.Context(), req.Text, req.URL)
		log.Printf("[AUDIT] %s", audit.NewRecord(d))
		return c.JSON(d)
	})

	app.Post("/v1/analyze/file", func(c fiber.Ctx) error {
		var req analyzeFileRequest
		if err := c.Bind().Body(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
		}
		if req.Name == "" {
			return c.Status(400).JSON(fiber.Map{"error": "name field is required"})
		}

		d := guard.AnalyzeFile(c.Context(), req.metadata(), req.URL, req.Body)
		log.Printf("[AUDIT] %s", audit.NewRecord(d))
		return c.JSON(d)
	})

	log.Printf("Moat gateway starting on :%s", port)
	log.Printf("Endpoints:")
	log.Printf("  GET  /health            - Health check")
	log.Printf("  POST /v1/analyze        - Analyze outbound text {text, url}")
	log.Printf("  POST /v1/analyze/file   - Analyze upload metadata {name, size, mime_type, last_modified_ms, url, body}")

	if err := app.Listen(":" + port); err != nil {
		log.Fatal(err)
	}
}

func runCLIScan(text, url string) {
	store := loadStore()
	guard := NewGuard(store)

	d := guard.AnalyzeText(context.Background(), text, url)
	out, _ := json.MarshalIndent(d, "", "  ")
	fmt.Println(string(out))
}

func runCLIScanFile(name, url string) {
	store := loadStore()
	guard := NewGuard(store)

	meta := filemeta.Metadata{Name: name, LastModified: time.Now()}
	d := guard.AnalyzeFile(context.Background(), meta, url, "")
	out, _ := json.MarshalIndent(d, "", "  ")
	fmt.Println(string(out))
}
