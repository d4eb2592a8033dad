package main

// @title           Ledgerscan API
// @version         1.0
// @description     Invoice processing API. Upload scanned invoices, track the job and download validated CSV or Excel reports.

// @contact.name   Ledgerscan OSS
// @contact.url    https://github.com/custodia-labs/ledgerscan/issues

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8000
// @BasePath  /
// @schemes   http https

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/custodia-labs/ledgerscan/docs"
	"github.com/custodia-labs/ledgerscan/internal/adapters/driven/auth"
	"github.com/custodia-labs/ledgerscan/internal/adapters/driven/memory"
	"github.com/custodia-labs/ledgerscan/internal/adapters/driven/pdf"
	"github.com/custodia-labs/ledgerscan/internal/adapters/driven/postgres"
	postgresqueue "github.com/custodia-labs/ledgerscan/internal/adapters/driven/queue/postgres"
	redisqueue "github.com/custodia-labs/ledgerscan/internal/adapters/driven/queue/redis"
	redisadapter "github.com/custodia-labs/ledgerscan/internal/adapters/driven/redis"
	"github.com/custodia-labs/ledgerscan/internal/adapters/driven/storage/local"
	"github.com/custodia-labs/ledgerscan/internal/adapters/driven/storage/s3"
	"github.com/custodia-labs/ledgerscan/internal/adapters/driven/vision/azure"
	"github.com/custodia-labs/ledgerscan/internal/adapters/driven/vision/claude"
	"github.com/custodia-labs/ledgerscan/internal/adapters/driven/vision/tesseract"
	"github.com/custodia-labs/ledgerscan/internal/adapters/driving/http"
	"github.com/custodia-labs/ledgerscan/internal/core/ports/driven"
	"github.com/custodia-labs/ledgerscan/internal/core/ports/driving"
	"github.com/custodia-labs/ledgerscan/internal/core/services"
	"github.com/custodia-labs/ledgerscan/internal/normalisers"
	"github.com/custodia-labs/ledgerscan/internal/vision"
	"github.com/custodia-labs/ledgerscan/internal/worker"
	"github.com/redis/go-redis/v9"
)

var version = "dev"

// infra holds the backends shared by the API and the worker
type infra struct {
	db          *postgres.DB
	redisClient *redis.Client
	jobs        driven.JobStore
	artifacts   driven.ArtifactStore
	taskQueue   driven.TaskQueue
	lock        driven.DistributedLock
	cache       driven.ExtractionCache
}

func main() {
	// Get run mode from environment (RUN_MODE) or command line arg
	mode := getEnv("RUN_MODE", "all")
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}
	if mode != "api" && mode != "worker" && mode != "all" {
		log.Fatalf("Unknown mode: %s (use: api, worker, or all)", mode)
	}

	logger := setupLogger(getEnv("LOG_FORMAT", "text"), getEnv("LOG_LEVEL", "info"))
	slog.SetDefault(logger)

	log.Printf("ledgerscan %s starting in %s mode", version, mode)

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Shutdown signal received, stopping...")
		cancel()
	}()

	inf, closeInfra := setupInfra(ctx, mode, logger)
	defer closeInfra()

	// ===== Share links (optional) =====
	var signer driven.LinkSigner
	if secret := getEnv("SHARE_LINK_SECRET", ""); secret != "" {
		s, err := auth.NewLinkSigner(secret)
		if err != nil {
			log.Fatalf("Failed to create link signer: %v", err)
		}
		signer = s
		log.Println("Share links enabled")
	} else {
		log.Println("Share links disabled (SHARE_LINK_SECRET not set)")
	}

	maxUploadSize := int64(getEnvInt("MAX_UPLOAD_SIZE_MB", 100)) << 20

	jobService := services.NewJobService(services.JobServiceConfig{
		Jobs:          inf.jobs,
		Artifacts:     inf.artifacts,
		TaskQueue:     inf.taskQueue,
		Signer:        signer,
		LinkTTL:       getEnvDuration("SHARE_LINK_TTL", time.Hour),
		MaxUploadSize: maxUploadSize,
		Logger:        logger,
	})

	switch mode {
	case "api":
		runAPI(ctx, jobService, inf, maxUploadSize, logger)

	case "worker":
		runWorkerMode(ctx, inf, logger)

	case "all":
		// Start worker in background
		done := make(chan struct{})
		go func() {
			defer close(done)
			runWorkerMode(ctx, inf, logger)
		}()
		// Run API in foreground (blocks)
		runAPI(ctx, jobService, inf, maxUploadSize, logger)
		cancel()
		<-done
	}
}

// setupInfra connects the configured backends. The returned func closes them.
func setupInfra(ctx context.Context, mode string, logger *slog.Logger) (*infra, func()) {
	inf := &infra{}
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	// ===== PostgreSQL (optional) =====
	if databaseURL := getEnv("DATABASE_URL", ""); databaseURL != "" {
		log.Println("Connecting to PostgreSQL...")
		dbConfig := postgres.Config{
			URL:             databaseURL,
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE", time.Minute),
		}
		db, err := postgres.Connect(ctx, dbConfig)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		closers = append(closers, func() { _ = db.Close() })

		// Initialize schema (idempotent)
		if err := db.InitSchema(ctx); err != nil {
			log.Fatalf("Failed to initialize schema: %v", err)
		}
		inf.db = db
		log.Println("PostgreSQL connected and schema initialized")
	}

	// ===== Redis (optional) =====
	if redisURL := getEnv("REDIS_URL", ""); redisURL != "" {
		log.Println("Connecting to Redis...")
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			log.Fatalf("Failed to parse Redis URL: %v", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		closers = append(closers, func() { _ = client.Close() })
		inf.redisClient = client
		log.Println("Redis connected")
	}

	// ===== Job Store =====
	defaultStore := "memory"
	if inf.redisClient != nil {
		defaultStore = "redis"
	} else if inf.db != nil {
		defaultStore = "postgres"
	}
	switch store := getEnv("JOB_STORE", defaultStore); store {
	case "redis":
		if inf.redisClient == nil {
			log.Fatalf("JOB_STORE=redis requires REDIS_URL")
		}
		inf.jobs = redisadapter.NewJobStore(inf.redisClient)
	case "postgres":
		if inf.db == nil {
			log.Fatalf("JOB_STORE=postgres requires DATABASE_URL")
		}
		inf.jobs = postgres.NewJobStore(inf.db)
	case "memory":
		inf.jobs = memory.NewJobStore()
	default:
		log.Fatalf("Unknown JOB_STORE: %s (use: memory, redis, or postgres)", store)
	}
	log.Printf("Using %s job store", getEnv("JOB_STORE", defaultStore))

	// ===== Artifact Store =====
	switch backend := getEnv("ARTIFACT_STORE", "local"); backend {
	case "s3":
		store, err := s3.NewStoreFromEnv(ctx, getEnv("AWS_REGION", "us-east-1"), getEnv("AWS_BUCKET", ""), getEnv("AWS_PREFIX", "ledgerscan"))
		if err != nil {
			log.Fatalf("Failed to create S3 artifact store: %v", err)
		}
		inf.artifacts = store
	case "local":
		store, err := local.NewStore(getEnv("ARTIFACT_DIR", "./data"))
		if err != nil {
			log.Fatalf("Failed to create local artifact store: %v", err)
		}
		inf.artifacts = store
	default:
		log.Fatalf("Unknown ARTIFACT_STORE: %s (use: local or s3)", backend)
	}
	log.Printf("Using %s artifact store", getEnv("ARTIFACT_STORE", "local"))

	// ===== Task Queue (Redis, then PostgreSQL, then in-process) =====
	switch {
	case inf.redisClient != nil:
		q, err := redisqueue.NewQueue(inf.redisClient, fmt.Sprintf("worker-%d", os.Getpid()))
		if err != nil {
			log.Fatalf("Failed to create task queue: %v", err)
		}
		inf.taskQueue = q
		log.Println("Using Redis task queue")
	case inf.db != nil:
		inf.taskQueue = postgresqueue.NewQueue(inf.db.DB)
		log.Println("Using PostgreSQL task queue")
	default:
		inf.taskQueue = memory.NewQueue()
		if mode != "all" {
			logger.Warn("in-process task queue only reaches workers in the same process", "mode", mode)
		}
		log.Println("Using in-process task queue")
	}
	closers = append(closers, func() { _ = inf.taskQueue.Close() })

	// ===== Distributed Lock (Redis, then PostgreSQL advisory locks) =====
	switch {
	case inf.redisClient != nil:
		inf.lock = redisadapter.NewLock(inf.redisClient)
		log.Println("Using Redis distributed lock")
	case inf.db != nil:
		inf.lock = postgres.NewAdvisoryLock(inf.db)
		log.Println("Using PostgreSQL advisory lock")
	}

	// ===== Extraction Cache =====
	if inf.redisClient != nil {
		inf.cache = redisadapter.NewExtractionCache(inf.redisClient)
		log.Println("Using Redis extraction cache")
	} else {
		inf.cache = memory.NewCache()
		log.Println("Using in-process extraction cache")
	}

	return inf, closeAll
}

// readyChecks lists the dependencies reported by /ready
func (inf *infra) readyChecks() map[string]http.Pinger {
	checks := map[string]http.Pinger{
		"queue": inf.taskQueue,
	}
	if inf.db != nil {
		checks["database"] = inf.db
	}
	if c, ok := inf.cache.(http.Pinger); ok {
		checks["cache"] = c
	}
	return checks
}

func runAPI(ctx context.Context, jobService driving.JobService, inf *infra, maxUploadSize int64, logger *slog.Logger) {
	cfg := http.Config{
		Host:           getEnv("HOST", "0.0.0.0"),
		Port:           getEnvInt("PORT", 8000),
		Version:        version,
		CORSOrigins:    splitList(getEnv("CORS_ORIGINS", "*")),
		MaxUploadSize:  maxUploadSize,
		MaxRequestSize: int64(getEnvInt("MAX_REQUEST_SIZE_MB", 0)) << 20,
		Logger:         logger,
	}

	server := http.NewServer(cfg, jobService, inf.readyChecks())

	log.Printf("API server starting on :%d", cfg.Port)
	if err := server.Start(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// runWorkerMode builds the pipeline, then runs the worker and scheduler
// until ctx is cancelled.
func runWorkerMode(ctx context.Context, inf *infra, logger *slog.Logger) {
	log.Println("Starting worker mode...")

	recognizer, err := newRecognizer()
	if err != nil {
		log.Fatalf("Failed to create text recognizer: %v", err)
	}
	entities, err := newEntityExtractor()
	if err != nil {
		log.Fatalf("Failed to create entity extractor: %v", err)
	}

	visionAdapter := vision.New(vision.Config{
		Recognizer: recognizer,
		Entities:   entities,
		Cache:      inf.cache,
		CacheTTL:   getEnvDuration("CACHE_TTL", vision.DefaultCacheTTL),
		Preprocess: getEnvBool("OCR_PREPROCESS", true),
		Workers:    getEnvInt("MAX_WORKERS", vision.DefaultWorkers),
		BatchSize:  getEnvInt("BATCH_SIZE", vision.DefaultBatchSize),
		Logger:     logger,
	})

	if getEnvBool("CACHE_FLUSH_ON_START", false) {
		if err := visionAdapter.FlushCache(ctx); err != nil {
			logger.Warn("failed to flush extraction cache", "error", err)
		} else {
			log.Println("Extraction cache flushed")
		}
	}

	rasterizer := pdf.NewRasterizer(pdf.Config{
		Binary:   getEnv("PDFTOPPM_PATH", "pdftoppm"),
		TempDir:  getEnv("PDF_TEMP_DIR", ""),
		MaxPages: getEnvInt("PDF_MAX_PAGES", 0),
		Logger:   logger,
	})

	registry := normalisers.DefaultRegistry(normalisers.Config{
		Logger:       logger,
		Rasterizer:   rasterizer,
		DPI:          getEnvInt("PDF_DPI", normalisers.DefaultDPI),
		MaxDepth:     getEnvInt("ZIP_MAX_DEPTH", normalisers.DefaultMaxDepth),
		MaxEntrySize: int64(getEnvInt("MAX_UPLOAD_SIZE_MB", 100)) << 20,
	})

	pipeline := services.NewPipeline(services.PipelineConfig{
		Jobs:        inf.jobs,
		Artifacts:   inf.artifacts,
		Normalisers: registry,
		Vision:      visionAdapter,
		Logger:      logger,
		Lock:        inf.lock,
		LockTTL:     getEnvDuration("JOB_LOCK_TTL", services.DefaultJobLockTTL),
		Timeout:     getEnvDuration("JOB_TIMEOUT", services.DefaultJobTimeout),
		SoftTimeout: getEnvDuration("JOB_SOFT_TIMEOUT", services.DefaultJobSoftTimeout),
	})

	retention := services.NewRetention(services.RetentionConfig{
		Jobs:      inf.jobs,
		Artifacts: inf.artifacts,
		Retention: getEnvDuration("JOB_RETENTION", services.DefaultRetention),
		Logger:    logger,
	})

	// Create scheduler (if enabled)
	var scheduler *services.Scheduler
	if getEnvBool("SCHEDULER_ENABLED", true) {
		scheduler = services.NewScheduler(services.SchedulerConfig{
			TaskQueue: inf.taskQueue,
			Lock:      inf.lock,
			Logger:    logger,
		})
		log.Printf("Scheduler enabled (lock=%t)", inf.lock != nil)
	} else {
		log.Println("Scheduler disabled via SCHEDULER_ENABLED=false")
	}

	// Create worker
	w := worker.NewWorker(worker.WorkerConfig{
		TaskQueue:      inf.taskQueue,
		Pipeline:       pipeline,
		Purger:         retention,
		Scheduler:      scheduler,
		Logger:         logger,
		Concurrency:    getEnvInt("WORKER_CONCURRENCY", 2),
		DequeueTimeout: getEnvInt("WORKER_DEQUEUE_TIMEOUT", 5),
	})

	// Start worker
	if err := w.Start(ctx); err != nil {
		log.Fatalf("Failed to start worker: %v", err)
	}

	log.Println("Worker started, processing tasks...")
	log.Println("Worker handles:")
	log.Println("  - process_job: Run the invoice pipeline for an uploaded job")
	log.Println("  - purge_jobs: Delete expired jobs and their files")

	// Wait for context cancellation
	<-ctx.Done()

	// Graceful shutdown
	log.Println("Stopping worker...")
	w.Stop()
	log.Println("Worker stopped")
}

// newRecognizer selects the raw OCR back end
func newRecognizer() (driven.TextRecognizer, error) {
	defaultBackend := "tesseract"
	if getEnv("AZURE_VISION_ENDPOINT", "") != "" {
		defaultBackend = "azure"
	}

	switch backend := getEnv("OCR_BACKEND", defaultBackend); backend {
	case "azure":
		log.Println("Using Azure Computer Vision OCR")
		return azure.NewRecognizer(getEnv("AZURE_VISION_ENDPOINT", ""), getEnv("AZURE_VISION_KEY", ""))
	case "tesseract":
		log.Println("Using Tesseract OCR")
		return tesseract.NewRecognizer(splitList(getEnv("TESSERACT_LANGS", "eng"))...)
	default:
		return nil, fmt.Errorf("unknown OCR_BACKEND: %s (use: tesseract or azure)", backend)
	}
}

// newEntityExtractor selects the structured entity back end. A nil
// extractor means raw OCR only.
func newEntityExtractor() (driven.EntityExtractor, error) {
	apiKey := getEnv("ANTHROPIC_API_KEY", "")
	defaultBackend := "none"
	if apiKey != "" {
		defaultBackend = "anthropic"
	}

	switch backend := getEnv("ENTITY_BACKEND", defaultBackend); backend {
	case "anthropic":
		log.Println("Using Anthropic entity extraction")
		return claude.NewExtractor(apiKey, getEnv("ANTHROPIC_MODEL", claude.DefaultModel))
	case "none":
		log.Println("Entity extraction disabled, using layout analysis only")
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown ENTITY_BACKEND: %s (use: anthropic or none)", backend)
	}
}

// setupLogger builds the process logger from LOG_FORMAT and LOG_LEVEL
func setupLogger(format, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}

	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
