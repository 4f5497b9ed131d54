package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/whisperleaf/whisperleaf/internal/api/router"
	appconfig "github.com/whisperleaf/whisperleaf/internal/config"
	"github.com/whisperleaf/whisperleaf/internal/constitution"
	"github.com/whisperleaf/whisperleaf/internal/crisis"
	"github.com/whisperleaf/whisperleaf/internal/http/handlers"
	"github.com/whisperleaf/whisperleaf/internal/mood"
	"github.com/whisperleaf/whisperleaf/internal/observability/metrics"
	"github.com/whisperleaf/whisperleaf/internal/pipeline"
	"github.com/whisperleaf/whisperleaf/internal/safety"
	"github.com/whisperleaf/whisperleaf/internal/vault"
	"github.com/whisperleaf/whisperleaf/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting whisperleaf API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	// Constitutional rules: file if configured, embedded defaults otherwise.
	ruleSet := constitution.DefaultRules()
	if cfg.RulesPath != "" {
		data, err := os.ReadFile(cfg.RulesPath)
		if err != nil {
			logger.Error("failed to read rules file", "path", cfg.RulesPath, "error", err)
			os.Exit(1)
		}
		ruleSet, err = constitution.LoadRules(data)
		if err != nil {
			logger.Error("failed to load rules file", "path", cfg.RulesPath, "error", err)
			os.Exit(1)
		}
	}
	engine := constitution.NewEngine(logger, ruleSet)

	// Mood model: lexicon by default, Bedrock when configured.
	var model mood.Model = mood.NewLexiconModel()
	if cfg.ClassifierProvider == "bedrock" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		model = mood.NewBedrockModel(bedrockruntime.NewFromConfig(awsCfg), cfg.BedrockModelID, logger)
		logger.Info("bedrock classifier enabled", "model_id", cfg.BedrockModelID)
	}

	// Storage.
	var (
		store   vault.RecordStore = vault.NewMemoryStore()
		sqlDB   *sql.DB
		dbPool  *pgxpool.Pool
		auditDB *safety.AuditService
	)
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		dbPool = pool
		defer dbPool.Close()

		sqlDB = stdlib.OpenDBFromPool(dbPool)
		defer sqlDB.Close()
		auditDB = safety.NewAuditService(sqlDB)

		if cfg.RecordStore == "postgres" {
			store = vault.NewPostgresStore(dbPool)
		}
	}
	if cfg.RecordStore == "postgres" && dbPool == nil {
		logger.Error("RECORD_STORE=postgres requires DATABASE_URL")
		os.Exit(1)
	}

	var keystore vault.Keystore = vault.NewMemoryKeystore()
	if cfg.KeystoreKind == "redis" {
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		keystore = vault.NewRedisKeystore(redis.NewClient(opts))
		logger.Info("redis keystore enabled", "addr", cfg.RedisAddr)
	}

	if cfg.VaultMasterKey == "" {
		logger.Error("VAULT_MASTER_KEY is required")
		os.Exit(1)
	}
	keys, err := vault.NewHKDFKeyProvider([]byte(cfg.VaultMasterKey))
	if err != nil {
		logger.Error("invalid vault master key", "error", err)
		os.Exit(1)
	}

	v := vault.New(logger, store, keystore, keys, engine)

	m := metrics.NewPipelineMetrics(nil)
	coordinator := pipeline.NewCoordinator(
		logger,
		mood.NewClassifier(model, logger),
		crisis.NewAssessor(logger),
		engine,
		v,
		auditDB,
		m,
		cfg.ClassifierTimeout,
	)
	dispatcher := pipeline.NewDispatcher(logger, coordinator, m, cfg.WorkerCount, cfg.QueueDepth)
	defer dispatcher.Stop()

	r := router.New(&router.Config{
		Logger:         logger,
		Journal:        handlers.NewJournalHandler(dispatcher, logger),
		Records:        handlers.NewRecordsHandler(v, auditDB, logger),
		AdminRules:     handlers.NewAdminRulesHandler(engine, cfg.RulesPath, logger),
		Health:         handlers.NewHealthHandler(engine, nil),
		MetricsHandler: promhttp.Handler(),
		AuthJWTSecret:  cfg.AuthJWTSecret,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
