package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	chromem "github.com/philippgille/chromem-go"

	"github.com/porticoai/portico/internal/api"
	"github.com/porticoai/portico/internal/auth"
	"github.com/porticoai/portico/internal/classifier"
	"github.com/porticoai/portico/internal/cloudsql"
	"github.com/porticoai/portico/internal/config"
	"github.com/porticoai/portico/internal/database"
	"github.com/porticoai/portico/internal/decision"
	"github.com/porticoai/portico/internal/inference"
	"github.com/porticoai/portico/internal/logging"
	"github.com/porticoai/portico/internal/metrics"
	"github.com/porticoai/portico/internal/retrieval"
	"github.com/porticoai/portico/internal/server"
	"github.com/porticoai/portico/internal/validation"
	"github.com/porticoai/portico/internal/volatility"
	"github.com/porticoai/portico/internal/workflow"
)

func main() {
	// Local development convenience; the file is absent in production.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to init logger", "error", err)
		os.Exit(1)
	}

	logger.Info("starting portico")

	// Database is optional: without it the service still serves advice but
	// keeps no audit history.
	var db *sql.DB
	var adviceLogRepo *database.AdviceLogRepository
	var inferenceLogRepo *database.InferenceLogRepository
	var inferenceLogger *inference.Logger

	if dsn, dbErr := cloudsql.ResolveDSN(); dbErr == nil {
		dbCfg := database.DefaultConfig()
		dbCfg.DSN = dsn

		logger.Info("database configuration", "config", cloudsql.Describe())
		logger.Info("connecting to database")
		db, err = database.Connect(context.Background(), dbCfg)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		logger.Info("database connected")

		// Non-fatal so the app can start even if migrations fail
		if err := database.RunMigrations(db, "./migrations", logger); err != nil {
			logger.Warn("failed to run migrations, continuing anyway", "error", err)
		}

		adviceLogRepo = database.NewAdviceLogRepository(db)
		inferenceLogRepo = database.NewInferenceLogRepository(db)
		inferenceLogger = inference.NewLogger(inferenceLogRepo, logger)
	} else {
		logger.Warn("no database configured, advice history disabled", "error", dbErr)
	}

	// Model provider with circuit breaker. The cascade inside the decision
	// maker handles per-model failures; the breaker guards a dead provider.
	openaiKey := os.Getenv("OPENAI_API_KEY")
	anthropicKey := os.Getenv("ANTHROPIC_API_KEY")

	var provider decision.ChatCompletionProvider
	switch {
	case os.Getenv("MODEL_PROVIDER") == "anthropic" && anthropicKey != "":
		logger.Info("using anthropic completion provider")
		provider = decision.NewBreakerProvider("anthropic", decision.NewAnthropicProvider(anthropicKey, inferenceLogger))
	case openaiKey != "":
		logger.Info("using openai completion provider")
		provider = decision.NewBreakerProvider("openai", decision.NewOpenAIProvider(openaiKey, inferenceLogger))
	default:
		logger.Warn("no model API key configured, decisions will fall back")
		provider = decision.NewBreakerProvider("openai", decision.NewOpenAIProvider("", inferenceLogger))
	}

	// Embedded vector store for the document corpus.
	corpusPath := os.Getenv("CORPUS_PATH")
	if corpusPath == "" {
		corpusPath = "./data/corpus"
	}
	vectorDB, err := chromem.NewPersistentDB(corpusPath, false)
	if err != nil {
		logger.Error("failed to open vector store", "path", corpusPath, "error", err)
		os.Exit(1)
	}

	embedKey := openaiKey
	semanticRetriever, err := retrieval.NewChromemRetriever(vectorDB, "advisory-corpus",
		chromem.NewEmbeddingFuncOpenAI(embedKey, chromem.EmbeddingModelOpenAI3Small), logger)
	if err != nil {
		logger.Error("failed to open retrieval collection", "error", err)
		os.Exit(1)
	}

	// Volatility-aware retrieval sizing. Without MARKET_DATA_URL the
	// estimator runs on the simulated source.
	var marketSource volatility.MarketDataSource
	if marketDataURL := os.Getenv("MARKET_DATA_URL"); marketDataURL != "" {
		logger.Info("using http market data source", "url", marketDataURL)
		marketSource = volatility.NewHTTPMarketSource(marketDataURL, 10*time.Second)
	} else {
		logger.Info("no market data source configured, using simulated volatility")
	}
	estimator := volatility.NewEstimator(marketSource, cfg.Volatility, logger)
	sizer := volatility.NewAdaptiveSizer(estimator, cfg.Retrieval, cfg.Volatility)

	// Query processing is optional: without an OpenAI key retrieval uses the
	// raw query and regex ticker extraction.
	var processor retrieval.QueryProcessor
	if openaiKey != "" {
		processor = retrieval.NewOpenAIQueryProcessor(openaiKey, cfg.Models.Numeric, logger)
	}

	if cfg.Retrieval.TopKPinned {
		logger.Info("retrieval top-k pinned, adaptive sizing disabled", "top_k", cfg.Retrieval.TopK)
	}
	contextRetriever := retrieval.NewContextRetriever(semanticRetriever, processor, sizer, cfg.Retrieval, logger)

	maker := decision.NewMaker(provider, classifier.New(), cfg.Models, logger)
	validator := validation.NewValidator(nil, logger)

	collector, err := metrics.NewHTTPCollector()
	if err != nil {
		logger.Error("failed to init metrics", "error", err)
		os.Exit(1)
	}

	// The engine takes interfaces; a typed nil repo must not reach it.
	var recorder workflow.AdviceRecorder
	if adviceLogRepo != nil {
		recorder = adviceLogRepo
	}

	engine := workflow.NewEngine(contextRetriever, maker, validator, recorder, collector, logger)

	// HTTP surface
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := database.HealthCheck(r.Context(), db); err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"degraded","database":"unreachable"}`))
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.HandleFunc("/api/info", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"portico","status":"ready","version":"0.1.0"}`))
	})

	mux.Handle("/metrics", collector.Handler())

	authConfig := auth.LoadConfigFromEnv()
	logger.Info("auth configured", "jwt_secret_set", authConfig.JWTSecret != auth.DefaultSecret)

	api.SetupRoutes(mux, api.RouterDeps{
		Engine:           engine,
		AdviceLogRepo:    adviceLogRepo,
		InferenceLogRepo: inferenceLogRepo,
		Indexer:          semanticRetriever,
		AuthConfig:       authConfig,
		Logger:           logger,
	})

	srv := server.New(cfg.Server, logger, collector.InstrumentHandler(mux))

	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("portico started successfully")
	logger.Info("API available", "url", fmt.Sprintf("http://localhost:%s", cfg.Server.Port))

	waitForSignal(logger)

	logger.Info("shutting down")
	if err := srv.Shutdown(context.Background()); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	logger.Info("shutdown complete")
}

func waitForSignal(logger *slog.Logger) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	sig := <-c
	logger.Info("received signal", "signal", sig.String())
	signal.Stop(c)
	close(c)
}
