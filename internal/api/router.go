package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/porticoai/portico/internal/auth"
	"github.com/porticoai/portico/internal/database"
	"github.com/porticoai/portico/internal/workflow"
)

// RouterDeps carries the collaborators the route table needs. AdviceLogRepo,
// InferenceLogRepo and Indexer may be nil; the corresponding endpoints
// degrade instead of panicking.
type RouterDeps struct {
	Engine           *workflow.Engine
	AdviceLogRepo    *database.AdviceLogRepository
	InferenceLogRepo *database.InferenceLogRepository
	Indexer          DocumentIndexer
	AuthConfig       auth.Config
	Logger           *slog.Logger
}

// SetupRoutes configures all API routes
func SetupRoutes(mux *http.ServeMux, deps RouterDeps) {
	adviceHandler := NewAdviceHandler(deps.Engine, deps.AdviceLogRepo, deps.Logger)
	documentHandler := NewDocumentHandler(deps.Indexer, deps.Logger)
	authHandler := NewAuthHandler(deps.AuthConfig, deps.Logger)

	var inferenceLogHandler *InferenceLogHandler
	if deps.InferenceLogRepo != nil {
		inferenceLogHandler = NewInferenceLogHandler(deps.InferenceLogRepo, deps.Logger)
	}

	authMiddleware := auth.Middleware(deps.AuthConfig)

	// Authentication routes (public)
	mux.HandleFunc("/api/auth/login", authHandler.Login)
	mux.HandleFunc("/api/auth/validate", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			writePreflight(w, "GET, OPTIONS")
			return
		}
		authMiddleware(http.HandlerFunc(authHandler.ValidateToken)).ServeHTTP(w, r)
	})

	// Advice workflow route (public)
	mux.HandleFunc("/api/advice", adviceHandler.HandleAdvice)

	// Advice history routes (admin only)
	mux.HandleFunc("/api/advice/logs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			writePreflight(w, "GET, OPTIONS")
			return
		}
		authMiddleware(http.HandlerFunc(adviceHandler.ListAdviceLogs)).ServeHTTP(w, r)
	})

	mux.HandleFunc("/api/advice/logs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			writePreflight(w, "GET, OPTIONS")
			return
		}
		authMiddleware(http.HandlerFunc(adviceHandler.GetAdviceLog)).ServeHTTP(w, r)
	})

	mux.HandleFunc("/api/advice/stats", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			writePreflight(w, "GET, OPTIONS")
			return
		}
		authMiddleware(http.HandlerFunc(adviceHandler.GetAdviceStats)).ServeHTTP(w, r)
	})

	// Corpus management routes (admin only)
	mux.HandleFunc("/api/documents", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			writePreflight(w, "POST, OPTIONS")
			return
		}
		authMiddleware(http.HandlerFunc(documentHandler.IndexDocuments)).ServeHTTP(w, r)
	})

	// Inference log routes (admin only)
	mux.HandleFunc("/api/admin/inference-logs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			writePreflight(w, "GET, OPTIONS")
			return
		}
		if inferenceLogHandler == nil {
			http.Error(w, "Inference history requires a database", http.StatusServiceUnavailable)
			return
		}
		authMiddleware(http.HandlerFunc(inferenceLogHandler.ListInferenceLogs)).ServeHTTP(w, r)
	})

	mux.HandleFunc("/api/admin/inference-logs/stats", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			writePreflight(w, "GET, OPTIONS")
			return
		}
		if inferenceLogHandler == nil {
			http.Error(w, "Inference history requires a database", http.StatusServiceUnavailable)
			return
		}
		authMiddleware(http.HandlerFunc(inferenceLogHandler.GetInferenceStats)).ServeHTTP(w, r)
	})

	// CORS preflight for everything else under /api/
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			writePreflight(w, "GET, POST, PUT, DELETE, OPTIONS")
			return
		}
		if strings.HasPrefix(r.URL.Path, "/api/") {
			http.NotFound(w, r)
		}
	})
}

func writePreflight(w http.ResponseWriter, methods string) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", methods)
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.WriteHeader(http.StatusOK)
}
