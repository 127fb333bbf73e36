package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"jainn/internal/auth"
	"jainn/internal/capabilities"
	"jainn/internal/config"
	"jainn/internal/handler"
	"jainn/internal/middleware"
	"jainn/internal/repository"
	"jainn/internal/repository/localstore"
	"jainn/internal/repository/postgres"
	"jainn/internal/service"
	serviceLLM "jainn/internal/service/llm"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}

	var logOut io.Writer = os.Stdout
	if cfg.Debug {
		if logFile, err := config.SetupLogFile("logs", 5); err == nil {
			defer logFile.Close()
			logOut = io.MultiWriter(os.Stdout, logFile)
		} else {
			fmt.Fprintf(os.Stderr, "warning: file logging disabled: %v\n", err)
		}
	}

	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	// Create JWT verifier for Supabase authentication
	jwtVerifier, err := auth.NewJWTVerifier(cfg.SupabaseJWKSURL, logger)
	if err != nil {
		log.Fatalf("Failed to create JWT verifier: %v", err)
	}
	defer jwtVerifier.Close()

	// Create pgx connection pool
	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.SupabaseDBURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	logger.Info("database connected",
		"max_conns", 25,
		"min_conns", 5,
	)

	// Create repositories
	tables := postgres.NewTableNames(cfg.TablePrefix)
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	txManager := postgres.NewTransactionManager(pool)

	remoteHistory := postgres.NewChatHistoryRepository(repoConfig, txManager)
	profileRepo := postgres.NewProfileRepository(repoConfig)
	verdictRepo := postgres.NewVerdictRepository(repoConfig)

	// Guest history lives in local JSON files, never in the database
	localHistory, err := localstore.NewChatHistoryRepository(cfg.GuestStoreDir, logger)
	if err != nil {
		log.Fatalf("Failed to create guest history store: %v", err)
	}
	historyResolver := repository.NewHistoryResolver(remoteHistory, localHistory)

	// Setup LLM providers
	providerRegistry, err := serviceLLM.SetupProviders(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to setup LLM providers: %v", err)
	}

	// Initialize capability registry
	capabilityRegistry, err := capabilities.NewRegistry()
	if err != nil {
		log.Fatalf("Failed to initialize capability registry: %v", err)
	}
	logger.Info("capability registry initialized")

	// Background task supervision (referee evaluations)
	tasks := serviceLLM.NewTaskGroup(logger)

	// Core services
	orchestrator := serviceLLM.NewOrchestrator(providerRegistry, cfg.DispatchTimeout, logger)
	referee := serviceLLM.NewReferee(providerRegistry, verdictRepo, tasks, cfg.RefereeTimeout, logger)
	sendService := serviceLLM.NewSendService(orchestrator, providerRegistry, referee, historyResolver, profileRepo, logger)
	historyService := service.NewHistoryService(historyResolver, verdictRepo, logger)
	profileService := service.NewProfileService(profileRepo, logger)

	// Handlers
	sendHandler := handler.NewSendHandler(sendService, logger)
	chatHandler := handler.NewChatHandler(historyService, logger)
	profileHandler := handler.NewProfileHandler(profileService, logger)
	modelsHandler := handler.NewModelsHandler(capabilityRegistry, logger)

	logger.Info("services initialized")

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Send pipeline routes
	mux.HandleFunc("POST /api/send", sendHandler.Send)
	mux.HandleFunc("POST /api/mode", sendHandler.SwitchMode)
	mux.HandleFunc("POST /api/turns/{id}/winner", sendHandler.SelectWinner)

	// Conversation history routes
	mux.HandleFunc("GET /api/chats", chatHandler.ListChats)
	mux.HandleFunc("GET /api/chats/{id}", chatHandler.GetChat)
	mux.HandleFunc("PATCH /api/chats/{id}", chatHandler.RenameChat)
	mux.HandleFunc("DELETE /api/chats/{id}", chatHandler.DeleteChat)
	mux.HandleFunc("GET /api/turns/{id}/verdict", chatHandler.GetVerdict)

	// Profile routes
	mux.HandleFunc("GET /api/users/me/profile", profileHandler.GetProfile)
	mux.HandleFunc("PATCH /api/users/me/profile", profileHandler.UpdateProfile)

	// Model catalog routes
	mux.HandleFunc("GET /api/models/capabilities", modelsHandler.GetCapabilities)

	// Build middleware chain
	var root http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Recovery → Auth → Routes
	root = middleware.AuthMiddleware(jwtVerifier)(root)
	root = middleware.Recovery(logger)(root)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Guest-ID"},
		AllowCredentials: true,
	})
	root = corsHandler.Handler(root)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute, // multi fan-outs can run up to the dispatch timeout
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	go func() {
		logger.Info("server listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown signal, then drain in-flight requests and
	// background referee evaluations
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
	if err := tasks.Shutdown(shutdownCtx); err != nil {
		logger.Warn("background tasks did not drain", "error", err)
	}

	logger.Info("server stopped")
}
