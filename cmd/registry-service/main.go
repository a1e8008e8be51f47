package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	audithandler "github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/internal/audit/handler"
	auditrepo "github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/internal/audit/repository"
	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/internal/auth"
	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/internal/auth/jwt"
	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/internal/ocr/engine"
	ocrevents "github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/internal/ocr/events"
	ocrhandler "github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/internal/ocr/handler"
	ocrrepo "github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/internal/ocr/repository"
	ocrservice "github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/internal/ocr/service"
	wfevents "github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/internal/workflow/events"
	wfhandler "github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/internal/workflow/handler"
	wfrepo "github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/internal/workflow/repository"
	wfservice "github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/internal/workflow/service"
	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/pkg/config"
	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/pkg/database"
	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/pkg/httputil"
	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/pkg/logger"
	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/pkg/messaging"
)

func main() {
	// Optional .env for local development
	_ = godotenv.Load()

	// Load configuration with validation (fails fast in production if required config is missing)
	cfg, err := config.LoadWithValidation("registry-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("registry-service", cfg.Server.Environment)
	log.Info().Msg("starting Registry Service")

	// Connect to database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Connect to RabbitMQ
	rmq, err := messaging.New(&cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()

	// Initialize event publishers
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeRegistryEvents, "registry-service", log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}
	workflowEvents := wfevents.NewPublisher(publisher, log)
	documentEvents := ocrevents.NewPublisher(publisher, log)

	// Initialize repositories
	stateRepo := wfrepo.NewStateRepository(db)
	transitionRepo := wfrepo.NewTransitionRepository(db)
	auditRepo := auditrepo.NewAuditRepository(db)
	cacheRepo := ocrrepo.NewCacheRepository(db)

	// Initialize services
	workflowService := wfservice.NewWorkflowService(db, stateRepo, transitionRepo, auditRepo, workflowEvents, log)
	ocrEngine := engine.New(&cfg.OCR, engine.NewRunner(), log)
	ocrService := ocrservice.NewService(cacheRepo, ocrEngine, &cfg.OCR, documentEvents, log)

	// Initialize handlers
	workflowHandler := wfhandler.NewWorkflowHandler(workflowService, log)
	ocrHandler := ocrhandler.NewHandler(ocrService, cfg.OCR.MaxUploadSize, log)
	auditHandler := audithandler.NewAuditHandler(auditRepo, log)

	// JWT authentication
	jwtManager := jwt.NewManager(&cfg.JWT)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Background cache eviction
	ocrService.StartJanitor(ctx)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check (no auth required)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  "registry-service",
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
		})
	})

	// API routes (authenticated)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Authenticator(jwtManager, log))

		r.Route("/certificates", func(r chi.Router) {
			r.Post("/workflow/transition", workflowHandler.Transition)
			r.Get("/{type}/{id}/workflow", workflowHandler.GetState)
			r.Get("/{type}/{id}/workflow/history", workflowHandler.GetHistory)
		})

		r.Post("/ocr/process", ocrHandler.Process)

		r.Get("/audit", auditHandler.List)
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Stop background workers
	cancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
