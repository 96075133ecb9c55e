package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/RMahshie/ramanspec/internal/api"
	"github.com/RMahshie/ramanspec/internal/config"
	"github.com/RMahshie/ramanspec/internal/output"
	"github.com/RMahshie/ramanspec/internal/processing"
	"github.com/RMahshie/ramanspec/internal/repository/postgres"
	"github.com/RMahshie/ramanspec/internal/storage"
	"github.com/RMahshie/ramanspec/pkg/models"
)

func main() {
	// Configure zerolog for structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.PingContext(startupCtx); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	if err := postgres.Migrate(startupCtx, db); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}

	storeCfg := cfg.Storage.S3Config()
	if storeCfg.Backend == storage.BackendMinio {
		if err := storage.EnsureBucket(startupCtx, storeCfg); err != nil {
			log.Fatal().Err(err).Msg("Failed to prepare bucket")
		}
	}
	cancelStartup()

	store, err := storage.New(storeCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create object store")
	}

	jobRepo := postgres.NewPostgresJobRepository(db)
	processingSvc := processing.NewProcessingService(store, jobRepo, processing.Options{
		DropLeading: cfg.Spectrum.DropLeading,
		Plotter:     output.LogPlotter{},
	})

	// Create Chi router
	router := chi.NewRouter()

	// Middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(zerologLogger())
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Create Huma API
	humaConfig := huma.DefaultConfig("Ramanspec API", "1.0.0")
	humaConfig.DocsPath = "/api/docs"
	humaAPI := humachi.New(router, humaConfig)

	// Register health endpoint
	huma.Register(humaAPI, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns the health status of the service",
	}, func(ctx context.Context, input *struct{}) (*models.HealthResponse, error) {
		resp := &models.HealthResponse{}
		resp.Body.Status = "healthy"
		resp.Body.Version = "1.0.0"
		resp.Body.Time = time.Now()
		return resp, nil
	})

	api.RegisterRoutes(humaAPI, store, jobRepo, processingSvc)

	// Start server
	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		log.Info().Str("addr", addr).Str("env", cfg.Server.Env).Msg("Starting Ramanspec API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// zerologLogger returns a Chi middleware that logs HTTP requests using zerolog
func zerologLogger() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				log.Info().
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Str("request_id", middleware.GetReqID(r.Context())).
					Int("status", ww.Status()).
					Dur("latency", time.Since(start)).
					Msg("HTTP request")
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
