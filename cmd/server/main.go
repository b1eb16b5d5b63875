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

	"github.com/RMahshie/rfscope/internal/api"
	"github.com/RMahshie/rfscope/internal/api/handlers"
	"github.com/RMahshie/rfscope/internal/config"
	"github.com/RMahshie/rfscope/internal/processing"
	"github.com/RMahshie/rfscope/internal/repository/postgres"
	"github.com/RMahshie/rfscope/internal/storage"
	"github.com/RMahshie/rfscope/internal/transport"
	"github.com/RMahshie/rfscope/pkg/codec"
	"github.com/RMahshie/rfscope/pkg/models"
)

const version = "1.0.0"

func main() {
	// Configure zerolog for structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}

	ctx := context.Background()
	store, err := storage.New(ctx, storage.Config{
		Backend:   cfg.Storage.Backend,
		Bucket:    cfg.Storage.Bucket,
		Endpoint:  cfg.Storage.Endpoint,
		Region:    cfg.Storage.Region,
		AccessKey: cfg.Storage.AccessKeyID,
		SecretKey: cfg.Storage.SecretAccessKey,
		UseSSL:    cfg.Storage.UseSSL,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise object storage")
	}

	dtype, err := codec.ParseDType(cfg.Codec.DType)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid CODEC_DTYPE")
	}
	codecOpts := []codec.Option{codec.WithLevel(cfg.Codec.Level), codec.WithDType(dtype)}

	repo := postgres.NewPostgresCaptureRepository(db)
	processingSvc := processing.NewProcessingService(store, repo, processing.WithCodecOptions(codecOpts...))

	var verifier *transport.Verifier
	if cfg.Signing.AuthorizedKeysFile != "" {
		keys, err := transport.LoadAuthorizedKeys(cfg.Signing.AuthorizedKeysFile)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load authorized keys")
		}
		verifier = transport.NewVerifier(keys, cfg.Signing.MaxSkew)
		log.Info().Int("keys", len(keys)).Msg("Signed spectrum ingest enabled")
	} else {
		log.Warn().Msg("SIGNING_AUTHORIZED_KEYS not set; /api/spectra accepts unsigned uploads")
	}

	// Create Chi router
	router := chi.NewRouter()

	// Middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(zerologLogger())
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Date", "Digest",
			transport.HeaderKeyID, transport.HeaderSignatureAlg, transport.HeaderSignature},
		MaxAge: 300,
	}))
	router.Use(middleware.Compress(5))
	if verifier != nil {
		router.Use(verifier.RequireSignature(transport.SpectraPath))
	}

	// Create Huma API
	humaConfig := huma.DefaultConfig("rfscope API", version)
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
		resp.Body.Version = version
		resp.Body.Time = time.Now()
		return resp, nil
	})

	api.RegisterRoutes(humaAPI, api.Handlers{
		Plans:    handlers.NewPlanHandler(cfg.Planning.SizePlanner),
		Captures: handlers.NewCaptureHandler(repo, store, processingSvc, cfg.Planning.SizePlanner, codecOpts...),
		Spectra:  handlers.NewSpectrumHandler(repo, store, verifier != nil),
	})

	// Start server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		log.Info().Str("addr", srv.Addr).Str("env", cfg.Server.Env).Msg("Starting rfscope API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
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
