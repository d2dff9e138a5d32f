package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"furniture-storefront/internal/api"
	"furniture-storefront/internal/auth"
	"furniture-storefront/internal/catalog"
	"furniture-storefront/internal/config"
	"furniture-storefront/internal/logger"
	"furniture-storefront/internal/store"
)

const (
	defaultAppName = "furniture-storefront"

	rateLimitSweep   = time.Minute
	rateLimitIdleTTL = 10 * time.Minute
	sessionSweep     = 5 * time.Minute
)

// pinger is what the health check asks about the catalog backend.
type pinger interface {
	Ping(ctx context.Context) error
}

// backend is the catalog store plus whatever must be closed on shutdown.
type backend struct {
	store.Storer
	pinger
	close func() error
}

func main() {
	// Used until the configured logger exists.
	bootLog := logger.New("info", "")
	if err := godotenv.Load(); err != nil {
		// Not fatal: the environment may be set some other way.
		bootLog.Info().Msg("no .env file found, relying on system environment")
	}

	// --- Configuration Loading ---
	cfg, err := config.Load()
	if err != nil {
		bootLog.Fatal().Err(err).Msg("error loading configuration")
	}
	log := logger.New(cfg.LogLevel, cfg.AppEnv)
	log.Info().Str("backend", cfg.CatalogBackend).Str("session_store", cfg.Session.Store).Msg("configuration loaded")

	// --- Remote project client (auth and storage always go through it) ---
	rest, err := store.NewRestClient(cfg.Supabase.URL, cfg.Supabase.AnonKey, &http.Client{Timeout: 30 * time.Second})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create project client")
	}

	// --- Catalog backend ---
	catalogBackend, err := openBackend(cfg, rest, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open catalog backend")
	}
	images := store.NewStorageClient(rest, cfg.Supabase.Bucket)

	// --- Admin sessions ---
	sessionStore, redisClient, err := openSessionStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open session store")
	}
	sessions := auth.NewManager(auth.NewClient(rest), sessionStore, auth.ManagerOptions{
		TTL:               cfg.Session.TTL,
		MagicLinkRedirect: cfg.Admin.MagicLinkRedirect,
		Verifier:          auth.NewTokenVerifier(cfg.Supabase.JWTSecret),
		AllowList:         auth.ParseAllowList(cfg.Admin.Emails),
		Logger:            log.With().Str("component", "auth").Logger(),
	})
	initCtx, cancelInit := context.WithTimeout(context.Background(), 5*time.Second)
	if err := sessions.Init(initCtx); err != nil {
		cancelInit()
		log.Fatal().Err(err).Msg("failed to initialize session manager")
	}
	cancelInit()
	sessions.OnChange(func(event auth.Event, s auth.Session) {
		log.Info().Str("event", event.String()).Str("user_id", s.UserID).Str("email", s.Email).Msg("admin session changed")
	})

	// --- Initialize API Handlers ---
	limiter := api.NewRateLimiter(cfg.Admin.AuthRateLimitRPS, cfg.Admin.AuthRateLimitBurst)
	sweepCtx, stopSweeps := context.WithCancel(context.Background())
	go limiter.Cleanup(sweepCtx, rateLimitSweep, rateLimitIdleTTL)
	if memory, ok := sessionStore.(*auth.MemoryStore); ok {
		go memory.Cleanup(sweepCtx, sessionSweep)
	}

	httpAPIHandler := api.NewHTTPHandler(api.Dependencies{
		Views:    catalog.NewViews(catalogBackend, log.With().Str("component", "views").Logger()),
		Reviews:  catalog.NewReviewSubmitter(catalogBackend, log.With().Str("component", "reviews").Logger()),
		Products: catalog.NewProductManager(catalogBackend, images, log.With().Str("component", "admin").Logger()),
		Sessions: sessions,
		Cookie:   api.CookieConfig{Name: cfg.Session.CookieName, Secure: cfg.Session.Secure},
		Limiter:  limiter,
		Logger:   log,
	})

	// --- Setup & Start HTTP Server ---
	httpRouter := chi.NewRouter()
	setupBaseMiddleware(httpRouter, log)
	registerHealthCheck(httpRouter, log, catalogBackend)
	httpAPIHandler.RegisterRoutes(httpRouter)

	httpServer := &http.Server{
		Addr:         ":" + cfg.HttpServer.Port,
		Handler:      httpRouter,
		ReadTimeout:  cfg.HttpServer.TimeoutRead,
		WriteTimeout: cfg.HttpServer.TimeoutWrite,
		IdleTimeout:  cfg.HttpServer.TimeoutIdle,
	}

	go func() {
		log.Info().Str("port", cfg.HttpServer.Port).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server ListenAndServe error")
		}
		log.Info().Msg("HTTP server has stopped")
	}()

	// --- Setup & Start gRPC Server ---
	grpcServer, healthServer := setupGRPCServer(log)
	grpcListener, err := net.Listen("tcp", ":"+cfg.GrpcServer.Port)
	if err != nil {
		log.Fatal().Err(err).Str("port", cfg.GrpcServer.Port).Msg("failed to listen for gRPC")
	}

	go func() {
		log.Info().Str("port", cfg.GrpcServer.Port).Msg("gRPC server listening")
		if err := grpcServer.Serve(grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			log.Fatal().Err(err).Msg("gRPC server Serve error")
		}
		log.Info().Msg("gRPC server has stopped")
	}()

	// --- Graceful Shutdown ---
	shutdownComplete := make(chan struct{})
	go waitForShutdown(log, httpServer, grpcServer, healthServer, func() {
		stopSweeps()
		if err := catalogBackend.close(); err != nil {
			log.Warn().Err(err).Msg("error closing catalog backend")
		}
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				log.Warn().Err(err).Msg("error closing redis client")
			}
		}
	}, shutdownComplete)

	<-shutdownComplete
	log.Info().Msg("service shutdown sequence finished")
}

// openBackend returns the catalog store selected by CATALOG_BACKEND.
func openBackend(cfg *config.Config, rest *store.RestClient, log zerolog.Logger) (*backend, error) {
	if cfg.CatalogBackend != config.BackendPostgres {
		restStore := store.NewRestStore(rest)
		log.Info().Str("url", rest.ProjectURL()).Msg("catalog served through the REST interface")
		return &backend{Storer: restStore, pinger: restStore, close: func() error { return nil }}, nil
	}

	db, err := sql.Open("postgres", cfg.Postgres.DSN())
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	log.Info().Str("host", cfg.Postgres.Host).Msg("database connection established")

	pgStore := store.NewPostgresStore(db)
	return &backend{Storer: pgStore, pinger: pgStore, close: pgStore.Close}, nil
}

// openSessionStore returns the session store selected by SESSION_STORE. The
// redis client is returned so it can be closed on shutdown.
func openSessionStore(cfg *config.Config) (auth.SessionStore, *redis.Client, error) {
	if cfg.Session.Store != config.SessionStoreRedis {
		return auth.NewMemoryStore(), nil, nil
	}
	client, err := auth.NewRedisClient(cfg.Session.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	return auth.NewRedisStore(client), client, nil
}

func setupBaseMiddleware(router *chi.Mux, log zerolog.Logger) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(api.RequestLogger(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))
	log.Debug().Msg("base HTTP middleware registered")
}

func registerHealthCheck(router *chi.Mux, log zerolog.Logger, backend pinger) {
	healthPath := "/api/v1/healthz"
	router.Get(healthPath, func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		backendStatus := "healthy"
		if err := backend.Ping(ctx); err != nil {
			backendStatus = "unhealthy"
			log.Warn().Err(err).Msg("health check backend ping failed")
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK) // Always 200; the payload carries the detail
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":      "healthy",
			"serviceName": defaultAppName,
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
			"catalog":     backendStatus,
		})
	})
	log.Debug().Str("path", healthPath).Msg("HTTP health check registered")
}

// setupGRPCServer serves the gRPC health protocol and reflection for probes and grpcurl.
func setupGRPCServer(log zerolog.Logger) (*grpc.Server, *health.Server) {
	s := grpc.NewServer()

	healthServer := health.NewServer()
	healthServer.SetServingStatus(defaultAppName, grpc_health_v1.HealthCheckResponse_SERVING)
	grpc_health_v1.RegisterHealthServer(s, healthServer)
	log.Debug().Msg("gRPC health check service registered")

	reflection.Register(s)
	log.Debug().Msg("gRPC reflection service registered")

	return s, healthServer
}

func waitForShutdown(
	log zerolog.Logger,
	httpServer *http.Server,
	grpcServer *grpc.Server,
	healthServer *health.Server,
	cleanup func(),
	shutdownComplete chan struct{},
) {
	defer close(shutdownComplete)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	receivedSignal := <-sigChan
	log.Info().Str("signal", receivedSignal.String()).Msg("starting graceful shutdown")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	// Probes see NOT_SERVING while in-flight work drains.
	healthServer.Shutdown()

	stoppedGrpc := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stoppedGrpc)
	}()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("HTTP server graceful shutdown failed")
	} else {
		log.Info().Msg("HTTP server gracefully shut down")
	}

	select {
	case <-stoppedGrpc:
		log.Info().Msg("gRPC server gracefully shut down")
	case <-shutdownCtx.Done():
		log.Warn().Err(shutdownCtx.Err()).Msg("gRPC server graceful shutdown timed out, forcing stop")
		grpcServer.Stop()
	}

	cleanup()
	log.Info().Msg("graceful shutdown sequence completed")
}
