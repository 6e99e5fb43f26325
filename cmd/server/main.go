package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lifedeck/sso-hub/internal/config"
	"github.com/lifedeck/sso-hub/internal/database"
	"github.com/lifedeck/sso-hub/internal/handler"
	"github.com/lifedeck/sso-hub/internal/identity"
	"github.com/lifedeck/sso-hub/internal/middleware"
	"github.com/lifedeck/sso-hub/internal/origin"
	"github.com/lifedeck/sso-hub/internal/redis"
	"github.com/lifedeck/sso-hub/internal/repository"
	"github.com/lifedeck/sso-hub/internal/service"
	"github.com/lifedeck/sso-hub/internal/store"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	setLogLevel(cfg.LogLevel)

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()
	log.Info().Msg("database connected")

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = redis.NewClient(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
		log.Info().Msg("redis connected")
	} else {
		log.Warn().Msg("REDIS_URL not set: profile cache disabled, rate limits are per-replica")
	}

	var profileRepo repository.ProfileRepository = repository.NewProfileRepository(db.DB)
	if redisClient != nil {
		profileRepo = repository.NewCachedProfileRepository(profileRepo, redisClient.Client)
	}

	provider := identity.NewJWTProvider(cfg.TokenSigningSecret)

	sessionStore := store.New(cfg.SessionTTL(), cfg.SweepInterval())
	sessionStore.Start()
	defer sessionStore.Stop()

	ssoService := service.NewSSOService(
		sessionStore, profileRepo, provider, cfg.Verified(), cfg.SessionTTL(), cfg.UpstreamTimeout(),
	)

	originPolicy := origin.New(cfg.TrustedOriginSuffix)
	corsMiddleware := middleware.NewCORSMiddleware(originPolicy)
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)
	securityHeadersMiddleware := middleware.NewSecurityHeadersMiddleware(cfg.Verified())

	var rateLimitHandler func(http.Handler) http.Handler
	if redisClient != nil {
		rateLimitHandler = middleware.NewRedisRateLimitMiddleware(redisClient.Client, cfg.SyncRateLimitPerMin).Handler
	} else {
		rateLimitHandler = middleware.NewRateLimitMiddleware(cfg.SyncRateLimitPerMin).Handler
	}

	cookieDomainSuffix := ""
	if cfg.Verified() {
		cookieDomainSuffix = cfg.TrustedOriginSuffix
	}
	ssoHandler := handler.NewSSOHandler(
		ssoService, cookieDomainSuffix, cfg.SessionTTL(), cfg.Verified(),
	)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
	r.Use(bodyLimitMiddleware.Handler)
	r.Use(securityHeadersMiddleware.Handler)
	r.Use(corsMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"sessions":  sessionStore.Count(),
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(rateLimitHandler)
		r.Mount("/", ssoHandler.Routes())
	})

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Str("mode", cfg.Mode).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
