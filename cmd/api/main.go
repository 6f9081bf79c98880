package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/georgemunganga/vendora/internal/config"
	"github.com/georgemunganga/vendora/internal/database"
	"github.com/georgemunganga/vendora/internal/logging"
	"github.com/georgemunganga/vendora/internal/metrics"
	"github.com/georgemunganga/vendora/internal/modules/auth"
	"github.com/georgemunganga/vendora/internal/modules/vendor"
	"github.com/georgemunganga/vendora/internal/modules/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogPretty).With().Str(logging.Component, "api").Logger()
	if cfg.UsesPlaceholderCredentials() {
		logger.Warn().Msg("GOOGLE_CLIENT_ID/GOOGLE_CLIENT_SECRET not set, Google sign-in will fail")
	}
	if cfg.UsesPlaceholderSecret() {
		logger.Warn().Msg("SESSION_SECRET not set, sessions are signed with the development secret")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	// ── Store ───────────────────────────────────────────────
	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("open store")
	}
	vendorService := vendor.NewService(st.repo, m)

	// ── Sessions ────────────────────────────────────────────
	var sessionOpts []auth.SessionsOption
	if cfg.RedisAddr != "" {
		rdb, err := database.OpenRedis(ctx, database.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("connect redis")
		}
		defer rdb.Close()
		sessionOpts = append(sessionOpts, auth.WithRevocation(auth.NewRedisRevocations(rdb)))
		logger.Info().Str("addr", cfg.RedisAddr).Msg("session revocation enabled")
	}
	sessions, err := auth.NewSessions(cfg.SessionSecret, cfg.SessionMaxAge, sessionOpts...)
	if err != nil {
		logger.Fatal().Err(err).Msg("sessions")
	}

	providers := auth.NewProviders(
		auth.NewOAuthProvider(auth.GoogleConfig(cfg.GoogleClientID, cfg.GoogleClientSecret)),
	)
	authHandler, err := auth.NewHandler(sessions, providers, cfg.BaseURL, cfg.SecureCookies)
	if err != nil {
		logger.Fatal().Err(err).Msg("auth handler")
	}

	// ── Pages ───────────────────────────────────────────────
	links := make([]web.ProviderLink, 0, len(providers))
	for _, p := range providers.Sorted() {
		links = append(links, web.ProviderLink{ID: p.ID(), Name: p.Name()})
	}
	webHandler, err := web.NewHandler(vendor.NewClient(cfg.BaseURL, cfg.APITimeout), links, cfg.SecureCookies)
	if err != nil {
		logger.Fatal().Err(err).Msg("web handler")
	}

	// ── Router ──────────────────────────────────────────────
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(logging.Middleware(logger))
	router.Use(middleware.Recoverer)
	router.Use(m.Middleware)
	router.Use(auth.Session(sessions))
	router.Use(auth.Guard(sessions))

	router.Get("/healthz", healthHandler(st.pinger))
	router.Handle("/metrics", m.Handler())
	vendor.NewHandler(vendorService).RegisterRoutes(router)
	authHandler.RegisterRoutes(router)
	webHandler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Str("store", cfg.StoreDriver).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("listen")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown")
	}
	if err := st.close(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("close store")
	}
}
