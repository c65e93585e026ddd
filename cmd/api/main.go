package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"vectorize/internal/http/handlers"
	httpapi "vectorize/internal/http/httpapi"
	"vectorize/internal/infra"
	"vectorize/internal/metrics"
	mw "vectorize/internal/middleware"
	"vectorize/internal/providers/genai"
	"vectorize/internal/session"
	"vectorize/internal/styles"
)

func main() {
	// optional .env
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	if cfg.GeminiAPIKey == "" {
		logger.Warn().Msg("GEMINI_API_KEY (or API_KEY) is not set; generation requests will fail")
	}

	catalog, err := styles.Load(cfg.StylesFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load style catalog")
	}

	client, err := genai.NewClient(genai.Options{
		APIKey:    cfg.GeminiAPIKey,
		BaseURL:   cfg.GeminiBaseURL,
		Model:     cfg.GeminiModel,
		Transport: cfg.GenAITransport,
		Logger:    infra.Component(logger, "genai"),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create gemini client")
	}

	collector := metrics.NewCollector()
	store := session.NewStore(cfg.SessionTTL, cfg.MaxSessions, catalog.Default(), infra.Component(logger, "session"))
	svc := session.NewService(session.Options{
		Store:     store,
		Catalog:   catalog,
		Generator: client,
		MaxBytes:  cfg.MaxFileSizeBytes(),
		Metrics:   collector,
		Logger:    infra.Component(logger, "session"),
	})

	app := handlers.NewApp(svc, catalog, cfg.MaxFileSizeBytes(), infra.Component(logger, "http"))
	app.SecureCookies = cfg.AppEnv == "production"

	trusted, err := mw.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid TRUSTED_PROXIES")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	router := httpapi.NewRouter(ctx, app, httpapi.Options{
		Logger:            logger,
		Metrics:           collector,
		AllowedOrigins:    cfg.CORSAllowedOrigins,
		TrustedProxies:    trusted,
		GeneratePerMinute: cfg.RateLimitPerMin,
	})
	server := infra.NewHTTPServer(cfg, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().
			Str("addr", server.Addr()).
			Str("model", client.Model()).
			Str("transport", cfg.GenAITransport).
			Msg("API listening")
		return server.Start()
	})
	g.Go(func() error {
		return store.Run(gctx, time.Minute)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server stopped with error")
		os.Exit(1)
	}
	logger.Info().Msg("server stopped")
}
