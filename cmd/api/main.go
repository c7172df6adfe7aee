package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"brandstudio/internal/adapter/cache"
	"brandstudio/internal/adapter/repo"
	"brandstudio/internal/domain"
	"brandstudio/internal/http/handlers"
	httpapi "brandstudio/internal/http/httpapi"
	"brandstudio/internal/imageproc"
	"brandstudio/internal/infra"
	"brandstudio/internal/infra/credentials"
	"brandstudio/internal/pipeline"
	"brandstudio/internal/providers/genai"
	genimage "brandstudio/internal/providers/image"
	"brandstudio/internal/providers/qwen"
	"brandstudio/internal/providers/removebg"
	"brandstudio/internal/rating"
	"brandstudio/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()
	runner := infra.NewSQLRunner(dbpool, logger)

	keys := credentials.NewStore(runner)
	resolve := func(provider, configured string) string {
		key, err := keys.Resolve(ctx, provider, configured)
		if err != nil {
			logger.Warn().Err(err).Str("provider", provider).Msg("failed to load api key from store")
		}
		return key
	}

	qwenClient, err := qwen.NewClient(qwen.Options{
		APIKey:  resolve(credentials.ProviderQwen, cfg.QwenAPIKey),
		BaseURL: cfg.QwenBaseURL,
		Model:   cfg.QwenModel,
		Logger:  &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure qwen client")
	}
	geminiClient, err := genai.NewClient(genai.Options{
		APIKey:  resolve(credentials.ProviderGemini, cfg.GeminiAPIKey),
		BaseURL: cfg.GeminiBaseURL,
		Model:   cfg.GeminiModel,
		Logger:  &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure gemini client")
	}

	costs := genimage.DefaultCostTable().
		With(genimage.CostKeyRemoveBG, cfg.CostRemoveBGUSD).
		With(domain.BackendQwen, cfg.CostQwenUSD).
		With(domain.BackendGemini, cfg.CostGeminiUSD)

	orchestrator := genimage.NewOrchestrator(genimage.Options{
		Primary:  genimage.NewQwenBackend(qwenClient),
		Fallback: genimage.NewGeminiBackend(geminiClient),
		Costs:    costs,
		Timeout:  cfg.GenerationTimeout,
		Logger:   &logger,
	})
	if !orchestrator.Available() {
		logger.Warn().Msg("no generation backend has credentials, generate requests will fail with model_unavailable")
	} else {
		logger.Info().Interface("backends", orchestrator.Backends()).Msg("generation backends configured")
	}

	removerOpts := imageproc.RemoverOptions{
		Threshold:   cfg.RemovalQualityThreshold,
		Timeout:     cfg.MattingTimeout,
		PaidCostUSD: costs.Lookup(genimage.CostKeyRemoveBG),
		Logger:      &logger,
	}
	if bgKey := resolve(credentials.ProviderRemoveBG, cfg.RemoveBGKey); bgKey != "" {
		matter, err := removebg.NewClient(removebg.Options{APIKey: bgKey, BaseURL: cfg.RemoveBGURL, Logger: &logger})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure remove.bg client")
		}
		removerOpts.Matter = matter
	}

	fileStore, err := storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure storage")
	}
	renderer, err := imageproc.NewTextRenderer()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load overlay fonts")
	}

	ratings := repo.NewRatingRepository(runner)
	checks := map[string]handlers.HealthCheck{"db": dbpool.Ping}
	deps := pipeline.Deps{
		Synthesizer:      orchestrator,
		Remover:          imageproc.NewBackgroundRemover(removerOpts),
		Compositor:       imageproc.NewCompositor(),
		Overlay:          renderer,
		Rater:            rating.NewRater(),
		RatingQueue:      ratings,
		Store:            fileStore,
		Costs:            repo.NewUsageRepository(runner),
		CacheTTL:         cfg.ArtifactCacheTTL,
		SynthesisTimeout: 2*cfg.GenerationTimeout + 10*time.Second,
		Logger:           &logger,
	}
	if cfg.RedisURL != "" {
		artifactCache, err := cache.New(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure artifact cache")
		}
		defer artifactCache.Close()
		deps.Cache = artifactCache
		checks["redis"] = artifactCache.Ping
	}

	pl, err := pipeline.New(deps)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build pipeline")
	}
	defer pl.Wait()

	app := &handlers.App{
		Pipeline:       pl,
		Brands:         repo.NewBrandRepository(runner),
		Ratings:        ratings,
		Rater:          deps.Rater,
		Store:          fileStore,
		Checks:         checks,
		Logger:         logger,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}
	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:          logger,
		AllowedOrigins:  cfg.AllowedOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		StaticDir:       fileStore.BasePath(),
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
