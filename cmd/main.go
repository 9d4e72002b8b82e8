package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/yogaaditandanu/medical-image-analysis/docs"
	"github.com/yogaaditandanu/medical-image-analysis/internal/cache"
	"github.com/yogaaditandanu/medical-image-analysis/internal/config"
	"github.com/yogaaditandanu/medical-image-analysis/internal/handler"
	"github.com/yogaaditandanu/medical-image-analysis/internal/metrics"
	"github.com/yogaaditandanu/medical-image-analysis/internal/model"
	"github.com/yogaaditandanu/medical-image-analysis/internal/service"
	"github.com/yogaaditandanu/medical-image-analysis/internal/session"
	"github.com/yogaaditandanu/medical-image-analysis/internal/staging"
)

// @title Medical Image Analysis API
// @version 1.0
// @description Educational AI analysis of X-ray, CT, MRI and ultrasound images.
// @BasePath /
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		if errors.Is(err, config.ErrMissingAPIKey) {
			log.Fatalf("❌ %v: add it to the environment or the .env file", err)
		}
		log.Fatalf("config error: %v", err)
	}

	logger := log.Default()

	var client model.Client
	switch cfg.Model.Provider {
	case config.ProviderOpenAI:
		client = model.NewOpenAIClient(cfg.OpenAI)
		logger.Printf("using openai-compatible model %s at %s\n", cfg.OpenAI.Model, cfg.OpenAI.BaseURL)
	default:
		gemini, err := model.NewGeminiClient(ctx, cfg.Gemini)
		if err != nil {
			logger.Fatalf("model client error: %v", err)
		}
		defer gemini.Close()
		client = gemini
		logger.Printf("using gemini model %s\n", cfg.Gemini.Model)
	}

	var store session.Store = session.NewMemoryStore(cfg.Session.TTL)
	if cfg.Session.Store == config.StoreRedis {
		redisClient := cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		defer redisClient.Close()
		redisCache := cache.NewRedisCache(redisClient, "medimage:session:", cfg.Session.TTL)
		if err := redisCache.Ping(ctx); err != nil {
			logger.Fatalf("redis error: %v", err)
		}
		store = session.NewKVStore(redisCache)
		logger.Println("set redis as session store")
	}

	analysisService := service.NewAnalysisService(logger, client, staging.NewStager(cfg.StagingPath), store)

	ui, err := handler.NewUIHandler(logger, analysisService, cfg.Server.MaxUploadSize, cfg.Session.TTL)
	if err != nil {
		logger.Fatalf("ui error: %v", err)
	}
	api := handler.NewAPIHandler(analysisService, cfg.Server.MaxUploadSize)

	r := chi.NewRouter()
	r.Use([]func(http.Handler) http.Handler{
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		metrics.Middleware,
	}...)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Group(func(r chi.Router) {
		r.Use(
			middleware.Throttle(cfg.Server.ThrottleLimit),
			middleware.Timeout(cfg.Server.Timeout),
		)
		r.With(handler.SessionMiddleware(cfg.Session.TTL)).Group(ui.Register)
		r.Post("/api/v1/analyze", api.Analyze)
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		logger.Printf("server started :%s\n", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("listen error: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("server forced to shutdown: %v", err)
	}
	logger.Println("server stopped")
}
