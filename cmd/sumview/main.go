package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/GitHub-HackDay/sumview/internal/config"
	dbRedis "github.com/GitHub-HackDay/sumview/internal/db/redis"
	"github.com/GitHub-HackDay/sumview/internal/domain/resource"
	logpkg "github.com/GitHub-HackDay/sumview/internal/logger"
	"github.com/GitHub-HackDay/sumview/internal/media"
	"github.com/GitHub-HackDay/sumview/internal/metrics"
	indexrepo "github.com/GitHub-HackDay/sumview/internal/repository/index"
	recordingrepo "github.com/GitHub-HackDay/sumview/internal/repository/recording"
	chiTransport "github.com/GitHub-HackDay/sumview/internal/transport/chi"
	openaiTransport "github.com/GitHub-HackDay/sumview/internal/transport/openai"
	healthuc "github.com/GitHub-HackDay/sumview/internal/usecase/health"
	pipelineuc "github.com/GitHub-HackDay/sumview/internal/usecase/pipeline"
	pooluc "github.com/GitHub-HackDay/sumview/internal/usecase/pool"
	"github.com/GitHub-HackDay/sumview/internal/usecase/progress"
	searchuc "github.com/GitHub-HackDay/sumview/internal/usecase/search"
	"github.com/GitHub-HackDay/sumview/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting sumview API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterCoreMetrics()
	metrics.RegisterProviderMetrics()

	// Provider client and the loader that provisions pooled units
	providerCfg := &openaiTransport.Config{
		APIKey:         cfg.OpenAI.APIKey,
		BaseURL:        cfg.OpenAI.BaseURL,
		ChatModel:      cfg.OpenAI.ChatModel,
		WhisperModel:   cfg.OpenAI.WhisperModel,
		EmbeddingModel: cfg.OpenAI.EmbeddingModel,
		Dimensions:     cfg.OpenAI.Dimensions,
		MaxRetries:     cfg.OpenAI.MaxRetries,
		Logger:         logger,
	}
	client := openaiTransport.NewClient(providerCfg)
	loader := openaiTransport.NewModelLoader(client, providerCfg)

	tier, err := resource.ParseTier(cfg.Pool.Tier)
	if err != nil {
		logger.Fatal("Invalid pool tier", zap.String("tier", cfg.Pool.Tier), zap.Error(err))
	}

	unitPool := pooluc.New(loader, pooluc.Options{
		Limits:       kindLimits(cfg.Pool.Limits),
		DefaultLimit: cfg.Pool.DefaultLimit,
		Logger:       logger,
	})
	defer unitPool.Close()

	evictorCtx, stopEvictor := context.WithCancel(ctx)
	defer stopEvictor()
	if cfg.Pool.MaxIdleSec > 0 {
		go unitPool.RunEvictor(evictorCtx,
			time.Duration(cfg.Pool.SweepSec)*time.Second,
			time.Duration(cfg.Pool.MaxIdleSec)*time.Second,
		)
		logger.Info("Idle unit eviction enabled",
			zap.Int("max_idle_sec", cfg.Pool.MaxIdleSec),
			zap.Int("sweep_sec", cfg.Pool.SweepSec),
		)
	}

	// Repositories
	embedder := &pooledEmbedder{
		pool: unitPool,
		key:  resource.MustKey(resource.KindEmbedder, tier),
	}
	recRepo := recordingrepo.New(store, cfg.Storage.KeyPrefix)
	idxRepo := indexrepo.New(store, embedder, cfg.Storage.KeyPrefix, cfg.OpenAI.Dimensions)

	if err := idxRepo.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to create segment index", zap.Error(err))
	}

	// Pipeline stages in execution order
	mediaStore := media.NewStore(cfg.Storage.UploadDir, logger)
	stages := []pipelineuc.Stage{
		&pipelineuc.ExtractStage{Extractor: mediaStore},
		&pipelineuc.TranscribeStage{Pool: unitPool, Key: resource.MustKey(resource.KindTranscriber, tier)},
		&pipelineuc.SummarizeStage{Pool: unitPool, Key: resource.MustKey(resource.KindSummarizer, tier)},
		&pipelineuc.TestStage{Pool: unitPool, Key: resource.MustKey(resource.KindGenerator, tier)},
		&pipelineuc.IndexStage{Indexer: idxRepo},
	}

	hub := progress.NewHub()
	coordinator := pipelineuc.New(stages, hub, recRepo, pipelineuc.Options{
		DefaultWeights:  cfg.Pipeline.Weights,
		MinPublishDelta: cfg.Pipeline.MinPublishDelta,
		StageTimeout:    time.Duration(cfg.Pipeline.StageTimeoutSec) * time.Second,
		Logger:          logger,
	})

	searchSvc := searchuc.New(idxRepo, idxRepo, searchuc.Options{
		Alpha:           cfg.Search.Alpha,
		Beta:            cfg.Search.Beta,
		CandidateFactor: cfg.Search.CandidateFactor,
		Logger:          logger,
	})

	healthSvc := healthuc.New(store, client)

	server := chiTransport.NewServer(coordinator, searchSvc, recRepo, mediaStore, hub, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:        addr,
		Handler:     r,
		ReadTimeout: time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		// WriteTimeout stays unset: SSE streams are long-lived.
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// kindLimits converts the config limit table into typed resource kinds.
func kindLimits(limits map[string]int) map[resource.Kind]int {
	out := make(map[resource.Kind]int, len(limits))
	for name, n := range limits {
		out[resource.Kind(name)] = n
	}
	return out
}

// pooledEmbedder checks an embedder unit out of the pool per call, so
// embedding shares the same admission control as the pipeline stages.
type pooledEmbedder struct {
	pool *pooluc.Pool
	key  resource.Key
}

func (p *pooledEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	h, err := p.pool.Acquire(ctx, p.key)
	if err != nil {
		return nil, err
	}
	defer p.pool.Release(h)

	emb, ok := h.Unit().(indexrepo.Embedder)
	if !ok {
		return nil, fmt.Errorf("unit %s does not implement embedding", p.key)
	}
	return emb.Embed(ctx, text)
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
