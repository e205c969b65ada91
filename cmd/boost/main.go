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

	"github.com/kailas-cloud/boost/internal/config"
	dbRedis "github.com/kailas-cloud/boost/internal/db/redis"
	logpkg "github.com/kailas-cloud/boost/internal/logger"
	"github.com/kailas-cloud/boost/internal/metrics"
	"github.com/kailas-cloud/boost/internal/repository/counter"
	"github.com/kailas-cloud/boost/internal/tokenizer"
	chiTransport "github.com/kailas-cloud/boost/internal/transport/chi"
	openaiLLM "github.com/kailas-cloud/boost/internal/transport/openai"
	boostuc "github.com/kailas-cloud/boost/internal/usecase/boost"
	healthuc "github.com/kailas-cloud/boost/internal/usecase/health"
	"github.com/kailas-cloud/boost/internal/usecase/ratelimit"
	usageuc "github.com/kailas-cloud/boost/internal/usecase/usage"
	"github.com/kailas-cloud/boost/internal/version"
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

	logger.Info("Starting boost API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("counter_store", dbRedis.RedactURL(cfg.CounterStore.URL)),
		zap.String("store_failure_policy", cfg.Quota.StoreFailurePolicy),
		zap.String("llm_model", cfg.LLM.Model),
	)

	// Register metrics explicitly (no init())
	metrics.RegisterHTTPMetrics()
	metrics.RegisterQuotaMetrics()
	metrics.RegisterLLMMetrics()

	// Counter store: a failed connect leaves the service running without quotas.
	ctx := context.Background()
	counters, closeStore := connectCounterStore(ctx, cfg.CounterStore, logger)
	defer closeStore()

	// Use case services
	gate := ratelimit.New(counters, logger).
		WithPolicy(ratelimit.StoreFailurePolicy(cfg.Quota.StoreFailurePolicy))
	usageSvc := usageuc.New(counters, logger)

	tokens, err := tokenizer.New(cfg.LLM.Model)
	if err != nil {
		logger.Fatal("Failed to load tokenizer", zap.String("model", cfg.LLM.Model), zap.Error(err))
	}

	completer := openaiLLM.NewCompleter(&openaiLLM.Config{
		APIKey:       cfg.LLM.APIKey,
		BaseURL:      cfg.LLM.BaseURL,
		Model:        cfg.LLM.Model,
		SystemPrompt: cfg.LLM.SystemPrompt,
		MaxTokens:    cfg.LLM.MaxTokens,
		Temperature:  cfg.LLM.Temperature,
		Timeout:      time.Duration(cfg.LLM.TimeoutSec) * time.Second,
		Logger:       logger,
	})

	boostSvc := boostuc.New(completer, tokens, usageSvc, logger)
	healthSvc := healthuc.New(counters, completer)

	server := chiTransport.NewServer(gate, boostSvc, usageSvc, healthSvc, logger).
		WithMaxBodyBytes(cfg.HTTP.MaxBodyBytes)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	if cfg.HTTP.TrustProxyHeaders {
		r.Use(chiMiddleware.RealIP)
	}
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
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

// connectCounterStore dials the counter store once. On failure it returns a
// permanently unavailable repository so the gate fails open.
func connectCounterStore(
	ctx context.Context, cfg config.CounterStoreConfig, logger *zap.Logger,
) (*counter.Repo, func()) {
	store, err := dbRedis.Connect(ctx, dbRedis.Config{
		URL:            cfg.URL,
		ConnectTimeout: time.Duration(cfg.ConnectTimeoutMs) * time.Millisecond,
	})
	if err != nil {
		metrics.CounterStoreAvailable.Set(0)
		logger.Warn("Counter store unavailable, quotas will not be enforced",
			zap.String("url", dbRedis.RedactURL(cfg.URL)),
			zap.Error(err),
		)
		return counter.Unavailable(), func() {}
	}

	metrics.CounterStoreAvailable.Set(1)
	logger.Info("Connected to counter store", zap.String("url", dbRedis.RedactURL(cfg.URL)))
	repo := counter.New(store).WithOpTimeout(time.Duration(cfg.OpTimeoutMs) * time.Millisecond)
	return repo, store.Close
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
						"error": "internal error",
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

			// chi.middleware.RequestID already placed request_id in context
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
				zap.String("client", chiTransport.ClientIP(r)),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
