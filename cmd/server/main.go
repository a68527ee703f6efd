// Command server starts the reading-comprehension grading HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hkdse-ai/reading-grader/internal/adapter/ai/openrouter"
	"github.com/hkdse-ai/reading-grader/internal/adapter/httpserver"
	"github.com/hkdse-ai/reading-grader/internal/adapter/observability"
	"github.com/hkdse-ai/reading-grader/internal/adapter/store/memstore"
	"github.com/hkdse-ai/reading-grader/internal/adapter/store/redisstore"
	"github.com/hkdse-ai/reading-grader/internal/app"
	"github.com/hkdse-ai/reading-grader/internal/config"
	"github.com/hkdse-ai/reading-grader/internal/content"
	"github.com/hkdse-ai/reading-grader/internal/domain"
	"github.com/hkdse-ai/reading-grader/internal/grader"
	"github.com/hkdse-ai/reading-grader/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	observability.InitMetrics()

	exam, err := content.Load(cfg.ContentDir)
	if err != nil {
		slog.Error("failed to load exam content",
			slog.String("dir", cfg.ContentDir),
			slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("exam content loaded",
		slog.String("title", exam.Passage.Title),
		slog.Int("questions", len(exam.Questions)),
		slog.Int("total_marks", exam.TotalMarks()))

	keywords := grader.DefaultKeywords()
	if cfg.KeywordsFile != "" {
		keywords, err = grader.LoadKeywords(cfg.KeywordsFile)
		if err != nil {
			slog.Error("failed to load keyword config",
				slog.String("file", cfg.KeywordsFile),
				slog.Any("error", err))
			os.Exit(1)
		}
		slog.Info("keyword config loaded", slog.String("file", cfg.KeywordsFile))
	}

	ctx := context.Background()
	var store domain.SubmissionStore
	if cfg.UseRedis() {
		rs, err := redisstore.Dial(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			slog.Error("redis connect failed", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() { _ = rs.Close() }()
		store = rs
		slog.Info("using redis submission store", slog.String("addr", cfg.RedisAddr))
	} else {
		store = memstore.New()
		slog.Warn("REDIS_ADDR not set, using in-memory submission store")
	}

	aiClient := openrouter.New(cfg)
	pipeline := grader.NewPipeline(keywords, logger)
	submissions := usecase.NewSubmissionService(cfg, store, aiClient, exam, pipeline, logger)
	chat := usecase.NewChatService(aiClient, logger)

	srv := httpserver.NewServer(cfg, exam, submissions, chat, store.Ping)
	handler := app.BuildRouter(cfg, srv)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	_ = srvHTTP.Shutdown(shutdownCtx)

	// let in-flight gradings finish before dropping the store
	submissions.Wait()
}
