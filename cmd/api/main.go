package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zhouzirui/lavajato/backend/internal/analysis/keyword"
	"github.com/zhouzirui/lavajato/backend/internal/config"
	"github.com/zhouzirui/lavajato/backend/internal/handler"
	"github.com/zhouzirui/lavajato/backend/internal/model/rulebook"
	"github.com/zhouzirui/lavajato/backend/internal/observability"
	"github.com/zhouzirui/lavajato/backend/internal/service/chat"
	"github.com/zhouzirui/lavajato/backend/internal/service/notify"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Log.Level)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	if envErr != nil {
		logger.Info("no .env file loaded, using system environment only", zap.Error(envErr))
	}

	table, err := rulebook.Load(cfg.Chat.RulesFile)
	if err != nil {
		logger.Fatal("failed to load keyword rules", zap.Error(err))
	}
	logger.Info("keyword rules loaded",
		zap.Int("rules", table.Len()),
		zap.String("source", rulesSource(cfg.Chat.RulesFile)))

	chatService := chat.NewService(keyword.NewResolver(table), chat.Config{
		ReplyDelay:      cfg.Chat.ReplyDelay,
		OpenScrollDelay: cfg.Chat.OpenScrollDelay,
		IdleTTL:         cfg.Chat.SessionIdleTTL,
		Notifier:        notify.NewLogNotifier(logger),
		Logger:          logger,
	})
	defer chatService.Shutdown()

	router := handler.NewRouter(table, chatService, handler.RouterOptions{
		AllowedOrigin: cfg.Server.AllowedOrigin,
		Logger:        logger,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return chatService.RunJanitor(gctx, cfg.Chat.SweepInterval)
	})
	g.Go(func() error {
		logger.Info("LavaJato chat backend listening", zap.String("addr", cfg.Server.Addr))
		return runServer(gctx, srv)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func rulesSource(path string) string {
	if path == "" {
		return "embedded"
	}
	return path
}
