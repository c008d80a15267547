package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	redisadapter "github.com/corrigohq/corrigo/internal/adapters/redis"
	"github.com/corrigohq/corrigo/internal/bootstrap"
)

func main() {
	ctx := context.Background()
	logger := bootstrap.InitLogger()
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "starting corrigo",
		"auth_mode", cfg.Auth.Mode,
		"dev", cfg.IsDev,
		"addr", cfg.HTTP.Addr,
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, err := bootstrap.ConnectRedis(ctx, cfg.Redis, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := redisClient.Close(); cerr != nil {
			logger.ErrorContext(ctx, "close redis failed", "error", cerr)
		}
	}()

	cache := redisadapter.NewIdentityCacheWithKey(redisClient, cfg.Redis.SessionKey)
	core, err := bootstrap.BuildSessionCore(cfg, cache, logger)
	if err != nil {
		return err
	}
	defer core.Close()

	// Surface a restored session in the log before serving; provider
	// confirmation arrives through the push stream once requests flow.
	if identity := core.Store.Restore(ctx); identity != nil {
		logger.InfoContext(ctx, "restored persisted session", "email", identity.Email)
	}

	server := bootstrap.NewHTTPServer(cfg.HTTP, core, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.InfoContext(gctx, "http server listening", "addr", server.Addr)
		if serr := server.ListenAndServe(); serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			return serr
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		bootstrap.ShutdownHTTPServer(context.Background(), server, logger)
		return nil
	})
	return g.Wait()
}
