package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/handler"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/health"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/server"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

func runServe(ctx context.Context, opts *rootOptions) error {
	cfg, logger := opts.cfg, opts.logger
	if ctx == nil {
		ctx = context.Background()
	}

	logger.Info("starting seqgate",
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.String("storage_backend", cfg.Storage.Backend),
		zap.Bool("race_tiers", cfg.Resolve.RaceTiers),
	)

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	var cachePinger health.Pinger
	if a.tierActive {
		cachePinger = a.tier
	}
	handlers := handler.NewHandlers(a.service, a.pool, a.exclude, a.substitute, logger)
	httpServer := server.NewServer(cfg, handlers,
		health.NewHealthChecker(cachePinger, a.store, a.pool, logger), a.registry, logger)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(httpServer.Start)

	g.Go(func() error {
		a.exclude.Run(gctx)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("initiating graceful shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown HTTP server", zap.Error(err))
			return err
		}
		return nil
	})

	err = g.Wait()
	logger.Info("seqgate shutdown complete")
	return err
}
