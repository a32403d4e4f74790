package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"webring/internal/api"
	"webring/internal/config"
	"webring/internal/service"
	"webring/internal/version"
	"webring/internal/web"
)

func serveCommand() *cobra.Command {
	var (
		address string
		port    int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webring HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFrom(cmd)
			if cmd.Flags().Changed("address") {
				cfg.HTTP.Address = address
			}
			if cmd.Flags().Changed("port") {
				cfg.HTTP.Port = port
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVarP(&address, "address", "a", "", "listen address (overrides http.address)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides http.port)")
	return cmd
}

func serve(ctx context.Context, cfg config.Config) error {
	log := zap.L().Named("serve")
	log.Info("starting", zap.String("version", version.Current().String()), zap.String("ring", cfg.Ring.Name))

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, closeFn, err := openService(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	if created, err := svc.EnsureBootstrapAdmin(ctx); err != nil {
		return err
	} else if created {
		log.Info("bootstrap admin created", zap.String("username", cfg.Bootstrap.Username))
	}

	pages, err := web.New(cfg.Ring.Name)
	if err != nil {
		return err
	}
	hsrv := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           api.NewRouter(cfg, svc, pages),
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", hsrv.Addr))
		if err := hsrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return hsrv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		purgeSessions(gctx, svc, cfg.Session.PurgeInterval)
		return nil
	})
	return g.Wait()
}

// purgeSessions deletes ended sessions every interval until ctx ends.
func purgeSessions(ctx context.Context, svc *service.Service, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := svc.PurgeSessions(ctx)
			if err != nil {
				zap.L().Warn("purge sessions", zap.Error(err))
				continue
			}
			if n > 0 {
				zap.L().Debug("purged sessions", zap.Int64("count", n))
			}
		}
	}
}
