package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"webring/internal/auth"
	"webring/internal/config"
	"webring/internal/db"
	"webring/internal/notify"
	"webring/internal/service"
	"webring/internal/store"
	"webring/internal/verify"
)

// openService connects to the database, applies the schema and wires the
// service. The returned func releases everything it opened.
func openService(ctx context.Context, cfg config.Config) (*service.Service, func(), error) {
	conn, err := db.Open(ctx, cfg.Database.URL, db.PoolOptions{
		MinConns:       cfg.Database.MinConnections,
		MaxConns:       cfg.Database.MaxConnections,
		AcquireTimeout: cfg.Database.AcquireTimeout,
		IdleTimeout:    cfg.Database.IdleTimeout,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.ApplySchema(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("apply schema: %w", err)
	}

	hasher := auth.NewHasher(cfg.Auth.HashWorkers)
	st := store.New(conn, store.WithAcquireTimeout(cfg.Database.AcquireTimeout))
	svc := service.New(cfg, st, hasher, verify.NewVerifier(cfg.Join), notify.NewNotifier(cfg.Notify))

	closeFn := func() {
		hasher.Close()
		if err := conn.Close(); err != nil {
			zap.L().Warn("close database", zap.Error(err))
		}
	}
	return svc, closeFn, nil
}
