package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/02loveslollipop/tswater/internal/logging"
	"github.com/02loveslollipop/tswater/internal/writer"
	"github.com/02loveslollipop/tswater/services/api/config"
	"github.com/02loveslollipop/tswater/services/api/db"
	httpserver "github.com/02loveslollipop/tswater/services/api/http"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("api failed")
	}
	log.Info().Msg("shut down")
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if err := logging.Init(cfg.LogLevel, cfg.LogFormat); err != nil {
		return fmt.Errorf("logging error: %w", err)
	}

	rc, err := cfg.Codec()
	if err != nil {
		return fmt.Errorf("code table error: %w", err)
	}

	store, err := db.Open(ctx, cfg.StoreOptions())
	if err != nil {
		return fmt.Errorf("db connection error (%s): %w", cfg.StoreDriver, err)
	}
	defer store.Close()

	w, err := writer.New(writer.Options{
		Codec:       rc,
		Loader:      store,
		Lock:        writer.NewTableLock(store.Table()),
		Policy:      cfg.Flush,
		BulkTimeout: cfg.BulkTimeout,
		Logger:      logging.Component("flusher"),
	})
	if err != nil {
		return fmt.Errorf("writer error: %w", err)
	}

	srv := httpserver.New(cfg, store, w, rc)
	log.Info().
		Str("addr", cfg.ListenAddr()).
		Str("driver", cfg.StoreDriver).
		Str("table", store.Table()).
		Str("flush_mode", string(cfg.Flush.Mode)).
		Msg("REST API listening")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error { return w.Run(gctx) })
	return g.Wait()
}
