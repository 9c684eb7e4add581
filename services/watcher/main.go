package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/02loveslollipop/tswater/internal/codec"
	"github.com/02loveslollipop/tswater/internal/logging"
	"github.com/02loveslollipop/tswater/internal/writer"
	apidb "github.com/02loveslollipop/tswater/services/api/db"
	"github.com/02loveslollipop/tswater/services/watcher/internal/config"
	"github.com/02loveslollipop/tswater/services/watcher/internal/db"
	"github.com/02loveslollipop/tswater/services/watcher/internal/siata"
	"github.com/02loveslollipop/tswater/services/watcher/internal/utils"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("watcher failed")
	}
}

type watcher struct {
	cfg    config.Config
	client *http.Client
	store  db.LatestSource
	codec  *codec.RowCodec
	writer *writer.Writer
	log    zerolog.Logger
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := logging.Init(cfg.LogLevel, cfg.LogFormat); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rc, err := cfg.Codec()
	if err != nil {
		return err
	}

	store, err := apidb.Open(ctx, cfg.StoreOptions())
	if err != nil {
		return err
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
		return err
	}

	wt := &watcher{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.RequestTimeout},
		store:  store,
		codec:  rc,
		writer: w,
		log:    logging.Component("watcher"),
	}

	if cfg.Once {
		if err := wt.poll(ctx); err != nil {
			return err
		}
		_, err := w.Flush(ctx)
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.Run(gctx) })
	g.Go(func() error { return wt.loop(gctx) })
	return g.Wait()
}

// loop polls the feed every interval until ctx is done. Poll failures are
// logged and retried on the next tick.
func (wt *watcher) loop(ctx context.Context) error {
	wt.log.Info().Str("feed", wt.cfg.FeedURL).Dur("interval", wt.cfg.Interval).Msg("watching feed")

	ticker := time.NewTicker(wt.cfg.Interval)
	defer ticker.Stop()

	for {
		if err := wt.poll(ctx); err != nil && ctx.Err() == nil {
			wt.log.Error().Err(err).Msg("poll failed")
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (wt *watcher) poll(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, wt.cfg.RequestTimeout+wt.cfg.BulkTimeout)
	defer cancel()

	retrievalTS := time.Now().UTC().Truncate(time.Second)

	payload, err := siata.FetchLevels(ctx, wt.client, wt.cfg.FeedURL)
	if err != nil {
		return err
	}
	wt.log.Info().Int("stations", len(payload.Stations)).Str("network", payload.Network).Msg("fetched feed")

	samples, skipped := utils.BuildSamples(payload.Stations, retrievalTS, utils.Options{
		StationPrefix: wt.cfg.StationPrefix,
		Channel:       wt.cfg.Channel,
		Message:       wt.cfg.Message,
	})
	if len(skipped) > 0 {
		wt.log.Warn().Strs("stations", skipped).Msg("skipped stations with unparsable timestamps")
	}

	last, err := db.FetchLastCollected(ctx, wt.store, wt.codec)
	if err != nil {
		return err
	}
	pending := utils.FilterNewSamples(samples, last)

	if len(pending) == 0 {
		wt.log.Info().Time("retrieval", retrievalTS).Msg("no new samples")
		return nil
	}

	if wt.cfg.DryRun {
		for _, s := range pending {
			wt.log.Info().
				Str("station_id", s.StationID).
				Time("ts", s.TimeCollected).
				Str("value", utils.ValueString(s.WaterStage)).
				Msg("dry-run: would append")
		}
		return nil
	}

	if err := wt.writer.AppendBatch(ctx, pending); err != nil {
		return err
	}
	wt.log.Info().Int("samples", len(pending)).Msg("appended samples")
	return nil
}
