package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/02loveslollipop/tswater/internal/codec"
	"github.com/02loveslollipop/tswater/internal/logging"
	"github.com/02loveslollipop/tswater/internal/models"
	"github.com/02loveslollipop/tswater/internal/writer"
	"github.com/02loveslollipop/tswater/services/api/config"
	"github.com/02loveslollipop/tswater/services/api/db"
)

type ImportCmd struct {
	File  string `arg:"-f,--file,required" help:"CSV file with a stationid,datatime,waterstage,transtype,messagetype,recvdatatime header"`
	Batch int    `arg:"-b,--batch" default:"1000" help:"Rows per bulk load"`
	Quiet bool   `arg:"-q" help:"Do not show a progress bar"`
}

// Execute loads the dump through the writer, one bulk load per batch.
func (c *ImportCmd) Execute(ctx context.Context, cfg config.Config) error {
	if c.Batch <= 0 {
		return errors.New("--batch must be positive")
	}

	rc, err := cfg.Codec()
	if err != nil {
		return err
	}
	samples, err := c.readSamples(rc)
	if err != nil {
		return err
	}

	store, err := db.Open(ctx, cfg.StoreOptions())
	if err != nil {
		return err
	}
	defer store.Close()

	w, err := writer.New(writer.Options{
		Codec:       rc,
		Loader:      store,
		Lock:        writer.NewTableLock(store.Table()),
		Policy:      writer.DefaultPolicy(),
		BulkTimeout: cfg.BulkTimeout,
		Logger:      logging.Component("flusher"),
	})
	if err != nil {
		return err
	}

	return c.load(ctx, w, samples)
}

func (c *ImportCmd) readSamples(rc *codec.RowCodec) ([]models.Sample, error) {
	f, err := os.Open(c.File)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rows []codec.RawRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("read %s: %w", c.File, err)
	}

	samples := make([]models.Sample, len(rows))
	for i, r := range rows {
		if samples[i], err = rc.Decode(r); err != nil {
			// Line 1 is the header.
			return nil, fmt.Errorf("%s line %d: %w", c.File, i+2, err)
		}
	}
	return samples, nil
}

func (c *ImportCmd) load(ctx context.Context, w *writer.Writer, samples []models.Sample) error {
	log := logging.Component("importer")
	start := time.Now()

	var bar interface{ Add(int) error }
	if !c.Quiet {
		bar = NewBar(len(samples), c.File)
	}

	for lo := 0; lo < len(samples); lo += c.Batch {
		if err := ctx.Err(); err != nil {
			return err
		}
		hi := min(lo+c.Batch, len(samples))
		if err := w.AppendBatch(ctx, samples[lo:hi]); err != nil {
			return fmt.Errorf("rows %d-%d: %w", lo+1, hi, err)
		}
		if bar != nil {
			bar.Add(hi - lo)
		}
	}

	stats := w.Stats()
	log.Info().
		Int64("rows", stats.RowsWritten).
		Int64("bulk_loads", stats.Flushes).
		Dur("elapsed", time.Since(start)).
		Msgf("%v/%v rows imported", stats.RowsWritten, len(samples))
	return nil
}
