package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/02loveslollipop/tswater/internal/codec"
	"github.com/02loveslollipop/tswater/internal/logging"
	"github.com/02loveslollipop/tswater/internal/models"
	"github.com/02loveslollipop/tswater/internal/paging"
	"github.com/02loveslollipop/tswater/services/api/config"
	"github.com/02loveslollipop/tswater/services/api/db"
)

type ExportCmd struct {
	Station string     `arg:"-s,--station,required" help:"Station id"`
	From    *Timestamp `arg:"-f,--from,required" help:"Start of the range (inclusive): now, YYYY-MM-DD or RFC3339"`
	To      *Timestamp `arg:"-t,--to" help:"End of the range (inclusive), defaults to now"`
	Align   bool       `arg:"--align" help:"Only samples collected on the hour"`
	Out     string     `arg:"-o,--out" default:"-" help:"Output file, - for stdout"`
	Quiet   bool       `arg:"-q" help:"Do not show a progress bar"`
}

func (c *ExportCmd) scope() (models.FilterScope, error) {
	scope := models.FilterScope{
		StationID:   c.Station,
		Start:       *c.From.Inner(),
		End:         time.Now().UTC(),
		AlignToHour: c.Align,
	}
	if to := c.To.Inner(); to != nil {
		scope.End = *to
	}
	if scope.Start.After(scope.End) {
		return scope, errors.New("--from is after --to")
	}
	return scope, nil
}

// Execute pages through the scope window by window and writes every sample.
func (c *ExportCmd) Execute(ctx context.Context, cfg config.Config) error {
	scope, err := c.scope()
	if err != nil {
		return err
	}
	rc, err := cfg.Codec()
	if err != nil {
		return err
	}

	store, err := db.Open(ctx, cfg.StoreOptions())
	if err != nil {
		return err
	}
	defer store.Close()

	sess, err := paging.NewSession(paging.Options{
		Sizes:      cfg.Paging,
		Codec:      rc,
		Source:     store,
		CacheLimit: 1,
		Logger:     logging.Component("paging"),
	})
	if err != nil {
		return err
	}
	sess.SetFilter(scope)

	var out io.Writer = os.Stdout
	if c.Out != "-" {
		f, err := os.Create(c.Out)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	n, err := c.write(ctx, sess, rc, out)
	if err != nil {
		return err
	}
	log := logging.Component("exporter")
	log.Info().Str("station_id", c.Station).Int("rows", n).Msg("export done")
	return nil
}

func (c *ExportCmd) write(ctx context.Context, sess *paging.FilterSession, rc *codec.RowCodec, out io.Writer) (int, error) {
	pages, err := sess.PageCount(ctx)
	if err != nil {
		return 0, err
	}

	var bar interface{ Add(int) error }
	if !c.Quiet {
		bar = NewBar(int(pages), "export "+c.Station)
	}

	csvw := gocsv.DefaultCSVWriter(out)
	written := 0
	for page := 1; ; page++ {
		samples, err := sess.GetPage(ctx, page)
		if err != nil {
			return written, err
		}
		if len(samples) == 0 {
			break
		}

		rows := rc.EncodeAll(samples)
		if written == 0 {
			err = gocsv.MarshalCSV(rows, csvw)
		} else {
			err = gocsv.MarshalCSVWithoutHeaders(rows, csvw)
		}
		if err != nil {
			return written, fmt.Errorf("write page %d: %w", page, err)
		}
		written += len(rows)
		if bar != nil {
			bar.Add(1)
		}
	}

	if written == 0 {
		// Header only, so the file can be imported back as is.
		if err := gocsv.MarshalCSV([]codec.RawRow{}, csvw); err != nil {
			return 0, err
		}
	}
	csvw.Flush()
	return written, csvw.Error()
}
