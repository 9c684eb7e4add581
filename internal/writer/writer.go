package writer

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/02loveslollipop/tswater/internal/codec"
	"github.com/02loveslollipop/tswater/internal/models"
)

// Mode selects when appended samples are flushed.
type Mode string

const (
	// ModeImmediate flushes on every Append/AppendBatch call.
	ModeImmediate Mode = "immediate"
	// ModeBatched flushes when MaxRows rows are buffered or every Interval.
	ModeBatched Mode = "batched"
)

// ErrMissingCode rejects a sample whose transport or message type has no
// stored code. Such a row would violate the table's NOT NULL columns and
// fail the whole bulk load it travels in.
var ErrMissingCode = errors.New("sample has no transport or message code")

// Policy configures flushing.
type Policy struct {
	Mode     Mode
	MaxRows  int
	Interval time.Duration
}

// DefaultPolicy flushes on every call.
func DefaultPolicy() Policy {
	return Policy{Mode: ModeImmediate, MaxRows: 1000, Interval: time.Minute}
}

// Validate checks the policy for the selected mode.
func (p Policy) Validate() error {
	switch p.Mode {
	case ModeImmediate:
		return nil
	case ModeBatched:
		if p.MaxRows <= 0 {
			return fmt.Errorf("batched flush needs a positive row threshold, got %d", p.MaxRows)
		}
		if p.Interval <= 0 {
			return fmt.Errorf("batched flush needs a positive interval, got %s", p.Interval)
		}
		return nil
	default:
		return fmt.Errorf("unknown flush mode %q", p.Mode)
	}
}

// Options wires a Writer.
type Options struct {
	Codec       *codec.RowCodec
	Loader      BulkLoader
	Lock        *TableLock
	Policy      Policy
	BulkTimeout time.Duration
	Logger      zerolog.Logger
}

// Stats is a snapshot of writer counters.
type Stats struct {
	RowsAppended int64 `json:"rows_appended"`
	RowsWritten  int64 `json:"rows_written"`
	RowsLost     int64 `json:"rows_lost"`
	Flushes      int64 `json:"flushes"`
	FlushErrors  int64 `json:"flush_errors"`
	Buffered     int   `json:"buffered"`
}

type counters struct {
	appended    atomic.Int64
	written     atomic.Int64
	lost        atomic.Int64
	flushes     atomic.Int64
	flushErrors atomic.Int64
}

// Writer is the write-side entry point: it encodes samples into the buffer
// and flushes according to its policy.
type Writer struct {
	codec   *codec.RowCodec
	buf     *WriteBuffer
	flusher *BulkFlusher
	policy  Policy
	log     zerolog.Logger

	running atomic.Bool
	stats   counters
}

// New creates a writer with its own buffer.
func New(opts Options) (*Writer, error) {
	if opts.Loader == nil {
		return nil, errors.New("writer needs a bulk loader")
	}
	if opts.Lock == nil {
		return nil, errors.New("writer needs a table lock")
	}
	if opts.Codec == nil {
		opts.Codec = codec.New("", nil)
	}
	if opts.Policy.Mode == "" {
		opts.Policy = DefaultPolicy()
	}
	if err := opts.Policy.Validate(); err != nil {
		return nil, err
	}

	buf := NewBuffer()
	return &Writer{
		codec:   opts.Codec,
		buf:     buf,
		flusher: NewFlusher(buf, opts.Lock, opts.Loader, opts.BulkTimeout, opts.Logger),
		policy:  opts.Policy,
		log:     opts.Logger,
	}, nil
}

// Append buffers one sample. In immediate mode, and in batched mode once the
// row threshold is reached, it flushes before returning and reports a failed
// bulk load as *BulkWriteError.
func (w *Writer) Append(ctx context.Context, s models.Sample) error {
	row := w.codec.Encode(s)
	if err := checkCodes(row); err != nil {
		return err
	}
	n := w.buf.Append(row)
	w.stats.appended.Add(1)
	return w.afterAppend(ctx, n)
}

// AppendBatch buffers all samples atomically, then flushes like Append.
func (w *Writer) AppendBatch(ctx context.Context, samples []models.Sample) error {
	if len(samples) == 0 {
		return nil
	}
	rows := w.codec.EncodeAll(samples)
	for i := range rows {
		if err := checkCodes(rows[i]); err != nil {
			return fmt.Errorf("sample %d: %w", i, err)
		}
	}
	n := w.buf.AppendBatch(rows)
	w.stats.appended.Add(int64(len(samples)))
	return w.afterAppend(ctx, n)
}

func checkCodes(row codec.RawRow) error {
	if row.TransType == "" || row.MessageType == "" {
		return fmt.Errorf("station %s at %s: %w", row.StationID, row.DataTime, ErrMissingCode)
	}
	return nil
}

func (w *Writer) afterAppend(ctx context.Context, buffered int) error {
	if w.policy.Mode == ModeBatched && buffered < w.policy.MaxRows {
		return nil
	}
	_, err := w.Flush(ctx)
	return err
}

// Flush drains the buffer now.
func (w *Writer) Flush(ctx context.Context) (FlushResult, error) {
	res, err := w.flusher.Flush(ctx)
	if res.Detached == 0 {
		return res, err
	}

	w.stats.flushes.Add(1)
	if err != nil {
		w.stats.flushErrors.Add(1)
		w.stats.lost.Add(int64(res.Detached))
		return res, err
	}
	w.stats.written.Add(res.Written)
	return res, nil
}

// Run flushes on the policy interval until ctx is done, then performs a
// final flush. In immediate mode it only waits for ctx.
func (w *Writer) Run(ctx context.Context) error {
	if !w.running.CompareAndSwap(false, true) {
		return errors.New("writer already running")
	}
	defer w.running.Store(false)

	if w.policy.Mode == ModeBatched {
		w.log.Info().
			Int("max_rows", w.policy.MaxRows).
			Dur("interval", w.policy.Interval).
			Msg("starting batched flush loop")

		ticker := time.NewTicker(w.policy.Interval)
		defer ticker.Stop()

	loop:
		for {
			select {
			case <-ctx.Done():
				break loop
			case <-ticker.C:
				// Failures are logged by the flusher and counted in stats.
				w.Flush(ctx)
			}
		}
	} else {
		<-ctx.Done()
	}

	// ctx is already cancelled; the final flush gets its own context.
	if _, err := w.Flush(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("final flush: %w", err)
	}
	return nil
}

// Stats returns a snapshot of the counters.
func (w *Writer) Stats() Stats {
	return Stats{
		RowsAppended: w.stats.appended.Load(),
		RowsWritten:  w.stats.written.Load(),
		RowsLost:     w.stats.lost.Load(),
		Flushes:      w.stats.flushes.Load(),
		FlushErrors:  w.stats.flushErrors.Load(),
		Buffered:     w.buf.Len(),
	}
}

// Policy returns the flush policy.
func (w *Writer) Policy() Policy {
	return w.policy
}
