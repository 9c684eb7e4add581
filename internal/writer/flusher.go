package writer

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/02loveslollipop/tswater/internal/codec"
)

// BulkLoader performs one bulk insert into the destination table.
type BulkLoader interface {
	BulkLoad(ctx context.Context, rows []codec.RawRow) (int64, error)
}

// FlushResult describes one flush.
type FlushResult struct {
	Detached int
	Written  int64
	Duration time.Duration
}

// BulkWriteError is returned when a bulk load fails. The detached rows are
// not requeued; Rows of them are lost.
type BulkWriteError struct {
	Table string
	Rows  int
	Err   error
}

func (e *BulkWriteError) Error() string {
	return fmt.Sprintf("bulk load of %d rows into %s failed: %v", e.Rows, e.Table, e.Err)
}

func (e *BulkWriteError) Unwrap() error {
	return e.Err
}

// BulkFlusher drains a WriteBuffer into the store with one bulk load per
// flush, holding the table lock while loading.
type BulkFlusher struct {
	buf     *WriteBuffer
	lock    *TableLock
	loader  BulkLoader
	timeout time.Duration
	log     zerolog.Logger
}

// NewFlusher wires a flusher. A zero timeout leaves the bulk load unbounded.
func NewFlusher(buf *WriteBuffer, lock *TableLock, loader BulkLoader, timeout time.Duration, log zerolog.Logger) *BulkFlusher {
	return &BulkFlusher{
		buf:     buf,
		lock:    lock,
		loader:  loader,
		timeout: timeout,
		log:     log,
	}
}

// Flush detaches everything buffered and bulk loads it. Producers may keep
// appending while the load runs. An empty buffer is a successful no-op that
// touches neither the lock nor the store.
//
// Detached rows may belong to other producers, so once detached they are
// loaded on a context that ignores the caller's cancellation. The lock wait
// is unbounded and the load is bounded only by the flusher timeout.
func (f *BulkFlusher) Flush(ctx context.Context) (FlushResult, error) {
	rows := f.buf.Detach()
	if len(rows) == 0 {
		return FlushResult{}, nil
	}

	start := time.Now()
	res := FlushResult{Detached: len(rows)}
	ctx = context.WithoutCancel(ctx)

	if err := f.lock.Acquire(ctx); err != nil {
		f.log.Error().Err(err).Int("rows_lost", len(rows)).Str("table", f.lock.Table()).
			Msg("could not acquire table lock")
		return res, &BulkWriteError{Table: f.lock.Table(), Rows: len(rows), Err: err}
	}
	defer f.lock.Release()

	loadCtx := ctx
	if f.timeout > 0 {
		var cancel context.CancelFunc
		loadCtx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	written, err := f.loader.BulkLoad(loadCtx, rows)
	res.Written = written
	res.Duration = time.Since(start)
	if err != nil {
		f.log.Error().Err(err).
			Str("table", f.lock.Table()).
			Int("rows_lost", len(rows)).
			Dur("duration", res.Duration).
			Msg("bulk load failed")
		return res, &BulkWriteError{Table: f.lock.Table(), Rows: len(rows), Err: err}
	}

	ev := f.log.Info()
	if int(written) != len(rows) {
		ev = f.log.Warn()
	}
	ev.Str("table", f.lock.Table()).
		Int64("written", written).
		Int("detached", len(rows)).
		Dur("duration", res.Duration).
		Msgf("added %d/%d rows to water table", written, len(rows))

	return res, nil
}
