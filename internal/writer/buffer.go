// Package writer implements the buffered write path: samples are encoded
// into an in-memory buffer and drained into the store by bulk loads that are
// serialized per destination table.
package writer

import (
	"sync"

	"github.com/02loveslollipop/tswater/internal/codec"
)

// WriteBuffer is an unbounded append-only queue of rows not yet written to
// the store. The mutex is only ever held for in-memory work.
type WriteBuffer struct {
	mu   sync.Mutex
	rows []codec.RawRow
}

// NewBuffer creates an empty buffer.
func NewBuffer() *WriteBuffer {
	return &WriteBuffer{}
}

// Append adds a row at the tail.
func (b *WriteBuffer) Append(row codec.RawRow) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.rows = append(b.rows, row)
	return len(b.rows)
}

// AppendBatch adds all rows at the tail before releasing the lock, so no
// detach can observe part of the batch. It returns the new length.
func (b *WriteBuffer) AppendBatch(rows []codec.RawRow) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.rows = append(b.rows, rows...)
	return len(b.rows)
}

// Detach takes ownership of the current contents and leaves the buffer
// empty. It returns nil when there is nothing buffered.
func (b *WriteBuffer) Detach() []codec.RawRow {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.rows) == 0 {
		return nil
	}
	detached := b.rows
	b.rows = nil
	return detached
}

// Len returns the number of buffered rows.
func (b *WriteBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.rows)
}
