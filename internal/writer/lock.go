package writer

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// TableLock serializes bulk loads against one destination table. It is held
// for the full duration of a bulk load and never together with a buffer lock.
type TableLock struct {
	table string
	sem   *semaphore.Weighted
}

// NewTableLock creates a lock for a single table.
func NewTableLock(table string) *TableLock {
	return &TableLock{table: table, sem: semaphore.NewWeighted(1)}
}

// Table returns the guarded table name.
func (l *TableLock) Table() string {
	return l.table
}

// Acquire blocks until the lock is held or ctx is done.
func (l *TableLock) Acquire(ctx context.Context) error {
	return l.sem.Acquire(ctx, 1)
}

// Release gives the lock back.
func (l *TableLock) Release() {
	l.sem.Release(1)
}

// LockSet hands out one TableLock per table name. Writers that must not
// overlap on a table share the same LockSet.
type LockSet struct {
	mu    sync.Mutex
	locks map[string]*TableLock
}

// NewLockSet creates an empty set.
func NewLockSet() *LockSet {
	return &LockSet{locks: make(map[string]*TableLock)}
}

// For returns the lock of the given table, creating it on first use.
func (s *LockSet) For(table string) *TableLock {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[table]
	if !ok {
		l = NewTableLock(table)
		s.locks[table] = l
	}
	return l
}
