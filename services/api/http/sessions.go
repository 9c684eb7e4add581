package http

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/02loveslollipop/tswater/internal/paging"
)

// sessionEntry guards one FilterSession; handlers hold mu for every call
// into the session.
type sessionEntry struct {
	mu       sync.Mutex
	session  *paging.FilterSession
	lastUsed time.Time
}

// sessionRegistry keeps paging sessions by id and expires idle ones.
type sessionRegistry struct {
	mu      sync.Mutex
	ttl     time.Duration
	factory func() (*paging.FilterSession, error)
	entries map[string]*sessionEntry
	now     func() time.Time
}

func newSessionRegistry(ttl time.Duration, factory func() (*paging.FilterSession, error)) *sessionRegistry {
	return &sessionRegistry{
		ttl:     ttl,
		factory: factory,
		entries: make(map[string]*sessionEntry),
		now:     time.Now,
	}
}

func (r *sessionRegistry) create() (string, *sessionEntry, error) {
	sess, err := r.factory()
	if err != nil {
		return "", nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()

	id := uuid.NewString()
	entry := &sessionEntry{session: sess, lastUsed: r.now()}
	r.entries[id] = entry
	return id, entry, nil
}

func (r *sessionRegistry) get(id string) (*sessionEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()

	entry, ok := r.entries[id]
	if ok {
		entry.lastUsed = r.now()
	}
	return entry, ok
}

func (r *sessionRegistry) remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.entries[id]
	delete(r.entries, id)
	return ok
}

func (r *sessionRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()
	return len(r.entries)
}

func (r *sessionRegistry) sweepLocked() {
	if r.ttl <= 0 {
		return
	}
	cutoff := r.now().Add(-r.ttl)
	for id, entry := range r.entries {
		if entry.lastUsed.Before(cutoff) {
			delete(r.entries, id)
		}
	}
}
