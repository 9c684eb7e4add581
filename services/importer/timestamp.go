package main

import (
	"fmt"
	"time"
)

// Timestamp is a command line time: "now", a date (YYYY-MM-DD, UTC
// midnight) or an RFC3339 instant.
type Timestamp struct {
	t time.Time
}

func (ts *Timestamp) UnmarshalText(b []byte) error {
	s := string(b)
	if s == "now" {
		ts.t = time.Now().UTC().Truncate(time.Second)
		return nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		ts.t = t
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("expected \"now\", YYYY-MM-DD or RFC3339, got %q", s)
	}
	ts.t = t.UTC()
	return nil
}

// Inner returns the parsed time, or nil for an unset flag.
func (ts *Timestamp) Inner() *time.Time {
	if ts == nil {
		return nil
	}
	return &ts.t
}
