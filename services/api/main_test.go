package main

import (
	"context"
	"net"
	"path/filepath"
	"strconv"
	"testing"
	"time"
)

func TestRun_ServerFailureIsReturned(t *testing.T) {
	// Hold the port so the API cannot listen on it.
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "api.db"))
	t.Setenv("PORT", strconv.Itoa(ln.Addr().(*net.TCPAddr).Port))
	t.Setenv("LOG_LEVEL", "error")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run returned nil with the port taken")
	}
	if ctx.Err() != nil {
		t.Error("run only returned after the deadline")
	}
}

func TestRun_ConfigErrorIsReturned(t *testing.T) {
	t.Setenv("STORE_DRIVER", "oracle")
	if err := run(context.Background()); err == nil {
		t.Error("expected config error")
	}
}
