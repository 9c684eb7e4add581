package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/02loveslollipop/tswater/internal/codec"
	"github.com/02loveslollipop/tswater/internal/paging"
	"github.com/02loveslollipop/tswater/internal/writer"
	"github.com/02loveslollipop/tswater/services/api/config"
	"github.com/02loveslollipop/tswater/services/api/db"
)

const dump = `stationid,datatime,waterstage,transtype,messagetype,recvdatatime
7,2024-02-01 00:00:00,1.50,GPRS,TM,2024-02-01 00:00:05
7,2024-02-01 00:30:00,,GPRS,TM,2024-02-01 00:30:05
7,2024-02-01 01:00:00,1.75,SAT,TM,2024-02-01 01:00:05
8,2024-02-01 01:00:00,3.10,GSM,MN,2024-02-01 01:00:05
7,2024-02-01 02:00:00,bad,GPRS,QR,2024-02-01 02:00:05
`

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		StoreDriver: db.DriverSQLite,
		SQLitePath:  filepath.Join(t.TempDir(), "import.db"),
		Table:       "tswater",
		DateLayout:  codec.DefaultLayout,
		Paging:      paging.Sizes{UIPage: 2, DBWindow: 2},
		Flush:       writer.DefaultPolicy(),
		BulkTimeout: time.Minute,
	}
}

func writeDump(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dump.csv")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func ts(t *testing.T, s string) *Timestamp {
	t.Helper()
	var out Timestamp
	if err := out.UnmarshalText([]byte(s)); err != nil {
		t.Fatal(err)
	}
	return &out
}

func TestImportThenExport(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	imp := &ImportCmd{File: writeDump(t, dump), Batch: 2, Quiet: true}
	if err := imp.Execute(ctx, cfg); err != nil {
		t.Fatalf("import: %v", err)
	}

	store, err := db.Open(ctx, cfg.StoreOptions())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	rc, _ := cfg.Codec()

	sess, err := paging.NewSession(paging.Options{Sizes: cfg.Paging, Codec: rc, Source: store})
	if err != nil {
		t.Fatal(err)
	}

	exp := &ExportCmd{Station: "7", From: ts(t, "2024-02-01"), To: ts(t, "2024-02-02"), Quiet: true}
	scope, err := exp.scope()
	if err != nil {
		t.Fatal(err)
	}
	sess.SetFilter(scope)

	var out bytes.Buffer
	n, err := exp.write(ctx, sess, rc, &out)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if n != 4 {
		t.Fatalf("exported %d rows, want 4\n%s", n, out.String())
	}

	want := `stationid,datatime,waterstage,transtype,messagetype,recvdatatime
7,2024-02-01 00:00:00,1.50,GPRS,TM,2024-02-01 00:00:05
7,2024-02-01 00:30:00,,GPRS,TM,2024-02-01 00:30:05
7,2024-02-01 01:00:00,1.75,SAT,TM,2024-02-01 01:00:05
7,2024-02-01 02:00:00,,GPRS,QR,2024-02-01 02:00:05
`
	if out.String() != want {
		t.Errorf("export =\n%s\nwant\n%s", out.String(), want)
	}

	// Aligned export skips the half hour.
	exp.Align = true
	scope, _ = exp.scope()
	sess.SetFilter(scope)
	out.Reset()
	if n, err := exp.write(ctx, sess, rc, &out); err != nil || n != 3 {
		t.Errorf("aligned export = %d, %v", n, err)
	}
}

func TestExport_EmptyRangeWritesHeader(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	store, err := db.Open(ctx, cfg.StoreOptions())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	rc, _ := cfg.Codec()
	sess, _ := paging.NewSession(paging.Options{Sizes: cfg.Paging, Codec: rc, Source: store})

	exp := &ExportCmd{Station: "none", From: ts(t, "2024-01-01"), To: ts(t, "2024-01-02"), Quiet: true}
	scope, _ := exp.scope()
	sess.SetFilter(scope)

	var out bytes.Buffer
	n, err := exp.write(ctx, sess, rc, &out)
	if err != nil || n != 0 {
		t.Fatalf("write = %d, %v", n, err)
	}
	if got := strings.TrimSpace(out.String()); got != strings.Join(codec.Columns, ",") {
		t.Errorf("output = %q", got)
	}
}

func TestImport_MalformedTimestampIsFatal(t *testing.T) {
	cfg := testConfig(t)
	bad := "stationid,datatime,waterstage,transtype,messagetype,recvdatatime\n7,01/02/2024,1.0,GPRS,TM,2024-02-01 00:00:05\n"

	err := (&ImportCmd{File: writeDump(t, bad), Batch: 10, Quiet: true}).Execute(context.Background(), cfg)
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Errorf("err = %v", err)
	}
}

func TestTimestamp(t *testing.T) {
	if got := *ts(t, "2024-03-04").Inner(); !got.Equal(time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("date = %s", got)
	}
	if got := *ts(t, "2024-03-04T10:00:00+02:00").Inner(); !got.Equal(time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)) {
		t.Errorf("rfc3339 = %s", got)
	}
	var bad Timestamp
	if err := bad.UnmarshalText([]byte("tomorrow")); err == nil {
		t.Error("expected error")
	}
	var unset *Timestamp
	if unset.Inner() != nil {
		t.Error("nil timestamp should have no inner time")
	}

	exp := &ExportCmd{Station: "1", From: ts(t, "2024-02-02"), To: ts(t, "2024-02-01")}
	if _, err := exp.scope(); err == nil {
		t.Error("expected inverted range error")
	}
}
