package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestInitWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := InitWriter(&buf, "debug", "json"); err != nil {
		t.Fatalf("InitWriter: %v", err)
	}
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	l := Component("flusher")
	l.Info().Int("rows", 3).Msg("flushed")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if entry["component"] != "flusher" {
		t.Errorf("component = %v", entry["component"])
	}
	if entry["rows"] != float64(3) {
		t.Errorf("rows = %v", entry["rows"])
	}
}

func TestInitWriter_Invalid(t *testing.T) {
	var buf bytes.Buffer
	if err := InitWriter(&buf, "loud", "json"); err == nil {
		t.Error("expected error for bad level")
	}
	if err := InitWriter(&buf, "info", "xml"); err == nil {
		t.Error("expected error for bad format")
	}
}
