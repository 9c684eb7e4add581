package siata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetchLevels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"red":"nivel","estaciones":[{"codigo":7,"nombre":"Rio","valor":1.25,"fecha":"2024-07-01 10:00:00"},{"codigo":8,"valor":null}]}`))
	}))
	defer srv.Close()

	payload, err := FetchLevels(context.Background(), srv.Client(), srv.URL)
	if err != nil {
		t.Fatalf("FetchLevels: %v", err)
	}
	if payload.Network != "nivel" || len(payload.Stations) != 2 {
		t.Fatalf("payload = %+v", payload)
	}
	if v := payload.Stations[0].Value; v == nil || v.String() != "1.25" {
		t.Errorf("value = %v", v)
	}
	if payload.Stations[1].Value != nil {
		t.Errorf("null value decoded as %v", payload.Stations[1].Value)
	}
}

func TestFetchLevels_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, err := FetchLevels(context.Background(), srv.Client(), srv.URL); err == nil {
		t.Error("expected error")
	}
}
