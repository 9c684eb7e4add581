package utils

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/govalues/decimal"

	"github.com/02loveslollipop/tswater/internal/models"
	feed "github.com/02loveslollipop/tswater/services/watcher/internal/models"
)

func num(s string) *json.Number {
	n := json.Number(s)
	return &n
}

func TestNormalizeValue(t *testing.T) {
	cases := []struct {
		in   *json.Number
		want decimal.Decimal
	}{
		{in: nil, want: models.MissingWaterStage},
		{in: num("-999"), want: models.MissingWaterStage},
		{in: num("-900"), want: models.MissingWaterStage},
		{in: num("abc"), want: models.MissingWaterStage},
		{in: num("-12.5"), want: decimal.MustNew(-125, 1)},
		{in: num("1.234"), want: decimal.MustNew(1234, 3)},
	}

	for _, c := range cases {
		if got := NormalizeValue(c.in); got.Cmp(c.want) != 0 {
			t.Errorf("NormalizeValue(%v) = %s, want %s", c.in, got, c.want)
		}
	}
}

func TestBuildSamples(t *testing.T) {
	retrieval := time.Date(2024, 7, 1, 12, 5, 0, 0, time.UTC)
	stations := []feed.Station{
		{Code: 101, Value: num("2.5"), Timestamp: "2024-07-01 12:00:00"},
		{Code: 102, Value: nil},
		{Code: 103, Value: num("1"), Timestamp: "yesterday"},
	}

	samples, skipped := BuildSamples(stations, retrieval, Options{
		StationPrefix: "nivel_",
		Channel:       models.Channel(models.ChannelGPRS),
		Message:       models.Message(models.MessageTimed),
	})

	if len(samples) != 2 || len(skipped) != 1 || skipped[0] != "nivel_103" {
		t.Fatalf("samples = %+v skipped = %v", samples, skipped)
	}
	if s := samples[0]; s.StationID != "nivel_101" || !s.TimeCollected.Equal(retrieval.Add(-5*time.Minute)) || !s.TimeReceived.Equal(retrieval) {
		t.Errorf("first sample = %+v", s)
	}
	if s := samples[1]; s.HasWaterStage() || !s.TimeCollected.Equal(retrieval) {
		t.Errorf("second sample = %+v", s)
	}
}

func TestFilterNewSamples(t *testing.T) {
	t0 := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	samples := []models.Sample{
		{StationID: "a", TimeCollected: t0},
		{StationID: "b", TimeCollected: t0.Add(time.Minute)},
		{StationID: "c", TimeCollected: t0},
	}
	last := map[string]time.Time{"a": t0, "b": t0}

	got := FilterNewSamples(samples, last)
	if len(got) != 2 || got[0].StationID != "b" || got[1].StationID != "c" {
		t.Errorf("FilterNewSamples = %+v", got)
	}
}

func TestParseFeedTime(t *testing.T) {
	want := time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC)
	for _, in := range []string{"2024-07-01T10:00:00Z", "2024-07-01T05:00:00-05:00", "2024-07-01 10:00:00", "2024-07-01T10:00:00"} {
		got, err := ParseFeedTime(in)
		if err != nil || !got.Equal(want) {
			t.Errorf("ParseFeedTime(%q) = %s, %v", in, got, err)
		}
	}
	if _, err := ParseFeedTime("01/07/2024"); err == nil {
		t.Error("expected error")
	}
}
