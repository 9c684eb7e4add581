package utils

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/govalues/decimal"

	"github.com/02loveslollipop/tswater/internal/models"
	feed "github.com/02loveslollipop/tswater/services/watcher/internal/models"
)

// feedTimeLayouts are tried in order on the station timestamp.
var feedTimeLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"}

// Options controls how feed stations become samples.
type Options struct {
	StationPrefix string
	Channel       models.ChannelType
	Message       models.MessageType
}

// BuildSamples converts feed stations into samples. Stations without a
// timestamp are stamped with the retrieval time; stations whose timestamp
// cannot be parsed are returned in skipped.
func BuildSamples(stations []feed.Station, retrievalTS time.Time, opts Options) (samples []models.Sample, skipped []string) {
	samples = make([]models.Sample, 0, len(stations))
	for _, st := range stations {
		id := StationID(opts.StationPrefix, st.Code)

		collected := retrievalTS
		if st.Timestamp != "" {
			t, err := ParseFeedTime(st.Timestamp)
			if err != nil {
				skipped = append(skipped, id)
				continue
			}
			collected = t
		}

		samples = append(samples, models.Sample{
			StationID:     id,
			TimeCollected: collected,
			TimeReceived:  retrievalTS,
			WaterStage:    NormalizeValue(st.Value),
			ChannelType:   opts.Channel,
			MessageType:   opts.Message,
		})
	}
	return samples, skipped
}

// StationID builds the stored station id from the feed code.
func StationID(prefix string, code int) string {
	return fmt.Sprintf("%s%d", prefix, code)
}

// ParseFeedTime parses a feed timestamp; zone-less values are UTC.
func ParseFeedTime(value string) (time.Time, error) {
	var err error
	for _, layout := range feedTimeLayouts {
		var t time.Time
		if t, err = time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, err
}

// NormalizeValue cleans raw feed values; missing, unparsable and -999 style
// sentinels become the missing water stage.
func NormalizeValue(v *json.Number) decimal.Decimal {
	if v == nil {
		return models.MissingWaterStage
	}
	d, err := decimal.Parse(v.String())
	if err != nil {
		return models.MissingWaterStage
	}
	if d.Cmp(decimal.MustNew(-900, 0)) <= 0 {
		return models.MissingWaterStage
	}
	return d
}

// FilterNewSamples drops samples that are not newer than the last stored
// collection time of their station, so re-polling an unchanged feed writes
// nothing.
func FilterNewSamples(samples []models.Sample, last map[string]time.Time) []models.Sample {
	out := make([]models.Sample, 0, len(samples))
	for _, s := range samples {
		prev, ok := last[s.StationID]
		if ok && !s.TimeCollected.After(prev) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// ValueString prints a water stage for logging.
func ValueString(d decimal.Decimal) string {
	if d.Cmp(models.MissingWaterStage) == 0 {
		return "null"
	}
	return d.String()
}
