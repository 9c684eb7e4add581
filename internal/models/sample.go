package models

import (
	"time"

	"github.com/govalues/decimal"
)

// MissingWaterStage marks a reading whose water stage was empty or could not
// be parsed.
var MissingWaterStage = decimal.MustNew(-9999, 0)

// Sample is a single water-stage reading reported by a monitoring station.
type Sample struct {
	StationID     string          `json:"station_id"`
	TimeCollected time.Time       `json:"time_collected"`
	TimeReceived  time.Time       `json:"time_received"`
	WaterStage    decimal.Decimal `json:"water_stage"`
	ChannelType   ChannelType     `json:"channel_type"`
	MessageType   MessageType     `json:"message_type"`
}

// HasWaterStage reports whether the sample carries a real reading.
func (s *Sample) HasWaterStage() bool {
	return s.WaterStage.Cmp(MissingWaterStage) != 0
}
