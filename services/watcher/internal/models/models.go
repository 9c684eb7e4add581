package models

import "encoding/json"

// LevelResponse models the JSON payload returned by the water-level feed.
type LevelResponse struct {
	Stations []Station `json:"estaciones"`
	Network  string    `json:"red"`
}

// Station represents a single station entry from the feed. Value is the
// water stage as reported, Timestamp the collection time when present.
type Station struct {
	Code      int          `json:"codigo"`
	Name      string       `json:"nombre"`
	City      string       `json:"ciudad"`
	Latitude  float64      `json:"latitud"`
	Longitude float64      `json:"longitud"`
	Value     *json.Number `json:"valor"`
	Timestamp string       `json:"fecha"`
}
