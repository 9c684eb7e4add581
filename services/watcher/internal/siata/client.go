package siata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/02loveslollipop/tswater/services/watcher/internal/models"
)

// FetchLevels retrieves the current water-level payload.
func FetchLevels(ctx context.Context, client *http.Client, url string) (models.LevelResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.LevelResponse{}, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return models.LevelResponse{}, fmt.Errorf("request level feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return models.LevelResponse{}, fmt.Errorf("unexpected status %s", resp.Status)
	}

	var payload models.LevelResponse
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return models.LevelResponse{}, fmt.Errorf("decode payload: %w", err)
	}

	return payload, nil
}
