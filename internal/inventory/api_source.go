package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// APISource pulls the snapshot from the asset management API.
type APISource struct {
	url    string
	apiKey string
	client *http.Client
}

// NewAPISource builds a source for the given snapshot endpoint. apiKey is
// optional and sent as a bearer token when set.
func NewAPISource(url, apiKey string) *APISource {
	return &APISource{
		url:    url,
		apiKey: apiKey,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Snapshot fetches all software records. The endpoint returns either a bare
// JSON array or an object with a "software" field.
func (s *APISource) Snapshot(ctx context.Context) ([]SoftwareRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inventory request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inventory API returned status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory payload: %w", err)
	}

	var records []SoftwareRecord
	if err := json.Unmarshal(body, &records); err == nil {
		return records, nil
	}

	var wrapped struct {
		Software []SoftwareRecord `json:"software"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to decode inventory payload: %w", err)
	}
	return wrapped.Software, nil
}
