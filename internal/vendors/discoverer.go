package vendors

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/patchmon/patchmon/internal/ai"
)

const discoverPromptFmt = `You are a software asset management assistant.
For the software product %q, reply with a single JSON object and nothing else:
{"vendor_name": "...", "vendor_website": "...", "version_check_url": "...", "version_selector": "...", "notes": "..."}
version_check_url should be a page or API endpoint that states the latest release version.
version_selector is a JSON field name or a text fragment near the version on that page.
Use "" for anything you do not know. If you do not recognize the product, reply with {}.`

// AIDiscoverer resolves unknown software names through a language model.
type AIDiscoverer struct {
	client ai.Client
}

// NewAIDiscoverer wraps an LLM client; returns nil for a nil client so the
// resolver can drop the tier entirely.
func NewAIDiscoverer(client ai.Client) *AIDiscoverer {
	if client == nil {
		return nil
	}
	return &AIDiscoverer{client: client}
}

// Discover asks the model for vendor metadata and parses the first JSON
// object out of the response. A malformed or empty reply is a miss, not an
// error.
func (d *AIDiscoverer) Discover(ctx context.Context, softwareName string) (*Profile, error) {
	response, err := d.client.Complete(ctx, fmt.Sprintf(discoverPromptFmt, softwareName))
	if err != nil {
		return nil, fmt.Errorf("vendor discovery prompt failed: %w", err)
	}

	raw := ai.FirstJSONObject(response)
	if raw == "" {
		return nil, nil
	}

	var payload struct {
		VendorName      string `json:"vendor_name"`
		VendorWebsite   string `json:"vendor_website"`
		VersionCheckURL string `json:"version_check_url"`
		VersionSelector string `json:"version_selector"`
		Notes           string `json:"notes"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, nil
	}
	if strings.TrimSpace(payload.VendorName) == "" {
		return nil, nil
	}

	return &Profile{
		VendorName:       strings.TrimSpace(payload.VendorName),
		VendorWebsite:    strings.TrimSpace(payload.VendorWebsite),
		VersionSourceURL: strings.TrimSpace(payload.VersionCheckURL),
		ExtractionHint:   strings.TrimSpace(payload.VersionSelector),
		Notes:            strings.TrimSpace(payload.Notes),
	}, nil
}
