package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/sirupsen/logrus"

	"github.com/patchmon/patchmon/internal/vendors"
)

// Method records how a version string was obtained.
type Method string

const (
	MethodStructured Method = "structured"
	MethodPattern    Method = "pattern"
	MethodAI         Method = "ai"
)

// Result is the transient outcome of one version fetch.
type Result struct {
	Version string
	Method  Method
}

// Extractor is the AI-assisted extraction tier. A nil Extractor skips it.
type Extractor interface {
	// ExtractVersion reads a raw page excerpt and returns the latest version
	// token, or "" when the model cannot find one.
	ExtractVersion(ctx context.Context, softwareHint, content string) (string, error)
}

// versionPattern matches 2- to 4-component dotted versions. The last match
// in a document is taken as the most specific/most recent, which holds for
// the typical newest-first ordering of release feeds.
var versionPattern = regexp.MustCompile(`\d+\.\d+(?:\.\d+)?(?:\.\d+)?`)

// aiExcerptLimit bounds how much page content is sent to the model.
const aiExcerptLimit = 5000

// maxBodyBytes caps response reads; version feeds and landing pages are
// small, anything larger is not worth scanning.
const maxBodyBytes = 2 << 20

// Fetcher retrieves the latest version for a resolved vendor profile. It
// never returns an error: any network, parse or AI failure degrades to a
// miss so one unreachable vendor cannot abort a batch.
type Fetcher struct {
	client    *http.Client
	extractor Extractor
	userAgent string
	retries   uint64
}

// NewFetcher builds a fetcher with a bounded-timeout client. extractor may
// be nil.
func NewFetcher(extractor Extractor) *Fetcher {
	return &Fetcher{
		client:    &http.Client{Timeout: 15 * time.Second},
		extractor: extractor,
		// Some vendor endpoints reject unidentified clients outright.
		userAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) patchmon/1.0",
		retries:   2,
	}
}

// LatestVersion runs the extraction ladder for one profile: structured JSON
// field, version-shaped pattern scan, vendor-website pattern scan, AI read
// of the raw page. Returns ok=false when every tier misses.
func (f *Fetcher) LatestVersion(ctx context.Context, softwareName string, profile *vendors.Profile) (Result, bool) {
	if profile == nil {
		return Result{}, false
	}

	var lastBody string

	if profile.VersionSourceURL != "" {
		body, contentType, err := f.get(ctx, profile.VersionSourceURL)
		if err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"software": softwareName,
				"url":      profile.VersionSourceURL,
			}).Debug("Version source fetch failed")
		} else {
			lastBody = body
			if isJSON(contentType, body) {
				if v := extractJSONField(body, profile.ExtractionHint); v != "" {
					return Result{Version: v, Method: MethodStructured}, true
				}
				if v := lastVersionMatch(body); v != "" {
					return Result{Version: v, Method: MethodPattern}, true
				}
			} else {
				if v := versionNearHint(body, profile.ExtractionHint); v != "" {
					return Result{Version: v, Method: MethodPattern}, true
				}
			}
		}
	}

	// The dedicated source missed or was never set; fall back to scanning
	// the vendor's general website.
	if profile.VendorWebsite != "" && profile.VendorWebsite != profile.VersionSourceURL {
		body, _, err := f.get(ctx, profile.VendorWebsite)
		if err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"software": softwareName,
				"url":      profile.VendorWebsite,
			}).Debug("Vendor website fetch failed")
		} else {
			lastBody = body
			if v := lastVersionMatch(body); v != "" {
				return Result{Version: v, Method: MethodPattern}, true
			}
		}
	}

	if f.extractor != nil && lastBody != "" {
		excerpt := lastBody
		if len(excerpt) > aiExcerptLimit {
			excerpt = excerpt[:aiExcerptLimit]
		}
		token, err := f.extractor.ExtractVersion(ctx, softwareName, excerpt)
		if err != nil {
			logrus.WithError(err).WithField("software", softwareName).Warn("AI version extraction failed")
			return Result{}, false
		}
		if v := acceptAIToken(token); v != "" {
			return Result{Version: v, Method: MethodAI}, true
		}
	}

	return Result{}, false
}

// get performs a GET with the client-identification header, retrying
// transient failures with exponential backoff.
func (f *Fetcher) get(ctx context.Context, url string) (string, string, error) {
	var body, contentType string

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("User-Agent", f.userAgent)
		req.Header.Set("Accept", "application/json, text/html;q=0.9, */*;q=0.8")

		resp, err := f.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
			if err != nil {
				return err
			}
			body = string(data)
			contentType = resp.Header.Get("Content-Type")
			return nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return fmt.Errorf("transient status %d from %s", resp.StatusCode, url)
		default:
			return backoff.Permanent(fmt.Errorf("status %d from %s", resp.StatusCode, url))
		}
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), f.retries), ctx)
	if err := backoff.Retry(operation, b); err != nil {
		return "", "", err
	}
	return body, contentType, nil
}

func isJSON(contentType, body string) bool {
	if strings.Contains(contentType, "json") {
		return true
	}
	trimmed := strings.TrimSpace(body)
	return strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")
}

// extractJSONField searches a decoded JSON document for the hint field name
// (case-insensitive, depth-first) and pulls a version token from its value.
func extractJSONField(body, hint string) string {
	if hint == "" {
		return ""
	}
	var doc interface{}
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return ""
	}
	value, ok := findField(doc, strings.ToLower(hint))
	if !ok {
		return ""
	}
	switch v := value.(type) {
	case string:
		return versionPattern.FindString(v)
	case float64:
		return versionPattern.FindString(fmt.Sprintf("%v", v))
	default:
		return ""
	}
}

// findField walks maps and arrays looking for the first key equal to name.
func findField(doc interface{}, name string) (interface{}, bool) {
	switch node := doc.(type) {
	case map[string]interface{}:
		for k, v := range node {
			if strings.ToLower(k) == name {
				return v, true
			}
		}
		for _, v := range node {
			if found, ok := findField(v, name); ok {
				return found, true
			}
		}
	case []interface{}:
		for _, v := range node {
			if found, ok := findField(v, name); ok {
				return found, true
			}
		}
	}
	return nil, false
}

// lastVersionMatch returns the last version-shaped substring in a document.
func lastVersionMatch(body string) string {
	matches := versionPattern.FindAllString(body, -1)
	if len(matches) == 0 {
		return ""
	}
	return matches[len(matches)-1]
}

// versionNearHint returns the first version-shaped substring after the first
// occurrence of the hint text. An empty or absent hint is a miss: a full-text
// scan of a dedicated source page would latch onto stray tokens (archive
// entries, year pairs), so that scan is reserved for the website tier.
func versionNearHint(body, hint string) string {
	if hint == "" {
		return ""
	}
	idx := strings.Index(strings.ToLower(body), strings.ToLower(hint))
	if idx < 0 {
		return ""
	}
	return versionPattern.FindString(body[idx:])
}

// acceptAIToken validates a model-returned token: null/none sentinels and
// anything that does not contain a version shape are rejected.
func acceptAIToken(token string) string {
	cleaned := strings.Trim(strings.TrimSpace(token), "\"'` ")
	switch strings.ToLower(cleaned) {
	case "", "null", "none":
		return ""
	}
	return versionPattern.FindString(cleaned)
}
