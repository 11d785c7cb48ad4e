package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/patchmon/patchmon/internal/vendors"
)

// stubExtractor returns a canned AI extraction.
type stubExtractor struct {
	token string
	err   error
	calls int
}

func (s *stubExtractor) ExtractVersion(ctx context.Context, softwareHint, content string) (string, error) {
	s.calls++
	return s.token, s.err
}

func newTestFetcher(extractor Extractor) *Fetcher {
	f := NewFetcher(extractor)
	f.retries = 1
	return f
}

func TestStructuredExtractionByHint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"releases": [{"name": "stable", "LATEST_VERSION": "121.0.6167.85"}]}`))
	}))
	defer srv.Close()

	f := newTestFetcher(nil)
	result, ok := f.LatestVersion(context.Background(), "Chrome", &vendors.Profile{
		VersionSourceURL: srv.URL,
		ExtractionHint:   "latest_version",
	})
	if !ok {
		t.Fatal("expected a version")
	}
	if result.Version != "121.0.6167.85" || result.Method != MethodStructured {
		t.Errorf("got %+v, want structured 121.0.6167.85", result)
	}
}

func TestJSONFallsBackToLastPatternMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"old": "1.0.0", "mid": "1.5.0", "new": "2.0.1"}`))
	}))
	defer srv.Close()

	f := newTestFetcher(nil)
	result, ok := f.LatestVersion(context.Background(), "App", &vendors.Profile{
		VersionSourceURL: srv.URL,
		ExtractionHint:   "no_such_field",
	})
	if !ok {
		t.Fatal("expected a version")
	}
	if result.Version != "2.0.1" || result.Method != MethodPattern {
		t.Errorf("got %+v, want pattern 2.0.1 (last match)", result)
	}
}

func TestHTMLHintSelector(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body>
			<p>Old release 7.9 archive</p>
			<h2>Current Version</h2><p>Download 8.1.2 now</p>
		</body></html>`))
	}))
	defer srv.Close()

	f := newTestFetcher(nil)
	result, ok := f.LatestVersion(context.Background(), "App", &vendors.Profile{
		VersionSourceURL: srv.URL,
		ExtractionHint:   "Current Version",
	})
	if !ok {
		t.Fatal("expected a version")
	}
	if result.Version != "8.1.2" || result.Method != MethodPattern {
		t.Errorf("got %+v, want pattern 8.1.2 after the hint", result)
	}
}

func TestHintMissOnTextSourceFallsBackToWebsite(t *testing.T) {
	// The source page carries a stray version-shaped token but not the hint
	// text; that token must not be returned from the source page.
	source := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html>archived installer 9.9.9 (deprecated)</html>`))
	}))
	defer source.Close()

	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html>Latest release: 1.1.1</html>`))
	}))
	defer site.Close()

	f := newTestFetcher(nil)
	for _, hint := range []string{"Current Version", ""} {
		result, ok := f.LatestVersion(context.Background(), "App", &vendors.Profile{
			VersionSourceURL: source.URL,
			VendorWebsite:    site.URL,
			ExtractionHint:   hint,
		})
		if !ok {
			t.Fatalf("hint %q: expected a version from the website scan", hint)
		}
		if result.Version != "1.1.1" || result.Method != MethodPattern {
			t.Errorf("hint %q: got %+v, want pattern 1.1.1 from the website", hint, result)
		}
	}
}

func TestWebsiteFallbackWhenSourceFails(t *testing.T) {
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html>release notes 3.2 then 3.3 then 3.4.1</html>`))
	}))
	defer site.Close()

	f := newTestFetcher(nil)
	result, ok := f.LatestVersion(context.Background(), "App", &vendors.Profile{
		VersionSourceURL: "http://127.0.0.1:1/unreachable",
		VendorWebsite:    site.URL,
	})
	if !ok {
		t.Fatal("expected a version from the website fallback")
	}
	if result.Version != "3.4.1" || result.Method != MethodPattern {
		t.Errorf("got %+v, want pattern 3.4.1 (last match on website)", result)
	}
}

func TestAIFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html>no version numbers on this page</html>`))
	}))
	defer srv.Close()

	extractor := &stubExtractor{token: "The latest version is 4.5.6"}
	f := newTestFetcher(extractor)
	result, ok := f.LatestVersion(context.Background(), "App", &vendors.Profile{
		VersionSourceURL: srv.URL,
	})
	if !ok {
		t.Fatal("expected AI fallback to produce a version")
	}
	if result.Version != "4.5.6" || result.Method != MethodAI {
		t.Errorf("got %+v, want ai 4.5.6", result)
	}
	if extractor.calls != 1 {
		t.Errorf("extractor called %d times, want 1", extractor.calls)
	}
}

func TestAISentinelRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html>nothing useful</html>`))
	}))
	defer srv.Close()

	for _, token := range []string{"null", "None", `"null"`, ""} {
		f := newTestFetcher(&stubExtractor{token: token})
		if _, ok := f.LatestVersion(context.Background(), "App", &vendors.Profile{VersionSourceURL: srv.URL}); ok {
			t.Errorf("token %q: expected rejection", token)
		}
	}
}

func TestTotalFailureIsMissNotError(t *testing.T) {
	f := newTestFetcher(&stubExtractor{err: errors.New("model down")})
	result, ok := f.LatestVersion(context.Background(), "App", &vendors.Profile{
		VersionSourceURL: "http://127.0.0.1:1/unreachable",
		VendorWebsite:    "http://127.0.0.1:1/also-unreachable",
	})
	if ok {
		t.Errorf("expected miss, got %+v", result)
	}

	if _, ok := f.LatestVersion(context.Background(), "App", nil); ok {
		t.Error("nil profile must be a miss")
	}
}

func TestUserAgentHeaderSent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"version": "1.0.0"}`))
	}))
	defer srv.Close()

	f := newTestFetcher(nil)
	f.LatestVersion(context.Background(), "App", &vendors.Profile{
		VersionSourceURL: srv.URL,
		ExtractionHint:   "version",
	})
	if gotUA == "" || gotUA == "Go-http-client/1.1" {
		t.Errorf("expected a realistic client identifier, got %q", gotUA)
	}
}
