package patchmon

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/patchmon/patchmon/internal/fetch"
	"github.com/patchmon/patchmon/internal/inventory"
	"github.com/patchmon/patchmon/internal/store"
	"github.com/patchmon/patchmon/internal/store/models"
	"github.com/patchmon/patchmon/internal/vendors"
)

// memStore is an in-memory Store for pipeline tests. writeOrder records the
// sequence of upsert keys.
type memStore struct {
	mu         sync.Mutex
	alerts     map[string]models.UpdateAlert
	writeOrder []string
	failAll    bool
}

func newMemStore() *memStore {
	return &memStore{alerts: make(map[string]models.UpdateAlert)}
}

func (m *memStore) Initialize(ctx context.Context) error { return nil }
func (m *memStore) Close(ctx context.Context) error      { return nil }

func (m *memStore) UpsertDetection(ctx context.Context, alert models.UpdateAlert) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return false, errors.New("store unavailable")
	}
	alert.ID = alert.Key()
	if alert.Status == "" {
		alert.Status = models.StatusNew
	}
	m.writeOrder = append(m.writeOrder, alert.ID)
	existing, ok := m.alerts[alert.ID]
	if ok {
		existing.LatestVersion = alert.LatestVersion
		existing.Vendor = alert.Vendor
		existing.VendorWebsite = alert.VendorWebsite
		existing.PatchNotes = alert.PatchNotes
		existing.Priority = alert.Priority
		existing.CheckDate = alert.CheckDate
		m.alerts[alert.ID] = existing
		return false, nil
	}
	m.alerts[alert.ID] = alert
	return true, nil
}

func (m *memStore) GetAlert(ctx context.Context, id string) (models.UpdateAlert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.alerts[id]
	if !ok {
		return models.UpdateAlert{}, store.ErrAlertNotFound
	}
	return a, nil
}

func (m *memStore) ListAlerts(ctx context.Context, filter models.AlertFilter, page, perPage int) ([]models.UpdateAlert, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.UpdateAlert
	for _, a := range m.alerts {
		if filter.Matches(&a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (m *memStore) SetStatus(ctx context.Context, id string, status models.Status, notes, resolvedBy string) (models.UpdateAlert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.alerts[id]
	if !ok {
		return models.UpdateAlert{}, store.ErrAlertNotFound
	}
	a.Status = status
	if notes != "" {
		a.Notes = notes
	}
	a.ResolvedBy = resolvedBy
	m.alerts[id] = a
	return a, nil
}

func (m *memStore) DeleteAlert(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.alerts[id]; !ok {
		return store.ErrAlertNotFound
	}
	delete(m.alerts, id)
	return nil
}

func (m *memStore) Stats(ctx context.Context) (models.StatsResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return models.StatsResponse{TotalAlerts: len(m.alerts)}, nil
}

// staticSource returns a fixed snapshot.
type staticSource struct {
	records []inventory.SoftwareRecord
	err     error
}

func (s *staticSource) Snapshot(ctx context.Context) ([]inventory.SoftwareRecord, error) {
	return s.records, s.err
}

// mapResolver resolves from a map; missing names are misses.
type mapResolver struct {
	profiles map[string]*vendors.Profile
}

func (r *mapResolver) Resolve(ctx context.Context, softwareName string) *vendors.Profile {
	return r.profiles[softwareName]
}

// mapFetcher returns canned versions per software name; missing names fail.
type mapFetcher struct {
	versions map[string]string
	panicOn  string
}

func (f *mapFetcher) LatestVersion(ctx context.Context, softwareName string, profile *vendors.Profile) (fetch.Result, bool) {
	if softwareName == f.panicOn {
		panic("fetcher blew up")
	}
	v, ok := f.versions[softwareName]
	if !ok {
		return fetch.Result{}, false
	}
	return fetch.Result{Version: v, Method: fetch.MethodPattern}, true
}

func chromeProfile() *vendors.Profile {
	return &vendors.Profile{
		VendorName:       "Google",
		VendorWebsite:    "https://www.google.com/chrome/",
		VersionSourceURL: "https://versionhistory.googleapis.com/v1/chrome",
	}
}

func fastMonitor(cfg MonitorConfig) *Monitor {
	// High pacing rate keeps tests fast while exercising the limiter path.
	cfg.RecordRate = 10000
	if cfg.MaxWorkers == 0 {
		cfg.MaxWorkers = 1
	}
	return NewMonitor(cfg)
}

func TestRunDetectionEmitsUpdateAlert(t *testing.T) {
	db := newMemStore()
	m := fastMonitor(MonitorConfig{
		Inventory: &staticSource{records: []inventory.SoftwareRecord{{
			AssetID:        "a1",
			AssetName:      "WS-042",
			Hostname:       "ws042",
			SoftwareName:   "Google Chrome",
			CurrentVersion: "120.0.6099.109",
		}}},
		Resolver: &mapResolver{profiles: map[string]*vendors.Profile{"Google Chrome": chromeProfile()}},
		Fetcher:  &mapFetcher{versions: map[string]string{"Google Chrome": "121.0.6167.85"}},
		Store:    db,
	})

	summary, err := m.RunDetection(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if summary.TotalFound != 1 || summary.SavedCount != 1 {
		t.Errorf("summary = %+v, want 1/1", summary)
	}

	alert, err := db.GetAlert(context.Background(), models.AlertID("a1", "Google Chrome"))
	if err != nil {
		t.Fatal(err)
	}
	if alert.Priority != models.PriorityCritical {
		t.Errorf("priority = %s, want Critical for a major bump", alert.Priority)
	}
	if alert.LatestVersion != "121.0.6167.85" {
		t.Errorf("latest = %s", alert.LatestVersion)
	}
	if alert.Status != models.StatusNew {
		t.Errorf("status = %s, want New", alert.Status)
	}
}

func TestRunDetectionManualReview(t *testing.T) {
	db := newMemStore()
	m := fastMonitor(MonitorConfig{
		Inventory: &staticSource{records: []inventory.SoftwareRecord{{
			AssetID:        "a1",
			SoftwareName:   "Totally-Unknown-App-XYZ",
			CurrentVersion: "1.0.0",
		}}},
		Resolver: &mapResolver{profiles: map[string]*vendors.Profile{}},
		Fetcher:  &mapFetcher{},
		Store:    db,
	})

	summary, err := m.RunDetection(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if summary.TotalFound != 1 {
		t.Fatalf("summary = %+v, want one manual review result", summary)
	}

	alert, err := db.GetAlert(context.Background(), models.AlertID("a1", "Totally-Unknown-App-XYZ"))
	if err != nil {
		t.Fatal(err)
	}
	if alert.Status != models.StatusManualReview {
		t.Errorf("status = %s, want Manual Review", alert.Status)
	}
	if alert.Priority != models.PriorityMedium {
		t.Errorf("priority = %s, want Medium", alert.Priority)
	}
	if alert.LatestVersion != "Unknown" {
		t.Errorf("latest = %q, want Unknown", alert.LatestVersion)
	}
}

func TestRunDetectionSkipsOnFetchFailureAndUpToDate(t *testing.T) {
	db := newMemStore()
	m := fastMonitor(MonitorConfig{
		Inventory: &staticSource{records: []inventory.SoftwareRecord{
			{AssetID: "a1", SoftwareName: "Fetch Fails", CurrentVersion: "1.0"},
			{AssetID: "a1", SoftwareName: "Up To Date", CurrentVersion: "1.2.4"},
		}},
		Resolver: &mapResolver{profiles: map[string]*vendors.Profile{
			"Fetch Fails": chromeProfile(),
			"Up To Date":  chromeProfile(),
		}},
		// "Up To Date" has current 1.2.4 vs latest 1.2.3: current is newer.
		Fetcher: &mapFetcher{versions: map[string]string{"Up To Date": "1.2.3"}},
		Store:   db,
	})

	summary, err := m.RunDetection(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if summary.TotalFound != 0 || summary.SavedCount != 0 {
		t.Errorf("summary = %+v, want nothing emitted", summary)
	}
}

func TestRunDetectionRecoversFromRecordPanic(t *testing.T) {
	db := newMemStore()
	m := fastMonitor(MonitorConfig{
		Inventory: &staticSource{records: []inventory.SoftwareRecord{
			{AssetID: "a1", SoftwareName: "Poison Record", CurrentVersion: "1.0"},
			{AssetID: "a1", SoftwareName: "Google Chrome", CurrentVersion: "120.0.6099.109"},
		}},
		Resolver: &mapResolver{profiles: map[string]*vendors.Profile{
			"Poison Record": chromeProfile(),
			"Google Chrome": chromeProfile(),
		}},
		Fetcher: &mapFetcher{
			versions: map[string]string{"Google Chrome": "121.0.6167.85"},
			panicOn:  "Poison Record",
		},
		Store: db,
	})

	summary, err := m.RunDetection(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if summary.TotalFound != 1 || summary.SavedCount != 1 {
		t.Errorf("summary = %+v, want the healthy record to survive the poison one", summary)
	}
}

func TestRunDetectionInventoryFailureIsFatal(t *testing.T) {
	m := fastMonitor(MonitorConfig{
		Inventory: &staticSource{err: errors.New("asset API down")},
		Resolver:  &mapResolver{},
		Fetcher:   &mapFetcher{},
		Store:     newMemStore(),
	})

	if _, err := m.RunDetection(context.Background()); err == nil {
		t.Error("expected a systemic error when the inventory read fails")
	}
}

func TestRunDetectionTotalStoreFailureSurfaces(t *testing.T) {
	db := newMemStore()
	db.failAll = true
	m := fastMonitor(MonitorConfig{
		Inventory: &staticSource{records: []inventory.SoftwareRecord{{
			AssetID: "a1", SoftwareName: "Google Chrome", CurrentVersion: "120.0.6099.109",
		}}},
		Resolver: &mapResolver{profiles: map[string]*vendors.Profile{"Google Chrome": chromeProfile()}},
		Fetcher:  &mapFetcher{versions: map[string]string{"Google Chrome": "121.0.6167.85"}},
		Store:    db,
	})

	if _, err := m.RunDetection(context.Background()); err == nil {
		t.Error("expected a systemic error when no alert can be saved")
	}
}

func TestReRunDoesNotDuplicateAlerts(t *testing.T) {
	db := newMemStore()
	cfg := MonitorConfig{
		Inventory: &staticSource{records: []inventory.SoftwareRecord{{
			AssetID: "a1", SoftwareName: "Google Chrome", CurrentVersion: "120.0.6099.109",
		}}},
		Resolver: &mapResolver{profiles: map[string]*vendors.Profile{"Google Chrome": chromeProfile()}},
		Fetcher:  &mapFetcher{versions: map[string]string{"Google Chrome": "121.0.6167.85"}},
		Store:    db,
	}
	m := fastMonitor(cfg)

	for i := 0; i < 2; i++ {
		summary, err := m.RunDetection(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if summary.SavedCount != 1 {
			t.Errorf("run %d: saved = %d, want 1", i+1, summary.SavedCount)
		}
	}

	_, total, err := db.ListAlerts(context.Background(), models.AlertFilter{}, 1, 50)
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 {
		t.Errorf("total alerts = %d, want 1 after two identical runs", total)
	}
}

func TestRunDetectionHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	db := newMemStore()
	m := fastMonitor(MonitorConfig{
		Inventory: &staticSource{records: []inventory.SoftwareRecord{
			{AssetID: "a1", SoftwareName: "Google Chrome", CurrentVersion: "120.0.6099.109"},
		}},
		Resolver: &mapResolver{profiles: map[string]*vendors.Profile{"Google Chrome": chromeProfile()}},
		Fetcher:  &mapFetcher{versions: map[string]string{"Google Chrome": "121.0.6167.85"}},
		Store:    db,
	})

	summary, err := m.RunDetection(ctx)
	if err != nil {
		t.Fatalf("cancellation must not be a systemic error: %v", err)
	}
	if summary.TotalFound != 0 {
		t.Errorf("summary = %+v, want no records issued after cancellation", summary)
	}
}

func TestResultsPreserveInventoryOrder(t *testing.T) {
	names := []string{"App A", "App B", "App C", "App D", "App E"}
	records := make([]inventory.SoftwareRecord, len(names))
	profiles := make(map[string]*vendors.Profile, len(names))
	latest := make(map[string]string, len(names))
	for i, name := range names {
		records[i] = inventory.SoftwareRecord{AssetID: "a1", SoftwareName: name, CurrentVersion: "1.0"}
		profiles[name] = chromeProfile()
		latest[name] = "2.0"
	}

	db := newMemStore()
	m := fastMonitor(MonitorConfig{
		Inventory:  &staticSource{records: records},
		Resolver:   &mapResolver{profiles: profiles},
		Fetcher:    &mapFetcher{versions: latest},
		Store:      db,
		MaxWorkers: 3,
	})

	start := time.Now()
	summary, err := m.RunDetection(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if summary.TotalFound != len(names) {
		t.Fatalf("summary = %+v, want %d", summary, len(names))
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("run took %v; pacing should be test-rate, not wall-clock", elapsed)
	}

	// Even with concurrent workers the alerts must be saved in inventory
	// order.
	if len(db.writeOrder) != len(names) {
		t.Fatalf("writes = %v, want one per record", db.writeOrder)
	}
	for i, name := range names {
		if want := models.AlertID("a1", name); db.writeOrder[i] != want {
			t.Errorf("write %d = %q, want %q", i, db.writeOrder[i], want)
		}
	}
}
