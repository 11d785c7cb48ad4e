package patchmon

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/patchmon/patchmon/internal/fetch"
	"github.com/patchmon/patchmon/internal/inventory"
	"github.com/patchmon/patchmon/internal/notifications"
	"github.com/patchmon/patchmon/internal/store"
	"github.com/patchmon/patchmon/internal/store/models"
	"github.com/patchmon/patchmon/internal/vendors"
	"github.com/patchmon/patchmon/internal/versions"
)

// VendorResolver resolves a software name to a vendor profile, or nil when
// every resolution tier misses.
type VendorResolver interface {
	Resolve(ctx context.Context, softwareName string) *vendors.Profile
}

// VersionFetcher retrieves the latest version for a resolved profile.
type VersionFetcher interface {
	LatestVersion(ctx context.Context, softwareName string, profile *vendors.Profile) (fetch.Result, bool)
}

// MonitorConfig holds the collaborators and tuning for the detection pipeline.
type MonitorConfig struct {
	Inventory     inventory.Source
	Resolver      VendorResolver
	Fetcher       VersionFetcher
	Store         store.Store
	Notifier      *notifications.Notifier
	CheckInterval time.Duration
	RecordRate    rate.Limit
	MaxWorkers    int64
	RateLimits    []RateLimitConfig
}

// Monitor drives detection passes over the software inventory.
type Monitor struct {
	Config    MonitorConfig
	sem       *semaphore.Weighted
	pace      *rate.Limiter
	limiters  *hostLimiters
	persister *Persister
}

// NewMonitor initializes a new Monitor.
func NewMonitor(config MonitorConfig) *Monitor {
	workers := config.MaxWorkers
	if workers < 1 {
		workers = 1
	}
	recordRate := config.RecordRate
	if recordRate <= 0 {
		recordRate = 1
	}
	return &Monitor{
		Config:    config,
		sem:       semaphore.NewWeighted(workers),
		pace:      rate.NewLimiter(recordRate, 1),
		limiters:  newHostLimiters(recordRate, config.RateLimits),
		persister: NewPersister(config.Store),
	}
}

// Start runs detection passes until the context is cancelled, pausing
// CheckInterval between passes.
func (m *Monitor) Start(ctx context.Context) {
	ticker := time.NewTicker(m.Config.CheckInterval)
	defer ticker.Stop()

	for {
		if _, err := m.RunDetection(ctx); err != nil {
			logrus.WithError(err).Error("Detection pass failed")
		}
		select {
		case <-ctx.Done():
			logrus.Info("Update monitoring stopped due to context cancellation")
			return
		case <-ticker.C:
			// Continue to next pass
		}
	}
}

// RunDetection executes one detection pass over the full inventory snapshot.
// Per-record failures are contained; only an inventory read failure or a
// total store write failure surface as errors.
func (m *Monitor) RunDetection(ctx context.Context) (models.RunSummary, error) {
	started := time.Now()

	records, err := m.Config.Inventory.Snapshot(ctx)
	if err != nil {
		return models.RunSummary{}, err
	}
	logrus.WithField("record_count", len(records)).Info("Starting software update detection pass")

	// Results are collected by index so the inventory order survives any
	// worker-cap setting.
	results := make([]*models.UpdateAlert, len(records))
	var wg sync.WaitGroup

	for i, record := range records {
		if ctx.Err() != nil {
			logrus.Info("Detection pass interrupted; not issuing further records")
			break
		}
		if err := m.pace.Wait(ctx); err != nil {
			break
		}
		if err := m.sem.Acquire(ctx, 1); err != nil {
			break
		}

		wg.Add(1)
		go func(idx int, rec inventory.SoftwareRecord) {
			defer wg.Done()
			defer m.sem.Release(1)
			results[idx] = m.checkRecord(ctx, rec)
		}(i, record)
	}

	wg.Wait()

	alerts := make([]models.UpdateAlert, 0, len(records))
	criticalCount := 0
	for _, r := range results {
		if r == nil {
			continue
		}
		alerts = append(alerts, *r)
		if r.Priority == models.PriorityCritical {
			criticalCount++
		}
	}

	saved, err := m.persister.Save(ctx, alerts)
	summary := models.RunSummary{TotalFound: len(alerts), SavedCount: saved}
	if err != nil {
		return summary, err
	}

	logrus.WithFields(logrus.Fields{
		"total_found": summary.TotalFound,
		"saved_count": summary.SavedCount,
		"critical":    criticalCount,
		"elapsed":     time.Since(started).Round(time.Millisecond),
	}).Info("Detection pass complete")

	m.Config.Notifier.NotifyRun(summary, criticalCount)
	return summary, nil
}

// checkRecord runs the resolve -> fetch -> compare sub-pipeline for one
// inventory record. Any panic or failure is contained here; a nil return
// means "no alert from this record" and leaves prior alert state untouched.
func (m *Monitor) checkRecord(ctx context.Context, record inventory.SoftwareRecord) (alert *models.UpdateAlert) {
	logger := logrus.WithFields(logrus.Fields{
		"asset":    record.AssetID,
		"software": record.SoftwareName,
	})

	defer func() {
		if r := recover(); r != nil {
			logger.WithField("panic", r).Error("Record pipeline panicked")
			alert = nil
		}
	}()

	profile := m.Config.Resolver.Resolve(ctx, record.SoftwareName)
	if profile == nil {
		logger.Info("Vendor unresolved; flagging for manual review")
		return manualReviewAlert(record)
	}

	if err := m.limiters.Wait(ctx, fetchTarget(profile)); err != nil {
		return nil
	}

	result, ok := m.Config.Fetcher.LatestVersion(ctx, record.SoftwareName, profile)
	if !ok {
		// Fetch failures are skipped silently so an existing alert for this
		// pair keeps its previous detection data.
		logger.Debug("Latest version unavailable; skipping record")
		return nil
	}

	if !versions.NeedsUpdate(record.CurrentVersion, result.Version) {
		return nil
	}

	logger.WithFields(logrus.Fields{
		"current": record.CurrentVersion,
		"latest":  result.Version,
		"method":  result.Method,
	}).Info("Update detected")

	return detectionAlert(record, profile, result.Version)
}

// fetchTarget picks the URL whose host the fetch will hit first.
func fetchTarget(profile *vendors.Profile) string {
	if profile.VersionSourceURL != "" {
		return profile.VersionSourceURL
	}
	return profile.VendorWebsite
}
