package store

import (
	"context"
	"errors"
	"time"

	"github.com/patchmon/patchmon/internal/store/models"
)

// Store defines the methods required for alert storage and retrieval.
type Store interface {
	// Initialize sets up the necessary buckets/keys.
	Initialize(ctx context.Context) error

	Close(ctx context.Context) error

	// UpsertDetection inserts or refreshes an alert from a detection result,
	// keyed by (asset_id, software_name). On insert the alert is stored as
	// given (status defaults to New when unset). On update only the
	// detection-owned fields are written: asset_name, hostname,
	// current_version, latest_version, vendor, vendor_website, patch_notes,
	// priority and check_date. Status, resolved_date, resolved_by and notes
	// are left untouched. Returns true when a new alert was created.
	UpsertDetection(ctx context.Context, alert models.UpdateAlert) (bool, error)

	// GetAlert retrieves one alert by its composite key.
	GetAlert(ctx context.Context, id string) (models.UpdateAlert, error)

	// ListAlerts retrieves a page of alerts matching the filter plus the
	// total matching count. page starts at 1.
	ListAlerts(ctx context.Context, filter models.AlertFilter, page, perPage int) ([]models.UpdateAlert, int, error)

	// SetStatus updates the operator-owned fields of one alert. When the
	// status becomes Resolved, resolved_date and resolved_by are stamped;
	// when it leaves Resolved they are cleared.
	SetStatus(ctx context.Context, id string, status models.Status, notes, resolvedBy string) (models.UpdateAlert, error)

	// DeleteAlert removes an alert by its composite key.
	DeleteAlert(ctx context.Context, id string) error

	// Stats returns total, per-status and per-priority counts plus the
	// number of alerts checked within the trailing 7 days.
	Stats(ctx context.Context) (models.StatsResponse, error)
}

var ErrAlertNotFound = errors.New("alert not found")

// applyDetection copies the detection-owned fields of src onto dst,
// preserving dst's operator-owned fields. Shared by every backend so the
// allow-list lives in one place.
func applyDetection(dst *models.UpdateAlert, src *models.UpdateAlert) {
	dst.AssetName = src.AssetName
	dst.Hostname = src.Hostname
	dst.CurrentVersion = src.CurrentVersion
	dst.LatestVersion = src.LatestVersion
	dst.Vendor = src.Vendor
	dst.VendorWebsite = src.VendorWebsite
	dst.PatchNotes = src.PatchNotes
	dst.Priority = src.Priority
	dst.CheckDate = src.CheckDate
}

// stampResolution applies a status mutation with resolution metadata.
func stampResolution(a *models.UpdateAlert, status models.Status, notes, resolvedBy string, now time.Time) {
	if status == models.StatusResolved && a.Status != models.StatusResolved {
		t := now.UTC()
		a.ResolvedDate = &t
		a.ResolvedBy = resolvedBy
	} else if status != models.StatusResolved {
		a.ResolvedDate = nil
		a.ResolvedBy = ""
	}
	a.Status = status
	if notes != "" {
		a.Notes = notes
	}
}
