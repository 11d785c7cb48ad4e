package models

import (
	"fmt"
	"strings"
	"time"
)

// Priority is the remediation priority assigned to an update alert.
type Priority string

const (
	PriorityCritical Priority = "Critical"
	PriorityHigh     Priority = "High"
	PriorityMedium   Priority = "Medium"
	PriorityLow      Priority = "Low"
)

// Status is the triage state of an update alert. Status transitions after
// creation belong to the operator, never to the detection pipeline.
type Status string

const (
	StatusNew          Status = "New"
	StatusAcknowledged Status = "Acknowledged"
	StatusInProgress   Status = "In Progress"
	StatusResolved     Status = "Resolved"
	StatusManualReview Status = "Manual Review"
)

// ValidStatus reports whether s is one of the known triage states.
func ValidStatus(s Status) bool {
	switch s {
	case StatusNew, StatusAcknowledged, StatusInProgress, StatusResolved, StatusManualReview:
		return true
	}
	return false
}

// UpdateAlert represents one tracked (asset, software) update finding.
// Detection-owned fields are refreshed on every run; Status, ResolvedDate,
// ResolvedBy and Notes are operator-owned and only written through SetStatus.
type UpdateAlert struct {
	ID             string     `json:"id"`
	AssetID        string     `json:"asset_id"`
	SoftwareName   string     `json:"software_name"`
	AssetName      string     `json:"asset_name"`
	Hostname       string     `json:"hostname"`
	CurrentVersion string     `json:"current_version"`
	LatestVersion  string     `json:"latest_version"`
	Vendor         string     `json:"vendor"`
	VendorWebsite  string     `json:"vendor_website"`
	PatchNotes     string     `json:"patch_notes"`
	Priority       Priority   `json:"priority"`
	Status         Status     `json:"status"`
	CheckDate      time.Time  `json:"check_date"`
	ResolvedDate   *time.Time `json:"resolved_date,omitempty"`
	ResolvedBy     string     `json:"resolved_by,omitempty"`
	Notes          string     `json:"notes,omitempty"`
}

// AlertID builds the composite key identifying an alert. Exactly one alert
// exists per (asset_id, software_name) pair.
func AlertID(assetID, softwareName string) string {
	return fmt.Sprintf("%s|%s", strings.TrimSpace(assetID), strings.TrimSpace(softwareName))
}

// Key returns the alert's composite key.
func (a *UpdateAlert) Key() string {
	return AlertID(a.AssetID, a.SoftwareName)
}

// AlertFilter narrows ListAlerts results. Zero values mean "no filter".
type AlertFilter struct {
	Status   Status
	Priority Priority
	AssetID  string
}

// Matches reports whether the alert passes every set filter field.
func (f AlertFilter) Matches(a *UpdateAlert) bool {
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	if f.Priority != "" && a.Priority != f.Priority {
		return false
	}
	if f.AssetID != "" && a.AssetID != f.AssetID {
		return false
	}
	return true
}

// AlertsResponse includes pagination metadata.
type AlertsResponse struct {
	Alerts     []UpdateAlert `json:"alerts"`
	Page       int           `json:"page"`
	PerPage    int           `json:"per_page"`
	Total      int           `json:"total"`
	TotalPages int           `json:"total_pages"`
}

type AlertDetailResponse struct {
	Alert UpdateAlert `json:"alert"`
}

// StatsResponse represents the structure of the /stats API response.
type StatsResponse struct {
	TotalAlerts     int              `json:"total_alerts"`
	ByStatus        map[Status]int   `json:"by_status"`
	ByPriority      map[Priority]int `json:"by_priority"`
	AlertsLast7Days int              `json:"alerts_last_7_days"`
}

// RunSummary is returned by a detection pass.
type RunSummary struct {
	TotalFound int `json:"total_found"`
	SavedCount int `json:"saved_count"`
}
