package patchmon

import (
	"time"

	"github.com/patchmon/patchmon/internal/inventory"
	"github.com/patchmon/patchmon/internal/store/models"
	"github.com/patchmon/patchmon/internal/vendors"
	"github.com/patchmon/patchmon/internal/versions"
)

// detectionAlert builds the alert payload for a confirmed update.
func detectionAlert(record inventory.SoftwareRecord, profile *vendors.Profile, latest string) *models.UpdateAlert {
	vendor := profile.VendorName
	if vendor == "" {
		vendor = record.Vendor
	}
	alert := &models.UpdateAlert{
		AssetID:        record.AssetID,
		SoftwareName:   record.SoftwareName,
		AssetName:      record.AssetName,
		Hostname:       record.Hostname,
		CurrentVersion: record.CurrentVersion,
		LatestVersion:  latest,
		Vendor:         vendor,
		VendorWebsite:  profile.VendorWebsite,
		PatchNotes:     patchNotes(profile),
		Priority:       versions.Classify(record.CurrentVersion, latest),
		CheckDate:      time.Now().UTC(),
	}
	alert.ID = alert.Key()
	return alert
}

// manualReviewAlert builds the alert payload for an unresolvable title.
// latest_version is the literal "Unknown" and the priority is fixed at
// Medium; the status survives upserts because status is operator-owned
// after creation.
func manualReviewAlert(record inventory.SoftwareRecord) *models.UpdateAlert {
	alert := &models.UpdateAlert{
		AssetID:        record.AssetID,
		SoftwareName:   record.SoftwareName,
		AssetName:      record.AssetName,
		Hostname:       record.Hostname,
		CurrentVersion: record.CurrentVersion,
		LatestVersion:  "Unknown",
		Vendor:         record.Vendor,
		Priority:       models.PriorityMedium,
		Status:         models.StatusManualReview,
		CheckDate:      time.Now().UTC(),
	}
	alert.ID = alert.Key()
	return alert
}

// patchNotes points the operator at the page the version came from; there is
// no release-notes scraper.
func patchNotes(profile *vendors.Profile) string {
	if profile.VersionSourceURL != "" {
		return profile.VersionSourceURL
	}
	return profile.VendorWebsite
}
