// Package inventory supplies the installed-software snapshot the detection
// pipeline runs over. Records are produced elsewhere (the asset agents) and
// are read-only here.
package inventory

import "context"

// SoftwareRecord is one installed application on one machine.
type SoftwareRecord struct {
	AssetID        string `json:"asset_id"`
	AssetName      string `json:"asset_name"`
	Hostname       string `json:"hostname"`
	SoftwareName   string `json:"software_name"`
	CurrentVersion string `json:"current_version"`
	Vendor         string `json:"vendor,omitempty"`
	InstallDate    string `json:"install_date,omitempty"`
}

// Source returns the full inventory snapshot for one detection run. No
// pagination is assumed; a run sees the whole fleet at once.
type Source interface {
	Snapshot(ctx context.Context) ([]SoftwareRecord, error)
}
