package vendors

import "strings"

// Profile describes where and how to find a software title's latest version.
type Profile struct {
	VendorName       string `json:"vendor_name"`
	VendorWebsite    string `json:"vendor_website"`
	VersionSourceURL string `json:"version_source_url"`
	ExtractionHint   string `json:"extraction_hint"`
	Notes            string `json:"notes"`
}

// NormalizeName canonicalizes a software name for cache keying.
func NormalizeName(softwareName string) string {
	return strings.ToLower(strings.TrimSpace(softwareName))
}
