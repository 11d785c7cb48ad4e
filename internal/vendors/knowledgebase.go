package vendors

import "strings"

// KnowledgeBase is a static, ordered table of known software titles. Lookup
// precedence is exact match, then longest substring match (either
// direction), then first in table order; the explicit rule keeps lookups
// deterministic when several keys overlap ("Microsoft Edge" vs "Microsoft
// Edge WebView2").
type KnowledgeBase struct {
	entries []kbEntry
}

type kbEntry struct {
	key     string
	profile Profile
}

// NewKnowledgeBase returns the built-in vendor table.
func NewKnowledgeBase() *KnowledgeBase {
	return &KnowledgeBase{entries: builtinEntries}
}

// NewKnowledgeBaseWithEntries builds a table from explicit pairs, used in
// tests and for site-specific overrides.
func NewKnowledgeBaseWithEntries(pairs map[string]Profile, order []string) *KnowledgeBase {
	kb := &KnowledgeBase{}
	for _, key := range order {
		kb.entries = append(kb.entries, kbEntry{key: key, profile: pairs[key]})
	}
	return kb
}

// Lookup resolves a software name against the table. Returns nil when no
// entry matches.
func (kb *KnowledgeBase) Lookup(softwareName string) *Profile {
	for i := range kb.entries {
		if kb.entries[i].key == softwareName {
			p := kb.entries[i].profile
			return &p
		}
	}

	name := NormalizeName(softwareName)
	if name == "" {
		return nil
	}

	best := -1
	bestLen := 0
	for i := range kb.entries {
		key := strings.ToLower(kb.entries[i].key)
		if !strings.Contains(name, key) && !strings.Contains(key, name) {
			continue
		}
		if len(key) > bestLen {
			best = i
			bestLen = len(key)
		}
	}
	if best < 0 {
		return nil
	}
	p := kb.entries[best].profile
	return &p
}

// builtinEntries covers the titles most commonly seen in office inventories.
// Order matters only for equal-length substring ties.
var builtinEntries = []kbEntry{
	{"Google Chrome", Profile{
		VendorName:       "Google",
		VendorWebsite:    "https://www.google.com/chrome/",
		VersionSourceURL: "https://versionhistory.googleapis.com/v1/chrome/platforms/win/channels/stable/versions",
		ExtractionHint:   "version",
		Notes:            "Version history API, stable channel",
	}},
	{"Mozilla Firefox", Profile{
		VendorName:       "Mozilla",
		VendorWebsite:    "https://www.mozilla.org/firefox/",
		VersionSourceURL: "https://product-details.mozilla.org/1.0/firefox_versions.json",
		ExtractionHint:   "LATEST_FIREFOX_VERSION",
		Notes:            "Product details JSON feed",
	}},
	{"Microsoft Edge", Profile{
		VendorName:       "Microsoft",
		VendorWebsite:    "https://www.microsoft.com/edge",
		VersionSourceURL: "https://edgeupdates.microsoft.com/api/products",
		ExtractionHint:   "ProductVersion",
		Notes:            "Edge updates API, stable channel listed first",
	}},
	{"Visual Studio Code", Profile{
		VendorName:       "Microsoft",
		VendorWebsite:    "https://code.visualstudio.com/",
		VersionSourceURL: "https://update.code.visualstudio.com/api/releases/stable",
		ExtractionHint:   "name",
		Notes:            "Releases API returns newest first",
	}},
	{"Zoom", Profile{
		VendorName:    "Zoom Video Communications",
		VendorWebsite: "https://zoom.us/",
		Notes:         "No stable public version feed; page scrape",
	}},
	{"Slack", Profile{
		VendorName:    "Slack Technologies",
		VendorWebsite: "https://slack.com/release-notes/windows",
		Notes:         "Release notes page scrape",
	}},
	{"7-Zip", Profile{
		VendorName:     "Igor Pavlov",
		VendorWebsite:  "https://www.7-zip.org/",
		ExtractionHint: "Download 7-Zip",
		Notes:          "Front page lists the current release",
	}},
	{"Notepad++", Profile{
		VendorName:       "Notepad++ Team",
		VendorWebsite:    "https://notepad-plus-plus.org/",
		VersionSourceURL: "https://notepad-plus-plus.org/downloads/",
		ExtractionHint:   "Current Version",
		Notes:            "Downloads page scrape",
	}},
	{"VLC media player", Profile{
		VendorName:       "VideoLAN",
		VendorWebsite:    "https://www.videolan.org/vlc/",
		VersionSourceURL: "https://www.videolan.org/vlc/download-windows.html",
		Notes:            "Download page scrape",
	}},
	{"Adobe Acrobat Reader", Profile{
		VendorName:    "Adobe",
		VendorWebsite: "https://get.adobe.com/reader/",
		Notes:         "Page scrape; continuous track",
	}},
	{"Node.js", Profile{
		VendorName:       "OpenJS Foundation",
		VendorWebsite:    "https://nodejs.org/",
		VersionSourceURL: "https://nodejs.org/dist/index.json",
		ExtractionHint:   "version",
		Notes:            "Dist index, newest first",
	}},
	{"Python", Profile{
		VendorName:    "Python Software Foundation",
		VendorWebsite: "https://www.python.org/downloads/",
		Notes:         "Downloads page scrape",
	}},
	{"Git", Profile{
		VendorName:       "Git Project",
		VendorWebsite:    "https://git-scm.com/",
		VersionSourceURL: "https://git-scm.com/downloads",
		Notes:            "Downloads page lists latest source release",
	}},
	{"Docker Desktop", Profile{
		VendorName:    "Docker",
		VendorWebsite: "https://docs.docker.com/desktop/release-notes/",
		Notes:         "Release notes page scrape",
	}},
	{"TeamViewer", Profile{
		VendorName:    "TeamViewer",
		VendorWebsite: "https://www.teamviewer.com/en/download/",
		Notes:         "Download page scrape",
	}},
	{"Java", Profile{
		VendorName:    "Oracle",
		VendorWebsite: "https://www.java.com/releases/",
		Notes:         "Release listing page scrape",
	}},
}
