// Package versions compares dotted version strings component-wise and
// classifies remediation priority by the position of the first differing
// component. The classification is position-based, not magnitude-based: a
// 1.9.9 -> 2.0.0 bump is Critical even when functionally trivial. That rule
// is inherited product behavior; changing it to weigh magnitude is a product
// decision, not a refactor.
package versions

import (
	"strconv"
	"strings"

	"github.com/patchmon/patchmon/internal/store/models"
)

// components splits a version string on "." and coerces each piece to an
// integer. Non-numeric or missing pieces count as 0, so "1.2b" and "1.2.0"
// compare equal at the mangled positions rather than failing.
func components(version string) []int {
	parts := strings.Split(strings.TrimSpace(version), ".")
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			n = 0
		}
		out[i] = n
	}
	return out
}

// pad extends v with zero components up to length n.
func pad(v []int, n int) []int {
	for len(v) < n {
		v = append(v, 0)
	}
	return v
}

// Compare returns -1 when a is older than b, 1 when newer, 0 when equal
// after zero-padding to equal length.
func Compare(a, b string) int {
	ca, cb := components(a), components(b)
	n := len(ca)
	if len(cb) > n {
		n = len(cb)
	}
	ca, cb = pad(ca, n), pad(cb, n)

	for i := 0; i < n; i++ {
		if ca[i] < cb[i] {
			return -1
		}
		if ca[i] > cb[i] {
			return 1
		}
	}
	return 0
}

// NeedsUpdate reports whether latest is strictly newer than current.
func NeedsUpdate(current, latest string) bool {
	return Compare(current, latest) < 0
}

// Classify maps the index of the first differing component to a priority:
// major (0) -> Critical, minor (1) -> High, patch (2) -> Medium, anything
// deeper -> Low. Equal or unparseable version pairs default to Low.
func Classify(current, latest string) models.Priority {
	ca, cb := components(current), components(latest)
	n := len(ca)
	if len(cb) > n {
		n = len(cb)
	}
	ca, cb = pad(ca, n), pad(cb, n)

	for i := 0; i < n; i++ {
		if ca[i] == cb[i] {
			continue
		}
		switch i {
		case 0:
			return models.PriorityCritical
		case 1:
			return models.PriorityHigh
		case 2:
			return models.PriorityMedium
		default:
			return models.PriorityLow
		}
	}
	return models.PriorityLow
}
