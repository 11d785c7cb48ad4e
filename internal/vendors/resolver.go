package vendors

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Discoverer is the AI-assisted resolution tier. A nil Discoverer is valid;
// the tier is then skipped.
type Discoverer interface {
	// Discover returns a profile for an unknown software name, or (nil, nil)
	// when the model cannot identify it. Errors are treated as misses by the
	// resolver.
	Discover(ctx context.Context, softwareName string) (*Profile, error)
}

// Resolver resolves software names to vendor profiles in three tiers:
// TTL cache, static knowledge base, AI discovery. Knowledge-base hits are
// intentionally not cached so table updates take effect immediately; AI hits
// are cached to bound external-API cost.
type Resolver struct {
	cache      Cache
	kb         *KnowledgeBase
	discoverer Discoverer
}

// NewResolver wires the three tiers. discoverer may be nil.
func NewResolver(cache Cache, kb *KnowledgeBase, discoverer Discoverer) *Resolver {
	return &Resolver{
		cache:      cache,
		kb:         kb,
		discoverer: discoverer,
	}
}

// Resolve returns the vendor profile for a software name, or nil when every
// tier misses. A nil result is not an error: the caller surfaces it as a
// manual-review finding.
func (r *Resolver) Resolve(ctx context.Context, softwareName string) *Profile {
	name := NormalizeName(softwareName)
	if name == "" {
		return nil
	}

	if profile, ok := r.cache.Get(name); ok {
		logrus.WithField("software", softwareName).Debug("Vendor resolved from cache")
		return profile
	}

	if profile := r.kb.Lookup(softwareName); profile != nil {
		logrus.WithFields(logrus.Fields{
			"software": softwareName,
			"vendor":   profile.VendorName,
		}).Debug("Vendor resolved from knowledge base")
		return profile
	}

	if r.discoverer == nil {
		return nil
	}

	profile, err := r.discoverer.Discover(ctx, softwareName)
	if err != nil {
		logrus.WithError(err).WithField("software", softwareName).Warn("AI vendor discovery failed")
		return nil
	}
	if profile == nil || profile.VendorName == "" {
		return nil
	}

	r.cache.Put(name, profile)
	logrus.WithFields(logrus.Fields{
		"software": softwareName,
		"vendor":   profile.VendorName,
	}).Info("Vendor resolved via AI discovery")
	return profile
}
