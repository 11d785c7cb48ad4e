package patchmon

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// hostLimiters holds one token bucket per vendor host so that raising the
// worker cap cannot change the load profile any single vendor sees.
type hostLimiters struct {
	mu          sync.Mutex
	defaultRate rate.Limit
	overrides   map[string]RateLimitConfig
	limiters    map[string]*rate.Limiter
}

func newHostLimiters(defaultRate rate.Limit, overrides []RateLimitConfig) *hostLimiters {
	h := &hostLimiters{
		defaultRate: defaultRate,
		overrides:   make(map[string]RateLimitConfig),
		limiters:    make(map[string]*rate.Limiter),
	}
	for _, o := range overrides {
		h.overrides[strings.ToLower(o.Host)] = o
	}
	return h
}

// Wait blocks until the host's bucket grants a token. Unparseable URLs share
// one bucket under the empty host.
func (h *hostLimiters) Wait(ctx context.Context, rawURL string) error {
	return h.limiterFor(hostOf(rawURL)).Wait(ctx)
}

func (h *hostLimiters) limiterFor(host string) *rate.Limiter {
	h.mu.Lock()
	defer h.mu.Unlock()

	if l, ok := h.limiters[host]; ok {
		return l
	}

	limit, burst := h.defaultRate, 1
	if o, ok := h.overrides[host]; ok {
		limit = o.Rate
		// A burst below 1 would make Wait fail forever and silently drop
		// every record for the host.
		if o.Burst >= 1 {
			burst = o.Burst
		}
	}
	l := rate.NewLimiter(limit, burst)
	h.limiters[host] = l
	return l
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
