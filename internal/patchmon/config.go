package patchmon

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Config holds the detection-pipeline configuration.
type Config struct {
	// CheckInterval is the pause between scheduled detection passes.
	CheckInterval time.Duration
	// RunOnce runs a single pass and exits instead of scheduling.
	RunOnce bool
	// RecordRate paces how fast record sub-pipelines are issued. The default
	// of 1/s reproduces the original fixed inter-record delay.
	RecordRate rate.Limit
	// MaxWorkers caps concurrent record sub-pipelines. Default 1 keeps the
	// batch strictly sequential; higher values rely on the per-host limits.
	MaxWorkers int64
	// RateLimits are per-vendor-host token bucket overrides.
	RateLimits []RateLimitConfig

	InventoryURL    string
	InventoryAPIKey string
	InventoryFile   string
}

// RateLimitConfig defines rate limiting settings per vendor host.
type RateLimitConfig struct {
	Host  string
	Rate  rate.Limit // Requests per second
	Burst int        // Maximum burst size
}

// LoadConfig loads pipeline configuration from environment variables.
func LoadConfig() (*Config, error) {
	checkIntervalStr := os.Getenv("CHECK_INTERVAL_HOURS")
	checkInterval, err := strconv.Atoi(checkIntervalStr)
	if err != nil || checkInterval <= 0 {
		checkInterval = 24
		logrus.Infof("Invalid or missing CHECK_INTERVAL_HOURS. Defaulting to %d hours.", checkInterval)
	}

	recordRate := 1.0
	if v := os.Getenv("RECORD_RATE"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed <= 0 {
			logrus.Infof("Invalid RECORD_RATE. Defaulting to %.1f/s.", recordRate)
		} else {
			recordRate = parsed
		}
	}

	maxWorkers := int64(1)
	if v := os.Getenv("MAX_WORKERS"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil || parsed <= 0 {
			logrus.Info("Invalid MAX_WORKERS. Defaulting to 1.")
		} else {
			maxWorkers = parsed
		}
	}

	rateLimits, err := parseRateLimits(os.Getenv("RATE_LIMITS"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse RATE_LIMITS: %v", err)
	}

	return &Config{
		CheckInterval:   time.Duration(checkInterval) * time.Hour,
		RunOnce:         strings.EqualFold(os.Getenv("RUN_ONCE"), "true"),
		RecordRate:      rate.Limit(recordRate),
		MaxWorkers:      maxWorkers,
		RateLimits:      rateLimits,
		InventoryURL:    os.Getenv("INVENTORY_URL"),
		InventoryAPIKey: os.Getenv("INVENTORY_API_KEY"),
		InventoryFile:   os.Getenv("INVENTORY_FILE"),
	}, nil
}

// parseRateLimits parses rate limits from a comma-separated list of
// host:rate:burst entries.
func parseRateLimits(input string) ([]RateLimitConfig, error) {
	var rateLimits []RateLimitConfig
	if input == "" {
		return rateLimits, nil // No per-host overrides defined
	}
	entries := strings.Split(input, ",")
	for _, entry := range entries {
		parts := strings.Split(entry, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid rate limit entry: %s", entry)
		}
		host := strings.TrimSpace(parts[0])
		rateValue, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid rate value in entry '%s': %v", entry, err)
		}
		burstValue, err := strconv.Atoi(strings.TrimSpace(parts[2]))
		if err != nil {
			return nil, fmt.Errorf("invalid burst value in entry '%s': %v", entry, err)
		}
		rateLimits = append(rateLimits, RateLimitConfig{
			Host:  host,
			Rate:  rate.Limit(rateValue),
			Burst: burstValue,
		})
	}
	return rateLimits, nil
}
