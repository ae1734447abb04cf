package cache

import (
	"strings"
	"time"

	"argstats-api/internal/config"
	"argstats-api/internal/model"
)

// Namespace is the Redis key prefix for the application.
const Namespace = "argstats"

// TTLClass represents a config-driven TTL bucket.
type TTLClass string

const (
	TTLShort  TTLClass = "short"
	TTLMedium TTLClass = "medium"
	TTLLong   TTLClass = "long"
)

// TTLSet normalises cache TTLs from config into time.Duration values.
type TTLSet struct {
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
}

// NewTTLSet converts config TTLs (in seconds) into durations.
func NewTTLSet(cfg config.CacheTTL) TTLSet {
	return TTLSet{
		Short:  durationOrDefault(cfg.Short, 10*time.Second),
		Medium: durationOrDefault(cfg.Medium, time.Minute),
		Long:   durationOrDefault(cfg.Long, 5*time.Minute),
	}
}

func durationOrDefault(seconds int, fallback time.Duration) time.Duration {
	if seconds < 0 {
		return 0
	}
	if seconds == 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

// Duration returns the configured duration for the given TTL class.
func (t TTLSet) Duration(class TTLClass) time.Duration {
	switch class {
	case TTLShort:
		return t.Short
	case TTLMedium:
		return t.Medium
	case TTLLong:
		return t.Long
	default:
		return 0
	}
}

// Scaled applies a multiplier to a TTL class, useful for half/double TTL variants.
func (t TTLSet) Scaled(class TTLClass, factor float64) time.Duration {
	base := t.Duration(class)
	if base <= 0 || factor <= 0 {
		return base
	}
	return time.Duration(float64(base) * factor)
}

func formatKey(parts ...string) string {
	values := make([]string, 0, len(parts)+1)
	values = append(values, Namespace)
	for _, part := range parts {
		clean := strings.ToLower(strings.TrimSpace(part))
		if clean == "" {
			continue
		}
		values = append(values, clean)
	}
	return strings.Join(values, ":")
}

// --- Series Keys ------------------------------------------------------------

// SeriesLatestKey caches the newest point of every dimension group.
func SeriesLatestKey(series string) string {
	return formatKey("series", series, "latest")
}

// SeriesMetadataKey caches row count and coverage.
func SeriesMetadataKey(series string) string {
	return formatKey("series", series, "metadata")
}

// SeriesKeys lists every cached read of a series; jobs drop them after a write.
func SeriesKeys(series string) []string {
	return []string{SeriesLatestKey(series), SeriesMetadataKey(series)}
}

// --- TTL Helpers ------------------------------------------------------------

// SeriesLatestTTL returns the TTL for latest-point payloads. Intraday quotes
// move within minutes, daily and periodic series do not.
func SeriesLatestTTL(ttl TTLSet, spec model.SeriesTable) time.Duration {
	if spec.DateKind == model.DateKindInstant {
		return ttl.Duration(TTLShort)
	}
	return ttl.Duration(TTLMedium)
}

// SeriesMetadataTTL returns the TTL for coverage summaries.
func SeriesMetadataTTL(ttl TTLSet) time.Duration {
	return ttl.Scaled(TTLLong, 2)
}
