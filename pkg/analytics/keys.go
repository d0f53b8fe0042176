package analytics

import (
	"strings"
	"time"
)

const (
	keyGlobalStats  = "global_stats"
	keyPopularIndex = "popular_apps_sorted"

	appKeyPrefix    = "app:"
	dailyKeyPrefix  = "daily:"
	recentKeyPrefix = "popular:"
)

// normalizeAppName makes app keys case-insensitive and whitespace-safe.
// "Visual Studio Code" and "visual studio code" share one aggregate.
func normalizeAppName(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

func appKey(name string) string {
	return appKeyPrefix + normalizeAppName(name)
}

func dailyKey(t time.Time) string {
	return dailyKeyPrefix + t.UTC().Format("2006-01-02")
}

func recentKey(name string) string {
	return recentKeyPrefix + normalizeAppName(name)
}
