package analytics

import (
	"context"
	"fmt"
	"strings"
)

// Stats returns a read-only snapshot of the global aggregate, today's daily
// aggregate, and the count of distinct tracked apps. Missing aggregates
// report zero for every counter.
func (s *Service) Stats(ctx context.Context) (*StatsSnapshot, error) {
	global, err := s.store.HGetAll(ctx, keyGlobalStats)
	if err != nil {
		return nil, fmt.Errorf("failed to read global stats: %w", err)
	}

	today := s.now().UTC()
	daily, err := s.store.HGetAll(ctx, dailyKey(today))
	if err != nil {
		return nil, fmt.Errorf("failed to read daily stats: %w", err)
	}

	uniqueApps, err := s.store.CountKeys(ctx, appKeyPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("failed to count tracked apps: %w", err)
	}

	snapshot := &StatsSnapshot{
		Global: GlobalStats{
			TotalViews:        parseCount(global, "total_view"),
			TotalAbouts:       parseCount(global, "total_about"),
			TotalInstalls:     parseCount(global, "total_install"),
			TotalCopyCommands: parseCount(global, "total_copy_command"),
			TotalInteractions: parseCount(global, "total_interactions"),
			UniqueApps:        uniqueApps,
		},
		Today: DailyStats{
			Date:              today.Format("2006-01-02"),
			TotalViews:        parseCount(daily, "total_view"),
			TotalAbouts:       parseCount(daily, "total_about"),
			TotalInstalls:     parseCount(daily, "total_install"),
			TotalCopyCommands: parseCount(daily, "total_copy_command"),
		},
		GeneratedAt: s.now(),
	}

	// Per-app daily counters live alongside the totals in the same hash,
	// keyed by the app aggregate key
	for field := range daily {
		if !strings.HasPrefix(field, appKeyPrefix) {
			continue
		}
		if snapshot.Today.Apps == nil {
			snapshot.Today.Apps = make(map[string]int64)
		}
		snapshot.Today.Apps[strings.TrimPrefix(field, appKeyPrefix)] = parseCount(daily, field)
	}

	return snapshot, nil
}
