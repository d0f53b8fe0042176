package analytics

import (
	"context"
	"sort"
	"time"
)

const (
	defaultPopularLimit = 10
	maxPopularLimit     = 50
	defaultTimeframe    = "7d"
)

var timeframeDurations = map[string]time.Duration{
	"1d":  24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
}

// Popular returns the apps most recently active within the timeframe, ranked
// by weighted interaction score. The recency query only selects candidates;
// the final order is by score. Popularity is a non-critical feature, so any
// store failure degrades to an empty list instead of an error.
func (s *Service) Popular(ctx context.Context, limit int, timeframe string) (*PopularResult, error) {
	if limit <= 0 {
		limit = defaultPopularLimit
	}
	if limit > maxPopularLimit {
		limit = maxPopularLimit
	}

	window, ok := timeframeDurations[timeframe]
	if !ok {
		timeframe = defaultTimeframe
		window = timeframeDurations[defaultTimeframe]
	}

	result := &PopularResult{
		Timeframe:   timeframe,
		Apps:        []PopularApp{},
		GeneratedAt: s.now(),
	}

	now := s.now().UnixMilli()
	lowerBound := now - window.Milliseconds()

	names, err := s.store.ZRevRangeByScore(ctx, keyPopularIndex, lowerBound, now, int64(limit))
	if err != nil {
		s.logger.WithError(err).Warn("popularity index query failed, returning empty list")
		return result, nil
	}

	for _, name := range names {
		values, err := s.store.HGetAll(ctx, appKey(name))
		if err != nil {
			s.logger.WithError(err).WithField("app", name).Warn("app aggregate read failed, returning empty list")
			return &PopularResult{Timeframe: timeframe, Apps: []PopularApp{}, GeneratedAt: s.now()}, nil
		}

		app := PopularApp{
			Name:             name,
			ViewCount:        parseCount(values, "view_count"),
			AboutCount:       parseCount(values, "about_count"),
			InstallCount:     parseCount(values, "install_count"),
			CopyCommandCount: parseCount(values, "copy_command_count"),
			LastActivity:     parseCount(values, "last_activity"),
		}
		app.Score = app.ViewCount*ActionView.Weight() +
			app.AboutCount*ActionAbout.Weight() +
			app.InstallCount*ActionInstall.Weight() +
			app.CopyCommandCount*ActionCopyCommand.Weight()

		result.Apps = append(result.Apps, app)
	}

	// Stable sort keeps candidate order for equal scores
	sort.SliceStable(result.Apps, func(i, j int) bool {
		return result.Apps[i].Score > result.Apps[j].Score
	})

	result.TotalFound = len(result.Apps)
	return result, nil
}
