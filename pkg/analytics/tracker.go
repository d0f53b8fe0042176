package analytics

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Track validates and records one interaction event, fanning the aggregate
// updates out concurrently. Each update is an independent Redis write; there
// is no rollback on partial failure, so a store outage mid-batch can leave
// some counters updated and others not. TTL refreshes run as a second batch
// after the writes settle.
func (s *Service) Track(ctx context.Context, event Event) (*TrackedEvent, error) {
	if event.AppName == "" {
		return nil, NewValidationError("appName", "app name is required")
	}
	if event.ActionType == "" {
		return nil, NewValidationError("actionType", "action type is required")
	}
	if !event.ActionType.Valid() {
		return nil, NewValidationError("actionType",
			fmt.Sprintf("unknown action type %q", event.ActionType))
	}

	timestamp := event.Timestamp
	if timestamp == 0 {
		timestamp = s.now().UnixMilli()
	}

	aKey := appKey(event.AppName)
	dKey := dailyKey(msToTime(timestamp))
	rKey := recentKey(event.AppName)
	counterField := string(event.ActionType) + "_count"
	totalField := "total_" + string(event.ActionType)

	// Deliberately not errgroup.WithContext: a failing write must not cancel
	// its siblings, each aggregate is independent.
	var g errgroup.Group

	g.Go(func() error {
		if err := s.store.HIncrBy(ctx, aKey, counterField, 1); err != nil {
			return fmt.Errorf("failed to update app aggregate: %w", err)
		}
		return s.store.HSet(ctx, aKey, map[string]interface{}{
			"last_activity": timestamp,
			"name":          event.AppName,
		})
	})

	g.Go(func() error {
		if err := s.store.HIncrBy(ctx, dKey, totalField, 1); err != nil {
			return fmt.Errorf("failed to update daily aggregate: %w", err)
		}
		return s.store.HIncrBy(ctx, dKey, aKey, 1)
	})

	g.Go(func() error {
		if err := s.store.HIncrBy(ctx, keyGlobalStats, totalField, 1); err != nil {
			return fmt.Errorf("failed to update global aggregate: %w", err)
		}
		return s.store.HIncrBy(ctx, keyGlobalStats, "total_interactions", 1)
	})

	g.Go(func() error {
		// Score is the latest interaction time; later events overwrite
		return s.store.ZAdd(ctx, keyPopularIndex, event.AppName, float64(timestamp))
	})

	g.Go(func() error {
		record, err := json.Marshal(RecentEvent{Action: event.ActionType, Timestamp: timestamp})
		if err != nil {
			return fmt.Errorf("failed to encode recent event: %w", err)
		}
		return s.store.PushCapped(ctx, rKey, string(record), s.store.Config().RecentEventsCap)
	})

	writeErr := g.Wait()

	ttl := s.store.Config().AggregateTTL
	var ttlGroup errgroup.Group
	for _, key := range []string{aKey, dKey, rKey} {
		key := key
		ttlGroup.Go(func() error {
			return s.store.Expire(ctx, key, ttl)
		})
	}
	ttlErr := ttlGroup.Wait()

	if writeErr != nil {
		return nil, writeErr
	}
	if ttlErr != nil {
		return nil, fmt.Errorf("failed to refresh aggregate TTL: %w", ttlErr)
	}

	s.logger.WithFields(map[string]interface{}{
		"app":    event.AppName,
		"action": string(event.ActionType),
	}).Debug("event tracked")

	return &TrackedEvent{
		App:       event.AppName,
		Action:    event.ActionType,
		Timestamp: timestamp,
	}, nil
}
