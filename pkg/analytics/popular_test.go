package analytics

import (
	"context"
	"fmt"
	"reflect"
	"testing"
	"time"
)

func trackN(t *testing.T, svc *Service, app string, action ActionType, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if _, err := svc.Track(context.Background(), Event{AppName: app, ActionType: action}); err != nil {
			t.Fatalf("Track(%s, %s) failed: %v", app, action, err)
		}
	}
}

func TestPopular_WeightedScoreOrder(t *testing.T) {
	svc, _, cleanup := setupServiceTest(t)
	defer cleanup()

	// Steam: 2 views + 1 install = 5. GIMP: 1 view + 1 copy = 6.
	// Discord: 4 views = 4. Score order: GIMP, Steam, Discord.
	trackN(t, svc, "Steam", ActionView, 2)
	trackN(t, svc, "Steam", ActionInstall, 1)
	trackN(t, svc, "GIMP", ActionView, 1)
	trackN(t, svc, "GIMP", ActionCopyCommand, 1)
	trackN(t, svc, "Discord", ActionView, 4)

	result, err := svc.Popular(context.Background(), 10, "7d")
	if err != nil {
		t.Fatalf("Popular failed: %v", err)
	}

	var names []string
	for _, app := range result.Apps {
		names = append(names, app.Name)
	}
	want := []string{"GIMP", "Steam", "Discord"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("Ranking = %v, want %v", names, want)
	}

	if result.Apps[0].Score != 6 {
		t.Errorf("GIMP score = %d, want 6", result.Apps[0].Score)
	}
	if result.Apps[1].Score != 5 {
		t.Errorf("Steam score = %d, want 5", result.Apps[1].Score)
	}
	if result.TotalFound != 3 {
		t.Errorf("TotalFound = %d, want 3", result.TotalFound)
	}
	if result.Timeframe != "7d" {
		t.Errorf("Timeframe = %q, want 7d", result.Timeframe)
	}
}

func TestPopular_TimeframeWindow(t *testing.T) {
	svc, _, cleanup := setupServiceTest(t)
	defer cleanup()

	ctx := context.Background()
	now := svc.now()

	// Old activity falls outside a 1d window but inside 7d
	old := now.Add(-3 * 24 * time.Hour).UnixMilli()
	if _, err := svc.Track(ctx, Event{AppName: "GIMP", ActionType: ActionView, Timestamp: old}); err != nil {
		t.Fatalf("Track failed: %v", err)
	}
	if _, err := svc.Track(ctx, Event{AppName: "Discord", ActionType: ActionView}); err != nil {
		t.Fatalf("Track failed: %v", err)
	}

	day, err := svc.Popular(ctx, 10, "1d")
	if err != nil {
		t.Fatalf("Popular failed: %v", err)
	}
	if day.TotalFound != 1 || day.Apps[0].Name != "Discord" {
		t.Errorf("1d window = %+v, want only Discord", day.Apps)
	}

	week, err := svc.Popular(ctx, 10, "7d")
	if err != nil {
		t.Fatalf("Popular failed: %v", err)
	}
	if week.TotalFound != 2 {
		t.Errorf("7d window found %d apps, want 2", week.TotalFound)
	}
}

func TestPopular_LimitClamping(t *testing.T) {
	svc, _, cleanup := setupServiceTest(t)
	defer cleanup()

	ctx := context.Background()
	for i := 0; i < 60; i++ {
		trackN(t, svc, fmt.Sprintf("App %d", i), ActionView, 1)
	}

	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{"default when zero", 0, 10},
		{"default when negative", -5, 10},
		{"explicit limit", 20, 20},
		{"clamped to 50", 500, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := svc.Popular(ctx, tt.limit, "7d")
			if err != nil {
				t.Fatalf("Popular failed: %v", err)
			}
			if len(result.Apps) != tt.want {
				t.Errorf("len(Apps) = %d, want %d", len(result.Apps), tt.want)
			}
		})
	}
}

func TestPopular_InvalidTimeframeDefaults(t *testing.T) {
	svc, _, cleanup := setupServiceTest(t)
	defer cleanup()

	result, err := svc.Popular(context.Background(), 10, "90d")
	if err != nil {
		t.Fatalf("Popular failed: %v", err)
	}
	if result.Timeframe != "7d" {
		t.Errorf("Timeframe = %q, want default 7d", result.Timeframe)
	}
}

func TestPopular_ReadsAreIdempotent(t *testing.T) {
	svc, _, cleanup := setupServiceTest(t)
	defer cleanup()

	trackN(t, svc, "Steam", ActionView, 3)
	trackN(t, svc, "Steam", ActionInstall, 1)

	first, err := svc.Popular(context.Background(), 10, "7d")
	if err != nil {
		t.Fatalf("Popular failed: %v", err)
	}
	second, err := svc.Popular(context.Background(), 10, "7d")
	if err != nil {
		t.Fatalf("Popular failed: %v", err)
	}
	if !reflect.DeepEqual(first.Apps, second.Apps) {
		t.Errorf("Repeated reads differ: %+v vs %+v", first.Apps, second.Apps)
	}
}

func TestPopular_SilentDegradationOnStoreFailure(t *testing.T) {
	svc, mr, cleanup := setupServiceTest(t)
	defer cleanup()

	trackN(t, svc, "Discord", ActionView, 1)
	mr.Close()

	result, err := svc.Popular(context.Background(), 10, "7d")
	if err != nil {
		t.Fatalf("Popular must not propagate store errors, got %v", err)
	}
	if len(result.Apps) != 0 {
		t.Errorf("Expected empty list on store failure, got %d apps", len(result.Apps))
	}
}

func TestPopular_MissingAggregateScoresZero(t *testing.T) {
	svc, _, cleanup := setupServiceTest(t)
	defer cleanup()

	ctx := context.Background()

	// Index entry without a backing app aggregate (expired hash, live index)
	ts := float64(svc.now().UnixMilli())
	if err := svc.store.ZAdd(ctx, "popular_apps_sorted", "Ghost App", ts); err != nil {
		t.Fatalf("ZAdd failed: %v", err)
	}

	result, err := svc.Popular(ctx, 10, "7d")
	if err != nil {
		t.Fatalf("Popular failed: %v", err)
	}
	if result.TotalFound != 1 {
		t.Fatalf("TotalFound = %d, want 1", result.TotalFound)
	}
	if result.Apps[0].Score != 0 {
		t.Errorf("Ghost app score = %d, want 0", result.Apps[0].Score)
	}
}
