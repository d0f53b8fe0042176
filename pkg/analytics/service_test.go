package analytics

import (
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/linuxapphub/apphub-analytics/pkg/observability"
	"github.com/linuxapphub/apphub-analytics/pkg/storage"
)

// setupServiceTest wires a service against a miniredis instance with a
// deterministic clock.
func setupServiceTest(t *testing.T) (*Service, *miniredis.Miniredis, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	cfg := storage.DefaultConfig()
	cfg.RedisURL = "redis://" + mr.Addr()
	store, err := storage.NewStore(cfg)
	if err != nil {
		mr.Close()
		t.Fatalf("Failed to create store: %v", err)
	}

	svc := NewService(store, observability.NewLogger(observability.ErrorLevel, io.Discard))
	svc.now = func() time.Time {
		return time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	}

	cleanup := func() {
		store.Close()
		mr.Close()
	}
	return svc, mr, cleanup
}
