package analytics

import (
	"time"

	"github.com/linuxapphub/apphub-analytics/pkg/observability"
	"github.com/linuxapphub/apphub-analytics/pkg/storage"
)

// Service implements event tracking, popularity ranking, and stats reporting
// on top of the Redis store.
type Service struct {
	store  *storage.Store
	logger *observability.Logger

	// now is swappable for tests
	now func() time.Time
}

// NewService creates an analytics service.
func NewService(store *storage.Store, logger *observability.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}
