package repository

import (
	"context"
	"log/slog"
	"sync"

	"github.com/hray3182/planbot/internal/metrics"
)

// TimezoneSnapshotter loads and saves the userID -> zone mapping.
type TimezoneSnapshotter interface {
	LoadTimezones(ctx context.Context) (map[int64]string, error)
	SaveTimezones(ctx context.Context, zones map[int64]string) error
}

// TimezoneRepository is the persisted userID -> timezone identifier mapping.
type TimezoneRepository struct {
	mu      sync.Mutex
	zones   map[int64]string
	snap    TimezoneSnapshotter
	metrics *metrics.Metrics
	log     *slog.Logger
}

// NewTimezoneRepository loads the mapping from snap, degrading to empty on failure.
func NewTimezoneRepository(ctx context.Context, snap TimezoneSnapshotter, m *metrics.Metrics) *TimezoneRepository {
	r := &TimezoneRepository{
		zones:   map[int64]string{},
		snap:    snap,
		metrics: m,
		log:     slog.Default().With("component", "timezone_repository"),
	}

	zones, err := snap.LoadTimezones(ctx)
	if err != nil {
		r.log.Error("failed to load timezones, starting empty", "error", err)
		return r
	}
	for id, zone := range zones {
		r.zones[id] = zone
	}
	return r
}

// Get returns the stored zone for userID.
func (r *TimezoneRepository) Get(userID int64) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	zone, ok := r.zones[userID]
	return zone, ok
}

// Set stores zone for userID and persists the mapping.
func (r *TimezoneRepository) Set(ctx context.Context, userID int64, zone string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.zones[userID] = zone
	snapshot := make(map[int64]string, len(r.zones))
	for id, z := range r.zones {
		snapshot[id] = z
	}
	if err := r.snap.SaveTimezones(ctx, snapshot); err != nil {
		r.metrics.StoreWriteFailed("timezones")
		r.log.Error("failed to persist timezones", "error", err)
	}
}
