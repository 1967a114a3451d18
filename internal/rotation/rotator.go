package rotation

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/slotserve/slotserve/internal/models"
	"github.com/slotserve/slotserve/internal/observability"
	"github.com/slotserve/slotserve/internal/store"
)

// ErrNoAd is returned when a slot has no servable ad: its queue is empty or
// contains only stale entries.
var ErrNoAd = errors.New("no ad available")

// Rotator implements round-robin ad selection over a slot's queue. Each call
// rotates the queue head to its tail; ids whose backing ad record is gone
// are evicted from the queue so they are never returned to a caller.
type Rotator struct {
	store   *store.Store
	logger  *zap.Logger
	metrics observability.MetricsRegistry
}

// New constructs a Rotator on the given store.
func New(s *store.Store, logger *zap.Logger, metrics observability.MetricsRegistry) *Rotator {
	return &Rotator{store: s, logger: logger, metrics: metrics}
}

// Next returns the next ad for the slot. The walk is a bounded loop: on each
// pass it rotates one id and looks the ad up; a miss evicts every occurrence
// of the id and continues. Seeing an already-evicted id again means the
// queue is being refilled concurrently while it holds no valid ads, so the
// walk stops instead of spinning.
func (r *Rotator) Next(ctx context.Context, slot string) (*models.Ad, error) {
	evicted := map[string]struct{}{}

	for {
		id, err := r.store.Rotate(ctx, slot)
		if err == store.ErrNotFound {
			return nil, ErrNoAd
		}
		if err != nil {
			return nil, err
		}
		r.metrics.IncrementRotations(slot)

		if _, seen := evicted[id]; seen {
			return nil, ErrNoAd
		}

		ad, err := r.store.Get(ctx, slot, id)
		if err == nil {
			return ad, nil
		}
		if err != store.ErrNotFound {
			return nil, err
		}

		// Stale entry: the queue outlived the ad record. Drop every
		// occurrence so later walks never touch it again.
		if err := r.store.EvictQueueEntry(ctx, slot, id); err != nil {
			return nil, err
		}
		evicted[id] = struct{}{}
		r.metrics.IncrementStaleEvictions(slot)
		r.logger.Warn("evicted stale queue entry",
			zap.String("slot", slot),
			zap.String("ad_id", id))
	}
}
