package rotation

import (
	"context"
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/slotserve/slotserve/internal/observability"
	"github.com/slotserve/slotserve/internal/store"
)

func newTestRotator(t *testing.T) (*Rotator, *store.Store) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	s := store.New(client, "slotserve")
	return New(s, zap.NewNop(), &observability.MockMetricsRegistry{}), s
}

func TestRotationFairness(t *testing.T) {
	r, s := newTestRotator(t)
	ctx := context.Background()

	const n = 4
	for i := 0; i < n; i++ {
		_, err := s.Create(ctx, "1", "ad "+strconv.Itoa(i), "video/mp4", "advr-1", "", nil)
		require.NoError(t, err)
	}

	// Two full cycles: each id exactly once per cycle, in insertion order.
	for cycle := 0; cycle < 2; cycle++ {
		for want := int64(1); want <= n; want++ {
			ad, err := r.Next(ctx, "1")
			require.NoError(t, err)
			assert.Equal(t, want, ad.ID)
		}
	}
}

func TestEmptySlot(t *testing.T) {
	r, _ := newTestRotator(t)

	_, err := r.Next(context.Background(), "nothing-here")
	assert.ErrorIs(t, err, ErrNoAd)
}

func TestStaleEntrySelfHealing(t *testing.T) {
	r, s := newTestRotator(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.Create(ctx, "1", "t", "video/mp4", "advr-1", "", nil)
		require.NoError(t, err)
	}
	// Corrupt the middle entry: delete its metadata hash but leave the
	// queue untouched, as an external reset would.
	require.NoError(t, s.Client.Del(ctx, "slotserve:ad:1-2").Err())

	seen := map[int64]int{}
	for i := 0; i < 4; i++ {
		ad, err := r.Next(ctx, "1")
		require.NoError(t, err)
		seen[ad.ID]++
	}
	assert.Zero(t, seen[2], "stale id must never reach a caller")
	assert.Equal(t, 2, seen[1])
	assert.Equal(t, 2, seen[3])

	// One pass is enough to remove the stale id permanently.
	ids, err := s.QueueIDs(ctx, "1")
	require.NoError(t, err)
	assert.NotContains(t, ids, "2")
	assert.Len(t, ids, 2)
}

func TestAllEntriesStale(t *testing.T) {
	r, s := newTestRotator(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.Create(ctx, "1", "t", "video/mp4", "advr-1", "", nil)
		require.NoError(t, err)
	}
	for _, id := range []string{"1", "2", "3"} {
		require.NoError(t, s.Client.Del(ctx, "slotserve:ad:1-"+id).Err())
	}

	_, err := r.Next(ctx, "1")
	assert.ErrorIs(t, err, ErrNoAd)

	n, err := s.QueueLen(ctx, "1")
	require.NoError(t, err)
	assert.Zero(t, n, "stale ids are all evicted during the walk")
}
