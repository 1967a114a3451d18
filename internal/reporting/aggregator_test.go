package reporting

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/slotserve/slotserve/internal/clicklog"
	"github.com/slotserve/slotserve/internal/store"
)

const (
	desktopUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	phoneUA   = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
)

func newTestAggregator(t *testing.T) (*Aggregator, *store.Store, *clicklog.Log) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	s := store.New(client, "slotserve")
	clicks, err := clicklog.New(filepath.Join(t.TempDir(), "log"), zap.NewNop())
	require.NoError(t, err)
	return New(s, clicks, zap.NewNop()), s, clicks
}

func TestReportCounts(t *testing.T) {
	a, s, clicks := newTestAggregator(t)
	ctx := context.Background()

	ad, err := s.Create(ctx, "1", "Video A", "video/mp4", "advr-1", "http://example.com", nil)
	require.NoError(t, err)
	require.NoError(t, s.IncrementImpressions(ctx, "1", "1"))
	require.NoError(t, s.IncrementImpressions(ctx, "1", "1"))

	require.NoError(t, clicks.Record("advr-1", "1", "1/25", desktopUA))
	require.NoError(t, clicks.Record("advr-1", "1", "", ""))

	rows, err := a.Report(ctx, "advr-1")
	require.NoError(t, err)
	require.Contains(t, rows, "1")

	row := rows["1"]
	require.NotNil(t, row.Ad)
	assert.Equal(t, ad.ID, row.Ad.ID)
	assert.Equal(t, int64(2), row.Impressions)
	assert.Equal(t, 2, row.Clicks)
	assert.Nil(t, row.Breakdown, "summary report carries no breakdown")
}

func TestFinalReportBreakdowns(t *testing.T) {
	a, s, clicks := newTestAggregator(t)
	ctx := context.Background()

	_, err := s.Create(ctx, "1", "Video A", "video/mp4", "advr-1", "http://example.com", nil)
	require.NoError(t, err)

	// Two demographically opposite age-25/29 tokens plus one anonymous click.
	require.NoError(t, clicks.Record("advr-1", "1", "1/25", desktopUA))
	require.NoError(t, clicks.Record("advr-1", "1", "0/29", phoneUA))
	require.NoError(t, clicks.Record("advr-1", "1", "", ""))

	rows, err := a.FinalReport(ctx, "advr-1")
	require.NoError(t, err)
	row := rows["1"]
	require.NotNil(t, row)
	assert.Equal(t, 3, row.Clicks)

	b := row.Breakdown
	require.NotNil(t, b)
	assert.Equal(t, map[string]int{"male": 1, "female": 1, "unknown": 1}, b.Gender)
	assert.Equal(t, 2, b.Generations["2"], "ages 25 and 29 share the decade bucket")
	assert.Equal(t, 1, b.Generations["unknown"])
	assert.Equal(t, 1, b.Agents[desktopUA])
	assert.Equal(t, 1, b.Agents[phoneUA])
	assert.Equal(t, 1, b.Agents["unknown"])
	assert.Equal(t, 1, b.Devices["desktop"])
	assert.Equal(t, 1, b.Devices["mobile"])
	assert.Equal(t, 1, b.Devices["other"])
}

func TestLogOnlyAdsStillGetRows(t *testing.T) {
	a, _, clicks := newTestAggregator(t)
	ctx := context.Background()

	require.NoError(t, clicks.Record("advr-1", "42", "1/30", desktopUA))

	rows, err := a.Report(ctx, "advr-1")
	require.NoError(t, err)
	require.Contains(t, rows, "42")
	assert.Nil(t, rows["42"].Ad)
	assert.Equal(t, 1, rows["42"].Clicks)

	final, err := a.FinalReport(ctx, "advr-1")
	require.NoError(t, err)
	require.Contains(t, final, "42")
	assert.Equal(t, 1, final["42"].Breakdown.Gender["male"])
}

func TestFinalReportZeroClickAdHasEmptyBreakdown(t *testing.T) {
	a, s, _ := newTestAggregator(t)
	ctx := context.Background()

	_, err := s.Create(ctx, "1", "t", "video/mp4", "advr-1", "", nil)
	require.NoError(t, err)

	rows, err := a.FinalReport(ctx, "advr-1")
	require.NoError(t, err)
	row := rows["1"]
	require.NotNil(t, row.Breakdown)
	assert.Zero(t, row.Clicks)
	assert.Empty(t, row.Breakdown.Gender)
}

func TestDecodeUserToken(t *testing.T) {
	cases := []struct {
		name   string
		token  string
		gender string
		age    int
	}{
		{"empty", "", "unknown", ageUnknown},
		{"female with age", "0/34", "female", 34},
		{"male with age", "1/7", "male", 7},
		{"non-numeric age", "1/abc", "male", ageUnknown},
		{"missing separator", "1", "male", ageUnknown},
		{"negative age", "0/-3", "female", ageUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gender, age := decodeUserToken(tc.token)
			assert.Equal(t, tc.gender, gender)
			assert.Equal(t, tc.age, age)
		})
	}
}
