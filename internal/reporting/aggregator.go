package reporting

import (
	"context"
	"strconv"
	"strings"

	"github.com/avct/uasurfer"
	"go.uber.org/zap"

	"github.com/slotserve/slotserve/internal/clicklog"
	"github.com/slotserve/slotserve/internal/models"
	"github.com/slotserve/slotserve/internal/store"
)

// ageUnknown marks a click whose token carried no parseable age.
const ageUnknown = -1

// Aggregator joins an advertiser's click log with the stored ad state to
// produce summary and breakdown reports. Nothing is cached: every report is
// recomputed from the log and the store at request time.
type Aggregator struct {
	store  *store.Store
	clicks *clicklog.Log
	logger *zap.Logger
}

// New constructs an Aggregator.
func New(s *store.Store, clicks *clicklog.Log, logger *zap.Logger) *Aggregator {
	return &Aggregator{store: s, clicks: clicks, logger: logger}
}

// Report returns one row per ad with its impression and click counts. Ad ids
// that appear only in the click log still get a clicks-only row so the
// report is never silently lossy.
func (a *Aggregator) Report(ctx context.Context, advertiserID string) (map[string]*models.Report, error) {
	rows, err := a.seedRows(ctx, advertiserID)
	if err != nil {
		return nil, err
	}

	events, err := a.clicks.Events(advertiserID)
	if err != nil {
		return nil, err
	}
	for adID, evs := range events {
		row, ok := rows[adID]
		if !ok {
			row = &models.Report{}
			rows[adID] = row
		}
		row.Clicks = len(evs)
	}
	return rows, nil
}

// FinalReport returns the Report rows with demographic breakdowns attached:
// click counts grouped by gender, raw user agent, decade age bucket and
// device class.
func (a *Aggregator) FinalReport(ctx context.Context, advertiserID string) (map[string]*models.Report, error) {
	rows, err := a.seedRows(ctx, advertiserID)
	if err != nil {
		return nil, err
	}

	events, err := a.clicks.Events(advertiserID)
	if err != nil {
		return nil, err
	}
	for adID, evs := range events {
		if _, ok := rows[adID]; !ok {
			rows[adID] = &models.Report{}
		}
		rows[adID].Clicks = len(evs)
	}

	for adID, row := range rows {
		breakdown := models.NewBreakdown()
		for _, ev := range events[adID] {
			gender, age := decodeUserToken(ev.UserToken)
			breakdown.Gender[gender]++
			breakdown.Agents[ev.Agent]++

			generation := "unknown"
			if age != ageUnknown {
				generation = strconv.Itoa(age / 10)
			}
			breakdown.Generations[generation]++
			breakdown.Devices[deviceClass(ev.Agent)]++
		}
		row.Breakdown = breakdown
	}
	return rows, nil
}

// seedRows builds one summary row per ad the advertiser currently owns.
// Index entries whose hash was deleted by a reset are skipped.
func (a *Aggregator) seedRows(ctx context.Context, advertiserID string) (map[string]*models.Report, error) {
	keys, err := a.store.AdvertiserAdKeys(ctx, advertiserID)
	if err != nil {
		return nil, err
	}

	rows := map[string]*models.Report{}
	for _, key := range keys {
		ad, err := a.store.GetByKey(ctx, key)
		if err == store.ErrNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		rows[strconv.FormatInt(ad.ID, 10)] = &models.Report{
			Ad:          ad,
			Clicks:      0,
			Impressions: ad.Impressions,
		}
	}
	return rows, nil
}

// decodeUserToken splits a click-identity cookie value into gender and age.
// The token format is "<gender>/<age>" where gender "0" means female and
// anything else male. Empty, separator-less or non-numeric tokens decode to
// unknown gender and absent age rather than failing the report.
func decodeUserToken(token string) (string, int) {
	if token == "" {
		return "unknown", ageUnknown
	}
	parts := strings.Split(token, "/")
	gender := "male"
	if parts[0] == "0" {
		gender = "female"
	}
	if len(parts) < 2 {
		return gender, ageUnknown
	}
	age, err := strconv.Atoi(parts[1])
	if err != nil || age < 0 {
		return gender, ageUnknown
	}
	return gender, age
}

// deviceClass maps a raw user agent onto a coarse device bucket.
func deviceClass(agent string) string {
	if agent == "" || agent == "unknown" {
		return "other"
	}
	ua := uasurfer.Parse(agent)
	if ua.IsBot() {
		return "bot"
	}
	switch ua.DeviceType {
	case uasurfer.DeviceComputer:
		return "desktop"
	case uasurfer.DevicePhone:
		return "mobile"
	case uasurfer.DeviceTablet:
		return "tablet"
	default:
		return "other"
	}
}
