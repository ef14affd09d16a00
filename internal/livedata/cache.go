package livedata

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/RithikaDevaraj/Prakriti/internal/models"
	"github.com/RithikaDevaraj/Prakriti/pkg/logger"
)

// Feed is one category of externally sourced live data.
type Feed string

const (
	FeedWeather Feed = "weather"
	FeedMarket  Feed = "market"
)

const (
	weatherRetention = 7 * 24 * time.Hour
	marketRetention  = 30 * 24 * time.Hour
)

// SnapshotStore is the slice of the knowledge store the temporal cache needs.
// *neo4j.Client satisfies it; tests use an in-memory fake.
type SnapshotStore interface {
	MarkWeatherStale(ctx context.Context, region string) error
	InsertWeatherSnapshot(ctx context.Context, obs models.WeatherObservation) error
	CurrentWeatherSnapshot(ctx context.Context, region string) (*models.WeatherObservation, error)
	DeleteWeatherBefore(ctx context.Context, cutoff time.Time) (int, error)

	UpdateMarketPrice(ctx context.Context, p models.MarketPrice) (bool, error)
	MarkMarketStale(ctx context.Context, commodity, market string) error
	InsertMarketPrice(ctx context.Context, p models.MarketPrice) error
	CurrentMarketPrices(ctx context.Context, commodity string, limit int) ([]models.MarketPrice, error)
	DeleteMarketBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// TemporalCache versions live-data snapshots in the knowledge store. Each
// upsert invalidates the prior current snapshot(s) for the subject key before
// inserting the new one, so at most one snapshot per key carries
// is_current = true.
//
// The invalidate and insert steps are separate store statements. Two
// concurrent upserts for the same key can interleave and briefly leave two
// current records until the next writer's invalidation pass; the store offers
// only per-statement atomicity, so this is an accepted eventual-consistency
// gap rather than something papered over with cross-process locking.
type TemporalCache struct {
	store SnapshotStore
	now   func() time.Time
}

func NewTemporalCache(store SnapshotStore) *TemporalCache {
	return &TemporalCache{
		store: store,
		now:   time.Now,
	}
}

// Retention returns the feed-specific horizon past which snapshots are swept.
func (tc *TemporalCache) Retention(feed Feed) time.Duration {
	if feed == FeedMarket {
		return marketRetention
	}
	return weatherRetention
}

// UpsertWeather makes obs the single current snapshot for its region.
func (tc *TemporalCache) UpsertWeather(ctx context.Context, obs models.WeatherObservation) error {
	if obs.Region == "" {
		return fmt.Errorf("weather observation has no region")
	}
	if obs.Timestamp.IsZero() {
		obs.Timestamp = tc.now()
	}
	obs.IsCurrent = true

	if err := tc.store.MarkWeatherStale(ctx, obs.Region); err != nil {
		return fmt.Errorf("failed to invalidate weather snapshots for %s: %w", obs.Region, err)
	}
	if err := tc.store.InsertWeatherSnapshot(ctx, obs); err != nil {
		return fmt.Errorf("failed to insert weather snapshot for %s: %w", obs.Region, err)
	}

	logger.Debug("Weather snapshot upserted", zap.String("region", obs.Region))
	return nil
}

// CurrentWeather returns the current snapshot for a region, or nil when none
// exists. Freshness is the caller's concern.
func (tc *TemporalCache) CurrentWeather(ctx context.Context, region string) (*models.WeatherObservation, error) {
	return tc.store.CurrentWeatherSnapshot(ctx, region)
}

// UpsertMarketPrices writes a batch of price rows. Rows whose
// commodity+market+date key already exists are refreshed in place; otherwise
// prior rows for the commodity+market pair are invalidated and the new row
// inserted as current.
func (tc *TemporalCache) UpsertMarketPrices(ctx context.Context, prices []models.MarketPrice) error {
	for _, p := range prices {
		if p.Timestamp.IsZero() {
			p.Timestamp = tc.now()
		}
		p.IsCurrent = true

		updated, err := tc.store.UpdateMarketPrice(ctx, p)
		if err != nil {
			return fmt.Errorf("failed to update market price for %s/%s: %w", p.Commodity, p.Market, err)
		}
		if updated {
			continue
		}

		if err := tc.store.MarkMarketStale(ctx, p.Commodity, p.Market); err != nil {
			return fmt.Errorf("failed to invalidate market prices for %s/%s: %w", p.Commodity, p.Market, err)
		}
		if err := tc.store.InsertMarketPrice(ctx, p); err != nil {
			return fmt.Errorf("failed to insert market price for %s/%s: %w", p.Commodity, p.Market, err)
		}
	}

	logger.Debug("Market prices upserted", zap.Int("rows", len(prices)))
	return nil
}

// CurrentMarketPrices returns up to limit current rows for a commodity,
// newest first.
func (tc *TemporalCache) CurrentMarketPrices(ctx context.Context, commodity string, limit int) ([]models.MarketPrice, error) {
	return tc.store.CurrentMarketPrices(ctx, commodity, limit)
}

// SweepExpired deletes snapshots older than the feed's retention horizon,
// regardless of their current flag.
func (tc *TemporalCache) SweepExpired(ctx context.Context, feed Feed) (int, error) {
	cutoff := tc.now().Add(-tc.Retention(feed))

	switch feed {
	case FeedWeather:
		return tc.store.DeleteWeatherBefore(ctx, cutoff)
	case FeedMarket:
		return tc.store.DeleteMarketBefore(ctx, cutoff)
	default:
		return 0, fmt.Errorf("unknown feed: %s", feed)
	}
}

// Fresh reports whether a snapshot timestamp is still inside the feed's
// retention horizon.
func (tc *TemporalCache) Fresh(feed Feed, ts time.Time) bool {
	if ts.IsZero() {
		return false
	}
	return tc.now().Sub(ts) <= tc.Retention(feed)
}
