package livedata

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/RithikaDevaraj/Prakriti/internal/metrics"
	"github.com/RithikaDevaraj/Prakriti/internal/models"
	"github.com/RithikaDevaraj/Prakriti/pkg/logger"
)

// Service coordinates live-data enrichment for a query. It turns the
// extracted entities and intent into human-readable context fragments, never
// failing the pipeline: every fetch problem becomes an instructional fragment
// for the response generator instead of an error.
type Service struct {
	weather *WeatherService
	market  *MarketService
	cache   *TemporalCache
}

func NewService(weather *WeatherService, market *MarketService, cache *TemporalCache) *Service {
	return &Service{
		weather: weather,
		market:  market,
		cache:   cache,
	}
}

// Enrich produces context fragments for the query. Weather-flavored intents
// trigger a weather fetch for the extracted region; market-flavored intents a
// price fetch for the extracted crop. Fetched data is persisted through the
// temporal cache so later degraded fetches can fall back to it.
func (s *Service) Enrich(ctx context.Context, extracted models.ExtractedQuery) []string {
	var fragments []string

	intent := string(extracted.Intent)

	if strings.Contains(intent, "weather") {
		fragments = append(fragments, s.weatherFragment(ctx, extracted.Entities.Region))
	}

	if strings.Contains(intent, "market") {
		fragments = append(fragments, s.marketFragments(ctx, extracted.Entities.Crop, extracted.Entities.Region)...)
	}

	logger.Info("Live data enrichment complete",
		zap.String("intent", intent),
		zap.Int("fragments", len(fragments)),
	)

	return fragments
}

func (s *Service) weatherFragment(ctx context.Context, region string) string {
	if region == "" {
		logger.Warn("Weather intent without region")
		return "Please specify a region/city for weather information."
	}

	obs, err := s.weather.Fetch(ctx, region)
	if err != nil {
		logger.Error("Weather fetch failed", zap.String("region", region), zap.Error(err))
		return fmt.Sprintf("Unable to fetch weather data for %s. Please try again later.", region)
	}

	if obs.Source != sourceCache {
		if err := s.cache.UpsertWeather(ctx, *obs); err != nil {
			logger.Error("Failed to persist weather snapshot", zap.String("region", region), zap.Error(err))
		}
	}

	humidity := "N/A"
	if obs.Humidity != nil {
		humidity = fmt.Sprintf("%.0f", *obs.Humidity)
	}
	windSpeed := "N/A"
	if obs.WindSpeed != nil {
		windSpeed = fmt.Sprintf("%.1f", *obs.WindSpeed)
	}
	impact := obs.Impact
	if impact == "" {
		impact = "Monitor conditions"
	}

	return fmt.Sprintf(
		"Weather in %s: Temperature %.1f°C, Humidity %s%%, Condition: %s, Wind Speed: %s m/s. Agricultural Impact: %s",
		obs.Region, obs.Temperature, humidity, obs.Condition, windSpeed, impact,
	)
}

func (s *Service) marketFragments(ctx context.Context, commodity, district string) []string {
	if commodity == "" {
		return []string{"Please specify a commodity/crop name for market price information."}
	}

	prices, fromCache, err := s.market.FetchPrices(ctx, commodity, district)
	if err != nil {
		if errors.Is(err, ErrNotConfigured) {
			logger.Error("Market price feed not configured")
			return []string{fmt.Sprintf("Market price data for %s cannot be fetched because the price feed credential is missing. Please provide general market information based on your knowledge.", commodity)}
		}
		logger.Error("Market price fetch failed", zap.String("commodity", commodity), zap.Error(err))
		return []string{fmt.Sprintf("Unable to fetch current market prices for %s. Please provide general market information based on your knowledge.", commodity)}
	}

	if len(prices) == 0 {
		return []string{fmt.Sprintf("Market price data for %s is currently unavailable. Please provide general market information based on your knowledge.", commodity)}
	}

	if !fromCache {
		if err := s.cache.UpsertMarketPrices(ctx, prices); err != nil {
			logger.Error("Failed to persist market prices", zap.String("commodity", commodity), zap.Error(err))
		}
	}

	sorted := make([]models.MarketPrice, len(prices))
	copy(sorted, prices)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date > sorted[j].Date
	})

	if len(sorted) > 5 {
		sorted = sorted[:5]
	}

	fragments := make([]string, 0, len(sorted))
	for _, p := range sorted {
		location := p.Market
		if location == "" {
			location = p.District
		}
		if location == "" {
			location = p.State
		}
		if location == "" {
			location = "N/A"
		}

		variety := ""
		if p.Variety != "" {
			variety = ", " + p.Variety
		}

		fragments = append(fragments, fmt.Sprintf(
			"%s%s (%s, %s): ₹%.2f per %s",
			p.Commodity, variety, location, p.Date, p.Price, p.Unit,
		))
	}

	return fragments
}

// RefreshWeather fetches and persists current conditions for a region. Used
// by the background scheduler.
func (s *Service) RefreshWeather(ctx context.Context, region string) error {
	obs, err := s.weather.Fetch(ctx, region)
	if err != nil {
		return fmt.Errorf("failed to refresh weather for %s: %w", region, err)
	}
	if obs.Source == sourceCache {
		return nil
	}
	return s.cache.UpsertWeather(ctx, *obs)
}

// RefreshMarket fetches and persists the unfiltered market price feed.
func (s *Service) RefreshMarket(ctx context.Context) error {
	prices, fromCache, err := s.market.FetchPrices(ctx, "", "")
	if err != nil {
		return fmt.Errorf("failed to refresh market prices: %w", err)
	}
	if fromCache || len(prices) == 0 {
		return nil
	}
	return s.cache.UpsertMarketPrices(ctx, prices)
}

// SweepExpired runs retention sweeps for both feeds, logging and counting
// deletions.
func (s *Service) SweepExpired(ctx context.Context) {
	for _, feed := range []Feed{FeedWeather, FeedMarket} {
		deleted, err := s.cache.SweepExpired(ctx, feed)
		if err != nil {
			logger.Error("Retention sweep failed", zap.String("feed", string(feed)), zap.Error(err))
			continue
		}
		if deleted > 0 {
			metrics.SnapshotsSwept.WithLabelValues(string(feed)).Add(float64(deleted))
		}
	}
}
