package livedata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/RithikaDevaraj/Prakriti/internal/metrics"
	"github.com/RithikaDevaraj/Prakriti/internal/models"
	"github.com/RithikaDevaraj/Prakriti/pkg/logger"
)

const (
	sourcePrimary   = "indianapi"
	sourceSecondary = "open-meteo"
	sourceCache     = "cache"
)

// WeatherService fetches current conditions through a fixed provider chain:
// the keyed primary API when a key is configured, then the keyless secondary,
// then the temporal cache. A fetch fails only when all three produce nothing.
type WeatherService struct {
	apiKey       string
	primaryURL   string
	secondaryURL string
	http         *http.Client
	cache        *TemporalCache
	gazetteer    *Gazetteer
	cities       map[string][]float64
}

func NewWeatherService(apiKey, primaryURL, secondaryURL string, cities map[string][]float64, cache *TemporalCache) *WeatherService {
	return &WeatherService{
		apiKey:       apiKey,
		primaryURL:   primaryURL,
		secondaryURL: secondaryURL,
		http:         &http.Client{Timeout: 10 * time.Second},
		cache:        cache,
		gazetteer:    NewGazetteer(cities),
		cities:       cities,
	}
}

// Fetch returns current conditions for a named region. The region must match
// a configured city preset (case-insensitive); otherwise only the cache can
// answer.
func (s *WeatherService) Fetch(ctx context.Context, region string) (*models.WeatherObservation, error) {
	if lat, lon, ok := s.coordinates(region); ok {
		obs, err := s.fetchCoords(ctx, lat, lon)
		if err == nil {
			obs.Region = region
			return obs, nil
		}
		logger.Warn("Weather providers exhausted, trying cache",
			zap.String("region", region),
			zap.Error(err),
		)
	}

	return s.cachedWeather(ctx, region)
}

// FetchCoords returns current conditions for raw coordinates, resolving the
// region label through the gazetteer.
func (s *WeatherService) FetchCoords(ctx context.Context, lat, lon float64) (*models.WeatherObservation, error) {
	region, ok := s.gazetteer.Resolve(lat, lon)
	if !ok {
		region = FormatCoordinates(lat, lon)
	}

	obs, err := s.fetchCoords(ctx, lat, lon)
	if err == nil {
		obs.Region = region
		return obs, nil
	}

	return s.cachedWeather(ctx, region)
}

func (s *WeatherService) fetchCoords(ctx context.Context, lat, lon float64) (*models.WeatherObservation, error) {
	var primaryErr error
	if s.apiKey != "" {
		obs, err := s.fetchPrimary(ctx, lat, lon)
		if err == nil {
			return obs, nil
		}
		primaryErr = err
		metrics.ProviderFallbacks.WithLabelValues(string(FeedWeather), sourcePrimary).Inc()
		logger.Warn("Primary weather provider failed, falling back",
			zap.Float64("lat", lat),
			zap.Float64("lon", lon),
			zap.Error(err),
		)
	}

	obs, err := s.fetchSecondary(ctx, lat, lon)
	if err == nil {
		return obs, nil
	}
	metrics.ProviderFallbacks.WithLabelValues(string(FeedWeather), sourceSecondary).Inc()

	if primaryErr != nil {
		return nil, fmt.Errorf("primary: %v; secondary: %w", primaryErr, err)
	}
	return nil, err
}

type primaryWeatherResponse struct {
	Location string `json:"location"`
	Current  struct {
		Temperature *float64 `json:"temperature"`
		Humidity    *float64 `json:"humidity"`
		Condition   string   `json:"condition"`
		WindSpeed   *float64 `json:"wind_speed"`
	} `json:"current"`
}

func (s *WeatherService) fetchPrimary(ctx context.Context, lat, lon float64) (*models.WeatherObservation, error) {
	endpoint := fmt.Sprintf("%s?location=%s", s.primaryURL,
		url.QueryEscape(fmt.Sprintf("%f,%f", lat, lon)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build primary weather request: %w", err)
	}
	req.Header.Set("x-api-key", s.apiKey)

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("primary weather request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("primary weather provider returned status %d", resp.StatusCode)
	}

	var payload primaryWeatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode primary weather response: %w", err)
	}
	if payload.Current.Temperature == nil {
		return nil, fmt.Errorf("primary weather response missing temperature")
	}

	condition := payload.Current.Condition
	if condition == "" {
		condition = "Unknown"
	}

	obs := &models.WeatherObservation{
		Region:      payload.Location,
		Temperature: *payload.Current.Temperature,
		Humidity:    payload.Current.Humidity,
		WindSpeed:   payload.Current.WindSpeed,
		Condition:   condition,
		Timestamp:   time.Now(),
		Source:      sourcePrimary,
	}
	obs.Impact = assessImpact(obs.Temperature, obs.Humidity, obs.Precipitation, obs.CloudCover, obs.Condition)

	return obs, nil
}

type secondaryWeatherResponse struct {
	Current struct {
		Temperature   *float64 `json:"temperature_2m"`
		WindGusts     *float64 `json:"wind_gusts_10m"`
		Precipitation *float64 `json:"precipitation"`
		WeatherCode   *int     `json:"weather_code"`
		CloudCover    *float64 `json:"cloud_cover"`
	} `json:"current"`
}

func (s *WeatherService) fetchSecondary(ctx context.Context, lat, lon float64) (*models.WeatherObservation, error) {
	params := url.Values{}
	params.Set("latitude", fmt.Sprintf("%f", lat))
	params.Set("longitude", fmt.Sprintf("%f", lon))
	params.Set("current", strings.Join([]string{
		"temperature_2m",
		"is_day",
		"wind_gusts_10m",
		"precipitation",
		"weather_code",
		"cloud_cover",
	}, ","))

	endpoint := s.secondaryURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build secondary weather request: %w", err)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("secondary weather request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("secondary weather provider returned status %d", resp.StatusCode)
	}

	var payload secondaryWeatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode secondary weather response: %w", err)
	}
	if payload.Current.Temperature == nil {
		return nil, fmt.Errorf("secondary weather response missing temperature")
	}

	condition := "Unknown"
	if payload.Current.WeatherCode != nil {
		condition = conditionForCode(*payload.Current.WeatherCode)
	}

	obs := &models.WeatherObservation{
		Temperature:   *payload.Current.Temperature,
		WindSpeed:     payload.Current.WindGusts,
		Precipitation: payload.Current.Precipitation,
		CloudCover:    payload.Current.CloudCover,
		Condition:     condition,
		Timestamp:     time.Now(),
		Source:        sourceSecondary,
	}
	obs.Impact = assessImpact(obs.Temperature, obs.Humidity, obs.Precipitation, obs.CloudCover, obs.Condition)

	return obs, nil
}

// cachedWeather serves the last persisted snapshot when it is still inside
// the weather retention horizon.
func (s *WeatherService) cachedWeather(ctx context.Context, region string) (*models.WeatherObservation, error) {
	obs, err := s.cache.CurrentWeather(ctx, region)
	if err != nil || obs == nil || !s.cache.Fresh(FeedWeather, obs.Timestamp) {
		metrics.CacheMisses.WithLabelValues(string(FeedWeather)).Inc()
		if err != nil {
			logger.Error("Weather cache read failed", zap.String("region", region), zap.Error(err))
		}
		return nil, ErrUnavailable
	}

	metrics.CacheHits.WithLabelValues(string(FeedWeather)).Inc()
	logger.Info("Serving weather from temporal cache", zap.String("region", region))

	obs.Source = sourceCache
	return obs, nil
}

func (s *WeatherService) coordinates(region string) (float64, float64, bool) {
	for name, coords := range s.cities {
		if len(coords) == 2 && strings.EqualFold(name, region) {
			return coords[0], coords[1], true
		}
	}
	return 0, 0, false
}
