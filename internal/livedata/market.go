package livedata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/RithikaDevaraj/Prakriti/internal/metrics"
	"github.com/RithikaDevaraj/Prakriti/internal/models"
	"github.com/RithikaDevaraj/Prakriti/pkg/logger"
)

const maxMarketRows = 50

// MarketService fetches commodity prices from the single keyed provider. A
// missing key is a configuration error; a failed fetch falls back to the
// temporal cache.
type MarketService struct {
	apiKey  string
	baseURL string
	http    *http.Client
	cache   *TemporalCache
}

func NewMarketService(apiKey, baseURL string, cache *TemporalCache) *MarketService {
	return &MarketService{
		apiKey:  apiKey,
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		cache:   cache,
	}
}

type marketResponse struct {
	Records []struct {
		Commodity   string `json:"commodity"`
		Variety     string `json:"variety"`
		Market      string `json:"market"`
		District    string `json:"district"`
		State       string `json:"state"`
		ModalPrice  string `json:"modal_price"`
		Unit        string `json:"unit"`
		ArrivalDate string `json:"arrival_date"`
	} `json:"records"`
}

// FetchPrices returns up to 50 price rows for a commodity, optionally scoped
// to a district. The second return reports whether the rows came from the
// temporal cache instead of the provider.
func (s *MarketService) FetchPrices(ctx context.Context, commodity, district string) ([]models.MarketPrice, bool, error) {
	if s.apiKey == "" {
		return nil, false, fmt.Errorf("market price feed: %w", ErrNotConfigured)
	}

	prices, err := s.fetchProvider(ctx, commodity, district)
	if err == nil {
		return prices, false, nil
	}

	metrics.ProviderFallbacks.WithLabelValues(string(FeedMarket), "agmarknet").Inc()
	logger.Warn("Market provider failed, trying cache",
		zap.String("commodity", commodity),
		zap.Error(err),
	)

	cached, cacheErr := s.cache.CurrentMarketPrices(ctx, commodity, maxMarketRows)
	if cacheErr != nil || len(cached) == 0 {
		metrics.CacheMisses.WithLabelValues(string(FeedMarket)).Inc()
		if cacheErr != nil {
			logger.Error("Market cache read failed", zap.String("commodity", commodity), zap.Error(cacheErr))
		}
		return nil, false, fmt.Errorf("market prices for %q: %w", commodity, ErrUnavailable)
	}

	metrics.CacheHits.WithLabelValues(string(FeedMarket)).Inc()
	logger.Info("Serving market prices from temporal cache",
		zap.String("commodity", commodity),
		zap.Int("rows", len(cached)),
	)

	return cached, true, nil
}

func (s *MarketService) fetchProvider(ctx context.Context, commodity, district string) ([]models.MarketPrice, error) {
	params := url.Values{}
	params.Set("api-key", s.apiKey)
	params.Set("format", "json")
	params.Set("limit", "100")
	if commodity != "" {
		params.Set("filters[commodity]", commodity)
	}
	if district != "" {
		params.Set("filters[district]", district)
	}

	endpoint := s.baseURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build market price request: %w", err)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("market price request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("market price provider returned status %d", resp.StatusCode)
	}

	var payload marketResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode market price response: %w", err)
	}

	now := time.Now()
	prices := make([]models.MarketPrice, 0, len(payload.Records))
	for _, record := range payload.Records {
		if len(prices) >= maxMarketRows {
			break
		}

		price := 0.0
		if record.ModalPrice != "" {
			fmt.Sscanf(record.ModalPrice, "%f", &price)
		}

		unit := record.Unit
		if unit == "" {
			unit = "Quintal"
		}
		date := record.ArrivalDate
		if date == "" {
			date = now.Format("2006-01-02")
		}

		prices = append(prices, models.MarketPrice{
			Commodity: record.Commodity,
			Variety:   record.Variety,
			Market:    record.Market,
			District:  record.District,
			State:     record.State,
			Price:     price,
			Unit:      unit,
			Date:      date,
			Timestamp: now,
		})
	}

	return prices, nil
}
