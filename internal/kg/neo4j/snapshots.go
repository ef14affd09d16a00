package neo4j

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/RithikaDevaraj/Prakriti/internal/models"
	"github.com/RithikaDevaraj/Prakriti/pkg/logger"
)

// Live-data snapshots are stored as LiveWeatherData and LiveMarketPrice nodes.
// Timestamps are persisted as RFC3339 UTC strings so lexical comparison in
// Cypher is chronological.

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTimestamp(raw interface{}) time.Time {
	s, ok := raw.(string)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func optFloat(p *float64) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func floatProp(props map[string]interface{}, key string) *float64 {
	raw, ok := props[key]
	if !ok || raw == nil {
		return nil
	}
	switch v := raw.(type) {
	case float64:
		return &v
	case int64:
		f := float64(v)
		return &f
	}
	return nil
}

// MarkWeatherStale flips every snapshot for the region to is_current = false.
func (c *Client) MarkWeatherStale(ctx context.Context, region string) error {
	return c.executeWithRetry(ctx, func(session neo4j.SessionWithContext) error {
		query := `
			MATCH (w:LiveWeatherData)
			WHERE w.region = $region
			SET w.is_current = false
		`
		_, err := session.Run(ctx, query, map[string]interface{}{"region": region})
		if err != nil {
			return fmt.Errorf("failed to mark weather snapshots stale: %w", err)
		}
		return nil
	})
}

func (c *Client) InsertWeatherSnapshot(ctx context.Context, obs models.WeatherObservation) error {
	return c.executeWithRetry(ctx, func(session neo4j.SessionWithContext) error {
		query := `
			CREATE (w:LiveWeatherData {
				region: $region,
				temperature: $temperature,
				humidity: $humidity,
				weather_condition: $weather_condition,
				wind_speed: $wind_speed,
				precipitation: $precipitation,
				cloud_cover: $cloud_cover,
				pressure: $pressure,
				agricultural_impact: $agricultural_impact,
				timestamp: $timestamp,
				is_current: $is_current
			})
		`
		_, err := session.Run(ctx, query, map[string]interface{}{
			"region":              obs.Region,
			"temperature":         obs.Temperature,
			"humidity":            optFloat(obs.Humidity),
			"weather_condition":   obs.Condition,
			"wind_speed":          optFloat(obs.WindSpeed),
			"precipitation":       optFloat(obs.Precipitation),
			"cloud_cover":         optFloat(obs.CloudCover),
			"pressure":            optFloat(obs.Pressure),
			"agricultural_impact": obs.Impact,
			"timestamp":           formatTimestamp(obs.Timestamp),
			"is_current":          obs.IsCurrent,
		})
		if err != nil {
			return fmt.Errorf("failed to insert weather snapshot: %w", err)
		}

		logger.Debug("Weather snapshot stored in KG", zap.String("region", obs.Region))
		return nil
	})
}

// CurrentWeatherSnapshot returns the current snapshot for a region, or nil
// when none exists.
func (c *Client) CurrentWeatherSnapshot(ctx context.Context, region string) (*models.WeatherObservation, error) {
	var obs *models.WeatherObservation

	err := c.executeWithRetry(ctx, func(session neo4j.SessionWithContext) error {
		query := `
			MATCH (w:LiveWeatherData)
			WHERE w.region = $region AND w.is_current = true
			RETURN w
			ORDER BY w.timestamp DESC
			LIMIT 1
		`
		result, err := session.Run(ctx, query, map[string]interface{}{"region": region})
		if err != nil {
			return fmt.Errorf("failed to read weather snapshot: %w", err)
		}

		if result.Next(ctx) {
			raw, ok := result.Record().Get("w")
			if ok {
				if node, ok := raw.(neo4j.Node); ok {
					o := nodeToWeather(node)
					obs = &o
				}
			}
		}

		return result.Err()
	})

	if err != nil {
		return nil, err
	}

	return obs, nil
}

// DeleteWeatherBefore removes snapshots older than the cutoff regardless of
// their current flag, returning the number deleted.
func (c *Client) DeleteWeatherBefore(ctx context.Context, cutoff time.Time) (int, error) {
	return c.deleteSnapshotsBefore(ctx, "LiveWeatherData", cutoff)
}

// UpdateMarketPrice refreshes an existing row keyed by commodity+market+date
// in place, marking it current again. Returns false when no such row exists.
func (c *Client) UpdateMarketPrice(ctx context.Context, p models.MarketPrice) (bool, error) {
	var updated bool

	err := c.executeWithRetry(ctx, func(session neo4j.SessionWithContext) error {
		query := `
			MATCH (m:LiveMarketPrice)
			WHERE m.commodity = $commodity
			  AND m.market = $market
			  AND m.date = $date
			SET m.variety = $variety,
			    m.price = $price,
			    m.unit = $unit,
			    m.district = $district,
			    m.state = $state,
			    m.timestamp = $timestamp,
			    m.is_current = true
			RETURN count(m) AS updated
		`
		result, err := session.Run(ctx, query, map[string]interface{}{
			"commodity": p.Commodity,
			"market":    p.Market,
			"date":      p.Date,
			"variety":   p.Variety,
			"price":     p.Price,
			"unit":      p.Unit,
			"district":  p.District,
			"state":     p.State,
			"timestamp": formatTimestamp(p.Timestamp),
		})
		if err != nil {
			return fmt.Errorf("failed to update market price: %w", err)
		}

		if result.Next(ctx) {
			raw, _ := result.Record().Get("updated")
			if n, ok := raw.(int64); ok {
				updated = n > 0
			}
		}

		return result.Err()
	})

	if err != nil {
		return false, err
	}

	return updated, nil
}

// MarkMarketStale flips every row for a commodity+market pair to
// is_current = false.
func (c *Client) MarkMarketStale(ctx context.Context, commodity, market string) error {
	return c.executeWithRetry(ctx, func(session neo4j.SessionWithContext) error {
		query := `
			MATCH (m:LiveMarketPrice)
			WHERE m.commodity = $commodity AND m.market = $market
			SET m.is_current = false
		`
		_, err := session.Run(ctx, query, map[string]interface{}{
			"commodity": commodity,
			"market":    market,
		})
		if err != nil {
			return fmt.Errorf("failed to mark market prices stale: %w", err)
		}
		return nil
	})
}

func (c *Client) InsertMarketPrice(ctx context.Context, p models.MarketPrice) error {
	return c.executeWithRetry(ctx, func(session neo4j.SessionWithContext) error {
		query := `
			CREATE (m:LiveMarketPrice {
				commodity: $commodity,
				variety: $variety,
				market: $market,
				district: $district,
				state: $state,
				price: $price,
				unit: $unit,
				date: $date,
				timestamp: $timestamp,
				is_current: $is_current
			})
		`
		_, err := session.Run(ctx, query, map[string]interface{}{
			"commodity":  p.Commodity,
			"variety":    p.Variety,
			"market":     p.Market,
			"district":   p.District,
			"state":      p.State,
			"price":      p.Price,
			"unit":       p.Unit,
			"date":       p.Date,
			"timestamp":  formatTimestamp(p.Timestamp),
			"is_current": p.IsCurrent,
		})
		if err != nil {
			return fmt.Errorf("failed to insert market price: %w", err)
		}
		return nil
	})
}

// CurrentMarketPrices returns the current rows for a commodity, newest first.
// An empty commodity matches all rows.
func (c *Client) CurrentMarketPrices(ctx context.Context, commodity string, limit int) ([]models.MarketPrice, error) {
	if limit <= 0 {
		limit = 50
	}

	var prices []models.MarketPrice

	err := c.executeWithRetry(ctx, func(session neo4j.SessionWithContext) error {
		query := `
			MATCH (m:LiveMarketPrice)
			WHERE m.is_current = true
			  AND ($commodity = '' OR toLower(m.commodity) = toLower($commodity))
			RETURN m
			ORDER BY m.timestamp DESC
			LIMIT $limit
		`
		result, err := session.Run(ctx, query, map[string]interface{}{
			"commodity": commodity,
			"limit":     limit,
		})
		if err != nil {
			return fmt.Errorf("failed to read market prices: %w", err)
		}

		for result.Next(ctx) {
			raw, ok := result.Record().Get("m")
			if !ok {
				continue
			}
			if node, ok := raw.(neo4j.Node); ok {
				prices = append(prices, nodeToMarketPrice(node))
			}
		}

		return result.Err()
	})

	if err != nil {
		return nil, err
	}

	return prices, nil
}

// DeleteMarketBefore removes rows older than the cutoff regardless of their
// current flag, returning the number deleted.
func (c *Client) DeleteMarketBefore(ctx context.Context, cutoff time.Time) (int, error) {
	return c.deleteSnapshotsBefore(ctx, "LiveMarketPrice", cutoff)
}

func (c *Client) deleteSnapshotsBefore(ctx context.Context, label string, cutoff time.Time) (int, error) {
	var deleted int

	err := c.executeWithRetry(ctx, func(session neo4j.SessionWithContext) error {
		query := fmt.Sprintf(`
			MATCH (n:%s)
			WHERE n.timestamp < $cutoff
			DETACH DELETE n
		`, label)

		result, err := session.Run(ctx, query, map[string]interface{}{
			"cutoff": formatTimestamp(cutoff),
		})
		if err != nil {
			return fmt.Errorf("failed to delete expired snapshots: %w", err)
		}

		summary, err := result.Consume(ctx)
		if err != nil {
			return fmt.Errorf("failed to consume delete result: %w", err)
		}
		deleted = summary.Counters().NodesDeleted()

		return nil
	})

	if err != nil {
		return 0, err
	}

	if deleted > 0 {
		logger.Info("Expired snapshots deleted",
			zap.String("label", label),
			zap.Int("deleted", deleted),
		)
	}

	return deleted, nil
}

func nodeToWeather(node neo4j.Node) models.WeatherObservation {
	props := node.Props
	obs := models.WeatherObservation{
		Region:        stringProp(props, "region"),
		Condition:     stringProp(props, "weather_condition"),
		Impact:        stringProp(props, "agricultural_impact"),
		Humidity:      floatProp(props, "humidity"),
		WindSpeed:     floatProp(props, "wind_speed"),
		Precipitation: floatProp(props, "precipitation"),
		CloudCover:    floatProp(props, "cloud_cover"),
		Pressure:      floatProp(props, "pressure"),
		Timestamp:     parseTimestamp(props["timestamp"]),
		Source:        "cache",
	}
	if t := floatProp(props, "temperature"); t != nil {
		obs.Temperature = *t
	}
	if current, ok := props["is_current"].(bool); ok {
		obs.IsCurrent = current
	}
	return obs
}

func nodeToMarketPrice(node neo4j.Node) models.MarketPrice {
	props := node.Props
	p := models.MarketPrice{
		Commodity: stringProp(props, "commodity"),
		Variety:   stringProp(props, "variety"),
		Market:    stringProp(props, "market"),
		District:  stringProp(props, "district"),
		State:     stringProp(props, "state"),
		Unit:      stringProp(props, "unit"),
		Date:      stringProp(props, "date"),
		Timestamp: parseTimestamp(props["timestamp"]),
	}
	if price := floatProp(props, "price"); price != nil {
		p.Price = *price
	}
	if current, ok := props["is_current"].(bool); ok {
		p.IsCurrent = current
	}
	return p
}

func stringProp(props map[string]interface{}, key string) string {
	if s, ok := props[key].(string); ok {
		return s
	}
	return ""
}
