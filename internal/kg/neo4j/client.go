package neo4j

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/RithikaDevaraj/Prakriti/pkg/circuitbreaker"
	"github.com/RithikaDevaraj/Prakriti/pkg/logger"
	"github.com/RithikaDevaraj/Prakriti/pkg/retry"
)

// Entity is one named node from the agricultural knowledge graph. Identity is
// (Label, Name); Properties carries the flat property map minus the name.
type Entity struct {
	Label      string
	Name       string
	Properties map[string]interface{}
}

// Labels the lookup stage is allowed to search. Cypher cannot parameterize
// labels, so anything outside this set is rejected before query assembly.
var searchableLabels = map[string]bool{
	"Crop":          true,
	"Pest":          true,
	"Disease":       true,
	"Region":        true,
	"ControlMethod": true,
	"Fertilizer":    true,
	"Pesticide":     true,
}

// Relationship types are interpolated into Cypher, so they are restricted to
// the conventional upper-snake form.
var relTypePattern = regexp.MustCompile(`^[A-Z][A-Z_]*$`)

type Client struct {
	driver      neo4j.DriverWithContext
	database    string
	cb          *circuitbreaker.CircuitBreaker
	retryConfig retry.Config
}

func NewClient(uri, username, password, database string) (*Client, error) {
	driver, err := neo4j.NewDriverWithContext(
		uri,
		neo4j.BasicAuth(username, password, ""),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	ctx := context.Background()
	err = driver.VerifyConnectivity(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to verify connectivity: %w", err)
	}

	cb := circuitbreaker.NewCircuitBreaker("neo4j", circuitbreaker.Config{
		MaxRequests:      3,
		Interval:         time.Minute,
		Timeout:          20 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	retryConfig := retry.Config{
		MaxAttempts:    3,
		InitialDelay:   200 * time.Millisecond,
		MaxDelay:       3 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
		Logger:         logger.GetLogger(),
	}

	if database == "" {
		database = "neo4j"
	}

	logger.Info("Neo4j client initialized", zap.String("uri", uri), zap.String("database", database))

	return &Client{
		driver:      driver,
		database:    database,
		cb:          cb,
		retryConfig: retryConfig,
	}, nil
}

func (c *Client) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

func (c *Client) executeWithRetry(ctx context.Context, operation func(neo4j.SessionWithContext) error) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return c.cb.Execute(ctx, func() error {
		return retry.Do(ctx, c.retryConfig, func() error {
			session := c.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.database})
			defer session.Close(ctx)
			return operation(session)
		})
	})
}

// SearchEntities runs a case-insensitive substring search for nodes of the
// given label. An unknown label or a term with no matches yields an empty
// slice, not an error.
func (c *Client) SearchEntities(ctx context.Context, label, term string) ([]Entity, error) {
	if !searchableLabels[label] {
		return nil, fmt.Errorf("unknown entity label: %s", label)
	}

	var entities []Entity

	err := c.executeWithRetry(ctx, func(session neo4j.SessionWithContext) error {
		query := fmt.Sprintf(`
			MATCH (n:%s)
			WHERE toLower(n.name) CONTAINS toLower($term)
			RETURN n
			LIMIT 20
		`, label)

		result, err := session.Run(ctx, query, map[string]interface{}{
			"term": term,
		})
		if err != nil {
			return fmt.Errorf("failed to search entities: %w", err)
		}

		for result.Next(ctx) {
			raw, ok := result.Record().Get("n")
			if !ok {
				continue
			}
			node, ok := raw.(neo4j.Node)
			if !ok {
				continue
			}
			entities = append(entities, nodeToEntity(label, node))
		}

		return result.Err()
	})

	if err != nil {
		return nil, err
	}

	logger.Debug("KG entity search completed",
		zap.String("label", label),
		zap.String("term", term),
		zap.Int("results", len(entities)),
	)

	return entities, nil
}

// RelatedEntities fetches the 1-hop outgoing neighborhood of a node, grouped
// by relationship type. A name with no node or no neighbors yields an empty
// map.
func (c *Client) RelatedEntities(ctx context.Context, name string) (map[string][]Entity, error) {
	related := make(map[string][]Entity)

	err := c.executeWithRetry(ctx, func(session neo4j.SessionWithContext) error {
		query := `
			MATCH (a)-[r]->(b)
			WHERE a.name = $name
			RETURN b, type(r) AS rel_type
		`

		result, err := session.Run(ctx, query, map[string]interface{}{
			"name": name,
		})
		if err != nil {
			return fmt.Errorf("failed to fetch related entities: %w", err)
		}

		for result.Next(ctx) {
			record := result.Record()
			raw, ok := record.Get("b")
			if !ok {
				continue
			}
			node, ok := raw.(neo4j.Node)
			if !ok {
				continue
			}
			relType, _ := record.Get("rel_type")
			rel, _ := relType.(string)

			label := ""
			if len(node.Labels) > 0 {
				label = node.Labels[0]
			}
			related[rel] = append(related[rel], nodeToEntity(label, node))
		}

		return result.Err()
	})

	if err != nil {
		return nil, err
	}

	return related, nil
}

// UpsertEntity merges a node by (label, name) and folds the given properties
// into it.
func (c *Client) UpsertEntity(ctx context.Context, label, name string, properties map[string]interface{}) error {
	if !searchableLabels[label] {
		return fmt.Errorf("unknown entity label: %s", label)
	}

	return c.executeWithRetry(ctx, func(session neo4j.SessionWithContext) error {
		query := fmt.Sprintf(`
			MERGE (n:%s {name: $name})
			SET n += $properties
		`, label)

		_, err := session.Run(ctx, query, map[string]interface{}{
			"name":       name,
			"properties": properties,
		})
		if err != nil {
			return fmt.Errorf("failed to upsert entity: %w", err)
		}

		logger.Debug("Entity upserted in KG", zap.String("label", label), zap.String("name", name))
		return nil
	})
}

// UpsertRelation merges a typed relationship between two nodes matched by
// name. Missing endpoints make this a no-op rather than an error.
func (c *Client) UpsertRelation(ctx context.Context, fromName, toName, relType string) error {
	if !relTypePattern.MatchString(relType) {
		return fmt.Errorf("invalid relationship type: %s", relType)
	}

	return c.executeWithRetry(ctx, func(session neo4j.SessionWithContext) error {
		query := fmt.Sprintf(`
			MATCH (a {name: $from}), (b {name: $to})
			MERGE (a)-[r:%s]->(b)
		`, relType)

		_, err := session.Run(ctx, query, map[string]interface{}{
			"from": fromName,
			"to":   toName,
		})
		if err != nil {
			return fmt.Errorf("failed to upsert relation: %w", err)
		}
		return nil
	})
}

// CountEntities returns the total node count, used to decide whether the
// graph needs seeding.
func (c *Client) CountEntities(ctx context.Context) (int64, error) {
	var count int64

	err := c.executeWithRetry(ctx, func(session neo4j.SessionWithContext) error {
		result, err := session.Run(ctx, "MATCH (n) RETURN count(n) AS count", nil)
		if err != nil {
			return fmt.Errorf("failed to count entities: %w", err)
		}

		if result.Next(ctx) {
			raw, _ := result.Record().Get("count")
			if v, ok := raw.(int64); ok {
				count = v
			}
		}

		return result.Err()
	})

	if err != nil {
		return 0, err
	}

	return count, nil
}

func nodeToEntity(label string, node neo4j.Node) Entity {
	props := make(map[string]interface{}, len(node.Props))
	name := ""
	for k, v := range node.Props {
		if k == "name" {
			if s, ok := v.(string); ok {
				name = s
			}
			continue
		}
		props[k] = v
	}
	return Entity{Label: label, Name: name, Properties: props}
}
