package pipeline

import (
	"context"

	"go.uber.org/zap"

	kg "github.com/RithikaDevaraj/Prakriti/internal/kg/neo4j"
	"github.com/RithikaDevaraj/Prakriti/internal/models"
	"github.com/RithikaDevaraj/Prakriti/pkg/logger"
)

const maxLookupResults = 20

// GraphStore is the slice of the knowledge graph client the lookup stage
// needs.
type GraphStore interface {
	SearchEntities(ctx context.Context, label, term string) ([]kg.Entity, error)
	RelatedEntities(ctx context.Context, name string) (map[string][]kg.Entity, error)
}

// Lookup runs the knowledge-graph stage: deterministic label-scoped searches
// for every filled entity slot, plus one hop of crop relations. No LLM is
// involved here.
type Lookup struct {
	store GraphStore
}

func NewLookup(store GraphStore) *Lookup {
	return &Lookup{store: store}
}

// Query searches the graph for every filled entity slot in a fixed order:
// crop, pests, diseases, region, fertilizer, pesticide, treatment. When a
// crop matched, its directly related entities are appended. Results are
// deduplicated by name (first occurrence wins) and capped at 20. A failed
// slot search is logged and skipped; lookup itself never fails.
func (l *Lookup) Query(ctx context.Context, extracted models.ExtractedQuery) []kg.Entity {
	entities := extracted.Entities

	var results []kg.Entity

	results = append(results, l.search(ctx, "Crop", entities.Crop)...)
	for _, pest := range entities.Pests {
		results = append(results, l.search(ctx, "Pest", pest)...)
	}
	for _, disease := range entities.Diseases {
		results = append(results, l.search(ctx, "Disease", disease)...)
	}
	results = append(results, l.search(ctx, "Region", entities.Region)...)
	results = append(results, l.search(ctx, "Fertilizer", entities.Fertilizer)...)
	results = append(results, l.search(ctx, "Pesticide", entities.Pesticide)...)
	results = append(results, l.search(ctx, "ControlMethod", entities.Treatment)...)

	if entities.Crop != "" && len(results) > 0 {
		related, err := l.store.RelatedEntities(ctx, entities.Crop)
		if err != nil {
			logger.Warn("Crop relation lookup failed",
				zap.String("crop", entities.Crop),
				zap.Error(err),
			)
		} else {
			for _, relEntities := range related {
				results = append(results, relEntities...)
			}
		}
	}

	unique := dedupByName(results)
	if len(unique) > maxLookupResults {
		unique = unique[:maxLookupResults]
	}

	logger.Info("Knowledge graph lookup complete", zap.Int("results", len(unique)))
	return unique
}

func (l *Lookup) search(ctx context.Context, label, term string) []kg.Entity {
	if term == "" {
		return nil
	}

	found, err := l.store.SearchEntities(ctx, label, term)
	if err != nil {
		logger.Warn("Entity search failed",
			zap.String("label", label),
			zap.String("term", term),
			zap.Error(err),
		)
		return nil
	}

	return found
}

func dedupByName(entities []kg.Entity) []kg.Entity {
	seen := make(map[string]bool, len(entities))
	unique := make([]kg.Entity, 0, len(entities))

	for _, entity := range entities {
		if seen[entity.Name] {
			continue
		}
		seen[entity.Name] = true
		unique = append(unique, entity)
	}

	return unique
}
