package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kg "github.com/RithikaDevaraj/Prakriti/internal/kg/neo4j"
	"github.com/RithikaDevaraj/Prakriti/internal/models"
)

type searchCall struct {
	label string
	term  string
}

type fakeGraphStore struct {
	searches     []searchCall
	relatedCalls []string
	results      map[string][]kg.Entity
	related      map[string][]kg.Entity
	searchErr    map[string]error
	relatedErr   error
}

func (f *fakeGraphStore) SearchEntities(ctx context.Context, label, term string) ([]kg.Entity, error) {
	f.searches = append(f.searches, searchCall{label: label, term: term})
	if err := f.searchErr[label]; err != nil {
		return nil, err
	}
	return f.results[label+"/"+term], nil
}

func (f *fakeGraphStore) RelatedEntities(ctx context.Context, name string) (map[string][]kg.Entity, error) {
	f.relatedCalls = append(f.relatedCalls, name)
	if f.relatedErr != nil {
		return nil, f.relatedErr
	}
	return map[string][]kg.Entity{"AFFECTED_BY": f.related[name]}, nil
}

func entity(label, name string) kg.Entity {
	return kg.Entity{Label: label, Name: name}
}

func TestLookupQuery(t *testing.T) {
	t.Run("Searches slots in fixed order", func(t *testing.T) {
		store := &fakeGraphStore{}
		lookup := NewLookup(store)

		lookup.Query(context.Background(), models.ExtractedQuery{
			Entities: models.Entities{
				Crop:       "Rice",
				Pests:      []string{"Aphids"},
				Diseases:   []string{"Rust"},
				Region:     "Punjab",
				Fertilizer: "Urea",
				Pesticide:  "Neem Oil",
				Treatment:  "Crop Rotation",
			},
		})

		require.Len(t, store.searches, 7)
		assert.Equal(t, searchCall{"Crop", "Rice"}, store.searches[0])
		assert.Equal(t, searchCall{"Pest", "Aphids"}, store.searches[1])
		assert.Equal(t, searchCall{"Disease", "Rust"}, store.searches[2])
		assert.Equal(t, searchCall{"Region", "Punjab"}, store.searches[3])
		assert.Equal(t, searchCall{"Fertilizer", "Urea"}, store.searches[4])
		assert.Equal(t, searchCall{"Pesticide", "Neem Oil"}, store.searches[5])
		assert.Equal(t, searchCall{"ControlMethod", "Crop Rotation"}, store.searches[6])
	})

	t.Run("Empty slots trigger no store calls", func(t *testing.T) {
		store := &fakeGraphStore{}
		lookup := NewLookup(store)

		results := lookup.Query(context.Background(), models.ExtractedQuery{})

		assert.Empty(t, store.searches)
		assert.Empty(t, store.relatedCalls)
		assert.Empty(t, results)
	})

	t.Run("Appends crop relations when crop matched", func(t *testing.T) {
		store := &fakeGraphStore{
			results: map[string][]kg.Entity{
				"Crop/Rice": {entity("Crop", "Rice")},
			},
			related: map[string][]kg.Entity{
				"Rice": {entity("Pest", "Brown Planthopper"), entity("Disease", "Blast Disease")},
			},
		}
		lookup := NewLookup(store)

		results := lookup.Query(context.Background(), models.ExtractedQuery{
			Entities: models.Entities{Crop: "Rice"},
		})

		require.Equal(t, []string{"Rice"}, store.relatedCalls)
		names := entityNames(results)
		assert.Contains(t, names, "Rice")
		assert.Contains(t, names, "Brown Planthopper")
		assert.Contains(t, names, "Blast Disease")
	})

	t.Run("Skips relation hop when crop search found nothing", func(t *testing.T) {
		store := &fakeGraphStore{}
		lookup := NewLookup(store)

		lookup.Query(context.Background(), models.ExtractedQuery{
			Entities: models.Entities{Crop: "Dragonfruit"},
		})

		assert.Empty(t, store.relatedCalls)
	})

	t.Run("Deduplicates by name keeping first occurrence", func(t *testing.T) {
		first := kg.Entity{Label: "Crop", Name: "Rice", Properties: map[string]interface{}{"season": "Kharif"}}
		duplicate := kg.Entity{Label: "Crop", Name: "Rice"}
		store := &fakeGraphStore{
			results: map[string][]kg.Entity{
				"Crop/Rice": {first},
			},
			related: map[string][]kg.Entity{
				"Rice": {duplicate, entity("Pest", "Stem Borer")},
			},
		}
		lookup := NewLookup(store)

		results := lookup.Query(context.Background(), models.ExtractedQuery{
			Entities: models.Entities{Crop: "Rice"},
		})

		require.Len(t, results, 2)
		assert.Equal(t, first.Properties, results[0].Properties)
	})

	t.Run("Caps results at twenty", func(t *testing.T) {
		var many []kg.Entity
		for i := 0; i < 30; i++ {
			many = append(many, entity("Crop", fmt.Sprintf("Crop-%d", i)))
		}
		store := &fakeGraphStore{
			results: map[string][]kg.Entity{"Crop/Rice": many},
		}
		lookup := NewLookup(store)

		results := lookup.Query(context.Background(), models.ExtractedQuery{
			Entities: models.Entities{Crop: "Rice"},
		})

		assert.Len(t, results, 20)
	})

	t.Run("Swallows per-slot search failures", func(t *testing.T) {
		store := &fakeGraphStore{
			results: map[string][]kg.Entity{
				"Region/Punjab": {entity("Region", "Punjab")},
			},
			searchErr: map[string]error{"Crop": errors.New("connection reset")},
		}
		lookup := NewLookup(store)

		results := lookup.Query(context.Background(), models.ExtractedQuery{
			Entities: models.Entities{Crop: "Rice", Region: "Punjab"},
		})

		require.Len(t, results, 1)
		assert.Equal(t, "Punjab", results[0].Name)
	})

	t.Run("Swallows relation lookup failure", func(t *testing.T) {
		store := &fakeGraphStore{
			results: map[string][]kg.Entity{
				"Crop/Rice": {entity("Crop", "Rice")},
			},
			relatedErr: errors.New("timeout"),
		}
		lookup := NewLookup(store)

		results := lookup.Query(context.Background(), models.ExtractedQuery{
			Entities: models.Entities{Crop: "Rice"},
		})

		require.Len(t, results, 1)
		assert.Equal(t, "Rice", results[0].Name)
	})
}

func entityNames(entities []kg.Entity) []string {
	names := make([]string, 0, len(entities))
	for _, e := range entities {
		names = append(names, e.Name)
	}
	return names
}
