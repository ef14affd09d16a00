package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kg "github.com/RithikaDevaraj/Prakriti/internal/kg/neo4j"
	"github.com/RithikaDevaraj/Prakriti/internal/models"
)

type fakeEnricher struct {
	fragments []string
	extracted []models.ExtractedQuery
}

func (f *fakeEnricher) Enrich(ctx context.Context, extracted models.ExtractedQuery) []string {
	f.extracted = append(f.extracted, extracted)
	return f.fragments
}

type fakeHistory struct {
	records []*models.QueryRecord
	err     error
}

func (f *fakeHistory) InsertQueryRecord(ctx context.Context, record *models.QueryRecord) error {
	f.records = append(f.records, record)
	return f.err
}

func newTestPipeline(client *fakeLLM, store *fakeGraphStore, enricher *fakeEnricher, history *fakeHistory) *Pipeline {
	var h History
	if history != nil {
		h = history
	}
	return New(NewExtractor(client), NewLookup(store), enricher, NewGenerator(client), h)
}

func TestPipelineProcess(t *testing.T) {
	t.Run("Rejects empty query", func(t *testing.T) {
		pipe := newTestPipeline(&fakeLLM{}, &fakeGraphStore{}, &fakeEnricher{}, nil)

		result, err := pipe.Process(context.Background(), "", "auto")

		require.Error(t, err)
		assert.Nil(t, result)
	})

	t.Run("Weather query end to end", func(t *testing.T) {
		client := &fakeLLM{responses: []string{
			`{"entities": {"crop": "Rice", "pests": [], "diseases": [], "region": "Chennai"}, "intent": "weather"}`,
			"Expect warm weather in Chennai; irrigate your rice in the evening.",
		}}
		store := &fakeGraphStore{
			results: map[string][]kg.Entity{
				"Crop/Rice":      {entity("Crop", "Rice")},
				"Region/Chennai": {entity("Region", "Chennai")},
			},
			related: map[string][]kg.Entity{
				"Rice": {entity("Pest", "Brown Planthopper")},
			},
		}
		enricher := &fakeEnricher{fragments: []string{
			"Weather in Chennai: Temperature 31.0°C, Humidity 70%, Condition: Partly cloudy, Wind Speed: 4.0 m/s. Agricultural Impact: Favorable conditions for most crops.",
		}}
		history := &fakeHistory{}
		pipe := newTestPipeline(client, store, enricher, history)

		result, err := pipe.Process(context.Background(), "What is the weather in Chennai for rice?", "auto")

		require.NoError(t, err)
		assert.NotEmpty(t, result.Response)
		assert.Equal(t, models.IntentWeather, result.Intent)
		assert.Equal(t, 3, result.KGResults)
		assert.Equal(t, "Rice", result.EntitiesFound.Crop)
		assert.Contains(t, result.Sources.KnowledgeGraph, "Rice")
		assert.Contains(t, result.Sources.Documents, "Agricultural Knowledge Base")

		// The generation prompt carries the enrichment fragment.
		finalPrompt := client.requests[len(client.requests)-1].UserPrompt
		assert.Contains(t, finalPrompt, "Weather in Chennai")
		assert.Contains(t, finalPrompt, "Temperature 31.0")
		assert.Contains(t, finalPrompt, "Agricultural Impact")

		// Enrichment saw the extracted entities.
		require.Len(t, enricher.extracted, 1)
		assert.Equal(t, "Chennai", enricher.extracted[0].Entities.Region)

		// Audit row recorded.
		require.Len(t, history.records, 1)
		record := history.records[0]
		assert.NotEmpty(t, record.ID)
		assert.Equal(t, "weather", record.Intent)
		assert.Equal(t, "en", record.Language)
		assert.Equal(t, 3, record.KGResultsCount)
	})

	t.Run("Unknown crop still yields a response", func(t *testing.T) {
		client := &fakeLLM{responses: []string{
			`{"entities": {"crop": "Dragonfruit", "pests": [], "diseases": [], "region": null}, "intent": "advisory"}`,
			"Dragonfruit needs well-drained soil and support poles.",
		}}
		pipe := newTestPipeline(client, &fakeGraphStore{}, &fakeEnricher{}, nil)

		result, err := pipe.Process(context.Background(), "How do I grow dragonfruit?", "auto")

		require.NoError(t, err)
		assert.Zero(t, result.KGResults)
		assert.Empty(t, result.Sources.KnowledgeGraph)
		assert.Empty(t, result.Sources.Documents)
		assert.NotEmpty(t, result.Response)
	})

	t.Run("Survives total LLM outage", func(t *testing.T) {
		down := errors.New("llm down")
		client := &fakeLLM{errs: []error{down, down, down, down, down}}
		pipe := newTestPipeline(client, &fakeGraphStore{}, &fakeEnricher{}, nil)

		result, err := pipe.Process(context.Background(), "any advice?", "auto")

		require.NoError(t, err)
		assert.Equal(t, apologyResponse, result.Response)
		assert.Equal(t, models.IntentGeneral, result.Intent)
	})

	t.Run("History failure does not fail the query", func(t *testing.T) {
		client := &fakeLLM{responses: []string{
			`{"entities": {}, "intent": "general"}`,
			"Some advice.",
		}}
		history := &fakeHistory{err: errors.New("disk full")}
		pipe := newTestPipeline(client, &fakeGraphStore{}, &fakeEnricher{}, history)

		result, err := pipe.Process(context.Background(), "any advice?", "auto")

		require.NoError(t, err)
		assert.Equal(t, "Some advice.", result.Response)
	})
}

func TestDetectLanguage(t *testing.T) {
	t.Run("Tamil script", func(t *testing.T) {
		assert.Equal(t, "ta", detectLanguage("நெல் விலை என்ன?"))
	})

	t.Run("Devanagari script", func(t *testing.T) {
		assert.Equal(t, "hi", detectLanguage("गेहूं का भाव क्या है?"))
	})

	t.Run("Latin defaults to English", func(t *testing.T) {
		assert.Equal(t, "en", detectLanguage("What is the price of wheat?"))
	})

	t.Run("Mixed script prefers the Indic hit", func(t *testing.T) {
		assert.Equal(t, "ta", detectLanguage("rice விலை"))
	})
}
