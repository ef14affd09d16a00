package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RithikaDevaraj/Prakriti/internal/llm"
	"github.com/RithikaDevaraj/Prakriti/internal/models"
)

type fakeLLM struct {
	responses []string
	errs      []error
	requests  []llm.CompletionRequest
}

func (f *fakeLLM) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	call := len(f.requests)
	f.requests = append(f.requests, req)

	if call < len(f.errs) && f.errs[call] != nil {
		return nil, f.errs[call]
	}
	if call < len(f.responses) {
		return &llm.CompletionResponse{Content: f.responses[call]}, nil
	}
	return nil, errors.New("no scripted response")
}

const validExtractionJSON = `{
	"entities": {
		"crop": "Rice",
		"pests": ["Brown Planthopper"],
		"diseases": [],
		"symptoms": ["yellow leaves"],
		"region": "Chennai",
		"fertilizer": null,
		"pesticide": null,
		"treatment": null
	},
	"intent": "weather"
}`

func TestExtractorInterpret(t *testing.T) {
	t.Run("Parses valid extraction JSON", func(t *testing.T) {
		client := &fakeLLM{responses: []string{validExtractionJSON}}
		extractor := NewExtractor(client)

		extracted := extractor.Interpret(context.Background(), "weather in Chennai for my rice crop")

		assert.Equal(t, models.IntentWeather, extracted.Intent)
		assert.Equal(t, "Rice", extracted.Entities.Crop)
		assert.Equal(t, "Chennai", extracted.Entities.Region)
		assert.Equal(t, []string{"Brown Planthopper"}, extracted.Entities.Pests)
		assert.Empty(t, extracted.Entities.Diseases)
		require.Len(t, client.requests, 1)
	})

	t.Run("Strips markdown code fences", func(t *testing.T) {
		client := &fakeLLM{responses: []string{"```json\n" + validExtractionJSON + "\n```"}}
		extractor := NewExtractor(client)

		extracted := extractor.Interpret(context.Background(), "query")

		assert.Equal(t, models.IntentWeather, extracted.Intent)
		assert.Equal(t, "Rice", extracted.Entities.Crop)
	})

	t.Run("Unknown intent normalizes to general", func(t *testing.T) {
		client := &fakeLLM{responses: []string{`{"entities": {}, "intent": "gossip"}`}}
		extractor := NewExtractor(client)

		extracted := extractor.Interpret(context.Background(), "query")

		assert.Equal(t, models.IntentGeneral, extracted.Intent)
	})

	t.Run("Retries with simplified prompt on malformed JSON", func(t *testing.T) {
		client := &fakeLLM{responses: []string{
			"I think the crop is rice",
			`{"entities": {"crop": "Rice", "pests": [], "diseases": [], "region": null}, "intent": "advisory"}`,
		}}
		extractor := NewExtractor(client)

		extracted := extractor.Interpret(context.Background(), "query")

		require.Len(t, client.requests, 2)
		assert.Equal(t, models.IntentAdvisory, extracted.Intent)
		assert.Equal(t, "Rice", extracted.Entities.Crop)
		assert.Less(t, client.requests[1].MaxTokens, client.requests[0].MaxTokens)
	})

	t.Run("Degrades to general intent when both attempts fail", func(t *testing.T) {
		client := &fakeLLM{errs: []error{
			errors.New("service down"),
			errors.New("service down"),
		}}
		extractor := NewExtractor(client)

		extracted := extractor.Interpret(context.Background(), "query")

		require.Len(t, client.requests, 2)
		assert.Equal(t, models.IntentGeneral, extracted.Intent)
		assert.Equal(t, models.Entities{}, extracted.Entities)
	})

	t.Run("Null slots become empty strings", func(t *testing.T) {
		client := &fakeLLM{responses: []string{`{
			"entities": {"crop": null, "pests": [], "diseases": [], "symptoms": [], "region": null, "fertilizer": null, "pesticide": null, "treatment": null},
			"intent": "general"
		}`}}
		extractor := NewExtractor(client)

		extracted := extractor.Interpret(context.Background(), "hello")

		assert.Empty(t, extracted.Entities.Crop)
		assert.Empty(t, extracted.Entities.Region)
	})

	t.Run("Uses low temperature for extraction", func(t *testing.T) {
		client := &fakeLLM{responses: []string{validExtractionJSON}}
		extractor := NewExtractor(client)

		extractor.Interpret(context.Background(), "query")

		require.Len(t, client.requests, 1)
		assert.InDelta(t, 0.1, client.requests[0].Temperature, 0.001)
	})
}

func TestStripCodeFence(t *testing.T) {
	t.Run("Plain JSON unchanged", func(t *testing.T) {
		assert.Equal(t, `{"a": 1}`, stripCodeFence(`{"a": 1}`))
	})

	t.Run("Fence with language tag", func(t *testing.T) {
		assert.Equal(t, `{"a": 1}`, stripCodeFence("```json\n{\"a\": 1}\n```"))
	})

	t.Run("Fence without language tag", func(t *testing.T) {
		assert.Equal(t, `{"a": 1}`, stripCodeFence("```\n{\"a\": 1}\n```"))
	})
}
