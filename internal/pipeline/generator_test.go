package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kg "github.com/RithikaDevaraj/Prakriti/internal/kg/neo4j"
)

func TestGeneratorGenerate(t *testing.T) {
	kgResults := []kg.Entity{
		{Label: "Crop", Name: "Rice", Properties: map[string]interface{}{"season": "Kharif"}},
		{Label: "Pest", Name: "Brown Planthopper"},
	}
	fragments := []string{"Weather in Chennai: Temperature 31.0°C"}

	t.Run("First tier includes graph context and live data", func(t *testing.T) {
		client := &fakeLLM{responses: []string{"Plant rice after the monsoon."}}
		generator := NewGenerator(client)

		response := generator.Generate(context.Background(), "when to plant rice?", kgResults, fragments, "en")

		assert.Equal(t, "Plant rice after the monsoon.", response)
		require.Len(t, client.requests, 1)
		prompt := client.requests[0].UserPrompt
		assert.Contains(t, prompt, "Rice")
		assert.Contains(t, prompt, "Kharif")
		assert.Contains(t, prompt, "Live Data:")
		assert.Contains(t, prompt, "Weather in Chennai")
		assert.Contains(t, prompt, "English")
	})

	t.Run("Tamil queries ask for Tamil answers", func(t *testing.T) {
		client := &fakeLLM{responses: []string{"ok"}}
		generator := NewGenerator(client)

		generator.Generate(context.Background(), "query", nil, nil, "ta")

		require.Len(t, client.requests, 1)
		assert.Contains(t, client.requests[0].UserPrompt, "Tamil")
	})

	t.Run("Second tier keeps only entity names", func(t *testing.T) {
		client := &fakeLLM{
			errs:      []error{errors.New("overloaded"), nil},
			responses: []string{"", "General rice advice."},
		}
		generator := NewGenerator(client)

		response := generator.Generate(context.Background(), "when to plant rice?", kgResults, fragments, "en")

		assert.Equal(t, "General rice advice.", response)
		require.Len(t, client.requests, 2)
		prompt := client.requests[1].UserPrompt
		assert.Contains(t, prompt, "Knowledge base contains: Rice, Brown Planthopper")
		assert.NotContains(t, prompt, "Live Data:")
	})

	t.Run("Third tier sends the bare question", func(t *testing.T) {
		client := &fakeLLM{
			errs:      []error{errors.New("down"), errors.New("down"), nil},
			responses: []string{"", "", "Last resort advice."},
		}
		generator := NewGenerator(client)

		response := generator.Generate(context.Background(), "when to plant rice?", kgResults, fragments, "en")

		assert.Equal(t, "Last resort advice.", response)
		require.Len(t, client.requests, 3)
		assert.Contains(t, client.requests[2].UserPrompt, "when to plant rice?")
		assert.NotContains(t, client.requests[2].UserPrompt, "Rice,")
	})

	t.Run("Static apology when every tier fails", func(t *testing.T) {
		down := errors.New("down")
		client := &fakeLLM{errs: []error{down, down, down}}
		generator := NewGenerator(client)

		response := generator.Generate(context.Background(), "query", nil, nil, "en")

		assert.Equal(t, apologyResponse, response)
		assert.Len(t, client.requests, 3)
	})

	t.Run("Empty graph context uses placeholder", func(t *testing.T) {
		client := &fakeLLM{responses: []string{"ok"}}
		generator := NewGenerator(client)

		generator.Generate(context.Background(), "query", nil, nil, "en")

		require.Len(t, client.requests, 1)
		assert.Contains(t, client.requests[0].UserPrompt, "No specific knowledge graph data available.")
	})
}

func TestLanguageName(t *testing.T) {
	assert.Equal(t, "Tamil", languageName("ta"))
	assert.Equal(t, "Hindi", languageName("hi"))
	assert.Equal(t, "English", languageName("en"))
	assert.Equal(t, "English", languageName("fr"))
}
