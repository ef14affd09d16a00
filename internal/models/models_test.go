package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIntent(t *testing.T) {
	t.Run("Known intents pass through", func(t *testing.T) {
		assert.Equal(t, IntentWeather, ParseIntent("weather"))
		assert.Equal(t, IntentMarket, ParseIntent("market"))
		assert.Equal(t, IntentFertilizerRecommendation, ParseIntent("fertilizer_recommendation"))
		assert.Equal(t, IntentDiseaseManagement, ParseIntent("disease_management"))
	})

	t.Run("Unknown values normalize to general", func(t *testing.T) {
		assert.Equal(t, IntentGeneral, ParseIntent(""))
		assert.Equal(t, IntentGeneral, ParseIntent("Weather"))
		assert.Equal(t, IntentGeneral, ParseIntent("smalltalk"))
	})
}

func TestEntitiesJSON(t *testing.T) {
	raw := `{"crop": "Rice", "pests": ["Aphids"], "diseases": [], "symptoms": ["spots"], "region": "Punjab", "fertilizer": "", "pesticide": "", "treatment": ""}`

	var entities Entities
	require.NoError(t, json.Unmarshal([]byte(raw), &entities))

	assert.Equal(t, "Rice", entities.Crop)
	assert.Equal(t, []string{"Aphids"}, entities.Pests)
	assert.Equal(t, "Punjab", entities.Region)
}
