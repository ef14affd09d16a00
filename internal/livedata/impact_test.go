package livedata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssessImpact(t *testing.T) {
	t.Run("Rainy and humid flags fungal risk", func(t *testing.T) {
		impact := assessImpact(28, floatPtr(85), nil, nil, "Moderate rain")
		assert.Equal(t, impactFungal, impact)
	})

	t.Run("Heavy precipitation with humidity flags fungal risk", func(t *testing.T) {
		impact := assessImpact(28, floatPtr(85), floatPtr(3.5), nil, "Overcast")
		assert.Equal(t, impactFungal, impact)
	})

	t.Run("Fungal outranks heat", func(t *testing.T) {
		// Contradictory readings still resolve by rule order.
		impact := assessImpact(38, floatPtr(85), floatPtr(3.5), nil, "Slight rain")
		assert.Equal(t, impactFungal, impact)
	})

	t.Run("Hot and dry flags heat stress", func(t *testing.T) {
		impact := assessImpact(38, floatPtr(30), nil, nil, "Clear sky")
		assert.Equal(t, impactHeatStress, impact)
	})

	t.Run("Heat needs a humidity reading", func(t *testing.T) {
		impact := assessImpact(38, nil, nil, nil, "Clear sky")
		assert.Equal(t, impactFavorable, impact)
	})

	t.Run("Cold flags cold stress", func(t *testing.T) {
		impact := assessImpact(12, floatPtr(60), nil, nil, "Clear sky")
		assert.Equal(t, impactColdStress, impact)
	})

	t.Run("Cold works without humidity", func(t *testing.T) {
		impact := assessImpact(10, nil, nil, nil, "Fog")
		assert.Equal(t, impactColdStress, impact)
	})

	t.Run("Heavy cloud cover flags low radiation", func(t *testing.T) {
		impact := assessImpact(25, floatPtr(60), nil, floatPtr(90), "Clear sky")
		assert.Equal(t, impactLowRadiation, impact)
	})

	t.Run("Cloudy condition flags low radiation", func(t *testing.T) {
		impact := assessImpact(25, floatPtr(60), nil, nil, "Partly cloudy")
		assert.Equal(t, impactLowRadiation, impact)
	})

	t.Run("Mild conditions are favorable", func(t *testing.T) {
		impact := assessImpact(27, floatPtr(60), floatPtr(0), floatPtr(20), "Clear sky")
		assert.Equal(t, impactFavorable, impact)
	})
}

func TestConditionForCode(t *testing.T) {
	t.Run("Known codes map to conditions", func(t *testing.T) {
		assert.Equal(t, "Clear sky", conditionForCode(0))
		assert.Equal(t, "Partly cloudy", conditionForCode(2))
		assert.Equal(t, "Moderate rain", conditionForCode(63))
		assert.Equal(t, "Thunderstorm", conditionForCode(95))
	})

	t.Run("Unknown code maps to Unknown", func(t *testing.T) {
		assert.Equal(t, "Unknown", conditionForCode(42))
		assert.Equal(t, "Unknown", conditionForCode(-1))
	})
}
