package livedata

import "strings"

// Agricultural-impact advisories, matched in fixed priority order.
const (
	impactFungal       = "High risk of fungal diseases. Ensure proper drainage."
	impactHeatStress   = "Heat stress risk. Increase irrigation frequency."
	impactColdStress   = "Cold stress risk. Protect sensitive crops."
	impactLowRadiation = "Low solar radiation. Adjust irrigation/fertilizer scheduling."
	impactFavorable    = "Favorable conditions for most crops."
)

// assessImpact maps current conditions onto an advisory string. Humidity,
// precipitation and cloud cover may be unknown depending on the provider;
// unknown values are passed as nil and skip their rules. Rules are evaluated
// fungal risk first, then heat stress, cold stress, low radiation, with a
// favorable-conditions default.
func assessImpact(temperature float64, humidity, precipitation, cloudCover *float64, condition string) string {
	cond := strings.ToLower(condition)
	humid := humidity != nil && *humidity > 80
	if (strings.Contains(cond, "rain") && humid) || (precipitation != nil && *precipitation > 2 && humid) {
		return impactFungal
	}
	if temperature > 35 && humidity != nil && *humidity < 40 {
		return impactHeatStress
	}
	if temperature < 15 {
		return impactColdStress
	}
	if (cloudCover != nil && *cloudCover > 80) || strings.Contains(cond, "cloud") {
		return impactLowRadiation
	}
	return impactFavorable
}

// Secondary-provider numeric weather codes (WMO vocabulary) mapped to the
// fixed condition strings. Unknown codes map to "Unknown".
var weatherCodeConditions = map[int]string{
	0:  "Clear sky",
	1:  "Mainly clear",
	2:  "Partly cloudy",
	3:  "Overcast",
	45: "Fog",
	48: "Depositing rime fog",
	51: "Light drizzle",
	53: "Moderate drizzle",
	55: "Dense drizzle",
	56: "Light freezing drizzle",
	57: "Dense freezing drizzle",
	61: "Slight rain",
	63: "Moderate rain",
	65: "Heavy rain",
	66: "Light freezing rain",
	67: "Heavy freezing rain",
	71: "Slight snow fall",
	73: "Moderate snow fall",
	75: "Heavy snow fall",
	77: "Snow grains",
	80: "Slight rain showers",
	81: "Moderate rain showers",
	82: "Violent rain showers",
	85: "Slight snow showers",
	86: "Heavy snow showers",
	95: "Thunderstorm",
	96: "Thunderstorm with slight hail",
	99: "Thunderstorm with heavy hail",
}

func conditionForCode(code int) string {
	if condition, ok := weatherCodeConditions[code]; ok {
		return condition
	}
	return "Unknown"
}
