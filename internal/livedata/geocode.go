package livedata

import "fmt"

// Gazetteer resolves raw coordinates to a human-readable place name using the
// configured city presets. Two thresholds: within 0.2 degrees of a city
// center the city name is returned directly; within 1.0 degree it is prefixed
// with "Near".
type Gazetteer struct {
	cities map[string][]float64
}

const (
	exactDegrees = 0.2
	nearDegrees  = 1.0
)

func NewGazetteer(cities map[string][]float64) *Gazetteer {
	return &Gazetteer{cities: cities}
}

// Resolve returns a place label for the coordinates and whether one was
// found. Unresolved coordinates should be formatted with FormatCoordinates.
func (g *Gazetteer) Resolve(lat, lon float64) (string, bool) {
	// Pick the closest preset so map iteration order cannot flip the result
	// when two cities are in range.
	best := ""
	bestDist := nearDegrees
	for name, coords := range g.cities {
		if len(coords) != 2 {
			continue
		}
		dist := max(abs(lat-coords[0]), abs(lon-coords[1]))
		if dist < bestDist {
			best = name
			bestDist = dist
		}
	}
	if best != "" {
		if bestDist < exactDegrees {
			return best, true
		}
		return "Near " + best, true
	}

	// Chennai metro bounding box, finer than the preset threshold. Alandur
	// sits inside it.
	if lat >= 12.8 && lat <= 13.2 && lon >= 80.0 && lon <= 80.3 {
		if lat >= 12.95 && lat <= 13.05 && lon >= 80.15 && lon <= 80.25 {
			return "Alandur", true
		}
		return "Chennai", true
	}

	return "", false
}

// FormatCoordinates renders coordinates as a fallback location label.
func FormatCoordinates(lat, lon float64) string {
	return fmt.Sprintf("(%.4f, %.4f)", lat, lon)
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
