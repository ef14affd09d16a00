package models

import "time"

// Intent classifies what a farmer's query is asking for. Values outside the
// known set are normalized to IntentGeneral.
type Intent string

const (
	IntentWeather                  Intent = "weather"
	IntentMarket                   Intent = "market"
	IntentDiagnosis                Intent = "diagnosis"
	IntentTreatment                Intent = "treatment"
	IntentAdvisory                 Intent = "advisory"
	IntentFertilizerRecommendation Intent = "fertilizer_recommendation"
	IntentPestControl              Intent = "pest_control"
	IntentDiseaseManagement        Intent = "disease_management"
	IntentGeneral                  Intent = "general"
)

var validIntents = map[Intent]bool{
	IntentWeather:                  true,
	IntentMarket:                   true,
	IntentDiagnosis:                true,
	IntentTreatment:                true,
	IntentAdvisory:                 true,
	IntentFertilizerRecommendation: true,
	IntentPestControl:              true,
	IntentDiseaseManagement:        true,
	IntentGeneral:                  true,
}

// ParseIntent maps a raw model output onto the intent enum, defaulting to
// IntentGeneral for anything unrecognized.
func ParseIntent(s string) Intent {
	if validIntents[Intent(s)] {
		return Intent(s)
	}
	return IntentGeneral
}

// Entities holds the structured slots extracted from a single query.
type Entities struct {
	Crop       string   `json:"crop"`
	Pests      []string `json:"pests"`
	Diseases   []string `json:"diseases"`
	Symptoms   []string `json:"symptoms"`
	Region     string   `json:"region"`
	Fertilizer string   `json:"fertilizer"`
	Pesticide  string   `json:"pesticide"`
	Treatment  string   `json:"treatment"`
}

// ExtractedQuery is the interpretation-stage output. Immutable once built.
type ExtractedQuery struct {
	Entities Entities `json:"entities"`
	Intent   Intent   `json:"intent"`
}

// WeatherObservation is a provider-normalized weather snapshot for a region.
// Optional fields are pointers because the two providers report different
// variable sets.
type WeatherObservation struct {
	Region        string
	Temperature   float64
	Humidity      *float64
	Condition     string
	WindSpeed     *float64
	Precipitation *float64
	CloudCover    *float64
	Pressure      *float64
	Impact        string
	Timestamp     time.Time
	IsCurrent     bool
	// Source names the provider that produced this observation
	// ("indianapi", "open-meteo" or "cache").
	Source string
}

// MarketPrice is one normalized commodity price row. The temporal-cache
// subject key is (Commodity, Market, Date).
type MarketPrice struct {
	Commodity string
	Variety   string
	Market    string
	District  string
	State     string
	Price     float64
	Unit      string
	Date      string
	Timestamp time.Time
	IsCurrent bool
}

// QueryRecord is the per-request audit row persisted after a pipeline run.
type QueryRecord struct {
	ID             string
	QueryText      string
	Language       string
	Intent         string
	Response       string
	KGResultsCount int
	LatencyMS      int
	CreatedAt      time.Time
}
