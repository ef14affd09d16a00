package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Neo4j     Neo4jConfig
	LLM       LLMConfig
	Weather   WeatherConfig
	Market    MarketConfig
	SQLite    SQLiteConfig
	Scheduler SchedulerConfig
	Metrics   MetricsConfig
	Logging   LoggingConfig
}

type Neo4jConfig struct {
	URI      string
	Username string
	Password string
	Database string
}

type LLMConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
}

type WeatherConfig struct {
	// APIKey is the primary (keyed) weather provider credential. When empty
	// the chain starts at the secondary provider.
	APIKey       string
	PrimaryURL   string
	SecondaryURL string
	// Cities maps region names to [lat, lon] pairs used both for provider
	// requests and for reverse geocoding.
	Cities map[string][]float64
}

type MarketConfig struct {
	APIKey  string
	BaseURL string
}

type SQLiteConfig struct {
	Path string
}

type SchedulerConfig struct {
	Enabled bool
	Cron    string
}

type MetricsConfig struct {
	Addr string
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	// .env is optional; real deployments use environment variables.
	_ = godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/prakriti")

	viper.SetEnvPrefix("PRAKRITI")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	var missing []string
	if c.Neo4j.URI == "" {
		missing = append(missing, "neo4j.uri")
	}
	if c.Neo4j.Username == "" {
		missing = append(missing, "neo4j.username")
	}
	if c.Neo4j.Password == "" {
		missing = append(missing, "neo4j.password")
	}
	if c.LLM.APIKey == "" {
		missing = append(missing, "llm.apiKey")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (c *WeatherConfig) Coordinates(city string) (lat, lon float64, ok bool) {
	coords, ok := c.Cities[city]
	if !ok || len(coords) != 2 {
		return 0, 0, false
	}
	return coords[0], coords[1], true
}

func setDefaults() {
	viper.SetDefault("neo4j.uri", "bolt://localhost:7687")
	viper.SetDefault("neo4j.username", "neo4j")
	viper.SetDefault("neo4j.password", "")
	viper.SetDefault("neo4j.database", "neo4j")

	viper.SetDefault("llm.baseURL", "https://api.groq.com/openai/v1")
	viper.SetDefault("llm.model", "llama-3.1-8b-instant")
	viper.SetDefault("llm.temperature", 0.7)
	viper.SetDefault("llm.maxTokens", 500)

	viper.SetDefault("weather.primaryURL", "https://weather.indianapi.in/global/weather")
	viper.SetDefault("weather.secondaryURL", "https://api.open-meteo.com/v1/forecast")
	viper.SetDefault("weather.cities", map[string][]float64{
		"Chennai":    {13.0878, 80.2785},
		"Madurai":    {9.9190, 78.1195},
		"Coimbatore": {11.0055, 76.9661},
		"Hosur":      {12.7183, 77.8229},
	})

	viper.SetDefault("market.baseURL", "https://api.data.gov.in/resource/9ef84268-d588-465a-a308-a864a43d0070")

	viper.SetDefault("sqlite.path", "./data/prakriti.db")

	viper.SetDefault("scheduler.enabled", true)
	viper.SetDefault("scheduler.cron", "0 * * * *")

	viper.SetDefault("metrics.addr", ":9090")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
