package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"go.uber.org/zap"

	"github.com/RithikaDevaraj/Prakriti/internal/kg/builder"
	"github.com/RithikaDevaraj/Prakriti/internal/kg/neo4j"
	"github.com/RithikaDevaraj/Prakriti/internal/livedata"
	"github.com/RithikaDevaraj/Prakriti/internal/llm"
	"github.com/RithikaDevaraj/Prakriti/internal/metrics"
	"github.com/RithikaDevaraj/Prakriti/internal/pipeline"
	"github.com/RithikaDevaraj/Prakriti/internal/storage/sqlite"
	"github.com/RithikaDevaraj/Prakriti/pkg/config"
	appLogger "github.com/RithikaDevaraj/Prakriti/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting Prakriti agricultural advisor")

	metrics.Init()
	go func() {
		if err := metrics.Serve(cfg.Metrics.Addr); err != nil {
			appLogger.Error("Metrics server stopped", zap.Error(err))
		}
	}()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	if err := sqliteClient.InitSchema(); err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	neo4jClient, err := neo4j.NewClient(
		cfg.Neo4j.URI,
		cfg.Neo4j.Username,
		cfg.Neo4j.Password,
		cfg.Neo4j.Database,
	)
	if err != nil {
		appLogger.Fatal("Failed to create Neo4j client", zap.Error(err))
	}
	defer neo4jClient.Close(context.Background())

	kgBuilder := builder.NewBuilder(neo4jClient)
	if err := kgBuilder.LoadIfEmpty(context.Background()); err != nil {
		appLogger.Warn("Failed to seed knowledge graph", zap.Error(err))
	}

	llmClient := llm.NewClient(
		cfg.LLM.APIKey,
		cfg.LLM.BaseURL,
		cfg.LLM.Model,
		cfg.LLM.Temperature,
		cfg.LLM.MaxTokens,
	)

	cache := livedata.NewTemporalCache(neo4jClient)
	weatherService := livedata.NewWeatherService(
		cfg.Weather.APIKey,
		cfg.Weather.PrimaryURL,
		cfg.Weather.SecondaryURL,
		cfg.Weather.Cities,
		cache,
	)
	marketService := livedata.NewMarketService(cfg.Market.APIKey, cfg.Market.BaseURL, cache)
	enricher := livedata.NewService(weatherService, marketService, cache)

	if cfg.Scheduler.Enabled {
		regions := make([]string, 0, len(cfg.Weather.Cities))
		for city := range cfg.Weather.Cities {
			regions = append(regions, city)
		}
		sort.Strings(regions)

		scheduler := livedata.NewScheduler(enricher, cfg.Scheduler.Cron, regions)
		scheduler.Start()
		defer scheduler.Stop()
	}

	pipe := pipeline.New(
		pipeline.NewExtractor(llmClient),
		pipeline.NewLookup(neo4jClient),
		enricher,
		pipeline.NewGenerator(llmClient),
		sqliteClient,
	)

	go runREPL(pipe)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down gracefully...")
}

// runREPL reads one query per line from stdin and prints the pipeline result
// as JSON.
func runREPL(pipe *pipeline.Pipeline) {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		query := scanner.Text()
		if query == "" {
			continue
		}

		result, err := pipe.Process(context.Background(), query, "auto")
		if err != nil {
			appLogger.Error("Query failed", zap.Error(err))
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}

		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			appLogger.Error("Failed to encode result", zap.Error(err))
			continue
		}
		fmt.Println(string(out))
	}

	if err := scanner.Err(); err != nil {
		appLogger.Error("Input stream error", zap.Error(err))
	}
}
