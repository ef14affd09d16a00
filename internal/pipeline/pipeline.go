package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	kg "github.com/RithikaDevaraj/Prakriti/internal/kg/neo4j"
	"github.com/RithikaDevaraj/Prakriti/internal/metrics"
	"github.com/RithikaDevaraj/Prakriti/internal/models"
	"github.com/RithikaDevaraj/Prakriti/pkg/logger"
)

// Enricher produces live-data context fragments for an interpreted query.
// Implemented by livedata.Service.
type Enricher interface {
	Enrich(ctx context.Context, extracted models.ExtractedQuery) []string
}

// History persists per-query audit records. Optional; nil disables auditing.
type History interface {
	InsertQueryRecord(ctx context.Context, record *models.QueryRecord) error
}

// Sources lists where a response's context came from.
type Sources struct {
	KnowledgeGraph []string `json:"knowledge_graph"`
	Documents      []string `json:"documents"`
}

// Result is the full pipeline output for one query.
type Result struct {
	Response      string          `json:"response"`
	Sources       Sources         `json:"sources"`
	KGResults     int             `json:"kg_results"`
	EntitiesFound models.Entities `json:"entities_found"`
	Intent        models.Intent   `json:"intent"`
	Timestamp     time.Time       `json:"timestamp"`
}

// Pipeline chains the four stages: interpretation, knowledge-graph lookup,
// live-data enrichment, response generation. Stages two through four degrade
// rather than fail, so a well-formed query always yields a response.
type Pipeline struct {
	extractor *Extractor
	lookup    *Lookup
	enricher  Enricher
	generator *Generator
	history   History
}

func New(extractor *Extractor, lookup *Lookup, enricher Enricher, generator *Generator, history History) *Pipeline {
	return &Pipeline{
		extractor: extractor,
		lookup:    lookup,
		enricher:  enricher,
		generator: generator,
		history:   history,
	}
}

// Process runs one query through all four stages. Language "auto" triggers
// script-based detection. The only error is an empty query; everything past
// validation degrades internally.
func (p *Pipeline) Process(ctx context.Context, query, language string) (*Result, error) {
	if query == "" {
		return nil, fmt.Errorf("query must not be empty")
	}

	start := time.Now()
	runID := uuid.New().String()

	if language == "" || language == "auto" {
		language = detectLanguage(query)
	}

	logger.Info("Processing query",
		zap.String("run_id", runID),
		zap.String("language", language),
	)

	extracted := p.extractor.Interpret(ctx, query)
	kgResults := p.lookup.Query(ctx, extracted)
	fragments := p.enricher.Enrich(ctx, extracted)
	response := p.generator.Generate(ctx, query, kgResults, fragments, language)

	elapsed := time.Since(start)

	metrics.PipelineDuration.Observe(elapsed.Seconds())
	metrics.KGResultsCount.Observe(float64(len(kgResults)))
	status := "ok"
	if response == apologyResponse {
		status = "degraded"
	}
	metrics.QueriesTotal.WithLabelValues(string(extracted.Intent), status).Inc()

	p.recordHistory(ctx, runID, query, language, extracted, response, len(kgResults), elapsed)

	result := &Result{
		Response:      response,
		Sources:       buildSources(kgResults),
		KGResults:     len(kgResults),
		EntitiesFound: extracted.Entities,
		Intent:        extracted.Intent,
		Timestamp:     time.Now(),
	}

	logger.Info("Query processed",
		zap.String("run_id", runID),
		zap.String("intent", string(extracted.Intent)),
		zap.Int("kg_results", len(kgResults)),
		zap.Duration("elapsed", elapsed),
	)

	return result, nil
}

func (p *Pipeline) recordHistory(ctx context.Context, runID, query, language string, extracted models.ExtractedQuery, response string, kgCount int, elapsed time.Duration) {
	if p.history == nil {
		return
	}

	record := &models.QueryRecord{
		ID:             runID,
		QueryText:      query,
		Language:       language,
		Intent:         string(extracted.Intent),
		Response:       response,
		KGResultsCount: kgCount,
		LatencyMS:      int(elapsed.Milliseconds()),
		CreatedAt:      time.Now(),
	}

	if err := p.history.InsertQueryRecord(ctx, record); err != nil {
		logger.Error("Failed to record query history",
			zap.String("run_id", runID),
			zap.Error(err),
		)
	}
}

func buildSources(kgResults []kg.Entity) Sources {
	sources := Sources{
		KnowledgeGraph: []string{},
		Documents:      []string{},
	}

	for i, entity := range kgResults {
		if i >= 5 {
			break
		}
		sources.KnowledgeGraph = append(sources.KnowledgeGraph, entity.Name)
	}

	if len(kgResults) > 0 {
		sources.Documents = append(sources.Documents, "Agricultural Knowledge Base")
	}

	return sources
}

// detectLanguage classifies the query by script: Tamil and Devanagari code
// points win over Latin, everything else defaults to English.
func detectLanguage(query string) string {
	for _, r := range query {
		switch {
		case r >= 0x0B80 && r <= 0x0BFF:
			return "ta"
		case r >= 0x0900 && r <= 0x097F:
			return "hi"
		}
	}
	return "en"
}
