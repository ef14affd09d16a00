package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/RithikaDevaraj/Prakriti/internal/llm"
	"github.com/RithikaDevaraj/Prakriti/internal/models"
	"github.com/RithikaDevaraj/Prakriti/pkg/logger"
)

// CompletionClient is the slice of the LLM client the pipeline stages need.
type CompletionClient interface {
	Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)
}

// Extractor runs the interpretation stage: one low-temperature completion that
// turns a free-form farmer query into structured entities and an intent.
type Extractor struct {
	llm CompletionClient
}

func NewExtractor(client CompletionClient) *Extractor {
	return &Extractor{llm: client}
}

const extractionSystemPrompt = "You are a precise JSON extraction system. Always return valid JSON only."

const extractionPromptTemplate = `You are an agricultural entity extraction system. Extract structured information from this farmer's query.

Farmer's Query: %q

Extract the following information and return ONLY valid JSON (no markdown, no explanation):
{
  "entities": {
    "crop": "crop name if mentioned, else null",
    "pests": ["list of pest names if mentioned, else empty array"],
    "diseases": ["list of disease names if mentioned, else empty array"],
    "symptoms": ["list of symptoms if mentioned, else empty array"],
    "region": "region/state/city if mentioned, else null",
    "fertilizer": "fertilizer name if mentioned, else null",
    "pesticide": "pesticide name if mentioned, else null",
    "treatment": "treatment method if mentioned, else null"
  },
  "intent": "one of: weather, market, diagnosis, treatment, advisory, fertilizer_recommendation, pest_control, disease_management, or general"
}

Important:
- Return ONLY the JSON object, no other text
- Use null for missing values, empty arrays [] for missing lists
- For intent, choose the most specific one that matches the query
- Preserve original language terms (Tamil, Hindi, English) in the entities`

const extractionRetryPromptTemplate = `Extract entities from: %q. Return JSON: {"entities": {"crop": null, "pests": [], "diseases": [], "region": null}, "intent": "general"}`

// Interpret extracts entities and intent from the query. It never returns an
// error: any failure in the completion or its parsing degrades to empty
// entities with the general intent so the rest of the pipeline still runs.
func (e *Extractor) Interpret(ctx context.Context, query string) models.ExtractedQuery {
	extracted, err := e.complete(ctx, llm.CompletionRequest{
		SystemPrompt: extractionSystemPrompt,
		UserPrompt:   fmt.Sprintf(extractionPromptTemplate, query),
		Temperature:  0.1,
		MaxTokens:    500,
	})
	if err == nil {
		return extracted
	}

	logger.Warn("Entity extraction failed, retrying with simplified prompt", zap.Error(err))

	extracted, err = e.complete(ctx, llm.CompletionRequest{
		SystemPrompt: extractionSystemPrompt,
		UserPrompt:   fmt.Sprintf(extractionRetryPromptTemplate, query),
		Temperature:  0.1,
		MaxTokens:    200,
	})
	if err == nil {
		return extracted
	}

	logger.Error("Entity extraction retry failed, continuing without entities", zap.Error(err))
	return models.ExtractedQuery{Intent: models.IntentGeneral}
}

func (e *Extractor) complete(ctx context.Context, req llm.CompletionRequest) (models.ExtractedQuery, error) {
	resp, err := e.llm.Complete(ctx, req)
	if err != nil {
		return models.ExtractedQuery{}, err
	}

	return parseExtraction(resp.Content)
}

// extractionPayload mirrors the JSON schema the extraction prompt demands.
// Nullable singletons decode into pointers so null and "" collapse together.
type extractionPayload struct {
	Entities struct {
		Crop       *string  `json:"crop"`
		Pests      []string `json:"pests"`
		Diseases   []string `json:"diseases"`
		Symptoms   []string `json:"symptoms"`
		Region     *string  `json:"region"`
		Fertilizer *string  `json:"fertilizer"`
		Pesticide  *string  `json:"pesticide"`
		Treatment  *string  `json:"treatment"`
	} `json:"entities"`
	Intent string `json:"intent"`
}

func parseExtraction(raw string) (models.ExtractedQuery, error) {
	cleaned := stripCodeFence(raw)

	var payload extractionPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return models.ExtractedQuery{}, fmt.Errorf("failed to parse extraction JSON: %w", err)
	}

	extracted := models.ExtractedQuery{
		Entities: models.Entities{
			Crop:       derefString(payload.Entities.Crop),
			Pests:      payload.Entities.Pests,
			Diseases:   payload.Entities.Diseases,
			Symptoms:   payload.Entities.Symptoms,
			Region:     derefString(payload.Entities.Region),
			Fertilizer: derefString(payload.Entities.Fertilizer),
			Pesticide:  derefString(payload.Entities.Pesticide),
			Treatment:  derefString(payload.Entities.Treatment),
		},
		Intent: models.ParseIntent(payload.Intent),
	}

	logger.Info("Entities extracted",
		zap.String("intent", string(extracted.Intent)),
		zap.String("crop", extracted.Entities.Crop),
		zap.String("region", extracted.Entities.Region),
	)

	return extracted, nil
}

// stripCodeFence removes a surrounding markdown code fence, with or without a
// json language tag, which models emit despite the prompt forbidding it.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func derefString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
