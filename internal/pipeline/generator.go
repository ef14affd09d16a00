package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	kg "github.com/RithikaDevaraj/Prakriti/internal/kg/neo4j"
	"github.com/RithikaDevaraj/Prakriti/internal/llm"
	"github.com/RithikaDevaraj/Prakriti/pkg/logger"
)

// apologyResponse is the last rung of the generation ladder, returned when
// every completion attempt failed.
const apologyResponse = "I apologize, but I'm experiencing technical difficulties. Please try again later."

const generatorSystemPrompt = "You are Prakriti, an expert agricultural advisor for Indian farmers. Provide practical, actionable advice in the farmer's language. Structure your response clearly using markdown formatting with paragraphs, bullet points, and bold text where appropriate."

// Generator runs the response stage: a ladder of progressively simpler
// completions, ending in a static apology so a response always exists.
type Generator struct {
	llm CompletionClient
}

func NewGenerator(client CompletionClient) *Generator {
	return &Generator{llm: client}
}

// Generate produces the final answer. Tier 1 is the full prompt with graph
// context and live fragments; tier 2 keeps only entity names; tier 3 is the
// bare question; tier 4 is the apology. Each tier gets its own completion
// attempt, so a transient failure in one does not doom the next.
func (g *Generator) Generate(ctx context.Context, query string, kgResults []kg.Entity, fragments []string, language string) string {
	resp, err := g.llm.Complete(ctx, llm1Request(query, kgResults, fragments, language))
	if err == nil {
		return strings.TrimSpace(resp.Content)
	}
	logger.Warn("Full context generation failed, degrading", zap.Error(err))

	resp, err = g.llm.Complete(ctx, llm2Request(query, kgResults))
	if err == nil {
		return strings.TrimSpace(resp.Content)
	}
	logger.Warn("Reduced context generation failed, degrading", zap.Error(err))

	resp, err = g.llm.Complete(ctx, llm3Request(query))
	if err == nil {
		return strings.TrimSpace(resp.Content)
	}
	logger.Error("All generation attempts failed", zap.Error(err))

	return apologyResponse
}

func llm1Request(query string, kgResults []kg.Entity, fragments []string, language string) llm.CompletionRequest {
	kgContext := "No specific knowledge graph data available."
	if len(kgResults) > 0 {
		var b strings.Builder
		b.WriteString("Knowledge Graph Information:\n")
		for i, entity := range kgResults {
			if i >= 10 {
				break
			}
			if len(entity.Properties) > 0 {
				props, err := json.Marshal(entity.Properties)
				if err == nil {
					fmt.Fprintf(&b, "- %s: %s\n", entity.Name, props)
					continue
				}
			}
			fmt.Fprintf(&b, "- %s\n", entity.Name)
		}
		kgContext = b.String()
	}

	liveContext := ""
	if len(fragments) > 0 {
		liveContext = "\n\nLive Data:\n" + strings.Join(fragments, "\n")
	}

	prompt := fmt.Sprintf(`You are Prakriti, an AI agricultural advisor specializing in Indian agriculture.

Farmer's Question: %q

Context from Knowledge Graph:
%s%s

Instructions:
1. Answer the farmer's question using the provided context if available
2. If context is available, use it to provide accurate, specific advice
3. If context is limited or unavailable, provide helpful agricultural advice based on your knowledge of Indian agriculture
4. Answer in the SAME LANGUAGE as the farmer's question (%s)
5. Be practical, actionable, and specific to Indian farming conditions
6. If discussing crops, pests, or diseases, mention specific regions when relevant
7. Structure your response clearly using markdown formatting:
   - Use paragraphs separated by blank lines
   - Use bullet points or numbered lists for multiple items
   - Use **bold** for important terms or headings
8. Keep the response concise (2-4 sentences per paragraph) but informative
9. If you don't have specific data (e.g., current market prices), provide general guidance based on your knowledge

Response:`, query, kgContext, liveContext, languageName(language))

	return llm.CompletionRequest{
		SystemPrompt: generatorSystemPrompt,
		UserPrompt:   prompt,
		Temperature:  0.7,
		MaxTokens:    500,
	}
}

func llm2Request(query string, kgResults []kg.Entity) llm.CompletionRequest {
	context := ""
	if len(kgResults) > 0 {
		names := make([]string, 0, 5)
		for i, entity := range kgResults {
			if i >= 5 {
				break
			}
			names = append(names, entity.Name)
		}
		context = fmt.Sprintf("Knowledge base contains: %s. ", strings.Join(names, ", "))
	}

	prompt := fmt.Sprintf(`You are Prakriti, an AI agricultural advisor for Indian farmers.

Farmer's Question: %q

%sPlease provide a helpful response based on your knowledge of Indian agriculture. If you don't have specific information, provide general agricultural advice.

Structure your response clearly using markdown formatting:
- Use paragraphs separated by blank lines
- Use bullet points or numbered lists for multiple items
- Use **bold** for important terms or headings
Keep the response concise but informative.

Response:`, query, context)

	return llm.CompletionRequest{
		SystemPrompt: "You are Prakriti, an expert agricultural advisor for Indian farmers.",
		UserPrompt:   prompt,
		Temperature:  0.7,
		MaxTokens:    300,
	}
}

func llm3Request(query string) llm.CompletionRequest {
	return llm.CompletionRequest{
		SystemPrompt: generatorSystemPrompt,
		UserPrompt:   fmt.Sprintf("Answer this agricultural question: %s", query),
		Temperature:  0.7,
		MaxTokens:    200,
	}
}

func languageName(code string) string {
	switch code {
	case "ta":
		return "Tamil"
	case "hi":
		return "Hindi"
	default:
		return "English"
	}
}
