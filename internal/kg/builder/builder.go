package builder

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/RithikaDevaraj/Prakriti/internal/kg/neo4j"
	"github.com/RithikaDevaraj/Prakriti/pkg/logger"
)

// Builder seeds the knowledge graph with the baseline agricultural dataset:
// crops, pests, diseases, regions and control methods plus their relations.
type Builder struct {
	kgClient *neo4j.Client
}

func NewBuilder(kgClient *neo4j.Client) *Builder {
	return &Builder{kgClient: kgClient}
}

type seedEntity struct {
	label      string
	name       string
	properties map[string]interface{}
}

type seedRelation struct {
	from    string
	to      string
	relType string
}

var seedEntities = []seedEntity{
	{"Crop", "Rice", map[string]interface{}{"type": "Cereal", "season": "Kharif", "duration": "120-150 days"}},
	{"Crop", "Wheat", map[string]interface{}{"type": "Cereal", "season": "Rabi", "duration": "120-140 days"}},
	{"Crop", "Cotton", map[string]interface{}{"type": "Fiber", "season": "Kharif", "duration": "150-180 days"}},
	{"Crop", "Sugarcane", map[string]interface{}{"type": "Cash Crop", "season": "Year-round", "duration": "12-18 months"}},
	{"Crop", "Maize", map[string]interface{}{"type": "Cereal", "season": "Kharif", "duration": "90-120 days"}},

	{"Pest", "Brown Planthopper", map[string]interface{}{"type": "Insect", "damage": "Sucking pest"}},
	{"Pest", "Cotton Bollworm", map[string]interface{}{"type": "Insect", "damage": "Fruit borer"}},
	{"Pest", "Aphids", map[string]interface{}{"type": "Insect", "damage": "Sucking pest"}},
	{"Pest", "Whitefly", map[string]interface{}{"type": "Insect", "damage": "Sucking pest"}},
	{"Pest", "Stem Borer", map[string]interface{}{"type": "Insect", "damage": "Stem borer"}},

	{"Disease", "Blast Disease", map[string]interface{}{"type": "Fungal", "symptoms": "Leaf spots"}},
	{"Disease", "Rust", map[string]interface{}{"type": "Fungal", "symptoms": "Orange pustules"}},
	{"Disease", "Bacterial Blight", map[string]interface{}{"type": "Bacterial", "symptoms": "Water-soaked lesions"}},
	{"Disease", "Powdery Mildew", map[string]interface{}{"type": "Fungal", "symptoms": "White powdery coating"}},
	{"Disease", "Leaf Curl", map[string]interface{}{"type": "Viral", "symptoms": "Curled leaves"}},

	{"Region", "Tamil Nadu", map[string]interface{}{"state": "Tamil Nadu", "climate": "Tropical"}},
	{"Region", "Punjab", map[string]interface{}{"state": "Punjab", "climate": "Semi-arid"}},
	{"Region", "Maharashtra", map[string]interface{}{"state": "Maharashtra", "climate": "Tropical"}},
	{"Region", "Kerala", map[string]interface{}{"state": "Kerala", "climate": "Tropical"}},
	{"Region", "Karnataka", map[string]interface{}{"state": "Karnataka", "climate": "Tropical"}},

	{"ControlMethod", "Neem Oil", map[string]interface{}{"type": "Organic", "target": "Broad spectrum", "application": "Foliar spray"}},
	{"ControlMethod", "Chlorpyrifos", map[string]interface{}{"type": "Chemical", "target": "Sucking pests", "application": "Foliar spray"}},
	{"ControlMethod", "Bacillus thuringiensis", map[string]interface{}{"type": "Biological", "target": "Caterpillars", "application": "Foliar spray"}},
	{"ControlMethod", "Copper Fungicide", map[string]interface{}{"type": "Chemical", "target": "Fungal diseases", "application": "Foliar spray"}},
	{"ControlMethod", "Crop Rotation", map[string]interface{}{"type": "Cultural", "target": "General", "application": "Field practice"}},
}

var seedRelations = []seedRelation{
	{"Rice", "Brown Planthopper", "AFFECTED_BY"},
	{"Cotton", "Cotton Bollworm", "AFFECTED_BY"},
	{"Wheat", "Aphids", "AFFECTED_BY"},
	{"Cotton", "Whitefly", "AFFECTED_BY"},
	{"Rice", "Stem Borer", "AFFECTED_BY"},

	{"Rice", "Blast Disease", "AFFECTED_BY"},
	{"Wheat", "Rust", "AFFECTED_BY"},
	{"Rice", "Bacterial Blight", "AFFECTED_BY"},
	{"Cotton", "Bacterial Blight", "AFFECTED_BY"},
	{"Wheat", "Powdery Mildew", "AFFECTED_BY"},
	{"Cotton", "Leaf Curl", "AFFECTED_BY"},

	{"Tamil Nadu", "Rice", "GROWS"},
	{"Tamil Nadu", "Cotton", "GROWS"},
	{"Punjab", "Wheat", "GROWS"},
	{"Punjab", "Rice", "GROWS"},
	{"Maharashtra", "Cotton", "GROWS"},
	{"Maharashtra", "Sugarcane", "GROWS"},

	{"Neem Oil", "Brown Planthopper", "CONTROLS"},
	{"Chlorpyrifos", "Cotton Bollworm", "CONTROLS"},
	{"Neem Oil", "Aphids", "CONTROLS"},
	{"Chlorpyrifos", "Whitefly", "CONTROLS"},

	{"Copper Fungicide", "Blast Disease", "CONTROLS"},
	{"Copper Fungicide", "Rust", "CONTROLS"},
	{"Copper Fungicide", "Bacterial Blight", "CONTROLS"},
	{"Copper Fungicide", "Powdery Mildew", "CONTROLS"},
}

// LoadIfEmpty seeds the graph only when it contains no nodes, so a populated
// database is never touched.
func (b *Builder) LoadIfEmpty(ctx context.Context) error {
	count, err := b.kgClient.CountEntities(ctx)
	if err != nil {
		return fmt.Errorf("failed to check graph size: %w", err)
	}

	if count > 0 {
		logger.Info("Knowledge graph already populated", zap.Int64("nodes", count))
		return nil
	}

	logger.Info("Knowledge graph empty, loading seed data")
	return b.Load(ctx)
}

// Load writes the seed entities and their relations.
func (b *Builder) Load(ctx context.Context) error {
	for _, entity := range seedEntities {
		if err := b.kgClient.UpsertEntity(ctx, entity.label, entity.name, entity.properties); err != nil {
			return fmt.Errorf("failed to seed entity %s: %w", entity.name, err)
		}
	}

	for _, rel := range seedRelations {
		if err := b.kgClient.UpsertRelation(ctx, rel.from, rel.to, rel.relType); err != nil {
			return fmt.Errorf("failed to seed relation %s-%s->%s: %w", rel.from, rel.relType, rel.to, err)
		}
	}

	logger.Info("Seed data loaded",
		zap.Int("entities", len(seedEntities)),
		zap.Int("relations", len(seedRelations)),
	)

	return nil
}
