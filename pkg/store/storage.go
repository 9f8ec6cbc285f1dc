package store

import (
	"context"

	"github.com/OFFIS-RIT/cropgraph/backend/pkg/common"
)

// Retrieval thresholds. A soil is suitable when it is not too saline and
// moist enough; the general query also bounds crop temperature and soil pH.
const (
	MaxSalinityDSM     = 3.0
	MinMoisturePercent = 55.0
	MinTemperatureC    = 18.0
	MaxTemperatureC    = 26.0
	MinPH              = 6.0
	MaxPH              = 7.0
)

// MentionStats reports the outcome of UpsertEntities.
// Mentions is lower than Entities when the document node does not exist.
type MentionStats struct {
	Entities int `json:"entities"`
	Mentions int `json:"mentions"`
}

// RelationStats reports the outcome of MergeRelations. Dropped counts
// relations whose source or target entity does not exist; they are not an
// error.
type RelationStats struct {
	Merged  int `json:"merged"`
	Dropped int `json:"dropped"`
}

// GraphStorage persists extracted knowledge and answers the parametric
// retrieval and ranking queries. All writes are idempotent merges keyed on
// Document.id and Entity.name. Implementations must be safe for sequential
// use from one goroutine and must close any per-call resources before
// returning.
type GraphStorage interface {
	// EnsureSchema creates uniqueness constraints. Failures are not fatal.
	EnsureSchema(ctx context.Context) error

	UpsertDocument(ctx context.Context, doc common.Document) error
	UpsertEntities(ctx context.Context, docID string, entities []common.Entity) (MentionStats, error)
	MergeRelations(ctx context.Context, relations []common.Relation) (RelationStats, error)

	// NutrientCrops lists crops requiring nutrient that grow in a suitable soil.
	NutrientCrops(ctx context.Context, nutrient string) ([]common.NutrientRequirementRow, error)
	// SuitableCrops lists crops matching the general suitability thresholds.
	SuitableCrops(ctx context.Context) ([]common.SuitableCropRow, error)
	// RankCrops scores crops against in, best (lowest) first, at most limit.
	RankCrops(ctx context.Context, in common.SoilInput, limit int) ([]common.CropScore, error)

	SeedReferenceData(ctx context.Context, data ReferenceData) error

	Close(ctx context.Context) error
}
