package common

import (
	"strconv"
)

// Document is a single ingested text. ID is assigned once when the document
// is loaded and is the merge key of its Document node. Source records where
// the text came from (a path or an object key).
type Document struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Text   string `json:"text"`
}

// Entity is a named node extracted from a document. Name is the graph-wide
// identity of the node, so two documents mentioning "Rice" share one node.
type Entity struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Relation is a directed, typed edge between two entities referenced by name.
type Relation struct {
	Source   string `json:"source"`
	Relation string `json:"relation"`
	Target   string `json:"target"`
}

// KnowledgeGraph is the structured result of one extraction call.
// Entities and Relations keep the order in which the model emitted them.
type KnowledgeGraph struct {
	Entities  []Entity   `json:"entities"`
	Relations []Relation `json:"relations"`
}

// SoilInput holds the measurements a recommendation is ranked against.
// SoilType is matched as a case-insensitive substring of Soil.type.
type SoilInput struct {
	Nitrogen    float64 `json:"nitrogen"`
	Phosphorus  float64 `json:"phosphorus"`
	Potassium   float64 `json:"potassium"`
	Temperature float64 `json:"temperature"`
	PH          float64 `json:"ph"`
	Moisture    float64 `json:"moisture"`
	Salinity    float64 `json:"salinity"`
	SoilType    string  `json:"soil_type"`
}

// CropScore is one ranked candidate. Lower scores are better matches.
type CropScore struct {
	Crop  string  `json:"crop"`
	Score float64 `json:"score"`
}

// Recommendation is the result of ranking crops for a soil input.
// Crop is nil when no crop grows in a matching soil.
type Recommendation struct {
	Crop         *string  `json:"crop"`
	Alternatives []string `json:"alternatives"`
	Explanation  string   `json:"explanation"`
}

// QueryAnswer is the result of a graph grounded question.
type QueryAnswer struct {
	Query        string `json:"query"`
	GraphContext string `json:"graph_context"`
	Answer       string `json:"answer"`
}

// CropRow is a single row returned by a retrieval query. The concrete type
// tells which query shape produced it.
type CropRow interface {
	CropName() string
	Sentence() string

	cropRow()
}

// NutrientRequirementRow is produced by the nutrient specific query and
// carries the amount of the nutrient the crop requires. Missing is set when
// the requirement edge has no amount; Value is then zero.
type NutrientRequirementRow struct {
	Crop    string  `json:"crop"`
	Value   float64 `json:"value"`
	Missing bool    `json:"missing,omitempty"`
}

func (r NutrientRequirementRow) CropName() string { return r.Crop }

// Sentence renders the row as "{crop} has a required value of {value}.".
// The value uses the shortest representation that round-trips, so 40 is
// printed as "40" and 12.5 as "12.5". A missing amount is printed as
// "unknown".
func (r NutrientRequirementRow) Sentence() string {
	if r.Missing {
		return r.Crop + " has a required value of unknown."
	}
	return r.Crop + " has a required value of " + FormatNumber(r.Value) + "."
}

func (NutrientRequirementRow) cropRow() {}

// SuitableCropRow is produced by the general suitability query.
type SuitableCropRow struct {
	Crop string `json:"crop"`
}

func (r SuitableCropRow) CropName() string { return r.Crop }

func (r SuitableCropRow) Sentence() string {
	return r.Crop + " is a suitable crop under the given conditions."
}

func (SuitableCropRow) cropRow() {}

// FormatNumber prints f without trailing zeros or exponent noise.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
