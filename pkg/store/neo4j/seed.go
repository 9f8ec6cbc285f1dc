package neo4j

import (
	"context"

	"github.com/OFFIS-RIT/cropgraph/backend/pkg/store"

	neo4jv5 "github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

var seedStatements = []struct {
	param string
	query string
}{
	{"soils", `
UNWIND $soils AS s
MERGE (x:Soil {name: s.name})
SET x.type = s.type,
    x.ph = s.ph,
    x.moisture_percent = s.moisture_percent,
    x.salinity_dsm = s.salinity_dsm
`},
	{"nutrients", `
UNWIND $nutrients AS n
MERGE (:Nutrient {name: n})
`},
	{"crops", `
UNWIND $crops AS c
MERGE (x:Crop {name: c.name})
SET x.temperature_c = c.temperature_c
`},
	{"grows", `
UNWIND $grows AS g
MATCH (c:Crop {name: g.crop})
MATCH (s:Soil {name: g.soil})
MERGE (c)-[:GROWS_IN]->(s)
`},
	{"requires", `
UNWIND $requires AS r
MATCH (c:Crop {name: r.crop})
MATCH (n:Nutrient {name: r.nutrient})
MERGE (c)-[q:REQUIRES]->(n)
SET q.mgkg = r.mgkg
`},
}

// SeedReferenceData merges crops, soils, nutrients and their edges in a
// single transaction. Running it twice leaves the graph unchanged.
func (s *GraphNeo4jStorage) SeedReferenceData(ctx context.Context, data store.ReferenceData) error {
	params := referenceParams(data)

	_, err := s.write(ctx, "seed_reference_data", func(ctx context.Context, tx neo4jv5.ManagedTransaction) (any, error) {
		for _, stmt := range seedStatements {
			rows := params[stmt.param]
			if len(rows) == 0 {
				continue
			}
			res, err := tx.Run(ctx, stmt.query, map[string]any{stmt.param: rows})
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

func referenceParams(data store.ReferenceData) map[string][]any {
	params := map[string][]any{}

	for _, soil := range data.Soils {
		name := soil.Name
		if name == "" {
			name = soil.Type
		}
		params["soils"] = append(params["soils"], map[string]any{
			"name":             name,
			"type":             soil.Type,
			"ph":               soil.PH,
			"moisture_percent": soil.MoisturePercent,
			"salinity_dsm":     soil.SalinityDSM,
		})
	}
	for _, n := range data.Nutrients {
		params["nutrients"] = append(params["nutrients"], n)
	}
	for _, crop := range data.Crops {
		params["crops"] = append(params["crops"], map[string]any{
			"name":          crop.Name,
			"temperature_c": crop.TemperatureC,
		})
		for _, soil := range crop.GrowsIn {
			params["grows"] = append(params["grows"], map[string]any{
				"crop": crop.Name,
				"soil": soil,
			})
		}
		for nutrient, mgkg := range crop.Requires {
			params["requires"] = append(params["requires"], map[string]any{
				"crop":     crop.Name,
				"nutrient": nutrient,
				"mgkg":     mgkg,
			})
		}
	}

	return params
}
