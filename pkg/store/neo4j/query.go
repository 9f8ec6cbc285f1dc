package neo4j

import (
	"context"

	"github.com/OFFIS-RIT/cropgraph/backend/pkg/common"
	"github.com/OFFIS-RIT/cropgraph/backend/pkg/logger"
	"github.com/OFFIS-RIT/cropgraph/backend/pkg/store"

	neo4jv5 "github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

const nutrientCropsQuery = `
MATCH (c:Crop)-[r:REQUIRES]->(n:Nutrient {name: $nutrient}),
      (c)-[:GROWS_IN]->(s:Soil)
WHERE s.salinity_dsm <= $max_salinity
  AND s.moisture_percent >= $min_moisture
RETURN c.name AS crop, r.mgkg AS value
`

// NutrientCrops returns one row per (crop, soil) match in store order. A
// requirement without an amount yields a row marked Missing.
func (s *GraphNeo4jStorage) NutrientCrops(ctx context.Context, nutrient string) ([]common.NutrientRequirementRow, error) {
	out, err := s.read(ctx, "nutrient_crops", func(ctx context.Context, tx neo4jv5.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, nutrientCropsQuery, map[string]any{
			"nutrient":     nutrient,
			"max_salinity": store.MaxSalinityDSM,
			"min_moisture": store.MinMoisturePercent,
		})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}

		rows := make([]common.NutrientRequirementRow, 0, len(records))
		for _, record := range records {
			rawCrop, _ := record.Get("crop")
			rawValue, _ := record.Get("value")
			crop, ok := asString(rawCrop)
			if !ok {
				logger.Warn("[Neo4j] Skipping nutrient row without crop name", "value", rawValue)
				continue
			}
			value, ok := asFloat(rawValue)
			rows = append(rows, common.NutrientRequirementRow{Crop: crop, Value: value, Missing: !ok})
		}
		return rows, nil
	})
	if err != nil {
		return nil, err
	}
	return out.([]common.NutrientRequirementRow), nil
}

const suitableCropsQuery = `
MATCH (c:Crop)-[:GROWS_IN]->(s:Soil)
WHERE c.temperature_c >= $min_temperature AND c.temperature_c <= $max_temperature
  AND s.ph >= $min_ph AND s.ph <= $max_ph
  AND s.moisture_percent >= $min_moisture
  AND s.salinity_dsm <= $max_salinity
RETURN c.name AS crop
`

// SuitableCrops returns one row per (crop, soil) match in store order.
func (s *GraphNeo4jStorage) SuitableCrops(ctx context.Context) ([]common.SuitableCropRow, error) {
	out, err := s.read(ctx, "suitable_crops", func(ctx context.Context, tx neo4jv5.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, suitableCropsQuery, map[string]any{
			"min_temperature": store.MinTemperatureC,
			"max_temperature": store.MaxTemperatureC,
			"min_ph":          store.MinPH,
			"max_ph":          store.MaxPH,
			"min_moisture":    store.MinMoisturePercent,
			"max_salinity":    store.MaxSalinityDSM,
		})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}

		rows := make([]common.SuitableCropRow, 0, len(records))
		for _, record := range records {
			rawCrop, _ := record.Get("crop")
			crop, ok := asString(rawCrop)
			if !ok {
				continue
			}
			rows = append(rows, common.SuitableCropRow{Crop: crop})
		}
		return rows, nil
	})
	if err != nil {
		return nil, err
	}
	return out.([]common.SuitableCropRow), nil
}

// A crop without a requirement for a nutrient is not penalised for it.
// Crops without any REQUIRES edge are still ranked on soil and temperature.
const rankCropsQuery = `
MATCH (c:Crop)-[:GROWS_IN]->(s:Soil)
WHERE toLower(s.type) CONTAINS toLower($soil_type)
OPTIONAL MATCH (c)-[r:REQUIRES]->(n:Nutrient)
WITH c, s, collect({name: n.name, mgkg: r.mgkg}) AS nutrients
WITH c, s,
  [x IN nutrients WHERE x.name = $nitrogen][0] AS N,
  [x IN nutrients WHERE x.name = $phosphorus][0] AS P,
  [x IN nutrients WHERE x.name = $potassium][0] AS K
RETURN
  c.name AS crop,
  (
    CASE WHEN N IS NULL OR N.mgkg IS NULL THEN 0 ELSE abs($N - N.mgkg) END +
    CASE WHEN P IS NULL OR P.mgkg IS NULL THEN 0 ELSE abs($P - P.mgkg) END +
    CASE WHEN K IS NULL OR K.mgkg IS NULL THEN 0 ELSE abs($K - K.mgkg) END +
    abs($pH - s.ph) +
    abs($M - s.moisture_percent) +
    abs($salinity - s.salinity_dsm) +
    abs($T - c.temperature_c)
  ) AS score
ORDER BY score ASC
LIMIT $limit
`

// RankCrops scores every crop growing in a soil whose type contains
// in.SoilType (case-insensitive). Ties keep whatever order the database
// returns.
func (s *GraphNeo4jStorage) RankCrops(ctx context.Context, in common.SoilInput, limit int) ([]common.CropScore, error) {
	out, err := s.read(ctx, "rank_crops", func(ctx context.Context, tx neo4jv5.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, rankCropsQuery, map[string]any{
			"soil_type":  in.SoilType,
			"nitrogen":   store.NutrientNitrogen,
			"phosphorus": store.NutrientPhosphorus,
			"potassium":  store.NutrientPotassium,
			"N":          in.Nitrogen,
			"P":          in.Phosphorus,
			"K":          in.Potassium,
			"pH":         in.PH,
			"M":          in.Moisture,
			"salinity":   in.Salinity,
			"T":          in.Temperature,
			"limit":      int64(limit),
		})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}

		scores := make([]common.CropScore, 0, len(records))
		for _, record := range records {
			rawCrop, _ := record.Get("crop")
			rawScore, _ := record.Get("score")
			crop, okCrop := asString(rawCrop)
			score, okScore := asFloat(rawScore)
			if !okCrop || !okScore {
				logger.Warn("[Neo4j] Skipping unscorable crop", "crop", rawCrop)
				continue
			}
			scores = append(scores, common.CropScore{Crop: crop, Score: score})
		}
		return scores, nil
	})
	if err != nil {
		return nil, err
	}
	return out.([]common.CropScore), nil
}
