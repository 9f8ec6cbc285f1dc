package neo4j

import (
	"context"

	"github.com/OFFIS-RIT/cropgraph/backend/pkg/common"
	"github.com/OFFIS-RIT/cropgraph/backend/pkg/logger"
	"github.com/OFFIS-RIT/cropgraph/backend/pkg/store"

	neo4jv5 "github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

var schemaStatements = []string{
	`CREATE CONSTRAINT document_id_unique IF NOT EXISTS FOR (d:Document) REQUIRE d.id IS UNIQUE`,
	`CREATE CONSTRAINT entity_name_unique IF NOT EXISTS FOR (e:Entity) REQUIRE e.name IS UNIQUE`,
	`CREATE CONSTRAINT crop_name_unique IF NOT EXISTS FOR (c:Crop) REQUIRE c.name IS UNIQUE`,
	`CREATE CONSTRAINT soil_name_unique IF NOT EXISTS FOR (s:Soil) REQUIRE s.name IS UNIQUE`,
	`CREATE CONSTRAINT nutrient_name_unique IF NOT EXISTS FOR (n:Nutrient) REQUIRE n.name IS UNIQUE`,
}

// EnsureSchema creates the uniqueness constraints backing the merge keys.
// A failing statement is logged and skipped; only a missing driver is an
// error.
func (s *GraphNeo4jStorage) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		_, err := s.write(ctx, "ensure_schema", func(ctx context.Context, tx neo4jv5.ManagedTransaction) (any, error) {
			res, err := tx.Run(ctx, stmt, nil)
			if err != nil {
				return nil, err
			}
			return res.Consume(ctx)
		})
		if err != nil {
			if s.driver == nil {
				return err
			}
			logger.Warn("[Neo4j] Schema init failed (continuing)", "statement", stmt, "err", err)
		}
	}
	return nil
}

const upsertDocumentQuery = `
MERGE (d:Document {id: $id})
SET d.source = $source,
    d.text   = $text
`

// UpsertDocument merges the document on its id and overwrites source and text.
func (s *GraphNeo4jStorage) UpsertDocument(ctx context.Context, doc common.Document) error {
	_, err := s.write(ctx, "upsert_document", func(ctx context.Context, tx neo4jv5.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, upsertDocumentQuery, map[string]any{
			"id":     doc.ID,
			"source": doc.Source,
			"text":   doc.Text,
		})
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	return err
}

// Entities are merged in list order, so for repeated names the last type wins.
// The mention edge is only created when the document exists.
const upsertEntitiesQuery = `
UNWIND $entities AS e
MERGE (ent:Entity {name: e.name})
SET ent.type = e.type
WITH ent
OPTIONAL MATCH (d:Document {id: $doc_id})
FOREACH (_ IN CASE WHEN d IS NULL THEN [] ELSE [1] END |
  MERGE (ent)-[:MENTIONED_IN]->(d)
)
RETURN count(ent) AS entities, count(d) AS mentions
`

// UpsertEntities merges every entity on its name, sets its type and links it
// to the document with a MENTIONED_IN edge.
func (s *GraphNeo4jStorage) UpsertEntities(
	ctx context.Context,
	docID string,
	entities []common.Entity,
) (store.MentionStats, error) {
	if len(entities) == 0 {
		return store.MentionStats{}, nil
	}

	params := make([]map[string]any, 0, len(entities))
	for _, e := range entities {
		params = append(params, map[string]any{
			"name": e.Name,
			"type": e.Type,
		})
	}

	out, err := s.write(ctx, "upsert_entities", func(ctx context.Context, tx neo4jv5.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, upsertEntitiesQuery, map[string]any{
			"entities": params,
			"doc_id":   docID,
		})
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		entitiesCount, _ := record.Get("entities")
		mentionsCount, _ := record.Get("mentions")
		return store.MentionStats{
			Entities: asInt(entitiesCount),
			Mentions: asInt(mentionsCount),
		}, nil
	})
	if err != nil {
		return store.MentionStats{}, err
	}
	return out.(store.MentionStats), nil
}

// Both endpoints must already exist. A relation with a missing endpoint
// produces no row, which is how dropped relations are counted.
const mergeRelationsQuery = `
UNWIND $relations AS r
MATCH (a:Entity {name: r.source})
MATCH (b:Entity {name: r.target})
MERGE (a)-[:RELATED_TO {type: r.relation}]->(b)
RETURN count(*) AS merged
`

// MergeRelations merges a RELATED_TO edge per relation. Relations whose
// endpoints were never upserted are dropped without error and counted.
func (s *GraphNeo4jStorage) MergeRelations(
	ctx context.Context,
	relations []common.Relation,
) (store.RelationStats, error) {
	if len(relations) == 0 {
		return store.RelationStats{}, nil
	}

	params := make([]map[string]any, 0, len(relations))
	for _, r := range relations {
		params = append(params, map[string]any{
			"source":   r.Source,
			"relation": r.Relation,
			"target":   r.Target,
		})
	}

	out, err := s.write(ctx, "merge_relations", func(ctx context.Context, tx neo4jv5.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, mergeRelationsQuery, map[string]any{"relations": params})
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		merged, _ := record.Get("merged")
		return asInt(merged), nil
	})
	if err != nil {
		return store.RelationStats{}, err
	}

	merged := out.(int)
	return store.RelationStats{
		Merged:  merged,
		Dropped: len(relations) - merged,
	}, nil
}
