package neo4j

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/OFFIS-RIT/cropgraph/backend/pkg/ai"
	"github.com/OFFIS-RIT/cropgraph/backend/pkg/common"
	"github.com/OFFIS-RIT/cropgraph/backend/pkg/graph"
	"github.com/OFFIS-RIT/cropgraph/backend/pkg/store"

	neo4jv5 "github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const testPassword = "cropgraph-test"

var (
	containerOnce sync.Once
	container     testcontainers.Container
	containerURI  string
	containerErr  error
)

func TestMain(m *testing.M) {
	code := m.Run()
	if container != nil {
		if err := container.Terminate(context.Background()); err != nil {
			log.Printf("error tearing down neo4j container: %v", err)
		}
	}
	os.Exit(code)
}

func startNeo4jContainer() {
	ctx := context.Background()
	container, containerErr = testcontainers.Run(
		ctx,
		"neo4j:5",
		testcontainers.WithExposedPorts("7687/tcp"),
		testcontainers.WithEnv(map[string]string{
			"NEO4J_AUTH": "neo4j/" + testPassword,
		}),
		testcontainers.WithWaitStrategy(
			wait.ForLog("Started.").WithStartupTimeout(3*time.Minute),
		),
	)
	if containerErr != nil {
		return
	}

	host, err := container.Host(ctx)
	if err != nil {
		containerErr = err
		return
	}
	port, err := container.MappedPort(ctx, "7687/tcp")
	if err != nil {
		containerErr = err
		return
	}
	containerURI = fmt.Sprintf("bolt://%s:%s", host, port.Port())
}

// newTestStorage returns a storage on an empty database. Tests using it are
// skipped in -short mode and when no container runtime is available.
func newTestStorage(t *testing.T) *GraphNeo4jStorage {
	t.Helper()
	if testing.Short() {
		t.Skip("neo4j integration test skipped in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	containerOnce.Do(startNeo4jContainer)
	require.NoError(t, containerErr, "failed to start neo4j container")

	ctx := context.Background()
	s, err := NewGraphNeo4jStorage(ctx, NewGraphNeo4jStorageParams{
		URI:      containerURI,
		Username: "neo4j",
		Password: testPassword,
		Timeout:  30 * time.Second,
	})
	require.NoError(t, err)

	_, err = s.write(ctx, "reset", func(ctx context.Context, tx neo4jv5.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, "MATCH (n) DETACH DELETE n", nil)
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	require.NoError(t, err)
	require.NoError(t, s.EnsureSchema(ctx))

	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

// countMatches runs a counting query returning a single "n" column.
func countMatches(t *testing.T, s *GraphNeo4jStorage, query string, params map[string]any) int {
	t.Helper()
	ctx := context.Background()
	out, err := s.read(ctx, "count", func(ctx context.Context, tx neo4jv5.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		n, _ := record.Get("n")
		return asInt(n), nil
	})
	require.NoError(t, err)
	return out.(int)
}

var testReference = store.ReferenceData{
	Soils: []store.Soil{
		{Name: "Clay Loam", Type: "Clay Loam", PH: 6.5, MoisturePercent: 60, SalinityDSM: 1},
		{Name: "Sandy", Type: "Sandy", PH: 7.8, MoisturePercent: 30, SalinityDSM: 4},
	},
	Nutrients: []string{store.NutrientNitrogen, store.NutrientPhosphorus, store.NutrientPotassium},
	Crops: []store.Crop{
		{
			Name:         "Rice",
			TemperatureC: 25,
			GrowsIn:      []string{"Clay Loam"},
			Requires:     map[string]float64{"Nitrogen": 80, "Phosphorus": 40, "Potassium": 40},
		},
		{
			Name:         "Maize",
			TemperatureC: 22,
			GrowsIn:      []string{"Clay Loam"},
			Requires:     map[string]float64{"Nitrogen": 120, "Potassium": 60},
		},
		{
			Name:         "Millet",
			TemperatureC: 30,
			GrowsIn:      []string{"Sandy"},
			Requires:     map[string]float64{"Nitrogen": 40},
		},
	},
}

func TestUpsertDocument_Idempotent(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertDocument(ctx, common.Document{ID: "doc-1", Source: "a.txt", Text: "first"}))
	require.NoError(t, s.UpsertDocument(ctx, common.Document{ID: "doc-1", Source: "a.txt", Text: "second"}))

	assert.Equal(t, 1, countMatches(t, s, `MATCH (d:Document {id: $id}) RETURN count(d) AS n`, map[string]any{"id": "doc-1"}))
	assert.Equal(t, 1, countMatches(t, s, `MATCH (d:Document {id: $id, text: $text}) RETURN count(d) AS n`,
		map[string]any{"id": "doc-1", "text": "second"}))
}

func TestUpsertEntities_MentionsAndMerge(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertDocument(ctx, common.Document{ID: "doc-1", Source: "a.txt", Text: "Rice needs water."}))

	stats, err := s.UpsertEntities(ctx, "doc-1", []common.Entity{
		{Name: "Rice", Type: "Crop"},
		{Name: "Water", Type: "Resource"},
		{Name: "Rice", Type: "Cereal"},
	})
	require.NoError(t, err)
	assert.Equal(t, store.MentionStats{Entities: 3, Mentions: 3}, stats)

	assert.Equal(t, 2, countMatches(t, s, `MATCH (e:Entity) RETURN count(e) AS n`, nil))
	assert.Equal(t, 1, countMatches(t, s, `MATCH (e:Entity {name: 'Rice', type: 'Cereal'}) RETURN count(e) AS n`, nil))
	assert.Equal(t, 2, countMatches(t, s, `MATCH (:Entity)-[m:MENTIONED_IN]->(:Document {id: 'doc-1'}) RETURN count(m) AS n`, nil))
}

func TestUpsertEntities_MissingDocument(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	stats, err := s.UpsertEntities(ctx, "missing", []common.Entity{{Name: "Rice", Type: "Crop"}})
	require.NoError(t, err)
	assert.Equal(t, store.MentionStats{Entities: 1, Mentions: 0}, stats)
	assert.Equal(t, 0, countMatches(t, s, `MATCH ()-[m:MENTIONED_IN]->() RETURN count(m) AS n`, nil))
}

func TestMergeRelations_DropsMissingEndpoints(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	_, err := s.UpsertEntities(ctx, "doc-1", []common.Entity{
		{Name: "Rice", Type: "Crop"},
		{Name: "Water", Type: "Resource"},
	})
	require.NoError(t, err)

	rels := []common.Relation{
		{Source: "Rice", Relation: "NEEDS", Target: "Water"},
		{Source: "Rice", Relation: "NEEDS", Target: "Sunlight"},
	}
	stats, err := s.MergeRelations(ctx, rels)
	require.NoError(t, err)
	assert.Equal(t, store.RelationStats{Merged: 1, Dropped: 1}, stats)

	// merging again adds nothing
	_, err = s.MergeRelations(ctx, rels)
	require.NoError(t, err)
	assert.Equal(t, 1, countMatches(t, s, `MATCH ()-[r:RELATED_TO]->() RETURN count(r) AS n`, nil))
	assert.Equal(t, 0, countMatches(t, s, `MATCH (e:Entity {name: 'Sunlight'}) RETURN count(e) AS n`, nil))
}

func TestMergeRelations_TypeIsPartOfKey(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	_, err := s.UpsertEntities(ctx, "doc-1", []common.Entity{
		{Name: "Rice", Type: "Crop"},
		{Name: "Water", Type: "Resource"},
	})
	require.NoError(t, err)

	rels := []common.Relation{
		{Source: "Rice", Relation: "NEEDS", Target: "Water"},
		{Source: "Rice", Relation: "GROWS_IN", Target: "Water"},
	}
	for range 2 {
		stats, err := s.MergeRelations(ctx, rels)
		require.NoError(t, err)
		assert.Equal(t, store.RelationStats{Merged: 2, Dropped: 0}, stats)
		assert.Equal(t, 2, countMatches(t, s,
			`MATCH (:Entity {name: 'Rice'})-[r:RELATED_TO]->(:Entity {name: 'Water'}) RETURN count(r) AS n`, nil))
	}
	assert.Equal(t, 1, countMatches(t, s,
		`MATCH ()-[r:RELATED_TO {type: 'GROWS_IN'}]->() RETURN count(r) AS n`, nil))
}

func TestRankCrops(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	require.NoError(t, s.SeedReferenceData(ctx, testReference))

	t.Run("exact match ranks first with zero score", func(t *testing.T) {
		scores, err := s.RankCrops(ctx, common.SoilInput{
			Nitrogen: 80, Phosphorus: 40, Potassium: 40,
			Temperature: 25, PH: 6.5, Moisture: 60, Salinity: 1,
			SoilType: "clay",
		}, 3)
		require.NoError(t, err)
		require.Len(t, scores, 2)
		assert.Equal(t, common.CropScore{Crop: "Rice", Score: 0}, scores[0])
		assert.Equal(t, "Maize", scores[1].Crop)
		// Maize: |80-120| + |40-60| + |25-22|, phosphorus not required
		assert.InDelta(t, 63, scores[1].Score, 1e-9)
	})

	t.Run("no matching soil", func(t *testing.T) {
		scores, err := s.RankCrops(ctx, common.SoilInput{SoilType: "peat"}, 3)
		require.NoError(t, err)
		assert.Empty(t, scores)
	})

	t.Run("limit", func(t *testing.T) {
		scores, err := s.RankCrops(ctx, common.SoilInput{SoilType: ""}, 1)
		require.NoError(t, err)
		assert.Len(t, scores, 1)
	})
}

func TestRetrievalQueries(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	require.NoError(t, s.SeedReferenceData(ctx, testReference))
	// seeding twice must not duplicate anything
	require.NoError(t, s.SeedReferenceData(ctx, testReference))

	rows, err := s.NutrientCrops(ctx, store.NutrientNitrogen)
	require.NoError(t, err)
	assert.ElementsMatch(t, []common.NutrientRequirementRow{
		{Crop: "Rice", Value: 80},
		{Crop: "Maize", Value: 120},
	}, rows)

	suitable, err := s.SuitableCrops(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []common.SuitableCropRow{{Crop: "Rice"}, {Crop: "Maize"}}, suitable)
}

func TestNutrientCrops_KeepsRowsWithoutAmount(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	require.NoError(t, s.SeedReferenceData(ctx, testReference))

	_, err := s.write(ctx, "add_barley", func(ctx context.Context, tx neo4jv5.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (s:Soil {name: 'Clay Loam'}), (n:Nutrient {name: 'Potassium'})
MERGE (c:Crop {name: 'Barley'})
MERGE (c)-[:GROWS_IN]->(s)
MERGE (c)-[:REQUIRES]->(n)`, nil)
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	require.NoError(t, err)

	rows, err := s.NutrientCrops(ctx, store.NutrientPotassium)
	require.NoError(t, err)
	assert.ElementsMatch(t, []common.NutrientRequirementRow{
		{Crop: "Rice", Value: 40},
		{Crop: "Maize", Value: 60},
		{Crop: "Barley", Missing: true},
	}, rows)
}

func TestClosedStorage(t *testing.T) {
	s := NewGraphNeo4jStorageWithDriver(nil, "", 0)
	require.NoError(t, s.Close(context.Background()))

	err := s.UpsertDocument(context.Background(), common.Document{ID: "x"})
	assert.ErrorContains(t, err, "storage is closed")
}

type cannedAI struct {
	ai.MetricsRecorder
	reply string
}

func (c *cannedAI) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	return c.reply, nil
}

func (c *cannedAI) GenerateChat(ctx context.Context, messages []ai.ChatMessage, opts ...ai.GenerateOption) (string, error) {
	return c.reply, nil
}

func TestIngestDocument_EndToEnd(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	gc, err := graph.NewGraphClient(graph.NewGraphClientParams{
		AIClient: &cannedAI{reply: `{"entities":[{"name":"Rice","type":"Crop"}],"relations":[]}`},
		Storage:  s,
	})
	require.NoError(t, err)

	res, err := gc.IngestDocument(ctx, common.Document{ID: "doc-rice", Source: "rice.txt", Text: "Rice grows in clay."})
	require.NoError(t, err)
	assert.Equal(t, graph.StateUpserted, res.State)

	assert.Equal(t, 1, countMatches(t, s,
		`MATCH (e:Entity {name: 'Rice'})-[:MENTIONED_IN]->(d:Document {id: $id}) RETURN count(e) AS n`,
		map[string]any{"id": "doc-rice"}))
}
