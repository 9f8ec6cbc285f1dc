package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/OFFIS-RIT/cropgraph/backend/pkg/ai"
	"github.com/OFFIS-RIT/cropgraph/backend/pkg/common"
	"github.com/OFFIS-RIT/cropgraph/backend/pkg/graph"
	"github.com/OFFIS-RIT/cropgraph/backend/pkg/loader"
	"github.com/OFFIS-RIT/cropgraph/backend/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIngester struct {
	docs []common.Document
	res  graph.IngestResult
	err  error
}

func (f *fakeIngester) IngestDocument(ctx context.Context, doc common.Document) (graph.IngestResult, error) {
	f.docs = append(f.docs, doc)
	res := f.res
	res.DocumentID = doc.ID
	return res, f.err
}

type mapLoader map[string]string

func (m mapLoader) GetFileText(ctx context.Context, file loader.GraphFile) ([]byte, error) {
	text, ok := m[file.FilePath]
	if !ok {
		return nil, errors.New("no such object")
	}
	return []byte(text), nil
}

func encode(t *testing.T, msg IngestMsg) []byte {
	t.Helper()
	b, err := json.Marshal(msg)
	require.NoError(t, err)
	return b
}

func TestProcessIngestMessage_InlineText(t *testing.T) {
	ing := &fakeIngester{res: graph.IngestResult{State: graph.StateUpserted}}
	body := encode(t, IngestMsg{CorrelationID: "c1", DocumentID: "d1", Source: "api", Text: "Rice grows in clay."})

	res, err := ProcessIngestMessage(context.Background(), ing, nil, body)
	require.NoError(t, err)
	assert.Equal(t, graph.StateUpserted, res.State)
	require.Len(t, ing.docs, 1)
	assert.Equal(t, common.Document{ID: "d1", Source: "api", Text: "Rice grows in clay."}, ing.docs[0])
}

func TestProcessIngestMessage_ObjectKey(t *testing.T) {
	ing := &fakeIngester{res: graph.IngestResult{State: graph.StateUpserted}}
	files := mapLoader{"uploads/d1.txt": "Maize likes loam."}
	body := encode(t, IngestMsg{DocumentID: "d1", Source: "maize.txt", ObjectKey: "uploads/d1.txt"})

	_, err := ProcessIngestMessage(context.Background(), ing, files, body)
	require.NoError(t, err)
	assert.Equal(t, "Maize likes loam.", ing.docs[0].Text)

	_, err = ProcessIngestMessage(context.Background(), ing, nil, body)
	assert.Error(t, err)

	missing := encode(t, IngestMsg{DocumentID: "d2", ObjectKey: "uploads/none.txt"})
	res, err := ProcessIngestMessage(context.Background(), ing, files, missing)
	assert.Error(t, err)
	assert.Equal(t, graph.StateFailed, res.State)
}

func TestProcessIngestMessage_ExtractionFailureIsDone(t *testing.T) {
	ing := &fakeIngester{
		res: graph.IngestResult{State: graph.StateExtractionFailed},
		err: graph.ErrExtractionParse,
	}
	body := encode(t, IngestMsg{DocumentID: "d1", Text: "x"})

	res, err := ProcessIngestMessage(context.Background(), ing, nil, body)
	require.NoError(t, err)
	assert.Equal(t, graph.StateExtractionFailed, res.State)
}

func TestProcessIngestMessage_ModelUnavailableIsDeadLettered(t *testing.T) {
	down := fmt.Errorf("%w: %w", graph.ErrLLMService, errors.New("dial tcp 127.0.0.1:11434: connection refused"))
	ing := &fakeIngester{
		res: graph.IngestResult{State: graph.StateExtractionFailed},
		err: down,
	}
	body := encode(t, IngestMsg{DocumentID: "d1", Text: "Rice grows in clay."})

	res, err := ProcessIngestMessage(context.Background(), ing, nil, body)
	require.ErrorIs(t, err, graph.ErrLLMService)
	assert.Equal(t, graph.StateExtractionFailed, res.State)
}

type refusedAI struct {
	ai.MetricsRecorder
}

func (*refusedAI) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	return "", errors.New("dial tcp 127.0.0.1:11434: connection refused")
}

func (*refusedAI) GenerateChat(ctx context.Context, messages []ai.ChatMessage, opts ...ai.GenerateOption) (string, error) {
	return "", errors.New("dial tcp 127.0.0.1:11434: connection refused")
}

// docStorage records document upserts and answers everything else empty.
type docStorage struct {
	docs []string
}

func (s *docStorage) EnsureSchema(ctx context.Context) error { return nil }
func (s *docStorage) UpsertDocument(ctx context.Context, doc common.Document) error {
	s.docs = append(s.docs, doc.ID)
	return nil
}
func (s *docStorage) UpsertEntities(ctx context.Context, docID string, entities []common.Entity) (store.MentionStats, error) {
	return store.MentionStats{}, nil
}
func (s *docStorage) MergeRelations(ctx context.Context, relations []common.Relation) (store.RelationStats, error) {
	return store.RelationStats{}, nil
}
func (s *docStorage) NutrientCrops(ctx context.Context, nutrient string) ([]common.NutrientRequirementRow, error) {
	return nil, nil
}
func (s *docStorage) SuitableCrops(ctx context.Context) ([]common.SuitableCropRow, error) {
	return nil, nil
}
func (s *docStorage) RankCrops(ctx context.Context, in common.SoilInput, limit int) ([]common.CropScore, error) {
	return nil, nil
}
func (s *docStorage) SeedReferenceData(ctx context.Context, data store.ReferenceData) error { return nil }
func (s *docStorage) Close(ctx context.Context) error                                      { return nil }

func TestProcessIngestMessage_GraphClientModelDown(t *testing.T) {
	storage := &docStorage{}
	gc, err := graph.NewGraphClient(graph.NewGraphClientParams{AIClient: &refusedAI{}, Storage: storage})
	require.NoError(t, err)

	body := encode(t, IngestMsg{DocumentID: "d1", Text: "Rice grows in clay."})
	_, err = ProcessIngestMessage(context.Background(), gc, nil, body)
	require.ErrorIs(t, err, graph.ErrLLMService)
	assert.Equal(t, []string{"d1"}, storage.docs)
}

func TestProcessIngestMessage_Failures(t *testing.T) {
	storeErr := errors.New("neo4j down")
	ing := &fakeIngester{res: graph.IngestResult{State: graph.StateFailed}, err: storeErr}

	_, err := ProcessIngestMessage(context.Background(), ing, nil, encode(t, IngestMsg{DocumentID: "d1", Text: "x"}))
	require.ErrorIs(t, err, storeErr)

	_, err = ProcessIngestMessage(context.Background(), ing, nil, []byte("{not json"))
	assert.Error(t, err)

	_, err = ProcessIngestMessage(context.Background(), ing, nil, encode(t, IngestMsg{Text: "x"}))
	assert.Error(t, err)
}

func TestIngestMsgValidate(t *testing.T) {
	assert.Error(t, IngestMsg{DocumentID: "d"}.Validate())
	assert.Error(t, IngestMsg{Text: "x"}.Validate())
	assert.NoError(t, IngestMsg{DocumentID: "d", ObjectKey: "k"}.Validate())
}

func TestNewCorrelationID(t *testing.T) {
	a, err := NewCorrelationID()
	require.NoError(t, err)
	b, err := NewCorrelationID()
	require.NoError(t, err)
	assert.Len(t, a, 21)
	assert.NotEqual(t, a, b)
	assert.Equal(t, "ingest_queue_dlq", DeadLetterQueue(IngestQueue))
}
