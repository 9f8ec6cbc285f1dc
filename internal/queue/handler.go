package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/OFFIS-RIT/cropgraph/backend/internal/util"
	"github.com/OFFIS-RIT/cropgraph/backend/pkg/common"
	"github.com/OFFIS-RIT/cropgraph/backend/pkg/graph"
	"github.com/OFFIS-RIT/cropgraph/backend/pkg/loader"
	"github.com/OFFIS-RIT/cropgraph/backend/pkg/logger"
)

// DocumentIngester is the part of graph.GraphClient the worker needs.
type DocumentIngester interface {
	IngestDocument(ctx context.Context, doc common.Document) (graph.IngestResult, error)
}

// ProcessIngestMessage decodes body and ingests the document it names.
// Texts referenced by ObjectKey are read through files, which may be nil
// when only inline messages are expected.
//
// An unparsable model reply is not an error here: the document is stored
// and the message is done. An unreachable model and every other failure are
// returned so the caller can dead letter the message.
func ProcessIngestMessage(
	ctx context.Context,
	ingester DocumentIngester,
	files loader.GraphFileLoader,
	body []byte,
) (graph.IngestResult, error) {
	var msg IngestMsg
	if err := json.Unmarshal(body, &msg); err != nil {
		return graph.IngestResult{State: graph.StateFailed}, fmt.Errorf("decode ingest message: %w", err)
	}
	if err := msg.Validate(); err != nil {
		return graph.IngestResult{State: graph.StateFailed}, err
	}

	text := msg.Text
	if msg.ObjectKey != "" {
		if files == nil {
			return graph.IngestResult{DocumentID: msg.DocumentID, State: graph.StateFailed},
				fmt.Errorf("message %s references %s but no document source is configured", msg.CorrelationID, msg.ObjectKey)
		}
		file := loader.NewGraphTextFile(loader.NewGraphFileParams{
			ID:       msg.DocumentID,
			FilePath: msg.ObjectKey,
			Loader:   files,
		})
		raw, err := file.GetText(ctx)
		if err != nil {
			return graph.IngestResult{DocumentID: msg.DocumentID, State: graph.StateFailed}, err
		}
		text = util.DecodeText(raw)
	}

	res, err := ingester.IngestDocument(ctx, common.Document{
		ID:     msg.DocumentID,
		Source: msg.Source,
		Text:   text,
	})
	if errors.Is(err, graph.ErrLLMService) {
		return res, err
	}
	if res.State == graph.StateExtractionFailed {
		logger.Warn("[Queue] Extraction failed, document stored without knowledge",
			"correlation_id", msg.CorrelationID,
			"document", msg.DocumentID,
			"err", err,
		)
		return res, nil
	}
	if err != nil {
		return res, err
	}

	logger.Info("[Queue] Document ingested",
		"correlation_id", msg.CorrelationID,
		"document", msg.DocumentID,
		"entities", res.Entities,
		"relations", res.Relations,
		"dropped_relations", res.Dropped,
	)
	return res, nil
}
