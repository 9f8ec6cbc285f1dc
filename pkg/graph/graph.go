package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/cropgraph/backend/internal/util"
	"github.com/OFFIS-RIT/cropgraph/backend/pkg/common"
	"github.com/OFFIS-RIT/cropgraph/backend/pkg/loader"
	"github.com/OFFIS-RIT/cropgraph/backend/pkg/logger"
)

// DocumentState is the position of a document in the ingestion pipeline.
type DocumentState string

const (
	StateLoaded           DocumentState = "loaded"
	StateExtracted        DocumentState = "extracted"
	StateUpserted         DocumentState = "upserted"
	StateExtractionFailed DocumentState = "extraction_failed"
	// StateFailed covers documents that could not be read or stored.
	StateFailed DocumentState = "failed"
)

// IngestResult describes what happened to one document.
type IngestResult struct {
	DocumentID string        `json:"document_id"`
	Source     string        `json:"source"`
	State      DocumentState `json:"state"`
	Entities   int           `json:"entities"`
	Mentions   int           `json:"mentions"`
	Relations  int           `json:"relations"`
	Dropped    int           `json:"dropped_relations"`
}

// IngestReport summarises a pipeline run.
type IngestReport struct {
	Total            int            `json:"total"`
	Upserted         int            `json:"upserted"`
	ExtractionFailed int            `json:"extraction_failed"`
	Failed           int            `json:"failed"`
	DroppedRelations int            `json:"dropped_relations"`
	Duration         time.Duration  `json:"duration"`
	Results          []IngestResult `json:"results"`
}

// ProgressFunc is called after each document. err is the document's error,
// if any.
type ProgressFunc func(index, total int, res IngestResult, err error)

// IngestDocument runs one document through the pipeline.
//
// The document node is always written with the full text, also when the
// extraction fails. In that case the returned result is in
// StateExtractionFailed and the extraction error is returned alongside it.
func (g *GraphClient) IngestDocument(ctx context.Context, doc common.Document) (IngestResult, error) {
	res := IngestResult{
		DocumentID: doc.ID,
		Source:     doc.Source,
		State:      StateLoaded,
	}

	kg, extractErr := g.ExtractKnowledge(ctx, doc.Text)
	if extractErr == nil {
		res.State = StateExtracted
	}

	if err := g.storage.UpsertDocument(ctx, doc); err != nil {
		res.State = StateFailed
		return res, fmt.Errorf("upsert document %s: %w", doc.ID, err)
	}
	if extractErr != nil {
		res.State = StateExtractionFailed
		return res, extractErr
	}

	mentions, err := g.storage.UpsertEntities(ctx, doc.ID, kg.Entities)
	if err != nil {
		res.State = StateFailed
		return res, fmt.Errorf("upsert entities of %s: %w", doc.ID, err)
	}
	res.Entities = mentions.Entities
	res.Mentions = mentions.Mentions

	relations, err := g.storage.MergeRelations(ctx, kg.Relations)
	if err != nil {
		res.State = StateFailed
		return res, fmt.Errorf("merge relations of %s: %w", doc.ID, err)
	}
	res.Relations = relations.Merged
	res.Dropped = relations.Dropped
	if relations.Dropped > 0 {
		logger.Warn("[Graph] Relations dropped, endpoint entity not found",
			"document", doc.ID,
			"dropped", relations.Dropped,
			"merged", relations.Merged,
		)
	}

	res.State = StateUpserted
	return res, nil
}

// ProcessDocuments ingests files strictly one after another. A failing
// document is logged and skipped. Cancelling ctx stops the run before the
// next document and returns the partial report together with ctx.Err().
func (g *GraphClient) ProcessDocuments(
	ctx context.Context,
	files []loader.GraphFile,
	progress ProgressFunc,
) (IngestReport, error) {
	start := time.Now()
	report := IngestReport{
		Total:   len(files),
		Results: make([]IngestResult, 0, len(files)),
	}

	logger.Info("[Graph] Processing", "total_files", len(files))

	for i := range files {
		if err := ctx.Err(); err != nil {
			report.Duration = time.Since(start)
			return report, err
		}

		file := &files[i]
		res, err := g.ingestFile(ctx, file)
		report.Results = append(report.Results, res)
		report.DroppedRelations += res.Dropped

		switch res.State {
		case StateUpserted:
			report.Upserted++
		case StateExtractionFailed:
			report.ExtractionFailed++
			logger.Error("[Graph] Extraction failed", "document", res.DocumentID, "source", res.Source, "err", err)
		default:
			report.Failed++
			logger.Error("[Graph] Document failed", "document", res.DocumentID, "source", res.Source, "err", err)
		}

		if progress != nil {
			progress(i, len(files), res, err)
		}
	}

	report.Duration = time.Since(start)
	logger.Info("[Graph] Files processed",
		"upserted", report.Upserted,
		"extraction_failed", report.ExtractionFailed,
		"failed", report.Failed,
		"dropped_relations", report.DroppedRelations,
		"duration", report.Duration.Round(time.Millisecond),
	)

	return report, nil
}

func (g *GraphClient) ingestFile(ctx context.Context, file *loader.GraphFile) (IngestResult, error) {
	raw, err := file.GetText(ctx)
	if err != nil {
		return IngestResult{
			DocumentID: file.ID,
			Source:     file.Name(),
			State:      StateFailed,
		}, fmt.Errorf("read %s: %w", file.FilePath, err)
	}

	return g.IngestDocument(ctx, common.Document{
		ID:     file.ID,
		Source: file.Name(),
		Text:   util.DecodeText(raw),
	})
}
