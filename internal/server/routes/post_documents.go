package routes

import (
	"net/http"
	"path"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/OFFIS-RIT/cropgraph/backend/internal/queue"
	"github.com/OFFIS-RIT/cropgraph/backend/internal/server/middleware"
	"github.com/OFFIS-RIT/cropgraph/backend/pkg/logger"
)

// DocumentPrefix is the bucket prefix for texts submitted through the API.
const DocumentPrefix = "uploads"

// CreateDocumentHandler queues a text for ingestion. The document id is
// assigned here and returned so callers can find the node later.
func CreateDocumentHandler(c echo.Context) error {
	type createDocumentData struct {
		Source string `json:"source" validate:"required"`
		Text   string `json:"text" validate:"required"`
	}

	type createDocumentResponse struct {
		Message       string `json:"message"`
		DocumentID    string `json:"document_id,omitempty"`
		CorrelationID string `json:"correlation_id,omitempty"`
	}

	data := new(createDocumentData)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, createDocumentResponse{Message: "Invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, createDocumentResponse{Message: "Invalid request params"})
	}

	app := c.(*middleware.AppContext).App
	if app.Queue == nil {
		return c.JSON(http.StatusServiceUnavailable, createDocumentResponse{Message: "Ingestion queue not configured"})
	}

	ctx := c.Request().Context()
	correlationID, err := queue.NewCorrelationID()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, createDocumentResponse{Message: "Internal server error"})
	}

	msg := queue.IngestMsg{
		CorrelationID: correlationID,
		DocumentID:    uuid.NewString(),
		Source:        data.Source,
	}
	if app.Documents != nil {
		msg.ObjectKey = path.Join(DocumentPrefix, msg.DocumentID+".txt")
		if err := app.Documents.PutText(ctx, msg.ObjectKey, []byte(data.Text)); err != nil {
			logger.Error("[API] Failed to store document", "key", msg.ObjectKey, "err", err)
			return c.JSON(http.StatusInternalServerError, createDocumentResponse{Message: "Internal server error"})
		}
	} else {
		msg.Text = data.Text
	}

	if err := app.Queue.PublishIngest(ctx, msg); err != nil {
		logger.Error("[API] Failed to queue document", "correlation_id", correlationID, "err", err)
		return c.JSON(http.StatusInternalServerError, createDocumentResponse{Message: "Internal server error"})
	}

	return c.JSON(http.StatusAccepted, createDocumentResponse{
		Message:       "Document queued for ingestion",
		DocumentID:    msg.DocumentID,
		CorrelationID: correlationID,
	})
}
