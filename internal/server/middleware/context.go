package middleware

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/OFFIS-RIT/cropgraph/backend/internal/queue"
	"github.com/OFFIS-RIT/cropgraph/backend/pkg/common"
)

// QueryService answers questions and recommendations from the graph.
type QueryService interface {
	GraphRAG(ctx context.Context, q string) (common.QueryAnswer, error)
	Recommend(ctx context.Context, in common.SoilInput) (common.Recommendation, error)
}

// DocumentUploader stores submitted texts so that queue messages only carry
// a key.
type DocumentUploader interface {
	PutText(ctx context.Context, key string, text []byte) error
}

// App holds the collaborators shared by every request. Queue and Documents
// are optional: without Queue documents cannot be submitted, without
// Documents texts travel inline in the queue message.
type App struct {
	Query     QueryService
	Queue     queue.Publisher
	Documents DocumentUploader
}

type AppContext struct {
	echo.Context
	App *App
}

// AppContextMiddleware wraps every request context in an AppContext.
func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{c, app}
			return next(cc)
		}
	}
}
