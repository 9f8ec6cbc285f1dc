package routes

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/OFFIS-RIT/cropgraph/backend/internal/server/middleware"
	"github.com/OFFIS-RIT/cropgraph/backend/pkg/graph"
	"github.com/OFFIS-RIT/cropgraph/backend/pkg/logger"
)

// QueryHandler runs the GraphRAG pipeline for one question.
func QueryHandler(c echo.Context) error {
	type queryData struct {
		Query string `json:"query" validate:"required"`
	}

	data := new(queryData)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	res, err := app.Query.GraphRAG(ctx, data.Query)
	if err != nil {
		logger.Error("[API] Query failed", "err", err)
		return c.JSON(statusFor(err), map[string]string{"error": messageFor(err)})
	}

	return c.JSON(http.StatusOK, res)
}

func statusFor(err error) int {
	if errors.Is(err, graph.ErrLLMService) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func messageFor(err error) string {
	if errors.Is(err, graph.ErrLLMService) {
		return "Language model unavailable"
	}
	return "Internal server error"
}
