package routes

import (
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/labstack/echo/v4"

	"github.com/OFFIS-RIT/cropgraph/backend/internal/server/middleware"
	"github.com/OFFIS-RIT/cropgraph/backend/pkg/common"
	"github.com/OFFIS-RIT/cropgraph/backend/pkg/logger"
)

// Form categories mapped to moisture percent and salinity in dS/m.
var (
	moistureLevels = map[string]float64{
		"high":          70,
		"moderate-high": 60,
		"moderate":      50,
		"moderate-low":  40,
		"low":           30,
	}
	salinityLevels = map[string]float64{
		"low":           1,
		"moderate-low":  2,
		"moderate":      3,
		"moderate-high": 4,
		"high":          5,
	}
)

type recommendData struct {
	Nitrogen    *float64 `json:"nitrogen" validate:"required"`
	Phosphorus  *float64 `json:"phosphorus" validate:"required"`
	Potassium   *float64 `json:"potassium" validate:"required"`
	Temperature *float64 `json:"temperature" validate:"required"`
	PH          *float64 `json:"ph" validate:"required"`
	Moisture    string   `json:"moisture" validate:"required,oneof=high moderate-high moderate moderate-low low"`
	Salinity    string   `json:"salinity" validate:"required,oneof=high moderate-high moderate moderate-low low"`
	SoilType    string   `json:"soil_type" validate:"required"`
}

// SoilInput converts the form values into ranking input.
func (d recommendData) SoilInput() common.SoilInput {
	return common.SoilInput{
		Nitrogen:    *d.Nitrogen,
		Phosphorus:  *d.Phosphorus,
		Potassium:   *d.Potassium,
		Temperature: *d.Temperature,
		PH:          *d.PH,
		Moisture:    moistureLevels[d.Moisture],
		Salinity:    salinityLevels[d.Salinity],
		SoilType:    capitalize(strings.TrimSpace(d.SoilType)),
	}
}

// capitalize upper-cases the first letter and lower-cases the rest.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

// RecommendHandler ranks crops for the submitted soil and explains the best.
func RecommendHandler(c echo.Context) error {
	type recommendResponse struct {
		Result common.Recommendation `json:"result"`
		Soil   common.SoilInput      `json:"soil"`
	}

	data := new(recommendData)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App
	in := data.SoilInput()

	res, err := app.Query.Recommend(ctx, in)
	if err != nil {
		logger.Error("[API] Recommendation failed", "soil_type", in.SoilType, "err", err)
		return c.JSON(statusFor(err), map[string]string{"error": messageFor(err)})
	}

	return c.JSON(http.StatusOK, recommendResponse{Result: res, Soil: in})
}
