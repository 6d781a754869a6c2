package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/soltixdb/enrollwatch/internal/models"
	"github.com/soltixdb/enrollwatch/internal/services"
)

// section is one named dashboard view rendered from query parameters
type section struct {
	models.Section
	render func(c *fiber.Ctx) (interface{}, error)
}

func (h *Handler) registerSections() []section {
	return []section{
		{
			Section: models.Section{Name: "overview", Title: "Overview", Path: "/v1/overview",
				Description: "Headline KPIs and the monthly enrollment series"},
			render: func(c *fiber.Ctx) (interface{}, error) { return h.dashboard.Overview(), nil },
		},
		{
			Section: models.Section{Name: "states", Title: "State Ranking", Path: "/v1/states",
				Description: "States ranked by total enrollment (top)"},
			render: func(c *fiber.Ctx) (interface{}, error) {
				top, err := queryInt(c, "top")
				if err != nil {
					return nil, err
				}
				return h.dashboard.StateRanking(top)
			},
		},
		{
			Section: models.Section{Name: "districts", Title: "District Ranking", Path: "/v1/districts",
				Description: "Districts ranked by total enrollment, optionally within a state (state, top)"},
			render: func(c *fiber.Ctx) (interface{}, error) {
				top, err := queryInt(c, "top")
				if err != nil {
					return nil, err
				}
				return h.dashboard.DistrictRanking(c.Query("state"), top)
			},
		},
		{
			Section: models.Section{Name: "trends", Title: "Enrollment Trends", Path: "/v1/trends",
				Description: "Daily enrollment series (state, district, downsample, points)"},
			render: func(c *fiber.Ctx) (interface{}, error) {
				q, err := trendQuery(c)
				if err != nil {
					return nil, err
				}
				return h.dashboard.Trend(q)
			},
		},
		{
			Section: models.Section{Name: "forecast", Title: "Forecast", Path: "/v1/districts/:district/forecast",
				Description: "Next-period forecast with confidence band and what-if scenarios (district)"},
			render: func(c *fiber.Ctx) (interface{}, error) {
				district := c.Query("district")
				if district == "" {
					return nil, services.NewServiceError(services.CodeInvalidArgument, "invalid district: required")
				}
				return h.dashboard.Forecast(c.UserContext(), district)
			},
		},
		{
			Section: models.Section{Name: "anomalies", Title: "Anomalies", Path: "/v1/anomalies",
				Description: "IQR outliers over enrollment records (scope, district, limit)"},
			render: func(c *fiber.Ctx) (interface{}, error) {
				limit, err := queryInt(c, "limit")
				if err != nil {
					return nil, err
				}
				return h.dashboard.Anomalies(c.UserContext(), c.Query("scope"), c.Query("district"), limit)
			},
		},
		{
			Section: models.Section{Name: "map", Title: "State Map", Path: "/v1/map",
				Description: "State totals scaled for a choropleth"},
			render: func(c *fiber.Ctx) (interface{}, error) { return h.dashboard.MapData(), nil },
		},
	}
}

// Sections handles GET /v1/sections
func (h *Handler) Sections(c *fiber.Ctx) error {
	out := make([]models.Section, len(h.sections))
	for i, s := range h.sections {
		out[i] = s.Section
	}
	return c.JSON(fiber.Map{"sections": out})
}

// Section handles GET /v1/sections/:section
func (h *Handler) Section(c *fiber.Ctx) error {
	name := c.Params("section")
	for _, s := range h.sections {
		if s.Name != name {
			continue
		}
		data, err := s.render(c)
		if err != nil {
			return h.writeError(c, err)
		}
		return c.JSON(models.SectionResponse{Section: s.Section, Data: data})
	}

	return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    "SECTION_NOT_FOUND",
			Message: "unknown section: " + name,
			Path:    c.Path(),
		},
	})
}
