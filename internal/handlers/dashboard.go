package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/soltixdb/enrollwatch/internal/models"
	"github.com/soltixdb/enrollwatch/internal/services"
)

// Overview handles GET /v1/overview
func (h *Handler) Overview(c *fiber.Ctx) error {
	return c.JSON(h.dashboard.Overview())
}

// States handles GET /v1/states?top=
func (h *Handler) States(c *fiber.Ctx) error {
	top, err := queryInt(c, "top")
	if err != nil {
		return h.writeError(c, err)
	}
	ranking, err := h.dashboard.StateRanking(top)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(ranking)
}

// Districts handles GET /v1/districts?state=&top=
func (h *Handler) Districts(c *fiber.Ctx) error {
	top, err := queryInt(c, "top")
	if err != nil {
		return h.writeError(c, err)
	}
	ranking, err := h.dashboard.DistrictRanking(c.Query("state"), top)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(ranking)
}

// DistrictSelector handles GET /v1/selectors/districts
func (h *Handler) DistrictSelector(c *fiber.Ctx) error {
	return c.JSON(models.NewListResponse(h.dashboard.Districts()))
}

// StateSelector handles GET /v1/selectors/states
func (h *Handler) StateSelector(c *fiber.Ctx) error {
	return c.JSON(models.NewListResponse(h.dashboard.States()))
}

// Trends handles GET /v1/trends?state=&district=&downsample=&points=
func (h *Handler) Trends(c *fiber.Ctx) error {
	q, err := trendQuery(c)
	if err != nil {
		return h.writeError(c, err)
	}
	trend, err := h.dashboard.Trend(q)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(trend)
}

// DistrictDetail handles GET /v1/districts/:district
func (h *Handler) DistrictDetail(c *fiber.Ctx) error {
	detail, err := h.dashboard.DistrictDetail(districtParam(c))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(detail)
}

// Forecast handles GET /v1/districts/:district/forecast
func (h *Handler) Forecast(c *fiber.Ctx) error {
	result, err := h.dashboard.Forecast(c.UserContext(), districtParam(c))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(result)
}

// Backtest handles GET /v1/districts/:district/backtest
func (h *Handler) Backtest(c *fiber.Ctx) error {
	result, err := h.dashboard.Backtest(c.UserContext(), districtParam(c))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(result)
}

// ExportForecast handles GET /v1/districts/:district/forecast/export?format=csv|xlsx
// Streams the file as an attachment
func (h *Handler) ExportForecast(c *fiber.Ctx) error {
	file, err := h.dashboard.Export(c.UserContext(), districtParam(c), c.Query("format"))
	if err != nil {
		return h.writeError(c, err)
	}

	c.Attachment(file.Filename)
	// Attachment sets the content type from the extension; keep ours
	c.Set(fiber.HeaderContentType, file.ContentType)
	return c.Send(file.Data)
}

// Anomalies handles GET /v1/anomalies?scope=global|district&district=&limit=
func (h *Handler) Anomalies(c *fiber.Ctx) error {
	limit, err := queryInt(c, "limit")
	if err != nil {
		return h.writeError(c, err)
	}
	result, err := h.dashboard.Anomalies(c.UserContext(), c.Query("scope"), c.Query("district"), limit)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(result)
}

// Map handles GET /v1/map
func (h *Handler) Map(c *fiber.Ctx) error {
	return c.JSON(h.dashboard.MapData())
}

// Aggregate handles GET /v1/aggregate?by=&state=&district=&top=&order=
func (h *Handler) Aggregate(c *fiber.Ctx) error {
	top, err := queryInt(c, "top")
	if err != nil {
		return h.writeError(c, err)
	}
	resp, err := h.dashboard.Aggregate(services.AggregateQuery{
		By:       c.Query("by"),
		State:    c.Query("state"),
		District: c.Query("district"),
		Top:      top,
		Order:    c.Query("order"),
	})
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(resp)
}
