package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/soltixdb/enrollwatch/internal/logging"
	"github.com/soltixdb/enrollwatch/internal/models"
	"github.com/soltixdb/enrollwatch/internal/services"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// Handler contains all HTTP handlers
type Handler struct {
	logger     *logging.Logger
	dashboard  *services.DashboardService
	eventsType string
	sections   []section
}

// New creates a new handler instance
func New(logger *logging.Logger, dashboard *services.DashboardService, eventsType string) *Handler {
	if eventsType == "" {
		eventsType = "none"
	}
	h := &Handler{
		logger:     logger,
		dashboard:  dashboard,
		eventsType: eventsType,
	}
	h.sections = h.registerSections()
	return h
}

// StatusCode maps a service error code onto an HTTP status
func StatusCode(code string) int {
	switch code {
	case services.CodeUnknownDistrict, services.CodeUnknownState:
		return fiber.StatusNotFound
	case services.CodeInsufficientHistory:
		return fiber.StatusUnprocessableEntity
	case services.CodeInvalidArgument:
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

// writeError renders err in the error envelope
func (h *Handler) writeError(c *fiber.Ctx, err error) error {
	if svcErr, ok := services.AsServiceError(err); ok {
		return c.Status(StatusCode(svcErr.Code)).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    svcErr.Code,
				Message: svcErr.Message,
				Path:    c.Path(),
				Details: svcErr.Details,
			},
		})
	}

	logging.FromContext(c.UserContext()).Error("Unhandled handler error", "path", c.Path(), "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    "INTERNAL_ERROR",
			Message: err.Error(),
			Path:    c.Path(),
		},
	})
}

// queryInt parses an optional integer query parameter; absent means 0
func queryInt(c *fiber.Ctx, name string) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, services.NewServiceErrorWithDetails(services.CodeInvalidArgument,
			"invalid "+name+": must be an integer",
			map[string]interface{}{name: raw})
	}
	return n, nil
}

// districtParam returns the :district path parameter; the router unescapes paths
func districtParam(c *fiber.Ctx) string {
	return strings.TrimSpace(c.Params("district"))
}

func trendQuery(c *fiber.Ctx) (services.TrendQuery, error) {
	points, err := queryInt(c, "points")
	if err != nil {
		return services.TrendQuery{}, err
	}
	return services.TrendQuery{
		State:      c.Query("state"),
		District:   c.Query("district"),
		Downsample: c.Query("downsample"),
		Points:     points,
	}, nil
}
