package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	fiberutils "github.com/gofiber/fiber/v2/utils"

	"github.com/soltixdb/enrollwatch/internal/logging"
	"github.com/soltixdb/enrollwatch/internal/models"
)

// ErrorHandler returns the app-wide error handler.
// Errors that reach it were not rendered by a handler: unmatched methods,
// fiber errors and recovered panics.
func ErrorHandler(logger *logging.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal Server Error"

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			message = fe.Message
		}

		fields := []interface{}{
			"path", c.Path(),
			"method", c.Method(),
			"status", code,
			"request_id", logging.RequestID(c.UserContext()),
			"error", err,
		}
		if code >= fiber.StatusInternalServerError {
			logger.Error("Request error", fields...)
		} else {
			logger.Warn("Request error", fields...)
		}

		return c.Status(code).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    errorCode(code),
				Message: message,
				Path:    c.Path(),
			},
		})
	}
}

// errorCode derives an envelope code such as METHOD_NOT_ALLOWED from a status
func errorCode(status int) string {
	text := fiberutils.StatusMessage(status)
	if text == "" || status == fiber.StatusInternalServerError {
		return "INTERNAL_ERROR"
	}
	text = strings.ToUpper(strings.NewReplacer(" ", "_", "-", "_", "'", "").Replace(text))
	return text
}
