package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/bilgisen/letterpress/internal/apperr"
	"github.com/bilgisen/letterpress/internal/models"
)

// Bind parses the request body into dst and validates it with the shared
// validator. Failures are returned as validation errors for ErrorHandler.
func Bind(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return apperr.Wrap(apperr.KindValidation, "invalid request body", err)
	}
	return models.ValidationError(models.Validator().Struct(dst))
}

// ErrorHandler maps application errors to JSON responses:
// {"error": kind, "message": text, "fields": {...}}. Logging is left to the
// request logger, which records the error with the status sent.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	body := fiber.Map{}

	var appErr *apperr.Error
	var fiberErr *fiber.Error
	switch {
	case errors.As(err, &appErr):
		code = appErr.Status()
		body["error"] = string(appErr.Kind)
		body["message"] = appErr.Message
		if len(appErr.Fields) > 0 {
			body["fields"] = appErr.Fields
		}
	case errors.As(err, &fiberErr):
		code = fiberErr.Code
		body["error"] = "http_error"
		body["message"] = fiberErr.Message
	default:
		body["error"] = string(apperr.KindInternal)
		body["message"] = "An unexpected error occurred"
	}

	return c.Status(code).JSON(body)
}
