package handlers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"alfredoptarigan/resume-screener/internal/logger"
	"alfredoptarigan/resume-screener/internal/repositories"
	"alfredoptarigan/resume-screener/internal/services"
)

// ErrorHandler renders every error as {"error", "code"}. Unexpected errors
// are logged and answered with 500.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	log = logger.OrNop(log)

	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError

		var e *fiber.Error
		if errors.As(err, &e) {
			code = e.Code
		}

		if code >= fiber.StatusInternalServerError {
			log.Error("request failed",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Error(err))
		}

		return c.Status(code).JSON(fiber.Map{
			"error": err.Error(),
			"code":  code,
		})
	}
}

// submissionError maps service errors to HTTP errors for the custom error
// handler.
func submissionError(err error) error {
	switch {
	case errors.Is(err, services.ErrNoFiles),
		errors.Is(err, services.ErrMissingJob),
		errors.Is(err, services.ErrMissingIdentity):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrJobNotFound), errors.Is(err, repositories.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, services.ErrJobNotFound.Error())
	case errors.Is(err, services.ErrUnauthorized):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	case errors.Is(err, repositories.ErrBatchNotClaimable):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return err
	}
}

// validationError turns validator output into a single 400 message.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return fiber.NewError(fiber.StatusBadRequest, strings.Join(msgs, "; "))
}
