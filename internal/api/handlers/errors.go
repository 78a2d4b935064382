package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"family-doctor/internal/repository"
	"family-doctor/internal/semantic"
	"family-doctor/internal/service"
)

// writeError maps service sentinels onto HTTP statuses.
func writeError(c *fiber.Ctx, logger *zap.Logger, action string, err error) error {
	status := fiber.StatusInternalServerError
	message := action + " failed"

	switch {
	case errors.Is(err, service.ErrValidation):
		status, message = fiber.StatusBadRequest, err.Error()
	case errors.Is(err, repository.ErrNotFound):
		status, message = fiber.StatusNotFound, "not found"
	case errors.Is(err, service.ErrPromotionConflict):
		status, message = fiber.StatusConflict, err.Error()
	case errors.Is(err, service.ErrClassification), errors.Is(err, service.ErrUnknownIntent):
		status, message = fiber.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, service.ErrGeneration):
		status = fiber.StatusBadGateway
	case errors.Is(err, service.ErrDurableStore), errors.Is(err, semantic.ErrIndex):
		status = fiber.StatusServiceUnavailable
	}

	if status >= fiber.StatusInternalServerError {
		logger.Error(action+" failed", zap.Error(err))
	}

	return c.Status(status).JSON(fiber.Map{
		"error": message,
	})
}
