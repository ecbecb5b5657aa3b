package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"immoflow/store"
	"immoflow/utils"
)

const internalErrorMessage = "Error interno del servidor"

// notFoundOr answers 404 with message unless err says the store itself is
// unreachable, which is a 500.
func notFoundOr(c *fiber.Ctx, err error, message string) error {
	if err != nil && store.IsCode(err, store.CodeUnavailable) {
		return internalError(c, "store_unavailable", err)
	}
	return utils.ErrorResponse(c, fiber.StatusNotFound, message, nil)
}

func internalError(c *fiber.Ctx, errorType string, err error) error {
	utils.LogError(errorType, err, map[string]interface{}{
		"method": c.Method(),
		"path":   c.Path(),
	})
	return utils.ErrorResponse(c, fiber.StatusInternalServerError, internalErrorMessage, nil)
}

func componentLogger(logger *logrus.Entry, name string) *logrus.Entry {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return logger.WithField("component", name)
}
