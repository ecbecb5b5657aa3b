package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"immoflow/store"
	"immoflow/utils"
)

type UserController struct {
	Store  store.Remote
	Logger *logrus.Entry
}

func NewUserController(remote store.Remote, logger *logrus.Entry) *UserController {
	return &UserController{
		Store:  remote,
		Logger: componentLogger(logger, "users"),
	}
}

// Available lists active advisors ordered by name.
func (uc *UserController) Available(c *fiber.Ctx) error {
	rows, err := uc.Store.Select(c.UserContext(), "users", store.Query{
		Columns: []string{"id", "name", "email", "phone", "role"},
		Filter:  store.Filter{store.Eq("active", true)},
		Order:   []store.Order{store.Asc("name")},
	})
	if err != nil {
		uc.Logger.WithError(err).Error("Listing available advisors failed")
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Error consultando asesores", err)
	}
	return c.JSON(utils.ListResponse(rows))
}

func (uc *UserController) GetByID(c *fiber.Ctx) error {
	rows, err := uc.Store.Select(c.UserContext(), "users", store.Query{
		Columns: []string{"id", "name", "email", "phone", "role", "active"},
		Filter:  store.Filter{store.Eq("id", c.Params("id"))},
		Limit:   1,
	})
	if err != nil || len(rows) == 0 {
		return notFoundOr(c, err, "Usuario no encontrado")
	}
	return c.JSON(utils.SuccessResponse(rows[0]))
}
