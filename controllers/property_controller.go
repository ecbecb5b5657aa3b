package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"immoflow/models"
	"immoflow/store"
	"immoflow/utils"
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 100
)

// Columns exposed to the chatbot for a search hit
var propertySearchColumns = []string{
	"id", "description", "location", "price", "currency", "area", "price_per_m2", "status", "details",
}

type PropertyController struct {
	Store  store.Remote
	Logger *logrus.Entry
}

func NewPropertyController(remote store.Remote, logger *logrus.Entry) *PropertyController {
	return &PropertyController{
		Store:  remote,
		Logger: componentLogger(logger, "properties"),
	}
}

// PropertySearchRequest carries the optional search filters. Pointers keep
// an explicit zero apart from an absent bound.
type PropertySearchRequest struct {
	Location string   `json:"location,omitempty"`
	MinPrice *float64 `json:"minPrice,omitempty" validate:"omitempty,gte=0"`
	MaxPrice *float64 `json:"maxPrice,omitempty" validate:"omitempty,gte=0"`
	MinArea  *float64 `json:"minArea,omitempty" validate:"omitempty,gte=0"`
	MaxArea  *float64 `json:"maxArea,omitempty" validate:"omitempty,gte=0"`
	Status   string   `json:"status,omitempty" validate:"omitempty,oneof=disponible vendido separado bloqueado"`
	Limit    int      `json:"limit,omitempty" validate:"omitempty,min=1"`
}

func (r PropertySearchRequest) filter() store.Filter {
	status := r.Status
	if status == "" {
		status = models.PropertyAvailable
	}
	f := store.Filter{store.Eq("status", status)}
	if r.Location != "" {
		f = append(f, store.ILike("location", "%"+r.Location+"%"))
	}
	if r.MinPrice != nil {
		f = append(f, store.Gte("price", *r.MinPrice))
	}
	if r.MaxPrice != nil {
		f = append(f, store.Lte("price", *r.MaxPrice))
	}
	if r.MinArea != nil {
		f = append(f, store.Gte("area", *r.MinArea))
	}
	if r.MaxArea != nil {
		f = append(f, store.Lte("area", *r.MaxArea))
	}
	return f
}

// Search returns matching properties, newest first.
func (pc *PropertyController) Search(c *fiber.Ctx) error {
	var input PropertySearchRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&input); err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
		}
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	limit := input.Limit
	switch {
	case limit == 0:
		limit = defaultSearchLimit
	case limit > maxSearchLimit:
		limit = maxSearchLimit
	}

	rows, err := pc.Store.Select(c.UserContext(), "properties", store.Query{
		Columns: propertySearchColumns,
		Filter:  input.filter(),
		Order:   []store.Order{store.Desc("created_at")},
		Limit:   limit,
	})
	if err != nil {
		pc.Logger.WithError(err).Error("Property search failed")
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Error buscando propiedades", err)
	}

	resp := utils.ListResponse(rows)
	resp["filters"] = input
	return c.JSON(resp)
}

func (pc *PropertyController) GetByID(c *fiber.Ctx) error {
	rows, err := pc.Store.Select(c.UserContext(), "properties", store.Query{
		Filter: store.Filter{store.Eq("id", c.Params("id"))},
		Limit:  1,
	})
	if err != nil || len(rows) == 0 {
		return notFoundOr(c, err, "Propiedad no encontrada")
	}
	return c.JSON(utils.SuccessResponse(rows[0]))
}
