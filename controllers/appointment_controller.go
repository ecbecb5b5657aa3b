package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"immoflow/models"
	"immoflow/store"
	"immoflow/utils"
)

type AppointmentController struct {
	Store  store.Remote
	Logger *logrus.Entry
}

func NewAppointmentController(remote store.Remote, logger *logrus.Entry) *AppointmentController {
	return &AppointmentController{
		Store:  remote,
		Logger: componentLogger(logger, "appointments"),
	}
}

type CreateAppointmentRequest struct {
	PropertyID    string `json:"property_id" validate:"required"`
	ClientName    string `json:"client_name" validate:"required"`
	ClientPhone   string `json:"client_phone" validate:"required"`
	ScheduledDate string `json:"scheduled_date" validate:"required,datetime=2006-01-02"`
	ScheduledTime string `json:"scheduled_time" validate:"required,datetime=15:04"`
	Notes         string `json:"notes"`
}

// Create books a visit and assigns it to the first active advisor.
func (ac *AppointmentController) Create(c *fiber.Ctx) error {
	var input CreateAppointmentRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&input); err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
		}
	}

	if missing := utils.MissingFields(input); len(missing) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success":  false,
			"error":    "Faltan campos requeridos",
			"required": utils.RequiredFields(input),
			"missing":  missing,
		})
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Formato de fecha u hora inválido", err)
	}

	ctx := c.UserContext()
	agents, err := ac.Store.Select(ctx, "users", store.Query{
		Columns: []string{"id", "name", "email", "phone"},
		Filter:  store.Filter{store.Eq("active", true)},
		Order:   []store.Order{store.Asc("name")},
		Limit:   1,
	})
	if err != nil || len(agents) == 0 {
		if err != nil {
			ac.Logger.WithError(err).Error("Agent lookup failed")
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "No hay agentes disponibles en este momento", nil)
	}
	agent := agents[0]

	var notes any
	if input.Notes != "" {
		notes = input.Notes
	}
	created, err := ac.Store.Insert(ctx, "appointments", store.Row{
		"property_id":    input.PropertyID,
		"agent_id":       agent["id"],
		"client_name":    input.ClientName,
		"client_phone":   input.ClientPhone,
		"scheduled_date": input.ScheduledDate,
		"scheduled_time": input.ScheduledTime,
		"status":         models.AppointmentScheduled,
		"notes":          notes,
	})
	if err != nil {
		ac.Logger.WithError(err).WithField("property_id", input.PropertyID).Error("Error creating appointment")
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Error al crear la cita", err)
	}

	ac.Logger.WithFields(logrus.Fields{
		"appointment_id": created["id"],
		"agent_id":       agent["id"],
	}).Info("Appointment booked")

	data := created.Clone()
	data["agent_name"] = agent["name"]
	data["agent_email"] = agent["email"]
	data["agent_phone"] = agent["phone"]
	return c.JSON(utils.SuccessResponse(data))
}

// ByClientPhone lists a client's appointments, latest date first, with the
// property and advisor embedded.
func (ac *AppointmentController) ByClientPhone(c *fiber.Ctx) error {
	ctx := c.UserContext()
	rows, err := ac.Store.Select(ctx, "appointments", store.Query{
		Filter: store.Filter{store.Eq("client_phone", c.Params("phone"))},
		Order:  []store.Order{store.Desc("scheduled_date")},
	})
	if err != nil {
		ac.Logger.WithError(err).Error("Appointment lookup failed")
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Error consultando citas", nil)
	}

	properties, err := ac.index(c, "properties", column(rows, "property_id"), "description", "location")
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Error consultando citas", nil)
	}
	agents, err := ac.index(c, "users", column(rows, "agent_id"), "name", "email", "phone")
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Error consultando citas", nil)
	}

	out := make([]store.Row, 0, len(rows))
	for _, row := range rows {
		joined := row.Clone()
		joined["properties"] = embed(properties, row.String("property_id"))
		joined["users"] = embed(agents, row.String("agent_id"))
		out = append(out, joined)
	}
	return c.JSON(utils.ListResponse(out))
}

// index fetches the given columns of table for ids, keyed by id.
func (ac *AppointmentController) index(c *fiber.Ctx, table string, ids []string, columns ...string) (map[string]store.Row, error) {
	out := make(map[string]store.Row, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := ac.Store.Select(c.UserContext(), table, store.Query{
		Columns: append([]string{"id"}, columns...),
		Filter:  store.Filter{store.In("id", ids)},
	})
	if err != nil {
		ac.Logger.WithError(err).WithField("table", table).Error("Appointment join failed")
		return nil, err
	}
	for _, row := range rows {
		id := row.String("id")
		joined := row.Clone()
		delete(joined, "id")
		out[id] = joined
	}
	return out, nil
}

func column(rows []store.Row, key string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, row := range rows {
		if v := row.String(key); v != "" && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func embed(index map[string]store.Row, id string) any {
	if row, ok := index[id]; ok {
		return row
	}
	return nil
}

func (ac *AppointmentController) Cancel(c *fiber.Ctx) error {
	row, found, err := ac.Store.Update(c.UserContext(), "appointments",
		store.Filter{store.Eq("id", c.Params("id"))},
		store.Row{"status": models.AppointmentCancelled},
	)
	if err != nil || !found {
		return notFoundOr(c, err, "Cita no encontrada")
	}
	ac.Logger.WithField("appointment_id", row["id"]).Info("Appointment cancelled")
	return c.JSON(utils.SuccessResponse(row))
}
