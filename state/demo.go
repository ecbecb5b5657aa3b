package state

import (
	"time"

	"immoflow/models"
)

func ptr(s string) *string { return &s }

// DemoTree is the fixed sample dataset used when the remote store cannot be
// reached. Dates are relative to now.
func DemoTree(now time.Time) Tree {
	day := 24 * time.Hour
	monthDay := func(d int) time.Time {
		return time.Date(now.Year(), now.Month(), d, 0, 0, 0, 0, now.Location())
	}
	fixed := func(s string) time.Time {
		t, _ := time.Parse(time.RFC3339, s)
		return t
	}

	return Tree{
		Users: []models.User{
			{ID: "u1", Name: "Admin User", Email: "admin@immoflow.com", Role: "admin", Active: true, CreatedAt: now},
			{ID: "u2", Name: "Juan Perez", Email: "juan@immoflow.com", Role: "ejecutivo", Active: true, CreatedAt: now},
		},
		Projects: []models.Project{
			{ID: "p1", Name: "Residencial Los Olivos", Developer: "Constructora Alfa", Units: 45, Phone: "+51987654321", Status: "active"},
			{ID: "p2", Name: "Villa del Campo", Developer: "Hogar Verde", Units: 120, Phone: "+51912345678", Status: "active"},
		},
		Stages:      models.DefaultPipelineStages(),
		LeadSources: models.DefaultLeadSources(),
		Leads: []models.Lead{
			{ID: "l1", Name: "Carlos Sanchez", Phone: "+51900111222", Budget: 150000, BudgetCurrency: "USD", Interest: "Departamento 3 dorm", ProjectID: ptr("p1"), AdvisorID: ptr("u2"), PipelineStageID: ptr("1"), ChatbotEnabled: true, CreatedAt: now, SourceID: ptr("ls1")},
			{ID: "l2", Name: "Maria Lopez", Phone: "+51933444555", Budget: 85000, BudgetCurrency: "USD", Interest: "Terreno Campo", ProjectID: ptr("p2"), AdvisorID: ptr("u2"), PipelineStageID: ptr("2"), ChatbotEnabled: false, CreatedAt: now.Add(-day), SourceID: ptr("ls2")},
			{ID: "l3", Name: "Roberto Gomez", Phone: "+51966777888", Budget: 210000, BudgetCurrency: "USD", Interest: "Penthouse", ProjectID: ptr("p1"), AdvisorID: ptr("u2"), PipelineStageID: ptr("3"), ChatbotEnabled: true, CreatedAt: now.Add(-2 * day), SourceID: ptr("ls6")},
			{ID: "l4", Name: "Ana Torres", Phone: "+51911222333", Budget: 120000, BudgetCurrency: "USD", Interest: "Casa de campo", ProjectID: ptr("p2"), AdvisorID: ptr("u2"), PipelineStageID: ptr("4"), ChatbotEnabled: true, CreatedAt: now.Add(-5 * day), SourceID: ptr("ls7")},
			{ID: "l5", Name: "Luis Mendoza", Phone: "+51955888777", Budget: 95000, BudgetCurrency: "USD", Interest: "Departamento 2 dorm", ProjectID: ptr("p1"), AdvisorID: ptr("u1"), PipelineStageID: ptr("1"), ChatbotEnabled: true, CreatedAt: now, SourceID: ptr("ls1")},
		},
		Properties: []models.Property{
			{ID: "prop1", Description: "Departamento 201 Torre A", ProjectID: ptr("p1"), Price: 145000, Currency: "USD", Area: 85, PricePerM2: 1705, Details: "Vista al parque, balcón", CreatedAt: fixed("2024-01-10T10:00:00Z"), Status: "disponible"},
			{ID: "prop2", Description: "Lote 45 Sector B", ProjectID: ptr("p2"), Price: 235000, Currency: "PEN", Area: 200, PricePerM2: 1175, Details: "Cerca a club house", CreatedAt: fixed("2024-02-15T15:30:00Z"), Status: "disponible"},
			{ID: "prop3", Description: "Casa Modelo C", ProjectID: ptr("p2"), Price: 320000, Currency: "USD", Area: 150, PricePerM2: 2133, Details: "Piscina privada", CreatedAt: fixed("2024-03-20T11:00:00Z"), Status: "vendido"},
		},
		Tasks: []models.Task{
			{ID: "t1", LeadID: ptr("l1"), Description: "Llamar para coordinar visita", Datetime: now, Status: models.TaskPending},
			{ID: "t2", LeadID: ptr("l2"), Description: "Enviar brochure por WhatsApp", Datetime: now.Add(day), Status: models.TaskPending},
			{ID: "t3", LeadID: ptr("l3"), Description: "Firma de contrato de reserva", Datetime: now.Add(7 * day), Status: models.TaskPending},
			{ID: "t4", LeadID: ptr("l1"), Description: "Seguimiento inicial", Datetime: now.Add(-day), Status: models.TaskCompleted},
			{ID: "t5", LeadID: ptr("l4"), Description: "Preparar propuesta económica", Datetime: now.Add(-day), Status: models.TaskOverdue},
			{ID: "t6", LeadID: ptr("l5"), Description: "Primer contacto", Datetime: now, Status: models.TaskPending},
			{ID: "t7", Description: "Reunión de equipo semanal", Datetime: now.Add(day), Status: models.TaskPending},
		},
		Sales: []models.Sale{
			{ID: "s1", LeadID: "l1", PropertyID: ptr("prop1"), AdvisorID: ptr("u2"), ProjectID: ptr("p1"), SaleAmount: 142000, Currency: "USD", SaleType: "completa", CreatedAt: monthDay(15)},
			{ID: "s2", LeadID: "l2", PropertyID: ptr("prop2"), AdvisorID: ptr("u2"), ProjectID: ptr("p2"), SaleAmount: 63000, Currency: "PEN", SaleType: "compartida", CreatedAt: monthDay(18)},
		},
		IncomeExpenses: []models.IncomeExpense{},
		Settings:       &models.Settings{CompanyName: "ImmoFlow"},
	}
}
