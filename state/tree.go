package state

import (
	"slices"

	"immoflow/models"
)

// Tree is the whole in-memory CRM state of one session.
type Tree struct {
	Leads          []models.Lead          `json:"leads"`
	Tasks          []models.Task          `json:"tasks"`
	Sales          []models.Sale          `json:"sales"`
	IncomeExpenses []models.IncomeExpense `json:"income_expenses"`
	Properties     []models.Property      `json:"properties"`
	Projects       []models.Project       `json:"projects"`
	Users          []models.User          `json:"users"`
	Stages         []models.PipelineStage `json:"pipeline_stages"`
	LeadSources    []models.LeadSource    `json:"lead_sources"`
	Messages       []models.Message       `json:"messages"`
	Settings       *models.Settings       `json:"settings"`
}

// Clone copies every collection so the result can be restored later
// regardless of what happens to t.
func (t Tree) Clone() Tree {
	out := Tree{
		Leads:          slices.Clone(t.Leads),
		Tasks:          slices.Clone(t.Tasks),
		Sales:          slices.Clone(t.Sales),
		IncomeExpenses: slices.Clone(t.IncomeExpenses),
		Properties:     slices.Clone(t.Properties),
		Projects:       slices.Clone(t.Projects),
		Users:          slices.Clone(t.Users),
		Stages:         slices.Clone(t.Stages),
		LeadSources:    slices.Clone(t.LeadSources),
		Messages:       slices.Clone(t.Messages),
	}
	if t.Settings != nil {
		s := *t.Settings
		out.Settings = &s
	}
	return out
}
