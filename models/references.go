package models

import "immoflow/store"

// References are the foreign keys between CRM tables. Deleting a lead
// requires removing its sales (and their cashbook entries) and tasks first.
var References = []store.Reference{
	{Child: "sales", Column: "lead_id", Parent: "leads"},
	{Child: "lead_tasks", Column: "lead_id", Parent: "leads"},
	{Child: "income_expenses", Column: "sale_id", Parent: "sales"},
}
