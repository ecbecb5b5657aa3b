package models

type PipelineStage struct {
	ID    string `gorm:"primaryKey;default:gen_random_uuid()" json:"id"`
	Name  string `gorm:"not null" json:"name"`
	Color string `json:"color"`
	Order int    `gorm:"column:order" json:"order"`
}

func (PipelineStage) TableName() string { return "pipeline_stages" }

func (s PipelineStage) RecordID() string { return s.ID }

type LeadSource struct {
	ID   string `gorm:"primaryKey;default:gen_random_uuid()" json:"id"`
	Name string `gorm:"not null" json:"name"`
}

func (LeadSource) TableName() string { return "lead_sources" }

func (s LeadSource) RecordID() string { return s.ID }

// Settings is the single company-wide configuration row.
type Settings struct {
	ID                    string `gorm:"primaryKey;default:gen_random_uuid()" json:"id"`
	CompanyName           string `json:"company_name"`
	LogoURL               string `json:"logo_url"`
	EvolutionAPIURL       string `gorm:"column:evolution_api_url" json:"evolution_api_url"`
	EvolutionAPIKey       string `gorm:"column:evolution_api_key" json:"evolution_api_key"`
	EvolutionInstanceName string `json:"evolution_instance_name"`
}

func (Settings) TableName() string { return "settings" }
