package models

import "gorm.io/gorm"

// DefaultPipelineStages is the stage ladder every new workspace starts with.
func DefaultPipelineStages() []PipelineStage {
	return []PipelineStage{
		{ID: "1", Name: "Nuevo", Color: "#8a3ab9", Order: 0},
		{ID: "2", Name: "Calificado", Color: "#fcc669", Order: 1},
		{ID: "3", Name: "Visita Programada", Color: "#10b981", Order: 2},
		{ID: "4", Name: "Negociación", Color: "#e94c74", Order: 3},
		{ID: "5", Name: "Vendido", Color: "#8b5cf6", Order: 4},
	}
}

// DefaultLeadSources lists the acquisition channels offered out of the box.
func DefaultLeadSources() []LeadSource {
	return []LeadSource{
		{ID: "ls1", Name: "Web"},
		{ID: "ls2", Name: "Facebook"},
		{ID: "ls3", Name: "Instagram"},
		{ID: "ls4", Name: "TikTok"},
		{ID: "ls5", Name: "Youtube"},
		{ID: "ls6", Name: "Portal Inmobiliario"},
		{ID: "ls7", Name: "Referido"},
		{ID: "ls8", Name: "Otro"},
	}
}

// SeedDefaults fills the catalog tables on an empty database. Ids are left to
// the database so the demo identifiers never leak into a real deployment.
func SeedDefaults(db *gorm.DB) error {
	var count int64
	if err := db.Model(&PipelineStage{}).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		stages := DefaultPipelineStages()
		for i := range stages {
			stages[i].ID = ""
		}
		if err := db.Create(&stages).Error; err != nil {
			return err
		}
	}

	if err := db.Model(&LeadSource{}).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		sources := DefaultLeadSources()
		for i := range sources {
			sources[i].ID = ""
		}
		if err := db.Create(&sources).Error; err != nil {
			return err
		}
	}

	if err := db.Model(&Settings{}).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return db.Create(&Settings{CompanyName: "ImmoFlow"}).Error
	}
	return nil
}
