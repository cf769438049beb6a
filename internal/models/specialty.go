package models

// Specialty is a catalog entry describing a field of care. Entries are
// deactivated rather than deleted.
type Specialty struct {
	BaseModel
	Name             string      `gorm:"uniqueIndex;size:100;not null" json:"name"`
	Description      string      `gorm:"type:text;not null" json:"description"`
	IconURL          string      `gorm:"size:500" json:"iconUrl,omitempty"`
	ImageURL         string      `gorm:"size:500" json:"imageUrl,omitempty"`
	CommonConditions []Condition `gorm:"serializer:json" json:"commonConditions"`
	IsActive         bool        `gorm:"not null;default:true" json:"isActive"`
}

// Condition is a condition commonly treated within a specialty.
type Condition struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}
