package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Provider is a care provider that patients book appointments with. Rating is
// derived from Reviews and only written together with a review append.
type Provider struct {
	BaseModel
	Name            string   `gorm:"size:200;not null" json:"name"`
	Email           string   `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password        string   `gorm:"size:255;not null" json:"-"`
	PhoneNumber     string   `gorm:"size:50" json:"phoneNumber,omitempty"`
	Specialty       string   `gorm:"size:100;index" json:"specialty"`
	LicenseNumber   string   `gorm:"size:100" json:"licenseNumber,omitempty"`
	AboutMe         string   `gorm:"type:text" json:"aboutMe,omitempty"`
	ConsultationFee float64  `gorm:"default:0" json:"consultationFee"`
	Rating          float64  `gorm:"default:0;index" json:"rating"`
	Version         int64    `gorm:"not null;default:1" json:"-"`
	Reviews         []Review `gorm:"foreignKey:ProviderID" json:"reviews,omitempty"`
}

// Review is one patient rating of a provider. Reviews are append-only.
type Review struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ProviderID string    `gorm:"size:36;index;not null" json:"providerId"`
	PatientID  string    `gorm:"size:36;index;not null" json:"patientId"`
	Rating     int       `gorm:"not null" json:"rating"`
	Comment    string    `gorm:"type:text" json:"comment"`
	Date       time.Time `json:"date"`
}

// BeforeCreate assigns a UUID when the caller did not.
func (r *Review) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

// TableName keeps reviews namespaced under providers.
func (Review) TableName() string {
	return "provider_reviews"
}

// ProviderSummary is the projection of a provider embedded in appointment
// responses and used for fee snapshots.
type ProviderSummary struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Email           string  `json:"email"`
	Specialty       string  `json:"specialty"`
	ConsultationFee float64 `json:"consultationFee"`
	Rating          float64 `json:"rating"`
}

// SetPassword hashes a password and sets it on the provider.
func (p *Provider) SetPassword(password string) error {
	hashed, err := hashPassword(password)
	if err != nil {
		return err
	}
	p.Password = hashed
	return nil
}

// CheckPassword compares a password with the provider's hashed password.
func (p *Provider) CheckPassword(password string) bool {
	return checkPassword(p.Password, password)
}

// Summary returns the public projection of the provider.
func (p *Provider) Summary() ProviderSummary {
	return ProviderSummary{
		ID:              p.ID,
		Name:            p.Name,
		Email:           p.Email,
		Specialty:       p.Specialty,
		ConsultationFee: p.ConsultationFee,
		Rating:          p.Rating,
	}
}
