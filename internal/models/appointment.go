package models

import (
	"time"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "scheduled"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusNoShow    AppointmentStatus = "no-show"
)

// Valid reports whether s is one of the known statuses.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// AppointmentType is how the encounter takes place.
type AppointmentType string

const (
	TypeInClinic AppointmentType = "in-clinic"
	TypeVideo    AppointmentType = "video"
	TypePhone    AppointmentType = "phone"
)

// PaymentStatus tracks payment for the consultation.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// CancelledBy records which side cancelled.
type CancelledBy string

const (
	CancelledByPatient  CancelledBy = "patient"
	CancelledByProvider CancelledBy = "provider"
	CancelledByAdmin    CancelledBy = "admin"
)

// Prescription is a single medication line written during the appointment.
type Prescription struct {
	Medication string `json:"medication"`
	Dosage     string `json:"dosage"`
	Frequency  string `json:"frequency"`
	Duration   string `json:"duration"`
	Notes      string `json:"notes,omitempty"`
}

// Feedback is the patient's rating of a completed appointment.
type Feedback struct {
	Rating      int       `json:"rating"`
	Comment     string    `json:"comment"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// Appointment represents a scheduled medical appointment.
// PatientID, ProviderID and PaymentAmount never change after creation.
type Appointment struct {
	BaseModel
	PatientID               string            `gorm:"size:36;index;not null" json:"patientId"`
	ProviderID              string            `gorm:"size:36;index;not null" json:"providerId"`
	AppointmentDate         time.Time         `gorm:"index;not null" json:"appointmentDate"`
	AppointmentTime         string            `gorm:"size:20;not null" json:"appointmentTime"`
	AppointmentType         AppointmentType   `gorm:"size:20;not null" json:"appointmentType"`
	Status                  AppointmentStatus `gorm:"size:20;index;default:'scheduled'" json:"status"`
	ReasonForVisit          string            `gorm:"type:text;not null" json:"reasonForVisit"`
	Symptoms                []string          `gorm:"serializer:json" json:"symptoms"`
	Notes                   string            `gorm:"type:text" json:"notes,omitempty"`
	Diagnosis               string            `gorm:"type:text" json:"diagnosis,omitempty"`
	Prescriptions           []Prescription    `gorm:"serializer:json" json:"prescriptions"`
	FollowUpDate            *time.Time        `json:"followUpDate,omitempty"`
	PaymentStatus           PaymentStatus     `gorm:"size:20;default:'pending'" json:"paymentStatus"`
	PaymentAmount           float64           `gorm:"default:0" json:"paymentAmount"`
	PaymentID               string            `gorm:"size:100" json:"paymentId,omitempty"`
	MeetingLink             string            `gorm:"size:255" json:"meetingLink,omitempty"`
	IsCancelled             bool              `gorm:"default:false" json:"isCancelled"`
	CancellationReason      string            `gorm:"type:text" json:"cancellationReason,omitempty"`
	CancelledBy             CancelledBy       `gorm:"size:20" json:"cancelledBy,omitempty"`
	IsRescheduled           bool              `gorm:"default:false" json:"isRescheduled"`
	PreviousAppointmentDate *time.Time        `json:"previousAppointmentDate,omitempty"`
	Feedback                *Feedback         `gorm:"serializer:json" json:"feedback,omitempty"`
	Version                 int64             `gorm:"not null;default:1" json:"-"`

	// Relations (preloaded on reads)
	Patient  *User     `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
	Provider *Provider `gorm:"foreignKey:ProviderID" json:"provider,omitempty"`
}
