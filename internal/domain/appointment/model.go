package appointment

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	StatusScheduled   = "scheduled"
	StatusCompleted   = "completed"
	StatusCanceled    = "canceled"
	StatusRescheduled = "rescheduled"
)

var validStatuses = map[string]bool{
	StatusScheduled: true, StatusCompleted: true,
	StatusCanceled: true, StatusRescheduled: true,
}

var validTypes = map[string]bool{
	"checkup": true, "follow-up": true, "emergency": true, "consultation": true,
}

const defaultLocation = "Main Clinic"

// Appointment maps to the appointment table. A doctor holds at most one
// scheduled appointment per (date, time) slot; the table enforces it with a
// unique index.
type Appointment struct {
	ID              uuid.UUID `db:"id" json:"id"`
	PatientID       uuid.UUID `db:"patient_id" json:"patient_id"`
	DoctorID        uuid.UUID `db:"doctor_id" json:"doctor_id"`
	AppointmentDate time.Time `db:"appointment_date" json:"appointment_date"`
	AppointmentTime string    `db:"appointment_time" json:"appointment_time"`
	Reason          *string   `db:"reason" json:"reason,omitempty"`
	Status          string    `db:"status" json:"status"`
	Type            string    `db:"type" json:"type"`
	Location        string    `db:"location" json:"location"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// Validate checks required fields and normalizes defaults.
func (a *Appointment) Validate() error {
	if a.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if a.DoctorID == uuid.Nil {
		return fmt.Errorf("doctor_id is required")
	}
	if a.AppointmentDate.IsZero() {
		return fmt.Errorf("appointment_date is required")
	}
	if a.AppointmentTime == "" {
		return fmt.Errorf("appointment_time is required")
	}
	if a.Status == "" {
		a.Status = StatusScheduled
	}
	if !validStatuses[a.Status] {
		return fmt.Errorf("invalid appointment status: %s", a.Status)
	}
	if a.Type == "" {
		a.Type = "consultation"
	}
	if !validTypes[a.Type] {
		return fmt.Errorf("invalid appointment type: %s", a.Type)
	}
	if a.Location == "" {
		a.Location = defaultLocation
	}
	return nil
}

// ValidStatus reports whether status is one of the recognized states.
func ValidStatus(status string) bool {
	return validStatuses[status]
}
