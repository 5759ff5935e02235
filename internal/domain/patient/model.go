package patient

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

var validGenders = map[string]bool{
	"Male": true, "Female": true, "Other": true,
}

// Patient maps to the patient table. A patient may be linked to the account
// that self-registered it; the link is unique so one account owns at most one
// record.
type Patient struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	FirstName    string     `db:"first_name" json:"first_name"`
	LastName     string     `db:"last_name" json:"last_name"`
	DateOfBirth  time.Time  `db:"date_of_birth" json:"date_of_birth"`
	Gender       string     `db:"gender" json:"gender"`
	Phone        *string    `db:"phone" json:"phone,omitempty"`
	Email        *string    `db:"email" json:"email,omitempty"`
	AddressLine  *string    `db:"address_line" json:"address_line,omitempty"`
	City         *string    `db:"city" json:"city,omitempty"`
	State        *string    `db:"state" json:"state,omitempty"`
	PostalCode   *string    `db:"postal_code" json:"postal_code,omitempty"`
	BloodType    *string    `db:"blood_type" json:"blood_type,omitempty"`
	Allergies    []string   `db:"allergies" json:"allergies"`
	UserID       *uuid.UUID `db:"user_id" json:"user_id,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`

	// MedicalHistory is loaded alongside the record, newest first.
	MedicalHistory []*HistoryEntry `json:"medical_history"`
}

// HistoryEntry maps to the medical_history table.
type HistoryEntry struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	PatientID  uuid.UUID  `db:"patient_id" json:"patient_id"`
	Condition  string     `db:"condition" json:"condition"`
	Notes      *string    `db:"notes" json:"notes,omitempty"`
	DoctorID   *uuid.UUID `db:"doctor_id" json:"doctor_id,omitempty"`
	RecordedAt time.Time  `db:"recorded_at" json:"recorded_at"`
}

// Validate checks the required demographic fields.
func (p *Patient) Validate() error {
	if p.FirstName == "" || p.LastName == "" {
		return fmt.Errorf("first_name and last_name are required")
	}
	if p.DateOfBirth.IsZero() {
		return fmt.Errorf("date_of_birth is required")
	}
	if !validGenders[p.Gender] {
		return fmt.Errorf("gender must be Male, Female or Other")
	}
	return nil
}
