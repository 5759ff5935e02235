package request

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Appointment request states.
const (
	StatusRequested = "requested"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	// StatusFulfilled applies to inventory requests only.
	StatusFulfilled = "fulfilled"
)

var validAppointmentStatuses = map[string]bool{
	StatusRequested: true, StatusApproved: true, StatusRejected: true,
}

var validInventoryStatuses = map[string]bool{
	StatusRequested: true, StatusFulfilled: true, StatusRejected: true,
}

// AppointmentRequest maps to the appointment_request table. The requester is
// always the acting user.
type AppointmentRequest struct {
	ID              uuid.UUID `db:"id" json:"id"`
	RequesterID     uuid.UUID `db:"requester_id" json:"requester_id"`
	DoctorID        uuid.UUID `db:"doctor_id" json:"doctor_id"`
	AppointmentDate time.Time `db:"appointment_date" json:"appointment_date"`
	AppointmentTime string    `db:"appointment_time" json:"appointment_time"`
	Reason          *string   `db:"reason" json:"reason,omitempty"`
	Status          string    `db:"status" json:"status"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

func (r *AppointmentRequest) Validate() error {
	if r.DoctorID == uuid.Nil {
		return fmt.Errorf("doctor_id is required")
	}
	if r.AppointmentDate.IsZero() {
		return fmt.Errorf("appointment_date is required")
	}
	if r.AppointmentTime == "" {
		return fmt.Errorf("appointment_time is required")
	}
	if r.Status == "" {
		r.Status = StatusRequested
	}
	if !validAppointmentStatuses[r.Status] {
		return fmt.Errorf("invalid request status: %s", r.Status)
	}
	return nil
}

// InventoryRequest maps to the inventory_request table.
type InventoryRequest struct {
	ID          uuid.UUID `db:"id" json:"id"`
	RequesterID uuid.UUID `db:"requester_id" json:"requester_id"`
	ItemID      uuid.UUID `db:"item_id" json:"item_id"`
	Quantity    int       `db:"quantity" json:"quantity"`
	Status      string    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

func (r *InventoryRequest) Validate() error {
	if r.ItemID == uuid.Nil {
		return fmt.Errorf("item_id is required")
	}
	if r.Quantity <= 0 {
		return fmt.Errorf("quantity must be positive")
	}
	if r.Status == "" {
		r.Status = StatusRequested
	}
	if !validInventoryStatuses[r.Status] {
		return fmt.Errorf("invalid request status: %s", r.Status)
	}
	return nil
}
