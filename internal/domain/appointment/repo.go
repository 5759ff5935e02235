package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Filter narrows List results. Zero values mean no filtering.
type Filter struct {
	Status   string
	DoctorID uuid.UUID
}

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	List(ctx context.Context, f Filter, limit, offset int) ([]*Appointment, int, error)
	// SlotTaken reports whether the doctor already has a scheduled
	// appointment at the given date and time.
	SlotTaken(ctx context.Context, doctorID uuid.UUID, date time.Time, slot string) (bool, error)
}
