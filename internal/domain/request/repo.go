package request

import (
	"context"

	"github.com/google/uuid"
)

type AppointmentRequestRepository interface {
	Create(ctx context.Context, r *AppointmentRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*AppointmentRequest, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	// List returns all requests, or only those of requesterID when it is
	// non-nil.
	List(ctx context.Context, requesterID *uuid.UUID, limit, offset int) ([]*AppointmentRequest, int, error)
}

type InventoryRequestRepository interface {
	Create(ctx context.Context, r *InventoryRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*InventoryRequest, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	List(ctx context.Context, requesterID *uuid.UUID, limit, offset int) ([]*InventoryRequest, int, error)
}
