package request

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/domain/identity"
	"github.com/hms/hms/internal/domain/inventory"
	"github.com/hms/hms/internal/platform/db"
)

var (
	ErrNotFound       = errors.New("request not found")
	ErrDoctorNotFound = errors.New("doctor not found")
	ErrItemNotFound   = errors.New("inventory item not found")
	ErrInvalidStatus  = errors.New("invalid status transition")
)

// UserStore resolves the doctor an appointment request targets.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*identity.User, error)
}

// ItemStore resolves the item an inventory request targets.
type ItemStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*inventory.Item, error)
}

// DoctorDirectory lists bookable doctors for the request forms.
type DoctorDirectory interface {
	ListDoctors(ctx context.Context, limit, offset int) ([]*identity.Doctor, int, error)
}

type Service struct {
	apptRequests AppointmentRequestRepository
	invRequests  InventoryRequestRepository
	users        UserStore
	items        ItemStore
	doctors      DoctorDirectory
	log          zerolog.Logger
}

func NewService(apptRequests AppointmentRequestRepository, invRequests InventoryRequestRepository,
	users UserStore, items ItemStore, doctors DoctorDirectory, log zerolog.Logger) *Service {
	return &Service{
		apptRequests: apptRequests,
		invRequests:  invRequests,
		users:        users,
		items:        items,
		doctors:      doctors,
		log:          log,
	}
}

// CreateAppointmentRequest records a patient's ask for an appointment slot.
// The requester is always the acting user, never taken from the payload.
func (s *Service) CreateAppointmentRequest(ctx context.Context, requesterID uuid.UUID, r *AppointmentRequest) error {
	r.RequesterID = requesterID
	r.Status = StatusRequested
	if err := r.Validate(); err != nil {
		return err
	}

	doctor, err := s.users.GetByID(ctx, r.DoctorID)
	if err != nil {
		if db.IsNotFound(err) {
			return ErrDoctorNotFound
		}
		return fmt.Errorf("get doctor: %w", err)
	}
	if doctor.Role != identity.RoleDoctor {
		return ErrDoctorNotFound
	}

	if err := s.apptRequests.Create(ctx, r); err != nil {
		return fmt.Errorf("create appointment request: %w", err)
	}
	return nil
}

// ListAppointmentRequests returns all requests when requesterID is nil,
// otherwise only those raised by that user.
func (s *Service) ListAppointmentRequests(ctx context.Context, requesterID *uuid.UUID, limit, offset int) ([]*AppointmentRequest, int, error) {
	items, total, err := s.apptRequests.List(ctx, requesterID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list appointment requests: %w", err)
	}
	return items, total, nil
}

// UpdateAppointmentRequestStatus moves a request to approved or rejected.
func (s *Service) UpdateAppointmentRequestStatus(ctx context.Context, id uuid.UUID, status string) (*AppointmentRequest, error) {
	if status != StatusApproved && status != StatusRejected {
		return nil, ErrInvalidStatus
	}
	if err := s.apptRequests.UpdateStatus(ctx, id, status); err != nil {
		if db.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update appointment request: %w", err)
	}
	r, err := s.apptRequests.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get appointment request: %w", err)
	}
	return r, nil
}

// CreateInventoryRequest records a patient's ask for supplies.
func (s *Service) CreateInventoryRequest(ctx context.Context, requesterID uuid.UUID, r *InventoryRequest) error {
	r.RequesterID = requesterID
	r.Status = StatusRequested
	if err := r.Validate(); err != nil {
		return err
	}

	if _, err := s.items.GetByID(ctx, r.ItemID); err != nil {
		if db.IsNotFound(err) {
			return ErrItemNotFound
		}
		return fmt.Errorf("get item: %w", err)
	}

	if err := s.invRequests.Create(ctx, r); err != nil {
		return fmt.Errorf("create inventory request: %w", err)
	}
	return nil
}

func (s *Service) ListInventoryRequests(ctx context.Context, requesterID *uuid.UUID, limit, offset int) ([]*InventoryRequest, int, error) {
	items, total, err := s.invRequests.List(ctx, requesterID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list inventory requests: %w", err)
	}
	return items, total, nil
}

// UpdateInventoryRequestStatus moves a request to fulfilled or rejected.
func (s *Service) UpdateInventoryRequestStatus(ctx context.Context, id uuid.UUID, status string) (*InventoryRequest, error) {
	if status != StatusFulfilled && status != StatusRejected {
		return nil, ErrInvalidStatus
	}
	if err := s.invRequests.UpdateStatus(ctx, id, status); err != nil {
		if db.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update inventory request: %w", err)
	}
	r, err := s.invRequests.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get inventory request: %w", err)
	}
	return r, nil
}

// ListDoctors exposes the doctor directory to authenticated users so they
// can pick a doctor when raising an appointment request.
func (s *Service) ListDoctors(ctx context.Context, limit, offset int) ([]*identity.Doctor, int, error) {
	return s.doctors.ListDoctors(ctx, limit, offset)
}
