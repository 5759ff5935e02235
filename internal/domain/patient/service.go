package patient

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/hms/hms/internal/platform/db"
)

var (
	ErrNotFound = errors.New("patient not found")
	// ErrForbidden is returned when a patient-role caller reads a record
	// not linked to their own account.
	ErrForbidden = errors.New("not authorized to access this patient record")
)

type Service struct {
	patients Repository
}

func NewService(patients Repository) *Service {
	return &Service{patients: patients}
}

func (s *Service) Create(ctx context.Context, p *Patient) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.Allergies == nil {
		p.Allergies = []string{}
	}
	return s.patients.Create(ctx, p)
}

// Get fetches a patient record, enforcing the self-access rule: a caller with
// the patient role may only read the record linked to their own account.
func (s *Service) Get(ctx context.Context, id uuid.UUID, actorID, actorRole string) (*Patient, error) {
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get patient: %w", err)
	}
	if actorRole == "patient" {
		if p.UserID == nil || p.UserID.String() != actorID {
			return nil, ErrForbidden
		}
	}
	return p, nil
}

func (s *Service) Update(ctx context.Context, p *Patient) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if err := s.patients.Update(ctx, p); err != nil {
		if db.IsNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("update patient: %w", err)
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.patients.Delete(ctx, id); err != nil {
		if db.IsNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("delete patient: %w", err)
	}
	return nil
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, limit, offset)
}

// AddHistoryEntry appends a medical history entry authored by the acting
// doctor.
func (s *Service) AddHistoryEntry(ctx context.Context, e *HistoryEntry) error {
	if e.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if e.Condition == "" {
		return fmt.Errorf("condition is required")
	}
	if _, err := s.patients.GetByID(ctx, e.PatientID); err != nil {
		if db.IsNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("get patient: %w", err)
	}
	return s.patients.AddHistoryEntry(ctx, e)
}
