package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/domain/identity"
	"github.com/hms/hms/internal/domain/patient"
	"github.com/hms/hms/internal/platform/db"
	"github.com/hms/hms/internal/platform/notification"
)

var (
	ErrNotFound        = errors.New("appointment not found")
	ErrPatientNotFound = errors.New("patient not found")
	ErrDoctorNotFound  = errors.New("doctor not found")
	// ErrSlotTaken is returned both by the availability pre-check and by
	// the unique index when two bookings race past it.
	ErrSlotTaken = errors.New("doctor is not available at the requested time")
)

// PatientStore is the subset of the patient repository booking depends on.
type PatientStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

// UserStore resolves doctor accounts.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*identity.User, error)
}

type Service struct {
	appointments Repository
	patients     PatientStore
	users        UserStore
	email        notification.EmailSender
	templates    *notification.TemplateEngine
	inTx         db.TxRunner
	log          zerolog.Logger
}

func NewService(appointments Repository, patients PatientStore, users UserStore,
	email notification.EmailSender, templates *notification.TemplateEngine,
	inTx db.TxRunner, log zerolog.Logger) *Service {
	if inTx == nil {
		inTx = func(ctx context.Context, fn func(ctx context.Context) error) error {
			return fn(ctx)
		}
	}
	return &Service{
		appointments: appointments,
		patients:     patients,
		users:        users,
		email:        email,
		templates:    templates,
		inTx:         inTx,
		log:          log,
	}
}

// Book validates references and availability, then inserts. The pre-check
// gives a friendly conflict early; the unique index catches the race two
// concurrent bookings can win against the pre-check, and both paths report
// the same conflict.
func (s *Service) Book(ctx context.Context, a *Appointment) error {
	if err := a.Validate(); err != nil {
		return err
	}

	p, err := s.patients.GetByID(ctx, a.PatientID)
	if err != nil {
		if db.IsNotFound(err) {
			return ErrPatientNotFound
		}
		return fmt.Errorf("get patient: %w", err)
	}

	doctor, err := s.users.GetByID(ctx, a.DoctorID)
	if err != nil {
		if db.IsNotFound(err) {
			return ErrDoctorNotFound
		}
		return fmt.Errorf("get doctor: %w", err)
	}
	if doctor.Role != identity.RoleDoctor {
		return ErrDoctorNotFound
	}

	// Availability check and insert share one transaction so a failed insert
	// leaves nothing behind.
	err = s.inTx(ctx, func(ctx context.Context) error {
		taken, err := s.appointments.SlotTaken(ctx, a.DoctorID, a.AppointmentDate, a.AppointmentTime)
		if err != nil {
			return fmt.Errorf("check availability: %w", err)
		}
		if taken {
			return ErrSlotTaken
		}

		if err := s.appointments.Create(ctx, a); err != nil {
			if db.IsUniqueViolation(err, "") {
				return ErrSlotTaken
			}
			return fmt.Errorf("create appointment: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.notifyBooking(p, doctor, a, "appointment-booked")
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return a, nil
}

func (s *Service) List(ctx context.Context, f Filter, limit, offset int) ([]*Appointment, int, error) {
	return s.appointments.List(ctx, f, limit, offset)
}

func (s *Service) Update(ctx context.Context, a *Appointment) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if err := s.appointments.Update(ctx, a); err != nil {
		if db.IsNotFound(err) {
			return ErrNotFound
		}
		if db.IsUniqueViolation(err, "") {
			return ErrSlotTaken
		}
		return fmt.Errorf("update appointment: %w", err)
	}
	return nil
}

// Cancel marks the appointment canceled. The record is kept.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) error {
	a, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.appointments.UpdateStatus(ctx, id, StatusCanceled); err != nil {
		if db.IsNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("cancel appointment: %w", err)
	}

	if p, perr := s.patients.GetByID(ctx, a.PatientID); perr == nil {
		if doctor, derr := s.users.GetByID(ctx, a.DoctorID); derr == nil {
			s.notifyBooking(p, doctor, a, "appointment-canceled")
		}
	}
	return nil
}

// notifyBooking emails the patient, when a contact address is on file.
// Delivery failures are logged and never affect the booking.
func (s *Service) notifyBooking(p *patient.Patient, doctor *identity.User, a *Appointment, templateID string) {
	if s.email == nil || s.templates == nil || p.Email == nil || *p.Email == "" {
		return
	}
	to := *p.Email
	data := map[string]string{
		"patient_name": p.FirstName + " " + p.LastName,
		"doctor_name":  doctor.Username,
		"date":         a.AppointmentDate.Format("2006-01-02"),
		"time":         a.AppointmentTime,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		subject, body, err := s.templates.Render(templateID, data)
		if err != nil {
			return
		}
		if err := s.email.SendEmail(ctx, to, subject, body); err != nil {
			s.log.Warn().Err(err).Str("appointment_id", a.ID.String()).Msg("appointment email failed")
		}
	}()
}
