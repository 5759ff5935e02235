package patient

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hms/hms/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const patientCols = `id, first_name, last_name, date_of_birth, gender,
	phone, email, address_line, city, state, postal_code, blood_type,
	allergies, user_id, created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.FirstName, &p.LastName, &p.DateOfBirth, &p.Gender,
		&p.Phone, &p.Email, &p.AddressLine, &p.City, &p.State, &p.PostalCode,
		&p.BloodType, &p.Allergies, &p.UserID, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Allergies == nil {
		p.Allergies = []string{}
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patient (id, first_name, last_name, date_of_birth, gender,
			phone, email, address_line, city, state, postal_code, blood_type,
			allergies, user_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		RETURNING created_at, updated_at`,
		p.ID, p.FirstName, p.LastName, p.DateOfBirth, p.Gender,
		p.Phone, p.Email, p.AddressLine, p.City, p.State, p.PostalCode,
		p.BloodType, p.Allergies, p.UserID).
		Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patient WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadHistory(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient SET first_name=$2, last_name=$3, date_of_birth=$4, gender=$5,
			phone=$6, email=$7, address_line=$8, city=$9, state=$10, postal_code=$11,
			blood_type=$12, allergies=$13, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.FirstName, p.LastName, p.DateOfBirth, p.Gender,
		p.Phone, p.Email, p.AddressLine, p.City, p.State, p.PostalCode,
		p.BloodType, p.Allergies)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM patient WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patient`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+patientCols+` FROM patient ORDER BY last_name, first_name LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	for _, p := range items {
		if err := r.loadHistory(ctx, p); err != nil {
			return nil, 0, err
		}
	}
	return items, total, nil
}

func (r *repoPG) AddHistoryEntry(ctx context.Context, e *HistoryEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO medical_history (id, patient_id, condition, notes, doctor_id)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING recorded_at`,
		e.ID, e.PatientID, e.Condition, e.Notes, e.DoctorID).
		Scan(&e.RecordedAt)
}

func (r *repoPG) loadHistory(ctx context.Context, p *Patient) error {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, patient_id, condition, notes, doctor_id, recorded_at
		FROM medical_history WHERE patient_id = $1 ORDER BY recorded_at DESC`, p.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	p.MedicalHistory = []*HistoryEntry{}
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.ID, &e.PatientID, &e.Condition, &e.Notes, &e.DoctorID, &e.RecordedAt); err != nil {
			return err
		}
		p.MedicalHistory = append(p.MedicalHistory, &e)
	}
	return rows.Err()
}
