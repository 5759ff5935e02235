package request

import (
	"context"
	"fmt"

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

func conn(ctx context.Context, pool *pgxpool.Pool) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return pool
}

// =========== Appointment Requests ===========

type apptRequestRepoPG struct{ pool *pgxpool.Pool }

func NewAppointmentRequestRepoPG(pool *pgxpool.Pool) AppointmentRequestRepository {
	return &apptRequestRepoPG{pool: pool}
}

const apptReqCols = `id, requester_id, doctor_id, appointment_date,
	appointment_time, reason, status, created_at, updated_at`

func scanApptRequest(row pgx.Row) (*AppointmentRequest, error) {
	var r AppointmentRequest
	err := row.Scan(&r.ID, &r.RequesterID, &r.DoctorID, &r.AppointmentDate,
		&r.AppointmentTime, &r.Reason, &r.Status, &r.CreatedAt, &r.UpdatedAt)
	return &r, err
}

func (repo *apptRequestRepoPG) Create(ctx context.Context, r *AppointmentRequest) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return conn(ctx, repo.pool).QueryRow(ctx, `
		INSERT INTO appointment_request (id, requester_id, doctor_id,
			appointment_date, appointment_time, reason, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at, updated_at`,
		r.ID, r.RequesterID, r.DoctorID, r.AppointmentDate,
		r.AppointmentTime, r.Reason, r.Status).
		Scan(&r.CreatedAt, &r.UpdatedAt)
}

func (repo *apptRequestRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*AppointmentRequest, error) {
	return scanApptRequest(conn(ctx, repo.pool).QueryRow(ctx,
		`SELECT `+apptReqCols+` FROM appointment_request WHERE id = $1`, id))
}

func (repo *apptRequestRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := conn(ctx, repo.pool).Exec(ctx, `
		UPDATE appointment_request SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (repo *apptRequestRepoPG) List(ctx context.Context, requesterID *uuid.UUID, limit, offset int) ([]*AppointmentRequest, int, error) {
	query := `SELECT ` + apptReqCols + ` FROM appointment_request`
	countQuery := `SELECT COUNT(*) FROM appointment_request`
	var args []interface{}
	if requesterID != nil {
		query += ` WHERE requester_id = $1`
		countQuery += ` WHERE requester_id = $1`
		args = append(args, *requesterID)
	}

	var total int
	if err := conn(ctx, repo.pool).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := conn(ctx, repo.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*AppointmentRequest
	for rows.Next() {
		r, err := scanApptRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, r)
	}
	return items, total, rows.Err()
}

// =========== Inventory Requests ===========

type invRequestRepoPG struct{ pool *pgxpool.Pool }

func NewInventoryRequestRepoPG(pool *pgxpool.Pool) InventoryRequestRepository {
	return &invRequestRepoPG{pool: pool}
}

const invReqCols = `id, requester_id, item_id, quantity, status, created_at, updated_at`

func scanInvRequest(row pgx.Row) (*InventoryRequest, error) {
	var r InventoryRequest
	err := row.Scan(&r.ID, &r.RequesterID, &r.ItemID, &r.Quantity, &r.Status,
		&r.CreatedAt, &r.UpdatedAt)
	return &r, err
}

func (repo *invRequestRepoPG) Create(ctx context.Context, r *InventoryRequest) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return conn(ctx, repo.pool).QueryRow(ctx, `
		INSERT INTO inventory_request (id, requester_id, item_id, quantity, status)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at, updated_at`,
		r.ID, r.RequesterID, r.ItemID, r.Quantity, r.Status).
		Scan(&r.CreatedAt, &r.UpdatedAt)
}

func (repo *invRequestRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*InventoryRequest, error) {
	return scanInvRequest(conn(ctx, repo.pool).QueryRow(ctx,
		`SELECT `+invReqCols+` FROM inventory_request WHERE id = $1`, id))
}

func (repo *invRequestRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := conn(ctx, repo.pool).Exec(ctx, `
		UPDATE inventory_request SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (repo *invRequestRepoPG) List(ctx context.Context, requesterID *uuid.UUID, limit, offset int) ([]*InventoryRequest, int, error) {
	query := `SELECT ` + invReqCols + ` FROM inventory_request`
	countQuery := `SELECT COUNT(*) FROM inventory_request`
	var args []interface{}
	if requesterID != nil {
		query += ` WHERE requester_id = $1`
		countQuery += ` WHERE requester_id = $1`
		args = append(args, *requesterID)
	}

	var total int
	if err := conn(ctx, repo.pool).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := conn(ctx, repo.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*InventoryRequest
	for rows.Next() {
		r, err := scanInvRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, r)
	}
	return items, total, rows.Err()
}
