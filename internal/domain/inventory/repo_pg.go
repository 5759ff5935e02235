package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hms/hms/internal/platform/db"
)

// ErrInsufficientStock is reported when a decrement would take the stock
// below zero. The stored quantity is left unchanged.
var ErrInsufficientStock = errors.New("insufficient stock")

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

const itemCols = `id, item_name, category, current_stock, unit,
	minimum_stock_level, supplier, expiration_date, last_restock_at,
	created_at, updated_at`

func scanItem(row pgx.Row) (*Item, error) {
	var i Item
	err := row.Scan(&i.ID, &i.ItemName, &i.Category, &i.CurrentStock, &i.Unit,
		&i.MinimumStockLevel, &i.Supplier, &i.ExpirationDate, &i.LastRestockAt,
		&i.CreatedAt, &i.UpdatedAt)
	return &i, err
}

func (r *repoPG) Create(ctx context.Context, i *Item) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO inventory_item (id, item_name, category, current_stock, unit,
			minimum_stock_level, supplier, expiration_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at, updated_at`,
		i.ID, i.ItemName, i.Category, i.CurrentStock, i.Unit,
		i.MinimumStockLevel, i.Supplier, i.ExpirationDate).
		Scan(&i.CreatedAt, &i.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Item, error) {
	return scanItem(r.conn(ctx).QueryRow(ctx,
		`SELECT `+itemCols+` FROM inventory_item WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, i *Item) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE inventory_item SET item_name=$2, category=$3, unit=$4,
			minimum_stock_level=$5, supplier=$6, expiration_date=$7, updated_at=NOW()
		WHERE id = $1`,
		i.ID, i.ItemName, i.Category, i.Unit,
		i.MinimumStockLevel, i.Supplier, i.ExpirationDate)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM inventory_item WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Item, int, error) {
	query := `SELECT ` + itemCols + ` FROM inventory_item WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM inventory_item WHERE 1=1`
	var args []interface{}
	idx := 1

	if f.Category != "" {
		query += fmt.Sprintf(` AND category = $%d`, idx)
		countQuery += fmt.Sprintf(` AND category = $%d`, idx)
		args = append(args, f.Category)
		idx++
	}
	if f.LowStock {
		query += ` AND current_stock <= minimum_stock_level`
		countQuery += ` AND current_stock <= minimum_stock_level`
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY item_name LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Item
	for rows.Next() {
		i, err := scanItem(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, i)
	}
	return items, total, rows.Err()
}

// AdjustStock is a single conditional UPDATE: the WHERE clause refuses any
// delta that would take the stock negative, so concurrent adjustments cannot
// observe or produce a negative quantity. Positive deltas stamp
// last_restock_at.
func (r *repoPG) AdjustStock(ctx context.Context, id uuid.UUID, delta int) (*Item, error) {
	row := r.conn(ctx).QueryRow(ctx, `
		UPDATE inventory_item
		SET current_stock = current_stock + $2,
			last_restock_at = CASE WHEN $2 > 0 THEN NOW() ELSE last_restock_at END,
			updated_at = NOW()
		WHERE id = $1 AND current_stock + $2 >= 0
		RETURNING `+itemCols, id, delta)

	item, err := scanItem(row)
	if err == nil {
		return item, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	// No row updated: either the item is missing or the delta was refused.
	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, ErrInsufficientStock
}
