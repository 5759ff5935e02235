package inventory

import (
	"context"

	"github.com/google/uuid"
)

// Filter narrows List results.
type Filter struct {
	Category string
	LowStock bool
}

type Repository interface {
	Create(ctx context.Context, i *Item) error
	GetByID(ctx context.Context, id uuid.UUID) (*Item, error)
	Update(ctx context.Context, i *Item) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f Filter, limit, offset int) ([]*Item, int, error)
	// AdjustStock applies delta atomically, refusing any change that would
	// take the stock negative. It returns the updated item, or
	// ErrInsufficientStock with the row untouched.
	AdjustStock(ctx context.Context, id uuid.UUID, delta int) (*Item, error)
}
