package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/hms/hms/internal/platform/db"
)

var (
	ErrNotFound      = errors.New("inventory item not found")
	ErrDuplicateItem = errors.New("an item with this name already exists")
)

type Service struct {
	items Repository
}

func NewService(items Repository) *Service {
	return &Service{items: items}
}

func (s *Service) Create(ctx context.Context, i *Item) error {
	if err := i.Validate(); err != nil {
		return err
	}
	if err := s.items.Create(ctx, i); err != nil {
		if db.IsUniqueViolation(err, "") {
			return ErrDuplicateItem
		}
		return fmt.Errorf("create item: %w", err)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Item, error) {
	i, err := s.items.GetByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get item: %w", err)
	}
	return i, nil
}

func (s *Service) Update(ctx context.Context, i *Item) error {
	if err := i.Validate(); err != nil {
		return err
	}
	if err := s.items.Update(ctx, i); err != nil {
		if db.IsNotFound(err) {
			return ErrNotFound
		}
		if db.IsUniqueViolation(err, "") {
			return ErrDuplicateItem
		}
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.items.Delete(ctx, id); err != nil {
		if db.IsNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}

func (s *Service) List(ctx context.Context, f Filter, limit, offset int) ([]*Item, int, error) {
	return s.items.List(ctx, f, limit, offset)
}

// AdjustStock applies a non-zero delta to an item's stock. The repository
// guarantees the quantity never goes negative; a refused decrement surfaces
// as ErrInsufficientStock with the stock unchanged.
func (s *Service) AdjustStock(ctx context.Context, id uuid.UUID, delta int) (*Item, error) {
	if delta == 0 {
		return nil, fmt.Errorf("quantity_change must be non-zero")
	}
	item, err := s.items.AdjustStock(ctx, id, delta)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrNotFound
		}
		if errors.Is(err, ErrInsufficientStock) {
			return nil, ErrInsufficientStock
		}
		// Backstop: any write that trips the non-negative stock constraint
		// is the same refusal.
		if db.IsCheckViolation(err, "inventory_item_stock_check") {
			return nil, ErrInsufficientStock
		}
		return nil, fmt.Errorf("adjust stock: %w", err)
	}
	return item, nil
}
