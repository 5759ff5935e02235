package inventory

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	CategoryDrug       = "drug"
	CategoryEquipment  = "equipment"
	CategoryConsumable = "consumable"
	CategoryVaccine    = "vaccine"
	CategoryOther      = "other"
)

var validCategories = map[string]bool{
	CategoryDrug: true, CategoryEquipment: true, CategoryConsumable: true,
	CategoryVaccine: true, CategoryOther: true,
}

const defaultMinimumStockLevel = 10

// Item maps to the inventory_item table. current_stock carries a CHECK
// constraint keeping it non-negative.
type Item struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	ItemName          string     `db:"item_name" json:"item_name"`
	Category          string     `db:"category" json:"category"`
	CurrentStock      int        `db:"current_stock" json:"current_stock"`
	Unit              string     `db:"unit" json:"unit"`
	MinimumStockLevel int        `db:"minimum_stock_level" json:"minimum_stock_level"`
	Supplier          *string    `db:"supplier" json:"supplier,omitempty"`
	ExpirationDate    *time.Time `db:"expiration_date" json:"expiration_date,omitempty"`
	LastRestockAt     *time.Time `db:"last_restock_at" json:"last_restock_at,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// LowStock reports whether the item is at or below its minimum level.
func (i *Item) LowStock() bool {
	return i.CurrentStock <= i.MinimumStockLevel
}

// Validate checks required fields and normalizes defaults. Drugs and
// vaccines must carry an expiration date.
func (i *Item) Validate() error {
	if i.ItemName == "" {
		return fmt.Errorf("item_name is required")
	}
	if !validCategories[i.Category] {
		return fmt.Errorf("invalid category: %s", i.Category)
	}
	if i.CurrentStock < 0 {
		return fmt.Errorf("current_stock cannot be negative")
	}
	if i.Unit == "" {
		return fmt.Errorf("unit is required")
	}
	if i.MinimumStockLevel == 0 {
		i.MinimumStockLevel = defaultMinimumStockLevel
	}
	if i.MinimumStockLevel < 0 {
		return fmt.Errorf("minimum_stock_level cannot be negative")
	}
	if (i.Category == CategoryDrug || i.Category == CategoryVaccine) && i.ExpirationDate == nil {
		return fmt.Errorf("expiration_date is required for %s items", i.Category)
	}
	return nil
}
