package models

// InventoryEntry holds the cumulative purchased quantity of one product
// for one user. The counter is monotonic non-decreasing; placing or
// removing items in the world does not touch it.
type InventoryEntry struct {
	Base
	UserID    string `gorm:"type:uuid;not null;uniqueIndex:idx_inventory_entries_user_product" json:"user_id"`
	ProductID string `gorm:"size:64;not null;uniqueIndex:idx_inventory_entries_user_product" json:"product_id"`
	Quantity  int64  `gorm:"not null;default:0" json:"quantity"`
}
