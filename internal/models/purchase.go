package models

// PurchaseStatus represents the terminal state of a purchase record.
type PurchaseStatus string

const (
	PurchaseStatusCompleted PurchaseStatus = "completed"
)

// Purchase is an append-only record of a completed shop transaction.
// Each row is causally linked to exactly one balance deduction and is
// never mutated after creation.
type Purchase struct {
	Base
	UserID    string         `gorm:"type:uuid;not null;index" json:"user_id"`
	ProductID string         `gorm:"size:64;not null" json:"product_id"`
	Quantity  int64          `gorm:"not null" json:"quantity"`
	UnitPrice int64          `gorm:"not null" json:"unit_price"`
	Total     int64          `gorm:"not null" json:"total"`
	Status    PurchaseStatus `gorm:"size:16;not null" json:"status"`
}
