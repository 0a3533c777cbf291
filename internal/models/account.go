package models

// Account is a player's economy ledger: the coin balance and the lifetime
// step total. One row per user, created on first sign-in, never deleted.
//
// Both fields are only ever mutated through the ledger service's
// transactional primitives; balance stays >= 0 and lifetime_steps is
// monotonic non-decreasing.
type Account struct {
	Base
	UserID        string `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	Balance       int64  `gorm:"not null;default:0" json:"balance"`
	LifetimeSteps int64  `gorm:"not null;default:0" json:"lifetime_steps"`
}
