package services

import (
	"time"

	"gorm.io/gorm"

	"stepcity/internal/catalog"
	"stepcity/internal/models"
	"stepcity/internal/pagination"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password, displayName string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	StoreRefreshTokenHash(userID, tokenHash string) error
	GetRefreshTokenHash(userID string) (string, error)
}

// StepCredit is the outcome of one daily step sync against the ledger.
type StepCredit struct {
	Day           string `json:"day"`
	Delta         int64  `json:"delta"`
	Steps         int64  `json:"steps"`
	Balance       int64  `json:"balance"`
	LifetimeSteps int64  `json:"lifetime_steps"`
}

// LedgerServicer defines the contract for the ledger store: every balance
// and per-day-metric mutation goes through these transactional primitives.
// The InTx variants participate in a caller-owned transaction so that
// composite operations (claim, purchase) stay atomic.
type LedgerServicer interface {
	EnsureAccount(userID string) (*models.Account, error)
	GetAccount(userID string) (*models.Account, error)
	GetBalance(userID string) (int64, error)
	Credit(userID string, amount int64) (int64, error)
	Spend(userID string, amount int64) (int64, error)
	Refund(userID string, amount int64) (int64, error)
	CreditInTx(tx *gorm.DB, userID string, amount int64) (int64, error)
	SpendInTx(tx *gorm.DB, userID string, amount int64) (int64, error)
	UpsertDailySteps(userID, day string, newCount int64) (*StepCredit, error)
	ApplyDailyDisaster(userID, day string) (bool, error)
	GetDailyMetric(userID, day string) (*models.DailyMetric, error)
}

// SyncResult is what a full step sync reports back to the client: the
// ledger outcome plus any achievements unlocked by the fan-out.
type SyncResult struct {
	StepCredit
	Unlocked []string `json:"unlocked"`
}

// SyncServicer converts observed step counts into ledger credits and
// achievement progress.
type SyncServicer interface {
	SyncSteps(userID, day string, steps int64) (*SyncResult, error)
}

// AchievementView merges a catalog definition with the user's record.
type AchievementView struct {
	ID          string                  `json:"id"`
	Name        string                  `json:"name"`
	Kind        catalog.AchievementKind `json:"kind"`
	Target      int64                   `json:"target"`
	Reward      int64                   `json:"reward"`
	Progress    int64                   `json:"progress"`
	Completed   bool                    `json:"completed"`
	CompletedAt *time.Time              `json:"completed_at,omitempty"`
	Claimed     bool                    `json:"claimed"`
	ClaimedAt   *time.Time              `json:"claimed_at,omitempty"`
}

// AchievementServicer defines the contract for achievement progress
// tracking and reward claims.
type AchievementServicer interface {
	UpdateProgress(userID, achievementID string, observed int64) (*models.AchievementRecord, bool, error)
	MarkEvent(userID, achievementID string) (bool, error)
	Claim(userID, achievementID string) (int64, error)
	ListForUser(userID string, page pagination.PageRequest) (*pagination.PageResponse[AchievementView], error)
}

// PurchaseReceipt is the outcome of a successful product purchase.
type PurchaseReceipt struct {
	PurchaseID string `json:"purchase_id"`
	Balance    int64  `json:"balance"`
}

// SkinView is the decoded skin ownership and equipment state.
type SkinView struct {
	Owned    []string          `json:"owned"`
	Equipped map[string]string `json:"equipped"`
}

// ShopServicer defines the contract for purchases, inventory, and skins.
type ShopServicer interface {
	PurchaseProduct(userID, productID string, quantity int64) (*PurchaseReceipt, error)
	PurchaseSkin(userID, skinID string) (int64, error)
	EquipSkin(userID, target, skinID string) (*SkinView, error)
	EquipDefault(userID, target string) (*SkinView, error)
	GetSkinState(userID string) (*SkinView, error)
	GetInventory(userID string) ([]models.InventoryEntry, error)
	ListPurchases(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Purchase], error)
}

// WorldView is a decoded world snapshot plus the skin state the client
// needs to render it.
type WorldView struct {
	Buildings   []models.Building   `json:"buildings"`
	Decorations []models.Decoration `json:"decorations"`
	Skins       SkinView            `json:"skins"`
	SavedAt     *time.Time          `json:"saved_at,omitempty"`
}

// WorldServicer defines the contract for world snapshot persistence.
type WorldServicer interface {
	Save(userID string, buildings []models.Building, decorations []models.Decoration) error
	Load(userID string) (*WorldView, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]interface{})
}
