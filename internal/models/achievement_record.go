package models

import "time"

// AchievementRecord tracks one user's progress toward one achievement
// definition. Lifecycle: absent -> in progress -> completed -> claimed.
// Claimed is terminal; progress never regresses and never exceeds Target.
type AchievementRecord struct {
	Base
	UserID        string     `gorm:"type:uuid;not null;uniqueIndex:idx_achievement_records_user_achievement" json:"user_id"`
	AchievementID string     `gorm:"size:64;not null;uniqueIndex:idx_achievement_records_user_achievement" json:"achievement_id"`
	Progress      int64      `gorm:"not null;default:0" json:"progress"`
	Target        int64      `gorm:"not null" json:"target"`
	Completed     bool       `gorm:"not null;default:false" json:"completed"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	Claimed       bool       `gorm:"not null;default:false" json:"claimed"`
	ClaimedAt     *time.Time `json:"claimed_at,omitempty"`
}
