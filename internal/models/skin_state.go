package models

import "gorm.io/datatypes"

// SkinState holds a user's owned skin ids and the equipped mapping from
// target (building type, map theme, ...) to skin id. Unlike currency
// state it is overwritten wholesale rather than mutated transactionally,
// since equipping is not safety-critical.
type SkinState struct {
	Base
	UserID   string         `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	Owned    datatypes.JSON `json:"owned"`
	Equipped datatypes.JSON `json:"equipped"`
}
