package models

import "gorm.io/datatypes"

// Building is one placed building in a player's city layout.
type Building struct {
	Type  string  `json:"type"`
	Plot  string  `json:"plot"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Level int     `json:"level,omitempty"`
}

// Decoration is one placed decoration in a player's city layout.
type Decoration struct {
	Type     string  `json:"type"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Rotation float64 `json:"rotation"`
	Scale    float64 `json:"scale"`
}

// WorldState is a per-user snapshot of the build layout. Both arrays are
// overwritten wholesale on every save; there is no item-level merging.
type WorldState struct {
	Base
	UserID      string         `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	Buildings   datatypes.JSON `json:"buildings"`
	Decorations datatypes.JSON `json:"decorations"`
}
