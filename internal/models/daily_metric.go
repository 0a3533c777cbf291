package models

// DayFormat is the layout of the Day column: a UTC calendar day id.
const DayFormat = "2006-01-02"

// DailyMetric tracks a single user's observed step count for one UTC
// calendar day. Created lazily on the first sync of a day.
//
// Steps is a per-day high-water mark: it is never overwritten with a
// smaller value. InitialCreditApplied marks that crediting has begun for
// the day, which disambiguates a fresh day record (prior count 0) from a
// day whose first observed count has already been converted to coins.
type DailyMetric struct {
	Base
	UserID               string `gorm:"type:uuid;not null;uniqueIndex:idx_daily_metrics_user_day" json:"user_id"`
	Day                  string `gorm:"size:10;not null;uniqueIndex:idx_daily_metrics_user_day" json:"day"`
	Steps                int64  `gorm:"not null;default:0" json:"steps"`
	InitialCreditApplied bool   `gorm:"not null;default:false" json:"initial_credit_applied"`
	DisasterApplied      bool   `gorm:"not null;default:false" json:"disaster_applied"`
}
