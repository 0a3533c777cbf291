package services

import (
	"time"

	"stepcity/internal/catalog"
	"stepcity/internal/logger"
	"stepcity/internal/models"
)

// syncService is the step-to-currency pipeline: it applies the observed
// daily count to the ledger, then fans the new totals out to every step
// achievement.
type syncService struct {
	ledger       LedgerServicer
	achievements AchievementServicer
	catalog      *catalog.Catalog
}

// NewSyncService creates a new SyncServicer.
func NewSyncService(ledger LedgerServicer, achievements AchievementServicer, cat *catalog.Catalog) SyncServicer {
	return &syncService{ledger: ledger, achievements: achievements, catalog: cat}
}

// SyncSteps reports a cumulative step count for a day. An empty day means
// today (UTC). The ledger update is the source of truth; achievement
// fan-out is best-effort per achievement and a failure there never rolls
// back the credit.
func (s *syncService) SyncSteps(userID, day string, steps int64) (*SyncResult, error) {
	if day == "" {
		day = time.Now().UTC().Format(models.DayFormat)
	}

	credit, err := s.ledger.UpsertDailySteps(userID, day, steps)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{StepCredit: *credit, Unlocked: []string{}}
	for _, def := range s.catalog.Achievements() {
		var observed int64
		switch def.Kind {
		case catalog.KindDaily:
			observed = credit.Steps
		case catalog.KindLifetime:
			observed = credit.LifetimeSteps
		default:
			continue
		}

		_, unlocked, err := s.achievements.UpdateProgress(userID, def.ID, observed)
		if err != nil {
			logger.Get().Warnw("achievement fan-out failed",
				"user_id", userID,
				"achievement_id", def.ID,
				"error", err.Error(),
			)
			continue
		}
		if unlocked {
			result.Unlocked = append(result.Unlocked, def.ID)
		}
	}
	return result, nil
}
