package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"stepcity/internal/catalog"
	apperrors "stepcity/internal/errors"
	"stepcity/internal/events"
	"stepcity/internal/logger"
	"stepcity/internal/models"
	"stepcity/internal/pagination"
)

// achievementService tracks progress toward the achievement catalog and
// gates reward payout. Unlock notifications are published on the event
// bus exactly once, on the transition into the completed state.
type achievementService struct {
	db      *gorm.DB
	catalog *catalog.Catalog
	ledger  LedgerServicer
	bus     *events.Bus
}

// NewAchievementService creates a new AchievementServicer.
func NewAchievementService(db *gorm.DB, cat *catalog.Catalog, ledger LedgerServicer, bus *events.Bus) AchievementServicer {
	return &achievementService{db: db, catalog: cat, ledger: ledger, bus: bus}
}

// UpdateProgress raises the user's progress toward an achievement to the
// observed value. Progress is a high-water mark clamped to the target; it
// never regresses. The returned bool reports whether this call completed
// the achievement. Non-positive observations are no-ops.
func (s *achievementService) UpdateProgress(userID, achievementID string, observed int64) (*models.AchievementRecord, bool, error) {
	def, ok := s.catalog.Achievement(achievementID)
	if !ok {
		return nil, false, apperrors.ErrUnknownAchievement
	}
	if observed <= 0 {
		return nil, false, nil
	}

	clamped := observed
	if clamped > def.Target {
		clamped = def.Target
	}

	var record models.AchievementRecord
	var unlocked bool
	err := inTx(s.db, func(tx *gorm.DB) error {
		unlocked = false

		var existing models.AchievementRecord
		err := tx.Where("user_id = ? AND achievement_id = ?", userID, achievementID).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			now := time.Now().UTC()
			existing = models.AchievementRecord{
				UserID:        userID,
				AchievementID: achievementID,
				Progress:      clamped,
				Target:        def.Target,
			}
			if clamped >= def.Target {
				existing.Completed = true
				existing.CompletedAt = &now
			}
			if err := tx.Create(&existing).Error; err != nil {
				// A unique violation means a concurrent creation won;
				// inTx reruns us against the existing row.
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			unlocked = existing.Completed
			record = existing
			return nil
		}
		if err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		newProgress := existing.Progress
		if clamped > newProgress {
			newProgress = clamped
		}
		newlyCompleted := !existing.Completed && newProgress >= existing.Target
		if newProgress == existing.Progress && !newlyCompleted {
			record = existing
			return nil
		}

		now := time.Now().UTC()
		updates := map[string]interface{}{"progress": newProgress}
		if newlyCompleted {
			updates["completed"] = true
			updates["completed_at"] = now
		}

		// Guard on the prior progress and completion so a concurrent
		// update forces a rerun instead of a double unlock.
		res := tx.Model(&models.AchievementRecord{}).
			Where("id = ? AND progress = ? AND completed = ?", existing.ID, existing.Progress, existing.Completed).
			Updates(updates)
		if res.Error != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
		}
		if res.RowsAffected == 0 {
			return errWriteConflict
		}

		existing.Progress = newProgress
		if newlyCompleted {
			existing.Completed = true
			existing.CompletedAt = &now
		}
		unlocked = newlyCompleted
		record = existing
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if unlocked {
		s.publishUnlock(userID, def, record.CompletedAt)
	}
	return &record, unlocked, nil
}

// MarkEvent registers a one-shot (target=1) achievement. If a record
// already exists in any state the call is an idempotent no-op; otherwise
// the record is created already completed and the unlock is published.
// The returned bool reports whether this call created the record.
func (s *achievementService) MarkEvent(userID, achievementID string) (bool, error) {
	def, ok := s.catalog.Achievement(achievementID)
	if !ok {
		return false, apperrors.ErrUnknownAchievement
	}
	if def.Kind != catalog.KindEvent {
		return false, apperrors.WithMessage(apperrors.ErrInvalidInput, "achievement is not a one-shot event")
	}

	var created bool
	var completedAt time.Time
	err := inTx(s.db, func(tx *gorm.DB) error {
		created = false

		var existing models.AchievementRecord
		err := tx.Where("user_id = ? AND achievement_id = ?", userID, achievementID).First(&existing).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		now := time.Now().UTC()
		record := models.AchievementRecord{
			UserID:        userID,
			AchievementID: achievementID,
			Progress:      1,
			Target:        1,
			Completed:     true,
			CompletedAt:   &now,
		}
		if err := tx.Create(&record).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		created = true
		completedAt = now
		return nil
	})
	if err != nil {
		return false, err
	}

	if created {
		s.publishUnlock(userID, def, &completedAt)
	}
	return created, nil
}

// Claim pays out a completed, unclaimed achievement. The claim-flag write
// and the balance credit share one transaction, so a partial payout is
// never observable.
func (s *achievementService) Claim(userID, achievementID string) (int64, error) {
	def, ok := s.catalog.Achievement(achievementID)
	if !ok {
		return 0, apperrors.ErrUnknownAchievement
	}

	var newBalance int64
	err := inTx(s.db, func(tx *gorm.DB) error {
		var record models.AchievementRecord
		err := tx.Where("user_id = ? AND achievement_id = ?", userID, achievementID).First(&record).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrAchievementNotCompleted
		}
		if err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if record.Claimed {
			return apperrors.ErrAlreadyClaimed
		}
		if !record.Completed {
			return apperrors.ErrAchievementNotCompleted
		}

		// The claimed=false guard makes concurrent double claims lose
		// here rather than double-credit.
		res := tx.Model(&models.AchievementRecord{}).
			Where("id = ? AND claimed = ?", record.ID, false).
			Updates(map[string]interface{}{
				"claimed":    true,
				"claimed_at": time.Now().UTC(),
			})
		if res.Error != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrAlreadyClaimed
		}

		balance, err := s.ledger.CreditInTx(tx, userID, def.Reward)
		if err != nil {
			return err
		}
		newBalance = balance
		return nil
	})
	if err != nil {
		return 0, err
	}
	return newBalance, nil
}

// ListForUser merges the achievement catalog with the user's records.
// Records that no longer match a catalog definition, or that fail basic
// sanity checks, are logged and skipped; a bad row never aborts the list.
func (s *achievementService) ListForUser(userID string, page pagination.PageRequest) (*pagination.PageResponse[AchievementView], error) {
	page.Defaults()

	var records []models.AchievementRecord
	if err := s.db.Where("user_id = ?", userID).Find(&records).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	byID := make(map[string]models.AchievementRecord, len(records))
	for _, r := range records {
		if _, known := s.catalog.Achievement(r.AchievementID); !known {
			logger.Get().Warnw("skipping achievement record with unknown definition",
				"user_id", userID,
				"achievement_id", r.AchievementID,
			)
			continue
		}
		if r.Progress < 0 || r.Target <= 0 {
			logger.Get().Warnw("skipping malformed achievement record",
				"user_id", userID,
				"achievement_id", r.AchievementID,
				"progress", r.Progress,
				"target", r.Target,
			)
			continue
		}
		byID[r.AchievementID] = r
	}

	defs := s.catalog.Achievements()
	views := make([]AchievementView, 0, len(defs))
	for _, def := range defs {
		view := AchievementView{
			ID:     def.ID,
			Name:   def.Name,
			Kind:   def.Kind,
			Target: def.Target,
			Reward: def.Reward,
		}
		if r, ok := byID[def.ID]; ok {
			view.Progress = r.Progress
			view.Completed = r.Completed
			view.CompletedAt = r.CompletedAt
			view.Claimed = r.Claimed
			view.ClaimedAt = r.ClaimedAt
		}
		views = append(views, view)
	}

	total := int64(len(views))
	start := page.Offset()
	if start > len(views) {
		start = len(views)
	}
	end := start + page.PageSize
	if end > len(views) {
		end = len(views)
	}

	result := pagination.NewPageResponse(views[start:end], page.Page, page.PageSize, total)
	return &result, nil
}

func (s *achievementService) publishUnlock(userID string, def catalog.AchievementDef, completedAt *time.Time) {
	at := time.Now().UTC()
	if completedAt != nil {
		at = *completedAt
	}
	s.bus.Publish(events.Unlock{
		UserID:        userID,
		AchievementID: def.ID,
		Reward:        def.Reward,
		CompletedAt:   at,
	})
}
