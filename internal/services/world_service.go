package services

import (
	"encoding/json"
	"errors"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"stepcity/internal/catalog"
	apperrors "stepcity/internal/errors"
	"stepcity/internal/logger"
	"stepcity/internal/models"
)

// worldService persists per-user city snapshots. Saves are wholesale
// overwrites of the layout document; the server never merges individual
// buildings.
type worldService struct {
	db           *gorm.DB
	shop         ShopServicer
	achievements AchievementServicer
}

// NewWorldService creates a new WorldServicer.
func NewWorldService(db *gorm.DB, shop ShopServicer, achievements AchievementServicer) WorldServicer {
	return &worldService{db: db, shop: shop, achievements: achievements}
}

// Save overwrites the user's world snapshot. The first building and the
// first decoration ever saved each register a one-shot achievement.
func (s *worldService) Save(userID string, buildings []models.Building, decorations []models.Decoration) error {
	if buildings == nil {
		buildings = []models.Building{}
	}
	if decorations == nil {
		decorations = []models.Decoration{}
	}

	buildingsDoc, err := json.Marshal(buildings)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	decorationsDoc, err := json.Marshal(decorations)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	err = inTx(s.db, func(tx *gorm.DB) error {
		var state models.WorldState
		err := tx.Where("user_id = ?", userID).First(&state).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			state = models.WorldState{
				UserID:      userID,
				Buildings:   buildingsDoc,
				Decorations: decorationsDoc,
			}
			if err := tx.Create(&state).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			return nil
		}
		if err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		res := tx.Model(&models.WorldState{}).
			Where("id = ?", state.ID).
			Updates(map[string]interface{}{
				"buildings":   buildingsDoc,
				"decorations": decorationsDoc,
			})
		if res.Error != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if len(buildings) > 0 {
		s.markEvent(userID, catalog.EventFirstBuilding)
	}
	if len(decorations) > 0 {
		s.markEvent(userID, catalog.EventFirstDecoration)
	}
	return nil
}

// Load fetches the world snapshot and the skin state concurrently. An
// absent snapshot, or one whose layout document fails to decode, loads as
// an empty world so a fresh or corrupted account can always enter the game.
func (s *worldService) Load(userID string) (*WorldView, error) {
	view := &WorldView{
		Buildings:   []models.Building{},
		Decorations: []models.Decoration{},
		Skins:       SkinView{Owned: []string{}, Equipped: map[string]string{}},
	}

	var g errgroup.Group
	g.Go(func() error {
		var state models.WorldState
		err := s.db.Where("user_id = ?", userID).First(&state).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		if len(state.Buildings) > 0 {
			if err := json.Unmarshal(state.Buildings, &view.Buildings); err != nil {
				logger.Get().Warnw("malformed buildings document, loading empty world",
					"user_id", userID,
					"error", err.Error(),
				)
				view.Buildings = []models.Building{}
			}
		}
		if len(state.Decorations) > 0 {
			if err := json.Unmarshal(state.Decorations, &view.Decorations); err != nil {
				logger.Get().Warnw("malformed decorations document, loading without decorations",
					"user_id", userID,
					"error", err.Error(),
				)
				view.Decorations = []models.Decoration{}
			}
		}
		savedAt := state.UpdatedAt
		view.SavedAt = &savedAt
		return nil
	})
	g.Go(func() error {
		skins, err := s.shop.GetSkinState(userID)
		if err != nil {
			return err
		}
		view.Skins = *skins
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return view, nil
}

func (s *worldService) markEvent(userID, achievementID string) {
	if _, err := s.achievements.MarkEvent(userID, achievementID); err != nil {
		logger.Get().Warnw("failed to register build achievement",
			"user_id", userID,
			"achievement_id", achievementID,
			"error", err.Error(),
		)
	}
}
