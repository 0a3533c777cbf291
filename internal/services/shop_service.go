package services

import (
	"encoding/json"
	"errors"

	"gorm.io/gorm"

	"stepcity/internal/catalog"
	apperrors "stepcity/internal/errors"
	"stepcity/internal/logger"
	"stepcity/internal/models"
	"stepcity/internal/pagination"
)

// shopService validates purchases against the product catalog and executes
// them as one atomic unit: balance deduction, purchase log append, and
// inventory increment.
type shopService struct {
	db           *gorm.DB
	catalog      *catalog.Catalog
	ledger       LedgerServicer
	achievements AchievementServicer
}

// NewShopService creates a new ShopServicer.
func NewShopService(db *gorm.DB, cat *catalog.Catalog, ledger LedgerServicer, achievements AchievementServicer) ShopServicer {
	return &shopService{db: db, catalog: cat, ledger: ledger, achievements: achievements}
}

// PurchaseProduct executes a purchase. The catalog lookup happens outside
// the transaction; catalogs are immutable for the process lifetime, so the
// observed price cannot change before the commit.
func (s *shopService) PurchaseProduct(userID, productID string, quantity int64) (*PurchaseReceipt, error) {
	if quantity < 1 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "quantity must be at least 1")
	}

	product, ok := s.catalog.Product(productID)
	if !ok || !product.Active {
		return nil, apperrors.ErrProductNotFound
	}
	total := product.Price * quantity

	var receipt PurchaseReceipt
	err := inTx(s.db, func(tx *gorm.DB) error {
		balance, err := s.ledger.SpendInTx(tx, userID, total)
		if err != nil {
			return err
		}

		purchase := &models.Purchase{
			UserID:    userID,
			ProductID: productID,
			Quantity:  quantity,
			UnitPrice: product.Price,
			Total:     total,
			Status:    models.PurchaseStatusCompleted,
		}
		if err := tx.Create(purchase).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		if err := s.incrementInventoryInTx(tx, userID, productID, quantity); err != nil {
			return err
		}

		receipt = PurchaseReceipt{PurchaseID: purchase.ID, Balance: balance}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

// PurchaseSkin buys a skin: one spend, one purchase record, and the skin
// added to the owned set. The first skin purchase registers the one-shot
// achievement.
func (s *shopService) PurchaseSkin(userID, skinID string) (int64, error) {
	product, ok := s.catalog.Product(skinID)
	if !ok || !product.Active {
		return 0, apperrors.ErrProductNotFound
	}
	if product.Type != catalog.ProductTypeSkin {
		return 0, apperrors.WithMessage(apperrors.ErrInvalidInput, "product is not a skin")
	}

	var newBalance int64
	err := inTx(s.db, func(tx *gorm.DB) error {
		state, view, err := s.loadSkinState(tx, userID)
		if err != nil {
			return err
		}
		for _, owned := range view.Owned {
			if owned == skinID {
				return apperrors.WithMessage(apperrors.ErrInvalidInput, "skin already owned")
			}
		}

		balance, err := s.ledger.SpendInTx(tx, userID, product.Price)
		if err != nil {
			return err
		}

		purchase := &models.Purchase{
			UserID:    userID,
			ProductID: skinID,
			Quantity:  1,
			UnitPrice: product.Price,
			Total:     product.Price,
			Status:    models.PurchaseStatusCompleted,
		}
		if err := tx.Create(purchase).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		view.Owned = append(view.Owned, skinID)
		if err := s.storeSkinState(tx, state, view); err != nil {
			return err
		}

		newBalance = balance
		return nil
	})
	if err != nil {
		return 0, err
	}

	if _, err := s.achievements.MarkEvent(userID, catalog.EventFirstSkin); err != nil {
		logger.Get().Warnw("failed to register first-skin achievement",
			"user_id", userID,
			"error", err.Error(),
		)
	}
	return newBalance, nil
}

// EquipSkin sets the equipped skin for a target slot. Equipping mutates
// only the equipped map; it has no balance effect.
func (s *shopService) EquipSkin(userID, target, skinID string) (*SkinView, error) {
	if target == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "equip target is required")
	}

	var result SkinView
	err := inTx(s.db, func(tx *gorm.DB) error {
		state, view, err := s.loadSkinState(tx, userID)
		if err != nil {
			return err
		}

		owned := false
		for _, id := range view.Owned {
			if id == skinID {
				owned = true
				break
			}
		}
		if !owned {
			return apperrors.ErrSkinNotOwned
		}

		view.Equipped[target] = skinID
		if err := s.storeSkinState(tx, state, view); err != nil {
			return err
		}
		result = view
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// EquipDefault reverts a target slot to the default skin.
func (s *shopService) EquipDefault(userID, target string) (*SkinView, error) {
	if target == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "equip target is required")
	}

	var result SkinView
	err := inTx(s.db, func(tx *gorm.DB) error {
		state, view, err := s.loadSkinState(tx, userID)
		if err != nil {
			return err
		}
		delete(view.Equipped, target)
		if err := s.storeSkinState(tx, state, view); err != nil {
			return err
		}
		result = view
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// GetSkinState returns the decoded skin ownership and equipment state.
func (s *shopService) GetSkinState(userID string) (*SkinView, error) {
	_, view, err := s.loadSkinState(s.db, userID)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// GetInventory lists the user's cumulative purchase counters per product.
func (s *shopService) GetInventory(userID string) ([]models.InventoryEntry, error) {
	var entries []models.InventoryEntry
	if err := s.db.Where("user_id = ?", userID).Order("product_id").Find(&entries).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return entries, nil
}

// ListPurchases retrieves a paginated purchase history, newest first.
func (s *shopService) ListPurchases(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Purchase], error) {
	page.Defaults()

	base := s.db.Model(&models.Purchase{}).Where("user_id = ?", userID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var purchases []models.Purchase
	if err := base.Scopes(pagination.Paginate(page)).
		Order("created_at DESC").
		Find(&purchases).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(purchases, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// incrementInventoryInTx bumps the cumulative counter, creating the entry
// on first purchase. A creation race surfaces as a unique violation and
// reruns the whole purchase transaction.
func (s *shopService) incrementInventoryInTx(tx *gorm.DB, userID, productID string, quantity int64) error {
	res := tx.Model(&models.InventoryEntry{}).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Update("quantity", gorm.Expr("quantity + ?", quantity))
	if res.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	entry := &models.InventoryEntry{UserID: userID, ProductID: productID, Quantity: quantity}
	if err := tx.Create(entry).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// loadSkinState reads and decodes the user's skin row. An absent row, or
// a row with malformed JSON, decodes as empty state rather than an error.
func (s *shopService) loadSkinState(tx *gorm.DB, userID string) (*models.SkinState, SkinView, error) {
	view := SkinView{Owned: []string{}, Equipped: map[string]string{}}

	var state models.SkinState
	err := tx.Where("user_id = ?", userID).First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.SkinState{UserID: userID}, view, nil
	}
	if err != nil {
		return nil, view, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if len(state.Owned) > 0 {
		if err := json.Unmarshal(state.Owned, &view.Owned); err != nil {
			logger.Get().Warnw("malformed owned-skins document, treating as empty",
				"user_id", userID,
				"error", err.Error(),
			)
			view.Owned = []string{}
		}
	}
	if len(state.Equipped) > 0 {
		if err := json.Unmarshal(state.Equipped, &view.Equipped); err != nil {
			logger.Get().Warnw("malformed equipped-skins document, treating as empty",
				"user_id", userID,
				"error", err.Error(),
			)
			view.Equipped = map[string]string{}
		}
	}
	return &state, view, nil
}

// storeSkinState overwrites the whole skin row with the given view.
func (s *shopService) storeSkinState(tx *gorm.DB, state *models.SkinState, view SkinView) error {
	owned, err := json.Marshal(view.Owned)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	equipped, err := json.Marshal(view.Equipped)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	state.Owned = owned
	state.Equipped = equipped
	if state.ID == "" {
		if err := tx.Create(state).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	}

	res := tx.Model(&models.SkinState{}).
		Where("id = ?", state.ID).
		Updates(map[string]interface{}{"owned": owned, "equipped": equipped})
	if res.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	return nil
}
