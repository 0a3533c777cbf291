package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"stepcity/internal/cache"
	apperrors "stepcity/internal/errors"
	"stepcity/internal/logger"
	"stepcity/internal/models"
)

// ledgerService serializes all balance and per-day-metric mutations.
//
// Instead of row locks it uses guarded UPDATE statements (the WHERE clause
// carries the expected prior state) inside retried transactions, so the
// same code is race-safe on both Postgres and the SQLite test database.
// A guarded update that matches zero rows means a concurrent writer got
// there first; the transaction is rolled back and rerun by inTx.
type ledgerService struct {
	db       *gorm.DB
	balances *cache.BalanceCache
}

// NewLedgerService creates a new LedgerServicer. The balance cache may be
// nil, which disables read-side caching.
func NewLedgerService(db *gorm.DB, balances *cache.BalanceCache) LedgerServicer {
	return &ledgerService{db: db, balances: balances}
}

// EnsureAccount returns the user's ledger account, creating it if absent.
func (s *ledgerService) EnsureAccount(userID string) (*models.Account, error) {
	if userID == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "user ID is required")
	}

	var account models.Account
	err := s.db.Where("user_id = ?", userID).First(&account).Error
	if err == nil {
		return &account, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	account = models.Account{UserID: userID}
	if err := s.db.Create(&account).Error; err != nil {
		if isUniqueViolation(err) {
			// Lost the creation race; the winner's row is the account.
			if err := s.db.Where("user_id = ?", userID).First(&account).Error; err != nil {
				return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			return &account, nil
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &account, nil
}

// GetAccount retrieves the user's ledger account.
func (s *ledgerService) GetAccount(userID string) (*models.Account, error) {
	var account models.Account
	if err := s.db.Where("user_id = ?", userID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &account, nil
}

// GetBalance returns the current balance. The database is the source of
// truth; on a transient read failure the last cached balance is returned
// instead of an error, so background refreshes degrade gracefully.
func (s *ledgerService) GetBalance(userID string) (int64, error) {
	account, err := s.GetAccount(userID)
	if err == nil {
		s.balances.Set(context.Background(), userID, account.Balance)
		return account.Balance, nil
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Code == apperrors.ErrAccountNotFound.Code {
		return 0, err
	}
	if cached, ok := s.balances.Get(context.Background(), userID); ok {
		logger.Get().Warnw("balance read failed, serving cached value",
			"user_id", userID,
			"error", err.Error(),
		)
		return cached, nil
	}
	return 0, err
}

// Credit atomically increases the balance by amount.
func (s *ledgerService) Credit(userID string, amount int64) (int64, error) {
	var newBalance int64
	err := inTx(s.db, func(tx *gorm.DB) error {
		var txErr error
		newBalance, txErr = s.CreditInTx(tx, userID, amount)
		return txErr
	})
	if err != nil {
		return 0, err
	}
	s.balances.Set(context.Background(), userID, newBalance)
	return newBalance, nil
}

// CreditInTx applies a credit inside a caller-owned transaction.
func (s *ledgerService) CreditInTx(tx *gorm.DB, userID string, amount int64) (int64, error) {
	if amount < 0 {
		return 0, apperrors.WithMessage(apperrors.ErrInvalidInput, "credit amount must not be negative")
	}
	if err := s.ensureAccountInTx(tx, userID); err != nil {
		return 0, err
	}

	res := tx.Model(&models.Account{}).
		Where("user_id = ?", userID).
		Update("balance", gorm.Expr("balance + ?", amount))
	if res.Error != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, errWriteConflict
	}
	return s.readBalance(tx, userID)
}

// Spend atomically decreases the balance by amount, failing with
// InsufficientFunds (and no state change) when the balance is too low.
func (s *ledgerService) Spend(userID string, amount int64) (int64, error) {
	var newBalance int64
	err := inTx(s.db, func(tx *gorm.DB) error {
		var txErr error
		newBalance, txErr = s.SpendInTx(tx, userID, amount)
		return txErr
	})
	if err != nil {
		return 0, err
	}
	s.balances.Set(context.Background(), userID, newBalance)
	return newBalance, nil
}

// SpendInTx applies a spend inside a caller-owned transaction. The balance
// guard is part of the UPDATE itself, so an overspend can never slip in
// between a read and a write.
func (s *ledgerService) SpendInTx(tx *gorm.DB, userID string, amount int64) (int64, error) {
	if amount < 0 {
		return 0, apperrors.WithMessage(apperrors.ErrInvalidInput, "spend amount must not be negative")
	}
	if err := s.ensureAccountInTx(tx, userID); err != nil {
		return 0, err
	}

	res := tx.Model(&models.Account{}).
		Where("user_id = ? AND balance >= ?", userID, amount).
		Update("balance", gorm.Expr("balance - ?", amount))
	if res.Error != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, apperrors.ErrInsufficientFunds
	}
	return s.readBalance(tx, userID)
}

// Refund reverses a prior spend. It is credit-only: it always increases
// the balance and never inspects purchase history.
func (s *ledgerService) Refund(userID string, amount int64) (int64, error) {
	return s.Credit(userID, amount)
}

// UpsertDailySteps is the central step-to-currency primitive. In one
// transaction it raises the day's stored step count to the new observed
// value and credits the uncredited difference to both the balance and the
// lifetime step total.
//
// The initial-credit flag disambiguates the first sync of a day: a prior
// count of zero on a fresh row is indistinguishable from "already credited
// zero", so the first non-zero observation is credited in full and the
// flag is set. Re-running the sync with the same count credits nothing.
func (s *ledgerService) UpsertDailySteps(userID, day string, newCount int64) (*StepCredit, error) {
	if newCount < 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "step count must not be negative")
	}
	if err := validateDay(day); err != nil {
		return nil, err
	}

	result := &StepCredit{Day: day}
	err := inTx(s.db, func(tx *gorm.DB) error {
		if err := s.ensureAccountInTx(tx, userID); err != nil {
			return err
		}
		metric, err := s.ensureMetricInTx(tx, userID, day)
		if err != nil {
			return err
		}

		prior := metric.Steps
		priorFlag := metric.InitialCreditApplied

		// The stored count is a per-day high-water mark; an observed
		// regression (device resync) is recorded as no change and
		// credits nothing.
		stored := prior
		if newCount > stored {
			stored = newCount
		}

		baseDelta := newCount - prior
		if baseDelta < 0 {
			baseDelta = 0
		}

		delta := baseDelta
		flag := priorFlag
		if baseDelta == 0 && newCount > 0 && !priorFlag {
			// First credit for a day whose count was recorded before
			// crediting began: the whole count is still owed.
			delta = newCount
			flag = true
		} else if baseDelta > 0 && !priorFlag {
			flag = true
		}

		res := tx.Model(&models.DailyMetric{}).
			Where("id = ? AND steps = ? AND initial_credit_applied = ?", metric.ID, prior, priorFlag).
			Updates(map[string]interface{}{
				"steps":                  stored,
				"initial_credit_applied": flag,
			})
		if res.Error != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
		}
		if res.RowsAffected == 0 {
			return errWriteConflict
		}

		if delta > 0 {
			res = tx.Model(&models.Account{}).
				Where("user_id = ?", userID).
				Updates(map[string]interface{}{
					"balance":        gorm.Expr("balance + ?", delta),
					"lifetime_steps": gorm.Expr("lifetime_steps + ?", delta),
				})
			if res.Error != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
			}
			if res.RowsAffected == 0 {
				return errWriteConflict
			}
		}

		var account models.Account
		if err := tx.Where("user_id = ?", userID).First(&account).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		result.Delta = delta
		result.Steps = stored
		result.Balance = account.Balance
		result.LifetimeSteps = account.LifetimeSteps
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.balances.Set(context.Background(), userID, result.Balance)
	return result, nil
}

// ApplyDailyDisaster marks the day's disaster flag, reporting whether this
// call was the one that set it. At most one caller per day observes true.
func (s *ledgerService) ApplyDailyDisaster(userID, day string) (bool, error) {
	if err := validateDay(day); err != nil {
		return false, err
	}

	var applied bool
	err := inTx(s.db, func(tx *gorm.DB) error {
		if _, err := s.ensureMetricInTx(tx, userID, day); err != nil {
			return err
		}
		res := tx.Model(&models.DailyMetric{}).
			Where("user_id = ? AND day = ? AND disaster_applied = ?", userID, day, false).
			Update("disaster_applied", true)
		if res.Error != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
		}
		applied = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

// GetDailyMetric returns the day record. An absent day reads as a zeroed
// metric, not an error.
func (s *ledgerService) GetDailyMetric(userID, day string) (*models.DailyMetric, error) {
	if err := validateDay(day); err != nil {
		return nil, err
	}

	var metric models.DailyMetric
	err := s.db.Where("user_id = ? AND day = ?", userID, day).First(&metric).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.DailyMetric{UserID: userID, Day: day}, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &metric, nil
}

func (s *ledgerService) ensureAccountInTx(tx *gorm.DB, userID string) error {
	if userID == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "user ID is required")
	}

	var count int64
	if err := tx.Model(&models.Account{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return nil
	}
	if err := tx.Create(&models.Account{UserID: userID}).Error; err != nil {
		// A unique violation here is a lost creation race; inTx reruns us.
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

func (s *ledgerService) ensureMetricInTx(tx *gorm.DB, userID, day string) (*models.DailyMetric, error) {
	var metric models.DailyMetric
	err := tx.Where("user_id = ? AND day = ?", userID, day).First(&metric).Error
	if err == nil {
		return &metric, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	metric = models.DailyMetric{UserID: userID, Day: day}
	if err := tx.Create(&metric).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &metric, nil
}

func (s *ledgerService) readBalance(tx *gorm.DB, userID string) (int64, error) {
	var account models.Account
	if err := tx.Where("user_id = ?", userID).First(&account).Error; err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return account.Balance, nil
}

func validateDay(day string) error {
	if _, err := time.Parse(models.DayFormat, day); err != nil {
		return apperrors.ErrInvalidDay
	}
	return nil
}
