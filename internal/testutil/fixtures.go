package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"stepcity/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hash),
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestAccount creates a wallet with zero balance.
func CreateTestAccount(t *testing.T, db *gorm.DB, userID string) *models.Account {
	t.Helper()
	return CreateTestAccountWithBalance(t, db, userID, 0)
}

// CreateTestAccountWithBalance creates a wallet with the given coin balance.
func CreateTestAccountWithBalance(t *testing.T, db *gorm.DB, userID string, balance int64) *models.Account {
	t.Helper()

	account := &models.Account{
		UserID:  userID,
		Balance: balance,
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test account: %v", err)
	}
	return account
}

// CreateTestDailyMetric creates a daily metric with the given step count.
func CreateTestDailyMetric(t *testing.T, db *gorm.DB, userID, day string, steps int64) *models.DailyMetric {
	t.Helper()

	metric := &models.DailyMetric{
		UserID:               userID,
		Day:                  day,
		Steps:                steps,
		InitialCreditApplied: steps > 0,
	}
	if err := db.Create(metric).Error; err != nil {
		t.Fatalf("failed to create test daily metric: %v", err)
	}
	return metric
}

// CreateTestAchievementRecord creates an achievement record in the given state.
func CreateTestAchievementRecord(t *testing.T, db *gorm.DB, userID, achievementID string, progress, target int64, completed bool) *models.AchievementRecord {
	t.Helper()

	record := &models.AchievementRecord{
		UserID:        userID,
		AchievementID: achievementID,
		Progress:      progress,
		Target:        target,
		Completed:     completed,
	}
	if completed {
		now := time.Now().UTC()
		record.CompletedAt = &now
	}
	if err := db.Create(record).Error; err != nil {
		t.Fatalf("failed to create test achievement record: %v", err)
	}
	return record
}

// CreateTestPurchase creates a completed purchase record.
func CreateTestPurchase(t *testing.T, db *gorm.DB, userID, productID string, quantity, unitPrice int64) *models.Purchase {
	t.Helper()

	purchase := &models.Purchase{
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		Total:     quantity * unitPrice,
		Status:    models.PurchaseStatusCompleted,
	}
	if err := db.Create(purchase).Error; err != nil {
		t.Fatalf("failed to create test purchase: %v", err)
	}
	return purchase
}
