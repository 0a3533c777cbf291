package services

import (
	"testing"

	"stepcity/internal/testutil"
)

func TestCreateUser(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		user, err := svc.CreateUser("Player@Example.com", "password123", "Player One")
		testutil.AssertNoError(t, err)

		if user.Email != "player@example.com" {
			t.Errorf("expected lowercased email, got %s", user.Email)
		}
		if user.DisplayName != "Player One" {
			t.Errorf("expected display name, got %s", user.DisplayName)
		}
		if user.Password == "password123" {
			t.Error("expected password to be hashed")
		}
		if !svc.VerifyPassword(user, "password123") {
			t.Error("expected password to verify")
		}
		if svc.VerifyPassword(user, "wrong") {
			t.Error("expected wrong password to fail")
		}
	})

	t.Run("duplicate_email", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		_, err := svc.CreateUser("dup@example.com", "password123", "")
		testutil.AssertNoError(t, err)
		_, err = svc.CreateUser("dup@example.com", "password123", "")
		testutil.AssertAppError(t, err, "DUPLICATE_EMAIL")
	})

	t.Run("missing_fields", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		_, err := svc.CreateUser("", "password123", "")
		testutil.AssertAppError(t, err, "INVALID_INPUT")
		_, err = svc.CreateUser("a@b.com", "", "")
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestGetUser(t *testing.T) {
	t.Run("by_email_and_id", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		created, err := svc.CreateUser("find@example.com", "password123", "")
		testutil.AssertNoError(t, err)

		byEmail, err := svc.GetUserByEmail("FIND@example.com")
		testutil.AssertNoError(t, err)
		if byEmail.ID != created.ID {
			t.Errorf("expected user %s, got %s", created.ID, byEmail.ID)
		}

		byID, err := svc.GetUserByID(created.ID)
		testutil.AssertNoError(t, err)
		if byID.Email != "find@example.com" {
			t.Errorf("expected email find@example.com, got %s", byID.Email)
		}
	})

	t.Run("not_found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		_, err := svc.GetUserByEmail("missing@example.com")
		testutil.AssertAppError(t, err, "USER_NOT_FOUND")
		_, err = svc.GetUserByID("00000000-0000-0000-0000-000000000000")
		testutil.AssertAppError(t, err, "USER_NOT_FOUND")
	})
}

func TestRefreshTokenHash(t *testing.T) {
	t.Run("store_and_read", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		user, err := svc.CreateUser("token@example.com", "password123", "")
		testutil.AssertNoError(t, err)

		testutil.AssertNoError(t, svc.StoreRefreshTokenHash(user.ID, "abc123"))

		hash, err := svc.GetRefreshTokenHash(user.ID)
		testutil.AssertNoError(t, err)
		if hash != "abc123" {
			t.Errorf("expected stored hash, got %q", hash)
		}
	})

	t.Run("unknown_user", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		err := svc.StoreRefreshTokenHash("00000000-0000-0000-0000-000000000000", "abc")
		testutil.AssertAppError(t, err, "USER_NOT_FOUND")
	})
}
