package services

import (
	"testing"

	"stepcity/internal/catalog"
	"stepcity/internal/events"
	"stepcity/internal/models"
	"stepcity/internal/testutil"

	"gorm.io/gorm"
)

func newWorldFixture(t *testing.T) (*gorm.DB, WorldServicer, ShopServicer, LedgerServicer) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })

	cat := catalog.Default()
	ledger := NewLedgerService(db, nil)
	bus := events.NewBus()
	t.Cleanup(bus.Close)
	achievements := NewAchievementService(db, cat, ledger, bus)
	shop := NewShopService(db, cat, ledger, achievements)
	world := NewWorldService(db, shop, achievements)
	return db, world, shop, ledger
}

func TestWorldSaveAndLoad(t *testing.T) {
	t.Run("roundtrip", func(t *testing.T) {
		_, world, _, _ := newWorldFixture(t)
		user := "world-1"

		buildings := []models.Building{
			{Type: "house", Plot: "a1", X: 1, Y: 2, Level: 1},
			{Type: "bakery", Plot: "b2", X: 3, Y: 4, Level: 2},
		}
		decorations := []models.Decoration{
			{Type: "oak_tree", X: 5, Y: 6, Rotation: 90, Scale: 1},
		}

		testutil.AssertNoError(t, world.Save(user, buildings, decorations))

		view, err := world.Load(user)
		testutil.AssertNoError(t, err)
		if len(view.Buildings) != 2 {
			t.Fatalf("expected 2 buildings, got %d", len(view.Buildings))
		}
		if view.Buildings[1].Type != "bakery" {
			t.Errorf("expected second building bakery, got %s", view.Buildings[1].Type)
		}
		if len(view.Decorations) != 1 {
			t.Fatalf("expected 1 decoration, got %d", len(view.Decorations))
		}
		if view.SavedAt == nil {
			t.Error("expected a saved timestamp")
		}
	})

	t.Run("save_overwrites_wholesale", func(t *testing.T) {
		_, world, _, _ := newWorldFixture(t)
		user := "world-2"

		testutil.AssertNoError(t, world.Save(user, []models.Building{
			{Type: "house", Plot: "a1"},
			{Type: "house", Plot: "a2"},
		}, nil))
		testutil.AssertNoError(t, world.Save(user, []models.Building{
			{Type: "tower", Plot: "c3"},
		}, nil))

		view, err := world.Load(user)
		testutil.AssertNoError(t, err)
		if len(view.Buildings) != 1 || view.Buildings[0].Type != "tower" {
			t.Errorf("expected the second snapshot only, got %+v", view.Buildings)
		}
	})

	t.Run("fresh_user_loads_empty_world", func(t *testing.T) {
		_, world, _, _ := newWorldFixture(t)

		view, err := world.Load("world-fresh")
		testutil.AssertNoError(t, err)
		if len(view.Buildings) != 0 || len(view.Decorations) != 0 {
			t.Errorf("expected empty world, got %+v", view)
		}
		if view.SavedAt != nil {
			t.Error("expected no saved timestamp for a fresh user")
		}
	})

	t.Run("malformed_snapshot_loads_empty", func(t *testing.T) {
		db, world, _, _ := newWorldFixture(t)
		user := "world-corrupt"
		db.Create(&models.WorldState{
			UserID:    user,
			Buildings: []byte("][ not json"),
		})

		view, err := world.Load(user)
		testutil.AssertNoError(t, err)
		if len(view.Buildings) != 0 {
			t.Errorf("expected malformed snapshot to load empty, got %+v", view.Buildings)
		}
	})

	t.Run("load_includes_skin_state", func(t *testing.T) {
		_, world, shop, ledger := newWorldFixture(t)
		user := "world-skins"
		_, err := ledger.Credit(user, 10000)
		testutil.AssertNoError(t, err)
		_, err = shop.PurchaseSkin(user, "skin_sakura")
		testutil.AssertNoError(t, err)

		view, err := world.Load(user)
		testutil.AssertNoError(t, err)
		if len(view.Skins.Owned) != 1 || view.Skins.Owned[0] != "skin_sakura" {
			t.Errorf("expected owned skins in the world view, got %v", view.Skins.Owned)
		}
	})

	t.Run("first_build_marks_achievements", func(t *testing.T) {
		db, world, _, _ := newWorldFixture(t)
		user := "world-achievements"

		testutil.AssertNoError(t, world.Save(user,
			[]models.Building{{Type: "house", Plot: "a1"}},
			[]models.Decoration{{Type: "oak_tree"}},
		))

		for _, id := range []string{catalog.EventFirstBuilding, catalog.EventFirstDecoration} {
			var record models.AchievementRecord
			if err := db.Where("user_id = ? AND achievement_id = ?", user, id).First(&record).Error; err != nil {
				t.Errorf("expected %s record: %v", id, err)
				continue
			}
			if !record.Completed {
				t.Errorf("expected %s completed", id)
			}
		}
	})

	t.Run("empty_save_marks_nothing", func(t *testing.T) {
		db, world, _, _ := newWorldFixture(t)
		user := "world-empty-save"

		testutil.AssertNoError(t, world.Save(user, nil, nil))

		var count int64
		db.Model(&models.AchievementRecord{}).Where("user_id = ?", user).Count(&count)
		if count != 0 {
			t.Errorf("expected no achievement records for an empty save, got %d", count)
		}
	})
}
