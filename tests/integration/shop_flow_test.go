package integration

import (
	"net/http"
	"testing"
)

func TestShopFlow_PurchaseProduct(t *testing.T) {
	app := setupApp(t)
	token, _, _ := app.registerUser(t, "shop@test.com", "password123")

	// Fund the wallet with a day of steps.
	app.request("POST", "/api/v1/steps/sync", `{"day":"2025-03-01","steps":4000}`, token)

	// Buy two oak trees at 500 each.
	rec := app.request("POST", "/api/v1/shop/purchase",
		`{"product_id":"decor_oak_tree","quantity":2}`, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("purchase failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	if result["balance"].(float64) != 3000 {
		t.Errorf("expected balance 3000 after purchase, got %v", result["balance"])
	}
	if result["purchase_id"] == "" {
		t.Error("expected a purchase ID")
	}

	// The inventory counter accumulates.
	rec = app.request("GET", "/api/v1/shop/inventory", "", token)
	inventory := parseJSON(t, rec)["inventory"].([]interface{})
	if len(inventory) != 1 {
		t.Fatalf("expected 1 inventory entry, got %d", len(inventory))
	}
	entry := inventory[0].(map[string]interface{})
	if entry["product_id"] != "decor_oak_tree" || entry["quantity"].(float64) != 2 {
		t.Errorf("unexpected inventory entry: %v", entry)
	}

	// The purchase history records the order.
	rec = app.request("GET", "/api/v1/shop/purchases", "", token)
	history := parseJSON(t, rec)["data"].([]interface{})
	if len(history) != 1 {
		t.Fatalf("expected 1 purchase, got %d", len(history))
	}

	// Overspending is rejected and changes nothing.
	rec = app.request("POST", "/api/v1/shop/purchase",
		`{"product_id":"decor_fountain","quantity":2}`, token)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for insufficient funds, got %d: %s", rec.Code, rec.Body.String())
	}
	errObj := parseJSON(t, rec)["error"].(map[string]interface{})
	if errObj["code"] != "INSUFFICIENT_FUNDS" {
		t.Errorf("expected INSUFFICIENT_FUNDS, got %v", errObj["code"])
	}

	rec = app.request("GET", "/api/v1/wallet", "", token)
	if balance := parseJSON(t, rec)["balance"].(float64); balance != 3000 {
		t.Errorf("expected balance untouched at 3000, got %v", balance)
	}
}

func TestShopFlow_SkinLifecycle(t *testing.T) {
	app := setupApp(t)
	token, _, _ := app.registerUser(t, "skins@test.com", "password123")

	// Fund the wallet across two days.
	app.request("POST", "/api/v1/steps/sync", `{"day":"2025-03-01","steps":8000}`, token)
	app.request("POST", "/api/v1/steps/sync", `{"day":"2025-03-02","steps":4000}`, token)

	// Buy a skin at 10000.
	rec := app.request("POST", "/api/v1/skins/purchase", `{"skin_id":"skin_sakura"}`, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("skin purchase failed: %d %s", rec.Code, rec.Body.String())
	}
	if balance := parseJSON(t, rec)["balance"].(float64); balance != 2000 {
		t.Errorf("expected balance 2000 after skin purchase, got %v", balance)
	}

	// Buying it again is rejected without a second charge.
	rec = app.request("POST", "/api/v1/skins/purchase", `{"skin_id":"skin_sakura"}`, token)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a repeat purchase, got %d", rec.Code)
	}

	// Equip the owned skin on the map slot.
	rec = app.request("POST", "/api/v1/skins/equip",
		`{"target":"map","skin_id":"skin_sakura"}`, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("equip failed: %d %s", rec.Code, rec.Body.String())
	}
	equipped := parseJSON(t, rec)["equipped"].(map[string]interface{})
	if equipped["map"] != "skin_sakura" {
		t.Errorf("expected map slot equipped, got %v", equipped)
	}

	// Equipping an unowned skin is rejected.
	rec = app.request("POST", "/api/v1/skins/equip",
		`{"target":"map","skin_id":"skin_neon"}`, token)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an unowned skin, got %d", rec.Code)
	}

	// Reverting to the default clears the slot but keeps ownership.
	rec = app.request("POST", "/api/v1/skins/equip", `{"target":"map","skin_id":""}`, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("revert failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	if _, ok := result["equipped"].(map[string]interface{})["map"]; ok {
		t.Error("expected the map slot cleared")
	}
	owned := result["owned"].([]interface{})
	if len(owned) != 1 || owned[0] != "skin_sakura" {
		t.Errorf("expected ownership to survive, got %v", owned)
	}

	// The first skin purchase marked the one-shot achievement.
	rec = app.request("GET", "/api/v1/achievements?page_size=100", "", token)
	for _, raw := range parseJSON(t, rec)["data"].([]interface{}) {
		view := raw.(map[string]interface{})
		if view["id"] == "first_skin" && !view["completed"].(bool) {
			t.Error("expected first_skin completed after the purchase")
		}
	}
}

func TestShopFlow_UnknownProduct(t *testing.T) {
	app := setupApp(t)
	token, _, _ := app.registerUser(t, "unknown@test.com", "password123")

	rec := app.request("POST", "/api/v1/shop/purchase", `{"product_id":"decor_bogus"}`, token)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for an unknown product, got %d: %s", rec.Code, rec.Body.String())
	}
	errObj := parseJSON(t, rec)["error"].(map[string]interface{})
	if errObj["code"] != "PRODUCT_NOT_FOUND" {
		t.Errorf("expected PRODUCT_NOT_FOUND, got %v", errObj["code"])
	}
}
