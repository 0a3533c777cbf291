package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stepcity/internal/catalog"
	apperrors "stepcity/internal/errors"
	"stepcity/internal/pagination"
	"stepcity/internal/services"
)

// ShopHandler handles product listing, purchases, inventory, and skins.
type ShopHandler struct {
	shopService  services.ShopServicer
	catalog      *catalog.Catalog
	auditService services.AuditServicer
}

// NewShopHandler creates a new ShopHandler.
func NewShopHandler(shopService services.ShopServicer, cat *catalog.Catalog, auditService services.AuditServicer) *ShopHandler {
	return &ShopHandler{shopService: shopService, catalog: cat, auditService: auditService}
}

// PurchaseRequest represents a product purchase payload.
type PurchaseRequest struct {
	ProductID string `json:"product_id" binding:"required,max=100"`
	Quantity  int64  `json:"quantity" binding:"omitempty,min=1"`
}

// PurchaseSkinRequest represents a skin purchase payload.
type PurchaseSkinRequest struct {
	SkinID string `json:"skin_id" binding:"required,max=100"`
}

// EquipSkinRequest represents a skin equip payload. An empty skin_id
// reverts the target slot to the default skin.
type EquipSkinRequest struct {
	Target string `json:"target" binding:"required,skin_target"`
	SkinID string `json:"skin_id" binding:"max=100"`
}

// ListProducts lists the active product catalog
// @Summary     List products
// @Description Get the active product catalog
// @Tags        shop
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Success     200 {array} catalog.Product "Active products"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /shop/products [get]
func (h *ShopHandler) ListProducts(c *gin.Context) {
	products := h.catalog.Products()
	active := make([]catalog.Product, 0, len(products))
	for _, p := range products {
		if p.Active {
			active = append(active, p)
		}
	}
	c.JSON(http.StatusOK, gin.H{"products": active})
}

// Purchase buys a product
// @Summary     Purchase product
// @Description Buy a quantity of one product; the spend, the purchase record, and the inventory increment commit atomically
// @Tags        shop
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body PurchaseRequest true "Product and quantity (quantity defaults to 1)"
// @Success     200 {object} services.PurchaseReceipt "Purchase receipt"
// @Failure     400 {object} ErrorResponse "Invalid input or insufficient funds"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Product not found"
// @Failure     409 {object} ErrorResponse "Conflict retries exhausted"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /shop/purchase [post]
func (h *ShopHandler) Purchase(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	receipt, err := h.shopService.PurchaseProduct(userID, req.ProductID, req.Quantity)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "PURCHASE", "purchase", receipt.PurchaseID, c.ClientIP(),
		map[string]interface{}{"product_id": req.ProductID, "quantity": req.Quantity})

	c.JSON(http.StatusOK, receipt)
}

// GetInventory lists the player's cumulative purchase counters
// @Summary     Get inventory
// @Description Get the player's cumulative per-product purchase counters
// @Tags        shop
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Success     200 {array} models.InventoryEntry "Inventory entries"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /shop/inventory [get]
func (h *ShopHandler) GetInventory(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	entries, err := h.shopService.GetInventory(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"inventory": entries})
}

// ListPurchases lists the player's purchase history
// @Summary     List purchases
// @Description Get a paginated purchase history, newest first
// @Tags        shop
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int false "Page number (default 1)"
// @Param       page_size query int false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Purchase] "Paginated purchases"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /shop/purchases [get]
func (h *ShopHandler) ListPurchases(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.shopService.ListPurchases(userID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// PurchaseSkin buys a skin
// @Summary     Purchase skin
// @Description Buy a skin; the spend, the purchase record, and the ownership grant commit atomically
// @Tags        skins
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body PurchaseSkinRequest true "Skin to buy"
// @Success     200 {object} ClaimResponse "Balance after purchase"
// @Failure     400 {object} ErrorResponse "Invalid input, already owned, or insufficient funds"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Skin not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /skins/purchase [post]
func (h *ShopHandler) PurchaseSkin(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req PurchaseSkinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	balance, err := h.shopService.PurchaseSkin(userID, req.SkinID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "PURCHASE_SKIN", "skin", req.SkinID, c.ClientIP(),
		map[string]interface{}{"balance": balance})

	c.JSON(http.StatusOK, gin.H{"balance": balance})
}

// EquipSkin equips an owned skin, or the default
// @Summary     Equip skin
// @Description Equip an owned skin on a target slot; an empty skin_id reverts the slot to the default skin
// @Tags        skins
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body EquipSkinRequest true "Target slot and skin"
// @Success     200 {object} services.SkinView "Skin state after the change"
// @Failure     400 {object} ErrorResponse "Invalid input or skin not owned"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /skins/equip [post]
func (h *ShopHandler) EquipSkin(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req EquipSkinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	var view *services.SkinView
	if req.SkinID == "" {
		view, err = h.shopService.EquipDefault(userID, req.Target)
	} else {
		view, err = h.shopService.EquipSkin(userID, req.Target, req.SkinID)
	}
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// GetSkins returns the player's skin state
// @Summary     Get skin state
// @Description Get the player's owned skins and equipped slots
// @Tags        skins
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.SkinView "Skin state"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /skins [get]
func (h *ShopHandler) GetSkins(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	view, err := h.shopService.GetSkinState(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}
