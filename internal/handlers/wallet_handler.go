package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "stepcity/internal/errors"
	"stepcity/internal/services"
)

// WalletHandler handles balance, step sync, and daily metric requests.
type WalletHandler struct {
	ledgerService services.LedgerServicer
	syncService   services.SyncServicer
	auditService  services.AuditServicer
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(ledgerService services.LedgerServicer, syncService services.SyncServicer, auditService services.AuditServicer) *WalletHandler {
	return &WalletHandler{ledgerService: ledgerService, syncService: syncService, auditService: auditService}
}

// SyncStepsRequest represents a cumulative step count report for one day.
type SyncStepsRequest struct {
	Day   string `json:"day" binding:"omitempty,dayid"`
	Steps int64  `json:"steps" binding:"gte=0"`
}

// WalletResponse represents the player's wallet.
type WalletResponse struct {
	Balance       int64 `json:"balance"`
	LifetimeSteps int64 `json:"lifetime_steps"`
}

// GetWallet returns the player's wallet
// @Summary     Get wallet
// @Description Get the authenticated player's coin balance and lifetime step total
// @Tags        wallet
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} WalletResponse "Wallet state"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /wallet [get]
func (h *WalletHandler) GetWallet(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	account, err := h.ledgerService.EnsureAccount(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"balance":        account.Balance,
		"lifetime_steps": account.LifetimeSteps,
	})
}

// SyncSteps reports the day's cumulative step count
// @Summary     Sync steps
// @Description Report a cumulative step count for one day; the positive delta against the stored count is credited as coins and fanned out to step achievements
// @Tags        wallet
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body SyncStepsRequest true "Cumulative step count (day defaults to today UTC)"
// @Success     200 {object} services.SyncResult "Credit outcome and unlocked achievements"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     409 {object} ErrorResponse "Conflict retries exhausted"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /steps/sync [post]
func (h *WalletHandler) SyncSteps(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req SyncStepsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.syncService.SyncSteps(userID, req.Day, req.Steps)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if result.Delta > 0 {
		h.auditService.Log(userID, "SYNC_STEPS", "daily_metric", result.Day, c.ClientIP(),
			map[string]interface{}{"steps": result.Steps, "delta": result.Delta})
	}

	c.JSON(http.StatusOK, result)
}

// GetDailyMetric returns one day's step metric
// @Summary     Get daily metric
// @Description Get the stored step count and flags for one day
// @Tags        wallet
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       day path string true "Day (YYYY-MM-DD)"
// @Success     200 {object} models.DailyMetric "Daily metric"
// @Failure     400 {object} ErrorResponse "Invalid day"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /days/{day} [get]
func (h *WalletHandler) GetDailyMetric(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	metric, err := h.ledgerService.GetDailyMetric(userID, c.Param("day"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"metric": metric})
}

// ApplyDisaster marks the day's disaster as applied
// @Summary     Apply daily disaster
// @Description Mark the day's disaster event as applied; the flag flips at most once per day
// @Tags        wallet
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       day path string true "Day (YYYY-MM-DD)"
// @Success     200 {object} map[string]bool "Whether this call applied the disaster"
// @Failure     400 {object} ErrorResponse "Invalid day"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /days/{day}/disaster [post]
func (h *WalletHandler) ApplyDisaster(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	day := c.Param("day")
	applied, err := h.ledgerService.ApplyDailyDisaster(userID, day)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if applied {
		h.auditService.Log(userID, "APPLY_DISASTER", "daily_metric", day, c.ClientIP(), nil)
	}

	c.JSON(http.StatusOK, gin.H{"applied": applied})
}
