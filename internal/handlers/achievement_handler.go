package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "stepcity/internal/errors"
	"stepcity/internal/pagination"
	"stepcity/internal/services"
)

// AchievementHandler handles achievement listing, event marks, and claims.
type AchievementHandler struct {
	achievementService services.AchievementServicer
	auditService       services.AuditServicer
}

// NewAchievementHandler creates a new AchievementHandler.
func NewAchievementHandler(achievementService services.AchievementServicer, auditService services.AuditServicer) *AchievementHandler {
	return &AchievementHandler{achievementService: achievementService, auditService: auditService}
}

// MarkEventRequest names the one-shot achievement to register.
type MarkEventRequest struct {
	AchievementID string `json:"achievement_id" binding:"required,max=100"`
}

// ClaimResponse reports the balance after a successful claim.
type ClaimResponse struct {
	Balance int64 `json:"balance"`
}

// ListAchievements lists the catalog merged with the player's progress
// @Summary     List achievements
// @Description Get a paginated list of all achievements with the player's progress and claim state
// @Tags        achievements
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int false "Page number (default 1)"
// @Param       page_size query int false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[services.AchievementView] "Paginated achievements"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /achievements [get]
func (h *AchievementHandler) ListAchievements(c *gin.Context) {
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

	result, err := h.achievementService.ListForUser(userID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// MarkEvent registers a one-shot achievement
// @Summary     Mark event achievement
// @Description Register a one-shot achievement (first building, first decoration, first skin); repeat calls are no-ops
// @Tags        achievements
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body MarkEventRequest true "Achievement to mark"
// @Success     200 {object} map[string]bool "Whether this call created the record"
// @Failure     400 {object} ErrorResponse "Invalid input or not a one-shot achievement"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Unknown achievement"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /achievements/events [post]
func (h *AchievementHandler) MarkEvent(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req MarkEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	created, err := h.achievementService.MarkEvent(userID, req.AchievementID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"created": created})
}

// Claim pays out a completed achievement
// @Summary     Claim achievement reward
// @Description Claim the coin reward of a completed achievement; each achievement pays out exactly once
// @Tags        achievements
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Achievement ID"
// @Success     200 {object} ClaimResponse "Balance after payout"
// @Failure     400 {object} ErrorResponse "Achievement not completed"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Unknown achievement"
// @Failure     409 {object} ErrorResponse "Already claimed"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /achievements/{id}/claim [post]
func (h *AchievementHandler) Claim(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	achievementID := c.Param("id")
	balance, err := h.achievementService.Claim(userID, achievementID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CLAIM_ACHIEVEMENT", "achievement", achievementID, c.ClientIP(),
		map[string]interface{}{"balance": balance})

	c.JSON(http.StatusOK, gin.H{"balance": balance})
}
