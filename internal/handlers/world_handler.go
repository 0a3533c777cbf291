package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "stepcity/internal/errors"
	"stepcity/internal/models"
	"stepcity/internal/services"
)

// WorldHandler handles world snapshot saves and loads.
type WorldHandler struct {
	worldService services.WorldServicer
	saver        *services.WorldSaver
}

// NewWorldHandler creates a new WorldHandler.
func NewWorldHandler(worldService services.WorldServicer, saver *services.WorldSaver) *WorldHandler {
	return &WorldHandler{worldService: worldService, saver: saver}
}

// SaveWorldRequest is a wholesale world snapshot. Both arrays replace the
// stored layout entirely.
type SaveWorldRequest struct {
	Buildings   []models.Building   `json:"buildings" binding:"required"`
	Decorations []models.Decoration `json:"decorations"`
}

// SaveWorld saves the world snapshot
// @Summary     Save world
// @Description Overwrite the player's world layout. Saves are debounced by default so rapid edits collapse into one write; pass immediate=true to write synchronously
// @Tags        world
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       immediate query bool false "Write synchronously instead of debouncing"
// @Param       request body SaveWorldRequest true "Full world layout"
// @Success     200 {object} map[string]bool "Snapshot accepted"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /world [put]
func (h *WorldHandler) SaveWorld(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req SaveWorldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	if c.Query("immediate") == "true" {
		if err := h.saver.SaveNow(userID, req.Buildings, req.Decorations); err != nil {
			respondWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"saved": true})
		return
	}

	h.saver.ScheduleSave(userID, req.Buildings, req.Decorations)
	c.JSON(http.StatusOK, gin.H{"scheduled": true})
}

// GetWorld loads the world snapshot
// @Summary     Load world
// @Description Load the player's world layout and skin state; a fresh account loads an empty world
// @Tags        world
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.WorldView "World snapshot"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /world [get]
func (h *WorldHandler) GetWorld(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	view, err := h.worldService.Load(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}
