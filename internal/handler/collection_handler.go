package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yourusername/animemaster-api/internal/domain/entity"
	"github.com/yourusername/animemaster-api/internal/handler/dto"
	"github.com/yourusername/animemaster-api/internal/handler/helper"
	"github.com/yourusername/animemaster-api/internal/middleware"
	apperrors "github.com/yourusername/animemaster-api/internal/pkg/errors"
	"github.com/yourusername/animemaster-api/internal/service"
)

// CollectionService is what CollectionHandler needs from the service layer.
type CollectionService interface {
	Collections(ctx context.Context, userID uint) (map[entity.WatchStatus][]entity.UserAnimeStatus, error)
	List(ctx context.Context, userID uint, status string) ([]entity.UserAnimeStatus, error)
	Add(ctx context.Context, userID uint, input service.AddToCollectionInput) (*entity.UserAnimeStatus, error)
	Update(ctx context.Context, userID, animeID uint, status string, progress *int) error
	SetStatus(ctx context.Context, userID, animeID uint, status string) error
	SetProgress(ctx context.Context, userID, animeID uint, progress int) error
	Remove(ctx context.Context, userID, animeID uint) error
}

// CollectionHandler serves /api/collection and /api/user-anime-status. Every
// route runs behind RequireAuth and acts on the caller's own rows.
type CollectionHandler struct {
	collections CollectionService
	log         zerolog.Logger
}

func NewCollectionHandler(collections CollectionService, log zerolog.Logger) *CollectionHandler {
	return &CollectionHandler{
		collections: collections,
		log:         log.With().Str("component", "collection_handler").Logger(),
	}
}

// GetCollections handles GET /api/collection.
func (h *CollectionHandler) GetCollections(c *gin.Context) {
	userID, ok := h.caller(c)
	if !ok {
		return
	}

	grouped, err := h.collections.Collections(c.Request.Context(), userID)
	if err != nil {
		h.handleCollectionError(c, err)
		return
	}
	c.JSON(http.StatusOK, helper.ToCollectionsResponse(grouped))
}

// Add handles POST /api/collection/add.
func (h *CollectionHandler) Add(c *gin.Context) {
	userID, ok := h.caller(c)
	if !ok {
		return
	}
	var req dto.AddToCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "error_type": "invalid_request", "details": err.Error()})
		return
	}

	row, err := h.collections.Add(c.Request.Context(), userID, service.AddToCollectionInput{
		AnimeID:            req.AnimeID,
		Title:              req.Title,
		TitleCn:            req.TitleCn,
		Image:              req.Image,
		Episodes:           req.Episodes,
		Status:             req.Status,
		Progress:           req.Progress,
		LastWatchedEpisode: req.LastWatchedEpisode,
		Rating:             req.Rating,
		Notes:              req.Notes,
	})
	if err != nil {
		h.handleCollectionError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Added to collection",
		"item":    helper.ToCollectionItemDTO(row),
	})
}

// Update handles POST /api/collection/update.
func (h *CollectionHandler) Update(c *gin.Context) {
	userID, ok := h.caller(c)
	if !ok {
		return
	}
	var req dto.UpdateCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "error_type": "invalid_request", "details": err.Error()})
		return
	}

	if err := h.collections.Update(c.Request.Context(), userID, req.AnimeID, req.Status, req.Progress); err != nil {
		h.handleCollectionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Collection entry updated"})
}

// Remove handles POST /api/collection/remove.
func (h *CollectionHandler) Remove(c *gin.Context) {
	userID, ok := h.caller(c)
	if !ok {
		return
	}
	var req dto.RemoveFromCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "error_type": "invalid_request", "details": err.Error()})
		return
	}

	if err := h.collections.Remove(c.Request.Context(), userID, req.AnimeID); err != nil {
		h.handleCollectionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Removed from collection"})
}

// ListByStatus handles GET /api/user-anime-status/status/:status.
func (h *CollectionHandler) ListByStatus(c *gin.Context) {
	h.list(c, c.Param("status"))
}

// ListAll handles GET /api/user-anime-status/all.
func (h *CollectionHandler) ListAll(c *gin.Context) {
	h.list(c, "")
}

// SetStatus handles POST /api/user-anime-status/update-status. Parameters
// come from the query string, a form or a JSON body.
func (h *CollectionHandler) SetStatus(c *gin.Context) {
	userID, ok := h.caller(c)
	if !ok {
		return
	}
	var req dto.WatchStatusRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "error_type": "invalid_request", "details": err.Error()})
		return
	}

	if err := h.collections.SetStatus(c.Request.Context(), userID, req.AnimeID, req.Status); err != nil {
		h.handleCollectionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Status updated"})
}

// SetProgress handles POST /api/user-anime-status/update-progress.
func (h *CollectionHandler) SetProgress(c *gin.Context) {
	userID, ok := h.caller(c)
	if !ok {
		return
	}
	var req dto.WatchProgressRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "error_type": "invalid_request", "details": err.Error()})
		return
	}

	if err := h.collections.SetProgress(c.Request.Context(), userID, req.AnimeID, *req.Progress); err != nil {
		h.handleCollectionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Progress updated"})
}

func (h *CollectionHandler) list(c *gin.Context, status string) {
	userID, ok := h.caller(c)
	if !ok {
		return
	}

	rows, err := h.collections.List(c.Request.Context(), userID, status)
	if err != nil {
		h.handleCollectionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"items": helper.ToCollectionItemDTOs(rows),
		"total": len(rows),
	})
}

func (h *CollectionHandler) caller(c *gin.Context) (uint, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "error_type": "unauthorized"})
	}
	return userID, ok
}

func (h *CollectionHandler) handleCollectionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAlreadyInCollection):
		c.JSON(http.StatusConflict, gin.H{"error": "Anime is already in the collection", "error_type": "already_in_collection"})
	case errors.Is(err, service.ErrNotInCollection):
		c.JSON(http.StatusNotFound, gin.H{"error": "Anime is not in the collection", "error_type": "not_in_collection"})
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation_failed"})
	default:
		h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "error_type": "internal_error"})
	}
}
