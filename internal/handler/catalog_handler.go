package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yourusername/animemaster-api/internal/domain/entity"
	"github.com/yourusername/animemaster-api/internal/handler/helper"
	apperrors "github.com/yourusername/animemaster-api/internal/pkg/errors"
)

// CatalogService is what CatalogHandler needs from the service layer.
type CatalogService interface {
	Daily(ctx context.Context) ([]entity.Anime, error)
	Ranking(ctx context.Context) ([]entity.Anime, error)
	Search(ctx context.Context, keyword string, limit, offset int) ([]entity.Anime, error)
}

// CatalogHandler serves the public /api/anime endpoints.
type CatalogHandler struct {
	catalog CatalogService
	log     zerolog.Logger
}

func NewCatalogHandler(catalog CatalogService, log zerolog.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalog: catalog,
		log:     log.With().Str("component", "catalog_handler").Logger(),
	}
}

// Daily handles GET /api/anime/daily.
func (h *CatalogHandler) Daily(c *gin.Context) {
	list, err := h.catalog.Daily(c.Request.Context())
	h.respond(c, list, err)
}

// Ranking handles GET /api/anime/ranking.
func (h *CatalogHandler) Ranking(c *gin.Context) {
	list, err := h.catalog.Ranking(c.Request.Context())
	h.respond(c, list, err)
}

// Search handles GET /api/anime/search?keyword=&limit=&offset=.
func (h *CatalogHandler) Search(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a number", "error_type": "invalid_request"})
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "offset must be a number", "error_type": "invalid_request"})
		return
	}

	list, err := h.catalog.Search(c.Request.Context(), c.Query("keyword"), limit, offset)
	h.respond(c, list, err)
}

func (h *CatalogHandler) respond(c *gin.Context, list []entity.Anime, err error) {
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"data": helper.ToAnimeDTOs(list), "total": len(list)})
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation_failed"})
	default:
		h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "error_type": "internal_error"})
	}
}
