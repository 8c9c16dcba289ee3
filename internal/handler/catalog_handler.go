package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/skillpath-api/internal/catalog"
	"github.com/noah-isme/skillpath-api/pkg/response"
)

// CatalogHandler exposes the skill taxonomy for choice lists.
type CatalogHandler struct {
	catalog *catalog.Catalog
}

// NewCatalogHandler constructs CatalogHandler.
func NewCatalogHandler(c *catalog.Catalog) *CatalogHandler {
	return &CatalogHandler{catalog: c}
}

// Groups godoc
// @Summary Skill catalog
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /catalog [get]
func (h *CatalogHandler) Groups(c *gin.Context) {
	groups := h.catalog.Groups()
	if groups == nil {
		groups = []catalog.Group{}
	}
	response.JSON(c, http.StatusOK, groups, nil, map[string]interface{}{"courses": h.catalog.Size()})
}
