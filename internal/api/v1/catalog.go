package v1

import (
	"net/http"

	"github.com/clubledger/clubledger/internal/catalog"
	"github.com/clubledger/clubledger/internal/logger"
	"github.com/gin-gonic/gin"
)

type CatalogHandler struct {
	catalogService catalog.Service
	logger         *logger.Logger
}

func NewCatalogHandler(catalogService catalog.Service, logger *logger.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalogService: catalogService,
		logger:         logger,
	}
}

// ListDiscountTypes handles GET /catalog/discount-types
func (h *CatalogHandler) ListDiscountTypes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"results": h.catalogService.ListDiscountTypes(c.Request.Context()),
	})
}

// ListMembershipTiers handles GET /catalog/membership-tiers
func (h *CatalogHandler) ListMembershipTiers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"results": h.catalogService.ListMembershipTiers(c.Request.Context()),
	})
}
