package handler

import (
	"github.com/gin-gonic/gin"

	appcatalog "github.com/locoganga/storefront/internal/application/catalog"
	"github.com/locoganga/storefront/internal/interfaces/http/dto"
)

// CatalogHandler serves the storefront listing and product detail
type CatalogHandler struct {
	BaseHandler
	aggregator *appcatalog.AggregatorService
	pageSize   int
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(aggregator *appcatalog.AggregatorService, pageSize int) *CatalogHandler {
	return &CatalogHandler{aggregator: aggregator, pageSize: pageSize}
}

// List handles GET /api/v1/catalog
func (h *CatalogHandler) List(c *gin.Context) {
	var req dto.PageRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid page parameter")
		return
	}
	if req.Page < 1 {
		req.Page = 1
	}

	page, err := h.aggregator.GetPage(c.Request.Context(), req.Page)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Items, dto.Meta{
		Total:    page.TotalEstimatedCount,
		Page:     page.PageNumber,
		PageSize: h.pageSize,
		Source:   string(page.Source),
	})
}

// Detail handles GET /api/v1/catalog/:spu
func (h *CatalogHandler) Detail(c *gin.Context) {
	detail, err := h.aggregator.GetProductDetail(c.Request.Context(), c.Param("spu"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, detail)
}
