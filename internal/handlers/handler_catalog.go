package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/enviopago/envio_backend/internal/apperrors"
	portssvc "github.com/enviopago/envio_backend/internal/core/ports/services"
	"github.com/enviopago/envio_backend/internal/core/services"
	"github.com/enviopago/envio_backend/internal/dto"
	"github.com/enviopago/envio_backend/internal/middleware"
)

// catalogHandler handles HTTP requests for catalog items and stock.
type catalogHandler struct {
	catalogService portssvc.CatalogSvcFacade
}

// registerCatalogRoutes registers routes related to the catalog.
func registerCatalogRoutes(rg *gin.RouterGroup, catalogService portssvc.CatalogSvcFacade) {
	h := &catalogHandler{catalogService: catalogService}

	items := rg.Group("/catalog-items")
	{
		items.POST("", h.createCatalogItem)
		items.GET("", h.listCatalogItems)
		items.GET("/:id", h.getCatalogItem)
		items.POST("/:id/stock-adjustments", h.adjustStock)
	}
}

// createCatalogItem godoc
// @Summary Create a catalog item
// @Description Registers a product or bundle (admin operation). Bundles carry components, not stock.
// @Tags catalog
// @Accept json
// @Produce json
// @Param item body dto.CreateCatalogItemRequest true "Catalog item details"
// @Success 201 {object} dto.CatalogItemResponse
// @Failure 400 {object} ErrorResponse "Invalid input"
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse "Not an admin"
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /catalog-items [post]
func (h *catalogHandler) createCatalogItem(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateCatalogItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateCatalogItem", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	creatorUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	item, err := h.catalogService.CreateCatalogItem(c.Request.Context(), req, creatorUserID)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrForbidden):
			c.JSON(http.StatusForbidden, ErrorResponse{Error: "Only admins may manage the catalog"})
		case errors.Is(err, apperrors.ErrValidation),
			errors.Is(err, services.ErrBundleNeedsComponents),
			errors.Is(err, services.ErrProductHasComponents),
			errors.Is(err, services.ErrBundleComponentMissing),
			errors.Is(err, services.ErrBundleOfBundles):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		case errors.Is(err, apperrors.ErrNotFound):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		default:
			logger.Error("Failed to create catalog item", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to create catalog item"})
		}
		return
	}

	logger.Info("Catalog item created", slog.String("catalog_item_id", item.CatalogItemID))
	c.JSON(http.StatusCreated, dto.ToCatalogItemResponse(item))
}

// listCatalogItems godoc
// @Summary List catalog items
// @Description Retrieves a cursor-paginated page of catalog items with availability.
// @Tags catalog
// @Produce json
// @Param limit query int false "Page size (default 20)"
// @Param nextToken query string false "Cursor from the previous page"
// @Success 200 {array} dto.CatalogItemResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /catalog-items [get]
func (h *catalogHandler) listCatalogItems(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var params struct {
		Limit     int     `form:"limit"`
		NextToken *string `form:"nextToken"`
	}
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid query parameters: " + err.Error()})
		return
	}

	items, nextToken, err := h.catalogService.ListCatalogItems(c.Request.Context(), params.Limit, params.NextToken)
	if err != nil {
		logger.Error("Failed to list catalog items", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to list catalog items"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items, "nextToken": nextToken})
}

// getCatalogItem godoc
// @Summary Get a catalog item
// @Description Retrieves one catalog item with components and availability.
// @Tags catalog
// @Produce json
// @Param id path string true "Catalog Item ID"
// @Success 200 {object} dto.CatalogItemResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /catalog-items/{id} [get]
func (h *catalogHandler) getCatalogItem(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	item, err := h.catalogService.GetCatalogItemByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Catalog item not found"})
			return
		}
		logger.Error("Failed to get catalog item", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to retrieve catalog item"})
		return
	}

	c.JSON(http.StatusOK, dto.ToCatalogItemResponse(item))
}

// adjustStock godoc
// @Summary Adjust product stock
// @Description Changes on-hand stock by a signed delta (admin operation). The result must cover outstanding reservations.
// @Tags catalog
// @Accept json
// @Produce json
// @Param id path string true "Catalog Item ID"
// @Param adjustment body dto.AdjustStockRequest true "Signed stock delta"
// @Success 204 "Stock adjusted"
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse "Not an admin"
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Adjustment would undercut reservations"
// @Security BearerAuth
// @Router /catalog-items/{id}/stock-adjustments [post]
func (h *catalogHandler) adjustStock(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	actorID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	err := h.catalogService.AdjustStock(c.Request.Context(), c.Param("id"), req.Delta, actorID)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrForbidden):
			c.JSON(http.StatusForbidden, ErrorResponse{Error: "Only admins may adjust stock"})
		case errors.Is(err, apperrors.ErrNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Catalog item not found"})
		case errors.Is(err, apperrors.ErrConflict):
			c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
		case errors.Is(err, apperrors.ErrValidation):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		default:
			logger.Error("Failed to adjust stock", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to adjust stock"})
		}
		return
	}

	c.Status(http.StatusNoContent)
}
