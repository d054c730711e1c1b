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

// exchangeRateHandler handles HTTP requests related to exchange rates.
type exchangeRateHandler struct {
	rateService portssvc.ExchangeRateSvcFacade
}

// registerExchangeRateRoutes registers routes related to exchange rates.
func registerExchangeRateRoutes(rg *gin.RouterGroup, rateService portssvc.ExchangeRateSvcFacade) {
	h := &exchangeRateHandler{rateService: rateService}

	rates := rg.Group("/exchange-rates")
	{
		rates.POST("", h.createExchangeRate)
		rates.GET("/latest", h.getLatestRate)
		rates.GET("/:id", h.getExchangeRateByID)
	}
}

// createExchangeRate godoc
// @Summary Record an exchange rate
// @Description Records a new conversion rate for a currency pair (admin operation)
// @Tags exchange-rates
// @Accept json
// @Produce json
// @Param rate body dto.CreateExchangeRateRequest true "Exchange rate details"
// @Success 201 {object} dto.ExchangeRateResponse
// @Failure 400 {object} ErrorResponse "Invalid input"
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse "Not an admin"
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /exchange-rates [post]
func (h *exchangeRateHandler) createExchangeRate(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateExchangeRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateExchangeRate", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	creatorUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	rate, err := h.rateService.CreateExchangeRate(c.Request.Context(), req, creatorUserID)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrForbidden):
			c.JSON(http.StatusForbidden, ErrorResponse{Error: "Only admins may record exchange rates"})
		case errors.Is(err, apperrors.ErrValidation), errors.Is(err, services.ErrSameCurrencyPair):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		default:
			logger.Error("Failed to create exchange rate", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to create exchange rate"})
		}
		return
	}

	logger.Info("Exchange rate recorded",
		slog.String("exchange_rate_id", rate.ExchangeRateID),
		slog.String("pair", rate.FromCurrencyCode+"/"+rate.ToCurrencyCode))
	c.JSON(http.StatusCreated, dto.ToExchangeRateResponse(rate))
}

// getLatestRate godoc
// @Summary Get the latest rate for a pair
// @Description Retrieves the most recently effective rate between two currencies
// @Tags exchange-rates
// @Produce json
// @Param from query string true "Source currency code"
// @Param to query string true "Destination currency code"
// @Success 200 {object} dto.ExchangeRateResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse "No rate recorded for pair"
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /exchange-rates/latest [get]
func (h *exchangeRateHandler) getLatestRate(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	from := c.Query("from")
	to := c.Query("to")
	if len(from) != 3 || len(to) != 3 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "from and to must be 3-letter currency codes"})
		return
	}

	rate, err := h.rateService.ResolveRate(c.Request.Context(), from, to)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "No rate recorded for pair"})
			return
		}
		logger.Error("Failed to resolve rate", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to resolve rate"})
		return
	}

	c.JSON(http.StatusOK, dto.ToExchangeRateResponse(rate))
}

// getExchangeRateByID godoc
// @Summary Get an exchange rate
// @Description Retrieves a recorded exchange rate by its ID
// @Tags exchange-rates
// @Produce json
// @Param id path string true "Exchange Rate ID"
// @Success 200 {object} dto.ExchangeRateResponse
// @Failure 404 {object} ErrorResponse "Exchange rate not found"
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /exchange-rates/{id} [get]
func (h *exchangeRateHandler) getExchangeRateByID(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	rate, err := h.rateService.GetExchangeRateByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Exchange rate not found"})
			return
		}
		logger.Error("Failed to get exchange rate", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to retrieve exchange rate"})
		return
	}

	c.JSON(http.StatusOK, dto.ToExchangeRateResponse(rate))
}
