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

// transactionHandler handles HTTP requests for the transaction lifecycle.
type transactionHandler struct {
	transactionService portssvc.TransactionSvcFacade
}

// registerTransactionRoutes registers the lifecycle routes.
func registerTransactionRoutes(rg *gin.RouterGroup, transactionService portssvc.TransactionSvcFacade) {
	h := &transactionHandler{transactionService: transactionService}

	transactions := rg.Group("/transactions")
	{
		transactions.POST("", h.createTransaction)
		transactions.GET("", h.listTransactions)
		transactions.GET("/:id", h.getTransaction)
		transactions.GET("/:id/history", h.getHistory)
		transactions.POST("/:id/proof", h.submitProof)
		transactions.POST("/:id/validate", h.validate)
		transactions.POST("/:id/reject", h.reject)
		transactions.POST("/:id/process", h.startProcessing)
		transactions.POST("/:id/deliver", h.markDelivered)
		transactions.POST("/:id/complete", h.complete)
		transactions.POST("/:id/cancel", h.cancel)
	}
}

// isRequestFault reports whether the error is the caller's fault rather than
// a server failure.
func isRequestFault(err error) bool {
	for _, target := range []error{
		apperrors.ErrValidation,
		apperrors.ErrInvalidAmount,
		services.ErrLineItemsRequired,
		services.ErrLineItemsForbidden,
		services.ErrBaseAmountRequired,
		services.ErrReasonRequired,
		services.ErrCatalogItemInactive,
		services.ErrNoRateAvailable,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// respondLifecycleError maps service errors onto HTTP statuses. Every
// lifecycle endpoint shares the same mapping.
func respondLifecycleError(c *gin.Context, logger *slog.Logger, err error, action string) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Transaction not found"})
	case errors.Is(err, apperrors.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "Not allowed"})
	case errors.Is(err, apperrors.ErrIllegalTransition), errors.Is(err, apperrors.ErrConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	case errors.Is(err, apperrors.ErrInsufficientStock):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	case isRequestFault(err):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	default:
		logger.Error("Failed to "+action, slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to " + action})
	}
}

// createTransaction godoc
// @Summary Create a transaction
// @Description Creates an order or a remittance, reserving inventory and capturing the monetary snapshot.
// @Tags transactions
// @Accept json
// @Produce json
// @Param transaction body dto.CreateTransactionRequest true "Transaction details"
// @Success 201 {object} dto.TransactionResponse
// @Failure 400 {object} ErrorResponse "Invalid input or amount out of bounds"
// @Failure 401 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Insufficient stock"
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /transactions [post]
func (h *transactionHandler) createTransaction(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateTransaction", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	creatorUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	resp, err := h.transactionService.CreateTransaction(c.Request.Context(), req, creatorUserID)
	if err != nil {
		respondLifecycleError(c, logger, err, "create transaction")
		return
	}

	logger.Info("Transaction created",
		slog.String("transaction_id", resp.TransactionID),
		slog.String("reference_number", resp.ReferenceNumber))
	c.JSON(http.StatusCreated, resp)
}

// listTransactions godoc
// @Summary List transactions
// @Description Retrieves a cursor-paginated page. Customers only see their own transactions.
// @Tags transactions
// @Produce json
// @Param limit query int false "Page size (default 20)"
// @Param nextToken query string false "Cursor from the previous page"
// @Param status query string false "Filter by status (admin and manager only)"
// @Success 200 {object} dto.ListTransactionsResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /transactions [get]
func (h *transactionHandler) listTransactions(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var params dto.ListTransactionsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid query parameters: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	resp, err := h.transactionService.ListTransactions(c.Request.Context(), userID, params)
	if err != nil {
		respondLifecycleError(c, logger, err, "list transactions")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// getTransaction godoc
// @Summary Get a transaction
// @Description Retrieves a transaction with its line items. Owners see their own; managers and admins see all.
// @Tags transactions
// @Produce json
// @Param id path string true "Transaction ID"
// @Success 200 {object} dto.TransactionResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /transactions/{id} [get]
func (h *transactionHandler) getTransaction(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	resp, err := h.transactionService.GetTransactionByID(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondLifecycleError(c, logger, err, "get transaction")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// getHistory godoc
// @Summary Get the audit trail of a transaction
// @Description Returns every status change of the transaction, oldest first.
// @Tags transactions
// @Produce json
// @Param id path string true "Transaction ID"
// @Success 200 {array} dto.StatusHistoryEntryResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /transactions/{id}/history [get]
func (h *transactionHandler) getHistory(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	trail, err := h.transactionService.History(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondLifecycleError(c, logger, err, "get transaction history")
		return
	}
	c.JSON(http.StatusOK, trail)
}

// submitProof godoc
// @Summary Submit proof of payment
// @Description Attaches a proof-of-payment handle. Legal from CREATED and REJECTED.
// @Tags transactions
// @Accept json
// @Produce json
// @Param id path string true "Transaction ID"
// @Param proof body dto.SubmitProofRequest true "Proof handle"
// @Success 200 {object} dto.TransactionResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Transition not legal from current status"
// @Security BearerAuth
// @Router /transactions/{id}/proof [post]
func (h *transactionHandler) submitProof(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.SubmitProofRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	actorID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	resp, err := h.transactionService.SubmitProof(c.Request.Context(), c.Param("id"), req, actorID)
	if err != nil {
		respondLifecycleError(c, logger, err, "submit proof")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// validate godoc
// @Summary Validate a submitted proof
// @Description Confirms the payment, committing the inventory reservation. Manager or admin only.
// @Tags transactions
// @Produce json
// @Param id path string true "Transaction ID"
// @Success 200 {object} dto.TransactionResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Security BearerAuth
// @Router /transactions/{id}/validate [post]
func (h *transactionHandler) validate(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	actorID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	resp, err := h.transactionService.Validate(c.Request.Context(), c.Param("id"), actorID)
	if err != nil {
		respondLifecycleError(c, logger, err, "validate transaction")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// reject godoc
// @Summary Reject a submitted proof
// @Description Declines the payment with a mandatory reason, releasing the reservation. Manager or admin only.
// @Tags transactions
// @Accept json
// @Produce json
// @Param id path string true "Transaction ID"
// @Param rejection body dto.RejectRequest true "Rejection reason"
// @Success 200 {object} dto.TransactionResponse
// @Failure 400 {object} ErrorResponse "Reason missing"
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Security BearerAuth
// @Router /transactions/{id}/reject [post]
func (h *transactionHandler) reject(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	actorID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	resp, err := h.transactionService.Reject(c.Request.Context(), c.Param("id"), req, actorID)
	if err != nil {
		respondLifecycleError(c, logger, err, "reject transaction")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// startProcessing godoc
// @Summary Start fulfilment
// @Description Marks fulfilment as begun. Admin only, legal from VALIDATED.
// @Tags transactions
// @Produce json
// @Param id path string true "Transaction ID"
// @Success 200 {object} dto.TransactionResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Security BearerAuth
// @Router /transactions/{id}/process [post]
func (h *transactionHandler) startProcessing(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	actorID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	resp, err := h.transactionService.StartProcessing(c.Request.Context(), c.Param("id"), actorID)
	if err != nil {
		respondLifecycleError(c, logger, err, "start processing")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// markDelivered godoc
// @Summary Record delivery
// @Description Records delivery with its proof handle. Admin only, legal from PROCESSING.
// @Tags transactions
// @Accept json
// @Produce json
// @Param id path string true "Transaction ID"
// @Param delivery body dto.MarkDeliveredRequest true "Delivery proof"
// @Success 200 {object} dto.TransactionResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Security BearerAuth
// @Router /transactions/{id}/deliver [post]
func (h *transactionHandler) markDelivered(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.MarkDeliveredRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	actorID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	resp, err := h.transactionService.MarkDelivered(c.Request.Context(), c.Param("id"), req, actorID)
	if err != nil {
		respondLifecycleError(c, logger, err, "mark delivered")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// complete godoc
// @Summary Complete a transaction
// @Description Closes the transaction. Admin only, legal from DELIVERED.
// @Tags transactions
// @Produce json
// @Param id path string true "Transaction ID"
// @Success 200 {object} dto.TransactionResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Security BearerAuth
// @Router /transactions/{id}/complete [post]
func (h *transactionHandler) complete(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	actorID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	resp, err := h.transactionService.Complete(c.Request.Context(), c.Param("id"), actorID)
	if err != nil {
		respondLifecycleError(c, logger, err, "complete transaction")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// cancel godoc
// @Summary Cancel a transaction
// @Description Aborts the transaction with a mandatory reason, releasing any outstanding reservation.
// @Tags transactions
// @Accept json
// @Produce json
// @Param id path string true "Transaction ID"
// @Param cancellation body dto.CancelRequest true "Cancellation reason"
// @Success 200 {object} dto.TransactionResponse
// @Failure 400 {object} ErrorResponse "Reason missing"
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Transaction already terminal"
// @Security BearerAuth
// @Router /transactions/{id}/cancel [post]
func (h *transactionHandler) cancel(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	actorID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	resp, err := h.transactionService.Cancel(c.Request.Context(), c.Param("id"), req, actorID)
	if err != nil {
		respondLifecycleError(c, logger, err, "cancel transaction")
		return
	}
	c.JSON(http.StatusOK, resp)
}
