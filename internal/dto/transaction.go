package dto

import (
	"time"

	"github.com/enviopago/envio_backend/internal/core/domain"
	"github.com/shopspring/decimal"
)

// LineItemRequest is one requested catalog item (product or bundle) with its
// quantity.
type LineItemRequest struct {
	CatalogItemID string `json:"catalogItemID" binding:"required"`
	Quantity      int64  `json:"quantity" binding:"required,gt=0"`
}

// CreateTransactionRequest creates an order or a remittance.
// Orders carry line items and derive their base amount from captured catalog
// prices; remittances carry the base amount directly.
type CreateTransactionRequest struct {
	Type                domain.TransactionType `json:"type" binding:"required,oneof=ORDER REMITTANCE"`
	LineItems           []LineItemRequest      `json:"lineItems" binding:"omitempty,dive"`
	BaseAmount          *decimal.Decimal       `json:"baseAmount,omitempty"` // remittances only
	DestinationCurrency string                 `json:"destinationCurrency" binding:"required,len=3"`
	RecipientName       string                 `json:"recipientName" binding:"required"`
	RecipientDetails    string                 `json:"recipientDetails" binding:"required"`
}

// SubmitProofRequest attaches a proof-of-payment handle to a transaction.
// The handle is an opaque blob-store reference; its content is never
// inspected here.
type SubmitProofRequest struct {
	ProofHandle      string `json:"proofHandle" binding:"required"`
	PaymentReference string `json:"paymentReference"`
}

// RejectRequest rejects a submitted proof. Reason is mandatory.
type RejectRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// CancelRequest cancels a transaction. Reason is mandatory.
type CancelRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// MarkDeliveredRequest records delivery of a processed transaction.
type MarkDeliveredRequest struct {
	DeliveryProofHandle   string `json:"deliveryProofHandle" binding:"required"`
	RecipientConfirmation string `json:"recipientConfirmation"`
}

// ListTransactionsParams holds query parameters for listing transactions.
type ListTransactionsParams struct {
	Limit     int     `form:"limit"`
	NextToken *string `form:"nextToken"`
	Status    *string `form:"status"`
}

// LineItemResponse is the returned shape of a captured line item.
type LineItemResponse struct {
	LineItemID        string                     `json:"lineItemID"`
	CatalogItemID     string                     `json:"catalogItemID"`
	Quantity          int64                      `json:"quantity"`
	UnitPriceSnapshot decimal.Decimal            `json:"unitPriceSnapshot"`
	Components        []domain.ComponentSnapshot `json:"components,omitempty"`
}

// TransactionResponse is the returned shape of a transaction.
type TransactionResponse struct {
	TransactionID       string                   `json:"transactionID"`
	ReferenceNumber     string                   `json:"referenceNumber"`
	OwnerID             string                   `json:"ownerID"`
	Type                domain.TransactionType   `json:"type"`
	Status              domain.TransactionStatus `json:"status"`
	BaseAmount          decimal.Decimal          `json:"baseAmount"`
	BaseCurrency        string                   `json:"baseCurrency"`
	ExchangeRate        decimal.Decimal          `json:"exchangeRate"`
	CommissionPct       decimal.Decimal          `json:"commissionPct"`
	CommissionFixed     decimal.Decimal          `json:"commissionFixed"`
	CommissionTotal     decimal.Decimal          `json:"commissionTotal"`
	DeliverableAmount   decimal.Decimal          `json:"deliverableAmount"`
	DestinationCurrency string                   `json:"destinationCurrency"`
	RecipientName       string                   `json:"recipientName"`
	RecipientDetails    string                   `json:"recipientDetails"`
	ProofHandle         *string                  `json:"proofHandle,omitempty"`
	PaymentReference    *string                  `json:"paymentReference,omitempty"`
	RejectionReason     *string                  `json:"rejectionReason,omitempty"`
	CancellationReason  *string                  `json:"cancellationReason,omitempty"`
	LineItems           []LineItemResponse       `json:"lineItems,omitempty"`
	CreatedAt           time.Time                `json:"createdAt"`
	LastUpdatedAt       time.Time                `json:"lastUpdatedAt"`
}

// StatusHistoryEntryResponse is one audit trail entry, oldest first in lists.
type StatusHistoryEntryResponse struct {
	EntryID        string                    `json:"entryID"`
	PreviousStatus *domain.TransactionStatus `json:"previousStatus,omitempty"`
	NewStatus      domain.TransactionStatus  `json:"newStatus"`
	ActorID        *string                   `json:"actorID,omitempty"`
	Reason         *string                   `json:"reason,omitempty"`
	CreatedAt      time.Time                 `json:"createdAt"`
}

// ListTransactionsResponse wraps a page of transactions with the next cursor.
type ListTransactionsResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	NextToken    *string               `json:"nextToken,omitempty"`
}

// ToLineItemResponse converts a domain.LineItem to its response DTO.
func ToLineItemResponse(li *domain.LineItem) LineItemResponse {
	return LineItemResponse{
		LineItemID:        li.LineItemID,
		CatalogItemID:     li.CatalogItemID,
		Quantity:          li.Quantity,
		UnitPriceSnapshot: li.UnitPriceSnapshot,
		Components:        li.Components,
	}
}

// ToTransactionResponse converts a domain.Transaction to its response DTO.
func ToTransactionResponse(t *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		TransactionID:       t.TransactionID,
		ReferenceNumber:     t.ReferenceNumber,
		OwnerID:             t.OwnerID,
		Type:                t.Type,
		Status:              t.Status,
		BaseAmount:          t.BaseAmount,
		BaseCurrency:        t.BaseCurrency,
		ExchangeRate:        t.ExchangeRate,
		CommissionPct:       t.CommissionPct,
		CommissionFixed:     t.CommissionFixed,
		CommissionTotal:     t.CommissionTotal,
		DeliverableAmount:   t.DeliverableAmount,
		DestinationCurrency: t.DestinationCurrency,
		RecipientName:       t.RecipientName,
		RecipientDetails:    t.RecipientDetails,
		ProofHandle:         t.ProofHandle,
		PaymentReference:    t.PaymentReference,
		RejectionReason:     t.RejectionReason,
		CancellationReason:  t.CancellationReason,
		CreatedAt:           t.CreatedAt,
		LastUpdatedAt:       t.LastUpdatedAt,
	}
}

// ToTransactionResponseWithItems converts a transaction and its line items.
func ToTransactionResponseWithItems(t *domain.Transaction, items []domain.LineItem) TransactionResponse {
	resp := ToTransactionResponse(t)
	resp.LineItems = make([]LineItemResponse, len(items))
	for i := range items {
		resp.LineItems[i] = ToLineItemResponse(&items[i])
	}
	return resp
}

// ToStatusHistoryEntryResponses converts audit entries, preserving order.
func ToStatusHistoryEntryResponses(entries []domain.StatusHistoryEntry) []StatusHistoryEntryResponse {
	out := make([]StatusHistoryEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = StatusHistoryEntryResponse{
			EntryID:        e.EntryID,
			PreviousStatus: e.PreviousStatus,
			NewStatus:      e.NewStatus,
			ActorID:        e.ActorID,
			Reason:         e.Reason,
			CreatedAt:      e.CreatedAt,
		}
	}
	return out
}
