package mapping

import (
	"github.com/enviopago/envio_backend/internal/core/domain"
	"github.com/enviopago/envio_backend/internal/models"
)

// ToModelTransaction converts a domain Transaction to a model Transaction
func ToModelTransaction(d domain.Transaction) models.Transaction {
	return models.Transaction{
		TransactionID:         d.TransactionID,
		ReferenceNumber:       d.ReferenceNumber,
		OwnerID:               d.OwnerID,
		Type:                  models.TransactionType(d.Type),
		Status:                models.TransactionStatus(d.Status),
		BaseAmount:            d.BaseAmount,
		BaseCurrency:          d.BaseCurrency,
		ExchangeRate:          d.ExchangeRate,
		CommissionPct:         d.CommissionPct,
		CommissionFixed:       d.CommissionFixed,
		CommissionTotal:       d.CommissionTotal,
		DeliverableAmount:     d.DeliverableAmount,
		DestinationCurrency:   d.DestinationCurrency,
		RecipientName:         d.RecipientName,
		RecipientDetails:      d.RecipientDetails,
		ProofHandle:           d.ProofHandle,
		PaymentReference:      d.PaymentReference,
		ValidatedBy:           d.ValidatedBy,
		ValidatedAt:           d.ValidatedAt,
		RejectionReason:       d.RejectionReason,
		ProcessingStartedAt:   d.ProcessingStartedAt,
		DeliveredAt:           d.DeliveredAt,
		DeliveryProofHandle:   d.DeliveryProofHandle,
		RecipientConfirmation: d.RecipientConfirmation,
		CompletedAt:           d.CompletedAt,
		CancelledAt:           d.CancelledAt,
		CancellationReason:    d.CancellationReason,
		CancelledBy:           d.CancelledBy,
		AuditFields:           ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainTransaction converts a model Transaction to a domain Transaction
func ToDomainTransaction(m models.Transaction) domain.Transaction {
	return domain.Transaction{
		TransactionID:         m.TransactionID,
		ReferenceNumber:       m.ReferenceNumber,
		OwnerID:               m.OwnerID,
		Type:                  domain.TransactionType(m.Type),
		Status:                domain.TransactionStatus(m.Status),
		BaseAmount:            m.BaseAmount,
		BaseCurrency:          m.BaseCurrency,
		ExchangeRate:          m.ExchangeRate,
		CommissionPct:         m.CommissionPct,
		CommissionFixed:       m.CommissionFixed,
		CommissionTotal:       m.CommissionTotal,
		DeliverableAmount:     m.DeliverableAmount,
		DestinationCurrency:   m.DestinationCurrency,
		RecipientName:         m.RecipientName,
		RecipientDetails:      m.RecipientDetails,
		ProofHandle:           m.ProofHandle,
		PaymentReference:      m.PaymentReference,
		ValidatedBy:           m.ValidatedBy,
		ValidatedAt:           m.ValidatedAt,
		RejectionReason:       m.RejectionReason,
		ProcessingStartedAt:   m.ProcessingStartedAt,
		DeliveredAt:           m.DeliveredAt,
		DeliveryProofHandle:   m.DeliveryProofHandle,
		RecipientConfirmation: m.RecipientConfirmation,
		CompletedAt:           m.CompletedAt,
		CancelledAt:           m.CancelledAt,
		CancellationReason:    m.CancellationReason,
		CancelledBy:           m.CancelledBy,
		AuditFields:           ToDomainAuditFields(m.AuditFields),
	}
}

// ToModelLineItem converts a domain LineItem to a model LineItem.
// Component snapshots map to their own rows, see ToModelLineItemComponents.
func ToModelLineItem(d domain.LineItem) models.LineItem {
	return models.LineItem{
		LineItemID:        d.LineItemID,
		TransactionID:     d.TransactionID,
		CatalogItemID:     d.CatalogItemID,
		Quantity:          d.Quantity,
		UnitPriceSnapshot: d.UnitPriceSnapshot,
		AuditFields:       ToModelAuditFields(d.AuditFields),
	}
}

// ToModelLineItemComponents converts a line item's captured component
// snapshots to their rows, preserving order.
func ToModelLineItemComponents(d domain.LineItem) []models.LineItemComponent {
	out := make([]models.LineItemComponent, len(d.Components))
	for i, comp := range d.Components {
		out[i] = models.LineItemComponent{
			LineItemID:        d.LineItemID,
			CatalogItemID:     comp.CatalogItemID,
			QuantityPerBundle: comp.QuantityPerBundle,
			UnitPriceSnapshot: comp.UnitPriceSnapshot,
			Position:          i,
		}
	}
	return out
}

// ToDomainLineItem converts a model LineItem plus its component rows to a
// domain LineItem.
func ToDomainLineItem(m models.LineItem, components []models.LineItemComponent) domain.LineItem {
	li := domain.LineItem{
		LineItemID:        m.LineItemID,
		TransactionID:     m.TransactionID,
		CatalogItemID:     m.CatalogItemID,
		Quantity:          m.Quantity,
		UnitPriceSnapshot: m.UnitPriceSnapshot,
		AuditFields:       ToDomainAuditFields(m.AuditFields),
	}
	if len(components) > 0 {
		li.Components = make([]domain.ComponentSnapshot, len(components))
		for i, comp := range components {
			li.Components[i] = domain.ComponentSnapshot{
				CatalogItemID:     comp.CatalogItemID,
				QuantityPerBundle: comp.QuantityPerBundle,
				UnitPriceSnapshot: comp.UnitPriceSnapshot,
			}
		}
	}
	return li
}

// ToModelStatusHistoryEntry converts a domain StatusHistoryEntry to its model
func ToModelStatusHistoryEntry(d domain.StatusHistoryEntry) models.StatusHistoryEntry {
	m := models.StatusHistoryEntry{
		EntryID:       d.EntryID,
		TransactionID: d.TransactionID,
		NewStatus:     models.TransactionStatus(d.NewStatus),
		ActorID:       d.ActorID,
		Reason:        d.Reason,
		CreatedAt:     d.CreatedAt,
	}
	if d.PreviousStatus != nil {
		prev := models.TransactionStatus(*d.PreviousStatus)
		m.PreviousStatus = &prev
	}
	return m
}

// ToDomainStatusHistoryEntry converts a model StatusHistoryEntry to its domain
func ToDomainStatusHistoryEntry(m models.StatusHistoryEntry) domain.StatusHistoryEntry {
	d := domain.StatusHistoryEntry{
		EntryID:       m.EntryID,
		TransactionID: m.TransactionID,
		NewStatus:     domain.TransactionStatus(m.NewStatus),
		ActorID:       m.ActorID,
		Reason:        m.Reason,
		CreatedAt:     m.CreatedAt,
	}
	if m.PreviousStatus != nil {
		prev := domain.TransactionStatus(*m.PreviousStatus)
		d.PreviousStatus = &prev
	}
	return d
}

// ToDomainTransactionSlice converts a slice of model Transactions to a slice of domain Transactions
func ToDomainTransactionSlice(ms []models.Transaction) []domain.Transaction {
	ds := make([]domain.Transaction, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainTransaction(m)
	}
	return ds
}
