package domain_test

import (
	"testing"

	"github.com/enviopago/envio_backend/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

var allStatuses = []domain.TransactionStatus{
	domain.StatusCreated,
	domain.StatusProofSubmitted,
	domain.StatusValidated,
	domain.StatusRejected,
	domain.StatusProcessing,
	domain.StatusDelivered,
	domain.StatusCompleted,
	domain.StatusCancelled,
}

func TestCanTransition(t *testing.T) {
	legal := map[domain.TransactionStatus][]domain.TransactionStatus{
		domain.StatusCreated:        {domain.StatusProofSubmitted, domain.StatusCancelled},
		domain.StatusProofSubmitted: {domain.StatusValidated, domain.StatusRejected, domain.StatusCancelled},
		domain.StatusValidated:      {domain.StatusProcessing, domain.StatusCancelled},
		domain.StatusRejected:       {domain.StatusProofSubmitted, domain.StatusCancelled},
		domain.StatusProcessing:     {domain.StatusDelivered, domain.StatusCancelled},
		domain.StatusDelivered:      {domain.StatusCompleted, domain.StatusCancelled},
		domain.StatusCompleted:      {},
		domain.StatusCancelled:      {},
	}

	// Every (from, to) pair must agree with the legal graph; anything not
	// listed is illegal.
	for _, from := range allStatuses {
		allowed := map[domain.TransactionStatus]bool{}
		for _, to := range legal[from] {
			allowed[to] = true
		}
		for _, to := range allStatuses {
			got := domain.CanTransition(from, to)
			assert.Equalf(t, allowed[to], got, "transition %s -> %s", from, to)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, domain.StatusCompleted.IsTerminal())
	assert.True(t, domain.StatusCancelled.IsTerminal())
	for _, s := range allStatuses {
		if s == domain.StatusCompleted || s == domain.StatusCancelled {
			continue
		}
		assert.Falsef(t, s.IsTerminal(), "status %s must not be terminal", s)
	}
}

func TestValidStatusPair(t *testing.T) {
	proofSubmitted := domain.StatusProofSubmitted

	tests := []struct {
		name     string
		previous *domain.TransactionStatus
		next     domain.TransactionStatus
		want     bool
	}{
		{name: "creation event lands on created", previous: nil, next: domain.StatusCreated, want: true},
		{name: "creation event cannot land elsewhere", previous: nil, next: domain.StatusValidated, want: false},
		{name: "legal pair", previous: &proofSubmitted, next: domain.StatusRejected, want: true},
		{name: "illegal pair", previous: &proofSubmitted, next: domain.StatusCompleted, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.ValidStatusPair(tt.previous, tt.next))
		})
	}
}

func TestReferencePrefix(t *testing.T) {
	assert.Equal(t, "REM", domain.TypeRemittance.ReferencePrefix())
	assert.Equal(t, "ORD", domain.TypeOrder.ReferencePrefix())
}

func TestLineItem_ReservationQuantities(t *testing.T) {
	tests := []struct {
		name string
		item domain.LineItem
		want map[string]int64
	}{
		{
			name: "product reserves its own quantity",
			item: domain.LineItem{CatalogItemID: "item-1", Quantity: 3},
			want: map[string]int64{"item-1": 3},
		},
		{
			name: "bundle multiplies each component by bundle quantity",
			item: domain.LineItem{
				CatalogItemID: "bundle-1",
				Quantity:      2,
				Components: []domain.ComponentSnapshot{
					{CatalogItemID: "item-1", QuantityPerBundle: 3},
					{CatalogItemID: "item-2", QuantityPerBundle: 1},
				},
			},
			want: map[string]int64{"item-1": 6, "item-2": 2},
		},
		{
			name: "bundle with repeated component accumulates",
			item: domain.LineItem{
				CatalogItemID: "bundle-1",
				Quantity:      2,
				Components: []domain.ComponentSnapshot{
					{CatalogItemID: "item-1", QuantityPerBundle: 1},
					{CatalogItemID: "item-1", QuantityPerBundle: 2},
				},
			},
			want: map[string]int64{"item-1": 6},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.item.ReservationQuantities())
		})
	}
}

func TestLineItem_BaseAmount(t *testing.T) {
	product := domain.LineItem{
		CatalogItemID:     "item-1",
		Quantity:          4,
		UnitPriceSnapshot: decimal.RequireFromString("12.50"),
	}
	assert.True(t, product.BaseAmount().Equal(decimal.RequireFromString("50.00")))

	bundle := domain.LineItem{
		CatalogItemID: "bundle-1",
		Quantity:      2,
		Components: []domain.ComponentSnapshot{
			{CatalogItemID: "item-1", QuantityPerBundle: 2, UnitPriceSnapshot: decimal.RequireFromString("5.00")},
			{CatalogItemID: "item-2", QuantityPerBundle: 1, UnitPriceSnapshot: decimal.RequireFromString("3.25")},
		},
	}
	// (5.00*2 + 3.25*1) * 2
	assert.True(t, bundle.BaseAmount().Equal(decimal.RequireFromString("26.50")))
}
