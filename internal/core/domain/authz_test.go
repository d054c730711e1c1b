package domain_test

import (
	"testing"

	"github.com/enviopago/envio_backend/internal/core/domain"
	"github.com/stretchr/testify/assert"
)

var allTransitions = []domain.Transition{
	domain.TransitionCreate,
	domain.TransitionSubmitProof,
	domain.TransitionValidate,
	domain.TransitionReject,
	domain.TransitionStartProcessing,
	domain.TransitionMarkDelivered,
	domain.TransitionComplete,
	domain.TransitionCancel,
}

func TestAuthorize_Admin(t *testing.T) {
	txn := domain.Transaction{OwnerID: "someone-else", Status: domain.StatusProcessing}
	for _, tr := range allTransitions {
		assert.Truef(t, domain.Authorize("admin-1", domain.RoleAdmin, tr, txn), "admin must be allowed %s", tr)
	}
}

func TestAuthorize_Manager(t *testing.T) {
	// Managers hold a capability set, not a hierarchy: validate/reject only.
	txn := domain.Transaction{OwnerID: "someone-else", Status: domain.StatusProofSubmitted}
	for _, tr := range allTransitions {
		want := tr == domain.TransitionValidate || tr == domain.TransitionReject
		assert.Equalf(t, want, domain.Authorize("mgr-1", domain.RoleManager, tr, txn), "manager on %s", tr)
	}
}

func TestAuthorize_Customer(t *testing.T) {
	own := domain.Transaction{OwnerID: "cust-1", Status: domain.StatusCreated}

	tests := []struct {
		name       string
		actorID    string
		transition domain.Transition
		txn        domain.Transaction
		want       bool
	}{
		{name: "create always allowed", actorID: "cust-1", transition: domain.TransitionCreate, txn: domain.Transaction{}, want: true},
		{name: "submit proof on own transaction", actorID: "cust-1", transition: domain.TransitionSubmitProof, txn: own, want: true},
		{name: "submit proof on someone else's transaction", actorID: "cust-2", transition: domain.TransitionSubmitProof, txn: own, want: false},
		{name: "cancel own while created", actorID: "cust-1", transition: domain.TransitionCancel, txn: own, want: true},
		{
			name:    "cancel own while proof submitted",
			actorID: "cust-1", transition: domain.TransitionCancel,
			txn:  domain.Transaction{OwnerID: "cust-1", Status: domain.StatusProofSubmitted},
			want: true,
		},
		{
			name:    "cancel own while rejected",
			actorID: "cust-1", transition: domain.TransitionCancel,
			txn:  domain.Transaction{OwnerID: "cust-1", Status: domain.StatusRejected},
			want: true,
		},
		{
			name:    "cancel own after validation",
			actorID: "cust-1", transition: domain.TransitionCancel,
			txn:  domain.Transaction{OwnerID: "cust-1", Status: domain.StatusValidated},
			want: false,
		},
		{name: "validate denied", actorID: "cust-1", transition: domain.TransitionValidate, txn: own, want: false},
		{name: "reject denied", actorID: "cust-1", transition: domain.TransitionReject, txn: own, want: false},
		{name: "start processing denied", actorID: "cust-1", transition: domain.TransitionStartProcessing, txn: own, want: false},
		{name: "mark delivered denied", actorID: "cust-1", transition: domain.TransitionMarkDelivered, txn: own, want: false},
		{name: "complete denied", actorID: "cust-1", transition: domain.TransitionComplete, txn: own, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := domain.Authorize(tt.actorID, domain.RoleCustomer, tt.transition, tt.txn)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTransition_TargetStatus(t *testing.T) {
	targets := map[domain.Transition]domain.TransactionStatus{
		domain.TransitionCreate:          domain.StatusCreated,
		domain.TransitionSubmitProof:     domain.StatusProofSubmitted,
		domain.TransitionValidate:        domain.StatusValidated,
		domain.TransitionReject:          domain.StatusRejected,
		domain.TransitionStartProcessing: domain.StatusProcessing,
		domain.TransitionMarkDelivered:   domain.StatusDelivered,
		domain.TransitionComplete:        domain.StatusCompleted,
		domain.TransitionCancel:          domain.StatusCancelled,
	}
	for tr, want := range targets {
		got, ok := tr.TargetStatus()
		assert.True(t, ok)
		assert.Equal(t, want, got)
	}

	_, ok := domain.Transition("NOPE").TargetStatus()
	assert.False(t, ok)
}
