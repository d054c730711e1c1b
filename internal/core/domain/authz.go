package domain

// Transition names a lifecycle operation for authorization purposes.
type Transition string

const (
	TransitionCreate          Transition = "CREATE"
	TransitionSubmitProof     Transition = "SUBMIT_PROOF"
	TransitionValidate        Transition = "VALIDATE"
	TransitionReject          Transition = "REJECT"
	TransitionStartProcessing Transition = "START_PROCESSING"
	TransitionMarkDelivered   Transition = "MARK_DELIVERED"
	TransitionComplete        Transition = "COMPLETE"
	TransitionCancel          Transition = "CANCEL"
)

// TargetStatus returns the status a transition lands on.
func (t Transition) TargetStatus() (TransactionStatus, bool) {
	switch t {
	case TransitionCreate:
		return StatusCreated, true
	case TransitionSubmitProof:
		return StatusProofSubmitted, true
	case TransitionValidate:
		return StatusValidated, true
	case TransitionReject:
		return StatusRejected, true
	case TransitionStartProcessing:
		return StatusProcessing, true
	case TransitionMarkDelivered:
		return StatusDelivered, true
	case TransitionComplete:
		return StatusCompleted, true
	case TransitionCancel:
		return StatusCancelled, true
	}
	return "", false
}

// managerTransitions is the capability set granted to managers. This is a
// capability check, not a role hierarchy: managers may adjudicate proofs but
// may not cancel or fulfil.
var managerTransitions = map[Transition]bool{
	TransitionValidate: true,
	TransitionReject:   true,
}

// ownerCancelStatuses are the statuses in which an owner may still cancel
// their own transaction. Once an admin has validated payment, cancellation
// becomes an administrative action.
var ownerCancelStatuses = map[TransactionStatus]bool{
	StatusCreated:        true,
	StatusProofSubmitted: true,
	StatusRejected:       true,
}

// Authorize is the access control gate: a pure decision function over
// (actor, transition, transaction). It carries no side effects so every
// (role, transition, state) combination can be tested exhaustively.
// Legality of the transition itself is the state machine's concern, not the
// gate's.
func Authorize(actorID string, role UserRole, transition Transition, txn Transaction) bool {
	if role == RoleAdmin {
		return true
	}
	if role == RoleManager {
		return managerTransitions[transition]
	}

	// Customers act only on their own transactions.
	if transition != TransitionCreate && txn.OwnerID != actorID {
		return false
	}
	switch transition {
	case TransitionCreate, TransitionSubmitProof:
		return true
	case TransitionCancel:
		return ownerCancelStatuses[txn.Status]
	}
	return false
}
