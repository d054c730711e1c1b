package pgsql

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/enviopago/envio_backend/internal/apperrors"
	"github.com/enviopago/envio_backend/internal/core/domain"
	portsrepo "github.com/enviopago/envio_backend/internal/core/ports/repositories"
	"github.com/enviopago/envio_backend/internal/models"
	"github.com/enviopago/envio_backend/internal/utils/mapping"
	"github.com/enviopago/envio_backend/internal/utils/pagination"
)

type PgxTransactionRepository struct {
	BaseRepository
}

// newPgxTransactionRepository creates a new repository for transaction,
// line item, reservation and audit trail data.
func newPgxTransactionRepository(pool *pgxpool.Pool) portsrepo.TransactionRepositoryFacade {
	return &PgxTransactionRepository{BaseRepository: BaseRepository{Pool: pool}}
}

// Ensure PgxTransactionRepository implements the facade
var _ portsrepo.TransactionRepositoryFacade = (*PgxTransactionRepository)(nil)

const transactionColumns = `
	transaction_id, reference_number, owner_id, type, status,
	base_amount, base_currency, exchange_rate, commission_pct, commission_fixed,
	commission_total, deliverable_amount, destination_currency,
	recipient_name, recipient_details, proof_handle, payment_reference,
	validated_by, validated_at, rejection_reason, processing_started_at,
	delivered_at, delivery_proof_handle, recipient_confirmation, completed_at,
	cancelled_at, cancellation_reason, cancelled_by,
	created_at, created_by, last_updated_at, last_updated_by`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (models.Transaction, error) {
	var m models.Transaction
	err := row.Scan(
		&m.TransactionID, &m.ReferenceNumber, &m.OwnerID, &m.Type, &m.Status,
		&m.BaseAmount, &m.BaseCurrency, &m.ExchangeRate, &m.CommissionPct, &m.CommissionFixed,
		&m.CommissionTotal, &m.DeliverableAmount, &m.DestinationCurrency,
		&m.RecipientName, &m.RecipientDetails, &m.ProofHandle, &m.PaymentReference,
		&m.ValidatedBy, &m.ValidatedAt, &m.RejectionReason, &m.ProcessingStartedAt,
		&m.DeliveredAt, &m.DeliveryProofHandle, &m.RecipientConfirmation, &m.CompletedAt,
		&m.CancelledAt, &m.CancellationReason, &m.CancelledBy,
		&m.CreatedAt, &m.CreatedBy, &m.LastUpdatedAt, &m.LastUpdatedBy,
	)
	return m, err
}

// aggregateReservations folds the line items into one reserved quantity per
// catalog item, expanding bundles into their captured components.
func aggregateReservations(items []domain.LineItem) map[string]int64 {
	quantities := make(map[string]int64)
	for _, li := range items {
		for itemID, qty := range li.ReservationQuantities() {
			quantities[itemID] += qty
		}
	}
	return quantities
}

// CreateTransaction persists a transaction, its line items, the inventory
// reservations and the initial audit entry in one database transaction.
// Catalog rows are locked FOR UPDATE in a deterministic order so concurrent
// creators serialize per item instead of deadlocking; a shortfall on any item
// rolls the whole unit back.
func (r *PgxTransactionRepository) CreateTransaction(ctx context.Context, txn domain.Transaction, items []domain.LineItem, entry domain.StatusHistoryEntry) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	modelTxn := mapping.ToModelTransaction(txn)
	insertTxnQuery := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
		        $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32);
	`
	_, err = tx.Exec(ctx, insertTxnQuery,
		modelTxn.TransactionID, modelTxn.ReferenceNumber, modelTxn.OwnerID, modelTxn.Type, modelTxn.Status,
		modelTxn.BaseAmount, modelTxn.BaseCurrency, modelTxn.ExchangeRate, modelTxn.CommissionPct, modelTxn.CommissionFixed,
		modelTxn.CommissionTotal, modelTxn.DeliverableAmount, modelTxn.DestinationCurrency,
		modelTxn.RecipientName, modelTxn.RecipientDetails, modelTxn.ProofHandle, modelTxn.PaymentReference,
		modelTxn.ValidatedBy, modelTxn.ValidatedAt, modelTxn.RejectionReason, modelTxn.ProcessingStartedAt,
		modelTxn.DeliveredAt, modelTxn.DeliveryProofHandle, modelTxn.RecipientConfirmation, modelTxn.CompletedAt,
		modelTxn.CancelledAt, modelTxn.CancellationReason, modelTxn.CancelledBy,
		modelTxn.CreatedAt, modelTxn.CreatedBy, modelTxn.LastUpdatedAt, modelTxn.LastUpdatedBy,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation: reference number claimed
			return apperrors.ErrDuplicate
		}
		return apperrors.NewAppError(500, "failed to insert transaction "+modelTxn.TransactionID, err)
	}

	// Reserve inventory for orders. Remittances carry no line items.
	quantities := aggregateReservations(items)
	if len(quantities) > 0 {
		itemIDs := make([]string, 0, len(quantities))
		for id := range quantities {
			itemIDs = append(itemIDs, id)
		}
		sort.Strings(itemIDs) // deterministic lock order

		lockQuery := `
			SELECT catalog_item_id, stock, reserved
			FROM catalog_items
			WHERE catalog_item_id = ANY($1)
			ORDER BY catalog_item_id
			FOR UPDATE;
		`
		rows, err := tx.Query(ctx, lockQuery, itemIDs)
		if err != nil {
			return apperrors.NewAppError(500, "failed to lock catalog items", err)
		}
		locked := make(map[string]struct{ stock, reserved int64 }, len(itemIDs))
		for rows.Next() {
			var id string
			var stock, reserved int64
			if err := rows.Scan(&id, &stock, &reserved); err != nil {
				rows.Close()
				return apperrors.NewAppError(500, "failed to scan locked catalog item", err)
			}
			locked[id] = struct{ stock, reserved int64 }{stock, reserved}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return apperrors.NewAppError(500, "error iterating locked catalog items", err)
		}

		batch := &pgx.Batch{}
		for _, itemID := range itemIDs {
			counters, ok := locked[itemID]
			if !ok {
				return fmt.Errorf("%w: catalog item %s", apperrors.ErrNotFound, itemID)
			}
			qty := quantities[itemID]
			if counters.stock-counters.reserved < qty {
				return fmt.Errorf("%w: catalog item %s has %d available, %d requested",
					apperrors.ErrInsufficientStock, itemID, counters.stock-counters.reserved, qty)
			}
			batch.Queue(`UPDATE catalog_items SET reserved = reserved + $2, last_updated_at = $3, last_updated_by = $4 WHERE catalog_item_id = $1;`,
				itemID, qty, modelTxn.CreatedAt, modelTxn.CreatedBy)
			batch.Queue(`INSERT INTO inventory_reservations (transaction_id, catalog_item_id, quantity, status) VALUES ($1, $2, $3, 'RESERVED');`,
				modelTxn.TransactionID, itemID, qty)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return apperrors.NewAppError(500, "failed to reserve inventory for "+modelTxn.TransactionID, err)
		}
	}

	// Line items and their captured bundle components.
	if len(items) > 0 {
		batch := &pgx.Batch{}
		lineItemQuery := `
			INSERT INTO transaction_line_items (line_item_id, transaction_id, catalog_item_id, quantity, unit_price_snapshot, created_at, created_by, last_updated_at, last_updated_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
		`
		componentQuery := `
			INSERT INTO line_item_components (line_item_id, catalog_item_id, quantity_per_bundle, unit_price_snapshot, position)
			VALUES ($1, $2, $3, $4, $5);
		`
		for _, li := range items {
			m := mapping.ToModelLineItem(li)
			batch.Queue(lineItemQuery,
				m.LineItemID, m.TransactionID, m.CatalogItemID, m.Quantity, m.UnitPriceSnapshot,
				m.CreatedAt, m.CreatedBy, m.LastUpdatedAt, m.LastUpdatedBy)
			for _, comp := range mapping.ToModelLineItemComponents(li) {
				batch.Queue(componentQuery,
					comp.LineItemID, comp.CatalogItemID, comp.QuantityPerBundle, comp.UnitPriceSnapshot, comp.Position)
			}
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return apperrors.NewAppError(500, "failed to insert line items for "+modelTxn.TransactionID, err)
		}
	}

	if err := insertHistoryEntry(ctx, tx, entry); err != nil {
		return err
	}

	return r.Commit(ctx, tx)
}

// ApplyTransition persists a status change, its audit entry and inventory
// effect atomically. The UPDATE is guarded by the expected current status;
// zero rows affected means a concurrent operation won the race.
func (r *PgxTransactionRepository) ApplyTransition(ctx context.Context, txn domain.Transaction, expected domain.TransactionStatus, entry domain.StatusHistoryEntry, effect domain.InventoryEffect) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	m := mapping.ToModelTransaction(txn)
	updateQuery := `
		UPDATE transactions
		SET status = $3,
		    proof_handle = $4,
		    payment_reference = $5,
		    validated_by = $6,
		    validated_at = $7,
		    rejection_reason = $8,
		    processing_started_at = $9,
		    delivered_at = $10,
		    delivery_proof_handle = $11,
		    recipient_confirmation = $12,
		    completed_at = $13,
		    cancelled_at = $14,
		    cancellation_reason = $15,
		    cancelled_by = $16,
		    last_updated_at = $17,
		    last_updated_by = $18
		WHERE transaction_id = $1 AND status = $2;
	`
	cmdTag, err := tx.Exec(ctx, updateQuery,
		m.TransactionID, string(expected), m.Status,
		m.ProofHandle, m.PaymentReference,
		m.ValidatedBy, m.ValidatedAt, m.RejectionReason, m.ProcessingStartedAt,
		m.DeliveredAt, m.DeliveryProofHandle, m.RecipientConfirmation, m.CompletedAt,
		m.CancelledAt, m.CancellationReason, m.CancelledBy,
		m.LastUpdatedAt, m.LastUpdatedBy,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update transaction "+m.TransactionID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM transactions WHERE transaction_id = $1);`, m.TransactionID).Scan(&exists); err != nil {
			return apperrors.NewAppError(500, "failed to check transaction existence "+m.TransactionID, err)
		}
		if !exists {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("%w: transaction %s is no longer %s", apperrors.ErrIllegalTransition, m.TransactionID, expected)
	}

	if effect != domain.EffectNone {
		if err := applyInventoryEffect(ctx, tx, m.TransactionID, effect, m.LastUpdatedAt, m.LastUpdatedBy); err != nil {
			return err
		}
	}

	if err := insertHistoryEntry(ctx, tx, entry); err != nil {
		return err
	}

	return r.Commit(ctx, tx)
}

// applyInventoryEffect commits or releases the still-RESERVED reservations of
// a transaction. Acting only on RESERVED rows makes both effects idempotent:
// a second commit or a release after a commit touches nothing.
func applyInventoryEffect(ctx context.Context, tx pgx.Tx, transactionID string, effect domain.InventoryEffect, updatedAt time.Time, updatedBy string) error {
	reservationQuery := `
		SELECT res.catalog_item_id, res.quantity
		FROM inventory_reservations res
		JOIN catalog_items ci ON ci.catalog_item_id = res.catalog_item_id
		WHERE res.transaction_id = $1 AND res.status = 'RESERVED'
		ORDER BY res.catalog_item_id
		FOR UPDATE OF ci, res;
	`
	rows, err := tx.Query(ctx, reservationQuery, transactionID)
	if err != nil {
		return apperrors.NewAppError(500, "failed to lock reservations for "+transactionID, err)
	}
	type reservation struct {
		itemID string
		qty    int64
	}
	reservations := []reservation{}
	for rows.Next() {
		var res reservation
		if err := rows.Scan(&res.itemID, &res.qty); err != nil {
			rows.Close()
			return apperrors.NewAppError(500, "failed to scan reservation for "+transactionID, err)
		}
		reservations = append(reservations, res)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return apperrors.NewAppError(500, "error iterating reservations for "+transactionID, err)
	}
	if len(reservations) == 0 {
		return nil
	}

	var counterQuery, newStatus string
	switch effect {
	case domain.EffectCommit:
		// The hold becomes a permanent deduction.
		counterQuery = `UPDATE catalog_items SET stock = stock - $2, reserved = reserved - $2, last_updated_at = $3, last_updated_by = $4 WHERE catalog_item_id = $1;`
		newStatus = "COMMITTED"
	case domain.EffectRelease:
		// The hold returns to availability; stock is untouched.
		counterQuery = `UPDATE catalog_items SET reserved = reserved - $2, last_updated_at = $3, last_updated_by = $4 WHERE catalog_item_id = $1;`
		newStatus = "RELEASED"
	default:
		return fmt.Errorf("unknown inventory effect %q", effect)
	}

	batch := &pgx.Batch{}
	for _, res := range reservations {
		batch.Queue(counterQuery, res.itemID, res.qty, updatedAt, updatedBy)
		batch.Queue(`UPDATE inventory_reservations SET status = $3 WHERE transaction_id = $1 AND catalog_item_id = $2;`,
			transactionID, res.itemID, newStatus)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return apperrors.NewAppError(500, "failed to apply inventory effect for "+transactionID, err)
	}
	return nil
}

func insertHistoryEntry(ctx context.Context, tx pgx.Tx, entry domain.StatusHistoryEntry) error {
	m := mapping.ToModelStatusHistoryEntry(entry)
	query := `
		INSERT INTO transaction_status_history (entry_id, transaction_id, previous_status, new_status, actor_id, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7);
	`
	_, err := tx.Exec(ctx, query,
		m.EntryID, m.TransactionID, m.PreviousStatus, m.NewStatus, m.ActorID, m.Reason, m.CreatedAt)
	if err != nil {
		return apperrors.NewAppError(500, "failed to insert status history entry for "+m.TransactionID, err)
	}
	return nil
}

// FindTransactionByID retrieves a transaction by its ID.
func (r *PgxTransactionRepository) FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE transaction_id = $1;`
	m, err := scanTransaction(r.Pool.QueryRow(ctx, query, transactionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find transaction by ID "+transactionID, err)
	}
	d := mapping.ToDomainTransaction(m)
	return &d, nil
}

// FindLineItemsByTransactionID retrieves the captured line items of a
// transaction with their bundle component snapshots.
func (r *PgxTransactionRepository) FindLineItemsByTransactionID(ctx context.Context, transactionID string) ([]domain.LineItem, error) {
	itemQuery := `
		SELECT line_item_id, transaction_id, catalog_item_id, quantity, unit_price_snapshot,
		       created_at, created_by, last_updated_at, last_updated_by
		FROM transaction_line_items
		WHERE transaction_id = $1
		ORDER BY created_at, line_item_id;
	`
	rows, err := r.Pool.Query(ctx, itemQuery, transactionID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query line items for "+transactionID, err)
	}
	defer rows.Close()

	modelItems := []models.LineItem{}
	for rows.Next() {
		var m models.LineItem
		if err := rows.Scan(
			&m.LineItemID, &m.TransactionID, &m.CatalogItemID, &m.Quantity, &m.UnitPriceSnapshot,
			&m.CreatedAt, &m.CreatedBy, &m.LastUpdatedAt, &m.LastUpdatedBy,
		); err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan line item for "+transactionID, err)
		}
		modelItems = append(modelItems, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating line items for "+transactionID, err)
	}
	if len(modelItems) == 0 {
		return []domain.LineItem{}, nil
	}

	lineItemIDs := make([]string, len(modelItems))
	for i, m := range modelItems {
		lineItemIDs[i] = m.LineItemID
	}
	componentQuery := `
		SELECT line_item_id, catalog_item_id, quantity_per_bundle, unit_price_snapshot, position
		FROM line_item_components
		WHERE line_item_id = ANY($1)
		ORDER BY line_item_id, position;
	`
	compRows, err := r.Pool.Query(ctx, componentQuery, lineItemIDs)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query line item components for "+transactionID, err)
	}
	defer compRows.Close()

	componentsByItem := make(map[string][]models.LineItemComponent)
	for compRows.Next() {
		var c models.LineItemComponent
		if err := compRows.Scan(&c.LineItemID, &c.CatalogItemID, &c.QuantityPerBundle, &c.UnitPriceSnapshot, &c.Position); err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan line item component for "+transactionID, err)
		}
		componentsByItem[c.LineItemID] = append(componentsByItem[c.LineItemID], c)
	}
	if err := compRows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating line item components for "+transactionID, err)
	}

	items := make([]domain.LineItem, len(modelItems))
	for i, m := range modelItems {
		items[i] = mapping.ToDomainLineItem(m, componentsByItem[m.LineItemID])
	}
	return items, nil
}

// listPage runs a cursor-paginated transaction query. The cursor is the
// (created_at, transaction_id) pair of the last item on the previous page.
func (r *PgxTransactionRepository) listPage(ctx context.Context, baseQuery string, args []interface{}, limit int, nextToken *string) ([]domain.Transaction, *string, error) {
	if limit <= 0 {
		limit = 20
	}
	fetchLimit := limit + 1

	orderByClause := `ORDER BY created_at DESC, transaction_id DESC`

	if nextToken != nil && *nextToken != "" {
		lastCreatedAt, lastID, decodeErr := pagination.DecodeToken(*nextToken)
		if decodeErr != nil {
			return nil, nil, apperrors.NewAppError(400, "invalid nextToken", decodeErr)
		}
		cursorClause := `AND (created_at, transaction_id) < ($` + strconv.Itoa(len(args)+1) + `, $` + strconv.Itoa(len(args)+2) + `)`
		args = append(args, lastCreatedAt, lastID)
		baseQuery = baseQuery + " " + cursorClause
	}

	query := baseQuery + " " + orderByClause + " LIMIT $" + strconv.Itoa(len(args)+1) + ";"
	args = append(args, fetchLimit)

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, apperrors.NewAppError(500, "failed to query transactions page", err)
	}
	defer rows.Close()

	modelTxns := make([]models.Transaction, 0, fetchLimit)
	for rows.Next() {
		m, scanErr := scanTransaction(rows)
		if scanErr != nil {
			return nil, nil, apperrors.NewAppError(500, "failed to scan transaction row", scanErr)
		}
		modelTxns = append(modelTxns, m)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, apperrors.NewAppError(500, "error iterating transaction rows", err)
	}

	var nextTokenVal *string
	results := modelTxns
	if len(modelTxns) > limit {
		last := modelTxns[limit-1]
		token := pagination.EncodeToken(last.CreatedAt, last.TransactionID)
		nextTokenVal = &token
		results = modelTxns[:limit]
	}

	return mapping.ToDomainTransactionSlice(results), nextTokenVal, nil
}

// ListTransactionsByOwner retrieves a page of an owner's transactions, newest first.
func (r *PgxTransactionRepository) ListTransactionsByOwner(ctx context.Context, ownerID string, limit int, nextToken *string) ([]domain.Transaction, *string, error) {
	baseQuery := `SELECT ` + transactionColumns + ` FROM transactions WHERE owner_id = $1`
	return r.listPage(ctx, baseQuery, []interface{}{ownerID}, limit, nextToken)
}

// ListTransactions retrieves a page of all transactions, optionally filtered
// by status, newest first.
func (r *PgxTransactionRepository) ListTransactions(ctx context.Context, status *domain.TransactionStatus, limit int, nextToken *string) ([]domain.Transaction, *string, error) {
	if status != nil {
		baseQuery := `SELECT ` + transactionColumns + ` FROM transactions WHERE status = $1`
		return r.listPage(ctx, baseQuery, []interface{}{string(*status)}, limit, nextToken)
	}
	baseQuery := `SELECT ` + transactionColumns + ` FROM transactions WHERE TRUE`
	return r.listPage(ctx, baseQuery, []interface{}{}, limit, nextToken)
}

// MaxReferenceSequence returns the highest sequence already claimed for a
// (prefix, year) pair by parsing the trailing segment of reference_number.
func (r *PgxTransactionRepository) MaxReferenceSequence(ctx context.Context, prefix string, year int) (int, error) {
	query := `
		SELECT COALESCE(MAX(split_part(reference_number, '-', 3)::int), 0)
		FROM transactions
		WHERE reference_number LIKE $1;
	`
	pattern := fmt.Sprintf("%s-%04d-%%", prefix, year)
	var max int
	if err := r.Pool.QueryRow(ctx, query, pattern).Scan(&max); err != nil {
		return 0, apperrors.NewAppError(500, "failed to read max reference sequence for "+pattern, err)
	}
	return max, nil
}

// FindHistoryByTransactionID returns the audit trail of a transaction, oldest first.
func (r *PgxTransactionRepository) FindHistoryByTransactionID(ctx context.Context, transactionID string) ([]domain.StatusHistoryEntry, error) {
	query := `
		SELECT entry_id, transaction_id, previous_status, new_status, actor_id, reason, created_at
		FROM transaction_status_history
		WHERE transaction_id = $1
		ORDER BY created_at, entry_id;
	`
	rows, err := r.Pool.Query(ctx, query, transactionID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query status history for "+transactionID, err)
	}
	defer rows.Close()

	entries := []domain.StatusHistoryEntry{}
	for rows.Next() {
		var m models.StatusHistoryEntry
		if err := rows.Scan(&m.EntryID, &m.TransactionID, &m.PreviousStatus, &m.NewStatus, &m.ActorID, &m.Reason, &m.CreatedAt); err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan status history entry for "+transactionID, err)
		}
		entries = append(entries, mapping.ToDomainStatusHistoryEntry(m))
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating status history for "+transactionID, err)
	}
	return entries, nil
}
