package pgsql

import (
	"context"
	"errors"
	"fmt"
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

type PgxCatalogRepository struct {
	BaseRepository
}

func newPgxCatalogRepository(pool *pgxpool.Pool) portsrepo.CatalogRepositoryFacade {
	return &PgxCatalogRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.CatalogRepositoryFacade = (*PgxCatalogRepository)(nil)

const catalogItemColumns = `
	catalog_item_id, name, type, unit_price, currency_code, stock, reserved, is_active,
	created_at, created_by, last_updated_at, last_updated_by`

func scanCatalogItem(row rowScanner) (models.CatalogItem, error) {
	var m models.CatalogItem
	err := row.Scan(
		&m.CatalogItemID, &m.Name, &m.Type, &m.UnitPrice, &m.CurrencyCode, &m.Stock, &m.Reserved, &m.IsActive,
		&m.CreatedAt, &m.CreatedBy, &m.LastUpdatedAt, &m.LastUpdatedBy,
	)
	return m, err
}

// SaveCatalogItem persists a catalog item and its bundle components in one
// database transaction.
func (r *PgxCatalogRepository) SaveCatalogItem(ctx context.Context, item domain.CatalogItem) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	m := mapping.ToModelCatalogItem(item)
	itemQuery := `
		INSERT INTO catalog_items (` + catalogItemColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);
	`
	_, err = tx.Exec(ctx, itemQuery,
		m.CatalogItemID, m.Name, m.Type, m.UnitPrice, m.CurrencyCode, m.Stock, m.Reserved, m.IsActive,
		m.CreatedAt, m.CreatedBy, m.LastUpdatedAt, m.LastUpdatedBy,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return apperrors.ErrDuplicate
		}
		return apperrors.NewAppError(500, "failed to insert catalog item "+m.CatalogItemID, err)
	}

	if len(item.Components) > 0 {
		batch := &pgx.Batch{}
		componentQuery := `
			INSERT INTO bundle_components (bundle_id, catalog_item_id, quantity_per_bundle, position)
			VALUES ($1, $2, $3, $4);
		`
		for _, comp := range item.Components {
			mc := mapping.ToModelBundleComponent(comp)
			batch.Queue(componentQuery, mc.BundleID, mc.CatalogItemID, mc.QuantityPerBundle, mc.Position)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return apperrors.NewAppError(500, "failed to insert bundle components for "+m.CatalogItemID, err)
		}
	}

	return r.Commit(ctx, tx)
}

// FindCatalogItemByID retrieves one catalog item with its components.
func (r *PgxCatalogRepository) FindCatalogItemByID(ctx context.Context, catalogItemID string) (*domain.CatalogItem, error) {
	items, err := r.FindCatalogItemsByIDs(ctx, []string{catalogItemID})
	if err != nil {
		return nil, err
	}
	item, ok := items[catalogItemID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &item, nil
}

// FindCatalogItemsByIDs retrieves a set of catalog items keyed by ID; missing
// IDs are simply absent from the map.
func (r *PgxCatalogRepository) FindCatalogItemsByIDs(ctx context.Context, catalogItemIDs []string) (map[string]domain.CatalogItem, error) {
	if len(catalogItemIDs) == 0 {
		return map[string]domain.CatalogItem{}, nil
	}

	query := `SELECT ` + catalogItemColumns + ` FROM catalog_items WHERE catalog_item_id = ANY($1);`
	rows, err := r.Pool.Query(ctx, query, catalogItemIDs)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query catalog items", err)
	}
	defer rows.Close()

	modelItems := map[string]models.CatalogItem{}
	for rows.Next() {
		m, scanErr := scanCatalogItem(rows)
		if scanErr != nil {
			return nil, apperrors.NewAppError(500, "failed to scan catalog item row", scanErr)
		}
		modelItems[m.CatalogItemID] = m
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating catalog item rows", err)
	}

	componentQuery := `
		SELECT bundle_id, catalog_item_id, quantity_per_bundle, position
		FROM bundle_components
		WHERE bundle_id = ANY($1)
		ORDER BY bundle_id, position;
	`
	compRows, err := r.Pool.Query(ctx, componentQuery, catalogItemIDs)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query bundle components", err)
	}
	defer compRows.Close()

	componentsByBundle := map[string][]models.BundleComponent{}
	for compRows.Next() {
		var c models.BundleComponent
		if err := compRows.Scan(&c.BundleID, &c.CatalogItemID, &c.QuantityPerBundle, &c.Position); err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan bundle component row", err)
		}
		componentsByBundle[c.BundleID] = append(componentsByBundle[c.BundleID], c)
	}
	if err := compRows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating bundle component rows", err)
	}

	result := make(map[string]domain.CatalogItem, len(modelItems))
	for id, m := range modelItems {
		result[id] = mapping.ToDomainCatalogItem(m, componentsByBundle[id])
	}
	return result, nil
}

// ListCatalogItems retrieves a cursor-paginated page of catalog items, newest first.
func (r *PgxCatalogRepository) ListCatalogItems(ctx context.Context, limit int, nextToken *string) ([]domain.CatalogItem, *string, error) {
	if limit <= 0 {
		limit = 20
	}
	fetchLimit := limit + 1

	baseQuery := `SELECT ` + catalogItemColumns + ` FROM catalog_items WHERE TRUE`
	orderByClause := `ORDER BY created_at DESC, catalog_item_id DESC`

	args := []interface{}{}
	if nextToken != nil && *nextToken != "" {
		lastCreatedAt, lastID, decodeErr := pagination.DecodeToken(*nextToken)
		if decodeErr != nil {
			return nil, nil, apperrors.NewAppError(400, "invalid nextToken", decodeErr)
		}
		baseQuery += ` AND (created_at, catalog_item_id) < ($1, $2)`
		args = append(args, lastCreatedAt, lastID)
	}
	query := baseQuery + " " + orderByClause + " LIMIT $" + strconv.Itoa(len(args)+1) + ";"
	args = append(args, fetchLimit)

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, apperrors.NewAppError(500, "failed to query catalog items page", err)
	}
	defer rows.Close()

	modelItems := make([]models.CatalogItem, 0, fetchLimit)
	for rows.Next() {
		m, scanErr := scanCatalogItem(rows)
		if scanErr != nil {
			return nil, nil, apperrors.NewAppError(500, "failed to scan catalog item row", scanErr)
		}
		modelItems = append(modelItems, m)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, apperrors.NewAppError(500, "error iterating catalog item rows", err)
	}

	var nextTokenVal *string
	results := modelItems
	if len(modelItems) > limit {
		last := modelItems[limit-1]
		token := pagination.EncodeToken(last.CreatedAt, last.CatalogItemID)
		nextTokenVal = &token
		results = modelItems[:limit]
	}

	bundleIDs := make([]string, 0, len(results))
	for _, m := range results {
		if m.Type == models.CatalogItemType(domain.ItemBundle) {
			bundleIDs = append(bundleIDs, m.CatalogItemID)
		}
	}
	componentsByBundle := map[string][]models.BundleComponent{}
	if len(bundleIDs) > 0 {
		componentQuery := `
			SELECT bundle_id, catalog_item_id, quantity_per_bundle, position
			FROM bundle_components
			WHERE bundle_id = ANY($1)
			ORDER BY bundle_id, position;
		`
		compRows, err := r.Pool.Query(ctx, componentQuery, bundleIDs)
		if err != nil {
			return nil, nil, apperrors.NewAppError(500, "failed to query bundle components page", err)
		}
		defer compRows.Close()
		for compRows.Next() {
			var c models.BundleComponent
			if err := compRows.Scan(&c.BundleID, &c.CatalogItemID, &c.QuantityPerBundle, &c.Position); err != nil {
				return nil, nil, apperrors.NewAppError(500, "failed to scan bundle component row", err)
			}
			componentsByBundle[c.BundleID] = append(componentsByBundle[c.BundleID], c)
		}
		if err := compRows.Err(); err != nil {
			return nil, nil, apperrors.NewAppError(500, "error iterating bundle component rows", err)
		}
	}

	items := make([]domain.CatalogItem, len(results))
	for i, m := range results {
		items[i] = mapping.ToDomainCatalogItem(m, componentsByBundle[m.CatalogItemID])
	}
	return items, nextTokenVal, nil
}

// AdjustStock changes on-hand stock by delta. The guard keeps stock covering
// outstanding reservations, so a negative adjustment can never strand a hold.
func (r *PgxCatalogRepository) AdjustStock(ctx context.Context, catalogItemID string, delta int64, updatedBy string) error {
	query := `
		UPDATE catalog_items
		SET stock = stock + $2, last_updated_at = $3, last_updated_by = $4
		WHERE catalog_item_id = $1 AND stock + $2 >= reserved AND stock + $2 >= 0;
	`
	cmdTag, err := r.Pool.Exec(ctx, query, catalogItemID, delta, time.Now().UTC(), updatedBy)
	if err != nil {
		return apperrors.NewAppError(500, "failed to adjust stock for "+catalogItemID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		var exists bool
		if err := r.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM catalog_items WHERE catalog_item_id = $1);`, catalogItemID).Scan(&exists); err != nil {
			return apperrors.NewAppError(500, "failed to check catalog item existence "+catalogItemID, err)
		}
		if !exists {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("%w: adjustment of %d would leave stock below reservations", apperrors.ErrConflict, delta)
	}
	return nil
}
