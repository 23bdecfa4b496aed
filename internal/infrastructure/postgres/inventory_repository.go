package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

var _ repository.InventoryRepository = (*InventoryRepo)(nil)

// InventoryRepo proyección de inventario sobre PostgreSQL.
type InventoryRepo struct {
	q Querier
}

// NewInventoryRepository construye el adaptador de la proyección. Acepta pool o tx (Querier).
func NewInventoryRepository(q Querier) *InventoryRepo {
	return &InventoryRepo{q: q}
}

const inventoryColumns = `branch_id, product_id, available_quantity, threshold, is_below_threshold,
	category, unit, updated_at`

// Get obtiene la fila proyectada o nil si el producto nunca se movió en la sucursal.
func (r *InventoryRepo) Get(ctx context.Context, branch, product string) (*entity.InventoryItem, error) {
	query := `SELECT ` + inventoryColumns + ` FROM inventory_items WHERE branch_id = $1 AND product_id = $2`
	item, err := scanInventoryItem(r.q.QueryRow(ctx, query, branch, product))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get inventory item: %w", err)
	}
	return item, nil
}

// Upsert inserta o reemplaza la fila (por sucursal y producto).
func (r *InventoryRepo) Upsert(ctx context.Context, item *entity.InventoryItem) error {
	query := `
		INSERT INTO inventory_items (` + inventoryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (branch_id, product_id)
		DO UPDATE SET available_quantity = EXCLUDED.available_quantity,
			threshold = EXCLUDED.threshold,
			is_below_threshold = EXCLUDED.is_below_threshold,
			category = EXCLUDED.category,
			unit = EXCLUDED.unit,
			updated_at = EXCLUDED.updated_at`
	_, err := r.q.Exec(ctx, query,
		item.Branch, item.Product, item.AvailableQuantity, item.Threshold, item.IsBelowThreshold,
		item.Category, item.Unit, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert inventory item: %w", err)
	}
	return nil
}

// ListByBranch lista la proyección de la sucursal por cantidad disponible ascendente.
func (r *InventoryRepo) ListByBranch(ctx context.Context, branch string, belowThresholdOnly bool) ([]*entity.InventoryItem, error) {
	query := `SELECT ` + inventoryColumns + `
		FROM inventory_items
		WHERE branch_id = $1 AND ($2 = false OR is_below_threshold)
		ORDER BY available_quantity ASC, product_id ASC`
	rows, err := r.q.Query(ctx, query, branch, belowThresholdOnly)
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	defer rows.Close()
	list := make([]*entity.InventoryItem, 0)
	for rows.Next() {
		item, err := scanInventoryItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan inventory item: %w", err)
		}
		list = append(list, item)
	}
	return list, rows.Err()
}

func scanInventoryItem(row pgx.Row) (*entity.InventoryItem, error) {
	var i entity.InventoryItem
	err := row.Scan(
		&i.Branch, &i.Product, &i.AvailableQuantity, &i.Threshold, &i.IsBelowThreshold,
		&i.Category, &i.Unit, &i.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &i, nil
}
