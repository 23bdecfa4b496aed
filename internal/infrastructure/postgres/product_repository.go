package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

// ProductRepo metadatos de producto y umbrales por sucursal sobre PostgreSQL.
type ProductRepo struct {
	q Querier
}

// NewProductRepository construye el adaptador de persistencia para productos. Pasar pool o tx (Querier).
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{q: q}
}

// GetByID obtiene el producto con sus umbrales o nil.
func (r *ProductRepo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	var p entity.Product
	err := r.q.QueryRow(ctx, `SELECT id, name, category, unit FROM products WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Category, &p.Unit)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	rows, err := r.q.Query(ctx, `SELECT branch_id, threshold FROM product_thresholds WHERE product_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get product thresholds: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			branch    string
			threshold int64
		)
		if err := rows.Scan(&branch, &threshold); err != nil {
			return nil, fmt.Errorf("scan product threshold: %w", err)
		}
		if p.Thresholds == nil {
			p.Thresholds = make(map[string]int64)
		}
		p.Thresholds[branch] = threshold
	}
	return &p, rows.Err()
}
