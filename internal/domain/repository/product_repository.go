package repository

import (
	"context"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// ProductRepository consulta de metadatos de producto (categoría, unidad, umbrales por sucursal).
type ProductRepository interface {
	// GetByID devuelve nil si el producto no existe.
	GetByID(ctx context.Context, id string) (*entity.Product, error)
}
