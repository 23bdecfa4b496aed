package repository

import (
	"context"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// InventoryRepository puerto de la proyección de inventario (caché derivada del libro).
type InventoryRepository interface {
	Get(ctx context.Context, branch, product string) (*entity.InventoryItem, error)
	Upsert(ctx context.Context, item *entity.InventoryItem) error
	// ListByBranch ordena por AvailableQuantity ascendente y luego por producto.
	ListByBranch(ctx context.Context, branch string, belowThresholdOnly bool) ([]*entity.InventoryItem, error)
}
