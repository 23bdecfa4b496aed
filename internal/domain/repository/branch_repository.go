package repository

import (
	"context"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// BranchRepository consulta de sucursales (el CRUD vive fuera del núcleo).
type BranchRepository interface {
	// GetByID devuelve nil si la sucursal no existe.
	GetByID(ctx context.Context, id string) (*entity.Branch, error)
	List(ctx context.Context) ([]*entity.Branch, error)
}
