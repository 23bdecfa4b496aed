package repository

import (
	"context"
	"time"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// TransferRequestRepository puerto de las solicitudes de traslado, una colección por sucursal.
// Cada mitad del par espejo se escribe por separado; no hay transacción entre sucursales.
type TransferRequestRepository interface {
	Create(ctx context.Context, req *entity.TransferRequest) error
	// Get devuelve la mitad guardada en la sucursal o nil si no existe.
	Get(ctx context.Context, branch, id string) (*entity.TransferRequest, error)
	// UpdateState cambia el estado solo si la mitad sigue en from (compare-and-set).
	// Otro estado actual: ErrInvalidTransition. Mitad inexistente: ErrNotFound.
	UpdateState(ctx context.Context, branch, id string, from, to entity.RequestState, at time.Time) error
	ListByBranch(ctx context.Context, branch string, state entity.RequestState) ([]*entity.TransferRequest, error)
}
