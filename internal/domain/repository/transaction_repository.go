package repository

import (
	"context"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// TransactionRepository puerto del libro de transacciones por sucursal (solo anexado).
// Usado dentro de TxRunner.RunForKey para garantizar la linealización por (sucursal, producto).
type TransactionRepository interface {
	// GetLatest devuelve el último registro del producto en la sucursal (mayor Seq) o nil si no hay historial.
	GetLatest(ctx context.Context, branch, product string) (*entity.Transaction, error)
	// Append persiste un registro nuevo; asigna ID si viene vacío.
	Append(ctx context.Context, tx *entity.Transaction) error
	// FindByPeer busca la pierna de un traslado ya registrada en la sucursal (clave de idempotencia).
	FindByPeer(ctx context.Context, branch, peerID string, op entity.Operation) (*entity.Transaction, error)
	// ListByBranch devuelve el historial de la sucursal, más reciente primero.
	ListByBranch(ctx context.Context, branch string, filter entity.TransactionFilter) ([]*entity.Transaction, error)
}
