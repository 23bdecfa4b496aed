package memory

import (
	"context"

	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

// TxRunner ejecuta el callback directamente sobre el libro en memoria.
// La serialización por clave la aporta el KeyLocker; TransactionRepo.Append rechaza
// cualquier Seq fuera de orden, así dos escritores concurrentes no pueden bifurcar la cadena.
type TxRunner struct {
	repo *TransactionRepo
}

// NewTxRunner construye el runner sobre la tienda.
func NewTxRunner(s *Store) *TxRunner {
	return &TxRunner{repo: NewTransactionRepository(s)}
}

func (r *TxRunner) RunForKey(_ context.Context, _, _ string, fn func(txRepo repository.TransactionRepository) error) error {
	return fn(r.repo)
}
