package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jhoicas/inventario-ledger/internal/application/ledger"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

var _ ledger.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// RunForKey inicia una transacción, toma pg_advisory_xact_lock sobre la clave (sucursal, producto),
// ejecuta fn con el libro atado a la tx y hace Commit o Rollback. El lock se libera con la transacción,
// así dos réplicas del servicio no pueden leer la misma cola y anexar a la vez.
func (r *TxRunner) RunForKey(ctx context.Context, branch, product string, fn func(txRepo repository.TransactionRepository) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, ledger.Key(branch, product)); err != nil {
		return fmt.Errorf("advisory lock: %w", err)
	}

	if err := fn(NewTransactionRepository(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return wrap("commit transaction", err)
	}
	return nil
}
