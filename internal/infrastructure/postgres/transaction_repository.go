package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

var _ repository.TransactionRepository = (*TransactionRepo)(nil)

// TransactionRepo libro de transacciones sobre PostgreSQL (usable con pool o tx).
type TransactionRepo struct {
	q Querier
}

// NewTransactionRepository construye el adaptador del libro. Pasar pool o tx (Querier).
func NewTransactionRepository(q Querier) *TransactionRepo {
	return &TransactionRepo{q: q}
}

const transactionColumns = `id, branch_id, product_id, operation, initial_quantity, operational_quantity,
	closing_quantity, user_email, date, seq, transfer_peer_id, note`

// GetLatest devuelve la cola del libro de (sucursal, producto) o nil si no hay historial.
func (r *TransactionRepo) GetLatest(ctx context.Context, branch, product string) (*entity.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
		FROM ledger_transactions
		WHERE branch_id = $1 AND product_id = $2
		ORDER BY seq DESC LIMIT 1`
	t, err := scanTransaction(r.q.QueryRow(ctx, query, branch, product))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get latest transaction: %w", err)
	}
	return t, nil
}

// Append inserta el registro. Un seq repetido o una segunda pierna del mismo traslado devuelven ErrConflict.
func (r *TransactionRepo) Append(ctx context.Context, t *entity.Transaction) error {
	query := `
		INSERT INTO ledger_transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.q.Exec(ctx, query,
		t.ID, t.Branch, t.Product, t.Operation.String(),
		t.InitialQuantity, t.OperationalQuantity, t.ClosingQuantity,
		t.User, t.Date, t.Seq, nullIfEmpty(t.TransferPeerID), t.Note,
	)
	if err != nil {
		return wrap("insert transaction", err)
	}
	return nil
}

// FindByPeer busca la pierna de un traslado en la sucursal.
func (r *TransactionRepo) FindByPeer(ctx context.Context, branch, peerID string, op entity.Operation) (*entity.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
		FROM ledger_transactions
		WHERE branch_id = $1 AND transfer_peer_id = $2 AND operation = $3`
	t, err := scanTransaction(r.q.QueryRow(ctx, query, branch, peerID, op.String()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find transfer leg: %w", err)
	}
	return t, nil
}

// ListByBranch historial de la sucursal, más reciente primero, con filtros opcionales.
func (r *TransactionRepo) ListByBranch(ctx context.Context, branch string, filter entity.TransactionFilter) ([]*entity.Transaction, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + transactionColumns + ` FROM ledger_transactions WHERE branch_id = $1`)
	args := []any{branch}
	add := func(cond string, v any) {
		args = append(args, v)
		fmt.Fprintf(&sb, " AND %s $%d", cond, len(args))
	}
	if filter.User != "" {
		add("user_email =", filter.User)
	}
	if filter.Product != "" {
		add("product_id =", filter.Product)
	}
	if filter.From != nil {
		add("date >=", *filter.From)
	}
	if filter.To != nil {
		add("date <=", *filter.To)
	}
	sb.WriteString(" ORDER BY date DESC, seq DESC")

	rows, err := r.q.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()
	list := make([]*entity.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

func scanTransaction(row pgx.Row) (*entity.Transaction, error) {
	var (
		t    entity.Transaction
		op   string
		peer *string
	)
	if err := row.Scan(
		&t.ID, &t.Branch, &t.Product, &op, &t.InitialQuantity, &t.OperationalQuantity,
		&t.ClosingQuantity, &t.User, &t.Date, &t.Seq, &peer, &t.Note,
	); err != nil {
		return nil, err
	}
	parsed, err := entity.ParseOperation(op)
	if err != nil {
		return nil, err
	}
	t.Operation = parsed
	t.TransferPeerID = derefString(peer)
	return &t, nil
}
