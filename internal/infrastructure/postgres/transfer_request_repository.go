package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

var _ repository.TransferRequestRepository = (*TransferRequestRepo)(nil)

// TransferRequestRepo mitades de solicitudes de traslado, clave (sucursal, id).
type TransferRequestRepo struct {
	q Querier
}

// NewTransferRequestRepository construye el adaptador de solicitudes.
func NewTransferRequestRepository(q Querier) *TransferRequestRepo {
	return &TransferRequestRepo{q: q}
}

const transferRequestColumns = `id, branch_id, role, peer_branch_id, peer_branch_name, product_id,
	product_name, quantity, note, user_email, state, date`

// Create persiste una mitad; si ya existe en la sucursal devuelve ErrConflict.
func (r *TransferRequestRepo) Create(ctx context.Context, req *entity.TransferRequest) error {
	query := `
		INSERT INTO transfer_requests (` + transferRequestColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.q.Exec(ctx, query,
		req.ID, req.Branch, req.Role.String(), req.PeerBranch, req.PeerBranchName, req.Product,
		req.ProductName, req.Quantity, req.Note, req.User, req.State.String(), req.Date,
	)
	if err != nil {
		return wrap("insert transfer request", err)
	}
	return nil
}

// Get obtiene la mitad guardada en la sucursal o nil.
func (r *TransferRequestRepo) Get(ctx context.Context, branch, id string) (*entity.TransferRequest, error) {
	query := `SELECT ` + transferRequestColumns + ` FROM transfer_requests WHERE branch_id = $1 AND id = $2`
	req, err := scanTransferRequest(r.q.QueryRow(ctx, query, branch, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get transfer request: %w", err)
	}
	return req, nil
}

// UpdateState cambia el estado de una mitad solo si sigue en from.
// Sin filas afectadas: ErrNotFound si la mitad no existe, ErrInvalidTransition si ya cambió.
func (r *TransferRequestRepo) UpdateState(ctx context.Context, branch, id string, from, to entity.RequestState, at time.Time) error {
	if _, err := from.TransitionTo(to); err != nil {
		return err
	}
	query := `UPDATE transfer_requests SET state = $4, date = $5 WHERE branch_id = $1 AND id = $2 AND state = $3`
	cmd, err := r.q.Exec(ctx, query, branch, id, from.String(), to.String(), at)
	if err != nil {
		return fmt.Errorf("update transfer request: %w", err)
	}
	if cmd.RowsAffected() > 0 {
		return nil
	}
	current, err := r.Get(ctx, branch, id)
	if err != nil {
		return err
	}
	if current == nil {
		return fmt.Errorf("%w: solicitud %s en %s", domain.ErrNotFound, id, branch)
	}
	return fmt.Errorf("%w: solicitud %s en %s está %s, se esperaba %s",
		domain.ErrInvalidTransition, id, branch, current.State, from)
}

// ListByBranch mitades de la sucursal en un estado, más recientes primero.
func (r *TransferRequestRepo) ListByBranch(ctx context.Context, branch string, state entity.RequestState) ([]*entity.TransferRequest, error) {
	query := `SELECT ` + transferRequestColumns + `
		FROM transfer_requests WHERE branch_id = $1 AND state = $2 ORDER BY date DESC`
	rows, err := r.q.Query(ctx, query, branch, state.String())
	if err != nil {
		return nil, fmt.Errorf("list transfer requests: %w", err)
	}
	defer rows.Close()
	list := make([]*entity.TransferRequest, 0)
	for rows.Next() {
		req, err := scanTransferRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transfer request: %w", err)
		}
		list = append(list, req)
	}
	return list, rows.Err()
}

func scanTransferRequest(row pgx.Row) (*entity.TransferRequest, error) {
	var (
		req   entity.TransferRequest
		role  string
		state string
	)
	err := row.Scan(
		&req.ID, &req.Branch, &role, &req.PeerBranch, &req.PeerBranchName, &req.Product,
		&req.ProductName, &req.Quantity, &req.Note, &req.User, &state, &req.Date,
	)
	if err != nil {
		return nil, err
	}
	if req.Role, err = entity.ParseRequestRole(role); err != nil {
		return nil, err
	}
	if req.State, err = entity.ParseRequestState(state); err != nil {
		return nil, err
	}
	return &req, nil
}
