package transfer

import (
	"context"
	"fmt"

	"github.com/jhoicas/inventario-ledger/internal/application/ledger"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// ReconcileReport acciones aplicadas por Reconcile sobre un traslado.
type ReconcileReport struct {
	RequestID              string
	RecreatedBranch        string
	AlignedBranch          string
	CompletedLeg           entity.Operation
	CompletedTransactionID string
	Promoted               bool
	State                  entity.RequestState
}

// Reconcile repara un traslado interrumpido:
//   - recrea la mitad faltante de la solicitud a partir de su espejo;
//   - alinea una mitad PENDING con su par ya terminal;
//   - completa la pierna que falta en el libro (misma cantidad y TransferPeerID);
//   - con ambas piernas registradas, promueve el par PENDING a ACCEPTED.
//
// Es idempotente: sobre un traslado sano no cambia nada.
func (w *Workflow) Reconcile(ctx context.Context, id, to, from string) (*ReconcileReport, error) {
	if id == "" || to == "" || from == "" || to == from {
		return nil, domain.ErrInvalidInput
	}
	unlock, err := w.locker.Lock(ctx, requestKey(id))
	if err != nil {
		return nil, err
	}
	defer unlock()

	incoming, err := w.requests.Get(ctx, to, id)
	if err != nil {
		return nil, err
	}
	outgoing, err := w.requests.Get(ctx, from, id)
	if err != nil {
		return nil, err
	}
	if incoming == nil && outgoing == nil {
		return nil, fmt.Errorf("%w: solicitud de traslado %s", domain.ErrNotFound, id)
	}
	report := &ReconcileReport{RequestID: id}

	if incoming == nil || outgoing == nil {
		existing := incoming
		if existing == nil {
			existing = outgoing
		}
		owner, err := w.branches.GetByID(ctx, existing.Branch)
		if err != nil {
			return nil, err
		}
		if owner == nil {
			return nil, fmt.Errorf("%w: sucursal %s", domain.ErrNotFound, existing.Branch)
		}
		mirror := existing.Mirror(owner.Name)
		if err := w.requests.Create(ctx, mirror); err != nil {
			return nil, err
		}
		report.RecreatedBranch = mirror.Branch
		if incoming == nil {
			incoming = mirror
		} else {
			outgoing = mirror
		}
	}
	if incoming.Role != entity.RoleIncoming || incoming.PeerBranch != from {
		return nil, fmt.Errorf("%w: solicitud %s no corresponde a %s <- %s", domain.ErrNotFound, id, to, from)
	}

	if incoming.State != outgoing.State {
		stale, target := incoming, outgoing.State
		if incoming.State.Terminal() {
			stale, target = outgoing, incoming.State
		}
		if stale.State.Terminal() {
			return report, fmt.Errorf("%w: %s tiene estados terminales distintos", domain.ErrInconsistentRequestPair, id)
		}
		if err := w.requests.UpdateState(ctx, stale.Branch, id, stale.State, target, w.now()); err != nil {
			return report, err
		}
		stale.State = target
		report.AlignedBranch = stale.Branch
	}
	state := incoming.State
	report.State = state

	outTx, err := w.transactions.FindByPeer(ctx, from, id, entity.OperationTransferOut)
	if err != nil {
		return report, err
	}
	inTx, err := w.transactions.FindByPeer(ctx, to, id, entity.OperationTransferIn)
	if err != nil {
		return report, err
	}
	if outTx == nil && inTx == nil {
		w.logReconcile(report)
		return report, nil
	}
	if state == entity.RequestRejected {
		return report, fmt.Errorf("%w: %s rechazada con piernas en el libro", domain.ErrInconsistentRequestPair, id)
	}

	if outTx == nil || inTx == nil {
		cmd := ledger.AppendCommand{
			Branch:         to,
			Product:        incoming.Product,
			Operation:      entity.OperationTransferIn,
			User:           incoming.User,
			Note:           incoming.Note,
			TransferPeerID: id,
		}
		if outTx != nil {
			cmd.OperationalQuantity = outTx.OperationalQuantity
		} else {
			cmd.Branch = from
			cmd.Operation = entity.OperationTransferOut
			cmd.OperationalQuantity = inTx.OperationalQuantity
		}
		res, err := w.ledger.Append(ctx, cmd)
		if res == nil {
			return report, err
		}
		report.CompletedLeg = cmd.Operation
		report.CompletedTransactionID = res.TransactionID
	}

	if state == entity.RequestPending {
		if err := w.flipPair(ctx, incoming, outgoing, entity.RequestPending, entity.RequestAccepted); err != nil {
			return report, err
		}
		report.Promoted = true
		report.State = entity.RequestAccepted
	}
	w.logReconcile(report)
	return report, nil
}

func (w *Workflow) logReconcile(r *ReconcileReport) {
	ev := w.log.Info().
		Str("transfer_id", r.RequestID).
		Str("recreated_branch", r.RecreatedBranch).
		Str("aligned_branch", r.AlignedBranch).
		Bool("promoted", r.Promoted).
		Stringer("state", r.State)
	if r.CompletedLeg != 0 {
		ev = ev.Stringer("completed_leg", r.CompletedLeg).Str("completed_transaction_id", r.CompletedTransactionID)
	}
	ev.Msg("traslado reconciliado")
}
