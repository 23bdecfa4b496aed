package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/inventario-ledger/internal/application/ledger"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
	"github.com/jhoicas/inventario-ledger/pkg/logger"
)

// LedgerAppender escritura en el libro de una sucursal (implementado por ledger.Writer).
type LedgerAppender interface {
	Append(ctx context.Context, cmd ledger.AppendCommand) (*ledger.AppendResult, error)
}

// Workflow coordina traslados entre dos libros de sucursal sin transacción compartida.
// Una solicitud es un par espejo de documentos (uno por sucursal) con el mismo ID y estado
// PENDING -> ACCEPTED | REJECTED. Aceptar escribe TransferOut en origen y TransferIn en destino,
// ambos con TransferPeerID = ID de la solicitud, y solo después cambia el estado del par.
// Accept, Reject y Reconcile de una misma solicitud se serializan con el KeyLocker.
type Workflow struct {
	requests     repository.TransferRequestRepository
	transactions repository.TransactionRepository
	branches     repository.BranchRepository
	products     repository.ProductRepository
	ledger       LedgerAppender
	locker       ledger.KeyLocker
	log          *logger.Logger
	now          func() time.Time
}

// NewWorkflow construye el flujo de traslados.
func NewWorkflow(
	requests repository.TransferRequestRepository,
	transactions repository.TransactionRepository,
	branches repository.BranchRepository,
	products repository.ProductRepository,
	appender LedgerAppender,
	locker ledger.KeyLocker,
	log *logger.Logger,
) *Workflow {
	return &Workflow{
		requests:     requests,
		transactions: transactions,
		branches:     branches,
		products:     products,
		ledger:       appender,
		locker:       locker,
		log:          log.Component("transfer_workflow"),
		now:          time.Now,
	}
}

// RequestInput entrada de RequestTransfer: ToBranch pide Quantity de Product a FromBranch.
type RequestInput struct {
	ToBranch   string
	FromBranch string
	Product    string
	Quantity   int64
	Note       string
	User       string
}

// AcceptInput entrada de AcceptTransfer. Quantity es la cantidad confirmada por el operador;
// cero significa la cantidad solicitada.
type AcceptInput struct {
	RequestID  string
	ToBranch   string
	FromBranch string
	Quantity   int64
	User       string
}

// RejectInput entrada de RejectTransfer.
type RejectInput struct {
	RequestID  string
	ToBranch   string
	FromBranch string
	User       string
}

// MoveInput entrada de MoveTransfer (traslado directo sin solicitud).
type MoveInput struct {
	ToBranch   string
	FromBranch string
	Product    string
	Quantity   int64
	Note       string
	User       string
}

// Result IDs de las dos piernas registradas.
type Result struct {
	FromTransactionID string
	ToTransactionID   string
}

// Request crea el par espejo en PENDING: primero la mitad entrante (destino), luego la saliente (origen).
// Si la segunda escritura falla queda una mitad huérfana; se devuelve el ID junto con
// ErrInconsistentRequestPair para que Reconcile la repare.
func (w *Workflow) Request(ctx context.Context, in RequestInput) (string, error) {
	if in.ToBranch == "" || in.FromBranch == "" || in.Product == "" || in.ToBranch == in.FromBranch {
		return "", domain.ErrInvalidInput
	}
	if in.Quantity <= 0 {
		return "", fmt.Errorf("%w: la cantidad solicitada debe ser positiva", domain.ErrInvalidQuantity)
	}
	toB, fromB, err := w.loadBranches(ctx, in.ToBranch, in.FromBranch)
	if err != nil {
		return "", err
	}
	product, err := w.loadProduct(ctx, in.Product)
	if err != nil {
		return "", err
	}

	incoming := &entity.TransferRequest{
		ID:             uuid.New().String(),
		Branch:         toB.ID,
		Role:           entity.RoleIncoming,
		PeerBranch:     fromB.ID,
		PeerBranchName: fromB.Name,
		Product:        product.ID,
		ProductName:    product.Name,
		Quantity:       in.Quantity,
		Note:           in.Note,
		User:           in.User,
		State:          entity.RequestPending,
		Date:           w.now(),
	}
	if err := w.requests.Create(ctx, incoming); err != nil {
		return "", err
	}
	outgoing := incoming.Mirror(toB.Name)
	if err := w.requests.Create(ctx, outgoing); err != nil {
		w.log.Error().Err(err).
			Str("transfer_id", incoming.ID).
			Str("orphan_branch", incoming.Branch).
			Str("missing_branch", outgoing.Branch).
			Str("integrity", "inconsistent_request_pair").
			Msg("solicitud de traslado huérfana: falló la copia en la sucursal origen")
		return incoming.ID, fmt.Errorf("%w: %s sin copia en %s: %v",
			domain.ErrInconsistentRequestPair, incoming.ID, outgoing.Branch, err)
	}

	w.log.Info().
		Str("transfer_id", incoming.ID).
		Str("to_branch", toB.ID).
		Str("from_branch", fromB.ID).
		Str("product", product.ID).
		Int64("quantity", in.Quantity).
		Msg("solicitud de traslado creada en estado PENDING")
	return incoming.ID, nil
}

// Accept ejecuta el traslado solicitado. Las piernas se escriben en orden: TransferOut en origen
// (puede fallar por stock insuficiente sin efectos) y luego TransferIn en destino. Si la segunda
// falla después de confirmar la primera devuelve *domain.UnbalancedTransferError.
// Reintentar un Accept interrumpido no duplica piernas: cada una se busca antes por TransferPeerID.
func (w *Workflow) Accept(ctx context.Context, in AcceptInput) (*Result, error) {
	if in.RequestID == "" || in.ToBranch == "" || in.FromBranch == "" {
		return nil, domain.ErrInvalidInput
	}
	if in.Quantity < 0 {
		return nil, fmt.Errorf("%w: cantidad confirmada negativa", domain.ErrInvalidQuantity)
	}
	unlock, err := w.locker.Lock(ctx, requestKey(in.RequestID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	incoming, outgoing, err := w.pendingPair(ctx, in.RequestID, in.ToBranch, in.FromBranch, "aceptar")
	if err != nil {
		return nil, err
	}
	next, err := incoming.State.TransitionTo(entity.RequestAccepted)
	if err != nil {
		return nil, err
	}

	qty := in.Quantity
	if qty == 0 {
		qty = incoming.Quantity
	}
	res, legErr := w.writeLegs(ctx, legs{
		peerID:   in.RequestID,
		from:     in.FromBranch,
		to:       in.ToBranch,
		product:  incoming.Product,
		quantity: qty,
		note:     incoming.Note,
		outUser:  in.User,
		inUser:   incoming.User,
	})
	if res == nil || res.ToTransactionID == "" {
		return res, legErr
	}

	if err := w.flipPair(ctx, incoming, outgoing, entity.RequestPending, next); err != nil {
		return res, errors.Join(legErr, err)
	}
	w.log.Info().
		Str("transfer_id", in.RequestID).
		Str("from_transaction_id", res.FromTransactionID).
		Str("to_transaction_id", res.ToTransactionID).
		Int64("quantity", qty).
		Msg("traslado aceptado")
	return res, legErr
}

// Reject marca ambas mitades como REJECTED. No escribe en el libro; es terminal.
func (w *Workflow) Reject(ctx context.Context, in RejectInput) error {
	if in.RequestID == "" || in.ToBranch == "" || in.FromBranch == "" {
		return domain.ErrInvalidInput
	}
	unlock, err := w.locker.Lock(ctx, requestKey(in.RequestID))
	if err != nil {
		return err
	}
	defer unlock()

	incoming, outgoing, err := w.pendingPair(ctx, in.RequestID, in.ToBranch, in.FromBranch, "rechazar")
	if err != nil {
		return err
	}
	next, err := incoming.State.TransitionTo(entity.RequestRejected)
	if err != nil {
		return err
	}
	if err := w.flipPair(ctx, incoming, outgoing, entity.RequestPending, next); err != nil {
		return err
	}
	w.log.Info().
		Str("transfer_id", in.RequestID).
		Str("user", in.User).
		Msg("traslado rechazado")
	return nil
}

// Move traslado directo (casa matriz a sucursal) sin solicitud ni TransferPeerID.
// Usa la misma primitiva de dos piernas que Accept.
func (w *Workflow) Move(ctx context.Context, in MoveInput) (*Result, error) {
	if in.ToBranch == "" || in.FromBranch == "" || in.Product == "" || in.ToBranch == in.FromBranch {
		return nil, domain.ErrInvalidInput
	}
	if in.Quantity <= 0 {
		return nil, fmt.Errorf("%w: la cantidad a trasladar debe ser positiva", domain.ErrInvalidQuantity)
	}
	// Ambas sucursales se validan antes de la primera pierna: un destino inexistente
	// no debe descubrirse con el origen ya debitado.
	if _, _, err := w.loadBranches(ctx, in.ToBranch, in.FromBranch); err != nil {
		return nil, err
	}
	if _, err := w.loadProduct(ctx, in.Product); err != nil {
		return nil, err
	}
	res, err := w.writeLegs(ctx, legs{
		from:     in.FromBranch,
		to:       in.ToBranch,
		product:  in.Product,
		quantity: in.Quantity,
		note:     in.Note,
		outUser:  in.User,
		inUser:   in.User,
	})
	if res != nil && res.ToTransactionID != "" {
		w.log.Info().
			Str("from_branch", in.FromBranch).
			Str("to_branch", in.ToBranch).
			Str("product", in.Product).
			Int64("quantity", in.Quantity).
			Msg("traslado directo registrado")
	}
	return res, err
}

// ListRequests lista las solicitudes de la sucursal en el estado dado (PENDING si es cero).
func (w *Workflow) ListRequests(ctx context.Context, branch string, state entity.RequestState) ([]*entity.TransferRequest, error) {
	b, err := w.branches.GetByID(ctx, branch)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, fmt.Errorf("%w: sucursal %s", domain.ErrNotFound, branch)
	}
	if state == 0 {
		state = entity.RequestPending
	}
	return w.requests.ListByBranch(ctx, branch, state)
}

type legs struct {
	peerID   string
	from     string
	to       string
	product  string
	quantity int64
	note     string
	outUser  string
	inUser   string
}

// writeLegs registra TransferOut y luego TransferIn.
// Un resultado con ToTransactionID vacío significa que el traslado no quedó completo.
// ErrProjectionStale de cualquiera de las piernas se propaga sin invalidar el traslado.
func (w *Workflow) writeLegs(ctx context.Context, l legs) (*Result, error) {
	out, outErr := w.ledger.Append(ctx, ledger.AppendCommand{
		Branch:              l.from,
		Product:             l.product,
		Operation:           entity.OperationTransferOut,
		OperationalQuantity: l.quantity,
		User:                l.outUser,
		Note:                l.note,
		TransferPeerID:      l.peerID,
	})
	if out == nil {
		return nil, outErr
	}
	res := &Result{FromTransactionID: out.TransactionID}

	in, inErr := w.ledger.Append(ctx, ledger.AppendCommand{
		Branch:              l.to,
		Product:             l.product,
		Operation:           entity.OperationTransferIn,
		OperationalQuantity: l.quantity,
		User:                l.inUser,
		Note:                l.note,
		TransferPeerID:      l.peerID,
	})
	if in == nil {
		uerr := &domain.UnbalancedTransferError{
			TransferID:      l.peerID,
			CompletedBranch: l.from,
			CompletedTxID:   out.TransactionID,
			FailedBranch:    l.to,
			Err:             inErr,
		}
		w.log.Error().Err(inErr).
			Str("integrity", "unbalanced_transfer").
			Str("transfer_id", l.peerID).
			Str("from_branch", l.from).
			Str("to_branch", l.to).
			Str("product", l.product).
			Int64("quantity", l.quantity).
			Str("from_transaction_id", out.TransactionID).
			Msg("traslado desbalanceado: salida registrada sin entrada")
		return res, uerr
	}
	res.ToTransactionID = in.TransactionID
	return res, errors.Join(outErr, inErr)
}

// pendingPair carga el par y exige que ambas mitades estén en PENDING.
func (w *Workflow) pendingPair(ctx context.Context, id, to, from, action string) (*entity.TransferRequest, *entity.TransferRequest, error) {
	incoming, outgoing, err := w.getPair(ctx, id, to, from)
	if err != nil {
		return nil, nil, err
	}
	if incoming.State != outgoing.State {
		return nil, nil, fmt.Errorf("%w: %s está %s en %s y %s en %s", domain.ErrInconsistentRequestPair,
			id, incoming.State, to, outgoing.State, from)
	}
	if incoming.State != entity.RequestPending {
		return nil, nil, fmt.Errorf("%w: no hay solicitud pendiente para %s (%s)", domain.ErrNotFound, action, incoming.State)
	}
	return incoming, outgoing, nil
}

// getPair lee ambas mitades. Ninguna: ErrNotFound. Solo una: ErrInconsistentRequestPair.
func (w *Workflow) getPair(ctx context.Context, id, to, from string) (*entity.TransferRequest, *entity.TransferRequest, error) {
	incoming, err := w.requests.Get(ctx, to, id)
	if err != nil {
		return nil, nil, err
	}
	outgoing, err := w.requests.Get(ctx, from, id)
	if err != nil {
		return nil, nil, err
	}
	switch {
	case incoming == nil && outgoing == nil:
		return nil, nil, fmt.Errorf("%w: solicitud de traslado %s", domain.ErrNotFound, id)
	case incoming == nil || outgoing == nil:
		return incoming, outgoing, fmt.Errorf("%w: %s existe solo en una sucursal", domain.ErrInconsistentRequestPair, id)
	}
	if incoming.Role != entity.RoleIncoming || outgoing.Role != entity.RoleOutgoing ||
		incoming.PeerBranch != from || outgoing.PeerBranch != to {
		return nil, nil, fmt.Errorf("%w: solicitud %s no corresponde a %s <- %s", domain.ErrNotFound, id, to, from)
	}
	return incoming, outgoing, nil
}

// flipPair pasa ambas mitades de from a next con compare-and-set.
// Si la primera ya no está en from no se toca nada; si falla la segunda los estados divergen.
func (w *Workflow) flipPair(ctx context.Context, incoming, outgoing *entity.TransferRequest, from, next entity.RequestState) error {
	at := w.now()
	if err := w.requests.UpdateState(ctx, incoming.Branch, incoming.ID, from, next, at); err != nil {
		return err
	}
	if err := w.requests.UpdateState(ctx, outgoing.Branch, outgoing.ID, from, next, at); err != nil {
		w.log.Error().Err(err).
			Str("transfer_id", incoming.ID).
			Str("integrity", "inconsistent_request_pair").
			Stringer("state", next).
			Msg("estado del par divergente")
		return fmt.Errorf("%w: %s quedó %s solo en %s: %v",
			domain.ErrInconsistentRequestPair, incoming.ID, next, incoming.Branch, err)
	}
	return nil
}

// requestKey clave de serialización de las decisiones sobre una solicitud.
func requestKey(id string) string {
	return "transfer:" + id
}

func (w *Workflow) loadBranches(ctx context.Context, to, from string) (*entity.Branch, *entity.Branch, error) {
	toB, err := w.branches.GetByID(ctx, to)
	if err != nil {
		return nil, nil, err
	}
	fromB, err := w.branches.GetByID(ctx, from)
	if err != nil {
		return nil, nil, err
	}
	if toB == nil || fromB == nil {
		return nil, nil, fmt.Errorf("%w: la sucursal no existe, no se puede trasladar", domain.ErrNotFound)
	}
	return toB, fromB, nil
}

func (w *Workflow) loadProduct(ctx context.Context, id string) (*entity.Product, error) {
	p, err := w.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: producto %s", domain.ErrNotFound, id)
	}
	return p, nil
}
