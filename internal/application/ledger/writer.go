package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	domledger "github.com/jhoicas/inventario-ledger/internal/domain/ledger"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
	"github.com/jhoicas/inventario-ledger/pkg/logger"
)

// Writer anexa registros al libro de una sucursal (entradas, salidas, ajustes y piernas de traslado).
// Cada escritura toma el bloqueo de (sucursal, producto), lee el saldo de la cola del libro, calcula
// el cierre, confirma la transacción y solo entonces actualiza la proyección de inventario.
type Writer struct {
	runner       TxRunner
	locker       KeyLocker
	transactions repository.TransactionRepository
	branches     repository.BranchRepository
	products     repository.ProductRepository
	projector    *Projector
	balance      BalanceCalculator
	log          *logger.Logger
	now          func() time.Time
}

// NewWriter construye el escritor del libro.
func NewWriter(
	runner TxRunner,
	locker KeyLocker,
	transactions repository.TransactionRepository,
	branches repository.BranchRepository,
	products repository.ProductRepository,
	projector *Projector,
	log *logger.Logger,
) *Writer {
	return &Writer{
		runner:       runner,
		locker:       locker,
		transactions: transactions,
		branches:     branches,
		products:     products,
		projector:    projector,
		log:          log.Component("ledger_writer"),
		now:          time.Now,
	}
}

// AppendCommand entrada de appendTransaction.
// Date es opcional (cero = ahora). TransferPeerID solo aplica a TransferIn/TransferOut.
type AppendCommand struct {
	Branch              string
	Product             string
	Operation           entity.Operation
	OperationalQuantity int64
	User                string
	Date                time.Time
	Note                string
	TransferPeerID      string
}

// AppendResult resultado de una escritura confirmada.
// Reused indica que la pierna de traslado ya existía (reintento idempotente) y no se escribió nada.
type AppendResult struct {
	TransactionID   string
	InitialQuantity int64
	ClosingQuantity int64
	Reused          bool
}

// ActionInput entrada común de AddProduct, IssueProduct y Adjust.
type ActionInput struct {
	Branch   string
	Product  string
	Quantity int64
	User     string
	Note     string
}

// AddProduct registra una entrada de stock.
func (w *Writer) AddProduct(ctx context.Context, in ActionInput) (*AppendResult, error) {
	return w.Append(ctx, in.command(entity.OperationAddProduct))
}

// IssueProduct registra una salida de stock; falla con ErrInvalidQuantity si supera el disponible.
func (w *Writer) IssueProduct(ctx context.Context, in ActionInput) (*AppendResult, error) {
	return w.Append(ctx, in.command(entity.OperationIssueProduct))
}

// Adjust fija el saldo a Quantity (valor absoluto, no delta).
func (w *Writer) Adjust(ctx context.Context, in ActionInput) (*AppendResult, error) {
	return w.Append(ctx, in.command(entity.OperationAdjustment))
}

func (in ActionInput) command(op entity.Operation) AppendCommand {
	return AppendCommand{
		Branch:              in.Branch,
		Product:             in.Product,
		Operation:           op,
		OperationalQuantity: in.Quantity,
		User:                in.User,
		Note:                in.Note,
	}
}

// Append valida, serializa por clave y anexa el registro.
// Si la proyección falla después de confirmar, devuelve el resultado junto con un error ErrProjectionStale:
// el libro quedó correcto y la fila se corrige en la siguiente escritura o con RebuildProjection.
func (w *Writer) Append(ctx context.Context, cmd AppendCommand) (*AppendResult, error) {
	if cmd.Branch == "" || cmd.Product == "" || !cmd.Operation.Valid() {
		return nil, domain.ErrInvalidInput
	}
	if cmd.TransferPeerID != "" && !cmd.Operation.IsTransfer() {
		return nil, fmt.Errorf("%w: transfer_peer_id solo aplica a traslados", domain.ErrInvalidInput)
	}
	if err := w.ensureExists(ctx, cmd.Branch, cmd.Product); err != nil {
		return nil, err
	}

	unlock, err := w.locker.Lock(ctx, Key(cmd.Branch, cmd.Product))
	if err != nil {
		return nil, err
	}
	defer unlock()

	var (
		rec    *entity.Transaction
		reused bool
	)
	err = w.runner.RunForKey(ctx, cmd.Branch, cmd.Product, func(txRepo repository.TransactionRepository) error {
		if cmd.TransferPeerID != "" {
			existing, err := txRepo.FindByPeer(ctx, cmd.Branch, cmd.TransferPeerID, cmd.Operation)
			if err != nil {
				return err
			}
			if existing != nil {
				rec, reused = existing, true
				return nil
			}
		}

		initial, last, err := w.balance.CurrentBalance(ctx, txRepo, cmd.Branch, cmd.Product)
		if err != nil {
			return err
		}
		closing, err := domledger.Closing(cmd.Operation, initial, cmd.OperationalQuantity)
		if err != nil {
			return err
		}
		seq := int64(1)
		if last != nil {
			seq = last.Seq + 1
		}
		date := cmd.Date
		if date.IsZero() {
			date = w.now()
		}
		rec = &entity.Transaction{
			ID:                  uuid.New().String(),
			Branch:              cmd.Branch,
			Product:             cmd.Product,
			Operation:           cmd.Operation,
			InitialQuantity:     initial,
			OperationalQuantity: cmd.OperationalQuantity,
			ClosingQuantity:     closing,
			User:                cmd.User,
			Date:                date,
			Seq:                 seq,
			TransferPeerID:      cmd.TransferPeerID,
			Note:                cmd.Note,
		}
		return txRepo.Append(ctx, rec)
	})
	if err != nil {
		w.log.Debug().Err(err).
			Str("branch", cmd.Branch).
			Str("product", cmd.Product).
			Stringer("operation", cmd.Operation).
			Msg("transacción rechazada")
		return nil, err
	}

	res := &AppendResult{
		TransactionID:   rec.ID,
		InitialQuantity: rec.InitialQuantity,
		ClosingQuantity: rec.ClosingQuantity,
		Reused:          reused,
	}
	if reused {
		w.log.Info().
			Str("branch", cmd.Branch).
			Str("transfer_id", cmd.TransferPeerID).
			Str("transaction_id", rec.ID).
			Msg("pierna de traslado ya registrada, se reutiliza")
		return res, nil
	}

	w.log.Info().
		Str("branch", rec.Branch).
		Str("product", rec.Product).
		Stringer("operation", rec.Operation).
		Int64("initial", rec.InitialQuantity).
		Int64("closing", rec.ClosingQuantity).
		Int64("seq", rec.Seq).
		Str("transaction_id", rec.ID).
		Msg("transacción registrada")

	if err := w.projector.Project(ctx, rec.Branch, rec.Product, rec.ClosingQuantity); err != nil {
		w.log.Warn().Err(err).
			Str("branch", rec.Branch).
			Str("product", rec.Product).
			Msg("no se pudo actualizar la proyección de inventario")
		return res, fmt.Errorf("%w: %v", domain.ErrProjectionStale, err)
	}
	return res, nil
}

// Balance devuelve el saldo actual de un producto en una sucursal, leído de la cola del libro.
func (w *Writer) Balance(ctx context.Context, branch, product string) (int64, error) {
	if err := w.ensureBranch(ctx, branch); err != nil {
		return 0, err
	}
	qty, _, err := w.balance.CurrentBalance(ctx, w.transactions, branch, product)
	return qty, err
}

// RebuildProjection re-deriva la fila de inventario desde el libro, bajo el mismo bloqueo que las escrituras.
func (w *Writer) RebuildProjection(ctx context.Context, branch, product string) (*entity.InventoryItem, error) {
	if err := w.ensureExists(ctx, branch, product); err != nil {
		return nil, err
	}
	unlock, err := w.locker.Lock(ctx, Key(branch, product))
	if err != nil {
		return nil, err
	}
	defer unlock()

	qty, _, err := w.balance.CurrentBalance(ctx, w.transactions, branch, product)
	if err != nil {
		return nil, err
	}
	if err := w.projector.Project(ctx, branch, product, qty); err != nil {
		return nil, err
	}
	return w.projector.Get(ctx, branch, product)
}

// History lista el historial de la sucursal con filtros opcionales, más reciente primero.
func (w *Writer) History(ctx context.Context, branch string, filter entity.TransactionFilter) ([]*entity.Transaction, error) {
	if err := w.ensureBranch(ctx, branch); err != nil {
		return nil, err
	}
	return w.transactions.ListByBranch(ctx, branch, filter)
}

func (w *Writer) ensureExists(ctx context.Context, branch, product string) error {
	if err := w.ensureBranch(ctx, branch); err != nil {
		return err
	}
	p, err := w.products.GetByID(ctx, product)
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("%w: producto %s", domain.ErrNotFound, product)
	}
	return nil
}

func (w *Writer) ensureBranch(ctx context.Context, branch string) error {
	b, err := w.branches.GetByID(ctx, branch)
	if err != nil {
		return err
	}
	if b == nil {
		return fmt.Errorf("%w: sucursal %s", domain.ErrNotFound, branch)
	}
	return nil
}
