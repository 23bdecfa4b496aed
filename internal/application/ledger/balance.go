package ledger

import (
	"context"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

// BalanceCalculator deriva el saldo actual leyendo la cola del libro.
// No mantiene contadores: el saldo es siempre el ClosingQuantity del último registro.
type BalanceCalculator struct{}

// CurrentBalance devuelve el saldo y el último registro (nil si el producto no tiene historial, saldo 0).
// No verifica que la sucursal exista; eso es responsabilidad del escritor.
func (BalanceCalculator) CurrentBalance(
	ctx context.Context,
	repo repository.TransactionRepository,
	branch, product string,
) (int64, *entity.Transaction, error) {
	last, err := repo.GetLatest(ctx, branch, product)
	if err != nil {
		return 0, nil, err
	}
	if last == nil {
		return 0, nil, nil
	}
	return last.ClosingQuantity, last, nil
}
