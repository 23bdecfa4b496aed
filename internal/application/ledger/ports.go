package ledger

import (
	"context"

	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

// TxRunner ejecuta fn dentro de una transacción de la tienda, serializada por (sucursal, producto),
// pasando el repositorio del libro atado a esa transacción.
// Garantiza que leer el último registro y anexar el siguiente sea atómico para la clave.
type TxRunner interface {
	RunForKey(ctx context.Context, branch, product string, fn func(txRepo repository.TransactionRepository) error) error
}

// KeyLocker exclusión mutua por clave. Envuelve la transacción y la proyección posterior,
// de modo que la fila proyectada siempre refleje la última escritura confirmada.
type KeyLocker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// Key clave de serialización del libro de un producto en una sucursal.
func Key(branch, product string) string {
	return "ledger:" + branch + ":" + product
}
