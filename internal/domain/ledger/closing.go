package ledger

import (
	"fmt"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// Closing calcula la cantidad de cierre de una operación a partir del saldo inicial (servicio de dominio).
// La validación ocurre antes del cálculo; ante error no hay cierre que persistir.
//
//	AddProduct, TransferIn:    initial + operational   (operational >= 0)
//	IssueProduct, TransferOut: initial - operational   (0 <= operational <= initial)
//	Adjustment:                operational             (valor absoluto, no delta; >= 0)
func Closing(op entity.Operation, initial, operational int64) (int64, error) {
	switch op {
	case entity.OperationAddProduct, entity.OperationTransferIn:
		if operational < 0 {
			return 0, fmt.Errorf("%w: %s con cantidad negativa %d", domain.ErrInvalidQuantity, op, operational)
		}
		return initial + operational, nil
	case entity.OperationIssueProduct, entity.OperationTransferOut:
		if operational < 0 {
			return 0, fmt.Errorf("%w: %s con cantidad negativa %d", domain.ErrInvalidQuantity, op, operational)
		}
		if operational > initial {
			return 0, fmt.Errorf("%w: la cantidad solicitada %d supera la disponible %d",
				domain.ErrInvalidQuantity, operational, initial)
		}
		return initial - operational, nil
	case entity.OperationAdjustment:
		if operational < 0 {
			return 0, fmt.Errorf("%w: no se puede ajustar a un valor negativo %d", domain.ErrInvalidQuantity, operational)
		}
		return operational, nil
	}
	return 0, fmt.Errorf("%w: operación %s", domain.ErrInvalidInput, op)
}
