package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound                = errors.New("recurso no encontrado")
	ErrInvalidInput            = errors.New("entrada inválida")
	ErrInvalidQuantity         = errors.New("cantidad inválida")
	ErrInconsistentRequestPair = errors.New("solicitud de traslado inconsistente entre sucursales")
	ErrUnbalancedTransfer      = errors.New("traslado desbalanceado")
	ErrInvalidTransition       = errors.New("transición de estado inválida")
	ErrConflict                = errors.New("conflicto con el estado actual")
	ErrProjectionStale         = errors.New("proyección de inventario desactualizada")
	ErrLockTimeout             = errors.New("tiempo de espera agotado para el bloqueo")
)

// UnbalancedTransferError indica que una pierna del traslado quedó registrada y la otra no.
// Es una brecha de integridad real: nunca debe tratarse como un rechazo común.
type UnbalancedTransferError struct {
	TransferID      string
	CompletedBranch string
	CompletedTxID   string
	FailedBranch    string
	Err             error
}

func (e *UnbalancedTransferError) Error() string {
	return fmt.Sprintf("traslado desbalanceado %q: registrado en %s (%s), falló en %s: %v",
		e.TransferID, e.CompletedBranch, e.CompletedTxID, e.FailedBranch, e.Err)
}

// Is permite errors.Is(err, ErrUnbalancedTransfer).
func (e *UnbalancedTransferError) Is(target error) bool {
	return target == ErrUnbalancedTransfer
}

func (e *UnbalancedTransferError) Unwrap() error { return e.Err }
