package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/inventario-ledger/internal/application/dto"
	"github.com/jhoicas/inventario-ledger/internal/domain"
)

// writeError traduce los errores de dominio a código HTTP y cuerpo ErrorResponse.
func writeError(c *fiber.Ctx, err error) error {
	var unbalanced *domain.UnbalancedTransferError
	if errors.As(err, &unbalanced) {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.UnbalancedTransferResponse{
			ErrorResponse:   dto.ErrorResponse{Code: "UNBALANCED_TRANSFER", Message: err.Error()},
			TransferID:      unbalanced.TransferID,
			CompletedBranch: unbalanced.CompletedBranch,
			CompletedTxID:   unbalanced.CompletedTxID,
			FailedBranch:    unbalanced.FailedBranch,
		})
	}

	status, code := fiber.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status, code = fiber.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrInvalidQuantity):
		status, code = fiber.StatusBadRequest, "INVALID_QUANTITY"
	case errors.Is(err, domain.ErrInvalidInput):
		status, code = fiber.StatusBadRequest, "VALIDATION"
	case errors.Is(err, domain.ErrInconsistentRequestPair):
		status, code = fiber.StatusConflict, "INCONSISTENT_REQUEST_PAIR"
	case errors.Is(err, domain.ErrInvalidTransition):
		status, code = fiber.StatusConflict, "INVALID_TRANSITION"
	case errors.Is(err, domain.ErrConflict):
		status, code = fiber.StatusConflict, "CONFLICT"
	case errors.Is(err, domain.ErrLockTimeout):
		status, code = fiber.StatusServiceUnavailable, "LOCK_TIMEOUT"
	case errors.Is(err, domain.ErrUnbalancedTransfer):
		code = "UNBALANCED_TRANSFER"
	}
	return c.Status(status).JSON(dto.ErrorResponse{Code: code, Message: err.Error()})
}

// staleWarning separa ErrProjectionStale: la escritura quedó confirmada y se responde 201 con aviso.
// Devuelve el texto del aviso y si el error (o todos los unidos con errors.Join) era solo ese.
func staleWarning(err error) (string, bool) {
	if err == nil {
		return "", true
	}
	if onlyStale(err) {
		return err.Error(), true
	}
	return "", false
}

func onlyStale(err error) bool {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			if !onlyStale(e) {
				return false
			}
		}
		return true
	}
	return errors.Is(err, domain.ErrProjectionStale)
}
