package dto

import (
	"time"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// ActionRequest body para POST /api/actions/{add-product,issue-product,adjustment}.
// En adjustment, quantity es el saldo final, no un delta.
type ActionRequest struct {
	Branch   string `json:"branch"`
	Product  string `json:"product"`
	Quantity int64  `json:"quantity"`
	Note     string `json:"note,omitempty"`
}

// ActionResponse resultado de una escritura en el libro.
// Warning aparece cuando el registro quedó confirmado pero la proyección no se actualizó.
type ActionResponse struct {
	TransactionID   string `json:"transaction_id"`
	InitialQuantity int64  `json:"initial_quantity"`
	ClosingQuantity int64  `json:"closing_quantity"`
	Warning         string `json:"warning,omitempty"`
}

// BalanceResponse saldo actual leído de la cola del libro.
type BalanceResponse struct {
	Branch   string `json:"branch"`
	Product  string `json:"product"`
	Quantity int64  `json:"quantity"`
}

// TransactionDTO registro del historial.
type TransactionDTO struct {
	ID                  string           `json:"id"`
	Branch              string           `json:"branch"`
	Product             string           `json:"product"`
	Operation           entity.Operation `json:"operation"`
	InitialQuantity     int64            `json:"initial_quantity"`
	OperationalQuantity int64            `json:"operational_quantity"`
	ClosingQuantity     int64            `json:"closing_quantity"`
	User                string           `json:"user"`
	Date                time.Time        `json:"date"`
	TransferPeerID      string           `json:"transfer_peer_id,omitempty"`
	Note                string           `json:"note,omitempty"`
}

// ToTransactionDTOs mapea el historial al formato de respuesta.
func ToTransactionDTOs(list []*entity.Transaction) []TransactionDTO {
	out := make([]TransactionDTO, 0, len(list))
	for _, t := range list {
		out = append(out, TransactionDTO{
			ID:                  t.ID,
			Branch:              t.Branch,
			Product:             t.Product,
			Operation:           t.Operation,
			InitialQuantity:     t.InitialQuantity,
			OperationalQuantity: t.OperationalQuantity,
			ClosingQuantity:     t.ClosingQuantity,
			User:                t.User,
			Date:                t.Date,
			TransferPeerID:      t.TransferPeerID,
			Note:                t.Note,
		})
	}
	return out
}
