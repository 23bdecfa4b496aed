package dto

import (
	"time"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// TransferRequestBody body para POST /api/transfers/request y /move.
type TransferRequestBody struct {
	ToBranch   string `json:"to_branch"`
	FromBranch string `json:"from_branch"`
	Product    string `json:"product"`
	Quantity   int64  `json:"quantity"`
	Note       string `json:"note,omitempty"`
}

// TransferDecisionBody body para POST /api/transfers/{accept,reject,reconcile}.
// Quantity solo aplica a accept (cero = la solicitada).
type TransferDecisionBody struct {
	RequestID  string `json:"request_id"`
	ToBranch   string `json:"to_branch"`
	FromBranch string `json:"from_branch"`
	Quantity   int64  `json:"quantity,omitempty"`
}

// TransferCreatedResponse respuesta de una solicitud creada.
type TransferCreatedResponse struct {
	RequestID string              `json:"request_id"`
	State     entity.RequestState `json:"state"`
}

// TransferResultResponse IDs de las dos piernas registradas.
type TransferResultResponse struct {
	FromTransactionID string `json:"from_transaction_id"`
	ToTransactionID   string `json:"to_transaction_id"`
	Warning           string `json:"warning,omitempty"`
}

// ReconcileResponse acciones aplicadas por la reconciliación.
type ReconcileResponse struct {
	RequestID              string              `json:"request_id"`
	RecreatedBranch        string              `json:"recreated_branch,omitempty"`
	AlignedBranch          string              `json:"aligned_branch,omitempty"`
	CompletedLeg           string              `json:"completed_leg,omitempty"`
	CompletedTransactionID string              `json:"completed_transaction_id,omitempty"`
	Promoted               bool                `json:"promoted"`
	State                  entity.RequestState `json:"state"`
}

// TransferRequestDTO una mitad del par de solicitud vista desde su sucursal.
type TransferRequestDTO struct {
	ID             string              `json:"id"`
	Branch         string              `json:"branch"`
	Role           entity.RequestRole  `json:"role"`
	PeerBranch     string              `json:"peer_branch"`
	PeerBranchName string              `json:"peer_branch_name"`
	Product        string              `json:"product"`
	ProductName    string              `json:"product_name"`
	Quantity       int64               `json:"quantity"`
	Note           string              `json:"note,omitempty"`
	User           string              `json:"user"`
	State          entity.RequestState `json:"state"`
	Date           time.Time           `json:"date"`
}

// ToTransferRequestDTOs mapea las mitades de una sucursal.
func ToTransferRequestDTOs(list []*entity.TransferRequest) []TransferRequestDTO {
	out := make([]TransferRequestDTO, 0, len(list))
	for _, r := range list {
		out = append(out, TransferRequestDTO{
			ID:             r.ID,
			Branch:         r.Branch,
			Role:           r.Role,
			PeerBranch:     r.PeerBranch,
			PeerBranchName: r.PeerBranchName,
			Product:        r.Product,
			ProductName:    r.ProductName,
			Quantity:       r.Quantity,
			Note:           r.Note,
			User:           r.User,
			State:          r.State,
			Date:           r.Date,
		})
	}
	return out
}
