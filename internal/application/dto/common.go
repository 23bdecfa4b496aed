package dto

// ErrorResponse cuerpo de error HTTP.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// UnbalancedTransferResponse error 500 de un traslado con una sola pierna registrada.
// Lleva lo necesario para reconciliar a mano o con POST /api/transfers/reconcile.
type UnbalancedTransferResponse struct {
	ErrorResponse
	TransferID      string `json:"transfer_id,omitempty"`
	CompletedBranch string `json:"completed_branch"`
	CompletedTxID   string `json:"completed_transaction_id"`
	FailedBranch    string `json:"failed_branch"`
}
