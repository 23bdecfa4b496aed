package entity

import (
	"fmt"
	"time"
)

// Operation tipo de operación del libro de una sucursal. Conjunto cerrado; el valor cero es inválido.
type Operation uint8

const (
	OperationAddProduct Operation = iota + 1
	OperationIssueProduct
	OperationAdjustment
	OperationTransferIn
	OperationTransferOut
)

var operationNames = map[Operation]string{
	OperationAddProduct:   "addProduct",
	OperationIssueProduct: "issueProduct",
	OperationAdjustment:   "adjustment",
	OperationTransferIn:   "transferIn",
	OperationTransferOut:  "transferOut",
}

func (o Operation) String() string {
	if s, ok := operationNames[o]; ok {
		return s
	}
	return fmt.Sprintf("Operation(%d)", uint8(o))
}

// Valid indica si la operación pertenece al conjunto cerrado.
func (o Operation) Valid() bool {
	_, ok := operationNames[o]
	return ok
}

// IsTransfer indica si la operación es una pierna de traslado.
func (o Operation) IsTransfer() bool {
	return o == OperationTransferIn || o == OperationTransferOut
}

// ParseOperation convierte el nombre persistido en Operation.
func ParseOperation(s string) (Operation, error) {
	for op, name := range operationNames {
		if name == s {
			return op, nil
		}
	}
	return 0, fmt.Errorf("operación desconocida %q", s)
}

// MarshalText serializa la operación con su nombre persistido (JSON incluido).
func (o Operation) MarshalText() ([]byte, error) {
	if !o.Valid() {
		return nil, fmt.Errorf("operación inválida %d", uint8(o))
	}
	return []byte(o.String()), nil
}

// UnmarshalText acepta solo nombres del conjunto cerrado.
func (o *Operation) UnmarshalText(b []byte) error {
	op, err := ParseOperation(string(b))
	if err != nil {
		return err
	}
	*o = op
	return nil
}

// Transaction registro inmutable del libro de una sucursal para un producto.
// InitialQuantity y ClosingQuantity los calcula el escritor del libro; nunca los envía el cliente.
type Transaction struct {
	ID                  string
	Branch              string
	Product             string
	Operation           Operation
	InitialQuantity     int64
	OperationalQuantity int64
	ClosingQuantity     int64
	User                string
	Date                time.Time
	Seq                 int64  // secuencia monótona por (sucursal, producto); desempata fechas iguales
	TransferPeerID      string // solo TransferIn/TransferOut aceptados desde una solicitud
	Note                string
}

// TransactionFilter filtros opcionales para el historial de una sucursal.
type TransactionFilter struct {
	User    string
	Product string
	From    *time.Time
	To      *time.Time
}

// Matches evalúa el filtro sobre un registro.
func (f TransactionFilter) Matches(t *Transaction) bool {
	if f.User != "" && t.User != f.User {
		return false
	}
	if f.Product != "" && t.Product != f.Product {
		return false
	}
	if f.From != nil && t.Date.Before(*f.From) {
		return false
	}
	if f.To != nil && t.Date.After(*f.To) {
		return false
	}
	return true
}
