package entity

import (
	"fmt"
	"time"

	"github.com/jhoicas/inventario-ledger/internal/domain"
)

// RequestState estado de una solicitud de traslado. El valor cero es inválido.
type RequestState uint8

const (
	RequestPending RequestState = iota + 1
	RequestAccepted
	RequestRejected
)

func (s RequestState) String() string {
	switch s {
	case RequestPending:
		return "PENDING"
	case RequestAccepted:
		return "ACCEPTED"
	case RequestRejected:
		return "REJECTED"
	}
	return fmt.Sprintf("RequestState(%d)", uint8(s))
}

// ParseRequestState convierte el valor persistido en RequestState.
func ParseRequestState(s string) (RequestState, error) {
	switch s {
	case "PENDING":
		return RequestPending, nil
	case "ACCEPTED":
		return RequestAccepted, nil
	case "REJECTED":
		return RequestRejected, nil
	}
	return 0, fmt.Errorf("estado de solicitud desconocido %q", s)
}

// Terminal indica que el estado ya no admite transiciones.
func (s RequestState) Terminal() bool {
	return s == RequestAccepted || s == RequestRejected
}

// TransitionTo devuelve el nuevo estado o ErrInvalidTransition.
// Solo PENDING admite salida, y exactamente una vez.
func (s RequestState) TransitionTo(next RequestState) (RequestState, error) {
	switch s {
	case RequestPending:
		switch next {
		case RequestAccepted, RequestRejected:
			return next, nil
		}
	case RequestAccepted, RequestRejected:
	}
	return s, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, s, next)
}

func (s RequestState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *RequestState) UnmarshalText(b []byte) error {
	st, err := ParseRequestState(string(b))
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// RequestRole rol de la mitad de la solicitud dentro de su sucursal.
type RequestRole uint8

const (
	RoleIncoming RequestRole = iota + 1 // copia en la sucursal destino (toBranch)
	RoleOutgoing                        // copia en la sucursal origen (fromBranch)
)

func (r RequestRole) String() string {
	switch r {
	case RoleIncoming:
		return "incoming"
	case RoleOutgoing:
		return "outgoing"
	}
	return fmt.Sprintf("RequestRole(%d)", uint8(r))
}

// ParseRequestRole convierte el valor persistido en RequestRole.
func ParseRequestRole(s string) (RequestRole, error) {
	switch s {
	case "incoming":
		return RoleIncoming, nil
	case "outgoing":
		return RoleOutgoing, nil
	}
	return 0, fmt.Errorf("rol de solicitud desconocido %q", s)
}

func (r RequestRole) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *RequestRole) UnmarshalText(b []byte) error {
	role, err := ParseRequestRole(string(b))
	if err != nil {
		return err
	}
	*r = role
	return nil
}

// Operation operación del libro que esta mitad producirá al aceptarse.
func (r RequestRole) Operation() Operation {
	if r == RoleIncoming {
		return OperationTransferIn
	}
	return OperationTransferOut
}

// TransferRequest una mitad del par espejo de solicitud de traslado.
// La mitad entrante vive en la sucursal destino y apunta a la origen; la saliente al revés.
type TransferRequest struct {
	ID             string
	Branch         string // sucursal dueña de esta copia
	Role           RequestRole
	PeerBranch     string
	PeerBranchName string
	Product        string
	ProductName    string
	Quantity       int64
	Note           string
	User           string
	State          RequestState
	Date           time.Time
}

// Mirror construye la mitad espejo que debería existir en PeerBranch.
func (r *TransferRequest) Mirror(branchName string) *TransferRequest {
	m := *r
	m.Branch = r.PeerBranch
	m.PeerBranch = r.Branch
	m.PeerBranchName = branchName
	if r.Role == RoleIncoming {
		m.Role = RoleOutgoing
	} else {
		m.Role = RoleIncoming
	}
	return &m
}
