package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/inventario-ledger/internal/application/dto"
	"github.com/jhoicas/inventario-ledger/internal/application/transfer"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// TransferHandler solicitudes y traslados entre sucursales (protegido).
type TransferHandler struct {
	workflow *transfer.Workflow
}

// NewTransferHandler construye el handler.
func NewTransferHandler(workflow *transfer.Workflow) *TransferHandler {
	return &TransferHandler{workflow: workflow}
}

func invalidBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}

// Request godoc
// @Summary      Solicitar un traslado
// @Description  to_branch pide quantity de product a from_branch. Crea el par de solicitud en PENDING.
// @Tags         transfers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.TransferRequestBody  true  "to_branch, from_branch, product, quantity"
// @Success      201   {object}  dto.TransferCreatedResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/transfers/request [post]
func (h *TransferHandler) Request(c *fiber.Ctx) error {
	var in dto.TransferRequestBody
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	id, err := h.workflow.Request(c.Context(), transfer.RequestInput{
		ToBranch:   in.ToBranch,
		FromBranch: in.FromBranch,
		Product:    in.Product,
		Quantity:   in.Quantity,
		Note:       in.Note,
		User:       actor(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.TransferCreatedResponse{RequestID: id, State: entity.RequestPending})
}

// Accept godoc
// @Summary      Aceptar un traslado solicitado
// @Description  Registra TransferOut en origen y TransferIn en destino; quantity opcional (cero = la solicitada).
// @Tags         transfers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.TransferDecisionBody  true  "request_id, to_branch, from_branch, quantity"
// @Success      201   {object}  dto.TransferResultResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      500   {object}  dto.UnbalancedTransferResponse
// @Router       /api/transfers/accept [post]
func (h *TransferHandler) Accept(c *fiber.Ctx) error {
	var in dto.TransferDecisionBody
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	res, err := h.workflow.Accept(c.Context(), transfer.AcceptInput{
		RequestID:  in.RequestID,
		ToBranch:   in.ToBranch,
		FromBranch: in.FromBranch,
		Quantity:   in.Quantity,
		User:       actor(c),
	})
	return h.writeResult(c, res, err)
}

// Reject godoc
// @Summary      Rechazar un traslado solicitado
// @Tags         transfers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.TransferDecisionBody  true  "request_id, to_branch, from_branch"
// @Success      200   {object}  map[string]string
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/transfers/reject [post]
func (h *TransferHandler) Reject(c *fiber.Ctx) error {
	var in dto.TransferDecisionBody
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	err := h.workflow.Reject(c.Context(), transfer.RejectInput{
		RequestID:  in.RequestID,
		ToBranch:   in.ToBranch,
		FromBranch: in.FromBranch,
		User:       actor(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"message": "traslado rechazado", "state": entity.RequestRejected})
}

// Move godoc
// @Summary      Traslado directo sin solicitud
// @Tags         transfers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.TransferRequestBody  true  "to_branch, from_branch, product, quantity"
// @Success      201   {object}  dto.TransferResultResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      500   {object}  dto.UnbalancedTransferResponse
// @Router       /api/transfers/move [post]
func (h *TransferHandler) Move(c *fiber.Ctx) error {
	var in dto.TransferRequestBody
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	res, err := h.workflow.Move(c.Context(), transfer.MoveInput{
		ToBranch:   in.ToBranch,
		FromBranch: in.FromBranch,
		Product:    in.Product,
		Quantity:   in.Quantity,
		Note:       in.Note,
		User:       actor(c),
	})
	return h.writeResult(c, res, err)
}

func (h *TransferHandler) writeResult(c *fiber.Ctx, res *transfer.Result, err error) error {
	warning, ok := staleWarning(err)
	if !ok || res == nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.TransferResultResponse{
		FromTransactionID: res.FromTransactionID,
		ToTransactionID:   res.ToTransactionID,
		Warning:           warning,
	})
}

// Reconcile godoc
// @Summary      Reparar un traslado interrumpido
// @Description  Recrea la mitad faltante, completa la pierna faltante y promueve a ACCEPTED. Idempotente.
// @Tags         transfers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.TransferDecisionBody  true  "request_id, to_branch, from_branch"
// @Success      200   {object}  dto.ReconcileResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/transfers/reconcile [post]
func (h *TransferHandler) Reconcile(c *fiber.Ctx) error {
	var in dto.TransferDecisionBody
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	report, err := h.workflow.Reconcile(c.Context(), in.RequestID, in.ToBranch, in.FromBranch)
	if report == nil || (err != nil && !isStaleOnly(err)) {
		return writeError(c, err)
	}
	out := dto.ReconcileResponse{
		RequestID:              report.RequestID,
		RecreatedBranch:        report.RecreatedBranch,
		AlignedBranch:          report.AlignedBranch,
		CompletedTransactionID: report.CompletedTransactionID,
		Promoted:               report.Promoted,
		State:                  report.State,
	}
	if report.CompletedLeg != 0 {
		out.CompletedLeg = report.CompletedLeg.String()
	}
	return c.JSON(out)
}

func isStaleOnly(err error) bool {
	_, ok := staleWarning(err)
	return ok
}

// ListByBranch godoc
// @Summary      Solicitudes de traslado de una sucursal
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        state  query  string  false  "PENDING (defecto) | ACCEPTED | REJECTED"
// @Success      200  {array}   dto.TransferRequestDTO
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/transfers/branches/{id} [get]
func (h *TransferHandler) ListByBranch(c *fiber.Ctx) error {
	var state entity.RequestState
	if s := c.Query("state"); s != "" {
		parsed, err := entity.ParseRequestState(s)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
		}
		state = parsed
	}
	list, err := h.workflow.ListRequests(c.Context(), c.Params("id"), state)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToTransferRequestDTOs(list))
}
