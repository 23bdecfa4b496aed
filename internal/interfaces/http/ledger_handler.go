package http

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/inventario-ledger/internal/application/dto"
	"github.com/jhoicas/inventario-ledger/internal/application/ledger"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// LedgerHandler escrituras directas sobre el libro de una sucursal e historial (protegido).
type LedgerHandler struct {
	writer *ledger.Writer
}

// NewLedgerHandler construye el handler.
func NewLedgerHandler(writer *ledger.Writer) *LedgerHandler {
	return &LedgerHandler{writer: writer}
}

type actionFunc func(ctx context.Context, in ledger.ActionInput) (*ledger.AppendResult, error)

func (h *LedgerHandler) action(c *fiber.Ctx, fn actionFunc) error {
	var in dto.ActionRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	res, err := fn(c.Context(), ledger.ActionInput{
		Branch:   in.Branch,
		Product:  in.Product,
		Quantity: in.Quantity,
		User:     actor(c),
		Note:     in.Note,
	})
	warning, ok := staleWarning(err)
	if !ok || res == nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ActionResponse{
		TransactionID:   res.TransactionID,
		InitialQuantity: res.InitialQuantity,
		ClosingQuantity: res.ClosingQuantity,
		Warning:         warning,
	})
}

// AddProduct godoc
// @Summary      Registrar entrada de stock
// @Tags         actions
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ActionRequest  true  "branch, product, quantity"
// @Success      201   {object}  dto.ActionResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/actions/add-product [post]
func (h *LedgerHandler) AddProduct(c *fiber.Ctx) error {
	return h.action(c, h.writer.AddProduct)
}

// IssueProduct godoc
// @Summary      Registrar salida de stock
// @Tags         actions
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ActionRequest  true  "branch, product, quantity (<= disponible)"
// @Success      201   {object}  dto.ActionResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/actions/issue-product [post]
func (h *LedgerHandler) IssueProduct(c *fiber.Ctx) error {
	return h.action(c, h.writer.IssueProduct)
}

// Adjustment godoc
// @Summary      Ajustar el saldo a un valor absoluto
// @Tags         actions
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ActionRequest  true  "quantity es el saldo final"
// @Success      201   {object}  dto.ActionResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Router       /api/actions/adjustment [post]
func (h *LedgerHandler) Adjustment(c *fiber.Ctx) error {
	return h.action(c, h.writer.Adjust)
}

// Balance godoc
// @Summary      Saldo actual de un producto en una sucursal
// @Tags         transactions
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.BalanceResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/balance/{branch}/{product} [get]
func (h *LedgerHandler) Balance(c *fiber.Ctx) error {
	branch, product := c.Params("branch"), c.Params("product")
	qty, err := h.writer.Balance(c.Context(), branch, product)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.BalanceResponse{Branch: branch, Product: product, Quantity: qty})
}

// History godoc
// @Summary      Historial de transacciones de una sucursal
// @Description  Más reciente primero. from/to aceptan RFC3339 o YYYY-MM-DD (to incluye el día completo).
// @Tags         transactions
// @Security     Bearer
// @Produce      json
// @Param        user     query  string  false  "email del usuario"
// @Param        product  query  string  false  "producto"
// @Param        from     query  string  false  "desde"
// @Param        to       query  string  false  "hasta"
// @Success      200  {array}   dto.TransactionDTO
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/transactions/{branch} [get]
func (h *LedgerHandler) History(c *fiber.Ctx) error {
	filter := entity.TransactionFilter{
		User:    c.Query("user"),
		Product: c.Query("product"),
	}
	var err error
	if filter.From, err = parseTimeQuery(c.Query("from"), false); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	}
	if filter.To, err = parseTimeQuery(c.Query("to"), true); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	}
	list, err := h.writer.History(c.Context(), c.Params("branch"), filter)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"total":        len(list),
		"transactions": dto.ToTransactionDTOs(list),
	})
}

// parseTimeQuery acepta RFC3339 o fecha sola; con endOfDay una fecha sola cubre hasta el último instante del día.
func parseTimeQuery(s string, endOfDay bool) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, fmt.Errorf("fecha inválida %q: use RFC3339 o YYYY-MM-DD", s)
	}
	if endOfDay {
		d = d.Add(24*time.Hour - time.Nanosecond)
	}
	return &d, nil
}
