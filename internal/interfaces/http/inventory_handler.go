package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/inventario-ledger/internal/application/dto"
	"github.com/jhoicas/inventario-ledger/internal/application/ledger"
)

// InventoryHandler lecturas de la proyección de inventario (protegido).
type InventoryHandler struct {
	projector *ledger.Projector
	writer    *ledger.Writer
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(projector *ledger.Projector, writer *ledger.Writer) *InventoryHandler {
	return &InventoryHandler{projector: projector, writer: writer}
}

// ListAll godoc
// @Summary      Inventario de todas las sucursales
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Success      200  {array}   dto.BranchInventoryDTO
// @Router       /api/inventory [get]
func (h *InventoryHandler) ListAll(c *fiber.Ctx) error {
	return h.listAll(c, false)
}

// ListAllBelowThreshold godoc
// @Summary      Productos bajo el stock mínimo en todas las sucursales
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Success      200  {array}   dto.BranchInventoryDTO
// @Router       /api/inventory/below-threshold [get]
func (h *InventoryHandler) ListAllBelowThreshold(c *fiber.Ctx) error {
	return h.listAll(c, true)
}

func (h *InventoryHandler) listAll(c *fiber.Ctx, below bool) error {
	all, err := h.projector.ListAllInventory(c.Context(), below)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.BranchInventoryDTO, 0, len(all))
	for _, b := range all {
		out = append(out, dto.BranchInventoryDTO{
			Branch:     b.Branch.ID,
			BranchName: b.Branch.Name,
			Items:      dto.ToInventoryItemDTOs(b.Items),
		})
	}
	return c.JSON(out)
}

// ListBranch godoc
// @Summary      Inventario de una sucursal
// @Description  Ordenado por cantidad disponible ascendente.
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Success      200  {array}   dto.InventoryItemDTO
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/{branch} [get]
func (h *InventoryHandler) ListBranch(c *fiber.Ctx) error {
	return h.listBranch(c, false)
}

// ListBranchBelowThreshold godoc
// @Summary      Productos bajo el stock mínimo en una sucursal
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Success      200  {array}   dto.InventoryItemDTO
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/{branch}/below-threshold [get]
func (h *InventoryHandler) ListBranchBelowThreshold(c *fiber.Ctx) error {
	return h.listBranch(c, true)
}

func (h *InventoryHandler) listBranch(c *fiber.Ctx, below bool) error {
	items, err := h.projector.ListInventory(c.Context(), c.Params("branch"), below)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToInventoryItemDTOs(items))
}

// GetItem godoc
// @Summary      Fila de inventario de un producto en una sucursal
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.InventoryItemDTO
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/{branch}/{product} [get]
func (h *InventoryHandler) GetItem(c *fiber.Ctx) error {
	item, err := h.projector.Get(c.Context(), c.Params("branch"), c.Params("product"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToInventoryItemDTO(item))
}

// Rebuild godoc
// @Summary      Re-derivar la fila de inventario desde el libro
// @Description  Corrige una proyección atrasada (respuesta previa con warning).
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.InventoryItemDTO
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/{branch}/{product}/rebuild [post]
func (h *InventoryHandler) Rebuild(c *fiber.Ctx) error {
	item, err := h.writer.RebuildProjection(c.Context(), c.Params("branch"), c.Params("product"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToInventoryItemDTO(item))
}
