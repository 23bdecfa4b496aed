package dto

import (
	"time"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// InventoryItemDTO fila de la proyección de inventario.
type InventoryItemDTO struct {
	Branch            string    `json:"branch"`
	Product           string    `json:"product"`
	AvailableQuantity int64     `json:"available_quantity"`
	Threshold         int64     `json:"threshold"`
	IsBelowThreshold  bool      `json:"is_below_threshold"`
	Category          string    `json:"category"`
	Unit              string    `json:"unit"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// BranchInventoryDTO inventario de una sucursal dentro del listado global.
type BranchInventoryDTO struct {
	Branch     string             `json:"branch"`
	BranchName string             `json:"branch_name"`
	Items      []InventoryItemDTO `json:"items"`
}

// ToInventoryItemDTO mapea una fila proyectada.
func ToInventoryItemDTO(i *entity.InventoryItem) InventoryItemDTO {
	return InventoryItemDTO{
		Branch:            i.Branch,
		Product:           i.Product,
		AvailableQuantity: i.AvailableQuantity,
		Threshold:         i.Threshold,
		IsBelowThreshold:  i.IsBelowThreshold,
		Category:          i.Category,
		Unit:              i.Unit,
		UpdatedAt:         i.UpdatedAt,
	}
}

// ToInventoryItemDTOs mapea una lista conservando el orden.
func ToInventoryItemDTOs(list []*entity.InventoryItem) []InventoryItemDTO {
	out := make([]InventoryItemDTO, 0, len(list))
	for _, i := range list {
		out = append(out, ToInventoryItemDTO(i))
	}
	return out
}
