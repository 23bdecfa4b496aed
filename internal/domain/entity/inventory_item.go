package entity

import "time"

// InventoryItem fila de la proyección de inventario por (sucursal, producto).
// Es caché derivada del libro; nunca fuente de verdad del saldo.
type InventoryItem struct {
	Branch            string
	Product           string
	AvailableQuantity int64
	Threshold         int64
	IsBelowThreshold  bool
	Category          string
	Unit              string
	UpdatedAt         time.Time
}

// Apply sobrescribe la cantidad disponible y recalcula la bandera de umbral.
// UpdatedAt solo cambia si cambia la cantidad, así repetir la misma proyección no altera la fila.
func (i *InventoryItem) Apply(closing int64, now time.Time) {
	if i.UpdatedAt.IsZero() || i.AvailableQuantity != closing {
		i.UpdatedAt = now
	}
	i.AvailableQuantity = closing
	i.IsBelowThreshold = closing < i.Threshold
}
