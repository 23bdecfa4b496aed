package entity

// Product metadatos de producto que consume el núcleo del libro.
// Thresholds es el stock mínimo por sucursal; ausente equivale a 0.
type Product struct {
	ID         string
	Name       string
	Category   string
	Unit       string
	Thresholds map[string]int64
}

// ThresholdFor devuelve el umbral configurado para la sucursal o 0.
func (p *Product) ThresholdFor(branch string) int64 {
	if p == nil || p.Thresholds == nil {
		return 0
	}
	return p.Thresholds[branch]
}
