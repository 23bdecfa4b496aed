package entity

// Branch sucursal con su propio libro y proyección por producto.
type Branch struct {
	ID   string
	Name string
}
