package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/inventario-ledger/internal/application/ledger"
	"github.com/jhoicas/inventario-ledger/internal/application/transfer"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Writer    *ledger.Writer
	Projector *ledger.Projector
	Transfers *transfer.Workflow
	JWTSecret string
}

// Router registra las rutas de la API. Todas requieren Bearer Token; el email del token
// es el usuario que queda en cada transacción.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))
	anyRole := RequireRole(RoleAdmin, RoleBodeguero, RoleVendedor)
	stockRole := RequireRole(RoleAdmin, RoleBodeguero)
	adminOnly := RequireRole(RoleAdmin)

	// Acciones sobre el libro de una sucursal
	ledgerHandler := NewLedgerHandler(deps.Writer)
	actions := api.Group("/actions")
	actions.Post("/add-product", stockRole, ledgerHandler.AddProduct)
	actions.Post("/issue-product", anyRole, ledgerHandler.IssueProduct)
	actions.Post("/adjustment", adminOnly, ledgerHandler.Adjustment)

	api.Get("/transactions/:branch", anyRole, ledgerHandler.History)
	api.Get("/balance/:branch/:product", anyRole, ledgerHandler.Balance)

	// Traslados entre sucursales
	transferHandler := NewTransferHandler(deps.Transfers)
	transfers := api.Group("/transfers")
	transfers.Post("/request", stockRole, transferHandler.Request)
	transfers.Post("/accept", stockRole, transferHandler.Accept)
	transfers.Post("/reject", stockRole, transferHandler.Reject)
	transfers.Post("/move", adminOnly, transferHandler.Move)
	transfers.Post("/reconcile", adminOnly, transferHandler.Reconcile)
	transfers.Get("/branches/:id", anyRole, transferHandler.ListByBranch)

	// Proyección de inventario (las rutas fijas van antes que los parámetros)
	inventoryHandler := NewInventoryHandler(deps.Projector, deps.Writer)
	inv := api.Group("/inventory", anyRole)
	inv.Get("/", inventoryHandler.ListAll)
	inv.Get("/below-threshold", inventoryHandler.ListAllBelowThreshold)
	inv.Get("/:branch", inventoryHandler.ListBranch)
	inv.Get("/:branch/below-threshold", inventoryHandler.ListBranchBelowThreshold)
	inv.Get("/:branch/:product", inventoryHandler.GetItem)
	inv.Post("/:branch/:product/rebuild", adminOnly, inventoryHandler.Rebuild)
}
