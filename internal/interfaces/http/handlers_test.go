package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ledger/internal/application/dto"
	"github.com/jhoicas/inventario-ledger/internal/application/ledger"
	"github.com/jhoicas/inventario-ledger/internal/application/transfer"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/memory"
	apphttp "github.com/jhoicas/inventario-ledger/internal/interfaces/http"
	"github.com/jhoicas/inventario-ledger/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

// brokenInLegs hace fallar toda pierna TransferIn.
type brokenInLegs struct{ next transfer.LedgerAppender }

func (b brokenInLegs) Append(ctx context.Context, cmd ledger.AppendCommand) (*ledger.AppendResult, error) {
	if cmd.Operation == entity.OperationTransferIn {
		return nil, errors.New("destino caído")
	}
	return b.next.Append(ctx, cmd)
}

// buildLedgerApp arma la API completa sobre la tienda en memoria con sucursales b1 (Centro) y b2 (Norte).
func buildLedgerApp(t *testing.T, breakInLegs bool) *fiber.App {
	t.Helper()
	store := memory.NewStore()
	store.PutBranch(entity.Branch{ID: "b1", Name: "Centro"})
	store.PutBranch(entity.Branch{ID: "b2", Name: "Norte"})
	store.PutProduct(entity.Product{
		ID: "p1", Name: "Arroz 500g", Category: "granos", Unit: "und",
		Thresholds: map[string]int64{"b1": 5, "b2": 5},
	})

	log := logger.NewNop()
	branches := memory.NewBranchRepository(store)
	products := memory.NewProductRepository(store)
	txs := memory.NewTransactionRepository(store)
	projector := ledger.NewProjector(memory.NewInventoryRepository(store), branches, products, log)
	locker := memory.NewKeyedMutex(time.Second)
	writer := ledger.NewWriter(memory.NewTxRunner(store), locker, txs, branches, products, projector, log)

	var appender transfer.LedgerAppender = writer
	if breakInLegs {
		appender = brokenInLegs{next: writer}
	}
	workflow := transfer.NewWorkflow(memory.NewTransferRequestRepository(store), txs, branches, products, appender, locker, log)

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		Writer:    writer,
		Projector: projector,
		Transfers: workflow,
		JWTSecret: testJWTSecret,
	})
	return app
}

// call lanza la petición con el rol dado y decodifica el cuerpo en out (si no es nil).
func call(t *testing.T, app *fiber.App, role, method, path string, body any, out any) int {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", tokenForRole(t, role))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func addStock(t *testing.T, app *fiber.App, branch string, qty int64) {
	t.Helper()
	status := call(t, app, "admin", http.MethodPost, "/api/actions/add-product",
		dto.ActionRequest{Branch: branch, Product: "p1", Quantity: qty}, nil)
	require.Equal(t, http.StatusCreated, status)
}

// ──────────────────────────────────────────────────────────────────────────────
// Acciones
// ──────────────────────────────────────────────────────────────────────────────

func TestActions_EntradaRegistraUsuarioDelToken(t *testing.T) {
	app := buildLedgerApp(t, false)

	var res dto.ActionResponse
	status := call(t, app, "bodeguero", http.MethodPost, "/api/actions/add-product",
		dto.ActionRequest{Branch: "b1", Product: "p1", Quantity: 8}, &res)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, int64(0), res.InitialQuantity)
	assert.Equal(t, int64(8), res.ClosingQuantity)
	assert.Empty(t, res.Warning)

	var history struct {
		Total        int                  `json:"total"`
		Transactions []dto.TransactionDTO `json:"transactions"`
	}
	status = call(t, app, "vendedor", http.MethodGet, "/api/transactions/b1?user="+testEmail, nil, &history)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, 1, history.Total)
	assert.Equal(t, testEmail, history.Transactions[0].User)
	assert.Equal(t, entity.OperationAddProduct, history.Transactions[0].Operation)
}

func TestActions_SalidaSinStockEs400(t *testing.T) {
	app := buildLedgerApp(t, false)
	addStock(t, app, "b1", 2)

	var errBody dto.ErrorResponse
	status := call(t, app, "vendedor", http.MethodPost, "/api/actions/issue-product",
		dto.ActionRequest{Branch: "b1", Product: "p1", Quantity: 3}, &errBody)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_QUANTITY", errBody.Code)
}

func TestActions_AjusteSoloAdmin(t *testing.T) {
	app := buildLedgerApp(t, false)

	status := call(t, app, "vendedor", http.MethodPost, "/api/actions/adjustment",
		dto.ActionRequest{Branch: "b1", Product: "p1", Quantity: 3}, nil)
	assert.Equal(t, http.StatusForbidden, status)

	var res dto.ActionResponse
	status = call(t, app, "admin", http.MethodPost, "/api/actions/adjustment",
		dto.ActionRequest{Branch: "b1", Product: "p1", Quantity: 3}, &res)
	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, int64(3), res.ClosingQuantity)
}

func TestActions_SucursalInexistenteEs404(t *testing.T) {
	app := buildLedgerApp(t, false)

	var errBody dto.ErrorResponse
	status := call(t, app, "admin", http.MethodPost, "/api/actions/add-product",
		dto.ActionRequest{Branch: "zz", Product: "p1", Quantity: 1}, &errBody)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errBody.Code)
}

func TestHistory_FechaInvalidaEs400(t *testing.T) {
	app := buildLedgerApp(t, false)

	status := call(t, app, "admin", http.MethodGet, "/api/transactions/b1?from=ayer", nil, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

// ──────────────────────────────────────────────────────────────────────────────
// Traslados e inventario
// ──────────────────────────────────────────────────────────────────────────────

func TestTransfers_SolicitudAceptadaMueveStock(t *testing.T) {
	app := buildLedgerApp(t, false)
	addStock(t, app, "b1", 10)

	var created dto.TransferCreatedResponse
	status := call(t, app, "bodeguero", http.MethodPost, "/api/transfers/request",
		dto.TransferRequestBody{ToBranch: "b2", FromBranch: "b1", Product: "p1", Quantity: 7}, &created)
	require.Equal(t, http.StatusCreated, status)
	require.NotEmpty(t, created.RequestID)
	assert.Equal(t, entity.RequestPending, created.State)

	var pending []dto.TransferRequestDTO
	status = call(t, app, "vendedor", http.MethodGet, "/api/transfers/branches/b1", nil, &pending)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, pending, 1)
	assert.Equal(t, entity.RoleOutgoing, pending[0].Role)
	assert.Equal(t, "Norte", pending[0].PeerBranchName)

	var result dto.TransferResultResponse
	status = call(t, app, "bodeguero", http.MethodPost, "/api/transfers/accept",
		dto.TransferDecisionBody{RequestID: created.RequestID, ToBranch: "b2", FromBranch: "b1"}, &result)
	require.Equal(t, http.StatusCreated, status)
	assert.NotEmpty(t, result.FromTransactionID)
	assert.NotEmpty(t, result.ToTransactionID)

	var below []dto.InventoryItemDTO
	status = call(t, app, "vendedor", http.MethodGet, "/api/inventory/b1/below-threshold", nil, &below)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, below, 1, "quedan 3 con umbral 5")
	assert.Equal(t, int64(3), below[0].AvailableQuantity)

	var all []dto.BranchInventoryDTO
	status = call(t, app, "vendedor", http.MethodGet, "/api/inventory", nil, &all)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, all, 2)
	require.Len(t, all[1].Items, 1)
	assert.Equal(t, int64(7), all[1].Items[0].AvailableQuantity)

	var accepted []dto.TransferRequestDTO
	status = call(t, app, "vendedor", http.MethodGet, "/api/transfers/branches/b2?state=ACCEPTED", nil, &accepted)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, accepted, 1)

	var errBody dto.ErrorResponse
	status = call(t, app, "bodeguero", http.MethodPost, "/api/transfers/accept",
		dto.TransferDecisionBody{RequestID: created.RequestID, ToBranch: "b2", FromBranch: "b1"}, &errBody)
	assert.Equal(t, http.StatusNotFound, status, "ya no hay solicitud pendiente")
}

func TestTransfers_RechazoNoTocaElLibro(t *testing.T) {
	app := buildLedgerApp(t, false)
	addStock(t, app, "b1", 10)

	var created dto.TransferCreatedResponse
	require.Equal(t, http.StatusCreated, call(t, app, "bodeguero", http.MethodPost, "/api/transfers/request",
		dto.TransferRequestBody{ToBranch: "b2", FromBranch: "b1", Product: "p1", Quantity: 4}, &created))

	status := call(t, app, "bodeguero", http.MethodPost, "/api/transfers/reject",
		dto.TransferDecisionBody{RequestID: created.RequestID, ToBranch: "b2", FromBranch: "b1"}, nil)
	require.Equal(t, http.StatusOK, status)

	var bal dto.BalanceResponse
	require.Equal(t, http.StatusOK, call(t, app, "vendedor", http.MethodGet, "/api/balance/b1/p1", nil, &bal))
	assert.Equal(t, int64(10), bal.Quantity)
}

func TestTransfers_DesbalanceEs500ConDetalle(t *testing.T) {
	app := buildLedgerApp(t, true)
	addStock(t, app, "b1", 10)

	var body dto.UnbalancedTransferResponse
	status := call(t, app, "admin", http.MethodPost, "/api/transfers/move",
		dto.TransferRequestBody{ToBranch: "b2", FromBranch: "b1", Product: "p1", Quantity: 4}, &body)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "UNBALANCED_TRANSFER", body.Code)
	assert.Equal(t, "b1", body.CompletedBranch)
	assert.Equal(t, "b2", body.FailedBranch)
	assert.NotEmpty(t, body.CompletedTxID)
}

func TestTransfers_ReconcileSoloAdmin(t *testing.T) {
	app := buildLedgerApp(t, false)

	status := call(t, app, "bodeguero", http.MethodPost, "/api/transfers/reconcile",
		dto.TransferDecisionBody{RequestID: "x", ToBranch: "b2", FromBranch: "b1"}, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status = call(t, app, "admin", http.MethodPost, "/api/transfers/reconcile",
		dto.TransferDecisionBody{RequestID: "x", ToBranch: "b2", FromBranch: "b1"}, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestInventory_FilaInexistenteEs404(t *testing.T) {
	app := buildLedgerApp(t, false)

	status := call(t, app, "vendedor", http.MethodGet, "/api/inventory/b1/p1", nil, nil)
	assert.Equal(t, http.StatusNotFound, status)

	addStock(t, app, "b1", 1)
	var item dto.InventoryItemDTO
	require.Equal(t, http.StatusOK, call(t, app, "vendedor", http.MethodGet, "/api/inventory/b1/p1", nil, &item))
	assert.Equal(t, int64(1), item.AvailableQuantity)
	assert.Equal(t, int64(5), item.Threshold)

	var rebuilt dto.InventoryItemDTO
	require.Equal(t, http.StatusOK, call(t, app, "admin", http.MethodPost, "/api/inventory/b1/p1/rebuild", nil, &rebuilt))
	assert.Equal(t, int64(1), rebuilt.AvailableQuantity)
}
