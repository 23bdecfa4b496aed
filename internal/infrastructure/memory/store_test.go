package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/memory"
)

func TestTransactionRepo_AppendExigeSecuencia(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewTransactionRepository(memory.NewStore())

	require.NoError(t, repo.Append(ctx, &entity.Transaction{Branch: "b1", Product: "p1", Seq: 1, ClosingQuantity: 5}))
	err := repo.Append(ctx, &entity.Transaction{Branch: "b1", Product: "p1", Seq: 1, ClosingQuantity: 9})
	assert.ErrorIs(t, err, domain.ErrConflict, "un segundo seq 1 bifurcaría la cadena")

	require.NoError(t, repo.Append(ctx, &entity.Transaction{Branch: "b1", Product: "p1", Seq: 2, ClosingQuantity: 7}))
	// Otro producto arranca su propia secuencia.
	require.NoError(t, repo.Append(ctx, &entity.Transaction{Branch: "b1", Product: "p2", Seq: 1}))

	last, err := repo.GetLatest(ctx, "b1", "p1")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, int64(7), last.ClosingQuantity)
	assert.NotEmpty(t, last.ID)

	none, err := repo.GetLatest(ctx, "b2", "p1")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestTransactionRepo_ListByBranchFiltra(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewTransactionRepository(memory.NewStore())
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Append(ctx, &entity.Transaction{Branch: "b1", Product: "p1", Seq: 1, User: "ana@x.co", Date: base}))
	require.NoError(t, repo.Append(ctx, &entity.Transaction{Branch: "b1", Product: "p1", Seq: 2, User: "luis@x.co", Date: base.Add(time.Hour)}))
	require.NoError(t, repo.Append(ctx, &entity.Transaction{Branch: "b1", Product: "p2", Seq: 1, User: "ana@x.co", Date: base.Add(2 * time.Hour)}))

	all, err := repo.ListByBranch(ctx, "b1", entity.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "p2", all[0].Product, "más reciente primero")

	byUser, err := repo.ListByBranch(ctx, "b1", entity.TransactionFilter{User: "ana@x.co"})
	require.NoError(t, err)
	assert.Len(t, byUser, 2)

	from := base.Add(30 * time.Minute)
	to := base.Add(90 * time.Minute)
	window, err := repo.ListByBranch(ctx, "b1", entity.TransactionFilter{From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.Equal(t, "luis@x.co", window[0].User)
}

func TestInventoryRepo_OrdenAscendenteYFiltro(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewInventoryRepository(memory.NewStore())

	require.NoError(t, repo.Upsert(ctx, &entity.InventoryItem{Branch: "b1", Product: "p3", AvailableQuantity: 12, Threshold: 5}))
	require.NoError(t, repo.Upsert(ctx, &entity.InventoryItem{Branch: "b1", Product: "p1", AvailableQuantity: 2, Threshold: 5, IsBelowThreshold: true}))
	require.NoError(t, repo.Upsert(ctx, &entity.InventoryItem{Branch: "b1", Product: "p2", AvailableQuantity: 2, Threshold: 1}))

	list, err := repo.ListByBranch(ctx, "b1", false)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"p1", "p2", "p3"}, []string{list[0].Product, list[1].Product, list[2].Product})

	below, err := repo.ListByBranch(ctx, "b1", true)
	require.NoError(t, err)
	require.Len(t, below, 1)
	assert.Equal(t, "p1", below[0].Product)
}

func TestTransferRequestRepo_CicloDeVida(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewTransferRequestRepository(memory.NewStore())
	req := &entity.TransferRequest{ID: "r1", Branch: "b1", Role: entity.RoleIncoming, State: entity.RequestPending}

	require.NoError(t, repo.Create(ctx, req))
	assert.ErrorIs(t, repo.Create(ctx, req), domain.ErrConflict)

	pending, err := repo.ListByBranch(ctx, "b1", entity.RequestPending)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	require.NoError(t, repo.UpdateState(ctx, "b1", "r1", entity.RequestPending, entity.RequestRejected, time.Now()))
	got, err := repo.Get(ctx, "b1", "r1")
	require.NoError(t, err)
	assert.Equal(t, entity.RequestRejected, got.State)

	assert.ErrorIs(t, repo.UpdateState(ctx, "b2", "r1", entity.RequestPending, entity.RequestRejected, time.Now()), domain.ErrNotFound)
}

func TestTransferRequestRepo_UpdateStateEsCompareAndSet(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewTransferRequestRepository(memory.NewStore())
	require.NoError(t, repo.Create(ctx, &entity.TransferRequest{ID: "r1", Branch: "b1", Role: entity.RoleIncoming, State: entity.RequestPending}))

	require.NoError(t, repo.UpdateState(ctx, "b1", "r1", entity.RequestPending, entity.RequestRejected, time.Now()))

	err := repo.UpdateState(ctx, "b1", "r1", entity.RequestPending, entity.RequestAccepted, time.Now())
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "otro ya decidió la solicitud")
	err = repo.UpdateState(ctx, "b1", "r1", entity.RequestRejected, entity.RequestAccepted, time.Now())
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "REJECTED no admite salida")

	got, err := repo.Get(ctx, "b1", "r1")
	require.NoError(t, err)
	assert.Equal(t, entity.RequestRejected, got.State)
}
