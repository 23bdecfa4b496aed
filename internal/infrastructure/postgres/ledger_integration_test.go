package postgres_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ledger/internal/application/ledger"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/inventario-ledger/pkg/logger"
)

// Requiere TEST_DATABASE_URL apuntando a una base desechable; sin ella los tests se omiten.
func setupPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL no definida")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, postgres.Migrate(ctx, pool))
	return pool
}

// seed crea una sucursal y un producto con IDs únicos para aislar cada test.
func seed(t *testing.T, pool *pgxpool.Pool) (branch, product string) {
	t.Helper()
	ctx := context.Background()
	branch = "b-" + uuid.NewString()[:8]
	product = "p-" + uuid.NewString()[:8]
	_, err := pool.Exec(ctx, `INSERT INTO branches (id, name) VALUES ($1, $2)`, branch, "Sucursal "+branch)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `INSERT INTO products (id, name, category, unit) VALUES ($1, $2, 'granos', 'und')`, product, "Arroz")
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `INSERT INTO product_thresholds (product_id, branch_id, threshold) VALUES ($1, $2, 5)`, product, branch)
	require.NoError(t, err)
	return branch, product
}

func newWriter(pool *pgxpool.Pool) *ledger.Writer {
	branches := postgres.NewBranchRepository(pool)
	products := postgres.NewProductRepository(pool)
	projector := ledger.NewProjector(postgres.NewInventoryRepository(pool), branches, products, logger.NewNop())
	return ledger.NewWriter(
		postgres.NewTxRunner(pool),
		memory.NewKeyedMutex(0),
		postgres.NewTransactionRepository(pool),
		branches,
		products,
		projector,
		logger.NewNop(),
	)
}

func TestPostgres_EscriturasConcurrentes(t *testing.T) {
	pool := setupPool(t)
	branch, product := seed(t, pool)
	w := newWriter(pool)
	ctx := context.Background()
	const n = 20

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := w.AddProduct(ctx, ledger.ActionInput{Branch: branch, Product: product, Quantity: 2, User: "ana@tienda.co"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	bal, err := w.Balance(ctx, branch, product)
	require.NoError(t, err)
	assert.Equal(t, int64(2*n), bal)

	item, err := postgres.NewInventoryRepository(pool).Get(ctx, branch, product)
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, int64(2*n), item.AvailableQuantity)
	assert.Equal(t, int64(5), item.Threshold)
}

func TestPostgres_SeqDuplicadoEsConflicto(t *testing.T) {
	pool := setupPool(t)
	branch, product := seed(t, pool)
	repo := postgres.NewTransactionRepository(pool)
	ctx := context.Background()

	tx := &entity.Transaction{
		ID: uuid.NewString(), Branch: branch, Product: product, Operation: entity.OperationAddProduct,
		OperationalQuantity: 3, ClosingQuantity: 3, Date: time.Now(), Seq: 1,
	}
	require.NoError(t, repo.Append(ctx, tx))

	fork := *tx
	fork.ID = uuid.NewString()
	assert.ErrorIs(t, repo.Append(ctx, &fork), domain.ErrConflict)
}

func TestPostgres_SolicitudesDeTraslado(t *testing.T) {
	pool := setupPool(t)
	to, product := seed(t, pool)
	from, _ := seed(t, pool)
	repo := postgres.NewTransferRequestRepository(pool)
	ctx := context.Background()

	req := &entity.TransferRequest{
		ID: uuid.NewString(), Branch: to, Role: entity.RoleIncoming, PeerBranch: from, Product: product,
		Quantity: 4, State: entity.RequestPending, Date: time.Now(),
	}
	require.NoError(t, repo.Create(ctx, req))
	assert.ErrorIs(t, repo.Create(ctx, req), domain.ErrConflict)

	require.NoError(t, repo.UpdateState(ctx, to, req.ID, entity.RequestPending, entity.RequestAccepted, time.Now()))
	got, err := repo.Get(ctx, to, req.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, entity.RequestAccepted, got.State)
	assert.Equal(t, entity.RoleIncoming, got.Role)

	// Un rechazo tardío no pisa la aceptación.
	err = repo.UpdateState(ctx, to, req.ID, entity.RequestPending, entity.RequestRejected, time.Now())
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	assert.ErrorIs(t, repo.UpdateState(ctx, from, req.ID, entity.RequestPending, entity.RequestAccepted, time.Now()), domain.ErrNotFound)
}
