package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jhoicas/inventario-ledger/internal/application/ledger"
	"github.com/jhoicas/inventario-ledger/internal/application/transfer"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/postgres"
	infraredis "github.com/jhoicas/inventario-ledger/internal/infrastructure/redis"
	httpRouter "github.com/jhoicas/inventario-ledger/internal/interfaces/http"
	"github.com/jhoicas/inventario-ledger/pkg/config"
	"github.com/jhoicas/inventario-ledger/pkg/logger"
)

// stores repositorios y runner del backend elegido.
type stores struct {
	runner       ledger.TxRunner
	transactions repository.TransactionRepository
	inventory    repository.InventoryRepository
	requests     repository.TransferRequestRepository
	branches     repository.BranchRepository
	products     repository.ProductRepository
	close        func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.Log.Level,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.Store.Backend).
		Str("lock", cfg.Lock.Backend).
		Msg("iniciando aplicación")

	ctx := context.Background()
	st, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("abrir almacenamiento")
	}
	defer st.close()

	var locker ledger.KeyLocker = memory.NewKeyedMutex(cfg.Lock.Wait)
	if cfg.Lock.Backend == config.BackendRedis {
		client, err := infraredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer client.Close()
		locker = infraredis.NewLocker(client, cfg.Lock.TTL, cfg.Lock.Wait, log)
	}

	projector := ledger.NewProjector(st.inventory, st.branches, st.products, log)
	writer := ledger.NewWriter(st.runner, locker, st.transactions, st.branches, st.products, projector, log)
	workflow := transfer.NewWorkflow(st.requests, st.transactions, st.branches, st.products, writer, locker, log)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Writer:    writer,
		Projector: projector,
		Transfers: workflow,
		JWTSecret: cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

// openStores abre PostgreSQL (con migraciones) o la tienda en memoria sembrada desde el catálogo.
func openStores(ctx context.Context, cfg *config.Config, log *logger.Logger) (*stores, error) {
	if cfg.Store.Backend == config.BackendPostgres {
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return &stores{
			runner:       postgres.NewTxRunner(pool),
			transactions: postgres.NewTransactionRepository(pool),
			inventory:    postgres.NewInventoryRepository(pool),
			requests:     postgres.NewTransferRequestRepository(pool),
			branches:     postgres.NewBranchRepository(pool),
			products:     postgres.NewProductRepository(pool),
			close:        pool.Close,
		}, nil
	}

	store := memory.NewStore()
	if cfg.Catalog.Path != "" {
		catalog, err := config.LoadCatalog(cfg.Catalog.Path)
		if err != nil {
			return nil, err
		}
		for _, b := range catalog.Branches {
			store.PutBranch(entity.Branch{ID: b.ID, Name: b.Name})
		}
		for _, p := range catalog.Products {
			store.PutProduct(entity.Product{
				ID:         p.ID,
				Name:       p.Name,
				Category:   p.Category,
				Unit:       p.Unit,
				Thresholds: p.ThresholdMap(),
			})
		}
		log.Info().
			Int("branches", len(catalog.Branches)).
			Int("products", len(catalog.Products)).
			Msg("catálogo cargado en memoria")
	} else {
		log.Warn().Msg("CATALOG_PATH vacío: el backend memory arranca sin sucursales ni productos")
	}
	return &stores{
		runner:       memory.NewTxRunner(store),
		transactions: memory.NewTransactionRepository(store),
		inventory:    memory.NewInventoryRepository(store),
		requests:     memory.NewTransferRequestRepository(store),
		branches:     memory.NewBranchRepository(store),
		products:     memory.NewProductRepository(store),
		close:        func() {},
	}, nil
}
