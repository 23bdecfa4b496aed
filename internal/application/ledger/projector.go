package ledger

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
	"github.com/jhoicas/inventario-ledger/pkg/logger"
)

// maxBranchFanOut límite de sucursales consultadas en paralelo en ListAllInventory.
const maxBranchFanOut = 8

// Projector mantiene la proyección de inventario por (sucursal, producto).
// Es el único dueño de esas filas; el Writer lo invoca después de cada escritura confirmada.
type Projector struct {
	items    repository.InventoryRepository
	branches repository.BranchRepository
	products repository.ProductRepository
	log      *logger.Logger
	now      func() time.Time
}

// NewProjector construye el proyector de inventario.
func NewProjector(
	items repository.InventoryRepository,
	branches repository.BranchRepository,
	products repository.ProductRepository,
	log *logger.Logger,
) *Projector {
	return &Projector{
		items:    items,
		branches: branches,
		products: products,
		log:      log.Component("inventory_projector"),
		now:      time.Now,
	}
}

// BranchInventory inventario proyectado de una sucursal.
type BranchInventory struct {
	Branch *entity.Branch
	Items  []*entity.InventoryItem
}

// Project actualiza la fila con el cierre de la última transacción.
// Si la fila no existe se crea con categoría, unidad y umbral del producto (umbral 0 si no hay para la sucursal);
// si existe, se conservan sus campos y solo cambian AvailableQuantity e IsBelowThreshold. Idempotente.
func (p *Projector) Project(ctx context.Context, branch, product string, closing int64) error {
	item, err := p.items.Get(ctx, branch, product)
	if err != nil {
		return err
	}
	if item == nil {
		meta, err := p.products.GetByID(ctx, product)
		if err != nil {
			return err
		}
		if meta == nil {
			return fmt.Errorf("%w: producto %s", domain.ErrNotFound, product)
		}
		item = &entity.InventoryItem{
			Branch:    branch,
			Product:   product,
			Threshold: meta.ThresholdFor(branch),
			Category:  meta.Category,
			Unit:      meta.Unit,
		}
	}
	item.Apply(closing, p.now())
	if err := p.items.Upsert(ctx, item); err != nil {
		return err
	}
	p.log.Debug().
		Str("branch", branch).
		Str("product", product).
		Int64("available", item.AvailableQuantity).
		Bool("below_threshold", item.IsBelowThreshold).
		Msg("proyección actualizada")
	return nil
}

// Get devuelve la fila proyectada o ErrNotFound.
func (p *Projector) Get(ctx context.Context, branch, product string) (*entity.InventoryItem, error) {
	item, err := p.items.Get(ctx, branch, product)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("%w: inventario %s/%s", domain.ErrNotFound, branch, product)
	}
	return item, nil
}

// ListInventory lista la proyección de la sucursal ordenada por cantidad disponible ascendente.
func (p *Projector) ListInventory(ctx context.Context, branch string, belowThresholdOnly bool) ([]*entity.InventoryItem, error) {
	b, err := p.branches.GetByID(ctx, branch)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, fmt.Errorf("%w: sucursal %s", domain.ErrNotFound, branch)
	}
	items, err := p.items.ListByBranch(ctx, branch, belowThresholdOnly)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*entity.InventoryItem{}
	}
	return items, nil
}

// ListAllInventory consulta la proyección de todas las sucursales en paralelo.
// El orden del resultado es el de BranchRepository.List.
func (p *Projector) ListAllInventory(ctx context.Context, belowThresholdOnly bool) ([]BranchInventory, error) {
	branches, err := p.branches.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]BranchInventory, len(branches))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxBranchFanOut)
	for i, b := range branches {
		g.Go(func() error {
			items, err := p.items.ListByBranch(gctx, b.ID, belowThresholdOnly)
			if err != nil {
				return fmt.Errorf("inventario de %s: %w", b.ID, err)
			}
			if items == nil {
				items = []*entity.InventoryItem{}
			}
			out[i] = BranchInventory{Branch: b, Items: items}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
