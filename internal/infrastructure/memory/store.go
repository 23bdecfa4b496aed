// Package memory implementa los puertos de persistencia en memoria de proceso.
// Sirve para desarrollo local (STORE_BACKEND=memory) y como tienda de los tests de casos de uso.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

var (
	_ repository.TransactionRepository     = (*TransactionRepo)(nil)
	_ repository.InventoryRepository       = (*InventoryRepo)(nil)
	_ repository.TransferRequestRepository = (*TransferRequestRepo)(nil)
	_ repository.BranchRepository          = (*BranchRepo)(nil)
	_ repository.ProductRepository         = (*ProductRepo)(nil)
)

// Store colecciones por sucursal protegidas por un único RWMutex.
// Los repositorios devuelven copias; nadie fuera del paquete comparte punteros con el estado interno.
type Store struct {
	mu          sync.RWMutex
	branches    map[string]*entity.Branch
	branchOrder []string
	products    map[string]*entity.Product
	ledgers     map[string][]*entity.Transaction // clave: sucursal; orden de anexado
	inventory   map[string]map[string]*entity.InventoryItem
	requests    map[string]map[string]*entity.TransferRequest
}

// NewStore crea una tienda vacía.
func NewStore() *Store {
	return &Store{
		branches:  make(map[string]*entity.Branch),
		products:  make(map[string]*entity.Product),
		ledgers:   make(map[string][]*entity.Transaction),
		inventory: make(map[string]map[string]*entity.InventoryItem),
		requests:  make(map[string]map[string]*entity.TransferRequest),
	}
}

// PutBranch registra o reemplaza una sucursal (semilla).
func (s *Store) PutBranch(b entity.Branch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.branches[b.ID]; !ok {
		s.branchOrder = append(s.branchOrder, b.ID)
	}
	s.branches[b.ID] = &b
}

// PutProduct registra o reemplaza un producto (semilla).
func (s *Store) PutProduct(p entity.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.Thresholds = copyThresholds(p.Thresholds)
	s.products[p.ID] = &p
}

func copyThresholds(in map[string]int64) map[string]int64 {
	if in == nil {
		return nil
	}
	out := make(map[string]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// TransactionRepo libro de transacciones en memoria.
type TransactionRepo struct{ s *Store }

// NewTransactionRepository construye el adaptador del libro.
func NewTransactionRepository(s *Store) *TransactionRepo { return &TransactionRepo{s: s} }

func (r *TransactionRepo) GetLatest(_ context.Context, branch, product string) (*entity.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	last := r.latestLocked(branch, product)
	if last == nil {
		return nil, nil
	}
	cp := *last
	return &cp, nil
}

func (r *TransactionRepo) latestLocked(branch, product string) *entity.Transaction {
	var last *entity.Transaction
	for _, t := range r.s.ledgers[branch] {
		if t.Product != product {
			continue
		}
		if last == nil || t.Seq > last.Seq {
			last = t
		}
	}
	return last
}

// Append exige Seq = último + 1, equivalente al UNIQUE (branch, product, seq) de PostgreSQL.
func (r *TransactionRepo) Append(_ context.Context, tx *entity.Transaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	expected := int64(1)
	if last := r.latestLocked(tx.Branch, tx.Product); last != nil {
		expected = last.Seq + 1
	}
	if tx.Seq != expected {
		return fmt.Errorf("%w: seq %d, se esperaba %d para %s/%s",
			domain.ErrConflict, tx.Seq, expected, tx.Branch, tx.Product)
	}
	cp := *tx
	r.s.ledgers[tx.Branch] = append(r.s.ledgers[tx.Branch], &cp)
	return nil
}

func (r *TransactionRepo) FindByPeer(_ context.Context, branch, peerID string, op entity.Operation) (*entity.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, t := range r.s.ledgers[branch] {
		if t.TransferPeerID == peerID && t.Operation == op {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *TransactionRepo) ListByBranch(_ context.Context, branch string, filter entity.TransactionFilter) ([]*entity.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	list := make([]*entity.Transaction, 0)
	for _, t := range r.s.ledgers[branch] {
		if filter.Matches(t) {
			cp := *t
			list = append(list, &cp)
		}
	}
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].Date.Equal(list[j].Date) {
			return list[i].Date.After(list[j].Date)
		}
		return list[i].Seq > list[j].Seq
	})
	return list, nil
}

// InventoryRepo proyección de inventario en memoria.
type InventoryRepo struct{ s *Store }

// NewInventoryRepository construye el adaptador de la proyección.
func NewInventoryRepository(s *Store) *InventoryRepo { return &InventoryRepo{s: s} }

func (r *InventoryRepo) Get(_ context.Context, branch, product string) (*entity.InventoryItem, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	item, ok := r.s.inventory[branch][product]
	if !ok {
		return nil, nil
	}
	cp := *item
	return &cp, nil
}

func (r *InventoryRepo) Upsert(_ context.Context, item *entity.InventoryItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rows, ok := r.s.inventory[item.Branch]
	if !ok {
		rows = make(map[string]*entity.InventoryItem)
		r.s.inventory[item.Branch] = rows
	}
	cp := *item
	rows[item.Product] = &cp
	return nil
}

func (r *InventoryRepo) ListByBranch(_ context.Context, branch string, belowThresholdOnly bool) ([]*entity.InventoryItem, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	list := make([]*entity.InventoryItem, 0, len(r.s.inventory[branch]))
	for _, item := range r.s.inventory[branch] {
		if belowThresholdOnly && !item.IsBelowThreshold {
			continue
		}
		cp := *item
		list = append(list, &cp)
	}
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].AvailableQuantity != list[j].AvailableQuantity {
			return list[i].AvailableQuantity < list[j].AvailableQuantity
		}
		return list[i].Product < list[j].Product
	})
	return list, nil
}

// TransferRequestRepo solicitudes de traslado en memoria, una colección por sucursal.
type TransferRequestRepo struct{ s *Store }

// NewTransferRequestRepository construye el adaptador de solicitudes.
func NewTransferRequestRepository(s *Store) *TransferRequestRepo { return &TransferRequestRepo{s: s} }

func (r *TransferRequestRepo) Create(_ context.Context, req *entity.TransferRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	docs, ok := r.s.requests[req.Branch]
	if !ok {
		docs = make(map[string]*entity.TransferRequest)
		r.s.requests[req.Branch] = docs
	}
	if _, exists := docs[req.ID]; exists {
		return fmt.Errorf("%w: solicitud %s ya existe en %s", domain.ErrConflict, req.ID, req.Branch)
	}
	cp := *req
	docs[req.ID] = &cp
	return nil
}

func (r *TransferRequestRepo) Get(_ context.Context, branch, id string) (*entity.TransferRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	req, ok := r.s.requests[branch][id]
	if !ok {
		return nil, nil
	}
	cp := *req
	return &cp, nil
}

func (r *TransferRequestRepo) UpdateState(_ context.Context, branch, id string, from, to entity.RequestState, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	req, ok := r.s.requests[branch][id]
	if !ok {
		return fmt.Errorf("%w: solicitud %s en %s", domain.ErrNotFound, id, branch)
	}
	if req.State != from {
		return fmt.Errorf("%w: solicitud %s en %s está %s, se esperaba %s",
			domain.ErrInvalidTransition, id, branch, req.State, from)
	}
	next, err := req.State.TransitionTo(to)
	if err != nil {
		return err
	}
	req.State = next
	req.Date = at
	return nil
}

func (r *TransferRequestRepo) ListByBranch(_ context.Context, branch string, state entity.RequestState) ([]*entity.TransferRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	list := make([]*entity.TransferRequest, 0)
	for _, req := range r.s.requests[branch] {
		if req.State != state {
			continue
		}
		cp := *req
		list = append(list, &cp)
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].Date.After(list[j].Date) })
	return list, nil
}

// BranchRepo sucursales en memoria.
type BranchRepo struct{ s *Store }

// NewBranchRepository construye el adaptador de sucursales.
func NewBranchRepository(s *Store) *BranchRepo { return &BranchRepo{s: s} }

func (r *BranchRepo) GetByID(_ context.Context, id string) (*entity.Branch, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	b, ok := r.s.branches[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (r *BranchRepo) List(_ context.Context) ([]*entity.Branch, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	list := make([]*entity.Branch, 0, len(r.s.branchOrder))
	for _, id := range r.s.branchOrder {
		cp := *r.s.branches[id]
		list = append(list, &cp)
	}
	return list, nil
}

// ProductRepo metadatos de producto en memoria.
type ProductRepo struct{ s *Store }

// NewProductRepository construye el adaptador de productos.
func NewProductRepository(s *Store) *ProductRepo { return &ProductRepo{s: s} }

func (r *ProductRepo) GetByID(_ context.Context, id string) (*entity.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	cp.Thresholds = copyThresholds(p.Thresholds)
	return &cp, nil
}
