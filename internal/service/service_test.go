package service

import (
	"context"
	"errors"
	"sync"

	"github.com/strobelightprojects/Nursery-inventory-management/internal/models"
)

// fakePersistence is an in-memory Persistence that can be told to fail, so
// tests can assert that a store outage leaves the engine untouched.
type fakePersistence struct {
	mu           sync.Mutex
	fail         bool
	savedPlants  int
	commits      int
	reverts      int
	stockWrites  int
	lastCommit   models.Order
	lastReverted int64
}

var errStoreDown = errors.New("store down")

func (f *fakePersistence) failNext(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = fail
}

func (f *fakePersistence) err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errStoreDown
	}
	return nil
}

func (f *fakePersistence) SavePlant(ctx context.Context, p models.Plant) error {
	if err := f.err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.savedPlants++
	return nil
}

func (f *fakePersistence) DeletePlant(ctx context.Context, id int64) error {
	return f.err()
}

func (f *fakePersistence) SaveStock(ctx context.Context, plantID int64, quantity int) error {
	if err := f.err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stockWrites++
	return nil
}

func (f *fakePersistence) SaveSupplier(ctx context.Context, s models.Supplier) error {
	return f.err()
}

func (f *fakePersistence) DeleteSupplier(ctx context.Context, id int64) error {
	return f.err()
}

func (f *fakePersistence) CommitOrder(ctx context.Context, order models.Order, plants []models.Plant) error {
	if err := f.err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commits++
	f.lastCommit = order.Clone()
	return nil
}

func (f *fakePersistence) RevertOrder(ctx context.Context, orderID int64, plants []models.Plant) error {
	if err := f.err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reverts++
	f.lastReverted = orderID
	return nil
}

// fakeEvents collects published events.
type fakeEvents struct {
	mu        sync.Mutex
	stock     []*models.StockAdjustedEvent
	placed    []*models.OrderPlacedEvent
	cancelled []*models.OrderCancelledEvent
	lowStock  []*models.LowStockEvent
}

func (f *fakeEvents) PublishStockAdjusted(ctx context.Context, e *models.StockAdjustedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stock = append(f.stock, e)
	return nil
}

func (f *fakeEvents) PublishOrderPlaced(ctx context.Context, e *models.OrderPlacedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.placed = append(f.placed, e)
	return nil
}

func (f *fakeEvents) PublishOrderCancelled(ctx context.Context, e *models.OrderCancelledEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, e)
	return nil
}

func (f *fakeEvents) PublishLowStock(ctx context.Context, e *models.LowStockEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lowStock = append(f.lowStock, e)
	return nil
}

func (f *fakeEvents) lowStockCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.lowStock)
}

// engine bundles a fully wired in-memory engine for tests.
type engine struct {
	persist     *fakePersistence
	events      *fakeEvents
	registry    *Registry
	catalog     *Catalog
	ledger      *Ledger
	coordinator *Coordinator
}

func newEngine() *engine {
	persist := &fakePersistence{}
	events := &fakeEvents{}
	registry := NewRegistry(persist)
	catalog := NewCatalog(registry, persist, events, nil, false)
	ledger := NewLedger()
	return &engine{
		persist:     persist,
		events:      events,
		registry:    registry,
		catalog:     catalog,
		ledger:      ledger,
		coordinator: NewCoordinator(catalog, ledger, persist, events),
	}
}
