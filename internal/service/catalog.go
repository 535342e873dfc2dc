package service

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/strobelightprojects/Nursery-inventory-management/internal/apperr"
	"github.com/strobelightprojects/Nursery-inventory-management/internal/models"
	"github.com/strobelightprojects/Nursery-inventory-management/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// plantEntry pairs a plant record with its own lock. The entry lock guards
// every field of the record; the catalog table lock guards map membership.
type plantEntry struct {
	mu    sync.Mutex
	plant models.Plant
}

// setQuantityLocked is the single writer of a plant's quantity. Caller holds
// the entry lock and has already validated and persisted the new value.
func (e *plantEntry) setQuantityLocked(quantity int) {
	e.plant.Quantity = quantity
}

// Catalog owns plant records and stock quantities. Quantity is written only
// through setQuantityLocked; AdjustStock is the single entry point for direct
// adjustments, and the coordinator reaches the same entry locks through
// resolveEntriesLocked for multi-plant transactions.
//
// Lock order, everywhere: catalog table lock, then entry locks in ascending
// plant id, then the supplier registry lock.
type Catalog struct {
	mu     sync.RWMutex
	plants map[int64]*plantEntry
	nextID int64

	registry       *Registry
	persist        Persistence
	events         EventSink
	mirror         StockMirror
	allowZeroDelta bool
	logger         *zap.Logger
}

// NewCatalog creates the plant catalog and binds it to the supplier registry
// so that supplier deletion can freeze the catalog during its reference scan.
func NewCatalog(registry *Registry, persist Persistence, events EventSink, mirror StockMirror, allowZeroDelta bool) *Catalog {
	c := &Catalog{
		plants:         make(map[int64]*plantEntry),
		registry:       registry,
		persist:        persist,
		events:         events,
		mirror:         mirror,
		allowZeroDelta: allowZeroDelta,
		logger:         util.GetLogger(),
	}
	if registry != nil {
		registry.catalog = c
	}
	return c
}

func validateMoney(field string, d decimal.Decimal) error {
	if d.IsNegative() {
		return apperr.Validation("%s must not be negative", field)
	}
	if d.Exponent() < -2 {
		return apperr.Validation("%s must have at most cent precision", field)
	}
	return nil
}

func (c *Catalog) validatePlant(p models.Plant) error {
	if strings.TrimSpace(p.Name) == "" {
		return apperr.Validation("plant name is required")
	}
	if strings.TrimSpace(p.Category) == "" {
		return apperr.Validation("plant category is required")
	}
	if err := validateMoney("price", p.Price); err != nil {
		return err
	}
	if p.CostPrice != nil {
		if err := validateMoney("cost_price", *p.CostPrice); err != nil {
			return err
		}
	}
	if p.ReorderAt != nil && *p.ReorderAt < 0 {
		return apperr.Validation("reorder_at must not be negative")
	}
	return nil
}

// checkSupplierRef verifies the weak reference. Caller must hold the table
// lock (read or write) so a concurrent supplier deletion cannot slip between
// the check and the write.
func (c *Catalog) checkSupplierRef(supplierID *int64) error {
	if supplierID == nil {
		return nil
	}
	if c.registry == nil || !c.registry.exists(*supplierID) {
		return apperr.Validation("supplier %d does not exist", *supplierID)
	}
	return nil
}

// Create validates and inserts a new plant, assigning its id.
func (c *Catalog) Create(ctx context.Context, p models.Plant) (models.Plant, error) {
	if err := c.validatePlant(p); err != nil {
		return models.Plant{}, err
	}
	if p.Quantity < 0 {
		return models.Plant{}, apperr.Validation("quantity must not be negative")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkSupplierRef(p.SupplierID); err != nil {
		return models.Plant{}, err
	}

	c.nextID++
	p.ID = c.nextID

	if err := c.persist.SavePlant(ctx, p); err != nil {
		c.nextID--
		return models.Plant{}, apperr.Unavailable("failed to persist plant", err)
	}

	c.plants[p.ID] = &plantEntry{plant: p}
	c.mirrorQuantity(ctx, p.ID, p.Quantity)
	c.logger.Info("Plant created", zap.Int64("plant_id", p.ID), zap.String("name", p.Name))
	return p, nil
}

// UpdatePlantParams holds the mutable plant fields. Nil means unchanged.
// Quantity is deliberately absent; stock moves only through AdjustStock.
type UpdatePlantParams struct {
	Name          *string
	Category      *string
	SKU           *string
	Price         *decimal.Decimal
	CostPrice     *decimal.Decimal
	ReorderAt     *int
	SupplierID    *int64
	ClearSupplier bool
}

// Update applies params to an existing plant.
func (c *Catalog) Update(ctx context.Context, id int64, params UpdatePlantParams) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.plants[id]
	if !ok {
		return apperr.NotFound("plant %d not found", id)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	next := entry.plant
	if params.Name != nil {
		next.Name = *params.Name
	}
	if params.Category != nil {
		next.Category = *params.Category
	}
	if params.SKU != nil {
		next.SKU = *params.SKU
	}
	if params.Price != nil {
		next.Price = *params.Price
	}
	if params.CostPrice != nil {
		next.CostPrice = params.CostPrice
	}
	if params.ReorderAt != nil {
		next.ReorderAt = params.ReorderAt
	}
	if params.ClearSupplier {
		next.SupplierID = nil
	} else if params.SupplierID != nil {
		next.SupplierID = params.SupplierID
	}

	if err := c.validatePlant(next); err != nil {
		return err
	}
	if err := c.checkSupplierRef(next.SupplierID); err != nil {
		return err
	}

	if err := c.persist.SavePlant(ctx, next); err != nil {
		return apperr.Unavailable("failed to persist plant", err)
	}

	entry.plant = next
	return nil
}

// Delete removes a plant unconditionally. Committed orders keep their name
// and price snapshots, so past orders stay intact.
func (c *Catalog) Delete(ctx context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.plants[id]; !ok {
		return apperr.NotFound("plant %d not found", id)
	}

	if err := c.persist.DeletePlant(ctx, id); err != nil {
		return apperr.Unavailable("failed to delete plant", err)
	}

	delete(c.plants, id)
	if c.mirror != nil {
		if err := c.mirror.Remove(ctx, id); err != nil {
			c.logger.Warn("Failed to drop mirrored quantity", zap.Int64("plant_id", id), zap.Error(err))
		}
	}
	c.logger.Info("Plant deleted", zap.Int64("plant_id", id))
	return nil
}

// AdjustStock applies quantity += delta atomically and returns the new
// quantity. A delta that would take the quantity negative fails with a
// conflict and leaves it untouched.
func (c *Catalog) AdjustStock(ctx context.Context, id int64, delta int) (int, error) {
	if delta == 0 && !c.allowZeroDelta {
		return 0, apperr.Validation("stock delta must not be zero")
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.plants[id]
	if !ok {
		return 0, apperr.NotFound("plant %d not found", id)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if delta == 0 {
		return entry.plant.Quantity, nil
	}

	next := entry.plant.Quantity + delta
	if next < 0 {
		util.StockConflictsTotal.Inc()
		return 0, apperr.Conflict("insufficient stock for %s", entry.plant.Name)
	}

	if err := c.persist.SaveStock(ctx, id, next); err != nil {
		return 0, apperr.Unavailable("failed to persist stock level", err)
	}

	prev := entry.plant.Quantity
	entry.setQuantityLocked(next)
	c.noteAdjustment(ctx, entry.plant, delta, prev)
	return next, nil
}

// noteAdjustment records metrics, events and the mirror write for a
// committed quantity change. p is the post-change snapshot.
func (c *Catalog) noteAdjustment(ctx context.Context, p models.Plant, delta, prev int) {
	direction := "credit"
	if delta < 0 {
		direction = "debit"
	}
	util.StockAdjustmentsTotal.WithLabelValues(direction).Inc()

	c.mirrorQuantity(ctx, p.ID, p.Quantity)

	if c.events != nil {
		event := &models.StockAdjustedEvent{
			BaseEvent:   newBaseEvent(models.EventTypeStockAdjusted),
			ProductID:   p.ID,
			ProductName: p.Name,
			Delta:       delta,
			NewQuantity: p.Quantity,
		}
		if err := c.events.PublishStockAdjusted(ctx, event); err != nil {
			c.logger.Error("Failed to publish StockAdjusted event", zap.Error(err))
		}
	}

	if p.ReorderAt != nil && p.Quantity <= *p.ReorderAt && prev > *p.ReorderAt {
		util.LowStockAlertsTotal.Inc()
		c.logger.Warn("Plant stock below reorder threshold",
			zap.Int64("plant_id", p.ID),
			zap.Int("quantity", p.Quantity),
			zap.Int("reorder_at", *p.ReorderAt))
		if c.events != nil {
			event := &models.LowStockEvent{
				BaseEvent:   newBaseEvent(models.EventTypeLowStock),
				ProductID:   p.ID,
				ProductName: p.Name,
				Quantity:    p.Quantity,
				ReorderAt:   *p.ReorderAt,
			}
			if err := c.events.PublishLowStock(ctx, event); err != nil {
				c.logger.Error("Failed to publish LowStock event", zap.Error(err))
			}
		}
	}
}

func (c *Catalog) mirrorQuantity(ctx context.Context, id int64, quantity int) {
	if c.mirror == nil {
		return
	}
	if err := c.mirror.SetQuantity(ctx, id, quantity); err != nil {
		c.logger.Warn("Failed to mirror quantity", zap.Int64("plant_id", id), zap.Error(err))
	}
}

// Get returns a copy of the plant.
func (c *Catalog) Get(id int64) (models.Plant, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.plants[id]
	if !ok {
		return models.Plant{}, apperr.NotFound("plant %d not found", id)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.plant, nil
}

// List returns plants in id order, optionally filtered by a case-insensitive
// substring match over name and category. All entry locks are taken in
// ascending id order so the snapshot never shows a half-applied multi-plant
// debit.
func (c *Catalog) List(filter string) []models.Plant {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entries := c.sortedEntriesLocked()
	for _, e := range entries {
		e.mu.Lock()
	}

	out := make([]models.Plant, 0, len(entries))
	needle := strings.ToLower(strings.TrimSpace(filter))
	for _, e := range entries {
		p := e.plant
		if needle == "" ||
			strings.Contains(strings.ToLower(p.Name), needle) ||
			strings.Contains(strings.ToLower(p.Category), needle) {
			out = append(out, p)
		}
	}

	for i := len(entries) - 1; i >= 0; i-- {
		entries[i].mu.Unlock()
	}
	return out
}

// sortedEntriesLocked returns all entries in ascending id order. Caller
// holds the table lock.
func (c *Catalog) sortedEntriesLocked() []*plantEntry {
	ids := make([]int64, 0, len(c.plants))
	for id := range c.plants {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	entries := make([]*plantEntry, len(ids))
	for i, id := range ids {
		entries[i] = c.plants[id]
	}
	return entries
}

// resolveEntriesLocked looks up entries for ids and returns them in
// ascending id order, ready for deterministic lock acquisition. Caller holds
// the table read lock and keeps holding it while the entries are in use.
func (c *Catalog) resolveEntriesLocked(ids []int64) ([]*plantEntry, error) {
	sorted := make([]int64, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	entries := make([]*plantEntry, 0, len(sorted))
	for _, id := range sorted {
		entry, ok := c.plants[id]
		if !ok {
			return nil, apperr.NotFound("plant %d not found", id)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// countBySupplierLocked counts plants referencing a supplier. Caller holds
// the table write lock, which excludes every catalog mutation.
func (c *Catalog) countBySupplierLocked(supplierID int64) int {
	n := 0
	for _, e := range c.plants {
		if e.plant.SupplierID != nil && *e.plant.SupplierID == supplierID {
			n++
		}
	}
	return n
}

// Restore loads previously persisted plants, used at boot.
func (c *Catalog) Restore(plants []models.Plant) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, p := range plants {
		c.plants[p.ID] = &plantEntry{plant: p}
		if p.ID > c.nextID {
			c.nextID = p.ID
		}
	}
}
