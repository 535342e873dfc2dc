package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/strobelightprojects/Nursery-inventory-management/internal/apperr"
	"github.com/strobelightprojects/Nursery-inventory-management/internal/models"
	"github.com/strobelightprojects/Nursery-inventory-management/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Coordinator is the only component allowed to compose catalog stock changes
// with ledger changes. Order placement and cancellation are all-or-nothing:
// a failure at any step leaves both the catalog and the ledger untouched.
type Coordinator struct {
	catalog *Catalog
	ledger  *Ledger
	persist Persistence
	events  EventSink
	logger  *zap.Logger
}

// NewCoordinator creates the transaction coordinator.
func NewCoordinator(catalog *Catalog, ledger *Ledger, persist Persistence, events EventSink) *Coordinator {
	return &Coordinator{
		catalog: catalog,
		ledger:  ledger,
		persist: persist,
		events:  events,
		logger:  util.GetLogger(),
	}
}

// PlaceOrderRequest is a request to commit a new order.
type PlaceOrderRequest struct {
	CustomerName string             `json:"customer_name" binding:"required"`
	Notes        string             `json:"notes,omitempty"`
	Items        []OrderItemRequest `json:"items" binding:"required,min=1"`
}

// OrderItemRequest is one requested line.
type OrderItemRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required,min=1"`
}

// stockChange describes one committed quantity change, reported to the
// catalog's metrics/events path after the locks are released.
type stockChange struct {
	plant models.Plant // post-change snapshot
	delta int
	prev  int
}

// mergeItems validates the request lines and folds duplicate product ids
// into one line each, preserving first-seen order.
func mergeItems(items []OrderItemRequest) ([]OrderItemRequest, error) {
	if len(items) == 0 {
		return nil, apperr.Validation("order must contain at least one item")
	}

	index := make(map[int64]int, len(items))
	merged := make([]OrderItemRequest, 0, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, apperr.Validation("quantity for product %d must be positive", item.ProductID)
		}
		if i, ok := index[item.ProductID]; ok {
			merged[i].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(merged)
		merged = append(merged, item)
	}
	return merged, nil
}

// PlaceOrder validates every requested line against current stock, debits
// the plants and commits the order, all inside one critical section over the
// touched plants. Plant locks are taken in ascending id order.
func (co *Coordinator) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (models.Order, error) {
	ctx, span := util.StartSpan(ctx, "Coordinator.PlaceOrder")
	defer span.End()

	start := time.Now()
	defer func() {
		util.OrderCommitLatency.Observe(time.Since(start).Seconds())
	}()

	if strings.TrimSpace(req.CustomerName) == "" {
		util.OrdersRejectedTotal.WithLabelValues("validation").Inc()
		return models.Order{}, apperr.Validation("customer name is required")
	}
	items, err := mergeItems(req.Items)
	if err != nil {
		util.OrdersRejectedTotal.WithLabelValues("validation").Inc()
		return models.Order{}, err
	}

	order, changes, err := co.commit(ctx, req, items)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			util.OrdersRejectedTotal.WithLabelValues("unknown_product").Inc()
		} else if apperr.Is(err, apperr.KindConflict) {
			util.OrdersRejectedTotal.WithLabelValues("insufficient_stock").Inc()
		}
		return models.Order{}, err
	}

	util.OrdersPlacedTotal.Inc()
	co.logger.Info("Order placed",
		zap.Int64("order_id", order.ID),
		zap.String("customer", order.CustomerName),
		zap.String("total", order.Total.String()))

	co.announce(ctx, changes)
	if co.events != nil {
		event := &models.OrderPlacedEvent{
			BaseEvent:    newBaseEvent(models.EventTypeOrderPlaced),
			OrderID:      order.ID,
			CustomerName: order.CustomerName,
			Total:        order.Total,
			Lines:        order.Lines,
		}
		if err := co.events.PublishOrderPlaced(ctx, event); err != nil {
			co.logger.Error("Failed to publish OrderPlaced event", zap.Error(err))
		}
	}

	return order, nil
}

// commit is the locked validate-then-debit section of PlaceOrder.
func (co *Coordinator) commit(ctx context.Context, req PlaceOrderRequest, items []OrderItemRequest) (models.Order, []stockChange, error) {
	c := co.catalog
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]int64, len(items))
	for i, item := range items {
		ids[i] = item.ProductID
	}
	entries, err := c.resolveEntriesLocked(ids)
	if err != nil {
		return models.Order{}, nil, err
	}

	for _, e := range entries {
		e.mu.Lock()
	}
	defer func() {
		for i := len(entries) - 1; i >= 0; i-- {
			entries[i].mu.Unlock()
		}
	}()

	byID := make(map[int64]*plantEntry, len(entries))
	for _, e := range entries {
		byID[e.plant.ID] = e
	}

	// Validate every line against the locked snapshot before touching
	// anything, so a failure debits nothing.
	for _, item := range items {
		if byID[item.ProductID].plant.Quantity < item.Quantity {
			util.StockConflictsTotal.Inc()
			return models.Order{}, nil, apperr.Conflict("insufficient stock for %s", byID[item.ProductID].plant.Name)
		}
	}

	lines := make([]models.OrderLine, len(items))
	total := decimal.Zero
	for i, item := range items {
		p := byID[item.ProductID].plant
		lines[i] = models.OrderLine{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    item.Quantity,
			PriceAtSale: p.Price,
		}
		total = total.Add(lines[i].LineTotal())
	}

	order := models.Order{
		ID:           co.ledger.allocateID(),
		CustomerName: req.CustomerName,
		Notes:        req.Notes,
		Total:        total,
		Date:         time.Now().UTC(),
		Lines:        lines,
	}
	for i := range lines {
		order.Lines[i].OrderID = order.ID
	}

	debited := make([]models.Plant, len(items))
	for i, item := range items {
		debited[i] = byID[item.ProductID].plant
		debited[i].Quantity -= item.Quantity
	}

	if err := co.persist.CommitOrder(ctx, order, debited); err != nil {
		return models.Order{}, nil, apperr.Unavailable("failed to persist order", err)
	}

	changes := make([]stockChange, len(items))
	for i, item := range items {
		entry := byID[item.ProductID]
		prev := entry.plant.Quantity
		entry.setQuantityLocked(debited[i].Quantity)
		changes[i] = stockChange{plant: entry.plant, delta: -item.Quantity, prev: prev}
	}

	co.ledger.insert(order)
	return order.Clone(), changes, nil
}

// CancelOrder reverses an order: every surviving plant is credited and the
// record erased, atomically. Plants deleted since the sale are skipped; the
// order's name snapshots keep it cancellable regardless.
func (co *Coordinator) CancelOrder(ctx context.Context, orderID int64) error {
	ctx, span := util.StartSpan(ctx, "Coordinator.CancelOrder")
	defer span.End()

	if _, err := co.ledger.Get(orderID); err != nil {
		return err
	}

	changes, err := co.revert(ctx, orderID)
	if err != nil {
		return err
	}

	util.OrdersCancelledTotal.Inc()
	co.logger.Info("Order cancelled", zap.Int64("order_id", orderID))

	co.announce(ctx, changes)
	if co.events != nil {
		event := &models.OrderCancelledEvent{
			BaseEvent: newBaseEvent(models.EventTypeOrderCancelled),
			OrderID:   orderID,
		}
		if err := co.events.PublishOrderCancelled(ctx, event); err != nil {
			co.logger.Error("Failed to publish OrderCancelled event", zap.Error(err))
		}
	}
	return nil
}

// revert is the locked credit-and-erase section of CancelOrder.
func (co *Coordinator) revert(ctx context.Context, orderID int64) ([]stockChange, error) {
	c := co.catalog
	c.mu.RLock()
	defer c.mu.RUnlock()

	// Re-read under the table lock; the order's plant set decides which
	// entry locks serialize concurrent cancellations of the same order.
	order, err := co.ledger.Get(orderID)
	if err != nil {
		return nil, err
	}

	type credit struct {
		id       int64
		entry    *plantEntry
		quantity int
	}
	credits := make([]credit, 0, len(order.Lines))
	for _, line := range order.Lines {
		if entry, ok := c.plants[line.ProductID]; ok {
			credits = append(credits, credit{id: line.ProductID, entry: entry, quantity: line.Quantity})
		}
	}
	// Ascending id fixes the lock order.
	sort.Slice(credits, func(i, j int) bool { return credits[i].id < credits[j].id })

	for _, cr := range credits {
		cr.entry.mu.Lock()
	}
	defer func() {
		for i := len(credits) - 1; i >= 0; i-- {
			credits[i].entry.mu.Unlock()
		}
	}()

	// The order may have been cancelled while we waited for the locks.
	if _, err := co.ledger.Get(orderID); err != nil {
		return nil, err
	}

	restored := make([]models.Plant, len(credits))
	for i, cr := range credits {
		restored[i] = cr.entry.plant
		restored[i].Quantity += cr.quantity
	}

	if err := co.persist.RevertOrder(ctx, orderID, restored); err != nil {
		return nil, apperr.Unavailable("failed to revert order", err)
	}

	changes := make([]stockChange, len(credits))
	for i, cr := range credits {
		prev := cr.entry.plant.Quantity
		cr.entry.setQuantityLocked(restored[i].Quantity)
		changes[i] = stockChange{plant: cr.entry.plant, delta: cr.quantity, prev: prev}
	}

	if err := co.ledger.Erase(orderID); err != nil {
		// Only reachable when the order touched no surviving plants and a
		// concurrent cancel won the race; the revert was a no-op then.
		return nil, err
	}
	return changes, nil
}

// announce reports committed stock changes through the catalog's metrics,
// mirror and event path once the locks are released.
func (co *Coordinator) announce(ctx context.Context, changes []stockChange) {
	for _, ch := range changes {
		co.catalog.noteAdjustment(ctx, ch.plant, ch.delta, ch.prev)
	}
}
