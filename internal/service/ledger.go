package service

import (
	"sort"
	"sync"
	"time"

	"github.com/strobelightprojects/Nursery-inventory-management/internal/apperr"
	"github.com/strobelightprojects/Nursery-inventory-management/internal/models"
)

// Ledger owns committed orders. Record and Erase are called only by the
// coordinator, after it has reserved or reversed the corresponding stock.
// Stored orders are immutable; every accessor hands out deep copies.
type Ledger struct {
	mu     sync.RWMutex
	orders map[int64]models.Order
	seq    []int64 // ids in creation order
	nextID int64
}

// NewLedger creates an empty order ledger.
func NewLedger() *Ledger {
	return &Ledger{orders: make(map[int64]models.Order)}
}

// allocateID hands out the next order id.
func (l *Ledger) allocateID() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	return l.nextID
}

// insert stores a fully-built order. The id must already be assigned.
func (l *Ledger) insert(order models.Order) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.orders[order.ID] = order.Clone()
	l.seq = append(l.seq, order.ID)
}

// Record assigns id and date if unset, persists the immutable snapshot and
// returns it.
func (l *Ledger) Record(order models.Order) models.Order {
	if order.ID == 0 {
		order.ID = l.allocateID()
	}
	if order.Date.IsZero() {
		order.Date = time.Now().UTC()
	}
	l.insert(order)
	return order.Clone()
}

// Get returns a copy of the order.
func (l *Ledger) Get(id int64) (models.Order, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	order, ok := l.orders[id]
	if !ok {
		return models.Order{}, apperr.NotFound("order %d not found", id)
	}
	return order.Clone(), nil
}

// List returns orders in creation order. Callers wanting newest first
// reverse the slice themselves.
func (l *Ledger) List() []models.Order {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]models.Order, 0, len(l.seq))
	for _, id := range l.seq {
		if order, ok := l.orders[id]; ok {
			out = append(out, order.Clone())
		}
	}
	return out
}

// Erase removes the order record.
func (l *Ledger) Erase(id int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.orders[id]; !ok {
		return apperr.NotFound("order %d not found", id)
	}
	delete(l.orders, id)
	for i, sid := range l.seq {
		if sid == id {
			l.seq = append(l.seq[:i], l.seq[i+1:]...)
			break
		}
	}
	return nil
}

// Restore loads previously persisted orders, used at boot.
func (l *Ledger) Restore(orders []models.Order) {
	l.mu.Lock()
	defer l.mu.Unlock()

	sorted := make([]models.Order, len(orders))
	copy(sorted, orders)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	for _, o := range sorted {
		l.orders[o.ID] = o.Clone()
		l.seq = append(l.seq, o.ID)
		if o.ID > l.nextID {
			l.nextID = o.ID
		}
	}
}
