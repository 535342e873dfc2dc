package service

import (
	"context"
	"time"

	"github.com/strobelightprojects/Nursery-inventory-management/internal/models"

	"github.com/google/uuid"
)

// Persistence is the durable store behind the engine. The in-memory state is
// authoritative; every committed mutation is written through while the
// relevant locks are held, so a store failure aborts the mutation before it
// becomes visible. Implemented by internal/store.
type Persistence interface {
	SavePlant(ctx context.Context, plant models.Plant) error
	DeletePlant(ctx context.Context, id int64) error
	SaveStock(ctx context.Context, plantID int64, quantity int) error
	SaveSupplier(ctx context.Context, supplier models.Supplier) error
	DeleteSupplier(ctx context.Context, id int64) error

	// CommitOrder writes the order, its lines and the debited plant rows in
	// a single transaction. RevertOrder removes the order and writes the
	// credited plant rows in a single transaction.
	CommitOrder(ctx context.Context, order models.Order, plants []models.Plant) error
	RevertOrder(ctx context.Context, orderID int64, plants []models.Plant) error
}

// EventSink publishes domain events after a mutation has committed.
// Publishing is best effort; failures are logged, never rolled back.
// Implemented by broker.EventPublisher.
type EventSink interface {
	PublishStockAdjusted(ctx context.Context, event *models.StockAdjustedEvent) error
	PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error
	PublishOrderCancelled(ctx context.Context, event *models.OrderCancelledEvent) error
	PublishLowStock(ctx context.Context, event *models.LowStockEvent) error
}

// StockMirror mirrors committed quantities to a read-side cache.
// Implemented by redisclient.Client.
type StockMirror interface {
	SetQuantity(ctx context.Context, plantID int64, quantity int) error
	Remove(ctx context.Context, plantID int64) error
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
	}
}
