package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/strobelightprojects/Nursery-inventory-management/internal/broker"
	"github.com/strobelightprojects/Nursery-inventory-management/internal/models"
	"github.com/strobelightprojects/Nursery-inventory-management/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// alertStore dedups alerts across restarts and instances. Implemented by
// redisclient.Client.
type alertStore interface {
	MarkAlerted(ctx context.Context, plantID int64, ttl time.Duration) (bool, error)
}

// ReorderWorker watches the stock event stream and surfaces a reorder
// suggestion the first time a plant drops below its reorder threshold.
// Repeat alerts within the window are suppressed.
type ReorderWorker struct {
	consumer *broker.Consumer
	alerts   alertStore
	window   time.Duration
	logger   *zap.Logger
}

// NewReorderWorker creates a new reorder worker
func NewReorderWorker(consumer *broker.Consumer, alerts alertStore) *ReorderWorker {
	return &ReorderWorker{
		consumer: consumer,
		alerts:   alerts,
		window:   24 * time.Hour,
		logger:   util.GetLogger(),
	}
}

// Start starts the worker
func (w *ReorderWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting reorder worker")
	return w.consumer.StartConsuming(ctx, w.HandleMessage)
}

// Stop stops the worker
func (w *ReorderWorker) Stop() error {
	w.logger.Info("Stopping reorder worker")
	return w.consumer.Close()
}

// HandleMessage processes one event from the stock topic.
func (w *ReorderWorker) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var base models.BaseEvent
	if err := json.Unmarshal(msg.Value, &base); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	if base.EventType != models.EventTypeLowStock {
		return nil
	}

	var event models.LowStockEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal LowStock event: %w", err)
	}

	if w.alerts != nil {
		fresh, err := w.alerts.MarkAlerted(ctx, event.ProductID, w.window)
		if err != nil {
			w.logger.Warn("Alert dedup unavailable, alerting anyway", zap.Error(err))
		} else if !fresh {
			return nil
		}
	}

	w.logger.Warn("Reorder suggested",
		zap.Int64("plant_id", event.ProductID),
		zap.String("plant", event.ProductName),
		zap.Int("quantity", event.Quantity),
		zap.Int("reorder_at", event.ReorderAt))
	return nil
}
