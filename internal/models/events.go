package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeStockAdjusted  = "STOCK_ADJUSTED"
	EventTypeOrderPlaced    = "ORDER_PLACED"
	EventTypeOrderCancelled = "ORDER_CANCELLED"
	EventTypeLowStock       = "LOW_STOCK"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// StockAdjustedEvent published after every committed quantity change,
// whether from a restock or an order debit/credit.
type StockAdjustedEvent struct {
	BaseEvent
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Delta       int    `json:"delta"`
	NewQuantity int    `json:"new_quantity"`
}

// OrderPlacedEvent published when an order commits.
type OrderPlacedEvent struct {
	BaseEvent
	OrderID      int64           `json:"order_id"`
	CustomerName string          `json:"customer_name"`
	Total        decimal.Decimal `json:"total"`
	Lines        []OrderLine     `json:"lines"`
}

// OrderCancelledEvent published when an order is cancelled and its stock
// restored.
type OrderCancelledEvent struct {
	BaseEvent
	OrderID int64 `json:"order_id"`
}

// LowStockEvent published when a committed debit takes a plant's quantity
// below its reorder threshold.
type LowStockEvent struct {
	BaseEvent
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	ReorderAt   int    `json:"reorder_at"`
}
