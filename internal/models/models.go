package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Plant represents a plant record in the catalog. Quantity is only ever
// written through the catalog's stock adjustment path.
type Plant struct {
	ID         int64            `db:"id" json:"id"`
	Name       string           `db:"name" json:"name"`
	Category   string           `db:"category" json:"category"`
	SKU        string           `db:"sku" json:"sku,omitempty"`
	Price      decimal.Decimal  `db:"price" json:"price"`
	CostPrice  *decimal.Decimal `db:"cost_price" json:"cost_price,omitempty"`
	Quantity   int              `db:"quantity" json:"quantity"`
	ReorderAt  *int             `db:"reorder_at" json:"reorder_at,omitempty"`
	SupplierID *int64           `db:"supplier_id" json:"supplier_id,omitempty"`
}

// Supplier represents a supplier. Plants reference suppliers weakly by id;
// deleting a supplier is blocked while any plant still points at it.
type Supplier struct {
	ID            int64  `db:"id" json:"id"`
	Name          string `db:"name" json:"name"`
	Email         string `db:"email" json:"email"`
	ContactPerson string `db:"contact_person" json:"contact_person,omitempty"`
	Phone         string `db:"phone" json:"phone,omitempty"`
	Address       string `db:"address" json:"address,omitempty"`
}

// Order is an immutable snapshot committed by the coordinator. Lines and
// total never change after commit; only cancellation removes the order.
type Order struct {
	ID           int64           `db:"id" json:"id"`
	CustomerName string          `db:"customer_name" json:"customer_name"`
	Total        decimal.Decimal `db:"total" json:"total"`
	Notes        string          `db:"notes" json:"notes,omitempty"`
	Date         time.Time       `db:"date" json:"date"`
	Lines        []OrderLine     `json:"lines"`
}

// OrderLine carries the product name and unit price as they were at commit
// time. Later renames, price changes or deletes of the plant do not touch it.
type OrderLine struct {
	OrderID     int64           `db:"order_id" json:"-"`
	ProductID   int64           `db:"product_id" json:"product_id"`
	ProductName string          `db:"product_name" json:"product_name"`
	Quantity    int             `db:"quantity" json:"quantity"`
	PriceAtSale decimal.Decimal `db:"price_at_sale" json:"price_at_sale"`
}

// LineTotal returns quantity * priceAtSale for a single line.
func (l OrderLine) LineTotal() decimal.Decimal {
	return l.PriceAtSale.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Clone returns a deep copy so callers cannot mutate a committed snapshot
// through the returned slice.
func (o Order) Clone() Order {
	out := o
	out.Lines = make([]OrderLine, len(o.Lines))
	copy(out.Lines, o.Lines)
	return out
}
