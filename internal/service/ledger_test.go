package service

import (
	"testing"

	"github.com/strobelightprojects/Nursery-inventory-management/internal/apperr"
	"github.com/strobelightprojects/Nursery-inventory-management/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orderFixture(customer string) models.Order {
	return models.Order{
		CustomerName: customer,
		Total:        decimal.RequireFromString("15.00"),
		Lines: []models.OrderLine{
			{ProductID: 1, ProductName: "Sun Flower", Quantity: 3, PriceAtSale: decimal.RequireFromString("5.00")},
		},
	}
}

func TestLedgerRecordAssignsIDAndDate(t *testing.T) {
	ledger := NewLedger()

	first := ledger.Record(orderFixture("Alice"))
	second := ledger.Record(orderFixture("Bob"))

	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(2), second.ID)
	assert.False(t, first.Date.IsZero())
}

func TestLedgerListCreationOrder(t *testing.T) {
	ledger := NewLedger()

	ledger.Record(orderFixture("Alice"))
	ledger.Record(orderFixture("Bob"))
	ledger.Record(orderFixture("Carol"))

	got := ledger.List()
	require.Len(t, got, 3)
	assert.Equal(t, "Alice", got[0].CustomerName)
	assert.Equal(t, "Carol", got[2].CustomerName)
}

func TestLedgerErase(t *testing.T) {
	ledger := NewLedger()

	order := ledger.Record(orderFixture("Alice"))
	require.NoError(t, ledger.Erase(order.ID))

	_, err := ledger.Get(order.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	err = ledger.Erase(order.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestLedgerSnapshotsAreImmutable(t *testing.T) {
	ledger := NewLedger()

	order := ledger.Record(orderFixture("Alice"))
	order.Lines[0].Quantity = 99
	order.Lines[0].ProductName = "mutated"

	got, err := ledger.Get(order.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Lines[0].Quantity)
	assert.Equal(t, "Sun Flower", got.Lines[0].ProductName)

	listed := ledger.List()
	listed[0].Lines[0].Quantity = 42
	again, err := ledger.Get(order.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, again.Lines[0].Quantity)
}
