package service

import (
	"context"
	"testing"

	"github.com/strobelightprojects/Nursery-inventory-management/internal/apperr"
	"github.com/strobelightprojects/Nursery-inventory-management/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func supplierFixture(name string) models.Supplier {
	return models.Supplier{
		Name:          name,
		Email:         "orders@" + name + ".example.com",
		ContactPerson: "David Lee",
		Phone:         "555-1001",
	}
}

func TestSupplierCreate(t *testing.T) {
	eng := newEngine()

	s, err := eng.registry.Create(context.Background(), supplierFixture("fertco"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), s.ID)

	got, err := eng.registry.Get(s.ID)
	require.NoError(t, err)
	assert.Equal(t, "fertco", got.Name)
}

func TestSupplierValidation(t *testing.T) {
	eng := newEngine()
	ctx := context.Background()

	_, err := eng.registry.Create(ctx, models.Supplier{Email: "a@b.com"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = eng.registry.Create(ctx, models.Supplier{Name: "fertco"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = eng.registry.Create(ctx, models.Supplier{Name: "fertco", Email: "not-an-email"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = eng.registry.Create(ctx, models.Supplier{Name: "fertco", Email: "a@bcom"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestSupplierDuplicateName(t *testing.T) {
	eng := newEngine()
	ctx := context.Background()

	_, err := eng.registry.Create(ctx, supplierFixture("unique-co"))
	require.NoError(t, err)

	_, err = eng.registry.Create(ctx, supplierFixture("unique-co"))
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestSupplierUpdate(t *testing.T) {
	eng := newEngine()
	ctx := context.Background()

	s, err := eng.registry.Create(ctx, supplierFixture("fertco"))
	require.NoError(t, err)

	phone := "555-2002"
	require.NoError(t, eng.registry.Update(ctx, s.ID, UpdateSupplierParams{Phone: &phone}))

	got, err := eng.registry.Get(s.ID)
	require.NoError(t, err)
	assert.Equal(t, "555-2002", got.Phone)

	err = eng.registry.Update(ctx, 999, UpdateSupplierParams{Phone: &phone})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestSupplierDeleteBlockedWhileReferenced(t *testing.T) {
	eng := newEngine()
	ctx := context.Background()

	s, err := eng.registry.Create(ctx, supplierFixture("fertco"))
	require.NoError(t, err)

	p := plantFixture("Sun Flower", 10, "4.00")
	p.SupplierID = &s.ID
	plant, err := eng.catalog.Create(ctx, p)
	require.NoError(t, err)

	err = eng.registry.Delete(ctx, s.ID)
	require.True(t, apperr.Is(err, apperr.KindConflict))
	assert.Contains(t, err.Error(), "1 plants")

	// Unlink the plant, then deletion succeeds.
	require.NoError(t, eng.catalog.Update(ctx, plant.ID, UpdatePlantParams{ClearSupplier: true}))
	require.NoError(t, eng.registry.Delete(ctx, s.ID))

	_, err = eng.registry.Get(s.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestSupplierDeleteNotFound(t *testing.T) {
	eng := newEngine()

	err := eng.registry.Delete(context.Background(), 42)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestSupplierList(t *testing.T) {
	eng := newEngine()
	ctx := context.Background()

	_, err := eng.registry.Create(ctx, supplierFixture("alpha"))
	require.NoError(t, err)
	_, err = eng.registry.Create(ctx, supplierFixture("beta"))
	require.NoError(t, err)

	got := eng.registry.List()
	require.Len(t, got, 2)
	assert.Equal(t, "alpha", got[0].Name)
	assert.Equal(t, "beta", got[1].Name)
}
