package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/strobelightprojects/Nursery-inventory-management/internal/models"
	"github.com/strobelightprojects/Nursery-inventory-management/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopPersistence struct{}

func (nopPersistence) SavePlant(ctx context.Context, p models.Plant) error      { return nil }
func (nopPersistence) DeletePlant(ctx context.Context, id int64) error          { return nil }
func (nopPersistence) SaveStock(ctx context.Context, id int64, qty int) error   { return nil }
func (nopPersistence) SaveSupplier(ctx context.Context, s models.Supplier) error { return nil }
func (nopPersistence) DeleteSupplier(ctx context.Context, id int64) error       { return nil }
func (nopPersistence) CommitOrder(ctx context.Context, o models.Order, ps []models.Plant) error {
	return nil
}
func (nopPersistence) RevertOrder(ctx context.Context, id int64, ps []models.Plant) error {
	return nil
}

type testEnv struct {
	router      *gin.Engine
	catalog     *service.Catalog
	suppliers   *service.Registry
	ledger      *service.Ledger
	coordinator *service.Coordinator
}

func newTestEnv() *testEnv {
	gin.SetMode(gin.TestMode)

	persist := nopPersistence{}
	registry := service.NewRegistry(persist)
	catalog := service.NewCatalog(registry, persist, nil, nil, false)
	ledger := service.NewLedger()
	coordinator := service.NewCoordinator(catalog, ledger, persist, nil)

	router := gin.New()
	NewHandler(catalog, registry, ledger, coordinator).SetupRoutes(router)

	return &testEnv{
		router:      router,
		catalog:     catalog,
		suppliers:   registry,
		ledger:      ledger,
		coordinator: coordinator,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"]
}

func seedPlant(t *testing.T, env *testEnv, name string, qty int, price string) models.Plant {
	t.Helper()
	p, err := env.catalog.Create(context.Background(), models.Plant{
		Name:     name,
		Category: "Perennial",
		Price:    decimal.RequireFromString(price),
		Quantity: qty,
	})
	require.NoError(t, err)
	return p
}

func TestCreatePlantEndpoint(t *testing.T) {
	env := newTestEnv()

	w := env.do(t, http.MethodPost, "/api/v1/plants", gin.H{
		"name":     "Sun Flower",
		"category": "Annual",
		"price":    "4.50",
		"quantity": 12,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var got models.Plant
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, int64(1), got.ID)
	assert.Equal(t, "Sun Flower", got.Name)
	assert.Equal(t, 12, got.Quantity)
}

func TestCreatePlantBadBody(t *testing.T) {
	env := newTestEnv()

	// Missing the required name.
	w := env.do(t, http.MethodPost, "/api/v1/plants", gin.H{"category": "Annual"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Domain validation surfaces as 400 too.
	w = env.do(t, http.MethodPost, "/api/v1/plants", gin.H{
		"name":     "Fern",
		"category": "Houseplant",
		"price":    "-1.00",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEmpty(t, errorMessage(t, w))
}

func TestListPlantsSearch(t *testing.T) {
	env := newTestEnv()
	seedPlant(t, env, "Sun Flower", 10, "4.00")
	seedPlant(t, env, "Moss Rose", 5, "6.50")

	w := env.do(t, http.MethodGet, "/api/v1/plants?search=moss", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got []models.Plant
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Moss Rose", got[0].Name)
}

func TestRestockEndpoint(t *testing.T) {
	env := newTestEnv()
	p := seedPlant(t, env, "Sun Flower", 10, "4.00")

	w := env.do(t, http.MethodPost, "/api/v1/restock", gin.H{"product_id": p.ID, "delta": 15})
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]int
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 25, body["new_quantity"])
}

func TestRestockInsufficient(t *testing.T) {
	env := newTestEnv()
	p := seedPlant(t, env, "Sun Flower", 10, "4.00")

	w := env.do(t, http.MethodPost, "/api/v1/restock", gin.H{"product_id": p.ID, "delta": -20})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, errorMessage(t, w), "insufficient stock")
}

func TestDeletePlantEndpoint(t *testing.T) {
	env := newTestEnv()
	p := seedPlant(t, env, "Sun Flower", 10, "4.00")

	w := env.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/plants/%d", p.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/plants/%d", p.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodDelete, "/api/v1/plants/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSupplierDeleteConflict(t *testing.T) {
	env := newTestEnv()

	w := env.do(t, http.MethodPost, "/api/v1/suppliers", gin.H{
		"name":  "fertco",
		"email": "orders@fertco.example.com",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var sup models.Supplier
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sup))

	w = env.do(t, http.MethodPost, "/api/v1/plants", gin.H{
		"name":        "Sun Flower",
		"category":    "Annual",
		"price":       "4.00",
		"quantity":    10,
		"supplier_id": sup.ID,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = env.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/suppliers/%d", sup.ID), nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, errorMessage(t, w), "referenced by")
}

func TestOrderLifecycleEndpoints(t *testing.T) {
	env := newTestEnv()
	p := seedPlant(t, env, "Sun Flower", 10, "5.00")

	w := env.do(t, http.MethodPost, "/api/v1/orders", gin.H{
		"customer_name": "Alice",
		"items":         []gin.H{{"product_id": p.ID, "quantity": 3}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var order models.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &order))
	assert.True(t, order.Total.Equal(decimal.RequireFromString("15.00")))

	w = env.do(t, http.MethodGet, "/api/v1/orders", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var orders []models.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &orders))
	assert.Len(t, orders, 1)

	w = env.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/orders/%d", order.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/orders/%d", order.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NotEmpty(t, errorMessage(t, w))
}

func TestOrderEndpointRejectsOverdraw(t *testing.T) {
	env := newTestEnv()
	p := seedPlant(t, env, "Sun Flower", 2, "5.00")

	w := env.do(t, http.MethodPost, "/api/v1/orders", gin.H{
		"customer_name": "Alice",
		"items":         []gin.H{{"product_id": p.ID, "quantity": 5}},
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, errorMessage(t, w), "Sun Flower")
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv()

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/ready", nil).Code)
}
