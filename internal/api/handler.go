package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/strobelightprojects/Nursery-inventory-management/internal/apperr"
	"github.com/strobelightprojects/Nursery-inventory-management/internal/models"
	"github.com/strobelightprojects/Nursery-inventory-management/internal/service"
	"github.com/strobelightprojects/Nursery-inventory-management/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// Handler contains HTTP handlers
type Handler struct {
	catalog     *service.Catalog
	suppliers   *service.Registry
	ledger      *service.Ledger
	coordinator *service.Coordinator
}

// NewHandler creates a new HTTP handler
func NewHandler(catalog *service.Catalog, suppliers *service.Registry, ledger *service.Ledger, coordinator *service.Coordinator) *Handler {
	return &Handler{
		catalog:     catalog,
		suppliers:   suppliers,
		ledger:      ledger,
		coordinator: coordinator,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/plants", h.listPlants)
		v1.POST("/plants", h.createPlant)
		v1.PUT("/plants/:id", h.updatePlant)
		v1.DELETE("/plants/:id", h.deletePlant)
		v1.POST("/restock", h.restock)

		v1.GET("/suppliers", h.listSuppliers)
		v1.POST("/suppliers", h.createSupplier)
		v1.PUT("/suppliers/:id", h.updateSupplier)
		v1.DELETE("/suppliers/:id", h.deleteSupplier)

		v1.GET("/orders", h.listOrders)
		v1.POST("/orders", h.createOrder)
		v1.DELETE("/orders/:id", h.cancelOrder)
	}
}

func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "time": time.Now().Unix()})
}

func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ready", "time": time.Now().Unix()})
}

// writeError maps the error taxonomy onto HTTP statuses. Only the
// caller-facing message is exposed; wrapped causes stay in the logs.
func writeError(c *gin.Context, err error) {
	var e *apperr.Error
	if !errors.As(err, &e) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	switch e.Kind {
	case apperr.KindValidation:
		c.JSON(http.StatusBadRequest, gin.H{"error": e.Msg})
	case apperr.KindNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": e.Msg})
	case apperr.KindConflict:
		c.JSON(http.StatusConflict, gin.H{"error": e.Msg})
	case apperr.KindUnavailable:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage unavailable, retry later"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

type createPlantRequest struct {
	Name       string           `json:"name" binding:"required"`
	Category   string           `json:"category" binding:"required"`
	SKU        string           `json:"sku"`
	Price      decimal.Decimal  `json:"price"`
	CostPrice  *decimal.Decimal `json:"cost_price"`
	Quantity   int              `json:"quantity"`
	ReorderAt  *int             `json:"reorder_at"`
	SupplierID *int64           `json:"supplier_id"`
}

func (h *Handler) listPlants(c *gin.Context) {
	c.JSON(http.StatusOK, h.catalog.List(c.Query("search")))
}

func (h *Handler) createPlant(c *gin.Context) {
	var req createPlantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	plant, err := h.catalog.Create(c.Request.Context(), models.Plant{
		Name:       req.Name,
		Category:   req.Category,
		SKU:        req.SKU,
		Price:      req.Price,
		CostPrice:  req.CostPrice,
		Quantity:   req.Quantity,
		ReorderAt:  req.ReorderAt,
		SupplierID: req.SupplierID,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, plant)
}

type updatePlantRequest struct {
	Name          *string          `json:"name"`
	Category      *string          `json:"category"`
	SKU           *string          `json:"sku"`
	Price         *decimal.Decimal `json:"price"`
	CostPrice     *decimal.Decimal `json:"cost_price"`
	ReorderAt     *int             `json:"reorder_at"`
	SupplierID    *int64           `json:"supplier_id"`
	ClearSupplier bool             `json:"clear_supplier"`
}

func (h *Handler) updatePlant(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req updatePlantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	err := h.catalog.Update(c.Request.Context(), id, service.UpdatePlantParams{
		Name:          req.Name,
		Category:      req.Category,
		SKU:           req.SKU,
		Price:         req.Price,
		CostPrice:     req.CostPrice,
		ReorderAt:     req.ReorderAt,
		SupplierID:    req.SupplierID,
		ClearSupplier: req.ClearSupplier,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *Handler) deletePlant(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.catalog.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

type restockRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Delta     int   `json:"delta"`
}

func (h *Handler) restock(c *gin.Context) {
	var req restockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	newQuantity, err := h.catalog.AdjustStock(c.Request.Context(), req.ProductID, req.Delta)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"new_quantity": newQuantity})
}

type createSupplierRequest struct {
	Name          string `json:"name" binding:"required"`
	Email         string `json:"email" binding:"required"`
	ContactPerson string `json:"contact_person"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
}

func (h *Handler) listSuppliers(c *gin.Context) {
	c.JSON(http.StatusOK, h.suppliers.List())
}

func (h *Handler) createSupplier(c *gin.Context) {
	var req createSupplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	supplier, err := h.suppliers.Create(c.Request.Context(), models.Supplier{
		Name:          req.Name,
		Email:         req.Email,
		ContactPerson: req.ContactPerson,
		Phone:         req.Phone,
		Address:       req.Address,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, supplier)
}

type updateSupplierRequest struct {
	Name          *string `json:"name"`
	Email         *string `json:"email"`
	ContactPerson *string `json:"contact_person"`
	Phone         *string `json:"phone"`
	Address       *string `json:"address"`
}

func (h *Handler) updateSupplier(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req updateSupplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	err := h.suppliers.Update(c.Request.Context(), id, service.UpdateSupplierParams{
		Name:          req.Name,
		Email:         req.Email,
		ContactPerson: req.ContactPerson,
		Phone:         req.Phone,
		Address:       req.Address,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *Handler) deleteSupplier(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.suppliers.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *Handler) listOrders(c *gin.Context) {
	c.JSON(http.StatusOK, h.ledger.List())
}

func (h *Handler) createOrder(c *gin.Context) {
	var req service.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	order, err := h.coordinator.PlaceOrder(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *Handler) cancelOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.coordinator.CancelOrder(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
