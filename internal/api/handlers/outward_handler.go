package handlers

import (
	"net/http"

	"example.com/warehouse/internal/api/middleware"
	"example.com/warehouse/internal/models"
	"example.com/warehouse/internal/services"
	"example.com/warehouse/internal/tracing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// OutwardHandler exposes the sales (outbound) fulfillment endpoints
type OutwardHandler struct {
	outwardService services.OutwardService
	tracer         tracing.Tracer
}

// NewOutwardHandler creates a new outward handler
func NewOutwardHandler(outwardService services.OutwardService, tracer tracing.Tracer) *OutwardHandler {
	return &OutwardHandler{
		outwardService: outwardService,
		tracer:         tracer,
	}
}

// ListPendingOrders returns every order open for shipping
func (h *OutwardHandler) ListPendingOrders(c *gin.Context) {
	orders, err := h.outwardService.ListPendingOrders(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, orders)
}

// GetPendingOrder returns one open sales order with availability
func (h *OutwardHandler) GetPendingOrder(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	order, err := h.outwardService.GetPendingOrder(c.Request.Context(), id)
	if err != nil {
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// ListOrders returns the full order history
func (h *OutwardHandler) ListOrders(c *gin.Context) {
	orders, err := h.outwardService.ListOrders(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, orders)
}

// CreateOrder creates a new sales order
func (h *OutwardHandler) CreateOrder(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-create-order")
	defer h.tracer.EndTransaction(txn)

	var req services.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Msg("Invalid create order request")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.tracer.AddAttribute(txn, "customer", req.CustomerName)

	order, err := h.outwardService.CreateOrder(c.Request.Context(), req)
	if err != nil {
		h.tracer.RecordError(txn, err)
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, order)
}

// ShipOrder records shipped quantities against an open sales order
func (h *OutwardHandler) ShipOrder(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-ship-order")
	defer h.tracer.EndTransaction(txn)

	var req services.ShipOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Msg("Invalid ship request")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.tracer.AddAttribute(txn, "order_id", req.OrderID.String())

	result, err := h.outwardService.ShipOrder(c.Request.Context(), req)
	if err != nil {
		h.tracer.RecordError(txn, err)
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ApproveShipment finalizes a fully shipped sales order
func (h *OutwardHandler) ApproveShipment(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-approve-shipment")
	defer h.tracer.EndTransaction(txn)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	h.tracer.AddAttribute(txn, "order_id", id.String())

	order, err := h.outwardService.ApproveShipment(c.Request.Context(), id)
	if err != nil {
		h.tracer.RecordError(txn, err)
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// RegisterRoutes registers the outward routes
func (h *OutwardHandler) RegisterRoutes(group *gin.RouterGroup) {
	outward := group.Group("/outward")
	{
		outward.GET("/pending-orders", h.ListPendingOrders)
		outward.GET("/pending-orders/:id", h.GetPendingOrder)
		outward.GET("/orders", h.ListOrders)
		outward.POST("/orders", h.CreateOrder)
		outward.POST("/ship", h.ShipOrder)
		outward.POST("/approve/:id", middleware.RequireRole(models.RoleAdmin), h.ApproveShipment)
	}
}
