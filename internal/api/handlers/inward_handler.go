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

// InwardHandler exposes the purchase (inbound) fulfillment endpoints
type InwardHandler struct {
	inwardService services.InwardService
	tracer        tracing.Tracer
}

// NewInwardHandler creates a new inward handler
func NewInwardHandler(inwardService services.InwardService, tracer tracing.Tracer) *InwardHandler {
	return &InwardHandler{
		inwardService: inwardService,
		tracer:        tracer,
	}
}

// ListPendingPurchases returns every purchase order open for receiving
func (h *InwardHandler) ListPendingPurchases(c *gin.Context) {
	purchases, err := h.inwardService.ListPendingPurchases(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, purchases)
}

// GetPendingPurchase returns one open purchase order
func (h *InwardHandler) GetPendingPurchase(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid purchase id"})
		return
	}

	purchase, err := h.inwardService.GetPendingPurchase(c.Request.Context(), id)
	if err != nil {
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, purchase)
}

// ListPurchases returns the full purchase history
func (h *InwardHandler) ListPurchases(c *gin.Context) {
	purchases, err := h.inwardService.ListPurchases(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, purchases)
}

// CreatePurchase creates a new purchase order
func (h *InwardHandler) CreatePurchase(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-create-purchase")
	defer h.tracer.EndTransaction(txn)

	var req services.CreatePurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Msg("Invalid create purchase request")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.tracer.AddAttribute(txn, "supplier_id", req.SupplierID.String())

	purchase, err := h.inwardService.CreatePurchase(c.Request.Context(), req)
	if err != nil {
		h.tracer.RecordError(txn, err)
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, purchase)
}

// ReceivePurchase records delivered quantities against an open purchase order
func (h *InwardHandler) ReceivePurchase(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-receive-purchase")
	defer h.tracer.EndTransaction(txn)

	var req services.ReceivePurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Msg("Invalid receive request")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.tracer.AddAttribute(txn, "purchase_id", req.PurchaseID.String())

	result, err := h.inwardService.ReceivePurchase(c.Request.Context(), req)
	if err != nil {
		h.tracer.RecordError(txn, err)
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ApprovePurchaseReceipt finalizes a purchase receipt into stock
func (h *InwardHandler) ApprovePurchaseReceipt(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-approve-receipt")
	defer h.tracer.EndTransaction(txn)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid purchase id"})
		return
	}

	h.tracer.AddAttribute(txn, "purchase_id", id.String())

	purchase, err := h.inwardService.ApprovePurchaseReceipt(c.Request.Context(), id)
	if err != nil {
		h.tracer.RecordError(txn, err)
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, purchase)
}

// RegisterRoutes registers the inward routes
func (h *InwardHandler) RegisterRoutes(group *gin.RouterGroup) {
	inward := group.Group("/inward")
	{
		inward.GET("/pending-purchases", h.ListPendingPurchases)
		inward.GET("/pending-purchases/:id", h.GetPendingPurchase)
		inward.GET("/purchases", h.ListPurchases)
		inward.POST("/purchases", h.CreatePurchase)
		inward.POST("/receive", h.ReceivePurchase)
		inward.POST("/approve/:id", middleware.RequireRole(models.RoleAdmin), h.ApprovePurchaseReceipt)
	}
}
