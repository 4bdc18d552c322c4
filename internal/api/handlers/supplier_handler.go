package handlers

import (
	"net/http"

	"example.com/warehouse/internal/api/middleware"
	"example.com/warehouse/internal/models"
	"example.com/warehouse/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SupplierHandler exposes the supplier directory endpoints
type SupplierHandler struct {
	supplierService services.SupplierService
}

// NewSupplierHandler creates a new supplier handler
func NewSupplierHandler(supplierService services.SupplierService) *SupplierHandler {
	return &SupplierHandler{supplierService: supplierService}
}

// ListSuppliers returns every supplier
func (h *SupplierHandler) ListSuppliers(c *gin.Context) {
	suppliers, err := h.supplierService.ListSuppliers(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, suppliers)
}

// GetSupplier returns one supplier
func (h *SupplierHandler) GetSupplier(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid supplier id"})
		return
	}

	supplier, err := h.supplierService.GetSupplier(c.Request.Context(), id)
	if err != nil {
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, supplier)
}

// CreateSupplier adds a supplier
func (h *SupplierHandler) CreateSupplier(c *gin.Context) {
	var req services.SupplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	supplier, err := h.supplierService.CreateSupplier(c.Request.Context(), req)
	if err != nil {
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, supplier)
}

// UpdateSupplier updates a supplier
func (h *SupplierHandler) UpdateSupplier(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid supplier id"})
		return
	}

	var req services.SupplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	supplier, err := h.supplierService.UpdateSupplier(c.Request.Context(), id, req)
	if err != nil {
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, supplier)
}

// DeleteSupplier removes a supplier
func (h *SupplierHandler) DeleteSupplier(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid supplier id"})
		return
	}

	if err := h.supplierService.DeleteSupplier(c.Request.Context(), id); err != nil {
		RespondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// RegisterRoutes registers the supplier routes
func (h *SupplierHandler) RegisterRoutes(group *gin.RouterGroup) {
	suppliers := group.Group("/suppliers")
	{
		suppliers.GET("", h.ListSuppliers)
		suppliers.GET("/:id", h.GetSupplier)
		suppliers.POST("", middleware.RequireRole(models.RoleAdmin), h.CreateSupplier)
		suppliers.PUT("/:id", middleware.RequireRole(models.RoleAdmin), h.UpdateSupplier)
		suppliers.DELETE("/:id", middleware.RequireRole(models.RoleAdmin), h.DeleteSupplier)
	}
}
