package handlers

import (
	"net/http"

	"example.com/warehouse/internal/api/middleware"
	"example.com/warehouse/internal/models"
	"example.com/warehouse/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ProductHandler exposes the product catalog endpoints
type ProductHandler struct {
	productService services.ProductService
}

// NewProductHandler creates a new product handler
func NewProductHandler(productService services.ProductService) *ProductHandler {
	return &ProductHandler{productService: productService}
}

// ListProducts returns the whole catalog
func (h *ProductHandler) ListProducts(c *gin.Context) {
	products, err := h.productService.ListProducts(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, products)
}

// GetProduct returns one product
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}

	product, err := h.productService.GetProduct(c.Request.Context(), id)
	if err != nil {
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

// CreateProduct adds a product to the catalog
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req services.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	product, err := h.productService.CreateProduct(c.Request.Context(), req)
	if err != nil {
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, product)
}

// UpdateProduct updates a product
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}

	var req services.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	product, err := h.productService.UpdateProduct(c.Request.Context(), id, req)
	if err != nil {
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

// DeleteProduct removes a product
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}

	if err := h.productService.DeleteProduct(c.Request.Context(), id); err != nil {
		RespondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ReorderAlerts returns products below their reorder level
func (h *ProductHandler) ReorderAlerts(c *gin.Context) {
	products, err := h.productService.ReorderAlerts(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, products)
}

// RegisterRoutes registers the product routes
func (h *ProductHandler) RegisterRoutes(group *gin.RouterGroup) {
	products := group.Group("/products")
	{
		products.GET("", h.ListProducts)
		products.GET("/reorder-alerts", h.ReorderAlerts)
		products.GET("/:id", h.GetProduct)
		products.POST("", middleware.RequireRole(models.RoleAdmin), h.CreateProduct)
		products.PUT("/:id", middleware.RequireRole(models.RoleAdmin), h.UpdateProduct)
		products.DELETE("/:id", middleware.RequireRole(models.RoleAdmin), h.DeleteProduct)
	}
}
