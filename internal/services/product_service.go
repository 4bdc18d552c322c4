package services

import (
	"context"
	"strings"
	"time"

	"example.com/warehouse/internal/cache"
	"example.com/warehouse/internal/metrics"
	"example.com/warehouse/internal/models"
	"example.com/warehouse/internal/repository"
	"example.com/warehouse/internal/tracing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const productCacheTTL = 5 * time.Minute

// ProductService manages the product catalog
type ProductService interface {
	ListProducts(ctx context.Context) ([]*models.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	CreateProduct(ctx context.Context, req ProductRequest) (*models.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, req ProductRequest) (*models.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	ReorderAlerts(ctx context.Context) ([]*models.Product, error)
}

// ProductRequest is the input for creating or updating a product
type ProductRequest struct {
	SKU          string     `json:"sku" binding:"required"`
	Name         string     `json:"name" binding:"required"`
	Category     *string    `json:"category"`
	ReorderLevel int        `json:"reorder_level"`
	SupplierID   *uuid.UUID `json:"supplier_id"`
	Location     string     `json:"location"`
}

type productService struct {
	repo    repository.Repository
	cache   *cache.RedisCache
	metrics *metrics.Metrics
	tracer  tracing.Tracer
}

// NewProductService creates a new product catalog service
func NewProductService(repo repository.Repository, redisCache *cache.RedisCache, m *metrics.Metrics, tracer tracing.Tracer) ProductService {
	return &productService{
		repo:    repo,
		cache:   redisCache,
		metrics: m,
		tracer:  tracer,
	}
}

// ListProducts returns the whole catalog
func (s *productService) ListProducts(ctx context.Context) ([]*models.Product, error) {
	txn := s.tracer.StartTransaction("product-list")
	defer s.tracer.EndTransaction(txn)

	var cached []*models.Product
	if err := s.cache.Get(ctx, cache.ProductListKey, &cached); err == nil {
		s.metrics.IncrementCounter("products.list.cache_hit")
		return cached, nil
	} else if !cache.IsMiss(err) {
		log.Warn().Err(err).Msg("Failed to read product list from cache")
	}

	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		s.tracer.RecordError(txn, err)
		return nil, errors.Wrap(err, "failed to list products")
	}

	if err := s.cache.Set(ctx, cache.ProductListKey, products, productCacheTTL); err != nil {
		log.Warn().Err(err).Msg("Failed to cache product list")
	}

	return products, nil
}

// GetProduct returns one product by id
func (s *productService) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	txn := s.tracer.StartTransaction("product-get")
	defer s.tracer.EndTransaction(txn)

	var cached models.Product
	if err := s.cache.Get(ctx, cache.ProductKey(id), &cached); err == nil {
		s.metrics.IncrementCounter("products.get.cache_hit")
		return &cached, nil
	} else if !cache.IsMiss(err) {
		log.Warn().Err(err).Msg("Failed to read product from cache")
	}

	product, err := s.repo.FindProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFoundError("product", id.String())
		}
		s.tracer.RecordError(txn, err)
		return nil, errors.Wrap(err, "failed to find product")
	}

	if err := s.cache.Set(ctx, cache.ProductKey(id), product, productCacheTTL); err != nil {
		log.Warn().Err(err).Msg("Failed to cache product")
	}

	return product, nil
}

// CreateProduct adds a new product to the catalog with zero stock
func (s *productService) CreateProduct(ctx context.Context, req ProductRequest) (*models.Product, error) {
	txn := s.tracer.StartTransaction("product-create")
	defer s.tracer.EndTransaction(txn)

	if err := s.validate(ctx, req); err != nil {
		return nil, err
	}

	product := &models.Product{
		SKU:          strings.TrimSpace(req.SKU),
		Name:         req.Name,
		Category:     req.Category,
		ReorderLevel: req.ReorderLevel,
		SupplierID:   req.SupplierID,
	}
	if req.Location != "" {
		product.Location = req.Location
	}

	if err := s.repo.CreateProduct(ctx, product); err != nil {
		s.tracer.RecordError(txn, err)
		return nil, errors.Wrap(err, "failed to create product")
	}

	s.invalidate(ctx, product.ID)
	s.metrics.IncrementCounter("products.created")

	log.Info().
		Str("product_id", product.ID.String()).
		Str("sku", product.SKU).
		Msg("Product created")

	return product, nil
}

// UpdateProduct updates catalog fields on a product. Stock levels are not
// editable here; they only move through fulfillment.
func (s *productService) UpdateProduct(ctx context.Context, id uuid.UUID, req ProductRequest) (*models.Product, error) {
	txn := s.tracer.StartTransaction("product-update")
	defer s.tracer.EndTransaction(txn)

	if err := s.validate(ctx, req); err != nil {
		return nil, err
	}

	product, err := s.repo.FindProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFoundError("product", id.String())
		}
		s.tracer.RecordError(txn, err)
		return nil, errors.Wrap(err, "failed to find product")
	}

	product.SKU = strings.TrimSpace(req.SKU)
	product.Name = req.Name
	product.Category = req.Category
	product.ReorderLevel = req.ReorderLevel
	product.SupplierID = req.SupplierID
	if req.Location != "" {
		product.Location = req.Location
	}

	if err := s.repo.UpdateProduct(ctx, product); err != nil {
		s.tracer.RecordError(txn, err)
		return nil, errors.Wrap(err, "failed to update product")
	}

	s.invalidate(ctx, id)
	return product, nil
}

// DeleteProduct removes a product from the catalog
func (s *productService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	txn := s.tracer.StartTransaction("product-delete")
	defer s.tracer.EndTransaction(txn)

	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NewNotFoundError("product", id.String())
		}
		s.tracer.RecordError(txn, err)
		return errors.Wrap(err, "failed to delete product")
	}

	s.invalidate(ctx, id)
	s.metrics.IncrementCounter("products.deleted")
	return nil
}

// ReorderAlerts returns every product whose on-hand quantity has fallen
// below its reorder level
func (s *productService) ReorderAlerts(ctx context.Context) ([]*models.Product, error) {
	txn := s.tracer.StartTransaction("product-reorder-alerts")
	defer s.tracer.EndTransaction(txn)

	products, err := s.repo.ListProductsBelowReorderLevel(ctx)
	if err != nil {
		s.tracer.RecordError(txn, err)
		return nil, errors.Wrap(err, "failed to list products below reorder level")
	}

	return products, nil
}

func (s *productService) validate(ctx context.Context, req ProductRequest) error {
	if strings.TrimSpace(req.SKU) == "" {
		return NewInvalidArgumentError("sku is required")
	}
	if strings.TrimSpace(req.Name) == "" {
		return NewInvalidArgumentError("name is required")
	}
	if req.ReorderLevel < 0 {
		return NewInvalidArgumentError("reorder level must not be negative")
	}

	if req.SupplierID != nil {
		if _, err := s.repo.FindSupplierByID(ctx, *req.SupplierID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return NewInvalidArgumentError("supplier %s does not exist", *req.SupplierID)
			}
			return errors.Wrap(err, "failed to look up supplier")
		}
	}

	return nil
}

func (s *productService) invalidate(ctx context.Context, id uuid.UUID) {
	if err := s.cache.Delete(ctx, cache.ProductListKey, cache.ProductKey(id)); err != nil {
		log.Warn().Err(err).Msg("Failed to invalidate product cache")
	}
}
