package repository

import (
	"context"

	"example.com/warehouse/internal/database"
	"example.com/warehouse/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateProduct creates a new product
func (r *repo) CreateProduct(ctx context.Context, product *models.Product) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	return gormDB.WithContext(ctx).Create(product).Error
}

// UpdateProduct updates an existing product
func (r *repo) UpdateProduct(ctx context.Context, product *models.Product) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return gormDB.WithContext(ctx).Save(product).Error
}

// DeleteProduct soft-deletes a product
func (r *repo) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	result := gormDB.WithContext(ctx).Delete(&models.Product{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// FindProductByID gets a product by ID
func (r *repo) FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var product models.Product
	err = gormDB.WithContext(ctx).Preload("Supplier").First(&product, "id = ?", id).Error
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

// FindProductByIDForUpdate gets a product by ID holding a row lock for the
// duration of the enclosing transaction. Ship operations rely on this so
// that concurrent shipments of the same product serialize on the ledger row.
func (r *repo) FindProductByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var product models.Product
	err = gormDB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&product, "id = ?", id).Error
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

// FindProductsByIDs gets all products matching the given IDs
func (r *repo) FindProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Product, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var products []*models.Product
	if err := gormDB.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// ListProducts lists all products
func (r *repo) ListProducts(ctx context.Context) ([]*models.Product, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var products []*models.Product
	err = gormDB.WithContext(ctx).
		Preload("Supplier").
		Order("name").
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

// ListProductsBelowReorderLevel lists products whose on-hand quantity has
// fallen below their reorder level
func (r *repo) ListProductsBelowReorderLevel(ctx context.Context) ([]*models.Product, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var products []*models.Product
	err = gormDB.WithContext(ctx).
		Where("quantity_on_hand < reorder_level").
		Order("name").
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

// AdjustProductStock adds delta (which may be negative) to a product's
// quantity-on-hand. The update is guarded so the ledger can never go
// negative; a guarded miss is reported as ErrInsufficientStock.
func (r *repo) AdjustProductStock(ctx context.Context, id uuid.UUID, delta int) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	result := gormDB.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND quantity_on_hand + ? >= 0", id, delta).
		UpdateColumn("quantity_on_hand", gorm.Expr("quantity_on_hand + ?", delta))

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInsufficientStock
	}
	return nil
}
