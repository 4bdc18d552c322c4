package repository

import (
	"context"

	"example.com/warehouse/internal/database"
	"example.com/warehouse/internal/models"

	"github.com/google/uuid"
)

// CreateSupplier creates a new supplier
func (r *repo) CreateSupplier(ctx context.Context, supplier *models.Supplier) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}
	if supplier.ID == uuid.Nil {
		supplier.ID = uuid.New()
	}
	return gormDB.WithContext(ctx).Create(supplier).Error
}

// UpdateSupplier updates an existing supplier
func (r *repo) UpdateSupplier(ctx context.Context, supplier *models.Supplier) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return gormDB.WithContext(ctx).Save(supplier).Error
}

// DeleteSupplier soft-deletes a supplier
func (r *repo) DeleteSupplier(ctx context.Context, id uuid.UUID) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	result := gormDB.WithContext(ctx).Delete(&models.Supplier{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// FindSupplierByID gets a supplier by ID
func (r *repo) FindSupplierByID(ctx context.Context, id uuid.UUID) (*models.Supplier, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var supplier models.Supplier
	err = gormDB.WithContext(ctx).First(&supplier, "id = ?", id).Error
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &supplier, nil
}

// ListSuppliers lists all suppliers
func (r *repo) ListSuppliers(ctx context.Context) ([]*models.Supplier, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var suppliers []*models.Supplier
	if err := gormDB.WithContext(ctx).Order("name").Find(&suppliers).Error; err != nil {
		return nil, err
	}
	return suppliers, nil
}
