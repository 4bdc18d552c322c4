package repository

import (
	"context"
	"time"

	"example.com/warehouse/internal/database"
	"example.com/warehouse/internal/models"

	"github.com/google/uuid"
)

// CreatePurchase creates a purchase order together with its line items as
// one atomic insert
func (r *repo) CreatePurchase(ctx context.Context, purchase *models.Purchase) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	if purchase.ID == uuid.Nil {
		purchase.ID = uuid.New()
	}
	for i := range purchase.Items {
		if purchase.Items[i].ID == uuid.Nil {
			purchase.Items[i].ID = uuid.New()
		}
		purchase.Items[i].PurchaseID = purchase.ID
	}

	return gormDB.WithContext(ctx).Omit("Supplier", "Items.Product").Create(purchase).Error
}

// FindPurchaseByID gets a purchase order with its supplier and line items
func (r *repo) FindPurchaseByID(ctx context.Context, id uuid.UUID) (*models.Purchase, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var purchase models.Purchase
	err = gormDB.WithContext(ctx).
		Preload("Supplier").
		Preload("Items").
		Preload("Items.Product").
		First(&purchase, "id = ?", id).Error
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &purchase, nil
}

// ListPurchasesByStatus lists purchase orders in any of the given statuses
func (r *repo) ListPurchasesByStatus(ctx context.Context, statuses ...models.PurchaseStatus) ([]*models.Purchase, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var purchases []*models.Purchase
	err = gormDB.WithContext(ctx).
		Preload("Supplier").
		Preload("Items").
		Preload("Items.Product").
		Where("status IN ?", statuses).
		Order("order_date DESC").
		Find(&purchases).Error
	if err != nil {
		return nil, err
	}
	return purchases, nil
}

// SavePurchaseItemReceived persists a line's cumulative received quantity
func (r *repo) SavePurchaseItemReceived(ctx context.Context, itemID uuid.UUID, quantityReceived int) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	result := gormDB.WithContext(ctx).
		Model(&models.PurchaseItem{}).
		Where("id = ?", itemID).
		UpdateColumn("quantity_received", quantityReceived)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdatePurchaseStatus performs a compare-and-swap transition of a purchase
// order's status. The update is keyed on (id, from) so that of two
// concurrent approvals exactly one succeeds; the loser gets
// ErrStatusConflict instead of silently re-applying the transition.
func (r *repo) UpdatePurchaseStatus(ctx context.Context, id uuid.UUID, from, to models.PurchaseStatus, receivedDate *time.Time) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	updates := map[string]interface{}{"status": to}
	if receivedDate != nil {
		updates["received_date"] = receivedDate
	}

	result := gormDB.WithContext(ctx).
		Model(&models.Purchase{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStatusConflict
	}
	return nil
}
