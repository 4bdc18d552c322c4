package repository

import (
	"context"
	"time"

	"example.com/warehouse/internal/database"
	"example.com/warehouse/internal/models"

	"github.com/google/uuid"
)

// CreateOrder creates a sales order together with its line items as one
// atomic insert
func (r *repo) CreateOrder(ctx context.Context, order *models.Order) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	for i := range order.Items {
		if order.Items[i].ID == uuid.Nil {
			order.Items[i].ID = uuid.New()
		}
		order.Items[i].OrderID = order.ID
	}

	return gormDB.WithContext(ctx).Omit("Items.Product").Create(order).Error
}

// FindOrderByID gets a sales order with its line items
func (r *repo) FindOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var order models.Order
	err = gormDB.WithContext(ctx).
		Preload("Items").
		Preload("Items.Product").
		First(&order, "id = ?", id).Error
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// ListOrdersByStatus lists sales orders in any of the given statuses
func (r *repo) ListOrdersByStatus(ctx context.Context, statuses ...models.OrderStatus) ([]*models.Order, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var orders []*models.Order
	err = gormDB.WithContext(ctx).
		Preload("Items").
		Preload("Items.Product").
		Where("status IN ?", statuses).
		Order("order_date DESC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// SaveOrderItemSent persists a line's cumulative shipped quantity
func (r *repo) SaveOrderItemSent(ctx context.Context, itemID uuid.UUID, quantitySent int) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	result := gormDB.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("id = ?", itemID).
		UpdateColumn("quantity_sent", quantitySent)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateOrderStatus performs a compare-and-swap transition of a sales
// order's status, keyed on (id, from). Zero rows affected means a
// concurrent caller won the transition and is reported as
// ErrStatusConflict.
func (r *repo) UpdateOrderStatus(ctx context.Context, id uuid.UUID, from, to models.OrderStatus, shippedDate *time.Time) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	updates := map[string]interface{}{"status": to}
	if shippedDate != nil {
		updates["shipped_date"] = shippedDate
	}

	result := gormDB.WithContext(ctx).
		Model(&models.Order{}).
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
