package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderStatus is the lifecycle state of a sales order
type OrderStatus string

// Sales order lifecycle: Pending is the initial state, Shipped is terminal.
const (
	OrderStatusPending OrderStatus = "Pending"
	OrderStatusShipped OrderStatus = "Shipped"
)

// Order represents an outbound customer order
type Order struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	CustomerName string         `gorm:"not null" json:"customer_name"`
	OrderDate    time.Time      `gorm:"not null" json:"order_date"`
	Status       OrderStatus    `gorm:"type:varchar(10);not null" json:"status"`
	ShippedDate  *time.Time     `json:"shipped_date"`
	Items        []OrderItem    `gorm:"foreignKey:OrderID" json:"items"`
}

// OrderItem is a single line on a sales order. QuantitySent accumulates
// across partial shipments up to QuantityOrdered.
type OrderItem struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
	OrderID         uuid.UUID `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID       uuid.UUID `gorm:"type:uuid;not null" json:"product_id"`
	QuantityOrdered int       `gorm:"not null" json:"quantity_ordered"`
	QuantitySent    int       `gorm:"not null;default:0" json:"quantity_sent"`
	Product         Product   `gorm:"foreignKey:ProductID" json:"-"`
}

// QuantityRemaining is the amount still to ship on this line
func (oi *OrderItem) QuantityRemaining() int {
	return oi.QuantityOrdered - oi.QuantitySent
}

// FullyShipped reports whether the line needs no further shipment
func (oi *OrderItem) FullyShipped() bool {
	return oi.QuantitySent >= oi.QuantityOrdered
}
