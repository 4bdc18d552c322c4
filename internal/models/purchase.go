package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PurchaseStatus is the lifecycle state of a purchase order
type PurchaseStatus string

// Purchase order lifecycle: Ordered is the initial state, Received is
// terminal. There is no cancelled or rejected state.
const (
	PurchaseStatusOrdered  PurchaseStatus = "Ordered"
	PurchaseStatusReceived PurchaseStatus = "Received"
)

// Purchase represents a purchase order placed with a supplier
type Purchase struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt        time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
	PoNumber         string         `gorm:"column:po_number;not null;uniqueIndex" json:"po_number"`
	SupplierID       uuid.UUID      `gorm:"type:uuid;not null" json:"supplier_id"`
	OrderDate        time.Time      `gorm:"not null" json:"order_date"`
	ExpectedDelivery *time.Time     `json:"expected_delivery"`
	Status           PurchaseStatus `gorm:"type:varchar(10);not null" json:"status"`
	ReceivedDate     *time.Time     `json:"received_date"`
	Supplier         Supplier       `gorm:"foreignKey:SupplierID" json:"-"`
	Items            []PurchaseItem `gorm:"foreignKey:PurchaseID" json:"items"`
}

// PurchaseItem is a single line on a purchase order. QuantityReceived
// accumulates across partial receipts and never exceeds QuantityOrdered.
type PurchaseItem struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
	PurchaseID       uuid.UUID `gorm:"type:uuid;not null;index" json:"purchase_id"`
	ProductID        uuid.UUID `gorm:"type:uuid;not null" json:"product_id"`
	QuantityOrdered  int       `gorm:"not null" json:"quantity_ordered"`
	QuantityReceived int       `gorm:"not null;default:0" json:"quantity_received"`
	Product          Product   `gorm:"foreignKey:ProductID" json:"-"`
}

// QuantityPending is the amount still expected on this line
func (pi *PurchaseItem) QuantityPending() int {
	return pi.QuantityOrdered - pi.QuantityReceived
}
