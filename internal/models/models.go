package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Role identifies the capability level carried by an authenticated caller
type Role string

// Caller roles
const (
	RoleAdmin Role = "admin"
	RoleStaff Role = "staff"
)

// User represents an API user with a role claim
type User struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	Username     string         `gorm:"not null;uniqueIndex" json:"username"`
	PasswordHash string         `gorm:"not null" json:"-"`
	Role         Role           `gorm:"type:varchar(10);not null" json:"role"`
}

// Supplier represents a goods supplier
type Supplier struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
	Name          string         `gorm:"not null" json:"name"`
	ContactPerson *string        `json:"contact_person"`
	Email         *string        `json:"email"`
	Phone         *string        `json:"phone"`
	Address       *string        `json:"address"`
	Products      []Product      `gorm:"foreignKey:SupplierID" json:"-"`
	Purchases     []Purchase     `gorm:"foreignKey:SupplierID" json:"-"`
}

// Product represents a stocked item. QuantityOnHand is the inventory
// ledger: it is decremented by order shipping and incremented by
// purchase-receipt approval, and must never go negative.
type Product struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
	SKU            string         `gorm:"column:sku;not null;uniqueIndex" json:"sku"`
	Name           string         `gorm:"not null" json:"name"`
	Category       *string        `json:"category"`
	QuantityOnHand int            `gorm:"not null;default:0" json:"quantity_on_hand"`
	ReorderLevel   int            `gorm:"not null;default:0" json:"reorder_level"`
	SupplierID     *uuid.UUID     `gorm:"type:uuid" json:"supplier_id"`
	Location       string         `gorm:"not null;default:'Main Warehouse'" json:"location"`
	Supplier       *Supplier      `gorm:"foreignKey:SupplierID" json:"-"`
}

// SetupModels configures GORM models and runs migrations
func SetupModels(db *gorm.DB) error {
	err := db.AutoMigrate(
		&User{},
		&Supplier{},
		&Product{},
		&Purchase{},
		&PurchaseItem{},
		&Order{},
		&OrderItem{},
	)
	if err != nil {
		return errors.Wrap(err, "failed to run auto migrations")
	}

	return nil
}
