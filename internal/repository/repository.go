package repository

import (
	"context"
	"time"

	"example.com/warehouse/internal/database"
	"example.com/warehouse/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository provides data access methods for the warehouse store.
// Implementations must guarantee that methods invoked on the repository
// passed to a WithTransaction callback share one database transaction.
type Repository interface {
	// Transaction support
	WithTransaction(ctx context.Context, fn func(ctx context.Context, txRepo Repository) error) error

	// Product operations
	CreateProduct(ctx context.Context, product *models.Product) error
	UpdateProduct(ctx context.Context, product *models.Product) error
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindProductByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Product, error)
	ListProducts(ctx context.Context) ([]*models.Product, error)
	ListProductsBelowReorderLevel(ctx context.Context) ([]*models.Product, error)
	AdjustProductStock(ctx context.Context, id uuid.UUID, delta int) error

	// Supplier operations
	CreateSupplier(ctx context.Context, supplier *models.Supplier) error
	UpdateSupplier(ctx context.Context, supplier *models.Supplier) error
	DeleteSupplier(ctx context.Context, id uuid.UUID) error
	FindSupplierByID(ctx context.Context, id uuid.UUID) (*models.Supplier, error)
	ListSuppliers(ctx context.Context) ([]*models.Supplier, error)

	// Purchase operations
	CreatePurchase(ctx context.Context, purchase *models.Purchase) error
	FindPurchaseByID(ctx context.Context, id uuid.UUID) (*models.Purchase, error)
	ListPurchasesByStatus(ctx context.Context, statuses ...models.PurchaseStatus) ([]*models.Purchase, error)
	SavePurchaseItemReceived(ctx context.Context, itemID uuid.UUID, quantityReceived int) error
	UpdatePurchaseStatus(ctx context.Context, id uuid.UUID, from, to models.PurchaseStatus, receivedDate *time.Time) error

	// Order operations
	CreateOrder(ctx context.Context, order *models.Order) error
	FindOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListOrdersByStatus(ctx context.Context, statuses ...models.OrderStatus) ([]*models.Order, error)
	SaveOrderItemSent(ctx context.Context, itemID uuid.UUID, quantitySent int) error
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, from, to models.OrderStatus, shippedDate *time.Time) error

	// User operations
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// repo is an implementation of the Repository interface
type repo struct {
	db database.DB
}

// dbWrapper adapts a transaction-scoped gorm.DB to the database.DB interface
type dbWrapper struct {
	db *gorm.DB
}

func (w *dbWrapper) DB() (*gorm.DB, error) {
	return w.db, nil
}

func (w *dbWrapper) Close() error {
	return nil
}

// NewRepository creates a new repository instance
func NewRepository(db database.DB) Repository {
	return &repo{
		db: db,
	}
}

// WithTransaction runs fn within a single database transaction. Any error
// returned by fn rolls back every change made through txRepo.
func (r *repo) WithTransaction(ctx context.Context, fn func(ctx context.Context, txRepo Repository) error) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	return gormDB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := &repo{
			db: &dbWrapper{db: tx},
		}
		return fn(ctx, txRepo)
	})
}
