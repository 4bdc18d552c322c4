package services

import (
	"context"
	"strings"

	"example.com/warehouse/internal/metrics"
	"example.com/warehouse/internal/models"
	"example.com/warehouse/internal/repository"
	"example.com/warehouse/internal/tracing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// SupplierService manages the supplier directory
type SupplierService interface {
	ListSuppliers(ctx context.Context) ([]*models.Supplier, error)
	GetSupplier(ctx context.Context, id uuid.UUID) (*models.Supplier, error)
	CreateSupplier(ctx context.Context, req SupplierRequest) (*models.Supplier, error)
	UpdateSupplier(ctx context.Context, id uuid.UUID, req SupplierRequest) (*models.Supplier, error)
	DeleteSupplier(ctx context.Context, id uuid.UUID) error
}

// SupplierRequest is the input for creating or updating a supplier
type SupplierRequest struct {
	Name          string  `json:"name" binding:"required"`
	ContactPerson *string `json:"contact_person"`
	Email         *string `json:"email"`
	Phone         *string `json:"phone"`
	Address       *string `json:"address"`
}

type supplierService struct {
	repo    repository.Repository
	metrics *metrics.Metrics
	tracer  tracing.Tracer
}

// NewSupplierService creates a new supplier directory service
func NewSupplierService(repo repository.Repository, m *metrics.Metrics, tracer tracing.Tracer) SupplierService {
	return &supplierService{
		repo:    repo,
		metrics: m,
		tracer:  tracer,
	}
}

// ListSuppliers returns every supplier
func (s *supplierService) ListSuppliers(ctx context.Context) ([]*models.Supplier, error) {
	txn := s.tracer.StartTransaction("supplier-list")
	defer s.tracer.EndTransaction(txn)

	suppliers, err := s.repo.ListSuppliers(ctx)
	if err != nil {
		s.tracer.RecordError(txn, err)
		return nil, errors.Wrap(err, "failed to list suppliers")
	}

	return suppliers, nil
}

// GetSupplier returns one supplier by id
func (s *supplierService) GetSupplier(ctx context.Context, id uuid.UUID) (*models.Supplier, error) {
	txn := s.tracer.StartTransaction("supplier-get")
	defer s.tracer.EndTransaction(txn)

	supplier, err := s.repo.FindSupplierByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFoundError("supplier", id.String())
		}
		s.tracer.RecordError(txn, err)
		return nil, errors.Wrap(err, "failed to find supplier")
	}

	return supplier, nil
}

// CreateSupplier adds a new supplier
func (s *supplierService) CreateSupplier(ctx context.Context, req SupplierRequest) (*models.Supplier, error) {
	txn := s.tracer.StartTransaction("supplier-create")
	defer s.tracer.EndTransaction(txn)

	if strings.TrimSpace(req.Name) == "" {
		return nil, NewInvalidArgumentError("name is required")
	}

	supplier := &models.Supplier{
		Name:          req.Name,
		ContactPerson: req.ContactPerson,
		Email:         req.Email,
		Phone:         req.Phone,
		Address:       req.Address,
	}

	if err := s.repo.CreateSupplier(ctx, supplier); err != nil {
		s.tracer.RecordError(txn, err)
		return nil, errors.Wrap(err, "failed to create supplier")
	}

	s.metrics.IncrementCounter("suppliers.created")

	log.Info().
		Str("supplier_id", supplier.ID.String()).
		Str("name", supplier.Name).
		Msg("Supplier created")

	return supplier, nil
}

// UpdateSupplier updates an existing supplier
func (s *supplierService) UpdateSupplier(ctx context.Context, id uuid.UUID, req SupplierRequest) (*models.Supplier, error) {
	txn := s.tracer.StartTransaction("supplier-update")
	defer s.tracer.EndTransaction(txn)

	if strings.TrimSpace(req.Name) == "" {
		return nil, NewInvalidArgumentError("name is required")
	}

	supplier, err := s.repo.FindSupplierByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFoundError("supplier", id.String())
		}
		s.tracer.RecordError(txn, err)
		return nil, errors.Wrap(err, "failed to find supplier")
	}

	supplier.Name = req.Name
	supplier.ContactPerson = req.ContactPerson
	supplier.Email = req.Email
	supplier.Phone = req.Phone
	supplier.Address = req.Address

	if err := s.repo.UpdateSupplier(ctx, supplier); err != nil {
		s.tracer.RecordError(txn, err)
		return nil, errors.Wrap(err, "failed to update supplier")
	}

	return supplier, nil
}

// DeleteSupplier removes a supplier
func (s *supplierService) DeleteSupplier(ctx context.Context, id uuid.UUID) error {
	txn := s.tracer.StartTransaction("supplier-delete")
	defer s.tracer.EndTransaction(txn)

	if err := s.repo.DeleteSupplier(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NewNotFoundError("supplier", id.String())
		}
		s.tracer.RecordError(txn, err)
		return errors.Wrap(err, "failed to delete supplier")
	}

	s.metrics.IncrementCounter("suppliers.deleted")
	return nil
}
