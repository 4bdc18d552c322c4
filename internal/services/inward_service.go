package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"example.com/warehouse/internal/cache"
	"example.com/warehouse/internal/messaging"
	"example.com/warehouse/internal/metrics"
	"example.com/warehouse/internal/models"
	"example.com/warehouse/internal/repository"
	"example.com/warehouse/internal/search"
	"example.com/warehouse/internal/tracing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ReceiveOpenMessage is returned after a partial receipt to make it clear
// the purchase order stays open until the receipt is approved.
const ReceiveOpenMessage = "Items received successfully. Purchase order remains open for further receiving."

const pendingPurchasesCacheTTL = 30 * time.Second

// InwardService handles the purchase (inbound) side of fulfillment:
// ordering stock from suppliers, recording deliveries against open purchase
// orders and approving receipts into on-hand inventory.
type InwardService interface {
	ListPendingPurchases(ctx context.Context) ([]*PendingPurchase, error)
	GetPendingPurchase(ctx context.Context, id uuid.UUID) (*PendingPurchase, error)
	ListPurchases(ctx context.Context) ([]*models.Purchase, error)
	CreatePurchase(ctx context.Context, req CreatePurchaseRequest) (*models.Purchase, error)
	ReceivePurchase(ctx context.Context, req ReceivePurchaseRequest) (*ReceiveResult, error)
	ApprovePurchaseReceipt(ctx context.Context, id uuid.UUID) (*models.Purchase, error)
}

// CreatePurchaseLine is one requested product line on a new purchase order
type CreatePurchaseLine struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required"`
}

// CreatePurchaseRequest is the input for creating a purchase order
type CreatePurchaseRequest struct {
	SupplierID       uuid.UUID            `json:"supplier_id" binding:"required"`
	ExpectedDelivery *time.Time           `json:"expected_delivery"`
	Items            []CreatePurchaseLine `json:"items" binding:"required"`
}

// PendingPurchaseLine is a purchase line annotated with the quantity still
// expected from the supplier
type PendingPurchaseLine struct {
	ProductID        uuid.UUID `json:"product_id"`
	Sku              string    `json:"sku"`
	ProductName      string    `json:"product_name"`
	QuantityOrdered  int       `json:"quantity_ordered"`
	QuantityReceived int       `json:"quantity_received"`
	QuantityPending  int       `json:"quantity_pending"`
}

// PendingPurchase is an open purchase order with its supplier name and
// per-line pending quantities, as the receiving desk sees it.
type PendingPurchase struct {
	ID               uuid.UUID             `json:"id"`
	PoNumber         string                `json:"po_number"`
	SupplierID       uuid.UUID             `json:"supplier_id"`
	SupplierName     string                `json:"supplier_name"`
	OrderDate        time.Time             `json:"order_date"`
	ExpectedDelivery *time.Time            `json:"expected_delivery"`
	Status           models.PurchaseStatus `json:"status"`
	Lines            []PendingPurchaseLine `json:"lines"`
}

// ReceiveLine is one delivered quantity reported against a purchase line
type ReceiveLine struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required"`
}

// ReceivePurchaseRequest records a (possibly partial) delivery against an
// open purchase order. Quantities are additive across calls.
type ReceivePurchaseRequest struct {
	PurchaseID uuid.UUID     `json:"purchase_id" binding:"required"`
	Items      []ReceiveLine `json:"items" binding:"required"`
}

// ReceivedLine reports the before/after received quantities for one line
type ReceivedLine struct {
	ProductID        uuid.UUID `json:"product_id"`
	Sku              string    `json:"sku"`
	QuantityOrdered  int       `json:"quantity_ordered"`
	PreviousReceived int       `json:"previous_received"`
	QuantityReceived int       `json:"quantity_received"`
	TotalReceived    int       `json:"total_received"`
}

// ReceiveResult is the outcome of a receive call
type ReceiveResult struct {
	PurchaseID uuid.UUID             `json:"purchase_id"`
	PoNumber   string                `json:"po_number"`
	Status     models.PurchaseStatus `json:"status"`
	Lines      []ReceivedLine        `json:"lines"`
	Message    string                `json:"message"`
}

type inwardService struct {
	repo     repository.Repository
	cache    *cache.RedisCache
	msgBus   messaging.Client
	esClient *search.ElasticClient
	metrics  *metrics.Metrics
	tracer   tracing.Tracer
	erpQueue string
}

// NewInwardService creates a new inward fulfillment service
func NewInwardService(
	repo repository.Repository,
	redisCache *cache.RedisCache,
	msgBus messaging.Client,
	esClient *search.ElasticClient,
	m *metrics.Metrics,
	tracer tracing.Tracer,
	erpQueue string,
) InwardService {
	return &inwardService{
		repo:     repo,
		cache:    redisCache,
		msgBus:   msgBus,
		esClient: esClient,
		metrics:  m,
		tracer:   tracer,
		erpQueue: erpQueue,
	}
}

// ListPendingPurchases returns every purchase order still open for
// receiving, with supplier names and per-line pending quantities
func (s *inwardService) ListPendingPurchases(ctx context.Context) ([]*PendingPurchase, error) {
	txn := s.tracer.StartTransaction("inward-list-pending-purchases")
	defer s.tracer.EndTransaction(txn)

	var cached []*PendingPurchase
	if err := s.cache.Get(ctx, cache.PendingPurchasesKey, &cached); err == nil {
		s.metrics.IncrementCounter("inward.pending_purchases.cache_hit")
		return cached, nil
	} else if !cache.IsMiss(err) {
		log.Warn().Err(err).Msg("Failed to read pending purchases from cache")
	}

	span := s.tracer.StartSpan("list-pending-purchases", txn)
	purchases, err := s.repo.ListPurchasesByStatus(ctx, models.PurchaseStatusOrdered)
	span.End()

	if err != nil {
		s.tracer.RecordError(txn, err)
		return nil, errors.Wrap(err, "failed to list pending purchases")
	}

	pending := make([]*PendingPurchase, 0, len(purchases))
	for _, purchase := range purchases {
		pending = append(pending, toPendingPurchase(purchase))
	}

	if err := s.cache.Set(ctx, cache.PendingPurchasesKey, pending, pendingPurchasesCacheTTL); err != nil {
		log.Warn().Err(err).Msg("Failed to cache pending purchases")
	}

	return pending, nil
}

// GetPendingPurchase returns one open purchase order with pending
// quantities. A purchase that was already received is not visible here.
func (s *inwardService) GetPendingPurchase(ctx context.Context, id uuid.UUID) (*PendingPurchase, error) {
	txn := s.tracer.StartTransaction("inward-get-pending-purchase")
	defer s.tracer.EndTransaction(txn)

	purchase, err := s.repo.FindPurchaseByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFoundError("purchase order", id.String())
		}
		s.tracer.RecordError(txn, err)
		return nil, errors.Wrap(err, "failed to find purchase")
	}

	if purchase.Status != models.PurchaseStatusOrdered {
		return nil, NewNotFoundError("pending purchase order", id.String())
	}

	return toPendingPurchase(purchase), nil
}

// ListPurchases returns the full purchase history, most recent first
func (s *inwardService) ListPurchases(ctx context.Context) ([]*models.Purchase, error) {
	txn := s.tracer.StartTransaction("inward-list-purchases")
	defer s.tracer.EndTransaction(txn)

	purchases, err := s.repo.ListPurchasesByStatus(ctx, models.PurchaseStatusOrdered, models.PurchaseStatusReceived)
	if err != nil {
		s.tracer.RecordError(txn, err)
		return nil, errors.Wrap(err, "failed to list purchases")
	}

	return purchases, nil
}

// CreatePurchase validates and creates a new purchase order in the Ordered
// state. Validation failures reject the whole order; nothing is persisted.
func (s *inwardService) CreatePurchase(ctx context.Context, req CreatePurchaseRequest) (*models.Purchase, error) {
	txn := s.tracer.StartTransaction("inward-create-purchase")
	defer s.tracer.EndTransaction(txn)

	start := time.Now()
	defer func() {
		s.metrics.RecordTimer("inward.create_purchase", time.Since(start).Milliseconds())
	}()

	if len(req.Items) == 0 {
		return nil, NewInvalidArgumentError("purchase order must have at least one item")
	}

	seen := make(map[uuid.UUID]bool, len(req.Items))
	productIDs := make([]uuid.UUID, 0, len(req.Items))
	for _, line := range req.Items {
		if line.Quantity <= 0 {
			return nil, NewInvalidArgumentError("quantity for product %s must be greater than zero", line.ProductID)
		}
		if seen[line.ProductID] {
			return nil, NewInvalidArgumentError("product %s appears on more than one line", line.ProductID)
		}
		seen[line.ProductID] = true
		productIDs = append(productIDs, line.ProductID)
	}

	if _, err := s.repo.FindSupplierByID(ctx, req.SupplierID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewInvalidArgumentError("supplier %s does not exist", req.SupplierID)
		}
		s.tracer.RecordError(txn, err)
		return nil, errors.Wrap(err, "failed to look up supplier")
	}

	// Check every referenced product and report all missing ids at once
	span := s.tracer.StartSpan("validate-products", txn)
	products, err := s.repo.FindProductsByIDs(ctx, productIDs)
	span.End()

	if err != nil {
		s.tracer.RecordError(txn, err)
		return nil, errors.Wrap(err, "failed to look up products")
	}

	found := make(map[uuid.UUID]bool, len(products))
	for _, p := range products {
		found[p.ID] = true
	}

	var missing []string
	for _, id := range productIDs {
		if !found[id] {
			missing = append(missing, id.String())
		}
	}
	if len(missing) > 0 {
		return nil, NewInvalidArgumentError("unknown products: %s", strings.Join(missing, ", "))
	}

	now := time.Now().UTC()
	purchase := &models.Purchase{
		PoNumber:         generatePoNumber(req.SupplierID, now),
		SupplierID:       req.SupplierID,
		OrderDate:        now,
		ExpectedDelivery: req.ExpectedDelivery,
		Status:           models.PurchaseStatusOrdered,
	}
	for _, line := range req.Items {
		purchase.Items = append(purchase.Items, models.PurchaseItem{
			ProductID:       line.ProductID,
			QuantityOrdered: line.Quantity,
		})
	}

	if err := s.repo.CreatePurchase(ctx, purchase); err != nil {
		s.tracer.RecordError(txn, err)
		return nil, errors.Wrap(err, "failed to create purchase")
	}

	s.invalidatePendingPurchases(ctx)
	s.metrics.IncrementCounter("inward.purchases_created")

	log.Info().
		Str("purchase_id", purchase.ID.String()).
		Str("po_number", purchase.PoNumber).
		Str("supplier_id", purchase.SupplierID.String()).
		Int("lines", len(purchase.Items)).
		Msg("Purchase order created")

	return purchase, nil
}

// ReceivePurchase records delivered quantities against an open purchase
// order. All lines are applied atomically or not at all, and the order
// stays in Ordered until its receipt is approved.
func (s *inwardService) ReceivePurchase(ctx context.Context, req ReceivePurchaseRequest) (*ReceiveResult, error) {
	txn := s.tracer.StartTransaction("inward-receive-purchase")
	defer s.tracer.EndTransaction(txn)

	if len(req.Items) == 0 {
		return nil, NewInvalidArgumentError("receive request must have at least one item")
	}

	result := &ReceiveResult{
		PurchaseID: req.PurchaseID,
		Message:    ReceiveOpenMessage,
	}

	err := s.repo.WithTransaction(ctx, func(ctx context.Context, txRepo repository.Repository) error {
		purchase, err := txRepo.FindPurchaseByID(ctx, req.PurchaseID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return NewNotFoundError("purchase order", req.PurchaseID.String())
			}
			return errors.Wrap(err, "failed to find purchase")
		}

		if purchase.Status != models.PurchaseStatusOrdered {
			return NewInvalidStateError("purchase order %s is not open for receiving", purchase.PoNumber)
		}

		lines := make(map[uuid.UUID]*models.PurchaseItem, len(purchase.Items))
		for i := range purchase.Items {
			lines[purchase.Items[i].ProductID] = &purchase.Items[i]
		}

		result.PoNumber = purchase.PoNumber
		result.Status = purchase.Status

		for _, recv := range req.Items {
			if recv.Quantity <= 0 {
				return NewInvalidArgumentError("received quantity for product %s must be greater than zero", recv.ProductID)
			}

			item, ok := lines[recv.ProductID]
			if !ok {
				return NewInvalidArgumentError("product %s is not on purchase order %s", recv.ProductID, purchase.PoNumber)
			}

			if recv.Quantity > item.QuantityPending() {
				return NewInvalidArgumentError(
					"receiving %d of product %s would exceed the ordered quantity (%d of %d already received)",
					recv.Quantity, recv.ProductID, item.QuantityReceived, item.QuantityOrdered)
			}

			newTotal := item.QuantityReceived + recv.Quantity
			if err := txRepo.SavePurchaseItemReceived(ctx, item.ID, newTotal); err != nil {
				return errors.Wrap(err, "failed to save received quantity")
			}

			result.Lines = append(result.Lines, ReceivedLine{
				ProductID:        item.ProductID,
				Sku:              item.Product.SKU,
				QuantityOrdered:  item.QuantityOrdered,
				PreviousReceived: item.QuantityReceived,
				QuantityReceived: recv.Quantity,
				TotalReceived:    newTotal,
			})
			item.QuantityReceived = newTotal
		}

		return nil
	})
	if err != nil {
		if !IsNotFound(err) && !IsInvalidArgument(err) && !IsInvalidState(err) {
			s.tracer.RecordError(txn, err)
		}
		return nil, err
	}

	s.invalidatePendingPurchases(ctx)
	s.metrics.IncrementCounter("inward.receipts_recorded")

	log.Info().
		Str("purchase_id", req.PurchaseID.String()).
		Str("po_number", result.PoNumber).
		Int("lines", len(result.Lines)).
		Msg("Delivery recorded against purchase order")

	return result, nil
}

// ApprovePurchaseReceipt finalizes an open purchase order: the status moves
// to Received exactly once, and every received quantity is added to on-hand
// stock in the same database transaction.
func (s *inwardService) ApprovePurchaseReceipt(ctx context.Context, id uuid.UUID) (*models.Purchase, error) {
	txn := s.tracer.StartTransaction("inward-approve-receipt")
	defer s.tracer.EndTransaction(txn)

	start := time.Now()
	defer func() {
		s.metrics.RecordTimer("inward.approve_receipt", time.Since(start).Milliseconds())
	}()

	err := s.repo.WithTransaction(ctx, func(ctx context.Context, txRepo repository.Repository) error {
		purchase, err := txRepo.FindPurchaseByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return NewNotFoundError("purchase order", id.String())
			}
			return errors.Wrap(err, "failed to find purchase")
		}

		if purchase.Status != models.PurchaseStatusOrdered {
			return NewInvalidStateError("purchase order %s has already been received", purchase.PoNumber)
		}

		// Guarded status flip: a concurrent approval loses the race here
		// and rolls back without touching stock.
		now := time.Now().UTC()
		if err := txRepo.UpdatePurchaseStatus(ctx, id, models.PurchaseStatusOrdered, models.PurchaseStatusReceived, &now); err != nil {
			if errors.Is(err, repository.ErrStatusConflict) {
				return NewInvalidStateError("purchase order %s has already been received", purchase.PoNumber)
			}
			return errors.Wrap(err, "failed to update purchase status")
		}

		for _, item := range purchase.Items {
			if item.QuantityReceived == 0 {
				continue
			}
			if err := txRepo.AdjustProductStock(ctx, item.ProductID, item.QuantityReceived); err != nil {
				return errors.Wrapf(err, "failed to add stock for product %s", item.ProductID)
			}
		}

		return nil
	})
	if err != nil {
		if !IsNotFound(err) && !IsInvalidState(err) {
			s.tracer.RecordError(txn, err)
		}
		return nil, err
	}

	approved, err := s.repo.FindPurchaseByID(ctx, id)
	if err != nil {
		s.tracer.RecordError(txn, err)
		return nil, errors.Wrap(err, "failed to reload approved purchase")
	}

	s.invalidatePendingPurchases(ctx)
	s.metrics.IncrementCounter("inward.receipts_approved")

	log.Info().
		Str("purchase_id", approved.ID.String()).
		Str("po_number", approved.PoNumber).
		Msg("Purchase receipt approved, stock updated")

	s.publishReceiptEvent(ctx, approved)
	s.indexReceipt(ctx, approved)

	return approved, nil
}

// publishReceiptEvent notifies the ERP queue of the approved receipt. The
// receipt is already committed, so failures here only log a warning.
func (s *inwardService) publishReceiptEvent(ctx context.Context, purchase *models.Purchase) {
	if s.msgBus == nil {
		return
	}

	event := FulfillmentEvent{
		Type:       EventTypePurchaseReceived,
		OccurredAt: time.Now().UTC(),
		PurchaseID: &purchase.ID,
		PoNumber:   purchase.PoNumber,
	}
	for _, item := range purchase.Items {
		if item.QuantityReceived == 0 {
			continue
		}
		event.Lines = append(event.Lines, EventLine{
			ProductID: item.ProductID,
			Sku:       item.Product.SKU,
			Quantity:  item.QuantityReceived,
		})
	}

	if err := s.msgBus.PublishMessage(ctx, event, s.erpQueue); err != nil {
		log.Warn().
			Err(err).
			Str("purchase_id", purchase.ID.String()).
			Msg("Failed to publish receipt event")
		s.metrics.IncrementCounter("inward.publish_failures")
		return
	}

	s.metrics.IncrementCounter("inward.events_published")
}

// indexReceipt pushes the approved receipt into Elasticsearch, best-effort
func (s *inwardService) indexReceipt(ctx context.Context, purchase *models.Purchase) {
	if s.esClient == nil {
		return
	}

	if err := s.esClient.IndexReceipt(ctx, purchase); err != nil {
		log.Warn().
			Err(err).
			Str("purchase_id", purchase.ID.String()).
			Msg("Failed to index receipt")
		s.metrics.IncrementCounter("inward.index_failures")
	}
}

func (s *inwardService) invalidatePendingPurchases(ctx context.Context) {
	if err := s.cache.Delete(ctx, cache.PendingPurchasesKey); err != nil {
		log.Warn().Err(err).Msg("Failed to invalidate pending purchases cache")
	}
}

func toPendingPurchase(purchase *models.Purchase) *PendingPurchase {
	pending := &PendingPurchase{
		ID:               purchase.ID,
		PoNumber:         purchase.PoNumber,
		SupplierID:       purchase.SupplierID,
		SupplierName:     purchase.Supplier.Name,
		OrderDate:        purchase.OrderDate,
		ExpectedDelivery: purchase.ExpectedDelivery,
		Status:           purchase.Status,
	}
	for _, item := range purchase.Items {
		pending.Lines = append(pending.Lines, PendingPurchaseLine{
			ProductID:        item.ProductID,
			Sku:              item.Product.SKU,
			ProductName:      item.Product.Name,
			QuantityOrdered:  item.QuantityOrdered,
			QuantityReceived: item.QuantityReceived,
			QuantityPending:  item.QuantityPending(),
		})
	}
	return pending
}

// generatePoNumber builds a human-readable purchase order number from the
// order time and the supplier id
func generatePoNumber(supplierID uuid.UUID, at time.Time) string {
	short := strings.ReplaceAll(supplierID.String(), "-", "")[:8]
	return fmt.Sprintf("PO-%s-%s", at.Format("20060102150405"), short)
}
