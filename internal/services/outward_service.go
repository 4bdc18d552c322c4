package services

import (
	"context"
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

const pendingOrdersCacheTTL = 30 * time.Second

// OutwardService handles the sales (outbound) side of fulfillment:
// accepting customer orders, shipping against available stock and approving
// completed shipments.
type OutwardService interface {
	ListPendingOrders(ctx context.Context) ([]*PendingOrder, error)
	GetPendingOrder(ctx context.Context, id uuid.UUID) (*PendingOrder, error)
	ListOrders(ctx context.Context) ([]*models.Order, error)
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*models.Order, error)
	ShipOrder(ctx context.Context, req ShipOrderRequest) (*ShipResult, error)
	ApproveShipment(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

// CreateOrderLine is one requested product line on a new sales order
type CreateOrderLine struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required"`
}

// CreateOrderRequest is the input for creating a sales order. Stock is not
// checked at creation time; orders may be accepted for more than is on hand.
type CreateOrderRequest struct {
	CustomerName string            `json:"customer_name" binding:"required"`
	Items        []CreateOrderLine `json:"items" binding:"required"`
}

// PendingOrderLine is an order line annotated with current availability
type PendingOrderLine struct {
	ProductID         uuid.UUID `json:"product_id"`
	Sku               string    `json:"sku"`
	ProductName       string    `json:"product_name"`
	QuantityOrdered   int       `json:"quantity_ordered"`
	QuantitySent      int       `json:"quantity_sent"`
	QuantityRemaining int       `json:"quantity_remaining"`
	QuantityOnHand    int       `json:"quantity_on_hand"`
}

// PendingOrder is an open sales order with per-line availability so the
// outward desk can see what is actually shippable right now.
type PendingOrder struct {
	ID           uuid.UUID          `json:"id"`
	CustomerName string             `json:"customer_name"`
	OrderDate    time.Time          `json:"order_date"`
	Status       models.OrderStatus `json:"status"`
	Lines        []PendingOrderLine `json:"lines"`
}

// ShipLine is one requested shipment quantity against an order line
type ShipLine struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required"`
}

// ShipOrderRequest records a (possibly partial) shipment against an open
// sales order. When Items is empty, every line on the order is shipped for
// its full remaining quantity.
type ShipOrderRequest struct {
	OrderID uuid.UUID  `json:"order_id" binding:"required"`
	Items   []ShipLine `json:"items"`
}

// ShippedLine reports what actually went out for one line. QuantityShipped
// can be lower than QuantityRequested when stock or the order line capped it.
type ShippedLine struct {
	ProductID         uuid.UUID `json:"product_id"`
	Sku               string    `json:"sku"`
	QuantityRequested int       `json:"quantity_requested"`
	QuantityShipped   int       `json:"quantity_shipped"`
	QuantityRemaining int       `json:"quantity_remaining"`
	QuantityOnHand    int       `json:"quantity_on_hand"`
}

// ShipResult is the outcome of a ship call
type ShipResult struct {
	OrderID uuid.UUID          `json:"order_id"`
	Status  models.OrderStatus `json:"status"`
	Lines   []ShippedLine      `json:"lines"`
}

type outwardService struct {
	repo     repository.Repository
	cache    *cache.RedisCache
	msgBus   messaging.Client
	esClient *search.ElasticClient
	metrics  *metrics.Metrics
	tracer   tracing.Tracer
	erpQueue string
}

// NewOutwardService creates a new outward fulfillment service
func NewOutwardService(
	repo repository.Repository,
	redisCache *cache.RedisCache,
	msgBus messaging.Client,
	esClient *search.ElasticClient,
	m *metrics.Metrics,
	tracer tracing.Tracer,
	erpQueue string,
) OutwardService {
	return &outwardService{
		repo:     repo,
		cache:    redisCache,
		msgBus:   msgBus,
		esClient: esClient,
		metrics:  m,
		tracer:   tracer,
		erpQueue: erpQueue,
	}
}

// ListPendingOrders returns every order still open for shipping, with
// current on-hand quantities per line
func (s *outwardService) ListPendingOrders(ctx context.Context) ([]*PendingOrder, error) {
	txn := s.tracer.StartTransaction("outward-list-pending-orders")
	defer s.tracer.EndTransaction(txn)

	var cached []*PendingOrder
	if err := s.cache.Get(ctx, cache.PendingOrdersKey, &cached); err == nil {
		s.metrics.IncrementCounter("outward.pending_orders.cache_hit")
		return cached, nil
	} else if !cache.IsMiss(err) {
		log.Warn().Err(err).Msg("Failed to read pending orders from cache")
	}

	span := s.tracer.StartSpan("list-pending-orders", txn)
	orders, err := s.repo.ListOrdersByStatus(ctx, models.OrderStatusPending)
	span.End()

	if err != nil {
		s.tracer.RecordError(txn, err)
		return nil, errors.Wrap(err, "failed to list pending orders")
	}

	pending := make([]*PendingOrder, 0, len(orders))
	for _, order := range orders {
		pending = append(pending, toPendingOrder(order))
	}

	if err := s.cache.Set(ctx, cache.PendingOrdersKey, pending, pendingOrdersCacheTTL); err != nil {
		log.Warn().Err(err).Msg("Failed to cache pending orders")
	}

	return pending, nil
}

// GetPendingOrder returns one open sales order with availability. Shipped
// orders are not visible here.
func (s *outwardService) GetPendingOrder(ctx context.Context, id uuid.UUID) (*PendingOrder, error) {
	txn := s.tracer.StartTransaction("outward-get-pending-order")
	defer s.tracer.EndTransaction(txn)

	order, err := s.repo.FindOrderByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFoundError("order", id.String())
		}
		s.tracer.RecordError(txn, err)
		return nil, errors.Wrap(err, "failed to find order")
	}

	if order.Status != models.OrderStatusPending {
		return nil, NewNotFoundError("pending order", id.String())
	}

	return toPendingOrder(order), nil
}

// ListOrders returns the full order history, most recent first
func (s *outwardService) ListOrders(ctx context.Context) ([]*models.Order, error) {
	txn := s.tracer.StartTransaction("outward-list-orders")
	defer s.tracer.EndTransaction(txn)

	orders, err := s.repo.ListOrdersByStatus(ctx, models.OrderStatusPending, models.OrderStatusShipped)
	if err != nil {
		s.tracer.RecordError(txn, err)
		return nil, errors.Wrap(err, "failed to list orders")
	}

	return orders, nil
}

// CreateOrder validates and creates a new sales order in the Pending state.
// Availability is deliberately not checked: demand is accepted up front and
// reconciled against stock at ship time.
func (s *outwardService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*models.Order, error) {
	txn := s.tracer.StartTransaction("outward-create-order")
	defer s.tracer.EndTransaction(txn)

	start := time.Now()
	defer func() {
		s.metrics.RecordTimer("outward.create_order", time.Since(start).Milliseconds())
	}()

	if strings.TrimSpace(req.CustomerName) == "" {
		return nil, NewInvalidArgumentError("customer name is required")
	}
	if len(req.Items) == 0 {
		return nil, NewInvalidArgumentError("order must have at least one item")
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

	order := &models.Order{
		CustomerName: req.CustomerName,
		OrderDate:    time.Now().UTC(),
		Status:       models.OrderStatusPending,
	}
	for _, line := range req.Items {
		order.Items = append(order.Items, models.OrderItem{
			ProductID:       line.ProductID,
			QuantityOrdered: line.Quantity,
		})
	}

	if err := s.repo.CreateOrder(ctx, order); err != nil {
		s.tracer.RecordError(txn, err)
		return nil, errors.Wrap(err, "failed to create order")
	}

	s.invalidatePendingOrders(ctx)
	s.metrics.IncrementCounter("outward.orders_created")

	log.Info().
		Str("order_id", order.ID.String()).
		Str("customer", order.CustomerName).
		Int("lines", len(order.Items)).
		Msg("Sales order created")

	return order, nil
}

// ShipOrder ships stock against an open sales order. Each line ships the
// minimum of the requested quantity, the quantity still owed on the line
// and the quantity on hand; on-hand stock is decremented at ship time and
// never goes negative. A request without explicit lines ships every open
// line for its full remaining quantity. The order stays Pending until
// approved.
func (s *outwardService) ShipOrder(ctx context.Context, req ShipOrderRequest) (*ShipResult, error) {
	txn := s.tracer.StartTransaction("outward-ship-order")
	defer s.tracer.EndTransaction(txn)

	start := time.Now()
	defer func() {
		s.metrics.RecordTimer("outward.ship_order", time.Since(start).Milliseconds())
	}()

	result := &ShipResult{OrderID: req.OrderID}

	err := s.repo.WithTransaction(ctx, func(ctx context.Context, txRepo repository.Repository) error {
		order, err := txRepo.FindOrderByID(ctx, req.OrderID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return NewNotFoundError("order", req.OrderID.String())
			}
			return errors.Wrap(err, "failed to find order")
		}

		if order.Status != models.OrderStatusPending {
			return NewInvalidStateError("order %s is not open for shipping", order.ID)
		}

		lines := make(map[uuid.UUID]*models.OrderItem, len(order.Items))
		for i := range order.Items {
			lines[order.Items[i].ProductID] = &order.Items[i]
		}

		result.Status = order.Status

		// No explicit lines means ship the whole order: every line still
		// owing stock is requested for its full remaining quantity.
		shipLines := req.Items
		if len(shipLines) == 0 {
			for i := range order.Items {
				remaining := order.Items[i].QuantityRemaining()
				if remaining <= 0 {
					continue
				}
				shipLines = append(shipLines, ShipLine{
					ProductID: order.Items[i].ProductID,
					Quantity:  remaining,
				})
			}
			if len(shipLines) == 0 {
				return NewInvalidStateError("order %s is already fully shipped", order.ID)
			}
		}

		for _, ship := range shipLines {
			if ship.Quantity <= 0 {
				return NewInvalidArgumentError("ship quantity for product %s must be greater than zero", ship.ProductID)
			}

			item, ok := lines[ship.ProductID]
			if !ok {
				return NewInvalidArgumentError("product %s is not on order %s", ship.ProductID, order.ID)
			}

			// Lock the product row so concurrent shipments serialize on it
			product, err := txRepo.FindProductByIDForUpdate(ctx, ship.ProductID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return NewNotFoundError("product", ship.ProductID.String())
				}
				return errors.Wrap(err, "failed to lock product")
			}

			if product.QuantityOnHand <= 0 {
				return NewInvalidStateError("product %s is out of stock", product.SKU)
			}

			remaining := item.QuantityRemaining()
			if remaining <= 0 {
				return NewInvalidStateError("order line for product %s is already fully shipped", product.SKU)
			}

			shippable := ship.Quantity
			if remaining < shippable {
				shippable = remaining
			}
			if product.QuantityOnHand < shippable {
				shippable = product.QuantityOnHand
			}

			if err := txRepo.AdjustProductStock(ctx, product.ID, -shippable); err != nil {
				if errors.Is(err, repository.ErrInsufficientStock) {
					return NewInvalidStateError("product %s is out of stock", product.SKU)
				}
				return errors.Wrapf(err, "failed to deduct stock for product %s", product.ID)
			}

			newSent := item.QuantitySent + shippable
			if err := txRepo.SaveOrderItemSent(ctx, item.ID, newSent); err != nil {
				return errors.Wrap(err, "failed to save shipped quantity")
			}
			item.QuantitySent = newSent

			result.Lines = append(result.Lines, ShippedLine{
				ProductID:         product.ID,
				Sku:               product.SKU,
				QuantityRequested: ship.Quantity,
				QuantityShipped:   shippable,
				QuantityRemaining: item.QuantityRemaining(),
				QuantityOnHand:    product.QuantityOnHand - shippable,
			})
		}

		return nil
	})
	if err != nil {
		if !IsNotFound(err) && !IsInvalidArgument(err) && !IsInvalidState(err) {
			s.tracer.RecordError(txn, err)
		}
		return nil, err
	}

	s.invalidatePendingOrders(ctx)
	s.metrics.IncrementCounter("outward.shipments_recorded")

	log.Info().
		Str("order_id", req.OrderID.String()).
		Int("lines", len(result.Lines)).
		Msg("Shipment recorded against sales order")

	return result, nil
}

// ApproveShipment finalizes an open sales order. Every line must already be
// fully shipped; the status then moves to Shipped exactly once.
func (s *outwardService) ApproveShipment(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	txn := s.tracer.StartTransaction("outward-approve-shipment")
	defer s.tracer.EndTransaction(txn)

	start := time.Now()
	defer func() {
		s.metrics.RecordTimer("outward.approve_shipment", time.Since(start).Milliseconds())
	}()

	err := s.repo.WithTransaction(ctx, func(ctx context.Context, txRepo repository.Repository) error {
		order, err := txRepo.FindOrderByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return NewNotFoundError("order", id.String())
			}
			return errors.Wrap(err, "failed to find order")
		}

		if order.Status != models.OrderStatusPending {
			return NewInvalidStateError("order %s has already been shipped", order.ID)
		}

		for _, item := range order.Items {
			if !item.FullyShipped() {
				return NewInvalidStateError("order %s cannot be approved: not all items fully shipped", order.ID)
			}
		}

		now := time.Now().UTC()
		if err := txRepo.UpdateOrderStatus(ctx, id, models.OrderStatusPending, models.OrderStatusShipped, &now); err != nil {
			if errors.Is(err, repository.ErrStatusConflict) {
				return NewInvalidStateError("order %s has already been shipped", order.ID)
			}
			return errors.Wrap(err, "failed to update order status")
		}

		return nil
	})
	if err != nil {
		if !IsNotFound(err) && !IsInvalidState(err) {
			s.tracer.RecordError(txn, err)
		}
		return nil, err
	}

	approved, err := s.repo.FindOrderByID(ctx, id)
	if err != nil {
		s.tracer.RecordError(txn, err)
		return nil, errors.Wrap(err, "failed to reload approved order")
	}

	s.invalidatePendingOrders(ctx)
	s.metrics.IncrementCounter("outward.shipments_approved")

	log.Info().
		Str("order_id", approved.ID.String()).
		Str("customer", approved.CustomerName).
		Msg("Shipment approved")

	s.publishShipmentEvent(ctx, approved)
	s.indexShipment(ctx, approved)

	return approved, nil
}

// publishShipmentEvent notifies the ERP queue of the approved shipment.
// The shipment is already committed, so failures here only log a warning.
func (s *outwardService) publishShipmentEvent(ctx context.Context, order *models.Order) {
	if s.msgBus == nil {
		return
	}

	event := FulfillmentEvent{
		Type:       EventTypeOrderShipped,
		OccurredAt: time.Now().UTC(),
		OrderID:    &order.ID,
		Customer:   order.CustomerName,
	}
	for _, item := range order.Items {
		if item.QuantitySent == 0 {
			continue
		}
		event.Lines = append(event.Lines, EventLine{
			ProductID: item.ProductID,
			Sku:       item.Product.SKU,
			Quantity:  item.QuantitySent,
		})
	}

	if err := s.msgBus.PublishMessage(ctx, event, s.erpQueue); err != nil {
		log.Warn().
			Err(err).
			Str("order_id", order.ID.String()).
			Msg("Failed to publish shipment event")
		s.metrics.IncrementCounter("outward.publish_failures")
		return
	}

	s.metrics.IncrementCounter("outward.events_published")
}

// indexShipment pushes the approved shipment into Elasticsearch, best-effort
func (s *outwardService) indexShipment(ctx context.Context, order *models.Order) {
	if s.esClient == nil {
		return
	}

	if err := s.esClient.IndexShipment(ctx, order); err != nil {
		log.Warn().
			Err(err).
			Str("order_id", order.ID.String()).
			Msg("Failed to index shipment")
		s.metrics.IncrementCounter("outward.index_failures")
	}
}

func (s *outwardService) invalidatePendingOrders(ctx context.Context) {
	if err := s.cache.Delete(ctx, cache.PendingOrdersKey); err != nil {
		log.Warn().Err(err).Msg("Failed to invalidate pending orders cache")
	}
}

func toPendingOrder(order *models.Order) *PendingOrder {
	pending := &PendingOrder{
		ID:           order.ID,
		CustomerName: order.CustomerName,
		OrderDate:    order.OrderDate,
		Status:       order.Status,
	}
	for _, item := range order.Items {
		pending.Lines = append(pending.Lines, PendingOrderLine{
			ProductID:         item.ProductID,
			Sku:               item.Product.SKU,
			ProductName:       item.Product.Name,
			QuantityOrdered:   item.QuantityOrdered,
			QuantitySent:      item.QuantitySent,
			QuantityRemaining: item.QuantityRemaining(),
			QuantityOnHand:    item.Product.QuantityOnHand,
		})
	}
	return pending
}
