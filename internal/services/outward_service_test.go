package services

import (
	"context"
	"testing"
	"time"

	"example.com/warehouse/config"
	"example.com/warehouse/internal/metrics"
	"example.com/warehouse/internal/models"
	"example.com/warehouse/internal/repository"
	"example.com/warehouse/internal/tracing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newOutwardForTest(t *testing.T, repo repository.Repository) OutwardService {
	t.Helper()
	tracer, err := tracing.NewTracer(config.TracingConfig{})
	require.NoError(t, err)
	return NewOutwardService(repo, nil, nil, nil, metrics.NewMetrics(), tracer, "fulfillment-events")
}

func pendingOrder(items ...models.OrderItem) *models.Order {
	return &models.Order{
		ID:           uuid.New(),
		CustomerName: "Nairobi Hardware Ltd",
		OrderDate:    time.Now().UTC(),
		Status:       models.OrderStatusPending,
		Items:        items,
	}
}

func TestCreateOrderAcceptsDemandBeyondStock(t *testing.T) {
	productID := uuid.New()

	repo := new(MockRepository)
	// The product has nothing on hand; the order must still be accepted
	repo.On("FindProductsByIDs", mock.Anything, mock.Anything).
		Return([]*models.Product{{ID: productID, SKU: "WID-1", QuantityOnHand: 0}}, nil)
	repo.On("CreateOrder", mock.Anything, mock.Anything).Return(nil)

	svc := newOutwardForTest(t, repo)

	order, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		CustomerName: "Acme Retail",
		Items:        []CreateOrderLine{{ProductID: productID, Quantity: 500}},
	})
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusPending, order.Status)
	require.Equal(t, 0, order.Items[0].QuantitySent)

	repo.AssertExpectations(t)
}

func TestCreateOrderCollectsAllUnknownProducts(t *testing.T) {
	missingA := uuid.New()
	missingB := uuid.New()

	repo := new(MockRepository)
	repo.On("FindProductsByIDs", mock.Anything, mock.Anything).
		Return([]*models.Product{}, nil)

	svc := newOutwardForTest(t, repo)

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		CustomerName: "Acme Retail",
		Items: []CreateOrderLine{
			{ProductID: missingA, Quantity: 1},
			{ProductID: missingB, Quantity: 2},
		},
	})
	require.True(t, IsInvalidArgument(err))
	require.Contains(t, err.Error(), missingA.String())
	require.Contains(t, err.Error(), missingB.String())

	repo.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
}

func TestCreateOrderRequiresCustomerName(t *testing.T) {
	repo := new(MockRepository)
	svc := newOutwardForTest(t, repo)

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		CustomerName: "   ",
		Items:        []CreateOrderLine{{ProductID: uuid.New(), Quantity: 1}},
	})
	require.True(t, IsInvalidArgument(err))
}

func TestShipOrderCapsAtStockAndRemaining(t *testing.T) {
	productID := uuid.New()
	item := models.OrderItem{
		ID:              uuid.New(),
		ProductID:       productID,
		QuantityOrdered: 10,
		QuantitySent:    3,
	}
	order := pendingOrder(item)

	repo := new(MockRepository)
	repo.On("WithTransaction", mock.Anything, mock.Anything).Return(nil)
	repo.On("FindOrderByID", mock.Anything, order.ID).Return(order, nil)
	// 7 remain on the line but only 4 are on hand
	repo.On("FindProductByIDForUpdate", mock.Anything, productID).
		Return(&models.Product{ID: productID, SKU: "WID-1", QuantityOnHand: 4}, nil)
	repo.On("AdjustProductStock", mock.Anything, productID, -4).Return(nil)
	repo.On("SaveOrderItemSent", mock.Anything, item.ID, 7).Return(nil)

	svc := newOutwardForTest(t, repo)

	result, err := svc.ShipOrder(context.Background(), ShipOrderRequest{
		OrderID: order.ID,
		Items:   []ShipLine{{ProductID: productID, Quantity: 10}},
	})
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusPending, result.Status)
	require.Len(t, result.Lines, 1)
	require.Equal(t, 10, result.Lines[0].QuantityRequested)
	require.Equal(t, 4, result.Lines[0].QuantityShipped)
	require.Equal(t, 3, result.Lines[0].QuantityRemaining)
	require.Equal(t, 0, result.Lines[0].QuantityOnHand)

	repo.AssertExpectations(t)
}

func TestShipOrderWithoutLinesShipsFullOrder(t *testing.T) {
	productID := uuid.New()
	item := models.OrderItem{
		ID:              uuid.New(),
		ProductID:       productID,
		QuantityOrdered: 5,
	}
	order := pendingOrder(item)

	repo := new(MockRepository)
	repo.On("WithTransaction", mock.Anything, mock.Anything).Return(nil)
	repo.On("FindOrderByID", mock.Anything, order.ID).Return(order, nil)
	// The full remaining 5 are requested but only 3 are on hand
	repo.On("FindProductByIDForUpdate", mock.Anything, productID).
		Return(&models.Product{ID: productID, SKU: "WID-1", QuantityOnHand: 3}, nil)
	repo.On("AdjustProductStock", mock.Anything, productID, -3).Return(nil)
	repo.On("SaveOrderItemSent", mock.Anything, item.ID, 3).Return(nil)

	svc := newOutwardForTest(t, repo)

	result, err := svc.ShipOrder(context.Background(), ShipOrderRequest{OrderID: order.ID})
	require.NoError(t, err)
	require.Len(t, result.Lines, 1)
	require.Equal(t, 5, result.Lines[0].QuantityRequested)
	require.Equal(t, 3, result.Lines[0].QuantityShipped)
	require.Equal(t, 2, result.Lines[0].QuantityRemaining)

	repo.AssertExpectations(t)
}

func TestShipOrderWithoutLinesSkipsCompletedLines(t *testing.T) {
	doneProduct := uuid.New()
	openProduct := uuid.New()
	done := models.OrderItem{
		ID:              uuid.New(),
		ProductID:       doneProduct,
		QuantityOrdered: 4,
		QuantitySent:    4,
	}
	open := models.OrderItem{
		ID:              uuid.New(),
		ProductID:       openProduct,
		QuantityOrdered: 2,
	}
	order := pendingOrder(done, open)

	repo := new(MockRepository)
	repo.On("WithTransaction", mock.Anything, mock.Anything).Return(nil)
	repo.On("FindOrderByID", mock.Anything, order.ID).Return(order, nil)
	repo.On("FindProductByIDForUpdate", mock.Anything, openProduct).
		Return(&models.Product{ID: openProduct, SKU: "BLT-2", QuantityOnHand: 10}, nil)
	repo.On("AdjustProductStock", mock.Anything, openProduct, -2).Return(nil)
	repo.On("SaveOrderItemSent", mock.Anything, open.ID, 2).Return(nil)

	svc := newOutwardForTest(t, repo)

	result, err := svc.ShipOrder(context.Background(), ShipOrderRequest{OrderID: order.ID})
	require.NoError(t, err)
	require.Len(t, result.Lines, 1)
	require.Equal(t, openProduct, result.Lines[0].ProductID)

	repo.AssertNotCalled(t, "FindProductByIDForUpdate", mock.Anything, doneProduct)
}

func TestShipOrderWithoutLinesRejectsFullyShippedOrder(t *testing.T) {
	order := pendingOrder(models.OrderItem{
		ID:              uuid.New(),
		ProductID:       uuid.New(),
		QuantityOrdered: 5,
		QuantitySent:    5,
	})

	repo := new(MockRepository)
	repo.On("WithTransaction", mock.Anything, mock.Anything).Return(nil)
	repo.On("FindOrderByID", mock.Anything, order.ID).Return(order, nil)

	svc := newOutwardForTest(t, repo)

	_, err := svc.ShipOrder(context.Background(), ShipOrderRequest{OrderID: order.ID})
	require.True(t, IsInvalidState(err))

	repo.AssertNotCalled(t, "AdjustProductStock", mock.Anything, mock.Anything, mock.Anything)
}

func TestShipOrderRejectsOutOfStockLine(t *testing.T) {
	productID := uuid.New()
	item := models.OrderItem{
		ID:              uuid.New(),
		ProductID:       productID,
		QuantityOrdered: 5,
	}
	order := pendingOrder(item)

	repo := new(MockRepository)
	repo.On("WithTransaction", mock.Anything, mock.Anything).Return(nil)
	repo.On("FindOrderByID", mock.Anything, order.ID).Return(order, nil)
	repo.On("FindProductByIDForUpdate", mock.Anything, productID).
		Return(&models.Product{ID: productID, SKU: "WID-1", QuantityOnHand: 0}, nil)

	svc := newOutwardForTest(t, repo)

	_, err := svc.ShipOrder(context.Background(), ShipOrderRequest{
		OrderID: order.ID,
		Items:   []ShipLine{{ProductID: productID, Quantity: 1}},
	})
	require.True(t, IsInvalidState(err))
	require.Contains(t, err.Error(), "WID-1")

	repo.AssertNotCalled(t, "AdjustProductStock", mock.Anything, mock.Anything, mock.Anything)
}

func TestShipOrderRejectsShippedOrder(t *testing.T) {
	order := pendingOrder(models.OrderItem{
		ID:              uuid.New(),
		ProductID:       uuid.New(),
		QuantityOrdered: 5,
	})
	order.Status = models.OrderStatusShipped

	repo := new(MockRepository)
	repo.On("WithTransaction", mock.Anything, mock.Anything).Return(nil)
	repo.On("FindOrderByID", mock.Anything, order.ID).Return(order, nil)

	svc := newOutwardForTest(t, repo)

	_, err := svc.ShipOrder(context.Background(), ShipOrderRequest{
		OrderID: order.ID,
		Items:   []ShipLine{{ProductID: order.Items[0].ProductID, Quantity: 1}},
	})
	require.True(t, IsInvalidState(err))
}

func TestShipOrderRejectsUnlistedProduct(t *testing.T) {
	order := pendingOrder(models.OrderItem{
		ID:              uuid.New(),
		ProductID:       uuid.New(),
		QuantityOrdered: 5,
	})

	repo := new(MockRepository)
	repo.On("WithTransaction", mock.Anything, mock.Anything).Return(nil)
	repo.On("FindOrderByID", mock.Anything, order.ID).Return(order, nil)

	svc := newOutwardForTest(t, repo)

	_, err := svc.ShipOrder(context.Background(), ShipOrderRequest{
		OrderID: order.ID,
		Items:   []ShipLine{{ProductID: uuid.New(), Quantity: 1}},
	})
	require.True(t, IsInvalidArgument(err))
}

func TestApproveShipmentRequiresFullShipment(t *testing.T) {
	order := pendingOrder(
		models.OrderItem{ID: uuid.New(), ProductID: uuid.New(), QuantityOrdered: 5, QuantitySent: 5},
		models.OrderItem{ID: uuid.New(), ProductID: uuid.New(), QuantityOrdered: 4, QuantitySent: 2},
	)

	repo := new(MockRepository)
	repo.On("WithTransaction", mock.Anything, mock.Anything).Return(nil)
	repo.On("FindOrderByID", mock.Anything, order.ID).Return(order, nil)

	svc := newOutwardForTest(t, repo)

	_, err := svc.ApproveShipment(context.Background(), order.ID)
	require.True(t, IsInvalidState(err))
	require.Contains(t, err.Error(), "not all items fully shipped")

	repo.AssertNotCalled(t, "UpdateOrderStatus",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestApproveShipmentFinalizesOrder(t *testing.T) {
	order := pendingOrder(models.OrderItem{
		ID:              uuid.New(),
		ProductID:       uuid.New(),
		QuantityOrdered: 5,
		QuantitySent:    5,
	})

	shipped := *order
	shipped.Status = models.OrderStatusShipped
	now := time.Now().UTC()
	shipped.ShippedDate = &now

	repo := new(MockRepository)
	repo.On("WithTransaction", mock.Anything, mock.Anything).Return(nil)
	repo.On("FindOrderByID", mock.Anything, order.ID).Return(order, nil).Once()
	repo.On("UpdateOrderStatus", mock.Anything, order.ID,
		models.OrderStatusPending, models.OrderStatusShipped, mock.Anything).Return(nil)
	repo.On("FindOrderByID", mock.Anything, order.ID).Return(&shipped, nil)

	svc := newOutwardForTest(t, repo)

	approved, err := svc.ApproveShipment(context.Background(), order.ID)
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusShipped, approved.Status)
	require.NotNil(t, approved.ShippedDate)

	repo.AssertExpectations(t)
}

func TestApproveShipmentLosesRace(t *testing.T) {
	order := pendingOrder(models.OrderItem{
		ID:              uuid.New(),
		ProductID:       uuid.New(),
		QuantityOrdered: 5,
		QuantitySent:    5,
	})

	repo := new(MockRepository)
	repo.On("WithTransaction", mock.Anything, mock.Anything).Return(nil)
	repo.On("FindOrderByID", mock.Anything, order.ID).Return(order, nil)
	repo.On("UpdateOrderStatus", mock.Anything, order.ID,
		models.OrderStatusPending, models.OrderStatusShipped, mock.Anything).
		Return(repository.ErrStatusConflict)

	svc := newOutwardForTest(t, repo)

	_, err := svc.ApproveShipment(context.Background(), order.ID)
	require.True(t, IsInvalidState(err))
}

func TestGetPendingOrderReportsAvailability(t *testing.T) {
	productID := uuid.New()
	order := pendingOrder(models.OrderItem{
		ID:              uuid.New(),
		ProductID:       productID,
		QuantityOrdered: 10,
		QuantitySent:    4,
		Product:         models.Product{ID: productID, SKU: "WID-1", Name: "Widget", QuantityOnHand: 2},
	})

	repo := new(MockRepository)
	repo.On("FindOrderByID", mock.Anything, order.ID).Return(order, nil)

	svc := newOutwardForTest(t, repo)

	pending, err := svc.GetPendingOrder(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, pending.Lines, 1)
	require.Equal(t, 6, pending.Lines[0].QuantityRemaining)
	require.Equal(t, 2, pending.Lines[0].QuantityOnHand)
	require.Equal(t, "WID-1", pending.Lines[0].Sku)
}

func TestGetPendingOrderHidesShippedOrders(t *testing.T) {
	order := pendingOrder()
	order.Status = models.OrderStatusShipped

	repo := new(MockRepository)
	repo.On("FindOrderByID", mock.Anything, order.ID).Return(order, nil)

	svc := newOutwardForTest(t, repo)

	_, err := svc.GetPendingOrder(context.Background(), order.ID)
	require.True(t, IsNotFound(err))
}
