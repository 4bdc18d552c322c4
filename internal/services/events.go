package services

import (
	"time"

	"github.com/google/uuid"
)

// Event types published to the ERP queue
const (
	EventTypePurchaseReceived = "purchase_received"
	EventTypeOrderShipped     = "order_shipped"
	EventTypeReorderAlert     = "reorder_alert"
)

// EventLine is a per-product quantity entry on a fulfillment event
type EventLine struct {
	ProductID uuid.UUID `json:"product_id"`
	Sku       string    `json:"sku"`
	Quantity  int       `json:"quantity"`
}

// FulfillmentEvent is the message published to the ERP queue whenever a
// purchase receipt or an order shipment is finalized
type FulfillmentEvent struct {
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	PurchaseID *uuid.UUID  `json:"purchase_id,omitempty"`
	PoNumber   string      `json:"po_number,omitempty"`
	OrderID    *uuid.UUID  `json:"order_id,omitempty"`
	Customer   string      `json:"customer,omitempty"`
	Lines      []EventLine `json:"lines"`
}

// ReorderAlert is published when a product's on-hand quantity has fallen
// below its reorder level
type ReorderAlert struct {
	Type           string    `json:"type"`
	OccurredAt     time.Time `json:"occurred_at"`
	ProductID      uuid.UUID `json:"product_id"`
	Sku            string    `json:"sku"`
	Name           string    `json:"name"`
	QuantityOnHand int       `json:"quantity_on_hand"`
	ReorderLevel   int       `json:"reorder_level"`
	Shortage       int       `json:"shortage"`
}
