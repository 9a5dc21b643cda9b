package models

import "time"

// Journal event types. Every accepted state transition and every
// payment/shipment outcome is journaled, success or failure.
const (
	EventTypeOrderCreated          = "ORDER_CREATED"
	EventTypeOrderTransitioned     = "ORDER_TRANSITIONED"
	EventTypePaymentCompleted      = "PAYMENT_COMPLETED"
	EventTypePaymentFailed         = "PAYMENT_FAILED"
	EventTypeShipmentCreated       = "SHIPMENT_CREATED"
	EventTypeShipmentFailed        = "SHIPMENT_FAILED"
	EventTypeShipmentStatusChanged = "SHIPMENT_STATUS_CHANGED"
	EventTypeComparisonRecorded    = "COMPARISON_RECORDED"
)

// BaseEvent contains common fields for all journal events.
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderCreatedEvent is journaled when an order enters the ledger.
type OrderCreatedEvent struct {
	BaseEvent
	OrderID int64 `json:"order_id"`
	UserID  int64 `json:"user_id"`
	Total   int64 `json:"total"`
	Lines   int   `json:"lines"`
}

// OrderTransitionedEvent is journaled for every accepted state transition,
// with the actor that requested it.
type OrderTransitionedEvent struct {
	BaseEvent
	OrderID   int64       `json:"order_id"`
	From      OrderStatus `json:"from"`
	To        OrderStatus `json:"to"`
	ActorID   int64       `json:"actor_id"`
	ActorRole Role        `json:"actor_role"`
}

// PaymentCompletedEvent is journaled when a payment is captured or a
// transfer is reconciled.
type PaymentCompletedEvent struct {
	BaseEvent
	OrderID      int64         `json:"order_id"`
	PaymentID    int64         `json:"payment_id"`
	Amount       int64         `json:"amount"`
	Method       PaymentMethod `json:"method"`
	ExternalTxID string        `json:"external_tx_id"`
}

// PaymentFailedEvent is journaled when a capture is declined.
type PaymentFailedEvent struct {
	BaseEvent
	OrderID   int64  `json:"order_id"`
	PaymentID int64  `json:"payment_id"`
	Reason    string `json:"reason"`
}

// ShipmentCreatedEvent is journaled after the courier confirms creation.
type ShipmentCreatedEvent struct {
	BaseEvent
	OrderID     int64  `json:"order_id"`
	ShipmentID  int64  `json:"shipment_id"`
	Courier     string `json:"courier"`
	TrackingRef string `json:"tracking_ref"`
}

// ShipmentFailedEvent is journaled when the courier rejects a creation and
// the speculative row is marked FAILED.
type ShipmentFailedEvent struct {
	BaseEvent
	OrderID    int64  `json:"order_id"`
	ShipmentID int64  `json:"shipment_id"`
	Reason     string `json:"reason"`
}

// ShipmentStatusChangedEvent is journaled for every accepted courier status
// update.
type ShipmentStatusChangedEvent struct {
	BaseEvent
	ShipmentID int64          `json:"shipment_id"`
	OrderID    int64          `json:"order_id"`
	From       ShipmentStatus `json:"from"`
	To         ShipmentStatus `json:"to"`
}

// ComparisonRecordedEvent is journaled when a price comparison snapshot is
// appended to the history log.
type ComparisonRecordedEvent struct {
	BaseEvent
	UserID       int64  `json:"user_id"`
	ComparisonID int64  `json:"comparison_id"`
	ProductLabel string `json:"product_label"`
	Sources      int    `json:"sources"`
}

// CourierStatusEvent is the inbound callback message consumed from the
// courier status topic by the shipment worker.
type CourierStatusEvent struct {
	TrackingRef   string    `json:"tracking_ref"`
	CourierStatus string    `json:"courier_status"`
	ReportedAt    time.Time `json:"reported_at"`
}
