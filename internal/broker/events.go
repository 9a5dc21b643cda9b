package broker

import (
	"context"
	"fmt"
	"time"

	"ferremas-fulfillment/internal/models"

	"github.com/google/uuid"
)

// publisher is the slice of Producer the Journal needs.
type publisher interface {
	PublishEvent(ctx context.Context, key string, event interface{}) error
}

// Journal publishes audit events for every accepted transition and every
// payment/shipment outcome. Publish failures are the caller's to log; they
// never fail the operation that produced the event.
type Journal struct {
	producer publisher
}

// NewJournal creates a new audit journal
func NewJournal(producer publisher) *Journal {
	return &Journal{producer: producer}
}

func base(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
	}
}

func orderKey(orderID int64) string {
	return fmt.Sprintf("order-%d", orderID)
}

// OrderCreated journals a new order entering the ledger.
func (j *Journal) OrderCreated(ctx context.Context, order *models.Order, lines int) error {
	event := &models.OrderCreatedEvent{
		BaseEvent: base(models.EventTypeOrderCreated),
		OrderID:   order.ID,
		UserID:    order.UserID,
		Total:     order.Total,
		Lines:     lines,
	}
	return j.producer.PublishEvent(ctx, orderKey(order.ID), event)
}

// OrderTransitioned journals an accepted state transition with its actor.
func (j *Journal) OrderTransitioned(ctx context.Context, orderID int64, from, to models.OrderStatus, actorID int64, actorRole models.Role) error {
	event := &models.OrderTransitionedEvent{
		BaseEvent: base(models.EventTypeOrderTransitioned),
		OrderID:   orderID,
		From:      from,
		To:        to,
		ActorID:   actorID,
		ActorRole: actorRole,
	}
	return j.producer.PublishEvent(ctx, orderKey(orderID), event)
}

// PaymentCompleted journals a successful capture or transfer reconciliation.
func (j *Journal) PaymentCompleted(ctx context.Context, payment *models.Payment) error {
	event := &models.PaymentCompletedEvent{
		BaseEvent:    base(models.EventTypePaymentCompleted),
		OrderID:      payment.OrderID,
		PaymentID:    payment.ID,
		Amount:       payment.Amount,
		Method:       payment.Method,
		ExternalTxID: payment.ExternalTxID,
	}
	return j.producer.PublishEvent(ctx, orderKey(payment.OrderID), event)
}

// PaymentFailed journals a declined capture.
func (j *Journal) PaymentFailed(ctx context.Context, payment *models.Payment, reason string) error {
	event := &models.PaymentFailedEvent{
		BaseEvent: base(models.EventTypePaymentFailed),
		OrderID:   payment.OrderID,
		PaymentID: payment.ID,
		Reason:    reason,
	}
	return j.producer.PublishEvent(ctx, orderKey(payment.OrderID), event)
}

// ShipmentCreated journals a courier-confirmed shipment.
func (j *Journal) ShipmentCreated(ctx context.Context, shipment *models.Shipment) error {
	event := &models.ShipmentCreatedEvent{
		BaseEvent:   base(models.EventTypeShipmentCreated),
		OrderID:     shipment.OrderID,
		ShipmentID:  shipment.ID,
		Courier:     shipment.Courier,
		TrackingRef: shipment.TrackingRef,
	}
	return j.producer.PublishEvent(ctx, orderKey(shipment.OrderID), event)
}

// ShipmentFailed journals a courier rejection.
func (j *Journal) ShipmentFailed(ctx context.Context, shipment *models.Shipment, reason string) error {
	event := &models.ShipmentFailedEvent{
		BaseEvent:  base(models.EventTypeShipmentFailed),
		OrderID:    shipment.OrderID,
		ShipmentID: shipment.ID,
		Reason:     reason,
	}
	return j.producer.PublishEvent(ctx, orderKey(shipment.OrderID), event)
}

// ShipmentStatusChanged journals an accepted courier status update.
func (j *Journal) ShipmentStatusChanged(ctx context.Context, shipment *models.Shipment, from, to models.ShipmentStatus) error {
	event := &models.ShipmentStatusChangedEvent{
		BaseEvent:  base(models.EventTypeShipmentStatusChanged),
		ShipmentID: shipment.ID,
		OrderID:    shipment.OrderID,
		From:       from,
		To:         to,
	}
	return j.producer.PublishEvent(ctx, orderKey(shipment.OrderID), event)
}

// ComparisonRecorded journals an appended price comparison snapshot.
func (j *Journal) ComparisonRecorded(ctx context.Context, snap *models.PriceComparison) error {
	event := &models.ComparisonRecordedEvent{
		BaseEvent:    base(models.EventTypeComparisonRecorded),
		UserID:       snap.UserID,
		ComparisonID: snap.ID,
		ProductLabel: snap.ProductLabel,
		Sources:      len(snap.Results),
	}
	return j.producer.PublishEvent(ctx, fmt.Sprintf("user-%d", snap.UserID), event)
}
