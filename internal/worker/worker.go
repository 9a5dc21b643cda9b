package worker

import (
	"context"
	"encoding/json"

	"ferremas-fulfillment/internal/apperrors"
	"ferremas-fulfillment/internal/broker"
	"ferremas-fulfillment/internal/models"
	"ferremas-fulfillment/internal/service"
	"ferremas-fulfillment/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// ShipmentStatusWorker consumes courier status callbacks and applies them to
// shipments. Unrecognized courier statuses are logged and committed, not
// retried; they stay wrong until the courier sends a known status.
type ShipmentStatusWorker struct {
	consumer  *broker.Consumer
	shipments *service.ShipmentService
	logger    *zap.Logger
}

// NewShipmentStatusWorker creates a new shipment status worker
func NewShipmentStatusWorker(consumer *broker.Consumer, shipments *service.ShipmentService) *ShipmentStatusWorker {
	return &ShipmentStatusWorker{
		consumer:  consumer,
		shipments: shipments,
		logger:    util.GetLogger(),
	}
}

// Start starts the worker
func (w *ShipmentStatusWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting shipment status worker")
	return w.consumer.StartConsuming(ctx, w.handleMessage)
}

// Stop stops the worker
func (w *ShipmentStatusWorker) Stop() error {
	w.logger.Info("Stopping shipment status worker")
	return w.consumer.Close()
}

func (w *ShipmentStatusWorker) handleMessage(ctx context.Context, msg kafka.Message) error {
	var event models.CourierStatusEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		w.logger.Error("Failed to unmarshal courier status event", zap.Error(err))
		// Poison message; commit so the partition keeps moving.
		return nil
	}

	if event.TrackingRef == "" {
		w.logger.Warn("Courier status event without tracking ref")
		return nil
	}

	_, err := w.shipments.UpdateStatusByTrackingRef(ctx, event.TrackingRef, event.CourierStatus)
	switch {
	case err == nil:
		return nil
	case apperrors.IsKind(err, apperrors.KindUnrecognizedStatus),
		apperrors.IsKind(err, apperrors.KindInvalidTransition),
		apperrors.IsKind(err, apperrors.KindNotFound):
		w.logger.Warn("Dropping courier status event",
			zap.String("tracking_ref", event.TrackingRef),
			zap.String("courier_status", event.CourierStatus),
			zap.Error(err))
		return nil
	default:
		return err
	}
}
