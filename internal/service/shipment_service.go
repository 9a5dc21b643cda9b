package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"ferremas-fulfillment/internal/apperrors"
	"ferremas-fulfillment/internal/auth"
	"ferremas-fulfillment/internal/broker"
	"ferremas-fulfillment/internal/courier"
	"ferremas-fulfillment/internal/models"
	"ferremas-fulfillment/internal/util"
	"ferremas-fulfillment/internal/validation"

	"go.uber.org/zap"
)

// ShipmentStore is the persistence surface the dispatcher needs.
type ShipmentStore interface {
	CreatePendingShipment(ctx context.Context, shipment *models.Shipment) error
	MarkShipmentCreated(ctx context.Context, shipmentID int64, trackingRef, trackingURL string) error
	MarkShipmentFailed(ctx context.Context, shipmentID int64) error
	UpdateShipmentStatus(ctx context.Context, shipmentID int64, status models.ShipmentStatus) error
	GetShipmentByID(ctx context.Context, id int64) (*models.Shipment, error)
	GetShipmentByTrackingRef(ctx context.Context, trackingRef string) (*models.Shipment, error)
	GetActiveShipmentByOrder(ctx context.Context, orderID int64) (*models.Shipment, error)
}

// CourierNetwork is the external courier collaborator.
type CourierNetwork interface {
	Quote(ctx context.Context, req courier.QuoteRequest) ([]models.CourierOffer, error)
	CreateShipment(ctx context.Context, req courier.CreateRequest) (*courier.CreateResult, error)
}

// OrderLedger is the slice of OrderService the dispatcher drives. The
// dispatcher moves orders through the normal transition path with the
// delivery role, never a privileged bypass.
type OrderLedger interface {
	Transition(ctx context.Context, identity auth.Identity, orderID int64, target models.OrderStatus) (*models.Order, error)
}

// ShipmentService validates destinations against the courier's
// serviceable-area table, requests quotes and shipment creation, and tracks
// shipment status.
type ShipmentService struct {
	store        ShipmentStore
	courier      CourierNetwork
	coverage     *courier.Coverage
	ledger       OrderLedger
	journal      *broker.Journal
	originComuna string
	logger       *zap.Logger
}

// NewShipmentService creates a new shipment dispatcher
func NewShipmentService(
	store ShipmentStore,
	network CourierNetwork,
	coverage *courier.Coverage,
	ledger OrderLedger,
	journal *broker.Journal,
	originComuna string,
) *ShipmentService {
	return &ShipmentService{
		store:        store,
		courier:      network,
		coverage:     coverage,
		ledger:       ledger,
		journal:      journal,
		originComuna: originComuna,
		logger:       util.GetLogger(),
	}
}

// QuoteRequest represents a quote query.
type QuoteRequest struct {
	OriginComuna      string         `json:"origin_comuna"`
	DestinationComuna string         `json:"destination_comuna" binding:"required"`
	Package           models.Package `json:"package" binding:"required"`
}

// Quote resolves both comunas against the serviceable table and then asks
// the courier network for offers, cheapest first. Resolution happens before
// any network call.
func (ss *ShipmentService) Quote(ctx context.Context, req *QuoteRequest) ([]models.CourierOffer, error) {
	ctx, span := util.StartSpan(ctx, "ShipmentService.Quote")
	defer span.End()

	origin := req.OriginComuna
	if origin == "" {
		origin = ss.originComuna
	}
	if _, err := ss.coverage.Resolve(origin, ""); err != nil {
		return nil, err
	}
	if _, err := ss.coverage.Resolve(req.DestinationComuna, ""); err != nil {
		return nil, err
	}
	if req.Package.WeightKG <= 0 {
		return nil, apperrors.Validation("package weight must be positive")
	}

	start := time.Now()
	offers, err := ss.courier.Quote(ctx, courier.QuoteRequest{
		OriginComuna:      origin,
		DestinationComuna: req.DestinationComuna,
		Package:           req.Package,
	})
	util.CourierCallLatency.WithLabelValues("quote").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	sort.Slice(offers, func(i, j int) bool { return offers[i].Price < offers[j].Price })
	return offers, nil
}

// CreateShipmentRequest represents a shipment creation request.
type CreateShipmentRequest struct {
	OrderID        int64          `json:"order_id" binding:"required"`
	Courier        string         `json:"courier" binding:"required"`
	Destination    models.Address `json:"destination" binding:"required"`
	RecipientName  string         `json:"recipient_name" binding:"required"`
	RecipientPhone string         `json:"recipient_phone" binding:"required"`
	RecipientEmail string         `json:"recipient_email" binding:"required"`
	Package        models.Package `json:"package" binding:"required"`
}

// Create dispatches a shipment for a paid order. Preconditions (completed
// payment, no active shipment) are checked atomically in storage; the
// courier call happens outside that transaction, and a courier failure
// marks the speculative row FAILED. On success the order moves to SHIPPED
// through the ledger with the delivery role.
func (ss *ShipmentService) Create(ctx context.Context, identity auth.Identity, req *CreateShipmentRequest) (*models.Shipment, error) {
	ctx, span := util.StartSpan(ctx, "ShipmentService.Create")
	defer span.End()

	region, err := ss.coverage.Resolve(req.Destination.Comuna, req.Destination.Region)
	if err != nil {
		util.ShipmentsFailedTotal.WithLabelValues("unknown_location").Inc()
		return nil, err
	}
	phone, err := validation.Phone(req.RecipientPhone)
	if err != nil {
		return nil, err
	}
	email, err := validation.Email(req.RecipientEmail)
	if err != nil {
		return nil, err
	}
	if req.Package.WeightKG <= 0 {
		return nil, apperrors.Validation("package weight must be positive")
	}

	shipment := &models.Shipment{
		OrderID:        req.OrderID,
		Street:         req.Destination.Street,
		Number:         req.Destination.Number,
		Unit:           req.Destination.Unit,
		Comuna:         req.Destination.Comuna,
		Region:         region,
		RecipientName:  req.RecipientName,
		RecipientPhone: phone,
		RecipientEmail: email,
		WeightKG:       req.Package.WeightKG,
		LengthCM:       req.Package.LengthCM,
		WidthCM:        req.Package.WidthCM,
		HeightCM:       req.Package.HeightCM,
		DeclaredValue:  req.Package.DeclaredValue,
		Courier:        req.Courier,
	}

	if err := ss.store.CreatePendingShipment(ctx, shipment); err != nil {
		util.ShipmentsFailedTotal.WithLabelValues("precondition").Inc()
		return nil, err
	}

	start := time.Now()
	result, err := ss.courier.CreateShipment(ctx, courier.CreateRequest{
		Courier:        req.Courier,
		OriginComuna:   ss.originComuna,
		Destination:    shipment.Destination(),
		RecipientName:  shipment.RecipientName,
		RecipientPhone: shipment.RecipientPhone,
		RecipientEmail: shipment.RecipientEmail,
		Package:        req.Package,
		Reference:      shipmentReference(shipment),
	})
	util.CourierCallLatency.WithLabelValues("create").Observe(time.Since(start).Seconds())
	if err != nil {
		if markErr := ss.store.MarkShipmentFailed(ctx, shipment.ID); markErr != nil {
			ss.logger.Error("Failed to mark shipment failed",
				zap.Int64("shipment_id", shipment.ID),
				zap.Error(markErr))
		}
		shipment.Status = models.ShipmentStatusFailed

		util.ShipmentsFailedTotal.WithLabelValues("courier").Inc()
		ss.logger.Warn("Courier rejected shipment",
			zap.Int64("order_id", req.OrderID),
			zap.Error(err))

		if jErr := ss.journal.ShipmentFailed(ctx, shipment, err.Error()); jErr != nil {
			ss.logger.Error("Failed to journal ShipmentFailed", zap.Error(jErr))
		}
		return nil, err
	}

	if err := ss.store.MarkShipmentCreated(ctx, shipment.ID, result.TrackingRef, result.TrackingURL); err != nil {
		return nil, err
	}
	shipment.Status = models.ShipmentStatusCreated
	shipment.TrackingRef = result.TrackingRef
	shipment.TrackingURL = result.TrackingURL

	util.ShipmentsCreatedTotal.Inc()
	ss.logger.Info("Shipment created",
		zap.Int64("order_id", req.OrderID),
		zap.String("tracking_ref", result.TrackingRef))

	if err := ss.journal.ShipmentCreated(ctx, shipment); err != nil {
		ss.logger.Error("Failed to journal ShipmentCreated", zap.Error(err))
	}

	// Confirmed creation is the one dispatcher-side path that drives the
	// ledger, using the delivery-role permission.
	deliveryActor := auth.Identity{UserID: identity.UserID, Role: models.RoleDelivery}
	if _, err := ss.ledger.Transition(ctx, deliveryActor, req.OrderID, models.OrderStatusShipped); err != nil {
		ss.logger.Error("Failed to move order to SHIPPED after dispatch",
			zap.Int64("order_id", req.OrderID),
			zap.Error(err))
	}

	return shipment, nil
}

// UpdateStatus applies a courier-reported status to a shipment. Unknown
// courier strings are rejected; a delivered shipment drives the order to
// DELIVERED through the ledger.
func (ss *ShipmentService) UpdateStatus(ctx context.Context, shipmentID int64, courierStatus string) (*models.Shipment, error) {
	ctx, span := util.StartSpan(ctx, "ShipmentService.UpdateStatus")
	defer span.End()

	mapped, err := courier.MapStatus(courierStatus)
	if err != nil {
		return nil, err
	}

	shipment, err := ss.store.GetShipmentByID(ctx, shipmentID)
	if err != nil {
		return nil, err
	}
	return ss.applyStatus(ctx, shipment, mapped)
}

// UpdateStatusByTrackingRef is the callback-worker entry point: courier
// callbacks identify shipments by tracking reference.
func (ss *ShipmentService) UpdateStatusByTrackingRef(ctx context.Context, trackingRef, courierStatus string) (*models.Shipment, error) {
	mapped, err := courier.MapStatus(courierStatus)
	if err != nil {
		return nil, err
	}

	shipment, err := ss.store.GetShipmentByTrackingRef(ctx, trackingRef)
	if err != nil {
		return nil, err
	}
	return ss.applyStatus(ctx, shipment, mapped)
}

// terminalShipmentStatus reports whether a shipment can no longer change
// state. Courier callbacks arrive late and out of order; a callback for a
// finished shipment must not resurrect it.
func terminalShipmentStatus(status models.ShipmentStatus) bool {
	switch status {
	case models.ShipmentStatusDelivered, models.ShipmentStatusReturned, models.ShipmentStatusFailed:
		return true
	}
	return false
}

func (ss *ShipmentService) applyStatus(ctx context.Context, shipment *models.Shipment, target models.ShipmentStatus) (*models.Shipment, error) {
	if shipment.Status == target {
		return shipment, nil
	}
	if terminalShipmentStatus(shipment.Status) {
		return nil, apperrors.InvalidTransition("shipment %d is %s and cannot move to %s",
			shipment.ID, shipment.Status, target)
	}

	if err := ss.store.UpdateShipmentStatus(ctx, shipment.ID, target); err != nil {
		return nil, err
	}
	from := shipment.Status
	shipment.Status = target

	ss.logger.Info("Shipment status updated",
		zap.Int64("shipment_id", shipment.ID),
		zap.String("from", string(from)),
		zap.String("to", string(target)))

	if err := ss.journal.ShipmentStatusChanged(ctx, shipment, from, target); err != nil {
		ss.logger.Error("Failed to journal ShipmentStatusChanged", zap.Error(err))
	}

	if target == models.ShipmentStatusDelivered {
		deliveryActor := auth.Identity{Role: models.RoleDelivery}
		if _, err := ss.ledger.Transition(ctx, deliveryActor, shipment.OrderID, models.OrderStatusDelivered); err != nil {
			ss.logger.Error("Failed to move order to DELIVERED",
				zap.Int64("order_id", shipment.OrderID),
				zap.Error(err))
		}
	}

	return shipment, nil
}

// Get retrieves a shipment by ID.
func (ss *ShipmentService) Get(ctx context.Context, shipmentID int64) (*models.Shipment, error) {
	return ss.store.GetShipmentByID(ctx, shipmentID)
}

// GetActiveByOrder retrieves the in-flight shipment for an order.
func (ss *ShipmentService) GetActiveByOrder(ctx context.Context, orderID int64) (*models.Shipment, error) {
	shipment, err := ss.store.GetActiveShipmentByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if shipment == nil {
		return nil, apperrors.NotFound("no active shipment for order %d", orderID)
	}
	return shipment, nil
}

func shipmentReference(s *models.Shipment) string {
	return fmt.Sprintf("FRM-%d-%d", s.OrderID, s.ID)
}
