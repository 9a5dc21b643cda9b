package service

import (
	"context"
	"fmt"

	"ferremas-fulfillment/internal/apperrors"
	"ferremas-fulfillment/internal/auth"
	"ferremas-fulfillment/internal/broker"
	"ferremas-fulfillment/internal/models"
	"ferremas-fulfillment/internal/util"

	"go.uber.org/zap"
)

// stateMachine is the order lifecycle graph. Transitions not listed here are
// unreachable regardless of role; CANCELLED is a sink reachable from PENDING
// and IN_PROCESS only.
var stateMachine = map[models.OrderStatus][]models.OrderStatus{
	models.OrderStatusPending:   {models.OrderStatusInProcess, models.OrderStatusCancelled},
	models.OrderStatusInProcess: {models.OrderStatusShipped, models.OrderStatusDelivered, models.OrderStatusCancelled},
	models.OrderStatusShipped:   {models.OrderStatusDelivered},
}

func reachable(from, to models.OrderStatus) bool {
	for _, next := range stateMachine[from] {
		if next == to {
			return true
		}
	}
	return false
}

// OrderStore is the persistence surface the ledger needs.
type OrderStore interface {
	CreateOrderWithLines(ctx context.Context, order *models.Order, lines []models.OrderLine) error
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	GetOrderLines(ctx context.Context, orderID int64) ([]models.OrderLine, error)
	GetOrdersByUserID(ctx context.Context, userID int64) ([]models.Order, error)
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	AddOrderLine(ctx context.Context, line *models.OrderLine) error
	RemoveOrderLine(ctx context.Context, orderID, lineID int64) error
	TransitionOrder(ctx context.Context, orderID int64, from, to models.OrderStatus) error
}

// OrderService owns order records and their lifecycle state machine.
type OrderService struct {
	store   OrderStore
	journal *broker.Journal
	logger  *zap.Logger
}

// NewOrderService creates a new order ledger service
func NewOrderService(store OrderStore, journal *broker.Journal) *OrderService {
	return &OrderService{
		store:   store,
		journal: journal,
		logger:  util.GetLogger(),
	}
}

// CreateOrderRequest represents a request to create an order
type CreateOrderRequest struct {
	UserID int64              `json:"user_id" binding:"required"`
	Lines  []OrderLineRequest `json:"lines" binding:"required,min=1"`
}

// OrderLineRequest represents one line in a create request
type OrderLineRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required,min=1"`
}

// Create opens a new PENDING order. Unit prices come from the catalog and
// the total is computed here, never taken from the request.
func (s *OrderService) Create(ctx context.Context, req *CreateOrderRequest) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.Create")
	defer span.End()

	lines := make([]models.OrderLine, 0, len(req.Lines))
	var total int64
	for _, lr := range req.Lines {
		if lr.Quantity <= 0 {
			return nil, apperrors.Validation("line quantity must be positive")
		}
		product, err := s.store.GetProductByID(ctx, lr.ProductID)
		if err != nil {
			return nil, err
		}
		subtotal := product.Price * int64(lr.Quantity)
		lines = append(lines, models.OrderLine{
			ProductID: lr.ProductID,
			Quantity:  lr.Quantity,
			UnitPrice: product.Price,
			Subtotal:  subtotal,
		})
		total += subtotal
	}

	order := &models.Order{
		UserID: req.UserID,
		Status: models.OrderStatusPending,
		Total:  total,
	}

	if err := s.store.CreateOrderWithLines(ctx, order, lines); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	util.OrdersCreatedTotal.Inc()
	s.logger.Info("Order created",
		zap.Int64("order_id", order.ID),
		zap.Int64("total", order.Total))

	if err := s.journal.OrderCreated(ctx, order, len(lines)); err != nil {
		s.logger.Error("Failed to journal OrderCreated", zap.Error(err))
	}

	return order, nil
}

// AddLine appends a line to a PENDING order, repricing the product from the
// catalog; the total recomputation happens atomically with the insert.
func (s *OrderService) AddLine(ctx context.Context, orderID int64, req *OrderLineRequest) (*models.OrderLine, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.AddLine")
	defer span.End()

	if req.Quantity <= 0 {
		return nil, apperrors.Validation("line quantity must be positive")
	}
	product, err := s.store.GetProductByID(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}

	line := &models.OrderLine{
		OrderID:   orderID,
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		UnitPrice: product.Price,
		Subtotal:  product.Price * int64(req.Quantity),
	}
	if err := s.store.AddOrderLine(ctx, line); err != nil {
		return nil, err
	}
	return line, nil
}

// RemoveLine deletes a line from a PENDING order and recomputes the total.
func (s *OrderService) RemoveLine(ctx context.Context, orderID, lineID int64) error {
	ctx, span := util.StartSpan(ctx, "OrderService.RemoveLine")
	defer span.End()

	return s.store.RemoveOrderLine(ctx, orderID, lineID)
}

// Transition moves an order to a target state on behalf of an identity. The
// permission table is consulted first, so a role violation surfaces as an
// authorization error even when the transition is also unreachable; the
// state machine is checked second. Accepted transitions are journaled with
// the actor.
func (s *OrderService) Transition(ctx context.Context, identity auth.Identity, orderID int64, target models.OrderStatus) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.Transition")
	defer span.End()

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !auth.CanTransition(identity.Role, order.Status, target) {
		util.OrderTransitionsRejected.WithLabelValues("unauthorized").Inc()
		return nil, apperrors.Authorization("role %s may not move order from %s to %s",
			identity.Role, order.Status, target)
	}

	if !reachable(order.Status, target) {
		util.OrderTransitionsRejected.WithLabelValues("unreachable").Inc()
		return nil, apperrors.InvalidTransition("cannot move order from %s to %s",
			order.Status, target)
	}

	if err := s.store.TransitionOrder(ctx, orderID, order.Status, target); err != nil {
		return nil, err
	}

	util.OrderTransitionsTotal.WithLabelValues(string(target)).Inc()
	s.logger.Info("Order transitioned",
		zap.Int64("order_id", orderID),
		zap.String("from", string(order.Status)),
		zap.String("to", string(target)),
		zap.String("actor_role", string(identity.Role)))

	if err := s.journal.OrderTransitioned(ctx, orderID, order.Status, target,
		identity.UserID, identity.Role); err != nil {
		s.logger.Error("Failed to journal OrderTransitioned", zap.Error(err))
	}

	updated := *order
	updated.Status = target
	return &updated, nil
}

// Get retrieves an order and its lines.
func (s *OrderService) Get(ctx context.Context, orderID int64) (*models.Order, []models.OrderLine, error) {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	lines, err := s.store.GetOrderLines(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	return order, lines, nil
}

// ListByUser returns a user's orders, newest first.
func (s *OrderService) ListByUser(ctx context.Context, userID int64) ([]models.Order, error) {
	return s.store.GetOrdersByUserID(ctx, userID)
}
