package service

import (
	"context"
	"fmt"
	"time"

	"ferremas-fulfillment/internal/apperrors"
	"ferremas-fulfillment/internal/broker"
	"ferremas-fulfillment/internal/gateway"
	"ferremas-fulfillment/internal/models"
	"ferremas-fulfillment/internal/util"

	"go.uber.org/zap"
)

// PaymentStore is the persistence surface the coordinator needs.
type PaymentStore interface {
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	CreatePayment(ctx context.Context, payment *models.Payment) error
	GetPaymentByID(ctx context.Context, id int64) (*models.Payment, error)
	GetCompletedPaymentByOrder(ctx context.Context, orderID int64) (*models.Payment, error)
	GetPaymentsByOrder(ctx context.Context, orderID int64) ([]models.Payment, error)
	GetPendingTransfer(ctx context.Context, reference string) (*models.Payment, error)
	CompletePayment(ctx context.Context, paymentID, orderID int64, externalTxID, gatewayResponse string) error
	FailPayment(ctx context.Context, paymentID int64, gatewayResponse string) error
}

// PaymentGateway is the external capture collaborator.
type PaymentGateway interface {
	Capture(ctx context.Context, amount int64, token string) (*gateway.CaptureResult, error)
}

// PaymentService drives payment capture and verification against the
// external gateway and reconciles the result into the order ledger.
type PaymentService struct {
	store   PaymentStore
	gateway PaymentGateway
	journal *broker.Journal
	logger  *zap.Logger
}

// NewPaymentService creates a new payment coordinator
func NewPaymentService(store PaymentStore, gw PaymentGateway, journal *broker.Journal) *PaymentService {
	return &PaymentService{
		store:   store,
		gateway: gw,
		journal: journal,
		logger:  util.GetLogger(),
	}
}

// CreatePaymentRequest represents a request to open a payment attempt.
type CreatePaymentRequest struct {
	OrderID int64                `json:"order_id" binding:"required"`
	Method  models.PaymentMethod `json:"method" binding:"required"`
	Amount  int64                `json:"amount" binding:"required"`
	// Token is the gateway method token; required for GATEWAY_TOKEN.
	Token string `json:"token,omitempty"`
	// Reference is the bank transfer reference; required for TRANSFER.
	Reference string `json:"reference,omitempty"`
}

// Create opens a payment attempt for an order. The amount must equal the
// order total and no completed payment may already exist. For the
// gateway-token method the capture is attempted immediately.
func (ps *PaymentService) Create(ctx context.Context, req *CreatePaymentRequest) (*models.Payment, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.Create")
	defer span.End()

	switch req.Method {
	case models.PaymentMethodTransfer, models.PaymentMethodGatewayToken, models.PaymentMethodOther:
	default:
		return nil, apperrors.Validation("unknown payment method %q", req.Method)
	}

	order, err := ps.store.GetOrderByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if req.Amount != order.Total {
		return nil, apperrors.AmountMismatch(order.Total, req.Amount)
	}

	existing, err := ps.store.GetCompletedPaymentByOrder(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperrors.DuplicatePayment(req.OrderID)
	}

	payment := &models.Payment{
		OrderID: req.OrderID,
		Amount:  req.Amount,
		Method:  req.Method,
		Status:  models.PaymentStatusPending,
	}
	if req.Method == models.PaymentMethodTransfer {
		if req.Reference == "" {
			return nil, apperrors.Validation("transfer payments require a reference")
		}
		payment.ExternalTxID = req.Reference
	}

	if err := ps.store.CreatePayment(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}

	if req.Method == models.PaymentMethodGatewayToken {
		if err := ps.capture(ctx, payment, req.Token); err != nil {
			return payment, err
		}
	}
	return payment, nil
}

// Process captures payment for an order. Idempotent: a completed payment
// already on record returns success with no side effects.
func (ps *PaymentService) Process(ctx context.Context, orderID, amount int64, token string) (*models.Payment, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.Process")
	defer span.End()

	existing, err := ps.store.GetCompletedPaymentByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		ps.logger.Info("Payment already completed, skipping",
			zap.Int64("order_id", orderID),
			zap.Int64("payment_id", existing.ID))
		return existing, nil
	}

	payment, err := ps.Create(ctx, &CreatePaymentRequest{
		OrderID: orderID,
		Method:  models.PaymentMethodGatewayToken,
		Amount:  amount,
		Token:   token,
	})
	if err != nil {
		return payment, err
	}
	return payment, nil
}

// VerifyTransfer reconciles an out-of-band bank transfer against its
// expected amount. A mismatch is a non-fatal failure: the payment stays
// PENDING and the caller may retry with corrected data.
func (ps *PaymentService) VerifyTransfer(ctx context.Context, reference string, amount int64) (*models.Payment, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.VerifyTransfer")
	defer span.End()

	payment, err := ps.store.GetPendingTransfer(ctx, reference)
	if err != nil {
		return nil, err
	}

	if payment.Amount != amount {
		ps.logger.Warn("Transfer amount mismatch, payment left pending",
			zap.String("reference", reference),
			zap.Int64("expected", payment.Amount),
			zap.Int64("got", amount))
		return nil, apperrors.AmountMismatch(payment.Amount, amount)
	}

	if err := ps.store.CompletePayment(ctx, payment.ID, payment.OrderID, reference, ""); err != nil {
		return nil, err
	}
	payment.Status = models.PaymentStatusCompleted

	util.PaymentCompletedTotal.Inc()
	ps.logger.Info("Transfer verified",
		zap.Int64("order_id", payment.OrderID),
		zap.String("reference", reference))

	if err := ps.journal.PaymentCompleted(ctx, payment); err != nil {
		ps.logger.Error("Failed to journal PaymentCompleted", zap.Error(err))
	}
	if err := ps.journal.OrderTransitioned(ctx, payment.OrderID,
		models.OrderStatusPending, models.OrderStatusInProcess, 0, models.RoleSystem); err != nil {
		ps.logger.Error("Failed to journal OrderTransitioned", zap.Error(err))
	}

	return payment, nil
}

// Get retrieves a payment by id.
func (ps *PaymentService) Get(ctx context.Context, paymentID int64) (*models.Payment, error) {
	return ps.store.GetPaymentByID(ctx, paymentID)
}

// ListByOrder retrieves every payment attempt recorded against an order,
// newest first.
func (ps *PaymentService) ListByOrder(ctx context.Context, orderID int64) ([]models.Payment, error) {
	return ps.store.GetPaymentsByOrder(ctx, orderID)
}

// capture runs the gateway call for a pending payment and applies the
// outcome. Gateway unavailability leaves the payment PENDING so the caller
// can retry; a decline marks it FAILED and leaves the order untouched.
func (ps *PaymentService) capture(ctx context.Context, payment *models.Payment, token string) error {
	util.PaymentAttemptsTotal.Inc()
	start := time.Now()
	result, err := ps.gateway.Capture(ctx, payment.Amount, token)
	util.GatewayCaptureLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		ps.logger.Error("Gateway capture unavailable",
			zap.Int64("order_id", payment.OrderID),
			zap.Error(err))
		return err
	}

	if !result.Approved {
		if err := ps.store.FailPayment(ctx, payment.ID, string(result.RawResponse)); err != nil {
			return fmt.Errorf("failed to record declined payment: %w", err)
		}
		payment.Status = models.PaymentStatusFailed
		payment.GatewayResponse = string(result.RawResponse)

		util.PaymentFailedTotal.WithLabelValues("declined").Inc()
		ps.logger.Warn("Payment declined",
			zap.Int64("order_id", payment.OrderID),
			zap.String("reason", result.Reason))

		if err := ps.journal.PaymentFailed(ctx, payment, result.Reason); err != nil {
			ps.logger.Error("Failed to journal PaymentFailed", zap.Error(err))
		}
		return apperrors.Validation("payment declined: %s", result.Reason)
	}

	if err := ps.store.CompletePayment(ctx, payment.ID, payment.OrderID,
		result.TransactionID, string(result.RawResponse)); err != nil {
		return err
	}
	payment.Status = models.PaymentStatusCompleted
	payment.ExternalTxID = result.TransactionID
	payment.GatewayResponse = string(result.RawResponse)

	util.PaymentCompletedTotal.Inc()
	ps.logger.Info("Payment captured",
		zap.Int64("order_id", payment.OrderID),
		zap.String("tx_id", result.TransactionID))

	if err := ps.journal.PaymentCompleted(ctx, payment); err != nil {
		ps.logger.Error("Failed to journal PaymentCompleted", zap.Error(err))
	}
	if err := ps.journal.OrderTransitioned(ctx, payment.OrderID,
		models.OrderStatusPending, models.OrderStatusInProcess, 0, models.RoleSystem); err != nil {
		ps.logger.Error("Failed to journal OrderTransitioned", zap.Error(err))
	}

	return nil
}
