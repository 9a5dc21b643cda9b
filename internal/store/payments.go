package store

import (
	"context"
	"database/sql"

	"ferremas-fulfillment/internal/apperrors"
	"ferremas-fulfillment/internal/models"

	"github.com/jmoiron/sqlx"
)

// CreatePayment inserts a new payment attempt. If the payment is created
// directly as COMPLETED the partial unique index rejects a second completed
// payment for the same order.
func (s *Store) CreatePayment(ctx context.Context, payment *models.Payment) error {
	query := `
		INSERT INTO payments (order_id, amount, method, status, external_tx_id, gateway_response)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	err := s.db.GetContext(ctx, payment, query,
		payment.OrderID, payment.Amount, payment.Method, payment.Status,
		payment.ExternalTxID, payment.GatewayResponse)
	if uniqueViolation(err, idxCompletedPayment) {
		return apperrors.DuplicatePayment(payment.OrderID)
	}
	return err
}

// GetPaymentByID retrieves a payment by ID
func (s *Store) GetPaymentByID(ctx context.Context, id int64) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.GetContext(ctx, &payment, "SELECT * FROM payments WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("payment not found: %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetCompletedPaymentByOrder returns the completed payment for an order, or
// nil when none exists.
func (s *Store) GetCompletedPaymentByOrder(ctx context.Context, orderID int64) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.GetContext(ctx, &payment,
		"SELECT * FROM payments WHERE order_id = $1 AND status = $2",
		orderID, models.PaymentStatusCompleted)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetPaymentsByOrder returns all payment attempts for an order, newest first.
func (s *Store) GetPaymentsByOrder(ctx context.Context, orderID int64) ([]models.Payment, error) {
	var payments []models.Payment
	err := s.db.SelectContext(ctx, &payments,
		"SELECT * FROM payments WHERE order_id = $1 ORDER BY created_at DESC", orderID)
	return payments, err
}

// GetPendingTransfer finds the PENDING transfer payment carrying the given
// bank reference.
func (s *Store) GetPendingTransfer(ctx context.Context, reference string) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.GetContext(ctx, &payment,
		"SELECT * FROM payments WHERE external_tx_id = $1 AND method = $2 AND status = $3",
		reference, models.PaymentMethodTransfer, models.PaymentStatusPending)
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("no pending transfer with reference %q", reference)
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// CompletePayment marks the payment COMPLETED and moves the order to
// IN_PROCESS in one transaction. A completed payment is immutable, so the
// update only touches PENDING rows; the partial unique index closes the race
// between two concurrent captures.
func (s *Store) CompletePayment(ctx context.Context, paymentID, orderID int64, externalTxID, gatewayResponse string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE payments
			SET status = $1, external_tx_id = $2, gateway_response = $3, updated_at = NOW()
			WHERE id = $4 AND status = $5`,
			models.PaymentStatusCompleted, externalTxID, gatewayResponse,
			paymentID, models.PaymentStatusPending)
		if uniqueViolation(err, idxCompletedPayment) {
			return apperrors.DuplicatePayment(orderID)
		}
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apperrors.NotFound("no pending payment %d to complete", paymentID)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE orders SET status = $1, updated_at = NOW()
			WHERE id = $2 AND status = $3`,
			models.OrderStatusInProcess, orderID, models.OrderStatusPending)
		return err
	})
}

// FailPayment marks the payment FAILED, keeping the raw gateway response for
// audit. The order is left untouched so a new attempt can be created.
func (s *Store) FailPayment(ctx context.Context, paymentID int64, gatewayResponse string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE payments
		SET status = $1, gateway_response = $2, updated_at = NOW()
		WHERE id = $3 AND status = $4`,
		models.PaymentStatusFailed, gatewayResponse,
		paymentID, models.PaymentStatusPending)
	return err
}
