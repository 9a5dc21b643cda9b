package store

import (
	"context"
	"database/sql"

	"ferremas-fulfillment/internal/apperrors"
	"ferremas-fulfillment/internal/models"

	"github.com/jmoiron/sqlx"
)

// CreateOrderWithLines inserts the order and its lines in one transaction,
// with the total computed from the line subtotals.
func (s *Store) CreateOrderWithLines(ctx context.Context, order *models.Order, lines []models.OrderLine) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO orders (user_id, status, total)
			VALUES ($1, $2, $3)
			RETURNING id, created_at, updated_at`

		if err := tx.GetContext(ctx, order, query, order.UserID, order.Status, order.Total); err != nil {
			return err
		}

		for i := range lines {
			lines[i].OrderID = order.ID
			lineQuery := `
				INSERT INTO order_lines (order_id, product_id, quantity, unit_price, subtotal)
				VALUES ($1, $2, $3, $4, $5)
				RETURNING id`

			if err := tx.GetContext(ctx, &lines[i].ID, lineQuery,
				lines[i].OrderID, lines[i].ProductID, lines[i].Quantity,
				lines[i].UnitPrice, lines[i].Subtotal); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("order not found: %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderLines retrieves all lines for an order
func (s *Store) GetOrderLines(ctx context.Context, orderID int64) ([]models.OrderLine, error) {
	var lines []models.OrderLine
	err := s.db.SelectContext(ctx, &lines,
		"SELECT * FROM order_lines WHERE order_id = $1 ORDER BY id", orderID)
	return lines, err
}

// GetOrdersByUserID retrieves orders for a user
func (s *Store) GetOrdersByUserID(ctx context.Context, userID int64) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE user_id = $1 ORDER BY created_at DESC", userID)
	return orders, err
}

// AddOrderLine inserts a line and recomputes the order total in the same
// transaction. The order row is locked first so a concurrent transition
// cannot race the recomputation; a non-PENDING order rejects the change.
func (s *Store) AddOrderLine(ctx context.Context, line *models.OrderLine) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		status, err := lockOrderStatus(ctx, tx, line.OrderID)
		if err != nil {
			return err
		}
		if status != models.OrderStatusPending {
			return apperrors.InvalidTransition("order %d lines are immutable in state %s", line.OrderID, status)
		}

		query := `
			INSERT INTO order_lines (order_id, product_id, quantity, unit_price, subtotal)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`

		if err := tx.GetContext(ctx, &line.ID, query,
			line.OrderID, line.ProductID, line.Quantity, line.UnitPrice, line.Subtotal); err != nil {
			return err
		}

		return recomputeTotal(ctx, tx, line.OrderID)
	})
}

// RemoveOrderLine deletes a line and recomputes the order total atomically,
// under the same PENDING-only rule as AddOrderLine.
func (s *Store) RemoveOrderLine(ctx context.Context, orderID, lineID int64) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		status, err := lockOrderStatus(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if status != models.OrderStatusPending {
			return apperrors.InvalidTransition("order %d lines are immutable in state %s", orderID, status)
		}

		res, err := tx.ExecContext(ctx,
			"DELETE FROM order_lines WHERE id = $1 AND order_id = $2", lineID, orderID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apperrors.NotFound("order line not found: %d", lineID)
		}

		return recomputeTotal(ctx, tx, orderID)
	})
}

// TransitionOrder moves an order from one state to another in a single
// transaction, re-checking under lock that the order is still in the
// expected source state.
func (s *Store) TransitionOrder(ctx context.Context, orderID int64, from, to models.OrderStatus) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		status, err := lockOrderStatus(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if status != from {
			return apperrors.InvalidTransition("order %d moved to %s concurrently", orderID, status)
		}

		_, err = tx.ExecContext(ctx,
			"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2", to, orderID)
		return err
	})
}

// lockOrderStatus reads the order's current status FOR UPDATE.
func lockOrderStatus(ctx context.Context, tx *sqlx.Tx, orderID int64) (models.OrderStatus, error) {
	var status models.OrderStatus
	err := tx.GetContext(ctx, &status,
		"SELECT status FROM orders WHERE id = $1 FOR UPDATE", orderID)
	if err == sql.ErrNoRows {
		return "", apperrors.NotFound("order not found: %d", orderID)
	}
	if err != nil {
		return "", err
	}
	return status, nil
}

// recomputeTotal rewrites the order total as the sum of current line
// subtotals. The total is never trusted from input.
func recomputeTotal(ctx context.Context, tx *sqlx.Tx, orderID int64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET total = (SELECT COALESCE(SUM(subtotal), 0) FROM order_lines WHERE order_id = $1),
		    updated_at = NOW()
		WHERE id = $1`, orderID)
	return err
}
