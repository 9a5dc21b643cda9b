package store

import (
	"context"
	"database/sql"

	"ferremas-fulfillment/internal/apperrors"
	"ferremas-fulfillment/internal/models"

	"github.com/jmoiron/sqlx"
)

// CreatePendingShipment atomically checks the shipment preconditions and
// inserts a speculative PENDING row: the order's payment must be COMPLETED
// and no other active shipment may exist for the order. The courier call
// happens after this transaction commits; the row must then be marked
// CREATED or FAILED.
func (s *Store) CreatePendingShipment(ctx context.Context, shipment *models.Shipment) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		var paid bool
		err := tx.GetContext(ctx, &paid,
			"SELECT EXISTS(SELECT 1 FROM payments WHERE order_id = $1 AND status = $2)",
			shipment.OrderID, models.PaymentStatusCompleted)
		if err != nil {
			return err
		}
		if !paid {
			return apperrors.PaymentRequired(shipment.OrderID)
		}

		query := `
			INSERT INTO shipments (
				order_id, street, number, unit, comuna, region,
				recipient_name, recipient_phone, recipient_email,
				weight_kg, length_cm, width_cm, height_cm, declared_value,
				courier, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
			RETURNING id, created_at, updated_at`

		err = tx.GetContext(ctx, shipment, query,
			shipment.OrderID, shipment.Street, shipment.Number, shipment.Unit,
			shipment.Comuna, shipment.Region,
			shipment.RecipientName, shipment.RecipientPhone, shipment.RecipientEmail,
			shipment.WeightKG, shipment.LengthCM, shipment.WidthCM, shipment.HeightCM,
			shipment.DeclaredValue, shipment.Courier, models.ShipmentStatusPending)
		if uniqueViolation(err, idxActiveShipment) {
			return apperrors.DuplicateShipment(shipment.OrderID)
		}
		if err != nil {
			return err
		}
		shipment.Status = models.ShipmentStatusPending
		return nil
	})
}

// MarkShipmentCreated stores the courier tracking data and moves the row
// from PENDING to CREATED.
func (s *Store) MarkShipmentCreated(ctx context.Context, shipmentID int64, trackingRef, trackingURL string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE shipments
		SET status = $1, tracking_ref = $2, tracking_url = $3, updated_at = NOW()
		WHERE id = $4 AND status = $5`,
		models.ShipmentStatusCreated, trackingRef, trackingURL,
		shipmentID, models.ShipmentStatusPending)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound("no pending shipment %d to confirm", shipmentID)
	}
	return nil
}

// MarkShipmentFailed marks a speculative row FAILED after a courier
// rejection, so it is never left CREATED without a tracking reference.
func (s *Store) MarkShipmentFailed(ctx context.Context, shipmentID int64) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE shipments SET status = $1, updated_at = NOW() WHERE id = $2",
		models.ShipmentStatusFailed, shipmentID)
	return err
}

// UpdateShipmentStatus applies a mapped courier status to the shipment.
func (s *Store) UpdateShipmentStatus(ctx context.Context, shipmentID int64, status models.ShipmentStatus) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE shipments SET status = $1, updated_at = NOW() WHERE id = $2",
		status, shipmentID)
	return err
}

// GetShipmentByID retrieves a shipment by ID
func (s *Store) GetShipmentByID(ctx context.Context, id int64) (*models.Shipment, error) {
	var shipment models.Shipment
	err := s.db.GetContext(ctx, &shipment, "SELECT * FROM shipments WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("shipment not found: %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &shipment, nil
}

// GetShipmentByTrackingRef retrieves a shipment by its courier tracking
// reference. Used by the courier callback worker.
func (s *Store) GetShipmentByTrackingRef(ctx context.Context, trackingRef string) (*models.Shipment, error) {
	var shipment models.Shipment
	err := s.db.GetContext(ctx, &shipment,
		"SELECT * FROM shipments WHERE tracking_ref = $1", trackingRef)
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("shipment not found for tracking ref %q", trackingRef)
	}
	if err != nil {
		return nil, err
	}
	return &shipment, nil
}

// GetActiveShipmentByOrder returns the non-terminal shipment for an order,
// or nil when none exists.
func (s *Store) GetActiveShipmentByOrder(ctx context.Context, orderID int64) (*models.Shipment, error) {
	var shipment models.Shipment
	err := s.db.GetContext(ctx, &shipment, `
		SELECT * FROM shipments
		WHERE order_id = $1 AND status IN ($2, $3, $4)`,
		orderID, models.ShipmentStatusPending, models.ShipmentStatusCreated,
		models.ShipmentStatusInTransit)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &shipment, nil
}
