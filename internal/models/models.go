package models

import "time"

// OrderStatus is the order lifecycle state.
type OrderStatus string

// Order lifecycle: PENDING -> IN_PROCESS -> SHIPPED -> DELIVERED, with
// CANCELLED reachable from PENDING and IN_PROCESS only.
const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusInProcess OrderStatus = "IN_PROCESS"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// Terminal reports whether no further transition is possible from s.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// PaymentStatus is the payment lifecycle state.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
)

// PaymentMethod enumerates how a payment is settled.
type PaymentMethod string

const (
	PaymentMethodTransfer     PaymentMethod = "TRANSFER"
	PaymentMethodGatewayToken PaymentMethod = "GATEWAY_TOKEN"
	PaymentMethodOther        PaymentMethod = "OTHER"
)

// ShipmentStatus is the shipment lifecycle state, independent of but linked
// to order state.
type ShipmentStatus string

const (
	// ShipmentStatusPending is a speculative row committed before the courier
	// call; it must end up CREATED (with tracking) or FAILED, never linger.
	ShipmentStatusPending   ShipmentStatus = "PENDING"
	ShipmentStatusCreated   ShipmentStatus = "CREATED"
	ShipmentStatusInTransit ShipmentStatus = "IN_TRANSIT"
	ShipmentStatusDelivered ShipmentStatus = "DELIVERED"
	ShipmentStatusReturned  ShipmentStatus = "RETURNED"
	ShipmentStatusFailed    ShipmentStatus = "FAILED"
)

// Role is the caller's role claim from the identity provider.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleSales     Role = "sales"
	RoleDelivery  Role = "delivery"
	RoleWarehouse Role = "warehouse"
	RoleCustomer  Role = "customer"

	// RoleSystem labels transitions applied by the service itself, such as
	// the payment-success path. It grants no caller permissions.
	RoleSystem Role = "system"
)

// Product is the minimal catalog projection the core needs: the local
// Ferremas price for order lines and price comparisons.
type Product struct {
	ID        int64     `db:"id" json:"id"`
	SKU       string    `db:"sku" json:"sku"`
	Name      string    `db:"name" json:"name"`
	Price     int64     `db:"price" json:"price"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Order is a customer order. Total is always recomputed from line subtotals,
// never trusted from input.
type Order struct {
	ID        int64       `db:"id" json:"id"`
	UserID    int64       `db:"user_id" json:"user_id"`
	Status    OrderStatus `db:"status" json:"status"`
	Total     int64       `db:"total" json:"total"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt time.Time   `db:"updated_at" json:"updated_at"`
}

// OrderLine is one product/quantity/price entry within an order. Lines are
// immutable once the order leaves PENDING.
type OrderLine struct {
	ID        int64 `db:"id" json:"id"`
	OrderID   int64 `db:"order_id" json:"order_id"`
	ProductID int64 `db:"product_id" json:"product_id"`
	Quantity  int   `db:"quantity" json:"quantity"`
	UnitPrice int64 `db:"unit_price" json:"unit_price"`
	Subtotal  int64 `db:"subtotal" json:"subtotal"`
}

// Payment is one payment attempt for an order. At most one COMPLETED payment
// may exist per order, enforced by a partial unique index. GatewayResponse is
// the raw gateway payload stored verbatim for audit; the core never parses it.
type Payment struct {
	ID              int64         `db:"id" json:"id"`
	OrderID         int64         `db:"order_id" json:"order_id"`
	Amount          int64         `db:"amount" json:"amount"`
	Method          PaymentMethod `db:"method" json:"method"`
	Status          PaymentStatus `db:"status" json:"status"`
	ExternalTxID    string        `db:"external_tx_id" json:"external_tx_id,omitempty"`
	GatewayResponse string        `db:"gateway_response" json:"-"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
}

// Address is a shipment destination. Comuna and Region must resolve against
// the courier's serviceable-area table before any courier call.
type Address struct {
	Street string `db:"street" json:"street" binding:"required"`
	Number string `db:"number" json:"number" binding:"required"`
	Unit   string `db:"unit" json:"unit,omitempty"`
	Comuna string `db:"comuna" json:"comuna" binding:"required"`
	Region string `db:"region" json:"region" binding:"required"`
}

// Package holds the physical attributes quoted to the courier.
type Package struct {
	WeightKG      float64 `db:"weight_kg" json:"weight_kg" binding:"required"`
	LengthCM      float64 `db:"length_cm" json:"length_cm"`
	WidthCM       float64 `db:"width_cm" json:"width_cm"`
	HeightCM      float64 `db:"height_cm" json:"height_cm"`
	DeclaredValue int64   `db:"declared_value" json:"declared_value"`
}

// Shipment is the zero-or-one active shipment for an order. TrackingRef and
// TrackingURL are populated only after a successful courier creation.
type Shipment struct {
	ID             int64          `db:"id" json:"id"`
	OrderID        int64          `db:"order_id" json:"order_id"`
	Street         string         `db:"street" json:"street"`
	Number         string         `db:"number" json:"number"`
	Unit           string         `db:"unit" json:"unit,omitempty"`
	Comuna         string         `db:"comuna" json:"comuna"`
	Region         string         `db:"region" json:"region"`
	RecipientName  string         `db:"recipient_name" json:"recipient_name"`
	RecipientPhone string         `db:"recipient_phone" json:"recipient_phone"`
	RecipientEmail string         `db:"recipient_email" json:"recipient_email"`
	WeightKG       float64        `db:"weight_kg" json:"weight_kg"`
	LengthCM       float64        `db:"length_cm" json:"length_cm"`
	WidthCM        float64        `db:"width_cm" json:"width_cm"`
	HeightCM       float64        `db:"height_cm" json:"height_cm"`
	DeclaredValue  int64          `db:"declared_value" json:"declared_value"`
	Courier        string         `db:"courier" json:"courier"`
	TrackingRef    string         `db:"tracking_ref" json:"tracking_ref,omitempty"`
	TrackingURL    string         `db:"tracking_url" json:"tracking_url,omitempty"`
	Status         ShipmentStatus `db:"status" json:"status"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// Destination returns the shipment's address block.
func (s *Shipment) Destination() Address {
	return Address{
		Street: s.Street,
		Number: s.Number,
		Unit:   s.Unit,
		Comuna: s.Comuna,
		Region: s.Region,
	}
}

// CompetitorPrice is one competitor result inside a comparison.
type CompetitorPrice struct {
	Store string `json:"store"`
	Price int64  `json:"price"`
	URL   string `json:"url,omitempty"`
}

// PriceComparison is an immutable snapshot of what a user was shown:
// Ferremas's own price at query time plus competitor results ordered by
// price. Repeated identical queries produce repeated snapshots.
type PriceComparison struct {
	ID            int64             `db:"id" json:"id"`
	UserID        int64             `db:"user_id" json:"user_id"`
	ProductLabel  string            `db:"product_label" json:"product_label"`
	FerremasPrice int64             `db:"ferremas_price" json:"ferremas_price"`
	Results       []CompetitorPrice `json:"results"`
	CreatedAt     time.Time         `db:"created_at" json:"created_at"`
}

// CourierOffer is one courier's quote for a shipment.
type CourierOffer struct {
	Courier string `json:"courier"`
	Price   int64  `json:"price"`
	ETADays int    `json:"eta_days"`
}
