package auth

import "ferremas-fulfillment/internal/models"

// transitionGrants is the static permission table keyed by
// (role, current state) -> allowed target states. It is built once at init
// and never mutated; the Order Ledger consults it before any reachability
// check, so role violations surface as authorization errors even when the
// requested transition would also be unreachable.
var transitionGrants map[models.Role]map[models.OrderStatus][]models.OrderStatus

func init() {
	// Admin and sales may request any forward transition; the state machine
	// itself still rejects the ones that skip a step.
	forward := map[models.OrderStatus][]models.OrderStatus{
		models.OrderStatusPending: {
			models.OrderStatusInProcess, models.OrderStatusShipped,
			models.OrderStatusDelivered, models.OrderStatusCancelled,
		},
		models.OrderStatusInProcess: {
			models.OrderStatusShipped, models.OrderStatusDelivered,
			models.OrderStatusCancelled,
		},
		models.OrderStatusShipped: {models.OrderStatusDelivered},
	}

	transitionGrants = map[models.Role]map[models.OrderStatus][]models.OrderStatus{
		models.RoleAdmin: forward,
		models.RoleSales: forward,
		models.RoleDelivery: {
			models.OrderStatusInProcess: {
				models.OrderStatusShipped, models.OrderStatusDelivered,
			},
			models.OrderStatusShipped: {models.OrderStatusDelivered},
		},
	}
}

// CanTransition reports whether the role may request moving an order from
// the given state to the target, per the static permission table.
func CanTransition(role models.Role, from, to models.OrderStatus) bool {
	grants, ok := transitionGrants[role]
	if !ok {
		return false
	}
	for _, allowed := range grants[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Capability is a coarse permission for operations that are not state
// transitions.
type Capability string

const (
	CapManagePayments  Capability = "manage_payments"
	CapManageShipments Capability = "manage_shipments"
	CapViewAllHistory  Capability = "view_all_history"
)

var capabilityGrants = map[Capability][]models.Role{
	CapManagePayments:  {models.RoleAdmin, models.RoleSales},
	CapManageShipments: {models.RoleAdmin, models.RoleSales, models.RoleDelivery, models.RoleWarehouse},
	CapViewAllHistory:  {models.RoleAdmin},
}

// Can reports whether the role holds the capability.
func Can(role models.Role, cap Capability) bool {
	for _, r := range capabilityGrants[cap] {
		if r == role {
			return true
		}
	}
	return false
}
