package auth

import (
	"testing"

	"ferremas-fulfillment/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		name    string
		role    models.Role
		from    models.OrderStatus
		to      models.OrderStatus
		allowed bool
	}{
		{"admin forward", models.RoleAdmin, models.OrderStatusPending, models.OrderStatusInProcess, true},
		{"admin cancel", models.RoleAdmin, models.OrderStatusInProcess, models.OrderStatusCancelled, true},
		{"admin may request skip", models.RoleAdmin, models.OrderStatusPending, models.OrderStatusShipped, true},
		{"sales forward", models.RoleSales, models.OrderStatusPending, models.OrderStatusInProcess, true},
		{"delivery ship", models.RoleDelivery, models.OrderStatusInProcess, models.OrderStatusShipped, true},
		{"delivery deliver", models.RoleDelivery, models.OrderStatusShipped, models.OrderStatusDelivered, true},
		{"delivery may not cancel", models.RoleDelivery, models.OrderStatusPending, models.OrderStatusCancelled, false},
		{"delivery may not start", models.RoleDelivery, models.OrderStatusPending, models.OrderStatusInProcess, false},
		{"warehouse has no grants", models.RoleWarehouse, models.OrderStatusPending, models.OrderStatusInProcess, false},
		{"customer has no grants", models.RoleCustomer, models.OrderStatusPending, models.OrderStatusCancelled, false},
		{"no backwards moves", models.RoleAdmin, models.OrderStatusShipped, models.OrderStatusPending, false},
		{"delivered is terminal", models.RoleAdmin, models.OrderStatusDelivered, models.OrderStatusCancelled, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.allowed, CanTransition(tc.role, tc.from, tc.to))
		})
	}
}

func TestCapabilities(t *testing.T) {
	assert.True(t, Can(models.RoleAdmin, CapManagePayments))
	assert.True(t, Can(models.RoleSales, CapManagePayments))
	assert.False(t, Can(models.RoleDelivery, CapManagePayments))

	assert.True(t, Can(models.RoleDelivery, CapManageShipments))
	assert.True(t, Can(models.RoleWarehouse, CapManageShipments))
	assert.False(t, Can(models.RoleCustomer, CapManageShipments))

	assert.True(t, Can(models.RoleAdmin, CapViewAllHistory))
	assert.False(t, Can(models.RoleSales, CapViewAllHistory))
}
