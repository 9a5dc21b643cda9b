package service

import (
	"context"
	"testing"

	"ferremas-fulfillment/internal/apperrors"
	"ferremas-fulfillment/internal/auth"
	"ferremas-fulfillment/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateOrderComputesTotalFromCatalog(t *testing.T) {
	store := newFakeOrderStore()
	store.addProduct(1, "martillo", 12990)
	store.addProduct(2, "destornillador", 4990)
	journal, published := testJournal()
	svc := NewOrderService(store, journal)

	order, err := svc.Create(context.Background(), &CreateOrderRequest{
		UserID: 9,
		Lines: []OrderLineRequest{
			{ProductID: 1, Quantity: 2},
			{ProductID: 2, Quantity: 1},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, int64(2*12990+4990), order.Total)

	lines, err := store.GetOrderLines(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, int64(12990), lines[0].UnitPrice)
	assert.Equal(t, int64(25980), lines[0].Subtotal)

	require.Len(t, published.events, 1)
	created, ok := published.events[0].event.(*models.OrderCreatedEvent)
	require.True(t, ok)
	assert.Equal(t, order.ID, created.OrderID)
	assert.Equal(t, order.Total, created.Total)
}

func TestCreateOrderUnknownProduct(t *testing.T) {
	store := newFakeOrderStore()
	journal, _ := testJournal()
	svc := NewOrderService(store, journal)

	_, err := svc.Create(context.Background(), &CreateOrderRequest{
		UserID: 9,
		Lines:  []OrderLineRequest{{ProductID: 404, Quantity: 1}},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestCreateOrderRejectsNonPositiveQuantity(t *testing.T) {
	store := newFakeOrderStore()
	store.addProduct(1, "martillo", 12990)
	journal, _ := testJournal()
	svc := NewOrderService(store, journal)

	_, err := svc.Create(context.Background(), &CreateOrderRequest{
		UserID: 9,
		Lines:  []OrderLineRequest{{ProductID: 1, Quantity: 0}},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestAddLineRecomputesTotal(t *testing.T) {
	store := newFakeOrderStore()
	store.addProduct(1, "martillo", 12990)
	store.addProduct(2, "taladro", 59990)
	journal, _ := testJournal()
	svc := NewOrderService(store, journal)

	order, err := svc.Create(context.Background(), &CreateOrderRequest{
		UserID: 9,
		Lines:  []OrderLineRequest{{ProductID: 1, Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = svc.AddLine(context.Background(), order.ID, &OrderLineRequest{ProductID: 2, Quantity: 1})
	require.NoError(t, err)

	updated, err := store.GetOrderByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(12990+59990), updated.Total)
}

func TestLinesFrozenAfterPending(t *testing.T) {
	store := newFakeOrderStore()
	store.addProduct(1, "martillo", 12990)
	order := store.seedOrder(models.OrderStatusInProcess, 12990)
	journal, _ := testJournal()
	svc := NewOrderService(store, journal)

	_, err := svc.AddLine(context.Background(), order.ID, &OrderLineRequest{ProductID: 1, Quantity: 1})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidTransition))

	err = svc.RemoveLine(context.Background(), order.ID, 999)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidTransition))
}

func TestTransitionHappyPath(t *testing.T) {
	store := newFakeOrderStore()
	order := store.seedOrder(models.OrderStatusInProcess, 12990)
	journal, published := testJournal()
	svc := NewOrderService(store, journal)

	actor := auth.Identity{UserID: 5, Role: models.RoleDelivery}
	updated, err := svc.Transition(context.Background(), actor, order.ID, models.OrderStatusShipped)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusShipped, updated.Status)

	stored, err := store.GetOrderByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusShipped, stored.Status)

	require.Len(t, published.events, 1)
	event, ok := published.events[0].event.(*models.OrderTransitionedEvent)
	require.True(t, ok)
	assert.Equal(t, models.OrderStatusInProcess, event.From)
	assert.Equal(t, models.OrderStatusShipped, event.To)
	assert.Equal(t, models.RoleDelivery, event.ActorRole)
}

func TestTransitionUnauthorizedRole(t *testing.T) {
	store := newFakeOrderStore()
	order := store.seedOrder(models.OrderStatusPending, 12990)
	journal, published := testJournal()
	svc := NewOrderService(store, journal)

	actor := auth.Identity{UserID: 5, Role: models.RoleCustomer}
	_, err := svc.Transition(context.Background(), actor, order.ID, models.OrderStatusInProcess)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindAuthorization))

	// Rejected transitions change nothing and journal nothing.
	stored, _ := store.GetOrderByID(context.Background(), order.ID)
	assert.Equal(t, models.OrderStatusPending, stored.Status)
	assert.Empty(t, published.events)
}

func TestTransitionSkipAheadRejected(t *testing.T) {
	store := newFakeOrderStore()
	order := store.seedOrder(models.OrderStatusPending, 12990)
	journal, _ := testJournal()
	svc := NewOrderService(store, journal)

	// Admin is authorized to ask, but PENDING -> SHIPPED skips a step,
	// so the state machine rejects it.
	actor := auth.Identity{UserID: 5, Role: models.RoleAdmin}
	_, err := svc.Transition(context.Background(), actor, order.ID, models.OrderStatusShipped)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidTransition))

	stored, _ := store.GetOrderByID(context.Background(), order.ID)
	assert.Equal(t, models.OrderStatusPending, stored.Status)
}

func TestTransitionRoleCheckedBeforeReachability(t *testing.T) {
	store := newFakeOrderStore()
	order := store.seedOrder(models.OrderStatusPending, 12990)
	journal, _ := testJournal()
	svc := NewOrderService(store, journal)

	// For a role with no grant the answer is authorization, even when the
	// requested move is also unreachable.
	actor := auth.Identity{UserID: 5, Role: models.RoleWarehouse}
	_, err := svc.Transition(context.Background(), actor, order.ID, models.OrderStatusDelivered)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindAuthorization))
}

func TestCancelOnlyFromEarlyStates(t *testing.T) {
	store := newFakeOrderStore()
	journal, _ := testJournal()
	svc := NewOrderService(store, journal)
	actor := auth.Identity{UserID: 5, Role: models.RoleAdmin}

	pending := store.seedOrder(models.OrderStatusPending, 1000)
	_, err := svc.Transition(context.Background(), actor, pending.ID, models.OrderStatusCancelled)
	assert.NoError(t, err)

	inProcess := store.seedOrder(models.OrderStatusInProcess, 1000)
	_, err = svc.Transition(context.Background(), actor, inProcess.ID, models.OrderStatusCancelled)
	assert.NoError(t, err)

	shipped := store.seedOrder(models.OrderStatusShipped, 1000)
	_, err = svc.Transition(context.Background(), actor, shipped.ID, models.OrderStatusCancelled)
	require.Error(t, err)
}

func TestTransitionOrderNotFound(t *testing.T) {
	store := newFakeOrderStore()
	journal, _ := testJournal()
	svc := NewOrderService(store, journal)

	actor := auth.Identity{UserID: 5, Role: models.RoleAdmin}
	_, err := svc.Transition(context.Background(), actor, 404, models.OrderStatusInProcess)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}
