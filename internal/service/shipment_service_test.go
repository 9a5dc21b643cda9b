package service

import (
	"context"
	"testing"

	"ferremas-fulfillment/internal/apperrors"
	"ferremas-fulfillment/internal/auth"
	"ferremas-fulfillment/internal/courier"
	"ferremas-fulfillment/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testShipmentService(store *fakeShipmentStore, net *fakeCourier) (*ShipmentService, *fakeLedger, *fakePublisher) {
	ledger := &fakeLedger{}
	journal, published := testJournal()
	svc := NewShipmentService(store, net, courier.NewCoverage(nil), ledger, journal, "Santiago")
	return svc, ledger, published
}

func validCreateRequest(orderID int64) *CreateShipmentRequest {
	return &CreateShipmentRequest{
		OrderID: orderID,
		Courier: "chilexpress",
		Destination: models.Address{
			Street: "Av. Providencia",
			Number: "1234",
			Comuna: "Providencia",
			Region: "Metropolitana",
		},
		RecipientName:  "Maria Gonzalez",
		RecipientPhone: "+56912345678",
		RecipientEmail: "maria@example.cl",
		Package:        models.Package{WeightKG: 2.5, DeclaredValue: 49990},
	}
}

func TestQuoteSortsOffersByPrice(t *testing.T) {
	net := &fakeCourier{offers: []models.CourierOffer{
		{Courier: "starken", Price: 5990, ETADays: 3},
		{Courier: "chilexpress", Price: 4990, ETADays: 2},
	}}
	svc, _, _ := testShipmentService(newFakeShipmentStore(), net)

	offers, err := svc.Quote(context.Background(), &QuoteRequest{
		DestinationComuna: "Providencia",
		Package:           models.Package{WeightKG: 2},
	})
	require.NoError(t, err)
	require.Len(t, offers, 2)
	assert.Equal(t, "chilexpress", offers[0].Courier)
	assert.Equal(t, "starken", offers[1].Courier)
}

func TestQuoteUnknownComunaSkipsCourier(t *testing.T) {
	net := &fakeCourier{}
	svc, _, _ := testShipmentService(newFakeShipmentStore(), net)

	_, err := svc.Quote(context.Background(), &QuoteRequest{
		DestinationComuna: "Narnia",
		Package:           models.Package{WeightKG: 2},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindUnknownLocation))
	assert.Zero(t, net.quoteCalls, "unserviceable comuna must never reach the courier")
}

func TestCreateShipmentRequiresPayment(t *testing.T) {
	store := newFakeShipmentStore()
	net := &fakeCourier{}
	svc, ledger, _ := testShipmentService(store, net)

	_, err := svc.Create(context.Background(),
		auth.Identity{UserID: 5, Role: models.RoleWarehouse}, validCreateRequest(1))
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindPaymentRequired))
	assert.Zero(t, net.createCalls, "unpaid order must never reach the courier")
	assert.Empty(t, ledger.calls)
}

func TestCreateShipmentUnknownComunaSkipsCourier(t *testing.T) {
	store := newFakeShipmentStore()
	store.paidOrders[1] = true
	net := &fakeCourier{}
	svc, _, _ := testShipmentService(store, net)

	req := validCreateRequest(1)
	req.Destination.Comuna = "Narnia"
	_, err := svc.Create(context.Background(),
		auth.Identity{UserID: 5, Role: models.RoleWarehouse}, req)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindUnknownLocation))
	assert.Zero(t, net.createCalls)
	assert.Empty(t, store.shipments, "no speculative row for an unserviceable destination")
}

func TestCreateShipmentValidatesRecipient(t *testing.T) {
	store := newFakeShipmentStore()
	store.paidOrders[1] = true
	net := &fakeCourier{}
	svc, _, _ := testShipmentService(store, net)

	req := validCreateRequest(1)
	req.RecipientPhone = "12345"
	_, err := svc.Create(context.Background(),
		auth.Identity{UserID: 5, Role: models.RoleWarehouse}, req)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	req = validCreateRequest(1)
	req.RecipientEmail = "not-an-email"
	_, err = svc.Create(context.Background(),
		auth.Identity{UserID: 5, Role: models.RoleWarehouse}, req)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
	assert.Zero(t, net.createCalls)
}

func TestCreateShipmentSuccess(t *testing.T) {
	store := newFakeShipmentStore()
	store.paidOrders[1] = true
	net := &fakeCourier{result: &courier.CreateResult{
		TrackingRef: "CLX-900",
		TrackingURL: "https://track.example/CLX-900",
	}}
	svc, ledger, published := testShipmentService(store, net)

	shipment, err := svc.Create(context.Background(),
		auth.Identity{UserID: 5, Role: models.RoleWarehouse}, validCreateRequest(1))
	require.NoError(t, err)
	assert.Equal(t, models.ShipmentStatusCreated, shipment.Status)
	assert.Equal(t, "CLX-900", shipment.TrackingRef)
	assert.Equal(t, "Metropolitana", shipment.Region)

	// Dispatch drives the order to SHIPPED with the delivery role.
	require.Len(t, ledger.calls, 1)
	assert.Equal(t, int64(1), ledger.calls[0].orderID)
	assert.Equal(t, models.OrderStatusShipped, ledger.calls[0].target)
	assert.Equal(t, models.RoleDelivery, ledger.calls[0].role)

	require.Len(t, published.events, 1)
	_, ok := published.events[0].event.(*models.ShipmentCreatedEvent)
	assert.True(t, ok)
}

func TestCreateShipmentDuplicateActive(t *testing.T) {
	store := newFakeShipmentStore()
	store.paidOrders[1] = true
	net := &fakeCourier{result: &courier.CreateResult{TrackingRef: "CLX-901"}}
	svc, _, _ := testShipmentService(store, net)
	actor := auth.Identity{UserID: 5, Role: models.RoleWarehouse}

	_, err := svc.Create(context.Background(), actor, validCreateRequest(1))
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), actor, validCreateRequest(1))
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindDuplicateShipment))
	assert.Equal(t, 1, net.createCalls)
}

func TestCreateShipmentCourierFailure(t *testing.T) {
	store := newFakeShipmentStore()
	store.paidOrders[1] = true
	net := &fakeCourier{createErr: apperrors.CourierUnavailable(assert.AnError)}
	svc, ledger, published := testShipmentService(store, net)

	_, err := svc.Create(context.Background(),
		auth.Identity{UserID: 5, Role: models.RoleWarehouse}, validCreateRequest(1))
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindCourierUnavailable))

	// The speculative row ends up FAILED, never a lingering PENDING, and
	// the order is not moved.
	require.Len(t, store.shipments, 1)
	for _, s := range store.shipments {
		assert.Equal(t, models.ShipmentStatusFailed, s.Status)
	}
	assert.Empty(t, ledger.calls)

	require.Len(t, published.events, 1)
	_, ok := published.events[0].event.(*models.ShipmentFailedEvent)
	assert.True(t, ok)

	// The failed row no longer blocks a retry.
	net.createErr = nil
	net.result = &courier.CreateResult{TrackingRef: "CLX-902"}
	_, err = svc.Create(context.Background(),
		auth.Identity{UserID: 5, Role: models.RoleWarehouse}, validCreateRequest(1))
	assert.NoError(t, err)
}

func TestUpdateStatusUnknownCourierString(t *testing.T) {
	store := newFakeShipmentStore()
	store.paidOrders[1] = true
	net := &fakeCourier{result: &courier.CreateResult{TrackingRef: "CLX-903"}}
	svc, _, _ := testShipmentService(store, net)

	shipment, err := svc.Create(context.Background(),
		auth.Identity{UserID: 5, Role: models.RoleWarehouse}, validCreateRequest(1))
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), shipment.ID, "teleported")
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindUnrecognizedStatus))

	stored, _ := store.GetShipmentByID(context.Background(), shipment.ID)
	assert.Equal(t, models.ShipmentStatusCreated, stored.Status)
}

func TestDeliveredDrivesOrderDelivered(t *testing.T) {
	store := newFakeShipmentStore()
	store.paidOrders[1] = true
	net := &fakeCourier{result: &courier.CreateResult{TrackingRef: "CLX-904"}}
	svc, ledger, _ := testShipmentService(store, net)

	shipment, err := svc.Create(context.Background(),
		auth.Identity{UserID: 5, Role: models.RoleWarehouse}, validCreateRequest(1))
	require.NoError(t, err)

	updated, err := svc.UpdateStatusByTrackingRef(context.Background(), "CLX-904", "delivered")
	require.NoError(t, err)
	assert.Equal(t, models.ShipmentStatusDelivered, updated.Status)
	assert.Equal(t, shipment.ID, updated.ID)

	// One SHIPPED from dispatch, one DELIVERED from the status update.
	require.Len(t, ledger.calls, 2)
	assert.Equal(t, models.OrderStatusDelivered, ledger.calls[1].target)
	assert.Equal(t, models.RoleDelivery, ledger.calls[1].role)
}

func TestUpdateStatusSameStatusIsNoOp(t *testing.T) {
	store := newFakeShipmentStore()
	store.paidOrders[1] = true
	net := &fakeCourier{result: &courier.CreateResult{TrackingRef: "CLX-905"}}
	svc, _, published := testShipmentService(store, net)

	shipment, err := svc.Create(context.Background(),
		auth.Identity{UserID: 5, Role: models.RoleWarehouse}, validCreateRequest(1))
	require.NoError(t, err)

	before := len(published.events)
	_, err = svc.UpdateStatus(context.Background(), shipment.ID, "created")
	require.NoError(t, err)
	assert.Equal(t, before, len(published.events), "no journal entry for a no-op update")
}

func TestUpdateStatusRejectsStaleCallbackAfterDelivered(t *testing.T) {
	store := newFakeShipmentStore()
	store.paidOrders[1] = true
	net := &fakeCourier{result: &courier.CreateResult{TrackingRef: "CLX-906"}}
	svc, _, published := testShipmentService(store, net)

	shipment, err := svc.Create(context.Background(),
		auth.Identity{UserID: 5, Role: models.RoleWarehouse}, validCreateRequest(1))
	require.NoError(t, err)

	_, err = svc.UpdateStatusByTrackingRef(context.Background(), "CLX-906", "delivered")
	require.NoError(t, err)

	// A redelivered "in transit" callback arriving after delivery must not
	// resurrect the shipment.
	before := len(published.events)
	_, err = svc.UpdateStatusByTrackingRef(context.Background(), "CLX-906", "in transit")
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidTransition))
	assert.Equal(t, before, len(published.events), "no journal entry for a rejected update")

	stored, _ := store.GetShipmentByID(context.Background(), shipment.ID)
	assert.Equal(t, models.ShipmentStatusDelivered, stored.Status)
}

func TestUpdateStatusReturnedIsTerminal(t *testing.T) {
	store := newFakeShipmentStore()
	store.paidOrders[1] = true
	net := &fakeCourier{result: &courier.CreateResult{TrackingRef: "CLX-907"}}
	svc, _, _ := testShipmentService(store, net)

	shipment, err := svc.Create(context.Background(),
		auth.Identity{UserID: 5, Role: models.RoleWarehouse}, validCreateRequest(1))
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), shipment.ID, "returned")
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), shipment.ID, "in transit")
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidTransition))

	stored, _ := store.GetShipmentByID(context.Background(), shipment.ID)
	assert.Equal(t, models.ShipmentStatusReturned, stored.Status)
}
