package service

import (
	"context"
	"time"

	"ferremas-fulfillment/internal/apperrors"
	"ferremas-fulfillment/internal/auth"
	"ferremas-fulfillment/internal/broker"
	"ferremas-fulfillment/internal/courier"
	"ferremas-fulfillment/internal/gateway"
	"ferremas-fulfillment/internal/models"
	"ferremas-fulfillment/internal/redisclient"
)

// fakePublisher records journal events so tests can assert on what was
// published without a broker.
type publishedEvent struct {
	key   string
	event interface{}
}

type fakePublisher struct {
	events []publishedEvent
}

func (f *fakePublisher) PublishEvent(ctx context.Context, key string, event interface{}) error {
	f.events = append(f.events, publishedEvent{key: key, event: event})
	return nil
}

func testJournal() (*broker.Journal, *fakePublisher) {
	p := &fakePublisher{}
	return broker.NewJournal(p), p
}

// fakeOrderStore is an in-memory OrderStore mirroring the storage layer's
// transactional rules: line changes only on PENDING orders, totals
// recomputed with the change.
type fakeOrderStore struct {
	products   map[int64]*models.Product
	orders     map[int64]*models.Order
	orderLines map[int64][]models.OrderLine
	nextID     int64
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{
		products:   map[int64]*models.Product{},
		orders:     map[int64]*models.Order{},
		orderLines: map[int64][]models.OrderLine{},
	}
}

func (f *fakeOrderStore) addProduct(id int64, name string, price int64) {
	f.products[id] = &models.Product{ID: id, Name: name, Price: price}
}

func (f *fakeOrderStore) seedOrder(status models.OrderStatus, total int64) *models.Order {
	f.nextID++
	order := &models.Order{ID: f.nextID, UserID: 1, Status: status, Total: total}
	f.orders[order.ID] = order
	return order
}

func (f *fakeOrderStore) CreateOrderWithLines(ctx context.Context, order *models.Order, lines []models.OrderLine) error {
	f.nextID++
	order.ID = f.nextID
	f.orders[order.ID] = order
	for i := range lines {
		f.nextID++
		lines[i].ID = f.nextID
		lines[i].OrderID = order.ID
	}
	f.orderLines[order.ID] = lines
	return nil
}

func (f *fakeOrderStore) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return nil, apperrors.NotFound("order not found: %d", id)
	}
	copied := *order
	return &copied, nil
}

func (f *fakeOrderStore) GetOrderLines(ctx context.Context, orderID int64) ([]models.OrderLine, error) {
	return f.orderLines[orderID], nil
}

func (f *fakeOrderStore) GetOrdersByUserID(ctx context.Context, userID int64) ([]models.Order, error) {
	var result []models.Order
	for _, order := range f.orders {
		if order.UserID == userID {
			result = append(result, *order)
		}
	}
	return result, nil
}

func (f *fakeOrderStore) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	product, ok := f.products[id]
	if !ok {
		return nil, apperrors.NotFound("product not found: %d", id)
	}
	return product, nil
}

func (f *fakeOrderStore) AddOrderLine(ctx context.Context, line *models.OrderLine) error {
	order, ok := f.orders[line.OrderID]
	if !ok {
		return apperrors.NotFound("order not found: %d", line.OrderID)
	}
	if order.Status != models.OrderStatusPending {
		return apperrors.InvalidTransition("order %d is %s, lines are frozen", order.ID, order.Status)
	}
	f.nextID++
	line.ID = f.nextID
	f.orderLines[order.ID] = append(f.orderLines[order.ID], *line)
	f.recomputeTotal(order.ID)
	return nil
}

func (f *fakeOrderStore) RemoveOrderLine(ctx context.Context, orderID, lineID int64) error {
	order, ok := f.orders[orderID]
	if !ok {
		return apperrors.NotFound("order not found: %d", orderID)
	}
	if order.Status != models.OrderStatusPending {
		return apperrors.InvalidTransition("order %d is %s, lines are frozen", order.ID, order.Status)
	}
	lines := f.orderLines[orderID]
	for i, line := range lines {
		if line.ID == lineID {
			f.orderLines[orderID] = append(lines[:i], lines[i+1:]...)
			f.recomputeTotal(orderID)
			return nil
		}
	}
	return apperrors.NotFound("line not found: %d", lineID)
}

func (f *fakeOrderStore) recomputeTotal(orderID int64) {
	var total int64
	for _, line := range f.orderLines[orderID] {
		total += line.Subtotal
	}
	f.orders[orderID].Total = total
}

func (f *fakeOrderStore) TransitionOrder(ctx context.Context, orderID int64, from, to models.OrderStatus) error {
	order, ok := f.orders[orderID]
	if !ok {
		return apperrors.NotFound("order not found: %d", orderID)
	}
	if order.Status != from {
		return apperrors.InvalidTransition("order %d moved concurrently", orderID)
	}
	order.Status = to
	return nil
}

// fakePaymentStore is an in-memory PaymentStore enforcing the one-completed-
// payment rule the real schema enforces with a partial unique index.
type fakePaymentStore struct {
	orders   map[int64]*models.Order
	payments map[int64]*models.Payment
	nextID   int64
}

func newFakePaymentStore() *fakePaymentStore {
	return &fakePaymentStore{
		orders:   map[int64]*models.Order{},
		payments: map[int64]*models.Payment{},
	}
}

func (f *fakePaymentStore) seedOrder(id int64, total int64) *models.Order {
	order := &models.Order{ID: id, UserID: 1, Status: models.OrderStatusPending, Total: total}
	f.orders[id] = order
	return order
}

func (f *fakePaymentStore) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return nil, apperrors.NotFound("order not found: %d", id)
	}
	return order, nil
}

func (f *fakePaymentStore) CreatePayment(ctx context.Context, payment *models.Payment) error {
	for _, existing := range f.payments {
		if existing.OrderID == payment.OrderID && existing.Status == models.PaymentStatusCompleted {
			return apperrors.DuplicatePayment(payment.OrderID)
		}
	}
	f.nextID++
	payment.ID = f.nextID
	stored := *payment
	f.payments[payment.ID] = &stored
	return nil
}

func (f *fakePaymentStore) GetPaymentByID(ctx context.Context, id int64) (*models.Payment, error) {
	payment, ok := f.payments[id]
	if !ok {
		return nil, apperrors.NotFound("payment not found: %d", id)
	}
	copied := *payment
	return &copied, nil
}

func (f *fakePaymentStore) GetCompletedPaymentByOrder(ctx context.Context, orderID int64) (*models.Payment, error) {
	for _, payment := range f.payments {
		if payment.OrderID == orderID && payment.Status == models.PaymentStatusCompleted {
			copied := *payment
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakePaymentStore) GetPaymentsByOrder(ctx context.Context, orderID int64) ([]models.Payment, error) {
	var result []models.Payment
	for _, payment := range f.payments {
		if payment.OrderID == orderID {
			result = append(result, *payment)
		}
	}
	return result, nil
}

func (f *fakePaymentStore) GetPendingTransfer(ctx context.Context, reference string) (*models.Payment, error) {
	for _, payment := range f.payments {
		if payment.ExternalTxID == reference &&
			payment.Method == models.PaymentMethodTransfer &&
			payment.Status == models.PaymentStatusPending {
			copied := *payment
			return &copied, nil
		}
	}
	return nil, apperrors.NotFound("no pending transfer with reference %q", reference)
}

func (f *fakePaymentStore) CompletePayment(ctx context.Context, paymentID, orderID int64, externalTxID, gatewayResponse string) error {
	payment, ok := f.payments[paymentID]
	if !ok {
		return apperrors.NotFound("payment not found: %d", paymentID)
	}
	payment.Status = models.PaymentStatusCompleted
	payment.ExternalTxID = externalTxID
	payment.GatewayResponse = gatewayResponse
	if order, ok := f.orders[orderID]; ok && order.Status == models.OrderStatusPending {
		order.Status = models.OrderStatusInProcess
	}
	return nil
}

func (f *fakePaymentStore) FailPayment(ctx context.Context, paymentID int64, gatewayResponse string) error {
	payment, ok := f.payments[paymentID]
	if !ok {
		return apperrors.NotFound("payment not found: %d", paymentID)
	}
	payment.Status = models.PaymentStatusFailed
	payment.GatewayResponse = gatewayResponse
	return nil
}

// fakeGateway scripts one capture outcome and counts invocations.
type fakeGateway struct {
	result *gateway.CaptureResult
	err    error
	calls  int
}

func (f *fakeGateway) Capture(ctx context.Context, amount int64, token string) (*gateway.CaptureResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

// fakeShipmentStore is an in-memory ShipmentStore enforcing the payment
// precondition and the one-active-shipment rule.
type fakeShipmentStore struct {
	shipments  map[int64]*models.Shipment
	paidOrders map[int64]bool
	nextID     int64
}

func newFakeShipmentStore() *fakeShipmentStore {
	return &fakeShipmentStore{
		shipments:  map[int64]*models.Shipment{},
		paidOrders: map[int64]bool{},
	}
}

func (f *fakeShipmentStore) active(orderID int64) *models.Shipment {
	for _, s := range f.shipments {
		if s.OrderID != orderID {
			continue
		}
		switch s.Status {
		case models.ShipmentStatusPending, models.ShipmentStatusCreated, models.ShipmentStatusInTransit:
			return s
		}
	}
	return nil
}

func (f *fakeShipmentStore) CreatePendingShipment(ctx context.Context, shipment *models.Shipment) error {
	if !f.paidOrders[shipment.OrderID] {
		return apperrors.PaymentRequired(shipment.OrderID)
	}
	if f.active(shipment.OrderID) != nil {
		return apperrors.DuplicateShipment(shipment.OrderID)
	}
	f.nextID++
	shipment.ID = f.nextID
	shipment.Status = models.ShipmentStatusPending
	stored := *shipment
	f.shipments[shipment.ID] = &stored
	return nil
}

func (f *fakeShipmentStore) MarkShipmentCreated(ctx context.Context, shipmentID int64, trackingRef, trackingURL string) error {
	s, ok := f.shipments[shipmentID]
	if !ok {
		return apperrors.NotFound("shipment not found: %d", shipmentID)
	}
	s.Status = models.ShipmentStatusCreated
	s.TrackingRef = trackingRef
	s.TrackingURL = trackingURL
	return nil
}

func (f *fakeShipmentStore) MarkShipmentFailed(ctx context.Context, shipmentID int64) error {
	s, ok := f.shipments[shipmentID]
	if !ok {
		return apperrors.NotFound("shipment not found: %d", shipmentID)
	}
	s.Status = models.ShipmentStatusFailed
	return nil
}

func (f *fakeShipmentStore) UpdateShipmentStatus(ctx context.Context, shipmentID int64, status models.ShipmentStatus) error {
	s, ok := f.shipments[shipmentID]
	if !ok {
		return apperrors.NotFound("shipment not found: %d", shipmentID)
	}
	s.Status = status
	return nil
}

func (f *fakeShipmentStore) GetShipmentByID(ctx context.Context, id int64) (*models.Shipment, error) {
	s, ok := f.shipments[id]
	if !ok {
		return nil, apperrors.NotFound("shipment not found: %d", id)
	}
	copied := *s
	return &copied, nil
}

func (f *fakeShipmentStore) GetShipmentByTrackingRef(ctx context.Context, trackingRef string) (*models.Shipment, error) {
	for _, s := range f.shipments {
		if s.TrackingRef == trackingRef {
			copied := *s
			return &copied, nil
		}
	}
	return nil, apperrors.NotFound("shipment not found for tracking ref %q", trackingRef)
}

func (f *fakeShipmentStore) GetActiveShipmentByOrder(ctx context.Context, orderID int64) (*models.Shipment, error) {
	if s := f.active(orderID); s != nil {
		copied := *s
		return &copied, nil
	}
	return nil, nil
}

// fakeCourier scripts quote and creation outcomes and counts calls so tests
// can assert the network was never reached.
type fakeCourier struct {
	offers      []models.CourierOffer
	quoteErr    error
	result      *courier.CreateResult
	createErr   error
	quoteCalls  int
	createCalls int
}

func (f *fakeCourier) Quote(ctx context.Context, req courier.QuoteRequest) ([]models.CourierOffer, error) {
	f.quoteCalls++
	if f.quoteErr != nil {
		return nil, f.quoteErr
	}
	return f.offers, nil
}

func (f *fakeCourier) CreateShipment(ctx context.Context, req courier.CreateRequest) (*courier.CreateResult, error) {
	f.createCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.result, nil
}

// fakeLedger records the transitions the dispatcher drives.
type ledgerCall struct {
	orderID int64
	target  models.OrderStatus
	role    models.Role
}

type fakeLedger struct {
	calls []ledgerCall
}

func (f *fakeLedger) Transition(ctx context.Context, identity auth.Identity, orderID int64, target models.OrderStatus) (*models.Order, error) {
	f.calls = append(f.calls, ledgerCall{orderID: orderID, target: target, role: identity.Role})
	return &models.Order{ID: orderID, Status: target}, nil
}

// fakeComparisonStore is an in-memory ComparisonStore.
type fakeComparisonStore struct {
	products map[int64]*models.Product
	snaps    []models.PriceComparison
	nextID   int64
}

func newFakeComparisonStore() *fakeComparisonStore {
	return &fakeComparisonStore{products: map[int64]*models.Product{}}
}

func (f *fakeComparisonStore) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	product, ok := f.products[id]
	if !ok {
		return nil, apperrors.NotFound("product not found: %d", id)
	}
	return product, nil
}

func (f *fakeComparisonStore) InsertComparison(ctx context.Context, snap *models.PriceComparison) error {
	f.nextID++
	snap.ID = f.nextID
	snap.CreatedAt = time.Now().UTC()
	f.snaps = append(f.snaps, *snap)
	return nil
}

func (f *fakeComparisonStore) GetComparisonsByUser(ctx context.Context, userID int64) ([]models.PriceComparison, error) {
	var result []models.PriceComparison
	for _, snap := range f.snaps {
		if snap.UserID == userID {
			result = append(result, snap)
		}
	}
	return result, nil
}

func (f *fakeComparisonStore) GetAllComparisons(ctx context.Context) ([]models.PriceComparison, error) {
	return append([]models.PriceComparison(nil), f.snaps...), nil
}

// fakeFeed scripts one fetch outcome and counts calls.
type fakeFeed struct {
	results []models.CompetitorPrice
	err     error
	calls   int
}

func (f *fakeFeed) FetchCompetitorPrices(ctx context.Context, productLabel string) ([]models.CompetitorPrice, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

// fakeCache is an in-memory ComparisonCache.
type fakeCache struct {
	entries map[int64]*redisclient.CachedComparison
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[int64]*redisclient.CachedComparison{}}
}

func (f *fakeCache) GetComparison(ctx context.Context, productID int64) (*redisclient.CachedComparison, error) {
	return f.entries[productID], nil
}

func (f *fakeCache) SetComparison(ctx context.Context, cached *redisclient.CachedComparison, ttl time.Duration) error {
	f.entries[cached.ProductID] = cached
	return nil
}
