package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quickbite/api/config"
	"quickbite/api/geo"
	"quickbite/api/models"
	"quickbite/api/storage"
)

var testCfg = config.DispatchConfig{
	TaxRate:          0.10,
	PrepEstimate:     20 * time.Minute,
	DeliveryEstimate: 25 * time.Minute,
	EarningsShare:    0.8,
}

func newTestLedger(t *testing.T) (*Ledger, *storage.Memory) {
	t.Helper()
	store := storage.NewMemory()
	require.NoError(t, store.SaveRestaurant(context.Background(), &models.Restaurant{
		ID:           "rest-1",
		Name:         "Test Kitchen",
		IsOpen:       true,
		MinimumOrder: 10,
		DeliveryFee:  3,
		Location:     geo.Coordinate{Lat: 40.0, Lng: -74.0},
	}))
	require.NoError(t, store.SaveCustomer(context.Background(), &models.Customer{ID: "cust-1", Name: "Ada"}))
	return NewLedger(store, testCfg), store
}

func createReq() CreateRequest {
	return CreateRequest{
		CustomerID:   "cust-1",
		RestaurantID: "rest-1",
		Items: []models.OrderItem{
			{MenuItemID: "m1", Name: "Burger", Quantity: 2, UnitPrice: 10},
		},
		DeliveryAddress: models.Address{
			Street: "1 Main St", City: "Springfield", State: "IL", ZipCode: "62701",
			Coordinates: geo.Coordinate{Lat: 40.01, Lng: -74.0},
		},
		PaymentMethod: models.PaymentMethodCard,
	}
}

func TestCreatePricing(t *testing.T) {
	ledger, _ := newTestLedger(t)

	order, err := ledger.Create(context.Background(), createReq())
	require.NoError(t, err)

	assert.Equal(t, 20.0, order.Subtotal)
	assert.Equal(t, 3.0, order.DeliveryFee)
	assert.Equal(t, 2.0, order.Tax)
	assert.Equal(t, 25.0, order.Total)
	assert.Equal(t, order.Total, order.Subtotal+order.DeliveryFee+order.Tax)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	require.Len(t, order.StatusHistory, 1)
	assert.Equal(t, models.OrderStatusPending, order.StatusHistory[0].Status)
	assert.False(t, order.EstimatedDeliveryTime.IsZero())
}

func TestCreateCustomizationsPricedIn(t *testing.T) {
	ledger, _ := newTestLedger(t)
	req := createReq()
	req.Items = []models.OrderItem{{
		MenuItemID: "m2", Name: "Pizza", Quantity: 2, UnitPrice: 9,
		Customizations: []models.Customization{{Name: "Topping", Option: "extra cheese", Price: 1.5}},
	}}

	order, err := ledger.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 21.0, order.Subtotal)
	assert.Equal(t, 2.1, order.Tax)
}

func TestCreateRestaurantClosed(t *testing.T) {
	ledger, store := newTestLedger(t)
	restaurant, _ := store.GetRestaurant(context.Background(), "rest-1")
	restaurant.IsOpen = false
	require.NoError(t, store.SaveRestaurant(context.Background(), restaurant))

	_, err := ledger.Create(context.Background(), createReq())
	assert.ErrorIs(t, err, models.ErrRestaurantClosed)
}

func TestCreateBelowMinimum(t *testing.T) {
	ledger, _ := newTestLedger(t)
	req := createReq()
	req.Items = []models.OrderItem{{MenuItemID: "m1", Name: "Fries", Quantity: 1, UnitPrice: 4}}

	_, err := ledger.Create(context.Background(), req)
	assert.ErrorIs(t, err, models.ErrBelowMinimumOrder)
}

func TestCreateGuestCustomer(t *testing.T) {
	ledger, _ := newTestLedger(t)
	req := createReq()
	req.CustomerID = "walk-in"

	order, err := ledger.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "walk-in", order.CustomerID)
}

// brokenCustomerStore fails customer lookups with a non-sentinel error,
// the way a connection fault would.
type brokenCustomerStore struct {
	*storage.Memory
}

func (s *brokenCustomerStore) GetCustomer(context.Context, string) (*models.Customer, error) {
	return nil, errors.New("connection reset by peer")
}

func TestCreateCustomerLookupFailurePropagates(t *testing.T) {
	store := storage.NewMemory()
	require.NoError(t, store.SaveRestaurant(context.Background(), &models.Restaurant{
		ID: "rest-1", IsOpen: true, MinimumOrder: 10, DeliveryFee: 3,
	}))
	ledger := NewLedger(&brokenCustomerStore{Memory: store}, testCfg)

	_, err := ledger.Create(context.Background(), createReq())
	require.Error(t, err)
	assert.NotErrorIs(t, err, models.ErrCustomerNotFound)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestCreateLinksRestaurantAndCustomer(t *testing.T) {
	ledger, store := newTestLedger(t)
	order, err := ledger.Create(context.Background(), createReq())
	require.NoError(t, err)

	restaurant, _ := store.GetRestaurant(context.Background(), "rest-1")
	assert.Contains(t, restaurant.ActiveOrders, order.ID)
	customer, _ := store.GetCustomer(context.Background(), "cust-1")
	assert.Contains(t, customer.OrderHistory, order.ID)
}

func TestAdvanceFullWalk(t *testing.T) {
	ledger, _ := newTestLedger(t)
	order, err := ledger.Create(context.Background(), createReq())
	require.NoError(t, err)

	walk := []models.OrderStatus{
		models.OrderStatusConfirmed,
		models.OrderStatusPreparing,
		models.OrderStatusReadyForPickup,
		models.OrderStatusPickedUp,
		models.OrderStatusOnTheWay,
		models.OrderStatusDelivered,
	}
	var done Completion
	for _, status := range walk {
		order, done, err = ledger.Advance(context.Background(), order.ID, status, "")
		require.NoError(t, err, "advancing to %s", status)
		assert.Equal(t, status, order.Status)
	}

	assert.True(t, done.ClearLinkage)
	assert.True(t, done.CreditEarnings)
	require.NotNil(t, order.ActualDeliveryTime)
	require.Len(t, order.StatusHistory, len(walk)+1)
	for i, entry := range order.StatusHistory[1:] {
		assert.Equal(t, walk[i], entry.Status)
	}
}

func TestAdvanceRejectsSkips(t *testing.T) {
	ledger, _ := newTestLedger(t)
	order, err := ledger.Create(context.Background(), createReq())
	require.NoError(t, err)

	for _, status := range []models.OrderStatus{
		models.OrderStatusPickedUp,
		models.OrderStatusDelivered,
		models.OrderStatusPending, // no self loop either
	} {
		_, _, err := ledger.Advance(context.Background(), order.ID, status, "")
		assert.ErrorIs(t, err, models.ErrInvalidTransition, "pending -> %s must fail", status)
	}
}

func TestAdvanceRejectsBackwards(t *testing.T) {
	ledger, _ := newTestLedger(t)
	order, err := ledger.Create(context.Background(), createReq())
	require.NoError(t, err)
	_, _, err = ledger.Advance(context.Background(), order.ID, models.OrderStatusConfirmed, "")
	require.NoError(t, err)

	_, _, err = ledger.Advance(context.Background(), order.ID, models.OrderStatusPending, "")
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestCancelFromAnyNonTerminal(t *testing.T) {
	ledger, _ := newTestLedger(t)
	order, err := ledger.Create(context.Background(), createReq())
	require.NoError(t, err)
	_, _, err = ledger.Advance(context.Background(), order.ID, models.OrderStatusConfirmed, "")
	require.NoError(t, err)

	cancelled, done, err := ledger.Cancel(context.Background(), order.ID, "out of stock", models.ActorRestaurant)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)
	assert.True(t, done.ClearLinkage)
	assert.False(t, done.CreditEarnings)
	require.NotNil(t, cancelled.Cancellation)
	assert.Equal(t, models.ActorRestaurant, cancelled.Cancellation.CancelledBy)
}

func TestCancelDeliveredFails(t *testing.T) {
	ledger, _ := newTestLedger(t)
	order := deliveredOrder(t, ledger)

	_, _, err := ledger.Cancel(context.Background(), order.ID, "too late", models.ActorUser)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func deliveredOrder(t *testing.T, ledger *Ledger) *models.Order {
	t.Helper()
	order, err := ledger.Create(context.Background(), createReq())
	require.NoError(t, err)
	for _, status := range []models.OrderStatus{
		models.OrderStatusConfirmed,
		models.OrderStatusPreparing,
		models.OrderStatusReadyForPickup,
		models.OrderStatusPickedUp,
		models.OrderStatusOnTheWay,
		models.OrderStatusDelivered,
	} {
		order, _, err = ledger.Advance(context.Background(), order.ID, status, "")
		require.NoError(t, err)
	}
	return order
}

func TestRateRequiresDelivered(t *testing.T) {
	ledger, _ := newTestLedger(t)
	order, err := ledger.Create(context.Background(), createReq())
	require.NoError(t, err)

	_, err = ledger.Rate(context.Background(), order.ID, RateRestaurant, 4, "")
	assert.ErrorIs(t, err, models.ErrOrderNotDelivered)
}

func TestRateRestaurantOnce(t *testing.T) {
	ledger, _ := newTestLedger(t)
	order := deliveredOrder(t, ledger)

	update, err := ledger.Rate(context.Background(), order.ID, RateRestaurant, 4, "good")
	require.NoError(t, err)
	assert.Equal(t, 4.0, update.NewAverage)
	assert.Equal(t, 1, update.NewCount)

	_, err = ledger.Rate(context.Background(), order.ID, RateRestaurant, 5, "even better")
	assert.ErrorIs(t, err, models.ErrAlreadyRated)
}

func TestRateRunningAverage(t *testing.T) {
	ledger, store := newTestLedger(t)
	restaurant, _ := store.GetRestaurant(context.Background(), "rest-1")
	restaurant.Rating = 4.0
	restaurant.TotalRatings = 3
	require.NoError(t, store.SaveRestaurant(context.Background(), restaurant))

	order := deliveredOrder(t, ledger)
	update, err := ledger.Rate(context.Background(), order.ID, RateRestaurant, 2, "")
	require.NoError(t, err)
	// (4.0*3 + 2) / 4 = 3.5
	assert.Equal(t, 3.5, update.NewAverage)
	assert.Equal(t, 4, update.NewCount)
}

func TestRateRiderWithoutRider(t *testing.T) {
	ledger, _ := newTestLedger(t)
	order := deliveredOrder(t, ledger)

	_, err := ledger.Rate(context.Background(), order.ID, RateRider, 5, "")
	assert.ErrorIs(t, err, models.ErrInvalidTarget)
}

func TestRateBounds(t *testing.T) {
	ledger, _ := newTestLedger(t)
	order := deliveredOrder(t, ledger)

	for _, bad := range []int{0, 6, -1} {
		_, err := ledger.Rate(context.Background(), order.ID, RateRestaurant, bad, "")
		assert.ErrorIs(t, err, models.ErrInvalidRating)
	}
}

func TestRecordPayment(t *testing.T) {
	ledger, _ := newTestLedger(t)
	order, err := ledger.Create(context.Background(), createReq())
	require.NoError(t, err)

	updated, err := ledger.RecordPayment(context.Background(), order.ID, models.PaymentMethodCard, models.PaymentStatusCompleted, "tx-42")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, updated.Payment.Status)
	assert.Equal(t, "tx-42", updated.Payment.TransactionID)
}

func TestMonetaryFieldsNeverChange(t *testing.T) {
	ledger, _ := newTestLedger(t)
	order := deliveredOrder(t, ledger)

	assert.Equal(t, 20.0, order.Subtotal)
	assert.Equal(t, 3.0, order.DeliveryFee)
	assert.Equal(t, 2.0, order.Tax)
	assert.Equal(t, 25.0, order.Total)
}

func TestAdvanceMissingOrder(t *testing.T) {
	ledger, _ := newTestLedger(t)
	_, _, err := ledger.Advance(context.Background(), "nope", models.OrderStatusConfirmed, "")
	assert.True(t, errors.Is(err, models.ErrOrderNotFound))
}
