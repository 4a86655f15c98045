// Package orders owns the order record: pricing at creation, the status
// state machine with its append-only history, ratings and payment records.
// It knows nothing about dispatch or notifications; the coordinator reacts
// to the signals it returns.
package orders

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"quickbite/api/config"
	"quickbite/api/models"
	"quickbite/api/storage"
)

type Ledger struct {
	store storage.Store
	cfg   config.DispatchConfig
	now   func() time.Time
}

func NewLedger(store storage.Store, cfg config.DispatchConfig) *Ledger {
	return &Ledger{store: store, cfg: cfg, now: time.Now}
}

// Completion tells the coordinator what to unwind after a terminal
// transition.
type Completion struct {
	// ClearLinkage is set when the order left the active set and the
	// restaurant/rider references should be released.
	ClearLinkage bool
	// CreditEarnings is set only for delivered, never for cancelled.
	CreditEarnings bool
}

// RatingTarget selects which party of the order a rating applies to.
type RatingTarget string

const (
	RateRestaurant RatingTarget = "restaurant"
	RateRider      RatingTarget = "rider"
)

// AggregateUpdate is the running-average instruction returned by Rate.
// The ledger computes it but persisting it into the rated entity is the
// caller's job.
type AggregateUpdate struct {
	Target     RatingTarget
	EntityID   string
	NewAverage float64
	NewCount   int
}

type CreateRequest struct {
	CustomerID      string
	RestaurantID    string
	Items           []models.OrderItem
	DeliveryAddress models.Address
	PaymentMethod   models.PaymentMethod
	Notes           string
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// Create validates the request against the restaurant, prices the order
// and persists it with its initial pending history entry. The order is
// also appended to the restaurant's active set and the customer's history.
func (l *Ledger) Create(ctx context.Context, req CreateRequest) (*models.Order, error) {
	restaurant, err := l.store.GetRestaurant(ctx, req.RestaurantID)
	if err != nil {
		return nil, err
	}
	if !restaurant.IsOpen {
		return nil, models.ErrRestaurantClosed
	}

	var subtotal float64
	for _, item := range req.Items {
		subtotal += item.LineTotal()
	}
	subtotal = roundCents(subtotal)
	if subtotal < restaurant.MinimumOrder {
		return nil, fmt.Errorf("%w: %.2f < %.2f", models.ErrBelowMinimumOrder, subtotal, restaurant.MinimumOrder)
	}

	now := l.now()
	tax := roundCents(subtotal * l.cfg.TaxRate)
	order := &models.Order{
		ID:           uuid.NewString(),
		CustomerID:   req.CustomerID,
		RestaurantID: req.RestaurantID,
		Items:        req.Items,
		Status:       models.OrderStatusPending,
		StatusHistory: []models.StatusEntry{{
			Status:    models.OrderStatusPending,
			Note:      req.Notes,
			Timestamp: now,
		}},
		Subtotal:        subtotal,
		DeliveryFee:     restaurant.DeliveryFee,
		Tax:             tax,
		Total:           roundCents(subtotal + restaurant.DeliveryFee + tax),
		DeliveryAddress: req.DeliveryAddress,
		Payment: models.Payment{
			Method: req.PaymentMethod,
			Status: models.PaymentStatusPending,
		},
		EstimatedDeliveryTime: now.Add(l.cfg.PrepEstimate + l.cfg.DeliveryEstimate),
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	if err := l.store.SaveOrder(ctx, order); err != nil {
		return nil, err
	}

	restaurant.ActiveOrders = append(restaurant.ActiveOrders, order.ID)
	if err := l.store.SaveRestaurant(ctx, restaurant); err != nil {
		return nil, err
	}

	// Unknown customer IDs are guests and skip the history append; any
	// other lookup failure is a store fault and propagates.
	customer, err := l.store.GetCustomer(ctx, req.CustomerID)
	switch {
	case err == nil:
		customer.OrderHistory = append(customer.OrderHistory, order.ID)
		if err := l.store.SaveCustomer(ctx, customer); err != nil {
			return nil, err
		}
	case !errors.Is(err, models.ErrCustomerNotFound):
		return nil, err
	}

	return order, nil
}

func (l *Ledger) Get(ctx context.Context, orderID string) (*models.Order, error) {
	return l.store.GetOrder(ctx, orderID)
}

// Advance moves the order one hop along the status graph and appends the
// history entry. Terminal statuses stamp their timestamps and report what
// the coordinator must unwind.
func (l *Ledger) Advance(ctx context.Context, orderID string, target models.OrderStatus, note string) (*models.Order, Completion, error) {
	order, err := l.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, Completion{}, err
	}
	if !order.Status.CanTransition(target) {
		return nil, Completion{}, fmt.Errorf("%w: %s -> %s", models.ErrInvalidTransition, order.Status, target)
	}

	now := l.now()
	order.Status = target
	order.StatusHistory = append(order.StatusHistory, models.StatusEntry{
		Status:    target,
		Note:      note,
		Timestamp: now,
	})
	order.UpdatedAt = now

	var done Completion
	switch target {
	case models.OrderStatusDelivered:
		order.ActualDeliveryTime = &now
		done = Completion{ClearLinkage: true, CreditEarnings: true}
	case models.OrderStatusCancelled:
		done = Completion{ClearLinkage: true}
	}

	if err := l.store.SaveOrder(ctx, order); err != nil {
		return nil, Completion{}, err
	}
	return order, done, nil
}

// Cancel is the cancelled transition plus the cancellation record.
func (l *Ledger) Cancel(ctx context.Context, orderID, reason string, by models.ActorKind) (*models.Order, Completion, error) {
	order, err := l.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, Completion{}, err
	}
	if !order.Status.CanTransition(models.OrderStatusCancelled) {
		return nil, Completion{}, fmt.Errorf("%w: %s -> cancelled", models.ErrInvalidTransition, order.Status)
	}

	now := l.now()
	order.Status = models.OrderStatusCancelled
	order.StatusHistory = append(order.StatusHistory, models.StatusEntry{
		Status:    models.OrderStatusCancelled,
		Note:      reason,
		Timestamp: now,
	})
	order.Cancellation = &models.Cancellation{
		Reason:      reason,
		CancelledBy: by,
		Timestamp:   now,
	}
	order.UpdatedAt = now

	if err := l.store.SaveOrder(ctx, order); err != nil {
		return nil, Completion{}, err
	}
	return order, Completion{ClearLinkage: true}, nil
}

// Rate records a rating on a delivered order. Each target can be rated
// once. The returned instruction carries the rated entity's new running
// average; the ledger does not write the entity itself.
func (l *Ledger) Rate(ctx context.Context, orderID string, target RatingTarget, rating int, review string) (AggregateUpdate, error) {
	if rating < 1 || rating > 5 {
		return AggregateUpdate{}, models.ErrInvalidRating
	}
	order, err := l.store.GetOrder(ctx, orderID)
	if err != nil {
		return AggregateUpdate{}, err
	}
	if order.Status != models.OrderStatusDelivered {
		return AggregateUpdate{}, models.ErrOrderNotDelivered
	}

	entry := &models.Rating{Rating: rating, Review: review, Timestamp: l.now()}
	var update AggregateUpdate

	switch target {
	case RateRestaurant:
		if order.RestaurantRating != nil {
			return AggregateUpdate{}, models.ErrAlreadyRated
		}
		restaurant, err := l.store.GetRestaurant(ctx, order.RestaurantID)
		if err != nil {
			return AggregateUpdate{}, err
		}
		order.RestaurantRating = entry
		update = aggregate(RateRestaurant, restaurant.ID, restaurant.Rating, restaurant.TotalRatings, rating)
	case RateRider:
		if order.RiderID == "" {
			return AggregateUpdate{}, models.ErrInvalidTarget
		}
		if order.RiderRating != nil {
			return AggregateUpdate{}, models.ErrAlreadyRated
		}
		rider, err := l.store.GetRider(ctx, order.RiderID)
		if err != nil {
			return AggregateUpdate{}, err
		}
		order.RiderRating = entry
		update = aggregate(RateRider, rider.ID, rider.Rating, rider.TotalRatings, rating)
	default:
		return AggregateUpdate{}, models.ErrInvalidTarget
	}

	order.UpdatedAt = l.now()
	if err := l.store.SaveOrder(ctx, order); err != nil {
		return AggregateUpdate{}, err
	}
	return update, nil
}

func aggregate(target RatingTarget, entityID string, oldAvg float64, oldCount, rating int) AggregateUpdate {
	return AggregateUpdate{
		Target:     target,
		EntityID:   entityID,
		NewAverage: (oldAvg*float64(oldCount) + float64(rating)) / float64(oldCount+1),
		NewCount:   oldCount + 1,
	}
}

// RecordPayment overwrites the payment sub-record. The caller notifies the
// restaurant when the status lands on completed.
func (l *Ledger) RecordPayment(ctx context.Context, orderID string, method models.PaymentMethod, status models.PaymentStatus, transactionID string) (*models.Order, error) {
	order, err := l.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	order.Payment = models.Payment{
		Method:        method,
		Status:        status,
		TransactionID: transactionID,
	}
	order.UpdatedAt = l.now()
	if err := l.store.SaveOrder(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}
