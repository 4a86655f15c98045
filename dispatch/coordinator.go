// Package dispatch orchestrates the order lifecycle across the ledger,
// the rider directory and the notification hub. It is the only component
// that calls more than one of them in a single operation, and it only
// sends notifications for operations that committed.
package dispatch

import (
	"context"
	"log"
	"math"
	"time"

	"quickbite/api/config"
	"quickbite/api/geo"
	"quickbite/api/models"
	"quickbite/api/notify"
	"quickbite/api/orders"
	"quickbite/api/riders"
	"quickbite/api/storage"
)

// Publisher is the room fan-out contract. notify.Hub satisfies it.
type Publisher interface {
	Publish(room, event string, payload interface{})
}

// Recorder mirrors events.Recorder without importing the package, so
// tests in this package stay broker-free.
type Recorder interface {
	Record(event string, fields map[string]interface{})
}

type Coordinator struct {
	ledger    *orders.Ledger
	directory *riders.Directory
	store     storage.Store
	hub       Publisher
	queue     Queue
	recorder  Recorder
	cfg       config.DispatchConfig
	offers    *offerTable
}

func NewCoordinator(
	ledger *orders.Ledger,
	directory *riders.Directory,
	store storage.Store,
	hub Publisher,
	queue Queue,
	recorder Recorder,
	cfg config.DispatchConfig,
) *Coordinator {
	return &Coordinator{
		ledger:    ledger,
		directory: directory,
		store:     store,
		hub:       hub,
		queue:     queue,
		recorder:  recorder,
		cfg:       cfg,
		offers:    newOfferTable(),
	}
}

// PlaceOrder creates the order, notifies the restaurant and queues the
// order for rider dispatch. Creation failures propagate with no
// notification side effects; a failed enqueue is not fatal because the
// offer watcher re-queues pending offers anyway.
func (c *Coordinator) PlaceOrder(ctx context.Context, req orders.CreateRequest) (*models.Order, error) {
	order, err := c.ledger.Create(ctx, req)
	if err != nil {
		return nil, err
	}

	c.hub.Publish(notify.RestaurantRoom(order.RestaurantID), "new_order", map[string]interface{}{
		"order_id": order.ID,
		"type":     "new_order",
		"total":    order.Total,
	})
	c.recorder.Record("order_created", map[string]interface{}{
		"order_id":      order.ID,
		"restaurant_id": order.RestaurantID,
		"total":         order.Total,
	})

	c.offers.register(order.ID, time.Now().Add(c.cfg.OfferTimeout))
	if err := c.queue.Enqueue(ctx, order.ID); err != nil {
		log.Printf("dispatch: enqueue order %s: %v", order.ID, err)
	}
	return order, nil
}

// DispatchOrder offers the order to every eligible rider. Invoked by the
// queue consumer, including on requeued offer rounds.
func (c *Coordinator) DispatchOrder(ctx context.Context, orderID string) error {
	order, err := c.ledger.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status.Terminal() || order.RiderID != "" {
		c.offers.clear(orderID)
		return nil
	}

	eligible, err := c.directory.FindEligible(ctx, order.DeliveryAddress.Coordinates)
	if err != nil {
		return err
	}
	for _, rider := range eligible {
		c.hub.Publish(notify.RiderRoom(rider.ID), "order_request", map[string]interface{}{
			"order_id": order.ID,
			"type":     "order_request",
		})
	}
	c.recorder.Record("order_dispatched", map[string]interface{}{
		"order_id": order.ID,
		"offered":  len(eligible),
	})
	return nil
}

// Run consumes the dispatch queue until ctx is cancelled.
func (c *Coordinator) Run(ctx context.Context) error {
	return c.queue.Consume(ctx, func(orderID string) {
		if err := c.DispatchOrder(ctx, orderID); err != nil {
			log.Printf("dispatch: order %s: %v", orderID, err)
		}
	})
}

// AcceptOrder binds the rider to the order. Under contention exactly one
// rider wins; losers get the conflict error back with no notification
// side effects.
func (c *Coordinator) AcceptOrder(ctx context.Context, riderID, orderID string) (*models.Order, error) {
	order, err := c.ledger.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status.Terminal() {
		return nil, models.ErrInvalidTransition
	}

	rider, err := c.directory.Bind(ctx, riderID, orderID)
	if err != nil {
		return nil, err
	}
	c.offers.clear(orderID)

	payload := map[string]interface{}{
		"order_id": orderID,
		"rider":    rider.Profile(),
	}
	c.hub.Publish(notify.UserRoom(order.CustomerID), "rider_assigned", payload)
	c.hub.Publish(notify.RestaurantRoom(order.RestaurantID), "rider_assigned", payload)
	c.recorder.Record("rider_assigned", map[string]interface{}{
		"order_id": orderID,
		"rider_id": riderID,
	})

	return c.ledger.Get(ctx, orderID)
}

// TransitionOrder advances the order status and fans out the
// notifications for the new state. Terminal transitions also release the
// rider and the restaurant's active-order linkage.
func (c *Coordinator) TransitionOrder(ctx context.Context, orderID string, target models.OrderStatus, note string, actor models.ActorKind) (*models.Order, error) {
	var (
		order *models.Order
		done  orders.Completion
		err   error
	)
	if target == models.OrderStatusCancelled {
		order, done, err = c.ledger.Cancel(ctx, orderID, note, actor)
	} else {
		order, done, err = c.ledger.Advance(ctx, orderID, target, note)
	}
	if err != nil {
		return nil, err
	}

	c.hub.Publish(notify.OrderRoom(order.ID), "status_update", map[string]interface{}{
		"order_id": order.ID,
		"status":   order.Status,
	})

	switch order.Status {
	case models.OrderStatusConfirmed:
		c.hub.Publish(notify.UserRoom(order.CustomerID), "order_update", map[string]interface{}{
			"order_id": order.ID,
			"status":   order.Status,
		})
	case models.OrderStatusReadyForPickup:
		if order.RiderID != "" {
			c.hub.Publish(notify.RiderRoom(order.RiderID), "order_update", map[string]interface{}{
				"order_id": order.ID,
				"status":   order.Status,
			})
		}
	}

	if done.ClearLinkage {
		c.clearLinkage(ctx, order, done.CreditEarnings)
		c.offers.clear(order.ID)
	}

	c.recorder.Record("order_"+string(order.Status), map[string]interface{}{
		"order_id": order.ID,
		"actor":    string(actor),
	})
	return order, nil
}

// clearLinkage moves the order out of the restaurant's active set and
// releases the rider, crediting the delivery share only on delivery.
// Failures here are logged, not propagated: the status transition already
// committed.
func (c *Coordinator) clearLinkage(ctx context.Context, order *models.Order, credit bool) {
	if restaurant, err := c.store.GetRestaurant(ctx, order.RestaurantID); err == nil {
		restaurant.ActiveOrders = remove(restaurant.ActiveOrders, order.ID)
		restaurant.OrderHistory = append(restaurant.OrderHistory, order.ID)
		if err := c.store.SaveRestaurant(ctx, restaurant); err != nil {
			log.Printf("dispatch: clear restaurant %s: %v", order.RestaurantID, err)
		}
	} else {
		log.Printf("dispatch: clear restaurant %s: %v", order.RestaurantID, err)
	}

	if order.RiderID == "" {
		return
	}
	var earnings float64
	if credit {
		earnings = math.Round(order.DeliveryFee*c.cfg.EarningsShare*100) / 100
	}
	if err := c.directory.Release(ctx, order.RiderID, order.ID, earnings); err != nil {
		log.Printf("dispatch: release rider %s: %v", order.RiderID, err)
	}
}

func remove(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// RatingInput is one party's rating in a RateOrder call.
type RatingInput struct {
	Rating int    `json:"rating"`
	Review string `json:"review"`
}

type RateRequest struct {
	Restaurant *RatingInput `json:"restaurant,omitempty"`
	Rider      *RatingInput `json:"rider,omitempty"`
}

// RateOrder applies the provided ratings through the ledger, then writes
// the returned running averages onto the rated records.
func (c *Coordinator) RateOrder(ctx context.Context, orderID string, req RateRequest) error {
	if req.Restaurant != nil {
		update, err := c.ledger.Rate(ctx, orderID, orders.RateRestaurant, req.Restaurant.Rating, req.Restaurant.Review)
		if err != nil {
			return err
		}
		restaurant, err := c.store.GetRestaurant(ctx, update.EntityID)
		if err != nil {
			return err
		}
		restaurant.Rating = update.NewAverage
		restaurant.TotalRatings = update.NewCount
		if err := c.store.SaveRestaurant(ctx, restaurant); err != nil {
			return err
		}
	}
	if req.Rider != nil {
		update, err := c.ledger.Rate(ctx, orderID, orders.RateRider, req.Rider.Rating, req.Rider.Review)
		if err != nil {
			return err
		}
		rider, err := c.store.GetRider(ctx, update.EntityID)
		if err != nil {
			return err
		}
		rider.Rating = update.NewAverage
		rider.TotalRatings = update.NewCount
		if err := c.store.SaveRider(ctx, rider); err != nil {
			return err
		}
	}
	return nil
}

// UpdateRiderLocation stores the rider's position and, while they are en
// route, streams it to the order's tracking room.
func (c *Coordinator) UpdateRiderLocation(ctx context.Context, riderID string, loc geo.Coordinate) error {
	update, err := c.directory.UpdateLocation(ctx, riderID, loc)
	if err != nil {
		return err
	}
	if update.OrderID != "" {
		c.hub.Publish(notify.OrderRoom(update.OrderID), "location_update", map[string]interface{}{
			"order_id": update.OrderID,
			"location": update.Location,
		})
	}
	return nil
}

// RecordPayment updates the order's payment record; a completed payment
// notifies the restaurant.
func (c *Coordinator) RecordPayment(ctx context.Context, orderID string, method models.PaymentMethod, status models.PaymentStatus, transactionID string) (*models.Order, error) {
	order, err := c.ledger.RecordPayment(ctx, orderID, method, status, transactionID)
	if err != nil {
		return nil, err
	}
	if status == models.PaymentStatusCompleted {
		c.hub.Publish(notify.RestaurantRoom(order.RestaurantID), "payment_update", map[string]interface{}{
			"order_id": order.ID,
			"status":   status,
		})
		c.recorder.Record("payment_completed", map[string]interface{}{
			"order_id": order.ID,
			"amount":   order.Total,
		})
	}
	return order, nil
}
