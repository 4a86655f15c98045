package models

import (
	"time"

	"quickbite/api/geo"
)

type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusConfirmed      OrderStatus = "confirmed"
	OrderStatusPreparing      OrderStatus = "preparing"
	OrderStatusReadyForPickup OrderStatus = "ready_for_pickup"
	OrderStatusPickedUp       OrderStatus = "picked_up"
	OrderStatusOnTheWay       OrderStatus = "on_the_way"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

// statusGraph lists the single valid successor of each non-terminal status.
// cancelled is reachable from any non-terminal status and is handled in
// CanTransition rather than listed per edge.
var statusGraph = map[OrderStatus]OrderStatus{
	OrderStatusPending:        OrderStatusConfirmed,
	OrderStatusConfirmed:      OrderStatusPreparing,
	OrderStatusPreparing:      OrderStatusReadyForPickup,
	OrderStatusReadyForPickup: OrderStatusPickedUp,
	OrderStatusPickedUp:       OrderStatusOnTheWay,
	OrderStatusOnTheWay:       OrderStatusDelivered,
}

// Terminal reports whether a status has no outgoing transitions.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransition reports whether target is reachable from s in one hop.
func (s OrderStatus) CanTransition(target OrderStatus) bool {
	if s.Terminal() {
		return false
	}
	if target == OrderStatusCancelled {
		return true
	}
	return statusGraph[s] == target
}

type PaymentMethod string

const (
	PaymentMethodCard PaymentMethod = "card"
	PaymentMethodCash PaymentMethod = "cash"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// ActorKind identifies who triggered an action on an order.
type ActorKind string

const (
	ActorUser       ActorKind = "user"
	ActorRestaurant ActorKind = "restaurant"
	ActorRider      ActorKind = "rider"
	ActorSystem     ActorKind = "system"
)

type Customization struct {
	Name   string  `json:"name"`
	Option string  `json:"option"`
	Price  float64 `json:"price"`
}

type OrderItem struct {
	MenuItemID          string          `json:"menu_item_id"`
	Name                string          `json:"name"`
	Quantity            int             `json:"quantity"`
	UnitPrice           float64         `json:"unit_price"`
	Customizations      []Customization `json:"customizations,omitempty"`
	SpecialInstructions string          `json:"special_instructions,omitempty"`
}

// LineTotal is the item price including customizations, times quantity.
func (i OrderItem) LineTotal() float64 {
	price := i.UnitPrice
	for _, c := range i.Customizations {
		price += c.Price
	}
	return price * float64(i.Quantity)
}

type Address struct {
	Street      string         `json:"street"`
	City        string         `json:"city"`
	State       string         `json:"state"`
	ZipCode     string         `json:"zip_code"`
	Coordinates geo.Coordinate `json:"coordinates"`
}

type StatusEntry struct {
	Status    OrderStatus `json:"status"`
	Note      string      `json:"note,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

type Payment struct {
	Method        PaymentMethod `json:"method"`
	Status        PaymentStatus `json:"status"`
	TransactionID string        `json:"transaction_id,omitempty"`
}

type Rating struct {
	Rating    int       `json:"rating"`
	Review    string    `json:"review,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type Cancellation struct {
	Reason      string    `json:"reason"`
	CancelledBy ActorKind `json:"cancelled_by"`
	Timestamp   time.Time `json:"timestamp"`
}

type Order struct {
	ID           string      `json:"id"`
	CustomerID   string      `json:"customer_id"`
	RestaurantID string      `json:"restaurant_id"`
	RiderID      string      `json:"rider_id,omitempty"`
	Items        []OrderItem `json:"items"`

	Status        OrderStatus   `json:"status"`
	StatusHistory []StatusEntry `json:"status_history"`

	Subtotal    float64 `json:"subtotal"`
	DeliveryFee float64 `json:"delivery_fee"`
	Tax         float64 `json:"tax"`
	Total       float64 `json:"total"`

	DeliveryAddress Address `json:"delivery_address"`
	Payment         Payment `json:"payment"`

	RiderLocation *geo.Coordinate `json:"rider_location,omitempty"`

	RestaurantRating *Rating       `json:"restaurant_rating,omitempty"`
	RiderRating      *Rating       `json:"rider_rating,omitempty"`
	Cancellation     *Cancellation `json:"cancellation,omitempty"`

	EstimatedDeliveryTime time.Time  `json:"estimated_delivery_time"`
	ActualDeliveryTime    *time.Time `json:"actual_delivery_time,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// EnRoute reports whether the rider is currently travelling with the order,
// the only window in which rider location snapshots are mirrored onto it.
func (o *Order) EnRoute() bool {
	return o.Status == OrderStatusPickedUp || o.Status == OrderStatusOnTheWay
}
