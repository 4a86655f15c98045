// Package storage is the persistence collaborator for the order and
// dispatch core. Records are read and written whole; the only conditional
// primitives are the Claim methods, which back the atomic rider/order
// binding during dispatch.
package storage

import (
	"context"

	"quickbite/api/geo"
	"quickbite/api/models"
)

type OrderStore interface {
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	SaveOrder(ctx context.Context, o *models.Order) error
	// UpdateOrderLocation mirrors the rider's position onto the order,
	// but only while the order is en route. The check and the write are
	// one atomic step, so a concurrent terminal transition can never be
	// overwritten by a stale location save. Reports whether the mirror
	// was applied.
	UpdateOrderLocation(ctx context.Context, orderID string, loc geo.Coordinate) (bool, error)
	// ClaimOrder binds the order to riderID only if no rider holds it yet.
	// Returns models.ErrOrderAlreadyAssigned otherwise.
	ClaimOrder(ctx context.Context, orderID, riderID string) error
	// ReleaseOrderClaim undoes ClaimOrder. Used only to compensate a
	// half-completed bind.
	ReleaseOrderClaim(ctx context.Context, orderID string) error
}

type RiderStore interface {
	GetRider(ctx context.Context, id string) (*models.Rider, error)
	SaveRider(ctx context.Context, r *models.Rider) error
	// Riders returns every rider record. Eligibility filtering happens in
	// the rider directory; the store only provides the scan.
	Riders(ctx context.Context) ([]*models.Rider, error)
	// ClaimRider binds the rider to orderID only if the rider holds no
	// active order. Returns models.ErrRiderAlreadyAssigned otherwise.
	ClaimRider(ctx context.Context, riderID, orderID string) error
	ReleaseRiderClaim(ctx context.Context, riderID string) error
}

type RestaurantStore interface {
	GetRestaurant(ctx context.Context, id string) (*models.Restaurant, error)
	SaveRestaurant(ctx context.Context, r *models.Restaurant) error
}

type CustomerStore interface {
	GetCustomer(ctx context.Context, id string) (*models.Customer, error)
	SaveCustomer(ctx context.Context, c *models.Customer) error
}

// Store bundles all record stores behind one dependency.
type Store interface {
	OrderStore
	RiderStore
	RestaurantStore
	CustomerStore
}
