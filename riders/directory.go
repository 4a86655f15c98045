// Package riders tracks which riders can be offered a delivery and owns
// the rider side of the assignment lifecycle.
package riders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"quickbite/api/geo"
	"quickbite/api/models"
	"quickbite/api/storage"
)

type Directory struct {
	store storage.Store
	now   func() time.Time
}

func NewDirectory(store storage.Store) *Directory {
	return &Directory{store: store, now: time.Now}
}

// FindEligible returns every rider that is approved, available, holds no
// active order and is within their own max distance of the delivery point.
// Results are sorted nearest-first; the old assignment loop always picked
// the single nearest courier and this keeps that preference while letting
// every candidate see the offer.
func (d *Directory) FindEligible(ctx context.Context, deliveryPoint geo.Coordinate) ([]*models.Rider, error) {
	all, err := d.store.Riders(ctx)
	if err != nil {
		return nil, err
	}

	type candidate struct {
		rider *models.Rider
		dist  float64
	}
	var eligible []candidate
	for _, r := range all {
		if r.Status != models.RiderStatusApproved || !r.IsAvailable || r.ActiveOrderID != "" {
			continue
		}
		dist := geo.DistanceKm(r.CurrentLocation, deliveryPoint)
		if dist > r.MaxDistanceKm {
			continue
		}
		eligible = append(eligible, candidate{rider: r, dist: dist})
	}

	sort.Slice(eligible, func(i, j int) bool { return eligible[i].dist < eligible[j].dist })

	out := make([]*models.Rider, len(eligible))
	for i, c := range eligible {
		out[i] = c.rider
	}
	return out, nil
}

// Bind assigns the rider to the order. Both sides are guarded by
// conditional claims: the order claim is taken first, then the rider
// claim; if the rider claim fails the order claim is released so another
// rider can still win. Exactly one acceptance succeeds under contention.
func (d *Directory) Bind(ctx context.Context, riderID, orderID string) (*models.Rider, error) {
	if err := d.store.ClaimOrder(ctx, orderID, riderID); err != nil {
		return nil, err
	}
	if err := d.store.ClaimRider(ctx, riderID, orderID); err != nil {
		if relErr := d.store.ReleaseOrderClaim(ctx, orderID); relErr != nil {
			return nil, errors.Join(err, relErr)
		}
		return nil, err
	}

	rider, err := d.store.GetRider(ctx, riderID)
	if err != nil {
		return nil, errors.Join(err, d.releaseClaims(ctx, riderID, orderID))
	}
	order, err := d.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, errors.Join(err, d.releaseClaims(ctx, riderID, orderID))
	}
	// The order may have gone terminal between the acceptance read and the
	// claim, for example a sweep cancellation. Never bind to it.
	if order.Status.Terminal() {
		if relErr := d.releaseClaims(ctx, riderID, orderID); relErr != nil {
			return nil, relErr
		}
		return nil, fmt.Errorf("%w: order is %s", models.ErrInvalidTransition, order.Status)
	}

	rider.ActiveOrderID = orderID
	order.RiderID = riderID
	order.UpdatedAt = d.now()

	if err := d.store.SaveRider(ctx, rider); err != nil {
		return nil, err
	}
	if err := d.store.SaveOrder(ctx, order); err != nil {
		return nil, err
	}
	return rider, nil
}

// Release clears the rider's active order, records it in their history and
// credits earnings when a completion amount is given (delivery only;
// cancellations release with zero).
func (d *Directory) Release(ctx context.Context, riderID, orderID string, earnings float64) error {
	rider, err := d.store.GetRider(ctx, riderID)
	if err != nil {
		return err
	}

	rider.ActiveOrderID = ""
	rider.OrderHistory = append(rider.OrderHistory, orderID)
	if earnings > 0 {
		rider.Earnings.History = append(rider.Earnings.History, models.Earning{
			OrderID: orderID,
			Amount:  earnings,
			Date:    d.now(),
		})
		rider.Earnings.Total += earnings
		rider.Earnings.Pending += earnings
	}

	if err := d.store.SaveRider(ctx, rider); err != nil {
		return err
	}
	return d.releaseClaims(ctx, riderID, orderID)
}

// releaseClaims frees both sides of a binding. Claims on terminal orders
// must not linger, the claim hash is not expired any other way.
func (d *Directory) releaseClaims(ctx context.Context, riderID, orderID string) error {
	return errors.Join(
		d.store.ReleaseOrderClaim(ctx, orderID),
		d.store.ReleaseRiderClaim(ctx, riderID),
	)
}

// LocationUpdate reports where a location change has to be mirrored.
type LocationUpdate struct {
	// OrderID is non-empty when the rider is en route with an order and
	// the order room should receive a location_update.
	OrderID  string
	Location geo.Coordinate
}

// UpdateLocation stores the rider's position. While the rider is en route
// with an active order the snapshot is mirrored onto the order record too.
// The mirror is a conditional store operation, never a read-modify-write,
// so it cannot clobber a status transition that lands in between.
func (d *Directory) UpdateLocation(ctx context.Context, riderID string, loc geo.Coordinate) (LocationUpdate, error) {
	rider, err := d.store.GetRider(ctx, riderID)
	if err != nil {
		return LocationUpdate{}, err
	}
	rider.CurrentLocation = loc
	if err := d.store.SaveRider(ctx, rider); err != nil {
		return LocationUpdate{}, err
	}

	update := LocationUpdate{Location: loc}
	if rider.ActiveOrderID == "" {
		return update, nil
	}

	applied, err := d.store.UpdateOrderLocation(ctx, rider.ActiveOrderID, loc)
	if err != nil {
		return LocationUpdate{}, err
	}
	if applied {
		update.OrderID = rider.ActiveOrderID
	}
	return update, nil
}

func (d *Directory) SetAvailability(ctx context.Context, riderID string, available bool) error {
	rider, err := d.store.GetRider(ctx, riderID)
	if err != nil {
		return err
	}
	rider.IsAvailable = available
	return d.store.SaveRider(ctx, rider)
}

func (d *Directory) Get(ctx context.Context, riderID string) (*models.Rider, error) {
	return d.store.GetRider(ctx, riderID)
}
