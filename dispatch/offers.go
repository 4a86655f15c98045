package dispatch

import (
	"context"
	"log"
	"sync"
	"time"

	"quickbite/api/models"
)

// offerTable tracks orders that have been offered to riders but not yet
// accepted. The watcher re-queues expired offers for another dispatch
// round and gives up after MaxOffers rounds.
type offerTable struct {
	mu     sync.Mutex
	offers map[string]*offer
}

type offer struct {
	rounds   int
	deadline time.Time
}

func newOfferTable() *offerTable {
	return &offerTable{offers: make(map[string]*offer)}
}

func (t *offerTable) register(orderID string, deadline time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.offers[orderID] = &offer{rounds: 1, deadline: deadline}
}

func (t *offerTable) clear(orderID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.offers, orderID)
}

// expired returns the IDs whose deadline passed, bumping their round and
// deadline in place. IDs past maxRounds are removed and returned
// separately.
func (t *offerTable) expired(now time.Time, timeout time.Duration, maxRounds int) (requeue, abandon []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, o := range t.offers {
		if now.Before(o.deadline) {
			continue
		}
		if o.rounds >= maxRounds {
			delete(t.offers, id)
			abandon = append(abandon, id)
			continue
		}
		o.rounds++
		o.deadline = now.Add(timeout)
		requeue = append(requeue, id)
	}
	return requeue, abandon
}

func (t *offerTable) pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.offers)
}

// WatchOffers periodically sweeps the offer table: expired offers go back
// on the dispatch queue, exhausted ones are cancelled by the system so
// the customer is not left waiting forever.
func (c *Coordinator) WatchOffers(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			c.sweepOffers(ctx, now)
		}
	}
}

func (c *Coordinator) sweepOffers(ctx context.Context, now time.Time) {
	requeue, abandon := c.offers.expired(now, c.cfg.OfferTimeout, c.cfg.MaxOffers)

	for _, orderID := range requeue {
		c.recorder.Record("offer_timeout", map[string]interface{}{"order_id": orderID})
		if err := c.queue.Enqueue(ctx, orderID); err != nil {
			log.Printf("dispatch: requeue order %s: %v", orderID, err)
		}
	}
	for _, orderID := range abandon {
		// Take the order claim before cancelling. If a rider got there
		// first the claim is theirs and the order is not abandoned after
		// all; holding it ourselves keeps any late acceptance out while
		// the cancellation commits.
		if err := c.store.ClaimOrder(ctx, orderID, string(models.ActorSystem)); err != nil {
			continue
		}
		c.recorder.Record("offer_exhausted", map[string]interface{}{"order_id": orderID})
		if _, err := c.TransitionOrder(ctx, orderID, models.OrderStatusCancelled, "no rider accepted the order", models.ActorSystem); err != nil {
			log.Printf("dispatch: cancel unclaimed order %s: %v", orderID, err)
		}
		if err := c.store.ReleaseOrderClaim(ctx, orderID); err != nil {
			log.Printf("dispatch: release claim on %s: %v", orderID, err)
		}
	}
}

// PendingOffers reports how many orders are waiting for a rider.
func (c *Coordinator) PendingOffers() int {
	return c.offers.pending()
}
