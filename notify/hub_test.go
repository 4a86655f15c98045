package notify

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	messages []Event
	fail     bool
}

func (c *fakeConn) WriteJSON(v interface{}) error {
	if c.fail {
		return errors.New("write on closed connection")
	}
	c.messages = append(c.messages, v.(Event))
	return nil
}

func TestPublishReachesAllSubscribers(t *testing.T) {
	hub := NewHub()
	a, b := &fakeConn{}, &fakeConn{}
	hub.Subscribe("conn-a", UserRoom("u1"), a)
	hub.Subscribe("conn-b", UserRoom("u1"), b)

	hub.Publish(UserRoom("u1"), "order_update", map[string]string{"order_id": "o1"})

	require.Len(t, a.messages, 1)
	require.Len(t, b.messages, 1)
	assert.Equal(t, "order_update", a.messages[0].Event)
}

func TestPublishOtherRoomMisses(t *testing.T) {
	hub := NewHub()
	a := &fakeConn{}
	hub.Subscribe("conn-a", UserRoom("u1"), a)

	hub.Publish(UserRoom("u2"), "order_update", nil)
	assert.Empty(t, a.messages)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	hub := NewHub()
	a := &fakeConn{}
	hub.Subscribe("conn-a", OrderRoom("o1"), a)
	hub.Unsubscribe("conn-a", OrderRoom("o1"))

	hub.Publish(OrderRoom("o1"), "location_update", nil)
	assert.Empty(t, a.messages)
	assert.Equal(t, 0, hub.RoomSize(OrderRoom("o1")))
}

func TestConnectionMayJoinManyRooms(t *testing.T) {
	hub := NewHub()
	a := &fakeConn{}
	hub.Subscribe("conn-a", UserRoom("u1"), a)
	hub.Subscribe("conn-a", OrderRoom("o1"), a)

	hub.Publish(UserRoom("u1"), "rider_assigned", nil)
	hub.Publish(OrderRoom("o1"), "status_update", nil)
	assert.Len(t, a.messages, 2)
}

func TestDropClearsAllMemberships(t *testing.T) {
	hub := NewHub()
	a := &fakeConn{}
	hub.Subscribe("conn-a", UserRoom("u1"), a)
	hub.Subscribe("conn-a", OrderRoom("o1"), a)

	hub.Drop("conn-a")

	hub.Publish(UserRoom("u1"), "x", nil)
	hub.Publish(OrderRoom("o1"), "y", nil)
	assert.Empty(t, a.messages)
	assert.Equal(t, 0, hub.ConnCount())
}

func TestWriteFailureDropsConnection(t *testing.T) {
	hub := NewHub()
	broken := &fakeConn{fail: true}
	healthy := &fakeConn{}
	hub.Subscribe("conn-broken", RiderRoom("r1"), broken)
	hub.Subscribe("conn-healthy", RiderRoom("r1"), healthy)

	hub.Publish(RiderRoom("r1"), "order_request", nil)

	assert.Len(t, healthy.messages, 1)
	assert.Equal(t, 1, hub.RoomSize(RiderRoom("r1")))

	// Broken conn is gone; next publish only reaches the healthy one.
	hub.Publish(RiderRoom("r1"), "order_request", nil)
	assert.Len(t, healthy.messages, 2)
}

// overlapConn flags any two writes entering WriteJSON at the same time.
type overlapConn struct {
	active  int32
	overlap int32
	writes  int32
}

func (c *overlapConn) WriteJSON(interface{}) error {
	if atomic.AddInt32(&c.active, 1) > 1 {
		atomic.StoreInt32(&c.overlap, 1)
	}
	time.Sleep(time.Millisecond)
	atomic.AddInt32(&c.active, -1)
	atomic.AddInt32(&c.writes, 1)
	return nil
}

// A conn joined to several rooms gets hit by publishes from several
// goroutines; the hub must serialize the writes per connection.
func TestConcurrentPublishesSerializePerConn(t *testing.T) {
	hub := NewHub()
	conn := &overlapConn{}
	hub.Subscribe("conn-a", UserRoom("u1"), conn)
	hub.Subscribe("conn-a", OrderRoom("o1"), conn)

	const rounds = 20
	var wg sync.WaitGroup
	for i := 0; i < rounds; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			hub.Publish(UserRoom("u1"), "order_update", nil)
		}()
		go func() {
			defer wg.Done()
			hub.Publish(OrderRoom("o1"), "status_update", nil)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(0), atomic.LoadInt32(&conn.overlap), "writes overlapped")
	assert.Equal(t, int32(2*rounds), atomic.LoadInt32(&conn.writes))
}

func TestRoomNames(t *testing.T) {
	assert.Equal(t, "user_1", UserRoom("1"))
	assert.Equal(t, "restaurant_2", RestaurantRoom("2"))
	assert.Equal(t, "rider_3", RiderRoom("3"))
	assert.Equal(t, "order_4", OrderRoom("4"))
}
