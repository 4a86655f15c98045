package storage

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"quickbite/api/geo"
	"quickbite/api/models"
)

// Memory is an in-process Store used by tests and local runs. All record
// access and both claim tables share one mutex, so claims are trivially
// atomic with respect to each other.
type Memory struct {
	mu          sync.Mutex
	orders      map[string]*models.Order
	riders      map[string]*models.Rider
	restaurants map[string]*models.Restaurant
	customers   map[string]*models.Customer
	orderClaims map[string]string // orderID -> riderID
	riderClaims map[string]string // riderID -> orderID
}

func NewMemory() *Memory {
	return &Memory{
		orders:      make(map[string]*models.Order),
		riders:      make(map[string]*models.Rider),
		restaurants: make(map[string]*models.Restaurant),
		customers:   make(map[string]*models.Customer),
		orderClaims: make(map[string]string),
		riderClaims: make(map[string]string),
	}
}

// clone round-trips src through JSON into dst so callers never share
// record memory with the store.
func clone(src, dst interface{}) {
	b, err := json.Marshal(src)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		panic(err)
	}
}

func (m *Memory) GetOrder(_ context.Context, id string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, models.ErrOrderNotFound
	}
	out := &models.Order{}
	clone(o, out)
	return out, nil
}

func (m *Memory) SaveOrder(_ context.Context, o *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := &models.Order{}
	clone(o, stored)
	m.orders[o.ID] = stored
	return nil
}

func (m *Memory) UpdateOrderLocation(_ context.Context, orderID string, loc geo.Coordinate) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return false, models.ErrOrderNotFound
	}
	if !o.EnRoute() {
		return false, nil
	}
	snapshot := loc
	o.RiderLocation = &snapshot
	o.UpdatedAt = time.Now()
	return true, nil
}

func (m *Memory) ClaimOrder(_ context.Context, orderID, riderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.orderClaims[orderID]; taken {
		return models.ErrOrderAlreadyAssigned
	}
	m.orderClaims[orderID] = riderID
	return nil
}

func (m *Memory) ReleaseOrderClaim(_ context.Context, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.orderClaims, orderID)
	return nil
}

func (m *Memory) GetRider(_ context.Context, id string) (*models.Rider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.riders[id]
	if !ok {
		return nil, models.ErrRiderNotFound
	}
	out := &models.Rider{}
	clone(r, out)
	return out, nil
}

func (m *Memory) SaveRider(_ context.Context, r *models.Rider) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := &models.Rider{}
	clone(r, stored)
	m.riders[r.ID] = stored
	return nil
}

func (m *Memory) Riders(_ context.Context) ([]*models.Rider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Rider, 0, len(m.riders))
	for _, r := range m.riders {
		c := &models.Rider{}
		clone(r, c)
		out = append(out, c)
	}
	return out, nil
}

func (m *Memory) ClaimRider(_ context.Context, riderID, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.riderClaims[riderID]; taken {
		return models.ErrRiderAlreadyAssigned
	}
	m.riderClaims[riderID] = orderID
	return nil
}

func (m *Memory) ReleaseRiderClaim(_ context.Context, riderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.riderClaims, riderID)
	return nil
}

func (m *Memory) GetRestaurant(_ context.Context, id string) (*models.Restaurant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.restaurants[id]
	if !ok {
		return nil, models.ErrRestaurantNotFound
	}
	out := &models.Restaurant{}
	clone(r, out)
	return out, nil
}

func (m *Memory) SaveRestaurant(_ context.Context, r *models.Restaurant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := &models.Restaurant{}
	clone(r, stored)
	m.restaurants[r.ID] = stored
	return nil
}

func (m *Memory) GetCustomer(_ context.Context, id string) (*models.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[id]
	if !ok {
		return nil, models.ErrCustomerNotFound
	}
	out := &models.Customer{}
	clone(c, out)
	return out, nil
}

func (m *Memory) SaveCustomer(_ context.Context, c *models.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := &models.Customer{}
	clone(c, stored)
	m.customers[c.ID] = stored
	return nil
}
