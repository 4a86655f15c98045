package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"quickbite/api/geo"
	"quickbite/api/models"
)

const (
	orderKeyPrefix      = "order:"
	riderKeyPrefix      = "rider:"
	restaurantKeyPrefix = "restaurant:"
	customerKeyPrefix   = "customer:"

	// Claim hashes. HSetNX on these is the compare-and-swap that keeps
	// rider/order binding race-free under concurrent acceptance.
	orderClaimsKey = "dispatch:orders"
	riderClaimsKey = "dispatch:riders"
)

// Redis stores records as JSON blobs keyed by type prefix, the same shape
// the courier registry used before orders moved in here.
type Redis struct {
	rdb *redis.Client
}

func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb}
}

func (s *Redis) getJSON(ctx context.Context, key string, dst interface{}, notFound error) error {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return notFound
	}
	if err != nil {
		return fmt.Errorf("redis get %s: %w", key, err)
	}
	return json.Unmarshal(data, dst)
}

func (s *Redis) setJSON(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *Redis) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	o := &models.Order{}
	if err := s.getJSON(ctx, orderKeyPrefix+id, o, models.ErrOrderNotFound); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Redis) SaveOrder(ctx context.Context, o *models.Order) error {
	return s.setJSON(ctx, orderKeyPrefix+o.ID, o)
}

// UpdateOrderLocation runs the en-route check and the write under WATCH;
// a concurrent status transition aborts the transaction and the update is
// retried against the fresh record.
func (s *Redis) UpdateOrderLocation(ctx context.Context, orderID string, loc geo.Coordinate) (bool, error) {
	key := orderKeyPrefix + orderID
	for attempt := 0; attempt < 3; attempt++ {
		applied := false
		err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if errors.Is(err, redis.Nil) {
				return models.ErrOrderNotFound
			}
			if err != nil {
				return err
			}
			o := &models.Order{}
			if err := json.Unmarshal(data, o); err != nil {
				return err
			}
			if !o.EnRoute() {
				return nil
			}
			snapshot := loc
			o.RiderLocation = &snapshot
			o.UpdatedAt = time.Now()
			out, err := json.Marshal(o)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, out, 0)
				return nil
			})
			if err != nil {
				return err
			}
			applied = true
			return nil
		}, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if errors.Is(err, models.ErrOrderNotFound) {
			return false, err
		}
		if err != nil {
			return false, fmt.Errorf("redis update order location %s: %w", orderID, err)
		}
		return applied, nil
	}
	return false, fmt.Errorf("redis update order location %s: transaction kept failing", orderID)
}

func (s *Redis) ClaimOrder(ctx context.Context, orderID, riderID string) error {
	ok, err := s.rdb.HSetNX(ctx, orderClaimsKey, orderID, riderID).Result()
	if err != nil {
		return fmt.Errorf("redis claim order %s: %w", orderID, err)
	}
	if !ok {
		return models.ErrOrderAlreadyAssigned
	}
	return nil
}

func (s *Redis) ReleaseOrderClaim(ctx context.Context, orderID string) error {
	return s.rdb.HDel(ctx, orderClaimsKey, orderID).Err()
}

func (s *Redis) GetRider(ctx context.Context, id string) (*models.Rider, error) {
	r := &models.Rider{}
	if err := s.getJSON(ctx, riderKeyPrefix+id, r, models.ErrRiderNotFound); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Redis) SaveRider(ctx context.Context, r *models.Rider) error {
	return s.setJSON(ctx, riderKeyPrefix+r.ID, r)
}

// Riders scans every rider record. A keyspace scan is fine at fleet sizes
// this service runs at; the directory filters by distance afterwards.
func (s *Redis) Riders(ctx context.Context) ([]*models.Rider, error) {
	keys, err := s.rdb.Keys(ctx, riderKeyPrefix+"*").Result()
	if err != nil {
		return nil, fmt.Errorf("redis scan riders: %w", err)
	}
	riders := make([]*models.Rider, 0, len(keys))
	for _, key := range keys {
		r := &models.Rider{}
		if err := s.getJSON(ctx, key, r, models.ErrRiderNotFound); err != nil {
			if errors.Is(err, models.ErrRiderNotFound) {
				continue // expired between scan and get
			}
			return nil, err
		}
		riders = append(riders, r)
	}
	return riders, nil
}

func (s *Redis) ClaimRider(ctx context.Context, riderID, orderID string) error {
	ok, err := s.rdb.HSetNX(ctx, riderClaimsKey, riderID, orderID).Result()
	if err != nil {
		return fmt.Errorf("redis claim rider %s: %w", riderID, err)
	}
	if !ok {
		return models.ErrRiderAlreadyAssigned
	}
	return nil
}

func (s *Redis) ReleaseRiderClaim(ctx context.Context, riderID string) error {
	return s.rdb.HDel(ctx, riderClaimsKey, riderID).Err()
}

func (s *Redis) GetRestaurant(ctx context.Context, id string) (*models.Restaurant, error) {
	r := &models.Restaurant{}
	if err := s.getJSON(ctx, restaurantKeyPrefix+id, r, models.ErrRestaurantNotFound); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Redis) SaveRestaurant(ctx context.Context, r *models.Restaurant) error {
	return s.setJSON(ctx, restaurantKeyPrefix+r.ID, r)
}

func (s *Redis) GetCustomer(ctx context.Context, id string) (*models.Customer, error) {
	c := &models.Customer{}
	if err := s.getJSON(ctx, customerKeyPrefix+id, c, models.ErrCustomerNotFound); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Redis) SaveCustomer(ctx context.Context, c *models.Customer) error {
	return s.setJSON(ctx, customerKeyPrefix+c.ID, c)
}
