package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Domenick1991/cargobooking/internal/domain"
	"github.com/Domenick1991/cargobooking/internal/metrics"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const DefaultBookingTTL = 300 * time.Second

// RedisCache is a disposable projection store. Every method is best-effort:
// failures come back as Miss/Unavailable or false, never as errors.
type RedisCache struct {
	guard      *Guard
	bookingTTL time.Duration
	routeTTL   time.Duration
}

func NewRedisCache(guard *Guard, bookingTTL, routeTTL time.Duration) *RedisCache {
	if bookingTTL <= 0 {
		bookingTTL = DefaultBookingTTL
	}
	return &RedisCache{guard: guard, bookingTTL: bookingTTL, routeTTL: routeTTL}
}

func BookingKey(refID string) string {
	return "booking:" + refID
}

func RouteKey(origin, destination, date string) string {
	return fmt.Sprintf("route:%s:%s:%s", origin, destination, date)
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, Outcome) {
	var data []byte
	outcome := c.guard.Do(ctx, "cache.get", func(ctx context.Context, client redis.UniversalClient) error {
		var err error
		data, err = client.Get(ctx, key).Bytes()
		return err
	})
	if outcome != Ok {
		return nil, outcome
	}
	return data, Ok
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) bool {
	return c.guard.Do(ctx, "cache.set", func(ctx context.Context, client redis.UniversalClient) error {
		return client.Set(ctx, key, value, ttl).Err()
	}) == Ok
}

func (c *RedisCache) Delete(ctx context.Context, key string) bool {
	return c.guard.Do(ctx, "cache.delete", func(ctx context.Context, client redis.UniversalClient) error {
		return client.Del(ctx, key).Err()
	}) == Ok
}

func (c *RedisCache) GetBooking(ctx context.Context, refID string) (*domain.BookingView, Outcome) {
	var view domain.BookingView
	outcome := c.getJSON(ctx, "booking", BookingKey(refID), &view, func() bool {
		return view.RefID == refID && len(view.Events) > 0
	})
	if outcome != Ok {
		return nil, outcome
	}
	return &view, Ok
}

func (c *RedisCache) SetBooking(ctx context.Context, view *domain.BookingView) bool {
	return c.setJSON(ctx, BookingKey(view.RefID), view, c.bookingTTL)
}

func (c *RedisCache) InvalidateBooking(ctx context.Context, refID string) bool {
	ok := c.Delete(ctx, BookingKey(refID))
	if ok {
		log.Debug().Str("ref_id", refID).Msg("booking cache invalidated")
	}
	return ok
}

func (c *RedisCache) GetRoute(ctx context.Context, origin, destination, date string) (*domain.Route, Outcome) {
	var route domain.Route
	outcome := c.getJSON(ctx, "route", RouteKey(origin, destination, date), &route, nil)
	if outcome != Ok {
		return nil, outcome
	}
	return &route, Ok
}

func (c *RedisCache) SetRoute(ctx context.Context, origin, destination, date string, route *domain.Route) bool {
	if c.routeTTL <= 0 {
		return false
	}
	return c.setJSON(ctx, RouteKey(origin, destination, date), route, c.routeTTL)
}

// getJSON treats undecodable content, or content valid rejects, as a miss
// so a corrupt entry falls through to the store instead of failing the request.
func (c *RedisCache) getJSON(ctx context.Context, kind, key string, dst any, valid func() bool) Outcome {
	data, outcome := c.Get(ctx, key)
	if outcome == Ok {
		if err := json.Unmarshal(data, dst); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("discarding undecodable cache entry")
			outcome = Miss
		} else if valid != nil && !valid() {
			log.Warn().Str("key", key).Msg("discarding inconsistent cache entry")
			outcome = Miss
		}
	}

	switch outcome {
	case Ok:
		metrics.RecordCacheLookup(kind, "hit")
		log.Debug().Str("key", key).Msg("cache hit")
	case Miss:
		metrics.RecordCacheLookup(kind, "miss")
		log.Debug().Str("key", key).Msg("cache miss")
	default:
		metrics.RecordCacheLookup(kind, "unavailable")
	}
	return outcome
}

func (c *RedisCache) setJSON(ctx context.Context, key string, value any, ttl time.Duration) bool {
	payload, err := json.Marshal(value)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache encode failed")
		return false
	}
	return c.Set(ctx, key, payload, ttl)
}
