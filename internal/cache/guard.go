package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/Domenick1991/cargobooking/config"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Outcome is the result of every lock and cache call. Callers never see
// redis errors directly.
type Outcome int

const (
	// Ok: the operation ran and produced a value (lock acquired, cache hit).
	Ok Outcome = iota
	// Miss: redis answered but there was nothing to use (key absent on get,
	// key already held on lock acquire).
	Miss
	// Unavailable: redis could not be reached. Lock and cache degrade to
	// "no lock" and "always miss".
	Unavailable
)

func (o Outcome) String() string {
	switch o {
	case Ok:
		return "ok"
	case Miss:
		return "miss"
	default:
		return "unavailable"
	}
}

func NewClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  time.Second,
		ReadTimeout:  cfg.OpTimeout(),
		WriteTimeout: cfg.OpTimeout(),
		MaxRetries:   1,
	})
}

// Guard is the fail-open policy shared by the lock and the cache: it bounds
// each redis call, classifies the result into an Outcome and tracks whether
// redis is currently reachable.
type Guard struct {
	client    redis.UniversalClient
	opTimeout time.Duration
	available atomic.Bool
}

func NewGuard(client redis.UniversalClient, opTimeout time.Duration) *Guard {
	g := &Guard{client: client, opTimeout: opTimeout}
	g.available.Store(client != nil)
	return g
}

// IsAvailable reports the last observed reachability of redis.
func (g *Guard) IsAvailable() bool {
	return g != nil && g.available.Load()
}

// Do runs fn against redis. A nil guard or client is always Unavailable.
func (g *Guard) Do(ctx context.Context, op string, fn func(ctx context.Context, client redis.UniversalClient) error) Outcome {
	if g == nil || g.client == nil {
		return Unavailable
	}
	opCtx := ctx
	if g.opTimeout > 0 {
		var cancel context.CancelFunc
		opCtx, cancel = context.WithTimeout(ctx, g.opTimeout)
		defer cancel()
	}
	err := fn(opCtx, g.client)
	if err != nil && ctx.Err() != nil {
		// the caller gave up; says nothing about redis
		return Unavailable
	}
	return g.observe(op, err)
}

func (g *Guard) observe(op string, err error) Outcome {
	switch {
	case err == nil:
		g.markUp()
		return Ok
	case errors.Is(err, redis.Nil):
		g.markUp()
		return Miss
	default:
		g.markDown(op, err)
		return Unavailable
	}
}

func (g *Guard) markUp() {
	if g.available.CompareAndSwap(false, true) {
		log.Info().Msg("redis reachable again, locking and caching resumed")
	}
}

func (g *Guard) markDown(op string, err error) {
	if g.available.CompareAndSwap(true, false) {
		log.Warn().Err(err).Str("op", op).Msg("redis unavailable, continuing without locks and cache")
		return
	}
	log.Debug().Err(err).Str("op", op).Msg("redis still unavailable")
}

// Ping checks reachability and records the result.
func (g *Guard) Ping(ctx context.Context) error {
	if g == nil || g.client == nil {
		return errors.New("redis not configured")
	}
	var pingErr error
	g.Do(ctx, "ping", func(ctx context.Context, client redis.UniversalClient) error {
		pingErr = client.Ping(ctx).Err()
		return pingErr
	})
	return pingErr
}

// Watch pings redis every interval until ctx is done.
func (g *Guard) Watch(ctx context.Context, interval time.Duration) {
	if g == nil || g.client == nil || interval <= 0 {
		return
	}
	_ = g.Ping(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = g.Ping(ctx)
		}
	}
}
