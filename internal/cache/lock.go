package cache

import (
	"context"
	"time"

	"github.com/Domenick1991/cargobooking/internal/metrics"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const DefaultLockTTL = 5 * time.Second

// releaseScript deletes the lock only while it still carries our token, so
// a holder whose TTL lapsed cannot release the next holder's lock.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

type LockHandle struct {
	Key   string
	Token string
	TTL   time.Duration
}

type Locker struct {
	guard *Guard
	ttl   time.Duration
}

func NewLocker(guard *Guard, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &Locker{guard: guard, ttl: ttl}
}

func LockKey(refID string) string {
	return "lock:booking:" + refID
}

// Acquire tries SET NX PX on the booking's lock key.
//
//	Ok          -> handle returned, caller owns the lock
//	Miss        -> someone else holds it
//	Unavailable -> redis unreachable, caller proceeds unserialized
func (l *Locker) Acquire(ctx context.Context, refID string) (*LockHandle, Outcome) {
	handle := &LockHandle{
		Key:   LockKey(refID),
		Token: uuid.NewString(),
		TTL:   l.ttl,
	}

	var acquired bool
	outcome := l.guard.Do(ctx, "lock.acquire", func(ctx context.Context, client redis.UniversalClient) error {
		var err error
		acquired, err = client.SetNX(ctx, handle.Key, handle.Token, handle.TTL).Result()
		return err
	})
	if outcome == Ok && !acquired {
		outcome = Miss
	}

	switch outcome {
	case Ok:
		metrics.RecordLockAcquisition("acquired")
		log.Debug().Str("ref_id", refID).Dur("ttl", handle.TTL).Msg("booking lock acquired")
		return handle, Ok
	case Miss:
		metrics.RecordLockAcquisition("contended")
		log.Debug().Str("ref_id", refID).Msg("booking lock held by another request")
	default:
		metrics.RecordLockAcquisition("unavailable")
	}
	return nil, outcome
}

// Release is a compare-and-delete. It reports whether this handle's key was
// actually removed; false after TTL expiry or when redis is down.
func (l *Locker) Release(ctx context.Context, handle *LockHandle) bool {
	if handle == nil {
		return false
	}

	var deleted int64
	outcome := l.guard.Do(ctx, "lock.release", func(ctx context.Context, client redis.UniversalClient) error {
		var err error
		deleted, err = releaseScript.Run(ctx, client, []string{handle.Key}, handle.Token).Int64()
		return err
	})
	if outcome == Ok && deleted == 0 {
		log.Warn().Str("key", handle.Key).Msg("booking lock expired before release")
	}
	return outcome == Ok && deleted == 1
}
