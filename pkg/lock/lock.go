// Package lock keeps two generation runs from working on the same week at the same time
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jakechorley/caregiver-planner/pkg/core/calendar"
	"github.com/jakechorley/caregiver-planner/pkg/core/model"
)

// ErrLocked is returned when another holder owns the lock
var ErrLocked = errors.New("lock is held by another run")

// DefaultTTL bounds how long a crashed holder can block the week
const DefaultTTL = 5 * time.Minute

const keyPrefix = "planner:week-lock:"

// Lease is a held lock
type Lease interface {
	Release(ctx context.Context) error
}

// Locker takes the lock for the week containing a date
type Locker interface {
	LockWeek(ctx context.Context, day time.Time) (Lease, error)
}

// WeekKey returns the lock key of the week containing day
func WeekKey(day time.Time) string {
	return keyPrefix + calendar.StartOfWeek(day).Format(model.DateLayout)
}

// releaseScript deletes the key only if it still holds our token
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements Locker with SET NX PX and a compare-and-delete release
type RedisLocker struct {
	rdb    goredis.UniversalClient
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisLocker creates a RedisLocker. A non-positive ttl uses DefaultTTL.
func NewRedisLocker(rdb goredis.UniversalClient, ttl time.Duration, logger *zap.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisLocker{rdb: rdb, ttl: ttl, logger: logger}
}

// Connect opens a Redis client and checks it with a ping
func Connect(ctx context.Context, addr string) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return rdb, nil
}

func (l *RedisLocker) LockWeek(ctx context.Context, day time.Time) (Lease, error) {
	key := WeekKey(day)
	token := uuid.NewString()

	ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, ErrLocked)
	}

	l.logger.Debug("Acquired week lock", zap.String("key", key), zap.Duration("ttl", l.ttl))
	return &redisLease{locker: l, key: key, token: token}, nil
}

type redisLease struct {
	locker *RedisLocker
	key    string
	token  string
}

func (r *redisLease) Release(ctx context.Context) error {
	deleted, err := releaseScript.Run(ctx, r.locker.rdb, []string{r.key}, r.token).Int()
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", r.key, err)
	}
	if deleted == 0 {
		// Expired and possibly taken by someone else, leave it alone
		r.locker.logger.Warn("Week lock expired before release", zap.String("key", r.key))
		return nil
	}

	r.locker.logger.Debug("Released week lock", zap.String("key", r.key))
	return nil
}

// NopLocker always grants the lock. Used when no Redis address is configured.
type NopLocker struct{}

func (NopLocker) LockWeek(ctx context.Context, day time.Time) (Lease, error) {
	return nopLease{}, nil
}

type nopLease struct{}

func (nopLease) Release(ctx context.Context) error { return nil }
