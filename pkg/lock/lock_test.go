package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestLocker(t *testing.T, ttl time.Duration) (*miniredis.Miniredis, *RedisLocker) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	return mr, NewRedisLocker(rdb, ttl, zap.NewNop())
}

var wednesday = time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)

func TestWeekKey_UsesMonday(t *testing.T) {
	assert.Equal(t, "planner:week-lock:2025-03-10", WeekKey(wednesday))
	assert.Equal(t, WeekKey(wednesday), WeekKey(wednesday.AddDate(0, 0, 4)))
	assert.NotEqual(t, WeekKey(wednesday), WeekKey(wednesday.AddDate(0, 0, 7)))
}

func TestRedisLocker_AcquireAndRelease(t *testing.T) {
	mr, locker := setupTestLocker(t, time.Minute)
	ctx := context.Background()

	lease, err := locker.LockWeek(ctx, wednesday)
	require.NoError(t, err)
	assert.True(t, mr.Exists("planner:week-lock:2025-03-10"))
	assert.Equal(t, time.Minute, mr.TTL("planner:week-lock:2025-03-10"))

	require.NoError(t, lease.Release(ctx))
	assert.False(t, mr.Exists("planner:week-lock:2025-03-10"))

	// Free again after release
	lease, err = locker.LockWeek(ctx, wednesday)
	require.NoError(t, err)
	require.NoError(t, lease.Release(ctx))
}

func TestRedisLocker_SecondHolderIsRejected(t *testing.T) {
	_, locker := setupTestLocker(t, time.Minute)
	ctx := context.Background()

	lease, err := locker.LockWeek(ctx, wednesday)
	require.NoError(t, err)
	defer lease.Release(ctx)

	_, err = locker.LockWeek(ctx, wednesday.AddDate(0, 0, 1))
	assert.ErrorIs(t, err, ErrLocked)

	// Other weeks are independent
	other, err := locker.LockWeek(ctx, wednesday.AddDate(0, 0, 7))
	require.NoError(t, err)
	require.NoError(t, other.Release(ctx))
}

func TestRedisLocker_ExpiredLeaseDoesNotDeleteNewHolder(t *testing.T) {
	mr, locker := setupTestLocker(t, time.Minute)
	ctx := context.Background()

	first, err := locker.LockWeek(ctx, wednesday)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	second, err := locker.LockWeek(ctx, wednesday)
	require.NoError(t, err)

	// The stale lease must not remove the new holder's key
	require.NoError(t, first.Release(ctx))
	assert.True(t, mr.Exists("planner:week-lock:2025-03-10"))

	require.NoError(t, second.Release(ctx))
	assert.False(t, mr.Exists("planner:week-lock:2025-03-10"))
}

func TestRedisLocker_DefaultTTL(t *testing.T) {
	mr, locker := setupTestLocker(t, 0)

	lease, err := locker.LockWeek(context.Background(), wednesday)
	require.NoError(t, err)
	defer lease.Release(context.Background())

	assert.Equal(t, DefaultTTL, mr.TTL("planner:week-lock:2025-03-10"))
}

func TestRedisLocker_ConnectionError(t *testing.T) {
	mr, locker := setupTestLocker(t, time.Minute)
	mr.Close()

	_, err := locker.LockWeek(context.Background(), wednesday)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrLocked)
	assert.Contains(t, err.Error(), "failed to acquire lock")
}

func TestNopLocker(t *testing.T) {
	var locker Locker = NopLocker{}

	first, err := locker.LockWeek(context.Background(), wednesday)
	require.NoError(t, err)
	second, err := locker.LockWeek(context.Background(), wednesday)
	require.NoError(t, err)

	assert.NoError(t, first.Release(context.Background()))
	assert.NoError(t, second.Release(context.Background()))
}
