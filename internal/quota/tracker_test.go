package quota

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextReset(t *testing.T) {
	tests := []struct {
		name      string
		now       time.Time
		resetHour int
		want      time.Time
	}{
		{
			name:      "reset hour still ahead today",
			now:       time.Date(2026, 8, 31, 9, 30, 0, 0, time.UTC),
			resetHour: 12,
			want:      time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC),
		},
		{
			name:      "reset hour already passed rolls to tomorrow",
			now:       time.Date(2026, 8, 31, 15, 0, 0, 0, time.UTC),
			resetHour: 12,
			want:      time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC),
		},
		{
			name:      "exactly at the reset hour rolls to tomorrow",
			now:       time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC),
			resetHour: 12,
			want:      time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC),
		},
		{
			name:      "midnight reset one second before the boundary",
			now:       time.Date(2026, 8, 31, 23, 59, 59, 0, time.UTC),
			resetHour: 0,
			want:      time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "midnight reset just after midnight",
			now:       time.Date(2026, 8, 31, 0, 0, 1, 0, time.UTC),
			resetHour: 0,
			want:      time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, nextReset(tt.now, tt.resetHour))
		})
	}
}

func TestNextReset_WindowOneSecondAtDayEdge(t *testing.T) {
	// At 23:59:59Z with reset hour 0 the first increment of the day gets a
	// window that lives exactly one second.
	now := time.Date(2026, 8, 31, 23, 59, 59, 0, time.UTC)
	reset := nextReset(now, 0)
	assert.Equal(t, time.Second, reset.Sub(now))
}

func TestDayKey(t *testing.T) {
	assert.Equal(t, "2026-08-31", dayKey(time.Date(2026, 8, 31, 23, 59, 59, 0, time.UTC)))
	assert.Equal(t, "2026-09-01", dayKey(time.Date(2026, 9, 1, 0, 0, 1, 0, time.UTC)))

	// Day keys follow UTC regardless of the wall clock's zone.
	loc := time.FixedZone("UTC+5", 5*3600)
	assert.Equal(t, "2026-08-31", dayKey(time.Date(2026, 9, 1, 2, 0, 0, 0, loc)))
}

func TestTracker_KeyRollsWithCalendarDay(t *testing.T) {
	tracker := NewTracker(nil, 10, 0)

	tracker.now = func() time.Time { return time.Date(2026, 8, 31, 23, 59, 59, 0, time.UTC) }
	before := tracker.key("user-1")

	tracker.now = func() time.Time { return time.Date(2026, 9, 1, 0, 0, 1, 0, time.UTC) }
	after := tracker.key("user-1")

	assert.Equal(t, "quota:user-1:2026-08-31", before)
	assert.Equal(t, "quota:user-1:2026-09-01", after)
}

func TestNewTracker_ClampsBadConfig(t *testing.T) {
	tracker := NewTracker(nil, 0, 99)
	assert.Equal(t, 10, tracker.maxPerDay)
	assert.Equal(t, 0, tracker.resetHour)
}

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   1,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("skipping: redis not available at localhost:6379: %v", err)
		return nil
	}

	require.NoError(t, client.FlushDB(ctx).Err())
	t.Cleanup(func() { _ = client.Close() })

	return client
}

func TestTracker_FreshSubject(t *testing.T) {
	client := setupTestRedis(t)
	tracker := NewTracker(client, 10, 0)
	ctx := context.Background()

	count, err := tracker.Count(ctx, "fresh-user")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	limited, err := tracker.Limited(ctx, "fresh-user")
	require.NoError(t, err)
	assert.False(t, limited)

	remaining, err := tracker.Remaining(ctx, "fresh-user")
	require.NoError(t, err)
	assert.Equal(t, 10, remaining)

	resetAt, err := tracker.ResetTime(ctx, "fresh-user")
	require.NoError(t, err)
	assert.Nil(t, resetAt)
}

func TestTracker_IncrementToLimit(t *testing.T) {
	client := setupTestRedis(t)
	tracker := NewTracker(client, 3, 0)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		count, err := tracker.Increment(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, i, count)
	}

	limited, err := tracker.Limited(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, limited)

	remaining, err := tracker.Remaining(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)

	resetAt, err := tracker.ResetTime(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, resetAt)
	assert.True(t, resetAt.After(time.Now().UTC()))
	assert.True(t, resetAt.Before(time.Now().UTC().Add(24*time.Hour+time.Minute)))
}

func TestTracker_ConcurrentIncrementsNoLostUpdates(t *testing.T) {
	client := setupTestRedis(t)
	tracker := NewTracker(client, 1000, 0)
	ctx := context.Background()

	const callers = 100

	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := tracker.Increment(ctx, "hot-user"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	count, err := tracker.Count(ctx, "hot-user")
	require.NoError(t, err)
	assert.Equal(t, callers, count)
}

func TestTracker_WindowExpiryAnchorsToFirstIncrement(t *testing.T) {
	client := setupTestRedis(t)
	tracker := NewTracker(client, 10, 0)
	ctx := context.Background()

	_, err := tracker.Increment(ctx, "user-ttl")
	require.NoError(t, err)

	firstReset, err := tracker.ResetTime(ctx, "user-ttl")
	require.NoError(t, err)
	require.NotNil(t, firstReset)

	// Later increments must not extend the window.
	_, err = tracker.Increment(ctx, "user-ttl")
	require.NoError(t, err)

	secondReset, err := tracker.ResetTime(ctx, "user-ttl")
	require.NoError(t, err)
	require.NotNil(t, secondReset)
	assert.WithinDuration(t, *firstReset, *secondReset, 2*time.Second)
}

func TestTracker_SubjectsAreIndependent(t *testing.T) {
	client := setupTestRedis(t)
	tracker := NewTracker(client, 2, 0)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := tracker.Increment(ctx, "subject-a")
		require.NoError(t, err)
	}

	limitedA, err := tracker.Limited(ctx, "subject-a")
	require.NoError(t, err)
	limitedB, err := tracker.Limited(ctx, "subject-b")
	require.NoError(t, err)

	assert.True(t, limitedA)
	assert.False(t, limitedB)
}

func TestTracker_StoreUnavailable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "localhost:1", // nothing listens here
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	tracker := NewTracker(client, 10, 0)
	ctx := context.Background()

	_, err := tracker.Count(ctx, "user-1")
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	_, err = tracker.Increment(ctx, "user-1")
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	_, err = tracker.ResetTime(ctx, "user-1")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}
