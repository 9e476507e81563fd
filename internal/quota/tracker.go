package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrStoreUnavailable marks transient quota-store failures. Callers may retry
// with backoff; the quota decision itself is never guessed on store failure.
var ErrStoreUnavailable = errors.New("quota store unavailable")

// incrScript increments the counter and, only when this call created the key,
// anchors its expiry to the next reset boundary. Running both steps in one
// script keeps concurrent first increments from racing on the expiry.
var incrScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
	redis.call("EXPIREAT", KEYS[1], ARGV[1])
end
return count
`)

// Tracker maintains a per-subject daily query counter in Redis. Records are
// keyed by UTC calendar day and expire at the configured reset hour, which may
// fall mid-day relative to the key's date.
type Tracker struct {
	client    *redis.Client
	maxPerDay int
	resetHour int
	now       func() time.Time
}

func NewTracker(client *redis.Client, maxPerDay, resetHour int) *Tracker {
	if maxPerDay <= 0 {
		maxPerDay = 10
	}
	if resetHour < 0 || resetHour > 23 {
		resetHour = 0
	}

	return &Tracker{
		client:    client,
		maxPerDay: maxPerDay,
		resetHour: resetHour,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (t *Tracker) MaxPerDay() int {
	return t.maxPerDay
}

// Count returns the number of queries recorded for the subject in the current
// window, zero when no record exists.
func (t *Tracker) Count(ctx context.Context, subject string) (int, error) {
	count, err := t.client.Get(ctx, t.key(subject)).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: get count: %v", ErrStoreUnavailable, err)
	}

	return count, nil
}

// Increment atomically bumps the subject's counter, creating the record with
// expiry at the next reset boundary when absent, and returns the new count.
func (t *Tracker) Increment(ctx context.Context, subject string) (int, error) {
	resetAt := nextReset(t.now(), t.resetHour)

	count, err := incrScript.Run(ctx, t.client, []string{t.key(subject)}, resetAt.Unix()).Int()
	if err != nil {
		return 0, fmt.Errorf("%w: increment: %v", ErrStoreUnavailable, err)
	}

	return count, nil
}

func (t *Tracker) Limited(ctx context.Context, subject string) (bool, error) {
	count, err := t.Count(ctx, subject)
	if err != nil {
		return false, err
	}

	return count >= t.maxPerDay, nil
}

func (t *Tracker) Remaining(ctx context.Context, subject string) (int, error) {
	count, err := t.Count(ctx, subject)
	if err != nil {
		return 0, err
	}

	remaining := t.maxPerDay - count
	if remaining < 0 {
		remaining = 0
	}

	return remaining, nil
}

// ResetTime returns when the subject's current window expires, or nil when the
// subject has no active window.
func (t *Tracker) ResetTime(ctx context.Context, subject string) (*time.Time, error) {
	ttl, err := t.client.PTTL(ctx, t.key(subject)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: pttl: %v", ErrStoreUnavailable, err)
	}
	if ttl < 0 {
		// -2: no key, -1: key without expiry. Either way there is no window.
		return nil, nil
	}

	resetAt := t.now().Add(ttl)
	return &resetAt, nil
}

func (t *Tracker) key(subject string) string {
	return fmt.Sprintf("quota:%s:%s", subject, dayKey(t.now()))
}

func dayKey(now time.Time) string {
	return now.UTC().Format("2006-01-02")
}

// nextReset returns today at resetHour UTC when that instant is still ahead of
// now, otherwise tomorrow at resetHour.
func nextReset(now time.Time, resetHour int) time.Time {
	now = now.UTC()
	reset := time.Date(now.Year(), now.Month(), now.Day(), resetHour, 0, 0, 0, time.UTC)
	if reset.After(now) {
		return reset
	}

	return reset.AddDate(0, 0, 1)
}
