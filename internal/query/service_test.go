package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTracker struct {
	maxPerDay  int
	count      int
	increments int
	resetAt    *time.Time
	err        error
}

func (f *fakeTracker) Count(ctx context.Context, subject string) (int, error) {
	return f.count, f.err
}

func (f *fakeTracker) Increment(ctx context.Context, subject string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.count++
	f.increments++
	return f.count, nil
}

func (f *fakeTracker) Limited(ctx context.Context, subject string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.count >= f.maxPerDay, nil
}

func (f *fakeTracker) Remaining(ctx context.Context, subject string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	remaining := f.maxPerDay - f.count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

func (f *fakeTracker) ResetTime(ctx context.Context, subject string) (*time.Time, error) {
	return f.resetAt, f.err
}

type fakeGenerator struct {
	response string
	err      error
	calls    int
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeGenerator) Model() string {
	return "test-model"
}

type fakeLogStore struct {
	entries   []Log
	insertErr error
}

func (f *fakeLogStore) Insert(ctx context.Context, entry Log) (Log, error) {
	if f.insertErr != nil {
		return Log{}, f.insertErr
	}
	entry.ID = "log-1"
	entry.CreatedAt = time.Now().UTC()
	f.entries = append(f.entries, entry)
	return entry, nil
}

func (f *fakeLogStore) ListByUser(ctx context.Context, userID string, limit int) ([]Log, error) {
	return f.entries, nil
}

func TestService_AskChargesAfterSuccess(t *testing.T) {
	tracker := &fakeTracker{maxPerDay: 10}
	generator := &fakeGenerator{response: "the answer"}
	logs := &fakeLogStore{}
	service := NewService(tracker, generator, logs)

	answer, err := service.Ask(context.Background(), "user-1", "a question")
	require.NoError(t, err)
	assert.Equal(t, "the answer", answer.Response)
	assert.Equal(t, "test-model", answer.ModelUsed)
	assert.Equal(t, 1, generator.calls)
	assert.Equal(t, 1, tracker.increments)

	require.Len(t, logs.entries, 1)
	assert.Equal(t, "user-1", logs.entries[0].UserID)
	assert.Equal(t, "a question", logs.entries[0].Query)
	assert.Equal(t, "the answer", logs.entries[0].Response)
}

func TestService_AskGeneratorFailureDoesNotChargeQuota(t *testing.T) {
	tracker := &fakeTracker{maxPerDay: 10}
	generator := &fakeGenerator{err: errors.New("provider down")}
	logs := &fakeLogStore{}
	service := NewService(tracker, generator, logs)

	_, err := service.Ask(context.Background(), "user-1", "a question")
	require.Error(t, err)
	assert.Equal(t, 0, tracker.increments)
	assert.Empty(t, logs.entries)
}

func TestService_AskShortCircuitsAtLimit(t *testing.T) {
	resetAt := time.Now().UTC().Add(time.Hour)
	tracker := &fakeTracker{maxPerDay: 3, count: 3, resetAt: &resetAt}
	generator := &fakeGenerator{response: "never seen"}
	service := NewService(tracker, generator, &fakeLogStore{})

	_, err := service.Ask(context.Background(), "user-1", "one more")

	var exceeded ErrQuotaExceeded
	require.ErrorAs(t, err, &exceeded)
	assert.Equal(t, 0, exceeded.Remaining)
	require.NotNil(t, exceeded.ResetAt)
	assert.Equal(t, resetAt, *exceeded.ResetAt)

	// The downstream provider must never be reached once the limit is hit.
	assert.Equal(t, 0, generator.calls)
	assert.Equal(t, 0, tracker.increments)
}

func TestService_AskExactlyMaxPerDay(t *testing.T) {
	tracker := &fakeTracker{maxPerDay: 3}
	generator := &fakeGenerator{response: "ok"}
	service := NewService(tracker, generator, &fakeLogStore{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := service.Ask(ctx, "user-1", "q")
		require.NoError(t, err)
	}

	_, err := service.Ask(ctx, "user-1", "q")
	var exceeded ErrQuotaExceeded
	require.ErrorAs(t, err, &exceeded)
	assert.Equal(t, 3, generator.calls)
	assert.Equal(t, 3, tracker.increments)
}

func TestService_AskLogInsertFailureDoesNotChargeQuota(t *testing.T) {
	tracker := &fakeTracker{maxPerDay: 10}
	generator := &fakeGenerator{response: "ok"}
	logs := &fakeLogStore{insertErr: errors.New("db down")}
	service := NewService(tracker, generator, logs)

	_, err := service.Ask(context.Background(), "user-1", "q")
	require.Error(t, err)
	assert.Equal(t, 0, tracker.increments)
}

func TestService_AskStorePropagatesError(t *testing.T) {
	storeErr := errors.New("store unavailable")
	tracker := &fakeTracker{maxPerDay: 10, err: storeErr}
	generator := &fakeGenerator{response: "ok"}
	service := NewService(tracker, generator, &fakeLogStore{})

	_, err := service.Ask(context.Background(), "user-1", "q")
	assert.ErrorIs(t, err, storeErr)
	assert.Equal(t, 0, generator.calls)
}

func TestService_Stats(t *testing.T) {
	resetAt := time.Now().UTC().Add(2 * time.Hour)
	tracker := &fakeTracker{maxPerDay: 10, count: 4, resetAt: &resetAt}
	service := NewService(tracker, &fakeGenerator{}, &fakeLogStore{})

	stats, err := service.Stats(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 4, stats.UsedToday)
	assert.Equal(t, 6, stats.Remaining)
	require.NotNil(t, stats.ResetAt)
	assert.Equal(t, resetAt, *stats.ResetAt)
}

func TestService_StatsFreshSubject(t *testing.T) {
	tracker := &fakeTracker{maxPerDay: 10}
	service := NewService(tracker, &fakeGenerator{}, &fakeLogStore{})

	stats, err := service.Stats(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.UsedToday)
	assert.Equal(t, 10, stats.Remaining)
	assert.Nil(t, stats.ResetAt)
}
