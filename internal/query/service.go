package query

import (
	"context"
	"fmt"
	"time"
)

// QuotaTracker is the slice of the quota package this service needs.
type QuotaTracker interface {
	Count(ctx context.Context, subject string) (int, error)
	Increment(ctx context.Context, subject string) (int, error)
	Limited(ctx context.Context, subject string) (bool, error)
	Remaining(ctx context.Context, subject string) (int, error)
	ResetTime(ctx context.Context, subject string) (*time.Time, error)
}

// Generator is the downstream text-generation provider.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Model() string
}

type LogStore interface {
	Insert(ctx context.Context, entry Log) (Log, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]Log, error)
}

type ErrQuotaExceeded struct {
	Remaining int
	ResetAt   *time.Time
}

func (e ErrQuotaExceeded) Error() string {
	return "daily query limit exceeded"
}

type Service struct {
	tracker   QuotaTracker
	generator Generator
	logs      LogStore
}

func NewService(tracker QuotaTracker, generator Generator, logs LogStore) *Service {
	return &Service{tracker: tracker, generator: generator, logs: logs}
}

// Ask admits a single query for the subject: check the quota, call the
// provider, record the exchange, then charge the quota. The increment happens
// strictly after the provider call succeeds so failed calls never consume
// quota.
func (s *Service) Ask(ctx context.Context, subject, prompt string) (Answer, error) {
	limited, err := s.tracker.Limited(ctx, subject)
	if err != nil {
		return Answer{}, err
	}
	if limited {
		resetAt, err := s.tracker.ResetTime(ctx, subject)
		if err != nil {
			return Answer{}, err
		}
		return Answer{}, ErrQuotaExceeded{Remaining: 0, ResetAt: resetAt}
	}

	response, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return Answer{}, fmt.Errorf("process query: %w", err)
	}

	entry, err := s.logs.Insert(ctx, Log{
		UserID:    subject,
		Query:     prompt,
		Response:  response,
		ModelUsed: s.generator.Model(),
	})
	if err != nil {
		return Answer{}, err
	}

	if _, err := s.tracker.Increment(ctx, subject); err != nil {
		return Answer{}, err
	}

	return Answer{
		Response:  entry.Response,
		ModelUsed: entry.ModelUsed,
		CreatedAt: entry.CreatedAt,
	}, nil
}

func (s *Service) History(ctx context.Context, subject string, limit int) ([]Log, error) {
	return s.logs.ListByUser(ctx, subject, limit)
}

func (s *Service) Stats(ctx context.Context, subject string) (Stats, error) {
	used, err := s.tracker.Count(ctx, subject)
	if err != nil {
		return Stats{}, err
	}

	remaining, err := s.tracker.Remaining(ctx, subject)
	if err != nil {
		return Stats{}, err
	}

	resetAt, err := s.tracker.ResetTime(ctx, subject)
	if err != nil {
		return Stats{}, err
	}

	return Stats{UsedToday: used, Remaining: remaining, ResetAt: resetAt}, nil
}
