package observability

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

// flushTimeout bounds how long shutdown waits for buffered events to drain.
const flushTimeout = 2 * time.Second

// InitSentry is a no-op when no DSN is configured, so local setups run
// without an account.
func InitSentry(dsn, environment string) error {
	if dsn == "" {
		return nil
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		AttachStacktrace: true,
	}); err != nil {
		return fmt.Errorf("init sentry: %w", err)
	}

	return nil
}

func FlushSentry() {
	sentry.Flush(flushTimeout)
}
