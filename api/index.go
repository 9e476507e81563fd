package api

import (
	"encoding/json"
	"net/http"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"

	"llm-gateway/internal/app"
	"llm-gateway/internal/observability"
)

// bootstrap holds the lazily built runtime shared across invocations of the
// serverless handler.
var bootstrap struct {
	once    sync.Once
	runtime *app.Runtime
	err     error
}

func Handler(w http.ResponseWriter, r *http.Request) {
	bootstrap.once.Do(func() {
		bootstrap.runtime, bootstrap.err = app.Build(app.Options{
			RunMigrations: app.EnvBoolOrDefault("RUN_MIGRATIONS_ON_STARTUP", false),
		})
		if bootstrap.err != nil {
			observability.NewLogger().Error("bootstrap_failed", map[string]any{
				"error": bootstrap.err.Error(),
			})
		}
	})

	if bootstrap.err != nil {
		// The detailed cause stays in the log; clients only learn the service
		// is not up.
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "application bootstrap failed"})
		return
	}

	bootstrap.runtime.Handler.ServeHTTP(w, r)
}
