package main

import (
	"fmt"
	"net/http"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"

	"llm-gateway/internal/app"
	"llm-gateway/internal/observability"
)

func main() {
	// os.Exit skips deferred calls, so the server body lives in run and the
	// runtime teardown happens before the process exits.
	if err := run(); err != nil {
		observability.NewLogger().Error("server_exit", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
}

func run() error {
	runtime, err := app.Build(app.Options{
		LoadDotEnv:    true,
		RunMigrations: true,
	})
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer runtime.Close()

	addr := fmt.Sprintf(":%s", runtime.Config.Port)
	runtime.Logger.Info("server_start", map[string]any{"addr": addr})
	return http.ListenAndServe(addr, runtime.Handler)
}
