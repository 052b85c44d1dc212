package app

import (
	"log/slog"
	"os"

	"github.com/shandysiswandi/tabulate/internal/tabulate"
)

func (a *App) initModules() {
	if !a.config.GetBool("modules.tabulate.enabled") {
		slog.Warn("module tabulate is disabled")
		return
	}

	stop, err := tabulate.New(tabulate.Dependency{
		Config:    a.config,
		Router:    a.router,
		Goroutine: a.goroutine,
		Context:   a.ctx,
		ID:        a.uuid,
	})
	if err != nil {
		slog.Error("failed to init module tabulate", "error", err)
		os.Exit(1)
	}
	if stop != nil {
		a.addCloser("Tabulate", stop)
	}
}
