package app

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/rs/cors"
	"github.com/shandysiswandi/tabulate/internal/pkg/pkgconfig"
	"github.com/shandysiswandi/tabulate/internal/pkg/pkgrouter"
	"github.com/shandysiswandi/tabulate/internal/pkg/pkgroutine"
	"github.com/shandysiswandi/tabulate/internal/pkg/pkguid"
)

//nolint:gochecknoglobals // read once at startup
var defaultConfig = map[string]any{
	"tz":                       "UTC",
	"log.level":                "info",
	"server.address.http":      ":5000",
	"server.cors.origins":      []string{"*"},
	"modules.tabulate.enabled": true,
	"storage.driver":           "file",
	"storage.uploads_dir":      "./temp_uploads",
	"storage.output_csv":       "./processed_data.csv",
	"storage.results_dir":      "./results",
	"storage.keep":             20,
	"upload.max_memory":        32 << 20,
	"upload.max_bytes":         256 << 20,
	"preview.rows":             30,
	"snowflake.node":           -1,
	"janitor.interval":         "10m",
	"janitor.stale_after":      "1h",
}

func (a *App) initConfig() {
	path := "/config/config.yaml"
	if os.Getenv("LOCAL") == "true" {
		path = "./config/config.yaml"
	}

	cfg, err := pkgconfig.NewViper(path, pkgconfig.WithDefaults(defaultConfig), pkgconfig.WithOptionalFile())
	if err != nil {
		slog.Error("failed to init config", "error", err)
		os.Exit(1)
	}

	//nolint:errcheck,gosec // ignore error
	os.Setenv("TZ", cfg.GetString("tz"))

	a.config = cfg
}

func (a *App) initLibraries() {
	a.goroutine = pkgroutine.NewManager(100)
	a.uuid = pkguid.NewUUID()
}

func (a *App) initHTTPServer() {
	a.router = pkgrouter.NewRouter(a.uuid)

	origins := a.config.GetArray("server.cors.origins")
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodHead,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Disposition", pkgrouter.HeaderCorrelationID},
		AllowCredentials: true,
	})

	a.httpServer = &http.Server{
		Addr:              a.config.GetString("server.address.http"),
		Handler:           corsHandler.Handler(a.router),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// initClosers registers resources released after modules have stopped.
func (a *App) initClosers() {
	a.addCloser("Config", func(context.Context) error {
		return a.config.Close()
	})
}
