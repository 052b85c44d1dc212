package app

import (
	"context"
	"net/http"

	"github.com/shandysiswandi/tabulate/internal/pkg/pkgconfig"
	"github.com/shandysiswandi/tabulate/internal/pkg/pkglog"
	"github.com/shandysiswandi/tabulate/internal/pkg/pkgrouter"
	"github.com/shandysiswandi/tabulate/internal/pkg/pkgroutine"
	"github.com/shandysiswandi/tabulate/internal/pkg/pkguid"
)

const serviceName = "tabulate"

// closer releases one resource on shutdown. Closers run in registration order.
type closer struct {
	name string
	fn   func(context.Context) error
}

type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	// configuration
	config pkgconfig.Config

	// libraries
	uuid      pkguid.StringID
	goroutine *pkgroutine.Manager

	// server
	router     *pkgrouter.Router
	httpServer *http.Server

	closers []closer
}

func New() *App {
	pkglog.InitLogging(serviceName, "info")

	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		ctx:    ctx,
		cancel: cancel,
	}

	app.initConfig()
	pkglog.InitLogging(serviceName, app.config.GetString("log.level"))
	app.initLibraries()
	app.initHTTPServer()
	app.initModules()
	app.initClosers()

	return app
}

func (a *App) addCloser(name string, fn func(context.Context) error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}
