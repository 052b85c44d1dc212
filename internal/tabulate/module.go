package tabulate

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/shandysiswandi/tabulate/internal/pkg/pkgconfig"
	"github.com/shandysiswandi/tabulate/internal/pkg/pkgrouter"
	"github.com/shandysiswandi/tabulate/internal/pkg/pkgroutine"
	"github.com/shandysiswandi/tabulate/internal/pkg/pkguid"
	"github.com/shandysiswandi/tabulate/internal/tabulate/event"
	"github.com/shandysiswandi/tabulate/internal/tabulate/inbound"
	"github.com/shandysiswandi/tabulate/internal/tabulate/processor"
	"github.com/shandysiswandi/tabulate/internal/tabulate/result"
	"github.com/shandysiswandi/tabulate/internal/tabulate/session"
	"github.com/shandysiswandi/tabulate/internal/tabulate/usecase"
)

type Dependency struct {
	Config    pkgconfig.Config
	Goroutine *pkgroutine.Manager
	Router    *pkgrouter.Router
	Context   context.Context
	ID        pkguid.StringID
}

type resultStore interface {
	usecase.ResultStore
	Prune(ctx context.Context, keep int) (int, error)
}

func New(dep Dependency) (func(context.Context) error, error) {
	cfg := dep.Config

	if dep.ID == nil {
		dep.ID = pkguid.NewUUID()
	}
	if dep.Context == nil {
		dep.Context = context.Background()
	}

	sessions, err := session.NewStore(cfg.GetString("storage.uploads_dir"), dep.ID)
	if err != nil {
		return nil, err
	}

	results, err := newResultStore(cfg)
	if err != nil {
		return nil, err
	}

	sf, err := pkguid.NewSnowflakeNode(cfg.GetInt("snowflake.node"))
	if err != nil {
		return nil, err
	}

	bus := event.NewBus(512)
	consumer := event.NewConsumer(bus, event.Pruner{
		Store: results,
		Keep:  int(cfg.GetInt("storage.keep")),
	}, event.ConsumerConfig{
		Workers:     2,
		MaxRetries:  3,
		BaseBackoff: 200 * time.Millisecond,
	})
	consumer.Start()

	uc := usecase.New(usecase.Dependency{
		Sessions:    sessions,
		Processor:   processor.NewFiles(),
		Results:     results,
		Events:      bus,
		ResultID:    pkguid.NewDecimal(sf),
		EventID:     dep.ID,
		PreviewRows: int(cfg.GetInt("preview.rows")),
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc, inbound.Config{
		MaxMemory:    cfg.GetInt("upload.max_memory"),
		MaxBytes:     cfg.GetInt("upload.max_bytes"),
		DownloadName: filepath.Base(cfg.GetString("storage.output_csv")),
	})

	// a zero threshold would remove sessions of in-flight uploads
	if staleAfter := cfg.GetDuration("janitor.stale_after"); dep.Goroutine != nil && staleAfter > 0 {
		dep.Goroutine.Every(dep.Context, "session janitor", cfg.GetDuration("janitor.interval"), func(ctx context.Context) error {
			_, err := sessions.Sweep(ctx, staleAfter)
			return err
		})
	}

	return consumer.Stop, nil
}

func newResultStore(cfg pkgconfig.Config) (resultStore, error) {
	switch driver := cfg.GetString("storage.driver"); driver {
	case "", "file":
		return result.NewFileStore(cfg.GetString("storage.results_dir"), cfg.GetString("storage.output_csv"))
	case "memory":
		return result.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}
