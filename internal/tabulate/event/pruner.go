package event

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/tabulate/internal/tabulate/entity"
)

type prunable interface {
	Prune(ctx context.Context, keep int) (int, error)
}

// Pruner trims stored results to the newest Keep after every saved result.
type Pruner struct {
	Store prunable
	Keep  int
}

func (p Pruner) Handle(ctx context.Context, event entity.ResultEvent) error {
	if event.EventID == "" {
		return errors.New("missing event id")
	}
	if p.Store == nil || p.Keep < 1 {
		return nil
	}

	removed, err := p.Store.Prune(ctx, p.Keep)
	if err != nil {
		return err
	}

	slog.DebugContext(ctx, "retention applied", "event_id", event.EventID, "result_id", event.ResultID, "removed", removed)

	return nil
}
