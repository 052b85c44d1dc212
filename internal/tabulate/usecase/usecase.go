package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/shandysiswandi/tabulate/internal/pkg/pkgerror"
	"github.com/shandysiswandi/tabulate/internal/pkg/pkguid"
	"github.com/shandysiswandi/tabulate/internal/tabulate/entity"
)

type SessionStore interface {
	Begin(ctx context.Context) (entity.Session, error)
	Save(ctx context.Context, sess entity.Session, filename string, content io.Reader) error
	End(ctx context.Context, sess entity.Session) error
}

// Processor turns the files in a session directory into rows. It must treat
// the directory as read-only.
type Processor interface {
	Process(ctx context.Context, dir string) (entity.RowSet, error)
}

type ResultStore interface {
	Save(ctx context.Context, id string, rows entity.RowSet) error
	Load(ctx context.Context, id string) (entity.RowSet, error)
	Open(ctx context.Context, id string) (io.ReadCloser, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event entity.ResultEvent) error
}

type Dependency struct {
	Sessions    SessionStore
	Processor   Processor
	Results     ResultStore
	Events      EventPublisher
	ResultID    pkguid.StringID
	EventID     pkguid.StringID
	PreviewRows int
}

type Usecase struct {
	sessions    SessionStore
	processor   Processor
	results     ResultStore
	events      EventPublisher
	resultID    pkguid.StringID
	eventID     pkguid.StringID
	previewRows int
}

func New(dep Dependency) *Usecase {
	preview := dep.PreviewRows
	if preview < 1 {
		preview = DefaultPreviewRows
	}

	eventID := dep.EventID
	if eventID == nil {
		eventID = dep.ResultID
	}

	return &Usecase{
		sessions:    dep.Sessions,
		processor:   dep.Processor,
		results:     dep.Results,
		events:      dep.Events,
		resultID:    dep.ResultID,
		eventID:     eventID,
		previewRows: preview,
	}
}

// Upload stores the batch in a fresh session directory, processes it, removes
// the directory and saves the rows as the newest result. The returned table
// holds at most the preview number of rows.
func (u *Usecase) Upload(ctx context.Context, files []entity.UploadFile) (UploadResult, error) {
	if u.sessions == nil || u.processor == nil || u.results == nil || u.resultID == nil {
		return UploadResult{}, pkgerror.NewServer(errors.New("missing dependency"))
	}

	if len(files) == 0 || files[0].Filename == "" {
		return UploadResult{}, pkgerror.NewBadRequest(MsgNoFilesSelected)
	}

	rows, err := u.process(ctx, files)
	if err != nil {
		return UploadResult{}, err
	}

	resultID := u.resultID.Generate()
	if err := u.results.Save(ctx, resultID, rows); err != nil {
		return UploadResult{}, normalizeErr(err)
	}

	u.publish(ctx, resultID, rows.Len())

	header, cells := rows.Head(u.previewRows).Cells()

	return UploadResult{
		ResultID: resultID,
		Table:    Table{Columns: header, Rows: cells},
		Total:    rows.Len(),
	}, nil
}

// process runs save -> process -> end. The session directory is removed even
// when saving or processing fails.
func (u *Usecase) process(ctx context.Context, files []entity.UploadFile) (rows entity.RowSet, err error) {
	sess, err := u.sessions.Begin(ctx)
	if err != nil {
		return entity.RowSet{}, pkgerror.NewServer(err)
	}

	defer func() {
		endErr := u.sessions.End(ctx, sess)
		if endErr == nil {
			return
		}
		if err != nil {
			slog.ErrorContext(ctx, "failed to remove session dir", "session_id", sess.ID, "error", endErr)
			return
		}
		err = pkgerror.NewServer(endErr)
	}()

	for _, file := range files {
		if err := u.saveFile(ctx, sess, file); err != nil {
			return entity.RowSet{}, err
		}
	}

	rows, err = u.processor.Process(ctx, sess.Path)
	if err != nil {
		slog.ErrorContext(ctx, "processing failed", "session_id", sess.ID, "error", err)
		return entity.RowSet{}, pkgerror.NewServer(err)
	}

	slog.InfoContext(ctx, "upload processed", "session_id", sess.ID, "files", len(files), "rows", rows.Len())

	return rows, nil
}

func (u *Usecase) saveFile(ctx context.Context, sess entity.Session, file entity.UploadFile) error {
	if file.Open == nil {
		return pkgerror.NewServer(fmt.Errorf("file %q has no content", file.Filename))
	}

	rc, err := file.Open()
	if err != nil {
		return pkgerror.NewServer(err)
	}
	defer rc.Close()

	if err := u.sessions.Save(ctx, sess, file.Filename, rc); err != nil {
		if errors.Is(err, pkgerror.ErrInvalidName) {
			return pkgerror.NewBadRequest(MsgInvalidFilename)
		}
		return pkgerror.NewServer(err)
	}

	return nil
}

func (u *Usecase) publish(ctx context.Context, resultID string, rows int) {
	if u.events == nil {
		return
	}

	event := entity.ResultEvent{
		EventID:  u.eventID.Generate(),
		ResultID: resultID,
		Rows:     rows,
	}
	if err := u.events.Publish(ctx, event); err != nil {
		slog.WarnContext(ctx, "failed to publish event", "result_id", resultID, "event_id", event.EventID, "error", err)
	}
}

// Result returns every row of the result addressed by id; an empty id means
// the most recent result.
func (u *Usecase) Result(ctx context.Context, id string) (ResultView, error) {
	rows, err := u.results.Load(ctx, id)
	if err != nil {
		return ResultView{}, mapStoreErr(err)
	}

	header, cells := rows.Cells()

	return ResultView{
		ResultID: id,
		Table:    Table{Columns: header, Rows: cells},
		Total:    rows.Len(),
	}, nil
}

// Download opens the stored CSV bytes of the result addressed by id.
func (u *Usecase) Download(ctx context.Context, id string) (io.ReadCloser, error) {
	rc, err := u.results.Open(ctx, id)
	if err != nil {
		return nil, mapStoreErr(err)
	}

	return rc, nil
}

func mapStoreErr(err error) error {
	if errors.Is(err, pkgerror.ErrNotFound) {
		return pkgerror.NewBusiness(MsgNoResult, pkgerror.CodeNotFound)
	}
	return normalizeErr(err)
}

func normalizeErr(err error) error {
	var perr *pkgerror.Error
	if errors.As(err, &perr) {
		return perr
	}
	return pkgerror.NewServer(err)
}
