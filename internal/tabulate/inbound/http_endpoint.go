package inbound

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"html/template"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"

	"github.com/shandysiswandi/tabulate/internal/pkg/pkgerror"
	"github.com/shandysiswandi/tabulate/internal/pkg/pkgrouter"
	"github.com/shandysiswandi/tabulate/internal/tabulate/entity"
	"github.com/shandysiswandi/tabulate/internal/tabulate/usecase"
)

const (
	filesField          = "files[]"
	defaultMaxMemory    = 32 << 20
	defaultDownloadName = "processed_data.csv"
)

//go:embed templates/*.html
var templateFS embed.FS

//nolint:gochecknoglobals // parsed once
var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

type HTTPEndpoint struct {
	uc           uc
	maxMemory    int64
	downloadName string
}

func NewHTTPEndpoint(uc uc, cfg Config) *HTTPEndpoint {
	if cfg.MaxMemory <= 0 {
		cfg.MaxMemory = defaultMaxMemory
	}
	if cfg.DownloadName == "" {
		cfg.DownloadName = defaultDownloadName
	}

	return &HTTPEndpoint{
		uc:           uc,
		maxMemory:    cfg.MaxMemory,
		downloadName: cfg.DownloadName,
	}
}

func (h *HTTPEndpoint) Index(ctx context.Context, r *http.Request) (any, error) {
	return render(pageData{})
}

func (h *HTTPEndpoint) Upload(ctx context.Context, r *http.Request) (any, error) {
	form, err := h.readUpload(r)
	if form != nil {
		defer func() {
			if err := form.RemoveAll(); err != nil {
				slog.WarnContext(ctx, "failed to remove multipart temp files", "error", err)
			}
		}()
	}
	if err != nil {
		return nil, err
	}

	result, err := h.uc.Upload(ctx, form.files)
	if err != nil {
		return nil, err
	}

	return render(pageData{
		ResultID: result.ResultID,
		Table:    &result.Table,
		Total:    result.Total,
	})
}

func (h *HTTPEndpoint) ShowAll(ctx context.Context, r *http.Request) (any, error) {
	id := resultID(r)

	view, err := h.uc.Result(ctx, id)
	if err != nil {
		var perr *pkgerror.Error
		if errors.As(err, &perr) && perr.StatusCode() == http.StatusNotFound {
			return redirectResponse{location: "/"}, nil
		}
		return nil, err
	}

	return render(pageData{
		ResultID: id,
		Table:    &view.Table,
		Total:    view.Total,
		ShowAll:  true,
	})
}

func (h *HTTPEndpoint) Download(ctx context.Context, r *http.Request) (any, error) {
	body, err := h.uc.Download(ctx, resultID(r))
	if err != nil {
		return nil, err
	}

	return downloadResponse{name: h.downloadName, body: body}, nil
}

func (h *HTTPEndpoint) Result(ctx context.Context, r *http.Request) (any, error) {
	id := pkgrouter.GetParam(ctx, "id")

	view, err := h.uc.Result(ctx, id)
	if err != nil {
		return nil, err
	}

	rows := view.Table.Rows
	if rows == nil {
		rows = [][]string{}
	}
	columns := view.Table.Columns
	if columns == nil {
		columns = []string{}
	}

	return ResultResponse{
		ResultID: id,
		Columns:  columns,
		Rows:     rows,
		total:    view.Total,
	}, nil
}

// readUpload streams the multipart body and keeps every files[] file part in
// the order it was sent, blank selections included, so the first part decides
// whether anything was selected. Parts without a filename parameter are form
// values, not files, and are skipped.
func (h *HTTPEndpoint) readUpload(r *http.Request) (*uploadForm, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		slog.DebugContext(r.Context(), "request has no multipart body", "error", err)
		return nil, pkgerror.NewBadRequest(usecase.MsgNoFilesPart)
	}

	form := &uploadForm{memLeft: h.maxMemory}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return form, uploadErr(r, err)
		}

		if part.FormName() != filesField || !isFilePart(part) {
			continue
		}
		if err := form.add(part); err != nil {
			return form, uploadErr(r, err)
		}
	}

	if len(form.files) == 0 {
		return form, pkgerror.NewBadRequest(usecase.MsgNoFilesPart)
	}

	return form, nil
}

func uploadErr(r *http.Request, err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return pkgerror.NewTooLarge(err)
	}

	var perr *pkgerror.Error
	if errors.As(err, &perr) {
		return err
	}

	slog.DebugContext(r.Context(), "malformed multipart body", "error", err)
	return pkgerror.NewBadRequest(usecase.MsgNoFilesPart)
}

// isFilePart reports whether the part carries a filename parameter, even an
// empty one, which is how browsers send a file input with no selection.
func isFilePart(p *multipart.Part) bool {
	_, params, err := mime.ParseMediaType(p.Header.Get("Content-Disposition"))
	if err != nil {
		return false
	}

	_, ok := params["filename"]
	return ok
}

// uploadForm holds the received files. Contents stay in memory until
// memLeft bytes are used, later files spill to temp files.
type uploadForm struct {
	files   []entity.UploadFile
	temps   []string
	memLeft int64
}

func (f *uploadForm) add(part *multipart.Part) error {
	name := part.FileName()

	var buf bytes.Buffer
	n, err := io.CopyN(&buf, part, f.memLeft+1)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	if n <= f.memLeft {
		f.memLeft -= n
		data := buf.Bytes()
		f.files = append(f.files, entity.UploadFile{
			Filename: name,
			Size:     n,
			Open: func() (io.ReadCloser, error) {
				return io.NopCloser(bytes.NewReader(data)), nil
			},
		})
		return nil
	}

	tmp, err := os.CreateTemp("", "tabulate-upload-*")
	if err != nil {
		return pkgerror.NewServer(err)
	}
	path := tmp.Name()
	f.temps = append(f.temps, path)

	size, err := io.Copy(tmp, io.MultiReader(&buf, part))
	if cerr := tmp.Close(); cerr != nil && err == nil {
		return pkgerror.NewServer(cerr)
	}
	if err != nil {
		return err
	}

	f.memLeft = 0
	f.files = append(f.files, entity.UploadFile{
		Filename: name,
		Size:     size,
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	})

	return nil
}

// RemoveAll deletes the temp files created for spilled parts.
func (f *uploadForm) RemoveAll() error {
	var errs []error
	for _, path := range f.temps {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	f.temps = nil

	return errors.Join(errs...)
}

func resultID(r *http.Request) string {
	return pkgrouter.QueryParam(r, "id")
}

func render(data pageData) (htmlResponse, error) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		return htmlResponse{}, pkgerror.NewServer(err)
	}

	return htmlResponse{body: buf.Bytes()}, nil
}

func linkTo(path, id string) string {
	if id == "" {
		return path
	}
	return path + "?" + url.Values{"id": {id}}.Encode()
}
