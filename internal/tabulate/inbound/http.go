package inbound

import (
	"context"
	"io"

	"github.com/shandysiswandi/tabulate/internal/pkg/pkgrouter"
	"github.com/shandysiswandi/tabulate/internal/tabulate/entity"
	"github.com/shandysiswandi/tabulate/internal/tabulate/usecase"
)

type uc interface {
	Upload(ctx context.Context, files []entity.UploadFile) (usecase.UploadResult, error)
	Result(ctx context.Context, id string) (usecase.ResultView, error)
	Download(ctx context.Context, id string) (io.ReadCloser, error)
}

// Config tunes the HTTP endpoints. A zero MaxBytes leaves uploads unbounded;
// other zero values fall back to defaults.
type Config struct {
	MaxMemory    int64
	MaxBytes     int64
	DownloadName string
}

func RegisterHTTPEndpoint(r *pkgrouter.Router, uc uc, cfg Config) {
	end := NewHTTPEndpoint(uc, cfg)

	r.GET("/", end.Index)
	r.POST("/upload", end.Upload, pkgrouter.LimitBody(cfg.MaxBytes)) // multipart files[]
	r.GET("/show_all", end.ShowAll)                                  // ?id=
	r.GET("/download", end.Download)                                 // ?id=
	r.GET("/api/results/:id", end.Result)
}
