package inbound

import (
	"fmt"
	"io"
	"net/http"

	"github.com/shandysiswandi/tabulate/internal/tabulate/usecase"
)

type pageData struct {
	ResultID string
	Table    *usecase.Table
	Total    int
	ShowAll  bool
}

func (d pageData) ShowAllURL() string {
	return linkTo("/show_all", d.ResultID)
}

func (d pageData) DownloadURL() string {
	return linkTo("/download", d.ResultID)
}

type htmlResponse struct {
	body []byte
}

func (h htmlResponse) Respond(w http.ResponseWriter, _ *http.Request) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, err := w.Write(h.body)
	return err
}

type redirectResponse struct {
	location string
}

func (re redirectResponse) Respond(w http.ResponseWriter, r *http.Request) error {
	http.Redirect(w, r, re.location, http.StatusFound)
	return nil
}

// downloadResponse streams stored CSV bytes unchanged as an attachment.
type downloadResponse struct {
	name string
	body io.ReadCloser
}

func (d downloadResponse) Respond(w http.ResponseWriter, _ *http.Request) error {
	defer d.body.Close()

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", d.name))
	w.WriteHeader(http.StatusOK)

	_, err := io.Copy(w, d.body)
	return err
}

type ResultResponse struct {
	ResultID string     `json:"result_id"`
	Columns  []string   `json:"columns"`
	Rows     [][]string `json:"rows"`
	total    int
}

func (ResultResponse) Message() string {
	return "result found"
}

func (r ResultResponse) Meta() map[string]any {
	return map[string]any{
		"total": r.total,
	}
}
