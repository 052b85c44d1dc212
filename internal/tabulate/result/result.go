package result

import (
	"bytes"
	"regexp"

	"github.com/shandysiswandi/tabulate/internal/pkg/pkgframe"
	"github.com/shandysiswandi/tabulate/internal/tabulate/entity"
)

// Latest is the handle alias for the most recent result.
const Latest = "latest"

//nolint:gochecknoglobals // compiled once
var validID = regexp.MustCompile(`^[0-9A-Za-z-]{1,128}$`)

func isLatest(id string) bool {
	return id == "" || id == Latest
}

func encode(rows entity.RowSet) ([]byte, error) {
	header, cells := rows.Cells()

	var buf bytes.Buffer
	if err := pkgframe.Encode(&buf, pkgframe.Table{Columns: header, Rows: cells}); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func toRowSet(t pkgframe.Table) entity.RowSet {
	records := make([]entity.Record, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make(entity.Record, len(t.Columns))
		for i, col := range t.Columns {
			rec[col] = row[i]
		}
		records = append(records, rec)
	}

	return entity.RowSet{Columns: t.Columns, Records: records}
}
