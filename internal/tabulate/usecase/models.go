package usecase

// Messages shown to clients verbatim.
const (
	MsgNoFilesPart     = "No files part in the request"
	MsgNoFilesSelected = "No files selected"
	MsgInvalidFilename = "Invalid file name"
	MsgNoResult        = "No processed CSV file available"
)

// DefaultPreviewRows is the number of rows shown right after an upload.
const DefaultPreviewRows = 30

// Table is a rendered slice of a result.
type Table struct {
	Columns []string
	Rows    [][]string
}

type UploadResult struct {
	ResultID string
	Table    Table
	Total    int
}

type ResultView struct {
	ResultID string
	Table    Table
	Total    int
}
