package entity

import "io"

// UploadFile is one file of an upload batch as received from the client.
type UploadFile struct {
	Filename string
	Size     int64
	Open     func() (io.ReadCloser, error)
}

// Session is the per-request working directory holding an upload batch.
type Session struct {
	ID   string
	Path string
}
