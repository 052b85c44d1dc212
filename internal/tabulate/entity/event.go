package entity

// ResultEvent is published after a processed result has been stored.
type ResultEvent struct {
	EventID  string
	ResultID string
	Rows     int
}
