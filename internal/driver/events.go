package driver

// EventKind tags progress events emitted during a directory check.
type EventKind uint8

const (
	EventFileStart EventKind = iota
	EventFileDone
)

// Event is one progress notification. The OnEvent callback runs on
// worker goroutines; handlers must be safe for concurrent use.
type Event struct {
	Kind  EventKind
	Path  string
	Index int // 0-based position in the sorted file list
	Total int

	// EventFileDone only.
	Cached   bool
	Errors   int
	Warnings int
}
