package mainloop

// IOEvents is the descriptor event mask used in both the requested and
// result directions of a poll.
type IOEvents uint32

const (
	// EventRead indicates the descriptor is (or should be watched to
	// become) readable.
	EventRead IOEvents = 1 << iota
	// EventWrite indicates writability.
	EventWrite
	// EventPriority indicates priority/exceptional data.
	EventPriority
	// EventError is reported in result masks on error conditions. It is
	// ignored in requested masks.
	EventError
	// EventHangup is reported in result masks when the peer closed its
	// end. It is ignored in requested masks.
	EventHangup
)

// PollFD is a caller-owned descriptor record. Events is the requested
// mask; REvents is filled with the result mask after each poll that
// includes the record.
type PollFD struct {
	FD      int
	Events  IOEvents
	REvents IOEvents
}

// PollFunc is a pluggable readiness backend. It fills the REvents field
// of each entry and returns the number of ready descriptors, or a
// negative value on error. A timeout of -1 blocks indefinitely; 0 does
// not block.
type PollFunc func(fds []PollFD, timeoutMs int) int
