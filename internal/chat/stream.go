package chat

const (
	ErrorMarker    = "Error: Unable to fetch response."
	CanceledMarker = "Error: Request canceled."
)

// Fragment is one incremental piece of a streamed reply
type Fragment struct {
	Text string
}

// Stream is a single-pass sequence of fragments. Recv returns io.EOF once
// the remote side has finished; any other error is terminal as well.
type Stream interface {
	Recv() (Fragment, error)
	Close() error
}
