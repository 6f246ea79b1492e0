package splitter

import "fmt"

// SendError reports a multi-part send that stopped early.
// Sent parts were delivered; the rest were not attempted.
type SendError struct {
	Sent  int
	Total int
	Err   error
}

func (e *SendError) Error() string {
	if e.Sent == 0 {
		return fmt.Sprintf("none of %d parts sent: %v", e.Total, e.Err)
	}
	return fmt.Sprintf("sent %d of %d parts: %v", e.Sent, e.Total, e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// Partial reports whether some parts reached the channel
func (e *SendError) Partial() bool {
	return e.Sent > 0
}
