package toolclient

import "fmt"

// ValidationError reports malformed caller input. It is surfaced to the
// caller of the affected operation and never retried.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// UpstreamError reports an unreachable collaborator or a non-success
// response status.
type UpstreamError struct {
	Op     string
	Status int
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: upstream failure: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: upstream returned status %d", e.Op, e.Status)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// ProtocolError reports a collaborator response that cannot be parsed into
// the expected shape.
type ProtocolError struct {
	Op  string
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: unexpected response: %v", e.Op, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }
