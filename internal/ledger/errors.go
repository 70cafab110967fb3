package ledger

import "fmt"

// TransportError reports an unreachable API or a non-2xx response.
type TransportError struct {
	Op         string
	StatusCode int
	Detail     string
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("ledger %s: %v", e.Op, e.Err)
	case e.Detail != "":
		return fmt.Sprintf("ledger %s: status %d: %s", e.Op, e.StatusCode, e.Detail)
	default:
		return fmt.Sprintf("ledger %s: status %d", e.Op, e.StatusCode)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// MalformedSnapshotError reports a response that could not be decoded or
// lacks a required part.
type MalformedSnapshotError struct {
	Op     string
	Reason string
	Err    error
}

func (e *MalformedSnapshotError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ledger %s: malformed response: %s: %v", e.Op, e.Reason, e.Err)
	}
	return fmt.Sprintf("ledger %s: malformed response: %s", e.Op, e.Reason)
}

func (e *MalformedSnapshotError) Unwrap() error { return e.Err }
