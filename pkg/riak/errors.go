package riak

import "fmt"

// TransportError reports a failed HTTP exchange: a connection, timeout or
// TLS failure, or an unexpected HTTP status code from the server.
type TransportError struct {
	Op         string
	URL        string
	StatusCode int // zero when no response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		if e.Err != nil {
			return fmt.Sprintf("riak: %s %s: status %d: %v", e.Op, e.URL, e.StatusCode, e.Err)
		}
		return fmt.Sprintf("riak: %s %s: unexpected status %d", e.Op, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("riak: %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError reports a malformed or otherwise unexpected response body.
type ProtocolError struct {
	Op     string
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("riak: %s: %s: %v", e.Op, e.Reason, e.Err)
	}
	return fmt.Sprintf("riak: %s: %s", e.Op, e.Reason)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// InvalidStateError reports a builder misuse, such as mutating a job after
// it has run or running a job with no phases.
type InvalidStateError struct {
	Op     string
	Reason string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("riak: %s: %s", e.Op, e.Reason)
}
