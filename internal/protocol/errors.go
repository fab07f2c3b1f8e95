package protocol

import "errors"

// Error kinds from spec.md §7. BufferOverflow is fatal for the connection;
// the rest are handled by discarding the offending message and continuing.
var (
	ErrBufferOverflow = errors.New("protocol: receive buffer exceeded 1MiB without a newline")
	ErrNotConnected   = errors.New("protocol: not connected")
)

// MalformedError wraps a JSON decode failure (MalformedJson in spec.md's
// taxonomy) or a missing required field.
type MalformedError struct {
	Kind string // "MalformedJson" or "MissingRequiredField"
	Err  error
}

func (e *MalformedError) Error() string {
	if e.Err != nil {
		return "protocol: " + e.Kind + ": " + e.Err.Error()
	}
	return "protocol: " + e.Kind
}

func (e *MalformedError) Unwrap() error { return e.Err }

func errMalformed(err error) error {
	return &MalformedError{Kind: "MalformedJson", Err: err}
}

func errMissingField(field string) error {
	return &MalformedError{Kind: "MissingRequiredField", Err: errors.New(field)}
}

// SocketError wraps a connect/accept/read/write failure.
type SocketError struct {
	Op  string
	Err error
}

func (e *SocketError) Error() string { return "protocol: " + e.Op + ": " + e.Err.Error() }
func (e *SocketError) Unwrap() error  { return e.Err }
