package launcher

import "errors"

var (
	// ErrSocketTimeout is returned when the control socket does not appear
	// within the configured launch timeout.
	ErrSocketTimeout = errors.New("firecracker: remote socket timeout")
	// ErrConnectExhausted is returned when all connect retries failed.
	ErrConnectExhausted = errors.New("firecracker: connect retries exhausted")
	// ErrBinaryNotFound is returned when the configured binary path does
	// not exist or is not executable.
	ErrBinaryNotFound = errors.New("firecracker: binary not found")
)
