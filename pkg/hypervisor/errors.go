package hypervisor

import "errors"

// Error taxonomy per spec §7. Each is a sentinel wrapped with %w so
// callers can errors.Is/errors.As while still seeing the causing detail.
var (
	// ErrConfig: validation failed before any side effect; no rollback
	// needed.
	ErrConfig = errors.New("hypervisor: configuration error")

	// ErrIO: filesystem I/O failure during startup or configuration;
	// triggers rollback.
	ErrIO = errors.New("hypervisor: filesystem I/O error")

	// ErrProcess: spawn failure, socket timeout, or connect exhaustion.
	ErrProcess = errors.New("hypervisor: VMM process error")

	// ErrAgent: socket I/O fault, malformed response, body JSON failure.
	ErrAgent = errors.New("hypervisor: agent/codec error")

	// ErrApplication: the VMM returned a fault payload.
	ErrApplication = errors.New("hypervisor: VMM application error")

	// ErrState: caller requested an operation disallowed in the current
	// MicroVMStatus. Non-fatal: no side effect, no status change.
	ErrState = errors.New("hypervisor: state-machine violation")
)

// FaultError carries a VMM-returned fault payload, distinct from a
// transport-level error (spec §7's "VMM application error").
type FaultError struct {
	Endpoint string
	Message  string
}

func (e *FaultError) Error() string {
	return "hypervisor: VMM fault at " + e.Endpoint + ": " + e.Message
}

func (e *FaultError) Unwrap() error { return ErrApplication }
