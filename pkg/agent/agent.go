// Package agent owns one connected UDS endpoint plus an advisory file
// lock and exposes a single event(req) -> response operation that
// serializes in-flight traffic (spec §4.2). Two concurrency flavors —
// parallel-blocking and cooperative-suspending — share the same Do
// sequence and differ only in their ioAdapter.
package agent

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/maxdollinger/microvmd/pkg/wire"
)

// TransportError wraps a socket I/O failure (spec: "BadUnixSocket").
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("agent: bad unix socket: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Agent is the per-handle object serializing one typed request/response
// at a time over a connected UDS endpoint.
type Agent struct {
	conn    *net.UnixConn
	lock    *fileLock
	adapter ioAdapter
	mu      sync.Mutex
}

// NewBlocking wraps conn and the lock file at lockPath using the
// parallel-blocking I/O flavor.
func NewBlocking(conn *net.UnixConn, lockPath string) (*Agent, error) {
	return newAgent(conn, lockPath, newBlockingAdapter())
}

// NewCooperative wraps conn and the lock file at lockPath using the
// single-threaded cooperative-suspending I/O flavor.
func NewCooperative(conn *net.UnixConn, lockPath string) (*Agent, error) {
	return newAgent(conn, lockPath, newCooperativeAdapter())
}

func newAgent(conn *net.UnixConn, lockPath string, adapter ioAdapter) (*Agent, error) {
	lock, err := openLock(lockPath)
	if err != nil {
		return nil, err
	}

	if err := conn.SetReadBuffer(1 << 16); err != nil {
		_ = lock.Close()
		return nil, &TransportError{Op: "set-read-buffer", Err: err}
	}

	return &Agent{conn: conn, lock: lock, adapter: adapter}, nil
}

// Do executes one typed event against the VMM: acquire the advisory
// lock, drain stray bytes from a previously aborted event, encode and
// send the request, read and decode the response, release the lock.
// Concurrent callers on the same Agent are serialized by mu; Do must not
// interleave with another event on the same agent (spec §4.2).
func (a *Agent) Do(ctx context.Context, e wire.Event) (*wire.Outcome, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.lock.Acquire(); err != nil {
		return nil, err
	}
	defer a.lock.Release()

	if err := a.adapter.drain(ctx, a.conn); err != nil {
		return nil, &TransportError{Op: "drain", Err: err}
	}

	reqBytes, err := wire.EncodeRequest(e)
	if err != nil {
		return nil, err
	}

	if err := a.adapter.writeAll(ctx, a.conn, reqBytes); err != nil {
		return nil, &TransportError{Op: "write", Err: err}
	}

	reader := a.adapter.newReader(ctx, a.conn)
	outcome, err := wire.Decode(reader, e)
	if err != nil {
		return nil, err
	}

	return outcome, nil
}

// Close releases the lock file descriptor and closes the connection.
// It does not unlink the socket or lock files on disk — that is the
// rollback stack's job (RemoveSocket / RemoveFsLock entries).
func (a *Agent) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	connErr := a.conn.Close()
	lockErr := a.lock.Close()
	if connErr != nil {
		return connErr
	}
	return lockErr
}
