package agent

import (
	"bufio"
	"context"
	"net"
)

// ioAdapter supplies the I/O primitives the agent's Do sequence needs.
// Both concurrency flavors in spec §5 — parallel-blocking and
// cooperative-suspending — implement this one interface; Do itself does
// not know which flavor it is driving. This is spec §9's "one abstract
// agent, two I/O adapters" applied directly: the wire codec and event
// definitions are shared, only where suspension happens differs.
type ioAdapter interface {
	// drain consumes any bytes currently readable on conn without
	// blocking, returning at EOF or would-block. Used to recover from a
	// previously aborted event that left stray bytes on the wire.
	drain(ctx context.Context, conn *net.UnixConn) error

	// writeAll writes data to conn in full.
	writeAll(ctx context.Context, conn *net.UnixConn, data []byte) error

	// newReader returns a buffered reader over conn suitable for
	// wire.ReadResponse / wire.Decode.
	newReader(ctx context.Context, conn *net.UnixConn) *bufio.Reader
}
