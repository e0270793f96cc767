package agent

import (
	"bufio"
	"context"
	"io"
	"net"
	"syscall"
)

// blockingAdapter implements the parallel-blocking flavor: each step
// issues raw syscalls on the non-blocking-flagged socket and retries on
// EAGAIN/EWOULDBLOCK until the call completes, so each public handle
// method runs to completion on the calling goroutine. The retry is not a
// spin: on EAGAIN the goroutine waits in the Go runtime's network poller
// until the socket is ready, then tries again.
type blockingAdapter struct{}

func newBlockingAdapter() ioAdapter { return blockingAdapter{} }

func (blockingAdapter) drain(ctx context.Context, conn *net.UnixConn) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return err
	}

	buf := make([]byte, 4096)
	for {
		var n int
		var readErr error
		ctlErr := raw.Read(func(fd uintptr) bool {
			n, readErr = syscall.Read(int(fd), buf)
			if readErr == syscall.EAGAIN {
				return true // would-block: nothing left to drain
			}
			return true
		})
		if ctlErr != nil {
			return ctlErr
		}
		if readErr == syscall.EAGAIN || n == 0 {
			return nil
		}
		if readErr != nil {
			return readErr
		}
	}
}

func (blockingAdapter) writeAll(ctx context.Context, conn *net.UnixConn, data []byte) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return err
	}

	written := 0
	for written < len(data) {
		var n int
		var writeErr error
		ctlErr := raw.Write(func(fd uintptr) bool {
			n, writeErr = syscall.Write(int(fd), data[written:])
			if writeErr == syscall.EAGAIN {
				return false // retry once the poller reports writable
			}
			return true
		})
		if ctlErr != nil {
			return ctlErr
		}
		if writeErr != nil && writeErr != syscall.EAGAIN {
			return writeErr
		}
		written += n
	}
	return nil
}

func (blockingAdapter) newReader(ctx context.Context, conn *net.UnixConn) *bufio.Reader {
	return bufio.NewReader(&spinReader{conn: conn})
}

// spinReader adapts a non-blocking UnixConn to io.Reader by retrying on
// EAGAIN, giving blocking read semantics. On EAGAIN the goroutine waits
// in the runtime's network poller for readability rather than spinning.
type spinReader struct {
	conn *net.UnixConn
}

func (r *spinReader) Read(p []byte) (int, error) {
	raw, err := r.conn.SyscallConn()
	if err != nil {
		return 0, err
	}

	var n int
	var readErr error
	for {
		ctlErr := raw.Read(func(fd uintptr) bool {
			n, readErr = syscall.Read(int(fd), p)
			if readErr == syscall.EAGAIN {
				return false
			}
			return true
		})
		if ctlErr != nil {
			return 0, ctlErr
		}
		if readErr == syscall.EAGAIN {
			continue
		}
		break
	}

	if readErr != nil {
		return n, readErr
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}
