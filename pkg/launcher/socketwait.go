package launcher

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"
)

// waitForSocket polls for path to appear in a bounded loop, sleeping
// sub-second between checks. Exceeding timeout yields ErrSocketTimeout.
// Shared by the bare and jailed launchers (spec §9: collapse the
// duplicated sync/async socket-wait loops into one helper).
func waitForSocket(ctx context.Context, path string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if _, err := os.Stat(path); err == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if time.Now().After(deadline) {
				return fmt.Errorf("%w: %s", ErrSocketTimeout, path)
			}
		}
	}
}

// dialRetry attempts to connect to the UDS at path up to retry times,
// sleeping one second between attempts.
func dialRetry(ctx context.Context, path string, retry int) (*net.UnixConn, error) {
	var lastErr error

	for attempt := 0; attempt < retry; attempt++ {
		conn, err := net.Dial("unix", path)
		if err == nil {
			return conn.(*net.UnixConn), nil
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Second):
		}
	}

	return nil, fmt.Errorf("%w: %s: %v", ErrConnectExhausted, path, lastErr)
}
