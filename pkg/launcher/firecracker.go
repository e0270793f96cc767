// Package launcher locates and spawns the Firecracker VMM process (bare
// or jailed) and hands the manager a connected control socket. The
// launcher does not own the resulting child process; ownership transfers
// to the caller (the hypervisor handle), which is the one that records a
// rollback.StopProcess entry.
package launcher

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"time"
)

// Firecracker launches the VMM in bare (non-jailed) mode.
type Firecracker struct {
	BinPath        string
	SocketPath     string
	ConfigPath     string // optional --config-file
	LogFile        *os.File
}

// Launch spawns the configured binary with --api-sock and, if set,
// --config-file. It does not wait for the socket to appear.
func (f *Firecracker) Launch(ctx context.Context) (*os.Process, error) {
	if _, err := os.Stat(f.BinPath); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBinaryNotFound, f.BinPath, err)
	}

	args := []string{"--api-sock", f.SocketPath}
	if f.ConfigPath != "" {
		args = append(args, "--config-file", f.ConfigPath)
	}

	cmd := exec.CommandContext(ctx, f.BinPath, args...)
	if f.LogFile != nil {
		cmd.Stdout = f.LogFile
		cmd.Stderr = f.LogFile
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start firecracker process: %w", err)
	}

	return cmd.Process, nil
}

// WaitSocket polls for the control socket to appear, bounded by timeout.
func (f *Firecracker) WaitSocket(ctx context.Context, timeout time.Duration) error {
	return waitForSocket(ctx, f.SocketPath, timeout)
}

// Connect attempts to dial the control socket up to retry times, sleeping
// one second between attempts.
func (f *Firecracker) Connect(ctx context.Context, retry int) (*net.UnixConn, error) {
	return dialRetry(ctx, f.SocketPath, retry)
}
