package rollback

import (
	"context"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// Entry is one recorded reversible host side effect. Undo must be
// idempotent and must tolerate partial prior cleanup — it is always
// best-effort and never returns an error the caller is expected to act on.
type Entry interface {
	// Undo reverses the effect. Errors are logged by the Stack, never
	// propagated past Unwind.
	Undo(ctx context.Context) error
	// Describe returns a short human-readable label for logging.
	Describe() string
}

// StopProcess sends SIGTERM to pid, escalates to SIGKILL after a bounded
// wait, and reaps the child. Reap errors are logged, never propagated.
type StopProcess struct {
	PID     int
	Process *os.Process
}

func (e StopProcess) Describe() string { return "stop-process" }

func (e StopProcess) Undo(ctx context.Context) error {
	if e.Process == nil {
		return nil
	}

	if err := e.Process.Signal(syscall.SIGTERM); err != nil && err != os.ErrProcessDone {
		// process may already be gone; fall through to reap attempt
	}

	done := make(chan error, 1)
	go func() {
		_, err := e.Process.Wait()
		done <- err
	}()

	// A reap error is returned so the Stack logs it; Unwind never
	// propagates it further.
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
	}

	_ = e.Process.Signal(syscall.SIGKILL)

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
	}

	return nil
}

// RemoveSocket unlinks a UDS path. Missing file is success.
type RemoveSocket struct {
	Path string
}

func (e RemoveSocket) Describe() string { return "remove-socket:" + e.Path }

func (e RemoveSocket) Undo(ctx context.Context) error {
	if err := os.Remove(e.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// RemoveFsLock unlinks the advisory lock file. Missing file is success.
type RemoveFsLock struct {
	Path string
}

func (e RemoveFsLock) Describe() string { return "remove-fslock:" + e.Path }

func (e RemoveFsLock) Undo(ctx context.Context) error {
	if err := os.Remove(e.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Umount lazily detaches a bind mount point with "umount -l". Best-effort.
// It does not pass the force flag.
type Umount struct {
	MountPoint string
}

func (e Umount) Describe() string { return "umount:" + e.MountPoint }

func (e Umount) Undo(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, "umount", "-l", e.MountPoint)
	// Output is not observed: a failed lazy-unmount of an already-unmounted
	// point is not a rollback failure.
	_ = cmd.Run()
	return nil
}

// Chown restores a path's original owner/group. Best-effort.
type Chown struct {
	Path         string
	OriginalUID  int
	OriginalGID  int
}

func (e Chown) Describe() string { return "chown:" + e.Path }

func (e Chown) Undo(ctx context.Context) error {
	if err := os.Chown(e.Path, e.OriginalUID, e.OriginalGID); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Jailing removes the instance's chroot tree when Clear is set.
type Jailing struct {
	Clear       bool
	InstanceDir string
}

func (e Jailing) Describe() string { return "jailing:" + e.InstanceDir }

func (e Jailing) Undo(ctx context.Context) error {
	if !e.Clear {
		return nil
	}
	if err := os.RemoveAll(e.InstanceDir); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
