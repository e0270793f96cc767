package launcher

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"
)

// Workspace is the computed chroot layout for one jailed instance:
// deterministic paths both as seen by the VMM (relative to the chroot)
// and as seen by the manager (prefixed with the chroot).
type Workspace struct {
	ChrootBase   string
	ExecBasename string
	ID           string

	// Root is <ChrootBase>/<ExecBasename>/<ID>/root, the directory the
	// jailer chroots the VMM into.
	Root string
}

// InstanceDir is the per-instance directory above Root
// (<ChrootBase>/<ExecBasename>/<ID>), recorded for Jailing rollback entries.
func (w Workspace) InstanceDir() string {
	return filepath.Join(w.ChrootBase, w.ExecBasename, w.ID)
}

// JailedPath returns the manager-visible (host) path for a jail-relative
// reference such as "run/firecracker.socket".
func (w Workspace) JailedPath(rel string) string {
	return filepath.Join(w.Root, rel)
}

// NewWorkspace computes the deterministic chroot layout for (execPath, id).
func NewWorkspace(chrootBase, execPath, id string) Workspace {
	base := filepath.Base(execPath)
	return Workspace{
		ChrootBase:   chrootBase,
		ExecBasename: base,
		ID:           id,
		Root:         filepath.Join(chrootBase, base, id, "root"),
	}
}

// Jailer launches the VMM inside a jailer-managed chroot.
type Jailer struct {
	JailerBin  string
	ExecFile   string // path to the firecracker binary, as the jailer's payload
	UID        int
	GID        int
	NumaNode   int
	ID         string
	ChrootBase string
	Daemonize  bool

	// ExportedConfigPath, if set, is a host-visible config file to copy
	// into the workspace before launch.
	ExportedConfigPath string

	Workspace Workspace

	// SocketPath, LockPath, LogPath, MetricsPath are the manager-visible
	// (host) paths, computed by Jail().
	SocketPath  string
	LockPath    string
	LogPath     string
	MetricsPath string
	ConfigPath  string // manager-visible copy of the exported config, if any

	// jailedConfigRef is the VMM-visible reference to ConfigPath.
	jailedConfigRef string
}

// Jail computes the workspace and default jailed paths, and copies an
// exported config file into the workspace if one was supplied. Without
// an exported config it creates nothing on disk; with one it creates the
// workspace's run directory and writes the copy there. The caller pushes
// its Jailing rollback entry only after Jail returns, so a failure while
// copying the config leaves the run directory in place.
func (j *Jailer) Jail() error {
	if j.ExecFile == "" {
		return fmt.Errorf("jailer: exec_file must be non-empty")
	}
	if j.ID == "" {
		return fmt.Errorf("jailer: id must be non-empty")
	}

	j.Workspace = NewWorkspace(j.ChrootBase, j.ExecFile, j.ID)

	j.SocketPath = j.Workspace.JailedPath("run/firecracker.socket")
	j.LockPath = j.Workspace.JailedPath("run/firecracker.lock")
	j.LogPath = j.Workspace.JailedPath("run/firecracker.log")
	j.MetricsPath = j.Workspace.JailedPath("run/firecracker.metrics")

	if j.ExportedConfigPath != "" {
		if err := os.MkdirAll(filepath.Join(j.Workspace.Root, "run"), 0o700); err != nil {
			return fmt.Errorf("jailer: create run dir: %w", err)
		}
		j.jailedConfigRef = "run/firecracker-config.json"
		j.ConfigPath = j.Workspace.JailedPath(j.jailedConfigRef)

		data, err := os.ReadFile(j.ExportedConfigPath)
		if err != nil {
			return fmt.Errorf("jailer: read exported config: %w", err)
		}
		if err := os.WriteFile(j.ConfigPath, data, 0o644); err != nil {
			return fmt.Errorf("jailer: write jailed config: %w", err)
		}
	}

	return nil
}

// TranslateHostPath maps an absolute caller path (e.g. a kernel image
// path) into both the VMM-visible reference under subdir, and the
// manager-visible host path — used for boot-source/drive bind-mount
// rewriting in the configuration sequence. Both use the path's basename
// under subdir, so the bind-mounted file lands at the same relative
// location the VMM is told to look for it at.
func (j *Jailer) TranslateHostPath(subdir, callerPath string) (jailedRef, hostPath string) {
	base := filepath.Base(callerPath)
	jailedRef = "/" + subdir + "/" + base
	hostPath = j.Workspace.JailedPath(filepath.Join(subdir, base))
	return jailedRef, hostPath
}

// Launch spawns the jailer with the VMM as its payload.
func (j *Jailer) Launch(ctx context.Context) (*os.Process, error) {
	args := []string{
		"--id", j.ID,
		"--uid", strconv.Itoa(j.UID),
		"--gid", strconv.Itoa(j.GID),
		"--exec-file", j.ExecFile,
		"--chroot-base-dir", j.ChrootBase,
	}
	if j.NumaNode != 0 {
		args = append(args, "--node", strconv.Itoa(j.NumaNode))
	}
	if j.Daemonize {
		args = append(args, "--daemonize")
	}

	args = append(args, "--", "--api-sock", "/run/firecracker.socket")
	if j.jailedConfigRef != "" {
		args = append(args, "--config-file", "/"+j.jailedConfigRef)
	}

	cmd := exec.CommandContext(ctx, j.JailerBin, args...)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start jailer process: %w", err)
	}

	return cmd.Process, nil
}

// WaitSocket polls for the manager-visible socket path to appear.
func (j *Jailer) WaitSocket(ctx context.Context, timeout time.Duration) error {
	return waitForSocket(ctx, j.SocketPath, timeout)
}

// Connect dials the manager-visible socket path with bounded retries.
func (j *Jailer) Connect(ctx context.Context, retry int) (*net.UnixConn, error) {
	return dialRetry(ctx, j.SocketPath, retry)
}
