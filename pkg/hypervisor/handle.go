package hypervisor

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/maxdollinger/microvmd/pkg/agent"
	"github.com/maxdollinger/microvmd/pkg/launcher"
	"github.com/maxdollinger/microvmd/pkg/netprovision"
	"github.com/maxdollinger/microvmd/pkg/rollback"
	"github.com/maxdollinger/microvmd/pkg/wire"
)

// Handle is the public surface: one manager instance owning one VMM
// child process (spec §1/§4.6). It is created by New, mutated only
// through its own methods and the configuration-sequence driver, and
// torn down by Delete, which rewinds the rollback stack.
type Handle struct {
	cfg    HypervisorConfig
	jailer *launcher.Jailer // non-nil only in jailed mode

	process *os.Process
	agent   *agent.Agent
	stack   *rollback.Stack
	logger  *slog.Logger

	statusMu sync.Mutex
	status   MicroVMStatus

	netMgr     *netprovision.Manager
	netAllocs  map[string]*netprovision.Allocation
	fullConfig *wire.FullVMConfiguration // cache for SyncConfig
}

// New constructs a Handle per spec §4.6's seven-step sequence. Any
// failure aborts the stack, reversing every effect recorded so far, and
// returns the error with a nil Handle.
func New(ctx context.Context, cfg HypervisorConfig) (h *Handle, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := slog.Default()
	stack := rollback.New(logger)

	h = &Handle{
		cfg:       cfg,
		stack:     stack,
		logger:    logger,
		status:    StatusNone,
		netAllocs: make(map[string]*netprovision.Allocation),
	}

	defer func() {
		if err != nil {
			stack.Unwind(ctx)
			h = nil
		}
	}()

	if cfg.UsingJailer {
		if err = h.constructJailed(ctx); err != nil {
			return nil, err
		}
	} else {
		if err = h.constructBare(ctx); err != nil {
			return nil, err
		}
	}

	return h, nil
}

func (h *Handle) constructBare(ctx context.Context) error {
	cfg := h.cfg

	fc := &launcher.Firecracker{
		BinPath:    cfg.FirecrackerBinPath,
		SocketPath: cfg.SocketPath,
		ConfigPath: cfg.FrckExportPath,
	}

	if cfg.LogPath != "" {
		logFile, err := os.Create(cfg.LogPath)
		if err != nil {
			return fmt.Errorf("%w: create log file: %v", ErrIO, err)
		}
		fc.LogFile = logFile
	}

	process, err := fc.Launch(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProcess, err)
	}
	h.process = process
	h.stack.Push(rollback.StopProcess{PID: process.Pid, Process: process})

	if err := fc.WaitSocket(ctx, cfg.LaunchTimeout); err != nil {
		return fmt.Errorf("%w: %v", ErrProcess, err)
	}
	h.stack.Insert1(rollback.RemoveSocket{Path: cfg.SocketPath})

	conn, err := fc.Connect(ctx, cfg.SocketRetry)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProcess, err)
	}

	return h.finishConstruction(ctx, conn, cfg.LockPath)
}

func (h *Handle) constructJailed(ctx context.Context) error {
	cfg := h.cfg

	jailerBin := cfg.Jailer.JailerBin
	if jailerBin == "" {
		jailerBin = "jailer"
	}

	j := &launcher.Jailer{
		JailerBin:          jailerBin,
		ExecFile:           cfg.Jailer.ExecFile,
		UID:                cfg.Jailer.UID,
		GID:                cfg.Jailer.GID,
		NumaNode:           cfg.Jailer.NumaNode,
		ID:                 cfg.ID,
		ChrootBase:         cfg.Jailer.ChrootBaseDir,
		Daemonize:          cfg.Jailer.Daemonize,
		ExportedConfigPath: cfg.FrckExportPath,
	}

	if err := j.Jail(); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	h.jailer = j
	h.stack.Push(rollback.Jailing{Clear: cfg.ClearJailer, InstanceDir: j.Workspace.InstanceDir()})

	if err := os.MkdirAll(filepath.Join(j.Workspace.Root, "run"), 0o700); err != nil {
		return fmt.Errorf("%w: mkdir run dir: %v", ErrIO, err)
	}

	process, err := j.Launch(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProcess, err)
	}
	h.process = process
	h.stack.Push(rollback.StopProcess{PID: process.Pid, Process: process})

	if err := j.WaitSocket(ctx, cfg.LaunchTimeout); err != nil {
		return fmt.Errorf("%w: %v", ErrProcess, err)
	}
	h.stack.Insert1(rollback.RemoveSocket{Path: j.SocketPath})

	conn, err := j.Connect(ctx, cfg.SocketRetry)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProcess, err)
	}

	return h.finishConstruction(ctx, conn, j.LockPath)
}

// finishConstruction opens the advisory lock and wraps the connection in
// an agent (spec §4.6 steps 6-7), shared by both launch modes.
func (h *Handle) finishConstruction(ctx context.Context, conn *net.UnixConn, lockPath string) error {
	var a *agent.Agent
	var err error
	if h.cfg.Cooperative {
		a, err = agent.NewCooperative(conn, lockPath)
	} else {
		a, err = agent.NewBlocking(conn, lockPath)
	}
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("%w: %v", ErrAgent, err)
	}
	h.stack.Push(rollback.RemoveFsLock{Path: lockPath})

	h.agent = a
	return nil
}

// socketPath returns the manager-visible control socket path regardless
// of launch mode.
func (h *Handle) socketPath() string {
	if h.jailer != nil {
		return h.jailer.SocketPath
	}
	return h.cfg.SocketPath
}

// jailRoot returns the chroot root directory in jailed mode, or "" in
// bare mode.
func (h *Handle) jailRoot() string {
	if h.jailer != nil {
		return h.jailer.Workspace.Root
	}
	return ""
}

// do issues one wire.Event through the agent, classifying the result per
// spec §7: a fault payload becomes a *FaultError, a transport/codec
// failure is returned as-is (already wrapped by pkg/agent or pkg/wire).
func (h *Handle) do(ctx context.Context, endpoint string, e wire.Event) (*wire.Outcome, error) {
	outcome, err := h.agent.Do(ctx, e)
	if err != nil {
		return nil, err
	}
	if outcome.Fault != nil {
		return outcome, &FaultError{Endpoint: endpoint, Message: outcome.Fault.FaultMessage}
	}
	return outcome, nil
}

// Status returns the cached MicroVMStatus without contacting the VMM.
func (h *Handle) Status() MicroVMStatus {
	return h.currentStatus()
}

// Wait blocks until the child process exits and reports its exit status.
func (h *Handle) Wait() (*os.ProcessState, error) {
	return h.process.Wait()
}

// Unused polls status at cfg.PollStatusSecs intervals until SyncStatus
// reports the guest is no longer running, then returns.
func (h *Handle) Unused(ctx context.Context) error {
	ticker := time.NewTicker(h.cfg.PollStatusSecs)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			status, err := h.SyncStatus(ctx)
			if err != nil {
				return err
			}
			if status == StatusStop || status == StatusNone {
				return nil
			}
		}
	}
}

// Delete consumes the handle: it unwinds the rollback stack, reversing
// every recorded side effect in LIFO order, and marks the status Delete.
// Delete is idempotent.
func (h *Handle) Delete(ctx context.Context) error {
	if h.agent != nil {
		_ = h.agent.Close()
	}
	h.stack.Unwind(ctx)

	h.statusMu.Lock()
	h.status = StatusDelete
	h.statusMu.Unlock()

	return nil
}
