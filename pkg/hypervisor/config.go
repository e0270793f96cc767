// Package hypervisor implements the public Hypervisor handle: it
// constructs the launcher (jailed or bare), opens the agent, maintains
// microVM state, drives the configuration sequence, exposes post-boot
// control actions, and owns the rollback stack (spec §4.6).
package hypervisor

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/maxdollinger/microvmd/pkg/idgen"
)

// JailerConfig configures the jailer launcher used when
// HypervisorConfig.UsingJailer is set.
type JailerConfig struct {
	// JailerBin, if empty, defaults to "jailer" (resolved via $PATH).
	JailerBin     string
	ExecFile      string
	UID           int
	GID           int
	NumaNode      int
	ChrootBaseDir string
	Daemonize     bool
}

func (j *JailerConfig) validate() error {
	if j.ExecFile == "" {
		return fmt.Errorf("%w: jailer exec_file must be non-empty", ErrConfig)
	}
	if j.ChrootBaseDir == "" {
		j.ChrootBaseDir = "/srv/jailer"
	}
	return nil
}

// HypervisorConfig is the construction-time configuration for one
// Hypervisor handle (spec §3). It is immutable after Validate succeeds.
type HypervisorConfig struct {
	FirecrackerBinPath string
	UsingJailer        bool
	ID                 string

	SocketPath     string
	LockPath       string
	LogPath        string
	MetricsPath    string
	FrckExportPath string

	LaunchTimeout  time.Duration
	SocketRetry    int
	PollStatusSecs time.Duration
	ClearJailer    bool

	Jailer JailerConfig

	// NetNSPath names a pre-existing network namespace. New and Start do
	// not read it: the VMM is not launched inside it, and auto-provisioned
	// TAP devices use NetworkInterfaceConfig.NetNSPath instead.
	NetNSPath string

	// Cooperative selects the single-threaded suspending agent flavor
	// instead of the default parallel-blocking one.
	Cooperative bool
}

// Validate fills in defaults and checks the invariants spec §3 requires.
// It must be called exactly once, before the value is used to construct
// a Handle.
func (c *HypervisorConfig) Validate() error {
	if c.FirecrackerBinPath == "" {
		return fmt.Errorf("%w: firecracker binary path must be set", ErrConfig)
	}

	if c.ID == "" {
		c.ID = idgen.New()
	}

	if c.UsingJailer {
		c.Jailer.ExecFile = c.FirecrackerBinPath
		if err := c.Jailer.validate(); err != nil {
			return err
		}
	} else if c.SocketPath == "" {
		c.SocketPath = filepath.Join("/run", fmt.Sprintf("firecracker-%s.socket", c.ID))
	}

	if c.LaunchTimeout <= 0 {
		c.LaunchTimeout = 10 * time.Second
	}
	if c.SocketRetry <= 0 {
		c.SocketRetry = 3
	}
	if c.PollStatusSecs <= 0 {
		c.PollStatusSecs = time.Second
	}

	return nil
}
