package hypervisor

import (
	"encoding/json"
	"fmt"

	"github.com/maxdollinger/microvmd/pkg/wire"
)

// NetworkInterfaceConfig wraps a wire.NetworkInterface with the optional
// host-side auto-provisioning flag (spec-external convenience; see
// SPEC_FULL.md §6.6). Default AutoProvision=false preserves spec.md's
// exact behavior: the caller guarantees HostDevName already exists.
type NetworkInterfaceConfig struct {
	wire.NetworkInterface
	AutoProvision bool
	// NetNSPath, if set with AutoProvision, creates the TAP device inside
	// that namespace instead of the host root namespace.
	NetNSPath string
}

// MicroVMConfig is the guest-definition record consumed by Handle.Start
// (spec §3).
type MicroVMConfig struct {
	Logger            *wire.Logger
	Metrics           *wire.Metrics
	BootSource        wire.BootSource
	Drives            []wire.Drive
	NetworkInterfaces []NetworkInterfaceConfig
	VsockDevices      []wire.VsockDevice
	CPUConfig         *wire.CPUConfig
	MachineConfig     *wire.MachineConfiguration
	Balloon           *wire.Balloon
	EntropyDevice     *wire.EntropyDevice
	MMDSConfig        *wire.MMDSConfig

	// InitMetadata, when present, MUST deserialize as a JSON value
	// (spec §3 invariant).
	InitMetadata json.RawMessage
}

// Validate checks the invariants spec §3 assigns to MicroVMConfig:
// drive io_engine/socket mutual exclusion, and init-metadata JSON
// validity. It deliberately enforces drive validation on the one shared
// Start path (see DESIGN.md: "Drive validation symmetry bug").
func (c *MicroVMConfig) Validate() error {
	if c.BootSource.KernelImagePath == "" {
		return fmt.Errorf("%w: boot source kernel_image_path is required", ErrConfig)
	}

	seen := make(map[string]struct{}, len(c.Drives))
	for _, d := range c.Drives {
		if d.IOEngine != "" && d.Socket != "" {
			return fmt.Errorf("%w: drive %s sets both io_engine and socket", ErrConfig, d.DriveID)
		}
		if _, dup := seen[d.DriveID]; dup {
			return fmt.Errorf("%w: duplicate drive_id %s", ErrConfig, d.DriveID)
		}
		seen[d.DriveID] = struct{}{}
	}

	if len(c.InitMetadata) > 0 {
		var v any
		if err := json.Unmarshal(c.InitMetadata, &v); err != nil {
			return fmt.Errorf("%w: init_metadata is not valid JSON: %v", ErrConfig, err)
		}
	}

	return nil
}
