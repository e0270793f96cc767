// Package config assembles hypervisor.HypervisorConfig and
// hypervisor.MicroVMConfig values from defaults plus caller overrides.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/maxdollinger/microvmd/pkg/hypervisor"
	"github.com/maxdollinger/microvmd/pkg/wire"
)

// HypervisorDefaults holds the host-wide defaults a microvmd deployment
// fixes once: binary paths and socket/jailer roots.
type HypervisorDefaults struct {
	FirecrackerBinPath string
	RunDir             string
	JailerChrootBase   string
}

// NewBareConfig builds a HypervisorConfig for non-jailed launch, deriving
// the socket, lock, and log paths from RunDir and id.
func (d HypervisorDefaults) NewBareConfig(id string) hypervisor.HypervisorConfig {
	return hypervisor.HypervisorConfig{
		FirecrackerBinPath: d.FirecrackerBinPath,
		ID:                 id,
		SocketPath:         filepath.Join(d.RunDir, id+".socket"),
		LockPath:           filepath.Join(d.RunDir, id+".lock"),
		LogPath:            filepath.Join(d.RunDir, id+".log"),
		LaunchTimeout:      10 * time.Second,
		SocketRetry:        3,
		PollStatusSecs:     time.Second,
	}
}

// NewJailedConfig builds a HypervisorConfig that runs the VMM under the
// jailer with the given uid/gid.
func (d HypervisorDefaults) NewJailedConfig(id string, uid, gid int) hypervisor.HypervisorConfig {
	return hypervisor.HypervisorConfig{
		FirecrackerBinPath: d.FirecrackerBinPath,
		UsingJailer:        true,
		ID:                 id,
		LaunchTimeout:      10 * time.Second,
		SocketRetry:        3,
		PollStatusSecs:     time.Second,
		ClearJailer:        true,
		Jailer: hypervisor.JailerConfig{
			ExecFile:      d.FirecrackerBinPath,
			UID:           uid,
			GID:           gid,
			ChrootBaseDir: d.JailerChrootBase,
		},
	}
}

// MicroVMSpec is the caller-facing shorthand for the common single-root-drive
// guest shape; Build expands it into a full hypervisor.MicroVMConfig.
type MicroVMSpec struct {
	KernelImagePath string
	BootArgs        string
	RootDrivePath   string
	RootReadOnly    bool
	VCPUCount       int64
	MemSizeMib      int64
	TapDeviceName   string
	GuestMAC        string
}

// Build validates the spec and expands it into a hypervisor.MicroVMConfig
// with one root drive and, if TapDeviceName is set, one network interface.
func (s MicroVMSpec) Build() (hypervisor.MicroVMConfig, error) {
	if s.KernelImagePath == "" {
		return hypervisor.MicroVMConfig{}, fmt.Errorf("config: kernel_image_path is required")
	}
	if s.RootDrivePath == "" {
		return hypervisor.MicroVMConfig{}, fmt.Errorf("config: root drive path is required")
	}
	if s.VCPUCount <= 0 {
		s.VCPUCount = 1
	}
	if s.MemSizeMib <= 0 {
		s.MemSizeMib = 128
	}

	micro := hypervisor.MicroVMConfig{
		BootSource: wire.BootSource{
			KernelImagePath: s.KernelImagePath,
			BootArgs:        s.BootArgs,
		},
		Drives: []wire.Drive{{
			DriveID:      "rootfs",
			PathOnHost:   s.RootDrivePath,
			IsRootDevice: true,
			IsReadOnly:   s.RootReadOnly,
		}},
		MachineConfig: &wire.MachineConfiguration{
			VCPUCount:  s.VCPUCount,
			MemSizeMib: s.MemSizeMib,
		},
	}

	if s.TapDeviceName != "" {
		micro.NetworkInterfaces = []hypervisor.NetworkInterfaceConfig{{
			NetworkInterface: wire.NetworkInterface{
				IfaceID:     "eth0",
				HostDevName: s.TapDeviceName,
				GuestMAC:    s.GuestMAC,
			},
		}}
	}

	if err := micro.Validate(); err != nil {
		return hypervisor.MicroVMConfig{}, err
	}

	return micro, nil
}
