package hypervisor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/maxdollinger/microvmd/pkg/netprovision"
	"github.com/maxdollinger/microvmd/pkg/rollback"
	"github.com/maxdollinger/microvmd/pkg/wire"
)

// Start drives the thirteen-step configuration sequence (spec §3/§4.6):
// logger, metrics, boot source, drives, network interfaces, vsock,
// cpu-config, machine-config, balloon, entropy device, mmds config,
// init metadata, and finally the InstanceStart action. A config that
// fails MicroVMConfig.Validate is rejected before the handle leaves its
// current status. Any later failure transitions the handle to Failure
// and leaves the rollback stack
// untouched beyond what construction already recorded — Start itself
// adds bind-mount/chown entries for jailed mode, which are unwound by
// a subsequent Delete.
func (h *Handle) Start(ctx context.Context, micro MicroVMConfig) error {
	if err := micro.Validate(); err != nil {
		return err
	}

	if _, err := h.transition(opStart); err != nil {
		return err
	}

	if err := h.configure(ctx, &micro); err != nil {
		_, _ = h.transition(opFail)
		return err
	}

	if _, err := h.do(ctx, "PutAction", wire.PutAction("InstanceStart")); err != nil {
		_, _ = h.transition(opFail)
		return err
	}

	if _, err := h.transition(opSucceed); err != nil {
		return err
	}

	return nil
}

func (h *Handle) configure(ctx context.Context, micro *MicroVMConfig) error {
	if micro.Logger != nil {
		logger, err := h.rewriteLogger(*micro.Logger)
		if err != nil {
			return err
		}
		if _, err := h.do(ctx, "PutLogger", wire.PutLogger(logger)); err != nil {
			return err
		}
	}

	if micro.Metrics != nil {
		metrics, err := h.rewriteMetrics(*micro.Metrics)
		if err != nil {
			return err
		}
		if _, err := h.do(ctx, "PutMetrics", wire.PutMetrics(metrics)); err != nil {
			return err
		}
	}

	bootSource, err := h.rewriteBootSource(micro.BootSource)
	if err != nil {
		return err
	}
	if _, err := h.do(ctx, "PutBootSource", wire.PutBootSource(bootSource)); err != nil {
		return err
	}

	for _, d := range micro.Drives {
		rewritten, err := h.rewriteDrive(d)
		if err != nil {
			return err
		}
		if _, err := h.do(ctx, "PutDrive", wire.PutDrive(rewritten)); err != nil {
			return err
		}
	}

	for i := range micro.NetworkInterfaces {
		nic, err := h.resolveNetworkInterface(&micro.NetworkInterfaces[i])
		if err != nil {
			return err
		}
		if _, err := h.do(ctx, "PutNetworkInterface", wire.PutNetworkInterface(nic)); err != nil {
			return err
		}
	}

	for _, v := range micro.VsockDevices {
		if _, err := h.do(ctx, "PutVsock", wire.PutVsock(v)); err != nil {
			return err
		}
	}

	if micro.CPUConfig != nil {
		if _, err := h.do(ctx, "PutCPUConfig", wire.PutCPUConfig(*micro.CPUConfig)); err != nil {
			return err
		}
	}

	if micro.MachineConfig != nil {
		if _, err := h.do(ctx, "PutMachineConfig", wire.PutMachineConfig(*micro.MachineConfig)); err != nil {
			return err
		}
	}

	if micro.Balloon != nil {
		if _, err := h.do(ctx, "PutBalloon", wire.PutBalloon(*micro.Balloon)); err != nil {
			return err
		}
	}

	if micro.EntropyDevice != nil {
		if _, err := h.do(ctx, "PutEntropyDevice", wire.PutEntropyDevice(*micro.EntropyDevice)); err != nil {
			return err
		}
	}

	if micro.MMDSConfig != nil {
		if _, err := h.do(ctx, "PutMMDSConfig", wire.PutMMDSConfig(*micro.MMDSConfig)); err != nil {
			return err
		}
	}

	if len(micro.InitMetadata) > 0 {
		if _, err := h.do(ctx, "PutMMDS", wire.PutMMDS(micro.InitMetadata)); err != nil {
			return err
		}
	}

	return nil
}

// rewriteLogger pre-creates the jailed log file and rewrites its path to
// the jail-relative reference (spec §4.6 step 1). No-op in bare mode.
func (h *Handle) rewriteLogger(l wire.Logger) (wire.Logger, error) {
	if h.jailer == nil || l.LogPath == "" {
		return l, nil
	}

	jailedRef, _, err := h.createJailedFile("logs", l.LogPath)
	if err != nil {
		return l, err
	}
	l.LogPath = jailedRef
	return l, nil
}

// rewriteMetrics pre-creates the jailed metrics file and rewrites its path
// to the jail-relative reference (spec §4.6 step 2). No-op in bare mode.
func (h *Handle) rewriteMetrics(m wire.Metrics) (wire.Metrics, error) {
	if h.jailer == nil || m.MetricsPath == "" {
		return m, nil
	}

	jailedRef, _, err := h.createJailedFile("metrics", m.MetricsPath)
	if err != nil {
		return m, err
	}
	m.MetricsPath = jailedRef
	return m, nil
}

// createJailedFile pre-creates an empty file at subdir/<basename of
// hostPath> inside the jail, records its owner as a Chown rollback entry,
// and chowns it to the jailer's uid/gid. Unlike bind-mounted inputs (boot
// source, drives), the logger and metrics paths are VMM-written outputs
// that must already exist as a jail-owned file before the VMM opens them.
func (h *Handle) createJailedFile(subdir, hostPath string) (jailedRef, jailedHostPath string, err error) {
	jailedRef, jailedHostPath = h.jailer.TranslateHostPath(subdir, hostPath)
	targetDir := filepath.Dir(jailedHostPath)

	if err := os.MkdirAll(targetDir, 0o700); err != nil {
		return "", "", fmt.Errorf("%w: mkdir %s: %v", ErrIO, targetDir, err)
	}

	f, err := os.OpenFile(jailedHostPath, os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return "", "", fmt.Errorf("%w: create %s: %v", ErrIO, jailedHostPath, err)
	}
	f.Close()

	uid, gid, err := statOwner(jailedHostPath)
	if err != nil {
		return "", "", err
	}
	if err := chownPath(jailedHostPath, h.cfg.Jailer.UID, h.cfg.Jailer.GID); err != nil {
		return "", "", err
	}
	h.stack.Push(rollback.Chown{Path: jailedHostPath, OriginalUID: uid, OriginalGID: gid})

	return jailedRef, jailedHostPath, nil
}

// rewriteBootSource bind-mounts the kernel (and initrd, if set) into the
// jail and rewrites the paths to their jail-relative references. In bare
// mode it is a no-op.
func (h *Handle) rewriteBootSource(b wire.BootSource) (wire.BootSource, error) {
	if h.jailer == nil {
		return b, nil
	}

	jailedRef, hostPath, err := h.bindIntoJail("kernel", b.KernelImagePath)
	if err != nil {
		return b, err
	}
	b.KernelImagePath = jailedRef
	_ = hostPath

	if b.InitrdPath != "" {
		jailedRef, _, err := h.bindIntoJail("initrd", b.InitrdPath)
		if err != nil {
			return b, err
		}
		b.InitrdPath = jailedRef
	}

	return b, nil
}

// rewriteDrive bind-mounts and chowns a drive's backing file into the
// jail (spec §4.6 step 4), skipping vhost-user-block drives, which carry
// a socket reference instead of a host file.
func (h *Handle) rewriteDrive(d wire.Drive) (wire.Drive, error) {
	if h.jailer == nil || d.IsVhostUserBlock() || d.PathOnHost == "" {
		return d, nil
	}

	jailedRef, hostPath, err := h.bindIntoJail("drives"+d.DriveID, d.PathOnHost)
	if err != nil {
		return d, err
	}

	uid, gid, err := statOwner(hostPath)
	if err != nil {
		return d, err
	}
	if err := chownPath(hostPath, h.cfg.Jailer.UID, h.cfg.Jailer.GID); err != nil {
		return d, err
	}
	h.stack.Push(rollback.Chown{Path: hostPath, OriginalUID: uid, OriginalGID: gid})

	d.PathOnHost = jailedRef
	return d, nil
}

// bindIntoJail bind-mounts the directory containing hostPath under
// subdir inside the jail root, pushes the corresponding Umount rollback
// entry, and returns the VMM-visible reference alongside the
// manager-visible host path to the bind-mounted file.
func (h *Handle) bindIntoJail(subdir, hostPath string) (jailedRef, jailedHostPath string, err error) {
	jailedRef, jailedHostPath = h.jailer.TranslateHostPath(subdir, hostPath)
	targetDir := filepath.Dir(jailedHostPath)

	if err := bindMountDir(hostPath, targetDir); err != nil {
		return "", "", err
	}
	h.stack.Push(rollback.Umount{MountPoint: targetDir})

	return jailedRef, jailedHostPath, nil
}

// resolveNetworkInterface optionally auto-provisions a TAP device for
// nic, filling HostDevName and GuestMAC, and records the allocation for
// teardown in Delete.
func (h *Handle) resolveNetworkInterface(nic *NetworkInterfaceConfig) (wire.NetworkInterface, error) {
	if !nic.AutoProvision {
		return nic.NetworkInterface, nil
	}

	if h.netMgr == nil {
		mgr, err := netprovision.NewManager()
		if err != nil {
			return nic.NetworkInterface, fmt.Errorf("%w: %v", ErrIO, err)
		}
		if err := mgr.EnsureInfrastructure(); err != nil {
			return nic.NetworkInterface, fmt.Errorf("%w: %v", ErrIO, err)
		}
		h.netMgr = mgr
	}

	alloc, err := h.netMgr.Ensure(h.cfg.ID+"-"+nic.IfaceID, nic.NetNSPath)
	if err != nil {
		return nic.NetworkInterface, fmt.Errorf("%w: %v", ErrIO, err)
	}
	h.netAllocs[nic.IfaceID] = alloc
	h.stack.Push(netAllocEntry{mgr: h.netMgr, alloc: alloc})

	nic.HostDevName = alloc.TAPDevice
	if nic.GuestMAC == "" {
		nic.GuestMAC = alloc.MACAddress
	}

	return nic.NetworkInterface, nil
}

// netAllocEntry is a rollback.Entry releasing a netprovision.Allocation.
type netAllocEntry struct {
	mgr   *netprovision.Manager
	alloc *netprovision.Allocation
}

func (e netAllocEntry) Describe() string { return "net-alloc:" + e.alloc.TAPDevice }

func (e netAllocEntry) Undo(ctx context.Context) error {
	return e.mgr.Release(e.alloc)
}
