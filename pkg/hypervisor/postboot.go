package hypervisor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/maxdollinger/microvmd/pkg/wire"
)

// Pause transitions a running guest to Paused via PATCH /vm
// {state: Paused}.
func (h *Handle) Pause(ctx context.Context) error {
	if err := h.requireStatus(StatusRunning); err != nil {
		return err
	}
	if _, err := h.do(ctx, "PatchVM", wire.PatchVM("Paused")); err != nil {
		return err
	}
	_, err := h.transition(opPause)
	return err
}

// Resume transitions a paused guest back to Running.
func (h *Handle) Resume(ctx context.Context) error {
	if err := h.requireStatus(StatusPaused); err != nil {
		return err
	}
	if _, err := h.do(ctx, "PatchVM", wire.PatchVM("Resumed")); err != nil {
		return err
	}
	_, err := h.transition(opResume)
	return err
}

// Stop sends the SendCtrlAltDel action (graceful) and transitions the
// handle to Stop. It does not tear down any host-side resource — that is
// Delete's job.
func (h *Handle) Stop(ctx context.Context) error {
	if err := h.requireStatus(StatusRunning); err != nil {
		return err
	}
	if _, err := h.do(ctx, "PutAction", wire.PutAction("SendCtrlAltDel")); err != nil {
		return err
	}
	_, err := h.transition(opStop)
	return err
}

// Snapshot requests a VMM snapshot. The guest must be paused first, per
// the Firecracker API's own precondition; this method does not pause
// implicitly.
func (h *Handle) Snapshot(ctx context.Context, params wire.SnapshotCreateParams) error {
	if err := h.requireStatus(StatusPaused); err != nil {
		return err
	}
	_, err := h.do(ctx, "PutSnapshotCreate", wire.PutSnapshotCreate(params))
	return err
}

// PatchBalloon updates the balloon target size.
func (h *Handle) PatchBalloon(ctx context.Context, amountMib int64) error {
	if err := h.requireStatus(StatusRunning, StatusPaused); err != nil {
		return err
	}
	_, err := h.do(ctx, "PatchBalloon", wire.PatchBalloon(wire.PartialBalloon{AmountMib: amountMib}))
	return err
}

// PatchBalloonStatsInterval updates the balloon statistics polling
// interval.
func (h *Handle) PatchBalloonStatsInterval(ctx context.Context, intervalSeconds int) error {
	if err := h.requireStatus(StatusRunning, StatusPaused); err != nil {
		return err
	}
	_, err := h.do(ctx, "PatchBalloonStatsInterval", wire.PatchBalloonStatsInterval(intervalSeconds))
	return err
}

// PatchGuestDriveById updates a drive's path or rate limiter at runtime.
func (h *Handle) PatchGuestDriveById(ctx context.Context, d wire.PartialDrive) error {
	if err := h.requireStatus(StatusRunning, StatusPaused); err != nil {
		return err
	}
	_, err := h.do(ctx, "PatchDrive", wire.PatchDrive(d))
	return err
}

// PatchGuestNetworkInterfaceById updates a network interface's rate
// limiters at runtime.
func (h *Handle) PatchGuestNetworkInterfaceById(ctx context.Context, n wire.PartialNetworkInterface) error {
	if err := h.requireStatus(StatusRunning, StatusPaused); err != nil {
		return err
	}
	_, err := h.do(ctx, "PatchNetworkInterface", wire.PatchNetworkInterface(n))
	return err
}

// PatchMachineConfiguration updates vCPU/memory configuration. Firecracker
// only accepts this before boot; callers issuing it post-boot will
// observe a FaultError.
func (h *Handle) PatchMachineConfiguration(ctx context.Context, m wire.MachineConfiguration) error {
	_, err := h.do(ctx, "PatchMachineConfig", wire.PatchMachineConfig(m))
	return err
}

// PatchMMDS merges metadata into the running MMDS document.
func (h *Handle) PatchMMDS(ctx context.Context, metadata json.RawMessage) error {
	if err := h.requireStatus(StatusRunning, StatusPaused); err != nil {
		return err
	}
	_, err := h.do(ctx, "PatchMMDS", wire.PatchMMDS(metadata))
	return err
}

// GetMMDS retrieves the current MMDS document.
func (h *Handle) GetMMDS(ctx context.Context) (map[string]any, error) {
	outcome, err := h.do(ctx, "GetMMDS", wire.GetMMDS())
	if err != nil {
		return nil, err
	}
	doc, _ := outcome.Success.(map[string]any)
	return doc, nil
}

// SyncConfig fetches and caches the VMM's current full configuration.
func (h *Handle) SyncConfig(ctx context.Context) (*wire.FullVMConfiguration, error) {
	outcome, err := h.do(ctx, "GetVMConfig", wire.GetVMConfig())
	if err != nil {
		return nil, err
	}
	cfg, ok := outcome.Success.(wire.FullVMConfiguration)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected /vm/config response shape", ErrAgent)
	}
	h.fullConfig = &cfg
	return &cfg, nil
}

// SyncStatus asks the VMM for its instance info and maps it to a
// MicroVMStatus, without mutating the handle's cached status.
func (h *Handle) SyncStatus(ctx context.Context) (MicroVMStatus, error) {
	outcome, err := h.do(ctx, "GetInstanceInfo", wire.GetInstanceInfo())
	if err != nil {
		return h.currentStatus(), err
	}
	info, ok := outcome.Success.(wire.InstanceInfo)
	if !ok {
		return h.currentStatus(), fmt.Errorf("%w: unexpected instance-info response shape", ErrAgent)
	}

	switch info.State {
	case "Running":
		return StatusRunning, nil
	case "Paused":
		return StatusPaused, nil
	case "Not started":
		return StatusNone, nil
	default:
		return h.currentStatus(), nil
	}
}

// PingRemote issues a lightweight GET / request to confirm the VMM is
// still answering on its control socket.
func (h *Handle) PingRemote(ctx context.Context) error {
	_, err := h.do(ctx, "GetInstanceInfo", wire.GetInstanceInfo())
	return err
}

// RemoveIfaceRateLimit clears a network interface's rate limiters.
func (h *Handle) RemoveIfaceRateLimit(ctx context.Context, ifaceID string) error {
	n := wire.PartialNetworkInterface{
		IfaceID:       ifaceID,
		RxRateLimiter: wire.ZeroRateLimiter(),
		TxRateLimiter: wire.ZeroRateLimiter(),
	}
	return h.PatchGuestNetworkInterfaceById(ctx, n)
}

// NotifyVhostUserBlockDevice sends an empty PATCH to a vhost-user-block
// drive, prompting it to re-probe its backend (spec §3's
// PartialDrive "notify" case).
func (h *Handle) NotifyVhostUserBlockDevice(ctx context.Context, driveID string) error {
	if err := h.requireStatus(StatusRunning, StatusPaused); err != nil {
		return err
	}
	_, err := h.do(ctx, "PatchDrive", wire.PatchDrive(wire.PartialDrive{DriveID: driveID}))
	return err
}
