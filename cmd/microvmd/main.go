package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/maxdollinger/microvmd/internal/config"
	"github.com/maxdollinger/microvmd/pkg/hypervisor"
)

const (
	MICROVMD_BASE = "/var/lib/microvmd/"
	RUN_DIR       = MICROVMD_BASE + "run"
)

func main() {
	startTime := time.Now()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	ctx := context.TODO()

	id, err := uuid.NewV7()
	if err != nil {
		fmt.Println("could not create id: " + err.Error())
		os.Exit(1)
	}
	logger = logger.With("id", id.String())

	if err := os.MkdirAll(RUN_DIR, 0o755); err != nil {
		fmt.Printf("create run dir: %s\n", err)
		os.Exit(1)
	}

	defaults := config.HypervisorDefaults{
		FirecrackerBinPath: "/usr/local/bin/firecracker",
		RunDir:             RUN_DIR,
	}

	cfg := defaults.NewBareConfig(id.String())

	h, err := hypervisor.New(ctx, cfg)
	if err != nil {
		fmt.Printf("starting hypervisor: %s\n", err)
		os.Exit(1)
	}
	logger.Info("hypervisor constructed", "socket", cfg.SocketPath)

	micro, err := config.MicroVMSpec{
		KernelImagePath: "/var/lib/microvmd/vmlinux",
		BootArgs:        "console=ttyS0 reboot=k panic=1 pci=off",
		RootDrivePath:   "/var/lib/microvmd/rootfs.ext4",
		VCPUCount:       2,
		MemSizeMib:      256,
	}.Build()
	if err != nil {
		fmt.Printf("building microvm config: %s\n", err)
		os.Exit(1)
	}

	if err := h.Start(ctx, micro); err != nil {
		fmt.Printf("starting microvm: %s\n", err)
		_ = h.Delete(ctx)
		os.Exit(1)
	}

	logger.Info("microvm started", "status", h.Status())

	if err := h.Unused(ctx); err != nil {
		logger.Warn("polling status failed", "error", err)
	}

	if err := h.Delete(ctx); err != nil {
		logger.Warn("tearing down microvm failed", "error", err)
	}

	logger.Info("finished execution", "exec_time", time.Since(startTime).Seconds())
}
