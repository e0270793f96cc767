package hypervisor

import "testing"

func TestHypervisorConfigValidateFillsDefaults(t *testing.T) {
	cfg := HypervisorConfig{FirecrackerBinPath: "/usr/local/bin/firecracker"}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.ID == "" {
		t.Error("expected ID to be generated")
	}
	if cfg.SocketPath == "" {
		t.Error("expected a default socket path in bare mode")
	}
	if cfg.LaunchTimeout <= 0 {
		t.Error("expected a default launch timeout")
	}
	if cfg.SocketRetry <= 0 {
		t.Error("expected a default socket retry count")
	}
	if cfg.PollStatusSecs <= 0 {
		t.Error("expected a default poll interval")
	}
}

func TestHypervisorConfigValidateRequiresBinPath(t *testing.T) {
	cfg := HypervisorConfig{}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing firecracker binary path")
	}
}

func TestHypervisorConfigValidateJailedDefaultsExecFile(t *testing.T) {
	cfg := HypervisorConfig{
		FirecrackerBinPath: "/usr/local/bin/firecracker",
		UsingJailer:        true,
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Jailer.ExecFile != cfg.FirecrackerBinPath {
		t.Errorf("expected jailer exec_file to default to the firecracker binary path")
	}
	if cfg.Jailer.ChrootBaseDir == "" {
		t.Error("expected a default chroot base dir")
	}
}

func TestHypervisorConfigPreservesCallerSocketPath(t *testing.T) {
	cfg := HypervisorConfig{
		FirecrackerBinPath: "/usr/local/bin/firecracker",
		SocketPath:         "/custom/path.socket",
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SocketPath != "/custom/path.socket" {
		t.Errorf("SocketPath = %q, want unchanged custom value", cfg.SocketPath)
	}
}
