package wire

import "encoding/json"

// Logger configures the VMM's own log destination.
type Logger struct {
	LogPath       string `json:"log_path"`
	Level         string `json:"level,omitempty"`
	ShowLevel     bool   `json:"show_level,omitempty"`
	ShowLogOrigin bool   `json:"show_log_origin,omitempty"`
}

// Metrics configures the VMM's metrics destination.
type Metrics struct {
	MetricsPath string `json:"metrics_path"`
}

// BootSource describes the guest kernel and initrd.
type BootSource struct {
	KernelImagePath string `json:"kernel_image_path"`
	InitrdPath      string `json:"initrd_path,omitempty"`
	BootArgs        string `json:"boot_args,omitempty"`
}

// TokenBucket models a Firecracker rate-limiter token bucket.
type TokenBucket struct {
	Size         int64 `json:"size"`
	RefillTime   int64 `json:"refill_time"`
	OneTimeBurst *int64 `json:"one_time_burst,omitempty"`
}

// RateLimiter models a Firecracker drive/network rate limiter.
type RateLimiter struct {
	Bandwidth *TokenBucket `json:"bandwidth,omitempty"`
	Ops       *TokenBucket `json:"ops,omitempty"`
}

// Drive is a full drive configuration (PUT /drives/<id>).
//
// Invariant (spec §3): MUST NOT set both IOEngine and Socket. Presence of
// Socket alone marks a vhost-user-block device; presence of IOEngine (xor
// neither) marks virtio-block.
type Drive struct {
	DriveID      string       `json:"drive_id"`
	PathOnHost   string       `json:"path_on_host,omitempty"`
	IsRootDevice bool         `json:"is_root_device"`
	IsReadOnly   bool         `json:"is_read_only"`
	CacheType    string       `json:"cache_type,omitempty"`
	IOEngine     string       `json:"io_engine,omitempty"`
	Socket       string       `json:"socket,omitempty"`
	RateLimiter  *RateLimiter `json:"rate_limiter,omitempty"`
}

// IsVhostUserBlock reports whether this drive is backed by an external
// vhost-user-block process rather than a virtio-block file.
func (d Drive) IsVhostUserBlock() bool {
	return d.Socket != "" && d.IOEngine == ""
}

// PartialDrive is the PATCH /drives/<id> payload: everything but DriveID
// is optional, and an entirely-empty partial is used to "notify" a
// vhost-user-block device to re-probe.
type PartialDrive struct {
	DriveID     string       `json:"drive_id"`
	PathOnHost  string       `json:"path_on_host,omitempty"`
	RateLimiter *RateLimiter `json:"rate_limiter,omitempty"`
}

// NetworkInterface is a full network-interface configuration.
type NetworkInterface struct {
	IfaceID     string       `json:"iface_id"`
	HostDevName string       `json:"host_dev_name"`
	GuestMAC    string       `json:"guest_mac,omitempty"`
	RxRateLimiter *RateLimiter `json:"rx_rate_limiter,omitempty"`
	TxRateLimiter *RateLimiter `json:"tx_rate_limiter,omitempty"`
}

// PartialNetworkInterface is the PATCH /network-interfaces/<id> payload.
type PartialNetworkInterface struct {
	IfaceID       string       `json:"iface_id"`
	RxRateLimiter *RateLimiter `json:"rx_rate_limiter,omitempty"`
	TxRateLimiter *RateLimiter `json:"tx_rate_limiter,omitempty"`
}

// ZeroRateLimiter clears an existing rate limit (zero-size token buckets).
func ZeroRateLimiter() *RateLimiter {
	return &RateLimiter{
		Bandwidth: &TokenBucket{Size: 0, RefillTime: 0},
		Ops:       &TokenBucket{Size: 0, RefillTime: 0},
	}
}

// VsockDevice configures the guest vsock transport.
type VsockDevice struct {
	VsockID  string `json:"vsock_id,omitempty"`
	GuestCID uint32 `json:"guest_cid"`
	UDSPath  string `json:"uds_path"`
}

// CPUTemplate selects a CPU feature-masking template.
type CPUTemplate string

// CPUConfig carries raw CPU bit-template overrides.
type CPUConfig struct {
	CPUTemplate CPUTemplate     `json:"cpu_template,omitempty"`
	KVMCapabilities json.RawMessage `json:"kvm_capabilities,omitempty"`
}

// MachineConfiguration describes vCPU/memory/feature configuration.
//
// Per spec §9's open question, this uses one field name ("SMT") for the
// hyperthreading flag rather than carrying both a wire name and a
// differently spelled in-memory name.
type MachineConfiguration struct {
	VCPUCount       int64       `json:"vcpu_count"`
	MemSizeMib      int64       `json:"mem_size_mib"`
	SMT             bool        `json:"smt,omitempty"`
	CPUTemplate     CPUTemplate `json:"cpu_template,omitempty"`
	TrackDirtyPages bool        `json:"track_dirty_pages,omitempty"`
	HugePages       string      `json:"huge_pages,omitempty"`
}

// Balloon configures the memory balloon device.
type Balloon struct {
	AmountMib             int64 `json:"amount_mib"`
	DeflateOnOOM          bool  `json:"deflate_on_oom"`
	StatsPollingIntervalS int   `json:"stats_polling_interval_s,omitempty"`
}

// PartialBalloon is the PATCH /balloon payload.
type PartialBalloon struct {
	AmountMib int64 `json:"amount_mib"`
}

// BalloonStats is the GET /balloon/statistics response.
type BalloonStats struct {
	TargetPages int64 `json:"target_pages"`
	ActualPages int64 `json:"actual_pages"`
	TargetMib   int64 `json:"target_mib"`
	ActualMib   int64 `json:"actual_mib"`
}

// EntropyDevice configures the guest virtio-rng device.
type EntropyDevice struct {
	RateLimiter *RateLimiter `json:"rate_limiter,omitempty"`
}

// MMDSConfig configures the guest metadata service.
type MMDSConfig struct {
	Version           string   `json:"version,omitempty"`
	NetworkInterfaces []string `json:"network_interfaces"`
	IPv4Address       string   `json:"ipv4_address,omitempty"`
}

// SnapshotCreateParams describes a snapshot-create request.
type SnapshotCreateParams struct {
	SnapshotType string `json:"snapshot_type,omitempty"`
	SnapshotPath string `json:"snapshot_path"`
	MemFilePath  string `json:"mem_file_path"`
}

// SnapshotLoadParams describes a snapshot-load request.
type SnapshotLoadParams struct {
	SnapshotPath        string `json:"snapshot_path"`
	MemBackend          *MemoryBackend `json:"mem_backend,omitempty"`
	EnableDiffSnapshots bool   `json:"enable_diff_snapshots,omitempty"`
	ResumeVM            bool   `json:"resume_vm,omitempty"`
}

// MemoryBackend selects the snapshot memory-file backend type.
type MemoryBackend struct {
	BackendType string `json:"backend_type"`
	BackendPath string `json:"backend_path"`
}

// FullVMConfiguration is the GET /vm/config response: everything the VMM
// currently has configured, as cached by Handle.SyncConfig.
type FullVMConfiguration struct {
	BootSource        *BootSource            `json:"boot-source,omitempty"`
	Drives            []Drive                `json:"drives,omitempty"`
	MachineConfig     *MachineConfiguration  `json:"machine-config,omitempty"`
	NetworkInterfaces []NetworkInterface     `json:"network-interfaces,omitempty"`
	VsockDevices      []VsockDevice          `json:"vsock-devices,omitempty"`
	Balloon           *Balloon               `json:"balloon,omitempty"`
}
