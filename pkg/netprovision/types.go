// Package netprovision optionally provisions host-side TAP devices, a
// shared bridge, and NAT/port-forward rules for a microVM's network
// interfaces. It is layered strictly outside the core orchestration
// subsystem: by default (AutoProvision=false) the caller is responsible
// for host_dev_name pre-existing, exactly as spec.md's MicroVMConfig
// describes; this package only activates when a caller opts in.
package netprovision

const (
	BridgeName = "microvmd-br0"
	BridgeIP   = "172.30.0.1"
	BridgeCIDR = "172.30.0.0/24"

	IPPoolStart = "172.30.0.2"
	IPPoolEnd   = "172.30.0.254"

	HostPortPoolStart = 50000
	HostPortPoolEnd   = 60000

	// MACPrefix: AA (locally administered) : FC (firecracker hint) : 00.
	MACPrefix = "AA:FC:00"

	TAPPrefix = "mvd-"
)

// PortMapping is a TCP/UDP port forward from host to guest.
type PortMapping struct {
	HostPort  int
	GuestPort int
	Protocol  string
}

// Allocation is the result of provisioning one network interface: the
// host-side TAP device name and addressing to plug into
// wire.NetworkInterface.HostDevName / guest MAC.
type Allocation struct {
	InstanceID string
	TAPDevice  string
	IPAddress  string
	MACAddress string
	Gateway    string
}
