package netprovision

import (
	"fmt"
	"os"
	"strconv"

	"github.com/coreos/go-iptables/iptables"
)

// EnableNAT enables IP forwarding and MASQUERADE for the bridge subnet,
// giving provisioned VMs outbound internet access.
func EnableNAT() error {
	if err := enableIPForwarding(); err != nil {
		return fmt.Errorf("enable ip forwarding: %w", err)
	}

	ipt, err := iptables.New()
	if err != nil {
		return fmt.Errorf("init iptables: %w", err)
	}

	if err := ipt.AppendUnique("nat", "POSTROUTING", "-s", BridgeCIDR, "-j", "MASQUERADE"); err != nil {
		return fmt.Errorf("%w: masquerade rule: %v", ErrNATSetupFailed, err)
	}
	if err := ipt.AppendUnique("filter", "FORWARD", "-i", BridgeName, "-j", "ACCEPT"); err != nil {
		return fmt.Errorf("%w: forward-in rule: %v", ErrNATSetupFailed, err)
	}
	if err := ipt.AppendUnique("filter", "FORWARD", "-o", BridgeName, "-j", "ACCEPT"); err != nil {
		return fmt.Errorf("%w: forward-out rule: %v", ErrNATSetupFailed, err)
	}

	return nil
}

// DisableNAT removes the rules EnableNAT added. Best-effort.
func DisableNAT() error {
	ipt, err := iptables.New()
	if err != nil {
		return fmt.Errorf("init iptables: %w", err)
	}

	_ = ipt.Delete("nat", "POSTROUTING", "-s", BridgeCIDR, "-j", "MASQUERADE")
	_ = ipt.Delete("filter", "FORWARD", "-i", BridgeName, "-j", "ACCEPT")
	_ = ipt.Delete("filter", "FORWARD", "-o", BridgeName, "-j", "ACCEPT")

	return nil
}

// AddPortMappings creates DNAT rules mapping host ports to a VM's
// guest ports.
func AddPortMappings(vmIP string, mappings []PortMapping) error {
	if len(mappings) == 0 {
		return nil
	}

	ipt, err := iptables.New()
	if err != nil {
		return fmt.Errorf("init iptables: %w", err)
	}

	for _, m := range mappings {
		if m.Protocol != "tcp" && m.Protocol != "udp" {
			continue
		}
		if err := ipt.AppendUnique("nat", "PREROUTING",
			"-p", m.Protocol,
			"--dport", strconv.Itoa(m.HostPort),
			"-j", "DNAT",
			"--to-destination", fmt.Sprintf("%s:%d", vmIP, m.GuestPort),
		); err != nil {
			return fmt.Errorf("add port mapping %d->%s:%d: %w", m.HostPort, vmIP, m.GuestPort, err)
		}
	}

	return nil
}

// RemovePortMappings removes the DNAT rules AddPortMappings added.
// Best-effort.
func RemovePortMappings(vmIP string, mappings []PortMapping) error {
	if len(mappings) == 0 {
		return nil
	}

	ipt, err := iptables.New()
	if err != nil {
		return fmt.Errorf("init iptables: %w", err)
	}

	for _, m := range mappings {
		if m.Protocol != "tcp" && m.Protocol != "udp" {
			continue
		}
		_ = ipt.Delete("nat", "PREROUTING",
			"-p", m.Protocol,
			"--dport", strconv.Itoa(m.HostPort),
			"-j", "DNAT",
			"--to-destination", fmt.Sprintf("%s:%d", vmIP, m.GuestPort),
		)
	}

	return nil
}

func enableIPForwarding() error {
	const path = "/proc/sys/net/ipv4/ip_forward"

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read ip_forward: %w", err)
	}
	if len(data) > 0 && data[0] == '1' {
		return nil
	}

	if err := os.WriteFile(path, []byte("1"), 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrForwardingDisabled, err)
	}
	return nil
}
