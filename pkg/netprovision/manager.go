package netprovision

import (
	"fmt"
	"net"
	"runtime"

	"github.com/vishvananda/netlink"
	"github.com/vishvananda/netns"
)

// Manager coordinates TAP/IP/port allocation for auto-provisioned network
// interfaces. It is the caller-supplied collaborator a hypervisor.Handle
// invokes when a MicroVMConfig network interface sets AutoProvision.
type Manager struct {
	ipPool       *IPPool
	hostPortPool *HostPortPool
}

// NewManager builds a Manager over the default bridge subnet and host
// port range. It does not touch host network state — call
// EnsureInfrastructure separately.
func NewManager() (*Manager, error) {
	ipPool, err := NewIPPool(IPPoolStart, IPPoolEnd)
	if err != nil {
		return nil, err
	}

	portPool, err := NewHostPortPool(HostPortPoolStart, HostPortPoolEnd)
	if err != nil {
		return nil, err
	}

	return &Manager{ipPool: ipPool, hostPortPool: portPool}, nil
}

// EnsureInfrastructure creates the shared bridge and NAT rules. Idempotent.
func (m *Manager) EnsureInfrastructure() error {
	if err := EnsureBridge(); err != nil {
		return err
	}
	return EnableNAT()
}

// Ensure provisions a TAP device, IP, and MAC for instanceID. If netnsPath
// is non-empty, the TAP device is created inside that network namespace
// rather than the host's root namespace (the hypervisor handle passes
// NetworkInterfaceConfig.NetNSPath here). A TAP device created inside a
// namespace is not attached to the shared bridge.
func (m *Manager) Ensure(instanceID, netnsPath string) (*Allocation, error) {
	ip, err := m.ipPool.Allocate(instanceID)
	if err != nil {
		return nil, err
	}

	var tapName string
	if netnsPath != "" {
		tapName, err = createTAPInNamespace(instanceID, netnsPath)
	} else {
		tapName, err = CreateTAP(instanceID)
	}
	if err != nil {
		_ = m.ipPool.Release(ip, instanceID)
		return nil, err
	}

	return &Allocation{
		InstanceID: instanceID,
		TAPDevice:  tapName,
		IPAddress:  ip.String(),
		MACAddress: MACAddress(instanceID),
		Gateway:    BridgeIP,
	}, nil
}

// Release tears down everything Ensure allocated for instanceID.
func (m *Manager) Release(a *Allocation) error {
	if a == nil {
		return nil
	}

	if err := DestroyTAP(a.TAPDevice); err != nil {
		return err
	}

	if parsed := net.ParseIP(a.IPAddress); parsed != nil {
		return m.ipPool.Release(parsed, a.InstanceID)
	}
	return nil
}

// createTAPInNamespace locks the calling OS thread, switches into the
// target network namespace, creates the TAP device there, and restores
// the original namespace before returning.
func createTAPInNamespace(instanceID, netnsPath string) (tapName string, err error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	origNS, err := netns.Get()
	if err != nil {
		return "", fmt.Errorf("get current netns: %w", err)
	}
	defer origNS.Close()

	targetNS, err := netns.GetFromPath(netnsPath)
	if err != nil {
		return "", fmt.Errorf("open target netns %s: %w", netnsPath, err)
	}
	defer targetNS.Close()

	if err := netns.Set(targetNS); err != nil {
		return "", fmt.Errorf("enter target netns: %w", err)
	}
	defer netns.Set(origNS)

	tapName = TAPName(instanceID)
	if TAPExists(tapName) {
		return "", fmt.Errorf("%w: %s", ErrTAPNameExists, tapName)
	}

	la := netlink.NewLinkAttrs()
	la.Name = tapName
	tap := &netlink.Tuntap{LinkAttrs: la, Mode: netlink.TUNTAP_MODE_TAP}
	if err := netlink.LinkAdd(tap); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTAPCreateFailed, err)
	}
	if err := netlink.LinkSetUp(tap); err != nil {
		_ = netlink.LinkDel(tap)
		return "", fmt.Errorf("bring tap up: %w", err)
	}

	return tapName, nil
}
