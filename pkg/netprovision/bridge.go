package netprovision

import (
	"fmt"

	"github.com/vishvananda/netlink"
)

// EnsureBridge creates the shared bridge if it doesn't exist and
// configures its address. Idempotent.
func EnsureBridge() error {
	bridge, ok := getBridge()
	if !ok {
		la := netlink.NewLinkAttrs()
		la.Name = BridgeName
		bridge = &netlink.Bridge{LinkAttrs: la}

		if err := netlink.LinkAdd(bridge); err != nil {
			return fmt.Errorf("%w: %v", ErrBridgeCreateFailed, err)
		}
	}

	return configureBridge(bridge)
}

func configureBridge(bridge *netlink.Bridge) error {
	addr, err := netlink.ParseAddr(BridgeIP + "/24")
	if err != nil {
		return fmt.Errorf("parse bridge ip: %w", err)
	}

	addrs, err := netlink.AddrList(bridge, netlink.FAMILY_V4)
	if err != nil {
		return fmt.Errorf("list bridge addresses: %w", err)
	}

	hasIP := false
	for _, a := range addrs {
		if a.IP.Equal(addr.IP) {
			hasIP = true
			break
		}
	}

	if !hasIP {
		if err := netlink.AddrReplace(bridge, addr); err != nil {
			return fmt.Errorf("add ip to bridge: %w", err)
		}
	}

	return netlink.LinkSetUp(bridge)
}

func getBridge() (*netlink.Bridge, bool) {
	link, err := netlink.LinkByName(BridgeName)
	if err != nil {
		return nil, false
	}
	bridge, ok := link.(*netlink.Bridge)
	return bridge, ok
}

// DestroyBridge removes the shared bridge. A missing bridge is success.
// It does not check whether TAP devices are still attached.
func DestroyBridge() error {
	bridge, ok := getBridge()
	if !ok {
		return nil
	}
	if err := netlink.LinkDel(bridge); err != nil {
		return fmt.Errorf("delete bridge: %w", err)
	}
	return nil
}
