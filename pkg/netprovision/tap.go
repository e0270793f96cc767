package netprovision

import (
	"crypto/sha256"
	"fmt"

	"github.com/vishvananda/netlink"
)

// TAPName derives a TAP device name from an instance id, bounded to
// Linux's 15-character interface name limit.
func TAPName(instanceID string) string {
	if len(instanceID) >= 8 {
		return TAPPrefix + instanceID[len(instanceID)-8:]
	}
	return TAPPrefix + instanceID
}

// MACAddress derives a deterministic, locally-administered MAC address
// from the instance id.
func MACAddress(instanceID string) string {
	hash := sha256.Sum256([]byte(instanceID))
	return fmt.Sprintf("%s:%02X:%02X:%02X", MACPrefix, hash[0], hash[1], hash[2])
}

// CreateTAP creates a TAP device for instanceID and attaches it to the
// shared bridge. Returns the TAP device name.
func CreateTAP(instanceID string) (string, error) {
	tapName := TAPName(instanceID)

	if TAPExists(tapName) {
		return "", fmt.Errorf("%w: %s", ErrTAPNameExists, tapName)
	}

	la := netlink.NewLinkAttrs()
	la.Name = tapName
	tap := &netlink.Tuntap{LinkAttrs: la, Mode: netlink.TUNTAP_MODE_TAP}

	if err := netlink.LinkAdd(tap); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTAPCreateFailed, err)
	}

	bridge, err := netlink.LinkByName(BridgeName)
	if err != nil {
		_ = netlink.LinkDel(tap)
		return "", fmt.Errorf("%w: %v", ErrBridgeNotFound, err)
	}

	if err := netlink.LinkSetMaster(tap, bridge); err != nil {
		_ = netlink.LinkDel(tap)
		return "", fmt.Errorf("attach tap to bridge: %w", err)
	}

	if err := netlink.LinkSetUp(tap); err != nil {
		_ = netlink.LinkDel(tap)
		return "", fmt.Errorf("bring tap up: %w", err)
	}

	return tapName, nil
}

// DestroyTAP removes a TAP device. Best-effort: a missing device is success.
func DestroyTAP(name string) error {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return nil
	}

	if _, ok := link.(*netlink.Tuntap); !ok {
		return fmt.Errorf("device %s exists but is not a TAP device", name)
	}

	if err := netlink.LinkDel(link); err != nil {
		return fmt.Errorf("delete tap device %s: %w", name, err)
	}

	return nil
}

// TAPExists reports whether a TAP device with the given name exists.
func TAPExists(name string) bool {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return false
	}
	_, ok := link.(*netlink.Tuntap)
	return ok
}
