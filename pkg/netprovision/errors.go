package netprovision

import "errors"

var (
	ErrIPPoolExhausted    = errors.New("netprovision: no available IP addresses in pool")
	ErrIPNotAllocated     = errors.New("netprovision: IP address is not currently allocated")
	ErrPortPoolExhausted  = errors.New("netprovision: no available ports in pool")
	ErrBridgeNotFound     = errors.New("netprovision: bridge device not found")
	ErrBridgeCreateFailed = errors.New("netprovision: failed to create bridge device")
	ErrTAPCreateFailed    = errors.New("netprovision: failed to create TAP device")
	ErrTAPNameExists      = errors.New("netprovision: TAP device name already exists")
	ErrNATSetupFailed     = errors.New("netprovision: failed to setup NAT rules")
	ErrForwardingDisabled = errors.New("netprovision: IP forwarding is disabled")
)
