package netprovision

import (
	"net"
	"testing"
)

func TestIPPoolAllocateReleaseRoundTrip(t *testing.T) {
	pool, err := NewIPPool("10.0.0.2", "10.0.0.3")
	if err != nil {
		t.Fatalf("NewIPPool: %v", err)
	}

	ip1, err := pool.Allocate("vm-a")
	if err != nil {
		t.Fatalf("allocate vm-a: %v", err)
	}

	ip2, err := pool.Allocate("vm-b")
	if err != nil {
		t.Fatalf("allocate vm-b: %v", err)
	}

	if ip1.Equal(ip2) {
		t.Fatalf("two allocations returned the same IP: %s", ip1)
	}

	if _, err := pool.Allocate("vm-c"); err != ErrIPPoolExhausted {
		t.Fatalf("expected ErrIPPoolExhausted, got %v", err)
	}

	if err := pool.Release(ip1, "vm-a"); err != nil {
		t.Fatalf("release: %v", err)
	}

	ip3, err := pool.Allocate("vm-c")
	if err != nil {
		t.Fatalf("allocate after release: %v", err)
	}
	if !ip3.Equal(ip1) {
		t.Fatalf("expected reused IP %s, got %s", ip1, ip3)
	}
}

func TestIPPoolReleaseRejectsWrongOwner(t *testing.T) {
	pool, err := NewIPPool("10.0.0.2", "10.0.0.2")
	if err != nil {
		t.Fatalf("NewIPPool: %v", err)
	}

	ip, err := pool.Allocate("vm-a")
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}

	if err := pool.Release(ip, "vm-b"); err == nil {
		t.Fatal("expected ownership mismatch error")
	}
}

func TestIPPoolReleaseRejectsUnknownIP(t *testing.T) {
	pool, err := NewIPPool("10.0.0.2", "10.0.0.2")
	if err != nil {
		t.Fatalf("NewIPPool: %v", err)
	}

	if err := pool.Release(net.ParseIP("10.0.0.99"), "vm-a"); err != ErrIPNotAllocated {
		t.Fatalf("expected ErrIPNotAllocated, got %v", err)
	}
}

func TestNewIPPoolRejectsInvertedRange(t *testing.T) {
	if _, err := NewIPPool("10.0.0.5", "10.0.0.2"); err == nil {
		t.Fatal("expected error for start > end")
	}
}
