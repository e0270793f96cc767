package netprovision

import (
	"strings"
	"testing"
)

func TestTAPNameIsBoundedAndDeterministic(t *testing.T) {
	id := "0123456789abcdef"
	name := TAPName(id)

	if len(name) > 15 {
		t.Fatalf("TAP name %q exceeds Linux's 15-char interface limit", name)
	}
	if !strings.HasPrefix(name, TAPPrefix) {
		t.Fatalf("TAP name %q missing prefix %q", name, TAPPrefix)
	}
	if TAPName(id) != name {
		t.Fatal("TAPName is not deterministic for the same id")
	}
}

func TestTAPNameShortID(t *testing.T) {
	name := TAPName("abc")
	if name != TAPPrefix+"abc" {
		t.Fatalf("TAPName(%q) = %q, want %q", "abc", name, TAPPrefix+"abc")
	}
}

func TestMACAddressIsDeterministicAndLocallyAdministered(t *testing.T) {
	mac1 := MACAddress("instance-1")
	mac2 := MACAddress("instance-1")
	mac3 := MACAddress("instance-2")

	if mac1 != mac2 {
		t.Fatal("MACAddress is not deterministic for the same instance id")
	}
	if mac1 == mac3 {
		t.Fatal("different instance ids produced the same MAC address")
	}
	if !strings.HasPrefix(mac1, MACPrefix) {
		t.Fatalf("MAC %q missing prefix %q", mac1, MACPrefix)
	}
}
