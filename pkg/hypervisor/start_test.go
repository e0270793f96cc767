package hypervisor

import (
	"bufio"
	"context"
	"io"
	"net"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/maxdollinger/microvmd/pkg/agent"
	"github.com/maxdollinger/microvmd/pkg/netprovision"
	"github.com/maxdollinger/microvmd/pkg/rollback"
	"github.com/maxdollinger/microvmd/pkg/wire"
)

// serveScript accepts one connection and replies to each complete request
// it sees with the next response in responses, in order — standing in for
// a VMM that answers one configuration PUT per step.
func serveScript(t *testing.T, l *net.UnixListener, responses []string) {
	t.Helper()
	conn, err := l.Accept()
	if err != nil {
		t.Errorf("accept: %v", err)
		return
	}
	defer conn.Close()

	r := bufio.NewReader(conn)
	for _, resp := range responses {
		if err := readHTTPRequest(r); err != nil {
			t.Errorf("read request: %v", err)
			return
		}
		if _, err := conn.Write([]byte(resp)); err != nil {
			t.Errorf("write response: %v", err)
			return
		}
	}
}

// readHTTPRequest consumes one request line, its headers up to the blank
// line, and exactly Content-Length body bytes.
func readHTTPRequest(r *bufio.Reader) error {
	contentLength := 0
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return err
		}
		trimmed := strings.TrimRight(line, "\r\n")
		if trimmed == "" {
			break
		}
		if name, value, ok := strings.Cut(trimmed, ":"); ok && strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			n, err := strconv.Atoi(strings.TrimSpace(value))
			if err == nil {
				contentLength = n
			}
		}
	}

	if contentLength > 0 {
		body := make([]byte, contentLength)
		if _, err := io.ReadFull(r, body); err != nil {
			return err
		}
	}
	return nil
}

// newTestHandleWithFakeAgent builds a bare Handle wired to a real
// *agent.Agent over a local Unix socket pair, without spawning any
// process — it exercises Start's configuration sequence and rollback
// behavior independent of the launcher.
func newTestHandleWithFakeAgent(t *testing.T, responses []string) *Handle {
	t.Helper()

	dir := t.TempDir()
	sockPath := filepath.Join(dir, "fake.socket")

	addr := &net.UnixAddr{Name: sockPath, Net: "unix"}
	l, err := net.ListenUnix("unix", addr)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { l.Close() })

	go serveScript(t, l, responses)

	conn, err := net.DialUnix("unix", nil, addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	a, err := agent.NewBlocking(conn, filepath.Join(dir, "fake.lock"))
	if err != nil {
		t.Fatalf("NewBlocking: %v", err)
	}
	t.Cleanup(func() { a.Close() })

	return &Handle{
		cfg:       HypervisorConfig{PollStatusSecs: time.Second},
		agent:     a,
		stack:     rollback.New(nil),
		status:    StatusNone,
		netAllocs: make(map[string]*netprovision.Allocation),
	}
}

func TestStartSucceedsAndTransitionsToRunning(t *testing.T) {
	// boot-source, drive, machine-config, start action: four 204s.
	responses := make([]string, 4)
	for i := range responses {
		responses[i] = "HTTP/1.1 204 No Content\r\n\r\n"
	}

	h := newTestHandleWithFakeAgent(t, responses)

	micro := MicroVMConfig{
		BootSource: wire.BootSource{KernelImagePath: "/vmlinux"},
		Drives: []wire.Drive{
			{DriveID: "root", PathOnHost: "/rootfs.ext4", IsRootDevice: true},
		},
		MachineConfig: &wire.MachineConfiguration{VCPUCount: 1, MemSizeMib: 128},
	}

	if err := h.Start(context.Background(), micro); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if h.currentStatus() != StatusRunning {
		t.Fatalf("status = %s, want %s", h.currentStatus(), StatusRunning)
	}
}

func TestStartFailsAndTransitionsToFailureOnFault(t *testing.T) {
	bootSourceOK := "HTTP/1.1 204 No Content\r\n\r\n"
	driveFault := `{"fault_message":"drive id already exists"}`
	faultResp := "HTTP/1.1 400 Bad Request\r\nContent-Length: " +
		strconv.Itoa(len(driveFault)) + "\r\n\r\n" + driveFault

	h := newTestHandleWithFakeAgent(t, []string{bootSourceOK, faultResp})

	micro := MicroVMConfig{
		BootSource: wire.BootSource{KernelImagePath: "/vmlinux"},
		Drives: []wire.Drive{
			{DriveID: "root", PathOnHost: "/rootfs.ext4", IsRootDevice: true},
		},
	}

	err := h.Start(context.Background(), micro)
	if err == nil {
		t.Fatal("expected Start to fail on drive fault")
	}

	if h.currentStatus() != StatusFailure {
		t.Fatalf("status = %s, want %s", h.currentStatus(), StatusFailure)
	}
}
