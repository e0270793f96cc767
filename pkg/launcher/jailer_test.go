package launcher

import (
	"path/filepath"
	"testing"
)

func TestNewWorkspaceLayout(t *testing.T) {
	ws := NewWorkspace("/srv/jailer", "/usr/local/bin/firecracker", "abc123")

	wantRoot := filepath.Join("/srv/jailer", "firecracker", "abc123", "root")
	if ws.Root != wantRoot {
		t.Fatalf("Root = %q, want %q", ws.Root, wantRoot)
	}

	wantInstanceDir := filepath.Join("/srv/jailer", "firecracker", "abc123")
	if ws.InstanceDir() != wantInstanceDir {
		t.Fatalf("InstanceDir = %q, want %q", ws.InstanceDir(), wantInstanceDir)
	}
}

func TestWorkspaceJailedPath(t *testing.T) {
	ws := NewWorkspace("/srv/jailer", "firecracker", "abc123")
	got := ws.JailedPath("run/firecracker.socket")
	want := filepath.Join(ws.Root, "run/firecracker.socket")
	if got != want {
		t.Fatalf("JailedPath = %q, want %q", got, want)
	}
}

func TestJailComputesDefaultPaths(t *testing.T) {
	j := &Jailer{
		ExecFile:   "/usr/local/bin/firecracker",
		ID:         "vm-1",
		ChrootBase: "/srv/jailer",
	}

	if err := j.Jail(); err != nil {
		t.Fatalf("Jail: %v", err)
	}

	wantSocket := filepath.Join(j.Workspace.Root, "run/firecracker.socket")
	if j.SocketPath != wantSocket {
		t.Fatalf("SocketPath = %q, want %q", j.SocketPath, wantSocket)
	}

	wantLock := filepath.Join(j.Workspace.Root, "run/firecracker.lock")
	if j.LockPath != wantLock {
		t.Fatalf("LockPath = %q, want %q", j.LockPath, wantLock)
	}
}

func TestTranslateHostPathIsDeterministic(t *testing.T) {
	j := &Jailer{
		ExecFile:   "/usr/local/bin/firecracker",
		ID:         "vm-1",
		ChrootBase: "/srv/jailer",
	}
	if err := j.Jail(); err != nil {
		t.Fatalf("Jail: %v", err)
	}

	jailedRef, hostPath := j.TranslateHostPath("drives", "/data/images/rootfs.ext4")

	if jailedRef != "/drives/rootfs.ext4" {
		t.Fatalf("jailedRef = %q, want %q", jailedRef, "/drives/rootfs.ext4")
	}

	wantHostPath := filepath.Join(j.Workspace.Root, "drives", "rootfs.ext4")
	if hostPath != wantHostPath {
		t.Fatalf("hostPath = %q, want %q", hostPath, wantHostPath)
	}

	// Same inputs must produce the same outputs every time.
	jailedRef2, hostPath2 := j.TranslateHostPath("drives", "/data/images/rootfs.ext4")
	if jailedRef2 != jailedRef || hostPath2 != hostPath {
		t.Fatal("TranslateHostPath is not deterministic for identical inputs")
	}
}
