package agent

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileLockAcquireRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.lock")

	l, err := openLock(path)
	if err != nil {
		t.Fatalf("openLock: %v", err)
	}
	defer l.Close()

	if err := l.Acquire(); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := l.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}

	// Re-acquiring after release must succeed.
	if err := l.Acquire(); err != nil {
		t.Fatalf("re-acquire: %v", err)
	}
	if err := l.Release(); err != nil {
		t.Fatalf("re-release: %v", err)
	}
}

func TestOpenLockCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "does", "not", "exist", "agent.lock")

	if _, err := openLock(path); err == nil {
		t.Fatal("expected error creating a lock file in a nonexistent directory")
	}

	path2 := filepath.Join(t.TempDir(), "agent.lock")
	l, err := openLock(path2)
	if err != nil {
		t.Fatalf("openLock: %v", err)
	}
	defer l.Close()

	if _, err := os.Stat(path2); err != nil {
		t.Fatalf("expected lock file to be created: %v", err)
	}
}
