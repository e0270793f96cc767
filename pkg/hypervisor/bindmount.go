package hypervisor

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// bindMountDir bind-mounts the directory containing hostPath onto
// targetDir (creating targetDir first), per spec §4.6 step 3/4. It
// returns only an error; the jail-relative reference the VMM should use
// comes from Jailer.TranslateHostPath.
func bindMountDir(hostPath, targetDir string) error {
	hostDir := filepath.Dir(hostPath)

	if err := os.MkdirAll(targetDir, 0o700); err != nil {
		return fmt.Errorf("%w: mkdir %s: %v", ErrIO, targetDir, err)
	}

	if err := syscall.Mount(hostDir, targetDir, "", syscall.MS_BIND, ""); err != nil {
		return fmt.Errorf("%w: bind mount %s -> %s: %v", ErrIO, hostDir, targetDir, err)
	}

	return nil
}

// statOwner reads the current owner of path, for recording a
// rollback.Chown entry before chownPath changes it.
func statOwner(path string) (uid, gid int, err error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: stat %s: %v", ErrIO, path, err)
	}
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, 0, fmt.Errorf("%w: cannot read owner of %s", ErrIO, path)
	}
	return int(st.Uid), int(st.Gid), nil
}

// chownPath changes path's owner to uid/gid, as the jailer process needs
// in order to access a bind-mounted drive file.
func chownPath(path string, uid, gid int) error {
	if err := os.Chown(path, uid, gid); err != nil {
		return fmt.Errorf("%w: chown %s: %v", ErrIO, path, err)
	}
	return nil
}
