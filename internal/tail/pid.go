package tail

import "golang.org/x/sys/unix"

// pidIsDead reports whether the process no longer exists. A signal-0 probe
// succeeds (or fails with EPERM) for a live process and fails with ESRCH
// once it is gone.
func pidIsDead(pid int) bool {
	err := unix.Kill(pid, 0)
	return err == unix.ESRCH
}
