//go:build !windows

package preflight

import (
	"golang.org/x/sys/unix"
)

// checkVolumeExists is a no-op on unix; every path lives under "/".
func checkVolumeExists(string) error { return nil }

// checkWritable asks the kernel whether the current user may create
// entries in dir, without touching the filesystem.
func checkWritable(dir string) error {
	return unix.Access(dir, unix.W_OK|unix.X_OK)
}
