package tail

import (
	"os"
	"path/filepath"
	"syscall"
)

// isTailable reports whether metadata describes a file type suitable for
// incremental reading: a regular file, character device, or FIFO.
func isTailable(md os.FileInfo) bool {
	if md == nil {
		return false
	}
	mode := md.Mode()
	return mode.IsRegular() || mode&os.ModeCharDevice != 0 || mode&os.ModeNamedPipe != 0
}

// pathIsTailable reports whether the path currently names a tailable file.
func pathIsTailable(path string) bool {
	md, err := os.Stat(path)
	return err == nil && isTailable(md)
}

// gotTruncated reports whether the file was modified and is now shorter.
func gotTruncated(old, now os.FileInfo) (bool, error) {
	return now.Size() < old.Size() && !now.ModTime().Equal(old.ModTime()), nil
}

// fileID extracts the (device, inode) pair identifying a file.
func fileID(md os.FileInfo) (dev, ino uint64, ok bool) {
	st, ok := md.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, 0, false
	}
	return uint64(st.Dev), uint64(st.Ino), true
}

// fileIDEq reports whether two metadata snapshots refer to the same
// underlying file.
func fileIDEq(a, b os.FileInfo) bool {
	adev, aino, aok := fileID(a)
	bdev, bino, bok := fileID(b)
	return aok && bok && adev == bdev && aino == bino
}

// isOrphan reports whether path has no existing parent directory.
func isOrphan(path string) bool {
	fi, err := os.Stat(filepath.Dir(path))
	return err != nil || !fi.IsDir()
}

// pathExists reports whether the path currently exists.
func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
