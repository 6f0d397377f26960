//go:build !unix

package indexer

import (
	"io/fs"
	"os"
)

func pathfsSymlinkMode() fs.FileMode {
	return os.ModeSymlink
}

// fingerprintOf has no portable (inode, device) source outside unix;
// Panoptikon targets macOS only; this stub exists solely so the module
// still builds on a non-unix development host.
func fingerprintOf(fs.FileInfo) cycleKey {
	return cycleKey{}
}
