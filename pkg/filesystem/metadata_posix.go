package filesystem

import (
	"os"
	"syscall"

	"github.com/pkg/errors"
)

// Metadata holds the subset of filesystem metadata the scanner needs to
// detect changes and filesystem-boundary crossings without following
// symbolic links.
type Metadata struct {
	// DeviceID identifies the filesystem device the entry resides on.
	DeviceID uint64
	// FileID is the entry's inode number.
	FileID uint64
	// Size is the entry's size in bytes (meaningless for directories).
	Size int64
	// ModificationTime is the entry's last modification time.
	ModificationTime int64
	// IsDirectory indicates whether the entry is a directory.
	IsDirectory bool
	// IsSymbolicLink indicates whether the entry is a symbolic link.
	IsSymbolicLink bool
}

// QueryMetadata performs an os.Lstat on path (not following a trailing
// symbolic link) and extracts the device/inode/size/mtime fields needed for
// change detection.
func QueryMetadata(path string) (*Metadata, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return nil, err
	}

	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return nil, errors.New("unable to extract raw filesystem information")
	}

	return &Metadata{
		DeviceID:         uint64(stat.Dev),
		FileID:           uint64(stat.Ino),
		Size:             info.Size(),
		ModificationTime: info.ModTime().UnixNano(),
		IsDirectory:      info.IsDir(),
		IsSymbolicLink:   info.Mode()&os.ModeSymlink != 0,
	}, nil
}
