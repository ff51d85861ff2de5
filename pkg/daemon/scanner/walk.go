package scanner

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"

	"github.com/fakenotify/fakenotify/pkg/filesystem"
)

// errRootGone signals that the watched root itself no longer exists,
// distinct from a transient per-entry I/O error encountered mid-walk.
var errRootGone = errors.New("watched root no longer exists")

// errOverflow signals that the entry count threshold was exceeded partway
// through a walk.
var errOverflow = errors.New("entry count exceeds configured maximum")

type entryKind int

const (
	entryFile entryKind = iota
	entryDirectory
	entrySymlink
)

type entryInfo struct {
	kind   entryKind
	size   int64
	mtime  int64
	inode  uint64
	device uint64
}

// walkRoot walks root (recursively, if recursive is set) and returns a
// snapshot of its contents keyed by slash-separated path relative to root.
// It never follows symbolic links and never descends across a filesystem
// device boundary (§4.3: "following no symlinks out of the root. Refuse to
// cross filesystem boundaries"). Per-entry I/O errors encountered mid-walk
// (concurrent deletion, permission changes on a single file) are swallowed
// so the walk can self-correct on the next tick; only the root's own
// disappearance is surfaced as errRootGone.
func walkRoot(root string, recursive bool, maxEntries int) (map[string]entryInfo, error) {
	rootMetadata, err := filesystem.QueryMetadata(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errRootGone
		}
		return nil, errRootGone
	}

	entries := make(map[string]entryInfo, 1024)

	var walk func(directory, relativePrefix string, device uint64) error
	walk = func(directory, relativePrefix string, device uint64) error {
		children, err := os.ReadDir(directory)
		if err != nil {
			// A directory disappearing or becoming unreadable mid-walk is a
			// transient condition; the next tick will self-correct.
			return nil
		}

		names := make([]string, len(children))
		for i, child := range children {
			names[i] = child.Name()
		}
		sort.Strings(names)

		for _, name := range names {
			childPath := filepath.Join(directory, name)
			relativePath := name
			if relativePrefix != "" {
				relativePath = relativePrefix + "/" + name
			}

			metadata, err := filesystem.QueryMetadata(childPath)
			if err != nil {
				continue
			}

			var kind entryKind
			switch {
			case metadata.IsSymbolicLink:
				kind = entrySymlink
			case metadata.IsDirectory:
				kind = entryDirectory
			default:
				kind = entryFile
			}

			entries[relativePath] = entryInfo{
				kind:   kind,
				size:   metadata.Size,
				mtime:  metadata.ModificationTime,
				inode:  metadata.FileID,
				device: metadata.DeviceID,
			}
			if len(entries) > maxEntries {
				return errOverflow
			}

			if kind == entryDirectory && recursive {
				if metadata.DeviceID != device {
					// Filesystem boundary: refuse to descend.
					continue
				}
				if err := walk(childPath, relativePath, metadata.DeviceID); err != nil {
					return err
				}
			}
		}

		return nil
	}

	if err := walk(root, "", rootMetadata.DeviceID); err != nil {
		return nil, err
	}

	return entries, nil
}
