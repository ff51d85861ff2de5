package registry

import (
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/golang/groupcache/singleflight"

	"github.com/fakenotify/fakenotify/pkg/filesystem"
	"github.com/fakenotify/fakenotify/pkg/protocol"
)

// defaultCanonicalizationCacheSize bounds the number of resolved paths kept
// in memory. Watch churn on a busy daemon is small relative to this, so
// eviction under normal operation should be rare.
const defaultCanonicalizationCacheSize = 4096

// canonicalizer resolves and caches the canonical (absolute, symlink-free)
// form of a requested watch path, collapsing concurrent lookups for the
// same path into a single filesystem walk.
type canonicalizer struct {
	cache *lru.Cache[string, string]
	group singleflight.Group
}

func newCanonicalizer() (*canonicalizer, error) {
	cache, err := lru.New[string, string](defaultCanonicalizationCacheSize)
	if err != nil {
		return nil, err
	}
	return &canonicalizer{cache: cache}, nil
}

// resolve returns the canonical form of path, validating existence and (if
// recursive is set) that the result is a directory, per §4.2's
// canonicalization rules.
func (c *canonicalizer) resolve(path string, recursive bool) (string, error) {
	cacheKey := path
	if canonical, ok := c.cache.Get(cacheKey); ok {
		if info, err := os.Stat(canonical); err == nil {
			if !recursive || info.IsDir() {
				return canonical, nil
			}
		}
		c.cache.Remove(cacheKey)
	}

	result, err := c.group.Do(cacheKey, func() (interface{}, error) {
		return resolveCanonicalPath(path, recursive)
	})
	if err != nil {
		return "", err
	}

	canonical := result.(string)
	c.cache.Add(cacheKey, canonical)
	return canonical, nil
}

// invalidate drops a cached resolution, used when a watched root
// disappears structurally so a subsequent ADD re-resolves from scratch.
func (c *canonicalizer) invalidate(path string) {
	c.cache.Remove(path)
}

func resolveCanonicalPath(path string, recursive bool) (string, error) {
	absolute, err := filesystem.Normalize(path)
	if err != nil {
		return "", protocol.NewError(protocol.ErrorCodeInvalidArgument, err.Error())
	}

	resolved, err := filepath.EvalSymlinks(absolute)
	if err != nil {
		if os.IsNotExist(err) {
			return "", protocol.NewError(protocol.ErrorCodeNotFound, "path does not exist")
		}
		return "", protocol.NewError(protocol.ErrorCodeInternal, err.Error())
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return "", protocol.NewError(protocol.ErrorCodeNotFound, "path does not exist")
	}
	if recursive && !info.IsDir() {
		return "", protocol.NewError(protocol.ErrorCodeInvalidArgument, "recursive watch requires a directory")
	}

	return resolved, nil
}
