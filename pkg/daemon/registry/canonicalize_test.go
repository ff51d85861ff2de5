package registry

import (
	"os"
	"path/filepath"
	"testing"
)

// TestCanonicalizerResolvesSymlinks verifies that a path reached via a
// symlink resolves to the real underlying directory.
func TestCanonicalizerResolvesSymlinks(t *testing.T) {
	root := t.TempDir()
	real := filepath.Join(root, "real")
	if err := os.Mkdir(real, 0755); err != nil {
		t.Fatalf("unable to create directory: %v", err)
	}
	link := filepath.Join(root, "link")
	if err := os.Symlink(real, link); err != nil {
		t.Fatalf("unable to create symlink: %v", err)
	}

	c, err := newCanonicalizer()
	if err != nil {
		t.Fatalf("unable to construct canonicalizer: %v", err)
	}

	resolved, err := c.resolve(link, false)
	if err != nil {
		t.Fatalf("unable to resolve path: %v", err)
	}

	expected, err := filepath.EvalSymlinks(real)
	if err != nil {
		t.Fatalf("unable to resolve expected path: %v", err)
	}
	if resolved != expected {
		t.Errorf("got %q, expected %q", resolved, expected)
	}
}

// TestCanonicalizerCachesResult verifies that a second resolution of the
// same path is served from cache (same result, and the cache entry exists).
func TestCanonicalizerCachesResult(t *testing.T) {
	dir := t.TempDir()
	c, err := newCanonicalizer()
	if err != nil {
		t.Fatalf("unable to construct canonicalizer: %v", err)
	}

	first, err := c.resolve(dir, false)
	if err != nil {
		t.Fatalf("unable to resolve path: %v", err)
	}
	if _, ok := c.cache.Get(dir); !ok {
		t.Fatal("expected resolution to populate the cache")
	}

	second, err := c.resolve(dir, false)
	if err != nil {
		t.Fatalf("unable to resolve path: %v", err)
	}
	if first != second {
		t.Errorf("got %q then %q, expected identical results", first, second)
	}
}

// TestCanonicalizerRejectsNonexistent verifies that resolving a missing
// path fails cleanly.
func TestCanonicalizerRejectsNonexistent(t *testing.T) {
	c, err := newCanonicalizer()
	if err != nil {
		t.Fatalf("unable to construct canonicalizer: %v", err)
	}
	if _, err := c.resolve(filepath.Join(t.TempDir(), "missing"), false); err == nil {
		t.Error("expected error resolving nonexistent path")
	}
}

// TestCanonicalizerInvalidate verifies that invalidating a cached entry
// forces the next resolution to re-walk the filesystem rather than trusting
// a stale cache hit silently (Stat-on-hit already guards against this, but
// invalidate is used for explicit structural-failure cleanup).
func TestCanonicalizerInvalidate(t *testing.T) {
	dir := t.TempDir()
	c, err := newCanonicalizer()
	if err != nil {
		t.Fatalf("unable to construct canonicalizer: %v", err)
	}
	if _, err := c.resolve(dir, false); err != nil {
		t.Fatalf("unable to resolve path: %v", err)
	}

	c.invalidate(dir)
	if _, ok := c.cache.Get(dir); ok {
		t.Error("expected cache entry to be removed after invalidate")
	}
}
