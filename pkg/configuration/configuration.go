// Package configuration loads and validates the daemon's TOML configuration
// file: the [daemon] section (socket path, log level, socket group,
// per-watch entry limit, allow-list) and zero or more [[watch]] entries
// seeded at startup.
package configuration

import (
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"

	"github.com/fakenotify/fakenotify/pkg/daemon"
	"github.com/fakenotify/fakenotify/pkg/encoding"
	"github.com/fakenotify/fakenotify/pkg/logging"
)

// defaultMaxEntriesPerWatch is used when a configuration omits
// max_entries_per_watch.
const defaultMaxEntriesPerWatch = 65536

// defaultLogLevel is used when a configuration omits log_level.
const defaultLogLevel = "info"

// defaultPollInterval is used when a [[watch]] entry omits poll_interval.
const defaultPollInterval = 5 * time.Second

// Daemon holds the [daemon] section of the configuration file.
type Daemon struct {
	Socket              string       `toml:"socket"`
	LogLevel            string       `toml:"log_level"`
	SocketGroup         string       `toml:"socket_group"`
	MaxEntriesPerWatch  int          `toml:"max_entries_per_watch"`
	AllowRoots          []string     `toml:"allow_roots"`
	DefaultPollInterval pollDuration `toml:"default_poll_interval"`
}

// Watch holds one [[watch]] entry of the configuration file.
type Watch struct {
	Path         string       `toml:"path"`
	Recursive    bool         `toml:"recursive"`
	PollInterval pollDuration `toml:"poll_interval"`
}

// Configuration is the fully parsed contents of a daemon configuration
// file.
type Configuration struct {
	Daemon Daemon  `toml:"daemon"`
	Watch  []Watch `toml:"watch"`
}

// Load reads and parses the configuration file at path, applying defaults
// and validating the result.
func Load(path string) (*Configuration, error) {
	var config Configuration
	if err := encoding.LoadAndUnmarshalTOML(path, &config); err != nil {
		return nil, errors.Wrap(err, "unable to parse configuration file")
	}

	config.applyDefaults()

	if err := config.validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	return &config, nil
}

func (c *Configuration) applyDefaults() {
	if c.Daemon.Socket == "" {
		if path, err := daemon.DefaultEndpointPath(); err == nil {
			c.Daemon.Socket = path
		}
	}
	if c.Daemon.LogLevel == "" {
		c.Daemon.LogLevel = defaultLogLevel
	}
	if c.Daemon.MaxEntriesPerWatch == 0 {
		c.Daemon.MaxEntriesPerWatch = defaultMaxEntriesPerWatch
	}
	if c.Daemon.DefaultPollInterval.Duration() == 0 {
		c.Daemon.DefaultPollInterval = pollDuration(defaultPollInterval)
	}
	for i := range c.Watch {
		if c.Watch[i].PollInterval.Duration() == 0 {
			c.Watch[i].PollInterval = pollDuration(defaultPollInterval)
		}
	}
}

func (c *Configuration) validate() error {
	if _, ok := logging.NameToLevel(c.Daemon.LogLevel); !ok {
		return errors.Errorf("unknown log level: %q", c.Daemon.LogLevel)
	}
	if c.Daemon.MaxEntriesPerWatch <= 0 {
		return errors.New("max_entries_per_watch must be positive")
	}
	for _, pattern := range c.Daemon.AllowRoots {
		if !doublestar.ValidatePattern(pattern) {
			return errors.Errorf("invalid allow_roots pattern: %q", pattern)
		}
	}
	for i, w := range c.Watch {
		if w.Path == "" {
			return errors.Errorf("watch entry %d is missing a path", i)
		}
		if !doublestar.ValidatePattern(w.Path) {
			return errors.Errorf("watch entry %d has an invalid path pattern: %q", i, w.Path)
		}
		if w.PollInterval.Duration() < 0 {
			return errors.Errorf("watch entry %d has a negative poll_interval", i)
		}
	}
	return nil
}

// AllowedByRoots reports whether path matches one of the configured
// allow-list patterns. An empty allow-list permits everything.
func (c *Configuration) AllowedByRoots(path string) bool {
	if len(c.Daemon.AllowRoots) == 0 {
		return true
	}
	for _, pattern := range c.Daemon.AllowRoots {
		if match, _ := doublestar.Match(pattern, path); match {
			return true
		}
	}
	return false
}

// ExpandWatchPaths resolves every [[watch]] entry's (possibly glob) path
// against the filesystem, returning one concrete watch per match. A
// non-glob path that does not exist is passed through unchanged so that
// Load-time errors surface uniformly through the registry's ADD handling
// rather than being silently dropped here.
func ExpandWatchPaths(watches []Watch) ([]Watch, error) {
	var expanded []Watch
	for _, w := range watches {
		matches, err := doublestar.FilepathGlob(w.Path)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to expand watch path %q", w.Path)
		}
		if len(matches) == 0 {
			expanded = append(expanded, w)
			continue
		}
		for _, match := range matches {
			entry := w
			entry.Path = match
			expanded = append(expanded, entry)
		}
	}
	return expanded, nil
}
