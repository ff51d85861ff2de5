package configuration

import (
	"time"

	"github.com/pkg/errors"
)

// pollDuration is a time.Duration that accepts either a duration string
// ("5s", "250ms") or a bare integer, interpreted as whole seconds, in its
// TOML representation. String-duration parsing is tried first; an integer
// value falls back to seconds-based interpretation. This resolves the
// ambiguity the source material left between its documented duration-string
// examples and its generated-default integer form.
type pollDuration time.Duration

// Duration returns d as a standard time.Duration.
func (d pollDuration) Duration() time.Duration {
	return time.Duration(d)
}

// UnmarshalTOML implements toml.Unmarshaler.
func (d *pollDuration) UnmarshalTOML(value interface{}) error {
	switch v := value.(type) {
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrapf(err, "invalid poll_interval duration %q", v)
		}
		*d = pollDuration(parsed)
		return nil
	case int64:
		*d = pollDuration(time.Duration(v) * time.Second)
		return nil
	case int:
		*d = pollDuration(time.Duration(v) * time.Second)
		return nil
	default:
		return errors.Errorf("poll_interval must be a duration string or an integer number of seconds, got %T", value)
	}
}
