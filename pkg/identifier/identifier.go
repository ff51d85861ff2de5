// Package identifier generates and validates the collision-resistant
// identifiers used to name client connections and watches within the daemon.
package identifier

import (
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const (
	// PrefixClient is the prefix used for client connection identifiers.
	PrefixClient = "clnt"
	// PrefixWatch is the prefix for watch identifiers (distinct from the
	// integer watch descriptor, which the registry allocates from a single
	// daemon-wide counter).
	PrefixWatch = "wtch"

	// requiredPrefixLength is the required length for identifier prefixes.
	requiredPrefixLength = 4
	// encodedLength is the length of a UUID encoded as unseparated lowercase
	// hex (32 hex digits for 16 bytes).
	encodedLength = 32
)

// matcher matches identifiers of the form "prefix_" followed by a
// hyphen-free lowercase hex UUID.
var matcher = regexp.MustCompile("^[a-z]{4}_[0-9a-f]{32}$")

// legacyMatcher matches a bare hyphenated UUID, accepted for compatibility
// with callers that log or persist a raw uuid.UUID value.
var legacyMatcher = regexp.MustCompile("^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$")

// New generates a new identifier with the specified prefix. The prefix must
// have a length of requiredPrefixLength and consist only of lowercase
// letters.
func New(prefix string) (string, error) {
	if len(prefix) != requiredPrefixLength {
		return "", errors.New("incorrect prefix length")
	}
	for _, r := range prefix {
		if !('a' <= r && r <= 'z') {
			return "", errors.New("invalid prefix character")
		}
	}

	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	encoded := strings.ReplaceAll(id.String(), "-", "")
	if len(encoded) != encodedLength {
		panic("encoded identifier length incorrect")
	}

	builder := &strings.Builder{}
	builder.Grow(requiredPrefixLength + 1 + encodedLength)
	builder.WriteString(prefix)
	builder.WriteRune('_')
	builder.WriteString(encoded)
	return builder.String(), nil
}

// IsValid determines whether or not a string is a valid identifier.
func IsValid(value string) bool {
	return matcher.MatchString(value) || legacyMatcher.MatchString(value)
}
