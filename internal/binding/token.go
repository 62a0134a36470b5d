package binding

import (
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidToken is returned for scanned text that is not a recognizable
// elder badge token. There is no partial parse.
var ErrInvalidToken = errors.New("invalid binding token")

// Scheme is the URI scheme printed in badge QR codes.
const Scheme = "floorcurl"

// Accepted token shapes: a bare lowercase UUID, or floorcurl://elder/{uuid}.
var (
	bareUUIDPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
	elderURIPattern = regexp.MustCompile(`^` + Scheme + `://elder/([a-f0-9-]+)$`)
)

// ParseElderToken extracts the elder badge UUID from scanned text. Both
// accepted forms of the same UUID resolve to an identical identifier.
func ParseElderToken(raw string) (string, error) {
	raw = strings.TrimSpace(raw)

	if bareUUIDPattern.MatchString(raw) {
		return raw, nil
	}

	if m := elderURIPattern.FindStringSubmatch(raw); m != nil {
		id, err := uuid.Parse(m[1])
		if err != nil {
			return "", ErrInvalidToken
		}
		return id.String(), nil
	}

	return "", ErrInvalidToken
}
