package aria2

import (
	"net/url"
	"strings"

	"github.com/slipstream/aria2/rpc"
)

// gidLength is the fixed width of aria2 job identifiers.
const gidLength = 16

// validateGID checks the fixed-width hex form aria2 uses for job ids.
// Rejecting malformed ids here keeps garbage off the wire and turns the
// server's opaque "not found" into an immediate, attributable error.
func validateGID(gid string) error {
	if len(gid) != gidLength {
		return rpc.ValidationErr("gid %q must be %d characters, got %d", gid, gidLength, len(gid))
	}
	for _, r := range gid {
		if !isHexDigit(r) {
			return rpc.ValidationErr("gid %q must be hexadecimal", gid)
		}
	}
	return nil
}

func isHexDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

func validateURIs(uris []string) error {
	if len(uris) == 0 {
		return rpc.ValidationErr("at least one URI is required")
	}
	for _, uri := range uris {
		if strings.TrimSpace(uri) == "" {
			return rpc.ValidationErr("URIs must be non-empty")
		}
		if _, err := url.Parse(uri); err != nil {
			return rpc.ValidationErr("invalid URI %q: %v", uri, err)
		}
	}
	return nil
}

// validatePagination checks a tellWaiting/tellStopped window. A negative
// offset is valid aria2 semantics (counts back from the end), but the page
// size must be positive.
func validatePagination(num int) error {
	if num <= 0 {
		return rpc.ValidationErr("page size must be positive, got %d", num)
	}
	return nil
}

func validatePosition(how Position) error {
	switch how {
	case PositionSet, PositionCur, PositionEnd:
		return nil
	default:
		return rpc.ValidationErr("invalid position %q: must be POS_SET, POS_CUR, or POS_END", how)
	}
}

func validateOptions(opts Options) error {
	if len(opts) == 0 {
		return rpc.ValidationErr("at least one option is required")
	}
	for k := range opts {
		if strings.TrimSpace(k) == "" {
			return rpc.ValidationErr("option names must be non-empty")
		}
	}
	return nil
}
