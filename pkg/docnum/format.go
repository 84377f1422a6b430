package docnum

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultSeparator joins the scope components and the serial.
const DefaultSeparator = "-"

// Format describes how identifiers of one scope are rendered.
//
// Prefix is the fully rendered scope, e.g. "1403-12345" or "REF-2025". The
// serial is appended after Separator, zero-padded to at least Width digits.
type Format struct {
	Prefix    string
	Separator string
	Width     int
}

func (f Format) separator() string {
	if f.Separator == "" {
		return DefaultSeparator
	}
	return f.Separator
}

// ScopePrefix returns the string every identifier of this scope begins with,
// including the trailing separator. Matching on the separator keeps scope
// "1403-123" from matching identifiers of scope "1403-1234".
func (f Format) ScopePrefix() string {
	return f.Prefix + f.separator()
}

// Render returns the identifier for serial. Serials wider than Width are
// rendered in full.
func (f Format) Render(serial uint64) string {
	return fmt.Sprintf("%s%0*d", f.ScopePrefix(), f.Width, serial)
}

// Serial extracts the trailing serial from an identifier of this scope.
func (f Format) Serial(identifier string) (uint64, error) {
	prefix := f.ScopePrefix()
	if !strings.HasPrefix(identifier, prefix) {
		return 0, &MalformedIdentifierError{
			Identifier: identifier,
			Prefix:     prefix,
			Err:        fmt.Errorf("missing scope prefix"),
		}
	}

	tail := identifier[len(prefix):]
	if tail == "" || strings.Contains(tail, f.separator()) {
		return 0, &MalformedIdentifierError{Identifier: identifier, Prefix: prefix}
	}
	for _, r := range tail {
		if r < '0' || r > '9' {
			return 0, &MalformedIdentifierError{Identifier: identifier, Prefix: prefix}
		}
	}

	serial, err := strconv.ParseUint(tail, 10, 64)
	if err != nil {
		return 0, &MalformedIdentifierError{Identifier: identifier, Prefix: prefix, Err: err}
	}
	return serial, nil
}

// Validate checks that the format can produce identifiers.
func (f Format) Validate() error {
	if f.Prefix == "" {
		return fmt.Errorf("%w: empty prefix", ErrScopeResolution)
	}
	if f.Width < 1 {
		return fmt.Errorf("invalid width %d", f.Width)
	}
	return nil
}
