package page

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DefaultVersion is the distinguished "unversioned" sentinel. Formatting an
// address with this version omits the "@version" suffix, and parsing a string
// without a version suffix yields it.
const DefaultVersion = 0

// ErrMalformedAddress is returned when an address string fails to parse or an
// address component is invalid.
var ErrMalformedAddress = errors.New("page: malformed address")

// Address identifies a page as (root, type, id, version).
//
// Contract:
// - Immutability: Address is a value type; derive variants with WithVersion.
// - Equality: two addresses are equal iff all four fields match; Address is
//   comparable and usable as a map key.
// - Round-trip: Parse(a.String()) == a for every valid address.
type Address struct {
	Root    string
	Type    string
	ID      string
	Version int
}

// New constructs a validated Address.
// The type tag must not contain '/', ':' or '@'; the id must not contain
// ':' or '@'; the version must be non-negative.
func New(root, typ, id string, version int) (Address, error) {
	a := Address{Root: root, Type: typ, ID: id, Version: version}
	if err := a.validate(); err != nil {
		return Address{}, err
	}
	return a, nil
}

func (a Address) validate() error {
	if a.Type == "" || strings.ContainsAny(a.Type, "/:@") {
		return fmt.Errorf("%w: type %q must be non-empty and free of '/', ':' and '@'", ErrMalformedAddress, a.Type)
	}
	if a.ID == "" || strings.ContainsAny(a.ID, ":@") {
		return fmt.Errorf("%w: id %q must be non-empty and free of ':' and '@'", ErrMalformedAddress, a.ID)
	}
	if a.Version < 0 {
		return fmt.Errorf("%w: version must be non-negative, got %d", ErrMalformedAddress, a.Version)
	}
	return nil
}

// Parse parses the canonical form "root/type:id@version". The "@version"
// suffix is optional; without it the address carries DefaultVersion.
func Parse(s string) (Address, error) {
	slash := strings.Index(s, "/")
	if slash < 0 {
		return Address{}, fmt.Errorf("%w: %q missing '/' separator", ErrMalformedAddress, s)
	}
	root, rest := s[:slash], s[slash+1:]

	colon := strings.Index(rest, ":")
	if colon < 0 {
		return Address{}, fmt.Errorf("%w: %q missing ':' separator", ErrMalformedAddress, s)
	}
	typ, rest := rest[:colon], rest[colon+1:]

	version := DefaultVersion
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		v, err := strconv.Atoi(rest[at+1:])
		if err != nil || v < 0 {
			return Address{}, fmt.Errorf("%w: %q has invalid version %q", ErrMalformedAddress, s, rest[at+1:])
		}
		version = v
		rest = rest[:at]
	}

	return New(root, typ, rest, version)
}

// String returns the canonical form. The "@version" suffix is omitted when
// the version equals DefaultVersion.
func (a Address) String() string {
	if a.Version == DefaultVersion {
		return a.Prefix()
	}
	return a.Prefix() + "@" + strconv.Itoa(a.Version)
}

// Prefix returns "root/type:id" without any version suffix. All versions of
// the same logical page share a prefix.
func (a Address) Prefix() string {
	return a.Root + "/" + a.Type + ":" + a.ID
}

// WithVersion returns a copy of the address carrying version n.
func (a Address) WithVersion(n int) Address {
	a.Version = n
	return a
}

// IsZero reports whether the address is the zero value.
func (a Address) IsZero() bool {
	return a == Address{}
}

// MarshalText renders the address as its canonical string, so Address-valued
// struct fields serialize as strings in JSON.
func (a Address) MarshalText() ([]byte, error) {
	if err := a.validate(); err != nil {
		return nil, err
	}
	return []byte(a.String()), nil
}

// UnmarshalText parses the canonical string form.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
