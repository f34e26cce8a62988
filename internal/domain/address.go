package domain

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Address is a 20-byte Ethereum account address.
type Address [20]byte

// Hash is a 32-byte Keccak-256 digest. Record, tag and target ids are hashes.
type Hash [32]byte

// ZeroAddress is the all-zero address.
var ZeroAddress Address

// String returns the 0x-prefixed lowercase hex form.
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// IsZero reports whether a is the zero address.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAddress parses a 0x-prefixed, 40-digit hex address. Hex case is ignored.
func ParseAddress(s string) (Address, error) {
	var a Address
	if err := decodeHex(s, a[:]); err != nil {
		return a, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return a, nil
}

// MustParseAddress is like ParseAddress but panics on error. Intended for
// constants and tests.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// String returns the 0x-prefixed lowercase hex form.
func (h Hash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

// IsZero reports whether h is all zeros.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// MarshalText implements encoding.TextMarshaler.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := ParseHash(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// ParseHash parses a 0x-prefixed, 64-digit hex hash.
func ParseHash(s string) (Hash, error) {
	var h Hash
	if err := decodeHex(s, h[:]); err != nil {
		return h, fmt.Errorf("invalid id %q: %w", s, err)
	}
	return h, nil
}

// ParseHashes parses every element of ss, failing on the first bad one.
func ParseHashes(ss []string) ([]Hash, error) {
	out := make([]Hash, 0, len(ss))
	for _, s := range ss {
		h, err := ParseHash(s)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}

func decodeHex(s string, dst []byte) error {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return fmt.Errorf("missing 0x prefix")
	}
	body := s[2:]
	if len(body) != len(dst)*2 {
		return fmt.Errorf("want %d hex digits, got %d", len(dst)*2, len(body))
	}
	if _, err := hex.Decode(dst, []byte(body)); err != nil {
		return err
	}
	return nil
}
