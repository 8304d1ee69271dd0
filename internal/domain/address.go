package domain

import (
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// AddressLength is the byte length of every account and oracle address.
const AddressLength = 32

// ZeroAddress is the base58 encoding of 32 zero bytes.
// Renouncing ownership hands the oracle to this address.
const ZeroAddress Address = "11111111111111111111111111111111"

// ErrInvalidAddress is returned when a string is not a base58 encoded 32-byte key.
var ErrInvalidAddress = errors.New("invalid address")

// Address is a base58 encoded 32-byte key.
// Participants are ed25519 public keys, oracles and tokens are program-derived.
type Address string

// ParseAddress validates s and returns it as an Address.
func ParseAddress(s string) (Address, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidAddress, s, err)
	}
	if len(raw) != AddressLength {
		return "", fmt.Errorf("%w: %q decodes to %d bytes", ErrInvalidAddress, s, len(raw))
	}
	return Address(s), nil
}

// MustParseAddress is ParseAddress that panics on error. Intended for tests and constants.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// AddressFromBytes encodes a 32-byte key.
func AddressFromBytes(b []byte) (Address, error) {
	if len(b) != AddressLength {
		return "", fmt.Errorf("%w: %d bytes", ErrInvalidAddress, len(b))
	}
	return Address(base58.Encode(b)), nil
}

// Bytes decodes the address into its raw key bytes.
func (a Address) Bytes() ([]byte, error) {
	raw, err := base58.Decode(string(a))
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidAddress, string(a), err)
	}
	if len(raw) != AddressLength {
		return nil, fmt.Errorf("%w: %q decodes to %d bytes", ErrInvalidAddress, string(a), len(raw))
	}
	return raw, nil
}

// IsZero reports whether a is empty or the zero address.
func (a Address) IsZero() bool {
	return a == "" || a == ZeroAddress
}

// String implements fmt.Stringer.
func (a Address) String() string {
	return string(a)
}
