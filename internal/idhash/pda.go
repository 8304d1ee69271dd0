package idhash

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"

	"filippo.io/edwards25519"

	"weighted-oracle/internal/domain"
)

// Seeds used for derived addresses.
const (
	SeedOracle  = "oracle"
	SeedToken   = "token"
	SeedNative  = "native"
	SeedFactory = "factory"
)

// pdaMarker is appended to every derivation input.
const pdaMarker = "ProgramDerivedAddress"

// ErrNoViableBump is returned when no bump seed yields an off-curve address.
var ErrNoViableBump = errors.New("no viable bump seed")

// DeriveAddress derives a program-derived address from seeds.
// Algorithm:
// 1. Concatenate all seeds with bump
// 2. Append program ID and "ProgramDerivedAddress" marker
// 3. SHA256 hash
// 4. Take the first bump, counting down from 255, whose hash is off the ed25519 curve
func DeriveAddress(seeds [][]byte, programID []byte) (domain.Address, uint8, error) {
	for bump := 255; bump > 0; bump-- {
		data := make([]byte, 0, 64)
		for _, seed := range seeds {
			data = append(data, seed...)
		}
		data = append(data, byte(bump))
		data = append(data, programID...)
		data = append(data, []byte(pdaMarker)...)

		hash := sha256.Sum256(data)

		if !IsOnCurve(hash[:]) {
			addr, err := domain.AddressFromBytes(hash[:])
			if err != nil {
				return "", 0, err
			}
			return addr, uint8(bump), nil
		}
	}

	return "", 0, ErrNoViableBump
}

// IsOnCurve reports whether point is a valid compressed ed25519 point.
func IsOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}

// FactoryAddress derives the registry address for a deployment name.
func FactoryAddress(name string) (domain.Address, error) {
	addr, _, err := DeriveAddress([][]byte{[]byte(SeedFactory), []byte(name)}, nil)
	return addr, err
}

// OracleAddress derives the address of the index-th oracle created by creator.
func OracleAddress(factory, creator domain.Address, index uint64) (domain.Address, error) {
	factoryBytes, err := factory.Bytes()
	if err != nil {
		return "", err
	}
	creatorBytes, err := creator.Bytes()
	if err != nil {
		return "", err
	}
	var idx [8]byte
	binary.LittleEndian.PutUint64(idx[:], index)

	addr, _, err := DeriveAddress([][]byte{[]byte(SeedOracle), creatorBytes, idx[:]}, factoryBytes)
	return addr, err
}

// TokenAddress derives the address of a token ledger from its symbol.
func TokenAddress(factory domain.Address, symbol string) (domain.Address, error) {
	factoryBytes, err := factory.Bytes()
	if err != nil {
		return "", err
	}
	addr, _, err := DeriveAddress([][]byte{[]byte(SeedToken), []byte(symbol)}, factoryBytes)
	return addr, err
}

// NativeAddress derives the address of the native currency ledger.
func NativeAddress(factory domain.Address) (domain.Address, error) {
	factoryBytes, err := factory.Bytes()
	if err != nil {
		return "", err
	}
	addr, _, err := DeriveAddress([][]byte{[]byte(SeedNative)}, factoryBytes)
	return addr, err
}
