package solana

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Well-known program identities.
const (
	PumpFunProgram   = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"
	TokenProgram     = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	Token2022Program = "TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb"
	SystemProgram    = "11111111111111111111111111111111"
)

const (
	maxSeedLen   = 32
	maxSeeds     = 16
	pdaMarker    = "ProgramDerivedAddress"
	bondingCurve = "bonding-curve"
)

// ErrNoViableBump is returned when every bump seed yields an on-curve point.
var ErrNoViableBump = errors.New("no viable bump seed")

// DecodeAddress decodes a base58 address and checks its length.
func DecodeAddress(addr string) ([]byte, error) {
	raw, err := base58.Decode(addr)
	if err != nil {
		return nil, fmt.Errorf("decode address %q: %w", addr, err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("address %q: want 32 bytes, got %d", addr, len(raw))
	}
	return raw, nil
}

// IsValidAddress reports whether addr is a base58-encoded 32-byte key.
func IsValidAddress(addr string) bool {
	_, err := DecodeAddress(addr)
	return err == nil
}

// FindProgramAddress derives the program-derived address for seeds under programID.
// Bumps are tried from 255 downwards; the first off-curve hash wins.
func FindProgramAddress(seeds [][]byte, programID string) (string, uint8, error) {
	program, err := DecodeAddress(programID)
	if err != nil {
		return "", 0, err
	}
	if len(seeds) > maxSeeds-1 {
		return "", 0, fmt.Errorf("too many seeds: %d", len(seeds))
	}
	for _, seed := range seeds {
		if len(seed) > maxSeedLen {
			return "", 0, fmt.Errorf("seed exceeds %d bytes", maxSeedLen)
		}
	}

	for bump := 255; bump >= 0; bump-- {
		hash := pdaHash(seeds, byte(bump), program)
		if !isOnCurve(hash[:]) {
			return base58.Encode(hash[:]), uint8(bump), nil
		}
	}
	return "", 0, ErrNoViableBump
}

// BondingCurveAddress returns the pump.fun bonding-curve account for mint.
func BondingCurveAddress(mint string) (string, error) {
	raw, err := DecodeAddress(mint)
	if err != nil {
		return "", err
	}
	addr, _, err := FindProgramAddress([][]byte{[]byte(bondingCurve), raw}, PumpFunProgram)
	return addr, err
}

func pdaHash(seeds [][]byte, bump byte, program []byte) [32]byte {
	h := sha256.New()
	for _, seed := range seeds {
		h.Write(seed)
	}
	h.Write([]byte{bump})
	h.Write(program)
	h.Write([]byte(pdaMarker))

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
