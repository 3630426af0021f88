// Package proofhash computes the Keccak-256 digests anchored on chain.
package proofhash

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Size is the digest length in bytes.
const Size = 32

// Hash is a 32-byte Keccak-256 digest.
type Hash [Size]byte

// Sum returns the Keccak-256 digest of b.
func Sum(b []byte) Hash {
	h := sha3.NewLegacyKeccak256()
	_, _ = h.Write(b)
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// SumObject hashes the JSON encoding of v. Struct field order fixes the
// encoding, so callers should hash dedicated structs, not maps.
func SumObject(v any) (Hash, []byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return Hash{}, nil, err
	}
	return Sum(b), b, nil
}

// Hex returns the 0x-prefixed lowercase hex form.
func (h Hash) Hex() string {
	return "0x" + hex.EncodeToString(h[:])
}

func (h Hash) IsZero() bool {
	return h == Hash{}
}

// Parse accepts a 64-digit hex string with or without the 0x prefix.
func Parse(s string) (Hash, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s) != 2*Size {
		return Hash{}, fmt.Errorf("hash must be %d hex digits, got %d", 2*Size, len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return Hash{}, fmt.Errorf("decode hash: %w", err)
	}
	var out Hash
	copy(out[:], b)
	return out, nil
}

// Selector returns the 4-byte function selector for an ABI signature such as
// "notarize(bytes32,bytes32)".
func Selector(signature string) [4]byte {
	sum := Sum([]byte(signature))
	var sel [4]byte
	copy(sel[:], sum[:4])
	return sel
}
