package base58

import (
	"fmt"

	"github.com/mr-tron/base58"
)

// MustDecodeFromString decodes a 32-byte address and panics on malformed input.
func MustDecodeFromString(s string) [32]byte {
	out, err := DecodeFromString(s)
	if err != nil {
		panic(err)
	}
	return out
}

func DecodeFromString(s string) ([32]byte, error) {
	var out [32]byte
	b, err := base58.Decode(s)
	if err != nil {
		return out, fmt.Errorf("invalid base58 address %q: %w", s, err)
	}
	if len(b) != len(out) {
		return out, fmt.Errorf("invalid address %q: decoded to %d bytes", s, len(b))
	}
	copy(out[:], b)
	return out, nil
}

func Encode(b []byte) string {
	return base58.Encode(b)
}
