package sectoken

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
)

func TestValidateAccountVerification(t *testing.T) {
	k := make([]solana.PublicKey, 4)
	for i := range k {
		k[i] = newTestKey(t)
	}

	tests := []struct {
		name     string
		lists    [][]solana.PublicKey
		required []solana.PublicKey
		ok       bool
	}{
		{"prefix of every list", [][]solana.PublicKey{{k[1], k[2], k[3]}, {k[1], k[2]}}, []solana.PublicKey{k[1], k[2]}, true},
		{"order matters", [][]solana.PublicKey{{k[1], k[2]}, {k[2], k[1]}}, []solana.PublicKey{k[1], k[2]}, false},
		{"must be a prefix", [][]solana.PublicKey{{k[3], k[1], k[2]}, {k[1], k[2]}}, []solana.PublicKey{k[1], k[2]}, false},
		{"list too short", [][]solana.PublicKey{{k[1]}}, []solana.PublicKey{k[1], k[2]}, false},
		{"no lists", nil, []solana.PublicKey{k[1]}, true},
		{"nothing required", [][]solana.PublicKey{{k[0]}}, nil, true},
		{"empty attested list", [][]solana.PublicKey{{k[1]}, {}}, nil, false},
		{"empty attested list with requirements", [][]solana.PublicKey{{}}, []solana.PublicKey{k[1]}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateAccountVerification(tc.lists, tc.required)
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			code, ok := AsSecurityTokenError(err)
			assert.True(t, ok)
			assert.Equal(t, AccountIntersectionMismatch, code)
		})
	}
}
