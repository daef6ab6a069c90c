package ledger

import (
	ethcommon "github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// Keccak256 legacy (pre-NIST) Keccak-256 as used by the EVM
func Keccak256(data ...[]byte) ethcommon.Hash {
	h := sha3.NewLegacyKeccak256()
	for _, b := range data {
		h.Write(b)
	}
	var out ethcommon.Hash
	h.Sum(out[:0])
	return out
}

// FingerprintDigest the value committed on the ledger for a content fingerprint:
// keccak256 of the fingerprint's UTF-8 bytes.
func FingerprintDigest(fingerprint string) [32]byte {
	return Keccak256([]byte(fingerprint))
}
