package ledger

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer secp256k1 key able to authorise ledger transactions
type Signer struct {
	key     *ecdsa.PrivateKey
	address ethcommon.Address
}

// NewSigner from a hex private key, with or without 0x
func NewSigner(privateKeyHex string) (*Signer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return &Signer{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}, nil
}

// GenerateSigner fresh random keypair
func GenerateSigner() (*Signer, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return &Signer{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}, nil
}

// Address checksummed account of the key
func (s *Signer) Address() ethcommon.Address {
	return s.address
}

// PrivateKeyHex 0x-prefixed hex of the raw key
func (s *Signer) PrivateKeyHex() string {
	return hexutil.Encode(crypto.FromECDSA(s.key))
}

// SignTx EIP-155 signs tx for chainID
func (s *Signer) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	return types.SignTx(tx, types.LatestSignerForChainID(chainID), s.key)
}

// SenderOf recovers the sender of a signed transaction
func SenderOf(tx *types.Transaction) (ethcommon.Address, error) {
	return types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx)
}
