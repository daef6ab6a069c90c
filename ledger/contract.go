package ledger

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/tidwall/gjson"
)

// DefaultTokenABI interface of the DNetToken contract: ERC-20 plus metadata hash storage
const DefaultTokenABI = `[
	{"type":"function","name":"storeMetadataHash","stateMutability":"nonpayable","inputs":[{"name":"hash","type":"bytes32"}],"outputs":[]},
	{"type":"function","name":"validateHash","stateMutability":"view","inputs":[{"name":"hash","type":"bytes32"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"totalSupply","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"burn","stateMutability":"nonpayable","inputs":[{"name":"amount","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
	{"type":"event","name":"Transfer","anonymous":false,"inputs":[{"name":"from","type":"address","indexed":true},{"name":"to","type":"address","indexed":true},{"name":"value","type":"uint256","indexed":false}]}
]`

// ErrNoContractAddress no address configured and no deployment file found
var ErrNoContractAddress = errors.New("contract address not configured")

// TokenContract ABI and address of the token contract. Encoding only, no network.
type TokenContract struct {
	Address ethcommon.Address
	ABI     abi.ABI
}

// NewTokenContract parse an ABI JSON array
func NewTokenContract(address ethcommon.Address, abiJSON string) (*TokenContract, error) {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse contract ABI: %w", err)
	}
	for _, name := range []string{"storeMetadataHash", "transfer", "balanceOf", "totalSupply", "burn"} {
		if _, ok := parsed.Methods[name]; !ok {
			return nil, fmt.Errorf("contract ABI lacks method %s", name)
		}
	}
	return &TokenContract{Address: address, ABI: parsed}, nil
}

// LoadTokenContract resolve ABI and address the way the deploy scripts lay them out:
// a build artifact with an "abi" field and a deployment file with an "address" field.
// A missing artifact falls back to DefaultTokenABI.
func LoadTokenContract(address, addressFile, artifactFile string) (*TokenContract, error) {
	abiJSON := DefaultTokenABI
	if artifactFile != "" {
		content, err := os.ReadFile(artifactFile)
		switch {
		case err == nil:
			field := gjson.GetBytes(content, "abi")
			if !field.Exists() || !field.IsArray() {
				return nil, fmt.Errorf("artifact %s has no abi array", artifactFile)
			}
			abiJSON = field.Raw
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("failed to read contract artifact: %w", err)
		}
	}

	if address == "" && addressFile != "" {
		content, err := os.ReadFile(addressFile)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read contract address file: %w", err)
		}
		address = gjson.GetBytes(content, "address").String()
	}
	if address == "" {
		return nil, ErrNoContractAddress
	}
	if !ethcommon.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid contract address %q", address)
	}

	return NewTokenContract(ethcommon.HexToAddress(address), abiJSON)
}

// AnchorCallData call data of storeMetadataHash(keccak256(fingerprint)).
// This is the one encoding used both to anchor and to recognise anchors.
func (c *TokenContract) AnchorCallData(fingerprint string) ([]byte, error) {
	return c.ABI.Pack("storeMetadataHash", FingerprintDigest(fingerprint))
}

// IsAnchorCall byte comparison of a transaction's input against the expected call data
func IsAnchorCall(input, expected []byte) bool {
	return len(input) == len(expected) && bytes.Equal(input, expected)
}

// ValidateHashCallData view call checking whether a digest is already stored
func (c *TokenContract) ValidateHashCallData(fingerprint string) ([]byte, error) {
	return c.ABI.Pack("validateHash", FingerprintDigest(fingerprint))
}

// TransferCallData ERC-20 transfer(to, amount)
func (c *TokenContract) TransferCallData(to ethcommon.Address, amount *big.Int) ([]byte, error) {
	return c.ABI.Pack("transfer", to, amount)
}

// BurnCallData burn(amount)
func (c *TokenContract) BurnCallData(amount *big.Int) ([]byte, error) {
	return c.ABI.Pack("burn", amount)
}

// BalanceOfCallData balanceOf(account)
func (c *TokenContract) BalanceOfCallData(account ethcommon.Address) ([]byte, error) {
	return c.ABI.Pack("balanceOf", account)
}

// TotalSupplyCallData totalSupply()
func (c *TokenContract) TotalSupplyCallData() ([]byte, error) {
	return c.ABI.Pack("totalSupply")
}

// UnpackUint256 decode a single uint256 return value of method
func (c *TokenContract) UnpackUint256(method string, output []byte) (*big.Int, error) {
	values, err := c.ABI.Unpack(method, output)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("unpack %s: expected 1 value, got %d", method, len(values))
	}
	v, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unpack %s: unexpected type %T", method, values[0])
	}
	return v, nil
}

// UnpackBool decode a single bool return value of method
func (c *TokenContract) UnpackBool(method string, output []byte) (bool, error) {
	values, err := c.ABI.Unpack(method, output)
	if err != nil {
		return false, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) != 1 {
		return false, fmt.Errorf("unpack %s: expected 1 value, got %d", method, len(values))
	}
	v, ok := values[0].(bool)
	if !ok {
		return false, fmt.Errorf("unpack %s: unexpected type %T", method, values[0])
	}
	return v, nil
}

// TransferEventID topic0 of Transfer(address,address,uint256)
func (c *TokenContract) TransferEventID() ethcommon.Hash {
	if ev, ok := c.ABI.Events["Transfer"]; ok {
		return ev.ID
	}
	return Keccak256([]byte("Transfer(address,address,uint256)"))
}

// UnpackTransferValue decode the non-indexed value of a Transfer log
func (c *TokenContract) UnpackTransferValue(data []byte) (*big.Int, error) {
	values, err := c.ABI.Unpack("Transfer", data)
	if err != nil {
		return nil, fmt.Errorf("unpack Transfer: %w", err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("unpack Transfer: expected 1 value, got %d", len(values))
	}
	v, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unpack Transfer: unexpected type %T", values[0])
	}
	return v, nil
}
