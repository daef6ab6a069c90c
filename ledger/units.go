package ledger

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// TokenDecimals both ether and the token use 18 decimals
const TokenDecimals = 18

// ToWei converts a decimal amount to base units, truncating below 1 wei
func ToWei(amount decimal.Decimal) *big.Int {
	return amount.Shift(TokenDecimals).Truncate(0).BigInt()
}

// FromWei converts base units to a decimal amount
func FromWei(wei *big.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei, -TokenDecimals)
}

// ParseAmount parses a positive decimal token amount such as "1" or "0.25"
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("amount must be positive, got %s", s)
	}
	return d, nil
}

// ParseGrantAmount like ParseAmount but accepts zero, which disables the grant
func ParseGrantAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("amount must not be negative, got %s", s)
	}
	return d, nil
}
