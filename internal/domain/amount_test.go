package domain

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cur(addr string, decimals uint8) Currency {
	return Currency{ChainID: 1, Address: common.HexToAddress(addr), Decimals: decimals, Symbol: addr}
}

func TestAmount_FractionIsExact(t *testing.T) {
	c := cur("0x1", 18)
	a := NewAmountFromBigInt(c, big.NewInt(1000))
	half := a.Fraction(50)
	assert.Equal(t, big.NewInt(500), half.Quotient())
}

func TestAmount_AddRejectsMismatchedCurrency(t *testing.T) {
	a := NewAmountFromBigInt(cur("0x1", 18), big.NewInt(1))
	b := NewAmountFromBigInt(cur("0x2", 18), big.NewInt(1))
	_, err := a.Add(b)
	assert.Error(t, err)
}

func TestAmount_AddSameCurrency(t *testing.T) {
	c := cur("0x1", 18)
	a := NewAmountFromBigInt(c, big.NewInt(100))
	b := NewAmountFromBigInt(c, big.NewInt(50))
	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(150), sum.Quotient())
}

func TestAmount_QuotientRoundsDown(t *testing.T) {
	c := cur("0x1", 18)
	a := NewAmountFromBigInt(c, big.NewInt(10))
	third := a.Fraction(33) // 3.3, truncates to 3
	assert.Equal(t, big.NewInt(3), third.Quotient())
}

func TestAmount_DecimalScalesByDecimals(t *testing.T) {
	c := cur("0x1", 6)
	a := NewAmountFromBigInt(c, big.NewInt(1_000_000))
	assert.True(t, a.Decimal().Equal(a.Decimal())) // sanity: deterministic
	assert.Equal(t, "1", a.Decimal().String())
}

func TestAmount_Sign(t *testing.T) {
	c := cur("0x1", 18)
	zero := NewAmountFromBigInt(c, big.NewInt(0))
	pos := NewAmountFromBigInt(c, big.NewInt(1))
	assert.Equal(t, 0, zero.Sign())
	assert.Equal(t, 1, pos.Sign())
}
