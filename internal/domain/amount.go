package domain

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Amount is an arbitrary-precision rational bound to a Currency. All
// internal math on Amounts is exact; rounding only happens when an Amount
// is converted to a decimal.Decimal for display or USD accounting (the gas
// model, §4.8) or to an on-chain *big.Int boundary value.
type Amount struct {
	Currency Currency
	Value    *big.Rat
}

// NewAmountFromBigInt builds an Amount from an integer token-unit value (the
// form on-chain calls and quoter results take).
func NewAmountFromBigInt(cur Currency, v *big.Int) Amount {
	return Amount{Currency: cur, Value: new(big.Rat).SetInt(v)}
}

// NewAmountFromRat builds an Amount from an exact rational value, used when
// taking a fraction (distributionPercent step) of a whole trade amount.
func NewAmountFromRat(cur Currency, v *big.Rat) Amount {
	return Amount{Currency: cur, Value: new(big.Rat).Set(v)}
}

// Fraction returns amt * pct/100 as an exact rational Amount - used to build
// the per-route-amount steps quoted in C7 at multiples of distributionPercent.
func (a Amount) Fraction(pct int) Amount {
	frac := big.NewRat(int64(pct), 100)
	return Amount{Currency: a.Currency, Value: new(big.Rat).Mul(a.Value, frac)}
}

// Add returns a + b. Both must share a currency.
func (a Amount) Add(b Amount) (Amount, error) {
	if !a.Currency.Equal(b.Currency) {
		return Amount{}, fmt.Errorf("cannot add amounts of different currencies: %s vs %s", a.Currency, b.Currency)
	}
	return Amount{Currency: a.Currency, Value: new(big.Rat).Add(a.Value, b.Value)}, nil
}

// Sub returns a - b. Both must share a currency.
func (a Amount) Sub(b Amount) (Amount, error) {
	if !a.Currency.Equal(b.Currency) {
		return Amount{}, fmt.Errorf("cannot subtract amounts of different currencies: %s vs %s", a.Currency, b.Currency)
	}
	return Amount{Currency: a.Currency, Value: new(big.Rat).Sub(a.Value, b.Value)}, nil
}

// Cmp compares the rational value only; callers are responsible for
// currency-matching, as with Add/Sub.
func (a Amount) Cmp(b Amount) int {
	return a.Value.Cmp(b.Value)
}

// Sign returns -1, 0 or 1 per the sign of the underlying rational.
func (a Amount) Sign() int {
	return a.Value.Sign()
}

// Quotient rounds the exact rational down to the nearest integer token unit,
// the only place besides display where rounding is allowed (spec.md "Large-
// integer rationals": on-chain amounts are 256-bit integers).
func (a Amount) Quotient() *big.Int {
	num := a.Value.Num()
	den := a.Value.Denom()
	q := new(big.Int).Quo(num, den)
	return q
}

// Decimal converts to a human-scaled decimal.Decimal (dividing by
// 10^Decimals), used only for USD/display accounting - never for on-chain
// value math.
func (a Amount) Decimal() decimal.Decimal {
	num := a.Value.Num()
	den := a.Value.Denom()
	d := decimal.NewFromBigInt(num, 0).DivRound(decimal.NewFromBigInt(den, 0), 36)
	scale := decimal.New(1, int32(a.Currency.Decimals))
	return d.Div(scale)
}

func (a Amount) String() string {
	return fmt.Sprintf("%s %s", a.Decimal().String(), a.Currency.String())
}
