package quoter

import (
	"context"
	"math/big"
	"testing"

	"dex-aggregator/internal/domain"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cur(addr string, decimals uint8) domain.Currency {
	return domain.Currency{ChainID: 1, Address: common.HexToAddress(addr), Decimals: decimals, Symbol: addr}
}

func TestV2Quoter_ExactInputSingleHop(t *testing.T) {
	tokenIn := cur("0x1", 18)
	tokenOut := cur("0x2", 18)
	pool := &domain.V2Pool{
		Token0:   tokenIn,
		Token1:   tokenOut,
		Reserve0: big.NewInt(1_000_000),
		Reserve1: big.NewInt(1_000_000),
	}
	route := domain.Route{Pools: []domain.Pool{pool}, Input: tokenIn, Output: tokenOut}
	amount := domain.NewAmountFromBigInt(tokenIn, big.NewInt(1000))

	q := NewV2Quoter()
	results, err := q.Quote(context.Background(), []domain.Route{route}, amount, domain.ExactInput, []int{100})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Len(t, results[0].Quotes, 1)

	quote := results[0].Quotes[0]
	require.NotNil(t, quote.Quote)
	assert.True(t, quote.Quote.Quotient().Sign() > 0)
	assert.True(t, quote.Quote.Quotient().Cmp(big.NewInt(1000)) < 0) // fee + slippage eats into output
}

func TestV2Quoter_ExactOutputSingleHop(t *testing.T) {
	tokenIn := cur("0x1", 18)
	tokenOut := cur("0x2", 18)
	pool := &domain.V2Pool{
		Token0:   tokenIn,
		Token1:   tokenOut,
		Reserve0: big.NewInt(1_000_000),
		Reserve1: big.NewInt(1_000_000),
	}
	route := domain.Route{Pools: []domain.Pool{pool}, Input: tokenIn, Output: tokenOut}
	amount := domain.NewAmountFromBigInt(tokenOut, big.NewInt(1000))

	q := NewV2Quoter()
	results, err := q.Quote(context.Background(), []domain.Route{route}, amount, domain.ExactOutput, []int{100})
	require.NoError(t, err)
	quote := results[0].Quotes[0]
	require.NotNil(t, quote.Quote)
	assert.True(t, quote.Quote.Quotient().Cmp(big.NewInt(1000)) > 0) // needs more in than out, due to fee
}

func TestV2Quoter_EmptyReservesYieldsNoQuote(t *testing.T) {
	tokenIn := cur("0x1", 18)
	tokenOut := cur("0x2", 18)
	pool := &domain.V2Pool{Token0: tokenIn, Token1: tokenOut, Reserve0: big.NewInt(0), Reserve1: big.NewInt(0)}
	route := domain.Route{Pools: []domain.Pool{pool}, Input: tokenIn, Output: tokenOut}
	amount := domain.NewAmountFromBigInt(tokenIn, big.NewInt(1000))

	q := NewV2Quoter()
	results, err := q.Quote(context.Background(), []domain.Route{route}, amount, domain.ExactInput, []int{100})
	require.NoError(t, err)
	assert.Nil(t, results[0].Quotes[0].Quote)
}

func TestV2Quoter_TwoHopExactInput(t *testing.T) {
	a, b, c := cur("0x1", 18), cur("0x2", 18), cur("0x3", 18)
	pool1 := &domain.V2Pool{Token0: a, Token1: b, Reserve0: big.NewInt(1_000_000), Reserve1: big.NewInt(1_000_000)}
	pool2 := &domain.V2Pool{Token0: b, Token1: c, Reserve0: big.NewInt(1_000_000), Reserve1: big.NewInt(1_000_000)}
	route := domain.Route{Pools: []domain.Pool{pool1, pool2}, Input: a, Output: c}
	amount := domain.NewAmountFromBigInt(a, big.NewInt(1000))

	q := NewV2Quoter()
	results, err := q.Quote(context.Background(), []domain.Route{route}, amount, domain.ExactInput, []int{100})
	require.NoError(t, err)
	quote := results[0].Quotes[0]
	require.NotNil(t, quote.Quote)
	assert.Equal(t, c.Address, quote.Quote.Currency.Address)
}
