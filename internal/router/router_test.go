package router

import (
	"context"
	"math/big"
	"testing"
	"time"

	"dex-aggregator/internal/chain"
	"dex-aggregator/internal/domain"
	"dex-aggregator/internal/gasmodel"
	"dex-aggregator/internal/poolprovider"
	"dex-aggregator/internal/quoter"
	"dex-aggregator/internal/splitter"
	"dex-aggregator/internal/subgraph"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func mainnetCurrency(addr string, decimals uint8) domain.Currency {
	return domain.Currency{ChainID: int64(chain.Mainnet), Address: common.HexToAddress(addr), Decimals: decimals, Symbol: addr}
}

type fakeSelector struct {
	descriptors map[domain.Protocol][]subgraph.PoolDescriptor
}

func (f *fakeSelector) Select(ctx context.Context, chainID int64, tokenIn, tokenOut domain.Currency, tradeType domain.TradeType, protocol domain.Protocol) ([]subgraph.PoolDescriptor, error) {
	return f.descriptors[protocol], nil
}

type fakeV3Provider struct {
	pools map[common.Address]*domain.V3Pool
}

func (f *fakeV3Provider) GetV3Pools(ctx context.Context, keys []poolprovider.V3Key, blockTag string) (map[common.Address]*domain.V3Pool, error) {
	return f.pools, nil
}

type fakeV2Provider struct{}

func (f *fakeV2Provider) GetV2Pools(ctx context.Context, keys []poolprovider.V2Key, blockTag string) (map[common.Address]*domain.V2Pool, error) {
	return nil, nil
}

type fakeStableProvider struct{}

func (f *fakeStableProvider) GetStablePools(ctx context.Context, keys []poolprovider.StableKey, blockTag string) (map[[32]byte]*domain.StablePool, error) {
	return nil, nil
}

type fakeStableWrapperProvider struct{}

func (f *fakeStableWrapperProvider) GetStableWrapperPools(ctx context.Context, underlying map[[32]byte]*domain.StablePool, keys []poolprovider.StableKey, blockTag string) (map[common.Address]*domain.StableWrapperPool, error) {
	return nil, nil
}

type fakeTokenProvider struct {
	currencies map[common.Address]domain.Currency
}

func (f *fakeTokenProvider) Resolve(ctx context.Context, chainID int64, addrs []common.Address) (map[common.Address]domain.Currency, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make(map[common.Address]domain.Currency, len(addrs))
	for _, a := range addrs {
		if c, ok := f.currencies[a]; ok {
			out[a] = c
			continue
		}
		out[a] = domain.Currency{ChainID: chainID, Address: a, Decimals: 18, Symbol: a.Hex()}
	}
	return out, nil
}

type fakeQuoter struct {
	quotesByRoute func(route domain.Route) []quoter.AmountQuote
}

func (f *fakeQuoter) Quote(ctx context.Context, routes []domain.Route, amount domain.Amount, tradeType domain.TradeType, percents []int) ([]quoter.RouteQuotes, error) {
	out := make([]quoter.RouteQuotes, 0, len(routes))
	for _, r := range routes {
		out = append(out, quoter.RouteQuotes{Route: r, Quotes: f.quotesByRoute(r)})
	}
	return out, nil
}

func newTestRouter(t *testing.T, tokenIn, tokenOut common.Address, v3Pool *domain.V3Pool, poolAddr common.Address) *Router {
	t.Helper()
	descriptors := map[domain.Protocol][]subgraph.PoolDescriptor{
		domain.ProtocolV3: {{
			Protocol: domain.ProtocolV3,
			Token0:   v3Pool.Token0,
			Token1:   v3Pool.Token1,
			Fee:      v3Pool.Fee,
		}},
	}

	q := &fakeQuoter{
		quotesByRoute: func(route domain.Route) []quoter.AmountQuote {
			out := make([]quoter.AmountQuote, 0, 10)
			for p := 10; p <= 100; p += 10 {
				in := big.NewInt(int64(p) * 10)
				outAmt := big.NewInt(int64(p) * 9)
				quoteAmount := domain.NewAmountFromBigInt(route.Output, outAmt)
				out = append(out, quoter.AmountQuote{
					Percent:  p,
					AmountIn: domain.NewAmountFromBigInt(route.Input, in),
					Quote:    &quoteAmount,
				})
			}
			return out
		},
	}

	gasCfg := gasmodel.DefaultConfig()
	splitterCfg := splitter.DefaultConfig()
	splitterCfg.DistributionPercent = 10

	return New(
		&fakeTokenProvider{},
		&fakeV3Provider{pools: map[common.Address]*domain.V3Pool{poolAddr: v3Pool}},
		&fakeV2Provider{},
		&fakeStableProvider{},
		&fakeStableWrapperProvider{},
		&fakeSelector{descriptors: descriptors},
		q,
		gasCfg,
		func(ctx context.Context) (*big.Int, error) { return big.NewInt(20_000_000_000), nil },
		nil,
		NoopCallDataBuilder{},
		Config{MaxSwapsPerPath: 3, Protocols: []domain.Protocol{domain.ProtocolV3}, Splitter: splitterCfg},
		zap.NewNop(),
	)
}

func TestRoute_SingleV3RouteProducesPlan(t *testing.T) {
	tokenIn := mainnetCurrency("0x1000000000000000000000000000000000000001", 18)
	tokenOut := mainnetCurrency("0x1000000000000000000000000000000000000002", 6)
	poolAddr := common.HexToAddress("0x2000000000000000000000000000000000000001")
	v3Pool := &domain.V3Pool{
		Token0:      tokenIn,
		Token1:      tokenOut,
		Fee:         domain.FeeMedium,
		PoolAddress: poolAddr,
		Chain:       int64(chain.Mainnet),
	}

	r := newTestRouter(t, tokenIn.Address, tokenOut.Address, v3Pool, poolAddr)

	plan, err := r.Route(context.Background(), Request{
		ChainID:   int64(chain.Mainnet),
		TokenIn:   tokenIn.Address,
		TokenOut:  tokenOut.Address,
		Amount:    big.NewInt(1000),
		TradeType: domain.ExactInput,
	})
	require.NoError(t, err)
	require.NotNil(t, plan)
	assert.Equal(t, 100, plan.SumPercent())
	assert.False(t, plan.WrapsInput)
	assert.False(t, plan.UnwrapsOutput)
}

func TestRoute_RejectsSameTokenSwap(t *testing.T) {
	tokenIn := mainnetCurrency("0x1000000000000000000000000000000000000001", 18)
	poolAddr := common.HexToAddress("0x2000000000000000000000000000000000000001")
	v3Pool := &domain.V3Pool{Token0: tokenIn, Token1: tokenIn, Fee: domain.FeeMedium, PoolAddress: poolAddr, Chain: int64(chain.Mainnet)}
	r := newTestRouter(t, tokenIn.Address, tokenIn.Address, v3Pool, poolAddr)

	_, err := r.Route(context.Background(), Request{
		ChainID:   int64(chain.Mainnet),
		TokenIn:   tokenIn.Address,
		TokenOut:  tokenIn.Address,
		Amount:    big.NewInt(1000),
		TradeType: domain.ExactInput,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRoute_RejectsUnsupportedChain(t *testing.T) {
	tokenIn := mainnetCurrency("0x1000000000000000000000000000000000000001", 18)
	tokenOut := mainnetCurrency("0x1000000000000000000000000000000000000002", 6)
	poolAddr := common.HexToAddress("0x2000000000000000000000000000000000000001")
	v3Pool := &domain.V3Pool{Token0: tokenIn, Token1: tokenOut, Fee: domain.FeeMedium, PoolAddress: poolAddr, Chain: int64(chain.Mainnet)}
	r := newTestRouter(t, tokenIn.Address, tokenOut.Address, v3Pool, poolAddr)

	_, err := r.Route(context.Background(), Request{
		ChainID:   999999,
		TokenIn:   tokenIn.Address,
		TokenOut:  tokenOut.Address,
		Amount:    big.NewInt(1000),
		TradeType: domain.ExactInput,
	})
	assert.ErrorIs(t, err, domain.ErrUnsupportedChain)
}

func TestRoute_WrapsNativeInput(t *testing.T) {
	weth, ok := chain.Get(int64(chain.Mainnet))
	require.True(t, ok)
	tokenOut := mainnetCurrency("0x1000000000000000000000000000000000000002", 6)
	poolAddr := common.HexToAddress("0x2000000000000000000000000000000000000001")
	v3Pool := &domain.V3Pool{Token0: weth.WrappedNative, Token1: tokenOut, Fee: domain.FeeMedium, PoolAddress: poolAddr, Chain: int64(chain.Mainnet)}
	r := newTestRouter(t, weth.WrappedNative.Address, tokenOut.Address, v3Pool, poolAddr)

	plan, err := r.Route(context.Background(), Request{
		ChainID:   int64(chain.Mainnet),
		TokenIn:   domain.NativeAddress,
		TokenOut:  tokenOut.Address,
		Amount:    big.NewInt(1000),
		TradeType: domain.ExactInput,
	})
	require.NoError(t, err)
	assert.True(t, plan.WrapsInput)
}

func TestRoute_ExpiredDeadlineReturnsErrTimeout(t *testing.T) {
	tokenIn := mainnetCurrency("0x1000000000000000000000000000000000000001", 18)
	tokenOut := mainnetCurrency("0x1000000000000000000000000000000000000002", 6)
	poolAddr := common.HexToAddress("0x2000000000000000000000000000000000000001")
	v3Pool := &domain.V3Pool{Token0: tokenIn, Token1: tokenOut, Fee: domain.FeeMedium, PoolAddress: poolAddr, Chain: int64(chain.Mainnet)}
	r := newTestRouter(t, tokenIn.Address, tokenOut.Address, v3Pool, poolAddr)

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Millisecond))
	defer cancel()

	_, err := r.Route(ctx, Request{
		ChainID:   int64(chain.Mainnet),
		TokenIn:   tokenIn.Address,
		TokenOut:  tokenOut.Address,
		Amount:    big.NewInt(1000),
		TradeType: domain.ExactInput,
	})
	assert.ErrorIs(t, err, domain.ErrTimeout)
}
