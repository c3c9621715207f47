package enumerator

import (
	"testing"

	"dex-aggregator/internal/domain"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

func cur(addr string) domain.Currency {
	return domain.Currency{ChainID: 1, Address: common.HexToAddress(addr), Decimals: 18, Symbol: addr}
}

func v3Pool(token0, token1 domain.Currency, poolAddr string) *domain.V3Pool {
	return &domain.V3Pool{
		Token0:      token0,
		Token1:      token1,
		Fee:         domain.FeeMedium,
		PoolAddress: common.HexToAddress(poolAddr),
		Chain:       1,
	}
}

func TestEnumerate_DirectRoute(t *testing.T) {
	weth := cur("0x1")
	usdc := cur("0x2")
	pools := []domain.Pool{v3Pool(weth, usdc, "0xa1")}

	routes := Enumerate(pools, weth, usdc, 3, domain.ProtocolV3)
	assert.Len(t, routes, 1)
	assert.Len(t, routes[0].Pools, 1)
}

func TestEnumerate_TwoHopRoute(t *testing.T) {
	weth := cur("0x1")
	usdc := cur("0x2")
	dai := cur("0x3")
	pools := []domain.Pool{
		v3Pool(weth, usdc, "0xa1"),
		v3Pool(usdc, dai, "0xa2"),
	}

	routes := Enumerate(pools, weth, dai, 3, domain.ProtocolV3)
	assert.Len(t, routes, 1)
	assert.Len(t, routes[0].Pools, 2)
}

func TestEnumerate_RespectsMaxHops(t *testing.T) {
	weth := cur("0x1")
	usdc := cur("0x2")
	dai := cur("0x3")
	pools := []domain.Pool{
		v3Pool(weth, usdc, "0xa1"),
		v3Pool(usdc, dai, "0xa2"),
	}

	routes := Enumerate(pools, weth, dai, 1, domain.ProtocolV3)
	assert.Empty(t, routes)
}

func TestEnumerate_NoPathReturnsEmpty(t *testing.T) {
	weth := cur("0x1")
	dai := cur("0x3")
	pools := []domain.Pool{v3Pool(weth, cur("0x2"), "0xa1")}

	routes := Enumerate(pools, weth, dai, 3, domain.ProtocolV3)
	assert.Empty(t, routes)
}

func TestEnumerate_FiltersByProtocol(t *testing.T) {
	weth := cur("0x1")
	usdc := cur("0x2")
	pools := []domain.Pool{v3Pool(weth, usdc, "0xa1")}

	routes := Enumerate(pools, weth, usdc, 3, domain.ProtocolV2)
	assert.Empty(t, routes)
}

func TestEnumerate_DoesNotRevisitPool(t *testing.T) {
	weth := cur("0x1")
	usdc := cur("0x2")
	pool := v3Pool(weth, usdc, "0xa1")
	pools := []domain.Pool{pool}

	routes := Enumerate(pools, weth, weth, 3, domain.ProtocolV3)
	assert.Empty(t, routes)
}
