package poolprovider

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"dex-aggregator/internal/domain"
	"dex-aggregator/internal/multicall"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// ERC-4626-style vault interface: convertToAssets(1e18) gives the share ->
// vault-asset exchange rate as a fixed-point ratio over 1e18.
const vaultRateABIJSON = `[
	{"inputs":[{"internalType":"uint256","name":"shares","type":"uint256"}],
	 "name":"convertToAssets",
	 "outputs":[{"internalType":"uint256","name":"","type":"uint256"}],
	 "stateMutability":"view","type":"function"}
]`

// StableWrapperProvider resolves the share/vault exchange rate for every
// StableKey that carries a Wrapper currency, producing the
// domain.StableWrapperPool view (spec.md §3 "StableWrapper", §4.2).
type StableWrapperProvider struct {
	mc     *multicall.Client
	abi    abi.ABI
	logger *zap.Logger
}

func NewStableWrapperProvider(mc *multicall.Client, logger *zap.Logger) (*StableWrapperProvider, error) {
	parsed, err := abi.JSON(strings.NewReader(vaultRateABIJSON))
	if err != nil {
		return nil, fmt.Errorf("poolprovider: parse vault rate abi: %w", err)
	}
	return &StableWrapperProvider{mc: mc, abi: parsed, logger: logger}, nil
}

// GetStableWrapperPools pairs each stable pool's StableWrapperPool view with
// its already-fetched underlying, keyed by wrapper vault address.
func (p *StableWrapperProvider) GetStableWrapperPools(ctx context.Context, underlying map[[32]byte]*domain.StablePool, keys []StableKey, blockTag string) (map[common.Address]*domain.StableWrapperPool, error) {
	var wrapped []StableKey
	for _, k := range keys {
		if k.Wrapper != nil {
			if _, ok := underlying[k.ID]; ok {
				wrapped = append(wrapped, k)
			}
		}
	}
	if len(wrapped) == 0 {
		return map[common.Address]*domain.StableWrapperPool{}, nil
	}

	addrs := make([]common.Address, len(wrapped))
	for i, k := range wrapped {
		addrs[i] = k.Wrapper.Address
	}

	method := p.abi.Methods["convertToAssets"]
	oneShare := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	params := []interface{}{oneShare}

	results, err := p.mc.SameFunctionManyContracts(ctx, addrs, &method, params, blockTag)
	if err != nil {
		return nil, fmt.Errorf("poolprovider: stable wrapper convertToAssets batch: %w", err)
	}

	out := make(map[common.Address]*domain.StableWrapperPool, len(wrapped))
	for i, k := range wrapped {
		res := results[i]
		if !res.Success {
			p.logger.Info("poolprovider: dropping stable wrapper pool, rate call failed", zap.String("vault", addrs[i].Hex()))
			continue
		}
		values, err := method.Outputs.Unpack(res.Return)
		if err != nil || len(values) < 1 {
			continue
		}
		rateNum, _ := values[0].(*big.Int)
		if rateNum == nil {
			continue
		}

		underlyingPool := underlying[k.ID]
		shareToken := underlyingPool.TokensList[0]

		out[addrs[i]] = &domain.StableWrapperPool{
			Underlying: underlyingPool,
			ShareToken: shareToken,
			VaultToken: *k.Wrapper,
			RateNum:    rateNum,
			RateDenom:  oneShare,
			Chain:      k.Wrapper.ChainID,
		}
	}
	return out, nil
}
