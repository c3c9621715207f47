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

// stableVaultABIJSON and stablePoolABIJSON mirror the Balancer V2 Vault and
// StablePool interfaces retrieved from the johngrantuk balancer on-chain
// monitor: pool state (balances) lives on the Vault keyed by pool id, while
// fee, amplification and scaling live on the pool contract itself.
const stableVaultABIJSON = `[
	{"inputs":[{"internalType":"bytes32","name":"poolId","type":"bytes32"}],
	 "name":"getPoolTokens",
	 "outputs":[
		{"internalType":"address[]","name":"tokens","type":"address[]"},
		{"internalType":"uint256[]","name":"balances","type":"uint256[]"},
		{"internalType":"uint256","name":"lastChangeBlock","type":"uint256"}
	 ],"stateMutability":"view","type":"function"}
]`

const stablePoolABIJSON = `[
	{"inputs":[],"name":"getSwapFeePercentage","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"getAmplificationParameter","outputs":[
		{"internalType":"uint256","name":"value","type":"uint256"},
		{"internalType":"bool","name":"isUpdating","type":"bool"},
		{"internalType":"uint256","name":"precision","type":"uint256"}
	],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"getScalingFactors","outputs":[{"internalType":"uint256[]","name":"","type":"uint256[]"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"totalSupply","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

// StableOnChainProvider is the concrete Balancer-style stable pool metadata
// provider (C2). Each pool needs five calls: one against the Vault
// (getPoolTokens) and four against the pool contract itself.
type StableOnChainProvider struct {
	mc        *multicall.Client
	vault     common.Address
	vaultABI  abi.ABI
	poolABI   abi.ABI
	logger    *zap.Logger
}

func NewStableOnChainProvider(mc *multicall.Client, vault common.Address, logger *zap.Logger) (*StableOnChainProvider, error) {
	vaultABI, err := abi.JSON(strings.NewReader(stableVaultABIJSON))
	if err != nil {
		return nil, fmt.Errorf("poolprovider: parse stable vault abi: %w", err)
	}
	poolABI, err := abi.JSON(strings.NewReader(stablePoolABIJSON))
	if err != nil {
		return nil, fmt.Errorf("poolprovider: parse stable pool abi: %w", err)
	}
	return &StableOnChainProvider{mc: mc, vault: vault, vaultABI: vaultABI, poolABI: poolABI, logger: logger}, nil
}

func (p *StableOnChainProvider) GetStablePools(ctx context.Context, keys []StableKey, blockTag string) (map[[32]byte]*domain.StablePool, error) {
	if len(keys) == 0 {
		return map[[32]byte]*domain.StablePool{}, nil
	}

	tokensMethod := p.vaultABI.Methods["getPoolTokens"]
	paramSets := make([][]interface{}, len(keys))
	for i, k := range keys {
		paramSets[i] = []interface{}{k.ID}
	}
	tokenResults, err := p.mc.SameFunctionOneContractManyParams(ctx, p.vault, &tokensMethod, paramSets, blockTag)
	if err != nil {
		return nil, fmt.Errorf("poolprovider: stable getPoolTokens batch: %w", err)
	}

	poolAddrs := make([]common.Address, len(keys))
	for i, k := range keys {
		poolAddrs[i] = common.BytesToAddress(k.ID[:20])
	}
	feeMethod := p.poolABI.Methods["getSwapFeePercentage"]
	ampMethod := p.poolABI.Methods["getAmplificationParameter"]
	scalingMethod := p.poolABI.Methods["getScalingFactors"]
	supplyMethod := p.poolABI.Methods["totalSupply"]

	feeResults, err := p.mc.SameFunctionManyContracts(ctx, poolAddrs, &feeMethod, nil, blockTag)
	if err != nil {
		return nil, fmt.Errorf("poolprovider: stable fee batch: %w", err)
	}
	ampResults, err := p.mc.SameFunctionManyContracts(ctx, poolAddrs, &ampMethod, nil, blockTag)
	if err != nil {
		return nil, fmt.Errorf("poolprovider: stable amplification batch: %w", err)
	}
	scalingResults, err := p.mc.SameFunctionManyContracts(ctx, poolAddrs, &scalingMethod, nil, blockTag)
	if err != nil {
		return nil, fmt.Errorf("poolprovider: stable scaling factors batch: %w", err)
	}
	supplyResults, err := p.mc.SameFunctionManyContracts(ctx, poolAddrs, &supplyMethod, nil, blockTag)
	if err != nil {
		return nil, fmt.Errorf("poolprovider: stable totalSupply batch: %w", err)
	}

	out := make(map[[32]byte]*domain.StablePool, len(keys))
	for i, key := range keys {
		tokRes, feeRes, ampRes, scaleRes := tokenResults[i], feeResults[i], ampResults[i], scalingResults[i]
		if !tokRes.Success || !feeRes.Success || !ampRes.Success {
			p.logger.Info("poolprovider: dropping stable pool, metadata call failed",
				zap.String("poolId", common.Bytes2Hex(key.ID[:])))
			continue
		}

		tokValues, err := tokensMethod.Outputs.Unpack(tokRes.Return)
		if err != nil || len(tokValues) < 2 {
			continue
		}
		balances, _ := tokValues[1].([]*big.Int)

		feeValues, err := feeMethod.Outputs.Unpack(feeRes.Return)
		if err != nil || len(feeValues) < 1 {
			continue
		}
		swapFee, _ := feeValues[0].(*big.Int)

		ampValues, err := ampMethod.Outputs.Unpack(ampRes.Return)
		if err != nil || len(ampValues) < 1 {
			continue
		}
		amplification, _ := ampValues[0].(*big.Int)

		var scalingFactors []*big.Int
		if scaleRes.Success {
			if scaleValues, err := scalingMethod.Outputs.Unpack(scaleRes.Return); err == nil && len(scaleValues) > 0 {
				scalingFactors, _ = scaleValues[0].([]*big.Int)
			}
		}
		if scalingFactors == nil {
			scalingFactors = make([]*big.Int, len(key.Tokens))
			for i := range scalingFactors {
				scalingFactors[i] = big.NewInt(1)
			}
		}

		totalShares := big.NewInt(0)
		if supRes := supplyResults[i]; supRes.Success {
			if supValues, err := supplyMethod.Outputs.Unpack(supRes.Return); err == nil && len(supValues) > 0 {
				if v, ok := supValues[0].(*big.Int); ok {
					totalShares = v
				}
			}
		}

		swapFeeBps := new(big.Int).Div(swapFee, big.NewInt(1e14)) // 1e18 fee scale -> bps

		out[key.ID] = &domain.StablePool{
			ID:             key.ID,
			TokensList:     key.Tokens,
			Amplification:  amplification,
			SwapFeeBps:     swapFeeBps,
			TotalShares:    totalShares,
			Balances:       balances,
			ScalingFactors: scalingFactors,
			Wrapper:        key.Wrapper,
			Chain:          key.Tokens[0].ChainID,
		}
	}
	return out, nil
}
