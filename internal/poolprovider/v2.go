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
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

const v2PairABIJSON = `[
	{"inputs":[],"name":"getReserves","outputs":[
		{"internalType":"uint112","name":"reserve0","type":"uint112"},
		{"internalType":"uint112","name":"reserve1","type":"uint112"},
		{"internalType":"uint32","name":"blockTimestampLast","type":"uint32"}
	],"stateMutability":"view","type":"function"}
]`

// V2OnChainProvider is the concrete V2 pool metadata provider (C2),
// fetching getReserves() for a batch of candidate pair addresses in one
// multicall round trip, the same flat-fetch shape as the teacher's
// MockPoolCollector.RefreshPools but sourced from chain state.
type V2OnChainProvider struct {
	mc      *multicall.Client
	factory common.Address
	initCodeHash common.Hash
	abi     abi.ABI
	logger  *zap.Logger
}

func NewV2OnChainProvider(mc *multicall.Client, factory common.Address, initCodeHash common.Hash, logger *zap.Logger) (*V2OnChainProvider, error) {
	parsed, err := abi.JSON(strings.NewReader(v2PairABIJSON))
	if err != nil {
		return nil, fmt.Errorf("poolprovider: parse v2 pair abi: %w", err)
	}
	return &V2OnChainProvider{mc: mc, factory: factory, initCodeHash: initCodeHash, abi: parsed, logger: logger}, nil
}

// DeriveV2Address computes the deterministic Uniswap-V2-style pair address
// for a token pair under this provider's factory and init code hash,
// mirroring DeriveV3Address's CREATE2 probing (spec.md §4.2).
func (p *V2OnChainProvider) DeriveV2Address(token0, token1 common.Address) common.Address {
	addrType, _ := abi.NewType("address", "", nil)
	args := abi.Arguments{{Type: addrType}, {Type: addrType}}
	salt, err := args.Pack(token0, token1)
	if err != nil {
		return common.Address{}
	}
	saltHash := crypto.Keccak256Hash(salt)

	payload := make([]byte, 0, 1+20+32+32)
	payload = append(payload, 0xff)
	payload = append(payload, p.factory.Bytes()...)
	payload = append(payload, saltHash.Bytes()...)
	payload = append(payload, p.initCodeHash.Bytes()...)
	return common.BytesToAddress(crypto.Keccak256(payload)[12:])
}

func (p *V2OnChainProvider) GetV2Pools(ctx context.Context, keys []V2Key, blockTag string) (map[common.Address]*domain.V2Pool, error) {
	if len(keys) == 0 {
		return map[common.Address]*domain.V2Pool{}, nil
	}

	addrs := make([]common.Address, len(keys))
	ordered := make([][2]domain.Currency, len(keys))
	for i, k := range keys {
		t0, t1 := k.Token0, k.Token1
		if strings.ToLower(t0.Address.Hex()) > strings.ToLower(t1.Address.Hex()) {
			t0, t1 = t1, t0
		}
		ordered[i] = [2]domain.Currency{t0, t1}
		addrs[i] = p.DeriveV2Address(t0.Address, t1.Address)
	}

	method := p.abi.Methods["getReserves"]
	results, err := p.mc.SameFunctionManyContracts(ctx, addrs, &method, nil, blockTag)
	if err != nil {
		return nil, fmt.Errorf("poolprovider: v2 getReserves batch: %w", err)
	}

	out := make(map[common.Address]*domain.V2Pool, len(keys))
	for i := range keys {
		res := results[i]
		if !res.Success {
			p.logger.Info("poolprovider: dropping v2 pool, getReserves failed", zap.String("address", addrs[i].Hex()))
			continue
		}
		values, err := method.Outputs.Unpack(res.Return)
		if err != nil || len(values) < 2 {
			p.logger.Info("poolprovider: dropping v2 pool, unpack failed", zap.Error(err))
			continue
		}
		reserve0, _ := values[0].(*big.Int)
		reserve1, _ := values[1].(*big.Int)
		if reserve0 == nil || reserve1 == nil || (reserve0.Sign() == 0 && reserve1.Sign() == 0) {
			continue
		}

		t0, t1 := ordered[i][0], ordered[i][1]
		out[addrs[i]] = &domain.V2Pool{
			Token0:      t0,
			Token1:      t1,
			Reserve0:    reserve0,
			Reserve1:    reserve1,
			PoolAddress: addrs[i],
			Chain:       t0.ChainID,
		}
	}
	return out, nil
}
