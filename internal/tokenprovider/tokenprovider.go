// Package tokenprovider implements C4: resolving an ERC-20 address to its
// decimals and symbol. Both fields are immutable for the lifetime of a
// token contract, so a resolved Currency is memoized forever rather than
// put through the block-scoped pool caches (spec.md §4.4).
package tokenprovider

import (
	"context"
	"fmt"
	"strings"

	"dex-aggregator/internal/chain"
	"dex-aggregator/internal/domain"
	"dex-aggregator/internal/multicall"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

const erc20ABIJSON = `[
	{"inputs":[],"name":"decimals","outputs":[{"internalType":"uint8","name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"symbol","outputs":[{"internalType":"string","name":"","type":"string"}],"stateMutability":"view","type":"function"}
]`

// bytes32SymbolABIJSON covers legacy tokens (e.g. mainnet MKR) that return
// symbol() as a fixed bytes32 instead of a dynamic string.
const bytes32SymbolABIJSON = `[
	{"inputs":[],"name":"symbol","outputs":[{"internalType":"bytes32","name":"","type":"bytes32"}],"stateMutability":"view","type":"function"}
]`

// Provider resolves token metadata for addresses, batched through
// multicall (C1).
type Provider interface {
	Resolve(ctx context.Context, chainID int64, addrs []common.Address) (map[common.Address]domain.Currency, error)
}

// OnChainProvider calls decimals()/symbol() directly, falling back to the
// bytes32 symbol ABI on unpack failure.
type OnChainProvider struct {
	mc            *multicall.Client
	abi           abi.ABI
	bytes32Symbol abi.ABI
	logger        *zap.Logger
}

func NewOnChainProvider(mc *multicall.Client, logger *zap.Logger) (*OnChainProvider, error) {
	parsed, err := abi.JSON(strings.NewReader(erc20ABIJSON))
	if err != nil {
		return nil, fmt.Errorf("tokenprovider: parse erc20 abi: %w", err)
	}
	b32, err := abi.JSON(strings.NewReader(bytes32SymbolABIJSON))
	if err != nil {
		return nil, fmt.Errorf("tokenprovider: parse bytes32 symbol abi: %w", err)
	}
	return &OnChainProvider{mc: mc, abi: parsed, bytes32Symbol: b32, logger: logger}, nil
}

func (p *OnChainProvider) Resolve(ctx context.Context, chainID int64, addrs []common.Address) (map[common.Address]domain.Currency, error) {
	out := make(map[common.Address]domain.Currency, len(addrs))
	if len(addrs) == 0 {
		return out, nil
	}

	decimalsMethod := p.abi.Methods["decimals"]
	symbolMethod := p.abi.Methods["symbol"]

	decResults, err := p.mc.SameFunctionManyContracts(ctx, addrs, &decimalsMethod, nil, "latest")
	if err != nil {
		return nil, fmt.Errorf("tokenprovider: decimals batch: %w", err)
	}
	symResults, err := p.mc.SameFunctionManyContracts(ctx, addrs, &symbolMethod, nil, "latest")
	if err != nil {
		return nil, fmt.Errorf("tokenprovider: symbol batch: %w", err)
	}

	var retrySymbolAddrs []common.Address

	for i, addr := range addrs {
		if addr == domain.NativeAddress {
			native := chain.MustGet(chainID).WrappedNative
			out[addr] = domain.Currency{ChainID: chainID, Address: addr, Decimals: native.Decimals, Symbol: "ETH"}
			continue
		}
		decRes := decResults[i]
		if !decRes.Success {
			p.logger.Info("tokenprovider: dropping token, decimals() failed", zap.String("address", addr.Hex()))
			continue
		}
		decValues, err := decimalsMethod.Outputs.Unpack(decRes.Return)
		if err != nil || len(decValues) < 1 {
			continue
		}
		decimals, _ := decValues[0].(uint8)

		symRes := symResults[i]
		symbol := ""
		if symRes.Success {
			if symValues, err := symbolMethod.Outputs.Unpack(symRes.Return); err == nil && len(symValues) > 0 {
				symbol, _ = symValues[0].(string)
			}
		}
		if symbol == "" {
			retrySymbolAddrs = append(retrySymbolAddrs, addr)
		}

		out[addr] = domain.Currency{ChainID: chainID, Address: addr, Decimals: decimals, Symbol: symbol}
	}

	if len(retrySymbolAddrs) > 0 {
		b32Method := p.bytes32Symbol.Methods["symbol"]
		b32Results, err := p.mc.SameFunctionManyContracts(ctx, retrySymbolAddrs, &b32Method, nil, "latest")
		if err == nil {
			for j, addr := range retrySymbolAddrs {
				if !b32Results[j].Success {
					continue
				}
				values, err := b32Method.Outputs.Unpack(b32Results[j].Return)
				if err != nil || len(values) < 1 {
					continue
				}
				raw, _ := values[0].([32]byte)
				symbol := strings.TrimRight(string(raw[:]), "\x00")
				if c, ok := out[addr]; ok {
					c.Symbol = symbol
					out[addr] = c
				}
			}
		}
	}

	return out, nil
}

// CachingProvider memoizes resolved tokens forever in a bounded LRU,
// seeded at construction with each chain's well-known base tokens and
// wrapped native so the hottest lookups never touch the RPC (spec.md §4.4).
type CachingProvider struct {
	inner Provider
	cache *lru.Cache[string, domain.Currency]
}

func NewCachingProvider(inner Provider, size int) (*CachingProvider, error) {
	cache, err := lru.New[string, domain.Currency](size)
	if err != nil {
		return nil, fmt.Errorf("tokenprovider: new lru: %w", err)
	}
	cp := &CachingProvider{inner: inner, cache: cache}
	for _, id := range chain.Supported() {
		c := chain.MustGet(int64(id))
		cp.cache.Add(seedKey(c.WrappedNative.ChainID, c.WrappedNative.Address), c.WrappedNative)
		for _, base := range c.BaseTokens {
			cp.cache.Add(seedKey(base.ChainID, base.Address), base)
		}
	}
	return cp, nil
}

func seedKey(chainID int64, addr common.Address) string {
	return fmt.Sprintf("%d:%s", chainID, strings.ToLower(addr.Hex()))
}

func (cp *CachingProvider) Resolve(ctx context.Context, chainID int64, addrs []common.Address) (map[common.Address]domain.Currency, error) {
	out := make(map[common.Address]domain.Currency, len(addrs))
	var miss []common.Address

	for _, addr := range addrs {
		if c, ok := cp.cache.Get(seedKey(chainID, addr)); ok {
			out[addr] = c
			continue
		}
		miss = append(miss, addr)
	}
	if len(miss) == 0 {
		return out, nil
	}

	fetched, err := cp.inner.Resolve(ctx, chainID, miss)
	if err != nil {
		return out, err
	}
	for addr, c := range fetched {
		out[addr] = c
		cp.cache.Add(seedKey(chainID, addr), c)
	}
	return out, nil
}
