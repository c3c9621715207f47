package subgraph

import (
	"context"

	"dex-aggregator/internal/domain"

	"go.uber.org/zap"
)

// FallbackProvider tries each provider in order, falling through to the
// next on error, so a remote subgraph outage degrades to whatever tiers
// follow it (main.go wires the static seed set next) rather than failing
// the whole routing request (spec.md §4.3, §7 "degrade, never fail outright").
type FallbackProvider struct {
	providers []Provider
	logger    *zap.Logger
}

func WithFallback(logger *zap.Logger, providers ...Provider) *FallbackProvider {
	return &FallbackProvider{providers: providers, logger: logger}
}

func (f *FallbackProvider) PoolsForPair(ctx context.Context, chainID int64, tokenA, tokenB domain.Currency) ([]PoolDescriptor, error) {
	var lastErr error
	for i, p := range f.providers {
		pools, err := p.PoolsForPair(ctx, chainID, tokenA, tokenB)
		if err == nil {
			return pools, nil
		}
		lastErr = err
		f.logger.Info("subgraph: provider failed, falling back", zap.Int("providerIndex", i), zap.Error(err))
	}
	return nil, lastErr
}

func (f *FallbackProvider) TopPoolsByTVL(ctx context.Context, chainID int64, limit int) ([]PoolDescriptor, error) {
	var lastErr error
	for i, p := range f.providers {
		pools, err := p.TopPoolsByTVL(ctx, chainID, limit)
		if err == nil {
			return pools, nil
		}
		lastErr = err
		f.logger.Info("subgraph: provider failed, falling back", zap.Int("providerIndex", i), zap.Error(err))
	}
	return nil, lastErr
}

func (f *FallbackProvider) PoolsInvolving(ctx context.Context, chainID int64, token domain.Currency, limit int) ([]PoolDescriptor, error) {
	var lastErr error
	for i, p := range f.providers {
		pools, err := p.PoolsInvolving(ctx, chainID, token, limit)
		if err == nil {
			return pools, nil
		}
		lastErr = err
		f.logger.Info("subgraph: provider failed, falling back", zap.Int("providerIndex", i), zap.Error(err))
	}
	return nil, lastErr
}
