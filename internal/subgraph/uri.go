package subgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"dex-aggregator/internal/domain"

	"go.uber.org/zap"
)

// URIProvider fetches a static JSON pool-descriptor snapshot from a URI
// (an S3/IPFS-hosted dump, say) and serves it exactly like StaticProvider
// once loaded. Used when the hosted subgraph endpoint is down but a
// recent snapshot is still good enough (spec.md §4.3).
type URIProvider struct {
	*StaticProvider
}

func LoadURIProvider(ctx context.Context, uri string, logger *zap.Logger) (*URIProvider, error) {
	client := &http.Client{Timeout: 15 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("subgraph: build uri request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("subgraph: fetch uri snapshot: %w", err)
	}
	defer resp.Body.Close()

	var records []rawPoolRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("subgraph: decode uri snapshot: %w", err)
	}

	pools, err := decodeRecords(records, 0, domain.Currency{}, domain.Currency{})
	if err != nil {
		return nil, err
	}
	logger.Info("subgraph: loaded uri snapshot", zap.Int("pools", len(pools)), zap.String("uri", uri))
	return &URIProvider{StaticProvider: NewStaticProvider(pools)}, nil
}
