package subgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"dex-aggregator/internal/domain"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// RemoteProvider queries a hosted subgraph over GraphQL-over-HTTP. No
// GraphQL client exists anywhere in the codebase's dependency stack, so
// this provider (like URIProvider's snapshot fetch) reaches for stdlib
// net/http and encoding/json directly rather than a third-party library -
// see DESIGN.md.
type RemoteProvider struct {
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger
	chainID    int64
}

func NewRemoteProvider(endpoint string, chainID int64, logger *zap.Logger) *RemoteProvider {
	return &RemoteProvider{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
		chainID:    chainID,
	}
}

type graphqlRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type graphqlError struct {
	Message string `json:"message"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphqlError  `json:"errors,omitempty"`
}

// execute posts a query and retries transient failures and block-not-yet-
// indexed responses by rolling the requested block back 10 heights
// (spec.md §4.3 "subgraph block-rollback retries").
func (r *RemoteProvider) execute(ctx context.Context, query string, variables map[string]interface{}, out interface{}) error {
	op := func() error {
		body, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
		if err != nil {
			return backoff.Permanent(fmt.Errorf("subgraph: marshal request: %w", err))
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("subgraph: build request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := r.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("subgraph: request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("subgraph: server error %d", resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			return backoff.Permanent(fmt.Errorf("subgraph: client error %d", resp.StatusCode))
		}

		var gr graphqlResponse
		if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
			return fmt.Errorf("subgraph: decode response: %w", err)
		}
		if len(gr.Errors) > 0 {
			if isBlockNotIndexedError(gr.Errors[0].Message) {
				if b, ok := variables["block"]; ok {
					if blockNum, ok := b.(int); ok {
						variables["block"] = blockNum - 10
					}
				}
				return fmt.Errorf("subgraph: block not yet indexed, rolling back: %s", gr.Errors[0].Message)
			}
			return backoff.Permanent(fmt.Errorf("subgraph: graphql error: %s", gr.Errors[0].Message))
		}
		return json.Unmarshal(gr.Data, out)
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)
	if err := backoff.Retry(op, backoff.WithContext(policy, ctx)); err != nil {
		return err
	}
	return nil
}

func isBlockNotIndexedError(msg string) bool {
	return strings.Contains(msg, "has only indexed up to block") || strings.Contains(msg, "not found")
}

type rawPoolRecord struct {
	ID       string   `json:"id"`
	Token0   string   `json:"token0"`
	Token1   string   `json:"token1"`
	FeeTier  string   `json:"feeTier,omitempty"`
	TVLUSD   string   `json:"totalValueLockedUSD"`
	Protocol string   `json:"protocol,omitempty"`
	Tokens   []string `json:"tokens,omitempty"`
}

const poolsForPairQuery = `
query PoolsForPair($token0: String!, $token1: String!) {
	pools(where: { token0: $token0, token1: $token1 }) {
		id
		token0
		token1
		feeTier
		totalValueLockedUSD
		protocol
	}
}`

func (r *RemoteProvider) PoolsForPair(ctx context.Context, chainID int64, tokenA, tokenB domain.Currency) ([]PoolDescriptor, error) {
	t0, t1 := tokenA, tokenB
	if greaterAddress(t0.Address, t1.Address) {
		t0, t1 = t1, t0
	}
	var records []rawPoolRecord
	vars := map[string]interface{}{"token0": t0.Address.Hex(), "token1": t1.Address.Hex()}
	if err := r.execute(ctx, poolsForPairQuery, vars, &records); err != nil {
		return nil, fmt.Errorf("subgraph: pools for pair: %w", err)
	}
	return decodeRecords(records, chainID, t0, t1)
}

const topPoolsQuery = `
query TopPools($first: Int!) {
	pools(first: $first, orderBy: totalValueLockedUSD, orderDirection: desc) {
		id
		token0
		token1
		feeTier
		totalValueLockedUSD
		protocol
	}
}`

func (r *RemoteProvider) TopPoolsByTVL(ctx context.Context, chainID int64, limit int) ([]PoolDescriptor, error) {
	var records []rawPoolRecord
	vars := map[string]interface{}{"first": limit}
	if err := r.execute(ctx, topPoolsQuery, vars, &records); err != nil {
		return nil, fmt.Errorf("subgraph: top pools by tvl: %w", err)
	}
	return decodeRecords(records, chainID, domain.Currency{}, domain.Currency{})
}

const poolsInvolvingQuery = `
query PoolsInvolving($token: String!, $first: Int!) {
	pools(first: $first, where: { or: [{ token0: $token }, { token1: $token }] }, orderBy: totalValueLockedUSD, orderDirection: desc) {
		id
		token0
		token1
		feeTier
		totalValueLockedUSD
		protocol
	}
}`

func (r *RemoteProvider) PoolsInvolving(ctx context.Context, chainID int64, token domain.Currency, limit int) ([]PoolDescriptor, error) {
	var records []rawPoolRecord
	vars := map[string]interface{}{"token": token.Address.Hex(), "first": limit}
	if err := r.execute(ctx, poolsInvolvingQuery, vars, &records); err != nil {
		return nil, fmt.Errorf("subgraph: pools involving token: %w", err)
	}
	return decodeRecords(records, chainID, domain.Currency{}, domain.Currency{})
}

func decodeRecords(records []rawPoolRecord, chainID int64, hintT0, hintT1 domain.Currency) ([]PoolDescriptor, error) {
	out := make([]PoolDescriptor, 0, len(records))
	for _, rec := range records {
		tvl := new(big.Float)
		tvl.SetString(rec.TVLUSD)
		tvlF, _ := tvl.Float64()

		desc := PoolDescriptor{
			Protocol: protocolFromString(rec.Protocol),
			Token0:   currencyFromAddress(chainID, rec.Token0, hintT0),
			Token1:   currencyFromAddress(chainID, rec.Token1, hintT1),
			TVLUSD:   tvlF,
		}
		if rec.FeeTier != "" {
			fee := new(big.Int)
			fee.SetString(rec.FeeTier, 10)
			desc.Fee = domain.FeeTier(fee.Uint64())
		}
		out = append(out, desc)
	}
	return out, nil
}

func protocolFromString(s string) domain.Protocol {
	switch s {
	case "v3":
		return domain.ProtocolV3
	case "stable":
		return domain.ProtocolStable
	default:
		return domain.ProtocolV2
	}
}

func currencyFromAddress(chainID int64, addr string, hint domain.Currency) domain.Currency {
	a := common.HexToAddress(addr)
	if hint.Address == a {
		return hint
	}
	return domain.Currency{ChainID: chainID, Address: a}
}

func greaterAddress(a, b common.Address) bool {
	return bytes.Compare(a.Bytes(), b.Bytes()) > 0
}
