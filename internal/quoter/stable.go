package quoter

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

// queryBatchSwapABIJSON mirrors the Balancer V2 Vault's queryBatchSwap, a
// state-mutating-signature-but-view-behaving static call that simulates a
// chain of swaps across pools and returns each asset's net delta, the
// on-chain simulation path for Stable and StableWrapper routes (spec.md
// §4.7's "quoting is on-chain" design decision).
const queryBatchSwapABIJSON = `[
	{"inputs":[
		{"internalType":"uint8","name":"kind","type":"uint8"},
		{"components":[
			{"internalType":"bytes32","name":"poolId","type":"bytes32"},
			{"internalType":"uint256","name":"assetInIndex","type":"uint256"},
			{"internalType":"uint256","name":"assetOutIndex","type":"uint256"},
			{"internalType":"uint256","name":"amount","type":"uint256"},
			{"internalType":"bytes","name":"userData","type":"bytes"}
		],"internalType":"struct IVault.BatchSwapStep[]","name":"swaps","type":"tuple[]"},
		{"internalType":"address[]","name":"assets","type":"address[]"},
		{"components":[
			{"internalType":"address","name":"sender","type":"address"},
			{"internalType":"bool","name":"fromInternalBalance","type":"bool"},
			{"internalType":"address","name":"recipient","type":"address"},
			{"internalType":"bool","name":"toInternalBalance","type":"bool"}
		],"internalType":"struct IVault.FundManagement","name":"funds","type":"tuple"}
	],"name":"queryBatchSwap","outputs":[{"internalType":"int256[]","name":"assetDeltas","type":"int256[]"}],"stateMutability":"nonpayable","type":"function"}
]`

const swapKindGivenIn = 0

// StableQuoter simulates Balancer-style stable/StableWrapper routes via
// the Vault's queryBatchSwap. Only EXACT_INPUT is supported (spec.md §4.7).
type StableQuoter struct {
	mc     *multicall.Client
	vault  common.Address
	abi    abi.ABI
	logger *zap.Logger
}

func NewStableQuoter(mc *multicall.Client, vault common.Address, logger *zap.Logger) (*StableQuoter, error) {
	parsed, err := abi.JSON(strings.NewReader(queryBatchSwapABIJSON))
	if err != nil {
		return nil, fmt.Errorf("quoter: parse queryBatchSwap abi: %w", err)
	}
	return &StableQuoter{mc: mc, vault: vault, abi: parsed, logger: logger}, nil
}

func (q *StableQuoter) Quote(ctx context.Context, routes []domain.Route, amount domain.Amount, tradeType domain.TradeType, percents []int) ([]RouteQuotes, error) {
	if tradeType != domain.ExactInput {
		return nil, domain.ErrUnsupportedTradeType
	}

	method := q.abi.Methods["queryBatchSwap"]
	out := make([]RouteQuotes, len(routes))

	for ri, route := range routes {
		assets, steps := buildBatchSwapSteps(route)
		rq := RouteQuotes{Route: route}
		paramSets := make([][]interface{}, len(percents))
		for i, pct := range percents {
			frac := amount.Fraction(pct)
			stepsWithAmount := append([]batchSwapStep{}, steps...)
			if len(stepsWithAmount) > 0 {
				stepsWithAmount[0].Amount = frac.Quotient()
			}
			paramSets[i] = []interface{}{
				uint8(swapKindGivenIn),
				stepsWithAmount,
				assets,
				fundManagement{},
			}
		}

		results, err := q.mc.SameFunctionOneContractManyParams(ctx, q.vault, &method, paramSets, "latest")
		if err != nil {
			return nil, fmt.Errorf("quoter: stable batch swap query: %w", err)
		}

		quotes := make([]AmountQuote, len(percents))
		for i, pct := range percents {
			quotes[i] = AmountQuote{Percent: pct, AmountIn: amount.Fraction(pct)}
			res := results[i]
			if !res.Success {
				continue
			}
			values, err := method.Outputs.Unpack(res.Return)
			if err != nil || len(values) < 1 {
				continue
			}
			deltas, _ := values[0].([]*big.Int)
			if len(deltas) == 0 {
				continue
			}
			// The output asset's delta is negative (Vault pays it out);
			// the magnitude is the quoted amount.
			outDelta := deltas[len(assets)-1]
			if outDelta == nil || outDelta.Sign() >= 0 {
				continue
			}
			amountOut := new(big.Int).Neg(outDelta)
			result := domain.NewAmountFromBigInt(route.Output, amountOut)
			quotes[i].Quote = &result
		}
		rq.Quotes = quotes
		out[ri] = rq
	}
	return out, nil
}

type batchSwapStep struct {
	PoolID        [32]byte
	AssetInIndex  *big.Int
	AssetOutIndex *big.Int
	Amount        *big.Int
	UserData      []byte
}

type fundManagement struct {
	Sender              common.Address
	FromInternalBalance bool
	Recipient           common.Address
	ToInternalBalance   bool
}

// buildBatchSwapSteps flattens a route's token path into the Vault's
// asset-index representation: one BatchSwapStep per hop, referencing
// assets by position in the shared assets array.
func buildBatchSwapSteps(route domain.Route) ([]common.Address, []batchSwapStep) {
	path := route.TokenPath()
	assets := make([]common.Address, len(path))
	for i, c := range path {
		assets[i] = c.Address
	}

	steps := make([]batchSwapStep, len(route.Pools))
	for i, p := range route.Pools {
		var poolID [32]byte
		switch pool := p.(type) {
		case *domain.StablePool:
			poolID = pool.ID
		case *domain.StableWrapperPool:
			poolID = pool.Underlying.ID
		}
		steps[i] = batchSwapStep{
			PoolID:        poolID,
			AssetInIndex:  big.NewInt(int64(i)),
			AssetOutIndex: big.NewInt(int64(i + 1)),
			Amount:        big.NewInt(0), // only the first step's amount is used by the Vault for GIVEN_IN
			UserData:      []byte{},
		}
	}
	return assets, steps
}
