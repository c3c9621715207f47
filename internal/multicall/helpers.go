package multicall

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// SameFunctionManyContracts calls the same ABI function on many contract
// addresses with the same params (spec.md §4.1
// aggregateSameFunctionManyContracts), e.g. fetching slot0 from every V3
// pool address in a candidate set.
func (c *Client) SameFunctionManyContracts(ctx context.Context, addrs []common.Address, method *abi.Method, params []interface{}, blockTag string) ([]Result, error) {
	data, err := method.Inputs.Pack(params...)
	if err != nil {
		return nil, fmt.Errorf("multicall: pack %s: %w", method.Name, err)
	}
	payload := append(append([]byte{}, method.ID...), data...)

	calls := make([]Call, len(addrs))
	for i, addr := range addrs {
		calls[i] = Call{Target: addr, Data: payload}
	}
	return c.Aggregate(ctx, calls, blockTag)
}

// SameFunctionOneContractManyParams calls the same ABI function on a single
// contract with many different param sets (spec.md §4.1
// aggregateSameFunctionOneContractManyParams), e.g. quoting one route at
// every distributionPercent fraction of the trade amount.
func (c *Client) SameFunctionOneContractManyParams(ctx context.Context, addr common.Address, method *abi.Method, paramSets [][]interface{}, blockTag string) ([]Result, error) {
	calls := make([]Call, len(paramSets))
	for i, params := range paramSets {
		data, err := method.Inputs.Pack(params...)
		if err != nil {
			return nil, fmt.Errorf("multicall: pack %s param set %d: %w", method.Name, i, err)
		}
		calls[i] = Call{Target: addr, Data: append(append([]byte{}, method.ID...), data...)}
	}
	return c.Aggregate(ctx, calls, blockTag)
}
