package router

import (
	"context"
	"fmt"

	"dex-aggregator/internal/domain"

	"github.com/ethereum/go-ethereum/common"
)

// NoopCallDataBuilder is the default CallDataBuilder: it never produces
// signable call data (spec.md §1 Non-goals), it only confirms the plan is
// well-formed enough that a real call-data SDK downstream could consume it.
// Route logs and continues without call data on any error from this type,
// so wiring it is always safe.
type NoopCallDataBuilder struct{}

func (NoopCallDataBuilder) Build(ctx context.Context, plan *domain.Plan, originalTokenIn, originalTokenOut common.Address, wrapsInput, unwrapsOutput bool) ([]byte, error) {
	if plan == nil || len(plan.Routes) == 0 {
		return nil, fmt.Errorf("router: cannot build call data for an empty plan")
	}
	return nil, fmt.Errorf("router: call-data assembly is not implemented, use the plan's routes with a downstream call-data builder")
}
