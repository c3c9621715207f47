package domain

import "fmt"

// Route is an ordered non-empty sequence of pools connecting Input to
// Output such that adjacent pools share a token and every hop's output
// equals the next hop's input. Routes are immutable once constructed (the
// enumerator, §4.6, builds them via backtracking but never mutates one
// after appending it to its result set).
type Route struct {
	Pools  []Pool
	Input  Currency
	Output Currency
}

// TradeType fixes which side of a swap is held constant.
type TradeType int

const (
	ExactInput TradeType = iota
	ExactOutput
)

// Protocol classifies the route per spec.md §3: V2/V3/Stable/StableWrapper
// if every pool shares that protocol, Mixed if at least two distinct
// protocols appear among at least two pools.
func (r Route) Protocol() Protocol {
	if len(r.Pools) == 0 {
		return ProtocolMixed
	}
	first := r.Pools[0].Protocol()
	mixed := false
	for _, p := range r.Pools[1:] {
		if p.Protocol() != first {
			mixed = true
			break
		}
	}
	if !mixed {
		return first
	}
	return ProtocolMixed
}

// Validate checks the structural invariants spec.md §8 calls out under
// "Route validity": adjacent pools share a token, endpoints match
// Input/Output, no pool repeats, and (if maxHops > 0) length is bounded.
func (r Route) Validate(maxHops int) error {
	if len(r.Pools) == 0 {
		return fmt.Errorf("route has no pools")
	}
	if maxHops > 0 && len(r.Pools) > maxHops {
		return fmt.Errorf("route exceeds maxSwapsPerPath: %d > %d", len(r.Pools), maxHops)
	}

	seen := make(map[string]struct{}, len(r.Pools))
	current := r.Input
	for i, p := range r.Pools {
		if !p.Involves(current) {
			return fmt.Errorf("hop %d: pool %s does not involve token %s", i, p.Address(), current)
		}
		id := PoolIdentity(p)
		if _, dup := seen[id]; dup {
			return fmt.Errorf("hop %d: pool %s repeated in route", i, id)
		}
		seen[id] = struct{}{}

		next, ok := p.Other(current)
		if !ok {
			return fmt.Errorf("hop %d: pool %s has no other side for %s", i, p.Address(), current)
		}
		current = next
	}
	if !current.Equal(r.Output) {
		return fmt.Errorf("route output %s does not match final hop token %s", r.Output, current)
	}

	if r.Protocol() == ProtocolMixed {
		distinct := map[Protocol]struct{}{}
		for _, p := range r.Pools {
			distinct[p.Protocol()] = struct{}{}
		}
		if len(r.Pools) < 2 || len(distinct) < 2 {
			return fmt.Errorf("mixed route must contain >=2 pools of >=2 distinct protocols")
		}
	}
	return nil
}

// TokenPath returns the ordered token sequence a trade along r passes
// through, Input first and Output last.
func (r Route) TokenPath() []Currency {
	path := make([]Currency, 0, len(r.Pools)+1)
	path = append(path, r.Input)
	current := r.Input
	for _, p := range r.Pools {
		next, _ := p.Other(current)
		path = append(path, next)
		current = next
	}
	return path
}
