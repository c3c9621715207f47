package domain

import "errors"

// Typed errors returned by the router's external surface (spec.md Error Surface,
// section 6). Internal helpers still return plain fmt.Errorf values; only the
// boundary-facing errors below are sentinel values checked with errors.Is.
var (
	ErrUnsupportedChain     = errors.New("unsupported chain")
	ErrUnsupportedTradeType = errors.New("unsupported trade type for this protocol")
	ErrNoRouteFound         = errors.New("no route found")
	ErrRpcFailure           = errors.New("rpc failure")
	ErrTimeout              = errors.New("timeout")
	ErrInvalidInput         = errors.New("invalid input")
)
