// Package multicall packs many read-only contract calls into as few RPC
// round trips as practical (spec.md §4.1), built on go-ethereum's
// rpc.Client.BatchCallContext - the same "batch eth_call over one JSON-RPC
// round trip" technique the retrieved Slinky Uniswap V3 price fetcher uses,
// rather than a hand-rolled Multicall3 contract client.
package multicall

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Call is one view call to pack into a batch.
type Call struct {
	Target common.Address
	Data   []byte
}

// Result is the per-call outcome. Ordering of a Results slice always
// matches the input Calls slice, even after internal batch halving
// (spec.md §4.1 "Ordering").
type Result struct {
	Success bool
	Return  []byte
	Err     error
	Fatal   bool // true once a batch exhausted its halving budget
}

// Client executes batches of calls against an RPC endpoint, splitting and
// retrying on batch-level failure.
type Client struct {
	rpc    *rpc.Client
	logger *zap.Logger

	initialBatchSize int
	maxConcurrency   int
	maxHalvingDepth  int
}

// Option configures a Client.
type Option func(*Client)

func WithInitialBatchSize(n int) Option { return func(c *Client) { c.initialBatchSize = n } }
func WithMaxConcurrency(n int) Option   { return func(c *Client) { c.maxConcurrency = n } }
func WithMaxHalvingDepth(n int) Option  { return func(c *Client) { c.maxHalvingDepth = n } }

// New builds a Client over an already-dialed go-ethereum RPC client.
func New(rpcClient *rpc.Client, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		rpc:              rpcClient,
		logger:           logger,
		initialBatchSize: 100,
		maxConcurrency:   8,
		maxHalvingDepth:  5,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Aggregate executes calls in as few round trips as practical, returning
// per-call success/failure plus decoded raw result bytes. blockTag is
// "latest" when empty.
func (c *Client) Aggregate(ctx context.Context, calls []Call, blockTag string) ([]Result, error) {
	if len(calls) == 0 {
		return nil, nil
	}
	if blockTag == "" {
		blockTag = "latest"
	}

	results := make([]Result, len(calls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxConcurrency)

	for start := 0; start < len(calls); start += c.initialBatchSize {
		end := start + c.initialBatchSize
		if end > len(calls) {
			end = len(calls)
		}
		start, end := start, end
		g.Go(func() error {
			return c.runBatch(gctx, calls[start:end], results[start:end], blockTag, 0)
		})
	}

	if err := g.Wait(); err != nil {
		return results, fmt.Errorf("multicall: %w", err)
	}
	return results, nil
}

// runBatch submits one batch, halving and re-enqueueing both halves on a
// batch-level failure, down to maxHalvingDepth before marking every call in
// the batch fatal (spec.md §4.1).
func (c *Client) runBatch(ctx context.Context, calls []Call, out []Result, blockTag string, depth int) error {
	elems := make([]rpc.BatchElem, len(calls))
	raw := make([]*hexutil.Bytes, len(calls))
	for i, call := range calls {
		raw[i] = new(hexutil.Bytes)
		elems[i] = rpc.BatchElem{
			Method: "eth_call",
			Args: []interface{}{
				map[string]interface{}{
					"to":   call.Target,
					"data": hexutil.Bytes(call.Data),
				},
				blockTag,
			},
			Result: raw[i],
		}
	}

	err := backoff.Retry(func() error {
		callCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		return c.rpc.BatchCallContext(callCtx, elems)
	}, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2))

	if err != nil {
		if len(calls) <= 1 || depth >= c.maxHalvingDepth {
			c.logger.Info("multicall: batch exhausted retries, marking fatal",
				zap.Int("size", len(calls)), zap.Int("depth", depth), zap.Error(err))
			for i := range out {
				out[i] = Result{Fatal: true, Err: err}
			}
			return nil
		}
		c.logger.Info("multicall: batch failed, halving", zap.Int("size", len(calls)), zap.Error(err))
		mid := len(calls) / 2
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return c.runBatch(gctx, calls[:mid], out[:mid], blockTag, depth+1) })
		g.Go(func() error { return c.runBatch(gctx, calls[mid:], out[mid:], blockTag, depth+1) })
		return g.Wait()
	}

	for i, elem := range elems {
		if elem.Error != nil {
			out[i] = Result{Success: false, Err: decodeRevertReason(elem.Error)}
			continue
		}
		out[i] = Result{Success: true, Return: *raw[i]}
	}
	return nil
}

// decodeRevertReason tries to surface a human-readable Error(string)
// revert reason from a failed eth_call, falling back to the raw error.
func decodeRevertReason(err error) error {
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if s, ok := dataErr.ErrorData().(string); ok {
			if reason, decodeErr := tryDecodeErrorString(s); decodeErr == nil {
				return fmt.Errorf("reverted: %s", reason)
			}
		}
	}
	return err
}

var errorStringSelector = "0x08c379a0"

func tryDecodeErrorString(hexData string) (string, error) {
	if !strings.HasPrefix(hexData, errorStringSelector) {
		return "", fmt.Errorf("not an Error(string) payload")
	}
	data, err := hexutil.Decode(hexData)
	if err != nil {
		return "", err
	}
	strType, _ := abi.NewType("string", "", nil)
	args := abi.Arguments{{Type: strType}}
	values, err := args.Unpack(data[4:])
	if err != nil || len(values) == 0 {
		return "", fmt.Errorf("could not unpack revert reason")
	}
	reason, _ := values[0].(string)
	return reason, nil
}
