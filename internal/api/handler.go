// Package api implements C11: the HTTP delivery layer over the router
// package, generalized from the teacher's internal/api.Handler +
// gorilla/mux routes to the new domain.Plan response shape.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"dex-aggregator/internal/domain"
	"dex-aggregator/internal/router"
	"dex-aggregator/internal/subgraph"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Router is the subset of *router.Router the handler depends on - an
// interface so handler tests can fake routing.
type Router interface {
	Route(ctx context.Context, req router.Request) (*domain.Plan, error)
}

// Handler wires the HTTP surface (spec.md §6) to the orchestrator and, for
// introspection endpoints, directly to the subgraph layer - those routes
// return candidate descriptors rather than fully on-chain-fetched pools,
// since a pool's on-chain address is only derived once a route actually
// needs it (§4.2), not at listing time.
type Handler struct {
	router         Router
	subgraph       subgraph.Provider
	logger         *zap.Logger
	requestTimeout time.Duration
}

// NewHandler wires the HTTP surface to a Router and subgraph.Provider.
// requestTimeout bounds every GetQuote call (spec.md §5 "Cancellation");
// zero or negative disables the deadline.
func NewHandler(r Router, sg subgraph.Provider, logger *zap.Logger, requestTimeout time.Duration) *Handler {
	return &Handler{router: r, subgraph: sg, logger: logger, requestTimeout: requestTimeout}
}

type quoteRequest struct {
	ChainID   int64  `json:"chainId"`
	TokenIn   string `json:"tokenIn"`
	TokenOut  string `json:"tokenOut"`
	Amount    string `json:"amount"`
	TradeType string `json:"tradeType"`
}

// GetQuote handles POST /api/v1/quote (spec.md §6).
func (h *Handler) GetQuote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if !common.IsHexAddress(req.TokenIn) || !common.IsHexAddress(req.TokenOut) {
		http.Error(w, "tokenIn and tokenOut must be hex addresses", http.StatusBadRequest)
		return
	}

	amount, ok := new(big.Int).SetString(req.Amount, 10)
	if !ok || amount.Sign() <= 0 {
		http.Error(w, "amount must be a positive base-10 integer string", http.StatusBadRequest)
		return
	}

	tradeType, err := parseTradeType(req.TradeType)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if h.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.requestTimeout)
		defer cancel()
	}

	plan, err := h.router.Route(ctx, router.Request{
		ChainID:   req.ChainID,
		TokenIn:   common.HexToAddress(req.TokenIn),
		TokenOut:  common.HexToAddress(req.TokenOut),
		Amount:    amount,
		TradeType: tradeType,
	})
	if err != nil {
		h.writeRouteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, plan)
}

func parseTradeType(s string) (domain.TradeType, error) {
	switch s {
	case "", "EXACT_INPUT":
		return domain.ExactInput, nil
	case "EXACT_OUTPUT":
		return domain.ExactOutput, nil
	default:
		return 0, fmt.Errorf("tradeType must be EXACT_INPUT or EXACT_OUTPUT, got %q", s)
	}
}

// writeRouteError maps the typed domain errors (spec.md §7) to HTTP
// status codes, falling back to 500 for anything untyped.
func (h *Handler) writeRouteError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrUnsupportedChain), errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrUnsupportedTradeType):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNoRouteFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrTimeout):
		status = http.StatusGatewayTimeout
	}
	h.logger.Info("api: route request failed", zap.Error(err), zap.Int("status", status))
	http.Error(w, err.Error(), status)
}

// GetPools handles GET /api/v1/pools - the highest-TVL candidate
// descriptors the subgraph reports for one chain.
func (h *Handler) GetPools(w http.ResponseWriter, r *http.Request) {
	chainID, limit, err := parseChainAndLimit(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	pools, err := h.subgraph.TopPoolsByTVL(r.Context(), chainID, limit)
	if err != nil {
		h.writeRouteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"count": len(pools), "pools": pools})
}

// GetPoolsByTokens handles GET /api/v1/pools/search?tokenA=&tokenB=.
func (h *Handler) GetPoolsByTokens(w http.ResponseWriter, r *http.Request) {
	chainID, _, err := parseChainAndLimit(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	tokenA := r.URL.Query().Get("tokenA")
	tokenB := r.URL.Query().Get("tokenB")
	if !common.IsHexAddress(tokenA) || !common.IsHexAddress(tokenB) {
		http.Error(w, "tokenA and tokenB must be hex addresses", http.StatusBadRequest)
		return
	}
	a := domain.Currency{ChainID: chainID, Address: common.HexToAddress(tokenA)}
	b := domain.Currency{ChainID: chainID, Address: common.HexToAddress(tokenB)}
	pools, err := h.subgraph.PoolsForPair(r.Context(), chainID, a, b)
	if err != nil {
		h.writeRouteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tokenA": tokenA, "tokenB": tokenB, "count": len(pools), "pools": pools})
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func parseChainAndLimit(r *http.Request) (chainID int64, limit int, err error) {
	chainID = 1
	if v := r.URL.Query().Get("chainId"); v != "" {
		chainID, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("chainId must be an integer: %w", err)
		}
	}
	limit = 50
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil {
			return 0, 0, fmt.Errorf("limit must be an integer: %w", err)
		}
	}
	return chainID, limit, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
