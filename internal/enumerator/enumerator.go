// Package enumerator implements C6: depth-first, backtracking enumeration
// of every simple path from tokenIn to tokenOut over a candidate pool set,
// bounded by maxSwapsPerPath (spec.md §4.6). Generalized from the
// teacher's recursive PathFinder.dfs, which explored a fixed max-hop graph
// of mock pools the same way.
package enumerator

import (
	"dex-aggregator/internal/domain"
)

// Enumerate returns every simple path tokenIn -> tokenOut of length <=
// maxHops over pools, tagged and filtered per protocol: a Mixed request
// additionally requires >=2 pools of >=2 distinct protocols (§4.6).
func Enumerate(pools []domain.Pool, tokenIn, tokenOut domain.Currency, maxHops int, protocol domain.Protocol) []domain.Route {
	adjacency := buildAdjacency(pools)

	var routes []domain.Route
	visitedPools := map[string]bool{}
	visitedTokens := map[string]bool{tokenIn.Key(): true}
	path := make([]domain.Pool, 0, maxHops)

	var dfs func(current domain.Currency)
	dfs = func(current domain.Currency) {
		if current.Equal(tokenOut) && len(path) > 0 {
			route := domain.Route{
				Pools:  append([]domain.Pool{}, path...),
				Input:  tokenIn,
				Output: tokenOut,
			}
			if matchesProtocol(route, protocol) {
				routes = append(routes, route)
			}
			// A route ending at tokenOut can still be extended in a Mixed
			// search if tokenOut also sits mid-graph; but per §4.6 a
			// "simple path" terminates consumption at tokenOut, so we
			// stop descending further from this node.
			return
		}
		if len(path) >= maxHops {
			return
		}

		for _, edge := range adjacency[current.Key()] {
			id := domain.PoolIdentity(edge.pool)
			if visitedPools[id] {
				continue
			}
			if visitedTokens[edge.other.Key()] {
				continue
			}

			visitedPools[id] = true
			visitedTokens[edge.other.Key()] = true
			path = append(path, edge.pool)

			dfs(edge.other)

			path = path[:len(path)-1]
			visitedTokens[edge.other.Key()] = false
			visitedPools[id] = false
		}
	}

	dfs(tokenIn)
	return routes
}

type edge struct {
	pool  domain.Pool
	other domain.Currency
}

// buildAdjacency expands every pool (including multi-token Stable pools
// and StableWrapper share/vault edges) into directed token->token edges.
func buildAdjacency(pools []domain.Pool) map[string][]edge {
	adj := map[string][]edge{}
	addEdge := func(from, to domain.Currency, p domain.Pool) {
		adj[from.Key()] = append(adj[from.Key()], edge{pool: p, other: to})
	}

	for _, p := range pools {
		switch pool := p.(type) {
		case *domain.StablePool:
			for i, a := range pool.TokensList {
				for j, b := range pool.TokensList {
					if i == j {
						continue
					}
					addEdge(a, b, pool)
				}
			}
		case *domain.StableWrapperPool:
			addEdge(pool.ShareToken, pool.VaultToken, pool)
			addEdge(pool.VaultToken, pool.ShareToken, pool)
		default:
			tokens := p.Tokens()
			addEdge(tokens[0], tokens[1], p)
			addEdge(tokens[1], tokens[0], p)
		}
	}
	return adj
}

func matchesProtocol(r domain.Route, want domain.Protocol) bool {
	actual := r.Protocol()
	if want == domain.ProtocolMixed {
		return actual == domain.ProtocolMixed
	}
	return actual == want
}
