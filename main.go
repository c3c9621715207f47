package main

import (
	"context"
	"log"
	"math/big"
	"net/http"
	"time"

	"dex-aggregator/config"
	"dex-aggregator/internal/api"
	"dex-aggregator/internal/chain"
	"dex-aggregator/internal/domain"
	"dex-aggregator/internal/gasmodel"
	"dex-aggregator/internal/multicall"
	"dex-aggregator/internal/poolprovider"
	"dex-aggregator/internal/quoter"
	"dex-aggregator/internal/router"
	"dex-aggregator/internal/seed"
	"dex-aggregator/internal/selector"
	"dex-aggregator/internal/splitter"
	"dex-aggregator/internal/subgraph"
	"dex-aggregator/internal/tokenprovider"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// protocolAddrs is the deployed-contract wiring per chain - factories,
// vaults, quoters. Unlike chain.Chain (currency/routing config the router
// itself reasons about) these are pure infrastructure, so they live here
// rather than in the chain package.
type protocolAddrs struct {
	v3Factory    common.Address
	v2Factory    common.Address
	v2InitCode   common.Hash
	v3QuoterAddr common.Address
	stableVault  common.Address
}

var addrsByChain = map[chain.ID]protocolAddrs{
	chain.Mainnet: {
		v3Factory:    common.HexToAddress("0x1F98431c8aD98523631AE4a59f267346ea31F984"),
		v2Factory:    common.HexToAddress("0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f"),
		v2InitCode:   common.HexToHash("0x96e8ac4277198ff8b6f785478aa9a39f403cb768dd02cbee326c3e7da348845f"),
		v3QuoterAddr: common.HexToAddress("0x61fFE014bA17989E743c5F6cB21bF9697530B21e"),
		stableVault:  common.HexToAddress("0xBA12222222228d8Ba445958a75a0704d566BF2C8"),
	},
}

// chainRouter bundles the router and the subgraph provider the HTTP layer
// needs for one chain - built once at startup, read-only afterward.
type chainRouter struct {
	router   *router.Router
	subgraph subgraph.Provider
}

func buildSubgraphProvider(chainID int64, cfg config.ChainConfig, logger *zap.Logger) subgraph.Provider {
	providers := []subgraph.Provider{}
	if cfg.SubgraphURL != "" {
		providers = append(providers, subgraph.NewRemoteProvider(cfg.SubgraphURL, chainID, logger))
	}
	providers = append(providers, subgraph.NewStaticProvider(seed.Pools(chainID)))
	return subgraph.WithFallback(logger, providers...)
}

func buildChainRouter(ctx context.Context, chainID int64, cfg config.ChainConfig, redisClient *redis.Client, logger *zap.Logger) (*chainRouter, error) {
	c, ok := chain.Get(chainID)
	if !ok {
		log.Fatalf("no chain.Chain registered for configured chain id %d", chainID)
	}
	addrs, ok := addrsByChain[c.ID]
	if !ok {
		log.Fatalf("no protocol addresses configured for chain id %d", chainID)
	}

	rpcClient, err := rpc.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, err
	}
	mc := multicall.New(rpcClient, logger)

	tokenProviderInner, err := tokenprovider.NewOnChainProvider(mc, logger)
	if err != nil {
		return nil, err
	}
	tokenProvider, err := tokenprovider.NewCachingProvider(tokenProviderInner, 4096)
	if err != nil {
		return nil, err
	}

	v3Inner, err := poolprovider.NewV3OnChainProvider(mc, addrs.v3Factory, logger)
	if err != nil {
		return nil, err
	}
	v3Provider, err := poolprovider.NewCachingV3Provider(v3Inner, 4096, redisClient, logger)
	if err != nil {
		return nil, err
	}

	v2Inner, err := poolprovider.NewV2OnChainProvider(mc, addrs.v2Factory, addrs.v2InitCode, logger)
	if err != nil {
		return nil, err
	}
	v2Provider, err := poolprovider.NewCachingV2Provider(v2Inner, 4096, redisClient, logger)
	if err != nil {
		return nil, err
	}

	stableInner, err := poolprovider.NewStableOnChainProvider(mc, addrs.stableVault, logger)
	if err != nil {
		return nil, err
	}
	stableProvider, err := poolprovider.NewCachingStableProvider(stableInner, 4096, redisClient, logger)
	if err != nil {
		return nil, err
	}

	stableWrapperProvider, err := poolprovider.NewStableWrapperProvider(mc, logger)
	if err != nil {
		return nil, err
	}

	v3Quoter, err := quoter.NewV3Quoter(mc, addrs.v3QuoterAddr, logger)
	if err != nil {
		return nil, err
	}
	stableQuoter, err := quoter.NewStableQuoter(mc, addrs.stableVault, logger)
	if err != nil {
		return nil, err
	}
	dispatcher := quoter.NewDispatcher(quoter.NewV2Quoter(), v3Quoter, stableQuoter)

	sg := buildSubgraphProvider(chainID, cfg, logger)
	sel := selector.New(sg, selector.NewConfig())

	var l1Fee router.L1FeeProvider
	if c.HasL1Fee {
		l1FeeProvider, err := gasmodel.NewL1FeeProvider(rpcClient)
		if err != nil {
			return nil, err
		}
		l1Fee = l1FeeProvider
	}

	routerCfg := router.DefaultConfig()
	routerCfg.MaxSwapsPerPath = config.AppConfig.Routing.MaxSwapsPerPath
	routerCfg.Splitter.DistributionPercent = config.AppConfig.Routing.DistributionPercent
	routerCfg.Splitter.MaxSplits = config.AppConfig.Routing.MaxSplits

	ethClient := ethclient.NewClient(rpcClient)
	gasPriceFunc := func(ctx context.Context) (*big.Int, error) {
		return ethClient.SuggestGasPrice(ctx)
	}

	r := router.New(
		tokenProvider,
		v3Provider,
		v2Provider,
		stableProvider,
		stableWrapperProvider,
		sel,
		dispatcher,
		gasmodel.DefaultConfig(),
		gasPriceFunc,
		l1Fee,
		router.NoopCallDataBuilder{},
		routerCfg,
		logger,
	)
	return &chainRouter{router: r, subgraph: sg}, nil
}

// multiRouter implements api.Router by dispatching to the chainRouter
// registered for the request's chain id.
type multiRouter struct {
	chains map[int64]*chainRouter
}

func (m multiRouter) Route(ctx context.Context, req router.Request) (*domain.Plan, error) {
	cr, ok := m.chains[req.ChainID]
	if !ok {
		return nil, domain.ErrUnsupportedChain
	}
	return cr.router.Route(ctx, req)
}

// multiSubgraph implements subgraph.Provider by dispatching to the
// chainRouter's subgraph provider for the given chain id.
type multiSubgraph struct {
	chains map[int64]*chainRouter
}

func (m multiSubgraph) PoolsForPair(ctx context.Context, chainID int64, tokenA, tokenB domain.Currency) ([]subgraph.PoolDescriptor, error) {
	cr, ok := m.chains[chainID]
	if !ok {
		return nil, domain.ErrUnsupportedChain
	}
	return cr.subgraph.PoolsForPair(ctx, chainID, tokenA, tokenB)
}

func (m multiSubgraph) TopPoolsByTVL(ctx context.Context, chainID int64, limit int) ([]subgraph.PoolDescriptor, error) {
	cr, ok := m.chains[chainID]
	if !ok {
		return nil, domain.ErrUnsupportedChain
	}
	return cr.subgraph.TopPoolsByTVL(ctx, chainID, limit)
}

func (m multiSubgraph) PoolsInvolving(ctx context.Context, chainID int64, token domain.Currency, limit int) ([]subgraph.PoolDescriptor, error) {
	cr, ok := m.chains[chainID]
	if !ok {
		return nil, domain.ErrUnsupportedChain
	}
	return cr.subgraph.PoolsInvolving(ctx, chainID, token, limit)
}

func main() {
	if err := config.Init(); err != nil {
		log.Fatalf("failed to initialize config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting dex-aggregator router")

	var redisClient *redis.Client
	if config.AppConfig.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     config.AppConfig.Redis.Addr,
			Password: config.AppConfig.Redis.Password,
			DB:       config.AppConfig.Redis.DB,
		})
	}

	ctx := context.Background()
	chains := map[int64]*chainRouter{}

	for chainID, chainCfg := range config.AppConfig.Chains {
		if chainCfg.RPCURL == "" {
			continue
		}
		cr, err := buildChainRouter(ctx, chainID, chainCfg, redisClient, logger)
		if err != nil {
			logger.Warn("skipping chain, failed to wire router", zap.Int64("chainId", chainID), zap.Error(err))
			continue
		}
		chains[chainID] = cr
	}
	if len(chains) == 0 {
		log.Fatal("no chains were successfully wired, check config/config.yaml and RPC connectivity")
	}

	handler := api.NewHandler(multiRouter{chains}, multiSubgraph{chains}, logger, config.AppConfig.Routing.RequestTimeout)

	r := mux.NewRouter()
	r.HandleFunc("/api/v1/quote", handler.GetQuote).Methods("POST")
	r.HandleFunc("/api/v1/pools", handler.GetPools).Methods("GET")
	r.HandleFunc("/api/v1/pools/search", handler.GetPoolsByTokens).Methods("GET")
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	port := ":" + config.AppConfig.Server.Port
	server := &http.Server{
		Addr:         port,
		Handler:      r,
		ReadTimeout:  time.Duration(config.AppConfig.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(config.AppConfig.Server.WriteTimeout) * time.Second,
	}

	logger.Info("http server starting", zap.String("addr", port))
	log.Fatal(server.ListenAndServe())
}
