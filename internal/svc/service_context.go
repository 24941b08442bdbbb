package svc

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"

	"github.com/fachebot/cross-swap-api/internal/bridgeapi"
	"github.com/fachebot/cross-swap-api/internal/cache"
	"github.com/fachebot/cross-swap-api/internal/config"
	"github.com/fachebot/cross-swap-api/internal/crossswap"
	"github.com/fachebot/cross-swap-api/internal/dexagg"
	"github.com/fachebot/cross-swap-api/internal/dexagg/jupiter"
	"github.com/fachebot/cross-swap-api/internal/dexagg/okxweb3"
	"github.com/fachebot/cross-swap-api/internal/dexagg/uniswap"
	"github.com/fachebot/cross-swap-api/internal/dexagg/zerox"
	"github.com/fachebot/cross-swap-api/internal/entrypoint"
	"github.com/fachebot/cross-swap-api/internal/eth"
	"github.com/fachebot/cross-swap-api/internal/evmtx"
	"github.com/fachebot/cross-swap-api/internal/fees"
	"github.com/fachebot/cross-swap-api/internal/logger"
	"github.com/fachebot/cross-swap-api/internal/signature"
	"github.com/fachebot/cross-swap-api/internal/strategy"
	"github.com/fachebot/cross-swap-api/internal/svmrpc"
	"github.com/fachebot/cross-swap-api/internal/svmtx"
	"github.com/fachebot/cross-swap-api/internal/tokens"

	"golang.org/x/net/proxy"
)

type ServiceContext struct {
	Config         *config.Config
	TransportProxy *http.Transport
	EthClients     *eth.ClientPool
	SvmClients     map[int64]svmrpc.Reader
	TokenMetaCache *cache.TokenMetaCache
	Tokens         *tokens.Resolver
	EntryPoints    *entrypoint.Resolver
	Strategies     *strategy.Registry
	Orchestrator   *crossswap.Orchestrator
	EvmTx          *evmtx.Builder
	SvmTx          *svmtx.Builder
	Signatures     *signature.Builder
	Prices         fees.PriceProvider
}

func newTransportProxy(c config.Sock5Proxy) (*http.Transport, error) {
	if !c.Enable {
		return nil, nil
	}

	socks5Proxy := fmt.Sprintf("%s:%d", c.Host, c.Port)
	dialer, err := proxy.SOCKS5("tcp", socks5Proxy, nil, proxy.Direct)
	if err != nil {
		return nil, err
	}
	return &http.Transport{
		Dial:            dialer.Dial,
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
	}, nil
}

func NewServiceContext(ctx context.Context, c *config.Config) (*ServiceContext, error) {
	// 创建SOCKS5代理
	transportProxy, err := newTransportProxy(c.Sock5Proxy)
	if err != nil {
		return nil, fmt.Errorf("创建SOCKS5代理失败: %w", err)
	}

	// 连接各链RPC
	ethClients, err := eth.NewClientPool(ctx, c.Chains)
	if err != nil {
		return nil, err
	}
	svmClients := make(map[int64]svmrpc.Reader)
	for _, chain := range c.Chains {
		if chain.EcosystemType() == "svm" && chain.RpcUrl != "" {
			svmClients[chain.Id] = svmrpc.NewClient(chain.RpcUrl)
		}
	}

	registry, err := tokens.NewRegistry(c)
	if err != nil {
		ethClients.Close()
		return nil, err
	}
	entryPoints := entrypoint.NewResolver(registry)
	tokenMetaCache := cache.NewTokenMetaCache(ethClients.Caller)

	// 注册报价策略
	venueHttpClient := dexagg.NewHTTPClient(transportProxy, c.Venues.Timeout)
	uniswapClient := uniswap.NewClient(c.Venues.Uniswap, venueHttpClient)
	strategies := strategy.NewRegistry(registry)
	strategies.Register(
		strategy.NewUniswapApi(registry, entryPoints, uniswapClient),
		strategy.NewUniswapLegacy(registry, entryPoints, uniswapClient),
		strategy.NewUniswapRouter(registry, entryPoints, strategy.NewV3RouterCache(), ethClients.Caller),
		strategy.NewZeroEx(registry, entryPoints, zerox.NewClient(c.Venues.ZeroEx, venueHttpClient)),
		strategy.NewJupiter(registry, entryPoints, jupiter.NewClient(c.Venues.Jupiter, venueHttpClient)),
		strategy.NewWrappedToken(registry, entryPoints, strategies),
	)

	bridge := bridgeapi.NewClient(c.BridgeApi, transportProxy)
	orchestrator := crossswap.NewOrchestrator(registry, entryPoints, strategies, bridge, c.Quote.PreferredBridgeTokens)
	evmBuilder := evmtx.NewBuilder(entryPoints)

	svcCtx := &ServiceContext{
		Config:         c,
		TransportProxy: transportProxy,
		EthClients:     ethClients,
		SvmClients:     svmClients,
		TokenMetaCache: tokenMetaCache,
		Tokens:         tokens.NewResolver(registry, tokenMetaCache, svmClients),
		EntryPoints:    entryPoints,
		Strategies:     strategies,
		Orchestrator:   orchestrator,
		EvmTx:          evmBuilder,
		SvmTx:          svmtx.NewBuilder(entryPoints, evmBuilder, svmClients),
		Signatures:     signature.NewBuilder(evmBuilder, c.Quote),
	}

	// 创建OKX价格客户端
	if c.OkxWeb3.Apikey != "" {
		svcCtx.Prices = okxweb3.NewClient(c.OkxWeb3, dexagg.NewHTTPClient(transportProxy, c.Venues.Timeout))
	} else {
		logger.Warnf("[ServiceContext] 未配置OkxWeb3, 费用报告将不包含美元价格")
	}
	return svcCtx, nil
}

func (svcCtx *ServiceContext) Close() {
	svcCtx.EthClients.Close()
}
