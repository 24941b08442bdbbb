package strategy

import (
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fachebot/cross-swap-api/internal/address"
	"github.com/fachebot/cross-swap-api/internal/cache"
	"github.com/fachebot/cross-swap-api/internal/config"
	"github.com/fachebot/cross-swap-api/internal/dexagg/jupiter"
	"github.com/fachebot/cross-swap-api/internal/dexagg/uniswap"
	"github.com/fachebot/cross-swap-api/internal/dexagg/zerox"
	"github.com/fachebot/cross-swap-api/internal/entrypoint"
	"github.com/fachebot/cross-swap-api/internal/model"
	"github.com/fachebot/cross-swap-api/internal/tokens"
	"github.com/fachebot/cross-swap-api/internal/utils/evm"

	"github.com/ethereum/go-ethereum"
	"github.com/stretchr/testify/require"
)

const solanaChainId = 34268394551451

var (
	evmUser = address.MustParse("0x9a8f92a830A5cB89a3816e3D267CB7791c16b04D", address.EVM)
	svmUser = address.MustParse("9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM", address.SVM)
)

type testEnv struct {
	chains   *tokens.Registry
	registry *Registry
	routers  *cache.RouterCache[*v3Router]
}

// newTestEnv wires every strategy against one fake venue server and one fake
// eth_call backend.
func newTestEnv(t *testing.T, handler http.Handler, caller *evm.FakeCaller) *testEnv {
	t.Helper()

	cfg, err := config.LoadFromFile("../../etc/config.yaml")
	require.NoError(t, err)
	chains, err := tokens.NewRegistry(cfg)
	require.NoError(t, err)

	if handler == nil {
		handler = http.NotFoundHandler()
	}
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	if caller == nil {
		caller = evm.NewFakeCaller()
	}

	api := config.VenueApi{BaseUrl: srv.URL, ApiKey: "test"}
	entryPoints := entrypoint.NewResolver(chains)
	routers := NewV3RouterCache()
	callers := func(int64) (ethereum.ContractCaller, error) { return caller, nil }

	registry := NewRegistry(chains)
	registry.Register(
		NewUniswapApi(chains, entryPoints, uniswap.NewClient(api, srv.Client())),
		NewZeroEx(chains, entryPoints, zerox.NewClient(api, srv.Client())),
		NewUniswapRouter(chains, entryPoints, routers, callers),
		NewJupiter(chains, entryPoints, jupiter.NewClient(api, srv.Client())),
		NewUniswapLegacy(chains, entryPoints, uniswap.NewClient(api, srv.Client())),
		NewWrappedToken(chains, entryPoints, registry),
	)
	return &testEnv{chains: chains, registry: registry, routers: routers}
}

func (env *testEnv) token(t *testing.T, chainId int64, symbol string) model.Token {
	t.Helper()
	token, ok := env.chains.BySymbol(chainId, symbol)
	require.True(t, ok, symbol)
	return token
}

func (env *testEnv) strategy(t *testing.T, key string) QuoteFetchStrategy {
	t.Helper()
	s, ok := env.registry.Get(key)
	require.True(t, ok, key)
	return s
}

func (env *testEnv) swap(t *testing.T, chainId int64, in, out string, amount int64, tradeType model.AmountType) model.Swap {
	t.Helper()
	recipient := evmUser
	if chainId == solanaChainId {
		recipient = svmUser
	}
	return model.Swap{
		ChainId:           chainId,
		TokenIn:           env.token(t, chainId, in),
		TokenOut:          env.token(t, chainId, out),
		Amount:            big.NewInt(amount),
		Type:              tradeType,
		Depositor:         recipient,
		Recipient:         recipient,
		SlippageTolerance: 0.5,
	}
}
