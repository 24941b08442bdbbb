package swapapi

import (
	"context"
	"math/big"
	"strings"
	"sync"
	"testing"

	"github.com/fachebot/cross-swap-api/internal/address"
	"github.com/fachebot/cross-swap-api/internal/apierr"
	"github.com/fachebot/cross-swap-api/internal/bridgeapi"
	"github.com/fachebot/cross-swap-api/internal/config"
	"github.com/fachebot/cross-swap-api/internal/crossswap"
	"github.com/fachebot/cross-swap-api/internal/entrypoint"
	"github.com/fachebot/cross-swap-api/internal/eth"
	"github.com/fachebot/cross-swap-api/internal/evmtx"
	"github.com/fachebot/cross-swap-api/internal/model"
	"github.com/fachebot/cross-swap-api/internal/signature"
	"github.com/fachebot/cross-swap-api/internal/strategy"
	"github.com/fachebot/cross-swap-api/internal/svc"
	"github.com/fachebot/cross-swap-api/internal/svmtx"
	"github.com/fachebot/cross-swap-api/internal/tokens"
	"github.com/fachebot/cross-swap-api/internal/utils/evm"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const depositor = "0x9a8f92a830A5cB89a3816e3D267CB7791c16b04D"

var (
	usdcMainnet  = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	usdcOptimism = "0x0b2C639c533813f4Aa9D7837CAf62653d097Ff85"
	spokePool    = common.HexToAddress("0x5c7BCd6E7De5423a257D81B442095A1a6ced35C5")
	periphery    = common.HexToAddress("0x89415a82d909a7238d69094C3Dd1dCC1aCbDa85C")
)

// fakeChain answers eth_call through FakeCaller and serves fixed gas data.
type fakeChain struct {
	*evm.FakeCaller

	mutex     sync.Mutex
	estimates int
}

func (f *fakeChain) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(20_000_000_000), nil
}

func (f *fakeChain) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.estimates++
	return 100_000, nil
}

func (f *fakeChain) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	return big.NewInt(1e18), nil
}

type noStrategies struct{}

func (noStrategies) Candidates(int64, address.Ecosystem, model.SourcesFilter) ([]strategy.QuoteFetchStrategy, error) {
	return nil, nil
}

// fakeBridge charges a flat 100 units and keeps the last quote it handed out.
type fakeBridge struct {
	last *model.BridgeQuote
}

func (b *fakeBridge) quote(req bridgeapi.Request, input *big.Int) *model.BridgeQuote {
	fee := model.BridgeFee{Total: big.NewInt(100), Pct: big.NewInt(1e14), Token: req.InputToken}
	output := new(big.Int).Sub(input, fee.Total)
	b.last = &model.BridgeQuote{
		InputToken:      req.InputToken,
		OutputToken:     req.OutputToken,
		InputAmount:     input,
		OutputAmount:    output,
		MinOutputAmount: output,
		SuggestedFees:   model.SuggestedFees{Timestamp: 1_700_000_000, FillDeadline: 1_700_003_600, EstimatedFillTimeSec: 4},
		Fees: model.BridgeFees{
			RelayerCapital: fee,
			RelayerGas:     model.BridgeFee{Total: new(big.Int), Token: req.InputToken},
			Lp:             model.BridgeFee{Total: new(big.Int), Token: req.InputToken},
			TotalRelay:     fee,
			BridgeFee:      fee,
		},
	}
	return b.last
}

func (b *fakeBridge) QuoteForInput(ctx context.Context, req bridgeapi.Request) (*model.BridgeQuote, error) {
	return b.quote(req, req.Amount), nil
}

func (b *fakeBridge) QuoteForOutput(ctx context.Context, req bridgeapi.Request) (*model.BridgeQuote, error) {
	return b.quote(req, new(big.Int).Add(req.Amount, big.NewInt(100))), nil
}

type fakePrices struct{}

func (fakePrices) TokenPrices(ctx context.Context, chainId int64, addrs []string) (map[string]decimal.Decimal, error) {
	result := make(map[string]decimal.Decimal)
	for _, addr := range addrs {
		result[strings.ToLower(addr)] = decimal.NewFromInt(1)
	}
	return result, nil
}

func newService(t *testing.T, chain *fakeChain) *Service {
	t.Helper()
	return newServiceWithBridge(t, chain, &fakeBridge{})
}

func newServiceWithBridge(t *testing.T, chain *fakeChain, bridge *fakeBridge) *Service {
	t.Helper()
	cfg, err := config.LoadFromFile("../../etc/config.yaml")
	require.NoError(t, err)
	registry, err := tokens.NewRegistry(cfg)
	require.NoError(t, err)
	entryPoints := entrypoint.NewResolver(registry)
	evmBuilder := evmtx.NewBuilder(entryPoints)

	return NewService(&svc.ServiceContext{
		Config:       cfg,
		EthClients:   eth.NewStaticClientPool(map[int64]eth.Reader{1: chain}),
		Tokens:       tokens.NewResolver(registry, nil, nil),
		EntryPoints:  entryPoints,
		Orchestrator: crossswap.NewOrchestrator(registry, entryPoints, noStrategies{}, bridge, cfg.Quote.PreferredBridgeTokens),
		EvmTx:        evmBuilder,
		SvmTx:        svmtx.NewBuilder(entryPoints, evmBuilder, nil),
		Signatures:   signature.NewBuilder(evmBuilder, cfg.Quote),
		Prices:       fakePrices{},
	})
}

func bridgeParams() Params {
	return Params{
		Amount:             "1000000",
		InputToken:         usdcMainnet.Hex(),
		OutputToken:        usdcOptimism,
		OriginChainId:      "1",
		DestinationChainId: "10",
		Depositor:          depositor,
		IntegratorId:       "0x0042",
	}
}

func TestApprovalFlowNeedsApproval(t *testing.T) {
	chain := &fakeChain{FakeCaller: evm.NewFakeCaller().
		On(usdcMainnet, "balanceOf", big.NewInt(5_000_000)).
		On(usdcMainnet, "allowance", big.NewInt(0))}
	service := newService(t, chain)

	resp, err := service.Approval(context.Background(), bridgeParams())
	require.NoError(t, err)

	_, err = uuid.Parse(resp.Id)
	assert.NoError(t, err)
	assert.Equal(t, model.BridgeableToBridgeable, resp.CrossSwapType)
	assert.Equal(t, "1000000", resp.InputAmount)
	assert.Equal(t, "999900", resp.ExpectedOutputAmount)
	assert.Equal(t, int64(4), resp.ExpectedFillTime)
	assert.Nil(t, resp.Steps.OriginSwap)
	assert.Nil(t, resp.Fees.SwapImpact)
	assert.Equal(t, "100", resp.Fees.Total.Amount)

	require.NotNil(t, resp.Checks)
	assert.Equal(t, "0", resp.Checks.Allowance.Actual)
	assert.Equal(t, "5000000", resp.Checks.Balance.Actual)
	assert.Equal(t, spokePool.Hex(), resp.Checks.Allowance.Spender)

	require.Len(t, resp.ApprovalTxns, 1)
	approval := resp.ApprovalTxns[0]
	assert.Equal(t, usdcMainnet.Hex(), approval.To)
	data := common.FromHex(approval.Data)
	spender, amount, err := evm.DecodeERC20ApproveInput(data)
	require.NoError(t, err)
	assert.Equal(t, spokePool.Hex(), spender)
	assert.Equal(t, "1000000", amount.String())

	swapTx, ok := resp.SwapTx.(EvmTx)
	require.True(t, ok)
	assert.Equal(t, spokePool.Hex(), swapTx.To)
	assert.Empty(t, swapTx.Gas)
	assert.Zero(t, chain.estimates)
	assert.Nil(t, resp.Fees.OriginGas)
}

func TestApprovalFlowEstimatesGas(t *testing.T) {
	chain := &fakeChain{FakeCaller: evm.NewFakeCaller().
		On(usdcMainnet, "balanceOf", big.NewInt(5_000_000)).
		On(usdcMainnet, "allowance", evm.MaxUint256)}
	service := newService(t, chain)

	resp, err := service.Approval(context.Background(), bridgeParams())
	require.NoError(t, err)

	assert.Empty(t, resp.ApprovalTxns)
	assert.Equal(t, 1, chain.estimates)
	swapTx := resp.SwapTx.(EvmTx)
	assert.Equal(t, "120000", swapTx.Gas)
	require.NotNil(t, resp.Fees.OriginGas)
	assert.Equal(t, "2400000000000000", resp.Fees.OriginGas.Amount)

	params := bridgeParams()
	params.SkipOriginTxEstimation = "true"
	_, err = service.Approval(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, 1, chain.estimates)
}

func TestHandleLeavesQuotesIntact(t *testing.T) {
	chain := &fakeChain{FakeCaller: evm.NewFakeCaller().
		On(usdcMainnet, "balanceOf", big.NewInt(5_000_000)).
		On(usdcMainnet, "allowance", big.NewInt(0))}
	bridge := &fakeBridge{}
	service := newServiceWithBridge(t, chain, bridge)

	_, err := service.Approval(context.Background(), bridgeParams())
	require.NoError(t, err)

	require.NotNil(t, bridge.last)
	assert.Equal(t, "1000000", bridge.last.InputAmount.String())
	assert.Equal(t, "999900", bridge.last.OutputAmount.String())
	assert.Equal(t, "999900", bridge.last.MinOutputAmount.String())
}

func apitypesDomain(name, version string, chainId int64, contract common.Address) apitypes.TypedDataDomain {
	return apitypes.TypedDataDomain{
		Name:              name,
		Version:           version,
		ChainId:           math.NewHexOrDecimal256(chainId),
		VerifyingContract: contract.Hex(),
	}
}

func TestPermitFlow(t *testing.T) {
	separator, err := signature.DomainSeparator(apitypesDomain("USD Coin", "2", 1, usdcMainnet))
	require.NoError(t, err)
	chain := &fakeChain{FakeCaller: evm.NewFakeCaller().
		On(usdcMainnet, "name", "USD Coin").
		On(usdcMainnet, "version", "2").
		On(usdcMainnet, "nonces", big.NewInt(0)).
		On(usdcMainnet, "DOMAIN_SEPARATOR", [32]byte(separator)).
		On(usdcMainnet, "balanceOf", big.NewInt(5_000_000)).
		On(usdcMainnet, "allowance", big.NewInt(0))}
	service := newService(t, chain)

	resp, err := service.Permit(context.Background(), bridgeParams())
	require.NoError(t, err)

	assert.Nil(t, resp.SwapTx)
	assert.Empty(t, resp.ApprovalTxns)
	require.NotNil(t, resp.PermitSwapTx)
	assert.Equal(t, periphery.Hex(), resp.PermitSwapTx.SwapTx.To)
	assert.Equal(t, "depositWithPermit", resp.PermitSwapTx.SwapTx.MethodName)
	assert.Contains(t, resp.PermitSwapTx.Eip712, "permit")
	assert.Equal(t, periphery.Hex(), resp.Checks.Allowance.Spender)
}

func TestPermitFlowRequiresPermitToken(t *testing.T) {
	chain := &fakeChain{FakeCaller: evm.NewFakeCaller()}
	service := newService(t, chain)

	_, err := service.Permit(context.Background(), bridgeParams())
	assert.True(t, apierr.HasCode(err, apierr.CodeInvalidParam))
}

func TestParamErrors(t *testing.T) {
	service := newService(t, &fakeChain{FakeCaller: evm.NewFakeCaller()})

	cases := []struct {
		name   string
		flow   Flow
		mutate func(p *Params)
		code   string
	}{
		{"missing amount", FlowApproval, func(p *Params) { p.Amount = "" }, apierr.CodeMissingParam},
		{"fractional amount", FlowApproval, func(p *Params) { p.Amount = "1.5" }, apierr.CodeInvalidParam},
		{"bad trade type", FlowApproval, func(p *Params) { p.TradeType = "exactSomething" }, apierr.CodeInvalidParam},
		{"unsupported chain", FlowApproval, func(p *Params) { p.OriginChainId = "56" }, apierr.CodeInvalidParam},
		{"bad depositor", FlowApproval, func(p *Params) { p.Depositor = "0x1234" }, apierr.CodeInvalidParam},
		{"missing depositor", FlowApproval, func(p *Params) { p.Depositor = "" }, apierr.CodeMissingParam},
		{"bad integrator id", FlowApproval, func(p *Params) { p.IntegratorId = "0x12" }, apierr.CodeInvalidParam},
		{"bad slippage", FlowApproval, func(p *Params) { p.SlippageTolerance = "abc" }, apierr.CodeInvalidParam},
		{"both source filters", FlowApproval, func(p *Params) {
			p.IncludeSources = "uniswap-api"
			p.ExcludeSources = "0x"
		}, apierr.CodeInvalidParam},
		{"svm origin permit", FlowPermit, func(p *Params) {
			p.OriginChainId = "34268394551451"
			p.InputToken = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
			p.Depositor = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"
			p.Recipient = depositor
		}, apierr.CodeInvalidParam},
		{"svm origin needs recipient", FlowApproval, func(p *Params) {
			p.OriginChainId = "34268394551451"
			p.InputToken = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
			p.Depositor = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"
		}, apierr.CodeMissingParam},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			params := bridgeParams()
			tc.mutate(&params)
			_, err := service.Handle(context.Background(), tc.flow, params)
			assert.True(t, apierr.HasCode(err, tc.code), "got %v", err)
		})
	}
}

func TestParseEmbeddedActions(t *testing.T) {
	actions, err := parseEmbeddedActions([]EmbeddedAction{{Target: depositor, CallData: "0xdeadbeef", Value: "5"}})
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, actions[0].CallData)
	assert.Equal(t, int64(5), actions[0].Value.Int64())

	_, err = parseEmbeddedActions([]EmbeddedAction{{Target: depositor, CallData: "nothex"}})
	assert.True(t, apierr.HasCode(err, apierr.CodeInvalidParam))
	assert.Equal(t, []string{"a", "b"}, splitSources(" a, ,b "))
}
