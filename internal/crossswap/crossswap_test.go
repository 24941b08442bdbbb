package crossswap

import (
	"context"
	"math/big"
	"sync"
	"testing"

	"github.com/fachebot/cross-swap-api/internal/address"
	"github.com/fachebot/cross-swap-api/internal/apierr"
	"github.com/fachebot/cross-swap-api/internal/bridgeapi"
	"github.com/fachebot/cross-swap-api/internal/config"
	"github.com/fachebot/cross-swap-api/internal/entrypoint"
	"github.com/fachebot/cross-swap-api/internal/model"
	"github.com/fachebot/cross-swap-api/internal/strategy"
	"github.com/fachebot/cross-swap-api/internal/tokens"
	"github.com/fachebot/cross-swap-api/internal/utils/bigint"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const solanaChainId = 34268394551451

var (
	evmUser = address.MustParse("0x9a8f92a830A5cB89a3816e3D267CB7791c16b04D", address.EVM)
	svmUser = address.MustParse("9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM", address.SVM)

	swapProxy        = address.MustParse("0x4d7A2a2B7dBf6a2b1E7cE7C5b4e0d1E5A3a0B5C1", address.EVM)
	multicallHandler = address.MustParse("0x924a9f036260DdD5808007E1AA95f08eD08aA569", address.EVM)
)

func big10(exp int64) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(exp), nil)
}

// fakeVenue prices one whole tokenIn at num/den whole tokenOut and applies the
// swap's slippage to the bounded side.
type fakeVenue struct {
	key      string
	eco      address.Ecosystem
	num, den *big.Int
	err      error
	// firmMarkup inflates maximumAmountIn of firm quotes, in bps
	firmMarkup  int64
	forceType   model.AmountType
	entryPoints *entrypoint.Resolver

	mutex sync.Mutex
	swaps []model.Swap
	opts  []strategy.FetchOptions
}

func (v *fakeVenue) Name() string                 { return v.key }
func (v *fakeVenue) Ecosystem() address.Ecosystem { return v.eco }
func (v *fakeVenue) GetSources(int64) []string    { return []string{v.key + "_pool"} }

func (v *fakeVenue) GetRouter(chainId int64) (model.RouterContract, error) {
	return model.RouterContract{Name: v.key + "-router", Address: swapProxy}, nil
}

func (v *fakeVenue) GetOriginEntryPoints(chainId int64) (strategy.OriginEntryPoints, error) {
	spoke, err := v.entryPoints.SpokePool(chainId)
	if err != nil {
		return strategy.OriginEntryPoints{}, err
	}
	if v.eco == address.SVM {
		return strategy.OriginEntryPoints{SwapAndBridge: spoke, Deposit: spoke}, nil
	}
	periphery, err := v.entryPoints.Periphery(chainId)
	if err != nil {
		return strategy.OriginEntryPoints{}, err
	}
	return strategy.OriginEntryPoints{SwapAndBridge: periphery, Deposit: spoke}, nil
}

func (v *fakeVenue) Fetch(ctx context.Context, swap model.Swap, tradeType model.AmountType, opts strategy.FetchOptions) (*model.SwapQuote, error) {
	v.mutex.Lock()
	v.swaps = append(v.swaps, swap)
	v.opts = append(v.opts, opts)
	v.mutex.Unlock()

	if v.err != nil {
		return nil, v.err
	}

	bps := int64(swap.SlippageTolerance * 100)
	quote := &model.SwapQuote{
		ChainId:           swap.ChainId,
		TokenIn:           swap.TokenIn,
		TokenOut:          swap.TokenOut,
		SlippageTolerance: swap.SlippageTolerance,
		TradeType:         tradeType,
		SwapProvider:      model.SwapProvider{Name: v.key, Sources: v.GetSources(swap.ChainId)},
		Indicative:        opts.UseIndicativeQuote,
	}
	if v.forceType != "" {
		quote.TradeType = v.forceType
	}
	if !opts.UseIndicativeQuote {
		quote.SwapTxns = []model.SwapTxn{{To: swapProxy.String(), Data: []byte{0x01}, Value: new(big.Int)}}
	}

	inScale, outScale := big10(int64(swap.TokenIn.Decimals)), big10(int64(swap.TokenOut.Decimals))
	if tradeType == model.ExactInput {
		out := new(big.Int).Mul(swap.Amount, v.num)
		out.Mul(out, outScale)
		out.Quo(out, new(big.Int).Mul(v.den, inScale))
		quote.ExpectedAmountIn = new(big.Int).Set(swap.Amount)
		quote.MaximumAmountIn = new(big.Int).Set(swap.Amount)
		quote.ExpectedAmountOut = out
		quote.MinAmountOut = bigint.MulDivUp(out, big.NewInt(10000-bps), big.NewInt(10000))
		quote.MinAmountOut.Sub(quote.MinAmountOut, big.NewInt(1))
		return quote, nil
	}

	in := bigint.MulDivUp(swap.Amount, new(big.Int).Mul(v.den, inScale), new(big.Int).Mul(v.num, outScale))
	markup := bps
	if !opts.UseIndicativeQuote {
		markup += v.firmMarkup
	}
	quote.ExpectedAmountIn = in
	quote.MaximumAmountIn = bigint.MulDivUp(in, big.NewInt(10000+markup), big.NewInt(10000))
	quote.ExpectedAmountOut = new(big.Int).Set(swap.Amount)
	quote.MinAmountOut = new(big.Int).Set(swap.Amount)
	return quote, nil
}

func (v *fakeVenue) calls() []model.Swap {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	return append([]model.Swap(nil), v.swaps...)
}

// fakeBridge moves tokens 1:1 after decimals and keeps a flat fee of 100 input units.
type fakeBridge struct {
	mutex    sync.Mutex
	requests []bridgeapi.Request
	// shortBy is withheld from every output-sized quote
	shortBy int64
}

var bridgeFee = big.NewInt(100)

func (b *fakeBridge) record(req bridgeapi.Request) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.requests = append(b.requests, req)
}

func (b *fakeBridge) quote(req bridgeapi.Request, input *big.Int) *model.BridgeQuote {
	net := new(big.Int).Sub(input, bridgeFee)
	output := bigint.ConvertDecimals(net, req.InputToken.Decimals, req.OutputToken.Decimals, false)
	fee := model.BridgeFee{Total: new(big.Int).Set(bridgeFee), Pct: new(big.Int), Token: req.InputToken}
	return &model.BridgeQuote{
		InputToken:      req.InputToken,
		OutputToken:     req.OutputToken,
		InputAmount:     new(big.Int).Set(input),
		OutputAmount:    output,
		MinOutputAmount: new(big.Int).Set(output),
		Fees:            model.BridgeFees{TotalRelay: fee, RelayerCapital: fee, BridgeFee: fee},
	}
}

func (b *fakeBridge) QuoteForInput(ctx context.Context, req bridgeapi.Request) (*model.BridgeQuote, error) {
	b.record(req)
	return b.quote(req, req.Amount), nil
}

func (b *fakeBridge) QuoteForOutput(ctx context.Context, req bridgeapi.Request) (*model.BridgeQuote, error) {
	b.record(req)
	input := bigint.ConvertDecimals(req.Amount, req.OutputToken.Decimals, req.InputToken.Decimals, true)
	quote := b.quote(req, input.Add(input, bridgeFee))
	quote.OutputAmount.Sub(quote.OutputAmount, big.NewInt(b.shortBy))
	quote.MinOutputAmount.Sub(quote.MinOutputAmount, big.NewInt(b.shortBy))
	return quote, nil
}

func (b *fakeBridge) calls() []bridgeapi.Request {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return append([]bridgeapi.Request(nil), b.requests...)
}

type testEnv struct {
	tokens       *tokens.Registry
	orchestrator *Orchestrator
	bridge       *fakeBridge
	uniswap      *fakeVenue
	zerox        *fakeVenue
	jupiter      *fakeVenue
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg, err := config.LoadFromFile("../../etc/config.yaml")
	require.NoError(t, err)
	registry, err := tokens.NewRegistry(cfg)
	require.NoError(t, err)
	entryPoints := entrypoint.NewResolver(registry)

	env := &testEnv{
		tokens: registry,
		bridge: &fakeBridge{},
		uniswap: &fakeVenue{key: strategy.KeyUniswapApi, eco: address.EVM, num: big.NewInt(1), den: big.NewInt(1), entryPoints: entryPoints},
		zerox:   &fakeVenue{key: strategy.KeyZeroEx, eco: address.EVM, num: big.NewInt(1), den: big.NewInt(1), entryPoints: entryPoints},
		jupiter: &fakeVenue{key: strategy.KeyJupiter, eco: address.SVM, num: big.NewInt(1), den: big.NewInt(1), entryPoints: entryPoints},
	}

	strategies := strategy.NewRegistry(registry)
	strategies.Register(env.uniswap, env.zerox, env.jupiter)
	env.orchestrator = NewOrchestrator(registry, entryPoints, strategies, env.bridge, cfg.Quote.PreferredBridgeTokens)
	return env
}

func (env *testEnv) token(t *testing.T, chainId int64, symbol string) model.Token {
	t.Helper()
	token, ok := env.tokens.BySymbol(chainId, symbol)
	require.True(t, ok, symbol)
	return token
}

func (env *testEnv) crossSwap(t *testing.T, input, output model.Token, amount *big.Int, tradeType model.AmountType) model.CrossSwap {
	t.Helper()
	depositor, recipient := evmUser, evmUser
	if input.Address.IsSvm() {
		depositor = svmUser
	}
	if output.Address.IsSvm() {
		recipient = svmUser
	}
	return model.CrossSwap{
		Depositor:         depositor,
		Recipient:         recipient,
		InputToken:        input,
		OutputToken:       output,
		Amount:            amount,
		Type:              tradeType,
		SlippageTolerance: 0.5,
		IsOriginSvm:       input.Address.IsSvm(),
	}
}

func TestClassify(t *testing.T) {
	assert.Equal(t, model.BridgeableToBridgeable, Classify(true, true))
	assert.Equal(t, model.BridgeableToAny, Classify(true, false))
	assert.Equal(t, model.AnyToBridgeable, Classify(false, true))
	assert.Equal(t, model.AnyToAny, Classify(false, false))
}

func TestBridgeableToBridgeable(t *testing.T) {
	env := newTestEnv(t)
	cs := env.crossSwap(t, env.token(t, 1, "USDC"), env.token(t, 10, "USDC"), big.NewInt(1_000_000), model.ExactInput)

	quotes, err := env.orchestrator.Quote(context.Background(), cs)
	require.NoError(t, err)
	assert.Equal(t, model.BridgeableToBridgeable, quotes.Type)
	assert.Nil(t, quotes.OriginSwapQuote)
	assert.Nil(t, quotes.DestinationSwapQuote)
	assert.False(t, quotes.HasSwap())
	assert.Equal(t, "1000000", quotes.InputAmount().String())
	assert.Equal(t, "999900", quotes.ExpectedOutputAmount().String())
	assert.Equal(t, model.EntryPointSpokePool, quotes.Contracts.DepositEntryPoint.Name)
	assert.Nil(t, quotes.Contracts.DestinationHandler)

	calls := env.bridge.calls()
	require.Len(t, calls, 1)
	assert.True(t, calls[0].Recipient.Equal(evmUser))
	assert.Empty(t, env.uniswap.calls())
}

func TestAnyToBridgeableExactInput(t *testing.T) {
	env := newTestEnv(t)
	// 0x pays 1% more than uniswap
	env.zerox.num = big.NewInt(101)
	env.zerox.den = big.NewInt(100)

	cs := env.crossSwap(t, env.token(t, 1, "DAI"), env.token(t, 10, "USDC"), big10(18), model.ExactInput)
	quotes, err := env.orchestrator.Quote(context.Background(), cs)
	require.NoError(t, err)

	assert.Equal(t, model.AnyToBridgeable, quotes.Type)
	origin := quotes.OriginSwapQuote
	require.NotNil(t, origin)
	assert.Equal(t, "DAI", origin.TokenIn.Symbol)
	assert.Equal(t, "USDC", origin.TokenOut.Symbol)
	assert.Equal(t, strategy.KeyZeroEx, origin.SwapProvider.Name)
	assert.Equal(t, "1010000", origin.ExpectedAmountOut.String())
	assert.Equal(t, origin.ExpectedAmountOut.String(), quotes.BridgeQuote.InputAmount.String())
	assert.True(t, quotes.BridgeQuote.MinOutputAmount.Cmp(quotes.BridgeQuote.OutputAmount) < 0)

	// the router call is executed by the swap proxy behind the periphery
	swaps := env.zerox.calls()
	require.Len(t, swaps, 1)
	assert.True(t, swaps[0].Recipient.Equal(swapProxy))

	assert.Equal(t, model.EntryPointSpokePoolPeriphery, quotes.Contracts.OriginSwapEntryPoint.Name)
	assert.Equal(t, model.EntryPointSpokePool, quotes.Contracts.DepositEntryPoint.Name)
	require.NotNil(t, quotes.Contracts.OriginRouter)
}

func TestBridgeableToAnyExactOutput(t *testing.T) {
	env := newTestEnv(t)
	// 1 USDC = 0.5 OP
	env.uniswap.den = big.NewInt(2)
	env.zerox.err = &apierr.NoSwapRouteError{Dex: strategy.KeyZeroEx}

	cs := env.crossSwap(t, env.token(t, 1, "USDC"), env.token(t, 10, "OP"), big10(18), model.ExactOutput)
	quotes, err := env.orchestrator.Quote(context.Background(), cs)
	require.NoError(t, err)

	assert.Equal(t, model.BridgeableToAny, quotes.Type)
	assert.Nil(t, quotes.OriginSwapQuote)
	destination := quotes.DestinationSwapQuote
	require.NotNil(t, destination)
	assert.Equal(t, "1000000000000000000", quotes.ExpectedOutputAmount().String())
	assert.Equal(t, "2000000", destination.ExpectedAmountIn.String())
	assert.Equal(t, "2010000", destination.MaximumAmountIn.String())

	// the bridge was sized for the destination's worst case input
	calls := env.bridge.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "2010000", calls[0].Amount.String())
	assert.True(t, calls[0].Recipient.Equal(multicallHandler))
	assert.Equal(t, "2010100", quotes.InputAmount().String())

	swaps := env.uniswap.calls()
	require.Len(t, swaps, 2)
	assert.True(t, env.uniswap.opts[0].UseIndicativeQuote)
	assert.False(t, env.uniswap.opts[1].UseIndicativeQuote)
	assert.True(t, swaps[1].Recipient.Equal(multicallHandler))

	require.NotNil(t, quotes.Contracts.DestinationHandler)
	require.NotNil(t, quotes.Contracts.DestinationRouter)
}

func TestAnyToAnyWorstCase(t *testing.T) {
	env := newTestEnv(t)
	env.zerox.err = &apierr.NoSwapRouteError{Dex: strategy.KeyZeroEx}

	// DAI -> USDC on the origin, USDC -> OP on the destination, all at par
	cs := env.crossSwap(t, env.token(t, 1, "DAI"), env.token(t, 10, "OP"), big10(18), model.ExactOutput)
	quotes, err := env.orchestrator.Quote(context.Background(), cs)
	require.NoError(t, err)

	assert.Equal(t, model.AnyToAny, quotes.Type)
	require.NotNil(t, quotes.OriginSwapQuote)
	require.NotNil(t, quotes.DestinationSwapQuote)
	assert.Equal(t, "USDC", quotes.BridgeQuote.InputToken.Symbol)

	assert.Equal(t, quotes.BridgeQuote.InputAmount.String(), quotes.OriginSwapQuote.ExpectedAmountOut.String())
	assert.Equal(t, quotes.OriginSwapQuote.MaximumAmountIn, quotes.MaxInputAmount())
	assert.True(t, quotes.MaxInputAmount().Cmp(quotes.InputAmount()) > 0)
	assert.True(t, quotes.DestinationSwapQuote.MaximumAmountIn.Cmp(quotes.BridgeQuote.OutputAmount) <= 0)
}

func TestDestinationDriftResizesBridge(t *testing.T) {
	env := newTestEnv(t)
	// 1 USDC = 0.5 OP, firm quotes need 1% more than indicative ones
	env.uniswap.den = big.NewInt(2)
	env.uniswap.firmMarkup = 100
	env.zerox.err = &apierr.NoSwapRouteError{Dex: strategy.KeyZeroEx}

	cs := env.crossSwap(t, env.token(t, 1, "USDC"), env.token(t, 10, "OP"), big10(18), model.MinOutput)
	quotes, err := env.orchestrator.Quote(context.Background(), cs)
	require.NoError(t, err)

	destination := quotes.DestinationSwapQuote
	require.NotNil(t, destination)
	assert.Equal(t, "2030000", destination.MaximumAmountIn.String())

	calls := env.bridge.calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "2010000", calls[0].Amount.String())
	assert.Equal(t, "2030000", calls[1].Amount.String())
	assert.Equal(t, "2030100", quotes.InputAmount().String())
	assert.True(t, destination.MaximumAmountIn.Cmp(quotes.BridgeQuote.OutputAmount) <= 0)
}

func TestDestinationDriftRefetchesOrigin(t *testing.T) {
	env := newTestEnv(t)
	env.uniswap.firmMarkup = 100
	env.zerox.err = &apierr.NoSwapRouteError{Dex: strategy.KeyZeroEx}

	cs := env.crossSwap(t, env.token(t, 1, "DAI"), env.token(t, 10, "OP"), big10(18), model.ExactOutput)
	quotes, err := env.orchestrator.Quote(context.Background(), cs)
	require.NoError(t, err)

	require.NotNil(t, quotes.OriginSwapQuote)
	require.NotNil(t, quotes.DestinationSwapQuote)
	assert.Equal(t, "1015000", quotes.DestinationSwapQuote.MaximumAmountIn.String())
	assert.Equal(t, "1015100", quotes.BridgeQuote.InputAmount.String())
	assert.Equal(t, "1015100", quotes.OriginSwapQuote.ExpectedAmountOut.String())
	assert.Len(t, env.bridge.calls(), 2)
}

func TestInsufficientBridgeOutput(t *testing.T) {
	env := newTestEnv(t)
	env.uniswap.den = big.NewInt(2)
	env.zerox.err = &apierr.NoSwapRouteError{Dex: strategy.KeyZeroEx}
	env.bridge.shortBy = 1

	cs := env.crossSwap(t, env.token(t, 1, "USDC"), env.token(t, 10, "OP"), big10(18), model.MinOutput)
	_, err := env.orchestrator.Quote(context.Background(), cs)
	assert.True(t, apierr.HasCode(err, apierr.CodeInsufficientBridgeOutput))
	assert.Len(t, env.bridge.calls(), 2)
}

func TestLegErrors(t *testing.T) {
	env := newTestEnv(t)
	env.uniswap.err = apierr.Upstream("uniswap", 500, nil, nil)
	env.zerox.err = &apierr.NoSwapRouteError{Dex: strategy.KeyZeroEx, TokenInSymbol: "DAI"}

	cs := env.crossSwap(t, env.token(t, 1, "DAI"), env.token(t, 10, "USDC"), big10(18), model.ExactInput)
	_, err := env.orchestrator.Quote(context.Background(), cs)
	var routeErr *apierr.NoSwapRouteError
	require.ErrorAs(t, err, &routeErr)
	assert.Equal(t, strategy.KeyZeroEx, routeErr.Dex)
	assert.Empty(t, env.bridge.calls())

	env.uniswap.err = nil
	env.uniswap.forceType = model.ExactOutput
	_, err = env.orchestrator.Quote(context.Background(), cs)
	assert.True(t, apierr.HasCode(err, apierr.CodeTradeTypeMismatch))
}

func TestSvmOrigin(t *testing.T) {
	env := newTestEnv(t)
	// 100 BONK per USDC
	env.jupiter.den = big.NewInt(100)

	cs := env.crossSwap(t, env.token(t, solanaChainId, "BONK"), env.token(t, 1, "USDC"), big.NewInt(500_000), model.ExactInput)
	quotes, err := env.orchestrator.Quote(context.Background(), cs)
	require.NoError(t, err)

	assert.Equal(t, model.AnyToBridgeable, quotes.Type)
	require.NotNil(t, quotes.OriginSwapQuote)
	assert.Equal(t, "50000", quotes.BridgeQuote.InputAmount.String())
	assert.Equal(t, model.EntryPointSvmSpoke, quotes.Contracts.DepositEntryPoint.Name)

	swaps := env.jupiter.calls()
	require.Len(t, swaps, 1)
	assert.True(t, swaps[0].Recipient.Equal(svmUser))
	assert.Empty(t, env.uniswap.calls())
}

func TestAppFee(t *testing.T) {
	env := newTestEnv(t)
	feeRecipient := evmUser

	cs := env.crossSwap(t, env.token(t, 1, "USDC"), env.token(t, 10, "USDC"), big.NewInt(1_000_100), model.ExactInput)
	cs.AppFeePercent = 0.01
	cs.AppFeeRecipient = &feeRecipient

	quotes, err := env.orchestrator.Quote(context.Background(), cs)
	require.NoError(t, err)
	require.NotNil(t, quotes.AppFee)
	assert.Equal(t, "10000", quotes.AppFee.Amount.String())
	assert.Equal(t, "990000", quotes.ExpectedOutputAmount().String())
	require.NotNil(t, quotes.Contracts.DestinationHandler)
	assert.True(t, env.bridge.calls()[0].Recipient.Equal(multicallHandler))

	// exact output grosses the target up by the fee
	cs.Type = model.ExactOutput
	cs.Amount = big.NewInt(990_000)
	quotes, err = env.orchestrator.Quote(context.Background(), cs)
	require.NoError(t, err)
	assert.True(t, quotes.ExpectedOutputAmount().Cmp(cs.Amount) >= 0)
}

func TestValidateFailsFast(t *testing.T) {
	env := newTestEnv(t)
	usdc, usdcOp := env.token(t, 1, "USDC"), env.token(t, 10, "USDC")

	cases := []struct {
		name   string
		mutate func(cs *model.CrossSwap)
		code   string
	}{
		{"both source filters", func(cs *model.CrossSwap) {
			cs.Sources = model.SourcesFilter{Include: []string{"0x"}, Exclude: []string{"uniswap-api"}}
		}, apierr.CodeInvalidParam},
		{"slippage", func(cs *model.CrossSwap) { cs.SlippageTolerance = 51 }, apierr.CodeInvalidParam},
		{"amount", func(cs *model.CrossSwap) { cs.Amount = new(big.Int) }, apierr.CodeInvalidParam},
		{"depositor ecosystem", func(cs *model.CrossSwap) { cs.Depositor = svmUser }, apierr.CodeInvalidParam},
		{"missing recipient", func(cs *model.CrossSwap) { cs.Recipient = address.Address{} }, apierr.CodeMissingParam},
		{"origin svm flag", func(cs *model.CrossSwap) { cs.IsOriginSvm = true }, apierr.CodeInvalidParam},
		{"same chain", func(cs *model.CrossSwap) { cs.OutputToken = usdc }, apierr.CodeInvalidParam},
		{"unknown chain", func(cs *model.CrossSwap) { cs.OutputToken.ChainId = 999 }, apierr.CodeInvalidParam},
		{"app fee recipient", func(cs *model.CrossSwap) { cs.AppFeePercent = 0.01 }, apierr.CodeMissingParam},
		{"svm destination swap", func(cs *model.CrossSwap) {
			cs.OutputToken = env.token(t, solanaChainId, "BONK")
			cs.Recipient = svmUser
		}, apierr.CodeUnsupportedRoute},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cs := env.crossSwap(t, usdc, usdcOp, big.NewInt(1_000_000), model.ExactInput)
			c.mutate(&cs)
			_, err := env.orchestrator.Quote(context.Background(), cs)
			assert.True(t, apierr.HasCode(err, c.code), "%v", err)
		})
	}
	assert.Empty(t, env.bridge.calls())
}
