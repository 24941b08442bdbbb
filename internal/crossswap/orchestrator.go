package crossswap

import (
	"context"
	"math/big"

	"github.com/fachebot/cross-swap-api/internal/address"
	"github.com/fachebot/cross-swap-api/internal/bridgeapi"
	"github.com/fachebot/cross-swap-api/internal/entrypoint"
	"github.com/fachebot/cross-swap-api/internal/logger"
	"github.com/fachebot/cross-swap-api/internal/model"
	"github.com/fachebot/cross-swap-api/internal/strategy"
	"github.com/fachebot/cross-swap-api/internal/tokens"

	"github.com/shopspring/decimal"
)

// BridgeQuoter is the bridge fee service.
type BridgeQuoter interface {
	QuoteForInput(ctx context.Context, req bridgeapi.Request) (*model.BridgeQuote, error)
	QuoteForOutput(ctx context.Context, req bridgeapi.Request) (*model.BridgeQuote, error)
}

// StrategySource lists the venues allowed to serve a leg.
type StrategySource interface {
	Candidates(chainId int64, ecosystem address.Ecosystem, filter model.SourcesFilter) ([]strategy.QuoteFetchStrategy, error)
}

// Orchestrator classifies a cross swap and sequences the swap legs around the
// bridge quote.
type Orchestrator struct {
	tokens      *tokens.Registry
	entryPoints *entrypoint.Resolver
	strategies  StrategySource
	bridge      BridgeQuoter
	preferred   []string
}

func NewOrchestrator(registry *tokens.Registry, entryPoints *entrypoint.Resolver, strategies StrategySource, bridge BridgeQuoter, preferred []string) *Orchestrator {
	return &Orchestrator{
		tokens:      registry,
		entryPoints: entryPoints,
		strategies:  strategies,
		bridge:      bridge,
		preferred:   preferred,
	}
}

func (o *Orchestrator) plan(cs model.CrossSwap) (*route, error) {
	if err := o.validate(cs); err != nil {
		return nil, err
	}

	kind := Classify(o.tokens.IsBridgeable(cs.InputToken), o.tokens.IsBridgeable(cs.OutputToken))
	bridgeIn, bridgeOut, err := bridgeTokens(o.tokens, kind, cs, o.preferred)
	if err != nil {
		return nil, err
	}

	r := &route{
		kind:       kind,
		bridgeIn:   bridgeIn,
		bridgeOut:  bridgeOut,
		originSwap: kind == model.AnyToBridgeable || kind == model.AnyToAny,
		destSwap:   kind == model.BridgeableToAny || kind == model.AnyToAny,
	}
	if bridgeOut.Ecosystem() == address.EVM &&
		(r.destSwap || cs.IsOutputNative || cs.AppFeePercent > 0 || len(cs.EmbeddedActions) > 0) {
		handler, err := o.entryPoints.MulticallHandler(cs.OutputToken.ChainId)
		if err != nil {
			return nil, err
		}
		r.destHandler = &handler
	}
	return r, nil
}

// Quote runs the full quote pipeline for one request.
func (o *Orchestrator) Quote(ctx context.Context, cs model.CrossSwap) (*model.CrossSwapQuotes, error) {
	r, err := o.plan(cs)
	if err != nil {
		return nil, err
	}
	logger.Debugf("[CrossSwap] 路由分类完成, type: %s, tradeType: %s, bridge: %s(%d) -> %s(%d)",
		r.kind, cs.Type, r.bridgeIn.Symbol, r.bridgeIn.ChainId, r.bridgeOut.Symbol, r.bridgeOut.ChainId)

	if cs.Type == model.ExactInput {
		return o.quoteExactInput(ctx, cs, r)
	}

	target := targetOutput(cs)
	plan, err := o.planBackward(ctx, cs, r, target)
	if err != nil {
		return nil, err
	}
	origin, destination, err := o.fetchForward(ctx, cs, r, plan, target)
	if err != nil {
		return nil, err
	}
	return o.assemble(cs, r, origin, plan.bridge, destination)
}

func (o *Orchestrator) quoteExactInput(ctx context.Context, cs model.CrossSwap, r *route) (*model.CrossSwapQuotes, error) {
	bridgeAmount := cs.Amount

	var origin *legQuote
	if r.originSwap {
		swap := o.originSwap(cs, r, cs.Amount, model.ExactInput)
		leg, err := o.fetchBest(ctx, swap, model.ExactInput, strategy.FetchOptions{}, o.originRecipient(cs))
		if err != nil {
			return nil, err
		}
		origin = leg
		bridgeAmount = leg.quote.ExpectedAmountOut
	}

	bridge, err := o.bridge.QuoteForInput(ctx, o.bridgeRequest(cs, r, bridgeAmount))
	if err != nil {
		return nil, err
	}
	if origin != nil && origin.quote.ExpectedAmountOut.Sign() > 0 {
		// the periphery scales the deposit output with the realised swap output
		minOutput := new(big.Int).Mul(bridge.OutputAmount, origin.quote.MinAmountOut)
		bridge.MinOutputAmount = minOutput.Quo(minOutput, origin.quote.ExpectedAmountOut)
	}

	var destination *legQuote
	if r.destSwap {
		swap := o.destinationSwap(cs, r, bridge.OutputAmount, model.ExactInput)
		destination, err = o.fetchBest(ctx, swap, model.ExactInput, strategy.FetchOptions{}, nil)
		if err != nil {
			return nil, err
		}
	}
	return o.assemble(cs, r, origin, bridge, destination)
}

// targetOutput grosses the requested output up by the app fee so the
// recipient still receives the requested amount.
func targetOutput(cs model.CrossSwap) *big.Int {
	if cs.AppFeePercent <= 0 {
		return new(big.Int).Set(cs.Amount)
	}
	keep := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(cs.AppFeePercent))
	return decimal.NewFromBigInt(cs.Amount, 0).Div(keep).Ceil().BigInt()
}

func appFeeAmount(amount *big.Int, pct float64) *big.Int {
	return decimal.NewFromBigInt(amount, 0).Mul(decimal.NewFromFloat(pct)).Floor().BigInt()
}

func (o *Orchestrator) bridgeRequest(cs model.CrossSwap, r *route, amount *big.Int) bridgeapi.Request {
	recipient := cs.Recipient
	if r.destHandler != nil {
		recipient = r.destHandler.Address
	}
	return bridgeapi.Request{
		InputToken:  r.bridgeIn,
		OutputToken: r.bridgeOut,
		Amount:      amount,
		Recipient:   &recipient,
	}
}

func (o *Orchestrator) assemble(cs model.CrossSwap, r *route, origin *legQuote, bridge *model.BridgeQuote, destination *legQuote) (*model.CrossSwapQuotes, error) {
	originChainId, destinationChainId := cs.InputToken.ChainId, cs.OutputToken.ChainId
	quotes := &model.CrossSwapQuotes{
		CrossSwap:   cs,
		Type:        r.kind,
		BridgeQuote: *bridge,
	}

	if origin != nil {
		entryPoints, err := origin.strategy.GetOriginEntryPoints(originChainId)
		if err != nil {
			return nil, err
		}
		router, err := origin.strategy.GetRouter(originChainId)
		if err != nil {
			return nil, err
		}
		quotes.OriginSwapQuote = origin.quote
		quotes.Contracts.OriginSwapEntryPoint = &entryPoints.SwapAndBridge
		quotes.Contracts.OriginRouter = &router
		quotes.Contracts.DepositEntryPoint = entryPoints.Deposit
	} else {
		deposit, err := o.entryPoints.DepositEntryPoint(originChainId, cs.IsInputNative, cs.PreferPeriphery)
		if err != nil {
			return nil, err
		}
		quotes.Contracts.DepositEntryPoint = deposit
	}

	if destination != nil {
		router, err := destination.strategy.GetRouter(destinationChainId)
		if err != nil {
			return nil, err
		}
		quotes.DestinationSwapQuote = destination.quote
		quotes.Contracts.DestinationRouter = &router
	}
	quotes.Contracts.DestinationHandler = r.destHandler

	if cs.AppFeePercent > 0 {
		quotes.AppFee = &model.AppFee{
			Percent:   cs.AppFeePercent,
			Amount:    appFeeAmount(quotes.ExpectedOutputAmountSansAppFees(), cs.AppFeePercent),
			Token:     cs.OutputToken,
			Recipient: *cs.AppFeeRecipient,
		}
	}
	return quotes, nil
}
