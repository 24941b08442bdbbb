package crossswap

import (
	"context"
	"errors"
	"math/big"

	"github.com/fachebot/cross-swap-api/internal/address"
	"github.com/fachebot/cross-swap-api/internal/apierr"
	"github.com/fachebot/cross-swap-api/internal/logger"
	"github.com/fachebot/cross-swap-api/internal/model"
	"github.com/fachebot/cross-swap-api/internal/strategy"

	"golang.org/x/sync/errgroup"
)

type legQuote struct {
	quote    *model.SwapQuote
	strategy strategy.QuoteFetchStrategy
}

// backwardPlan is the result of sizing the legs from the requested output.
type backwardPlan struct {
	destination  *model.SwapQuote
	bridge       *model.BridgeQuote
	originOutput *big.Int
}

func (o *Orchestrator) originSwap(cs model.CrossSwap, r *route, amount *big.Int, tradeType model.AmountType) model.Swap {
	return model.Swap{
		ChainId:           cs.InputToken.ChainId,
		TokenIn:           cs.InputToken,
		TokenOut:          r.bridgeIn,
		Amount:            amount,
		Type:              tradeType,
		Depositor:         cs.Depositor,
		Recipient:         cs.Depositor,
		SlippageTolerance: cs.SlippageTolerance,
		Sources:           cs.Sources,
		IsInputNative:     cs.IsInputNative,
	}
}

func (o *Orchestrator) destinationSwap(cs model.CrossSwap, r *route, amount *big.Int, tradeType model.AmountType) model.Swap {
	recipient := cs.Recipient
	if r.destHandler != nil {
		recipient = r.destHandler.Address
	}
	return model.Swap{
		ChainId:           cs.OutputToken.ChainId,
		TokenIn:           r.bridgeOut,
		TokenOut:          cs.OutputToken,
		Amount:            amount,
		Type:              tradeType,
		Depositor:         cs.Depositor,
		Recipient:         recipient,
		SlippageTolerance: cs.SlippageTolerance,
		Sources:           cs.Sources,
		IsOutputNative:    cs.IsOutputNative,
	}
}

// originRecipient is whoever executes the router call for a venue: the swap
// proxy behind the periphery, the legacy contract itself, or the SVM signer.
func (o *Orchestrator) originRecipient(cs model.CrossSwap) func(strategy.QuoteFetchStrategy) (address.Address, error) {
	chainId := cs.InputToken.ChainId
	return func(s strategy.QuoteFetchStrategy) (address.Address, error) {
		if cs.IsOriginSvm {
			return cs.Depositor, nil
		}
		entryPoints, err := s.GetOriginEntryPoints(chainId)
		if err != nil {
			return address.Address{}, err
		}
		if entryPoints.SwapAndBridge.Name == model.EntryPointSpokePoolPeriphery {
			return o.entryPoints.SwapProxy(chainId)
		}
		return entryPoints.SwapAndBridge.Address, nil
	}
}

func better(a, b *model.SwapQuote, tradeType model.AmountType) bool {
	if tradeType == model.ExactInput {
		return a.ExpectedAmountOut.Cmp(b.ExpectedAmountOut) > 0
	}
	return a.MaximumAmountIn.Cmp(b.MaximumAmountIn) < 0
}

// fetchBest asks every candidate venue concurrently and keeps the best quote.
// Ties go to the venue listed first for the chain.
func (o *Orchestrator) fetchBest(ctx context.Context, swap model.Swap, tradeType model.AmountType, opts strategy.FetchOptions, recipientFor func(strategy.QuoteFetchStrategy) (address.Address, error)) (*legQuote, error) {
	ecosystem, _ := o.tokens.Ecosystem(swap.ChainId)
	candidates, err := o.strategies.Candidates(swap.ChainId, ecosystem, swap.Sources)
	if err != nil {
		return nil, err
	}

	quotes := make([]*model.SwapQuote, len(candidates))
	errs := make([]error, len(candidates))

	var g errgroup.Group
	for idx, s := range candidates {
		g.Go(func() error {
			candidate := swap
			if recipientFor != nil {
				recipient, err := recipientFor(s)
				if err != nil {
					errs[idx] = err
					return nil
				}
				candidate.Recipient = recipient
			}

			quote, err := s.Fetch(ctx, candidate, tradeType, opts)
			if err != nil {
				logger.Debugf("[CrossSwap] 报价失败, dex: %s, chainId: %d, %s -> %s, %v",
					s.Name(), swap.ChainId, swap.TokenIn.Symbol, swap.TokenOut.Symbol, err)
				errs[idx] = err
				return nil
			}
			if quote.TradeType != tradeType {
				errs[idx] = apierr.Invariant(apierr.CodeTradeTypeMismatch,
					"%s returned a %s quote for a %s leg", s.Name(), quote.TradeType, tradeType)
				return nil
			}
			quotes[idx] = quote
			return nil
		})
	}
	_ = g.Wait()

	for _, err := range errs {
		if apierr.IsKind(err, apierr.KindInvariant) || apierr.IsKind(err, apierr.KindEcosystem) {
			return nil, err
		}
	}

	best := -1
	for idx, quote := range quotes {
		if quote != nil && (best < 0 || better(quote, quotes[best], tradeType)) {
			best = idx
		}
	}
	if best >= 0 {
		logger.Debugf("[CrossSwap] 选中报价, dex: %s, chainId: %d, in: %s, out: %s",
			candidates[best].Name(), swap.ChainId, quotes[best].ExpectedAmountIn, quotes[best].ExpectedAmountOut)
		return &legQuote{quote: quotes[best], strategy: candidates[best]}, nil
	}
	return nil, firstError(errs)
}

// firstError prefers a missing route over other failures.
func firstError(errs []error) error {
	var first error
	for _, err := range errs {
		var routeErr *apierr.NoSwapRouteError
		if errors.As(err, &routeErr) {
			return err
		}
		if first == nil {
			first = err
		}
	}
	return first
}

// planBackward sizes the route from the requested output: destination input,
// then bridge output, then the bridge input the origin leg has to produce.
func (o *Orchestrator) planBackward(ctx context.Context, cs model.CrossSwap, r *route, target *big.Int) (*backwardPlan, error) {
	plan := &backwardPlan{}

	bridgeOutput := target
	if r.destSwap {
		swap := o.destinationSwap(cs, r, target, model.ExactOutput)
		leg, err := o.fetchBest(ctx, swap, model.ExactOutput, strategy.FetchOptions{UseIndicativeQuote: true}, nil)
		if err != nil {
			return nil, err
		}
		plan.destination = leg.quote
		bridgeOutput = leg.quote.MaximumAmountIn
	}

	bridge, err := o.bridge.QuoteForOutput(ctx, o.bridgeRequest(cs, r, bridgeOutput))
	if err != nil {
		return nil, err
	}
	plan.bridge = bridge
	plan.originOutput = bridge.InputAmount
	return plan, nil
}

// fetchForward fetches the firm leg quotes for a backward plan. Both legs are
// independent once the bridge is sized. A firm destination quote that needs
// more than the bridge delivers resizes the bridge and refetches the origin.
func (o *Orchestrator) fetchForward(ctx context.Context, cs model.CrossSwap, r *route, plan *backwardPlan, target *big.Int) (*legQuote, *legQuote, error) {
	var origin, destination *legQuote

	g, gctx := errgroup.WithContext(ctx)
	if r.originSwap {
		g.Go(func() (err error) {
			origin, err = o.firmOrigin(gctx, cs, r, plan.originOutput)
			return err
		})
	}
	if r.destSwap {
		g.Go(func() error {
			swap := o.destinationSwap(cs, r, target, cs.Type)
			leg, err := o.fetchBest(gctx, swap, cs.Type, strategy.FetchOptions{}, nil)
			if err != nil {
				return err
			}
			destination = leg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if destination == nil {
		return origin, nil, nil
	}

	needed := destination.quote.MaximumAmountIn
	if needed.Cmp(plan.bridge.OutputAmount) > 0 {
		logger.Debugf("[CrossSwap] 目标链报价上浮, 重新计算桥接金额, need: %s, bridge: %s",
			needed, plan.bridge.OutputAmount)

		bridge, err := o.bridge.QuoteForOutput(ctx, o.bridgeRequest(cs, r, needed))
		if err != nil {
			return nil, nil, err
		}
		plan.bridge = bridge
		plan.originOutput = bridge.InputAmount

		if r.originSwap {
			origin, err = o.firmOrigin(ctx, cs, r, plan.originOutput)
			if err != nil {
				return nil, nil, err
			}
		}
	}

	if needed.Cmp(plan.bridge.OutputAmount) > 0 {
		return nil, nil, apierr.Invariant(apierr.CodeInsufficientBridgeOutput,
			"destination swap needs up to %s %s but the bridge delivers %s",
			needed, r.bridgeOut.Symbol, plan.bridge.OutputAmount)
	}
	return origin, destination, nil
}

func (o *Orchestrator) firmOrigin(ctx context.Context, cs model.CrossSwap, r *route, output *big.Int) (*legQuote, error) {
	swap := o.originSwap(cs, r, output, model.ExactOutput)
	return o.fetchBest(ctx, swap, model.ExactOutput, strategy.FetchOptions{}, o.originRecipient(cs))
}
