package strategy

import (
	"errors"
	"math"
	"math/big"
	"slices"

	"github.com/fachebot/cross-swap-api/internal/apierr"
	"github.com/fachebot/cross-swap-api/internal/dexagg"
	"github.com/fachebot/cross-swap-api/internal/model"
	"github.com/fachebot/cross-swap-api/internal/utils/bigint"

	"github.com/samber/lo"
)

const bpsDenominator = 10000

// slippageBps converts a percentage (0.5 = 0.5%) to basis points.
func slippageBps(pct float64) int64 {
	return int64(math.Round(pct * 100))
}

func minWithSlippage(expected *big.Int, bps int64) *big.Int {
	out := new(big.Int).Mul(expected, big.NewInt(bpsDenominator-bps))
	return out.Quo(out, big.NewInt(bpsDenominator))
}

func maxWithSlippage(expected *big.Int, bps int64) *big.Int {
	return bigint.MulDivUp(expected, big.NewInt(bpsDenominator+bps), big.NewInt(bpsDenominator))
}

// venueTradeType is what gets asked from a venue. Minimum-output is quoted as
// exact-output for the requested minimum.
func venueTradeType(tradeType model.AmountType) model.AmountType {
	if tradeType == model.MinOutput {
		return model.ExactOutput
	}
	return tradeType
}

type quoteArgs struct {
	swap        model.Swap
	tradeType   model.AmountType
	expectedIn  *big.Int
	expectedOut *big.Int
	txns        []model.SwapTxn
	svm         *model.SvmSwapInstructions
	provider    model.SwapProvider
	indicative  bool
	// zeroSlippage is set for 1:1 wraps
	zeroSlippage bool
}

// newSwapQuote pins the requested side of the trade and derives the bounded
// side from the slippage tolerance.
func newSwapQuote(args quoteArgs) *model.SwapQuote {
	swap := args.swap
	bps := slippageBps(swap.SlippageTolerance)
	if args.zeroSlippage {
		bps = 0
	}

	quote := &model.SwapQuote{
		ChainId:           swap.ChainId,
		TokenIn:           swap.TokenIn,
		TokenOut:          swap.TokenOut,
		SlippageTolerance: swap.SlippageTolerance,
		TradeType:         args.tradeType,
		SwapTxns:          args.txns,
		SvmSwap:           args.svm,
		SwapProvider:      args.provider,
		Indicative:        args.indicative,
	}
	if args.zeroSlippage {
		quote.SlippageTolerance = 0
	}

	switch args.tradeType {
	case model.ExactInput:
		quote.ExpectedAmountIn = new(big.Int).Set(swap.Amount)
		quote.MaximumAmountIn = new(big.Int).Set(swap.Amount)
		quote.ExpectedAmountOut = new(big.Int).Set(args.expectedOut)
		quote.MinAmountOut = minWithSlippage(args.expectedOut, bps)
	case model.ExactOutput:
		quote.ExpectedAmountOut = new(big.Int).Set(swap.Amount)
		quote.MinAmountOut = new(big.Int).Set(swap.Amount)
		quote.ExpectedAmountIn = new(big.Int).Set(args.expectedIn)
		quote.MaximumAmountIn = maxWithSlippage(args.expectedIn, bps)
	case model.MinOutput:
		expectedOut := args.expectedOut
		if expectedOut == nil || expectedOut.Cmp(swap.Amount) < 0 {
			expectedOut = swap.Amount
		}
		quote.ExpectedAmountOut = new(big.Int).Set(expectedOut)
		quote.MinAmountOut = new(big.Int).Set(swap.Amount)
		quote.ExpectedAmountIn = new(big.Int).Set(args.expectedIn)
		quote.MaximumAmountIn = maxWithSlippage(args.expectedIn, bps)
	}
	return quote
}

// filterSources narrows a venue's source tags with the caller's filter.
// Including the venue key itself keeps every source.
func filterSources(key string, all []string, filter model.SourcesFilter) []string {
	if len(filter.Include) > 0 {
		if slices.Contains(filter.Include, key) {
			return all
		}
		return lo.Filter(all, func(item string, _ int) bool {
			return slices.Contains(filter.Include, item)
		})
	}
	if len(filter.Exclude) > 0 {
		return lo.Filter(all, func(item string, _ int) bool {
			return !slices.Contains(filter.Exclude, item)
		})
	}
	return all
}

func noRoute(dex string, swap model.Swap, tradeType model.AmountType) error {
	return &apierr.NoSwapRouteError{
		Dex:            dex,
		TokenInSymbol:  swap.TokenIn.Symbol,
		TokenOutSymbol: swap.TokenOut.Symbol,
		ChainId:        swap.ChainId,
		TradeType:      string(tradeType),
	}
}

// venueError maps a client failure to the route or upstream error.
func venueError(dex string, swap model.Swap, tradeType model.AmountType, err error, isNoRoute func(error) bool) error {
	var routeErr *apierr.NoSwapRouteError
	if errors.As(err, &routeErr) {
		return err
	}
	if isNoRoute != nil && isNoRoute(err) {
		return noRoute(dex, swap, tradeType)
	}
	return dexagg.Upstream(err)
}

func unsupportedTradeType(dex string, tradeType model.AmountType) error {
	return apierr.UnsupportedRoute(apierr.CodeUnsupportedTradeType, "%s does not support %s swaps", dex, tradeType)
}

func transferType(t model.TransferType) *model.TransferType {
	return &t
}

var errNoTransaction = errors.New("quote carries no transaction")
