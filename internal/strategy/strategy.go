package strategy

import (
	"context"

	"github.com/fachebot/cross-swap-api/internal/address"
	"github.com/fachebot/cross-swap-api/internal/model"
)

// Source keys as they appear in a chain's Venues list.
const (
	KeyUniswapApi    = "uniswap-api"
	KeyZeroEx        = "0x"
	KeyUniswapRouter = "uniswap-v3-router"
	KeyWrappedGho    = "wrapped-gho"
	KeyJupiter       = "jupiter"
	KeyUniswapLegacy = "uniswap-legacy"
)

type OriginEntryPoints struct {
	SwapAndBridge model.EntryPointContract
	Deposit       model.EntryPointContract
}

type FetchOptions struct {
	// UseIndicativeQuote skips calldata assembly and returns amounts only.
	UseIndicativeQuote bool
	SellEntireBalance  bool
}

// QuoteFetchStrategy adapts one swap venue.
type QuoteFetchStrategy interface {
	Name() string
	Ecosystem() address.Ecosystem
	GetRouter(chainId int64) (model.RouterContract, error)
	GetOriginEntryPoints(chainId int64) (OriginEntryPoints, error)
	GetSources(chainId int64) []string
	Fetch(ctx context.Context, swap model.Swap, tradeType model.AmountType, opts FetchOptions) (*model.SwapQuote, error)
}
