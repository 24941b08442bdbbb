package fees

import (
	"context"
	"strings"
	"sync"

	"github.com/fachebot/cross-swap-api/internal/logger"
	"github.com/fachebot/cross-swap-api/internal/model"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// PriceProvider returns USD prices keyed by token address, lower-cased on EVM
// chains.
type PriceProvider interface {
	TokenPrices(ctx context.Context, chainId int64, tokenAddresses []string) (map[string]decimal.Decimal, error)
}

// PriceRequest names the tokens whose prices feed the fee report. Native
// assets are priced through their wrapped token.
type PriceRequest struct {
	InputToken        model.Token
	OutputToken       model.Token
	OriginNative      model.Token
	DestinationNative model.Token
	BridgeInput       model.Token
	AppFeeToken       model.Token
}

func priceKey(token model.Token) string {
	if token.Address.IsSvm() {
		return token.Address.String()
	}
	return strings.ToLower(token.Address.String())
}

// FetchPrices queries every chain concurrently. Failures are logged and leave
// the affected prices at zero, as does a nil provider.
func FetchPrices(ctx context.Context, provider PriceProvider, req PriceRequest) Prices {
	if provider == nil {
		return Prices{}
	}
	all := []model.Token{req.InputToken, req.OutputToken, req.OriginNative, req.DestinationNative, req.BridgeInput, req.AppFeeToken}
	all = lo.Filter(all, func(item model.Token, _ int) bool {
		return item.Address.IsValid()
	})
	byChain := lo.GroupBy(all, func(item model.Token) int64 { return item.ChainId })

	var mutex sync.Mutex
	found := make(map[int64]map[string]decimal.Decimal, len(byChain))

	var g errgroup.Group
	for chainId, list := range byChain {
		g.Go(func() error {
			addrs := lo.Uniq(lo.Map(list, func(item model.Token, _ int) string { return item.Address.String() }))
			prices, err := provider.TokenPrices(ctx, chainId, addrs)
			if err != nil {
				logger.Warnf("[Fees] 获取代币价格失败, chainId: %d, %v", chainId, err)
				return nil
			}
			mutex.Lock()
			found[chainId] = prices
			mutex.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	lookup := func(token model.Token) decimal.Decimal {
		if !token.Address.IsValid() {
			return decimal.Zero
		}
		return found[token.ChainId][priceKey(token)]
	}
	return Prices{
		InputToken:        lookup(req.InputToken),
		OutputToken:       lookup(req.OutputToken),
		OriginNative:      lookup(req.OriginNative),
		DestinationNative: lookup(req.DestinationNative),
		BridgeInput:       lookup(req.BridgeInput),
		AppFeeToken:       lookup(req.AppFeeToken),
	}
}
