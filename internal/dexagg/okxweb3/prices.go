package okxweb3

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// TokenPrices fetches USD prices for tokens of one chain. EVM addresses are
// lower-cased, Solana mints keep their case.
func (client *Client) TokenPrices(ctx context.Context, chainId int64, tokenAddresses []string) (map[string]decimal.Decimal, error) {
	chainIndex, ok := ChainIdToChainIndex(chainId)
	if !ok {
		return nil, fmt.Errorf("chain %d is not priced by okx", chainId)
	}
	if chainIndex != SolanaChainIndex {
		tokenAddresses = lo.Map(tokenAddresses, func(item string, _ int) string {
			return strings.ToLower(item)
		})
	}
	return client.GetRealtimePrice(ctx, chainIndex, tokenAddresses)
}
