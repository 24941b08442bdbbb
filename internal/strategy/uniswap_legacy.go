package strategy

import (
	"github.com/fachebot/cross-swap-api/internal/dexagg/uniswap"
	"github.com/fachebot/cross-swap-api/internal/entrypoint"
)

// UniswapLegacy is the trading API venue bound to the legacy per-dex
// UniversalSwapAndBridge entry point instead of the periphery.
type UniswapLegacy struct {
	*UniswapApi
}

func NewUniswapLegacy(chains ChainSource, entryPoints *entrypoint.Resolver, client *uniswap.Client) *UniswapLegacy {
	api := NewUniswapApi(chains, entryPoints, client)
	api.key = KeyUniswapLegacy
	return &UniswapLegacy{UniswapApi: api}
}

func (s *UniswapLegacy) GetOriginEntryPoints(chainId int64) (OriginEntryPoints, error) {
	if _, err := s.chain(chainId); err != nil {
		return OriginEntryPoints{}, err
	}
	swapAndBridge, err := s.entryPoints.UniversalSwapAndBridge(chainId, "uniswap")
	if err != nil {
		return OriginEntryPoints{}, err
	}
	spokePool, err := s.entryPoints.SpokePool(chainId)
	if err != nil {
		return OriginEntryPoints{}, err
	}
	return OriginEntryPoints{SwapAndBridge: swapAndBridge, Deposit: spokePool}, nil
}
