package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/fachebot/cross-swap-api/internal/utils/evm"

	"github.com/ethereum/go-ethereum"
)

type TokenMeta struct {
	Name     string
	Symbol   string
	Decimals uint8
}

// CallerSource hands out the eth_call backend of a chain.
type CallerSource func(chainId int64) (ethereum.ContractCaller, error)

// TokenMetaCache memoises ERC20 name/symbol/decimals per (chain, token).
type TokenMetaCache struct {
	callers      CallerSource
	tokenMetaMap sync.Map
}

func NewTokenMetaCache(callers CallerSource) *TokenMetaCache {
	return &TokenMetaCache{callers: callers}
}

func (c *TokenMetaCache) GetTokenMeta(ctx context.Context, chainId int64, tokenAddress string) (TokenMeta, error) {
	key := fmt.Sprintf("%d:%s", chainId, strings.ToLower(tokenAddress))
	val, ok := c.tokenMetaMap.Load(key)
	if ok {
		return val.(TokenMeta), nil
	}

	caller, err := c.callers(chainId)
	if err != nil {
		return TokenMeta{}, err
	}

	tokenmeta, err := evm.GetTokenMeta(ctx, caller, tokenAddress)
	if err != nil {
		return TokenMeta{}, err
	}

	ret := TokenMeta{
		Name:     tokenmeta.Name,
		Symbol:   tokenmeta.Symbol,
		Decimals: tokenmeta.Decimals,
	}
	c.tokenMetaMap.Store(key, ret)

	return ret, nil
}
