package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/fachebot/cross-swap-api/internal/utils/evm"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type router struct{ chainId int64 }

func TestRouterCacheGetOrCreate(t *testing.T) {
	c := NewRouterCache[*router]()

	var built int32
	var wg sync.WaitGroup
	results := make([]*router, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := c.GetOrCreate(1, func() (*router, error) {
				atomic.AddInt32(&built, 1)
				return &router{chainId: 1}, nil
			})
			assert.NoError(t, err)
			results[i] = r
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), built)
	for _, r := range results {
		assert.Same(t, results[0], r)
	}
	assert.Equal(t, 1, c.Len())
}

func TestRouterCacheDoesNotCacheErrors(t *testing.T) {
	c := NewRouterCache[*router]()

	_, err := c.GetOrCreate(10, func() (*router, error) { return nil, errors.New("boom") })
	require.Error(t, err)
	assert.Equal(t, 0, c.Len())

	r, err := c.GetOrCreate(10, func() (*router, error) { return &router{chainId: 10}, nil })
	require.NoError(t, err)
	assert.Equal(t, int64(10), r.chainId)
}

func TestTokenMetaCache(t *testing.T) {
	token := common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")
	caller := evm.NewFakeCaller().
		On(token, "name", "Dai Stablecoin").
		On(token, "symbol", "DAI").
		On(token, "decimals", uint8(18))

	c := NewTokenMetaCache(func(chainId int64) (ethereum.ContractCaller, error) {
		if chainId != 1 {
			return nil, errors.New("unknown chain")
		}
		return caller, nil
	})

	meta, err := c.GetTokenMeta(context.Background(), 1, token.Hex())
	require.NoError(t, err)
	assert.Equal(t, TokenMeta{Name: "Dai Stablecoin", Symbol: "DAI", Decimals: 18}, meta)
	calls := caller.Calls()

	_, err = c.GetTokenMeta(context.Background(), 1, token.Hex())
	require.NoError(t, err)
	assert.Equal(t, calls, caller.Calls())

	_, err = c.GetTokenMeta(context.Background(), 5, token.Hex())
	assert.Error(t, err)
}
