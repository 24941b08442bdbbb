package strategy

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/fachebot/cross-swap-api/internal/address"
	"github.com/fachebot/cross-swap-api/internal/cache"
	"github.com/fachebot/cross-swap-api/internal/entrypoint"
	"github.com/fachebot/cross-swap-api/internal/logger"
	"github.com/fachebot/cross-swap-api/internal/model"
	"github.com/fachebot/cross-swap-api/internal/utils/evm"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
)

// v3Router is the per-chain on-chain router deployment. Built once per chain
// and shared across requests.
type v3Router struct {
	chainId  int64
	quoter   common.Address
	router   common.Address
	feeTiers []uint32
	caller   ethereum.ContractCaller
}

type quoteExactInputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	AmountIn          *big.Int
	Fee               *big.Int
	SqrtPriceLimitX96 *big.Int
}

type quoteExactOutputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Amount            *big.Int
	Fee               *big.Int
	SqrtPriceLimitX96 *big.Int
}

type exactInputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Fee               *big.Int
	Recipient         common.Address
	AmountIn          *big.Int
	AmountOutMinimum  *big.Int
	SqrtPriceLimitX96 *big.Int
}

type exactOutputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Fee               *big.Int
	Recipient         common.Address
	AmountOut         *big.Int
	AmountInMaximum   *big.Int
	SqrtPriceLimitX96 *big.Int
}

type tierQuote struct {
	fee    uint32
	amount *big.Int
}

// bestTier quotes every fee tier concurrently. Reverting tiers have no pool
// or no liquidity and are skipped.
func (r *v3Router) bestTier(ctx context.Context, tokenIn, tokenOut common.Address, amount *big.Int, exactInput bool) (*tierQuote, error) {
	var (
		mutex sync.Mutex
		best  *tierQuote
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, fee := range r.feeTiers {
		g.Go(func() error {
			var (
				method string
				params any
			)
			if exactInput {
				method = "quoteExactInputSingle"
				params = quoteExactInputSingleParams{tokenIn, tokenOut, amount, big.NewInt(int64(fee)), new(big.Int)}
			} else {
				method = "quoteExactOutputSingle"
				params = quoteExactOutputSingleParams{tokenIn, tokenOut, amount, big.NewInt(int64(fee)), new(big.Int)}
			}

			result, err := evm.CallView(gctx, r.caller, evm.QuoterV2ABI, r.quoter, method, params)
			if err != nil {
				logger.Debugf("[UniswapRouter] 费率档位报价失败, chainId: %d, fee: %d, %v", r.chainId, fee, err)
				return nil
			}
			values, err := evm.QuoterV2ABI.Unpack(method, result)
			if err != nil || len(values) == 0 {
				return nil
			}
			quoted, ok := values[0].(*big.Int)
			if !ok || quoted.Sign() <= 0 {
				return nil
			}

			mutex.Lock()
			defer mutex.Unlock()
			if best == nil ||
				(exactInput && quoted.Cmp(best.amount) > 0) ||
				(!exactInput && quoted.Cmp(best.amount) < 0) ||
				(quoted.Cmp(best.amount) == 0 && fee < best.fee) {
				best = &tierQuote{fee: fee, amount: quoted}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return best, nil
}

// UniswapRouter quotes QuoterV2 directly and encodes SwapRouter02 calls.
type UniswapRouter struct {
	base
	routers *cache.RouterCache[*v3Router]
	callers cache.CallerSource
}

func NewUniswapRouter(chains ChainSource, entryPoints *entrypoint.Resolver, routers *cache.RouterCache[*v3Router], callers cache.CallerSource) *UniswapRouter {
	return &UniswapRouter{
		base:    base{key: KeyUniswapRouter, chains: chains, entryPoints: entryPoints},
		routers: routers,
		callers: callers,
	}
}

// NewV3RouterCache is the injected router cache for UniswapRouter.
func NewV3RouterCache() *cache.RouterCache[*v3Router] {
	return cache.NewRouterCache[*v3Router]()
}

func (s *UniswapRouter) Ecosystem() address.Ecosystem {
	return address.EVM
}

func (s *UniswapRouter) instance(chainId int64) (*v3Router, error) {
	return s.routers.GetOrCreate(chainId, func() (*v3Router, error) {
		chain, err := s.chain(chainId)
		if err != nil {
			return nil, err
		}
		if !common.IsHexAddress(chain.UniswapV3.QuoterV2) || !common.IsHexAddress(chain.UniswapV3.SwapRouter02) {
			return nil, fmt.Errorf("uniswap v3 is not configured on chain %d", chainId)
		}
		caller, err := s.callers(chainId)
		if err != nil {
			return nil, err
		}

		logger.Debugf("[UniswapRouter] 创建路由实例, chainId: %d, feeTiers: %v", chainId, chain.UniswapV3.FeeTiers)
		return &v3Router{
			chainId:  chainId,
			quoter:   common.HexToAddress(chain.UniswapV3.QuoterV2),
			router:   common.HexToAddress(chain.UniswapV3.SwapRouter02),
			feeTiers: append([]uint32(nil), chain.UniswapV3.FeeTiers...),
			caller:   caller,
		}, nil
	})
}

func (s *UniswapRouter) GetRouter(chainId int64) (model.RouterContract, error) {
	chain, err := s.chain(chainId)
	if err != nil {
		return model.RouterContract{}, err
	}
	return s.router(chainId, "SwapRouter02", chain.UniswapV3.SwapRouter02, model.TransferTypeApproval)
}

func (s *UniswapRouter) GetOriginEntryPoints(chainId int64) (OriginEntryPoints, error) {
	return s.peripheryEntryPoints(chainId)
}

func (s *UniswapRouter) GetSources(chainId int64) []string {
	return []string{"uniswap_v3"}
}

func (s *UniswapRouter) Fetch(ctx context.Context, swap model.Swap, tradeType model.AmountType, opts FetchOptions) (*model.SwapQuote, error) {
	if err := s.checkEcosystem(swap, address.EVM); err != nil {
		return nil, err
	}
	sources := filterSources(s.key, s.GetSources(swap.ChainId), swap.Sources)
	if len(sources) == 0 {
		return nil, noRoute(s.key, swap, tradeType)
	}

	if _, err := s.chain(swap.ChainId); err != nil {
		return nil, err
	}
	r, err := s.instance(swap.ChainId)
	if err != nil {
		return nil, err
	}

	tokenIn, _ := swap.TokenIn.Address.ToEvmAddress()
	tokenOut, _ := swap.TokenOut.Address.ToEvmAddress()
	exactInput := venueTradeType(tradeType) == model.ExactInput

	best, err := r.bestTier(ctx, tokenIn, tokenOut, swap.Amount, exactInput)
	if err != nil {
		return nil, err
	}
	if best == nil {
		return nil, noRoute(s.key, swap, tradeType)
	}

	args := quoteArgs{
		swap:       swap,
		tradeType:  tradeType,
		provider:   model.SwapProvider{Name: "uniswap", Sources: sources},
		indicative: opts.UseIndicativeQuote,
	}
	if exactInput {
		args.expectedOut = best.amount
	} else {
		args.expectedIn = best.amount
	}
	quote := newSwapQuote(args)
	if opts.UseIndicativeQuote {
		return quote, nil
	}

	recipient, err := swap.Recipient.ToEvmAddress()
	if err != nil {
		return nil, fmt.Errorf("swap recipient: %w", err)
	}

	var data []byte
	fee := big.NewInt(int64(best.fee))
	if exactInput {
		data, err = evm.SwapRouter02ABI.Pack("exactInputSingle", exactInputSingleParams{
			tokenIn, tokenOut, fee, recipient, quote.ExpectedAmountIn, quote.MinAmountOut, new(big.Int),
		})
	} else {
		data, err = evm.SwapRouter02ABI.Pack("exactOutputSingle", exactOutputSingleParams{
			tokenIn, tokenOut, fee, recipient, quote.MinAmountOut, quote.MaximumAmountIn, new(big.Int),
		})
	}
	if err != nil {
		return nil, fmt.Errorf("encode router call: %w", err)
	}

	quote.SwapTxns = []model.SwapTxn{{To: r.router.Hex(), Data: data, Value: new(big.Int)}}
	return quote, nil
}
