package strategy

import (
	"context"
	"fmt"
	"math/big"

	"github.com/fachebot/cross-swap-api/internal/address"
	"github.com/fachebot/cross-swap-api/internal/apierr"
	"github.com/fachebot/cross-swap-api/internal/config"
	"github.com/fachebot/cross-swap-api/internal/entrypoint"
	"github.com/fachebot/cross-swap-api/internal/model"
	"github.com/fachebot/cross-swap-api/internal/utils/evm"

	"github.com/ethereum/go-ethereum/common"
	"github.com/samber/lo"
)

// Lookup finds another registered strategy by source key.
type Lookup interface {
	Get(key string) (QuoteFetchStrategy, bool)
}

// WrappedToken handles a token and its 1:1 wrapper (GHO/WGHO). Same-asset
// pairs are a direct wrap or unwrap. Anything else is wrapped first and the
// rest of the route is delegated to another strategy.
type WrappedToken struct {
	base
	strategies Lookup
}

func NewWrappedToken(chains ChainSource, entryPoints *entrypoint.Resolver, strategies Lookup) *WrappedToken {
	return &WrappedToken{
		base:       base{key: KeyWrappedGho, chains: chains, entryPoints: entryPoints},
		strategies: strategies,
	}
}

func (s *WrappedToken) Ecosystem() address.Ecosystem {
	return address.EVM
}

func (s *WrappedToken) pairs(chainId int64) []config.WrappedPair {
	chain, err := s.chain(chainId)
	if err != nil {
		return nil
	}
	return chain.WrappedPairs
}

func (s *WrappedToken) findPair(token model.Token) (config.WrappedPair, bool) {
	addr, err := token.Address.ToEvmAddress()
	if err != nil {
		return config.WrappedPair{}, false
	}
	return lo.Find(s.pairs(token.ChainId), func(p config.WrappedPair) bool {
		return common.HexToAddress(p.Token) == addr || common.HexToAddress(p.Wrapped) == addr
	})
}

func (s *WrappedToken) GetRouter(chainId int64) (model.RouterContract, error) {
	pairs := s.pairs(chainId)
	if len(pairs) == 0 {
		return model.RouterContract{}, apierr.UnsupportedDexOnChain(s.key, chainId)
	}
	return s.router(chainId, "Wrapper", pairs[0].Wrapped, model.TransferTypeApproval)
}

func (s *WrappedToken) GetOriginEntryPoints(chainId int64) (OriginEntryPoints, error) {
	return s.peripheryEntryPoints(chainId)
}

func (s *WrappedToken) GetSources(chainId int64) []string {
	return []string{"gho"}
}

func (s *WrappedToken) Fetch(ctx context.Context, swap model.Swap, tradeType model.AmountType, opts FetchOptions) (*model.SwapQuote, error) {
	if err := s.checkEcosystem(swap, address.EVM); err != nil {
		return nil, err
	}

	pair, ok := s.findPair(swap.TokenIn)
	if !ok {
		return nil, noRoute(s.key, swap, tradeType)
	}
	token := common.HexToAddress(pair.Token)
	wrapped := common.HexToAddress(pair.Wrapped)
	tokenIn, _ := swap.TokenIn.Address.ToEvmAddress()
	tokenOut, _ := swap.TokenOut.Address.ToEvmAddress()

	switch {
	case tokenIn == token && tokenOut == wrapped:
		return s.direct(swap, tradeType, wrapped, "depositFor")
	case tokenIn == wrapped && tokenOut == token:
		return s.direct(swap, tradeType, wrapped, "withdrawTo")
	case tokenIn == token:
		return s.delegate(ctx, swap, tradeType, opts, pair)
	}
	return nil, noRoute(s.key, swap, tradeType)
}

// direct encodes a single wrap/unwrap at 1:1 with no slippage.
func (s *WrappedToken) direct(swap model.Swap, tradeType model.AmountType, wrapper common.Address, method string) (*model.SwapQuote, error) {
	recipient, err := swap.Recipient.ToEvmAddress()
	if err != nil {
		return nil, fmt.Errorf("swap recipient: %w", err)
	}
	data, err := evm.WrapperABI.Pack(method, recipient, swap.Amount)
	if err != nil {
		return nil, err
	}

	return newSwapQuote(quoteArgs{
		swap:         swap,
		tradeType:    tradeType,
		expectedIn:   swap.Amount,
		expectedOut:  swap.Amount,
		txns:         []model.SwapTxn{{To: wrapper.Hex(), Data: data, Value: new(big.Int)}},
		provider:     model.SwapProvider{Name: s.key, Sources: s.GetSources(swap.ChainId)},
		zeroSlippage: true,
	}), nil
}

// delegate swaps the wrapped form through the pair's delegate strategy. The
// calls run in the multicall handler: approve the wrapper, wrap into the
// handler, then the delegate's swap.
func (s *WrappedToken) delegate(ctx context.Context, swap model.Swap, tradeType model.AmountType, opts FetchOptions, pair config.WrappedPair) (*model.SwapQuote, error) {
	delegate, ok := s.strategies.Get(pair.Delegate)
	if !ok || delegate.Name() == s.key {
		return nil, apierr.UnsupportedDex(pair.Delegate)
	}

	handler, err := s.entryPoints.MulticallHandler(swap.ChainId)
	if err != nil {
		return nil, err
	}
	wrapped, err := address.ParseEvm(pair.Wrapped)
	if err != nil {
		return nil, err
	}

	inner := swap
	inner.TokenIn = model.Token{
		Address:  wrapped,
		ChainId:  swap.ChainId,
		Decimals: swap.TokenIn.Decimals,
		Symbol:   "W" + swap.TokenIn.Symbol,
	}
	inner.Recipient = handler.Address

	quote, err := delegate.Fetch(ctx, inner, tradeType, opts)
	if err != nil {
		return nil, err
	}

	result := *quote
	result.TokenIn = swap.TokenIn
	result.SwapProvider = model.SwapProvider{
		Name:    quote.SwapProvider.Name,
		Sources: append(s.GetSources(swap.ChainId), quote.SwapProvider.Sources...),
	}
	if opts.UseIndicativeQuote {
		return &result, nil
	}

	amount := quote.MaximumAmountIn
	handlerAddr, _ := handler.Address.ToEvmAddress()
	approveData, err := evm.EncodeERC20ApproveInput(pair.Wrapped, amount)
	if err != nil {
		return nil, err
	}
	depositData, err := evm.WrapperABI.Pack("depositFor", handlerAddr, amount)
	if err != nil {
		return nil, err
	}

	result.SwapTxns = append([]model.SwapTxn{
		{To: common.HexToAddress(pair.Token).Hex(), Data: approveData, Value: new(big.Int)},
		{To: common.HexToAddress(pair.Wrapped).Hex(), Data: depositData, Value: new(big.Int)},
	}, quote.SwapTxns...)
	return &result, nil
}
