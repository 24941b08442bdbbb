package strategy

import (
	"context"
	"net/http"
	"strings"

	"github.com/fachebot/cross-swap-api/internal/address"
	"github.com/fachebot/cross-swap-api/internal/dexagg"
	"github.com/fachebot/cross-swap-api/internal/dexagg/uniswap"
	"github.com/fachebot/cross-swap-api/internal/entrypoint"
	"github.com/fachebot/cross-swap-api/internal/logger"
	"github.com/fachebot/cross-swap-api/internal/model"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/samber/lo"
)

var uniswapSources = []string{"uniswap_v2", "uniswap_v3", "uniswap_v4"}

// UniswapApi quotes through the Uniswap trading API.
type UniswapApi struct {
	base
	client *uniswap.Client
}

func NewUniswapApi(chains ChainSource, entryPoints *entrypoint.Resolver, client *uniswap.Client) *UniswapApi {
	return &UniswapApi{
		base:   base{key: KeyUniswapApi, chains: chains, entryPoints: entryPoints},
		client: client,
	}
}

func (s *UniswapApi) Ecosystem() address.Ecosystem {
	return address.EVM
}

func (s *UniswapApi) GetRouter(chainId int64) (model.RouterContract, error) {
	chain, err := s.chain(chainId)
	if err != nil {
		return model.RouterContract{}, err
	}
	return s.router(chainId, "UniversalRouter", chain.UniswapV3.UniversalRouter, model.TransferTypeApproval)
}

func (s *UniswapApi) GetOriginEntryPoints(chainId int64) (OriginEntryPoints, error) {
	return s.peripheryEntryPoints(chainId)
}

func (s *UniswapApi) GetSources(chainId int64) []string {
	return uniswapSources
}

func (s *UniswapApi) quoteRequest(swap model.Swap, tradeType model.AmountType) (uniswap.QuoteRequest, error) {
	tokenIn, err := evmHex(swap.TokenIn.Address)
	if err != nil {
		return uniswap.QuoteRequest{}, err
	}
	tokenOut, err := evmHex(swap.TokenOut.Address)
	if err != nil {
		return uniswap.QuoteRequest{}, err
	}

	req := uniswap.QuoteRequest{
		Type:              uniswap.TradeTypeExactInput,
		Amount:            swap.Amount.String(),
		TokenInChainId:    swap.ChainId,
		TokenOutChainId:   swap.ChainId,
		TokenIn:           tokenIn,
		TokenOut:          tokenOut,
		SlippageTolerance: swap.SlippageTolerance,
	}
	if venueTradeType(tradeType) == model.ExactOutput {
		req.Type = uniswap.TradeTypeExactOutput
	}
	if swap.Recipient.IsValid() {
		if req.Swapper, err = evmHex(swap.Recipient); err != nil {
			return uniswap.QuoteRequest{}, err
		}
	}

	sources := filterSources(s.key, uniswapSources, swap.Sources)
	if len(sources) < len(uniswapSources) {
		req.Protocols = lo.Map(sources, func(item string, _ int) string {
			return strings.ToUpper(strings.TrimPrefix(item, "uniswap_"))
		})
	}
	return req, nil
}

func (s *UniswapApi) Fetch(ctx context.Context, swap model.Swap, tradeType model.AmountType, opts FetchOptions) (*model.SwapQuote, error) {
	if err := s.checkEcosystem(swap, address.EVM); err != nil {
		return nil, err
	}
	if _, err := s.chain(swap.ChainId); err != nil {
		return nil, err
	}

	req, err := s.quoteRequest(swap, tradeType)
	if err != nil {
		return nil, err
	}
	sources := filterSources(s.key, uniswapSources, swap.Sources)
	if len(sources) == 0 {
		return nil, noRoute(s.key, swap, tradeType)
	}
	provider := model.SwapProvider{Name: "uniswap", Sources: sources}

	if opts.UseIndicativeQuote {
		in, out, err := s.indicative(ctx, req)
		if err != nil {
			return nil, venueError(s.key, swap, tradeType, err, uniswap.IsNoRoute)
		}
		return newSwapQuote(quoteArgs{
			swap: swap, tradeType: tradeType,
			expectedIn: in.Amount.Big(), expectedOut: out.Amount.Big(),
			provider: provider, indicative: true,
		}), nil
	}

	quote, err := s.client.Quote(ctx, req)
	if err != nil {
		return nil, venueError(s.key, swap, tradeType, err, uniswap.IsNoRoute)
	}
	tx, err := s.client.Swap(ctx, quote.Quote)
	if err != nil {
		return nil, venueError(s.key, swap, tradeType, err, nil)
	}
	data, err := hexutil.Decode(tx.Data)
	if err != nil {
		return nil, dexagg.Upstream(err)
	}

	return newSwapQuote(quoteArgs{
		swap:        swap,
		tradeType:   tradeType,
		expectedIn:  quote.Classic.Input.Amount.Big(),
		expectedOut: quote.Classic.Output.Amount.Big(),
		txns:        []model.SwapTxn{{To: tx.To, Data: data, Value: tx.Value.Big()}},
		provider:    provider,
	}), nil
}

// indicative falls back to the full quote when the pair has no lightweight
// quote (404).
func (s *UniswapApi) indicative(ctx context.Context, req uniswap.QuoteRequest) (uniswap.TokenAmount, uniswap.TokenAmount, error) {
	res, err := s.client.IndicativeQuote(ctx, req)
	if err == nil {
		return res.Input, res.Output, nil
	}
	if !dexagg.IsStatus(err, http.StatusNotFound) {
		return uniswap.TokenAmount{}, uniswap.TokenAmount{}, err
	}

	logger.Debugf("[UniswapApi] 指示性报价不可用, 回退到完整报价, tokenIn: %s, tokenOut: %s", req.TokenIn, req.TokenOut)
	quote, err := s.client.Quote(ctx, req)
	if err != nil {
		return uniswap.TokenAmount{}, uniswap.TokenAmount{}, err
	}
	return quote.Classic.Input, quote.Classic.Output, nil
}
