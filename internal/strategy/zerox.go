package strategy

import (
	"context"

	"github.com/fachebot/cross-swap-api/internal/address"
	"github.com/fachebot/cross-swap-api/internal/dexagg"
	"github.com/fachebot/cross-swap-api/internal/dexagg/zerox"
	"github.com/fachebot/cross-swap-api/internal/entrypoint"
	"github.com/fachebot/cross-swap-api/internal/model"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ZeroEx quotes through the 0x allowance-holder API. It only sells exact inputs.
type ZeroEx struct {
	base
	client *zerox.Client
}

func NewZeroEx(chains ChainSource, entryPoints *entrypoint.Resolver, client *zerox.Client) *ZeroEx {
	return &ZeroEx{
		base:   base{key: KeyZeroEx, chains: chains, entryPoints: entryPoints},
		client: client,
	}
}

func (s *ZeroEx) Ecosystem() address.Ecosystem {
	return address.EVM
}

func (s *ZeroEx) GetRouter(chainId int64) (model.RouterContract, error) {
	return s.router(chainId, "AllowanceHolder", zerox.AllowanceHolder, model.TransferTypeApproval)
}

func (s *ZeroEx) GetOriginEntryPoints(chainId int64) (OriginEntryPoints, error) {
	return s.peripheryEntryPoints(chainId)
}

func (s *ZeroEx) GetSources(chainId int64) []string {
	return []string{"0x"}
}

func (s *ZeroEx) Fetch(ctx context.Context, swap model.Swap, tradeType model.AmountType, opts FetchOptions) (*model.SwapQuote, error) {
	if tradeType != model.ExactInput {
		return nil, unsupportedTradeType(s.key, tradeType)
	}
	if err := s.checkEcosystem(swap, address.EVM); err != nil {
		return nil, err
	}
	if _, err := s.chain(swap.ChainId); err != nil {
		return nil, err
	}

	sellToken, err := evmHex(swap.TokenIn.Address)
	if err != nil {
		return nil, err
	}
	buyToken, err := evmHex(swap.TokenOut.Address)
	if err != nil {
		return nil, err
	}
	req := zerox.PriceRequest{
		ChainId:     swap.ChainId,
		SellToken:   sellToken,
		BuyToken:    buyToken,
		SellAmount:  swap.Amount.String(),
		SlippageBps: slippageBps(swap.SlippageTolerance),
	}
	if swap.Recipient.IsValid() {
		if req.Taker, err = evmHex(swap.Recipient); err != nil {
			return nil, err
		}
	}

	fetch := s.client.Quote
	if opts.UseIndicativeQuote {
		fetch = s.client.Price
	}
	quote, err := fetch(ctx, req)
	if err != nil {
		return nil, venueError(s.key, swap, tradeType, err, nil)
	}
	if !quote.LiquidityAvailable {
		return nil, noRoute(s.key, swap, tradeType)
	}

	args := quoteArgs{
		swap:        swap,
		tradeType:   tradeType,
		expectedOut: quote.BuyAmount.Big(),
		provider:    model.SwapProvider{Name: "0x", Sources: quote.Sources()},
		indicative:  opts.UseIndicativeQuote,
	}
	if !opts.UseIndicativeQuote {
		if quote.Transaction == nil {
			return nil, dexagg.Upstream(errNoTransaction)
		}
		data, err := hexutil.Decode(quote.Transaction.Data)
		if err != nil {
			return nil, dexagg.Upstream(err)
		}
		args.txns = []model.SwapTxn{{To: quote.Transaction.To, Data: data, Value: quote.Transaction.Value.Big()}}
	}
	return newSwapQuote(args), nil
}
