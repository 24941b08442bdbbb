package strategy

import (
	"context"

	"github.com/fachebot/cross-swap-api/internal/address"
	"github.com/fachebot/cross-swap-api/internal/dexagg"
	"github.com/fachebot/cross-swap-api/internal/dexagg/jupiter"
	"github.com/fachebot/cross-swap-api/internal/entrypoint"
	"github.com/fachebot/cross-swap-api/internal/model"
)

// Jupiter quotes Solana swaps and returns instruction groups instead of calldata.
type Jupiter struct {
	base
	client *jupiter.Client
}

func NewJupiter(chains ChainSource, entryPoints *entrypoint.Resolver, client *jupiter.Client) *Jupiter {
	return &Jupiter{
		base:   base{key: KeyJupiter, chains: chains, entryPoints: entryPoints},
		client: client,
	}
}

func (s *Jupiter) Ecosystem() address.Ecosystem {
	return address.SVM
}

func (s *Jupiter) GetRouter(chainId int64) (model.RouterContract, error) {
	return s.router(chainId, "JupiterAggregatorV6", jupiter.Router, model.TransferTypeTransfer)
}

// GetOriginEntryPoints is the SVM spoke program for both flows: the swap and
// the deposit are instructions of the same transaction.
func (s *Jupiter) GetOriginEntryPoints(chainId int64) (OriginEntryPoints, error) {
	if _, err := s.chain(chainId); err != nil {
		return OriginEntryPoints{}, err
	}
	spoke, err := s.entryPoints.SpokePool(chainId)
	if err != nil {
		return OriginEntryPoints{}, err
	}
	return OriginEntryPoints{SwapAndBridge: spoke, Deposit: spoke}, nil
}

func (s *Jupiter) GetSources(chainId int64) []string {
	return []string{"jupiter"}
}

func (s *Jupiter) Fetch(ctx context.Context, swap model.Swap, tradeType model.AmountType, opts FetchOptions) (*model.SwapQuote, error) {
	if err := s.checkEcosystem(swap, address.SVM); err != nil {
		return nil, err
	}
	if _, err := s.chain(swap.ChainId); err != nil {
		return nil, err
	}

	inputMint, _ := swap.TokenIn.Address.ToBase58()
	outputMint, _ := swap.TokenOut.Address.ToBase58()
	req := jupiter.QuoteRequest{
		InputMint:   inputMint,
		OutputMint:  outputMint,
		Amount:      swap.Amount.String(),
		SlippageBps: slippageBps(swap.SlippageTolerance),
		SwapMode:    jupiter.SwapModeExactIn,
	}
	if venueTradeType(tradeType) == model.ExactOutput {
		req.SwapMode = jupiter.SwapModeExactOut
	}

	quote, err := s.client.Quote(ctx, req)
	if err != nil {
		return nil, venueError(s.key, swap, tradeType, err, jupiter.IsNoRoute)
	}

	args := quoteArgs{
		swap:        swap,
		tradeType:   tradeType,
		expectedIn:  quote.InAmount.Big(),
		expectedOut: quote.OutAmount.Big(),
		provider:    model.SwapProvider{Name: "jupiter", Sources: quote.Labels()},
		indicative:  opts.UseIndicativeQuote,
	}
	if opts.UseIndicativeQuote {
		return newSwapQuote(args), nil
	}

	user, err := swap.Recipient.ToBase58()
	if err != nil {
		return nil, err
	}
	instructions, err := s.client.SwapInstructions(ctx, user, quote)
	if err != nil {
		return nil, venueError(s.key, swap, tradeType, err, jupiter.IsNoRoute)
	}
	args.svm, err = instructions.ToModel()
	if err != nil {
		return nil, dexagg.Upstream(err)
	}
	return newSwapQuote(args), nil
}
