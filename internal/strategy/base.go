package strategy

import (
	"slices"

	"github.com/fachebot/cross-swap-api/internal/address"
	"github.com/fachebot/cross-swap-api/internal/apierr"
	"github.com/fachebot/cross-swap-api/internal/config"
	"github.com/fachebot/cross-swap-api/internal/entrypoint"
	"github.com/fachebot/cross-swap-api/internal/model"
)

type ChainSource interface {
	Chain(chainId int64) (*config.Chain, bool)
}

// base carries what every strategy needs to resolve per-chain contracts.
type base struct {
	key         string
	chains      ChainSource
	entryPoints *entrypoint.Resolver
}

func (b base) Name() string {
	return b.key
}

func (b base) chain(chainId int64) (*config.Chain, error) {
	chain, ok := b.chains.Chain(chainId)
	if !ok || !slices.Contains(chain.Venues, b.key) {
		return nil, apierr.UnsupportedDexOnChain(b.key, chainId)
	}
	return chain, nil
}

func (b base) router(chainId int64, name, value string, t model.TransferType) (model.RouterContract, error) {
	chain, err := b.chain(chainId)
	if err != nil {
		return model.RouterContract{}, err
	}
	if value == "" {
		return model.RouterContract{}, apierr.UnsupportedDexOnChain(b.key, chainId)
	}
	addr, err := address.Parse(value, chain.EcosystemType())
	if err != nil {
		return model.RouterContract{}, apierr.UnsupportedDexOnChain(b.key, chainId)
	}
	return model.RouterContract{Name: name, Address: addr, TransferType: transferType(t)}, nil
}

// peripheryEntryPoints is the default for EVM venues: swaps go through the
// periphery, plain deposits to the spoke pool.
func (b base) peripheryEntryPoints(chainId int64) (OriginEntryPoints, error) {
	if _, err := b.chain(chainId); err != nil {
		return OriginEntryPoints{}, err
	}
	periphery, err := b.entryPoints.Periphery(chainId)
	if err != nil {
		return OriginEntryPoints{}, err
	}
	spokePool, err := b.entryPoints.SpokePool(chainId)
	if err != nil {
		return OriginEntryPoints{}, err
	}
	return OriginEntryPoints{SwapAndBridge: periphery, Deposit: spokePool}, nil
}

func (b base) checkEcosystem(swap model.Swap, want address.Ecosystem) error {
	if swap.TokenIn.Ecosystem() != want || swap.TokenOut.Ecosystem() != want {
		return apierr.EcosystemMismatch(b.key, swap.ChainId, string(want))
	}
	return nil
}

func evmHex(a address.Address) (string, error) {
	addr, err := a.ToEvmAddress()
	if err != nil {
		return "", err
	}
	return addr.Hex(), nil
}
