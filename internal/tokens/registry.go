package tokens

import (
	"fmt"
	"strings"

	"github.com/fachebot/cross-swap-api/internal/address"
	"github.com/fachebot/cross-swap-api/internal/config"
	"github.com/fachebot/cross-swap-api/internal/model"

	"github.com/samber/lo"
)

type entry struct {
	token      model.Token
	bridgeable bool
}

// Registry is the static per-chain token list loaded at startup.
type Registry struct {
	chains  map[int64]*config.Chain
	byChain map[int64][]entry
	native  map[int64]model.Token
}

func NewRegistry(c *config.Config) (*Registry, error) {
	r := &Registry{
		chains:  make(map[int64]*config.Chain),
		byChain: make(map[int64][]entry),
		native:  make(map[int64]model.Token),
	}

	for idx := range c.Chains {
		chain := &c.Chains[idx]
		eco := chain.EcosystemType()
		r.chains[chain.Id] = chain

		for _, item := range chain.Tokens {
			addr, err := address.Parse(item.Address, eco)
			if err != nil {
				return nil, fmt.Errorf("chain %d token %s: %w", chain.Id, item.Symbol, err)
			}
			r.byChain[chain.Id] = append(r.byChain[chain.Id], entry{
				token: model.Token{
					Address:  addr,
					ChainId:  chain.Id,
					Decimals: item.Decimals,
					Symbol:   item.Symbol,
				},
				bridgeable: item.Bridgeable,
			})
		}

		if chain.WrappedNative == "" {
			continue
		}
		wrapped, err := address.Parse(chain.WrappedNative, eco)
		if err != nil {
			return nil, fmt.Errorf("chain %d wrapped native: %w", chain.Id, err)
		}
		token, ok := r.Lookup(chain.Id, wrapped)
		if !ok {
			token = model.Token{
				Address:  wrapped,
				ChainId:  chain.Id,
				Decimals: chain.NativeCurrency.Decimals,
				Symbol:   "W" + chain.NativeCurrency.Symbol,
			}
		}
		r.native[chain.Id] = token
	}

	return r, nil
}

func (r *Registry) Chain(chainId int64) (*config.Chain, bool) {
	chain, ok := r.chains[chainId]
	return chain, ok
}

func (r *Registry) Ecosystem(chainId int64) (address.Ecosystem, bool) {
	chain, ok := r.chains[chainId]
	if !ok {
		return "", false
	}
	return chain.EcosystemType(), true
}

func (r *Registry) Lookup(chainId int64, addr address.Address) (model.Token, bool) {
	item, ok := lo.Find(r.byChain[chainId], func(e entry) bool {
		return e.token.Address.Equal(addr)
	})
	return item.token, ok
}

func (r *Registry) BySymbol(chainId int64, symbol string) (model.Token, bool) {
	item, ok := lo.Find(r.byChain[chainId], func(e entry) bool {
		return strings.EqualFold(e.token.Symbol, symbol)
	})
	return item.token, ok
}

// IsBridgeable reports whether the bridge accepts or delivers exactly this
// token on its chain.
func (r *Registry) IsBridgeable(token model.Token) bool {
	return lo.ContainsBy(r.byChain[token.ChainId], func(e entry) bool {
		return e.bridgeable && e.token.Address.Equal(token.Address)
	})
}

func (r *Registry) WrappedNative(chainId int64) (model.Token, bool) {
	token, ok := r.native[chainId]
	return token, ok
}

// NativeToken describes the chain's gas asset. Its address is the zero sentinel.
func (r *Registry) NativeToken(chainId int64) (model.Token, bool) {
	chain, ok := r.chains[chainId]
	if !ok {
		return model.Token{}, false
	}
	var sentinel address.Address
	if chain.EcosystemType() == address.SVM {
		sentinel = address.FromSvm([32]byte{})
	} else {
		sentinel, _ = address.FromBytes32([32]byte{}, address.EVM)
	}
	return model.Token{
		Address:  sentinel,
		ChainId:  chainId,
		Decimals: chain.NativeCurrency.Decimals,
		Symbol:   chain.NativeCurrency.Symbol,
	}, true
}

// Counterpart finds the bridgeable token with the same symbol on another chain.
func (r *Registry) Counterpart(token model.Token, chainId int64) (model.Token, bool) {
	item, ok := lo.Find(r.byChain[chainId], func(e entry) bool {
		return e.bridgeable && strings.EqualFold(e.token.Symbol, token.Symbol)
	})
	return item.token, ok
}

// BridgeTokenPair picks the first preferred symbol bridgeable on both chains.
func (r *Registry) BridgeTokenPair(originChainId, destinationChainId int64, preferred []string) (model.Token, model.Token, bool) {
	for _, symbol := range preferred {
		in, ok := r.BySymbol(originChainId, symbol)
		if !ok || !r.IsBridgeable(in) {
			continue
		}
		out, ok := r.Counterpart(in, destinationChainId)
		if !ok {
			continue
		}
		return in, out, true
	}
	return model.Token{}, model.Token{}, false
}

// BridgeableSymbols lists the bridgeable token symbols of a chain.
func (r *Registry) BridgeableSymbols(chainId int64) []string {
	return lo.FilterMap(r.byChain[chainId], func(e entry, _ int) (string, bool) {
		return e.token.Symbol, e.bridgeable
	})
}
