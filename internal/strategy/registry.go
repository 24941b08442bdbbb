package strategy

import (
	"slices"

	"github.com/fachebot/cross-swap-api/internal/address"
	"github.com/fachebot/cross-swap-api/internal/apierr"
	"github.com/fachebot/cross-swap-api/internal/model"

	"github.com/samber/lo"
)

// Registry maps source keys to strategies. Which keys are active on a chain
// comes from the chain's Venues list.
type Registry struct {
	chains     ChainSource
	strategies map[string]QuoteFetchStrategy
}

func NewRegistry(chains ChainSource) *Registry {
	return &Registry{chains: chains, strategies: make(map[string]QuoteFetchStrategy)}
}

func (r *Registry) Register(strategies ...QuoteFetchStrategy) {
	for _, s := range strategies {
		r.strategies[s.Name()] = s
	}
}

func (r *Registry) Get(key string) (QuoteFetchStrategy, bool) {
	s, ok := r.strategies[key]
	return s, ok
}

// known reports whether name is a registered key or a source tag of one.
func (r *Registry) known(name string, chainId int64) bool {
	if _, ok := r.strategies[name]; ok {
		return true
	}
	for _, s := range r.strategies {
		if slices.Contains(s.GetSources(chainId), name) {
			return true
		}
	}
	return false
}

func matches(s QuoteFetchStrategy, chainId int64, names []string) bool {
	if slices.Contains(names, s.Name()) {
		return true
	}
	return lo.Some(s.GetSources(chainId), names)
}

// Candidates lists the strategies allowed to serve a leg on chainId.
func (r *Registry) Candidates(chainId int64, ecosystem address.Ecosystem, filter model.SourcesFilter) ([]QuoteFetchStrategy, error) {
	chain, ok := r.chains.Chain(chainId)
	if !ok {
		return nil, apierr.UnsupportedRoute(apierr.CodeUnsupportedRoute, "chain %d is not supported", chainId)
	}

	for _, name := range filter.Include {
		if !r.known(name, chainId) {
			return nil, apierr.UnsupportedDex(name)
		}
	}

	candidates := make([]QuoteFetchStrategy, 0, len(chain.Venues))
	for _, key := range chain.Venues {
		s, ok := r.strategies[key]
		if !ok {
			continue
		}
		if s.Ecosystem() != ecosystem {
			return nil, apierr.EcosystemMismatch(key, chainId, string(ecosystem))
		}
		if len(filter.Include) > 0 && !matches(s, chainId, filter.Include) {
			continue
		}
		if len(filter.Exclude) > 0 {
			if slices.Contains(filter.Exclude, key) {
				continue
			}
			if sources := s.GetSources(chainId); len(sources) > 0 && lo.Every(filter.Exclude, sources) {
				continue
			}
		}
		candidates = append(candidates, s)
	}

	if len(candidates) == 0 {
		dex := "any"
		if len(filter.Include) > 0 {
			dex = filter.Include[0]
		}
		return nil, apierr.UnsupportedDexOnChain(dex, chainId)
	}
	return candidates, nil
}
