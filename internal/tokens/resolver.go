package tokens

import (
	"context"
	"fmt"

	"github.com/fachebot/cross-swap-api/internal/address"
	"github.com/fachebot/cross-swap-api/internal/apierr"
	"github.com/fachebot/cross-swap-api/internal/cache"
	"github.com/fachebot/cross-swap-api/internal/logger"
	"github.com/fachebot/cross-swap-api/internal/model"
	"github.com/fachebot/cross-swap-api/internal/svmrpc"
)

// Resolver turns request token addresses into model.Token values. Listed tokens
// come from the registry, others are read on chain.
type Resolver struct {
	registry  *Registry
	metaCache *cache.TokenMetaCache
	svm       map[int64]svmrpc.Reader
}

func NewResolver(registry *Registry, metaCache *cache.TokenMetaCache, svm map[int64]svmrpc.Reader) *Resolver {
	return &Resolver{registry: registry, metaCache: metaCache, svm: svm}
}

func (r *Resolver) Registry() *Registry {
	return r.registry
}

// Resolve parses raw in the chain's ecosystem. The native sentinel resolves to
// the wrapped native token with isNative set.
func (r *Resolver) Resolve(ctx context.Context, param string, chainId int64, raw string) (model.Token, bool, error) {
	eco, ok := r.registry.Ecosystem(chainId)
	if !ok {
		return model.Token{}, false, apierr.InvalidParam(param, "unsupported chain %d", chainId)
	}

	addr, err := address.Parse(raw, eco)
	if err != nil {
		return model.Token{}, false, apierr.InvalidParam(param, "invalid %s token address %q", eco, raw)
	}

	if addr.IsZero() {
		wrapped, ok := r.registry.WrappedNative(chainId)
		if !ok {
			return model.Token{}, false, apierr.InvalidParam(param, "chain %d has no wrapped native token", chainId)
		}
		return wrapped, true, nil
	}

	if token, ok := r.registry.Lookup(chainId, addr); ok {
		return token, false, nil
	}

	token, err := r.resolveOnChain(ctx, chainId, addr)
	if err != nil {
		logger.Debugf("[TokenResolver] 读取代币元数据失败, chainId: %d, token: %s, %v", chainId, addr, err)
		return model.Token{}, false, apierr.InvalidParam(param, "unknown token %s on chain %d", addr, chainId)
	}
	return token, false, nil
}

func (r *Resolver) resolveOnChain(ctx context.Context, chainId int64, addr address.Address) (model.Token, error) {
	switch addr.Ecosystem() {
	case address.EVM:
		if r.metaCache == nil {
			return model.Token{}, fmt.Errorf("no metadata source")
		}
		meta, err := r.metaCache.GetTokenMeta(ctx, chainId, addr.String())
		if err != nil {
			return model.Token{}, err
		}
		return model.Token{Address: addr, ChainId: chainId, Decimals: meta.Decimals, Symbol: meta.Symbol}, nil
	case address.SVM:
		reader, ok := r.svm[chainId]
		if !ok {
			return model.Token{}, fmt.Errorf("no svm reader for chain %d", chainId)
		}
		mint, err := addr.ToPublicKey()
		if err != nil {
			return model.Token{}, err
		}
		decimals, err := reader.MintDecimals(ctx, mint)
		if err != nil {
			return model.Token{}, err
		}
		symbol := addr.String()
		if len(symbol) > 6 {
			symbol = symbol[:6]
		}
		return model.Token{Address: addr, ChainId: chainId, Decimals: decimals, Symbol: symbol}, nil
	}
	return model.Token{}, fmt.Errorf("unknown ecosystem")
}
