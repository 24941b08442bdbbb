package crossswap

import (
	"github.com/fachebot/cross-swap-api/internal/apierr"
	"github.com/fachebot/cross-swap-api/internal/model"
	"github.com/fachebot/cross-swap-api/internal/tokens"
)

// Classify picks the route topology from bridgeability alone.
func Classify(inputBridgeable, outputBridgeable bool) model.CrossSwapType {
	switch {
	case inputBridgeable && outputBridgeable:
		return model.BridgeableToBridgeable
	case inputBridgeable:
		return model.BridgeableToAny
	case outputBridgeable:
		return model.AnyToBridgeable
	}
	return model.AnyToAny
}

// route is the classified shape of a cross swap.
type route struct {
	kind        model.CrossSwapType
	bridgeIn    model.Token
	bridgeOut   model.Token
	originSwap  bool
	destSwap    bool
	destHandler *model.EntryPointContract
}

// bridgeTokens resolves the pair the bridge moves for a route type.
func bridgeTokens(registry *tokens.Registry, kind model.CrossSwapType, cs model.CrossSwap, preferred []string) (model.Token, model.Token, error) {
	originChainId, destinationChainId := cs.InputToken.ChainId, cs.OutputToken.ChainId

	switch kind {
	case model.BridgeableToBridgeable:
		return cs.InputToken, cs.OutputToken, nil
	case model.BridgeableToAny:
		out, ok := registry.Counterpart(cs.InputToken, destinationChainId)
		if !ok {
			return model.Token{}, model.Token{}, apierr.UnsupportedRoute(apierr.CodeUnsupportedRoute,
				"%s cannot be bridged to chain %d", cs.InputToken.Symbol, destinationChainId)
		}
		return cs.InputToken, out, nil
	case model.AnyToBridgeable:
		in, ok := registry.Counterpart(cs.OutputToken, originChainId)
		if !ok {
			return model.Token{}, model.Token{}, apierr.UnsupportedRoute(apierr.CodeUnsupportedRoute,
				"%s cannot be bridged from chain %d", cs.OutputToken.Symbol, originChainId)
		}
		return in, cs.OutputToken, nil
	}

	in, out, ok := registry.BridgeTokenPair(originChainId, destinationChainId, preferred)
	if !ok {
		return model.Token{}, model.Token{}, apierr.UnsupportedRoute(apierr.CodeUnsupportedRoute,
			"no bridge token between chain %d and chain %d", originChainId, destinationChainId)
	}
	return in, out, nil
}
