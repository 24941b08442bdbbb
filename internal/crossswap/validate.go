package crossswap

import (
	"github.com/fachebot/cross-swap-api/internal/address"
	"github.com/fachebot/cross-swap-api/internal/apierr"
	"github.com/fachebot/cross-swap-api/internal/model"
)

const maxSlippageTolerance = 50

type addrCheck struct {
	param string
	addr  address.Address
	want  address.Ecosystem
}

// validate rejects everything that can be decided without a network call.
func (o *Orchestrator) validate(cs model.CrossSwap) error {
	originChainId, destinationChainId := cs.InputToken.ChainId, cs.OutputToken.ChainId

	originEco, ok := o.tokens.Ecosystem(originChainId)
	if !ok {
		return apierr.InvalidParam("originChainId", "chain %d is not supported", originChainId)
	}
	destinationEco, ok := o.tokens.Ecosystem(destinationChainId)
	if !ok {
		return apierr.InvalidParam("destinationChainId", "chain %d is not supported", destinationChainId)
	}
	if originChainId == destinationChainId {
		return apierr.InvalidParam("destinationChainId", "origin and destination chain must differ")
	}

	if cs.IsOriginSvm != (originEco == address.SVM) {
		return apierr.InvalidParam("originChainId", "isOriginSvm does not match chain %d", originChainId)
	}

	checks := []addrCheck{
		{"inputToken", cs.InputToken.Address, originEco},
		{"outputToken", cs.OutputToken.Address, destinationEco},
		{"depositor", cs.Depositor, originEco},
		{"recipient", cs.Recipient, destinationEco},
	}
	if cs.RefundAddress != nil {
		refundEco := originEco
		if !cs.RefundOnOrigin {
			refundEco = destinationEco
		}
		checks = append(checks, addrCheck{"refundAddress", *cs.RefundAddress, refundEco})
	}
	if cs.AppFeeRecipient != nil {
		checks = append(checks, addrCheck{"appFeeRecipient", *cs.AppFeeRecipient, destinationEco})
	}
	for _, item := range checks {
		if !item.addr.IsValid() {
			return apierr.MissingParam(item.param)
		}
		if item.addr.Ecosystem() != item.want {
			return apierr.InvalidParam(item.param, "%s must be an %s address", item.param, item.want)
		}
	}

	if len(cs.Sources.Include) > 0 && len(cs.Sources.Exclude) > 0 {
		return apierr.InvalidParam("includeSources", "includeSources and excludeSources are mutually exclusive")
	}
	if cs.SlippageTolerance < 0 || cs.SlippageTolerance > maxSlippageTolerance {
		return apierr.InvalidParam("slippageTolerance", "slippageTolerance must be between 0 and %d", maxSlippageTolerance)
	}
	if cs.Amount == nil || cs.Amount.Sign() <= 0 {
		return apierr.InvalidParam("amount", "amount must be a positive integer")
	}

	if cs.AppFeePercent < 0 || cs.AppFeePercent >= 1 {
		return apierr.InvalidParam("appFee", "appFee must be a fraction in [0, 1)")
	}
	if cs.AppFeePercent > 0 && cs.AppFeeRecipient == nil {
		return apierr.MissingParam("appFeeRecipient")
	}

	if destinationEco == address.SVM {
		if !o.tokens.IsBridgeable(cs.OutputToken) {
			return apierr.UnsupportedRoute(apierr.CodeUnsupportedRoute, "swaps on an svm destination are not supported")
		}
		if len(cs.EmbeddedActions) > 0 || cs.AppFeePercent > 0 {
			return apierr.UnsupportedRoute(apierr.CodeUnsupportedRoute, "destination actions are not supported on an svm destination")
		}
	}
	return nil
}
