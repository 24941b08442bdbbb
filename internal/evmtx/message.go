package evmtx

import (
	"fmt"
	"math/big"

	"github.com/fachebot/cross-swap-api/internal/address"
	"github.com/fachebot/cross-swap-api/internal/model"
	"github.com/fachebot/cross-swap-api/internal/utils/evm"

	"github.com/ethereum/go-ethereum/common"
)

// Call is one step executed by the multicall handler.
type Call struct {
	Target   common.Address
	CallData []byte
	Value    *big.Int
}

type Instructions struct {
	Calls             []Call
	FallbackRecipient common.Address
}

func EncodeInstructions(instructions Instructions) ([]byte, error) {
	data, err := evm.InstructionsArgs.Pack(instructions)
	if err != nil {
		return nil, fmt.Errorf("failed to pack instructions: %w", err)
	}
	return data, nil
}

func txnCalls(txns []model.SwapTxn) []Call {
	calls := make([]Call, 0, len(txns))
	for _, txn := range txns {
		value := txn.Value
		if value == nil {
			value = new(big.Int)
		}
		calls = append(calls, Call{Target: common.HexToAddress(txn.To), CallData: txn.Data, Value: value})
	}
	return calls
}

func drainCall(handler common.Address, token, destination common.Address) (Call, error) {
	data, err := evm.MulticallHandlerABI.Pack("drainLeftoverTokens", token, destination)
	if err != nil {
		return Call{}, err
	}
	return Call{Target: handler, CallData: data, Value: new(big.Int)}, nil
}

func needsApproval(router *model.RouterContract) bool {
	return router == nil || router.TransferType == nil || *router.TransferType == model.TransferTypeApproval
}

// fallbackRecipient gets the bridged tokens when the message reverts.
func fallbackRecipient(cs model.CrossSwap) address.Address {
	if !cs.RefundOnOrigin && cs.RefundAddress != nil {
		return *cs.RefundAddress
	}
	return cs.Recipient
}

// DestinationMessage encodes what the destination handler runs after the
// fill: the swap, the unwrap, the app fee, embedded actions and finally a
// sweep of leftovers to the recipient.
func (b *Builder) DestinationMessage(quotes *model.CrossSwapQuotes) ([]byte, error) {
	cs := quotes.CrossSwap
	handlerContract := quotes.Contracts.DestinationHandler
	if handlerContract == nil {
		return nil, nil
	}
	handler, err := handlerContract.Address.ToEvmAddress()
	if err != nil {
		return nil, fmt.Errorf("destination handler: %w", err)
	}
	recipient, err := cs.Recipient.ToEvmAddress()
	if err != nil {
		return nil, fmt.Errorf("recipient: %w", err)
	}
	fallback, err := fallbackRecipient(cs).ToEvmAddress()
	if err != nil {
		return nil, fmt.Errorf("fallback recipient: %w", err)
	}
	outputToken, err := cs.OutputToken.Address.ToEvmAddress()
	if err != nil {
		return nil, fmt.Errorf("output token: %w", err)
	}

	var calls []Call
	if swap := quotes.DestinationSwapQuote; swap != nil {
		tokenIn, err := swap.TokenIn.Address.ToEvmAddress()
		if err != nil {
			return nil, err
		}
		if needsApproval(quotes.Contracts.DestinationRouter) && len(swap.SwapTxns) > 0 {
			approveData, err := evm.EncodeERC20ApproveInput(swap.SwapTxns[len(swap.SwapTxns)-1].To, quotes.BridgeQuote.OutputAmount)
			if err != nil {
				return nil, err
			}
			calls = append(calls, Call{Target: tokenIn, CallData: approveData, Value: new(big.Int)})
		}
		calls = append(calls, txnCalls(swap.SwapTxns)...)
		// whatever the swap did not consume goes back to the recipient
		drain, err := drainCall(handler, tokenIn, recipient)
		if err != nil {
			return nil, err
		}
		calls = append(calls, drain)
	}

	output := quotes.MinOutputAmount()
	if cs.IsOutputNative {
		withdrawData, err := evm.WrapperABI.Pack("withdraw", quotes.MinOutputAmountSansAppFees())
		if err != nil {
			return nil, err
		}
		calls = append(calls, Call{Target: outputToken, CallData: withdrawData, Value: new(big.Int)})
	}

	if fee := quotes.AppFee; fee != nil && fee.Amount.Sign() > 0 {
		feeRecipient, err := fee.Recipient.ToEvmAddress()
		if err != nil {
			return nil, fmt.Errorf("app fee recipient: %w", err)
		}
		if cs.IsOutputNative {
			calls = append(calls, Call{Target: feeRecipient, Value: new(big.Int).Set(fee.Amount)})
		} else {
			transferData, err := evm.ERC20ABI.Pack("transfer", feeRecipient, fee.Amount)
			if err != nil {
				return nil, err
			}
			calls = append(calls, Call{Target: outputToken, CallData: transferData, Value: new(big.Int)})
		}
	}

	if cs.IsOutputNative {
		calls = append(calls, Call{Target: recipient, Value: output})
	}

	for _, action := range cs.EmbeddedActions {
		value := action.Value
		if value == nil {
			value = new(big.Int)
		}
		calls = append(calls, Call{Target: common.HexToAddress(action.Target), CallData: action.CallData, Value: value})
	}

	drain, err := drainCall(handler, outputToken, recipient)
	if err != nil {
		return nil, err
	}
	calls = append(calls, drain)

	return EncodeInstructions(Instructions{Calls: calls, FallbackRecipient: fallback})
}

// originHandlerCalldata wraps a multi-step origin swap for the origin handler.
// The bridge token it produces is drained to the executor that called it.
func originHandlerCalldata(handler common.Address, quotes *model.CrossSwapQuotes, executor common.Address) ([]byte, error) {
	swap := quotes.OriginSwapQuote
	tokenIn, err := swap.TokenIn.Address.ToEvmAddress()
	if err != nil {
		return nil, err
	}
	bridgeToken, err := quotes.BridgeQuote.InputToken.Address.ToEvmAddress()
	if err != nil {
		return nil, err
	}
	fallback, err := quotes.CrossSwap.Depositor.ToEvmAddress()
	if err != nil {
		return nil, err
	}

	calls := txnCalls(swap.SwapTxns)
	drain, err := drainCall(handler, bridgeToken, executor)
	if err != nil {
		return nil, err
	}
	calls = append(calls, drain)

	message, err := EncodeInstructions(Instructions{Calls: calls, FallbackRecipient: fallback})
	if err != nil {
		return nil, err
	}
	return evm.MulticallHandlerABI.Pack("handleV3AcrossMessage", tokenIn, swap.MaximumAmountIn, common.Address{}, message)
}
