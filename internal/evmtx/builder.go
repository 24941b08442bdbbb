package evmtx

import (
	"fmt"
	"math/big"

	"github.com/fachebot/cross-swap-api/internal/apierr"
	"github.com/fachebot/cross-swap-api/internal/entrypoint"
	"github.com/fachebot/cross-swap-api/internal/logger"
	"github.com/fachebot/cross-swap-api/internal/model"
	"github.com/fachebot/cross-swap-api/internal/utils/evm"

	"github.com/ethereum/go-ethereum/common"
)

type Options struct {
	IntegratorId string
	// Nonce is the periphery witness nonce. Zero for self-submitted calls.
	Nonce *big.Int
}

// Builder assembles the origin transaction of an EVM cross swap.
type Builder struct {
	entryPoints *entrypoint.Resolver
}

func NewBuilder(entryPoints *entrypoint.Resolver) *Builder {
	return &Builder{entryPoints: entryPoints}
}

func invalidEntryPoint(format string, args ...any) error {
	return apierr.Invariant(apierr.CodeInvalidEntryPoint, format, args...)
}

// BuildSwapTx returns the transaction for the allowance flow.
func (b *Builder) BuildSwapTx(quotes *model.CrossSwapQuotes, opts Options) (*model.EvmTx, error) {
	cs := quotes.CrossSwap
	if cs.IsOriginSvm {
		return nil, invalidEntryPoint("origin chain %d is not an evm chain", cs.InputToken.ChainId)
	}
	from, err := cs.Depositor.ToEvmAddress()
	if err != nil {
		return nil, fmt.Errorf("depositor: %w", err)
	}

	var to common.Address
	var data []byte
	value := new(big.Int)

	if quotes.OriginSwapQuote != nil {
		entryPoint := quotes.Contracts.OriginSwapEntryPoint
		if entryPoint == nil {
			return nil, invalidEntryPoint("origin swap without an entry point")
		}
		switch entryPoint.Name {
		case model.EntryPointSpokePoolPeriphery:
			swapAndDeposit, err := b.SwapAndDepositData(quotes, opts.Nonce)
			if err != nil {
				return nil, err
			}
			data, err = EncodeSwapAndBridge(*swapAndDeposit)
			if err != nil {
				return nil, err
			}
		case model.EntryPointUniversalSwapAndBridge:
			data, err = b.legacySwapAndBridge(quotes)
			if err != nil {
				return nil, err
			}
		default:
			return nil, invalidEntryPoint("%s cannot run an origin swap", entryPoint.Name)
		}
		to, err = entryPoint.Address.ToEvmAddress()
		if err != nil {
			return nil, err
		}
		if cs.IsInputNative {
			value.Set(quotes.OriginSwapQuote.MaximumAmountIn)
		}
	} else {
		deposit, err := b.deposit(quotes)
		if err != nil {
			return nil, err
		}
		originChainId := cs.InputToken.ChainId
		entryPoint := quotes.Contracts.DepositEntryPoint

		switch {
		case entryPoint.Name == model.EntryPointSpokePoolPeriphery && cs.IsInputNative && b.entryPoints.PeripherySupportsNative(originChainId):
			spokePool, err := b.spokePool(originChainId)
			if err != nil {
				return nil, err
			}
			data, err = EncodeDepositNative(spokePool, deposit)
			if err != nil {
				return nil, err
			}
			to, _ = entryPoint.Address.ToEvmAddress()
			value.Set(deposit.InputAmount)
		case entryPoint.Name == model.EntryPointSpokePool || entryPoint.Name == model.EntryPointSpokePoolPeriphery:
			// plain erc20 deposits skip the periphery
			spokePool, err := b.spokePool(originChainId)
			if err != nil {
				return nil, err
			}
			data, err = EncodeDeposit(deposit)
			if err != nil {
				return nil, err
			}
			to = spokePool
			if cs.IsInputNative {
				value.Set(deposit.InputAmount)
			}
		default:
			return nil, invalidEntryPoint("%s cannot take a deposit", entryPoint.Name)
		}
	}

	data, err = tag(data, opts.IntegratorId)
	if err != nil {
		return nil, err
	}

	logger.Debugf("[EvmTx] 构建交易, chainId: %d, to: %s, value: %s, size: %d",
		cs.InputToken.ChainId, to.Hex(), value, len(data))
	return &model.EvmTx{
		ChainId: cs.InputToken.ChainId,
		From:    from.Hex(),
		To:      to.Hex(),
		Data:    data,
		Value:   value,
	}, nil
}

func (b *Builder) spokePool(chainId int64) (common.Address, error) {
	contract, err := b.entryPoints.SpokePool(chainId)
	if err != nil {
		return common.Address{}, err
	}
	return contract.Address.ToEvmAddress()
}

// SwapAndDepositData builds the periphery payload for an origin swap. It is
// also the witness signed in the permit and auth flows.
func (b *Builder) SwapAndDepositData(quotes *model.CrossSwapQuotes, nonce *big.Int) (*SwapAndDepositData, error) {
	swap := quotes.OriginSwapQuote
	if swap == nil || len(swap.SwapTxns) == 0 {
		return nil, invalidEntryPoint("periphery swap without swap calldata")
	}
	deposit, err := b.deposit(quotes)
	if err != nil {
		return nil, err
	}
	base, err := deposit.base()
	if err != nil {
		return nil, err
	}

	swapToken, err := swap.TokenIn.Address.ToEvmAddress()
	if err != nil {
		return nil, err
	}
	spokePool, err := quotes.Contracts.DepositEntryPoint.Address.ToEvmAddress()
	if err != nil {
		return nil, err
	}

	transferType := model.TransferTypeApproval
	if router := quotes.Contracts.OriginRouter; router != nil && router.TransferType != nil {
		transferType = *router.TransferType
	}

	exchange := common.HexToAddress(swap.SwapTxns[0].To)
	routerCalldata := swap.SwapTxns[0].Data
	if len(swap.SwapTxns) > 1 {
		originChainId := quotes.CrossSwap.InputToken.ChainId
		handler, err := b.entryPoints.MulticallHandler(originChainId)
		if err != nil {
			return nil, err
		}
		executor, err := b.entryPoints.SwapProxy(originChainId)
		if err != nil {
			return nil, err
		}
		exchange, _ = handler.Address.ToEvmAddress()
		executorAddr, _ := executor.ToEvmAddress()
		routerCalldata, err = originHandlerCalldata(exchange, quotes, executorAddr)
		if err != nil {
			return nil, err
		}
		transferType = model.TransferTypeTransfer
	}

	if nonce == nil {
		nonce = new(big.Int)
	}
	return &SwapAndDepositData{
		SubmissionFees:               zeroFees(),
		DepositData:                  base,
		SwapToken:                    swapToken,
		Exchange:                     exchange,
		TransferType:                 uint8(transferType),
		SwapTokenAmount:              swap.MaximumAmountIn,
		MinExpectedInputTokenAmount:  swap.MinAmountOut,
		RouterCalldata:               routerCalldata,
		EnableProportionalAdjustment: true,
		SpokePool:                    spokePool,
		Nonce:                        nonce,
	}, nil
}

// DepositData builds the periphery payload of a bridge-only deposit, signed
// in the permit and auth flows.
func (b *Builder) DepositData(quotes *model.CrossSwapQuotes, nonce *big.Int) (*DepositData, error) {
	if quotes.OriginSwapQuote != nil {
		return nil, invalidEntryPoint("deposit payload requested for a swap route")
	}
	deposit, err := b.deposit(quotes)
	if err != nil {
		return nil, err
	}
	base, err := deposit.base()
	if err != nil {
		return nil, err
	}
	spokePool, err := b.spokePool(quotes.CrossSwap.InputToken.ChainId)
	if err != nil {
		return nil, err
	}
	if nonce == nil {
		nonce = new(big.Int)
	}
	return &DepositData{
		SubmissionFees:  zeroFees(),
		BaseDepositData: base,
		InputAmount:     deposit.InputAmount,
		SpokePool:       spokePool,
		Nonce:           nonce,
	}, nil
}

func (b *Builder) legacySwapAndBridge(quotes *model.CrossSwapQuotes) ([]byte, error) {
	swap := quotes.OriginSwapQuote
	if len(swap.SwapTxns) != 1 {
		return nil, invalidEntryPoint("legacy swap and bridge takes exactly one router call, got %d", len(swap.SwapTxns))
	}
	if !quotes.CrossSwap.OutputToken.Address.IsEvm() {
		return nil, invalidEntryPoint("legacy swap and bridge only serves evm destinations")
	}

	deposit, err := b.deposit(quotes)
	if err != nil {
		return nil, err
	}
	swapToken, err := swap.TokenIn.Address.ToEvmAddress()
	if err != nil {
		return nil, err
	}
	acrossInputToken, err := deposit.InputToken.ToEvmAddress()
	if err != nil {
		return nil, err
	}
	depositorAddr, err := deposit.Depositor.ToEvmAddress()
	if err != nil {
		return nil, err
	}

	return EncodeLegacySwapAndBridge(LegacySwapAndBridge{
		SwapToken:                   swapToken,
		AcrossInputToken:            acrossInputToken,
		RouterCalldata:              swap.SwapTxns[0].Data,
		SwapTokenAmount:             swap.MaximumAmountIn,
		MinExpectedInputTokenAmount: swap.MinAmountOut,
		DepositData: LegacyDepositData{
			OutputToken:         common.BytesToAddress(deposit.OutputToken[12:]),
			OutputAmount:        deposit.OutputAmount,
			Depositor:           depositorAddr,
			Recipient:           common.BytesToAddress(deposit.Recipient[12:]),
			DestinationChainid:  deposit.DestinationChainId,
			ExclusiveRelayer:    common.BytesToAddress(deposit.ExclusiveRelayer[12:]),
			QuoteTimestamp:      deposit.QuoteTimestamp,
			FillDeadline:        deposit.FillDeadline,
			ExclusivityDeadline: deposit.ExclusivityParameter,
			Message:             deposit.Message,
		},
	})
}

// ApprovalTxns returns the approvals the depositor needs before the swap tx.
// Native input needs none.
func ApprovalTxns(chainId int64, token model.Token, owner, spender string, amount *big.Int, isNative bool) ([]model.EvmTx, error) {
	if isNative {
		return nil, nil
	}
	data, err := evm.EncodeERC20ApproveInput(spender, amount)
	if err != nil {
		return nil, err
	}
	tokenAddr, err := token.Address.ToEvmAddress()
	if err != nil {
		return nil, err
	}
	return []model.EvmTx{{
		ChainId: chainId,
		From:    owner,
		To:      tokenAddr.Hex(),
		Data:    data,
		Value:   new(big.Int),
	}}, nil
}
