package signature

import (
	"fmt"
	"math/big"

	"github.com/fachebot/cross-swap-api/internal/apierr"
	"github.com/fachebot/cross-swap-api/internal/evmtx"
	"github.com/fachebot/cross-swap-api/internal/model"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

const (
	peripheryDomainName    = "ACROSS-PERIPHERY"
	peripheryDomainVersion = "1.0.0"
)

var (
	feesType = []apitypes.Type{
		{Name: "amount", Type: "uint256"},
		{Name: "recipient", Type: "address"},
	}

	baseDepositDataType = []apitypes.Type{
		{Name: "inputToken", Type: "address"},
		{Name: "outputToken", Type: "bytes32"},
		{Name: "outputAmount", Type: "uint256"},
		{Name: "depositor", Type: "address"},
		{Name: "recipient", Type: "bytes32"},
		{Name: "destinationChainId", Type: "uint256"},
		{Name: "exclusiveRelayer", Type: "bytes32"},
		{Name: "quoteTimestamp", Type: "uint32"},
		{Name: "fillDeadline", Type: "uint32"},
		{Name: "exclusivityParameter", Type: "uint32"},
		{Name: "message", Type: "bytes"},
	}

	depositDataType = []apitypes.Type{
		{Name: "submissionFees", Type: "Fees"},
		{Name: "baseDepositData", Type: "BaseDepositData"},
		{Name: "inputAmount", Type: "uint256"},
		{Name: "spokePool", Type: "address"},
		{Name: "nonce", Type: "uint256"},
	}

	swapAndDepositDataType = []apitypes.Type{
		{Name: "submissionFees", Type: "Fees"},
		{Name: "depositData", Type: "BaseDepositData"},
		{Name: "swapToken", Type: "address"},
		{Name: "exchange", Type: "address"},
		{Name: "transferType", Type: "uint8"},
		{Name: "swapTokenAmount", Type: "uint256"},
		{Name: "minExpectedInputTokenAmount", Type: "uint256"},
		{Name: "routerCalldata", Type: "bytes"},
		{Name: "enableProportionalAdjustment", Type: "bool"},
		{Name: "spokePool", Type: "address"},
		{Name: "nonce", Type: "uint256"},
	}
)

func feesMessage(fees evmtx.Fees) map[string]any {
	return map[string]any{
		"amount":    fees.Amount.String(),
		"recipient": fees.Recipient.Hex(),
	}
}

func baseDepositMessage(data evmtx.BaseDepositData) map[string]any {
	return map[string]any{
		"inputToken":           data.InputToken.Hex(),
		"outputToken":          hexutil.Encode(data.OutputToken[:]),
		"outputAmount":         data.OutputAmount.String(),
		"depositor":            data.Depositor.Hex(),
		"recipient":            hexutil.Encode(data.Recipient[:]),
		"destinationChainId":   data.DestinationChainId.String(),
		"exclusiveRelayer":     hexutil.Encode(data.ExclusiveRelayer[:]),
		"quoteTimestamp":       fmt.Sprint(data.QuoteTimestamp),
		"fillDeadline":         fmt.Sprint(data.FillDeadline),
		"exclusivityParameter": fmt.Sprint(data.ExclusivityParameter),
		"message":              hexutil.Encode(data.Message),
	}
}

// witness is the periphery payload bound to a token signature.
type witness struct {
	typedData apitypes.TypedData
	// amount pulled from the depositor by the periphery
	amount *big.Int
	swap   bool
}

// peripheryEntryPoint returns the contract the signed flows submit to. Only
// the current periphery verifies witness signatures.
func peripheryEntryPoint(quotes *model.CrossSwapQuotes) (common.Address, error) {
	if quotes.CrossSwap.IsOriginSvm {
		return common.Address{}, apierr.EcosystemMismatch(model.EntryPointSpokePoolPeriphery, quotes.CrossSwap.InputToken.ChainId, "evm")
	}

	entryPoint := quotes.Contracts.DepositEntryPoint
	if quotes.OriginSwapQuote != nil {
		if quotes.Contracts.OriginSwapEntryPoint == nil {
			return common.Address{}, apierr.Invariant(apierr.CodeInvalidEntryPoint, "origin swap without entry point")
		}
		entryPoint = *quotes.Contracts.OriginSwapEntryPoint
	}
	if entryPoint.Name != model.EntryPointSpokePoolPeriphery {
		return common.Address{}, apierr.Invariant(apierr.CodeInvalidEntryPoint,
			"signed deposits require %s, got %s", model.EntryPointSpokePoolPeriphery, entryPoint.Name)
	}
	return entryPoint.Address.ToEvmAddress()
}

func (b *Builder) witness(quotes *model.CrossSwapQuotes, periphery common.Address, nonce *big.Int) (*witness, error) {
	domain := newDomain(peripheryDomainName, peripheryDomainVersion, quotes.CrossSwap.InputToken.ChainId, periphery)
	types := apitypes.Types{
		"EIP712Domain":    eip712DomainType,
		"Fees":            feesType,
		"BaseDepositData": baseDepositDataType,
	}

	if quotes.OriginSwapQuote != nil {
		data, err := b.messages.SwapAndDepositData(quotes, nonce)
		if err != nil {
			return nil, err
		}
		types["SwapAndDepositData"] = swapAndDepositDataType
		return &witness{
			swap:   true,
			amount: data.SwapTokenAmount,
			typedData: apitypes.TypedData{
				Types:       types,
				PrimaryType: "SwapAndDepositData",
				Domain:      domain,
				Message: apitypes.TypedDataMessage{
					"submissionFees":               feesMessage(data.SubmissionFees),
					"depositData":                  baseDepositMessage(data.DepositData),
					"swapToken":                    data.SwapToken.Hex(),
					"exchange":                     data.Exchange.Hex(),
					"transferType":                 fmt.Sprint(data.TransferType),
					"swapTokenAmount":              data.SwapTokenAmount.String(),
					"minExpectedInputTokenAmount":  data.MinExpectedInputTokenAmount.String(),
					"routerCalldata":               hexutil.Encode(data.RouterCalldata),
					"enableProportionalAdjustment": data.EnableProportionalAdjustment,
					"spokePool":                    data.SpokePool.Hex(),
					"nonce":                        data.Nonce.String(),
				},
			},
		}, nil
	}

	data, err := b.messages.DepositData(quotes, nonce)
	if err != nil {
		return nil, err
	}
	types["DepositData"] = depositDataType
	return &witness{
		amount: data.InputAmount,
		typedData: apitypes.TypedData{
			Types:       types,
			PrimaryType: "DepositData",
			Domain:      domain,
			Message: apitypes.TypedDataMessage{
				"submissionFees":  feesMessage(data.SubmissionFees),
				"baseDepositData": baseDepositMessage(data.BaseDepositData),
				"inputAmount":     data.InputAmount.String(),
				"spokePool":       data.SpokePool.Hex(),
				"nonce":           data.Nonce.String(),
			},
		},
	}, nil
}
