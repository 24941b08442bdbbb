package evmtx

import (
	"fmt"
	"math/big"

	"github.com/fachebot/cross-swap-api/internal/utils/evm"

	"github.com/ethereum/go-ethereum/common"
)

func EncodeSwapAndBridge(data SwapAndDepositData) ([]byte, error) {
	packed, err := evm.PeripheryABI.Pack("swapAndBridge", data)
	if err != nil {
		return nil, fmt.Errorf("failed to pack swapAndBridge: %w", err)
	}
	return packed, nil
}

// LegacyDepositData is the deposit struct of the UniversalSwapAndBridge
// contract. DestinationChainid keeps the deployed field name.
type LegacyDepositData struct {
	OutputToken         common.Address
	OutputAmount        *big.Int
	Depositor           common.Address
	Recipient           common.Address
	DestinationChainid  *big.Int
	ExclusiveRelayer    common.Address
	QuoteTimestamp      uint32
	FillDeadline        uint32
	ExclusivityDeadline uint32
	Message             []byte
}

type LegacySwapAndBridge struct {
	SwapToken                   common.Address
	AcrossInputToken            common.Address
	RouterCalldata              []byte
	SwapTokenAmount             *big.Int
	MinExpectedInputTokenAmount *big.Int
	DepositData                 LegacyDepositData
}

func EncodeLegacySwapAndBridge(args LegacySwapAndBridge) ([]byte, error) {
	packed, err := evm.UniversalSwapAndBridgeABI.Pack("swapAndBridge",
		args.SwapToken,
		args.AcrossInputToken,
		args.RouterCalldata,
		args.SwapTokenAmount,
		args.MinExpectedInputTokenAmount,
		args.DepositData,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to pack legacy swapAndBridge: %w", err)
	}
	return packed, nil
}

func EncodeDepositNative(spokePool common.Address, d *Deposit) ([]byte, error) {
	inputToken, err := d.InputToken.ToEvmAddress()
	if err != nil {
		return nil, err
	}
	packed, err := evm.PeripheryABI.Pack("depositNative",
		spokePool,
		d.Recipient,
		inputToken,
		d.InputAmount,
		d.OutputToken,
		d.OutputAmount,
		d.DestinationChainId,
		d.ExclusiveRelayer,
		d.QuoteTimestamp,
		d.FillDeadline,
		d.ExclusivityParameter,
		d.Message,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to pack depositNative: %w", err)
	}
	return packed, nil
}

func EncodeDeposit(d *Deposit) ([]byte, error) {
	message := d.Message
	if message == nil {
		message = []byte{}
	}
	packed, err := evm.SpokePoolABI.Pack("deposit",
		d.Depositor.ToBytes32(),
		d.Recipient,
		d.InputToken.ToBytes32(),
		d.OutputToken,
		d.InputAmount,
		d.OutputAmount,
		d.DestinationChainId,
		d.ExclusiveRelayer,
		d.QuoteTimestamp,
		d.FillDeadline,
		d.ExclusivityParameter,
		message,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to pack deposit: %w", err)
	}
	return packed, nil
}
