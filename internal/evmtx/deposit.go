package evmtx

import (
	"fmt"
	"math/big"

	"github.com/fachebot/cross-swap-api/internal/address"
	"github.com/fachebot/cross-swap-api/internal/model"

	"github.com/ethereum/go-ethereum/common"
)

// Deposit holds the bridge deposit fields shared by every entry point.
// Cross-ecosystem fields are kept as bytes32.
type Deposit struct {
	Depositor            address.Address
	Recipient            [32]byte
	InputToken           address.Address
	OutputToken          [32]byte
	InputAmount          *big.Int
	OutputAmount         *big.Int
	DestinationChainId   *big.Int
	ExclusiveRelayer     [32]byte
	QuoteTimestamp       uint32
	FillDeadline         uint32
	ExclusivityParameter uint32
	Message              []byte
}

// Submission fees are always zero for self-submitted transactions.
type Fees struct {
	Amount    *big.Int
	Recipient common.Address
}

type BaseDepositData struct {
	InputToken           common.Address
	OutputToken          [32]byte
	OutputAmount         *big.Int
	Depositor            common.Address
	Recipient            [32]byte
	DestinationChainId   *big.Int
	ExclusiveRelayer     [32]byte
	QuoteTimestamp       uint32
	FillDeadline         uint32
	ExclusivityParameter uint32
	Message              []byte
}

type SwapAndDepositData struct {
	SubmissionFees               Fees
	DepositData                  BaseDepositData
	SwapToken                    common.Address
	Exchange                     common.Address
	TransferType                 uint8
	SwapTokenAmount              *big.Int
	MinExpectedInputTokenAmount  *big.Int
	RouterCalldata               []byte
	EnableProportionalAdjustment bool
	SpokePool                    common.Address
	Nonce                        *big.Int
}

// DepositData is the periphery's bridge-only deposit payload.
type DepositData struct {
	SubmissionFees  Fees
	BaseDepositData BaseDepositData
	InputAmount     *big.Int
	SpokePool       common.Address
	Nonce           *big.Int
}

func zeroFees() Fees {
	return Fees{Amount: new(big.Int)}
}

// bridgeInputAmount is what reaches the deposit. With an origin swap that is
// the swap's expected output, never its maximum bound.
func bridgeInputAmount(quotes *model.CrossSwapQuotes) *big.Int {
	if quotes.OriginSwapQuote != nil {
		return quotes.OriginSwapQuote.ExpectedAmountOut
	}
	return quotes.BridgeQuote.InputAmount
}

// depositor receives refunds on the origin chain.
func depositor(cs model.CrossSwap) address.Address {
	if cs.RefundOnOrigin && cs.RefundAddress != nil {
		return *cs.RefundAddress
	}
	return cs.Depositor
}

func (b *Builder) deposit(quotes *model.CrossSwapQuotes) (*Deposit, error) {
	cs := quotes.CrossSwap
	bridge := quotes.BridgeQuote

	recipient := cs.Recipient
	var message []byte
	if handler := quotes.Contracts.DestinationHandler; handler != nil {
		recipient = handler.Address
		msg, err := b.DestinationMessage(quotes)
		if err != nil {
			return nil, err
		}
		message = msg
	}

	fees := bridge.SuggestedFees
	return &Deposit{
		Depositor:            depositor(cs),
		Recipient:            recipient.ToBytes32(),
		InputToken:           bridge.InputToken.Address,
		OutputToken:          bridge.OutputToken.Address.ToBytes32(),
		InputAmount:          bridgeInputAmount(quotes),
		OutputAmount:         bridge.OutputAmount,
		DestinationChainId:   big.NewInt(cs.OutputToken.ChainId),
		ExclusiveRelayer:     fees.ExclusiveRelayer.ToBytes32(),
		QuoteTimestamp:       fees.Timestamp,
		FillDeadline:         fees.FillDeadline,
		ExclusivityParameter: fees.ExclusivityDeadline,
		Message:              message,
	}, nil
}

func (d *Deposit) base() (BaseDepositData, error) {
	inputToken, err := d.InputToken.ToEvmAddress()
	if err != nil {
		return BaseDepositData{}, fmt.Errorf("deposit input token: %w", err)
	}
	depositor, err := d.Depositor.ToEvmAddress()
	if err != nil {
		return BaseDepositData{}, fmt.Errorf("depositor: %w", err)
	}
	return BaseDepositData{
		InputToken:           inputToken,
		OutputToken:          d.OutputToken,
		OutputAmount:         d.OutputAmount,
		Depositor:            depositor,
		Recipient:            d.Recipient,
		DestinationChainId:   d.DestinationChainId,
		ExclusiveRelayer:     d.ExclusiveRelayer,
		QuoteTimestamp:       d.QuoteTimestamp,
		FillDeadline:         d.FillDeadline,
		ExclusivityParameter: d.ExclusivityParameter,
		Message:              d.Message,
	}, nil
}
