package model

import (
	"math/big"

	"github.com/fachebot/cross-swap-api/internal/address"
)

type CrossSwapType string

const (
	BridgeableToBridgeable CrossSwapType = "bridgeableToBridgeable"
	BridgeableToAny        CrossSwapType = "bridgeableToAny"
	AnyToBridgeable        CrossSwapType = "anyToBridgeable"
	AnyToAny               CrossSwapType = "anyToAny"
)

type TransferType uint8

const (
	TransferTypeApproval TransferType = iota
	TransferTypeTransfer
	TransferTypePermit2Approval
)

const (
	EntryPointSpokePool              = "SpokePool"
	EntryPointSpokePoolPeriphery     = "SpokePoolPeriphery"
	EntryPointUniversalSwapAndBridge = "UniversalSwapAndBridge"
	EntryPointMulticallHandler       = "MulticallHandler"
	EntryPointSvmSpoke               = "SvmSpoke"
)

type EntryPointContract struct {
	Name         string          `json:"name"`
	Address      address.Address `json:"address"`
	Dex          string          `json:"dex,omitempty"`
	TransferType *TransferType   `json:"transferType,omitempty"`
}

type RouterContract struct {
	Name         string          `json:"name"`
	Address      address.Address `json:"address"`
	TransferType *TransferType   `json:"transferType,omitempty"`
}

type EmbeddedAction struct {
	Target   string   `json:"target"`
	CallData []byte   `json:"callData"`
	Value    *big.Int `json:"value"`
}

type CrossSwap struct {
	Depositor         address.Address
	Recipient         address.Address
	InputToken        Token
	OutputToken       Token
	Amount            *big.Int
	Type              AmountType
	SlippageTolerance float64
	RefundOnOrigin    bool
	RefundAddress     *address.Address
	IsInputNative     bool
	IsOutputNative    bool
	IsOriginSvm       bool
	EmbeddedActions   []EmbeddedAction
	AppFeePercent     float64
	AppFeeRecipient   *address.Address
	Sources           SourcesFilter
	PreferPeriphery   bool
}

type BridgeFee struct {
	Total *big.Int
	Pct   *big.Int
	Token Token
}

type BridgeFees struct {
	RelayerCapital BridgeFee
	RelayerGas     BridgeFee
	Lp             BridgeFee
	TotalRelay     BridgeFee
	BridgeFee      BridgeFee
}

type SuggestedFees struct {
	Timestamp            uint32
	FillDeadline         uint32
	ExclusiveRelayer     address.Address
	ExclusivityDeadline  uint32
	EstimatedFillTimeSec int64
	QuoteBlock           string
}

type BridgeQuote struct {
	InputToken      Token
	OutputToken     Token
	InputAmount     *big.Int
	OutputAmount    *big.Int
	MinOutputAmount *big.Int
	SuggestedFees   SuggestedFees
	Fees            BridgeFees
}

type AppFee struct {
	Percent   float64
	Amount    *big.Int
	Token     Token
	Recipient address.Address
}

type CrossSwapContracts struct {
	OriginSwapEntryPoint *EntryPointContract
	OriginRouter         *RouterContract
	DepositEntryPoint    EntryPointContract
	DestinationRouter    *RouterContract
	DestinationHandler   *EntryPointContract
}

type CrossSwapQuotes struct {
	CrossSwap            CrossSwap
	Type                 CrossSwapType
	OriginSwapQuote      *SwapQuote
	BridgeQuote          BridgeQuote
	DestinationSwapQuote *SwapQuote
	Contracts            CrossSwapContracts
	AppFee               *AppFee
}

// InputAmount is what the depositor is expected to spend.
func (q *CrossSwapQuotes) InputAmount() *big.Int {
	if q.OriginSwapQuote != nil {
		return q.OriginSwapQuote.ExpectedAmountIn
	}
	return q.BridgeQuote.InputAmount
}

func (q *CrossSwapQuotes) MaxInputAmount() *big.Int {
	if q.OriginSwapQuote != nil {
		return q.OriginSwapQuote.MaximumAmountIn
	}
	return q.BridgeQuote.InputAmount
}

func (q *CrossSwapQuotes) ExpectedOutputAmountSansAppFees() *big.Int {
	if q.DestinationSwapQuote != nil {
		return q.DestinationSwapQuote.ExpectedAmountOut
	}
	return q.BridgeQuote.OutputAmount
}

func (q *CrossSwapQuotes) MinOutputAmountSansAppFees() *big.Int {
	if q.DestinationSwapQuote != nil {
		return q.DestinationSwapQuote.MinAmountOut
	}
	return q.BridgeQuote.MinOutputAmount
}

func (q *CrossSwapQuotes) appFeeAmount() *big.Int {
	if q.AppFee == nil || q.AppFee.Amount == nil {
		return new(big.Int)
	}
	return q.AppFee.Amount
}

func (q *CrossSwapQuotes) ExpectedOutputAmount() *big.Int {
	return new(big.Int).Sub(q.ExpectedOutputAmountSansAppFees(), q.appFeeAmount())
}

func (q *CrossSwapQuotes) MinOutputAmount() *big.Int {
	out := new(big.Int).Sub(q.MinOutputAmountSansAppFees(), q.appFeeAmount())
	if out.Sign() < 0 {
		return new(big.Int)
	}
	return out
}

// HasSwap reports whether any swap leg is part of the route.
func (q *CrossSwapQuotes) HasSwap() bool {
	return q.OriginSwapQuote != nil || q.DestinationSwapQuote != nil
}

type EvmTx struct {
	ChainId int64
	From    string
	To      string
	Data    []byte
	Value   *big.Int
	Gas     uint64
}

type SvmTx struct {
	ChainId int64
	From    string
	Data    string
}
