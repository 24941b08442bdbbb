package swapapi

import (
	"math/big"

	"github.com/fachebot/cross-swap-api/internal/fees"
	"github.com/fachebot/cross-swap-api/internal/model"
	"github.com/fachebot/cross-swap-api/internal/signature"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Amounts are decimal strings so they survive JSON clients.
type Response struct {
	Id                   string                  `json:"id"`
	CrossSwapType        model.CrossSwapType     `json:"crossSwapType"`
	AmountType           model.AmountType        `json:"amountType"`
	InputToken           model.Token             `json:"inputToken"`
	OutputToken          model.Token             `json:"outputToken"`
	InputAmount          string                  `json:"inputAmount"`
	MaxInputAmount       string                  `json:"maxInputAmount"`
	ExpectedOutputAmount string                  `json:"expectedOutputAmount"`
	MinOutputAmount      string                  `json:"minOutputAmount"`
	ExpectedFillTime     int64                   `json:"expectedFillTime"`
	Steps                Steps                   `json:"steps"`
	Checks               *Checks                 `json:"checks,omitempty"`
	ApprovalTxns         []EvmTx                 `json:"approvalTxns,omitempty"`
	SwapTx               any                     `json:"swapTx,omitempty"`
	PermitSwapTx         *signature.PermitSwapTx `json:"permitSwapTx,omitempty"`
	Fees                 FeeReport               `json:"fees"`
}

type SwapStep struct {
	TokenIn           model.Token           `json:"tokenIn"`
	TokenOut          model.Token           `json:"tokenOut"`
	InputAmount       string                `json:"inputAmount"`
	MaxInputAmount    string                `json:"maxInputAmount"`
	OutputAmount      string                `json:"outputAmount"`
	MinOutputAmount   string                `json:"minOutputAmount"`
	SlippageTolerance float64               `json:"slippageTolerance"`
	SwapProvider      model.SwapProvider    `json:"swapProvider"`
	Router            *model.RouterContract `json:"router,omitempty"`
}

type BridgeStep struct {
	InputToken       model.Token `json:"inputToken"`
	OutputToken      model.Token `json:"outputToken"`
	InputAmount      string      `json:"inputAmount"`
	OutputAmount     string      `json:"outputAmount"`
	ExpectedFillTime int64       `json:"expectedFillTime"`
	QuoteTimestamp   uint32      `json:"quoteTimestamp"`
	FillDeadline     uint32      `json:"fillDeadline"`
}

type Steps struct {
	OriginSwap      *SwapStep  `json:"originSwap,omitempty"`
	Bridge          BridgeStep `json:"bridge"`
	DestinationSwap *SwapStep  `json:"destinationSwap,omitempty"`
}

type AllowanceCheck struct {
	Token    string `json:"token"`
	Spender  string `json:"spender"`
	Actual   string `json:"actual"`
	Expected string `json:"expected"`
}

type BalanceCheck struct {
	Token    string `json:"token"`
	Actual   string `json:"actual"`
	Expected string `json:"expected"`
}

type Checks struct {
	Allowance AllowanceCheck `json:"allowance"`
	Balance   BalanceCheck   `json:"balance"`
}

type EvmTx struct {
	Ecosystem string `json:"ecosystem"`
	ChainId   int64  `json:"chainId"`
	From      string `json:"from,omitempty"`
	To        string `json:"to"`
	Data      string `json:"data"`
	Value     string `json:"value,omitempty"`
	Gas       string `json:"gas,omitempty"`
}

type SvmTx struct {
	Ecosystem string `json:"ecosystem"`
	ChainId   int64  `json:"chainId"`
	From      string `json:"from"`
	Data      string `json:"data"`
}

type FeeComponent struct {
	Amount    string      `json:"amount"`
	AmountUsd string      `json:"amountUsd"`
	Pct       string      `json:"pct,omitempty"`
	Token     model.Token `json:"token"`
}

type FeeReport struct {
	Total                FeeComponent  `json:"total"`
	TotalMax             FeeComponent  `json:"totalMax"`
	OriginGas            *FeeComponent `json:"originGas,omitempty"`
	DestinationGas       FeeComponent  `json:"destinationGas"`
	DestinationGasNative *FeeComponent `json:"destinationGasNative,omitempty"`
	RelayerCapital       FeeComponent  `json:"relayerCapital"`
	LpFee                FeeComponent  `json:"lpFee"`
	RelayerTotal         FeeComponent  `json:"relayerTotal"`
	BridgeFee            FeeComponent  `json:"bridgeFee"`
	App                  FeeComponent  `json:"app"`
	SwapImpact           *FeeComponent `json:"swapImpact,omitempty"`
	MaxSwapImpact        *FeeComponent `json:"maxSwapImpact,omitempty"`
}

func amountString(n *big.Int) string {
	if n == nil {
		return "0"
	}
	return n.String()
}

func newSwapStep(quote *model.SwapQuote, router *model.RouterContract) *SwapStep {
	if quote == nil {
		return nil
	}
	return &SwapStep{
		TokenIn:           quote.TokenIn,
		TokenOut:          quote.TokenOut,
		InputAmount:       amountString(quote.ExpectedAmountIn),
		MaxInputAmount:    amountString(quote.MaximumAmountIn),
		OutputAmount:      amountString(quote.ExpectedAmountOut),
		MinOutputAmount:   amountString(quote.MinAmountOut),
		SlippageTolerance: quote.SlippageTolerance,
		SwapProvider:      quote.SwapProvider,
		Router:            router,
	}
}

func newResponse(id string, quotes *model.CrossSwapQuotes) *Response {
	bridge := quotes.BridgeQuote
	fillTime := bridge.SuggestedFees.EstimatedFillTimeSec
	return &Response{
		Id:                   id,
		CrossSwapType:        quotes.Type,
		AmountType:           quotes.CrossSwap.Type,
		InputToken:           quotes.CrossSwap.InputToken,
		OutputToken:          quotes.CrossSwap.OutputToken,
		InputAmount:          amountString(quotes.InputAmount()),
		MaxInputAmount:       amountString(quotes.MaxInputAmount()),
		ExpectedOutputAmount: amountString(quotes.ExpectedOutputAmount()),
		MinOutputAmount:      amountString(quotes.MinOutputAmount()),
		ExpectedFillTime:     fillTime,
		Steps: Steps{
			OriginSwap: newSwapStep(quotes.OriginSwapQuote, quotes.Contracts.OriginRouter),
			Bridge: BridgeStep{
				InputToken:       bridge.InputToken,
				OutputToken:      bridge.OutputToken,
				InputAmount:      amountString(bridge.InputAmount),
				OutputAmount:     amountString(bridge.OutputAmount),
				ExpectedFillTime: fillTime,
				QuoteTimestamp:   bridge.SuggestedFees.Timestamp,
				FillDeadline:     bridge.SuggestedFees.FillDeadline,
			},
			DestinationSwap: newSwapStep(quotes.DestinationSwapQuote, quotes.Contracts.DestinationRouter),
		},
	}
}

func newEvmTx(tx model.EvmTx) EvmTx {
	result := EvmTx{
		Ecosystem: "evm",
		ChainId:   tx.ChainId,
		From:      tx.From,
		To:        tx.To,
		Data:      hexutil.Encode(tx.Data),
	}
	if tx.Value != nil && tx.Value.Sign() > 0 {
		result.Value = tx.Value.String()
	}
	if tx.Gas > 0 {
		result.Gas = new(big.Int).SetUint64(tx.Gas).String()
	}
	return result
}

func newSvmTx(tx model.SvmTx) SvmTx {
	return SvmTx{Ecosystem: "svm", ChainId: tx.ChainId, From: tx.From, Data: tx.Data}
}

func newFeeComponent(c fees.Component) FeeComponent {
	result := FeeComponent{
		Amount:    amountString(c.Amount),
		AmountUsd: c.AmountUsd,
		Token:     c.Token,
	}
	if c.Pct != nil {
		result.Pct = c.Pct.String()
	}
	return result
}

func optionalFeeComponent(c *fees.Component) *FeeComponent {
	if c == nil {
		return nil
	}
	result := newFeeComponent(*c)
	return &result
}

func newFeeReport(report fees.Report) FeeReport {
	return FeeReport{
		Total:                newFeeComponent(report.Total),
		TotalMax:             newFeeComponent(report.TotalMax),
		OriginGas:            optionalFeeComponent(report.OriginGas),
		DestinationGas:       newFeeComponent(report.DestinationGas),
		DestinationGasNative: optionalFeeComponent(report.DestinationGasNative),
		RelayerCapital:       newFeeComponent(report.RelayerCapital),
		LpFee:                newFeeComponent(report.LpFee),
		RelayerTotal:         newFeeComponent(report.RelayerTotal),
		BridgeFee:            newFeeComponent(report.BridgeFee),
		App:                  newFeeComponent(report.App),
		SwapImpact:           optionalFeeComponent(report.SwapImpact),
		MaxSwapImpact:        optionalFeeComponent(report.MaxSwapImpact),
	}
}
