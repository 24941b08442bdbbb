package model

import (
	"math/big"

	"github.com/fachebot/cross-swap-api/internal/address"
)

type AmountType string

const (
	ExactInput  AmountType = "exactInput"
	ExactOutput AmountType = "exactOutput"
	MinOutput   AmountType = "minOutput"
)

func ParseAmountType(s string) (AmountType, bool) {
	switch AmountType(s) {
	case "", ExactInput:
		return ExactInput, true
	case ExactOutput:
		return ExactOutput, true
	case MinOutput:
		return MinOutput, true
	}
	return "", false
}

type Token struct {
	Address  address.Address `json:"address"`
	ChainId  int64           `json:"chainId"`
	Decimals uint8           `json:"decimals"`
	Symbol   string          `json:"symbol"`
}

func (t Token) Ecosystem() address.Ecosystem {
	return t.Address.Ecosystem()
}

func (t Token) Equal(o Token) bool {
	return t.ChainId == o.ChainId && t.Address.Equal(o.Address)
}

type SourcesFilter struct {
	Include []string
	Exclude []string
}

func (f SourcesFilter) IsEmpty() bool {
	return len(f.Include) == 0 && len(f.Exclude) == 0
}

type Swap struct {
	ChainId           int64
	TokenIn           Token
	TokenOut          Token
	Amount            *big.Int
	Type              AmountType
	Depositor         address.Address
	Recipient         address.Address
	SlippageTolerance float64
	Sources           SourcesFilter
	IsInputNative     bool
	IsOutputNative    bool
}

type SwapTxn struct {
	To    string
	Data  []byte
	Value *big.Int
}

type SvmAccountMeta struct {
	Pubkey     string `json:"pubkey"`
	IsSigner   bool   `json:"isSigner"`
	IsWritable bool   `json:"isWritable"`
}

type SvmInstruction struct {
	ProgramId string           `json:"programId"`
	Accounts  []SvmAccountMeta `json:"accounts"`
	Data      []byte           `json:"data"`
}

// SvmSwapInstructions are the venue supplied instruction groups of a Solana swap.
type SvmSwapInstructions struct {
	ComputeBudget       []SvmInstruction
	Setup               []SvmInstruction
	TokenLedger         *SvmInstruction
	Swap                SvmInstruction
	Cleanup             *SvmInstruction
	AddressLookupTables []string
}

type SwapProvider struct {
	Name    string   `json:"name"`
	Sources []string `json:"sources"`
}

type SwapQuote struct {
	ChainId           int64
	TokenIn           Token
	TokenOut          Token
	MaximumAmountIn   *big.Int
	MinAmountOut      *big.Int
	ExpectedAmountIn  *big.Int
	ExpectedAmountOut *big.Int
	SlippageTolerance float64
	TradeType         AmountType
	SwapTxns          []SwapTxn
	SvmSwap           *SvmSwapInstructions
	SwapProvider      SwapProvider
	Indicative        bool
}
