package fees

import (
	"math/big"

	"github.com/fachebot/cross-swap-api/internal/model"
	"github.com/fachebot/cross-swap-api/internal/utils/bigint"

	"github.com/shopspring/decimal"
)

var pctScale = decimal.New(1, 18)

// Component is one line of the fee report. Pct is a 1e18 fixed-point fraction
// of the trade and is nil for gas components.
type Component struct {
	Amount    *big.Int
	AmountUsd string
	Pct       *big.Int
	Token     model.Token
}

type Report struct {
	Total          Component
	TotalMax       Component
	OriginGas      *Component
	DestinationGas Component
	RelayerCapital Component
	LpFee          Component
	RelayerTotal   Component
	BridgeFee      Component
	App            Component
	SwapImpact     *Component
	MaxSwapImpact  *Component

	// DestinationGasNative restates DestinationGas in the destination chain's
	// native asset. Nil unless both prices are known.
	DestinationGasNative *Component
}

// GasEstimate is the simulated origin transaction cost.
type GasEstimate struct {
	Gas      uint64
	GasPrice *big.Int
}

// Prices are USD prices per whole token. A zero price means the lookup failed.
type Prices struct {
	InputToken        decimal.Decimal
	OutputToken       decimal.Decimal
	OriginNative      decimal.Decimal
	DestinationNative decimal.Decimal
	BridgeInput       decimal.Decimal
	AppFeeToken       decimal.Decimal
}

type Input struct {
	Quotes           *model.CrossSwapQuotes
	OriginGas        *GasEstimate
	OriginToken      model.Token // native asset of the origin chain
	DestinationToken model.Token // native asset of the destination chain
	Prices           Prices
}

func toUsd(amount *big.Int, decimals uint8, price decimal.Decimal) decimal.Decimal {
	if amount == nil || price.IsZero() {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(amount, -int32(decimals)).Mul(price)
}

func fromUsd(usd decimal.Decimal, decimals uint8, price decimal.Decimal) *big.Int {
	if price.IsZero() {
		return new(big.Int)
	}
	return usd.Div(price).Shift(int32(decimals)).Truncate(0).BigInt()
}

func formatUsd(usd decimal.Decimal) string {
	return usd.StringFixed(1)
}

func pctOf(amount, base *big.Int) *big.Int {
	if base == nil || base.Sign() == 0 {
		return new(big.Int)
	}
	return bigint.MulDivUp(amount, pctScale.BigInt(), base)
}

func component(amount *big.Int, token model.Token, price decimal.Decimal, pct *big.Int) Component {
	return Component{
		Amount:    bigint.Copy(amount),
		AmountUsd: formatUsd(toUsd(amount, token.Decimals, price)),
		Pct:       bigint.Copy(pct),
		Token:     token,
	}
}

func bridgeComponent(fee model.BridgeFee, price decimal.Decimal, withPct bool) Component {
	amount := fee.Total
	if amount == nil {
		amount = new(big.Int)
	}
	var pct *big.Int
	if withPct {
		pct = fee.Pct
		if pct == nil {
			pct = new(big.Int)
		}
	}
	return component(amount, fee.Token, price, pct)
}

// Calculate builds the fee report for a resolved quote. It never fails:
// missing prices only zero the USD fields.
func Calculate(in Input) Report {
	quotes, prices := in.Quotes, in.Prices
	cs := quotes.CrossSwap
	bridge := quotes.BridgeQuote
	fees := bridge.Fees

	report := Report{
		DestinationGas: bridgeComponent(fees.RelayerGas, prices.BridgeInput, false),
		RelayerCapital: bridgeComponent(fees.RelayerCapital, prices.BridgeInput, true),
		LpFee:          bridgeComponent(fees.Lp, prices.BridgeInput, true),
		RelayerTotal:   bridgeComponent(fees.TotalRelay, prices.BridgeInput, true),
		BridgeFee:      bridgeComponent(fees.BridgeFee, prices.BridgeInput, true),
	}

	if in.OriginGas != nil && in.OriginGas.GasPrice != nil {
		cost := new(big.Int).Mul(new(big.Int).SetUint64(in.OriginGas.Gas), in.OriginGas.GasPrice)
		gas := component(cost, in.OriginToken, prices.OriginNative, nil)
		report.OriginGas = &gas
	}

	if !prices.BridgeInput.IsZero() && !prices.DestinationNative.IsZero() {
		usd := toUsd(report.DestinationGas.Amount, report.DestinationGas.Token.Decimals, prices.BridgeInput)
		report.DestinationGasNative = &Component{
			Amount:    fromUsd(usd, in.DestinationToken.Decimals, prices.DestinationNative),
			AmountUsd: formatUsd(usd),
			Token:     in.DestinationToken,
		}
	}

	if quotes.AppFee != nil {
		pct := decimal.NewFromFloat(quotes.AppFee.Percent).Mul(pctScale).Truncate(0).BigInt()
		report.App = component(quotes.AppFee.Amount, quotes.AppFee.Token, prices.AppFeeToken, pct)
	} else {
		report.App = component(new(big.Int), cs.OutputToken, prices.AppFeeToken, new(big.Int))
	}

	inputAmount := quotes.InputAmount()
	inputUsd := toUsd(inputAmount, cs.InputToken.Decimals, prices.InputToken)
	minOutputUsd := toUsd(quotes.MinOutputAmountSansAppFees(), cs.OutputToken.Decimals, prices.OutputToken)

	if !quotes.HasSwap() {
		// bridge only: the fee is whatever does not arrive
		minOutput := bigint.ConvertDecimals(quotes.MinOutputAmountSansAppFees(), cs.OutputToken.Decimals, cs.InputToken.Decimals, false)
		amount := new(big.Int).Sub(inputAmount, minOutput)
		report.Total = Component{
			Amount:    amount,
			AmountUsd: formatUsd(inputUsd.Sub(minOutputUsd)),
			Pct:       pctOf(amount, inputAmount),
			Token:     cs.InputToken,
		}
		report.TotalMax = report.Total
		return report
	}

	bridgeToken := bridge.InputToken
	relayerUsd := toUsd(report.RelayerTotal.Amount, bridgeToken.Decimals, prices.BridgeInput)
	expectedOutputUsd := toUsd(quotes.ExpectedOutputAmountSansAppFees(), cs.OutputToken.Decimals, prices.OutputToken)

	impactUsd := inputUsd.Sub(relayerUsd).Sub(expectedOutputUsd)
	maxImpactUsd := inputUsd.Sub(relayerUsd).Sub(minOutputUsd)
	report.SwapImpact = impactComponent(impactUsd, inputUsd, bridgeToken, prices.BridgeInput)
	report.MaxSwapImpact = impactComponent(maxImpactUsd, inputUsd, bridgeToken, prices.BridgeInput)

	report.Total = Component{
		Amount:    bigint.Copy(report.RelayerTotal.Amount),
		AmountUsd: report.RelayerTotal.AmountUsd,
		Pct:       bigint.Copy(report.RelayerTotal.Pct),
		Token:     bridgeToken,
	}
	totalMaxUsd := relayerUsd.Add(maxImpactUsd)
	report.TotalMax = Component{
		Amount:    new(big.Int).Add(report.Total.Amount, report.MaxSwapImpact.Amount),
		AmountUsd: formatUsd(totalMaxUsd),
		Pct:       usdPct(totalMaxUsd, inputUsd),
		Token:     bridgeToken,
	}
	return report
}

// impactComponent expresses a USD loss in bridge token units.
func impactComponent(usd, inputUsd decimal.Decimal, token model.Token, price decimal.Decimal) *Component {
	return &Component{
		Amount:    fromUsd(usd, token.Decimals, price),
		AmountUsd: formatUsd(usd),
		Pct:       usdPct(usd, inputUsd),
		Token:     token,
	}
}

func usdPct(usd, inputUsd decimal.Decimal) *big.Int {
	if inputUsd.IsZero() {
		return new(big.Int)
	}
	return usd.Div(inputUsd).Mul(pctScale).Truncate(0).BigInt()
}
