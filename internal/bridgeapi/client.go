package bridgeapi

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"strings"

	"github.com/fachebot/cross-swap-api/internal/address"
	"github.com/fachebot/cross-swap-api/internal/apierr"
	"github.com/fachebot/cross-swap-api/internal/config"
	"github.com/fachebot/cross-swap-api/internal/dexagg"
	"github.com/fachebot/cross-swap-api/internal/logger"
	"github.com/fachebot/cross-swap-api/internal/model"
	"github.com/fachebot/cross-swap-api/internal/utils/bigint"

	"github.com/carlmjohnson/requests"
	"github.com/dustin/go-humanize"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const venue = "bridge"

// Request describes one bridgeable-to-bridgeable transfer.
type Request struct {
	InputToken  model.Token
	OutputToken model.Token
	// Amount is the input amount for QuoteForInput and the desired output for
	// QuoteForOutput.
	Amount    *big.Int
	Recipient *address.Address
	Message   []byte
}

// Client reads suggested fees from the bridge API.
type Client struct {
	baseUrl    string
	httpClient *http.Client
}

func NewClient(c config.BridgeApi, transportProxy *http.Transport) *Client {
	return &Client{
		baseUrl:    strings.TrimRight(c.BaseUrl, "/"),
		httpClient: dexagg.NewHTTPClient(transportProxy, c.Timeout),
	}
}

func (client *Client) suggestedFees(ctx context.Context, req Request, inputAmount *big.Int) (*suggestedFeesResponse, error) {
	rb := requests.URL(client.baseUrl+"/suggested-fees").
		Client(client.httpClient).
		Param("inputToken", req.InputToken.Address.String()).
		Param("outputToken", req.OutputToken.Address.String()).
		Param("originChainId", strconv.FormatInt(req.InputToken.ChainId, 10)).
		Param("destinationChainId", strconv.FormatInt(req.OutputToken.ChainId, 10)).
		Param("amount", inputAmount.String())
	if req.Recipient != nil {
		rb = rb.Param("recipient", req.Recipient.String())
	}
	if len(req.Message) > 0 {
		rb = rb.Param("message", hexutil.Encode(req.Message))
	}

	var res suggestedFeesResponse
	if err := dexagg.Fetch(ctx, venue, rb, &res); err != nil {
		return nil, dexagg.Upstream(err)
	}
	if res.IsAmountTooLow {
		return nil, apierr.Input(apierr.CodeAmountTooLow, "amount %s %s is too low to bridge",
			inputAmount, req.InputToken.Symbol)
	}
	return &res, nil
}

// QuoteForInput quotes a transfer of exactly req.Amount input tokens.
func (client *Client) QuoteForInput(ctx context.Context, req Request) (*model.BridgeQuote, error) {
	res, err := client.suggestedFees(ctx, req, req.Amount)
	if err != nil {
		return nil, err
	}
	return client.toQuote(req, req.Amount, res)
}

// maxSizingRounds bounds the confirm calls QuoteForOutput makes after the
// initial fee estimate.
const maxSizingRounds = 4

// QuoteForOutput sizes the input so at least req.Amount output tokens arrive.
// The first call estimates the fee. Each following call confirms the sized
// input, and a short output grows the input by required/output, since LP fees
// scale with the amount.
func (client *Client) QuoteForOutput(ctx context.Context, req Request) (*model.BridgeQuote, error) {
	inDecimals, outDecimals := req.InputToken.Decimals, req.OutputToken.Decimals
	estimate := bigint.ConvertDecimals(req.Amount, outDecimals, inDecimals, true)

	res, err := client.suggestedFees(ctx, req, estimate)
	if err != nil {
		return nil, err
	}

	var quote *model.BridgeQuote
	inputAmount := new(big.Int).Add(estimate, res.TotalRelayFee.Total.Big())
	for round := 0; round < maxSizingRounds; round++ {
		res, err = client.suggestedFees(ctx, req, inputAmount)
		if err != nil {
			return nil, err
		}

		quote, err = client.toQuote(req, inputAmount, res)
		if err != nil {
			return nil, err
		}
		if quote.OutputAmount.Cmp(req.Amount) >= 0 {
			return quote, nil
		}

		next := bigint.MulDivUp(inputAmount, req.Amount, quote.OutputAmount)
		if next.Cmp(inputAmount) <= 0 {
			next.Add(inputAmount, big.NewInt(1))
		}
		logger.Debugf("[BridgeApi] 桥接输出不足, 追加输入, token: %s, output: %s, input: %s",
			req.InputToken.Symbol, humanize.BigComma(bigint.Copy(quote.OutputAmount)), humanize.BigComma(bigint.Copy(next)))
		inputAmount = next
	}

	return nil, apierr.Invariant(apierr.CodeInsufficientBridgeOutput,
		"bridge output %s %s stays below requested %s after %d rounds",
		quote.OutputAmount, req.OutputToken.Symbol, req.Amount, maxSizingRounds)
}

func (client *Client) toQuote(req Request, inputAmount *big.Int, res *suggestedFeesResponse) (*model.BridgeQuote, error) {
	outputAmount := res.OutputAmount.Big()
	if res.OutputAmount.Int == nil {
		net := new(big.Int).Sub(inputAmount, res.TotalRelayFee.Total.Big())
		outputAmount = bigint.ConvertDecimals(net, req.InputToken.Decimals, req.OutputToken.Decimals, false)
	}
	if outputAmount.Sign() <= 0 {
		return nil, apierr.Input(apierr.CodeAmountTooLow, "amount %s %s does not cover bridge fees",
			inputAmount, req.InputToken.Symbol)
	}

	exclusiveRelayer, err := parseRelayer(res.ExclusiveRelayer, req.OutputToken.Ecosystem())
	if err != nil {
		return nil, apierr.Upstream(venue, http.StatusOK, nil, err)
	}

	fee := func(d feeDetail) model.BridgeFee {
		return model.BridgeFee{Total: d.Total.Big(), Pct: d.Pct.Big(), Token: req.InputToken}
	}
	fees := model.BridgeFees{
		RelayerCapital: fee(res.RelayerCapitalFee),
		RelayerGas:     fee(res.RelayerGasFee),
		Lp:             fee(res.LpFee),
		TotalRelay:     fee(res.TotalRelayFee),
	}
	fees.BridgeFee = model.BridgeFee{
		Total: new(big.Int).Add(fees.RelayerCapital.Total, fees.Lp.Total),
		Pct:   new(big.Int).Add(fees.RelayerCapital.Pct, fees.Lp.Pct),
		Token: req.InputToken,
	}

	return &model.BridgeQuote{
		InputToken:      req.InputToken,
		OutputToken:     req.OutputToken,
		InputAmount:     new(big.Int).Set(inputAmount),
		OutputAmount:    outputAmount,
		MinOutputAmount: new(big.Int).Set(outputAmount),
		SuggestedFees: model.SuggestedFees{
			Timestamp:            uint32(res.Timestamp.Big().Uint64()),
			FillDeadline:         uint32(res.FillDeadline.Big().Uint64()),
			ExclusiveRelayer:     exclusiveRelayer,
			ExclusivityDeadline:  uint32(res.ExclusivityDeadline.Big().Uint64()),
			EstimatedFillTimeSec: res.EstimatedFillTimeSec,
			QuoteBlock:           res.QuoteBlock,
		},
		Fees: fees,
	}, nil
}

func parseRelayer(s string, eco address.Ecosystem) (address.Address, error) {
	if s == "" {
		return address.FromBytes32([32]byte{}, eco)
	}
	if eco == address.SVM && strings.HasPrefix(s, "0x") {
		// the api reports the zero relayer in hex for every destination
		raw, err := hexutil.Decode(s)
		if err != nil || len(raw) > 32 {
			return address.Address{}, fmt.Errorf("exclusive relayer: invalid hex %q", s)
		}
		var b [32]byte
		copy(b[32-len(raw):], raw)
		return address.FromBytes32(b, eco)
	}
	addr, err := address.Parse(s, eco)
	if err != nil {
		return address.Address{}, fmt.Errorf("exclusive relayer: %w", err)
	}
	return addr, nil
}
