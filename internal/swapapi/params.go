package swapapi

import (
	"context"
	"math/big"
	"strconv"
	"strings"

	"github.com/fachebot/cross-swap-api/internal/address"
	"github.com/fachebot/cross-swap-api/internal/apierr"
	"github.com/fachebot/cross-swap-api/internal/evmtx"
	"github.com/fachebot/cross-swap-api/internal/model"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/samber/lo"
)

// Params is the raw request. Query fields arrive as strings and are parsed
// by the service so every endpoint reports the same errors.
type Params struct {
	Amount                 string           `query:"amount" json:"-"`
	TradeType              string           `query:"tradeType" json:"-"`
	InputToken             string           `query:"inputToken" json:"-"`
	OutputToken            string           `query:"outputToken" json:"-"`
	OriginChainId          string           `query:"originChainId" json:"-"`
	DestinationChainId     string           `query:"destinationChainId" json:"-"`
	Depositor              string           `query:"depositor" json:"-"`
	Recipient              string           `query:"recipient" json:"-"`
	IntegratorId           string           `query:"integratorId" json:"-"`
	RefundAddress          string           `query:"refundAddress" json:"-"`
	RefundOnOrigin         string           `query:"refundOnOrigin" json:"-"`
	SlippageTolerance      string           `query:"slippageTolerance" json:"-"`
	SkipOriginTxEstimation string           `query:"skipOriginTxEstimation" json:"-"`
	IncludeSources         string           `query:"includeSources" json:"-"`
	ExcludeSources         string           `query:"excludeSources" json:"-"`
	AppFee                 string           `query:"appFee" json:"-"`
	AppFeeRecipient        string           `query:"appFeeRecipient" json:"-"`
	EmbeddedActions        []EmbeddedAction `query:"-" json:"embeddedActions"`
}

type EmbeddedAction struct {
	Target   string `json:"target"`
	CallData string `json:"callData"`
	Value    string `json:"value"`
}

type request struct {
	cs                     model.CrossSwap
	integratorId           string
	skipOriginTxEstimation bool
}

func parseChainId(param, raw string) (int64, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, apierr.MissingParam(param)
	}
	chainId, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || chainId <= 0 {
		return 0, apierr.InvalidParam(param, "%s must be a positive integer", param)
	}
	return chainId, nil
}

func parseBool(param, raw string, fallback bool) (bool, error) {
	if strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, apierr.InvalidParam(param, "%s must be true or false", param)
	}
	return v, nil
}

func parseFloat(param, raw string, fallback float64) (float64, error) {
	if strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, apierr.InvalidParam(param, "%s must be a number", param)
	}
	return v, nil
}

func parseAmount(param, raw string) (*big.Int, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, apierr.MissingParam(param)
	}
	amount, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok {
		return nil, apierr.InvalidParam(param, "%s must be an integer in the token's smallest unit", param)
	}
	return amount, nil
}

func parseAddress(param, raw string, eco address.Ecosystem) (*address.Address, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	addr, err := address.Parse(raw, eco)
	if err != nil {
		return nil, apierr.InvalidParam(param, "%s must be an %s address", param, eco)
	}
	return &addr, nil
}

func parseTradeType(raw string) (model.AmountType, error) {
	switch model.AmountType(strings.TrimSpace(raw)) {
	case "", model.ExactInput:
		return model.ExactInput, nil
	case model.ExactOutput:
		return model.ExactOutput, nil
	case model.MinOutput:
		return model.MinOutput, nil
	}
	return "", apierr.InvalidParam("tradeType", "tradeType must be one of exactInput, exactOutput, minOutput")
}

func splitSources(raw string) []string {
	items := lo.Map(strings.Split(raw, ","), func(item string, _ int) string {
		return strings.TrimSpace(item)
	})
	return lo.Compact(items)
}

func parseEmbeddedActions(actions []EmbeddedAction) ([]model.EmbeddedAction, error) {
	result := make([]model.EmbeddedAction, 0, len(actions))
	for _, action := range actions {
		if _, err := address.ParseEvm(action.Target); err != nil {
			return nil, apierr.InvalidParam("embeddedActions", "invalid action target %q", action.Target)
		}
		callData, err := hexutil.Decode(action.CallData)
		if err != nil {
			return nil, apierr.InvalidParam("embeddedActions", "invalid action calldata")
		}
		value := new(big.Int)
		if action.Value != "" {
			if _, ok := value.SetString(action.Value, 10); !ok {
				return nil, apierr.InvalidParam("embeddedActions", "invalid action value %q", action.Value)
			}
		}
		result = append(result, model.EmbeddedAction{Target: action.Target, CallData: callData, Value: value})
	}
	return result, nil
}

// parse turns raw params into a cross swap. Checks that need only the parsed
// values are left to the orchestrator.
func (s *Service) parse(ctx context.Context, p Params, preferPeriphery bool) (*request, error) {
	amount, err := parseAmount("amount", p.Amount)
	if err != nil {
		return nil, err
	}
	tradeType, err := parseTradeType(p.TradeType)
	if err != nil {
		return nil, err
	}
	originChainId, err := parseChainId("originChainId", p.OriginChainId)
	if err != nil {
		return nil, err
	}
	destinationChainId, err := parseChainId("destinationChainId", p.DestinationChainId)
	if err != nil {
		return nil, err
	}

	registry := s.svcCtx.Tokens.Registry()
	originEco, ok := registry.Ecosystem(originChainId)
	if !ok {
		return nil, apierr.InvalidParam("originChainId", "chain %d is not supported", originChainId)
	}
	destinationEco, ok := registry.Ecosystem(destinationChainId)
	if !ok {
		return nil, apierr.InvalidParam("destinationChainId", "chain %d is not supported", destinationChainId)
	}

	if strings.TrimSpace(p.InputToken) == "" {
		return nil, apierr.MissingParam("inputToken")
	}
	if strings.TrimSpace(p.OutputToken) == "" {
		return nil, apierr.MissingParam("outputToken")
	}
	inputToken, isInputNative, err := s.svcCtx.Tokens.Resolve(ctx, "inputToken", originChainId, p.InputToken)
	if err != nil {
		return nil, err
	}
	outputToken, isOutputNative, err := s.svcCtx.Tokens.Resolve(ctx, "outputToken", destinationChainId, p.OutputToken)
	if err != nil {
		return nil, err
	}

	depositor, err := parseAddress("depositor", p.Depositor, originEco)
	if err != nil {
		return nil, err
	}
	if depositor == nil {
		return nil, apierr.MissingParam("depositor")
	}
	recipient, err := parseAddress("recipient", p.Recipient, destinationEco)
	if err != nil {
		return nil, err
	}
	if recipient == nil {
		if originEco != destinationEco {
			return nil, apierr.MissingParam("recipient")
		}
		recipient = depositor
	}

	if p.IntegratorId != "" {
		if _, err = evmtx.ParseIntegratorId(p.IntegratorId); err != nil {
			return nil, err
		}
	}

	refundOnOrigin, err := parseBool("refundOnOrigin", p.RefundOnOrigin, true)
	if err != nil {
		return nil, err
	}
	refundEco := destinationEco
	if refundOnOrigin {
		refundEco = originEco
	}
	refundAddress, err := parseAddress("refundAddress", p.RefundAddress, refundEco)
	if err != nil {
		return nil, err
	}

	slippage, err := parseFloat("slippageTolerance", p.SlippageTolerance, s.svcCtx.Config.Quote.DefaultSlippage)
	if err != nil {
		return nil, err
	}
	skipEstimation, err := parseBool("skipOriginTxEstimation", p.SkipOriginTxEstimation, false)
	if err != nil {
		return nil, err
	}
	appFee, err := parseFloat("appFee", p.AppFee, 0)
	if err != nil {
		return nil, err
	}
	appFeeRecipient, err := parseAddress("appFeeRecipient", p.AppFeeRecipient, destinationEco)
	if err != nil {
		return nil, err
	}
	actions, err := parseEmbeddedActions(p.EmbeddedActions)
	if err != nil {
		return nil, err
	}

	return &request{
		cs: model.CrossSwap{
			Depositor:         *depositor,
			Recipient:         *recipient,
			InputToken:        inputToken,
			OutputToken:       outputToken,
			Amount:            amount,
			Type:              tradeType,
			SlippageTolerance: slippage,
			RefundOnOrigin:    refundOnOrigin,
			RefundAddress:     refundAddress,
			IsInputNative:     isInputNative,
			IsOutputNative:    isOutputNative,
			IsOriginSvm:       originEco == address.SVM,
			EmbeddedActions:   actions,
			AppFeePercent:     appFee,
			AppFeeRecipient:   appFeeRecipient,
			Sources: model.SourcesFilter{
				Include: splitSources(p.IncludeSources),
				Exclude: splitSources(p.ExcludeSources),
			},
			PreferPeriphery: preferPeriphery,
		},
		integratorId:           p.IntegratorId,
		skipOriginTxEstimation: skipEstimation,
	}, nil
}
