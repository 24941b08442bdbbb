package bridgeapi

import (
	"github.com/fachebot/cross-swap-api/internal/utils/bigint"
)

type feeDetail struct {
	Pct   bigint.Value `json:"pct"`
	Total bigint.Value `json:"total"`
}

type suggestedFeesResponse struct {
	EstimatedFillTimeSec int64        `json:"estimatedFillTimeSec"`
	Timestamp            bigint.Value `json:"timestamp"`
	FillDeadline         bigint.Value `json:"fillDeadline"`
	IsAmountTooLow       bool         `json:"isAmountTooLow"`
	QuoteBlock           string       `json:"quoteBlock"`
	ExclusiveRelayer     string       `json:"exclusiveRelayer"`
	ExclusivityDeadline  bigint.Value `json:"exclusivityDeadline"`
	OutputAmount         bigint.Value `json:"outputAmount"`
	TotalRelayFee        feeDetail    `json:"totalRelayFee"`
	RelayerCapitalFee    feeDetail    `json:"relayerCapitalFee"`
	RelayerGasFee        feeDetail    `json:"relayerGasFee"`
	LpFee                feeDetail    `json:"lpFee"`
}
