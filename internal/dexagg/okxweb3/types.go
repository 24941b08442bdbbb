package okxweb3

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

type restResponse struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

type RealtimePrice struct {
	ChainIndex   string          `json:"chainIndex"`
	TokenAddress string          `json:"tokenAddress"`
	Time         string          `json:"time"`
	Price        decimal.Decimal `json:"price"`
}
