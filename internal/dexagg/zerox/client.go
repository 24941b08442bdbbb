package zerox

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/fachebot/cross-swap-api/internal/config"
	"github.com/fachebot/cross-swap-api/internal/dexagg"
	"github.com/fachebot/cross-swap-api/internal/utils/bigint"

	"github.com/carlmjohnson/requests"
)

const Venue = "0x"

// AllowanceHolder is the spender of every allowance-holder quote.
const AllowanceHolder = "0x0000000000001fF3684f28c67538d4D072C22734"

type Client struct {
	baseUrl    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(c config.VenueApi, httpClient *http.Client) *Client {
	return &Client{
		baseUrl:    strings.TrimRight(c.BaseUrl, "/"),
		apiKey:     c.ApiKey,
		httpClient: httpClient,
	}
}

type PriceRequest struct {
	ChainId     int64
	SellToken   string
	BuyToken    string
	SellAmount  string
	Taker       string
	Recipient   string
	SlippageBps int64
}

type Fill struct {
	Source string `json:"source"`
}

type Transaction struct {
	To    string       `json:"to"`
	Data  string       `json:"data"`
	Value bigint.Value `json:"value"`
	Gas   bigint.Value `json:"gas"`
}

type Quote struct {
	LiquidityAvailable bool         `json:"liquidityAvailable"`
	BuyAmount          bigint.Value `json:"buyAmount"`
	MinBuyAmount       bigint.Value `json:"minBuyAmount"`
	SellAmount         bigint.Value `json:"sellAmount"`
	Route              struct {
		Fills []Fill `json:"fills"`
	} `json:"route"`
	Transaction *Transaction `json:"transaction,omitempty"`
}

func (client *Client) get(path string, req PriceRequest) *requests.Builder {
	rb := requests.URL(client.baseUrl+path).
		Client(client.httpClient).
		Param("chainId", strconv.FormatInt(req.ChainId, 10)).
		Param("sellToken", req.SellToken).
		Param("buyToken", req.BuyToken).
		Param("sellAmount", req.SellAmount).
		Param("slippageBps", strconv.FormatInt(req.SlippageBps, 10)).
		Header("0x-version", "v2")
	if req.Taker != "" {
		rb = rb.Param("taker", req.Taker)
	}
	if req.Recipient != "" {
		rb = rb.Param("recipient", req.Recipient)
	}
	if client.apiKey != "" {
		rb = rb.Header("0x-api-key", client.apiKey)
	}
	return rb
}

// Price is the indicative endpoint; it carries no transaction.
func (client *Client) Price(ctx context.Context, req PriceRequest) (*Quote, error) {
	var res Quote
	if err := dexagg.Fetch(ctx, Venue, client.get("/swap/allowance-holder/price", req), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (client *Client) Quote(ctx context.Context, req PriceRequest) (*Quote, error) {
	var res Quote
	if err := dexagg.Fetch(ctx, Venue, client.get("/swap/allowance-holder/quote", req), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Sources lists the liquidity sources a quote routed through.
func (q *Quote) Sources() []string {
	seen := make(map[string]struct{})
	result := make([]string, 0, len(q.Route.Fills))
	for _, fill := range q.Route.Fills {
		if _, ok := seen[fill.Source]; ok {
			continue
		}
		seen[fill.Source] = struct{}{}
		result = append(result, fill.Source)
	}
	return result
}
