package uniswap

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/fachebot/cross-swap-api/internal/config"
	"github.com/fachebot/cross-swap-api/internal/dexagg"
	"github.com/fachebot/cross-swap-api/internal/utils/bigint"

	"github.com/carlmjohnson/requests"
)

const Venue = "uniswap"

const (
	TradeTypeExactInput  = "EXACT_INPUT"
	TradeTypeExactOutput = "EXACT_OUTPUT"
)

// Client talks to the Uniswap trading API.
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

type QuoteRequest struct {
	Type              string   `json:"type"`
	Amount            string   `json:"amount"`
	TokenInChainId    int64    `json:"tokenInChainId"`
	TokenOutChainId   int64    `json:"tokenOutChainId"`
	TokenIn           string   `json:"tokenIn"`
	TokenOut          string   `json:"tokenOut"`
	Swapper           string   `json:"swapper,omitempty"`
	SlippageTolerance float64  `json:"slippageTolerance,omitempty"`
	RoutingPreference string   `json:"routingPreference,omitempty"`
	Protocols         []string `json:"protocols,omitempty"`
}

type TokenAmount struct {
	Token   string       `json:"token"`
	Amount  bigint.Value `json:"amount"`
	ChainId int64        `json:"chainId"`
}

type RouteHop struct {
	Type string `json:"type"`
}

type ClassicQuote struct {
	Input     TokenAmount  `json:"input"`
	Output    TokenAmount  `json:"output"`
	Slippage  float64      `json:"slippage"`
	Route     [][]RouteHop `json:"route"`
	GasFeeUSD string       `json:"gasFeeUSD"`
}

type QuoteResponse struct {
	RequestId string          `json:"requestId"`
	Routing   string          `json:"routing"`
	Quote     json.RawMessage `json:"quote"`

	Classic ClassicQuote `json:"-"`
}

type IndicativeQuote struct {
	RequestId string      `json:"requestId"`
	Input     TokenAmount `json:"input"`
	Output    TokenAmount `json:"output"`
	Type      string      `json:"type"`
}

type SwapTx struct {
	To      string       `json:"to"`
	From    string       `json:"from"`
	Data    string       `json:"data"`
	Value   bigint.Value `json:"value"`
	ChainId int64        `json:"chainId"`
}

type swapResponse struct {
	RequestId string `json:"requestId"`
	Swap      SwapTx `json:"swap"`
}

func (client *Client) post(path string, body any) *requests.Builder {
	rb := requests.URL(client.baseUrl+path).
		Client(client.httpClient).
		Method(http.MethodPost).
		BodyJSON(body).
		Accept("application/json")
	if client.apiKey != "" {
		rb = rb.Header("x-api-key", client.apiKey)
	}
	return rb
}

// IndicativeQuote hits the lightweight endpoint. A 404 is returned as
// *dexagg.HTTPError so the caller can fall back to Quote.
func (client *Client) IndicativeQuote(ctx context.Context, req QuoteRequest) (*IndicativeQuote, error) {
	body := map[string]any{
		"type":            req.Type,
		"amount":          req.Amount,
		"tokenInChainId":  req.TokenInChainId,
		"tokenOutChainId": req.TokenOutChainId,
		"tokenIn":         req.TokenIn,
		"tokenOut":        req.TokenOut,
	}

	var res IndicativeQuote
	if err := dexagg.Fetch(ctx, Venue, client.post("/indicative_quote", body), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (client *Client) Quote(ctx context.Context, req QuoteRequest) (*QuoteResponse, error) {
	if req.RoutingPreference == "" {
		req.RoutingPreference = "CLASSIC"
	}

	var res QuoteResponse
	if err := dexagg.Fetch(ctx, Venue, client.post("/quote", req), &res); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(res.Quote, &res.Classic); err != nil {
		return nil, dexagg.Upstream(err)
	}
	return &res, nil
}

// Swap turns a firm quote into router calldata.
func (client *Client) Swap(ctx context.Context, quote json.RawMessage) (*SwapTx, error) {
	body := map[string]any{
		"quote":               quote,
		"simulateTransaction": false,
	}

	var res swapResponse
	if err := dexagg.Fetch(ctx, Venue, client.post("/swap", body), &res); err != nil {
		return nil, err
	}
	return &res.Swap, nil
}

// IsNoRoute reports the trading API's "no quotes" answers.
func IsNoRoute(err error) bool {
	httpErr, ok := dexagg.AsHTTPError(err)
	if !ok {
		return false
	}
	if httpErr.StatusCode == http.StatusNotFound {
		return true
	}
	return strings.Contains(string(httpErr.Body), "No quotes available")
}
