package okxweb3

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fachebot/cross-swap-api/internal/config"

	"github.com/carlmjohnson/requests"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

const DefaultBaseUrl = "https://web3.okx.com"

const realtimePricePath = "/api/v5/wallet/token/real-time-price"

type Client struct {
	baseUrl    string
	apiKey     string
	secretKey  []byte
	passphrase string
	client     *http.Client
	now        func() time.Time
}

func NewClient(c config.OkxWeb3, httpClient *http.Client) *Client {
	return NewClientWithBaseUrl(DefaultBaseUrl, c, httpClient)
}

func NewClientWithBaseUrl(baseUrl string, c config.OkxWeb3, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = new(http.Client)
	}
	return &Client{
		baseUrl:    strings.TrimRight(baseUrl, "/"),
		apiKey:     c.Apikey,
		secretKey:  []byte(c.Secretkey),
		passphrase: c.Passphrase,
		client:     httpClient,
		now:        time.Now,
	}
}

type priceQuery struct {
	ChainIndex   string `json:"chainIndex"`
	TokenAddress string `json:"tokenAddress"`
}

// GetRealtimePrice returns USD prices keyed by token address, lower-cased on
// EVM chains.
func (client *Client) GetRealtimePrice(ctx context.Context, chainIndex string, tokenAddresses []string) (map[string]decimal.Decimal, error) {
	if len(tokenAddresses) == 0 {
		return nil, nil
	}

	queries := lo.Map(lo.Uniq(tokenAddresses), func(tokenAddress string, _ int) priceQuery {
		return priceQuery{ChainIndex: chainIndex, TokenAddress: tokenAddress}
	})
	var realtimePrices []RealtimePrice
	if err := client.post(ctx, realtimePricePath, queries, &realtimePrices); err != nil {
		return nil, err
	}

	result := lo.SliceToMap(realtimePrices, func(item RealtimePrice) (string, decimal.Decimal) {
		if chainIndex == SolanaChainIndex {
			return item.TokenAddress, item.Price
		}
		return strings.ToLower(item.TokenAddress), item.Price
	})
	return result, nil
}

// sign is the OKX access signature: base64(hmac-sha256(ts + method + path + body)).
func (client *Client) sign(method, path, body string) (string, string) {
	ts := client.now().UTC().Format("2006-01-02T15:04:05.999Z07:00")
	h := hmac.New(sha256.New, client.secretKey)
	h.Write([]byte(ts + method + path + body))
	return ts, base64.StdEncoding.EncodeToString(h.Sum(nil))
}

func (client *Client) post(ctx context.Context, path string, params, v any) error {
	body, err := json.Marshal(params)
	if err != nil {
		return err
	}
	timestamp, sign := client.sign(http.MethodPost, path, string(body))

	var res restResponse
	err = requests.URL(client.baseUrl + path).
		Client(client.client).
		BodyBytes(body).
		ContentType("application/json").
		Header("OK-ACCESS-KEY", client.apiKey).
		Header("OK-ACCESS-PASSPHRASE", client.passphrase).
		Header("OK-ACCESS-SIGN", sign).
		Header("OK-ACCESS-TIMESTAMP", timestamp).
		ToJSON(&res).
		Fetch(ctx)
	if err != nil {
		return fmt.Errorf("okx %s: %w", path, err)
	}
	if res.Code != "0" {
		return fmt.Errorf("error code %s: %s", res.Code, res.Msg)
	}
	if err = json.Unmarshal(res.Data, v); err != nil {
		return fmt.Errorf("failed to unmarshal data: %w", err)
	}
	return nil
}
