package jupiter

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/fachebot/cross-swap-api/internal/config"
	"github.com/fachebot/cross-swap-api/internal/dexagg"
	"github.com/fachebot/cross-swap-api/internal/model"
	"github.com/fachebot/cross-swap-api/internal/utils/bigint"

	"github.com/carlmjohnson/requests"
)

const Venue = "jupiter"

// Router is the Jupiter v6 aggregator program.
const Router = "JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4"

const (
	SwapModeExactIn  = "ExactIn"
	SwapModeExactOut = "ExactOut"
)

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
	InputMint   string
	OutputMint  string
	Amount      string
	SlippageBps int64
	SwapMode    string
	Dexes       []string
	ExcludeDex  []string
}

type RoutePlan struct {
	SwapInfo struct {
		Label string `json:"label"`
	} `json:"swapInfo"`
	Percent int `json:"percent"`
}

type QuoteResponse struct {
	InputMint            string       `json:"inputMint"`
	OutputMint           string       `json:"outputMint"`
	InAmount             bigint.Value `json:"inAmount"`
	OutAmount            bigint.Value `json:"outAmount"`
	OtherAmountThreshold bigint.Value `json:"otherAmountThreshold"`
	SwapMode             string       `json:"swapMode"`
	SlippageBps          int64        `json:"slippageBps"`
	RoutePlan            []RoutePlan  `json:"routePlan"`

	Raw json.RawMessage `json:"-"`
}

type AccountMeta struct {
	Pubkey     string `json:"pubkey"`
	IsSigner   bool   `json:"isSigner"`
	IsWritable bool   `json:"isWritable"`
}

type Instruction struct {
	ProgramId string        `json:"programId"`
	Accounts  []AccountMeta `json:"accounts"`
	Data      string        `json:"data"`
}

type SwapInstructions struct {
	ComputeBudgetInstructions   []Instruction `json:"computeBudgetInstructions"`
	SetupInstructions           []Instruction `json:"setupInstructions"`
	TokenLedgerInstruction      *Instruction  `json:"tokenLedgerInstruction"`
	SwapInstruction             Instruction   `json:"swapInstruction"`
	CleanupInstruction          *Instruction  `json:"cleanupInstruction"`
	AddressLookupTableAddresses []string      `json:"addressLookupTableAddresses"`
}

type errorResponse struct {
	Error     string `json:"error"`
	ErrorCode string `json:"errorCode"`
}

func (client *Client) builder(path string) *requests.Builder {
	rb := requests.URL(client.baseUrl + path).Client(client.httpClient)
	if client.apiKey != "" {
		rb = rb.Header("x-api-key", client.apiKey)
	}
	return rb
}

func (client *Client) Quote(ctx context.Context, req QuoteRequest) (*QuoteResponse, error) {
	rb := client.builder("/quote").
		Param("inputMint", req.InputMint).
		Param("outputMint", req.OutputMint).
		Param("amount", req.Amount).
		Param("slippageBps", strconv.FormatInt(req.SlippageBps, 10)).
		Param("swapMode", req.SwapMode)
	if len(req.Dexes) > 0 {
		rb = rb.Param("dexes", strings.Join(req.Dexes, ","))
	}
	if len(req.ExcludeDex) > 0 {
		rb = rb.Param("excludeDexes", strings.Join(req.ExcludeDex, ","))
	}

	var raw json.RawMessage
	if err := dexagg.Fetch(ctx, Venue, rb, &raw); err != nil {
		return nil, err
	}

	var res QuoteResponse
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, dexagg.Upstream(err)
	}
	res.Raw = raw
	return &res, nil
}

func (client *Client) SwapInstructions(ctx context.Context, user string, quote *QuoteResponse) (*SwapInstructions, error) {
	body := map[string]any{
		"userPublicKey":           user,
		"quoteResponse":           quote.Raw,
		"wrapAndUnwrapSol":        true,
		"dynamicComputeUnitLimit": true,
	}

	rb := client.builder("/swap-instructions").Method(http.MethodPost).BodyJSON(body)

	var res SwapInstructions
	if err := dexagg.Fetch(ctx, Venue, rb, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// IsNoRoute matches Jupiter's COULD_NOT_FIND_ANY_ROUTE answer.
func IsNoRoute(err error) bool {
	httpErr, ok := dexagg.AsHTTPError(err)
	if !ok {
		return false
	}
	var res errorResponse
	if json.Unmarshal(httpErr.Body, &res) != nil {
		return false
	}
	return res.ErrorCode == "COULD_NOT_FIND_ANY_ROUTE" || res.ErrorCode == "TOKEN_NOT_TRADABLE"
}

func (ins Instruction) ToModel() (model.SvmInstruction, error) {
	data, err := base64.StdEncoding.DecodeString(ins.Data)
	if err != nil {
		return model.SvmInstruction{}, err
	}
	accounts := make([]model.SvmAccountMeta, 0, len(ins.Accounts))
	for _, item := range ins.Accounts {
		accounts = append(accounts, model.SvmAccountMeta{
			Pubkey:     item.Pubkey,
			IsSigner:   item.IsSigner,
			IsWritable: item.IsWritable,
		})
	}
	return model.SvmInstruction{ProgramId: ins.ProgramId, Accounts: accounts, Data: data}, nil
}

// ToModel flattens the venue response into ordered instruction groups.
func (res *SwapInstructions) ToModel() (*model.SvmSwapInstructions, error) {
	convert := func(items []Instruction) ([]model.SvmInstruction, error) {
		result := make([]model.SvmInstruction, 0, len(items))
		for _, item := range items {
			ins, err := item.ToModel()
			if err != nil {
				return nil, err
			}
			result = append(result, ins)
		}
		return result, nil
	}

	computeBudget, err := convert(res.ComputeBudgetInstructions)
	if err != nil {
		return nil, err
	}
	setup, err := convert(res.SetupInstructions)
	if err != nil {
		return nil, err
	}
	swap, err := res.SwapInstruction.ToModel()
	if err != nil {
		return nil, err
	}

	result := &model.SvmSwapInstructions{
		ComputeBudget:       computeBudget,
		Setup:               setup,
		Swap:                swap,
		AddressLookupTables: res.AddressLookupTableAddresses,
	}
	if res.TokenLedgerInstruction != nil {
		ins, err := res.TokenLedgerInstruction.ToModel()
		if err != nil {
			return nil, err
		}
		result.TokenLedger = &ins
	}
	if res.CleanupInstruction != nil {
		ins, err := res.CleanupInstruction.ToModel()
		if err != nil {
			return nil, err
		}
		result.Cleanup = &ins
	}
	return result, nil
}

// Labels lists the AMMs a quote routed through.
func (q *QuoteResponse) Labels() []string {
	result := make([]string, 0, len(q.RoutePlan))
	for _, plan := range q.RoutePlan {
		result = append(result, plan.SwapInfo.Label)
	}
	return result
}
