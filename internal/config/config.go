package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/fachebot/cross-swap-api/internal/address"

	"gopkg.in/yaml.v3"
)

type Server struct {
	Addr           string        `yaml:"Addr"`
	ApiKey         string        `yaml:"ApiKey"`
	DevMode        bool          `yaml:"DevMode"`
	RequestTimeout time.Duration `yaml:"RequestTimeout"`
	RateLimit      float64       `yaml:"RateLimit"`
	RateBurst      int           `yaml:"RateBurst"`
}

type Log struct {
	Level      string `yaml:"Level"`
	File       string `yaml:"File"`
	MaxSize    int    `yaml:"MaxSize"`
	MaxBackups int    `yaml:"MaxBackups"`
	MaxAge     int    `yaml:"MaxAge"`
	Compress   bool   `yaml:"Compress"`
}

type Sock5Proxy struct {
	Host   string `yaml:"Host"`
	Port   int32  `yaml:"Port"`
	Enable bool   `yaml:"Enable"`
}

type OkxWeb3 struct {
	Apikey     string `yaml:"Apikey"`
	Secretkey  string `yaml:"Secretkey"`
	Passphrase string `yaml:"Passphrase"`
}

type BridgeApi struct {
	BaseUrl string        `yaml:"BaseUrl"`
	Timeout time.Duration `yaml:"Timeout"`
}

type VenueApi struct {
	BaseUrl string `yaml:"BaseUrl"`
	ApiKey  string `yaml:"ApiKey"`
}

type Venues struct {
	Uniswap VenueApi      `yaml:"Uniswap"`
	ZeroEx  VenueApi      `yaml:"ZeroEx"`
	Jupiter VenueApi      `yaml:"Jupiter"`
	Timeout time.Duration `yaml:"Timeout"`
}

type Quote struct {
	DefaultSlippage       float64       `yaml:"DefaultSlippage"`
	PreferredBridgeTokens []string      `yaml:"PreferredBridgeTokens"`
	AuthValidity          time.Duration `yaml:"AuthValidity"`
	Eip3009DefaultVersion int           `yaml:"Eip3009DefaultVersion"`
	PermitDeadline        time.Duration `yaml:"PermitDeadline"`
}

type Token struct {
	Symbol     string `yaml:"Symbol"`
	Address    string `yaml:"Address"`
	Decimals   uint8  `yaml:"Decimals"`
	Bridgeable bool   `yaml:"Bridgeable"`
}

type Contracts struct {
	SpokePool               string            `yaml:"SpokePool"`
	SpokePoolPeriphery      string            `yaml:"SpokePoolPeriphery"`
	PeripherySupportsNative bool              `yaml:"PeripherySupportsNative"`
	SwapProxy               string            `yaml:"SwapProxy"`
	MulticallHandler        string            `yaml:"MulticallHandler"`
	UniversalSwapAndBridge  map[string]string `yaml:"UniversalSwapAndBridge"`
	SvmSpokeProgram         string            `yaml:"SvmSpokeProgram"`
	SvmStateSeed            uint64            `yaml:"SvmStateSeed"`
}

type UniswapV3 struct {
	QuoterV2        string   `yaml:"QuoterV2"`
	SwapRouter02    string   `yaml:"SwapRouter02"`
	UniversalRouter string   `yaml:"UniversalRouter"`
	FeeTiers        []uint32 `yaml:"FeeTiers"`
}

type WrappedPair struct {
	Token    string `yaml:"Token"`
	Wrapped  string `yaml:"Wrapped"`
	Delegate string `yaml:"Delegate"`
}

type Chain struct {
	Id             int64  `yaml:"Id"`
	Name           string `yaml:"Name"`
	Ecosystem      string `yaml:"Ecosystem"`
	RpcUrl         string `yaml:"RpcUrl"`
	NativeCurrency struct {
		Symbol   string `yaml:"Symbol"`
		Decimals uint8  `yaml:"Decimals"`
	} `yaml:"NativeCurrency"`
	WrappedNative string        `yaml:"WrappedNative"`
	Contracts     Contracts     `yaml:"Contracts"`
	Tokens        []Token       `yaml:"Tokens"`
	Venues        []string      `yaml:"Venues"`
	UniswapV3     UniswapV3     `yaml:"UniswapV3"`
	WrappedPairs  []WrappedPair `yaml:"WrappedPairs"`
}

func (c *Chain) EcosystemType() address.Ecosystem {
	return address.Ecosystem(c.Ecosystem)
}

func (c *Chain) Validate() error {
	if c.Id <= 0 {
		return errors.New("Id must be positive")
	}
	if c.Ecosystem == "" {
		c.Ecosystem = string(address.EVM)
	}
	eco := c.EcosystemType()
	if eco != address.EVM && eco != address.SVM {
		return fmt.Errorf("Ecosystem枚举值范围: evm/svm, got %q", c.Ecosystem)
	}

	if c.NativeCurrency.Decimals == 0 {
		c.NativeCurrency.Decimals = 18
		if eco == address.SVM {
			c.NativeCurrency.Decimals = 9
		}
	}

	check := func(field, value string) error {
		if value == "" {
			return nil
		}
		if _, err := address.Parse(value, eco); err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
		return nil
	}

	if err := check("WrappedNative", c.WrappedNative); err != nil {
		return err
	}
	for name, value := range map[string]string{
		"SpokePool":          c.Contracts.SpokePool,
		"SpokePoolPeriphery": c.Contracts.SpokePoolPeriphery,
		"SwapProxy":          c.Contracts.SwapProxy,
		"MulticallHandler":   c.Contracts.MulticallHandler,
		"SvmSpokeProgram":    c.Contracts.SvmSpokeProgram,
	} {
		if err := check(name, value); err != nil {
			return err
		}
	}
	for dex, value := range c.Contracts.UniversalSwapAndBridge {
		if err := check("UniversalSwapAndBridge."+dex, value); err != nil {
			return err
		}
	}

	for idx := range c.Tokens {
		token := &c.Tokens[idx]
		if token.Symbol == "" {
			return fmt.Errorf("Tokens[%d]: Symbol is required", idx)
		}
		if err := check("Tokens."+token.Symbol, token.Address); err != nil {
			return err
		}
	}

	if eco == address.EVM && len(c.UniswapV3.FeeTiers) == 0 {
		c.UniswapV3.FeeTiers = []uint32{100, 500, 3000, 10000}
	}

	return nil
}

type Config struct {
	Server     Server     `yaml:"Server"`
	Log        Log        `yaml:"Log"`
	Sock5Proxy Sock5Proxy `yaml:"Sock5Proxy"`
	OkxWeb3    OkxWeb3    `yaml:"OkxWeb3"`
	BridgeApi  BridgeApi  `yaml:"BridgeApi"`
	Venues     Venues     `yaml:"Venues"`
	Quote      Quote      `yaml:"Quote"`
	Chains     []Chain    `yaml:"Chains"`
}

func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.RequestTimeout <= 0 {
		c.Server.RequestTimeout = 30 * time.Second
	}
	if c.Server.RateLimit <= 0 {
		c.Server.RateLimit = 5
	}
	if c.Server.RateBurst <= 0 {
		c.Server.RateBurst = 10
	}

	if c.BridgeApi.BaseUrl == "" {
		c.BridgeApi.BaseUrl = "https://app.across.to/api"
	}
	if c.BridgeApi.Timeout <= 0 {
		c.BridgeApi.Timeout = 10 * time.Second
	}
	if c.Venues.Timeout <= 0 {
		c.Venues.Timeout = 10 * time.Second
	}
	if c.Venues.Uniswap.BaseUrl == "" {
		c.Venues.Uniswap.BaseUrl = "https://trading-api-labs.interface.gateway.uniswap.org/v1"
	}
	if c.Venues.ZeroEx.BaseUrl == "" {
		c.Venues.ZeroEx.BaseUrl = "https://api.0x.org"
	}
	if c.Venues.Jupiter.BaseUrl == "" {
		c.Venues.Jupiter.BaseUrl = "https://lite-api.jup.ag/swap/v1"
	}

	if c.Quote.DefaultSlippage < 0 || c.Quote.DefaultSlippage > 50 {
		return errors.New("Quote.DefaultSlippage 取值范围: 0-50")
	}
	if c.Quote.DefaultSlippage == 0 {
		c.Quote.DefaultSlippage = 0.5
	}
	if len(c.Quote.PreferredBridgeTokens) == 0 {
		c.Quote.PreferredBridgeTokens = []string{"USDC", "WETH", "USDT"}
	}
	if c.Quote.AuthValidity <= 0 {
		c.Quote.AuthValidity = 30 * time.Minute
	}
	if c.Quote.PermitDeadline <= 0 {
		c.Quote.PermitDeadline = 30 * time.Minute
	}
	if c.Quote.Eip3009DefaultVersion != 1 && c.Quote.Eip3009DefaultVersion != 2 {
		c.Quote.Eip3009DefaultVersion = 1
	}

	if len(c.Chains) == 0 {
		return errors.New("Chains 不能为空")
	}
	seen := make([]int64, 0, len(c.Chains))
	for idx := range c.Chains {
		chain := &c.Chains[idx]
		if slices.Contains(seen, chain.Id) {
			return fmt.Errorf("duplicate chain id %d", chain.Id)
		}
		seen = append(seen, chain.Id)

		if err := chain.Validate(); err != nil {
			return fmt.Errorf("Chains[%d](%s)配置错误: %w", idx, chain.Name, err)
		}
	}

	return nil
}

func (c *Config) FindChain(chainId int64) (*Chain, bool) {
	for idx := range c.Chains {
		if c.Chains[idx].Id == chainId {
			return &c.Chains[idx], true
		}
	}
	return nil, false
}

// envOverrides maps CROSS_SWAP_* variables onto the secrets they replace.
var envOverrides = []struct {
	key   string
	field func(c *Config) *string
}{
	{"CROSS_SWAP_API_KEY", func(c *Config) *string { return &c.Server.ApiKey }},
	{"CROSS_SWAP_OKX_APIKEY", func(c *Config) *string { return &c.OkxWeb3.Apikey }},
	{"CROSS_SWAP_OKX_SECRETKEY", func(c *Config) *string { return &c.OkxWeb3.Secretkey }},
	{"CROSS_SWAP_OKX_PASSPHRASE", func(c *Config) *string { return &c.OkxWeb3.Passphrase }},
	{"CROSS_SWAP_UNISWAP_APIKEY", func(c *Config) *string { return &c.Venues.Uniswap.ApiKey }},
	{"CROSS_SWAP_ZEROEX_APIKEY", func(c *Config) *string { return &c.Venues.ZeroEx.ApiKey }},
	{"CROSS_SWAP_JUPITER_APIKEY", func(c *Config) *string { return &c.Venues.Jupiter.ApiKey }},
}

// ApplyEnv overrides secrets from the environment. Blank values are ignored.
func (c *Config) ApplyEnv() {
	for _, item := range envOverrides {
		if v := strings.TrimSpace(os.Getenv(item.key)); v != "" {
			*item.field(c) = v
		}
	}
}

func Parse(data []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, err
	}

	c.ApplyEnv()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}
