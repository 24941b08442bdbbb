package evm

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const erc20ABIJSON = `[
  {"type":"function","name":"name","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
  {"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
  {"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
  {"type":"function","name":"version","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
  {"type":"function","name":"nonces","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"DOMAIN_SEPARATOR","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"bytes32"}]},
  {"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
]`

const wrapperABIJSON = `[
  {"type":"function","name":"depositFor","stateMutability":"nonpayable","inputs":[{"name":"account","type":"address"},{"name":"value","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"withdrawTo","stateMutability":"nonpayable","inputs":[{"name":"account","type":"address"},{"name":"value","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"deposit","stateMutability":"payable","inputs":[],"outputs":[]},
  {"type":"function","name":"withdraw","stateMutability":"nonpayable","inputs":[{"name":"wad","type":"uint256"}],"outputs":[]}
]`

const spokePoolABIJSON = `[
  {"type":"function","name":"deposit","stateMutability":"payable","inputs":[
    {"name":"depositor","type":"bytes32"},
    {"name":"recipient","type":"bytes32"},
    {"name":"inputToken","type":"bytes32"},
    {"name":"outputToken","type":"bytes32"},
    {"name":"inputAmount","type":"uint256"},
    {"name":"outputAmount","type":"uint256"},
    {"name":"destinationChainId","type":"uint256"},
    {"name":"exclusiveRelayer","type":"bytes32"},
    {"name":"quoteTimestamp","type":"uint32"},
    {"name":"fillDeadline","type":"uint32"},
    {"name":"exclusivityParameter","type":"uint32"},
    {"name":"message","type":"bytes"}],"outputs":[]}
]`

const baseDepositDataComponents = `[
  {"name":"inputToken","type":"address"},
  {"name":"outputToken","type":"bytes32"},
  {"name":"outputAmount","type":"uint256"},
  {"name":"depositor","type":"address"},
  {"name":"recipient","type":"bytes32"},
  {"name":"destinationChainId","type":"uint256"},
  {"name":"exclusiveRelayer","type":"bytes32"},
  {"name":"quoteTimestamp","type":"uint32"},
  {"name":"fillDeadline","type":"uint32"},
  {"name":"exclusivityParameter","type":"uint32"},
  {"name":"message","type":"bytes"}]`

const peripheryABIJSON = `[
  {"type":"function","name":"swapAndBridge","stateMutability":"payable","inputs":[
    {"name":"swapAndDepositData","type":"tuple","components":[
      {"name":"submissionFees","type":"tuple","components":[{"name":"amount","type":"uint256"},{"name":"recipient","type":"address"}]},
      {"name":"depositData","type":"tuple","components":` + baseDepositDataComponents + `},
      {"name":"swapToken","type":"address"},
      {"name":"exchange","type":"address"},
      {"name":"transferType","type":"uint8"},
      {"name":"swapTokenAmount","type":"uint256"},
      {"name":"minExpectedInputTokenAmount","type":"uint256"},
      {"name":"routerCalldata","type":"bytes"},
      {"name":"enableProportionalAdjustment","type":"bool"},
      {"name":"spokePool","type":"address"},
      {"name":"nonce","type":"uint256"}]}],"outputs":[]},
  {"type":"function","name":"depositNative","stateMutability":"payable","inputs":[
    {"name":"spokePool","type":"address"},
    {"name":"recipient","type":"bytes32"},
    {"name":"inputToken","type":"address"},
    {"name":"inputAmount","type":"uint256"},
    {"name":"outputToken","type":"bytes32"},
    {"name":"outputAmount","type":"uint256"},
    {"name":"destinationChainId","type":"uint256"},
    {"name":"exclusiveRelayer","type":"bytes32"},
    {"name":"quoteTimestamp","type":"uint32"},
    {"name":"fillDeadline","type":"uint32"},
    {"name":"exclusivityParameter","type":"uint32"},
    {"name":"message","type":"bytes"}],"outputs":[]}
]`

// The legacy struct spells the destination chain field "destinationChainid".
// It is part of the deployed ABI and must stay as is.
const universalSwapAndBridgeABIJSON = `[
  {"type":"function","name":"swapAndBridge","stateMutability":"payable","inputs":[
    {"name":"swapToken","type":"address"},
    {"name":"acrossInputToken","type":"address"},
    {"name":"routerCalldata","type":"bytes"},
    {"name":"swapTokenAmount","type":"uint256"},
    {"name":"minExpectedInputTokenAmount","type":"uint256"},
    {"name":"depositData","type":"tuple","components":[
      {"name":"outputToken","type":"address"},
      {"name":"outputAmount","type":"uint256"},
      {"name":"depositor","type":"address"},
      {"name":"recipient","type":"address"},
      {"name":"destinationChainid","type":"uint256"},
      {"name":"exclusiveRelayer","type":"address"},
      {"name":"quoteTimestamp","type":"uint32"},
      {"name":"fillDeadline","type":"uint32"},
      {"name":"exclusivityDeadline","type":"uint32"},
      {"name":"message","type":"bytes"}]}],"outputs":[]}
]`

const multicallHandlerABIJSON = `[
  {"type":"function","name":"handleV3AcrossMessage","stateMutability":"nonpayable","inputs":[
    {"name":"token","type":"address"},
    {"name":"amount","type":"uint256"},
    {"name":"relayer","type":"address"},
    {"name":"message","type":"bytes"}],"outputs":[]},
  {"type":"function","name":"drainLeftoverTokens","stateMutability":"nonpayable","inputs":[
    {"name":"token","type":"address"},
    {"name":"destination","type":"address"}],"outputs":[]}
]`

const quoterV2ABIJSON = `[
  {"type":"function","name":"quoteExactInputSingle","stateMutability":"nonpayable","inputs":[
    {"name":"params","type":"tuple","components":[
      {"name":"tokenIn","type":"address"},
      {"name":"tokenOut","type":"address"},
      {"name":"amountIn","type":"uint256"},
      {"name":"fee","type":"uint24"},
      {"name":"sqrtPriceLimitX96","type":"uint160"}]}],
   "outputs":[
    {"name":"amountOut","type":"uint256"},
    {"name":"sqrtPriceX96After","type":"uint160"},
    {"name":"initializedTicksCrossed","type":"uint32"},
    {"name":"gasEstimate","type":"uint256"}]},
  {"type":"function","name":"quoteExactOutputSingle","stateMutability":"nonpayable","inputs":[
    {"name":"params","type":"tuple","components":[
      {"name":"tokenIn","type":"address"},
      {"name":"tokenOut","type":"address"},
      {"name":"amount","type":"uint256"},
      {"name":"fee","type":"uint24"},
      {"name":"sqrtPriceLimitX96","type":"uint160"}]}],
   "outputs":[
    {"name":"amountIn","type":"uint256"},
    {"name":"sqrtPriceX96After","type":"uint160"},
    {"name":"initializedTicksCrossed","type":"uint32"},
    {"name":"gasEstimate","type":"uint256"}]}
]`

const swapRouter02ABIJSON = `[
  {"type":"function","name":"exactInputSingle","stateMutability":"payable","inputs":[
    {"name":"params","type":"tuple","components":[
      {"name":"tokenIn","type":"address"},
      {"name":"tokenOut","type":"address"},
      {"name":"fee","type":"uint24"},
      {"name":"recipient","type":"address"},
      {"name":"amountIn","type":"uint256"},
      {"name":"amountOutMinimum","type":"uint256"},
      {"name":"sqrtPriceLimitX96","type":"uint160"}]}],
   "outputs":[{"name":"amountOut","type":"uint256"}]},
  {"type":"function","name":"exactOutputSingle","stateMutability":"payable","inputs":[
    {"name":"params","type":"tuple","components":[
      {"name":"tokenIn","type":"address"},
      {"name":"tokenOut","type":"address"},
      {"name":"fee","type":"uint24"},
      {"name":"recipient","type":"address"},
      {"name":"amountOut","type":"uint256"},
      {"name":"amountInMaximum","type":"uint256"},
      {"name":"sqrtPriceLimitX96","type":"uint160"}]}],
   "outputs":[{"name":"amountIn","type":"uint256"}]}
]`

var (
	ERC20ABI                  abi.ABI
	WrapperABI                abi.ABI
	SpokePoolABI              abi.ABI
	PeripheryABI              abi.ABI
	UniversalSwapAndBridgeABI abi.ABI
	MulticallHandlerABI       abi.ABI
	QuoterV2ABI               abi.ABI
	SwapRouter02ABI           abi.ABI

	// InstructionsArgs encodes the multicall handler message
	// Instructions{Call[] calls, address fallbackRecipient}.
	InstructionsArgs abi.Arguments
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}

func init() {
	ERC20ABI = mustParseABI(erc20ABIJSON)
	WrapperABI = mustParseABI(wrapperABIJSON)
	SpokePoolABI = mustParseABI(spokePoolABIJSON)
	PeripheryABI = mustParseABI(peripheryABIJSON)
	UniversalSwapAndBridgeABI = mustParseABI(universalSwapAndBridgeABIJSON)
	MulticallHandlerABI = mustParseABI(multicallHandlerABIJSON)
	QuoterV2ABI = mustParseABI(quoterV2ABIJSON)
	SwapRouter02ABI = mustParseABI(swapRouter02ABIJSON)

	instructionsType, err := abi.NewType("tuple", "", []abi.ArgumentMarshaling{
		{Name: "calls", Type: "tuple[]", Components: []abi.ArgumentMarshaling{
			{Name: "target", Type: "address"},
			{Name: "callData", Type: "bytes"},
			{Name: "value", Type: "uint256"},
		}},
		{Name: "fallbackRecipient", Type: "address"},
	})
	if err != nil {
		panic(err)
	}
	InstructionsArgs = abi.Arguments{{Name: "instructions", Type: instructionsType}}
}
