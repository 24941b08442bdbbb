package evm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// MaxUint256 is 2^256 - 1, the unlimited allowance.
var MaxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

type Metadata struct {
	Name     string
	Symbol   string
	Decimals uint8
}

func ParseUnits(value *big.Int, decimals uint8) decimal.Decimal {
	if value == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(value, -int32(decimals))
}

func FormatUnits(amount decimal.Decimal, decimals uint8) *big.Int {
	return amount.Shift(int32(decimals)).Truncate(0).BigInt()
}

func EncodeERC20ApproveInput(spender string, amount *big.Int) ([]byte, error) {
	if spender == "" {
		return nil, errors.New("spender address cannot be empty")
	}
	if amount == nil {
		return nil, errors.New("amount cannot be nil")
	}

	spenderAddr := common.HexToAddress(spender)
	data, err := ERC20ABI.Pack("approve", spenderAddr, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to pack approve call: %w", err)
	}

	return data, nil
}

func DecodeERC20ApproveInput(input []byte) (spender string, amount *big.Int, err error) {
	if len(input) < 4 {
		return "", nil, errors.New("input data too short")
	}

	approveMethodID := ERC20ABI.Methods["approve"].ID
	if !bytes.Equal(input[:4], approveMethodID) {
		return "", nil, errors.New("input data is not for approve function")
	}

	values, err := ERC20ABI.Methods["approve"].Inputs.Unpack(input[4:])
	if err != nil {
		return "", nil, fmt.Errorf("failed to unpack approve input: %w", err)
	}

	if len(values) != 2 {
		return "", nil, fmt.Errorf("expected 2 parameters, got %d", len(values))
	}

	spenderAddr, ok := values[0].(common.Address)
	if !ok {
		return "", nil, errors.New("failed to parse spender address")
	}

	amountValue, ok := values[1].(*big.Int)
	if !ok {
		return "", nil, errors.New("failed to parse amount")
	}

	return spenderAddr.Hex(), amountValue, nil
}

// CallView packs method, runs eth_call against contract and returns the raw result.
func CallView(ctx context.Context, caller ethereum.ContractCaller, contractABI abi.ABI, contract common.Address, method string, args ...any) ([]byte, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s call: %w", method, err)
	}

	result, err := caller.CallContract(ctx, ethereum.CallMsg{
		To:   &contract,
		Data: data,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", method, err)
	}
	return result, nil
}

func callAndUnpack(ctx context.Context, caller ethereum.ContractCaller, contract common.Address, out any, method string, args ...any) error {
	result, err := CallView(ctx, caller, ERC20ABI, contract, method, args...)
	if err != nil {
		return err
	}
	if err = ERC20ABI.UnpackIntoInterface(out, method, result); err != nil {
		return fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	return nil
}

// BalanceReader reads native balances.
type BalanceReader interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

func GetBalance(ctx context.Context, reader BalanceReader, ownerAddress string) (*big.Int, error) {
	return reader.BalanceAt(ctx, common.HexToAddress(ownerAddress), nil)
}

func GetTokenMeta(ctx context.Context, caller ethereum.ContractCaller, tokenAddress string) (*Metadata, error) {
	tokenAddr := common.HexToAddress(tokenAddress)

	var name string
	if err := callAndUnpack(ctx, caller, tokenAddr, &name, "name"); err != nil {
		return nil, err
	}

	var symbol string
	if err := callAndUnpack(ctx, caller, tokenAddr, &symbol, "symbol"); err != nil {
		return nil, err
	}

	var decimals uint8
	if err := callAndUnpack(ctx, caller, tokenAddr, &decimals, "decimals"); err != nil {
		return nil, err
	}

	return &Metadata{
		Name:     name,
		Symbol:   symbol,
		Decimals: decimals,
	}, nil
}

func GetTokenName(ctx context.Context, caller ethereum.ContractCaller, tokenAddress string) (string, error) {
	var name string
	err := callAndUnpack(ctx, caller, common.HexToAddress(tokenAddress), &name, "name")
	return name, err
}

func GetTokenBalance(ctx context.Context, caller ethereum.ContractCaller, tokenAddress, ownerAddress string) (*big.Int, error) {
	var balance *big.Int
	err := callAndUnpack(ctx, caller, common.HexToAddress(tokenAddress), &balance, "balanceOf", common.HexToAddress(ownerAddress))
	return balance, err
}

func GetTokenAllowance(ctx context.Context, caller ethereum.ContractCaller, tokenAddress, ownerAddress, spenderAddress string) (*big.Int, error) {
	var allowance *big.Int
	err := callAndUnpack(ctx, caller, common.HexToAddress(tokenAddress), &allowance, "allowance",
		common.HexToAddress(ownerAddress), common.HexToAddress(spenderAddress))
	return allowance, err
}

func GetTokenPermitNonce(ctx context.Context, caller ethereum.ContractCaller, tokenAddress, ownerAddress string) (*big.Int, error) {
	var nonce *big.Int
	err := callAndUnpack(ctx, caller, common.HexToAddress(tokenAddress), &nonce, "nonces", common.HexToAddress(ownerAddress))
	return nonce, err
}

func GetDomainSeparator(ctx context.Context, caller ethereum.ContractCaller, tokenAddress string) ([32]byte, error) {
	var separator [32]byte
	err := callAndUnpack(ctx, caller, common.HexToAddress(tokenAddress), &separator, "DOMAIN_SEPARATOR")
	return separator, err
}

// GetTokenVersionRaw returns the undecoded version() result. Tokens disagree on
// whether it is a string or an integer.
func GetTokenVersionRaw(ctx context.Context, caller ethereum.ContractCaller, tokenAddress string) ([]byte, error) {
	return CallView(ctx, caller, ERC20ABI, common.HexToAddress(tokenAddress), "version")
}

// EstimateGas adds a 20% buffer on top of the node estimate.
func EstimateGas(ctx context.Context, estimator ethereum.GasEstimator, msg ethereum.CallMsg) (uint64, error) {
	gas, err := estimator.EstimateGas(ctx, msg)
	if err != nil {
		return 0, err
	}
	return gas * 120 / 100, nil
}
