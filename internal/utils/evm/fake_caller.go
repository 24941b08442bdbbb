package evm

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

type CallHandler func(input []byte) ([]byte, error)

// FakeCaller is an in-memory ethereum.ContractCaller that answers eth_call by
// contract address and 4-byte selector. Used by tests that exercise on-chain reads.
type FakeCaller struct {
	mutex    sync.Mutex
	handlers map[string]CallHandler
	calls    int
}

func NewFakeCaller() *FakeCaller {
	return &FakeCaller{handlers: make(map[string]CallHandler)}
}

func fakeKey(contract common.Address, selector []byte) string {
	return strings.ToLower(contract.Hex()) + hexutil.Encode(selector)
}

// On registers ABI-packed outputs for an ERC20ABI method.
func (f *FakeCaller) On(contract common.Address, method string, outputs ...any) *FakeCaller {
	return f.OnABI(contract, ERC20ABI, method, outputs...)
}

func (f *FakeCaller) OnABI(contract common.Address, contractABI abi.ABI, method string, outputs ...any) *FakeCaller {
	m, ok := contractABI.Methods[method]
	if !ok {
		panic(fmt.Sprintf("unknown method %s", method))
	}
	packed, err := m.Outputs.Pack(outputs...)
	if err != nil {
		panic(err)
	}
	return f.OnFunc(contract, m.ID, func([]byte) ([]byte, error) { return packed, nil })
}

func (f *FakeCaller) OnFunc(contract common.Address, selector []byte, handler CallHandler) *FakeCaller {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.handlers[fakeKey(contract, selector)] = handler
	return f
}

func (f *FakeCaller) Calls() int {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.calls
}

func (f *FakeCaller) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if msg.To == nil || len(msg.Data) < 4 {
		return nil, fmt.Errorf("invalid call")
	}

	f.mutex.Lock()
	f.calls++
	handler, ok := f.handlers[fakeKey(*msg.To, msg.Data[:4])]
	f.mutex.Unlock()

	if !ok {
		return nil, fmt.Errorf("execution reverted")
	}
	return handler(msg.Data[4:])
}
