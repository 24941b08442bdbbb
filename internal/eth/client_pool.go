package eth

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/fachebot/cross-swap-api/internal/config"
	"github.com/fachebot/cross-swap-api/internal/logger"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// Reader is the part of an EVM node the quote service reads from.
// *ethclient.Client satisfies it.
type Reader interface {
	ethereum.ContractCaller
	ethereum.GasPricer
	ethereum.GasEstimator
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// ClientPool holds one reader per configured EVM chain. Clients are dialed
// once at startup and only read afterwards.
type ClientPool struct {
	mutex   sync.RWMutex
	clients map[int64]Reader
	closers []func()
}

func NewClientPool(ctx context.Context, chains []config.Chain) (*ClientPool, error) {
	pool := &ClientPool{clients: make(map[int64]Reader)}
	for _, chain := range chains {
		if chain.EcosystemType() != "evm" || chain.RpcUrl == "" {
			continue
		}

		rpcClient, err := rpc.DialContext(ctx, chain.RpcUrl)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("创建RPC客户端失败, chainId: %d: %w", chain.Id, err)
		}
		client := ethclient.NewClient(rpcClient)
		pool.clients[chain.Id] = client
		pool.closers = append(pool.closers, client.Close)
		logger.Debugf("[ClientPool] 已连接RPC, chainId: %d, name: %s", chain.Id, chain.Name)
	}
	return pool, nil
}

// NewStaticClientPool wraps readers that are already connected.
func NewStaticClientPool(readers map[int64]Reader) *ClientPool {
	pool := &ClientPool{clients: make(map[int64]Reader, len(readers))}
	for chainId, reader := range readers {
		pool.clients[chainId] = reader
	}
	return pool
}

func (p *ClientPool) Client(chainId int64) (Reader, error) {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	client, ok := p.clients[chainId]
	if !ok {
		return nil, fmt.Errorf("no rpc client for chain %d", chainId)
	}
	return client, nil
}

// Caller adapts the pool to cache.CallerSource.
func (p *ClientPool) Caller(chainId int64) (ethereum.ContractCaller, error) {
	return p.Client(chainId)
}

func (p *ClientPool) Close() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	for _, closeFn := range p.closers {
		closeFn()
	}
	p.closers = nil
	p.clients = make(map[int64]Reader)
}
