package svmrpc

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	addresslookuptable "github.com/gagliardetto/solana-go/programs/address-lookup-table"
	"github.com/gagliardetto/solana-go/rpc"
)

// Reader is the subset of Solana RPC the transaction builder and token resolver need.
type Reader interface {
	LatestBlockhash(ctx context.Context) (solana.Hash, error)
	LookupTables(ctx context.Context, tables []solana.PublicKey) (map[solana.PublicKey]solana.PublicKeySlice, error)
	MintDecimals(ctx context.Context, mint solana.PublicKey) (uint8, error)
}

type Client struct {
	rpc *rpc.Client
}

func NewClient(endpoint string) *Client {
	return &Client{rpc: rpc.New(endpoint)}
}

func (c *Client) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	recent, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("get latest blockhash: %w", err)
	}
	return recent.Value.Blockhash, nil
}

func (c *Client) LookupTables(ctx context.Context, tables []solana.PublicKey) (map[solana.PublicKey]solana.PublicKeySlice, error) {
	result := make(map[solana.PublicKey]solana.PublicKeySlice, len(tables))
	for _, table := range tables {
		state, err := addresslookuptable.GetAddressLookupTable(ctx, c.rpc, table)
		if err != nil {
			return nil, fmt.Errorf("load lookup table %s: %w", table, err)
		}
		result[table] = state.Addresses
	}
	return result, nil
}

// MintDecimals reads the decimals byte of an SPL mint account. Layout:
// mint authority (36) | supply (8) | decimals (1) | initialized (1) | ...
func (c *Client) MintDecimals(ctx context.Context, mint solana.PublicKey) (uint8, error) {
	info, err := c.rpc.GetAccountInfo(ctx, mint)
	if err != nil {
		return 0, fmt.Errorf("get mint account: %w", err)
	}
	if info == nil || info.Value == nil {
		return 0, errors.New("mint account not found")
	}

	data := info.Value.Data.GetBinary()
	if len(data) < 46 {
		return 0, errors.New("mint account data too short")
	}
	if data[45] == 0 {
		return 0, errors.New("mint account not initialized")
	}
	return data[44], nil
}
