package signature

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/fachebot/cross-swap-api/internal/apierr"
	"github.com/fachebot/cross-swap-api/internal/config"
	"github.com/fachebot/cross-swap-api/internal/evmtx"
	"github.com/fachebot/cross-swap-api/internal/logger"
	"github.com/fachebot/cross-swap-api/internal/model"
	"github.com/fachebot/cross-swap-api/internal/utils/evm"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"golang.org/x/sync/errgroup"
)

// authValidAfterSkew backdates validAfter to tolerate clock drift.
const authValidAfterSkew = 60 * time.Second

var (
	permitType = []apitypes.Type{
		{Name: "owner", Type: "address"},
		{Name: "spender", Type: "address"},
		{Name: "value", Type: "uint256"},
		{Name: "nonce", Type: "uint256"},
		{Name: "deadline", Type: "uint256"},
	}

	receiveWithAuthorizationType = []apitypes.Type{
		{Name: "from", Type: "address"},
		{Name: "to", Type: "address"},
		{Name: "value", Type: "uint256"},
		{Name: "validAfter", Type: "uint256"},
		{Name: "validBefore", Type: "uint256"},
		{Name: "nonce", Type: "bytes32"},
	}
)

type SwapTx struct {
	ChainId    int64  `json:"chainId"`
	To         string `json:"to"`
	MethodName string `json:"methodName"`
}

// PermitSwapTx is handed to the user for signing. Eip712 holds the token
// payload under "permit" or "receiveWithAuthorization" and the periphery
// witness under "deposit".
type PermitSwapTx struct {
	Eip712   map[string]apitypes.TypedData `json:"eip712"`
	SwapTx   SwapTx                        `json:"swapTx"`
	Deadline int64                         `json:"deadline,omitempty"`
}

type Builder struct {
	messages *evmtx.Builder
	quote    config.Quote
	now      func() time.Time
	random   io.Reader
}

func NewBuilder(messages *evmtx.Builder, quote config.Quote) *Builder {
	return &Builder{messages: messages, quote: quote, now: time.Now, random: rand.Reader}
}

// SupportsPermit probes nonces(owner). It never fails.
func SupportsPermit(ctx context.Context, caller ethereum.ContractCaller, token, owner common.Address) bool {
	_, err := evm.GetTokenPermitNonce(ctx, caller, token.Hex(), owner.Hex())
	return err == nil
}

type tokenReads struct {
	name       string
	nonce      *big.Int
	version    []byte
	versionErr error
}

// readToken issues the token's metadata calls concurrently. version() is
// optional and its failure is kept rather than returned.
func readToken(ctx context.Context, caller ethereum.ContractCaller, token, owner common.Address, withNonce bool) (*tokenReads, error) {
	var reads tokenReads
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		name, err := evm.GetTokenName(gctx, caller, token.Hex())
		if err != nil {
			return fmt.Errorf("read name of %s: %w", token.Hex(), err)
		}
		reads.name = name
		return nil
	})
	if withNonce {
		g.Go(func() error {
			nonce, err := evm.GetTokenPermitNonce(gctx, caller, token.Hex(), owner.Hex())
			if err != nil {
				return fmt.Errorf("read nonces of %s: %w", token.Hex(), err)
			}
			reads.nonce = nonce
			return nil
		})
	}
	g.Go(func() error {
		reads.version, reads.versionErr = evm.GetTokenVersionRaw(gctx, caller, token.Hex())
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &reads, nil
}

func inputTokenAndOwner(quotes *model.CrossSwapQuotes) (common.Address, common.Address, error) {
	cs := quotes.CrossSwap
	if cs.IsInputNative {
		return common.Address{}, common.Address{}, apierr.InvalidParam("inputToken", "native input cannot be signed for")
	}
	token, err := cs.InputToken.Address.ToEvmAddress()
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	owner, err := cs.Depositor.ToEvmAddress()
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	return token, owner, nil
}

// Permit builds EIP-2612 typed data approving the periphery, plus the
// periphery witness.
func (b *Builder) Permit(ctx context.Context, caller ethereum.ContractCaller, quotes *model.CrossSwapQuotes) (*PermitSwapTx, error) {
	periphery, err := peripheryEntryPoint(quotes)
	if err != nil {
		return nil, err
	}
	token, owner, err := inputTokenAndOwner(quotes)
	if err != nil {
		return nil, err
	}

	chainId := quotes.CrossSwap.InputToken.ChainId
	reads, err := readToken(ctx, caller, token, owner, true)
	if err != nil {
		return nil, err
	}
	domain := newDomain(reads.name, permitVersion(reads.version, reads.versionErr), chainId, token)
	if err = checkDomainSeparator(ctx, caller, token, domain); err != nil {
		return nil, err
	}

	witness, err := b.witness(quotes, periphery, reads.nonce)
	if err != nil {
		return nil, err
	}

	deadline := b.now().Add(b.quote.PermitDeadline).Unix()
	permit := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": eip712DomainType,
			"Permit":       permitType,
		},
		PrimaryType: "Permit",
		Domain:      domain,
		Message: apitypes.TypedDataMessage{
			"owner":    owner.Hex(),
			"spender":  periphery.Hex(),
			"value":    witness.amount.String(),
			"nonce":    reads.nonce.String(),
			"deadline": fmt.Sprint(deadline),
		},
	}

	method := "depositWithPermit"
	if witness.swap {
		method = "swapAndBridgeWithPermit"
	}
	logger.Debugf("[Signature] 构建Permit签名数据, chainId: %d, token: %s, version: %s, nonce: %s",
		chainId, token.Hex(), domain.Version, reads.nonce)
	return &PermitSwapTx{
		Eip712:   map[string]apitypes.TypedData{"permit": permit, "deposit": witness.typedData},
		SwapTx:   SwapTx{ChainId: chainId, To: periphery.Hex(), MethodName: method},
		Deadline: deadline,
	}, nil
}

// Authorization is one EIP-3009 ReceiveWithAuthorization grant.
type Authorization struct {
	From        common.Address
	To          common.Address
	Value       *big.Int
	ValidAfter  int64
	ValidBefore int64
	Nonce       [32]byte
}

// ReceiveWithAuthorization builds EIP-3009 typed data after checking that the
// recomputed domain matches the token's DOMAIN_SEPARATOR().
func (b *Builder) ReceiveWithAuthorization(ctx context.Context, caller ethereum.ContractCaller, chainId int64, token common.Address, auth Authorization) (apitypes.TypedData, error) {
	reads, err := readToken(ctx, caller, token, auth.From, false)
	if err != nil {
		return apitypes.TypedData{}, err
	}
	domain := newDomain(reads.name, authVersion(reads.version, reads.versionErr, b.quote.Eip3009DefaultVersion), chainId, token)
	if err = checkDomainSeparator(ctx, caller, token, domain); err != nil {
		return apitypes.TypedData{}, err
	}

	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain":             eip712DomainType,
			"ReceiveWithAuthorization": receiveWithAuthorizationType,
		},
		PrimaryType: "ReceiveWithAuthorization",
		Domain:      domain,
		Message: apitypes.TypedDataMessage{
			"from":        auth.From.Hex(),
			"to":          auth.To.Hex(),
			"value":       auth.Value.String(),
			"validAfter":  fmt.Sprint(auth.ValidAfter),
			"validBefore": fmt.Sprint(auth.ValidBefore),
			"nonce":       hexutil.Encode(auth.Nonce[:]),
		},
	}, nil
}

// Auth builds the combined authorization flow. The token grant and the
// periphery witness share one random nonce.
func (b *Builder) Auth(ctx context.Context, caller ethereum.ContractCaller, quotes *model.CrossSwapQuotes) (*PermitSwapTx, error) {
	periphery, err := peripheryEntryPoint(quotes)
	if err != nil {
		return nil, err
	}
	token, owner, err := inputTokenAndOwner(quotes)
	if err != nil {
		return nil, err
	}

	var nonce [32]byte
	if _, err = io.ReadFull(b.random, nonce[:]); err != nil {
		return nil, fmt.Errorf("generate authorization nonce: %w", err)
	}
	witness, err := b.witness(quotes, periphery, new(big.Int).SetBytes(nonce[:]))
	if err != nil {
		return nil, err
	}

	now := b.now()
	chainId := quotes.CrossSwap.InputToken.ChainId
	auth := Authorization{
		From:        owner,
		To:          periphery,
		Value:       witness.amount,
		ValidAfter:  now.Add(-authValidAfterSkew).Unix(),
		ValidBefore: now.Add(b.quote.AuthValidity).Unix(),
		Nonce:       nonce,
	}
	receive, err := b.ReceiveWithAuthorization(ctx, caller, chainId, token, auth)
	if err != nil {
		return nil, err
	}

	method := "depositWithAuthorization"
	if witness.swap {
		method = "swapAndBridgeWithAuthorization"
	}
	logger.Debugf("[Signature] 构建授权签名数据, chainId: %d, token: %s, version: %s, validBefore: %d",
		chainId, token.Hex(), receive.Domain.Version, auth.ValidBefore)
	return &PermitSwapTx{
		Eip712:   map[string]apitypes.TypedData{"receiveWithAuthorization": receive, "deposit": witness.typedData},
		SwapTx:   SwapTx{ChainId: chainId, To: periphery.Hex(), MethodName: method},
		Deadline: auth.ValidBefore,
	}, nil
}
