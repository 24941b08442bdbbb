package swapapi

import (
	"context"
	"math/big"
	"time"

	"github.com/fachebot/cross-swap-api/internal/apierr"
	"github.com/fachebot/cross-swap-api/internal/eth"
	"github.com/fachebot/cross-swap-api/internal/evmtx"
	"github.com/fachebot/cross-swap-api/internal/fees"
	"github.com/fachebot/cross-swap-api/internal/logger"
	"github.com/fachebot/cross-swap-api/internal/model"
	"github.com/fachebot/cross-swap-api/internal/signature"
	"github.com/fachebot/cross-swap-api/internal/svc"
	"github.com/fachebot/cross-swap-api/internal/svmtx"
	"github.com/fachebot/cross-swap-api/internal/utils/bigint"
	"github.com/fachebot/cross-swap-api/internal/utils/evm"

	"github.com/dustin/go-humanize"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Flow selects how the origin transaction is submitted.
type Flow string

const (
	FlowApproval Flow = "approval"
	FlowPermit   Flow = "permit"
	FlowAuth     Flow = "auth"
)

// enrichTimeout bounds the optional reads (balances, gas, prices).
const enrichTimeout = 5 * time.Second

type Service struct {
	svcCtx *svc.ServiceContext
}

func NewService(svcCtx *svc.ServiceContext) *Service {
	return &Service{svcCtx: svcCtx}
}

func (s *Service) Approval(ctx context.Context, p Params) (*Response, error) {
	return s.Handle(ctx, FlowApproval, p)
}

func (s *Service) Permit(ctx context.Context, p Params) (*Response, error) {
	return s.Handle(ctx, FlowPermit, p)
}

func (s *Service) Auth(ctx context.Context, p Params) (*Response, error) {
	return s.Handle(ctx, FlowAuth, p)
}

// Handle quotes the request and assembles the submission payload of flow.
func (s *Service) Handle(ctx context.Context, flow Flow, p Params) (*Response, error) {
	req, err := s.parse(ctx, p, flow != FlowApproval)
	if err != nil {
		return nil, err
	}
	if flow != FlowApproval && req.cs.IsOriginSvm {
		return nil, apierr.InvalidParam("originChainId", "the %s flow is only available on evm origin chains", flow)
	}

	quotes, err := s.svcCtx.Orchestrator.Quote(ctx, req.cs)
	if err != nil {
		return nil, err
	}

	resp := newResponse(uuid.NewString(), quotes)

	// prices are fetched alongside the flow's own reads
	var prices fees.Prices
	var g errgroup.Group
	g.Go(func() error {
		prices = s.prices(ctx, quotes)
		return nil
	})

	var gas *fees.GasEstimate
	switch {
	case flow == FlowApproval && req.cs.IsOriginSvm:
		err = s.svmSwapTx(ctx, req, quotes, resp)
	case flow == FlowApproval:
		gas, err = s.evmSwapTx(ctx, req, quotes, resp)
	default:
		err = s.signedSwapTx(ctx, flow, quotes, resp)
	}
	_ = g.Wait()
	if err != nil {
		return nil, err
	}

	resp.Fees = newFeeReport(fees.Calculate(fees.Input{
		Quotes:           quotes,
		OriginGas:        gas,
		OriginToken:      s.nativeToken(quotes.CrossSwap.InputToken.ChainId),
		DestinationToken: s.nativeToken(quotes.CrossSwap.OutputToken.ChainId),
		Prices:           prices,
	}))

	logger.WithFields(logrus.Fields{
		"id":   resp.Id,
		"flow": flow,
		"type": quotes.Type,
	}).Infof("[SwapApi] 报价完成, %s %s(%d) -> %s %s(%d)",
		humanize.BigComma(bigint.Copy(quotes.InputAmount())), quotes.CrossSwap.InputToken.Symbol, quotes.CrossSwap.InputToken.ChainId,
		humanize.BigComma(bigint.Copy(quotes.MinOutputAmount())), quotes.CrossSwap.OutputToken.Symbol, quotes.CrossSwap.OutputToken.ChainId)
	return resp, nil
}

func (s *Service) nativeToken(chainId int64) model.Token {
	native, _ := s.svcCtx.Tokens.Registry().NativeToken(chainId)
	return native
}

func (s *Service) prices(ctx context.Context, quotes *model.CrossSwapQuotes) fees.Prices {
	ctx, cancel := context.WithTimeout(ctx, enrichTimeout)
	defer cancel()

	registry := s.svcCtx.Tokens.Registry()
	originNative, _ := registry.WrappedNative(quotes.CrossSwap.InputToken.ChainId)
	destinationNative, _ := registry.WrappedNative(quotes.CrossSwap.OutputToken.ChainId)
	return fees.FetchPrices(ctx, s.svcCtx.Prices, fees.PriceRequest{
		InputToken:        quotes.CrossSwap.InputToken,
		OutputToken:       quotes.CrossSwap.OutputToken,
		OriginNative:      originNative,
		DestinationNative: destinationNative,
		BridgeInput:       quotes.BridgeQuote.InputToken,
		AppFeeToken:       quotes.CrossSwap.OutputToken,
	})
}

func (s *Service) svmSwapTx(ctx context.Context, req *request, quotes *model.CrossSwapQuotes, resp *Response) error {
	tx, err := s.svcCtx.SvmTx.BuildSwapTx(ctx, quotes, svmtx.Options{IntegratorId: req.integratorId})
	if err != nil {
		return err
	}
	resp.SwapTx = newSvmTx(*tx)
	return nil
}

type chainState struct {
	balance   *big.Int
	allowance *big.Int
	gasPrice  *big.Int
}

// readChainState fetches balance, allowance and gas price concurrently. All
// three are optional and a failed read is left nil.
func readChainState(ctx context.Context, reader eth.Reader, cs model.CrossSwap, spender common.Address) chainState {
	ctx, cancel := context.WithTimeout(ctx, enrichTimeout)
	defer cancel()

	owner := cs.Depositor.String()
	token := cs.InputToken.Address.String()

	var state chainState
	var g errgroup.Group
	g.Go(func() error {
		var err error
		if cs.IsInputNative {
			state.balance, err = evm.GetBalance(ctx, reader, owner)
		} else {
			state.balance, err = evm.GetTokenBalance(ctx, reader, token, owner)
		}
		if err != nil {
			logger.Warnf("[SwapApi] 查询余额失败, chainId: %d, token: %s, owner: %s, %v", cs.InputToken.ChainId, token, owner, err)
		}
		return nil
	})
	g.Go(func() error {
		if cs.IsInputNative {
			state.allowance = evm.MaxUint256
			return nil
		}
		allowance, err := evm.GetTokenAllowance(ctx, reader, token, owner, spender.Hex())
		if err != nil {
			logger.Warnf("[SwapApi] 查询授权额度失败, chainId: %d, token: %s, spender: %s, %v", cs.InputToken.ChainId, token, spender.Hex(), err)
			return nil
		}
		state.allowance = allowance
		return nil
	})
	g.Go(func() error {
		gasPrice, err := reader.SuggestGasPrice(ctx)
		if err != nil {
			logger.Warnf("[SwapApi] 查询GasPrice失败, chainId: %d, %v", cs.InputToken.ChainId, err)
			return nil
		}
		state.gasPrice = gasPrice
		return nil
	})
	_ = g.Wait()
	return state
}

func newChecks(cs model.CrossSwap, spender common.Address, required *big.Int, state chainState) *Checks {
	token := cs.InputToken.Address.String()
	return &Checks{
		Allowance: AllowanceCheck{
			Token:    token,
			Spender:  spender.Hex(),
			Actual:   amountString(state.allowance),
			Expected: amountString(required),
		},
		Balance: BalanceCheck{
			Token:    token,
			Actual:   amountString(state.balance),
			Expected: amountString(required),
		},
	}
}

func (s *Service) evmSwapTx(ctx context.Context, req *request, quotes *model.CrossSwapQuotes, resp *Response) (*fees.GasEstimate, error) {
	cs := quotes.CrossSwap
	tx, err := s.svcCtx.EvmTx.BuildSwapTx(quotes, evmtx.Options{IntegratorId: req.integratorId})
	if err != nil {
		return nil, err
	}

	reader, err := s.svcCtx.EthClients.Client(cs.InputToken.ChainId)
	if err != nil {
		return nil, err
	}
	spender := common.HexToAddress(tx.To)
	required := quotes.MaxInputAmount()
	state := readChainState(ctx, reader, cs, spender)
	resp.Checks = newChecks(cs, spender, required, state)

	approved := state.allowance != nil && state.allowance.Cmp(required) >= 0
	if !approved {
		approvals, err := evmtx.ApprovalTxns(cs.InputToken.ChainId, cs.InputToken, tx.From, tx.To, required, cs.IsInputNative)
		if err != nil {
			return nil, err
		}
		for _, item := range approvals {
			resp.ApprovalTxns = append(resp.ApprovalTxns, newEvmTx(item))
		}
	}

	// simulation would revert without the allowance
	var gas *fees.GasEstimate
	if approved && !req.skipOriginTxEstimation {
		to := common.HexToAddress(tx.To)
		estimated, err := evm.EstimateGas(ctx, reader, ethereum.CallMsg{
			From:  common.HexToAddress(tx.From),
			To:    &to,
			Value: tx.Value,
			Data:  tx.Data,
		})
		if err != nil {
			logger.Warnf("[SwapApi] 估算Gas失败, chainId: %d, to: %s, %v", tx.ChainId, tx.To, err)
		} else {
			tx.Gas = estimated
			if state.gasPrice != nil {
				gas = &fees.GasEstimate{Gas: estimated, GasPrice: state.gasPrice}
			}
		}
	}

	resp.SwapTx = newEvmTx(*tx)
	return gas, nil
}

func (s *Service) signedSwapTx(ctx context.Context, flow Flow, quotes *model.CrossSwapQuotes, resp *Response) error {
	cs := quotes.CrossSwap
	reader, err := s.svcCtx.EthClients.Client(cs.InputToken.ChainId)
	if err != nil {
		return err
	}

	var payload *signature.PermitSwapTx
	switch flow {
	case FlowPermit:
		token, _ := cs.InputToken.Address.ToEvmAddress()
		owner, _ := cs.Depositor.ToEvmAddress()
		if !signature.SupportsPermit(ctx, reader, token, owner) {
			return apierr.InvalidParam("inputToken", "%s does not support permit", cs.InputToken.Symbol)
		}
		payload, err = s.svcCtx.Signatures.Permit(ctx, reader, quotes)
	case FlowAuth:
		payload, err = s.svcCtx.Signatures.Auth(ctx, reader, quotes)
	default:
		return apierr.Input(apierr.CodeInvalidMethod, "unknown flow %s", flow)
	}
	if err != nil {
		return err
	}
	resp.PermitSwapTx = payload

	spender := common.HexToAddress(payload.SwapTx.To)
	state := readChainState(ctx, reader, cs, spender)
	resp.Checks = newChecks(cs, spender, quotes.MaxInputAmount(), state)
	return nil
}
