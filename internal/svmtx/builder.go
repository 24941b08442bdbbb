package svmtx

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/fachebot/cross-swap-api/internal/apierr"
	"github.com/fachebot/cross-swap-api/internal/entrypoint"
	"github.com/fachebot/cross-swap-api/internal/evmtx"
	"github.com/fachebot/cross-swap-api/internal/logger"
	"github.com/fachebot/cross-swap-api/internal/model"
	"github.com/fachebot/cross-swap-api/internal/svmrpc"

	"github.com/gagliardetto/solana-go"
	"github.com/samber/lo"
)

// tokenApproveChecked is the SPL token instruction index of ApproveChecked.
const tokenApproveChecked = 13

type Options struct {
	IntegratorId string
}

// Builder compiles the origin transaction of a cross swap starting on Solana.
type Builder struct {
	entryPoints *entrypoint.Resolver
	messages    *evmtx.Builder
	readers     map[int64]svmrpc.Reader
}

func NewBuilder(entryPoints *entrypoint.Resolver, messages *evmtx.Builder, readers map[int64]svmrpc.Reader) *Builder {
	return &Builder{entryPoints: entryPoints, messages: messages, readers: readers}
}

func toInstruction(ix model.SvmInstruction) (solana.Instruction, error) {
	program, err := solana.PublicKeyFromBase58(ix.ProgramId)
	if err != nil {
		return nil, fmt.Errorf("instruction program %q: %w", ix.ProgramId, err)
	}
	metas := make(solana.AccountMetaSlice, 0, len(ix.Accounts))
	for _, account := range ix.Accounts {
		key, err := solana.PublicKeyFromBase58(account.Pubkey)
		if err != nil {
			return nil, fmt.Errorf("instruction account %q: %w", account.Pubkey, err)
		}
		metas = append(metas, solana.NewAccountMeta(key, account.IsWritable, account.IsSigner))
	}
	return solana.NewInstruction(program, metas, ix.Data), nil
}

// swapInstructions flattens the venue groups in execution order.
func swapInstructions(swap *model.SvmSwapInstructions) ([]solana.Instruction, error) {
	var ordered []model.SvmInstruction
	ordered = append(ordered, swap.ComputeBudget...)
	ordered = append(ordered, swap.Setup...)
	if swap.TokenLedger != nil {
		ordered = append(ordered, *swap.TokenLedger)
	}
	ordered = append(ordered, swap.Swap)
	if swap.Cleanup != nil {
		ordered = append(ordered, *swap.Cleanup)
	}

	result := make([]solana.Instruction, 0, len(ordered))
	for _, ix := range ordered {
		converted, err := toInstruction(ix)
		if err != nil {
			return nil, err
		}
		result = append(result, converted)
	}
	return result, nil
}

func approveCheckedInstruction(source, mint, delegate, owner solana.PublicKey, amount uint64, decimals uint8) solana.Instruction {
	data := make([]byte, 1+8+1)
	data[0] = tokenApproveChecked
	binary.LittleEndian.PutUint64(data[1:9], amount)
	data[9] = decimals

	accounts := []*solana.AccountMeta{
		{PublicKey: source, IsSigner: false, IsWritable: true},
		{PublicKey: mint, IsSigner: false, IsWritable: false},
		{PublicKey: delegate, IsSigner: false, IsWritable: false},
		{PublicKey: owner, IsSigner: true, IsWritable: false},
	}
	return solana.NewInstruction(solana.TokenProgramID, accounts, data)
}

func memoInstruction(memo string, signer solana.PublicKey) solana.Instruction {
	accounts := []*solana.AccountMeta{{PublicKey: signer, IsSigner: true, IsWritable: false}}
	return solana.NewInstruction(solana.MemoProgramID, accounts, []byte(memo))
}

func toUint64(n *big.Int, name string) (uint64, error) {
	if n == nil || n.Sign() < 0 || !n.IsUint64() {
		return 0, apierr.InvalidParam(name, "%s does not fit into u64", name)
	}
	return n.Uint64(), nil
}

// DepositArgs derives the spoke deposit for a quote. The input amount is the
// origin swap's expected output when there is one, else the bridge input.
func (b *Builder) DepositArgs(quotes *model.CrossSwapQuotes) (*DepositArgs, error) {
	cs := quotes.CrossSwap
	bridge := quotes.BridgeQuote

	depositor, err := cs.Depositor.ToPublicKey()
	if err != nil {
		return nil, fmt.Errorf("depositor: %w", err)
	}
	inputToken, err := bridge.InputToken.Address.ToPublicKey()
	if err != nil {
		return nil, fmt.Errorf("bridge input token: %w", err)
	}

	inputAmount := bridge.InputAmount
	if quotes.OriginSwapQuote != nil {
		inputAmount = quotes.OriginSwapQuote.ExpectedAmountOut
	}
	amount, err := toUint64(inputAmount, "inputAmount")
	if err != nil {
		return nil, err
	}

	recipient := cs.Recipient
	var message []byte
	if handler := quotes.Contracts.DestinationHandler; handler != nil {
		recipient = handler.Address
		message, err = b.messages.DestinationMessage(quotes)
		if err != nil {
			return nil, err
		}
	}

	var outputAmount [32]uint8
	bridge.OutputAmount.FillBytes(outputAmount[:])

	fees := bridge.SuggestedFees
	return &DepositArgs{
		Depositor:            depositor,
		Recipient:            solana.PublicKey(recipient.ToBytes32()),
		InputToken:           inputToken,
		OutputToken:          solana.PublicKey(bridge.OutputToken.Address.ToBytes32()),
		InputAmount:          amount,
		OutputAmount:         outputAmount,
		DestinationChainId:   uint64(cs.OutputToken.ChainId),
		ExclusiveRelayer:     solana.PublicKey(fees.ExclusiveRelayer.ToBytes32()),
		QuoteTimestamp:       fees.Timestamp,
		FillDeadline:         fees.FillDeadline,
		ExclusivityParameter: fees.ExclusivityDeadline,
		Message:              message,
	}, nil
}

// depositInstructions approves the delegate PDA and calls the spoke deposit.
func (b *Builder) depositInstructions(quotes *model.CrossSwapQuotes, args *DepositArgs) ([]solana.Instruction, error) {
	originChainId := quotes.CrossSwap.InputToken.ChainId
	accounts, err := b.entryPoints.SvmSpoke(originChainId)
	if err != nil {
		return nil, err
	}

	seedHash, err := args.SeedHash()
	if err != nil {
		return nil, err
	}
	delegate, err := entrypoint.DelegatePda(accounts.Program, seedHash)
	if err != nil {
		return nil, fmt.Errorf("derive delegate pda: %w", err)
	}
	vault, err := accounts.Vault(args.InputToken)
	if err != nil {
		return nil, fmt.Errorf("derive vault: %w", err)
	}
	depositorTokenAccount, _, err := solana.FindAssociatedTokenAddress(args.Depositor, args.InputToken)
	if err != nil {
		return nil, fmt.Errorf("derive depositor token account: %w", err)
	}

	data, err := args.instructionData()
	if err != nil {
		return nil, err
	}
	deposit := solana.NewInstruction(accounts.Program, solana.AccountMetaSlice{
		{PublicKey: args.Depositor, IsSigner: true, IsWritable: true},
		{PublicKey: accounts.State, IsSigner: false, IsWritable: true},
		{PublicKey: delegate, IsSigner: false, IsWritable: false},
		{PublicKey: depositorTokenAccount, IsSigner: false, IsWritable: true},
		{PublicKey: vault, IsSigner: false, IsWritable: true},
		{PublicKey: args.InputToken, IsSigner: false, IsWritable: false},
		{PublicKey: solana.TokenProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.SPLAssociatedTokenAccountProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: accounts.EventAuthority, IsSigner: false, IsWritable: false},
		{PublicKey: accounts.Program, IsSigner: false, IsWritable: false},
	}, data)

	approve := approveCheckedInstruction(depositorTokenAccount, args.InputToken, delegate, args.Depositor,
		args.InputAmount, quotes.BridgeQuote.InputToken.Decimals)
	return []solana.Instruction{approve, deposit}, nil
}

// BuildSwapTx returns the unsigned, base64 encoded transaction.
func (b *Builder) BuildSwapTx(ctx context.Context, quotes *model.CrossSwapQuotes, opts Options) (*model.SvmTx, error) {
	cs := quotes.CrossSwap
	originChainId := cs.InputToken.ChainId
	if !cs.IsOriginSvm {
		return nil, apierr.EcosystemMismatch(model.EntryPointSvmSpoke, originChainId, "svm")
	}
	reader, ok := b.readers[originChainId]
	if !ok {
		return nil, fmt.Errorf("no solana rpc for chain %d", originChainId)
	}

	args, err := b.DepositArgs(quotes)
	if err != nil {
		return nil, err
	}

	var instructions []solana.Instruction
	var tables []string
	if swap := quotes.OriginSwapQuote; swap != nil {
		if swap.SvmSwap == nil {
			return nil, apierr.Invariant(apierr.CodeInvalidEntryPoint, "svm origin swap without instructions")
		}
		swapIxs, err := swapInstructions(swap.SvmSwap)
		if err != nil {
			return nil, err
		}
		instructions = append(instructions, swapIxs...)
		tables = swap.SvmSwap.AddressLookupTables
	}

	depositIxs, err := b.depositInstructions(quotes, args)
	if err != nil {
		return nil, err
	}
	instructions = append(instructions, depositIxs...)
	if opts.IntegratorId != "" {
		instructions = append(instructions, memoInstruction(opts.IntegratorId, args.Depositor))
	}

	blockhash, err := reader.LatestBlockhash(ctx)
	if err != nil {
		return nil, err
	}

	txOpts := []solana.TransactionOption{solana.TransactionPayer(args.Depositor)}
	if len(tables) > 0 {
		keys := make([]solana.PublicKey, 0, len(tables))
		for _, item := range lo.Uniq(tables) {
			key, err := solana.PublicKeyFromBase58(item)
			if err != nil {
				return nil, fmt.Errorf("lookup table %q: %w", item, err)
			}
			keys = append(keys, key)
		}
		resolved, err := reader.LookupTables(ctx, keys)
		if err != nil {
			return nil, err
		}
		txOpts = append(txOpts, solana.TransactionAddressTables(resolved))
	}

	tx, err := solana.NewTransaction(instructions, blockhash, txOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	tx.Signatures = make([]solana.Signature, tx.Message.Header.NumRequiredSignatures)

	raw, err := tx.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize transaction: %w", err)
	}

	logger.Debugf("[SvmTx] 构建交易, chainId: %d, instructions: %d, lookupTables: %d, size: %d",
		originChainId, len(instructions), len(tables), len(raw))
	return &model.SvmTx{
		ChainId: originChainId,
		From:    args.Depositor.String(),
		Data:    base64.StdEncoding.EncodeToString(raw),
	}, nil
}
