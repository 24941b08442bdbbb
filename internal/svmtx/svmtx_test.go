package svmtx

import (
	"context"
	"encoding/base64"
	"math/big"
	"sync"
	"testing"

	"github.com/fachebot/cross-swap-api/internal/address"
	"github.com/fachebot/cross-swap-api/internal/apierr"
	"github.com/fachebot/cross-swap-api/internal/config"
	"github.com/fachebot/cross-swap-api/internal/entrypoint"
	"github.com/fachebot/cross-swap-api/internal/evmtx"
	"github.com/fachebot/cross-swap-api/internal/model"
	"github.com/fachebot/cross-swap-api/internal/svmrpc"
	"github.com/fachebot/cross-swap-api/internal/tokens"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const solanaChainId = 34268394551451

var (
	svmUser = address.MustParse("9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM", address.SVM)
	evmUser = address.MustParse("0x9a8f92a830A5cB89a3816e3D267CB7791c16b04D", address.EVM)

	computeBudgetProgram = solana.MustPublicKeyFromBase58("ComputeBudget111111111111111111111111111111")
	jupiterProgram       = solana.MustPublicKeyFromBase58("JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4")
	spokeProgram         = solana.MustPublicKeyFromBase58("DLv3NggMiSaef97YCkew5xKUHDh13tVGZ7tydt3ZeAru")
	lookupTable          = solana.MustPublicKeyFromBase58("GxS6FiQ3mNnAar9HGQ6mxP7t6FcwmHkU7peSeQDUHmpN")
	poolAccount          = solana.MustPublicKeyFromBase58("8sLbNZoA1cfnvMJLPfp98ZLAnFSYCFApfJKMbiXNLwxj")
)

type fakeReader struct {
	mutex        sync.Mutex
	lookupCalls  int
	requestedALT []solana.PublicKey
}

func (f *fakeReader) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	return solana.MustHashFromBase58("EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N"), nil
}

func (f *fakeReader) LookupTables(ctx context.Context, tables []solana.PublicKey) (map[solana.PublicKey]solana.PublicKeySlice, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.lookupCalls++
	f.requestedALT = append(f.requestedALT, tables...)

	result := make(map[solana.PublicKey]solana.PublicKeySlice)
	for _, table := range tables {
		result[table] = solana.PublicKeySlice{poolAccount}
	}
	return result, nil
}

func (f *fakeReader) MintDecimals(ctx context.Context, mint solana.PublicKey) (uint8, error) {
	return 6, nil
}

type testEnv struct {
	tokens  *tokens.Registry
	reader  *fakeReader
	builder *Builder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg, err := config.LoadFromFile("../../etc/config.yaml")
	require.NoError(t, err)
	registry, err := tokens.NewRegistry(cfg)
	require.NoError(t, err)
	entryPoints := entrypoint.NewResolver(registry)

	reader := &fakeReader{}
	builder := NewBuilder(entryPoints, evmtx.NewBuilder(entryPoints), map[int64]svmrpc.Reader{solanaChainId: reader})
	return &testEnv{tokens: registry, reader: reader, builder: builder}
}

func (env *testEnv) token(t *testing.T, chainId int64, symbol string) model.Token {
	t.Helper()
	token, ok := env.tokens.BySymbol(chainId, symbol)
	require.True(t, ok, symbol)
	return token
}

func (env *testEnv) bridgeOnly(t *testing.T) *model.CrossSwapQuotes {
	input, output := env.token(t, solanaChainId, "USDC"), env.token(t, 1, "USDC")
	return &model.CrossSwapQuotes{
		CrossSwap: model.CrossSwap{
			Depositor:   svmUser,
			Recipient:   evmUser,
			InputToken:  input,
			OutputToken: output,
			Amount:      big.NewInt(1_000_000),
			Type:        model.ExactInput,
			IsOriginSvm: true,
		},
		Type: model.BridgeableToBridgeable,
		BridgeQuote: model.BridgeQuote{
			InputToken:      input,
			OutputToken:     output,
			InputAmount:     big.NewInt(1_000_000),
			OutputAmount:    big.NewInt(999_000),
			MinOutputAmount: big.NewInt(999_000),
			SuggestedFees:   model.SuggestedFees{Timestamp: 1_700_000_000, FillDeadline: 1_700_003_600},
		},
	}
}

func decode(t *testing.T, tx *model.SvmTx) *solana.Transaction {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(tx.Data)
	require.NoError(t, err)
	decoded, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	require.NoError(t, err)
	return decoded
}

func programs(t *testing.T, tx *solana.Transaction) []solana.PublicKey {
	t.Helper()
	var result []solana.PublicKey
	for _, ix := range tx.Message.Instructions {
		program, err := tx.Message.ResolveProgramIDIndex(ix.ProgramIDIndex)
		require.NoError(t, err)
		result = append(result, program)
	}
	return result
}

func TestBridgeOnlyDeposit(t *testing.T) {
	env := newTestEnv(t)
	quotes := env.bridgeOnly(t)

	tx, err := env.builder.BuildSwapTx(context.Background(), quotes, Options{IntegratorId: "0x0042"})
	require.NoError(t, err)
	assert.Equal(t, svmUser.String(), tx.From)

	decoded := decode(t, tx)
	assert.Equal(t, []solana.PublicKey{solana.TokenProgramID, spokeProgram, solana.MemoProgramID}, programs(t, decoded))
	assert.Len(t, decoded.Signatures, 1)
	assert.Empty(t, decoded.Message.AddressTableLookups)
	assert.Zero(t, env.reader.lookupCalls)

	args, err := env.builder.DepositArgs(quotes)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000), args.InputAmount)
	expected, err := args.instructionData()
	require.NoError(t, err)
	assert.Equal(t, []byte(expected), []byte(decoded.Message.Instructions[1].Data))
	assert.Equal(t, []byte("0x0042"), []byte(decoded.Message.Instructions[2].Data))
}

func TestSwapInstructionOrder(t *testing.T) {
	env := newTestEnv(t)
	quotes := env.bridgeOnly(t)
	bonk := env.token(t, solanaChainId, "BONK")

	quotes.Type = model.AnyToBridgeable
	quotes.CrossSwap.InputToken = bonk
	quotes.OriginSwapQuote = &model.SwapQuote{
		ChainId:           solanaChainId,
		TokenIn:           bonk,
		TokenOut:          quotes.BridgeQuote.InputToken,
		ExpectedAmountIn:  big.NewInt(500_000_000),
		MaximumAmountIn:   big.NewInt(500_000_000),
		ExpectedAmountOut: big.NewInt(1_020_000),
		MinAmountOut:      big.NewInt(1_000_000),
		TradeType:         model.ExactInput,
		SvmSwap: &model.SvmSwapInstructions{
			ComputeBudget: []model.SvmInstruction{{ProgramId: computeBudgetProgram.String(), Data: []byte{2, 0, 0, 0, 0}}},
			Setup: []model.SvmInstruction{{
				ProgramId: solana.SPLAssociatedTokenAccountProgramID.String(),
				Accounts:  []model.SvmAccountMeta{{Pubkey: svmUser.String(), IsSigner: true, IsWritable: true}},
			}},
			Swap: model.SvmInstruction{
				ProgramId: jupiterProgram.String(),
				Accounts: []model.SvmAccountMeta{
					{Pubkey: svmUser.String(), IsSigner: true, IsWritable: true},
					{Pubkey: poolAccount.String(), IsWritable: true},
				},
				Data: []byte{0xe5},
			},
			Cleanup:             &model.SvmInstruction{ProgramId: solana.TokenProgramID.String(), Data: []byte{9}},
			AddressLookupTables: []string{lookupTable.String(), lookupTable.String()},
		},
	}

	tx, err := env.builder.BuildSwapTx(context.Background(), quotes, Options{})
	require.NoError(t, err)

	decoded := decode(t, tx)
	assert.Equal(t, []solana.PublicKey{
		computeBudgetProgram,
		solana.SPLAssociatedTokenAccountProgramID,
		jupiterProgram,
		solana.TokenProgramID,
		solana.TokenProgramID,
		spokeProgram,
	}, programs(t, decoded))
	assert.True(t, decoded.Message.IsVersioned())
	assert.Len(t, decoded.Message.AddressTableLookups, 1)
	assert.Equal(t, 1, env.reader.lookupCalls)
	assert.Equal(t, []solana.PublicKey{lookupTable}, env.reader.requestedALT)

	// the deposit uses the expected swap output, not its bounds
	args, err := env.builder.DepositArgs(quotes)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_020_000), args.InputAmount)
}

func TestSeedHash(t *testing.T) {
	env := newTestEnv(t)
	args, err := env.builder.DepositArgs(env.bridgeOnly(t))
	require.NoError(t, err)

	encoded, err := args.borsh()
	require.NoError(t, err)
	assert.Len(t, encoded, 32*4+8+32+8+32+4*3+4)
	assert.Equal(t, evmUser.ToBytes32(), [32]byte(args.Recipient))
	assert.Equal(t, byte(0x0f), args.OutputAmount[29])

	first, err := args.SeedHash()
	require.NoError(t, err)
	again, err := args.SeedHash()
	require.NoError(t, err)
	assert.Equal(t, first, again)

	args.InputAmount++
	changed, err := args.SeedHash()
	require.NoError(t, err)
	assert.NotEqual(t, first, changed)
}

func TestRejectsEvmOrigin(t *testing.T) {
	env := newTestEnv(t)
	quotes := env.bridgeOnly(t)
	quotes.CrossSwap.IsOriginSvm = false

	_, err := env.builder.BuildSwapTx(context.Background(), quotes, Options{})
	assert.True(t, apierr.IsKind(err, apierr.KindEcosystem))
}
