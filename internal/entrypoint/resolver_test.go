package entrypoint

import (
	"testing"

	"github.com/fachebot/cross-swap-api/internal/apierr"
	"github.com/fachebot/cross-swap-api/internal/config"
	"github.com/fachebot/cross-swap-api/internal/model"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const solanaChainId = 34268394551451

type configChains struct{ c *config.Config }

func (s configChains) Chain(chainId int64) (*config.Chain, bool) { return s.c.FindChain(chainId) }

func newResolver(t *testing.T) *Resolver {
	c, err := config.LoadFromFile("../../etc/config.yaml")
	require.NoError(t, err)
	return NewResolver(configChains{c})
}

func TestDepositEntryPoint(t *testing.T) {
	r := newResolver(t)

	ep, err := r.DepositEntryPoint(10, false, false)
	require.NoError(t, err)
	assert.Equal(t, model.EntryPointSpokePool, ep.Name)
	assert.Equal(t, "0x6f26Bf09B1C792e3228e5467807a900A503c0281", ep.Address.String())

	ep, err = r.DepositEntryPoint(10, true, false)
	require.NoError(t, err)
	assert.Equal(t, model.EntryPointSpokePoolPeriphery, ep.Name)

	ep, err = r.DepositEntryPoint(10, false, true)
	require.NoError(t, err)
	assert.Equal(t, model.EntryPointSpokePoolPeriphery, ep.Name)

	ep, err = r.DepositEntryPoint(solanaChainId, true, true)
	require.NoError(t, err)
	assert.Equal(t, model.EntryPointSvmSpoke, ep.Name)
	assert.True(t, ep.Address.IsSvm())

	_, err = r.DepositEntryPoint(5, false, false)
	assert.True(t, apierr.IsKind(err, apierr.KindUnsupportedRoute))
}

func TestUniversalSwapAndBridge(t *testing.T) {
	r := newResolver(t)

	ep, err := r.UniversalSwapAndBridge(1, "uniswap")
	require.NoError(t, err)
	assert.Equal(t, "uniswap", ep.Dex)
	assert.Equal(t, model.EntryPointUniversalSwapAndBridge, ep.Name)

	_, err = r.UniversalSwapAndBridge(10, "uniswap")
	assert.True(t, apierr.HasCode(err, apierr.CodeUnsupportedDexOnChain))
}

func TestSvmSpokeAccounts(t *testing.T) {
	r := newResolver(t)

	accounts, err := r.SvmSpoke(solanaChainId)
	require.NoError(t, err)

	program := solana.MustPublicKeyFromBase58("DLv3NggMiSaef97YCkew5xKUHDh13tVGZ7tydt3ZeAru")
	assert.Equal(t, program, accounts.Program)

	state, _, err := solana.FindProgramAddress([][]byte{[]byte("state"), make([]byte, 8)}, program)
	require.NoError(t, err)
	assert.Equal(t, state, accounts.State)
	assert.NotEqual(t, accounts.State, accounts.EventAuthority)

	usdc := solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	vault, err := accounts.Vault(usdc)
	require.NoError(t, err)
	expected, _, err := solana.FindAssociatedTokenAddress(state, usdc)
	require.NoError(t, err)
	assert.Equal(t, expected, vault)

	a, err := DelegatePda(program, [32]byte{1})
	require.NoError(t, err)
	b, err := DelegatePda(program, [32]byte{2})
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	_, err = r.SvmSpoke(10)
	assert.True(t, apierr.IsKind(err, apierr.KindEcosystem))
}

func TestMissingContracts(t *testing.T) {
	r := newResolver(t)

	_, err := r.Periphery(solanaChainId)
	assert.True(t, apierr.IsKind(err, apierr.KindUnsupportedRoute))

	proxy, err := r.SwapProxy(1)
	require.NoError(t, err)
	assert.True(t, proxy.IsEvm())

	assert.True(t, r.PeripherySupportsNative(1))
	assert.False(t, r.PeripherySupportsNative(solanaChainId))
}
