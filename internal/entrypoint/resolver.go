package entrypoint

import (
	"encoding/binary"
	"fmt"

	"github.com/fachebot/cross-swap-api/internal/address"
	"github.com/fachebot/cross-swap-api/internal/apierr"
	"github.com/fachebot/cross-swap-api/internal/config"
	"github.com/fachebot/cross-swap-api/internal/model"

	"github.com/gagliardetto/solana-go"
)

// ChainSource resolves the static chain registry.
type ChainSource interface {
	Chain(chainId int64) (*config.Chain, bool)
}

// Resolver looks up bridge contracts per chain. Results are read-only.
type Resolver struct {
	chains ChainSource
}

func NewResolver(chains ChainSource) *Resolver {
	return &Resolver{chains: chains}
}

func (r *Resolver) chain(chainId int64) (*config.Chain, error) {
	chain, ok := r.chains.Chain(chainId)
	if !ok {
		return nil, apierr.UnsupportedRoute(apierr.CodeUnsupportedRoute, "chain %d is not supported", chainId)
	}
	return chain, nil
}

func (r *Resolver) contract(chainId int64, name, value string) (model.EntryPointContract, error) {
	chain, err := r.chain(chainId)
	if err != nil {
		return model.EntryPointContract{}, err
	}
	if value == "" {
		return model.EntryPointContract{}, apierr.UnsupportedRoute(apierr.CodeUnsupportedRoute,
			"%s is not deployed on chain %d", name, chainId)
	}
	addr, err := address.Parse(value, chain.EcosystemType())
	if err != nil {
		return model.EntryPointContract{}, fmt.Errorf("%s on chain %d: %w", name, chainId, err)
	}
	return model.EntryPointContract{Name: name, Address: addr}, nil
}

func (r *Resolver) SpokePool(chainId int64) (model.EntryPointContract, error) {
	chain, err := r.chain(chainId)
	if err != nil {
		return model.EntryPointContract{}, err
	}
	if chain.EcosystemType() == address.SVM {
		return r.contract(chainId, model.EntryPointSvmSpoke, chain.Contracts.SvmSpokeProgram)
	}
	return r.contract(chainId, model.EntryPointSpokePool, chain.Contracts.SpokePool)
}

func (r *Resolver) Periphery(chainId int64) (model.EntryPointContract, error) {
	chain, err := r.chain(chainId)
	if err != nil {
		return model.EntryPointContract{}, err
	}
	return r.contract(chainId, model.EntryPointSpokePoolPeriphery, chain.Contracts.SpokePoolPeriphery)
}

func (r *Resolver) PeripherySupportsNative(chainId int64) bool {
	chain, ok := r.chains.Chain(chainId)
	return ok && chain.Contracts.SpokePoolPeriphery != "" && chain.Contracts.PeripherySupportsNative
}

// SwapProxy is the executor the periphery forwards router calldata through.
func (r *Resolver) SwapProxy(chainId int64) (address.Address, error) {
	chain, err := r.chain(chainId)
	if err != nil {
		return address.Address{}, err
	}
	c, err := r.contract(chainId, "SwapProxy", chain.Contracts.SwapProxy)
	return c.Address, err
}

func (r *Resolver) MulticallHandler(chainId int64) (model.EntryPointContract, error) {
	chain, err := r.chain(chainId)
	if err != nil {
		return model.EntryPointContract{}, err
	}
	return r.contract(chainId, model.EntryPointMulticallHandler, chain.Contracts.MulticallHandler)
}

// UniversalSwapAndBridge resolves the legacy per-dex swap-and-bridge contract.
func (r *Resolver) UniversalSwapAndBridge(chainId int64, dex string) (model.EntryPointContract, error) {
	chain, err := r.chain(chainId)
	if err != nil {
		return model.EntryPointContract{}, err
	}
	value, ok := chain.Contracts.UniversalSwapAndBridge[dex]
	if !ok {
		return model.EntryPointContract{}, apierr.UnsupportedDexOnChain(dex, chainId)
	}
	c, err := r.contract(chainId, model.EntryPointUniversalSwapAndBridge, value)
	if err != nil {
		return model.EntryPointContract{}, err
	}
	c.Dex = dex
	return c, nil
}

// DepositEntryPoint picks the contract a bridge-only deposit goes to. Native
// input goes through the periphery's depositNative when available.
func (r *Resolver) DepositEntryPoint(chainId int64, isNative, preferPeriphery bool) (model.EntryPointContract, error) {
	chain, err := r.chain(chainId)
	if err != nil {
		return model.EntryPointContract{}, err
	}
	if chain.EcosystemType() == address.SVM {
		return r.SpokePool(chainId)
	}
	if (isNative && r.PeripherySupportsNative(chainId)) || (preferPeriphery && chain.Contracts.SpokePoolPeriphery != "") {
		return r.Periphery(chainId)
	}
	return r.SpokePool(chainId)
}

type SvmSpokeAccounts struct {
	Program        solana.PublicKey
	State          solana.PublicKey
	EventAuthority solana.PublicKey
}

// Vault is the state PDA's associated token account for mint.
func (a SvmSpokeAccounts) Vault(mint solana.PublicKey) (solana.PublicKey, error) {
	vault, _, err := solana.FindAssociatedTokenAddress(a.State, mint)
	return vault, err
}

func (r *Resolver) SvmSpoke(chainId int64) (SvmSpokeAccounts, error) {
	chain, err := r.chain(chainId)
	if err != nil {
		return SvmSpokeAccounts{}, err
	}
	if chain.EcosystemType() != address.SVM {
		return SvmSpokeAccounts{}, apierr.EcosystemMismatch(model.EntryPointSvmSpoke, chainId, string(address.SVM))
	}

	program, err := solana.PublicKeyFromBase58(chain.Contracts.SvmSpokeProgram)
	if err != nil {
		return SvmSpokeAccounts{}, apierr.UnsupportedRoute(apierr.CodeUnsupportedRoute,
			"svm spoke program is not configured on chain %d", chainId)
	}

	seed := make([]byte, 8)
	binary.LittleEndian.PutUint64(seed, chain.Contracts.SvmStateSeed)
	state, _, err := solana.FindProgramAddress([][]byte{[]byte("state"), seed}, program)
	if err != nil {
		return SvmSpokeAccounts{}, fmt.Errorf("derive state pda: %w", err)
	}

	eventAuthority, _, err := solana.FindProgramAddress([][]byte{[]byte("__event_authority")}, program)
	if err != nil {
		return SvmSpokeAccounts{}, fmt.Errorf("derive event authority pda: %w", err)
	}

	return SvmSpokeAccounts{Program: program, State: state, EventAuthority: eventAuthority}, nil
}

// DelegatePda is the per-deposit delegate the depositor approves before deposit.
func DelegatePda(program solana.PublicKey, seedHash [32]byte) (solana.PublicKey, error) {
	delegate, _, err := solana.FindProgramAddress([][]byte{[]byte("delegate"), seedHash[:]}, program)
	return delegate, err
}
