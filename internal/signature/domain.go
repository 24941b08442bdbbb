package signature

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/fachebot/cross-swap-api/internal/apierr"
	"github.com/fachebot/cross-swap-api/internal/utils/evm"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

var eip712DomainType = []apitypes.Type{
	{Name: "name", Type: "string"},
	{Name: "version", Type: "string"},
	{Name: "chainId", Type: "uint256"},
	{Name: "verifyingContract", Type: "address"},
}

func newDomain(name, version string, chainId int64, verifyingContract common.Address) apitypes.TypedDataDomain {
	return apitypes.TypedDataDomain{
		Name:              name,
		Version:           version,
		ChainId:           math.NewHexOrDecimal256(chainId),
		VerifyingContract: verifyingContract.Hex(),
	}
}

// DomainSeparator hashes an EIP712Domain{name, version, chainId, verifyingContract}.
func DomainSeparator(domain apitypes.TypedDataDomain) (common.Hash, error) {
	typedData := apitypes.TypedData{
		Types:  apitypes.Types{"EIP712Domain": eip712DomainType},
		Domain: domain,
	}
	hash, err := typedData.HashStruct("EIP712Domain", domain.Map())
	if err != nil {
		return common.Hash{}, fmt.Errorf("hash eip712 domain: %w", err)
	}
	return common.BytesToHash(hash), nil
}

// checkDomainSeparator fails unless the token's DOMAIN_SEPARATOR() equals the
// locally recomputed one byte for byte.
func checkDomainSeparator(ctx context.Context, caller ethereum.ContractCaller, token common.Address, domain apitypes.TypedDataDomain) error {
	onchain, err := evm.GetDomainSeparator(ctx, caller, token.Hex())
	if err != nil {
		return fmt.Errorf("read DOMAIN_SEPARATOR of %s: %w", token.Hex(), err)
	}
	local, err := DomainSeparator(domain)
	if err != nil {
		return err
	}
	if local != common.Hash(onchain) {
		return apierr.Invariant(apierr.CodeDomainSeparatorMismatch,
			"domain separator of %s does not match name %q version %q", token.Hex(), domain.Name, domain.Version)
	}
	return nil
}

// parseVersion decodes a version() result. Tokens return either a string or
// a uint256.
func parseVersion(raw []byte) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	if values, err := evm.ERC20ABI.Unpack("version", raw); err == nil && len(values) == 1 {
		if s, ok := values[0].(string); ok && s != "" {
			return s, true
		}
	}
	if len(raw) == 32 {
		n := new(big.Int).SetBytes(raw)
		if n.IsInt64() {
			return n.String(), true
		}
	}
	return "", false
}

// permitVersion falls back to "1" when version() is missing or unreadable.
func permitVersion(raw []byte, err error) string {
	if err != nil {
		return "1"
	}
	if version, ok := parseVersion(raw); ok {
		return version
	}
	return "1"
}

// authVersion accepts the contract's own version only when it is 1 or 2.
func authVersion(raw []byte, err error, fallback int) string {
	if err == nil {
		if version, ok := parseVersion(raw); ok {
			switch strings.TrimSpace(version) {
			case "1", "2":
				return strings.TrimSpace(version)
			}
		}
	}
	if fallback > 0 {
		return fmt.Sprint(fallback)
	}
	return "1"
}
