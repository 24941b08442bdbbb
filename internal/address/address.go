package address

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

type Ecosystem string

const (
	EVM Ecosystem = "evm"
	SVM Ecosystem = "svm"
)

var (
	ErrInvalidAddress  = errors.New("invalid address")
	ErrNotEvmAddress   = errors.New("address is not an EVM address")
	ErrNotSvmAddress   = errors.New("address is not an SVM address")
	ErrUpperBytesInUse = errors.New("bytes32 value does not fit into 20 bytes")
)

// Address is either a 20-byte EVM address or a 32-byte SVM public key. Both are
// kept right-aligned in a 32-byte buffer.
type Address struct {
	kind Ecosystem
	raw  [32]byte
}

func FromEvm(addr common.Address) Address {
	var a Address
	a.kind = EVM
	copy(a.raw[12:], addr.Bytes())
	return a
}

func FromSvm(key solana.PublicKey) Address {
	return Address{kind: SVM, raw: key}
}

func ParseEvm(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return Address{}, fmt.Errorf("%w: %q is not a 20-byte hex address", ErrInvalidAddress, s)
	}
	return FromEvm(common.HexToAddress(s)), nil
}

func ParseSvm(s string) (Address, error) {
	s = strings.TrimSpace(s)
	raw, err := base58.Decode(s)
	if err != nil || len(raw) != 32 {
		return Address{}, fmt.Errorf("%w: %q is not a 32-byte base58 key", ErrInvalidAddress, s)
	}

	var a Address
	a.kind = SVM
	copy(a.raw[:], raw)
	return a, nil
}

// Parse decodes s in the given ecosystem's representation.
func Parse(s string, ecosystem Ecosystem) (Address, error) {
	switch ecosystem {
	case EVM:
		return ParseEvm(s)
	case SVM:
		return ParseSvm(s)
	}
	return Address{}, fmt.Errorf("unknown ecosystem %q", ecosystem)
}

// ParseAny detects the representation from the string shape.
func ParseAny(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return ParseEvm(s)
	}
	return ParseSvm(s)
}

func MustParse(s string, ecosystem Ecosystem) Address {
	a, err := Parse(s, ecosystem)
	if err != nil {
		panic(err)
	}
	return a
}

// FromBytes32 interprets a bytes32 slot. For EVM the upper 12 bytes must be zero.
func FromBytes32(b [32]byte, ecosystem Ecosystem) (Address, error) {
	switch ecosystem {
	case EVM:
		if !bytes.Equal(b[:12], make([]byte, 12)) {
			return Address{}, ErrUpperBytesInUse
		}
		return Address{kind: EVM, raw: b}, nil
	case SVM:
		return Address{kind: SVM, raw: b}, nil
	}
	return Address{}, fmt.Errorf("unknown ecosystem %q", ecosystem)
}

func (a Address) Ecosystem() Ecosystem {
	return a.kind
}

func (a Address) IsEvm() bool {
	return a.kind == EVM
}

func (a Address) IsSvm() bool {
	return a.kind == SVM
}

func (a Address) IsValid() bool {
	return a.kind == EVM || a.kind == SVM
}

// IsZero reports the EVM zero address or the SVM system program key, both used
// as the native-asset sentinel.
func (a Address) IsZero() bool {
	return a.raw == [32]byte{}
}

func (a Address) ToBytes32() [32]byte {
	return a.raw
}

func (a Address) ToEvmAddress() (common.Address, error) {
	if a.kind != EVM {
		return common.Address{}, ErrNotEvmAddress
	}
	return common.BytesToAddress(a.raw[12:]), nil
}

func (a Address) ToBase58() (string, error) {
	if a.kind != SVM {
		return "", ErrNotSvmAddress
	}
	return base58.Encode(a.raw[:]), nil
}

func (a Address) ToPublicKey() (solana.PublicKey, error) {
	if a.kind != SVM {
		return solana.PublicKey{}, ErrNotSvmAddress
	}
	return solana.PublicKeyFromBytes(a.raw[:]), nil
}

func (a Address) Equal(b Address) bool {
	return a.kind == b.kind && a.raw == b.raw
}

func (a Address) String() string {
	switch a.kind {
	case EVM:
		return common.BytesToAddress(a.raw[12:]).Hex()
	case SVM:
		return base58.Encode(a.raw[:])
	}
	return ""
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAny(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
