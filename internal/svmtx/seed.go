package svmtx

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/ethereum/go-ethereum/crypto"
)

// DepositArgs is the borsh layout shared by the spoke deposit instruction and
// the delegate seed.
type DepositArgs struct {
	Depositor            solana.PublicKey
	Recipient            solana.PublicKey
	InputToken           solana.PublicKey
	OutputToken          solana.PublicKey
	InputAmount          uint64
	OutputAmount         [32]uint8
	DestinationChainId   uint64
	ExclusiveRelayer     solana.PublicKey
	QuoteTimestamp       uint32
	FillDeadline         uint32
	ExclusivityParameter uint32
	Message              []byte
}

var depositDiscriminator = anchorDiscriminator("deposit")

func anchorDiscriminator(name string) []byte {
	sum := sha256.Sum256([]byte("global:" + name))
	return sum[:8]
}

func (a *DepositArgs) borsh() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := bin.NewBorshEncoder(buf).Encode(a); err != nil {
		return nil, fmt.Errorf("borsh encode deposit: %w", err)
	}
	return buf.Bytes(), nil
}

// SeedHash is keccak256 over the borsh encoded deposit.
func (a *DepositArgs) SeedHash() ([32]byte, error) {
	encoded, err := a.borsh()
	if err != nil {
		return [32]byte{}, err
	}
	return crypto.Keccak256Hash(encoded), nil
}

func (a *DepositArgs) instructionData() ([]byte, error) {
	encoded, err := a.borsh()
	if err != nil {
		return nil, err
	}
	return append(append([]byte{}, depositDiscriminator...), encoded...), nil
}
