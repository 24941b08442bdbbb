package address

import (
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	usdcMainnet = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
	usdcSolana  = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

func TestEvmRoundTrip(t *testing.T) {
	a, err := ParseEvm(usdcMainnet)
	require.NoError(t, err)
	assert.True(t, a.IsEvm())

	b32 := a.ToBytes32()
	assert.Equal(t, make([]byte, 12), b32[:12])

	back, err := FromBytes32(b32, EVM)
	require.NoError(t, err)
	assert.True(t, back.Equal(a))

	evmAddr, err := a.ToEvmAddress()
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(usdcMainnet), evmAddr)
	assert.Equal(t, usdcMainnet, a.String())
}

func TestSvmConversionsFailLoudly(t *testing.T) {
	a, err := ParseSvm(usdcSolana)
	require.NoError(t, err)
	assert.True(t, a.IsSvm())

	_, err = a.ToEvmAddress()
	assert.ErrorIs(t, err, ErrNotEvmAddress)

	_, err = FromBytes32(a.ToBytes32(), EVM)
	assert.ErrorIs(t, err, ErrUpperBytesInUse)

	s, err := a.ToBase58()
	require.NoError(t, err)
	assert.Equal(t, usdcSolana, s)

	evm, _ := ParseEvm(usdcMainnet)
	_, err = evm.ToBase58()
	assert.ErrorIs(t, err, ErrNotSvmAddress)
	_, err = evm.ToPublicKey()
	assert.ErrorIs(t, err, ErrNotSvmAddress)
}

func TestParseRejectsWrongShape(t *testing.T) {
	_, err := Parse(usdcSolana, EVM)
	assert.ErrorIs(t, err, ErrInvalidAddress)

	_, err = Parse(usdcMainnet, SVM)
	assert.ErrorIs(t, err, ErrInvalidAddress)

	_, err = ParseEvm("0x1234")
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestEqualNeverCrossesEcosystems(t *testing.T) {
	evmZero := FromEvm(common.Address{})
	svmZero, err := ParseSvm("11111111111111111111111111111111")
	require.NoError(t, err)

	assert.True(t, evmZero.IsZero())
	assert.True(t, svmZero.IsZero())
	assert.False(t, evmZero.Equal(svmZero))
}

func TestTextMarshalling(t *testing.T) {
	type payload struct {
		Token Address `json:"token"`
	}

	in := payload{Token: MustParse(usdcSolana, SVM)}
	raw, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"token":"`+usdcSolana+`"}`, string(raw))

	var out payload
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.True(t, out.Token.Equal(in.Token))
}
