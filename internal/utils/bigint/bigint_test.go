package bigint

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueDecodesHeterogeneousShapes(t *testing.T) {
	var out struct {
		A Value `json:"a"`
		B Value `json:"b"`
		C Value `json:"c"`
		D Value `json:"d"`
	}
	err := json.Unmarshal([]byte(`{"a":"1000000000000000000000","b":42,"c":"0x10","d":null}`), &out)
	require.NoError(t, err)

	assert.Equal(t, "1000000000000000000000", out.A.Big().String())
	assert.Equal(t, int64(42), out.B.Big().Int64())
	assert.Equal(t, int64(16), out.C.Big().Int64())
	assert.Equal(t, int64(0), out.D.Big().Int64())

	raw, err := json.Marshal(out.A)
	require.NoError(t, err)
	assert.Equal(t, `"1000000000000000000000"`, string(raw))
}

func TestParseAmount(t *testing.T) {
	n, err := ParseAmount("1000000")
	require.NoError(t, err)
	assert.Equal(t, int64(1000000), n.Int64())

	_, err = ParseAmount("-1")
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = ParseAmount("1.5")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestConvertDecimals(t *testing.T) {
	assert.Equal(t, "1000000000000000000", ConvertDecimals(big.NewInt(1000000), 6, 18, false).String())
	assert.Equal(t, "1", ConvertDecimals(big.NewInt(1000000000001), 18, 6, false).String())
	assert.Equal(t, "2", ConvertDecimals(big.NewInt(1000000000001), 18, 6, true).String())
}

func TestMulDivUp(t *testing.T) {
	assert.Equal(t, int64(4), MulDivUp(big.NewInt(10), big.NewInt(1), big.NewInt(3)).Int64())
	assert.Equal(t, int64(5), MulDivUp(big.NewInt(10), big.NewInt(1), big.NewInt(2)).Int64())
}
