package evmtx

import (
	"bytes"
	"strings"

	"github.com/fachebot/cross-swap-api/internal/apierr"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

var (
	integratorIdDelimiter = []byte{0x1d, 0xc0, 0xde}
	swapAPIMarker         = []byte{0x73, 0xc0, 0xde}
)

// ParseIntegratorId accepts a 2-byte hex id such as "0x0042".
func ParseIntegratorId(id string) ([]byte, error) {
	if !strings.HasPrefix(id, "0x") || len(id) != 6 {
		return nil, apierr.InvalidParam("integratorId", "integratorId must be a 2-byte hex string")
	}
	raw, err := hexutil.Decode(id)
	if err != nil {
		return nil, apierr.InvalidParam("integratorId", "integratorId must be a 2-byte hex string")
	}
	return raw, nil
}

// TagIntegratorID appends the delimiter and the integrator id to calldata.
func TagIntegratorID(data []byte, id string) ([]byte, error) {
	raw, err := ParseIntegratorId(id)
	if err != nil {
		return nil, err
	}
	return bytes.Join([][]byte{data, integratorIdDelimiter, raw}, nil), nil
}

func TagSwapAPIMarker(data []byte) []byte {
	return bytes.Join([][]byte{data, swapAPIMarker}, nil)
}

// tag applies the integrator tag, when set, and then the marker.
func tag(data []byte, integratorId string) ([]byte, error) {
	if integratorId != "" {
		tagged, err := TagIntegratorID(data, integratorId)
		if err != nil {
			return nil, err
		}
		data = tagged
	}
	return TagSwapAPIMarker(data), nil
}
